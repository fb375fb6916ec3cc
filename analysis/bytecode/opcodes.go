// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bytecode

import "fmt"

// Opcode is a JVM instruction opcode as it appears in the class file.
type Opcode byte

// Constants and stack operations
const (
	NOP         Opcode = 0x00
	ACONST_NULL Opcode = 0x01
	ICONST_M1   Opcode = 0x02
	ICONST_0    Opcode = 0x03
	ICONST_1    Opcode = 0x04
	ICONST_2    Opcode = 0x05
	ICONST_3    Opcode = 0x06
	ICONST_4    Opcode = 0x07
	ICONST_5    Opcode = 0x08
	LCONST_0    Opcode = 0x09
	LCONST_1    Opcode = 0x0a
	FCONST_0    Opcode = 0x0b
	FCONST_1    Opcode = 0x0c
	FCONST_2    Opcode = 0x0d
	DCONST_0    Opcode = 0x0e
	DCONST_1    Opcode = 0x0f
	BIPUSH      Opcode = 0x10
	SIPUSH      Opcode = 0x11
	LDC         Opcode = 0x12
	LDC_W       Opcode = 0x13
	LDC2_W      Opcode = 0x14
)

// Loads
const (
	ILOAD   Opcode = 0x15
	LLOAD   Opcode = 0x16
	FLOAD   Opcode = 0x17
	DLOAD   Opcode = 0x18
	ALOAD   Opcode = 0x19
	ILOAD_0 Opcode = 0x1a
	ILOAD_1 Opcode = 0x1b
	ILOAD_2 Opcode = 0x1c
	ILOAD_3 Opcode = 0x1d
	LLOAD_0 Opcode = 0x1e
	LLOAD_1 Opcode = 0x1f
	LLOAD_2 Opcode = 0x20
	LLOAD_3 Opcode = 0x21
	FLOAD_0 Opcode = 0x22
	FLOAD_1 Opcode = 0x23
	FLOAD_2 Opcode = 0x24
	FLOAD_3 Opcode = 0x25
	DLOAD_0 Opcode = 0x26
	DLOAD_1 Opcode = 0x27
	DLOAD_2 Opcode = 0x28
	DLOAD_3 Opcode = 0x29
	ALOAD_0 Opcode = 0x2a
	ALOAD_1 Opcode = 0x2b
	ALOAD_2 Opcode = 0x2c
	ALOAD_3 Opcode = 0x2d
	IALOAD  Opcode = 0x2e
	LALOAD  Opcode = 0x2f
	FALOAD  Opcode = 0x30
	DALOAD  Opcode = 0x31
	AALOAD  Opcode = 0x32
	BALOAD  Opcode = 0x33
	CALOAD  Opcode = 0x34
	SALOAD  Opcode = 0x35
)

// Stores
const (
	ISTORE   Opcode = 0x36
	LSTORE   Opcode = 0x37
	FSTORE   Opcode = 0x38
	DSTORE   Opcode = 0x39
	ASTORE   Opcode = 0x3a
	ISTORE_0 Opcode = 0x3b
	ISTORE_1 Opcode = 0x3c
	ISTORE_2 Opcode = 0x3d
	ISTORE_3 Opcode = 0x3e
	LSTORE_0 Opcode = 0x3f
	LSTORE_1 Opcode = 0x40
	LSTORE_2 Opcode = 0x41
	LSTORE_3 Opcode = 0x42
	FSTORE_0 Opcode = 0x43
	FSTORE_1 Opcode = 0x44
	FSTORE_2 Opcode = 0x45
	FSTORE_3 Opcode = 0x46
	DSTORE_0 Opcode = 0x47
	DSTORE_1 Opcode = 0x48
	DSTORE_2 Opcode = 0x49
	DSTORE_3 Opcode = 0x4a
	ASTORE_0 Opcode = 0x4b
	ASTORE_1 Opcode = 0x4c
	ASTORE_2 Opcode = 0x4d
	ASTORE_3 Opcode = 0x4e
	IASTORE  Opcode = 0x4f
	LASTORE  Opcode = 0x50
	FASTORE  Opcode = 0x51
	DASTORE  Opcode = 0x52
	AASTORE  Opcode = 0x53
	BASTORE  Opcode = 0x54
	CASTORE  Opcode = 0x55
	SASTORE  Opcode = 0x56
)

// Operand stack manipulation
const (
	POP     Opcode = 0x57
	POP2    Opcode = 0x58
	DUP     Opcode = 0x59
	DUP_X1  Opcode = 0x5a
	DUP_X2  Opcode = 0x5b
	DUP2    Opcode = 0x5c
	DUP2_X1 Opcode = 0x5d
	DUP2_X2 Opcode = 0x5e
	SWAP    Opcode = 0x5f
)

// Arithmetic and logic
const (
	IADD  Opcode = 0x60
	LADD  Opcode = 0x61
	FADD  Opcode = 0x62
	DADD  Opcode = 0x63
	ISUB  Opcode = 0x64
	LSUB  Opcode = 0x65
	FSUB  Opcode = 0x66
	DSUB  Opcode = 0x67
	IMUL  Opcode = 0x68
	LMUL  Opcode = 0x69
	FMUL  Opcode = 0x6a
	DMUL  Opcode = 0x6b
	IDIV  Opcode = 0x6c
	LDIV  Opcode = 0x6d
	FDIV  Opcode = 0x6e
	DDIV  Opcode = 0x6f
	IREM  Opcode = 0x70
	LREM  Opcode = 0x71
	FREM  Opcode = 0x72
	DREM  Opcode = 0x73
	INEG  Opcode = 0x74
	LNEG  Opcode = 0x75
	FNEG  Opcode = 0x76
	DNEG  Opcode = 0x77
	ISHL  Opcode = 0x78
	LSHL  Opcode = 0x79
	ISHR  Opcode = 0x7a
	LSHR  Opcode = 0x7b
	IUSHR Opcode = 0x7c
	LUSHR Opcode = 0x7d
	IAND  Opcode = 0x7e
	LAND  Opcode = 0x7f
	IOR   Opcode = 0x80
	LOR   Opcode = 0x81
	IXOR  Opcode = 0x82
	LXOR  Opcode = 0x83
	IINC  Opcode = 0x84
)

// Conversions and comparisons
const (
	I2L   Opcode = 0x85
	I2F   Opcode = 0x86
	I2D   Opcode = 0x87
	L2I   Opcode = 0x88
	L2F   Opcode = 0x89
	L2D   Opcode = 0x8a
	F2I   Opcode = 0x8b
	F2L   Opcode = 0x8c
	F2D   Opcode = 0x8d
	D2I   Opcode = 0x8e
	D2L   Opcode = 0x8f
	D2F   Opcode = 0x90
	I2B   Opcode = 0x91
	I2C   Opcode = 0x92
	I2S   Opcode = 0x93
	LCMP  Opcode = 0x94
	FCMPL Opcode = 0x95
	FCMPG Opcode = 0x96
	DCMPL Opcode = 0x97
	DCMPG Opcode = 0x98
)

// Control transfer
const (
	IFEQ         Opcode = 0x99
	IFNE         Opcode = 0x9a
	IFLT         Opcode = 0x9b
	IFGE         Opcode = 0x9c
	IFGT         Opcode = 0x9d
	IFLE         Opcode = 0x9e
	IF_ICMPEQ    Opcode = 0x9f
	IF_ICMPNE    Opcode = 0xa0
	IF_ICMPLT    Opcode = 0xa1
	IF_ICMPGE    Opcode = 0xa2
	IF_ICMPGT    Opcode = 0xa3
	IF_ICMPLE    Opcode = 0xa4
	IF_ACMPEQ    Opcode = 0xa5
	IF_ACMPNE    Opcode = 0xa6
	GOTO         Opcode = 0xa7
	JSR          Opcode = 0xa8
	RET          Opcode = 0xa9
	TABLESWITCH  Opcode = 0xaa
	LOOKUPSWITCH Opcode = 0xab
	IRETURN      Opcode = 0xac
	LRETURN      Opcode = 0xad
	FRETURN      Opcode = 0xae
	DRETURN      Opcode = 0xaf
	ARETURN      Opcode = 0xb0
	RETURN       Opcode = 0xb1
)

// References
const (
	GETSTATIC       Opcode = 0xb2
	PUTSTATIC       Opcode = 0xb3
	GETFIELD        Opcode = 0xb4
	PUTFIELD        Opcode = 0xb5
	INVOKEVIRTUAL   Opcode = 0xb6
	INVOKESPECIAL   Opcode = 0xb7
	INVOKESTATIC    Opcode = 0xb8
	INVOKEINTERFACE Opcode = 0xb9
	INVOKEDYNAMIC   Opcode = 0xba
	NEW             Opcode = 0xbb
	NEWARRAY        Opcode = 0xbc
	ANEWARRAY       Opcode = 0xbd
	ARRAYLENGTH     Opcode = 0xbe
	ATHROW          Opcode = 0xbf
	CHECKCAST       Opcode = 0xc0
	INSTANCEOF      Opcode = 0xc1
	MONITORENTER    Opcode = 0xc2
	MONITOREXIT     Opcode = 0xc3
	WIDE            Opcode = 0xc4
	MULTIANEWARRAY  Opcode = 0xc5
	IFNULL          Opcode = 0xc6
	IFNONNULL       Opcode = 0xc7
	GOTO_W          Opcode = 0xc8
	JSR_W           Opcode = 0xc9
	BREAKPOINT      Opcode = 0xca
	IMPDEP1         Opcode = 0xfe
	IMPDEP2         Opcode = 0xff
)

// A Kind classifies opcodes by their effect on the operand stack and on control flow. Every analysis that
// dispatches on instructions switches over the Kind first, and then over the Opcode when the kind is not
// precise enough.
type Kind int

const (
	KindInvalid Kind = iota
	KindNop
	KindConst
	KindLoad
	KindArrayLoad
	KindStore
	KindArrayStore
	KindStack
	KindArith
	KindIinc
	KindConvert
	KindCompare
	KindBranch
	KindSubroutine
	KindSwitch
	KindReturn
	KindFieldGet
	KindFieldPut
	KindInvoke
	KindNew
	KindNewArray
	KindArrayLength
	KindThrow
	KindTypeCheck
	KindMonitor
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindNop:         "nop",
	KindConst:       "const",
	KindLoad:        "load",
	KindArrayLoad:   "array-load",
	KindStore:       "store",
	KindArrayStore:  "array-store",
	KindStack:       "stack",
	KindArith:       "arith",
	KindIinc:        "iinc",
	KindConvert:     "convert",
	KindCompare:     "compare",
	KindBranch:      "branch",
	KindSubroutine:  "subroutine",
	KindSwitch:      "switch",
	KindReturn:      "return",
	KindFieldGet:    "field-get",
	KindFieldPut:    "field-put",
	KindInvoke:      "invoke",
	KindNew:         "new",
	KindNewArray:    "new-array",
	KindArrayLength: "array-length",
	KindThrow:       "throw",
	KindTypeCheck:   "type-check",
	KindMonitor:     "monitor",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds returns all the valid kinds, in declaration order
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames)-1)
	for k := KindNop; int(k) < len(kindNames); k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// opcodeInfo holds the metadata of an opcode.
//   - pops is the number of stack values consumed when it does not depend on operands
//   - typ is the descriptor of the value produced, loaded or stored (empty when the opcode produces nothing)
type opcodeInfo struct {
	name string
	kind Kind
	pops int
	typ  string
}

var opcodeTable = [256]opcodeInfo{
	NOP:         {"nop", KindNop, 0, ""},
	ACONST_NULL: {"aconst_null", KindConst, 0, TypeObject},
	ICONST_M1:   {"iconst_m1", KindConst, 0, TypeInt},
	ICONST_0:    {"iconst_0", KindConst, 0, TypeInt},
	ICONST_1:    {"iconst_1", KindConst, 0, TypeInt},
	ICONST_2:    {"iconst_2", KindConst, 0, TypeInt},
	ICONST_3:    {"iconst_3", KindConst, 0, TypeInt},
	ICONST_4:    {"iconst_4", KindConst, 0, TypeInt},
	ICONST_5:    {"iconst_5", KindConst, 0, TypeInt},
	LCONST_0:    {"lconst_0", KindConst, 0, TypeLong},
	LCONST_1:    {"lconst_1", KindConst, 0, TypeLong},
	FCONST_0:    {"fconst_0", KindConst, 0, TypeFloat},
	FCONST_1:    {"fconst_1", KindConst, 0, TypeFloat},
	FCONST_2:    {"fconst_2", KindConst, 0, TypeFloat},
	DCONST_0:    {"dconst_0", KindConst, 0, TypeDouble},
	DCONST_1:    {"dconst_1", KindConst, 0, TypeDouble},
	BIPUSH:      {"bipush", KindConst, 0, TypeInt},
	SIPUSH:      {"sipush", KindConst, 0, TypeInt},
	LDC:         {"ldc", KindConst, 0, ""},
	LDC_W:       {"ldc_w", KindConst, 0, ""},
	LDC2_W:      {"ldc2_w", KindConst, 0, ""},

	ILOAD:   {"iload", KindLoad, 0, TypeInt},
	LLOAD:   {"lload", KindLoad, 0, TypeLong},
	FLOAD:   {"fload", KindLoad, 0, TypeFloat},
	DLOAD:   {"dload", KindLoad, 0, TypeDouble},
	ALOAD:   {"aload", KindLoad, 0, TypeObject},
	ILOAD_0: {"iload_0", KindLoad, 0, TypeInt},
	ILOAD_1: {"iload_1", KindLoad, 0, TypeInt},
	ILOAD_2: {"iload_2", KindLoad, 0, TypeInt},
	ILOAD_3: {"iload_3", KindLoad, 0, TypeInt},
	LLOAD_0: {"lload_0", KindLoad, 0, TypeLong},
	LLOAD_1: {"lload_1", KindLoad, 0, TypeLong},
	LLOAD_2: {"lload_2", KindLoad, 0, TypeLong},
	LLOAD_3: {"lload_3", KindLoad, 0, TypeLong},
	FLOAD_0: {"fload_0", KindLoad, 0, TypeFloat},
	FLOAD_1: {"fload_1", KindLoad, 0, TypeFloat},
	FLOAD_2: {"fload_2", KindLoad, 0, TypeFloat},
	FLOAD_3: {"fload_3", KindLoad, 0, TypeFloat},
	DLOAD_0: {"dload_0", KindLoad, 0, TypeDouble},
	DLOAD_1: {"dload_1", KindLoad, 0, TypeDouble},
	DLOAD_2: {"dload_2", KindLoad, 0, TypeDouble},
	DLOAD_3: {"dload_3", KindLoad, 0, TypeDouble},
	ALOAD_0: {"aload_0", KindLoad, 0, TypeObject},
	ALOAD_1: {"aload_1", KindLoad, 0, TypeObject},
	ALOAD_2: {"aload_2", KindLoad, 0, TypeObject},
	ALOAD_3: {"aload_3", KindLoad, 0, TypeObject},
	IALOAD:  {"iaload", KindArrayLoad, 2, TypeInt},
	LALOAD:  {"laload", KindArrayLoad, 2, TypeLong},
	FALOAD:  {"faload", KindArrayLoad, 2, TypeFloat},
	DALOAD:  {"daload", KindArrayLoad, 2, TypeDouble},
	AALOAD:  {"aaload", KindArrayLoad, 2, TypeObject},
	BALOAD:  {"baload", KindArrayLoad, 2, TypeInt},
	CALOAD:  {"caload", KindArrayLoad, 2, TypeInt},
	SALOAD:  {"saload", KindArrayLoad, 2, TypeInt},

	ISTORE:   {"istore", KindStore, 1, TypeInt},
	LSTORE:   {"lstore", KindStore, 1, TypeLong},
	FSTORE:   {"fstore", KindStore, 1, TypeFloat},
	DSTORE:   {"dstore", KindStore, 1, TypeDouble},
	ASTORE:   {"astore", KindStore, 1, TypeObject},
	ISTORE_0: {"istore_0", KindStore, 1, TypeInt},
	ISTORE_1: {"istore_1", KindStore, 1, TypeInt},
	ISTORE_2: {"istore_2", KindStore, 1, TypeInt},
	ISTORE_3: {"istore_3", KindStore, 1, TypeInt},
	LSTORE_0: {"lstore_0", KindStore, 1, TypeLong},
	LSTORE_1: {"lstore_1", KindStore, 1, TypeLong},
	LSTORE_2: {"lstore_2", KindStore, 1, TypeLong},
	LSTORE_3: {"lstore_3", KindStore, 1, TypeLong},
	FSTORE_0: {"fstore_0", KindStore, 1, TypeFloat},
	FSTORE_1: {"fstore_1", KindStore, 1, TypeFloat},
	FSTORE_2: {"fstore_2", KindStore, 1, TypeFloat},
	FSTORE_3: {"fstore_3", KindStore, 1, TypeFloat},
	DSTORE_0: {"dstore_0", KindStore, 1, TypeDouble},
	DSTORE_1: {"dstore_1", KindStore, 1, TypeDouble},
	DSTORE_2: {"dstore_2", KindStore, 1, TypeDouble},
	DSTORE_3: {"dstore_3", KindStore, 1, TypeDouble},
	ASTORE_0: {"astore_0", KindStore, 1, TypeObject},
	ASTORE_1: {"astore_1", KindStore, 1, TypeObject},
	ASTORE_2: {"astore_2", KindStore, 1, TypeObject},
	ASTORE_3: {"astore_3", KindStore, 1, TypeObject},
	IASTORE:  {"iastore", KindArrayStore, 3, ""},
	LASTORE:  {"lastore", KindArrayStore, 3, ""},
	FASTORE:  {"fastore", KindArrayStore, 3, ""},
	DASTORE:  {"dastore", KindArrayStore, 3, ""},
	AASTORE:  {"aastore", KindArrayStore, 3, ""},
	BASTORE:  {"bastore", KindArrayStore, 3, ""},
	CASTORE:  {"castore", KindArrayStore, 3, ""},
	SASTORE:  {"sastore", KindArrayStore, 3, ""},

	POP:     {"pop", KindStack, 1, ""},
	POP2:    {"pop2", KindStack, 0, ""},
	DUP:     {"dup", KindStack, 0, ""},
	DUP_X1:  {"dup_x1", KindStack, 0, ""},
	DUP_X2:  {"dup_x2", KindStack, 0, ""},
	DUP2:    {"dup2", KindStack, 0, ""},
	DUP2_X1: {"dup2_x1", KindStack, 0, ""},
	DUP2_X2: {"dup2_x2", KindStack, 0, ""},
	SWAP:    {"swap", KindStack, 0, ""},

	IADD:  {"iadd", KindArith, 2, TypeInt},
	LADD:  {"ladd", KindArith, 2, TypeLong},
	FADD:  {"fadd", KindArith, 2, TypeFloat},
	DADD:  {"dadd", KindArith, 2, TypeDouble},
	ISUB:  {"isub", KindArith, 2, TypeInt},
	LSUB:  {"lsub", KindArith, 2, TypeLong},
	FSUB:  {"fsub", KindArith, 2, TypeFloat},
	DSUB:  {"dsub", KindArith, 2, TypeDouble},
	IMUL:  {"imul", KindArith, 2, TypeInt},
	LMUL:  {"lmul", KindArith, 2, TypeLong},
	FMUL:  {"fmul", KindArith, 2, TypeFloat},
	DMUL:  {"dmul", KindArith, 2, TypeDouble},
	IDIV:  {"idiv", KindArith, 2, TypeInt},
	LDIV:  {"ldiv", KindArith, 2, TypeLong},
	FDIV:  {"fdiv", KindArith, 2, TypeFloat},
	DDIV:  {"ddiv", KindArith, 2, TypeDouble},
	IREM:  {"irem", KindArith, 2, TypeInt},
	LREM:  {"lrem", KindArith, 2, TypeLong},
	FREM:  {"frem", KindArith, 2, TypeFloat},
	DREM:  {"drem", KindArith, 2, TypeDouble},
	INEG:  {"ineg", KindArith, 1, TypeInt},
	LNEG:  {"lneg", KindArith, 1, TypeLong},
	FNEG:  {"fneg", KindArith, 1, TypeFloat},
	DNEG:  {"dneg", KindArith, 1, TypeDouble},
	ISHL:  {"ishl", KindArith, 2, TypeInt},
	LSHL:  {"lshl", KindArith, 2, TypeLong},
	ISHR:  {"ishr", KindArith, 2, TypeInt},
	LSHR:  {"lshr", KindArith, 2, TypeLong},
	IUSHR: {"iushr", KindArith, 2, TypeInt},
	LUSHR: {"lushr", KindArith, 2, TypeLong},
	IAND:  {"iand", KindArith, 2, TypeInt},
	LAND:  {"land", KindArith, 2, TypeLong},
	IOR:   {"ior", KindArith, 2, TypeInt},
	LOR:   {"lor", KindArith, 2, TypeLong},
	IXOR:  {"ixor", KindArith, 2, TypeInt},
	LXOR:  {"lxor", KindArith, 2, TypeLong},
	IINC:  {"iinc", KindIinc, 0, TypeInt},

	I2L:   {"i2l", KindConvert, 1, TypeLong},
	I2F:   {"i2f", KindConvert, 1, TypeFloat},
	I2D:   {"i2d", KindConvert, 1, TypeDouble},
	L2I:   {"l2i", KindConvert, 1, TypeInt},
	L2F:   {"l2f", KindConvert, 1, TypeFloat},
	L2D:   {"l2d", KindConvert, 1, TypeDouble},
	F2I:   {"f2i", KindConvert, 1, TypeInt},
	F2L:   {"f2l", KindConvert, 1, TypeLong},
	F2D:   {"f2d", KindConvert, 1, TypeDouble},
	D2I:   {"d2i", KindConvert, 1, TypeInt},
	D2L:   {"d2l", KindConvert, 1, TypeLong},
	D2F:   {"d2f", KindConvert, 1, TypeFloat},
	I2B:   {"i2b", KindConvert, 1, TypeInt},
	I2C:   {"i2c", KindConvert, 1, TypeInt},
	I2S:   {"i2s", KindConvert, 1, TypeInt},
	LCMP:  {"lcmp", KindCompare, 2, TypeInt},
	FCMPL: {"fcmpl", KindCompare, 2, TypeInt},
	FCMPG: {"fcmpg", KindCompare, 2, TypeInt},
	DCMPL: {"dcmpl", KindCompare, 2, TypeInt},
	DCMPG: {"dcmpg", KindCompare, 2, TypeInt},

	IFEQ:         {"ifeq", KindBranch, 1, ""},
	IFNE:         {"ifne", KindBranch, 1, ""},
	IFLT:         {"iflt", KindBranch, 1, ""},
	IFGE:         {"ifge", KindBranch, 1, ""},
	IFGT:         {"ifgt", KindBranch, 1, ""},
	IFLE:         {"ifle", KindBranch, 1, ""},
	IF_ICMPEQ:    {"if_icmpeq", KindBranch, 2, ""},
	IF_ICMPNE:    {"if_icmpne", KindBranch, 2, ""},
	IF_ICMPLT:    {"if_icmplt", KindBranch, 2, ""},
	IF_ICMPGE:    {"if_icmpge", KindBranch, 2, ""},
	IF_ICMPGT:    {"if_icmpgt", KindBranch, 2, ""},
	IF_ICMPLE:    {"if_icmple", KindBranch, 2, ""},
	IF_ACMPEQ:    {"if_acmpeq", KindBranch, 2, ""},
	IF_ACMPNE:    {"if_acmpne", KindBranch, 2, ""},
	GOTO:         {"goto", KindBranch, 0, ""},
	JSR:          {"jsr", KindSubroutine, 0, TypeReturnAddress},
	RET:          {"ret", KindSubroutine, 0, ""},
	TABLESWITCH:  {"tableswitch", KindSwitch, 1, ""},
	LOOKUPSWITCH: {"lookupswitch", KindSwitch, 1, ""},
	IRETURN:      {"ireturn", KindReturn, 1, TypeInt},
	LRETURN:      {"lreturn", KindReturn, 1, TypeLong},
	FRETURN:      {"freturn", KindReturn, 1, TypeFloat},
	DRETURN:      {"dreturn", KindReturn, 1, TypeDouble},
	ARETURN:      {"areturn", KindReturn, 1, TypeObject},
	RETURN:       {"return", KindReturn, 0, ""},

	GETSTATIC:       {"getstatic", KindFieldGet, 0, ""},
	PUTSTATIC:       {"putstatic", KindFieldPut, 1, ""},
	GETFIELD:        {"getfield", KindFieldGet, 1, ""},
	PUTFIELD:        {"putfield", KindFieldPut, 2, ""},
	INVOKEVIRTUAL:   {"invokevirtual", KindInvoke, 0, ""},
	INVOKESPECIAL:   {"invokespecial", KindInvoke, 0, ""},
	INVOKESTATIC:    {"invokestatic", KindInvoke, 0, ""},
	INVOKEINTERFACE: {"invokeinterface", KindInvoke, 0, ""},
	INVOKEDYNAMIC:   {"invokedynamic", KindInvoke, 0, ""},
	NEW:             {"new", KindNew, 0, ""},
	NEWARRAY:        {"newarray", KindNewArray, 1, ""},
	ANEWARRAY:       {"anewarray", KindNewArray, 1, ""},
	ARRAYLENGTH:     {"arraylength", KindArrayLength, 1, TypeInt},
	ATHROW:          {"athrow", KindThrow, 1, ""},
	CHECKCAST:       {"checkcast", KindTypeCheck, 1, ""},
	INSTANCEOF:      {"instanceof", KindTypeCheck, 1, TypeInt},
	MONITORENTER:    {"monitorenter", KindMonitor, 1, ""},
	MONITOREXIT:     {"monitorexit", KindMonitor, 1, ""},
	WIDE:            {"wide", KindNop, 0, ""},
	MULTIANEWARRAY:  {"multianewarray", KindNewArray, 0, ""},
	IFNULL:          {"ifnull", KindBranch, 1, ""},
	IFNONNULL:       {"ifnonnull", KindBranch, 1, ""},
	GOTO_W:          {"goto_w", KindBranch, 0, ""},
	JSR_W:           {"jsr_w", KindSubroutine, 0, TypeReturnAddress},
	BREAKPOINT:      {"breakpoint", KindNop, 0, ""},
	IMPDEP1:         {"impdep1", KindNop, 0, ""},
	IMPDEP2:         {"impdep2", KindNop, 0, ""},
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeTable))
	for i, info := range opcodeTable {
		if info.name != "" {
			m[info.name] = Opcode(i)
		}
	}
	return m
}()

// OpcodeByName returns the opcode whose mnemonic is name (e.g. "invokevirtual").
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// Valid returns true if op is a defined opcode.
func (op Opcode) Valid() bool {
	return opcodeTable[op].name != ""
}

// Kind returns the kind of the opcode. Undefined opcodes have kind KindInvalid.
func (op Opcode) Kind() Kind {
	return opcodeTable[op].kind
}

// Pops returns the number of operand stack values the opcode consumes when that number does not depend on the
// instruction operands or on the values on the stack. For invocations, field accesses, multianewarray and the
// stack manipulation opcodes other than pop, the count is computed by the stack model.
func (op Opcode) Pops() int {
	return opcodeTable[op].pops
}

// ValueType returns the descriptor of the value the opcode produces, loads, stores or returns. It is empty when the
// type depends on operands (ldc, field accesses, invocations) or when the opcode handles no value.
func (op Opcode) ValueType() string {
	return opcodeTable[op].typ
}

func (op Opcode) String() string {
	if name := opcodeTable[op].name; name != "" {
		return name
	}
	return fmt.Sprintf("opcode(0x%02x)", byte(op))
}

// ImplicitRegister returns the local variable index encoded in the short forms iload_<n>, astore_<n>, etc.
func ImplicitRegister(op Opcode) (int, bool) {
	switch {
	case op >= ILOAD_0 && op <= ALOAD_3:
		return int(op-ILOAD_0) % 4, true
	case op >= ISTORE_0 && op <= ASTORE_3:
		return int(op-ISTORE_0) % 4, true
	}
	return 0, false
}

// ImplicitConstant returns the constant pushed by the opcodes that encode their constant (iconst_<n>, lconst_<n>,
// fconst_<n>, dconst_<n>, aconst_null). Integral constants are int64 and floating point constants are float64.
func ImplicitConstant(op Opcode) (any, bool) {
	switch {
	case op == ACONST_NULL:
		return nil, true
	case op >= ICONST_M1 && op <= ICONST_5:
		return int64(op) - int64(ICONST_0), true
	case op == LCONST_0 || op == LCONST_1:
		return int64(op - LCONST_0), true
	case op >= FCONST_0 && op <= FCONST_2:
		return float64(op - FCONST_0), true
	case op == DCONST_0 || op == DCONST_1:
		return float64(op - DCONST_0), true
	}
	return nil, false
}
