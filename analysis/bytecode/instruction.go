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

import (
	"fmt"
	"strings"
)

// A MemberRef is a resolved reference to a method or a field, as found in the operands of invocation and field
// access instructions.
type MemberRef struct {
	// Class is the internal name of the class in which the member is referenced (e.g. java/util/List)
	Class string
	// Name is the name of the member
	Name string
	// Signature is the method or field descriptor
	Signature string
}

func (r MemberRef) String() string {
	return r.Class + "." + r.Name + ":" + r.Signature
}

// An Instruction is a decoded instruction. Operands are resolved by the decoder: constant pool entries are replaced
// by their values and branch offsets by the absolute offsets of their targets.
type Instruction struct {
	// Offset is the byte offset of the instruction in the routine's code
	Offset int
	// Opcode is the instruction opcode
	Opcode Opcode
	// Line is the source line number, or 0 when unknown
	Line int
	// Register is the local variable index of load, store, iinc and ret instructions. It is ignored for the short
	// forms, which encode their register.
	Register int
	// Increment is the constant of iinc
	Increment int
	// Constant is the constant of bipush, sipush and ldc variants: int64, float64 or string
	Constant any
	// Ref is the member referenced by invocation and field access instructions
	Ref *MemberRef
	// ClassName is the class operand of new, checkcast, instanceof, anewarray, multianewarray and of class
	// literals loaded by ldc
	ClassName string
	// Dimensions is the number of dimensions of multianewarray
	Dimensions int
	// Targets are the absolute offsets of the branch targets. For switches, the default target comes last.
	Targets []int
}

// Kind returns the kind of the instruction's opcode
func (in *Instruction) Kind() Kind {
	return in.Opcode.Kind()
}

// LocalIndex returns the local variable index an instruction reads or writes, taking the short forms into account.
func (in *Instruction) LocalIndex() int {
	if r, ok := ImplicitRegister(in.Opcode); ok {
		return r
	}
	return in.Register
}

// IsInvoke returns true if the instruction is a method invocation
func (in *Instruction) IsInvoke() bool {
	return in.Kind() == KindInvoke
}

// IsReturn returns true if the instruction returns from the routine
func (in *Instruction) IsReturn() bool {
	return in.Kind() == KindReturn
}

// EndsBlock returns true when control never falls through to the next instruction in program order.
func (in *Instruction) EndsBlock() bool {
	switch in.Opcode {
	case GOTO, GOTO_W, RET, TABLESWITCH, LOOKUPSWITCH, ATHROW:
		return true
	}
	return in.IsReturn()
}

func (in *Instruction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d: %s", in.Offset, in.Opcode)
	switch in.Kind() {
	case KindLoad, KindStore:
		if _, implicit := ImplicitRegister(in.Opcode); !implicit {
			fmt.Fprintf(&b, " %d", in.Register)
		}
	case KindIinc:
		fmt.Fprintf(&b, " %d %d", in.Register, in.Increment)
	case KindConst:
		if in.ClassName != "" {
			fmt.Fprintf(&b, " %s.class", in.ClassName)
		} else if _, implicit := ImplicitConstant(in.Opcode); !implicit {
			fmt.Fprintf(&b, " %v", in.Constant)
		}
	case KindInvoke, KindFieldGet, KindFieldPut:
		if in.Ref != nil {
			fmt.Fprintf(&b, " %s", in.Ref)
		}
	case KindNew, KindNewArray, KindTypeCheck:
		if in.ClassName != "" {
			fmt.Fprintf(&b, " %s", in.ClassName)
		}
		if in.Opcode == MULTIANEWARRAY {
			fmt.Fprintf(&b, " %d", in.Dimensions)
		}
	case KindSubroutine:
		if in.Opcode == RET {
			fmt.Fprintf(&b, " %d", in.Register)
		}
	}
	if len(in.Targets) > 0 {
		targets := make([]string, len(in.Targets))
		for i, t := range in.Targets {
			targets[i] = fmt.Sprintf("%d", t)
		}
		fmt.Fprintf(&b, " -> %s", strings.Join(targets, ","))
	}
	return b.String()
}

// A Routine is one method body with its metadata
type Routine struct {
	// Class is the internal name of the class declaring the routine
	Class string
	// Name is the routine name; constructors are named <init>
	Name string
	// Signature is the method descriptor
	Signature string
	// Static is true for static methods
	Static bool
	// MaxLocals is the declared number of local variable slots. Zero means the decoder did not provide it, and
	// register indices are not checked.
	MaxLocals int
	// Handlers are the start offsets of the exception handlers
	Handlers []int
	// Instructions are the decoded instructions, in increasing offset order
	Instructions []Instruction
}

// IsConstructor returns true if the routine is an instance initializer
func (r *Routine) IsConstructor() bool {
	return r.Name == "<init>"
}

// FullName returns the class-qualified name of the routine with its signature
func (r *Routine) FullName() string {
	return r.Class + "." + r.Name + r.Signature
}

// ParameterCount returns the number of incoming parameters, counting the receiver of instance routines.
func (r *Routine) ParameterCount() (int, error) {
	mt, err := ParseMethodDescriptor(r.Signature)
	if err != nil {
		return 0, err
	}
	if r.Static {
		return len(mt.Params), nil
	}
	return len(mt.Params) + 1, nil
}

// Validate checks the structural well-formedness of the routine: a valid signature, defined opcodes in strictly
// increasing offset order, and the operands required by each opcode.
func (r *Routine) Validate() error {
	if _, err := ParseMethodDescriptor(r.Signature); err != nil {
		return fmt.Errorf("routine %s: %w", r.Name, err)
	}
	prev := -1
	for i := range r.Instructions {
		in := &r.Instructions[i]
		if !in.Opcode.Valid() {
			return fmt.Errorf("routine %s: undefined opcode 0x%02x at offset %d", r.Name, byte(in.Opcode), in.Offset)
		}
		if in.Offset <= prev {
			return fmt.Errorf("routine %s: offset %d is not after offset %d", r.Name, in.Offset, prev)
		}
		prev = in.Offset
		if err := validateOperands(in); err != nil {
			return fmt.Errorf("routine %s: at offset %d (%s): %w", r.Name, in.Offset, in.Opcode, err)
		}
	}
	return nil
}

func validateOperands(in *Instruction) error {
	switch in.Kind() {
	case KindInvoke:
		if in.Ref == nil {
			return fmt.Errorf("missing method reference")
		}
		if _, err := ParseMethodDescriptor(in.Ref.Signature); err != nil {
			return err
		}
	case KindFieldGet, KindFieldPut:
		if in.Ref == nil {
			return fmt.Errorf("missing field reference")
		}
		if _, err := ParseFieldDescriptor(in.Ref.Signature); err != nil {
			return err
		}
	case KindBranch:
		if len(in.Targets) != 1 {
			return fmt.Errorf("expected one branch target, got %d", len(in.Targets))
		}
	case KindSwitch:
		if len(in.Targets) == 0 {
			return fmt.Errorf("switch without targets")
		}
	case KindSubroutine:
		if in.Opcode != RET && len(in.Targets) != 1 {
			return fmt.Errorf("expected one subroutine target, got %d", len(in.Targets))
		}
	case KindNewArray:
		if in.Opcode == MULTIANEWARRAY && in.Dimensions < 1 {
			return fmt.Errorf("multianewarray with %d dimensions", in.Dimensions)
		}
	case KindLoad, KindStore, KindIinc:
		if in.LocalIndex() < 0 {
			return fmt.Errorf("negative local variable index %d", in.LocalIndex())
		}
	}
	return nil
}

// A Class groups the routines decoded from one class file
type Class struct {
	// Name is the internal name of the class (e.g. com/example/Foo)
	Name string
	// Source is the name of the file the class listing was read from, if any
	Source string
	// Routines are the routines declared by the class
	Routines []*Routine
}

// Routine returns the first routine of the class with the given name, or nil
func (c *Class) Routine(name string) *Routine {
	for _, r := range c.Routines {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Validate checks that the class is named and owns its routines. The routines themselves are checked when they
// are analyzed, so that a malformed routine does not prevent the analysis of the others.
func (c *Class) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("class without a name")
	}
	for _, r := range c.Routines {
		if r.Class != c.Name {
			return fmt.Errorf("routine %s declared in %q but listed in class %q", r.Name, r.Class, c.Name)
		}
	}
	return nil
}
