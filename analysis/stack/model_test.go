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

package stack

import (
	"errors"
	"testing"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
)

func method(class, name, sig string) *bytecode.MemberRef {
	return &bytecode.MemberRef{Class: class, Name: name, Signature: sig}
}

// run resets a model for r and applies all its instructions
func run(t *testing.T, r *bytecode.Routine) *Model {
	m := New()
	if _, err := m.ResetForEntry(r); err != nil {
		t.Fatalf("failed to reset model: %v", err)
	}
	for i := range r.Instructions {
		if err := m.Apply(&r.Instructions[i]); err != nil {
			t.Fatalf("failed to apply %s: %v", r.Instructions[i].String(), err)
		}
	}
	return m
}

func top(t *testing.T, m *Model, i int) Value {
	v, err := m.ItemFromTop(i)
	if err != nil {
		t.Fatalf("failed to read item %d: %v", i, err)
	}
	return v
}

func TestResetForEntry(t *testing.T) {
	m := New()
	n, err := m.ResetForEntry(&bytecode.Routine{Class: "A", Name: "f", Signature: "(III)V"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 parameters, got %d", n)
	}
	for i := 0; i < 4; i++ {
		v, ok := m.Register(i)
		if !ok || !v.IsInitialParameter(i) {
			t.Errorf("register %d should hold initial parameter %d, got %v", i, i, v)
		}
	}
	if v, _ := m.Register(0); v.Type() != "LA;" {
		t.Errorf("expected receiver of type LA;, got %s", v.Type())
	}
	if _, ok := m.Register(4); ok {
		t.Errorf("register 4 should be empty")
	}
	if m.Depth() != 0 {
		t.Errorf("expected an empty stack")
	}
}

func TestResetForEntryWideParameters(t *testing.T) {
	m := New()
	n, err := m.ResetForEntry(&bytecode.Routine{Class: "A", Name: "g", Signature: "(JIDLjava/lang/String;)V",
		Static: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 parameters, got %d", n)
	}
	expected := map[int]int{0: 0, 2: 1, 3: 2, 5: 3}
	for reg, param := range expected {
		v, ok := m.Register(reg)
		if !ok || !v.IsInitialParameter(param) {
			t.Errorf("register %d should hold parameter %d, got %v", reg, param, v)
		}
	}
	for _, reg := range []int{1, 4} {
		if _, ok := m.Register(reg); ok {
			t.Errorf("register %d is the second half of a wide parameter and should be empty", reg)
		}
	}
}

func TestResetForEntryErrors(t *testing.T) {
	m := New()
	var iv *InvariantViolation
	_, err := m.ResetForEntry(&bytecode.Routine{Class: "A", Name: "f", Signature: "(I"})
	if !errors.As(err, &iv) {
		t.Errorf("expected an invariant violation for a bad signature, got %v", err)
	}
	_, err = m.ResetForEntry(&bytecode.Routine{Class: "A", Name: "f", Signature: "(JJ)V", MaxLocals: 4})
	if !errors.As(err, &iv) {
		t.Errorf("expected an invariant violation for too few locals, got %v", err)
	}
}

func TestResetClearsState(t *testing.T) {
	r := &bytecode.Routine{Class: "A", Name: "f", Signature: "(I)V", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.ICONST_1},
			{Offset: 1, Opcode: bytecode.ISTORE_0},
			{Offset: 2, Opcode: bytecode.ICONST_2},
		}}
	m := run(t, r)
	if m.Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", m.Depth())
	}
	if _, err := m.ResetForEntry(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Depth() != 0 {
		t.Errorf("reset should empty the stack")
	}
	if v, _ := m.Register(0); !v.IsInitialParameter(0) {
		t.Errorf("reset should restore the parameters, got %v", v)
	}
}

func TestRegisterOverwriteInvalidation(t *testing.T) {
	// the value stored back is the original parameter, but the register was overwritten
	r := &bytecode.Routine{Class: "A", Name: "f", Signature: "(II)V", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.ILOAD_1},
			{Offset: 1, Opcode: bytecode.ISTORE_1},
			{Offset: 2, Opcode: bytecode.ILOAD_1},
			{Offset: 3, Opcode: bytecode.ILOAD_0},
		}}
	m := run(t, r)
	v := top(t, m, 1)
	if _, isParam := v.InitialParameter(); isParam {
		t.Errorf("a reloaded overwritten register must not be an initial parameter: %v", v)
	}
	if reg, ok := v.Register(); !ok || reg != 1 {
		t.Errorf("expected register 1, got %d (%v)", reg, ok)
	}
	if v := top(t, m, 0); !v.IsInitialParameter(0) {
		t.Errorf("register 0 was not overwritten: %v", v)
	}
}

func TestIincInvalidates(t *testing.T) {
	r := &bytecode.Routine{Class: "A", Name: "f", Signature: "(I)V", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.IINC, Register: 0, Increment: 0},
			{Offset: 3, Opcode: bytecode.ILOAD_0},
		}}
	m := run(t, r)
	if v := top(t, m, 0); v.IsInitialParameter(0) {
		t.Errorf("iinc must invalidate the parameter: %v", v)
	}
}

func TestWideStoreInvalidatesOverlappingRegisters(t *testing.T) {
	r := &bytecode.Routine{Class: "A", Name: "f", Signature: "(II)V", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.LCONST_1},
			{Offset: 1, Opcode: bytecode.LSTORE_0},
		}}
	m := run(t, r)
	if _, ok := m.Register(1); ok {
		t.Errorf("register 1 is overwritten by the long stored in register 0")
	}
	v, ok := m.Register(0)
	if c, _ := v.Constant(); !ok || c != int64(1) || !v.IsWide() {
		t.Errorf("expected the long constant 1 in register 0, got %v", v)
	}

	r.Instructions = append(r.Instructions, bytecode.Instruction{Offset: 2, Opcode: bytecode.ICONST_0},
		bytecode.Instruction{Offset: 3, Opcode: bytecode.ISTORE_1})
	m = run(t, r)
	if _, ok := m.Register(0); ok {
		t.Errorf("register 0 held a long overlapping register 1")
	}
}

func TestInvocationArity(t *testing.T) {
	tests := []struct {
		name     string
		op       bytecode.Opcode
		sig      string
		pushed   int
		expected int
	}{
		{"virtual with result", bytecode.INVOKEVIRTUAL, "(II)I", 3, 1},
		{"virtual void", bytecode.INVOKEVIRTUAL, "(II)V", 3, 0},
		{"static", bytecode.INVOKESTATIC, "(II)J", 2, 1},
		{"interface wide args", bytecode.INVOKEINTERFACE, "(JD)Z", 3, 1},
		{"special", bytecode.INVOKESPECIAL, "()V", 1, 0},
		{"dynamic", bytecode.INVOKEDYNAMIC, "(I)Ljava/lang/Runnable;", 1, 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var ins []bytecode.Instruction
			for i := 0; i < test.pushed; i++ {
				ins = append(ins, bytecode.Instruction{Offset: i, Opcode: bytecode.ICONST_0})
			}
			ins = append(ins, bytecode.Instruction{Offset: test.pushed, Opcode: test.op,
				Ref: method("B", "g", test.sig)})
			m := run(t, &bytecode.Routine{Class: "A", Name: "f", Signature: "()V", Static: true, Instructions: ins})
			if m.Depth() != test.expected {
				t.Errorf("expected depth %d, got %d", test.expected, m.Depth())
			}
		})
	}
}

func TestInvocationUnderflow(t *testing.T) {
	m := New()
	if _, err := m.ResetForEntry(&bytecode.Routine{Class: "A", Name: "f", Signature: "()V", Static: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := m.Apply(&bytecode.Instruction{Offset: 7, Opcode: bytecode.INVOKEVIRTUAL, Ref: method("B", "g", "(I)V")})
	var iv *InvariantViolation
	if !errors.As(err, &iv) {
		t.Fatalf("expected an invariant violation, got %v", err)
	}
	if iv.Offset != 7 || iv.Opcode != bytecode.INVOKEVIRTUAL {
		t.Errorf("unexpected violation location: %v", iv)
	}
	if !errors.Is(err, ErrUnderflow) {
		t.Errorf("expected the error to wrap ErrUnderflow")
	}
}

func TestRegisterOutOfRange(t *testing.T) {
	m := New()
	if _, err := m.ResetForEntry(&bytecode.Routine{Class: "A", Name: "f", Signature: "()V", Static: true,
		MaxLocals: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var iv *InvariantViolation
	if err := m.Apply(&bytecode.Instruction{Offset: 0, Opcode: bytecode.ILOAD, Register: 2}); !errors.As(err, &iv) {
		t.Errorf("expected an invariant violation for register 2, got %v", err)
	}
	if err := m.Apply(&bytecode.Instruction{Offset: 2, Opcode: bytecode.LLOAD_1}); !errors.As(err, &iv) {
		t.Errorf("expected an invariant violation for a long in register 1, got %v", err)
	}
	if err := m.Apply(&bytecode.Instruction{Offset: 3, Opcode: bytecode.LLOAD_0}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestItemFromTopOutOfRange(t *testing.T) {
	m := New()
	if _, err := m.ItemFromTop(0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := m.ItemFromTop(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestStackInstructions(t *testing.T) {
	i := func(n int64) bytecode.Instruction {
		return bytecode.Instruction{Opcode: bytecode.BIPUSH, Constant: n}
	}
	l := func(n int64) bytecode.Instruction {
		return bytecode.Instruction{Opcode: bytecode.LDC2_W, Constant: n}
	}
	s := func(op bytecode.Opcode) bytecode.Instruction {
		return bytecode.Instruction{Opcode: op}
	}
	tests := []struct {
		name     string
		ins      []bytecode.Instruction
		expected string
	}{
		{"dup", []bytecode.Instruction{i(1), s(bytecode.DUP)}, "[I{=1} I{=1}]"},
		{"dup_x1", []bytecode.Instruction{i(1), i(2), s(bytecode.DUP_X1)}, "[I{=2} I{=1} I{=2}]"},
		{"dup_x2", []bytecode.Instruction{i(1), i(2), i(3), s(bytecode.DUP_X2)}, "[I{=3} I{=1} I{=2} I{=3}]"},
		{"dup_x2 wide", []bytecode.Instruction{l(1), i(3), s(bytecode.DUP_X2)}, "[I{=3} J{=1} I{=3}]"},
		{"dup2", []bytecode.Instruction{i(1), i(2), s(bytecode.DUP2)}, "[I{=1} I{=2} I{=1} I{=2}]"},
		{"dup2 wide", []bytecode.Instruction{l(1), s(bytecode.DUP2)}, "[J{=1} J{=1}]"},
		{"dup2_x1", []bytecode.Instruction{i(1), i(2), i(3), s(bytecode.DUP2_X1)},
			"[I{=2} I{=3} I{=1} I{=2} I{=3}]"},
		{"dup2_x1 wide", []bytecode.Instruction{i(1), l(2), s(bytecode.DUP2_X1)}, "[J{=2} I{=1} J{=2}]"},
		{"dup2_x2", []bytecode.Instruction{i(1), i(2), i(3), i(4), s(bytecode.DUP2_X2)},
			"[I{=3} I{=4} I{=1} I{=2} I{=3} I{=4}]"},
		{"dup2_x2 wide over wide", []bytecode.Instruction{l(1), l(2), s(bytecode.DUP2_X2)}, "[J{=2} J{=1} J{=2}]"},
		{"dup2_x2 wide over narrow", []bytecode.Instruction{i(1), i(2), l(3), s(bytecode.DUP2_X2)},
			"[J{=3} I{=1} I{=2} J{=3}]"},
		{"dup2_x2 narrow over wide", []bytecode.Instruction{l(1), i(2), i(3), s(bytecode.DUP2_X2)},
			"[I{=2} I{=3} J{=1} I{=2} I{=3}]"},
		{"swap", []bytecode.Instruction{i(1), i(2), s(bytecode.SWAP)}, "[I{=2} I{=1}]"},
		{"pop", []bytecode.Instruction{i(1), i(2), s(bytecode.POP)}, "[I{=1}]"},
		{"pop2", []bytecode.Instruction{i(1), i(2), i(3), s(bytecode.POP2)}, "[I{=1}]"},
		{"pop2 wide", []bytecode.Instruction{i(1), l(2), s(bytecode.POP2)}, "[I{=1}]"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for k := range test.ins {
				test.ins[k].Offset = k * 3
			}
			m := run(t, &bytecode.Routine{Class: "A", Name: "f", Signature: "()V", Static: true,
				Instructions: test.ins})
			if m.String() != test.expected {
				t.Errorf("expected %s, got %s", test.expected, m.String())
			}
		})
	}
}

func TestDupSplittingWideValue(t *testing.T) {
	m := New()
	if _, err := m.ResetForEntry(&bytecode.Routine{Class: "A", Name: "f", Signature: "()V", Static: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Apply(&bytecode.Instruction{Offset: 0, Opcode: bytecode.LCONST_0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var iv *InvariantViolation
	if err := m.Apply(&bytecode.Instruction{Offset: 1, Opcode: bytecode.DUP}); !errors.As(err, &iv) {
		t.Errorf("dup of a long should be a violation, got %v", err)
	}
}

func TestConstantsAndTypes(t *testing.T) {
	r := &bytecode.Routine{Class: "A", Name: "f", Signature: "(Ljava/lang/Object;)V", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.ACONST_NULL},
			{Offset: 1, Opcode: bytecode.ICONST_M1},
			{Offset: 2, Opcode: bytecode.SIPUSH, Constant: int64(300)},
			{Offset: 5, Opcode: bytecode.LDC, Constant: "s"},
			{Offset: 7, Opcode: bytecode.LDC, Constant: 1.5},
			{Offset: 9, Opcode: bytecode.LDC2_W, Constant: 2.5},
			{Offset: 12, Opcode: bytecode.LDC, ClassName: "java/lang/Runnable"},
			{Offset: 14, Opcode: bytecode.ALOAD_0},
			{Offset: 15, Opcode: bytecode.CHECKCAST, ClassName: "java/lang/String"},
			{Offset: 18, Opcode: bytecode.NEW, ClassName: "java/util/ArrayList"},
			{Offset: 21, Opcode: bytecode.ICONST_2},
			{Offset: 22, Opcode: bytecode.ANEWARRAY, ClassName: "java/lang/String"},
		}}
	m := run(t, r)
	expected := `[Ljava/lang/Object;{=<nil>} I{=-1} I{=300} Ljava/lang/String;{="s"} F{=1.5} D{=2.5} ` +
		`Ljava/lang/Class; Ljava/lang/String;{r0,p0} Ljava/util/ArrayList; [Ljava/lang/String;]`
	if m.String() != expected {
		t.Errorf("expected\n%s\ngot\n%s", expected, m.String())
	}
}

func TestFieldsAndArrays(t *testing.T) {
	r := &bytecode.Routine{Class: "A", Name: "f", Signature: "()V",
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.ALOAD_0},
			{Offset: 1, Opcode: bytecode.GETFIELD, Ref: method("A", "xs", "[J")},
			{Offset: 4, Opcode: bytecode.ICONST_0},
			{Offset: 5, Opcode: bytecode.LALOAD},
			{Offset: 6, Opcode: bytecode.GETSTATIC, Ref: method("A", "b", "Z")},
			{Offset: 9, Opcode: bytecode.ALOAD_0},
			{Offset: 10, Opcode: bytecode.SWAP},
			{Offset: 11, Opcode: bytecode.PUTFIELD, Ref: method("A", "b", "Z")},
		}}
	m := run(t, r)
	if m.String() != "[J]" {
		t.Errorf("expected [J], got %s", m.String())
	}
}

func TestBlockEntryStates(t *testing.T) {
	// 0: iload_0; 1: ifeq 8; 4: iconst_1; 5: goto 9; 8: iconst_0; 9: ireturn
	r := &bytecode.Routine{Class: "A", Name: "f", Signature: "(Z)I", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.ILOAD_0},
			{Offset: 1, Opcode: bytecode.IFEQ, Targets: []int{8}},
			{Offset: 4, Opcode: bytecode.ICONST_1},
			{Offset: 5, Opcode: bytecode.GOTO, Targets: []int{9}},
			{Offset: 8, Opcode: bytecode.ICONST_0},
			{Offset: 9, Opcode: bytecode.IRETURN},
		}}
	m := New()
	if _, err := m.ResetForEntry(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	depths := []int{0, 1, 0, 1, 0, 1}
	for i := range r.Instructions {
		if m.Depth() != depths[i] {
			t.Errorf("before %s: expected depth %d, got %d", r.Instructions[i].String(), depths[i], m.Depth())
		}
		if err := m.Apply(&r.Instructions[i]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestHandlerEntry(t *testing.T) {
	r := &bytecode.Routine{Class: "A", Name: "f", Signature: "()V", Static: true, Handlers: []int{1},
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.RETURN},
			{Offset: 1, Opcode: bytecode.ASTORE_0},
			{Offset: 2, Opcode: bytecode.RETURN},
		}}
	m := New()
	if _, err := m.ResetForEntry(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Apply(&r.Instructions[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Depth() != 1 || top(t, m, 0).Type() != bytecode.TypeThrowable {
		t.Errorf("expected a throwable at handler entry, got %s", m)
	}
}

func TestSubroutine(t *testing.T) {
	r := &bytecode.Routine{Class: "A", Name: "f", Signature: "()V", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.JSR, Targets: []int{4}},
			{Offset: 3, Opcode: bytecode.RETURN},
			{Offset: 4, Opcode: bytecode.ASTORE_0},
			{Offset: 5, Opcode: bytecode.RET, Register: 0},
		}}
	m := New()
	if _, err := m.ResetForEntry(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := m.Apply(&r.Instructions[i]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if m.Depth() != 1 || top(t, m, 0).Type() != bytecode.TypeReturnAddress {
		t.Errorf("expected a return address at subroutine entry, got %s", m)
	}
}
