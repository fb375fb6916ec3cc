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

// Package stack implements the symbolic stack model: a single-pass simulation of the effect of each instruction of a
// routine on an abstract operand stack and register table.
//
// The model does not merge states at join points. At the start of a block that control cannot fall into (after a
// goto, a return, a switch or a throw) the stack is restored from the state recorded by the first branch seen to
// that offset, or emptied if no branch to it has been seen yet. Exception handlers start with a single Throwable.
// Registers are never restored: their content is whatever the straight-line simulation last wrote.
package stack

import (
	"fmt"
	"strings"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
)

// Model is the symbolic stack model of one routine. A Model is owned by a single routine analysis and must not be
// shared between goroutines.
type Model struct {
	// stack holds the values bottom to top
	stack     []Value
	registers map[int]Value
	maxLocals int
	// next maps an instruction offset to the offset of the following instruction
	next     map[int]int
	handlers map[int]bool
	// entries are the stacks recorded for branch targets
	entries map[int][]Value
}

// New returns an empty model. ResetForEntry must be called before applying the instructions of a routine.
func New() *Model {
	return &Model{
		registers: map[int]Value{},
		next:      map[int]int{},
		handlers:  map[int]bool{},
		entries:   map[int][]Value{},
	}
}

// ResetForEntry discards all state and sets up the model at the entry of routine r: an empty stack and registers
// holding the incoming parameters. For instance routines, register 0 holds the receiver, which is parameter 0.
// Long and double parameters use two registers. Returns the number of parameters, counting the receiver.
func (m *Model) ResetForEntry(r *bytecode.Routine) (int, error) {
	m.stack = m.stack[:0]
	clear(m.registers)
	clear(m.next)
	clear(m.handlers)
	clear(m.entries)
	m.maxLocals = r.MaxLocals

	mt, err := bytecode.ParseMethodDescriptor(r.Signature)
	if err != nil {
		return 0, &InvariantViolation{Offset: -1, Reason: "invalid routine signature", Err: err}
	}
	slot, param := 0, 0
	if !r.Static {
		m.registers[0] = ParameterValue(bytecode.ObjectType(r.Class), 0, 0)
		slot, param = 1, 1
	}
	for _, p := range mt.Params {
		m.registers[slot] = ParameterValue(bytecode.StackType(p), slot, param)
		if bytecode.IsWide(p) {
			slot += 2
		} else {
			slot++
		}
		param++
	}
	if m.maxLocals > 0 && slot > m.maxLocals {
		return 0, &InvariantViolation{
			Offset: -1,
			Reason: fmt.Sprintf("parameters use %d registers but the routine declares %d locals", slot, m.maxLocals),
		}
	}

	for i := 0; i+1 < len(r.Instructions); i++ {
		m.next[r.Instructions[i].Offset] = r.Instructions[i+1].Offset
	}
	for _, h := range r.Handlers {
		m.handlers[h] = true
	}
	return param, nil
}

// Depth returns the number of values on the operand stack. Long and double values count as one value.
func (m *Model) Depth() int {
	return len(m.stack)
}

// ItemFromTop returns the i-th value from the top of the stack; the top is at index 0.
// The returned error wraps ErrOutOfRange when i is not smaller than the depth.
func (m *Model) ItemFromTop(i int) (Value, error) {
	if i < 0 || i >= len(m.stack) {
		return Value{}, fmt.Errorf("item %d from top with stack depth %d: %w", i, len(m.stack), ErrOutOfRange)
	}
	return m.stack[len(m.stack)-1-i], nil
}

// Register returns the value last known to be held by register i. The boolean is false when the register was never
// written (and is not a parameter), or was invalidated by a write to an overlapping long or double.
func (m *Model) Register(i int) (Value, bool) {
	v, ok := m.registers[i]
	return v, ok
}

func (m *Model) String() string {
	items := make([]string, len(m.stack))
	for i, v := range m.stack {
		items[i] = v.String()
	}
	return "[" + strings.Join(items, " ") + "]"
}

// Apply simulates the effect of instruction in on the stack and the registers.
func (m *Model) Apply(in *bytecode.Instruction) error {
	if err := m.apply(in); err != nil {
		return err
	}
	next, hasNext := m.next[in.Offset]
	if !hasNext {
		return nil
	}
	switch {
	case m.handlers[next]:
		m.stack = append(m.stack[:0], NewValue(bytecode.TypeThrowable))
	case in.EndsBlock():
		m.stack = append(m.stack[:0], m.entries[next]...)
	}
	return nil
}

func (m *Model) apply(in *bytecode.Instruction) error {
	op := in.Opcode
	switch in.Kind() {
	case bytecode.KindInvalid:
		return m.violation(in, "undefined opcode", nil)

	case bytecode.KindNop:

	case bytecode.KindConst:
		m.push(constantOf(in))

	case bytecode.KindLoad:
		r := in.LocalIndex()
		if err := m.checkRegister(in, r, bytecode.IsWide(op.ValueType())); err != nil {
			return err
		}
		v, ok := m.registers[r]
		if !ok {
			v = loadedFrom(op.ValueType(), r)
		}
		m.push(v)

	case bytecode.KindStore:
		r := in.LocalIndex()
		wide := bytecode.IsWide(op.ValueType())
		if err := m.checkRegister(in, r, wide); err != nil {
			return err
		}
		v, err := m.pop(in)
		if err != nil {
			return err
		}
		if v.typ == "" {
			v = v.withType(op.ValueType())
		}
		m.store(r, v.storedIn(r), wide)

	case bytecode.KindIinc:
		r := in.LocalIndex()
		if err := m.checkRegister(in, r, false); err != nil {
			return err
		}
		m.store(r, loadedFrom(bytecode.TypeInt, r), false)

	case bytecode.KindArrayLoad, bytecode.KindArith, bytecode.KindConvert, bytecode.KindCompare,
		bytecode.KindArrayLength:
		if _, err := m.popN(in, op.Pops()); err != nil {
			return err
		}
		m.push(NewValue(op.ValueType()))

	case bytecode.KindArrayStore, bytecode.KindMonitor, bytecode.KindThrow, bytecode.KindReturn:
		if _, err := m.popN(in, op.Pops()); err != nil {
			return err
		}

	case bytecode.KindStack:
		return m.applyStackOp(in)

	case bytecode.KindBranch:
		if _, err := m.popN(in, op.Pops()); err != nil {
			return err
		}
		m.recordEntries(in.Targets, nil)

	case bytecode.KindSwitch:
		if _, err := m.popN(in, op.Pops()); err != nil {
			return err
		}
		m.recordEntries(in.Targets, nil)

	case bytecode.KindSubroutine:
		if op == bytecode.RET {
			return m.checkRegister(in, in.LocalIndex(), false)
		}
		ra := NewValue(bytecode.TypeReturnAddress)
		m.recordEntries(in.Targets, &ra)

	case bytecode.KindFieldGet:
		if in.Ref == nil {
			return m.violation(in, "field access without a field reference", nil)
		}
		if op == bytecode.GETFIELD {
			if _, err := m.pop(in); err != nil {
				return err
			}
		}
		m.push(NewValue(bytecode.StackType(in.Ref.Signature)))

	case bytecode.KindFieldPut:
		if _, err := m.popN(in, op.Pops()); err != nil {
			return err
		}

	case bytecode.KindInvoke:
		return m.applyInvoke(in)

	case bytecode.KindNew:
		m.push(NewValue(bytecode.ObjectType(in.ClassName)))

	case bytecode.KindNewArray:
		n := op.Pops()
		if op == bytecode.MULTIANEWARRAY {
			n = in.Dimensions
		}
		if _, err := m.popN(in, n); err != nil {
			return err
		}
		m.push(NewValue(arrayType(in)))

	case bytecode.KindTypeCheck:
		v, err := m.pop(in)
		if err != nil {
			return err
		}
		if op == bytecode.CHECKCAST {
			m.push(v.withType(bytecode.ObjectType(in.ClassName)))
		} else {
			m.push(NewValue(bytecode.TypeInt))
		}

	default:
		panic(fmt.Sprintf("unexpected instruction kind %s for %s", in.Kind(), op))
	}
	return nil
}

func (m *Model) applyInvoke(in *bytecode.Instruction) error {
	if in.Ref == nil {
		return m.violation(in, "invocation without a method reference", nil)
	}
	mt, err := bytecode.ParseMethodDescriptor(in.Ref.Signature)
	if err != nil {
		return m.violation(in, "invalid method descriptor", err)
	}
	n := len(mt.Params)
	if in.Opcode != bytecode.INVOKESTATIC && in.Opcode != bytecode.INVOKEDYNAMIC {
		n++
	}
	if _, err := m.popN(in, n); err != nil {
		return err
	}
	if mt.ReturnsValue() {
		m.push(NewValue(bytecode.StackType(mt.Return)))
	}
	return nil
}

// applyStackOp simulates pop, pop2, dup*, and swap. The forms operating on two slots treat a long or double value
// as filling both slots.
func (m *Model) applyStackOp(in *bytecode.Instruction) error {
	switch in.Opcode {
	case bytecode.POP:
		_, err := m.pop(in)
		return err
	case bytecode.POP2:
		return m.popSlots(in, 2)
	case bytecode.SWAP:
		vs, err := m.popN(in, 2)
		if err != nil {
			return err
		}
		m.push(vs[1], vs[0])
		return nil
	case bytecode.DUP:
		return m.dup(in, 1, 0)
	case bytecode.DUP_X1:
		return m.dup(in, 1, 1)
	case bytecode.DUP_X2:
		return m.dup(in, 1, 2)
	case bytecode.DUP2:
		return m.dup(in, 2, 0)
	case bytecode.DUP2_X1:
		return m.dup(in, 2, 1)
	case bytecode.DUP2_X2:
		return m.dup(in, 2, 2)
	default:
		panic(fmt.Sprintf("unexpected stack instruction %s", in.Opcode))
	}
}

// dup duplicates the values filling the top `slots` slots and inserts the copies below the values filling the
// following `skip` slots.
func (m *Model) dup(in *bytecode.Instruction, slots int, skip int) error {
	top, err := m.takeSlots(in, slots)
	if err != nil {
		return err
	}
	under, err := m.takeSlots(in, skip)
	if err != nil {
		return err
	}
	m.push(top...)
	m.push(under...)
	m.push(top...)
	return nil
}

// takeSlots pops the values filling the top n slots and returns them bottom to top. It is a violation for a long or
// double value to straddle the boundary.
func (m *Model) takeSlots(in *bytecode.Instruction, n int) ([]Value, error) {
	count, filled := 0, 0
	for filled < n {
		if count >= len(m.stack) {
			return nil, m.violation(in, fmt.Sprintf("needs %d stack slots", n), ErrUnderflow)
		}
		v := m.stack[len(m.stack)-1-count]
		if v.IsWide() {
			filled += 2
		} else {
			filled++
		}
		count++
	}
	if filled != n {
		return nil, m.violation(in, "splits a long or double value", nil)
	}
	return m.popN(in, count)
}

func (m *Model) popSlots(in *bytecode.Instruction, n int) error {
	_, err := m.takeSlots(in, n)
	return err
}

func (m *Model) push(vs ...Value) {
	m.stack = append(m.stack, vs...)
}

func (m *Model) pop(in *bytecode.Instruction) (Value, error) {
	vs, err := m.popN(in, 1)
	if err != nil {
		return Value{}, err
	}
	return vs[0], nil
}

// popN pops n values and returns them bottom to top
func (m *Model) popN(in *bytecode.Instruction, n int) ([]Value, error) {
	if n > len(m.stack) {
		return nil, m.violation(in, fmt.Sprintf("pops %d values with stack depth %d", n, len(m.stack)), ErrUnderflow)
	}
	k := len(m.stack) - n
	vs := append([]Value(nil), m.stack[k:]...)
	m.stack = m.stack[:k]
	return vs, nil
}

// store writes v in register r, invalidating the registers overlapping with a long or double value.
func (m *Model) store(r int, v Value, wide bool) {
	if prev, ok := m.registers[r-1]; ok && prev.IsWide() {
		delete(m.registers, r-1)
	}
	m.registers[r] = v
	if wide {
		delete(m.registers, r+1)
	}
}

func (m *Model) checkRegister(in *bytecode.Instruction, r int, wide bool) error {
	width := 1
	if wide {
		width = 2
	}
	if r < 0 || (m.maxLocals > 0 && r+width > m.maxLocals) {
		return m.violation(in, fmt.Sprintf("register %d outside of the %d declared locals", r, m.maxLocals), nil)
	}
	return nil
}

// recordEntries records the current stack, followed by extra if not nil, as the entry state of each target that
// does not have one yet.
func (m *Model) recordEntries(targets []int, extra *Value) {
	for _, t := range targets {
		if _, ok := m.entries[t]; ok {
			continue
		}
		entry := append([]Value(nil), m.stack...)
		if extra != nil {
			entry = append(entry, *extra)
		}
		m.entries[t] = entry
	}
}

func (m *Model) violation(in *bytecode.Instruction, reason string, err error) *InvariantViolation {
	return &InvariantViolation{Offset: in.Offset, Opcode: in.Opcode, Reason: reason, Err: err}
}

// constantOf returns the value pushed by a constant instruction
func constantOf(in *bytecode.Instruction) Value {
	if c, ok := bytecode.ImplicitConstant(in.Opcode); ok {
		return ConstantValue(in.Opcode.ValueType(), c)
	}
	if in.ClassName != "" {
		return NewValue(bytecode.TypeClass)
	}
	wide := in.Opcode == bytecode.LDC2_W
	switch c := in.Constant.(type) {
	case int64:
		if wide {
			return ConstantValue(bytecode.TypeLong, c)
		}
		return ConstantValue(bytecode.TypeInt, c)
	case float64:
		if wide {
			return ConstantValue(bytecode.TypeDouble, c)
		}
		return ConstantValue(bytecode.TypeFloat, c)
	case string:
		return ConstantValue(bytecode.TypeString, c)
	}
	if t := in.Opcode.ValueType(); t != "" {
		return NewValue(t)
	}
	return NewValue(bytecode.TypeObject)
}

// arrayType returns the type of the array created by a newarray, anewarray or multianewarray instruction. The class
// operand of newarray is the element descriptor (e.g. "I"), the one of multianewarray is the array descriptor.
func arrayType(in *bytecode.Instruction) string {
	switch in.Opcode {
	case bytecode.ANEWARRAY:
		return "[" + bytecode.ObjectType(in.ClassName)
	case bytecode.MULTIANEWARRAY:
		return in.ClassName
	}
	if in.ClassName == "" {
		return "[I"
	}
	return "[" + in.ClassName
}
