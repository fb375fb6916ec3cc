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

// Descriptors of the values handled by the stack model. Sub-word integral types (byte, char, short, boolean) are
// represented by TypeInt on the operand stack, as in the JVM.
const (
	TypeInt    = "I"
	TypeLong   = "J"
	TypeFloat  = "F"
	TypeDouble = "D"
	TypeVoid   = "V"
	TypeObject = "Ljava/lang/Object;"
	TypeString = "Ljava/lang/String;"
	TypeClass  = "Ljava/lang/Class;"
	// TypeThrowable is the type of the value on the stack at the start of an exception handler
	TypeThrowable = "Ljava/lang/Throwable;"
	// TypeReturnAddress is the type of the value pushed by jsr. It has no descriptor in the class file format.
	TypeReturnAddress = "returnAddress"
)

// IsWide returns true if a value of type typ is a category 2 value (long or double): it occupies two local variable
// slots, and counts as a single value for the category-aware stack instructions (pop2, dup2, ...).
func IsWide(typ string) bool {
	return typ == TypeLong || typ == TypeDouble
}

// StackType returns the type a value of type typ has on the operand stack (sub-word types are widened to int).
func StackType(typ string) string {
	switch typ {
	case "Z", "B", "C", "S":
		return TypeInt
	}
	return typ
}

// A MethodType is a parsed method descriptor.
type MethodType struct {
	// Params are the descriptors of the declared parameters, in order
	Params []string
	// Return is the descriptor of the return type ("V" for void)
	Return string
}

// ArgumentSlots returns the number of local variable slots used by the declared parameters
func (m MethodType) ArgumentSlots() int {
	n := 0
	for _, p := range m.Params {
		if IsWide(p) {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// ReturnsValue returns true when the method type pushes a value on the caller's stack
func (m MethodType) ReturnsValue() bool {
	return m.Return != TypeVoid
}

// ParseMethodDescriptor parses a method descriptor such as "(ILjava/lang/String;[J)V".
func ParseMethodDescriptor(desc string) (MethodType, error) {
	if !strings.HasPrefix(desc, "(") {
		return MethodType{}, fmt.Errorf("method descriptor %q does not start with '('", desc)
	}
	var params []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		end, err := fieldTypeEnd(desc, i)
		if err != nil {
			return MethodType{}, fmt.Errorf("method descriptor %q: %w", desc, err)
		}
		params = append(params, desc[i:end])
		i = end
	}
	if i >= len(desc) {
		return MethodType{}, fmt.Errorf("method descriptor %q has no closing ')'", desc)
	}
	ret := desc[i+1:]
	if ret != TypeVoid {
		end, err := fieldTypeEnd(ret, 0)
		if err != nil || end != len(ret) {
			return MethodType{}, fmt.Errorf("method descriptor %q has invalid return type %q", desc, ret)
		}
	}
	return MethodType{Params: params, Return: ret}, nil
}

// ParseFieldDescriptor checks that desc is a single field descriptor and returns it
func ParseFieldDescriptor(desc string) (string, error) {
	end, err := fieldTypeEnd(desc, 0)
	if err != nil {
		return "", err
	}
	if end != len(desc) {
		return "", fmt.Errorf("field descriptor %q has trailing characters", desc)
	}
	return desc, nil
}

// fieldTypeEnd returns the index just after the field descriptor starting at index i in s
func fieldTypeEnd(s string, i int) (int, error) {
	if i >= len(s) {
		return 0, fmt.Errorf("unexpected end of descriptor")
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		semi := strings.IndexByte(s[i:], ';')
		if semi <= 1 {
			return 0, fmt.Errorf("unterminated class type at index %d", i)
		}
		return i + semi + 1, nil
	case '[':
		return fieldTypeEnd(s, i+1)
	default:
		return 0, fmt.Errorf("invalid type character %q at index %d", s[i], i)
	}
}

// ObjectType returns the descriptor of the class with internal name className. Array class names (starting with
// '[') are already descriptors.
func ObjectType(className string) string {
	if strings.HasPrefix(className, "[") {
		return className
	}
	return "L" + className + ";"
}
