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
	"fmt"
	"strings"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
)

// A Value is the symbolic description of one operand stack entry or register content. It tracks where the value
// comes from rather than what it is: the register it was loaded from or stored to, whether it is still exactly the
// value received as an incoming parameter, and its constant value when known.
//
// Values are immutable. A value is an initial parameter only when created at routine entry; every operation that
// produces a new value or stores into a register drops that property, and nothing reinstates it.
type Value struct {
	typ         string
	register    int
	hasRegister bool
	param       int
	isParam     bool
	constant    any
	hasConstant bool
}

// NewValue returns a value of type typ with no known provenance
func NewValue(typ string) Value {
	return Value{typ: typ}
}

// ConstantValue returns a value of type typ known to be equal to c
func ConstantValue(typ string, c any) Value {
	return Value{typ: typ, constant: c, hasConstant: true}
}

// ParameterValue returns the value of the incoming parameter at position param, held in register at routine entry.
// Position 0 is the receiver of instance routines.
func ParameterValue(typ string, register int, param int) Value {
	return Value{typ: typ, register: register, hasRegister: true, param: param, isParam: true}
}

// Type returns the descriptor of the value's type as it is on the operand stack. It may be empty when unknown.
func (v Value) Type() string {
	return v.typ
}

// IsWide returns true for category 2 values (long and double)
func (v Value) IsWide() bool {
	return bytecode.IsWide(v.typ)
}

// Register returns the register the value originates from, if any
func (v Value) Register() (int, bool) {
	return v.register, v.hasRegister
}

// InitialParameter returns the position of the incoming parameter this value is exactly equal to, if it is one.
func (v Value) InitialParameter() (int, bool) {
	return v.param, v.isParam
}

// IsInitialParameter returns true when the value is exactly the incoming parameter at position i
func (v Value) IsInitialParameter(i int) bool {
	return v.isParam && v.param == i
}

// Constant returns the known constant value, if any. Integral constants are int64, floating point constants are
// float64, string constants are strings and aconst_null is a known nil constant.
func (v Value) Constant() (any, bool) {
	return v.constant, v.hasConstant
}

// withType returns a copy of v with type typ, keeping provenance (checkcast)
func (v Value) withType(typ string) Value {
	v.typ = typ
	return v
}

// storedIn returns the value held by register r after storing v into it
func (v Value) storedIn(r int) Value {
	v.register = r
	v.hasRegister = true
	v.param = 0
	v.isParam = false
	return v
}

// loadedFrom returns a fresh value of type typ for a register that was never written
func loadedFrom(typ string, r int) Value {
	return Value{typ: typ, register: r, hasRegister: true}
}

func (v Value) String() string {
	typ := v.typ
	if typ == "" {
		typ = "?"
	}
	var attrs []string
	if v.hasRegister {
		attrs = append(attrs, fmt.Sprintf("r%d", v.register))
	}
	if v.isParam {
		attrs = append(attrs, fmt.Sprintf("p%d", v.param))
	}
	if v.hasConstant {
		if s, ok := v.constant.(string); ok {
			attrs = append(attrs, fmt.Sprintf("=%q", s))
		} else {
			attrs = append(attrs, fmt.Sprintf("=%v", v.constant))
		}
	}
	if len(attrs) == 0 {
		return typ
	}
	return typ + "{" + strings.Join(attrs, ",") + "}"
}
