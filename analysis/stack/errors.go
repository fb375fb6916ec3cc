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
	"fmt"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
)

// ErrOutOfRange is wrapped by the errors returned when reading past the bottom of the operand stack.
var ErrOutOfRange = errors.New("index out of range")

// ErrUnderflow is wrapped by the InvariantViolation returned when an instruction consumes more values than the
// operand stack holds.
var ErrUnderflow = errors.New("operand stack underflow")

// An InvariantViolation is returned when the instruction stream is not consistent with the stack model: it consumes
// values that are not there, uses registers outside of the declared locals or carries a malformed descriptor.
// Once an InvariantViolation is returned, the model state is meaningless until the next ResetForEntry.
type InvariantViolation struct {
	// Offset of the instruction, or -1 for violations detected at routine entry
	Offset int
	// Opcode of the instruction
	Opcode bytecode.Opcode
	// Reason is a human-readable description of the violation
	Reason string
	// Err is an optional wrapped error
	Err error
}

func (e *InvariantViolation) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Offset < 0 {
		return "invariant violation at routine entry: " + msg
	}
	return fmt.Sprintf("invariant violation at offset %d (%s): %s", e.Offset, e.Opcode, msg)
}

func (e *InvariantViolation) Unwrap() error {
	return e.Err
}
