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

// Package flow tracks the control-flow facts of a routine: monotone facts accumulated over the instruction stream,
// in program order, with no path sensitivity.
package flow

import (
	"fmt"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/internal/funcutil"
)

// Facts are the control-flow facts observed so far in one routine. The zero value is not usable, use NewFacts.
type Facts struct {
	// SeenTransferOfControl is true once a branch target or a return was observed
	SeenTransferOfControl bool
	// SeenReturn is true once a return instruction was observed
	SeenReturn bool
	// SeenStateChange is true once a field store, an array store or an invocation was observed
	SeenStateChange bool
	// LargestBranchTarget is the largest branch target offset observed, if any
	LargestBranchTarget funcutil.Optional[int]
}

// NewFacts returns the facts at routine entry
func NewFacts() *Facts {
	return &Facts{LargestBranchTarget: funcutil.None[int]()}
}

// Reset sets the facts back to their value at routine entry
func (f *Facts) Reset() {
	*f = Facts{LargestBranchTarget: funcutil.None[int]()}
}

// SawBranchTo records that an instruction may transfer control to target
func (f *Facts) SawBranchTo(target int) {
	f.SeenTransferOfControl = true
	f.LargestBranchTarget = funcutil.MaxOption(f.LargestBranchTarget, target)
}

// Observe updates the facts with the effect of instruction in. Branch targets are not handled here, see
// SawBranchTo.
func (f *Facts) Observe(in *bytecode.Instruction) {
	switch in.Kind() {
	case bytecode.KindReturn:
		f.SeenReturn = true
		f.SeenTransferOfControl = true
	case bytecode.KindFieldPut, bytecode.KindArrayStore, bytecode.KindInvoke:
		f.SeenStateChange = true
	}
}

// Saturated returns true when all the boolean facts hold. Since facts are monotone, they will not change anymore
// except for the largest branch target.
func (f *Facts) Saturated() bool {
	return f.SeenReturn && f.SeenTransferOfControl && f.SeenStateChange
}

// NoBranchTargetReaches returns true when no branch target observed so far is at or after offset.
func (f *Facts) NoBranchTargetReaches(offset int) bool {
	return f.LargestBranchTarget.IsNone() || f.LargestBranchTarget.Value() < offset
}

func (f *Facts) String() string {
	return fmt.Sprintf("transfer=%t return=%t state-change=%t largest-target=%v",
		f.SeenTransferOfControl, f.SeenReturn, f.SeenStateChange, f.LargestBranchTarget)
}
