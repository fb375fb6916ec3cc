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

// Package walker drives the analysis of routines: it walks the instruction stream of each routine in program order,
// maintaining the symbolic stack model and the control-flow facts, and lets detectors inspect the state before each
// instruction takes effect.
package walker

import (
	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/analysis/config"
	"github.com/awslabs/argot-bytecode/analysis/finding"
	"github.com/awslabs/argot-bytecode/analysis/flow"
	"github.com/awslabs/argot-bytecode/analysis/stack"
)

// A Detector recognizes defect patterns in the instruction stream of routines.
//
// EnterRoutine is called before the first instruction of every routine; it is the only place where a detector may
// reset its per-routine fields. Visit is called for every instruction, in program order, before the instruction's
// effect is applied to the stack model: the stack holds the values the instruction consumes.
type Detector interface {
	// Name is the unique name of the detector, used in the registry, the config and the findings
	Name() string
	EnterRoutine(rc *RoutineContext)
	Visit(rc *RoutineContext, in *bytecode.Instruction)
}

// A BranchObserver is a detector that is notified of the branch targets of instructions, before Visit is called for
// the same instruction.
type BranchObserver interface {
	SawBranchTo(rc *RoutineContext, target int)
}

// A RoutineContext is the state of the analysis of one routine. It is created at routine entry and owned by the
// walker; detectors only read it during the callbacks, and report findings through it.
type RoutineContext struct {
	// Class is the class declaring the routine
	Class *bytecode.Class
	// Routine is the routine being analyzed
	Routine *bytecode.Routine
	// Stack is the symbolic stack model before the current instruction
	Stack *stack.Model
	// Facts are the control-flow facts observed before the current instruction
	Facts *flow.Facts
	// Parameters is the number of incoming parameters, counting the receiver of instance routines
	Parameters int
	// Config is the configuration of the analysis
	Config *config.Config
	// Logger is the logger of the analysis
	Logger *config.LogGroup

	instruction *bytecode.Instruction
	detector    string
	findings    []finding.Finding
}

func newRoutineContext(cfg *config.Config, logger *config.LogGroup, class *bytecode.Class,
	r *bytecode.Routine) *RoutineContext {
	return &RoutineContext{
		Class:   class,
		Routine: r,
		Stack:   stack.New(),
		Facts:   flow.NewFacts(),
		Config:  cfg,
		Logger:  logger,
	}
}

// Static returns true if the routine is static
func (rc *RoutineContext) Static() bool {
	return rc.Routine.Static
}

// Instruction returns the instruction being visited, or nil at routine entry
func (rc *RoutineContext) Instruction() *bytecode.Instruction {
	return rc.instruction
}

// Location returns the location of the instruction being visited
func (rc *RoutineContext) Location() finding.Location {
	loc := finding.Location{
		Class:     rc.Routine.Class,
		Routine:   rc.Routine.Name,
		Signature: rc.Routine.Signature,
	}
	if rc.instruction != nil {
		loc.Offset = rc.instruction.Offset
		loc.Line = rc.instruction.Line
	}
	return loc
}

// Report emits a finding at the current instruction. The findings of a routine are forwarded to the sink only when
// the whole routine was analyzed successfully.
func (rc *RoutineContext) Report(pattern string, severity finding.Severity, context string) {
	finding.Emit(finding.SinkFunc(func(f finding.Finding) { rc.findings = append(rc.findings, f) }),
		rc.detector, pattern, severity, rc.Location(), context)
}
