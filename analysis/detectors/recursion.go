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

package detectors

import (
	"fmt"
	"strings"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/analysis/finding"
	"github.com/awslabs/argot-bytecode/analysis/stack"
	"github.com/awslabs/argot-bytecode/analysis/walker"
)

// RecursionName is the name of the recursion detector
const RecursionName = "recursion"

// addSignature is the signature of Collection.add
const addSignature = "(Ljava/lang/Object;)Z"

// Recursion detects routines calling themselves unconditionally, and collections added to themselves.
//
// A call is reported as an infinite recursion when it targets the routine itself, with the same dispatch kind, and
// one of the following holds:
//   - the arguments are the routine's own unmodified parameters and no state change happened before the call,
//   - the call is made on the same receiver (or is static) and no branch happened before the call,
//   - the call is made on the same receiver (or is static), no return happened before the call and no branch
//     target seen so far is at or after the call.
//
// Once a return, a branch and a state change have been seen, no call in the rest of the routine can satisfy these
// conditions and the detector stops looking.
type Recursion struct {
	class       string
	name        string
	signature   string
	static      bool
	constructor bool
	parameters  int
	strict      bool
}

// NewRecursion returns a new recursion detector
func NewRecursion() *Recursion {
	return &Recursion{}
}

// Name returns RecursionName
func (d *Recursion) Name() string {
	return RecursionName
}

// EnterRoutine caches the header of the routine
func (d *Recursion) EnterRoutine(rc *walker.RoutineContext) {
	*d = Recursion{
		class:       rc.Routine.Class,
		name:        rc.Routine.Name,
		signature:   rc.Routine.Signature,
		static:      rc.Routine.Static,
		constructor: rc.Routine.IsConstructor(),
		parameters:  rc.Parameters,
		strict:      rc.Config != nil && rc.Config.StrictReceiverCheck,
	}
}

// Visit checks invocations
func (d *Recursion) Visit(rc *walker.RoutineContext, in *bytecode.Instruction) {
	if rc.Facts.Saturated() {
		return
	}
	if !in.IsInvoke() || in.Ref == nil {
		return
	}
	d.checkSelfAdd(rc, in)
	d.checkSelfCall(rc, in)
}

func (d *Recursion) checkSelfAdd(rc *walker.RoutineContext, in *bytecode.Instruction) {
	if in.Opcode != bytecode.INVOKEVIRTUAL && in.Opcode != bytecode.INVOKEINTERFACE {
		return
	}
	if in.Ref.Name != "add" || in.Ref.Signature != addSignature || rc.Stack.Depth() < 2 {
		return
	}
	r0, ok0 := item(rc, 0).Register()
	r1, ok1 := item(rc, 1).Register()
	if ok0 && ok1 && r0 == r1 && r0 > 0 {
		rc.Report(PatternSelfContainingAdd, finding.Normal,
			fmt.Sprintf("collection in local %d is added to itself", r0))
	}
}

func (d *Recursion) checkSelfCall(rc *walker.RoutineContext, in *bytecode.Instruction) {
	op := in.Opcode
	if op == bytecode.INVOKEDYNAMIC {
		return
	}
	if in.Ref.Name != d.name || in.Ref.Signature != d.signature {
		return
	}
	if (op == bytecode.INVOKESTATIC) != d.static || rc.Stack.Depth() < d.parameters {
		return
	}
	dynamic := op == bytecode.INVOKEVIRTUAL || op == bytecode.INVOKEINTERFACE
	if in.Ref.Class != d.class && (d.strict || !dynamic) {
		return
	}

	first := 0
	if d.constructor {
		first = 1
	}
	match1 := !rc.Facts.SeenStateChange
	for i := first; match1 && i < d.parameters; i++ {
		match1 = item(rc, d.parameters-1-i).IsInitialParameter(i)
	}

	sameMethod := op == bytecode.INVOKESTATIC || in.Ref.Name == "<init>"
	if !sameMethod {
		sameMethod = item(rc, d.parameters-1).IsInitialParameter(0)
	}
	match2 := sameMethod && !rc.Facts.SeenTransferOfControl
	match3 := sameMethod && !rc.Facts.SeenReturn && rc.Facts.NoBranchTargetReaches(in.Offset)

	if !(match1 || match2 || match3) {
		return
	}
	var reasons []string
	if match1 {
		reasons = append(reasons, "with its own unmodified arguments")
	}
	if match2 {
		reasons = append(reasons, "before any branch")
	}
	if match3 {
		reasons = append(reasons, "with no exit before the call")
	}
	rc.Logger.Debugf("%s: recursive call at %d (%s)", rc.Routine.FullName(), in.Offset, strings.Join(reasons, ", "))
	rc.Report(PatternSelfRecursiveCall, finding.High,
		fmt.Sprintf("%s calls itself %s", d.name+d.signature, strings.Join(reasons, ", ")))
}

// item returns the i-th stack value from the top. Callers check the depth first; a failure is an engine defect.
func item(rc *walker.RoutineContext, i int) stack.Value {
	v, err := rc.Stack.ItemFromTop(i)
	if err != nil {
		panic(fmt.Sprintf("stack depth checked before reading item %d: %v", i, err))
	}
	return v
}
