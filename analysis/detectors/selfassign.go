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

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/analysis/finding"
	"github.com/awslabs/argot-bytecode/analysis/walker"
)

// SelfAssignmentName is the name of the self-assignment detector
const SelfAssignmentName = "self-assignment"

// SelfAssignment detects a local variable stored into itself (x = x): a store into register r of a value
// originating from register r.
type SelfAssignment struct{}

// Name returns SelfAssignmentName
func (SelfAssignment) Name() string {
	return SelfAssignmentName
}

// EnterRoutine does nothing
func (SelfAssignment) EnterRoutine(_ *walker.RoutineContext) {}

// Visit checks stores
func (SelfAssignment) Visit(rc *walker.RoutineContext, in *bytecode.Instruction) {
	if in.Kind() != bytecode.KindStore || rc.Stack.Depth() < 1 {
		return
	}
	r := in.LocalIndex()
	if src, ok := item(rc, 0).Register(); ok && src == r {
		rc.Report(PatternSelfAssignment, finding.Normal, fmt.Sprintf("local %d is assigned to itself", r))
	}
}
