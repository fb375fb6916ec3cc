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

package walker

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/analysis/config"
	"github.com/awslabs/argot-bytecode/analysis/finding"
)

// A RoutineResult is the outcome of the analysis of one routine. When Analyzed is false, Err explains why the routine
// could not be analyzed and Findings is empty: a routine that was not analyzed is distinct from a routine without
// findings.
type RoutineResult struct {
	Class    string
	Routine  *bytecode.Routine
	Analyzed bool
	Findings []finding.Finding
	Err      error
}

// A Walker runs a set of detector instances over routines. A Walker is not safe for concurrent use when one of its
// detectors is stateful; use one Walker per goroutine, with detectors from Registry.Instantiate.
type Walker struct {
	config    *config.Config
	logger    *config.LogGroup
	detectors []Detector
}

// New returns a walker running the detectors
func New(cfg *config.Config, logger *config.LogGroup, detectors []Detector) *Walker {
	return &Walker{config: cfg, logger: logger, detectors: detectors}
}

// Detectors returns the detectors run by the walker
func (w *Walker) Detectors() []Detector {
	return w.detectors
}

// WalkRoutine analyzes routine r of class. For each instruction, in program order and without pruning unreachable
// code, it:
//  1. records the branch targets of the instruction in the facts and notifies the branch observers,
//  2. visits the instruction with every detector,
//  3. updates the facts with the instruction (returns, state changes),
//  4. applies the instruction to the stack model.
//
// A malformed routine is not analyzed. An invariant violation of the stack model stops the analysis of the routine
// and discards its findings.
func (w *Walker) WalkRoutine(class *bytecode.Class, r *bytecode.Routine) (res RoutineResult) {
	res = RoutineResult{Class: class.Name, Routine: r}
	defer func() {
		if x := recover(); x != nil {
			w.logger.Debugf("panic while analyzing %s: %v\n%s", r.FullName(), x, debug.Stack())
			res.Analyzed = false
			res.Findings = nil
			res.Err = fmt.Errorf("panic while analyzing %s: %v", r.FullName(), x)
		}
	}()

	if err := r.Validate(); err != nil {
		res.Err = fmt.Errorf("malformed routine: %w", err)
		return res
	}
	rc := newRoutineContext(w.config, w.logger, class, r)
	n, err := rc.Stack.ResetForEntry(r)
	if err != nil {
		res.Err = err
		return res
	}
	rc.Parameters = n
	for _, d := range w.detectors {
		rc.detector = d.Name()
		d.EnterRoutine(rc)
	}

	tracing := w.logger.LogsAt(config.TraceLevel)
	for i := range r.Instructions {
		in := &r.Instructions[i]
		rc.instruction = in
		if tracing {
			w.logger.Tracef("%s %-40s %s", r.Name, in.String(), rc.Stack)
		}
		for _, target := range in.Targets {
			rc.Facts.SawBranchTo(target)
			for _, d := range w.detectors {
				if obs, ok := d.(BranchObserver); ok {
					rc.detector = d.Name()
					obs.SawBranchTo(rc, target)
				}
			}
		}
		for _, d := range w.detectors {
			rc.detector = d.Name()
			d.Visit(rc, in)
		}
		rc.Facts.Observe(in)
		if err := rc.Stack.Apply(in); err != nil {
			res.Err = err
			return res
		}
	}
	res.Analyzed = true
	res.Findings = rc.findings
	return res
}

// WalkClass analyzes all the routines of class, forwarding the findings of every analyzed routine to sink in
// program order. The context is checked between routines; when it is done, the remaining routines are returned
// as not analyzed with the context's error.
func (w *Walker) WalkClass(ctx context.Context, class *bytecode.Class, sink finding.Sink) []RoutineResult {
	results := make([]RoutineResult, 0, len(class.Routines))
	for _, r := range class.Routines {
		if err := ctx.Err(); err != nil {
			results = append(results, RoutineResult{Class: class.Name, Routine: r, Err: err})
			continue
		}
		res := w.WalkRoutine(class, r)
		if res.Analyzed {
			for _, f := range res.Findings {
				sink.Report(f)
			}
		}
		results = append(results, res)
	}
	return results
}
