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
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/analysis/config"
	"github.com/awslabs/argot-bytecode/analysis/finding"
	"github.com/awslabs/argot-bytecode/analysis/stack"
	"golang.org/x/exp/slices"
)

// recorder records the callbacks it receives, with the state observed in each
type recorder struct {
	events []string
}

func (d *recorder) Name() string { return "recorder" }

func (d *recorder) EnterRoutine(rc *RoutineContext) {
	d.events = append(d.events, fmt.Sprintf("enter %s params=%d static=%t", rc.Routine.Name, rc.Parameters,
		rc.Static()))
}

func (d *recorder) SawBranchTo(rc *RoutineContext, target int) {
	d.events = append(d.events, fmt.Sprintf("branch %d->%d", rc.Instruction().Offset, target))
}

func (d *recorder) Visit(rc *RoutineContext, in *bytecode.Instruction) {
	d.events = append(d.events, fmt.Sprintf("visit %d depth=%d transfer=%t state=%t", in.Offset, rc.Stack.Depth(),
		rc.Facts.SeenTransferOfControl, rc.Facts.SeenStateChange))
}

// reporter reports a finding at every instruction with the given opcode
type reporter struct {
	op bytecode.Opcode
}

func (d reporter) Name() string                   { return "reporter" }
func (d reporter) EnterRoutine(_ *RoutineContext) {}
func (d reporter) Visit(rc *RoutineContext, in *bytecode.Instruction) {
	if in.Opcode == d.op {
		rc.Report("test-pattern", finding.Normal, in.Opcode.String())
	}
}

type panicker struct{}

func (panicker) Name() string                   { return "panicker" }
func (panicker) EnterRoutine(_ *RoutineContext) {}
func (panicker) Visit(_ *RoutineContext, in *bytecode.Instruction) {
	if in.Offset == 1 {
		panic("boom")
	}
}

func newTestWalker(detectors ...Detector) *Walker {
	cfg := config.NewDefault()
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	return New(cfg, logger, detectors)
}

func testClass(routines ...*bytecode.Routine) *bytecode.Class {
	c := &bytecode.Class{Name: "A"}
	for _, r := range routines {
		r.Class = "A"
		c.Routines = append(c.Routines, r)
	}
	return c
}

// 0: iload_0; 1: ifeq 6; 4: iconst_1; 5: ireturn; 6: invokestatic g; 9: iconst_0; 10: ireturn
func branchy() *bytecode.Routine {
	return &bytecode.Routine{Name: "f", Signature: "(Z)I", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.ILOAD_0},
			{Offset: 1, Opcode: bytecode.IFEQ, Targets: []int{6}},
			{Offset: 4, Opcode: bytecode.ICONST_1},
			{Offset: 5, Opcode: bytecode.IRETURN},
			{Offset: 6, Opcode: bytecode.INVOKESTATIC, Ref: &bytecode.MemberRef{Class: "A", Name: "g", Signature: "()V"}},
			{Offset: 9, Opcode: bytecode.ICONST_0},
			{Offset: 10, Opcode: bytecode.IRETURN},
		}}
}

func TestWalkRoutineOrder(t *testing.T) {
	rec := &recorder{}
	w := newTestWalker(rec)
	r := branchy()
	res := w.WalkRoutine(testClass(r), r)
	if !res.Analyzed || res.Err != nil {
		t.Fatalf("expected the routine to be analyzed: %v", res.Err)
	}
	expected := []string{
		"enter f params=1 static=true",
		"visit 0 depth=0 transfer=false state=false",
		"branch 1->6",
		"visit 1 depth=1 transfer=true state=false",
		"visit 4 depth=0 transfer=true state=false",
		"visit 5 depth=1 transfer=true state=false",
		"visit 6 depth=0 transfer=true state=false",
		"visit 9 depth=0 transfer=true state=true",
		"visit 10 depth=1 transfer=true state=true",
	}
	if !slices.Equal(rec.events, expected) {
		t.Errorf("unexpected events:\n%s\nexpected:\n%s", strings.Join(rec.events, "\n"),
			strings.Join(expected, "\n"))
	}
}

func TestWalkRoutineVisitsUnreachableCode(t *testing.T) {
	rec := &recorder{}
	w := newTestWalker(rec)
	r := &bytecode.Routine{Name: "f", Signature: "()V", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.RETURN},
			{Offset: 1, Opcode: bytecode.NOP},
			{Offset: 2, Opcode: bytecode.RETURN},
		}}
	w.WalkRoutine(testClass(r), r)
	visits := 0
	for _, e := range rec.events {
		if strings.HasPrefix(e, "visit") {
			visits++
		}
	}
	if visits != 3 {
		t.Errorf("expected 3 visits, got %d", visits)
	}
}

func TestWalkRoutineFindings(t *testing.T) {
	w := newTestWalker(reporter{op: bytecode.IRETURN})
	r := branchy()
	r.Instructions[3].Line = 42
	res := w.WalkRoutine(testClass(r), r)
	if len(res.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(res.Findings))
	}
	f := res.Findings[0]
	if f.Detector != "reporter" || f.Location.Offset != 5 || f.Location.Line != 42 || f.Location.Class != "A" ||
		f.Location.Routine != "f" || f.Location.Signature != "(Z)I" {
		t.Errorf("unexpected finding %v", f)
	}
}

func TestWalkRoutineInvariantViolation(t *testing.T) {
	w := newTestWalker(reporter{op: bytecode.NOP})
	r := &bytecode.Routine{Name: "f", Signature: "()V", Static: true,
		Instructions: []bytecode.Instruction{
			{Offset: 0, Opcode: bytecode.NOP},
			{Offset: 1, Opcode: bytecode.POP},
			{Offset: 2, Opcode: bytecode.RETURN},
		}}
	res := w.WalkRoutine(testClass(r), r)
	if res.Analyzed || len(res.Findings) != 0 {
		t.Errorf("a routine with an invariant violation should not be analyzed and have no findings")
	}
	var iv *stack.InvariantViolation
	if !errors.As(res.Err, &iv) || iv.Offset != 1 {
		t.Errorf("expected an invariant violation at offset 1, got %v", res.Err)
	}
}

func TestWalkRoutinePanic(t *testing.T) {
	w := newTestWalker(panicker{})
	r := branchy()
	res := w.WalkRoutine(testClass(r), r)
	if res.Analyzed || res.Err == nil || !strings.Contains(res.Err.Error(), "boom") {
		t.Errorf("expected a failed analysis reporting the panic, got %+v", res)
	}
}

func TestWalkClass(t *testing.T) {
	bad := &bytecode.Routine{Name: "bad", Signature: "()V", Static: true,
		Instructions: []bytecode.Instruction{{Offset: 0, Opcode: bytecode.IRETURN}}}
	good := branchy()
	class := testClass(bad, good)
	c := &finding.Collector{}
	w := newTestWalker(reporter{op: bytecode.IRETURN})
	results := w.WalkClass(context.Background(), class, c)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Analyzed || results[0].Err == nil {
		t.Errorf("routine bad should fail")
	}
	if !results[1].Analyzed {
		t.Errorf("a failed routine should not prevent the analysis of other routines: %v", results[1].Err)
	}
	// the finding reported at offset 0 of bad is discarded
	if c.Len() != 2 {
		t.Errorf("expected the 2 findings of f in the sink, got %d", c.Len())
	}
}

func TestWalkClassCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := newTestWalker(reporter{op: bytecode.IRETURN})
	results := w.WalkClass(ctx, testClass(branchy()), &finding.Collector{})
	if len(results) != 1 || results[0].Analyzed || !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("expected a routine skipped by cancellation, got %+v", results)
	}
}

func TestWalkRoutineIdempotent(t *testing.T) {
	r := branchy()
	class := testClass(r)
	w := newTestWalker(reporter{op: bytecode.IRETURN}, &recorder{})
	first := w.WalkRoutine(class, r)
	second := w.WalkRoutine(class, r)
	if !slices.Equal(first.Findings, second.Findings) {
		t.Errorf("two runs should give the same findings: %v and %v", first.Findings, second.Findings)
	}
}
