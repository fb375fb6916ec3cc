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

// Package render prints debugging views of the analysis: the symbolic trace of a routine, with the stack and the
// control-flow facts observed before each instruction, and the call graph of a class in GraphViz format.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/analysis/flow"
	"github.com/awslabs/argot-bytecode/analysis/stack"
	"github.com/awslabs/argot-bytecode/internal/formatutil"
	"github.com/awslabs/argot-bytecode/internal/funcutil"
)

// Trace writes one line per instruction of r with the symbolic stack and the facts as they are before the
// instruction executes. Instructions are simulated in program order, as the walker does. The trace stops at the
// first invariant violation, which is returned after being written.
func Trace(w io.Writer, r *bytecode.Routine) error {
	fmt.Fprintf(w, "%s\n", formatutil.Bold(r.FullName()))
	m := stack.New()
	n, err := m.ResetForEntry(r)
	if err == nil {
		err = r.Validate()
	}
	if err != nil {
		fmt.Fprintf(w, "  %s %v\n", formatutil.Red("error:"), err)
		return err
	}
	facts := flow.NewFacts()
	fmt.Fprintf(w, "  %s %d parameters, registers %s\n", formatutil.Faint("entry:"), n, registers(m, r))
	for i := range r.Instructions {
		in := &r.Instructions[i]
		for _, target := range in.Targets {
			facts.SawBranchTo(target)
		}
		fmt.Fprintf(w, "  %-48s %-40s %s\n", in.String(), m.String(), formatutil.Faint(factsString(facts)))
		facts.Observe(in)
		if err := m.Apply(in); err != nil {
			fmt.Fprintf(w, "  %s %v\n", formatutil.Red("error:"), err)
			return err
		}
	}
	return nil
}

// TraceClass writes the traces of all the routines of class whose name is routine, or of all the routines when
// routine is empty. Errors of one routine do not stop the traces of the others; the first one is returned.
func TraceClass(w io.Writer, class *bytecode.Class, routine string) error {
	var first error
	found := false
	for _, r := range class.Routines {
		if routine != "" && r.Name != routine {
			continue
		}
		found = true
		if err := Trace(w, r); err != nil && first == nil {
			first = err
		}
		fmt.Fprintln(w)
	}
	if !found {
		return fmt.Errorf("no routine %q in class %s", routine, class.Name)
	}
	return first
}

// registers lists the defined registers among the declared locals, or among the parameter slots when the routine
// does not declare its locals
func registers(m *stack.Model, r *bytecode.Routine) string {
	limit := r.MaxLocals
	if limit == 0 {
		if mt, err := bytecode.ParseMethodDescriptor(r.Signature); err == nil {
			limit = mt.ArgumentSlots()
			if !r.Static {
				limit++
			}
		}
	}
	var items []string
	for i := 0; i < limit; i++ {
		if v, ok := m.Register(i); ok {
			items = append(items, fmt.Sprintf("%d:%s", i, v))
		}
	}
	return "{" + strings.Join(items, " ") + "}"
}

// factsString is a compact representation of the facts: T for a transfer of control, R for a return, S for a state
// change, and the largest branch target seen
func factsString(f *flow.Facts) string {
	flags := []byte("---")
	if f.SeenTransferOfControl {
		flags[0] = 'T'
	}
	if f.SeenReturn {
		flags[1] = 'R'
	}
	if f.SeenStateChange {
		flags[2] = 'S'
	}
	target := funcutil.MapOption(f.LargestBranchTarget, func(t int) string { return fmt.Sprintf(" max-target=%d", t) })
	return string(flags) + target.ValueOr("")
}
