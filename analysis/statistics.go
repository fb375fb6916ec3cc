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

package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/internal/graphutil"
)

// Statistics are general statistics about a set of classes. They are informational and never findings.
type Statistics struct {
	NumberOfClasses      uint
	NumberOfRoutines     uint
	NumberOfInstructions uint
	// InstructionsByKind counts the instructions of each kind
	InstructionsByKind map[bytecode.Kind]uint
	// RecursiveGroups are the groups of routines of a class that may call each other recursively, including the
	// routines that call themselves directly
	RecursiveGroups []RecursiveGroup
	// NumberOfCycles is the number of elementary cycles in the intra-class call graphs
	NumberOfCycles uint
}

// A RecursiveGroup is a strongly connected component of the call graph of a class
type RecursiveGroup struct {
	Class string
	// Routines are the names and signatures of the routines of the group, in declaration order
	Routines []string
}

func (g RecursiveGroup) String() string {
	return g.Class + ": " + strings.Join(g.Routines, ", ")
}

// ComputeStatistics returns the statistics of the classes
func ComputeStatistics(classes []*bytecode.Class) Statistics {
	stats := Statistics{InstructionsByKind: map[bytecode.Kind]uint{}}
	for _, class := range classes {
		stats.NumberOfClasses++
		for _, r := range class.Routines {
			stats.NumberOfRoutines++
			for i := range r.Instructions {
				stats.NumberOfInstructions++
				stats.InstructionsByKind[r.Instructions[i].Kind()]++
			}
		}

		cg := graphutil.NewRoutineGraph(class)
		for _, group := range graphutil.RecursiveComponents(cg) {
			rg := RecursiveGroup{Class: class.Name}
			for _, id := range group {
				r := class.Routines[id]
				rg.Routines = append(rg.Routines, r.Name+r.Signature)
			}
			stats.RecursiveGroups = append(stats.RecursiveGroups, rg)
		}
		stats.NumberOfCycles += uint(len(graphutil.FindAllElementaryCycles(cg)))
	}
	return stats
}

// WriteStatistics prints the statistics in a human-readable form
func WriteStatistics(w io.Writer, stats Statistics) {
	fmt.Fprintf(w, "Classes:      %d\n", stats.NumberOfClasses)
	fmt.Fprintf(w, "Routines:     %d\n", stats.NumberOfRoutines)
	fmt.Fprintf(w, "Instructions: %d\n", stats.NumberOfInstructions)
	for _, k := range bytecode.Kinds() {
		if n := stats.InstructionsByKind[k]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", k.String()+":", n)
		}
	}
	fmt.Fprintf(w, "Recursive groups: %d (%d elementary cycles)\n", len(stats.RecursiveGroups), stats.NumberOfCycles)
	for _, g := range stats.RecursiveGroups {
		fmt.Fprintf(w, "  %s\n", g)
	}
}
