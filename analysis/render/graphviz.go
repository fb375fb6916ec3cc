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

package render

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/argot-bytecode/internal/graphutil"
)

// edgeColor defines specific color for specific edges in the call graph
// - a routine calling itself directly has a red edge
// - an edge between two routines of the same recursive group is orange
// - all other edges have a default color
func edgeColor(recursive map[int64]int, from, to int64) string {
	if from == to {
		return " [color=red]"
	}
	if g, ok := recursive[from]; ok && recursive[to] == g {
		return " [color=orange]"
	}
	return ""
}

// WriteGraphviz writes a graphviz representation of the call graph of a class to w. Routines without any call
// to or from another routine of the class are still listed as nodes.
func WriteGraphviz(cg graphutil.CGraph, w io.Writer) error {
	recursive := map[int64]int{}
	for i, group := range graphutil.RecursiveComponents(cg) {
		for _, id := range group {
			recursive[id] = i
		}
	}

	if _, err := fmt.Fprintf(w, "digraph %q {\n", cg.Class.Name); err != nil {
		return fmt.Errorf("error while writing graph: %w", err)
	}
	for _, id := range cg.Keys {
		if _, err := fmt.Fprintf(w, "  %q;\n", cg.IDMap[id].String()); err != nil {
			return fmt.Errorf("error while writing graph: %w", err)
		}
	}
	for _, from := range cg.Keys {
		succ := cg.From(from)
		for succ.Next() {
			to := succ.Node().ID()
			_, err := fmt.Fprintf(w, "  %q -> %q%s;\n", cg.IDMap[from].String(), cg.IDMap[to].String(),
				edgeColor(recursive, from, to))
			if err != nil {
				return fmt.Errorf("error while writing graph: %w", err)
			}
		}
	}
	if _, err := fmt.Fprintf(w, "}\n"); err != nil {
		return fmt.Errorf("error while writing graph: %w", err)
	}
	return nil
}

// GraphvizToFile writes the graphviz representation of the call graph in a new file
func GraphvizToFile(cg graphutil.CGraph, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	if err := WriteGraphviz(cg, w); err != nil {
		return err
	}
	return nil
}
