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
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/internal/formatutil"
	"github.com/awslabs/argot-bytecode/internal/graphutil"
)

const listing = `
class: com/example/R
routines:
  - name: m
    signature: (II)I
    static: true
    max-locals: 2
    instructions:
      - {offset: 0, op: iload_0}
      - {offset: 1, op: ifeq, targets: [6]}
      - {offset: 4, op: iload_1}
      - {offset: 5, op: ireturn}
      - {offset: 6, op: iconst_0}
      - {offset: 7, op: ireturn}
  - name: bad
    signature: ()V
    static: true
    instructions:
      - {offset: 0, op: iadd}
      - {offset: 1, op: return}
  - name: a
    signature: ()V
    static: true
    instructions:
      - {offset: 0, op: invokestatic, ref: {class: com/example/R, name: b, signature: ()V}}
      - {offset: 3, op: invokestatic, ref: {class: com/example/R, name: a, signature: ()V}}
      - {offset: 6, op: return}
  - name: b
    signature: ()V
    static: true
    instructions:
      - {offset: 0, op: invokestatic, ref: {class: com/example/R, name: a, signature: ()V}}
      - {offset: 3, op: return}
`

func loadClass(t *testing.T) *bytecode.Class {
	t.Helper()
	classes, err := bytecode.DecodeYAML([]byte(listing))
	if err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	return classes[0]
}

func TestTrace(t *testing.T) {
	formatutil.ForceColors(false)
	defer formatutil.AutoColors()
	class := loadClass(t)

	var b bytes.Buffer
	if err := Trace(&b, class.Routine("m")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	expected := [][]string{
		{"com/example/R.m(II)I"},
		{"entry:", "2", "parameters,", "registers", "{0:I{r0,p0}", "1:I{r1,p1}}"},
		{"0:", "iload_0", "[]", "---"},
		{"1:", "ifeq", "->", "6", "[I{r0,p0}]", "T--", "max-target=6"},
		{"4:", "iload_1", "[]", "T--", "max-target=6"},
		{"5:", "ireturn", "[I{r1,p1}]", "T--", "max-target=6"},
		{"6:", "iconst_0", "[]", "TR-", "max-target=6"},
		{"7:", "ireturn", "[I{=0}]", "TR-", "max-target=6"},
	}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got:\n%s", len(expected), b.String())
	}
	for i, line := range lines {
		if fields := strings.Fields(line); !reflect.DeepEqual(fields, expected[i]) {
			t.Errorf("line %d: expected %v, got %v", i, expected[i], fields)
		}
	}
}

func TestTraceError(t *testing.T) {
	formatutil.ForceColors(false)
	defer formatutil.AutoColors()
	class := loadClass(t)

	var b bytes.Buffer
	if err := Trace(&b, class.Routine("bad")); err == nil {
		t.Fatalf("expected an error on stack underflow")
	}
	if !strings.Contains(b.String(), "error:") {
		t.Errorf("expected the error in the trace:\n%s", b.String())
	}

	b.Reset()
	if err := TraceClass(&b, class, ""); err == nil {
		t.Errorf("expected the error of bad to be returned")
	}
	for _, name := range []string{"R.m(II)I", "R.bad()V", "R.a()V", "R.b()V"} {
		if !strings.Contains(b.String(), name) {
			t.Errorf("expected a trace of %s", name)
		}
	}
	if err := TraceClass(&b, class, "missing"); err == nil {
		t.Errorf("expected an error for a missing routine")
	}
}

func TestWriteGraphviz(t *testing.T) {
	cg := graphutil.NewRoutineGraph(loadClass(t))
	var b bytes.Buffer
	if err := WriteGraphviz(cg, &b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := b.String()
	for _, line := range []string{
		`digraph "com/example/R" {`,
		`  "com/example/R.m(II)I";`,
		`  "com/example/R.a()V" -> "com/example/R.a()V" [color=red];`,
		`  "com/example/R.a()V" -> "com/example/R.b()V" [color=orange];`,
		`  "com/example/R.b()V" -> "com/example/R.a()V" [color=orange];`,
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("expected line %q in:\n%s", line, out)
		}
	}
	if strings.Count(out, "->") != 3 {
		t.Errorf("expected 3 edges in:\n%s", out)
	}

	file := filepath.Join(t.TempDir(), "graph.dot")
	if err := GraphvizToFile(cg, file); err != nil {
		t.Errorf("failed to write graph file: %v", err)
	}
}
