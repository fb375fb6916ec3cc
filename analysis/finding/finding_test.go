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

package finding

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestSeverityOrder(t *testing.T) {
	if !(Low < Normal && Normal < High) {
		t.Errorf("severities should be ordered")
	}
	for _, s := range []Severity{Low, Normal, High} {
		p, err := ParseSeverity(strings.ToLower(s.String()))
		if err != nil || p != s {
			t.Errorf("failed to parse %s: %v", s, err)
		}
	}
	if _, err := ParseSeverity("critical"); err == nil {
		t.Errorf("expected an error for an unknown severity")
	}
}

func TestEmit(t *testing.T) {
	c := &Collector{}
	loc := Location{Class: "A", Routine: "f", Signature: "(III)V", Offset: 4, Line: 10}
	f := Emit(c, "recursion", "self-recursive-call", High, loc, "calls itself")
	if c.Len() != 1 || c.Findings()[0] != f {
		t.Fatalf("expected the emitted finding to be collected")
	}
	expected := "[HIGH] self-recursive-call at A.f(III)V@4 (line 10): calls itself"
	if f.String() != expected {
		t.Errorf("expected %q, got %q", expected, f.String())
	}
}

func TestFindingJSON(t *testing.T) {
	f := Finding{Pattern: "self-containing-add", Severity: Normal,
		Location: Location{Class: "A", Routine: "g", Signature: "()V", Offset: 7}, Detector: "recursion"}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if !strings.Contains(string(b), `"severity":"NORMAL"`) {
		t.Errorf("severity should be marshaled by name: %s", b)
	}
	var g Finding
	if err := json.Unmarshal(b, &g); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if g != f {
		t.Errorf("expected %v, got %v", f, g)
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := &Collector{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			SinkFunc(c.Report).Report(Finding{Pattern: "p", Location: Location{Offset: i}})
		}(i)
	}
	wg.Wait()
	if c.Len() != 8 {
		t.Errorf("expected 8 findings, got %d", c.Len())
	}
}
