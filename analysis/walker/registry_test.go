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
	"testing"

	"golang.org/x/exp/slices"
)

type named struct {
	reporter
	name string
}

func (n named) Name() string { return n.name }

func TestRegister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Registration{Name: "reporter", Capability: Stateless,
		New: func() Detector { return reporter{} }}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(Registration{Name: "recorder", Capability: Stateful,
		New: func() Detector { return &recorder{} }}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(r.Names(), []string{"recorder", "reporter"}) {
		t.Errorf("unexpected names %v", r.Names())
	}
	if c, ok := r.Capability("recorder"); !ok || c != Stateful {
		t.Errorf("expected recorder to be stateful")
	}

	bad := []Registration{
		{Name: "", Capability: Stateless, New: func() Detector { return reporter{} }},
		{Name: "x", Capability: Stateless},
		{Name: "x", Capability: Capability(7), New: func() Detector { return named{name: "x"} }},
		{Name: "reporter", Capability: Stateless, New: func() Detector { return reporter{} }},
		{Name: "y", Capability: Stateful, New: func() Detector { return named{name: "z"} }},
		{Name: "y", Capability: Stateful, New: func() Detector { return nil }},
	}
	for _, reg := range bad {
		if err := r.Register(reg); err == nil {
			t.Errorf("expected registration %q (%s) to fail", reg.Name, reg.Capability)
		}
	}
}

func TestInstantiate(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Registration{Name: "reporter", Capability: Stateless,
		New: func() Detector { return &named{name: "reporter"} }})
	r.MustRegister(Registration{Name: "recorder", Capability: Stateful,
		New: func() Detector { return &recorder{} }})

	first := r.Instantiate(nil)
	second := r.Instantiate(nil)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 detectors, got %d and %d", len(first), len(second))
	}
	// name order: recorder, reporter
	if first[0] == second[0] {
		t.Errorf("stateful detectors should be fresh instances")
	}
	if first[1] != second[1] {
		t.Errorf("stateless detectors should be shared")
	}

	only := r.Instantiate(func(name string) bool { return name != "recorder" })
	if len(only) != 1 || only[0].Name() != "reporter" {
		t.Errorf("expected only the reporter detector, got %v", only)
	}
}
