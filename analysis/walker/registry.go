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
	"fmt"
	"sort"
	"sync"
)

// A Capability tells whether a detector instance can be shared between concurrent routine analyses
type Capability int

const (
	// Stateless detectors keep no state between callbacks. A single instance is shared by all analyses.
	Stateless Capability = iota + 1
	// Stateful detectors mutate per-routine fields. Each analysis unit gets a fresh instance.
	Stateful
)

func (c Capability) String() string {
	switch c {
	case Stateless:
		return "stateless"
	case Stateful:
		return "stateful"
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// A Registration declares a detector to a Registry
type Registration struct {
	Name       string
	Capability Capability
	// New returns a new instance of the detector
	New func() Detector
}

// A Registry holds the detectors available to the analysis. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	regs   map[string]Registration
	shared map[string]Detector
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{regs: map[string]Registration{}, shared: map[string]Detector{}}
}

// Register adds a detector to the registry. It fails if the registration has no name, no factory, an unknown
// capability, a name that is already registered, or a factory building detectors with a different name.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("detector registration without a name")
	}
	if reg.New == nil {
		return fmt.Errorf("detector %s: no factory", reg.Name)
	}
	if reg.Capability != Stateless && reg.Capability != Stateful {
		return fmt.Errorf("detector %s: unknown capability %s", reg.Name, reg.Capability)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.regs[reg.Name]; ok {
		return fmt.Errorf("detector %s is already registered", reg.Name)
	}
	d := reg.New()
	if d == nil || d.Name() != reg.Name {
		return fmt.Errorf("detector %s: factory builds a different detector", reg.Name)
	}
	r.regs[reg.Name] = reg
	if reg.Capability == Stateless {
		r.shared[reg.Name] = d
	}
	return nil
}

// MustRegister is Register, panicking on errors
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Names returns the names of the registered detectors, sorted
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.regs))
	for name := range r.regs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Capability returns the capability of the detector registered under name
func (r *Registry) Capability(name string) (Capability, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[name]
	return reg.Capability, ok
}

// Instantiate returns the detectors for one analysis unit, in name order: the shared instance of stateless detectors
// and a fresh instance of stateful ones. Detectors for which enabled returns false are left out; a nil enabled
// function enables all detectors.
func (r *Registry) Instantiate(enabled func(name string) bool) []Detector {
	var detectors []Detector
	for _, name := range r.Names() {
		if enabled != nil && !enabled(name) {
			continue
		}
		r.mu.Lock()
		reg := r.regs[name]
		shared := r.shared[name]
		r.mu.Unlock()
		if reg.Capability == Stateless {
			detectors = append(detectors, shared)
		} else {
			detectors = append(detectors, reg.New())
		}
	}
	return detectors
}
