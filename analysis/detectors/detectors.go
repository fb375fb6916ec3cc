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

// Package detectors contains the detector modules run by the walker.
//
// The recursion detector is stateful: it caches the header of the routine being analyzed at routine entry. The
// self-assignment detector is stateless and a single instance serves all analyses.
package detectors

import (
	"github.com/awslabs/argot-bytecode/analysis/walker"
)

// Patterns reported by the detectors
const (
	// PatternSelfRecursiveCall is a call of a routine to itself that cannot terminate
	PatternSelfRecursiveCall = "self-recursive-call"
	// PatternSelfContainingAdd is a collection being added to itself
	PatternSelfContainingAdd = "self-containing-add"
	// PatternSelfAssignment is a local variable assigned to itself
	PatternSelfAssignment = "self-assignment-local"
)

// Registrations returns the registrations of all the detectors of the package
func Registrations() []walker.Registration {
	return []walker.Registration{
		{Name: RecursionName, Capability: walker.Stateful, New: func() walker.Detector { return NewRecursion() }},
		{Name: SelfAssignmentName, Capability: walker.Stateless, New: func() walker.Detector { return SelfAssignment{} }},
	}
}

// Register registers all the detectors of the package in registry
func Register(registry *walker.Registry) error {
	for _, reg := range Registrations() {
		if err := registry.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry with all the detectors of the package
func NewRegistry() *walker.Registry {
	r := walker.NewRegistry()
	for _, reg := range Registrations() {
		r.MustRegister(reg)
	}
	return r
}
