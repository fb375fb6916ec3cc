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

// Package finding defines the records produced by detectors and the sinks that consume them.
package finding

import (
	"fmt"
	"strings"
	"sync"
)

// Severity orders findings from notable to high-confidence
type Severity int

const (
	// Low is for findings of dubious value, mostly reported for completeness
	Low Severity = iota + 1
	// Normal is for notable findings
	Normal
	// High is for high-confidence findings
	High
)

func (s Severity) String() string {
	switch s {
	case Low:
		return "LOW"
	case Normal:
		return "NORMAL"
	case High:
		return "HIGH"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity parses a severity name, case-insensitive
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(name) {
	case "LOW":
		return Low, nil
	case "NORMAL":
		return Normal, nil
	case "HIGH":
		return High, nil
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// Location identifies the instruction a finding is reported at
type Location struct {
	Class     string `json:"class"`
	Routine   string `json:"routine"`
	Signature string `json:"signature"`
	Offset    int    `json:"offset"`
	// Line is the source line, or 0 when unknown
	Line int `json:"line,omitempty"`
}

func (l Location) String() string {
	s := fmt.Sprintf("%s.%s%s@%d", l.Class, l.Routine, l.Signature, l.Offset)
	if l.Line > 0 {
		s += fmt.Sprintf(" (line %d)", l.Line)
	}
	return s
}

// A Finding is one detected defect instance. Findings are values and are not modified after they are emitted.
type Finding struct {
	// Pattern is the stable identifier of the defect pattern (e.g. "self-recursive-call")
	Pattern  string   `json:"pattern"`
	Severity Severity `json:"severity"`
	Location Location `json:"location"`
	// Context is a free-form description
	Context string `json:"context,omitempty"`
	// Detector is the name of the detector that emitted the finding
	Detector string `json:"detector"`
}

func (f Finding) String() string {
	s := fmt.Sprintf("[%s] %s at %s", f.Severity, f.Pattern, f.Location)
	if f.Context != "" {
		s += ": " + f.Context
	}
	return s
}

// A Sink receives the findings emitted by detectors. Sinks do the deduplication, if any.
type Sink interface {
	Report(f Finding)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(Finding)

// Report calls s(f)
func (s SinkFunc) Report(f Finding) {
	s(f)
}

// Emit constructs a finding and forwards it to sink. It returns the finding.
func Emit(sink Sink, detector string, pattern string, severity Severity, loc Location, context string) Finding {
	f := Finding{
		Pattern:  pattern,
		Severity: severity,
		Location: loc,
		Context:  context,
		Detector: detector,
	}
	sink.Report(f)
	return f
}

// Collector is a sink that stores all the findings it receives, in order. It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	findings []Finding
}

// Report appends f to the collected findings
func (c *Collector) Report(f Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings = append(c.findings, f)
}

// Findings returns a copy of the findings collected so far
func (c *Collector) Findings() []Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Finding(nil), c.findings...)
}

// Len returns the number of findings collected
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.findings)
}
