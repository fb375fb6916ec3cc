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

// Package analysistest loads the test fixtures of the analyses.
//
// A fixture is a txtar archive. The comment of the archive describes the test. The archive holds:
//   - one or more class listings, in files ending with .yaml,
//   - an optional config.yaml, the configuration of the analysis.
//
// The expected findings are annotated in the listings, with comments of the form "@Finding(pattern)" on the line of
// the instruction where the finding is expected. Several patterns are separated by commas.
package analysistest

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"github.com/awslabs/argot-bytecode/analysis/config"
	"github.com/awslabs/argot-bytecode/analysis/finding"
	"golang.org/x/tools/txtar"
)

// Match annotations of the form "@Finding(pattern1, pattern2)"
var findingRegex = regexp.MustCompile(`#.*@Finding\(((?:\s*[\w-]+\s*,?)+)\)`)

var (
	classRegex   = regexp.MustCompile(`^class:\s*(\S+)`)
	routineRegex = regexp.MustCompile(`^\s*-\s*name:\s*(\S+)`)
	offsetRegex  = regexp.MustCompile(`offset:\s*(\d+)`)
)

// An Expectation is a finding expected at an instruction
type Expectation struct {
	Class   string
	Routine string
	Offset  int
	Pattern string
}

func (e Expectation) String() string {
	return fmt.Sprintf("%s at %s.%s@%d", e.Pattern, e.Class, e.Routine, e.Offset)
}

// ExpectationOf returns the expectation satisfied by f
func ExpectationOf(f finding.Finding) Expectation {
	return Expectation{
		Class:   f.Location.Class,
		Routine: f.Location.Routine,
		Offset:  f.Location.Offset,
		Pattern: f.Pattern,
	}
}

// A Fixture is a loaded test fixture
type Fixture struct {
	// Name is the path of the archive
	Name string
	// Comment is the description of the test
	Comment string
	// Classes are the classes of all the listings of the archive
	Classes []*bytecode.Class
	// Config is the configuration in config.yaml, or the default configuration
	Config *config.Config
	// Expected is the set of expected findings
	Expected map[Expectation]bool
}

// LoadFixture loads the txtar archive at name in fsys
func LoadFixture(fsys fs.FS, name string) (*Fixture, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("could not read fixture: %w", err)
	}
	ar := txtar.Parse(data)
	fx := &Fixture{
		Name:     name,
		Comment:  strings.TrimSpace(string(ar.Comment)),
		Config:   config.NewDefault(),
		Expected: map[Expectation]bool{},
	}
	for _, file := range ar.Files {
		switch {
		case file.Name == "config.yaml":
			cfg, err := config.Parse(path.Join(name, file.Name), file.Data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			fx.Config = cfg
		case strings.HasSuffix(file.Name, ".yaml"):
			classes, err := bytecode.DecodeYAML(file.Data)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", name, file.Name, err)
			}
			for _, c := range classes {
				c.Source = file.Name
			}
			fx.Classes = append(fx.Classes, classes...)
			if err := scanAnnotations(file.Data, fx.Expected); err != nil {
				return nil, fmt.Errorf("%s/%s: %w", name, file.Name, err)
			}
		default:
			return nil, fmt.Errorf("%s: unexpected file %s in fixture", name, file.Name)
		}
	}
	if len(fx.Classes) == 0 {
		return nil, fmt.Errorf("%s: no class listing in fixture", name)
	}
	return fx, nil
}

// LoadFixtures loads all the .txtar archives in directory dir of fsys, in name order
func LoadFixtures(fsys fs.FS, dir string) ([]*Fixture, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.txtar"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	var fixtures []*Fixture
	for _, name := range names {
		fx, err := LoadFixture(fsys, name)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, fx)
	}
	return fixtures, nil
}

// scanAnnotations adds the expectations annotated in the listing data to expected
func scanAnnotations(data []byte, expected map[Expectation]bool) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	class, routine := "", ""
	lineNum := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if m := classRegex.FindStringSubmatch(line); m != nil {
			class = m[1]
			continue
		}
		if m := routineRegex.FindStringSubmatch(line); m != nil {
			routine = m[1]
			continue
		}
		a := findingRegex.FindStringSubmatch(line)
		if a == nil {
			continue
		}
		o := offsetRegex.FindStringSubmatch(line)
		if o == nil {
			return fmt.Errorf("line %d: @Finding annotation on a line without an offset", lineNum)
		}
		offset, err := strconv.Atoi(o[1])
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		for _, pattern := range strings.Split(a[1], ",") {
			expected[Expectation{class, routine, offset, strings.TrimSpace(pattern)}] = true
		}
	}
	return scanner.Err()
}

// Compare returns the expected findings that are not in findings, and the findings that were not expected
func (fx *Fixture) Compare(findings []finding.Finding) (missing []Expectation, unexpected []Expectation) {
	seen := map[Expectation]bool{}
	for _, f := range findings {
		e := ExpectationOf(f)
		if !fx.Expected[e] {
			unexpected = append(unexpected, e)
		}
		seen[e] = true
	}
	for e := range fx.Expected {
		if !seen[e] {
			missing = append(missing, e)
		}
	}
	sortExpectations(missing)
	sortExpectations(unexpected)
	return missing, unexpected
}

// Check fails the test if findings do not match the expected findings exactly
func (fx *Fixture) Check(t *testing.T, findings []finding.Finding) {
	t.Helper()
	missing, unexpected := fx.Compare(findings)
	for _, e := range missing {
		t.Errorf("%s: missing finding %s", fx.Name, e)
	}
	for _, e := range unexpected {
		t.Errorf("%s: unexpected finding %s", fx.Name, e)
	}
}

func sortExpectations(es []Expectation) {
	sort.Slice(es, func(i, j int) bool {
		return es[i].String() < es[j].String()
	})
}
