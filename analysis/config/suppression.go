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

package config

import "regexp"

// A Suppression identifies findings: the class, routine name, routine signature and pattern of a finding. In the
// config, each non-empty field is a regex, or a plain string if it does not compile as a regex.
type Suppression struct {
	Class     string `yaml:"class" toml:"class"`
	Routine   string `yaml:"routine" toml:"routine"`
	Signature string `yaml:"signature" toml:"signature"`
	Pattern   string `yaml:"pattern" toml:"pattern"`
	// This will not be part of the config file
	computedRegexs *suppressionRegex
}

type suppressionRegex struct {
	classRegex     *regexp.Regexp
	routineRegex   *regexp.Regexp
	signatureRegex *regexp.Regexp
	patternRegex   *regexp.Regexp
}

// compileRegexes compiles the strings in the suppression into regexes. It compiles all fields into regexes
// or none. Regexes are anchored: a field matches when the whole string matches.
func compileRegexes(s Suppression) Suppression {
	var rs [4]*regexp.Regexp
	for i, f := range []string{s.Class, s.Routine, s.Signature, s.Pattern} {
		r, err := regexp.Compile("^(?:" + f + ")$")
		if err != nil {
			return s
		}
		rs[i] = r
	}
	s.computedRegexs = &suppressionRegex{rs[0], rs[1], rs[2], rs[3]}
	return s
}

// matchesOnNonEmptyFields returns true if each of the fields of ref is either empty or matches the
// corresponding field of s.
func (s Suppression) matchesOnNonEmptyFields(ref Suppression) bool {
	if ref.computedRegexs != nil {
		return (ref.Class == "" || ref.computedRegexs.classRegex.MatchString(s.Class)) &&
			(ref.Routine == "" || ref.computedRegexs.routineRegex.MatchString(s.Routine)) &&
			(ref.Signature == "" || ref.computedRegexs.signatureRegex.MatchString(s.Signature)) &&
			(ref.Pattern == "" || ref.computedRegexs.patternRegex.MatchString(s.Pattern))
	}
	return (ref.Class == "" || ref.Class == s.Class) &&
		(ref.Routine == "" || ref.Routine == s.Routine) &&
		(ref.Signature == "" || ref.Signature == s.Signature) &&
		(ref.Pattern == "" || ref.Pattern == s.Pattern)
}
