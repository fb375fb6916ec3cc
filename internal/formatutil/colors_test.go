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

package formatutil

import "testing"

func TestColors(t *testing.T) {
	defer AutoColors()

	ForceColors(false)
	if s := Red("a", 1); s != "a1" {
		t.Errorf("expected plain text without colors, got %q", s)
	}
	ForceColors(true)
	if s := Red("x"); s != "\033[1;31mx\033[0m" {
		t.Errorf("expected colored text, got %q", s)
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"plain":      "plain",
		"esc\033[1m": `esc\x1b[1m`,
		"new\nline":  `new\nline`,
		`quote"d`:    `quote\"d`,
		"":           "",
	}
	for in, expected := range tests {
		if got := Sanitize(in); got != expected {
			t.Errorf("Sanitize(%q) = %q, expected %q", in, got, expected)
		}
	}
}
