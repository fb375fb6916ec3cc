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

package funcutil

import (
	"fmt"
	"testing"
)

func TestMaxOption(t *testing.T) {
	x := None[int]()
	x = MaxOption(x, 0)
	if x.IsNone() || x.Value() != 0 {
		t.Fatalf("expected some 0, got %v", x)
	}
	x = MaxOption(x, 12)
	x = MaxOption(x, 3)
	if x.Value() != 12 {
		t.Errorf("expected 12, got %v", x)
	}
}

func TestMapOption(t *testing.T) {
	s := MapOption(Some(4), func(i int) string { return fmt.Sprintf("@%d", i) })
	if s.ValueOr("") != "@4" {
		t.Errorf("expected @4, got %v", s)
	}
	n := MapOption(None[int](), func(i int) string { return "unreachable" })
	if n.IsSome() || n.ValueOr("none") != "none" {
		t.Errorf("expected none, got %v", n)
	}
	if fmt.Sprintf("%v", None[int]()) != "none" {
		t.Errorf("unexpected format of none")
	}
}
