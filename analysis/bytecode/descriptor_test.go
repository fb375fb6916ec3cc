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

package bytecode

import (
	"testing"

	"golang.org/x/exp/slices"
)

func TestParseMethodDescriptor(t *testing.T) {
	tests := []struct {
		desc   string
		params []string
		ret    string
		slots  int
	}{
		{"()V", nil, "V", 0},
		{"(III)V", []string{"I", "I", "I"}, "V", 3},
		{"(Ljava/lang/Object;)Z", []string{"Ljava/lang/Object;"}, "Z", 1},
		{"(JD[I)Ljava/lang/String;", []string{"J", "D", "[I"}, "Ljava/lang/String;", 5},
		{"([[Ljava/util/List;B)[J", []string{"[[Ljava/util/List;", "B"}, "[J", 2},
	}
	for _, test := range tests {
		mt, err := ParseMethodDescriptor(test.desc)
		if err != nil {
			t.Fatalf("unexpected error parsing %q: %v", test.desc, err)
		}
		if !slices.Equal(mt.Params, test.params) {
			t.Errorf("%q: expected params %v, got %v", test.desc, test.params, mt.Params)
		}
		if mt.Return != test.ret {
			t.Errorf("%q: expected return %q, got %q", test.desc, test.ret, mt.Return)
		}
		if mt.ArgumentSlots() != test.slots {
			t.Errorf("%q: expected %d slots, got %d", test.desc, test.slots, mt.ArgumentSlots())
		}
	}
}

func TestParseMethodDescriptorErrors(t *testing.T) {
	for _, desc := range []string{"", "V", "(I", "(Q)V", "(Ljava/lang/Object)V", "(I)", "(I)II", "(I)Lfoo"} {
		if _, err := ParseMethodDescriptor(desc); err == nil {
			t.Errorf("expected an error for %q", desc)
		}
	}
}

func TestParseFieldDescriptor(t *testing.T) {
	if _, err := ParseFieldDescriptor("Ljava/util/Map;"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseFieldDescriptor("II"); err == nil {
		t.Errorf("expected an error for a descriptor with trailing characters")
	}
}

func TestStackType(t *testing.T) {
	for _, typ := range []string{"Z", "B", "C", "S", "I"} {
		if StackType(typ) != TypeInt {
			t.Errorf("expected %s to widen to int", typ)
		}
	}
	if StackType(TypeLong) != TypeLong || !IsWide(TypeLong) || !IsWide(TypeDouble) || IsWide(TypeObject) {
		t.Errorf("wrong category for long, double or object")
	}
}

func TestObjectType(t *testing.T) {
	if ObjectType("java/lang/String") != TypeString {
		t.Errorf("expected %s", TypeString)
	}
	if ObjectType("[I") != "[I" {
		t.Errorf("array class names should be kept")
	}
}
