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
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// A Listing is the serialized form of a decoded class, as produced by the class file decoder. Listings are read
// from YAML documents or from CBOR data items.
type Listing struct {
	Class    string           `yaml:"class" cbor:"class"`
	Routines []ListingRoutine `yaml:"routines" cbor:"routines"`
}

// A ListingRoutine is the serialized form of a Routine
type ListingRoutine struct {
	Name         string               `yaml:"name" cbor:"name"`
	Signature    string               `yaml:"signature" cbor:"signature"`
	Static       bool                 `yaml:"static,omitempty" cbor:"static,omitempty"`
	MaxLocals    int                  `yaml:"max-locals,omitempty" cbor:"max-locals,omitempty"`
	Handlers     []int                `yaml:"handlers,omitempty" cbor:"handlers,omitempty"`
	Instructions []ListingInstruction `yaml:"instructions" cbor:"instructions"`
}

// A ListingInstruction is the serialized form of an Instruction; the opcode is given by its mnemonic.
type ListingInstruction struct {
	Offset     int         `yaml:"offset" cbor:"offset"`
	Op         string      `yaml:"op" cbor:"op"`
	Line       int         `yaml:"line,omitempty" cbor:"line,omitempty"`
	Register   int         `yaml:"register,omitempty" cbor:"register,omitempty"`
	Increment  int         `yaml:"increment,omitempty" cbor:"increment,omitempty"`
	Constant   any         `yaml:"constant,omitempty" cbor:"constant,omitempty"`
	Ref        *ListingRef `yaml:"ref,omitempty" cbor:"ref,omitempty"`
	Class      string      `yaml:"class,omitempty" cbor:"class,omitempty"`
	Dimensions int         `yaml:"dimensions,omitempty" cbor:"dimensions,omitempty"`
	Targets    []int       `yaml:"targets,omitempty" cbor:"targets,omitempty"`
}

// A ListingRef is the serialized form of a MemberRef
type ListingRef struct {
	Class     string `yaml:"class" cbor:"class"`
	Name      string `yaml:"name" cbor:"name"`
	Signature string `yaml:"signature" cbor:"signature"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoding options: %v", err))
	}
	cborEncMode = em
}

// DecodeYAML decodes all the class listings in the YAML stream data (one class per document) and validates them.
func DecodeYAML(data []byte) ([]*Class, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var classes []*Class
	for {
		var l Listing
		err := dec.Decode(&l)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not decode yaml class listing: %w", err)
		}
		c, err := l.ToClass()
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// DecodeCBOR decodes the sequence of CBOR class listings in data and validates them.
func DecodeCBOR(data []byte) ([]*Class, error) {
	dec := cbor.NewDecoder(bytes.NewReader(data))
	var classes []*Class
	for {
		var l Listing
		err := dec.Decode(&l)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not decode cbor class listing: %w", err)
		}
		c, err := l.ToClass()
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// EncodeCBOR encodes the classes as a sequence of canonical CBOR listings
func EncodeCBOR(classes []*Class) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range classes {
		b, err := cborEncMode.Marshal(ListingOf(c))
		if err != nil {
			return nil, fmt.Errorf("could not encode class %s: %w", c.Name, err)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// ToClass converts the listing into a Class. Unknown mnemonics and unsupported constants are errors; the routines
// are not validated.
func (l Listing) ToClass() (*Class, error) {
	c := &Class{Name: l.Class}
	for _, lr := range l.Routines {
		r := &Routine{
			Class:     l.Class,
			Name:      lr.Name,
			Signature: lr.Signature,
			Static:    lr.Static,
			MaxLocals: lr.MaxLocals,
			Handlers:  lr.Handlers,
		}
		for _, li := range lr.Instructions {
			in, err := li.instruction()
			if err != nil {
				return nil, fmt.Errorf("class %s, routine %s: %w", l.Class, lr.Name, err)
			}
			r.Instructions = append(r.Instructions, in)
		}
		c.Routines = append(c.Routines, r)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (li ListingInstruction) instruction() (Instruction, error) {
	op, ok := OpcodeByName(li.Op)
	if !ok {
		return Instruction{}, fmt.Errorf("unknown opcode %q at offset %d", li.Op, li.Offset)
	}
	k, err := normalizeConstant(li.Constant)
	if err != nil {
		return Instruction{}, fmt.Errorf("offset %d: %w", li.Offset, err)
	}
	in := Instruction{
		Offset:     li.Offset,
		Opcode:     op,
		Line:       li.Line,
		Register:   li.Register,
		Increment:  li.Increment,
		Constant:   k,
		ClassName:  li.Class,
		Dimensions: li.Dimensions,
		Targets:    li.Targets,
	}
	if li.Ref != nil {
		in.Ref = &MemberRef{Class: li.Ref.Class, Name: li.Ref.Name, Signature: li.Ref.Signature}
	}
	return in, nil
}

// normalizeConstant maps the numeric types produced by the yaml and cbor decoders to int64 and float64
func normalizeConstant(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("constant %d out of range", x)
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	default:
		return nil, fmt.Errorf("unsupported constant %v of type %T", v, v)
	}
}

// ListingOf returns the serialized form of class c
func ListingOf(c *Class) Listing {
	l := Listing{Class: c.Name}
	for _, r := range c.Routines {
		lr := ListingRoutine{
			Name:      r.Name,
			Signature: r.Signature,
			Static:    r.Static,
			MaxLocals: r.MaxLocals,
			Handlers:  r.Handlers,
		}
		for _, in := range r.Instructions {
			li := ListingInstruction{
				Offset:     in.Offset,
				Op:         in.Opcode.String(),
				Line:       in.Line,
				Register:   in.Register,
				Increment:  in.Increment,
				Constant:   in.Constant,
				Class:      in.ClassName,
				Dimensions: in.Dimensions,
				Targets:    in.Targets,
			}
			if in.Ref != nil {
				li.Ref = &ListingRef{Class: in.Ref.Class, Name: in.Ref.Name, Signature: in.Ref.Signature}
			}
			lr.Instructions = append(lr.Instructions, li)
		}
		l.Routines = append(l.Routines, lr)
	}
	return l
}
