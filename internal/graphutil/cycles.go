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

package graphutil

import (
	"sort"

	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/topo"
)

// FindAllElementaryCycles finds all elementary cycles in the graph CGraph
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
//
//	cg : the graph with cycles
//
// Each cycle starts with its smallest node id and ends with the same id. Self loops are cycles of length one, e.g.
// [3 3]. Cycles are returned in lexicographic order.
func FindAllElementaryCycles(cg CGraph) [][]int64 {
	s := &state{cycles: [][]int64{}}
	for i, start := range cg.Keys {
		fg := Subgraph(cg, cg.Keys[i:])
		component := componentOf(fg, start)
		if len(component) < 2 && !fg.HasSelfLoop(start) {
			continue
		}
		s.stack = []int64{}
		s.blocked = map[int64]bool{}
		s.blist = map[int64]map[int64]bool{}
		s.circuit(start, start, Subgraph(fg, component))
	}
	sort.Slice(s.cycles, func(i, j int) bool { return slices.Compare(s.cycles[i], s.cycles[j]) < 0 })
	return s.cycles
}

// componentOf returns the strongly connected component of g that contains v
func componentOf(g CGraph, v int64) []int64 {
	for _, component := range graph.StrongComponents(g) {
		if slices.Contains(component, int(v)) {
			ids := make([]int64, len(component))
			for i, w := range component {
				ids[i] = int64(w)
			}
			return ids
		}
	}
	return []int64{v}
}

type state struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *state) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *state) circuit(v int64, i int64, g CGraph) bool {
	f := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range g.successors(v) {
		if w == i {
			stackCopy := make([]int64, len(s.stack))
			copy(stackCopy, s.stack)
			stackCopy = append(stackCopy, w)
			s.cycles = append(s.cycles, stackCopy)
			f = true
		} else if !s.blocked[w] {
			if s.circuit(w, i, g) {
				f = true
			}
		}
	}

	if f {
		s.unblock(v)
	} else {
		for _, w := range g.successors(v) {
			m := s.blist[w]
			if m != nil {
				s.blist[w][v] = true
			} else {
				s.blist[w] = map[int64]bool{v: true}
			}
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return f
}

// RecursiveComponents returns the groups of routines that may call each other recursively: the strongly connected
// components of the call graph with more than one routine, and the routines that call themselves directly.
// The ids in each group are sorted and groups are ordered by their first id.
func RecursiveComponents(cg CGraph) [][]int64 {
	var groups [][]int64
	for _, component := range topo.TarjanSCC(cg) {
		if len(component) == 1 && !cg.HasSelfLoop(component[0].ID()) {
			continue
		}
		ids := make([]int64, len(component))
		for i, n := range component {
			ids[i] = n.ID()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups = append(groups, ids)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}
