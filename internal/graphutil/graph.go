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

	"github.com/awslabs/argot-bytecode/analysis/bytecode"
	"gonum.org/v1/gonum/graph"
)

// CGraph is the call graph between the routines of a class. It implements the methods to satisfy yourbasic's
// graph.Iterator and Gonum's graph.Directed, so that both libraries' algorithms can run on it.
// Only invocations whose reference resolves to a routine of the same class are edges; self-calls are self loops.
type CGraph struct {
	// The order of the graph
	order int

	// Class is the class the graph was constructed from
	Class *bytecode.Class

	// IDMap maps from node IDs to CNodes. A node ID is the index of the routine in Class.Routines.
	IDMap map[int64]CNode

	// Keys are all the node IDs, in increasing order
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool
}

type routineKey struct {
	name      string
	signature string
}

// NewRoutineGraph returns the call graph of the routines of class
func NewRoutineGraph(class *bytecode.Class) CGraph {
	n := len(class.Routines)
	idmap := make(map[int64]CNode, n)
	edges := make(map[int64]map[int64]bool, n)
	keys := make([]int64, n)
	byKey := make(map[routineKey]int64, n)

	for i, r := range class.Routines {
		id := int64(i)
		keys[i] = id
		idmap[id] = CNode{id: id, Routine: r}
		edges[id] = map[int64]bool{}
		if _, ok := byKey[routineKey{r.Name, r.Signature}]; !ok {
			byKey[routineKey{r.Name, r.Signature}] = id
		}
	}

	for i, r := range class.Routines {
		for j := range r.Instructions {
			in := &r.Instructions[j]
			if !in.IsInvoke() || in.Ref == nil || in.Ref.Class != class.Name {
				continue
			}
			if callee, ok := byKey[routineKey{in.Ref.Name, in.Ref.Signature}]; ok {
				edges[int64(i)][callee] = true
			}
		}
	}

	return CGraph{
		order: n,
		Class: class,
		IDMap: idmap,
		Edges: edges,
		Keys:  keys,
	}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order and Class are the same as in origin, meaning that node indices will stay consistent
// across subgraphs.
func Subgraph(original CGraph, include []int64) CGraph {
	idmap := make(map[int64]CNode, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, len(include))

	for j, i := range include {
		keys[j] = i
		idmap[i] = original.IDMap[i]
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if _, ok := idmap[e]; ok {
				edges[i][e] = true
			}
		}
	}

	return CGraph{
		order: original.Order(),
		Class: original.Class,
		IDMap: idmap,
		Edges: edges,
		Keys:  keys,
	}
}

// Order implements the order of the graph.Iterator interface for the CGraph
func (c CGraph) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the CGraph
func (c CGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.IDMap[int64(v)]; !ok {
		return false
	}
	for _, w := range c.successors(int64(v)) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// successors returns the targets of the edges out of v, in increasing order
func (c CGraph) successors(v int64) []int64 {
	out := make([]int64, 0, len(c.Edges[v]))
	for w := range c.Edges[v] {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasSelfLoop returns true if the routine with the given id calls itself directly
func (c CGraph) HasSelfLoop(id int64) bool {
	return c.Edges[id][id]
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface. It returns nil when no node has that id.
func (c CGraph) Node(id int64) graph.Node {
	n, ok := c.IDMap[id]
	if !ok {
		return nil
	}
	return n
}

// Nodes returns the set of nodes in the graph
func (c CGraph) Nodes() graph.Nodes {
	keys := make([]int64, len(c.Keys))
	copy(keys, c.Keys)
	return newNodeSet(c.IDMap, keys)
}

// From returns the set of nodes reachable from the id
func (c CGraph) From(id int64) graph.Nodes {
	return newNodeSet(c.IDMap, c.successors(id))
}

// To returns the set of nodes that have an edge to the id
func (c CGraph) To(id int64) graph.Nodes {
	var keys []int64
	for _, k := range c.Keys {
		if c.Edges[k][id] {
			keys = append(keys, k)
		}
	}
	return newNodeSet(c.IDMap, keys)
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c CGraph) HasEdgeBetween(xid, yid int64) bool {
	xe := c.Edges[xid]
	ye := c.Edges[yid]
	return xe[yid] || ye[xid]
}

// HasEdgeFromTo returns a boolean indicating whether there is an edge from uid to vid
func (c CGraph) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c CGraph) Edge(uid, vid int64) graph.Edge {
	ue := c.Edges[uid]
	if ue != nil {
		if ue[vid] {
			return CEdge{from: c.IDMap[uid], to: c.IDMap[vid]}
		}
	}
	return nil
}

// *************** Nodes implementation **********************

// CNode is a wrapper around a *bytecode.Routine that implements the graph.Node interface
type CNode struct {
	id      int64
	Routine *bytecode.Routine
}

// ID returns the id of the node
func (n CNode) ID() int64 {
	return n.id
}

func (n CNode) String() string {
	if n.Routine == nil {
		return ""
	}
	return n.Routine.FullName()
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	// nodes is the set of nodes in the iterator
	nodes map[int64]CNode

	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator. The current node is nodes[ids[cur]].
	// invariant: -1 <= cur < len(ids); -1 means Next has not been called yet
	cur int
}

func newNodeSet(nodes map[int64]CNode, ids []int64) *NodeSet {
	return &NodeSet{nodes: nodes, ids: ids, cur: -1}
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset resets the iterator to its initial state
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return ns.nodes[ns.ids[ns.cur]]
}

// *************** Edge implementation **********************

// CEdge implements the graph.Edge interface
type CEdge struct {
	from CNode
	to   CNode
}

// From returns the origin of the edge
func (e CEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e CEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e CEdge) ReversedEdge() graph.Edge {
	return CEdge{from: e.to, to: e.from}
}
