package ast

import (
	"fmt"
	"sort"
)

// TrailingToken is the token a parser stopped at without consuming it.
// Completion uses it to recover the text a user is typing where the
// grammar could not place it.
type TrailingToken struct {
	Text  string     `json:"text"`
	Range TokenRange `json:"range"`
}

// Graph is an arena of materialized and pending nodes with parent links,
// ordered children and the ordered list of leaf ids.
//
// A Graph is not safe for concurrent mutation. Once built it is read-only
// and may be shared by concurrent readers.
type Graph struct {
	nodes    map[int]NodeRef
	parents  map[int]int
	children map[int][]int
	leafIDs  []int
	rootID   int
	nextID   int
	trailing *TrailingToken
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[int]NodeRef),
		parents:  make(map[int]int),
		children: make(map[int][]int),
		nextID:   1,
	}
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Root returns the root node.
func (g *Graph) Root() (NodeRef, bool) { return g.Node(g.rootID) }

// RootID returns the root node id, or 0 for an empty graph.
func (g *Graph) RootID() int { return g.rootID }

// Node returns the node with the given id.
func (g *Graph) Node(id int) (NodeRef, bool) {
	ref, ok := g.nodes[id]
	return ref, ok
}

// ParentID returns the parent id of a node; false for the root or an
// unknown id.
func (g *Graph) ParentID(id int) (int, bool) {
	p, ok := g.parents[id]
	return p, ok
}

// Parent returns the parent of a node.
func (g *Graph) Parent(id int) (NodeRef, bool) {
	p, ok := g.parents[id]
	if !ok {
		return NodeRef{}, false
	}
	return g.Node(p)
}

// ChildIDs returns the children of a node ordered by attribute index.
// The returned slice must not be modified.
func (g *Graph) ChildIDs(id int) []int { return g.children[id] }

// Children returns the children of a node ordered by attribute index.
func (g *Graph) Children(id int) []NodeRef {
	ids := g.children[id]
	refs := make([]NodeRef, 0, len(ids))
	for _, c := range ids {
		refs = append(refs, g.nodes[c])
	}
	return refs
}

// Child returns the child of a node at the given attribute index.
func (g *Graph) Child(id, attr int) (NodeRef, bool) {
	for _, c := range g.children[id] {
		ref := g.nodes[c]
		if ref.AttributeIndex() == attr {
			return ref, true
		}
	}
	return NodeRef{}, false
}

// ExpectChild returns a required child. A materialized parent missing the
// child, or a child of an unexpected kind, is an invariant failure. A
// pending parent may simply not have reached the slot yet, which is
// reported as (zero, false, nil).
func (g *Graph) ExpectChild(id, attr int, kinds ...NodeKind) (NodeRef, bool, error) {
	parent, ok := g.Node(id)
	if !ok {
		return NodeRef{}, false, &InvariantError{NodeID: id, Message: "unknown node id"}
	}
	child, ok := g.Child(id, attr)
	if !ok {
		if parent.IsMaterialized() {
			return NodeRef{}, false, &InvariantError{
				NodeID:  id,
				Kind:    parent.Kind(),
				Message: fmt.Sprintf("missing required child at attribute %d", attr),
			}
		}
		return NodeRef{}, false, nil
	}
	if err := checkKind(parent, child, attr, kinds); err != nil {
		return NodeRef{}, false, err
	}
	return child, true, nil
}

// OptionalChild returns a child that may legitimately be absent. Only a
// kind mismatch is an error.
func (g *Graph) OptionalChild(id, attr int, kinds ...NodeKind) (NodeRef, bool, error) {
	parent, ok := g.Node(id)
	if !ok {
		return NodeRef{}, false, &InvariantError{NodeID: id, Message: "unknown node id"}
	}
	child, ok := g.Child(id, attr)
	if !ok {
		return NodeRef{}, false, nil
	}
	if err := checkKind(parent, child, attr, kinds); err != nil {
		return NodeRef{}, false, err
	}
	return child, true, nil
}

func checkKind(parent, child NodeRef, attr int, kinds []NodeKind) error {
	if len(kinds) == 0 {
		return nil
	}
	for _, k := range kinds {
		if child.Kind() == k {
			return nil
		}
	}
	return &InvariantError{
		NodeID:  parent.ID(),
		Kind:    parent.Kind(),
		Message: fmt.Sprintf("attribute %d has unexpected kind %s", attr, child.Kind()),
	}
}

// LeafIDs returns the ids of all materialized leaves in token order.
// The returned slice must not be modified.
func (g *Graph) LeafIDs() []int { return g.leafIDs }

// PendingIDs returns the ids of all pending nodes in ascending order.
func (g *Graph) PendingIDs() []int {
	var ids []int
	for id, ref := range g.nodes {
		if ref.IsPending() {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Depth returns the number of ancestors above a node.
func (g *Graph) Depth(id int) int {
	depth := 0
	for {
		p, ok := g.parents[id]
		if !ok {
			return depth
		}
		depth++
		id = p
	}
}

// Trailing returns the token the parser stopped at, if any.
func (g *Graph) Trailing() (TrailingToken, bool) {
	if g.trailing == nil {
		return TrailingToken{}, false
	}
	return *g.trailing, true
}

// Walk visits id and its descendants depth-first in attribute order. The
// walk stops early when fn returns false.
func (g *Graph) Walk(id int, fn func(NodeRef) bool) {
	g.walk(id, fn)
}

func (g *Graph) walk(id int, fn func(NodeRef) bool) bool {
	ref, ok := g.nodes[id]
	if !ok {
		return true
	}
	if !fn(ref) {
		return false
	}
	for _, c := range g.children[id] {
		if !g.walk(c, fn) {
			return false
		}
	}
	return true
}

// IsDescendant reports whether id lies in the subtree rooted at ancestorID
// (a node is its own descendant).
func (g *Graph) IsDescendant(id, ancestorID int) bool {
	for {
		if id == ancestorID {
			return true
		}
		p, ok := g.parents[id]
		if !ok {
			return false
		}
		id = p
	}
}
