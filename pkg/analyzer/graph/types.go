package graph

import "github.com/panbanda/pqinspect/pkg/analyzer/scope"

// Node is one binding of a let expression, record or section.
type Node struct {
	// ID is the binding key as declared.
	ID          string         `json:"id" toon:"id"`
	Kind        scope.ItemKind `json:"kind" toon:"kind"`
	KeyNodeID   int            `json:"keyNodeId" toon:"keyNodeId"`
	ValueNodeID int            `json:"valueNodeId,omitempty" toon:"valueNodeId,omitempty"`
	Line        uint32         `json:"line" toon:"line"`
}

// Edge records that the value of From refers to the binding To.
type Edge struct {
	From string   `json:"from" toon:"from"`
	To   string   `json:"to" toon:"to"`
	Type EdgeType `json:"type" toon:"type"`
}

// EdgeType represents the type of dependency.
type EdgeType string

const (
	// EdgeReference is a plain identifier reference.
	EdgeReference EdgeType = "reference"
	// EdgeRecursive is an `@name` or self reference.
	EdgeRecursive EdgeType = "recursive"
)

// String returns the string representation.
func (e EdgeType) String() string {
	return string(e)
}

// DependencyGraph holds the sibling bindings of one container node and
// the references between them.
type DependencyGraph struct {
	ContainerID int    `json:"containerId" toon:"containerId"`
	Nodes       []Node `json:"nodes" toon:"nodes"`
	Edges       []Edge `json:"edges" toon:"edges"`
}

// Dependencies returns the bindings id refers to, in edge order.
func (g *DependencyGraph) Dependencies(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

// Metrics summarizes a dependency graph.
type Metrics struct {
	// Order lists bindings so that every binding follows the bindings it
	// depends on. Members of a cycle keep declaration order.
	Order []string `json:"order" toon:"order"`
	// Cycles are groups of mutually recursive bindings.
	Cycles [][]string `json:"cycles,omitempty" toon:"cycles,omitempty"`
	// SelfReferencing bindings refer to themselves.
	SelfReferencing []string `json:"selfReferencing,omitempty" toon:"selfReferencing,omitempty"`
	// PageRank ranks bindings by how much other bindings depend on them.
	PageRank map[string]float64 `json:"pageRank,omitempty" toon:"pageRank,omitempty"`
}

// IsCyclic reports whether any binding depends on itself directly or
// through other bindings.
func (m *Metrics) IsCyclic() bool {
	return len(m.Cycles) > 0 || len(m.SelfReferencing) > 0
}
