// Package graph builds the dependency graph between sibling bindings of a
// let expression, record or section and derives an evaluation order and
// recursive groups from it.
package graph

import (
	"context"
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/panbanda/pqinspect/pkg/analyzer/scope"
	"github.com/panbanda/pqinspect/pkg/ast"
)

// Analyzer builds binding dependency graphs.
type Analyzer struct {
	pageRank bool
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithPageRank enables PageRank in CalculateMetrics.
func WithPageRank() Option {
	return func(a *Analyzer) {
		a.pageRank = true
	}
}

// New creates a new binding graph analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Containers returns the ids of every let expression, record expression
// and section in g, in walk order.
func Containers(g *ast.Graph) []int {
	var ids []int
	g.Walk(g.RootID(), func(ref ast.NodeRef) bool {
		switch ref.Kind() {
		case ast.KindLetExpression, ast.KindRecordExpression, ast.KindSection:
			ids = append(ids, ref.ID())
		}
		return true
	})
	return ids
}

// Build collects the bindings of containerID and the references between
// them. Identifiers are resolved through scope, so a reference to a
// shadowing inner binding does not count.
func (a *Analyzer) Build(ctx context.Context, g *ast.Graph, containerID int, scopes scope.Cache) (*DependencyGraph, error) {
	pairs, err := bindingPairs(g, containerID)
	if err != nil {
		return nil, err
	}
	if scopes == nil {
		scopes = make(scope.Cache)
	}

	dg := &DependencyGraph{ContainerID: containerID}
	byKeyNode := make(map[int]string)
	for _, p := range pairs {
		key, ok, err := g.ExpectChild(p.pairID, ast.AttrPairKey, ast.KindIdentifier, ast.KindGeneralizedIdentifier)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		node := Node{ID: key.Literal(), Kind: p.kind, KeyNodeID: key.ID(), Line: uint32(key.Start().Line)}
		if value, ok := g.Child(p.pairID, ast.AttrPairValue); ok {
			node.ValueNodeID = value.ID()
		} else {
			node.Kind = scope.ItemUnresolved
		}
		byKeyNode[key.ID()] = node.ID
		dg.Nodes = append(dg.Nodes, node)
	}

	for _, node := range dg.Nodes {
		if node.ValueNodeID == 0 {
			continue
		}
		seen := make(map[string]bool)
		var walkErr error
		g.Walk(node.ValueNodeID, func(ref ast.NodeRef) bool {
			if walkErr != nil {
				return false
			}
			if ref.Kind() != ast.KindIdentifierExpression {
				return true
			}
			target, recursive, err := referencedKey(ctx, g, ref.ID(), scopes)
			if err != nil {
				walkErr = err
				return false
			}
			to, ok := byKeyNode[target]
			if !ok || seen[to] {
				return true
			}
			seen[to] = true
			edgeType := EdgeReference
			if recursive || to == node.ID {
				edgeType = EdgeRecursive
			}
			dg.Edges = append(dg.Edges, Edge{From: node.ID, To: to, Type: edgeType})
			return true
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return dg, nil
}

type bindingPair struct {
	pairID int
	kind   scope.ItemKind
}

func bindingPairs(g *ast.Graph, containerID int) ([]bindingPair, error) {
	ref, ok := g.Node(containerID)
	if !ok {
		return nil, &ast.InvariantError{NodeID: containerID, Message: "unknown node id"}
	}

	var (
		contentAttr int
		kind        scope.ItemKind
	)
	switch ref.Kind() {
	case ast.KindLetExpression:
		contentAttr, kind = 1, scope.ItemLetVariable
	case ast.KindRecordExpression:
		contentAttr, kind = ast.AttrWrappedContent, scope.ItemRecordField
	case ast.KindSection:
		contentAttr, kind = 3, scope.ItemSectionMember
	default:
		return nil, &ast.InvariantError{NodeID: containerID, Kind: ref.Kind(), Message: "not a binding container"}
	}

	content, ok, err := g.ExpectChild(containerID, contentAttr, ast.KindArrayWrapper)
	if err != nil || !ok {
		return nil, err
	}
	var pairs []bindingPair
	for _, itemID := range g.ChildIDs(content.ID()) {
		attr := ast.AttrCsvNode
		if kind == scope.ItemSectionMember {
			attr = 1
		}
		pair, ok, err := g.ExpectChild(itemID, attr, ast.KindIdentifierPairedExpression, ast.KindGeneralizedIdentifierPairedExpression)
		if err != nil {
			return nil, err
		}
		if ok {
			pairs = append(pairs, bindingPair{pairID: pair.ID(), kind: kind})
		}
	}
	return pairs, nil
}

// referencedKey resolves an identifier expression to the key node of the
// binding it names, or 0.
func referencedKey(ctx context.Context, g *ast.Graph, id int, scopes scope.Cache) (int, bool, error) {
	ident, ok, err := g.ExpectChild(id, 1, ast.KindIdentifier)
	if err != nil || !ok {
		return 0, false, err
	}
	s, err := scope.Resolve(ctx, g, id, scopes)
	if err != nil {
		return 0, false, err
	}
	_, recursive := g.Child(id, 0)
	literal := ident.Literal()
	keys := []string{literal, "@" + literal}
	if recursive {
		keys[0], keys[1] = keys[1], keys[0]
	}
	for _, key := range keys {
		if item, ok := s.Get(key); ok {
			return item.KeyNodeID, item.IsRecursive, nil
		}
	}
	return 0, false, nil
}

// gonumGraph holds the gonum representation and mappings.
type gonumGraph struct {
	directed   *simple.DirectedGraph
	nodeIDToID map[string]int64
	idToNodeID map[int64]string
}

// toGonumGraph converts our DependencyGraph to a gonum directed graph.
func toGonumGraph(graph *DependencyGraph) *gonumGraph {
	g := &gonumGraph{
		directed:   simple.NewDirectedGraph(),
		nodeIDToID: make(map[string]int64),
		idToNodeID: make(map[int64]string),
	}

	for i, node := range graph.Nodes {
		id := int64(i)
		g.nodeIDToID[node.ID] = id
		g.idToNodeID[id] = node.ID
		g.directed.AddNode(simple.Node(id))
	}

	// Skip self-loops as gonum simple graphs don't support them.
	for _, edge := range graph.Edges {
		fromID, fromOK := g.nodeIDToID[edge.From]
		toID, toOK := g.nodeIDToID[edge.To]
		if fromOK && toOK && fromID != toID {
			g.directed.SetEdge(simple.Edge{F: simple.Node(fromID), T: simple.Node(toID)})
		}
	}
	return g
}

// CalculateMetrics derives evaluation order and recursion from graph.
func (a *Analyzer) CalculateMetrics(graph *DependencyGraph) *Metrics {
	m := &Metrics{}
	if len(graph.Nodes) == 0 {
		return m
	}
	gg := toGonumGraph(graph)

	m.Order = evaluationOrder(graph, gg)
	m.Cycles = a.DetectCycles(graph)
	for _, e := range graph.Edges {
		if e.From == e.To {
			m.SelfReferencing = append(m.SelfReferencing, e.From)
		}
	}

	if a.pageRank {
		ranks := network.PageRank(gg.directed, 0.85, 1e-6)
		m.PageRank = make(map[string]float64, len(ranks))
		for id, rank := range ranks {
			m.PageRank[gg.idToNodeID[id]] = rank
		}
	}
	return m
}

// evaluationOrder sorts bindings dependency-first, otherwise keeping
// declaration order. The stabilized sort lists users before the bindings
// they use, so it is read backwards. Cyclic groups, reported by topo as
// nil entries, are expanded in declaration order.
func evaluationOrder(graph *DependencyGraph, gg *gonumGraph) []string {
	byID := func(nodes []gonumgraph.Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	}
	sorted, err := topo.SortStabilized(gg.directed, byID)
	var cyclic topo.Unorderable
	if err != nil {
		if u, ok := err.(topo.Unorderable); ok {
			cyclic = u
		}
	}

	n := len(graph.Nodes)
	order := make([]string, 0, n)
	placed := make(map[int64]bool, n)
	place := func(id int64) {
		if !placed[id] {
			placed[id] = true
			order = append(order, gg.idToNodeID[id])
		}
	}
	next := len(cyclic) - 1
	for k := len(sorted) - 1; k >= 0; k-- {
		if sorted[k] != nil {
			place(sorted[k].ID())
			continue
		}
		if next >= 0 {
			group := append([]gonumgraph.Node(nil), cyclic[next]...)
			byID(group)
			for _, member := range group {
				place(member.ID())
			}
			next--
		}
	}
	for id := int64(0); id < int64(n); id++ {
		place(id)
	}
	return order
}

// DetectCycles returns groups of mutually recursive bindings, each in
// declaration order.
func (a *Analyzer) DetectCycles(graph *DependencyGraph) [][]string {
	gg := toGonumGraph(graph)
	var cycles [][]int64
	for _, scc := range topo.TarjanSCC(gg.directed) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]int64, 0, len(scc))
		for _, node := range scc {
			ids = append(ids, node.ID())
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		cycles = append(cycles, ids)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })

	out := make([][]string, 0, len(cycles))
	for _, ids := range cycles {
		names := make([]string, len(ids))
		for k, id := range ids {
			names[k] = gg.idToNodeID[id]
		}
		out = append(out, names)
	}
	return out
}

// Analyze builds the graph of containerID and its metrics.
func (a *Analyzer) Analyze(ctx context.Context, g *ast.Graph, containerID int, scopes scope.Cache) (*DependencyGraph, *Metrics, error) {
	dg, err := a.Build(ctx, g, containerID, scopes)
	if err != nil {
		return nil, nil, err
	}
	return dg, a.CalculateMetrics(dg), nil
}
