package ast

import (
	"fmt"
	"sort"
)

// The methods in this file are used by graph producers. Consumers of a
// finished graph only read it.

// AddPending inserts an open node under parentID (0 for the root) and
// returns its id. A zero p.ID is replaced by a fresh id.
func (g *Graph) AddPending(parentID int, p Pending) int {
	if p.ID == 0 {
		p.ID = g.allocID()
	} else if p.ID >= g.nextID {
		g.nextID = p.ID + 1
	}
	g.nodes[p.ID] = PendingRef(&p)
	g.link(parentID, p.ID)
	return p.ID
}

// AddMaterialized inserts a finished node under parentID (0 for the root)
// and returns its id. Leaves are indexed in token order.
func (g *Graph) AddMaterialized(parentID int, m Materialized) int {
	if m.ID == 0 {
		m.ID = g.allocID()
	} else if m.ID >= g.nextID {
		g.nextID = m.ID + 1
	}
	g.nodes[m.ID] = MaterializedRef(&m)
	g.link(parentID, m.ID)
	if m.IsLeaf() {
		g.insertLeaf(m.ID, m.Range.TokenIndexStart)
	}
	return m.ID
}

// Materialize closes a pending node with the given range.
func (g *Graph) Materialize(id int, rng TokenRange) error {
	ref, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("materialize node %d: unknown id", id)
	}
	p, ok := ref.Pending()
	if !ok {
		return fmt.Errorf("materialize node %d: already materialized", id)
	}
	m := &Materialized{ID: id, Kind: p.Kind, AttributeIndex: p.AttributeIndex, Range: rng}
	g.nodes[id] = MaterializedRef(m)
	return nil
}

// SetParent moves a node (and its subtree) under a new parent at attr.
func (g *Graph) SetParent(id, parentID, attr int) error {
	ref, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set parent of node %d: unknown id", id)
	}
	if old, ok := g.parents[id]; ok {
		g.children[old] = removeID(g.children[old], id)
		delete(g.parents, id)
	} else if g.rootID == id {
		g.rootID = 0
	}
	if m, ok := ref.Materialized(); ok {
		m.AttributeIndex = attr
	} else if p, ok := ref.Pending(); ok {
		p.AttributeIndex = attr
	}
	g.link(parentID, id)
	return nil
}

// SetTrailing records the token the producer stopped at.
func (g *Graph) SetTrailing(t TrailingToken) { g.trailing = &t }

func (g *Graph) allocID() int {
	id := g.nextID
	g.nextID++
	return id
}

func (g *Graph) link(parentID, id int) {
	if parentID == 0 {
		g.rootID = id
		return
	}
	g.parents[id] = parentID
	kids := append(g.children[parentID], id)
	sort.SliceStable(kids, func(i, j int) bool {
		return g.nodes[kids[i]].AttributeIndex() < g.nodes[kids[j]].AttributeIndex()
	})
	g.children[parentID] = kids
}

func (g *Graph) insertLeaf(id, tokenIndex int) {
	i := sort.Search(len(g.leafIDs), func(i int) bool {
		return g.nodes[g.leafIDs[i]].TokenIndexStart() > tokenIndex
	})
	g.leafIDs = append(g.leafIDs, 0)
	copy(g.leafIDs[i+1:], g.leafIDs[i:])
	g.leafIDs[i] = id
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
