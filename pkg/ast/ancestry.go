package ast

// Ancestry is the chain of nodes from a node up to the root. Index 0 is
// the node itself.
type Ancestry []NodeRef

// Ancestry returns the chain from id up to the root. It is empty when id
// is unknown.
func (g *Graph) Ancestry(id int) Ancestry {
	var out Ancestry
	for {
		ref, ok := g.nodes[id]
		if !ok {
			return out
		}
		out = append(out, ref)
		p, ok := g.parents[id]
		if !ok {
			return out
		}
		id = p
	}
}

// Leaf returns the first element of the chain.
func (a Ancestry) Leaf() NodeRef {
	if len(a) == 0 {
		return NodeRef{}
	}
	return a[0]
}

// Root returns the last element of the chain.
func (a Ancestry) Root() NodeRef {
	if len(a) == 0 {
		return NodeRef{}
	}
	return a[len(a)-1]
}

// Nth returns the element at index i.
func (a Ancestry) Nth(i int) (NodeRef, bool) {
	if i < 0 || i >= len(a) {
		return NodeRef{}, false
	}
	return a[i], true
}

// Find returns the nearest element of one of the given kinds and its index.
func (a Ancestry) Find(kinds ...NodeKind) (NodeRef, int, bool) {
	for i, ref := range a {
		for _, k := range kinds {
			if ref.Kind() == k {
				return ref, i, true
			}
		}
	}
	return NodeRef{}, -1, false
}

// Contains reports whether id appears in the chain.
func (a Ancestry) Contains(id int) bool {
	for _, ref := range a {
		if ref.ID() == id {
			return true
		}
	}
	return false
}
