package ast

// Materialized is a node the parser finished building.
type Materialized struct {
	ID             int         `json:"id"`
	Kind           NodeKind    `json:"kind"`
	AttributeIndex int         `json:"attributeIndex"`
	Range          TokenRange  `json:"range"`
	Literal        string      `json:"literal,omitempty"`
	LiteralKind    LiteralKind `json:"literalKind,omitempty"`
}

// IsLeaf reports whether the node carries a token directly.
func (m *Materialized) IsLeaf() bool { return IsLeafKind(m.Kind) }

// IsConstant reports whether the node is a Constant leaf with the given text.
func (m *Materialized) IsConstant(text string) bool {
	return m.Kind == KindConstant && m.Literal == text
}

// Pending is a node the parser had opened but not closed when it stopped.
type Pending struct {
	ID              int      `json:"id"`
	Kind            NodeKind `json:"kind"`
	AttributeIndex  int      `json:"attributeIndex"`
	TokenIndexStart int      `json:"tokenIndexStart"`
	Start           Position `json:"start"`
}

// NodeRef references a node that is either materialized or pending.
// The zero value references nothing.
type NodeRef struct {
	materialized *Materialized
	pending      *Pending
}

// MaterializedRef wraps m.
func MaterializedRef(m *Materialized) NodeRef { return NodeRef{materialized: m} }

// PendingRef wraps p.
func PendingRef(p *Pending) NodeRef { return NodeRef{pending: p} }

// IsZero reports whether r references nothing.
func (r NodeRef) IsZero() bool { return r.materialized == nil && r.pending == nil }

// IsPending reports whether r references a pending node.
func (r NodeRef) IsPending() bool { return r.pending != nil }

// IsMaterialized reports whether r references a materialized node.
func (r NodeRef) IsMaterialized() bool { return r.materialized != nil }

// Materialized returns the materialized node, if r references one.
func (r NodeRef) Materialized() (*Materialized, bool) { return r.materialized, r.materialized != nil }

// Pending returns the pending node, if r references one.
func (r NodeRef) Pending() (*Pending, bool) { return r.pending, r.pending != nil }

// ID returns the node id, or 0 for the zero NodeRef.
func (r NodeRef) ID() int {
	switch {
	case r.materialized != nil:
		return r.materialized.ID
	case r.pending != nil:
		return r.pending.ID
	}
	return 0
}

// Kind returns the node kind, or "" for the zero NodeRef.
func (r NodeRef) Kind() NodeKind {
	switch {
	case r.materialized != nil:
		return r.materialized.Kind
	case r.pending != nil:
		return r.pending.Kind
	}
	return ""
}

// AttributeIndex returns the slot the node occupies in its parent.
func (r NodeRef) AttributeIndex() int {
	switch {
	case r.materialized != nil:
		return r.materialized.AttributeIndex
	case r.pending != nil:
		return r.pending.AttributeIndex
	}
	return -1
}

// TokenIndexStart returns the index of the first token the node covers.
func (r NodeRef) TokenIndexStart() int {
	switch {
	case r.materialized != nil:
		return r.materialized.Range.TokenIndexStart
	case r.pending != nil:
		return r.pending.TokenIndexStart
	}
	return -1
}

// Start returns the position the node starts at.
func (r NodeRef) Start() Position {
	switch {
	case r.materialized != nil:
		return r.materialized.Range.Start
	case r.pending != nil:
		return r.pending.Start
	}
	return Position{}
}

// Literal returns the token text of a materialized leaf, or "".
func (r NodeRef) Literal() string {
	if r.materialized != nil {
		return r.materialized.Literal
	}
	return ""
}

// IsConstant reports whether r is a materialized Constant with the given text.
func (r NodeRef) IsConstant(text string) bool {
	return r.materialized != nil && r.materialized.IsConstant(text)
}
