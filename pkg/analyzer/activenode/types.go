package activenode

import "github.com/panbanda/pqinspect/pkg/ast"

// LeafKind records why a leaf was chosen for a cursor position.
type LeafKind string

const (
	// LeafShiftedRight: the cursor sat past punctuation, so resolution moved
	// to the following node.
	LeafShiftedRight LeafKind = "ShiftedRight"
	// LeafAnchored: the cursor touches an identifier, literal or keyword.
	LeafAnchored LeafKind = "Anchored"
	// LeafContextNode: the cursor is past the last token and resolution
	// picked the innermost pending node.
	LeafContextNode LeafKind = "ContextNode"
	// LeafOnNode: the cursor lies inside the chosen node.
	LeafOnNode LeafKind = "OnNode"
	// LeafAfterNode: the cursor lies after the chosen node.
	LeafAfterNode LeafKind = "AfterNode"
)

// String returns the string representation.
func (k LeafKind) String() string {
	return string(k)
}

// Identifier is an identifier token matched at the cursor.
type Identifier struct {
	NodeID  int            `json:"nodeId"`
	Literal string         `json:"literal"`
	Range   ast.TokenRange `json:"range"`
	// IsRecursive is set for the @-prefixed form.
	IsRecursive bool `json:"isRecursive,omitempty"`
}

// ActiveNode is the resolution of a cursor position. An ActiveNode with an
// empty Ancestry is out of bounds: the document has no leaves.
type ActiveNode struct {
	Position ast.Position `json:"position"`
	LeafKind LeafKind     `json:"leafKind,omitempty"`
	Ancestry ast.Ancestry `json:"-"`

	// IdentifierInclusive matches when the cursor is anywhere on the
	// identifier, including its trailing boundary.
	IdentifierInclusive *Identifier `json:"identifierInclusive,omitempty"`
	// IdentifierExclusive matches only when the cursor is strictly inside.
	IdentifierExclusive *Identifier `json:"identifierExclusive,omitempty"`

	// IsInKeySlot is set when the cursor names a key of a pair rather than
	// a value.
	IsInKeySlot bool `json:"isInKeySlot,omitempty"`

	partial     string
	replacement *ast.TokenRange
}

// InBounds reports whether a node was resolved.
func (a ActiveNode) InBounds() bool { return len(a.Ancestry) > 0 }

// Leaf returns the resolved node, or the zero NodeRef when out of bounds.
func (a ActiveNode) Leaf() ast.NodeRef { return a.Ancestry.Leaf() }

// PartialText is the token text the user is typing at the cursor, or ""
// at a pure insertion point.
func (a ActiveNode) PartialText() string { return a.partial }

// ReplacementRange is the span a completion should replace.
func (a ActiveNode) ReplacementRange() (ast.TokenRange, bool) {
	if a.replacement == nil {
		return ast.TokenRange{}, false
	}
	return *a.replacement, true
}
