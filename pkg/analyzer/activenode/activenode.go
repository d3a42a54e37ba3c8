// Package activenode maps a cursor position in a node graph to the most
// relevant node and its ancestry.
package activenode

import (
	"github.com/panbanda/pqinspect/pkg/ast"
)

// Punctuation after which the cursor belongs to whatever follows.
var shiftRight = map[string]bool{
	",": true, "=": true, "=>": true, ";": true,
	"}": true, "]": true, ")": true,
	"{": true, "[": true, "(": true,
}

var openingWrappers = map[string]bool{"{": true, "[": true, "(": true}

// Keyword constants that keep resolution on themselves, so `i|f` stays on
// the if token.
var anchorKeywords = map[string]bool{
	"as": true, "each": true, "else": true, "error": true, "if": true,
	"in": true, "is": true, "section": true, "shared": true, "let": true,
	"meta": true, "otherwise": true, "then": true, "try": true, "type": true,
	"null": true,
}

// Resolve finds the active node for pos. It scans the leaves once and
// never mutates the graph.
func Resolve(g *ast.Graph, pos ast.Position) ActiveNode {
	leaves := g.LeafIDs()
	if len(leaves) == 0 {
		return ActiveNode{Position: pos}
	}

	var before, after *ast.Materialized
	for _, id := range leaves {
		ref, _ := g.Node(id)
		m, ok := ref.Materialized()
		if !ok {
			continue
		}
		if m.Range.Start.Before(pos) {
			if before == nil || m.Range.TokenIndexStart > before.Range.TokenIndexStart {
				before = m
			}
		} else if after == nil || m.Range.TokenIndexStart < after.Range.TokenIndexStart {
			after = m
		}
	}

	id, kind := choose(g, pos, before, after)
	active := ActiveNode{
		Position: pos,
		LeafKind: kind,
		Ancestry: g.Ancestry(id),
	}
	annotate(g, &active)
	return active
}

func choose(g *ast.Graph, pos ast.Position, before, after *ast.Materialized) (int, LeafKind) {
	if before != nil && before.Kind == ast.KindConstant && shiftRight[before.Literal] && !pos.Before(before.Range.End) {
		if openingWrappers[before.Literal] && before.AttributeIndex == ast.AttrWrappedOpen {
			if content, ok := emptyContent(g, before.ID); ok {
				return content, LeafShiftedRight
			}
		}
		if after != nil {
			return after.ID, LeafShiftedRight
		}
		if id, ok := deepestPending(g, pos); ok {
			return id, LeafContextNode
		}
		return before.ID, LeafAfterNode
	}

	if before != nil && isAnchor(before) && !pos.After(before.Range.End) {
		return before.ID, LeafAnchored
	}

	if after == nil {
		if id, ok := deepestPending(g, pos); ok {
			return id, LeafContextNode
		}
	}

	if before != nil {
		if pos.After(before.Range.End) {
			return before.ID, LeafAfterNode
		}
		return before.ID, LeafOnNode
	}
	return after.ID, LeafShiftedRight
}

// emptyContent returns the content wrapper of the construct an opening
// token belongs to, when that wrapper holds nothing.
func emptyContent(g *ast.Graph, openID int) (int, bool) {
	parentID, ok := g.ParentID(openID)
	if !ok {
		return 0, false
	}
	content, ok := g.Child(parentID, ast.AttrWrappedContent)
	if !ok || content.Kind() != ast.KindArrayWrapper {
		return 0, false
	}
	if len(g.ChildIDs(content.ID())) > 0 {
		return 0, false
	}
	return content.ID(), true
}

func isAnchor(m *ast.Materialized) bool {
	switch m.Kind {
	case ast.KindIdentifier, ast.KindGeneralizedIdentifier:
		return true
	case ast.KindLiteralExpression:
		return m.LiteralKind == ast.LiteralNumeric || m.LiteralKind == ast.LiteralNull
	case ast.KindConstant:
		return anchorKeywords[m.Literal]
	}
	return false
}

// deepestPending returns the innermost pending node starting at or before
// pos. Pending nodes form a single chain, so depth orders them.
func deepestPending(g *ast.Graph, pos ast.Position) (int, bool) {
	best, bestDepth := 0, -1
	for _, id := range g.PendingIDs() {
		ref, _ := g.Node(id)
		if ref.Start().After(pos) {
			continue
		}
		if d := g.Depth(id); d > bestDepth {
			best, bestDepth = id, d
		}
	}
	return best, bestDepth >= 0
}

func annotate(g *ast.Graph, a *ActiveNode) {
	leaf := a.Leaf()
	a.IsInKeySlot = inKeySlot(g, leaf)

	m, ok := leaf.Materialized()
	if !ok {
		a.setPartialFromTrailing(g)
		return
	}

	ident, recursive := identifierLeaf(g, m)
	if ident != nil {
		if ident.Range.Start.Compare(a.Position) <= 0 && !a.Position.After(ident.Range.End) {
			a.IdentifierInclusive = &Identifier{
				NodeID: ident.ID, Literal: ident.Literal, Range: ident.Range, IsRecursive: recursive,
			}
			if ident.Range.Start.Before(a.Position) && a.Position.Before(ident.Range.End) {
				exclusive := *a.IdentifierInclusive
				a.IdentifierExclusive = &exclusive
			}
		}
	}

	switch {
	case a.IdentifierInclusive != nil:
		a.partial = a.IdentifierInclusive.Literal
		r := a.IdentifierInclusive.Range
		a.replacement = &r
	case a.LeafKind == LeafAnchored && m.Kind == ast.KindConstant:
		a.partial = m.Literal
		r := m.Range
		a.replacement = &r
	default:
		a.setPartialFromTrailing(g)
	}
}

func inKeySlot(g *ast.Graph, leaf ast.NodeRef) bool {
	parent, ok := g.Parent(leaf.ID())
	if !ok {
		return false
	}
	switch {
	case ast.IsPairedKind(parent.Kind()):
		return leaf.AttributeIndex() == ast.AttrPairKey
	case leaf.Kind() == ast.KindArrayWrapper && leaf.AttributeIndex() == 1:
		k := parent.Kind()
		return k == ast.KindRecordExpression || k == ast.KindLetExpression
	}
	return false
}

// setPartialFromTrailing uses the token the parser stopped at when the
// cursor touches it.
func (a *ActiveNode) setPartialFromTrailing(g *ast.Graph) {
	tok, ok := g.Trailing()
	if !ok || !tok.Range.Contains(a.Position) || !tok.Range.Start.Before(a.Position) {
		return
	}
	if !isWordText(tok.Text) {
		return
	}
	a.partial = tok.Text
	r := tok.Range
	a.replacement = &r
}

func isWordText(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == '.' || r == '#' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 127) {
			return false
		}
	}
	return true
}

// identifierLeaf returns the identifier token for a leaf, looking through
// the @ of a recursive reference.
func identifierLeaf(g *ast.Graph, m *ast.Materialized) (*ast.Materialized, bool) {
	switch m.Kind {
	case ast.KindIdentifier, ast.KindGeneralizedIdentifier:
		recursive := false
		if parent, ok := g.Parent(m.ID); ok && parent.Kind() == ast.KindIdentifierExpression {
			_, recursive = g.Child(parent.ID(), 0)
		}
		return m, recursive
	case ast.KindConstant:
		if m.Literal != "@" {
			return nil, false
		}
		parentID, ok := g.ParentID(m.ID)
		if !ok {
			return nil, false
		}
		ref, ok := g.Child(parentID, 1)
		if !ok {
			return nil, false
		}
		ident, ok := ref.Materialized()
		if !ok {
			return nil, false
		}
		return ident, true
	}
	return nil, false
}
