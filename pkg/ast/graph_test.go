package ast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(line, char int) Position { return Position{Line: line, Character: char} }

func leafRange(idx, line, start, end int) TokenRange {
	return TokenRange{TokenIndexStart: idx, TokenIndexEnd: idx + 1, Start: pos(line, start), End: pos(line, end)}
}

// buildBinary builds "1 + 2" as an ArithmeticExpression.
func buildBinary(t *testing.T) (*Graph, int) {
	t.Helper()
	g := NewGraph()
	root := g.AddPending(0, Pending{Kind: KindArithmeticExpression})
	g.AddMaterialized(root, Materialized{Kind: KindLiteralExpression, AttributeIndex: 0, Range: leafRange(0, 0, 0, 1), Literal: "1", LiteralKind: LiteralNumeric})
	g.AddMaterialized(root, Materialized{Kind: KindLiteralExpression, AttributeIndex: 2, Range: leafRange(2, 0, 4, 5), Literal: "2", LiteralKind: LiteralNumeric})
	g.AddMaterialized(root, Materialized{Kind: KindConstant, AttributeIndex: 1, Range: leafRange(1, 0, 2, 3), Literal: "+"})
	require.NoError(t, g.Materialize(root, TokenRange{TokenIndexStart: 0, TokenIndexEnd: 3, Start: pos(0, 0), End: pos(0, 5)}))
	return g, root
}

func TestGraph_ChildrenOrderedByAttribute(t *testing.T) {
	g, root := buildBinary(t)

	kids := g.Children(root)
	require.Len(t, kids, 3)
	assert.Equal(t, "1", kids[0].Literal())
	assert.True(t, kids[1].IsConstant("+"))
	assert.Equal(t, "2", kids[2].Literal())
}

func TestGraph_LeafIDsInTokenOrder(t *testing.T) {
	g, _ := buildBinary(t)

	var literals []string
	for _, id := range g.LeafIDs() {
		ref, ok := g.Node(id)
		require.True(t, ok)
		literals = append(literals, ref.Literal())
	}
	assert.Equal(t, []string{"1", "+", "2"}, literals)
}

func TestGraph_Ancestry(t *testing.T) {
	g, root := buildBinary(t)
	leaf := g.LeafIDs()[2]

	anc := g.Ancestry(leaf)
	require.Len(t, anc, 2)
	assert.Equal(t, leaf, anc.Leaf().ID())
	assert.Equal(t, root, anc.Root().ID())
	assert.True(t, anc.Contains(root))

	ref, idx, ok := anc.Find(KindArithmeticExpression)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, root, ref.ID())

	assert.Empty(t, g.Ancestry(999))
}

func TestGraph_ExpectChild(t *testing.T) {
	t.Run("materialized parent missing child", func(t *testing.T) {
		g := NewGraph()
		id := g.AddMaterialized(0, Materialized{Kind: KindEachExpression})

		_, ok, err := g.ExpectChild(id, 1)
		assert.False(t, ok)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvariant))
	})

	t.Run("pending parent missing child", func(t *testing.T) {
		g := NewGraph()
		id := g.AddPending(0, Pending{Kind: KindEachExpression})

		_, ok, err := g.ExpectChild(id, 1)
		assert.False(t, ok)
		assert.NoError(t, err)
	})

	t.Run("unexpected kind", func(t *testing.T) {
		g, root := buildBinary(t)

		_, _, err := g.ExpectChild(root, AttrBinaryOperator, KindIdentifier)
		var inv *InvariantError
		require.ErrorAs(t, err, &inv)
		assert.Equal(t, root, inv.NodeID)
	})
}

func TestGraph_SetParentWrapsNode(t *testing.T) {
	g := NewGraph()
	left := g.AddMaterialized(0, Materialized{Kind: KindLiteralExpression, Range: leafRange(0, 0, 0, 1), Literal: "1"})
	require.Equal(t, left, g.RootID())

	wrapper := g.AddPending(0, Pending{Kind: KindLogicalExpression})
	require.NoError(t, g.SetParent(left, wrapper, AttrBinaryLeft))

	assert.Equal(t, wrapper, g.RootID())
	parent, ok := g.Parent(left)
	require.True(t, ok)
	assert.Equal(t, wrapper, parent.ID())
	assert.Equal(t, []int{wrapper}, g.PendingIDs())
	assert.Equal(t, 1, g.Depth(left))
}

func TestGraph_Walk(t *testing.T) {
	g, root := buildBinary(t)

	var kinds []NodeKind
	g.Walk(root, func(ref NodeRef) bool {
		kinds = append(kinds, ref.Kind())
		return ref.Kind() != KindConstant
	})
	assert.Equal(t, []NodeKind{KindArithmeticExpression, KindLiteralExpression, KindConstant}, kinds)
}

func TestPosition_Compare(t *testing.T) {
	tests := []struct {
		a, b Position
		want int
	}{
		{pos(0, 0), pos(0, 0), 0},
		{pos(0, 1), pos(0, 2), -1},
		{pos(1, 0), pos(0, 9), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.Compare(tt.b), "%s vs %s", tt.a, tt.b)
	}
}
