package autocomplete

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/panbanda/pqinspect/internal/testutil"
	"github.com/panbanda/pqinspect/pkg/analyzer/activenode"
	"github.com/panbanda/pqinspect/pkg/analyzer/scope"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/parser"
	"github.com/panbanda/pqinspect/pkg/types"
)

func activeAt(t *testing.T, doc string) (*ast.Graph, activenode.ActiveNode) {
	t.Helper()
	g, pos := testutil.ParseAt(t, doc)
	return g, activenode.Resolve(g, pos)
}

func labels(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Label
	}
	return out
}

func keywordCandidates(words ...string) []Candidate {
	out := make([]Candidate, len(words))
	for i, w := range words {
		out[i] = Candidate{Label: w, Kind: protocol.CompletionItemKindKeyword}
	}
	return out
}

func TestScore(t *testing.T) {
	opts := DefaultOptions()

	each := Score("each", "e", opts)
	errorScore := Score("error", "e", opts)
	let := Score("let", "e", opts)

	assert.Less(t, each, 1.0)
	assert.Less(t, errorScore, 1.0)
	assert.Greater(t, each, errorScore)
	assert.Greater(t, errorScore, let)
	assert.InDelta(t, 0.775, each, 1e-3)
	assert.InDelta(t, 0.76, errorScore, 1e-3)

	assert.Equal(t, 1.0, Score("let", "let", opts))
	assert.Equal(t, 1.0, Score("anything", "", opts))
}

func TestRank_PartialToken(t *testing.T) {
	_, active := activeAt(t, "e|")
	require.Equal(t, "e", active.PartialText())

	items := Rank(active, keywordCandidates("let", "error", "each", "each"), DefaultOptions())

	assert.Equal(t, []string{"each", "error", "let"}, labels(items))
	for _, item := range items {
		require.NotNil(t, item.Range)
		assert.Equal(t, protocol.Position{Line: 0, Character: 0}, item.Range.Start)
		assert.Equal(t, protocol.Position{Line: 0, Character: 1}, item.Range.End)
	}
}

func TestRank_EmptyPartialOrdersByLabel(t *testing.T) {
	_, active := activeAt(t, "let a = 1 in |")
	require.Empty(t, active.PartialText())

	items := Rank(active, keywordCandidates("zeta", "mid", "alpha"), DefaultOptions())

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, labels(items))
	for _, item := range items {
		assert.Equal(t, 1.0, item.Score)
		assert.Nil(t, item.Range)
	}
}

func TestRank_MaxItems(t *testing.T) {
	_, active := activeAt(t, "let a = 1 in |")
	opts := DefaultOptions()
	opts.MaxItems = 2

	items := Rank(active, keywordCandidates("c", "b", "a"), opts)

	assert.Equal(t, []string{"a", "b"}, labels(items))
}

func TestMerge(t *testing.T) {
	a := []Item{{Label: "x", Score: 0.5}, {Label: "y", Score: 0.9}}
	b := []Item{{Label: "x", Score: 1}, {Label: "z", Score: 0.9}}

	merged := Merge(a, b)

	assert.Equal(t, []string{"y", "z", "x"}, labels(merged))
	assert.Equal(t, 0.5, merged[2].Score)
}

func TestKeywordsAt(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{"then after condition", "if x |", append([]string{"then"}, OperatorKeywords...)},
		{"expression after operator", "1 + |", ExpressionKeywords},
		{"empty arguments", "foo(|", ExpressionKeywords},
		{"operators after a value", "1 |", OperatorKeywords},
		{"anchored keyword", "i|f true then 1 else 2", ExpressionKeywords},
		{"section member", "section S; |", []string{"shared"}},
		{"record key", "[|", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, active := activeAt(t, tt.doc)
			assert.Equal(t, tt.want, KeywordsAt(g, active))
		})
	}
}

func TestKeywordsAt_LetIn(t *testing.T) {
	g, active := activeAt(t, "let a = 1 |")

	words := KeywordsAt(g, active)

	assert.Contains(t, words, "in")
	assert.NotContains(t, words, "then")
	assert.NotContains(t, words, "let")
}

func TestKeywordsAt_OutOfBounds(t *testing.T) {
	g := ast.NewGraph()
	active := activenode.Resolve(g, ast.Position{})

	words := KeywordsAt(g, active)

	assert.Equal(t, append(append([]string(nil), ExpressionKeywords...), "section"), words)
}

func TestIdentifiers(t *testing.T) {
	g, active := activeAt(t, "let alpha = 1, beta = each al| in beta")
	s, err := scope.Resolve(context.Background(), g, active.Leaf().ID(), scope.Cache{})
	require.NoError(t, err)
	require.Contains(t, s.Keys(), scope.EachParameter)
	require.Contains(t, s.Keys(), "@beta")

	library := []Candidate{{Label: "albatross", Kind: protocol.CompletionItemKindFunction}}
	scopeTypes := map[string]types.Type{"alpha": types.NumberLiteral{Literal: "1", Value: 1}}

	items := Identifiers(active, s, scopeTypes, library, DefaultOptions())

	require.Equal(t, []string{"alpha", "albatross"}, labels(items))
	assert.Equal(t, protocol.CompletionItemKindVariable, items[0].Kind)
	assert.Equal(t, "1", items[0].TypeText)
	assert.Equal(t, protocol.CompletionItemKindFunction, items[1].Kind)
}

func TestIdentifiers_KeySlot(t *testing.T) {
	g, active := activeAt(t, "[a| = 1]")
	s, err := scope.Resolve(context.Background(), g, active.Leaf().ID(), scope.Cache{})
	require.NoError(t, err)

	assert.Nil(t, Identifiers(active, s, nil, keywordCandidates("abc"), DefaultOptions()))
}

func TestFields(t *testing.T) {
	_, active := activeAt(t, "[alpha = 1, beta = 2][al|]")
	_, ok := FieldAccessNode(active)
	require.True(t, ok)

	target := types.DefinedRecord{Fields: types.NewFields(
		types.Field{Name: "beta", Type: types.Text},
		types.Field{Name: "alpha", Type: types.Number},
	)}

	items := Fields(active, target, DefaultOptions())

	require.Equal(t, []string{"alpha", "beta"}, labels(items))
	assert.Equal(t, protocol.CompletionItemKindField, items[0].Kind)
	assert.Equal(t, types.Number, items[0].Type)
}

func TestFieldNames(t *testing.T) {
	tests := []struct {
		name   string
		target types.Type
		want   []string
	}{
		{"record", types.DefinedRecord{Fields: types.NewFields(types.Field{Name: "a", Type: types.Any})}, []string{"a"}},
		{"table", types.DefinedTable{Fields: types.NewFields(types.Field{Name: "c", Type: types.Any})}, []string{"c"}},
		{"union", types.AnyUnion{Alternatives: []types.Type{
			types.DefinedRecord{Fields: types.NewFields(types.Field{Name: "a", Type: types.Any})},
			types.DefinedRecord{Fields: types.NewFields(
				types.Field{Name: "a", Type: types.Number},
				types.Field{Name: "b", Type: types.Any},
			)},
		}}, []string{"a", "b"}},
		{"untyped record", types.Record, []string{}},
		{"any", types.Any, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldNames(tt.target).Names())
		})
	}
}

func TestFieldAccessNode_Outside(t *testing.T) {
	_, active := activeAt(t, "let a = 1 in a|")
	_, ok := FieldAccessNode(active)
	assert.False(t, ok)
}

func TestPrimitiveTypes(t *testing.T) {
	g, active := activeAt(t, "1 as |")

	items := PrimitiveTypes(g, active, DefaultOptions())

	assert.Len(t, items, len(parser.PrimitiveTypeNames))
	assert.Equal(t, "action", items[0].Label)
	assert.Equal(t, protocol.CompletionItemKindTypeParameter, items[0].Kind)

	g, active = activeAt(t, "1 + |")
	assert.Nil(t, PrimitiveTypes(g, active, DefaultOptions()))
}

func TestLanguageConstants(t *testing.T) {
	g, active := activeAt(t, "(x, o|) => x")
	assert.Equal(t, []string{"optional"}, labels(LanguageConstants(g, active, DefaultOptions())))

	g, active = activeAt(t, "1 as |")
	assert.Equal(t, []string{"nullable"}, labels(LanguageConstants(g, active, DefaultOptions())))

	g, active = activeAt(t, "1 + |")
	assert.Empty(t, LanguageConstants(g, active, DefaultOptions()))
}

func TestAll(t *testing.T) {
	t.Run("expression position", func(t *testing.T) {
		g, active := activeAt(t, "let alpha = 1 in al|")
		s, err := scope.Resolve(context.Background(), g, active.Leaf().ID(), scope.Cache{})
		require.NoError(t, err)

		opts := DefaultOptions()
		opts.MaxItems = 3
		items := All(active, Inputs{Graph: g, Scope: s}, opts)

		require.Len(t, items, 3)
		assert.Equal(t, "alpha", items[0].Label)
	})

	t.Run("type position", func(t *testing.T) {
		g, active := activeAt(t, "1 as |")

		items := All(active, Inputs{Graph: g}, DefaultOptions())

		assert.Len(t, items, len(parser.PrimitiveTypeNames)+1)
		assert.Contains(t, labels(items), "nullable")
		assert.NotContains(t, labels(items), "let")
	})

	t.Run("field target", func(t *testing.T) {
		_, active := activeAt(t, "[a = 1][|]")
		target := types.DefinedRecord{Fields: types.NewFields(types.Field{Name: "a", Type: types.Number})}

		items := All(active, Inputs{FieldTarget: target}, DefaultOptions())

		assert.Equal(t, []string{"a"}, labels(items))
	})
}
