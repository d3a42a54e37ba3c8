package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/panbanda/pqinspect/internal/testutil"
	"github.com/panbanda/pqinspect/pkg/analyzer/autocomplete"
	"github.com/panbanda/pqinspect/pkg/analyzer/typeinfer"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/types"
)

func inspectAt(t *testing.T, doc string, settings Settings) *Inspection {
	t.Helper()
	g, pos := testutil.ParseAt(t, doc)
	in, err := Inspect(context.Background(), settings, g, pos, typeinfer.NewCache())
	require.NoError(t, err)
	require.NotNil(t, in)
	return in
}

func completionLabels(in *Inspection) []string {
	out := make([]string, len(in.Completions))
	for i, item := range in.Completions {
		out[i] = item.Label
	}
	return out
}

func TestInspect_Identifier(t *testing.T) {
	in := inspectAt(t, "let alpha = 1 in alpha|", DefaultSettings())

	require.NotNil(t, in.Type)
	assert.True(t, types.Equal(types.NumberLiteral{Literal: "1", Value: 1}, in.Type))
	assert.Equal(t, "alpha: 1", in.Hover())
	assert.Contains(t, in.ScopeTypes, "alpha")
	require.NotEmpty(t, in.Completions)
	assert.Equal(t, "alpha", in.Completions[0].Label)
	assert.Equal(t, 1.0, in.Completions[0].Score)
}

func TestInspect_PendingLetBody(t *testing.T) {
	in := inspectAt(t, `let a = 1, b = "x" in |`, DefaultSettings())

	require.NotNil(t, in.Scope)
	assert.Equal(t, []string{"a", "b"}, in.Scope.Keys())
	assert.True(t, types.Equal(types.TextLiteral{Literal: `"x"`}, in.ScopeTypes["b"]))

	labels := completionLabels(in)
	assert.Contains(t, labels, "a")
	assert.Contains(t, labels, "b")
	assert.Contains(t, labels, "let")
	for _, item := range in.Completions {
		assert.Equal(t, 1.0, item.Score, item.Label)
	}
}

func TestInspect_FieldCompletion(t *testing.T) {
	in := inspectAt(t, "let r = [alpha = 1, beta = 2] in r[al|]", DefaultSettings())

	require.NotNil(t, in.FieldTarget)
	assert.Equal(t, types.KindRecord, in.FieldTarget.Kind())
	assert.Equal(t, []string{"alpha", "beta"}, completionLabels(in))
	assert.Equal(t, protocol.CompletionItemKindField, in.Completions[0].Kind)
}

func TestInspect_LibraryCandidates(t *testing.T) {
	settings := DefaultSettings()
	settings.Library = []autocomplete.Candidate{
		{Label: "Text.Upper", Kind: protocol.CompletionItemKindFunction},
		{Label: "List.Sum", Kind: protocol.CompletionItemKindFunction},
	}
	settings.Completion.MaxItems = 1

	in := inspectAt(t, "Text.Up|", settings)

	assert.Equal(t, []string{"Text.Upper"}, completionLabels(in))
}

func TestInspect_SkipCompletions(t *testing.T) {
	settings := DefaultSettings()
	settings.SkipCompletions = true

	in := inspectAt(t, "1 + 2|", settings)

	assert.Empty(t, in.Completions)
	assert.Equal(t, types.KindNumber, in.Type.Kind())
}

func TestInspect_OutOfBounds(t *testing.T) {
	in, err := Inspect(context.Background(), DefaultSettings(), ast.NewGraph(), ast.Position{}, nil)
	require.NoError(t, err)

	assert.False(t, in.Active.InBounds())
	assert.Nil(t, in.Type)
	assert.Empty(t, in.Hover())
	assert.Contains(t, completionLabels(in), "section")
}

func TestInspect_ZeroValueCache(t *testing.T) {
	g, pos := testutil.ParseAt(t, "let alpha = 1 in alpha|")
	cache := &typeinfer.Cache{}

	in, err := Inspect(context.Background(), DefaultSettings(), g, pos, cache)
	require.NoError(t, err)
	require.NotNil(t, in.Type)
	assert.Equal(t, "alpha: 1", in.Hover())
	assert.NotEmpty(t, cache.Scopes)
}

func TestInspect_Cancelled(t *testing.T) {
	g, pos := testutil.ParseAt(t, "let a = 1 in a|")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cache := typeinfer.NewCache()

	in, err := Inspect(ctx, DefaultSettings(), g, pos, cache)

	assert.Nil(t, in)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Empty(t, cache.Delta)
}

func TestInspect_InvariantFailure(t *testing.T) {
	g := ast.NewGraph()
	root := g.AddMaterialized(0, ast.Materialized{Kind: ast.KindIfExpression})
	g.AddMaterialized(root, ast.Materialized{Kind: ast.KindConstant, AttributeIndex: 0, Literal: "if"})

	in, err := Inspect(context.Background(), DefaultSettings(), g, ast.Position{Character: 1}, nil)

	assert.Nil(t, in)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, ast.ErrInvariant)
}

func TestInspection_Hover(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"parameter", "(x as number) => x|", "x: number (parameter)"},
		{"expression", "(1 + 2)|", "number"},
		{"section member", "section S; shared a = 1; b = a|;", "a: 1 (section member)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := inspectAt(t, tt.doc, DefaultSettings())
			assert.Equal(t, tt.want, in.Hover())
		})
	}
}
