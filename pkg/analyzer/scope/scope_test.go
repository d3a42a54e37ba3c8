package scope

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/pqinspect/internal/testutil"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/parser"
	"github.com/panbanda/pqinspect/pkg/types"
)

// scopeAtLeaf resolves the scope of the n-th (0-based) leaf with the given
// literal.
func scopeAtLeaf(t *testing.T, g *ast.Graph, literal string, n int) *NodeScope {
	t.Helper()
	seen := 0
	for _, id := range g.LeafIDs() {
		ref, _ := g.Node(id)
		if ref.Literal() != literal {
			continue
		}
		if seen == n {
			s, err := Resolve(context.Background(), g, id, Cache{})
			require.NoError(t, err)
			return s
		}
		seen++
	}
	t.Fatalf("leaf %q #%d not found", literal, n)
	return nil
}

func TestResolve_LetMutualVisibility(t *testing.T) {
	g := testutil.MustParse(t, "let a = 1, b = 2 in b")

	s := scopeAtLeaf(t, g, "b", 1)
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	for _, key := range []string{"a", "b"} {
		item, ok := s.Get(key)
		require.True(t, ok)
		assert.Equal(t, ItemLetVariable, item.Kind)
		assert.False(t, item.IsRecursive, key)
		assert.True(t, item.HasValue())
	}
}

func TestResolve_SelfReferenceIsRecursive(t *testing.T) {
	g := testutil.MustParse(t, "let a = 1, b = a + 1 in b")

	s := scopeAtLeaf(t, g, "a", 1)
	assert.Equal(t, []string{"a", "@b"}, s.Keys())

	b, ok := s.Get("@b")
	require.True(t, ok)
	assert.True(t, b.IsRecursive)
	_, ok = s.Get("b")
	assert.False(t, ok, "plain name of the enclosing binding must not resolve to itself")
}

func TestResolve_RecordShadowsWithRecursiveKey(t *testing.T) {
	g := testutil.MustParse(t, "let foo = 1 in [foo = foo]")

	s := scopeAtLeaf(t, g, "foo", 2)
	assert.Equal(t, []string{"@foo", "foo"}, s.Keys())

	inner, _ := s.Get("@foo")
	assert.Equal(t, ItemRecordField, inner.Kind)
	outer, _ := s.Get("foo")
	assert.Equal(t, ItemLetVariable, outer.Kind)
}

func TestResolve_NestedLetDoesNotLeak(t *testing.T) {
	g := testutil.MustParse(t, "let a = let hidden = 1 in hidden, b = a in b")

	s := scopeAtLeaf(t, g, "b", 1)
	_, ok := s.Get("hidden")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, s.Keys())
}

func TestResolve_Shadowing(t *testing.T) {
	g := testutil.MustParse(t, `let x = 1 in let x = "a" in x`)

	s := scopeAtLeaf(t, g, "x", 2)
	require.Equal(t, 1, s.Len())
	item, _ := s.Get("x")
	value, ok := g.Node(item.ValueNodeID)
	require.True(t, ok)
	assert.Equal(t, `"a"`, value.Literal())
}

func TestResolve_FunctionParameters(t *testing.T) {
	g := testutil.MustParse(t, "(x as nullable number, optional y, z as text) => x")

	s := scopeAtLeaf(t, g, "x", 1)
	assert.Equal(t, []string{"x", "y", "z"}, s.Keys())

	tests := []struct {
		key      string
		optional bool
		nullable bool
		kind     types.Kind
	}{
		{"x", false, true, types.KindNumber},
		{"y", true, true, ""},
		{"z", false, false, types.KindText},
	}
	for _, tt := range tests {
		item, ok := s.Get(tt.key)
		require.True(t, ok, tt.key)
		assert.Equal(t, ItemParameter, item.Kind)
		assert.False(t, item.IsRecursive)
		assert.Equal(t, tt.optional, item.IsOptional, tt.key)
		assert.Equal(t, tt.nullable, item.IsNullable, tt.key)
		assert.Equal(t, tt.kind, item.DeclaredKind, tt.key)
	}

	// Parameters are not visible from the parameter list itself.
	inList := scopeAtLeaf(t, g, "x", 0)
	assert.Equal(t, 0, inList.Len())
}

func TestResolve_EachImplicit(t *testing.T) {
	g := testutil.MustParse(t, "each _")

	s := scopeAtLeaf(t, g, "_", 0)
	item, ok := s.Get(EachParameter)
	require.True(t, ok)
	assert.Equal(t, ItemEachImplicit, item.Kind)
	assert.Equal(t, g.RootID(), item.EachNodeID)
}

func TestResolve_SectionMembers(t *testing.T) {
	g := testutil.MustParse(t, "section S; a = 1; shared b = a;")

	s := scopeAtLeaf(t, g, "a", 1)
	assert.Equal(t, []string{"a", "@b"}, s.Keys())
	a, _ := s.Get("a")
	assert.Equal(t, ItemSectionMember, a.Kind)
}

func TestResolve_GeneralizedIdentifierAliases(t *testing.T) {
	g := testutil.MustParse(t, `[Total Sales = 1, c = #"Total Sales"]`)

	s := scopeAtLeaf(t, g, `#"Total Sales"`, 0)
	item, ok := s.Get(`#"Total Sales"`)
	require.True(t, ok)
	assert.Equal(t, "Total Sales", item.Key)
	assert.NotContains(t, s.Keys(), `#"Total Sales"`)
}

func TestResolve_UnresolvedWithoutValue(t *testing.T) {
	g, _ := testutil.ParseAt(t, "let a = |")
	pair := testutil.FindNode(t, g, ast.KindIdentifierPairedExpression)

	s, err := Resolve(context.Background(), g, pair, Cache{})
	require.NoError(t, err)
	item, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, ItemUnresolved, item.Kind)
	assert.False(t, item.HasValue())
}

func TestResolve_Memoized(t *testing.T) {
	g := testutil.MustParse(t, "let a = 1 in a")
	leaf := g.LeafIDs()[len(g.LeafIDs())-1]
	cache := Cache{}

	first, err := Resolve(context.Background(), g, leaf, cache)
	require.NoError(t, err)
	second, err := Resolve(context.Background(), g, leaf, cache)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestResolve_NilCache(t *testing.T) {
	g := testutil.MustParse(t, "let a = 1 in a")
	leaf := g.LeafIDs()[len(g.LeafIDs())-1]

	s, err := Resolve(context.Background(), g, leaf, nil)
	require.NoError(t, err)
	_, ok := s.Get("a")
	assert.True(t, ok)
}

func TestResolve_Cancelled(t *testing.T) {
	g := testutil.MustParse(t, "let a = 1 in a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cache := Cache{}

	_, err := Resolve(ctx, g, g.RootID(), cache)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, cache)
}

func TestResolve_InvariantFailure(t *testing.T) {
	g := ast.NewGraph()
	let := g.AddMaterialized(0, ast.Materialized{Kind: ast.KindLetExpression})
	content := g.AddMaterialized(let, ast.Materialized{Kind: ast.KindArrayWrapper, AttributeIndex: 1})
	g.AddMaterialized(content, ast.Materialized{Kind: ast.KindCsv})
	body := g.AddMaterialized(let, ast.Materialized{Kind: ast.KindNotImplementedExpression, AttributeIndex: 3})

	cache := Cache{}
	_, err := Resolve(context.Background(), g, body, cache)
	assert.ErrorIs(t, err, ast.ErrInvariant)
	assert.Empty(t, cache)

	_, err = Resolve(context.Background(), g, 999, cache)
	assert.ErrorIs(t, err, ast.ErrInvariant)
}

func TestAlternate(t *testing.T) {
	assert.Equal(t, `#"a"`, Alternate("a"))
	assert.Equal(t, "a b", Alternate(`#"a b"`))
	assert.Equal(t, `say "hi"`, Alternate(`#"say ""hi"""`))
}

func TestResolveOpen(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind ast.NodeKind
		want []string
	}{
		{"let body", "let a = 1, b = 2 in ", ast.KindLetExpression, []string{"a", "b"}},
		{"function body", "(x, y) => ", ast.KindFunctionExpression, []string{"x", "y"}},
		{"each body", "each ", ast.KindEachExpression, []string{EachParameter}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := parser.Parse(tt.text)
			id := testutil.FindNode(t, g, tt.kind)
			s, err := ResolveOpen(context.Background(), g, id, Cache{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Keys())
		})
	}
}
