package inspection

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/panbanda/pqinspect/internal/testutil"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/config"
	"github.com/panbanda/pqinspect/pkg/library"
)

func newService(t *testing.T, mutate func(*config.Config)) *Service {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	svc, err := New(WithConfig(cfg))
	require.NoError(t, err)
	return svc
}

func pos(line, character int) ast.Position {
	return ast.Position{Line: line, Character: character}
}

func TestNew_LoadsLibrary(t *testing.T) {
	svc := newService(t, nil)
	_, ok := svc.Library().Lookup("Text.Upper")
	assert.True(t, ok, "standard library should be loaded by default")

	bare := newService(t, func(cfg *config.Config) { cfg.Library.Standard = false })
	assert.Equal(t, 0, bare.Library().Len())
}

func TestNew_LibraryPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	testutil.WriteFile(t, path, `
functions:
  - name: Custom.Greet
    parameters:
      - name: who
        type: text
    returns: text
`)

	svc := newService(t, func(cfg *config.Config) { cfg.Library.Paths = []string{path} })
	_, ok := svc.Library().Lookup("Custom.Greet")
	assert.True(t, ok)
	_, ok = svc.Library().Lookup("Text.Upper")
	assert.True(t, ok, "configured files extend the standard library")

	_, err := New(WithConfig(&config.Config{Library: config.LibraryConfig{Paths: []string{"/nonexistent.yaml"}}}))
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	svc := newService(t, nil)
	doc := NewDocument("q.pq", "let total = 1 + 2 in total")

	res, err := svc.Inspect(context.Background(), doc, pos(0, 26))
	require.NoError(t, err)

	assert.Equal(t, string(uri.File("q.pq")), res.URI)
	assert.Equal(t, "total", res.Identifier)
	assert.Equal(t, "number", res.Type)
	assert.Equal(t, "total: number", res.Hover)
	assert.Empty(t, res.SyntaxError)
	assert.False(t, res.Cached)

	names := make([]string, len(res.Scope))
	for i, b := range res.Scope {
		names[i] = b.Name
	}
	assert.Contains(t, names, "total")
}

func TestInspect_ReusesSession(t *testing.T) {
	svc := newService(t, nil)
	doc := NewDocument("q.pq", "let a = 1 in a")

	_, err := svc.Inspect(context.Background(), doc, pos(0, 14))
	require.NoError(t, err)
	res, err := svc.Inspect(context.Background(), doc, pos(0, 5))
	require.NoError(t, err)

	assert.True(t, res.Cached)
	stats := svc.CacheStats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Entries)
}

func TestInspect_SyntaxError(t *testing.T) {
	svc := newService(t, nil)
	res, err := svc.Inspect(context.Background(), NewDocument("q.pq", "let a = 1 in "), pos(0, 13))
	require.NoError(t, err)

	assert.NotEmpty(t, res.SyntaxError)
	require.NotEmpty(t, res.Scope)
	assert.Equal(t, "a", res.Scope[0].Name)
	assert.Equal(t, "1", res.Scope[0].Type)
}

func TestInspect_LibraryCompletions(t *testing.T) {
	svc := newService(t, func(cfg *config.Config) { cfg.Autocomplete.MaxItems = 1 })
	res, err := svc.Inspect(context.Background(), NewDocument("q.pq", "Text.Up"), pos(0, 7))
	require.NoError(t, err)

	require.Len(t, res.Completions, 1)
	assert.Equal(t, "Text.Upper", res.Completions[0].Label)
	assert.Equal(t, "function", res.Completions[0].Kind)
}

func TestInspect_LibraryExcludedFromCompletions(t *testing.T) {
	svc := newService(t, func(cfg *config.Config) { cfg.Autocomplete.IncludeLibrary = false })
	res, err := svc.Inspect(context.Background(), NewDocument("q.pq", "Text.Up"), pos(0, 7))
	require.NoError(t, err)

	for _, c := range res.Completions {
		assert.NotEqual(t, "Text.Upper", c.Label)
	}
}

func TestInspect_Cancelled(t *testing.T) {
	svc := newService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Inspect(ctx, NewDocument("q.pq", "1"), pos(0, 1))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsUnavailable(err))
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.pq")
	testutil.WriteFile(t, path, "1 + 1")

	doc, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "1 + 1", doc.Text)
	assert.Equal(t, path, doc.URI.Filename())

	_, err = ReadDocument(filepath.Join(t.TempDir(), "missing.pq"))
	assert.Error(t, err)
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "keyword", KindName(protocol.CompletionItemKindKeyword))
	assert.Equal(t, "variable", KindName(protocol.CompletionItemKindVariable))
	assert.Equal(t, "type", KindName(protocol.CompletionItemKindTypeParameter))
	assert.Equal(t, "text", KindName(protocol.CompletionItemKindText))
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"ok.pq":        "let a = 1, b = a + 1 in b",
		"partial.pq":   "let a = ",
		"none.pq":      `1 + "a"`,
		"recursive.pq": "let a = b, b = a, f = (n) => @f(n) in a",
	}
	testutil.CreateFileTree(t, dir, files)

	paths := []string{
		filepath.Join(dir, "ok.pq"),
		filepath.Join(dir, "partial.pq"),
		filepath.Join(dir, "none.pq"),
		filepath.Join(dir, "recursive.pq"),
		filepath.Join(dir, "missing.pq"),
	}

	ticks := 0
	svc := newService(t, nil)
	report, err := svc.Check(context.Background(), paths, CheckOptions{Workers: 1, OnProgress: func() { ticks++ }})
	require.NoError(t, err)
	assert.Equal(t, len(paths), ticks)

	byName := make(map[string]DocumentReport)
	for _, r := range report.Documents {
		byName[filepath.Base(r.Path)] = r
	}
	require.Len(t, byName, 5)

	assert.Equal(t, StatusOK, byName["ok.pq"].Status)
	assert.Equal(t, "number", byName["ok.pq"].RootType)
	assert.Zero(t, byName["ok.pq"].NoneCount)

	assert.Equal(t, StatusPartial, byName["partial.pq"].Status)
	assert.NotEmpty(t, byName["partial.pq"].Error)

	assert.Equal(t, "none", byName["none.pq"].RootType)
	assert.Positive(t, byName["none.pq"].NoneCount)

	assert.Equal(t, [][]string{{"a", "b"}, {"f"}}, byName["recursive.pq"].RecursiveGroups)

	assert.Equal(t, StatusError, byName["missing.pq"].Status)

	assert.Equal(t, CheckSummary{Documents: 5, OK: 3, Partial: 1, Failed: 1, WithNone: 1, Recursive: 1}, report.Summary)

	for i := 1; i < len(report.Documents); i++ {
		assert.Less(t, report.Documents[i-1].Path, report.Documents[i].Path, "reports are ordered by path")
	}
}

func TestCheck_CentralBinding(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFileTree(t, dir, map[string]string{
		"shared.pq": "let a = 1, b = a, c = a in b + c",
		"single.pq": "let a = 1 in a",
	})

	report, err := newService(t, nil).Check(context.Background(), []string{
		filepath.Join(dir, "shared.pq"),
		filepath.Join(dir, "single.pq"),
	}, CheckOptions{})
	require.NoError(t, err)
	require.Len(t, report.Documents, 2)

	assert.Equal(t, "a", report.Documents[0].CentralBinding)
	assert.Empty(t, report.Documents[1].CentralBinding)
}

func TestCheck_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.pq")
	testutil.WriteFile(t, path, "1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(t, nil).Check(ctx, []string{path}, CheckOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadLibrary(t *testing.T) {
	lib, err := LoadLibrary(config.LibraryConfig{})
	require.NoError(t, err)
	assert.Equal(t, 0, lib.Len())

	std, err := library.Standard()
	require.NoError(t, err)
	lib, err = LoadLibrary(config.LibraryConfig{Standard: true})
	require.NoError(t, err)
	assert.Equal(t, std.Len(), lib.Len())
}
