package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/parser"
)

// CursorMarker marks the cursor in test documents.
const CursorMarker = "|"

// Cursor removes the single cursor marker from text and returns the clean
// text with the marker's position.
func Cursor(t *testing.T, text string) (string, ast.Position) {
	t.Helper()
	idx := strings.Index(text, CursorMarker)
	if idx < 0 || strings.Count(text, CursorMarker) != 1 {
		t.Fatalf("document %q must contain exactly one %q", text, CursorMarker)
	}
	before := text[:idx]
	line := strings.Count(before, "\n")
	col := len([]rune(before[strings.LastIndex(before, "\n")+1:]))
	return before + text[idx+len(CursorMarker):], ast.Position{Line: line, Character: col}
}

// ParseAt parses a document containing a cursor marker. Syntax errors are
// expected for partial documents and are ignored.
func ParseAt(t *testing.T, text string) (*ast.Graph, ast.Position) {
	t.Helper()
	clean, pos := Cursor(t, text)
	graph, _ := parser.Parse(clean)
	return graph, pos
}

// MustParse parses a complete document and fails the test on a syntax
// error.
func MustParse(t *testing.T, text string) *ast.Graph {
	t.Helper()
	graph, err := parser.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", text, err)
	}
	return graph
}

// FindLeaf returns the id of the first leaf whose literal is text.
func FindLeaf(t *testing.T, g *ast.Graph, text string) int {
	t.Helper()
	for _, id := range g.LeafIDs() {
		if ref, _ := g.Node(id); ref.Literal() == text {
			return id
		}
	}
	t.Fatalf("no leaf %q", text)
	return 0
}

// FindNode returns the id of the first node of kind in walk order.
func FindNode(t *testing.T, g *ast.Graph, kind ast.NodeKind) int {
	t.Helper()
	found := 0
	g.Walk(g.RootID(), func(ref ast.NodeRef) bool {
		if ref.Kind() == kind {
			found = ref.ID()
			return false
		}
		return true
	})
	if found == 0 {
		t.Fatalf("no %s node", kind)
	}
	return found
}

// WriteFile writes content to a file in the real filesystem.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates multiple files from a map of path -> content.
func CreateFileTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, name), content)
	}
}
