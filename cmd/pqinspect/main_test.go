package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/pqinspect/internal/service/inspection"
	"github.com/panbanda/pqinspect/internal/testutil"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/config"
)

// runApp runs the CLI with colors off and returns what it wrote to stdout.
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"pqinspect", "--no-color"}, args...))
	return out.String(), err
}

func writeDoc(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "query.pq")
	testutil.WriteFile(t, path, text)
	return path
}

// TestGetPaths verifies path handling from CLI arguments.
func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "no args defaults to current dir",
			args:     []string{},
			expected: []string{"."},
		},
		{
			name:     "single path",
			args:     []string{"/foo/bar"},
			expected: []string{"/foo/bar"},
		},
		{
			name:     "multiple paths",
			args:     []string{"/foo", "/bar"},
			expected: []string{"/foo", "/bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Action: func(c *cli.Context) error {
					result := getPaths(c)
					if len(result) != len(tt.expected) {
						t.Errorf("getPaths() = %v, want %v", result, tt.expected)
						return nil
					}
					for i := range result {
						if result[i] != tt.expected[i] {
							t.Errorf("getPaths()[%d] = %q, want %q", i, result[i], tt.expected[i])
						}
					}
					return nil
				},
			}
			args := append([]string{"test"}, tt.args...)
			_ = app.Run(args)
		})
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		input   string
		want    ast.Position
		wantErr bool
	}{
		{"1:1", ast.Position{Line: 0, Character: 0}, false},
		{"3:14", ast.Position{Line: 2, Character: 13}, false},
		{" 2:5 ", ast.Position{Line: 1, Character: 4}, false},
		{"12", ast.Position{}, true},
		{"0:1", ast.Position{}, true},
		{"1:0", ast.Position{}, true},
		{"a:b", ast.Position{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePosition(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePosition(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parsePosition(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMarkerPosition(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantText string
		want     ast.Position
	}{
		{"single line", "let a = 1 in |a", "let a = 1 in a", ast.Position{Line: 0, Character: 13}},
		{"second line", "let\n  a = 1\nin |a", "let\n  a = 1\nin a", ast.Position{Line: 2, Character: 3}},
		{"utf16 columns", "\"😀\" & |x", "\"😀\" & x", ast.Position{Line: 0, Character: 7}},
		{"first marker only", "|a | b", "a | b", ast.Position{Line: 0, Character: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, pos, err := markerPosition(tt.text, "|")
			if err != nil {
				t.Fatalf("markerPosition() error: %v", err)
			}
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if pos != tt.want {
				t.Errorf("position = %+v, want %+v", pos, tt.want)
			}
		})
	}

	if _, _, err := markerPosition("let a = 1 in a", "|"); err == nil {
		t.Error("markerPosition() should fail without a marker")
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := newLogger(level, false)
		if err != nil {
			t.Errorf("newLogger(%q) error: %v", level, err)
			continue
		}
		if logger == nil {
			t.Errorf("newLogger(%q) returned nil", level)
		}
	}
	if _, err := newLogger("loud", false); err == nil {
		t.Error("newLogger() should reject an unknown level")
	}
	if _, err := newLogger("loud", true); err != nil {
		t.Errorf("verbose logger should ignore the configured level: %v", err)
	}
}

func TestTypeCommand(t *testing.T) {
	path := writeDoc(t, "let total = 1 + 2 in total")

	out, err := runApp(t, "", "--format", "json", "type", path, "1:27")
	if err != nil {
		t.Fatalf("type error: %v", err)
	}

	var res inspection.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if res.Type != "number" {
		t.Errorf("Type = %q, want number", res.Type)
	}
	if res.Identifier != "total" {
		t.Errorf("Identifier = %q, want total", res.Identifier)
	}
	if res.Line != 0 || res.Character != 26 {
		t.Errorf("position = %d:%d, want 0:26", res.Line, res.Character)
	}
}

func TestTypeCommand_StdinMarker(t *testing.T) {
	out, err := runApp(t, `let s = "a" & "b" in s|`, "type", "--marker", "|", "-")
	if err != nil {
		t.Fatalf("type error: %v", err)
	}
	if !strings.Contains(out, "s: text") {
		t.Errorf("output should contain the hover text, got:\n%s", out)
	}
	if !strings.Contains(out, "1:23") {
		t.Errorf("output should name the cursor position, got:\n%s", out)
	}
}

func TestScopeCommand(t *testing.T) {
	path := writeDoc(t, "(x as number, y) => x")

	out, err := runApp(t, "", "--format", "json", "scope", "--at", "1:22", path)
	if err != nil {
		t.Fatalf("scope error: %v", err)
	}

	var scope []inspection.Binding
	if err := json.Unmarshal([]byte(out), &scope); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	names := make(map[string]inspection.Binding)
	for _, b := range scope {
		names[b.Name] = b
	}
	if names["x"].Type != "number" {
		t.Errorf("x = %+v, want a number", names["x"])
	}
	if _, ok := names["y"]; !ok {
		t.Error("y should be in scope")
	}
}

func TestCompleteCommand(t *testing.T) {
	path := writeDoc(t, "let alpha = 1, beta = al in beta")

	out, err := runApp(t, "", "--format", "json", "complete", "--limit", "3", path, "1:25")
	if err != nil {
		t.Fatalf("complete error: %v", err)
	}

	var items []inspection.Completion
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if len(items) == 0 || len(items) > 3 {
		t.Fatalf("got %d completions, want 1 to 3", len(items))
	}
	if items[0].Label != "alpha" {
		t.Errorf("top completion = %q, want alpha", items[0].Label)
	}
}

func TestCompleteCommand_Text(t *testing.T) {
	path := writeDoc(t, "let alpha = 1, beta = al in beta")

	out, err := runApp(t, "", "complete", path, "1:25")
	if err != nil {
		t.Fatalf("complete error: %v", err)
	}
	if !strings.Contains(out, `Completions for "al"`) {
		t.Errorf("output should title the partial text, got:\n%s", out)
	}
	if !strings.Contains(out, "alpha") {
		t.Errorf("output should list alpha, got:\n%s", out)
	}
}

func TestActiveCommand(t *testing.T) {
	path := writeDoc(t, "let total = 1 + 2 in total")

	out, err := runApp(t, "", "--format", "json", "active", path, "1:27")
	if err != nil {
		t.Fatalf("active error: %v", err)
	}

	var node activeNode
	if err := json.Unmarshal([]byte(out), &node); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if node.Identifier != "total" {
		t.Errorf("Identifier = %q, want total", node.Identifier)
	}
	if node.LeafKind == "" {
		t.Error("LeafKind should be set")
	}
}

func TestInspectCommandErrors(t *testing.T) {
	path := writeDoc(t, "1 + 1")

	tests := []struct {
		name string
		args []string
	}{
		{"missing document", []string{"type"}},
		{"missing cursor", []string{"type", path}},
		{"bad position", []string{"type", path, "one:two"}},
		{"missing file", []string{"type", filepath.Join(t.TempDir(), "nope.pq"), "1:1"}},
		{"marker not found", []string{"type", "--marker", "|", path}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runApp(t, "", tt.args...); err == nil {
				t.Error("command should fail")
			}
		})
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFileTree(t, dir, map[string]string{
		"ok.pq":      "let a = 1 in a",
		"partial.pq": "let a = ",
		"notes.txt":  "not a document",
	})

	out, err := runApp(t, "", "--format", "json", "check", "--no-progress", dir)
	if err != nil {
		t.Fatalf("check error: %v", err)
	}

	var report inspection.CheckReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if report.Summary.Documents != 2 || report.Summary.OK != 1 || report.Summary.Partial != 1 {
		t.Errorf("Summary = %+v, want 2 documents, 1 ok, 1 partial", report.Summary)
	}

	_, err = runApp(t, "", "check", "--no-progress", "--strict", dir)
	var exit cli.ExitCoder
	if !errors.As(err, &exit) || exit.ExitCode() != 1 {
		t.Errorf("strict check error = %v, want exit code 1", err)
	}
}

func TestCheckCommand_TextAndEmpty(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFileTree(t, dir, map[string]string{"ok.pq": "1 + 1"})

	out, err := runApp(t, "", "check", "--no-progress", dir)
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	if !strings.Contains(out, "Document Check") || !strings.Contains(out, "ok.pq") {
		t.Errorf("text output should list the document, got:\n%s", out)
	}

	out, err = runApp(t, "", "check", "--no-progress", t.TempDir())
	if err != nil {
		t.Fatalf("empty check error: %v", err)
	}
	if !strings.Contains(out, "No documents found") {
		t.Errorf("empty check should warn, got:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pqinspect", "pqinspect.toml")

	if _, err := runApp(t, "", "config", "init", "--path", path); err != nil {
		t.Fatalf("config init error: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config should load: %v", err)
	}
	if cfg.Inference.Strategy != "extended" {
		t.Errorf("Inference.Strategy = %q, want extended", cfg.Inference.Strategy)
	}

	if _, err := runApp(t, "", "config", "init", "--path", path); err == nil {
		t.Error("config init should refuse to overwrite")
	}
	if _, err := runApp(t, "", "config", "init", "--path", path, "--force"); err != nil {
		t.Errorf("config init --force error: %v", err)
	}
}

func TestConfigShowAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pqinspect.toml")
	if err := os.WriteFile(path, []byte("[inference]\nstrategy = \"primitive\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runApp(t, "", "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show error: %v", err)
	}
	if !strings.Contains(out, `strategy = "primitive"`) {
		t.Errorf("config show should print the loaded strategy, got:\n%s", out)
	}
	if !strings.Contains(out, path) {
		t.Errorf("config show should name the source, got:\n%s", out)
	}

	out, err = runApp(t, "", "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate error: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("config validate output = %q", out)
	}

	bad := filepath.Join(t.TempDir(), "pqinspect.toml")
	if err := os.WriteFile(bad, []byte("[output]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := runApp(t, "", "--config", bad, "config", "show"); err == nil {
		t.Error("an invalid config file should fail before any command runs")
	}
}

func TestSymbolsCommand(t *testing.T) {
	out, err := runApp(t, "", "--format", "json", "symbols", "Text.")
	if err != nil {
		t.Fatalf("symbols error: %v", err)
	}

	var rows []symbolRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	found := false
	for _, r := range rows {
		if !strings.HasPrefix(r.Name, "Text.") {
			t.Errorf("symbol %q does not match the prefix", r.Name)
		}
		if r.Name == "Text.Upper" {
			found = true
			if r.Kind != "function" {
				t.Errorf("Text.Upper kind = %q, want function", r.Kind)
			}
		}
	}
	if !found {
		t.Error("Text.Upper should be listed")
	}
}

func TestMCPManifestCommand(t *testing.T) {
	out, err := runApp(t, "", "mcp", "manifest")
	if err != nil {
		t.Fatalf("mcp manifest error: %v", err)
	}
	var manifest map[string]any
	if err := json.Unmarshal([]byte(out), &manifest); err != nil {
		t.Fatalf("manifest is not json: %v", err)
	}
	if !strings.Contains(out, "pqinspect") {
		t.Errorf("manifest should name pqinspect, got:\n%s", out)
	}
}
