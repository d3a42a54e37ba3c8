package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type completionRow struct {
	Label string  `json:"label" yaml:"label" toon:"label"`
	Score float64 `json:"score" yaml:"score" toon:"score"`
}

func completionTable() *Table {
	data := []completionRow{{"each", 0.775}, {"error", 0.76}}
	return NewTable("Completions",
		[]string{"Label", "Score"},
		[][]string{{"each", "0.775"}, {"error", "0.760"}},
		[]string{"2 items", ""},
		data,
	)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"yaml", FormatYAML},
		{"yml", FormatYAML},
		{"", FormatText},
		{"xml", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	f, err := NewFormatter(FormatJSON, path, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.Colored() {
		t.Error("file output should never be colored")
	}
	if err := f.Output(map[string]int{"documents": 3}); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), `"documents": 3`) {
		t.Errorf("file content = %q", data)
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	if _, err := NewFormatter(FormatText, "/nonexistent/dir/out.txt", false); err == nil {
		t.Error("NewFormatter() should fail for an unwritable path")
	}
}

func TestTableRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := completionTable().RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Completions", "===========", "LABEL", "each", "0.775", "2 items"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable("Scope", []string{"Name", "Type"}, [][]string{{"x", "number | null"}}, nil, nil)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	want := "## Scope\n\n| Name | Type |\n| --- | --- |\n| x | number \\| null |\n\n"
	if buf.String() != want {
		t.Errorf("RenderMarkdown() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestTableRenderData(t *testing.T) {
	table := NewTable("", []string{"Name", "Type"}, [][]string{{"a", "number"}, {"b"}}, nil, nil)

	rows, ok := table.RenderData().([]map[string]string)
	if !ok {
		t.Fatalf("RenderData() type = %T", table.RenderData())
	}
	if rows[0]["Type"] != "number" {
		t.Errorf("rows[0] = %v", rows[0])
	}
	if _, ok := rows[1]["Type"]; ok {
		t.Error("short rows should leave missing cells out")
	}

	if _, ok := completionTable().RenderData().([]completionRow); !ok {
		t.Error("RenderData() should prefer the wrapped data")
	}
}

func TestFormatterOutputFormats(t *testing.T) {
	tests := []struct {
		format Format
		check  func(t *testing.T, out string)
	}{
		{FormatText, func(t *testing.T, out string) {
			if !strings.Contains(out, "LABEL") {
				t.Errorf("text output should render the table:\n%s", out)
			}
		}},
		{FormatMarkdown, func(t *testing.T, out string) {
			if !strings.HasPrefix(out, "## Completions") {
				t.Errorf("markdown output should start with a heading:\n%s", out)
			}
		}},
		{FormatJSON, func(t *testing.T, out string) {
			var rows []completionRow
			if err := json.Unmarshal([]byte(out), &rows); err != nil {
				t.Fatalf("json output does not parse: %v", err)
			}
			if len(rows) != 2 || rows[0].Label != "each" {
				t.Errorf("rows = %+v", rows)
			}
		}},
		{FormatYAML, func(t *testing.T, out string) {
			var rows []completionRow
			if err := yaml.Unmarshal([]byte(out), &rows); err != nil {
				t.Fatalf("yaml output does not parse: %v", err)
			}
			if len(rows) != 2 || rows[1].Label != "error" {
				t.Errorf("rows = %+v", rows)
			}
		}},
		{FormatTOON, func(t *testing.T, out string) {
			if !strings.Contains(out, "each") || !strings.Contains(out, "label") {
				t.Errorf("toon output should carry labels and field names:\n%s", out)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			f := NewWriterFormatter(tt.format, &buf, false)
			if err := f.Output(completionTable()); err != nil {
				t.Fatalf("Output() error: %v", err)
			}
			tt.check(t, buf.String())
		})
	}
}

func TestFormatterOutputRaw(t *testing.T) {
	data := map[string]any{"type": "number"}

	var md bytes.Buffer
	if err := NewWriterFormatter(FormatMarkdown, &md, false).Output(data); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if !strings.HasPrefix(md.String(), "```json\n") || !strings.HasSuffix(md.String(), "```\n") {
		t.Errorf("markdown raw output should be fenced json:\n%s", md.String())
	}

	var text bytes.Buffer
	if err := NewWriterFormatter(FormatText, &text, false).Output(data); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if !strings.Contains(text.String(), "type: number") {
		t.Errorf("text raw output should fall back to toon:\n%s", text.String())
	}
}

func TestSection(t *testing.T) {
	s := &Section{Title: "Hover", Content: "x: number (parameter)"}

	var text bytes.Buffer
	if err := s.RenderText(&text, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	if text.String() != "Hover\n-----\nx: number (parameter)\n" {
		t.Errorf("RenderText() = %q", text.String())
	}

	var md bytes.Buffer
	if err := s.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if !strings.Contains(md.String(), "```powerquery\nx: number (parameter)\n```") {
		t.Errorf("RenderMarkdown() = %q", md.String())
	}

	if s.RenderData() != s {
		t.Error("RenderData() without data should return the section")
	}
}

func TestFormatterMessageMethods(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatText, &buf, false)

	f.Success("checked %d documents", 2)
	f.Warning("%s has a syntax error", "a.pq")
	f.Error("cannot read %s", "b.pq")

	want := "checked 2 documents\nWARNING: a.pq has a syntax error\nERROR: cannot read b.pq\n"
	if buf.String() != want {
		t.Errorf("messages = %q, want %q", buf.String(), want)
	}
}

func TestStatusColor(t *testing.T) {
	for _, status := range []string{"ok", "partial", "error", "other"} {
		if got := StatusColor(status, "text"); !strings.Contains(got, "text") {
			t.Errorf("StatusColor(%q) = %q, should contain the text", status, got)
		}
	}
}
