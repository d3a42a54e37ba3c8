package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/pqinspect/internal/output"
	"github.com/panbanda/pqinspect/internal/service/inspection"
	"github.com/panbanda/pqinspect/pkg/ast"
)

const stdinName = "untitled.pq"

func positionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "at",
			Usage: "Cursor position as LINE:COL, both 1-based (COL counts UTF-16 code units)",
		},
		&cli.StringFlag{
			Name:  "marker",
			Usage: "Take the cursor from the first occurrence of this marker in the document and remove it",
		},
	}
}

func typeCmd() *cli.Command {
	return &cli.Command{
		Name:      "type",
		Aliases:   []string{"hover"},
		Usage:     "Show the inferred type of the expression under the cursor",
		ArgsUsage: "<file|-> [LINE:COL]",
		Flags:     positionFlags(),
		Action: func(c *cli.Context) error {
			res, err := runInspect(c)
			if err != nil {
				return err
			}
			content := res.Hover
			if content == "" {
				content = res.Type
			}
			if content == "" {
				content = "(no type)"
			}
			return render(c, &output.Section{
				Title:   positionTitle(res),
				Content: content,
				Data:    res,
			})
		},
	}
}

func scopeCmd() *cli.Command {
	return &cli.Command{
		Name:      "scope",
		Usage:     "List the identifiers visible at the cursor with their types",
		ArgsUsage: "<file|-> [LINE:COL]",
		Flags:     positionFlags(),
		Action: func(c *cli.Context) error {
			res, err := runInspect(c)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Scope))
			for _, b := range res.Scope {
				name := b.Name
				if b.Recursive {
					name += " (recursive)"
				}
				rows = append(rows, []string{name, b.Kind, b.Type})
			}
			scope := res.Scope
			if scope == nil {
				scope = []inspection.Binding{}
			}
			return render(c, output.NewTable(
				"Scope at "+positionTitle(res),
				[]string{"Name", "Kind", "Type"},
				rows,
				[]string{fmt.Sprintf("%d bindings", len(rows)), "", ""},
				scope,
			))
		},
	}
}

func completeCmd() *cli.Command {
	flags := append(positionFlags(),
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum completions to show (0 uses autocomplete.max_items)",
		},
	)
	return &cli.Command{
		Name:      "complete",
		Usage:     "Rank completions for the identifier under the cursor",
		ArgsUsage: "<file|-> [LINE:COL]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			res, err := runInspect(c)
			if err != nil {
				return err
			}
			items := res.Completions
			if limit := c.Int("limit"); limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			if items == nil {
				items = []inspection.Completion{}
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.Label,
					item.Kind,
					strconv.FormatFloat(item.Score, 'f', 3, 64),
					item.Type,
				})
			}
			title := "Completions"
			if res.PartialText != "" {
				title = fmt.Sprintf("Completions for %q", res.PartialText)
			}
			return render(c, output.NewTable(
				title,
				[]string{"Label", "Kind", "Score", "Type"},
				rows,
				nil,
				items,
			))
		},
	}
}

// activeNode is the cursor summary printed by the active command.
type activeNode struct {
	URI         string `json:"uri" toon:"uri"`
	Line        int    `json:"line" toon:"line"`
	Character   int    `json:"character" toon:"character"`
	LeafKind    string `json:"leafKind,omitempty" toon:"leafKind,omitempty"`
	NodeKind    string `json:"nodeKind,omitempty" toon:"nodeKind,omitempty"`
	Identifier  string `json:"identifier,omitempty" toon:"identifier,omitempty"`
	PartialText string `json:"partialText,omitempty" toon:"partialText,omitempty"`
	InKeySlot   bool   `json:"inKeySlot" toon:"inKeySlot"`
	SyntaxError string `json:"syntaxError,omitempty" toon:"syntaxError,omitempty"`
}

func activeCmd() *cli.Command {
	return &cli.Command{
		Name:      "active",
		Usage:     "Describe the syntax node under the cursor",
		ArgsUsage: "<file|-> [LINE:COL]",
		Flags:     positionFlags(),
		Action: func(c *cli.Context) error {
			res, err := runInspect(c)
			if err != nil {
				return err
			}
			node := activeNode{
				URI:         res.URI,
				Line:        res.Line,
				Character:   res.Character,
				LeafKind:    res.LeafKind,
				NodeKind:    res.NodeKind,
				Identifier:  res.Identifier,
				PartialText: res.PartialText,
				InKeySlot:   res.InKeySlot,
				SyntaxError: res.SyntaxError,
			}
			rows := [][]string{
				{"Leaf", res.LeafKind},
				{"Node", res.NodeKind},
				{"Identifier", res.Identifier},
				{"Partial text", res.PartialText},
				{"Key slot", strconv.FormatBool(res.InKeySlot)},
			}
			if res.SyntaxError != "" {
				rows = append(rows, []string{"Syntax error", res.SyntaxError})
			}
			return render(c, output.NewTable(
				"Active node at "+positionTitle(res),
				[]string{"Property", "Value"},
				rows,
				nil,
				node,
			))
		},
	}
}

// runInspect loads the document named by the first argument and inspects
// it at the requested cursor.
func runInspect(c *cli.Context) (*inspection.Result, error) {
	doc, pos, err := loadDocument(c)
	if err != nil {
		return nil, err
	}
	svc, err := newService(c)
	if err != nil {
		return nil, err
	}
	res, err := svc.Inspect(c.Context, doc, pos)
	if err != nil {
		if inspection.IsUnavailable(err) {
			return nil, cli.Exit(fmt.Sprintf("no inspection at %d:%d: %v", pos.Line+1, pos.Character+1, err), 2)
		}
		return nil, err
	}
	if res.SyntaxError != "" {
		appState(c).logger.Sugar().Debugf("partial document: %s", res.SyntaxError)
	}
	return res, nil
}

func loadDocument(c *cli.Context) (inspection.Document, ast.Position, error) {
	if c.Args().Len() == 0 {
		return inspection.Document{}, ast.Position{}, fmt.Errorf("missing document argument")
	}
	name := c.Args().First()

	var data []byte
	var err error
	if name == "-" {
		var r io.Reader = os.Stdin
		if c.App.Reader != nil {
			r = c.App.Reader
		}
		data, err = io.ReadAll(r)
		name = stdinName
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return inspection.Document{}, ast.Position{}, fmt.Errorf("failed to read document: %w", err)
	}
	text := string(data)

	var pos ast.Position
	switch {
	case c.String("marker") != "":
		text, pos, err = markerPosition(text, c.String("marker"))
	case c.String("at") != "":
		pos, err = parsePosition(c.String("at"))
	case c.Args().Len() > 1:
		pos, err = parsePosition(c.Args().Get(1))
	default:
		err = fmt.Errorf("missing cursor: pass LINE:COL, --at or --marker")
	}
	if err != nil {
		return inspection.Document{}, ast.Position{}, err
	}
	return inspection.NewDocument(name, text), pos, nil
}

// parsePosition converts a 1-based LINE:COL into a zero-based position.
func parsePosition(s string) (ast.Position, error) {
	lineText, colText, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ast.Position{}, fmt.Errorf("position %q: want LINE:COL", s)
	}
	line, err := strconv.Atoi(lineText)
	if err != nil || line < 1 {
		return ast.Position{}, fmt.Errorf("position %q: line must be a positive number", s)
	}
	col, err := strconv.Atoi(colText)
	if err != nil || col < 1 {
		return ast.Position{}, fmt.Errorf("position %q: column must be a positive number", s)
	}
	return ast.Position{Line: line - 1, Character: col - 1}, nil
}

// markerPosition removes the first marker from text and returns the
// zero-based position it occupied, counting columns in UTF-16 code units.
func markerPosition(text, marker string) (string, ast.Position, error) {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return "", ast.Position{}, fmt.Errorf("marker %q not found in document", marker)
	}
	before := text[:idx]
	line := strings.Count(before, "\n")
	col := 0
	for _, r := range before[strings.LastIndex(before, "\n")+1:] {
		col += utf16.RuneLen(r)
	}
	return before + text[idx+len(marker):], ast.Position{Line: line, Character: col}, nil
}

func positionTitle(res *inspection.Result) string {
	return fmt.Sprintf("%d:%d", res.Line+1, res.Character+1)
}

func render(c *cli.Context, data any) error {
	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(data)
}
