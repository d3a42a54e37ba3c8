package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/pqinspect/internal/output"
	"github.com/panbanda/pqinspect/internal/service/inspection"
	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/parser"
)

// Common input structures for tools

// DocumentInput names the document to inspect.
type DocumentInput struct {
	Path   string `json:"path,omitempty" jsonschema:"Path of the M document. When text is also given, path only names the document."`
	Text   string `json:"text,omitempty" jsonschema:"Document text. Takes precedence over reading path from disk."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// PositionInput adds a cursor position.
type PositionInput struct {
	DocumentInput
	Line      int `json:"line" jsonschema:"Zero-based line of the cursor."`
	Character int `json:"character" jsonschema:"Zero-based UTF-16 character offset of the cursor."`
}

// CompleteInput adds completion options.
type CompleteInput struct {
	PositionInput
	Limit int `json:"limit,omitempty" jsonschema:"Maximum completions to return. Default is the configured max_items."`
}

// CheckInput lists documents or directories to check.
type CheckInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Documents or directories to check. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// Helper functions

func getPaths(input CheckInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		out, err := output.MarshalTOON(data)
		if err != nil {
			return "", err
		}
		return "```\n" + out + "\n```", nil
	default:
		return output.MarshalTOON(data)
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func loadDocument(input DocumentInput) (inspection.Document, error) {
	if input.Text != "" {
		name := input.Path
		if name == "" {
			name = "untitled.pq"
		}
		return inspection.NewDocument(name, input.Text), nil
	}
	if input.Path == "" {
		return inspection.Document{}, errors.New("either path or text is required")
	}
	if !parser.IsSourceFile(input.Path) {
		return inspection.Document{}, fmt.Errorf("%s is not an M document (want one of %v)", input.Path, parser.SourceExtensions)
	}
	return inspection.ReadDocument(input.Path)
}

// inspect runs one inspection. A nil result with a nil error means the
// failure was already turned into a tool error.
func (s *Server) inspect(ctx context.Context, input PositionInput) (*inspection.Result, *mcp.CallToolResult, error) {
	if input.Line < 0 || input.Character < 0 {
		res, _, _ := toolError("line and character must not be negative")
		return nil, res, nil
	}
	doc, err := loadDocument(input.DocumentInput)
	if err != nil {
		res, _, _ := toolError(err.Error())
		return nil, res, nil
	}
	result, err := s.svc.Inspect(ctx, doc, ast.Position{Line: input.Line, Character: input.Character})
	if err != nil {
		if inspection.IsUnavailable(err) {
			res, _, _ := toolError(err.Error())
			return nil, res, nil
		}
		return nil, nil, err
	}
	return result, nil, nil
}

// Tool handlers

func (s *Server) handleInspectPosition(ctx context.Context, req *mcp.CallToolRequest, input PositionInput) (*mcp.CallToolResult, any, error) {
	result, failed, err := s.inspect(ctx, input)
	if result == nil {
		return failed, nil, err
	}
	return toolResult(result, getFormat(input.Format))
}

func (s *Server) handleComplete(ctx context.Context, req *mcp.CallToolRequest, input CompleteInput) (*mcp.CallToolResult, any, error) {
	result, failed, err := s.inspect(ctx, input.PositionInput)
	if result == nil {
		return failed, nil, err
	}
	items := result.Completions
	if input.Limit > 0 && len(items) > input.Limit {
		items = items[:input.Limit]
	}
	out := struct {
		PartialText string                  `json:"partialText,omitempty" toon:"partialText,omitempty"`
		Completions []inspection.Completion `json:"completions" toon:"completions"`
	}{result.PartialText, items}
	return toolResult(out, getFormat(input.Format))
}

func (s *Server) handleListScope(ctx context.Context, req *mcp.CallToolRequest, input PositionInput) (*mcp.CallToolResult, any, error) {
	result, failed, err := s.inspect(ctx, input)
	if result == nil {
		return failed, nil, err
	}
	out := struct {
		Scope []inspection.Binding `json:"scope" toon:"scope"`
	}{result.Scope}
	return toolResult(out, getFormat(input.Format))
}

func (s *Server) handleCheckDocuments(ctx context.Context, req *mcp.CallToolRequest, input CheckInput) (*mcp.CallToolResult, any, error) {
	files, err := s.scanner.ScanPaths(getPaths(input))
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) == 0 {
		return toolError("no documents found")
	}

	report, err := s.svc.Check(ctx, files, inspection.CheckOptions{})
	if err != nil {
		return nil, nil, err
	}
	return toolResult(report, getFormat(input.Format))
}
