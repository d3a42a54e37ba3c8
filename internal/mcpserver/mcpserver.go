package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/pqinspect/internal/scanner"
	"github.com/panbanda/pqinspect/internal/service/inspection"
)

// Server wraps the MCP server and registers the inspection tools.
type Server struct {
	server  *mcp.Server
	svc     *inspection.Service
	scanner *scanner.Scanner
}

// NewServer creates a new MCP server with all pqinspect tools registered.
func NewServer(version string, svc *inspection.Service) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "pqinspect",
			Version: version,
		},
		nil,
	)

	s := &Server{
		server:  server,
		svc:     svc,
		scanner: scanner.NewScanner(svc.Config()),
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

const (
	toolInspectPosition = "inspect_position"
	toolComplete        = "complete"
	toolListScope       = "list_scope"
	toolCheckDocuments  = "check_documents"
)

// toolNames lists the tools in registration order.
var toolNames = []string{toolInspectPosition, toolComplete, toolListScope, toolCheckDocuments}

// registerTools adds the inspection tools to the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolInspectPosition,
		Description: describeInspectPosition(),
	}, s.handleInspectPosition)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolComplete,
		Description: describeComplete(),
	}, s.handleComplete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolListScope,
		Description: describeListScope(),
	}, s.handleListScope)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolCheckDocuments,
		Description: describeCheckDocuments(),
	}, s.handleCheckDocuments)
}
