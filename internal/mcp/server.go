package mcpserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"swapiexport/internal/etl"
	"swapiexport/internal/service"
)

// Previewer reads a sample of one entity without exporting it.
// *etl.Engine implements it.
type Previewer interface {
	Preview(ctx context.Context, input, entity string, maxRows int) (*etl.Table, error)
}

// Server is the MCP server exposing the exporter to AI agents over stdio.
type Server struct {
	mcp      *server.MCPServer
	log      *slog.Logger
	previews Previewer
	etl      *service.ETLService
	defaults etl.SyncJob
}

// Deps holds everything the tools need.
type Deps struct {
	Logger   *slog.Logger
	Previews Previewer
	ETL      *service.ETLService
	// Defaults fills the arguments a tool call leaves out.
	Defaults etl.SyncJob
	Version  string
}

func (d *Deps) Validate() error {
	if d.Logger == nil {
		return errors.New("logger is required")
	}
	if d.Previews == nil {
		return errors.New("previewer is required")
	}
	if d.ETL == nil {
		return errors.New("etl service is required")
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	return nil
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		log:      deps.Logger,
		previews: deps.Previews,
		etl:      deps.ETL,
		defaults: deps.Defaults,
	}

	s.mcp = server.NewMCPServer(
		"swapiexport-mcp",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerETLTools()
	s.registerResources()
	s.registerPrompts()
	return s, nil
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// MCP exposes the underlying server, mainly for in-process clients.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}
