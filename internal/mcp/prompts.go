package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"swapiexport/internal/etl"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("export_entities",
		mcp.WithPromptDescription("Inspect entity types and export a trimmed workbook"),
		mcp.WithArgument("entities",
			mcp.ArgumentDescription("Comma-separated entity types, e.g. people,planets"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("output",
			mcp.ArgumentDescription("Output locator (defaults to the configured output)"),
		),
	), s.handleExportPrompt)
}

func (s *Server) handleExportPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	entities := req.Params.Arguments["entities"]
	output := req.Params.Arguments["output"]
	if output == "" {
		output = etl.Redact(s.defaults.Output)
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Export %s to %s", entities, output),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Export these entity types: %s.

1. Call preview_entity for each one and look at its columns.
2. Decide which columns are noise (URLs, created/edited timestamps) and list them as drop filters "entity=col1,col2".
3. Call run_export with entities, the drop filters and output %q.
4. Report the rows written per entity and any entity that was skipped.`, entities, output),
				},
			},
		},
	}, nil
}
