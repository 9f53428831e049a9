package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"swapiexport/internal/etl"
)

const (
	sourcesURI      = "swapiexport://sources"
	destinationsURI = "swapiexport://destinations"
	defaultJobURI   = "swapiexport://job"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(sourcesURI, "Input Types",
		mcp.WithResourceDescription("Registered source drivers in resolution order"),
		mcp.WithMIMEType("application/json"),
	), s.jsonResource(sourcesURI, func() any { return etl.ListSources() }))

	s.mcp.AddResource(mcp.NewResource(destinationsURI, "Output Types",
		mcp.WithResourceDescription("Registered destination drivers in resolution order"),
		mcp.WithMIMEType("application/json"),
	), s.jsonResource(destinationsURI, func() any { return etl.ListDestinations() }))

	s.mcp.AddResource(mcp.NewResource(defaultJobURI, "Default Job",
		mcp.WithResourceDescription("The export job used when run_export arguments are omitted"),
		mcp.WithMIMEType("application/json"),
	), s.jsonResource(defaultJobURI, s.redactedDefaults))
}

func (s *Server) jsonResource(uri string, value func() any) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := marshalJSON(value())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

// redactedDefaults is the default job with credentials masked.
func (s *Server) redactedDefaults() any {
	job := s.defaults
	job.Input = etl.Redact(job.Input)
	job.Output = etl.Redact(job.Output)
	return job
}
