package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"swapiexport/internal/config"
	"swapiexport/internal/etl"
)

const defaultPreviewRows = 5

func (s *Server) registerETLTools() {
	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List the input types the exporter can read, in the order they are tried"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListSources)

	s.mcp.AddTool(mcp.NewTool("list_destinations",
		mcp.WithDescription("List the output types the exporter can write, in the order they are tried"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListDestinations)

	s.mcp.AddTool(mcp.NewTool("preview_entity",
		mcp.WithDescription("Fetch one entity type (e.g. people, planets, films) and return its columns and first rows without writing anything"),
		mcp.WithString("entity", mcp.Description("Entity type to fetch"), mcp.Required()),
		mcp.WithString("input", mcp.Description("API base URL or input file (defaults to the configured input)")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return"), mcp.DefaultNumber(defaultPreviewRows)),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handlePreviewEntity)

	s.mcp.AddTool(mcp.NewTool("run_export",
		mcp.WithDescription("Fetch entity types and export them as one table each. Overwrites the output target."),
		mcp.WithString("input", mcp.Description("API base URL or input file (defaults to the configured input)")),
		mcp.WithArray("entities", mcp.Description("Entity types to fetch"), mcp.WithStringItems()),
		mcp.WithString("output", mcp.Description("Output locator: .xlsx, .json, .db, dir/, postgres://, mysql:// or mongodb://")),
		mcp.WithArray("drop", mcp.Description(`Columns to drop, each "entity=col1,col2"`), mcp.WithStringItems()),
		mcp.WithArray("keep", mcp.Description(`Columns to keep, each "entity=col1,col2"`), mcp.WithStringItems()),
		mcp.WithDestructiveHintAnnotation(true),
	), s.handleRunExport)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent export runs from the run history, newest first"),
		mcp.WithString("jobId", mcp.Description("Only runs of this job (optional)")),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return"), mcp.DefaultNumber(20)),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListRuns)

	s.mcp.AddTool(mcp.NewTool("get_job",
		mcp.WithDescription("Show the last recorded definition of an export job from the run history (credentials masked)"),
		mcp.WithString("jobId", mcp.Description("Job ID (defaults to the configured job)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetJob)
}

func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(etl.ListSources())
}

func (s *Server) handleListDestinations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(etl.ListDestinations())
}

func (s *Server) handlePreviewEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entity := strings.TrimSpace(req.GetString("entity", ""))
	if entity == "" {
		return nil, fmt.Errorf("entity is required")
	}
	input := req.GetString("input", s.defaults.Input)
	limit := req.GetInt("limit", defaultPreviewRows)
	if limit <= 0 {
		limit = defaultPreviewRows
	}

	table, err := s.previews.Preview(ctx, input, entity, limit)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("preview failed", err), nil
	}
	return jsonResult(newTablePreview(table))
}

func (s *Server) handleRunExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job, err := s.jobFromRequest(req)
	if err != nil {
		return nil, err
	}

	result, err := s.etl.RunJob(ctx, job)
	if err != nil {
		if result == nil {
			return mcp.NewToolResultErrorFromErr("export failed", err), nil
		}
		res, jerr := jsonResult(result)
		if jerr != nil {
			return nil, jerr
		}
		res.IsError = true
		return res, nil
	}
	return jsonResult(result)
}

// jobFromRequest overlays the tool arguments on the default job.
func (s *Server) jobFromRequest(req mcp.CallToolRequest) (*etl.SyncJob, error) {
	job := s.defaults
	if job.ID == "" {
		job.ID = config.DefaultJobID
	}
	job.TriggerType = etl.TriggerManual
	job.TriggerConfig = ""
	job.Input = req.GetString("input", job.Input)
	job.Output = req.GetString("output", job.Output)
	job.Entities = req.GetStringSlice("entities", job.Entities)

	drop := req.GetStringSlice("drop", nil)
	keep := req.GetStringSlice("keep", nil)
	if drop != nil || keep != nil {
		filters, err := config.ParseFilters(drop, keep)
		if err != nil {
			return nil, err
		}
		job.Filters = filters
	}

	if job.Input == "" || job.Output == "" || len(job.Entities) == 0 {
		return nil, fmt.Errorf("input, output and at least one entity are required")
	}
	return &job, nil
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logs, err := s.etl.ListRunLogs(ctx, req.GetString("jobId", ""), req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list runs failed", err), nil
	}
	return jsonResult(logs)
}

func (s *Server) handleGetJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("jobId", s.defaults.ID)
	if id == "" {
		id = config.DefaultJobID
	}
	job, err := s.etl.GetJob(ctx, id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("get job failed", err), nil
	}
	return jsonResult(job)
}
