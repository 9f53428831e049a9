package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"swapiexport/internal/metrics"
)

// ── SyncJob ────────────────────────────────────────────────
// Orchestrates: resolve source → fetch entities → transforms → export.

// Trigger types for a SyncJob.
const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"
	TriggerFileWatch = "file_watch"
)

// SyncJob holds the configuration for a single export run.
type SyncJob struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Input         string   `json:"input"`
	Entities      []string `json:"entities"`
	Filters       []Filter `json:"filters,omitempty"`
	Output        string   `json:"output"`
	Strict        bool     `json:"strict"`        // any fetch failure aborts the run
	TriggerType   string   `json:"triggerType"`   // "manual" | "schedule" | "file_watch"
	TriggerConfig string   `json:"triggerConfig"` // cron expression or watched path
}

// EntityResult is the per-entity outcome of a run.
type EntityResult struct {
	Entity  string   `json:"entity"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns,omitempty"`
	Skipped bool     `json:"skipped,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// SyncResult is the outcome of running a sync job.
type SyncResult struct {
	RunID       string         `json:"runId"`
	JobID       string         `json:"jobId"`
	Status      string         `json:"status"` // "success" | "error"
	Entities    []EntityResult `json:"entities"`
	RowsRead    int            `json:"rowsRead"`
	RowsWritten int            `json:"rowsWritten"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt"`
	Duration    time.Duration  `json:"duration"`
	Error       string         `json:"error,omitempty"`
}

// Failed returns the entities that could not be fetched.
func (r *SyncResult) Failed() []EntityResult {
	var out []EntityResult
	for _, e := range r.Entities {
		if e.Skipped {
			out = append(out, e)
		}
	}
	return out
}

// ── Engine ─────────────────────────────────────────────────

type EngineConfig struct {
	Logger        *slog.Logger
	Clock         clockwork.Clock
	SourceOptions SourceOptions
	// ResolveTarget, when set, rewrites the output locator right before the
	// destination is opened, e.g. to fill in credentials.
	ResolveTarget func(locator string) (string, error)
}

func (cfg *EngineConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Engine runs sync jobs using the registered sources and destinations.
type Engine struct {
	log *slog.Logger
	cfg EngineConfig
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{log: cfg.Logger, cfg: cfg}, nil
}

// RunSync executes a sync job end-to-end. Source resolution and export
// failures are fatal; a failed entity is logged and skipped unless the job
// is strict.
func (e *Engine) RunSync(ctx context.Context, job *SyncJob) (*SyncResult, error) {
	clock := e.cfg.Clock
	start := clock.Now()
	result := &SyncResult{
		RunID:     uuid.New().String(),
		JobID:     job.ID,
		StartedAt: start,
	}
	log := e.log.With("run", result.RunID)

	fail := func(err error) (*SyncResult, error) {
		result.Status = "error"
		result.Error = err.Error()
		result.FinishedAt = clock.Now()
		result.Duration = clock.Since(start)
		metrics.RunsTotal.WithLabelValues(result.Status).Inc()
		metrics.RunDuration.Observe(result.Duration.Seconds())
		log.Error("sync: run failed", "error", err)
		return result, err
	}

	// 1. Resolve source.
	source, err := ResolveSource(ctx, job.Input, e.cfg.SourceOptions)
	if err != nil {
		return fail(err)
	}
	defer source.Close()

	store, err := NewStore(StoreConfig{Logger: log, Source: source})
	if err != nil {
		return fail(err)
	}

	// 2. Fetch entities in order.
	for _, entity := range job.Entities {
		t, err := store.FetchEntity(ctx, entity)
		if err != nil {
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			if job.Strict {
				return fail(fmt.Errorf("fetch %s: %w", entity, err))
			}
			if IsUnknownEntity(err) {
				log.Warn("sync: entity not found, skipping", "entity", entity, "error", err)
			} else {
				log.Error("sync: failed to fetch entity, skipping", "entity", entity, "error", err)
			}
			result.Entities = append(result.Entities, EntityResult{Entity: entity, Skipped: true, Error: err.Error()})
			continue
		}
		result.RowsRead += t.Len()
		result.Entities = append(result.Entities, EntityResult{Entity: entity, Rows: t.Len()})
	}

	// 3. Transforms.
	for _, f := range job.Filters {
		store.ApplyTransforms(f.Entity, f.Transforms()...)
	}
	for i := range result.Entities {
		if t, ok := store.Table(result.Entities[i].Entity); ok {
			result.Entities[i].Columns = t.Columns
		}
	}

	// 4. Export.
	if err := e.export(ctx, log, store, job.Output); err != nil {
		return fail(err)
	}
	for _, t := range store.Tables() {
		result.RowsWritten += t.Len()
	}

	result.Status = "success"
	result.FinishedAt = clock.Now()
	result.Duration = clock.Since(start)
	metrics.RunsTotal.WithLabelValues(result.Status).Inc()
	metrics.RunDuration.Observe(result.Duration.Seconds())
	log.Info("sync: run complete",
		"tables", store.Len(), "rows", result.RowsWritten,
		"skipped", len(result.Failed()), "duration", result.Duration)
	return result, nil
}

func (e *Engine) export(ctx context.Context, log *slog.Logger, store *Store, output string) error {
	driver, err := ResolveDestination(output)
	if err != nil {
		return err
	}
	spec := driver.Spec()
	target := Redact(output)

	if spec.Local {
		dir := filepath.Dir(filepath.Clean(output))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &ExportError{Target: target, Err: fmt.Errorf("create output directory: %w", err)}
		}
	}

	locator := output
	if e.cfg.ResolveTarget != nil {
		if locator, err = e.cfg.ResolveTarget(output); err != nil {
			return &ExportError{Target: target, Err: err}
		}
	}
	dest, err := driver.Open(locator)
	if err != nil {
		return err
	}

	start := e.cfg.Clock.Now()
	err = store.Save(ctx, dest, target)
	metrics.ExportDuration.WithLabelValues(spec.Type).Observe(e.cfg.Clock.Since(start).Seconds())
	if err != nil {
		metrics.ExportTotal.WithLabelValues(spec.Type, "error").Inc()
		return err
	}
	metrics.ExportTotal.WithLabelValues(spec.Type, "success").Inc()
	log.Debug("sync: export done", "destination", spec.Type, "target", target)
	return nil
}

// Preview fetches one entity and returns at most maxRows of it without
// exporting anything.
func (e *Engine) Preview(ctx context.Context, input, entity string, maxRows int) (*Table, error) {
	source, err := ResolveSource(ctx, input, e.cfg.SourceOptions)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	records, err := source.Fetch(ctx, entity)
	if err != nil {
		return nil, err
	}
	t := NewTable(entity, records)
	if maxRows > 0 && len(t.Rows) > maxRows {
		t.Rows = t.Rows[:maxRows]
	}
	return t, nil
}
