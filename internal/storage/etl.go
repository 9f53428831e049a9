package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"swapiexport/internal/etl"
)

// ETLStore persists sync jobs and their run history.
type ETLStore struct {
	db *DB
}

func NewETLStore(db *DB) *ETLStore {
	return &ETLStore{db: db}
}

// RunLog is one recorded execution of a sync job.
type RunLog struct {
	ID          string        `json:"id"`
	JobID       string        `json:"jobId"`
	TriggerType string        `json:"triggerType"`
	Input       string        `json:"input"`
	Output      string        `json:"output"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt"`
	Duration    time.Duration `json:"duration"`
	Status      string        `json:"status"`
	RowsRead    int           `json:"rowsRead"`
	RowsWritten int           `json:"rowsWritten"`
	Skipped     []string      `json:"skipped,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// NewRunLog captures a finished run of job.
func NewRunLog(job *etl.SyncJob, res *etl.SyncResult) *RunLog {
	l := &RunLog{
		ID:          res.RunID,
		JobID:       job.ID,
		TriggerType: job.TriggerType,
		Input:       etl.Redact(job.Input),
		Output:      etl.Redact(job.Output),
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Duration:    res.Duration,
		Status:      res.Status,
		RowsRead:    res.RowsRead,
		RowsWritten: res.RowsWritten,
		Error:       res.Error,
	}
	for _, e := range res.Failed() {
		l.Skipped = append(l.Skipped, e.Entity)
	}
	return l
}

// ── SyncJob ────────────────────────────────────────────────

// SaveJob inserts the job or replaces the stored definition with the same ID.
func (s *ETLStore) SaveJob(ctx context.Context, job *etl.SyncJob) error {
	if job.ID == "" {
		return errors.New("job id is required")
	}
	entities, err := json.Marshal(job.Entities)
	if err != nil {
		return err
	}
	filters, err := json.Marshal(job.Filters)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO etl_jobs (id, name, input, entities, filters, output, strict,
		 trigger_type, trigger_config, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, input=excluded.input,
		 entities=excluded.entities, filters=excluded.filters, output=excluded.output,
		 strict=excluded.strict, trigger_type=excluded.trigger_type,
		 trigger_config=excluded.trigger_config, updated_at=excluded.updated_at`,
		job.ID, job.Name, etl.Redact(job.Input), string(entities), string(filters), etl.Redact(job.Output), job.Strict,
		job.TriggerType, job.TriggerConfig, now, now,
	)
	return err
}

func (s *ETLStore) GetJob(ctx context.Context, id string) (*etl.SyncJob, error) {
	job := &etl.SyncJob{}
	var entities, filters string
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, name, input, entities, filters, output, strict, trigger_type, trigger_config
		 FROM etl_jobs WHERE id = ?`, id,
	).Scan(&job.ID, &job.Name, &job.Input, &entities, &filters, &job.Output, &job.Strict,
		&job.TriggerType, &job.TriggerConfig)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("etl job not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(entities), &job.Entities); err != nil {
		return nil, fmt.Errorf("decode entities of job %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(filters), &job.Filters); err != nil {
		return nil, fmt.Errorf("decode filters of job %s: %w", id, err)
	}
	return job, nil
}

// UpdateJobStatus records the outcome of the latest run on the job row.
func (s *ETLStore) UpdateJobStatus(ctx context.Context, id, status, errMsg string) error {
	now := time.Now().UTC()
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE etl_jobs SET last_run_at=?, last_status=?, last_error=?, updated_at=? WHERE id=?`,
		now, status, errMsg, now, id,
	)
	return err
}

// ── Run Logs ───────────────────────────────────────────────

func (s *ETLStore) CreateRunLog(ctx context.Context, l *RunLog) error {
	if l.ID == "" {
		return errors.New("run id is required")
	}
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO etl_run_logs (id, job_id, trigger_type, input, output, started_at, finished_at,
		 duration_ms, status, rows_read, rows_written, skipped, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.JobID, l.TriggerType, l.Input, l.Output, l.StartedAt.UTC(), l.FinishedAt.UTC(),
		l.Duration.Milliseconds(), l.Status, l.RowsRead, l.RowsWritten, strings.Join(l.Skipped, ","), l.Error,
	)
	return err
}

// ListRunLogs returns the newest runs first. An empty jobID lists every job.
func (s *ETLStore) ListRunLogs(ctx context.Context, jobID string, limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, job_id, trigger_type, input, output, started_at, finished_at, duration_ms,
		 status, rows_read, rows_written, skipped, error FROM etl_run_logs`
	args := []any{}
	if jobID != "" {
		query += ` WHERE job_id = ?`
		args = append(args, jobID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []RunLog
	for rows.Next() {
		var (
			l          RunLog
			durationMS int64
			skipped    string
		)
		if err := rows.Scan(&l.ID, &l.JobID, &l.TriggerType, &l.Input, &l.Output, &l.StartedAt,
			&l.FinishedAt, &durationMS, &l.Status, &l.RowsRead, &l.RowsWritten, &skipped, &l.Error); err != nil {
			return nil, err
		}
		l.Duration = time.Duration(durationMS) * time.Millisecond
		if skipped != "" {
			l.Skipped = strings.Split(skipped, ",")
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
