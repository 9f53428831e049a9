package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"swapiexport/internal/etl"
	"swapiexport/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// ETL Service: runs sync jobs once, on a schedule, or on file change
// ─────────────────────────────────────────────────────────────

// DefaultDebounce collapses bursts of file events into one run.
const DefaultDebounce = 500 * time.Millisecond

// ErrJobRunning is returned when a run of the same job is still in progress.
var ErrJobRunning = errors.New("job is already running")

// Runner executes one sync job. *etl.Engine implements it.
type Runner interface {
	RunSync(ctx context.Context, job *etl.SyncJob) (*etl.SyncResult, error)
}

type ETLServiceConfig struct {
	Logger   *slog.Logger
	Runner   Runner
	Store    *storage.ETLStore // optional run history
	Emitter  EventEmitter
	Clock    clockwork.Clock
	Debounce time.Duration
}

func (cfg *ETLServiceConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Runner == nil {
		return errors.New("runner is required")
	}
	if cfg.Emitter == nil {
		cfg.Emitter = LogEmitter{Log: cfg.Logger}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return nil
}

// ETLService owns the triggers of a job and serialises its runs.
type ETLService struct {
	log         *slog.Logger
	cfg         ETLServiceConfig
	runningJobs runningJobsGuard

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

func NewETLService(cfg ETLServiceConfig) (*ETLService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ETLService{log: cfg.Logger, cfg: cfg}, nil
}

// ── Run ────────────────────────────────────────────────────

// RunJob executes the job synchronously and records the outcome in the run
// history when one is configured.
func (s *ETLService) RunJob(ctx context.Context, job *etl.SyncJob) (*etl.SyncResult, error) {
	if !s.runningJobs.TryLock(job.ID) {
		s.cfg.Emitter.Emit(ctx, EventRunSkipped, job.ID)
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, job.ID)
	}
	defer s.runningJobs.Unlock(job.ID)

	s.cfg.Emitter.Emit(ctx, EventRunStarted, job.ID)
	result, runErr := s.cfg.Runner.RunSync(ctx, job)
	if result != nil {
		s.record(job, result)
		s.cfg.Emitter.Emit(ctx, EventRunCompleted, result)
	}
	return result, runErr
}

// record writes the run log even when ctx was cancelled mid-run.
func (s *ETLService) record(job *etl.SyncJob, result *etl.SyncResult) {
	if s.cfg.Store == nil {
		return
	}
	ctx := context.Background()
	if err := s.cfg.Store.SaveJob(ctx, job); err != nil {
		s.log.Warn("service: failed to save job", "job", job.ID, "error", err)
	}
	if err := s.cfg.Store.CreateRunLog(ctx, storage.NewRunLog(job, result)); err != nil {
		s.log.Warn("service: failed to record run", "job", job.ID, "run", result.RunID, "error", err)
	}
	if err := s.cfg.Store.UpdateJobStatus(ctx, job.ID, result.Status, result.Error); err != nil {
		s.log.Warn("service: failed to update job status", "job", job.ID, "error", err)
	}
}

// ListRunLogs returns the newest recorded runs of a job ("" for all jobs).
func (s *ETLService) ListRunLogs(ctx context.Context, jobID string, limit int) ([]storage.RunLog, error) {
	if s.cfg.Store == nil {
		return nil, errors.New("run history is not enabled")
	}
	return s.cfg.Store.ListRunLogs(ctx, jobID, limit)
}

// GetJob returns the last recorded definition of a job.
func (s *ETLService) GetJob(ctx context.Context, jobID string) (*etl.SyncJob, error) {
	if s.cfg.Store == nil {
		return nil, errors.New("run history is not enabled")
	}
	return s.cfg.Store.GetJob(ctx, jobID)
}

// Serve runs a manual job once. Scheduled and file-watch jobs run once
// immediately and then on every trigger until ctx is done; Serve then waits
// for the in-flight run before returning.
func (s *ETLService) Serve(ctx context.Context, job *etl.SyncJob) error {
	if job.TriggerType == "" || job.TriggerType == etl.TriggerManual {
		_, err := s.RunJob(ctx, job)
		return err
	}

	if err := s.Start(ctx, job); err != nil {
		return err
	}
	defer s.Stop()

	if _, err := s.RunJob(ctx, job); err != nil && ctx.Err() == nil {
		s.log.Error("service: initial run failed", "job", job.ID, "error", err)
	}

	<-ctx.Done()
	s.log.Info("service: shutting down, waiting for running job", "job", job.ID)
	s.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.WaitRunning(waitCtx)
	return nil
}

// ── Watchers (cron + file_watch) ──────────────────────────

// Start installs the job's trigger. Any previous trigger is torn down first.
func (s *ETLService) Start(ctx context.Context, job *etl.SyncJob) error {
	s.Stop()

	switch job.TriggerType {
	case etl.TriggerSchedule:
		return s.startCron(ctx, job)
	case etl.TriggerFileWatch:
		return s.startWatcher(ctx, job)
	case "", etl.TriggerManual:
		return nil
	default:
		return fmt.Errorf("unknown trigger type %q", job.TriggerType)
	}
}

func (s *ETLService) startCron(ctx context.Context, job *etl.SyncJob) error {
	c := cron.New()
	_, err := c.AddFunc(job.TriggerConfig, func() {
		s.log.Info("etl cron: running job", "job", job.ID)
		if _, err := s.RunJob(ctx, job); err != nil {
			s.log.Error("etl cron: job failed", "job", job.ID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.TriggerConfig, err)
	}
	c.Start()

	s.mu.Lock()
	s.cronSched = c
	s.mu.Unlock()
	s.log.Info("etl cron: scheduled job", "job", job.ID, "schedule", job.TriggerConfig)
	return nil
}

func (s *ETLService) startWatcher(ctx context.Context, job *etl.SyncJob) error {
	absPath, err := filepath.Abs(job.TriggerConfig)
	if err != nil {
		return fmt.Errorf("watch path %q: %w", job.TriggerConfig, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir %q: %w", filepath.Dir(absPath), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.watcher = watcher
	s.watchCancel = cancel
	s.mu.Unlock()

	go s.watchLoop(watchCtx, watcher, absPath, job)
	s.log.Info("etl watcher: watching file", "job", job.ID, "path", absPath)
	return nil
}

func (s *ETLService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, job *etl.SyncJob) {
	var timer clockwork.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if abs, _ := filepath.Abs(event.Name); abs != path {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = s.cfg.Clock.AfterFunc(s.cfg.Debounce, func() {
				if ctx.Err() != nil {
					return
				}
				s.log.Info("etl watcher: file changed, running job", "job", job.ID, "path", path)
				if _, err := s.RunJob(ctx, job); err != nil {
					s.log.Error("etl watcher: run failed", "job", job.ID, "error", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("etl watcher: error", "error", err)
		}
	}
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
func (s *ETLService) WaitRunning(ctx context.Context) {
	s.runningJobs.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers. It is safe to call twice.
func (s *ETLService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
