package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	flag "github.com/spf13/pflag"

	"swapiexport/internal/config"
	"swapiexport/internal/etl"
	_ "swapiexport/internal/etl/destinations"
	_ "swapiexport/internal/etl/sources"
	"swapiexport/internal/logger"
	mcpserver "swapiexport/internal/mcp"
	"swapiexport/internal/metrics"
	"swapiexport/internal/secret"
	"swapiexport/internal/server"
	"swapiexport/internal/service"
	"swapiexport/internal/storage"
)

// Set by the linker.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("swapiexport", flag.ContinueOnError)
	cfg := config.RegisterFlags(fs)
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("swapiexport %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	if err := cfg.LoadEnv(fs); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.Verbose)
	if cfg.MCP {
		// stdout carries the MCP protocol
		log = logger.NewWithWriter(os.Stderr, cfg.Verbose)
	}
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	var history *storage.ETLStore
	if cfg.HistoryPath != "" {
		db, err := storage.New(cfg.HistoryPath)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer db.Close()
		history = storage.NewETLStore(db)
	}

	if cfg.ListRuns > 0 {
		logs, err := history.ListRunLogs(context.Background(), "", cfg.ListRuns)
		if err != nil {
			return err
		}
		printRunLogs(os.Stdout, logs)
		return nil
	}

	secrets := secret.Default(config.PasswordEnvPrefix)
	engine, err := etl.NewEngine(etl.EngineConfig{
		Logger:        log,
		SourceOptions: etl.SourceOptions{UserAgent: cfg.UserAgent},
		ResolveTarget: func(locator string) (string, error) {
			return secret.ResolvePassword(locator, secrets)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	svc, err := service.NewETLService(service.ETLServiceConfig{
		Logger: log,
		Runner: engine,
		Store:  history,
	})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	job, err := cfg.Job()
	if err != nil {
		return err
	}

	if cfg.MCP {
		srv, err := mcpserver.New(mcpserver.Deps{
			Logger:   log,
			Previews: engine,
			ETL:      svc,
			Defaults: *job,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("failed to create mcp server: %w", err)
		}
		return srv.ServeStdio()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv, err := server.New(server.Config{
			Logger:      log,
			ListenAddr:  cfg.MetricsAddr,
			VersionInfo: server.VersionInfo{Version: version, Commit: commit, Date: date},
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		serverErrCh := make(chan error, 1)
		go func() {
			serverErrCh <- srv.Run(ctx)
		}()
		defer func() {
			stop()
			if err := <-serverErrCh; err != nil {
				log.Error("server error", "error", err)
			}
		}()
	}

	log.Info("starting export",
		"input", etl.Redact(job.Input), "entities", job.Entities, "output", etl.Redact(job.Output),
		"trigger", job.TriggerType)
	return svc.Serve(ctx, job)
}

// printRunLogs renders the run history as a table, newest first.
func printRunLogs(w io.Writer, logs []storage.RunLog) {
	if len(logs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Job", "Trigger", "Started", "Duration", "Status", "Read", "Written", "Skipped", "Error"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, l := range logs {
		table.Append([]string{
			l.ID,
			l.JobID,
			l.TriggerType,
			l.StartedAt.Local().Format(time.DateTime),
			l.Duration.Round(time.Millisecond).String(),
			l.Status,
			strconv.Itoa(l.RowsRead),
			strconv.Itoa(l.RowsWritten),
			strings.Join(l.Skipped, ","),
			l.Error,
		})
	}
	table.Render()
}
