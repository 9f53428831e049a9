package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	flag "github.com/spf13/pflag"

	"swapiexport/internal/etl"
)

const (
	DefaultInput    = "https://swapi.dev/api/"
	DefaultOutput   = "data/swapi_data.xlsx"
	DefaultEnvFile  = ".env"
	DefaultJobID    = "swapi-export"
	EnvPrefix       = "SWAPI_"
	defaultListRuns = 20
)

// PasswordEnvPrefix names the variables holding output database passwords,
// e.g. SWAPI_PASSWORD_ADMIN_DB_LOCAL_5432 for admin@db.local:5432.
const PasswordEnvPrefix = "SWAPI_PASSWORD_"

// DefaultEntities are fetched when --endpoint is not given.
var DefaultEntities = []string{"people", "planets", "films"}

// Config is the resolved command line.
type Config struct {
	Input       string
	Entities    []string
	Output      string
	Drop        []string
	Keep        []string
	Strict      bool
	Verbose     bool
	Schedule    string
	Watch       bool
	MetricsAddr string
	HistoryPath string
	ListRuns    int
	MCP         bool
	UserAgent   string
	EnvFile     string
}

// RegisterFlags binds every option to fs and returns the config they fill.
func RegisterFlags(fs *flag.FlagSet) *Config {
	c := &Config{}
	fs.StringVar(&c.Input, "input", DefaultInput, "API base URL or input file/directory (or set SWAPI_INPUT)")
	fs.StringSliceVar(&c.Entities, "endpoint", DefaultEntities, "comma-separated entity types to fetch (or set SWAPI_ENDPOINT)")
	fs.StringVar(&c.Output, "output", DefaultOutput, "output locator: .xlsx, .json, .db, dir/, postgres://, mysql://, mongodb:// (or set SWAPI_OUTPUT)")
	fs.StringArrayVar(&c.Drop, "drop", nil, "drop columns from an entity, entity=col1,col2 (repeatable)")
	fs.StringArrayVar(&c.Keep, "keep", nil, "keep only these columns of an entity, entity=col1,col2 (repeatable)")
	fs.BoolVar(&c.Strict, "strict", false, "abort the run when any entity fails to fetch")
	fs.BoolVar(&c.Verbose, "verbose", false, "enable verbose (debug) logging")
	fs.StringVar(&c.Schedule, "schedule", "", "cron expression; run on schedule until interrupted (or set SWAPI_SCHEDULE)")
	fs.BoolVar(&c.Watch, "watch", false, "re-run whenever the local input file changes")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running as a daemon")
	fs.StringVar(&c.HistoryPath, "history", "", "SQLite file recording every run (or set SWAPI_HISTORY)")
	fs.IntVar(&c.ListRuns, "list-runs", 0, "print the N most recent runs from --history and exit")
	fs.Lookup("list-runs").NoOptDefVal = fmt.Sprint(defaultListRuns)
	fs.BoolVar(&c.MCP, "mcp", false, "serve MCP tools over stdio instead of running an export")
	fs.StringVar(&c.UserAgent, "user-agent", "", "User-Agent header for API requests")
	fs.StringVar(&c.EnvFile, "env-file", DefaultEnvFile, "dotenv file loaded before reading SWAPI_* variables")
	return c
}

// LoadEnv loads the dotenv file and applies SWAPI_* variables to every flag
// that was not set on the command line. A missing default .env is ignored.
func (c *Config) LoadEnv(fs *flag.FlagSet) error {
	if err := godotenv.Load(c.EnvFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) || fs.Changed("env-file") {
			return fmt.Errorf("load env file %s: %w", c.EnvFile, err)
		}
	}

	var errs []error
	fs.VisitAll(func(f *flag.Flag) {
		if f.Changed || f.Name == "env-file" {
			return
		}
		v, ok := os.LookupEnv(EnvName(f.Name))
		if !ok || v == "" {
			return
		}
		if err := fs.Set(f.Name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvName(f.Name), err))
		}
	})
	return errors.Join(errs...)
}

// EnvName is the environment variable backing a flag.
func EnvName(flagName string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func (c *Config) Validate() error {
	if c.MCP || c.ListRuns > 0 {
		if c.ListRuns > 0 && c.HistoryPath == "" {
			return errors.New("--history is required for --list-runs")
		}
		return nil
	}
	if strings.TrimSpace(c.Input) == "" {
		return errors.New("--input is required")
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("--output is required")
	}
	if len(c.Entities) == 0 {
		return errors.New("--endpoint needs at least one entity type")
	}
	for _, e := range c.Entities {
		if etl.SheetName(strings.TrimSpace(e)) == "" {
			return fmt.Errorf("invalid entity type %q", e)
		}
	}
	if c.Schedule != "" && c.Watch {
		return errors.New("--schedule and --watch are mutually exclusive")
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid --schedule: %w", err)
		}
	}
	if c.Watch {
		info, err := os.Stat(c.Input)
		if err != nil || info.IsDir() {
			return fmt.Errorf("--watch needs a local input file, got %q", c.Input)
		}
	}
	if c.MetricsAddr != "" && !c.Daemon() {
		return errors.New("--metrics-addr needs --schedule or --watch")
	}
	if _, err := ParseFilters(c.Drop, c.Keep); err != nil {
		return err
	}
	return nil
}

// Daemon reports whether the job keeps running after the first export.
func (c *Config) Daemon() bool { return c.Schedule != "" || c.Watch }

// Job builds the sync job described by the flags.
func (c *Config) Job() (*etl.SyncJob, error) {
	filters, err := ParseFilters(c.Drop, c.Keep)
	if err != nil {
		return nil, err
	}
	entities := make([]string, 0, len(c.Entities))
	for _, e := range c.Entities {
		if e = strings.TrimSpace(e); e != "" {
			entities = append(entities, e)
		}
	}

	job := &etl.SyncJob{
		ID:          DefaultJobID,
		Name:        "SWAPI export",
		Input:       c.Input,
		Entities:    entities,
		Filters:     filters,
		Output:      c.Output,
		Strict:      c.Strict,
		TriggerType: etl.TriggerManual,
	}
	switch {
	case c.Schedule != "":
		job.TriggerType = etl.TriggerSchedule
		job.TriggerConfig = c.Schedule
	case c.Watch:
		job.TriggerType = etl.TriggerFileWatch
		job.TriggerConfig = c.Input
	}
	return job, nil
}

// ParseFilters turns entity=col1,col2 specs into one filter per entity, in
// order of first mention. Specs for the same entity are merged.
func ParseFilters(drop, keep []string) ([]etl.Filter, error) {
	var filters []etl.Filter
	index := map[string]int{}

	add := func(spec string, isKeep bool) error {
		entity, cols, ok := strings.Cut(spec, "=")
		entity = strings.TrimSpace(entity)
		if !ok || entity == "" {
			return fmt.Errorf("invalid column filter %q, want entity=col1,col2", spec)
		}
		var columns []string
		for _, col := range strings.Split(cols, ",") {
			if col = strings.TrimSpace(col); col != "" {
				columns = append(columns, col)
			}
		}
		if len(columns) == 0 {
			return fmt.Errorf("column filter %q names no columns", spec)
		}

		i, seen := index[entity]
		if !seen {
			i = len(filters)
			index[entity] = i
			filters = append(filters, etl.Filter{Entity: entity})
		}
		if isKeep {
			filters[i].Keep = append(filters[i].Keep, columns...)
		} else {
			filters[i].Drop = append(filters[i].Drop, columns...)
		}
		return nil
	}

	for _, spec := range drop {
		if err := add(spec, false); err != nil {
			return nil, err
		}
	}
	for _, spec := range keep {
		if err := add(spec, true); err != nil {
			return nil, err
		}
	}
	return filters, nil
}
