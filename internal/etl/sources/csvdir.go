package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"swapiexport/internal/etl"
)

// ── CSV Directory Source ────────────────────────────────────
// Reads records from <dir>/<entity>.csv, one file per entity type.

type csvDirSource struct{}

func init() { etl.RegisterSource(&csvDirSource{}) }

func (s *csvDirSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:     "csv",
		Label:    "CSV Directory",
		Priority: 30,
		Help:     "Directory holding one <entity>.csv file per entity type",
	}
}

func (s *csvDirSource) Match(locator string) bool {
	info, err := os.Stat(locator)
	return err == nil && info.IsDir()
}

func (s *csvDirSource) Open(_ context.Context, locator string, _ etl.SourceOptions) (etl.Source, error) {
	return &CSVDir{dir: locator}, nil
}

// CSVDir is a directory of CSV files.
type CSVDir struct {
	dir string
}

func NewCSVDir(dir string) *CSVDir { return &CSVDir{dir: dir} }

func (c *CSVDir) Fetch(_ context.Context, entity string) ([]etl.Record, error) {
	path := filepath.Join(c.dir, etl.SheetName(entity)+".csv")
	headers, rows, err := readCSVFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &etl.UnknownEntityTypeError{Entity: entity, Source: c.dir}
	}
	if err != nil {
		return nil, &etl.SourceLoadError{Path: path, Err: err}
	}

	records := make([]etl.Record, 0, len(rows))
	for _, row := range rows {
		rec := etl.NewRecord(len(headers))
		for j, h := range headers {
			var v any
			if j < len(row) {
				v = inferCSVValue(row[j])
			}
			rec.Set(h, v)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *CSVDir) Close() error { return nil }

func readCSVFile(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return []string{}, nil, nil
	}
	return headerNames(records[0]), records[1:], nil
}

// inferCSVValue tries to parse a string as a number or bool.
func inferCSVValue(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
