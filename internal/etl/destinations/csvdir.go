package destinations

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"swapiexport/internal/etl"
)

// ── CSV Directory Destination ──────────────────────────────
// Writes <dir>/<sheet>.csv per table. Files are staged as temp files and
// renamed only once every table has been written.

type csvDirDestination struct{}

func init() { etl.RegisterDestination(&csvDirDestination{}) }

func (d *csvDirDestination) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{
		Type:     "csv",
		Label:    "CSV Directory",
		Priority: 50,
		Local:    true,
		Help:     "Directory path ending in '/'; one <entity>.csv per table",
	}
}

func (d *csvDirDestination) Match(locator string) bool {
	return strings.HasSuffix(locator, "/") || strings.HasSuffix(locator, string(os.PathSeparator))
}

func (d *csvDirDestination) Open(locator string) (etl.Destination, error) {
	return &CSVDir{dir: filepath.Clean(locator)}, nil
}

// CSVDir writes one CSV file per table.
type CSVDir struct {
	dir string
}

func NewCSVDir(dir string) *CSVDir { return &CSVDir{dir: dir} }

func (c *CSVDir) Export(ctx context.Context, tables []*etl.Table) (err error) {
	names, err := etl.TargetNames(c.dir, tables)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return &etl.ExportError{Target: c.dir, Err: err}
	}

	staged := make([]string, 0, len(tables))
	defer func() {
		if err != nil {
			for _, p := range staged {
				os.Remove(p)
			}
		}
	}()

	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return &etl.ExportError{Target: c.dir, Err: err}
		}
		tmp, err := stageCSV(c.dir, names[i], t)
		if err != nil {
			return &etl.ExportError{Target: c.dir, Table: t.Name, Err: err}
		}
		staged = append(staged, tmp)
	}

	for i, tmp := range staged {
		if err = os.Rename(tmp, filepath.Join(c.dir, names[i]+".csv")); err != nil {
			return &etl.ExportError{Target: c.dir, Table: tables[i].Name, Err: err}
		}
	}
	return nil
}

func stageCSV(dir, name string, t *etl.Table) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.csv.tmp")
	if err != nil {
		return "", err
	}
	if err := writeCSV(f, t); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func writeCSV(w io.Writer, t *etl.Table) error {
	cw := csv.NewWriter(w)
	if len(t.Columns) > 0 {
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
	}
	row := make([]string, len(t.Columns))
	for i := range t.Rows {
		for j, v := range t.Values(i) {
			row[j] = etl.FormatValue(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
