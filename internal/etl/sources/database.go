package sources

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"swapiexport/internal/dbclient"
	"swapiexport/internal/etl"
)

// ── Database Source ────────────────────────────────────────
// Reads one table per entity type from a SQL database, e.g. a previous
// export written by the sql destinations.

type databaseSource struct{}

func init() { etl.RegisterSource(&databaseSource{}) }

func (s *databaseSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:     "database",
		Label:    "SQL Database",
		Priority: 40,
		Help:     "SQLite file (.db) or postgres:// / mysql:// URL with one table per entity type",
	}
}

func (s *databaseSource) Match(locator string) bool {
	drv, ok := dbclient.DetectDriver(locator)
	return ok && drv != dbclient.DriverMongoDB
}

func (s *databaseSource) Open(ctx context.Context, locator string, _ etl.SourceOptions) (etl.Source, error) {
	return OpenDatabase(ctx, locator)
}

// Database is an open SQL connection used as a source.
type Database struct {
	target  string
	db      *sql.DB
	dialect dbclient.Dialect
}

func OpenDatabase(ctx context.Context, locator string) (*Database, error) {
	target := dbclient.Redact(locator)
	if drv, _ := dbclient.DetectDriver(locator); drv == dbclient.DriverSQLite {
		// opening a missing SQLite file would create it
		if _, err := os.Stat(locator); err != nil {
			return nil, &etl.SourceLoadError{Path: target, Err: err}
		}
	}
	db, dialect, err := dbclient.OpenSQL(ctx, locator)
	if err != nil {
		return nil, &etl.SourceLoadError{Path: target, Err: err}
	}
	return &Database{target: target, db: db, dialect: dialect}, nil
}

func (d *Database) Fetch(ctx context.Context, entity string) ([]etl.Record, error) {
	table := etl.SheetName(entity)

	var n int
	if err := d.db.QueryRowContext(ctx, d.dialect.TableExists(), table).Scan(&n); err != nil {
		return nil, &etl.SourceLoadError{Path: d.target, Err: fmt.Errorf("look up table %s: %w", table, err)}
	}
	if n == 0 {
		return nil, &etl.UnknownEntityTypeError{Entity: entity, Source: d.target}
	}

	rows, err := d.db.QueryContext(ctx, d.dialect.SelectAll(table))
	if err != nil {
		return nil, &etl.SourceLoadError{Path: d.target, Err: fmt.Errorf("query %s: %w", table, err)}
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, &etl.SourceLoadError{Path: d.target, Err: fmt.Errorf("read %s: %w", table, err)}
	}
	return records, nil
}

func (d *Database) Close() error { return d.db.Close() }

func scanRecords(rows *sql.Rows) ([]etl.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	records := []etl.Record{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := etl.NewRecord(len(cols))
		for i, col := range cols {
			rec.Set(col, sqlValue(vals[i], types[i].DatabaseTypeName()))
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// sqlValue maps a scanned driver value onto the record value kinds. Drivers
// that return numbers as text (MySQL) are parsed using the column type.
func sqlValue(v any, dbType string) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return x
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case []byte:
		return textValue(string(x), dbType)
	case string:
		return textValue(x, dbType)
	default:
		return fmt.Sprint(x)
	}
}

func textValue(s, dbType string) any {
	if !isNumericType(dbType) {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func isNumericType(dbType string) bool {
	t := strings.ToUpper(dbType)
	for _, p := range []string{"INT", "DOUBLE", "FLOAT", "REAL", "DECIMAL", "NUMERIC"} {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
