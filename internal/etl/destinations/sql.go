package destinations

import (
	"context"
	"database/sql"
	"fmt"

	"swapiexport/internal/dbclient"
	"swapiexport/internal/etl"
)

// ── SQL Destination ────────────────────────────────────────
// One table per entity, replaced inside a single transaction. Column types
// come from InferSchema.

type sqlDestination struct{}

func init() { etl.RegisterDestination(&sqlDestination{}) }

func (d *sqlDestination) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{
		Type:     "sql",
		Label:    "SQL Database",
		Priority: 30,
		Help:     "SQLite file (.db, .sqlite, .sqlite3), postgres:// or mysql:// URL",
	}
}

func (d *sqlDestination) Match(locator string) bool {
	drv, ok := dbclient.DetectDriver(locator)
	return ok && drv != dbclient.DriverMongoDB
}

func (d *sqlDestination) Open(locator string) (etl.Destination, error) {
	return &SQL{locator: locator}, nil
}

// sqliteDestination registers SQLite files as a local target so the engine
// creates their parent directory.
type sqliteDestination struct{ sqlDestination }

func init() { etl.RegisterDestination(&sqliteDestination{}) }

func (d *sqliteDestination) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{
		Type:     "sqlite",
		Label:    "SQLite File",
		Priority: 25,
		Local:    true,
		Help:     "Path to a .db, .sqlite or .sqlite3 file",
	}
}

func (d *sqliteDestination) Match(locator string) bool {
	drv, ok := dbclient.DetectDriver(locator)
	return ok && drv == dbclient.DriverSQLite
}

// SQL writes tables into a relational database.
type SQL struct {
	locator string
}

func NewSQL(locator string) *SQL { return &SQL{locator: locator} }

func (s *SQL) Export(ctx context.Context, tables []*etl.Table) error {
	target := dbclient.Redact(s.locator)
	names, err := etl.TargetNames(target, tables)
	if err != nil {
		return err
	}

	db, dialect, err := dbclient.OpenSQL(ctx, s.locator)
	if err != nil {
		return &etl.ExportError{Target: target, Err: err}
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &etl.ExportError{Target: target, Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback()

	for i, t := range tables {
		if err := writeTable(ctx, tx, dialect, names[i], t); err != nil {
			return &etl.ExportError{Target: target, Table: t.Name, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &etl.ExportError{Target: target, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// writeTable replaces one table. A table without columns only drops the
// previous copy, since SQL has no zero-column tables.
func writeTable(ctx context.Context, tx *sql.Tx, d dbclient.Dialect, name string, t *etl.Table) error {
	if _, err := tx.ExecContext(ctx, d.DropTable(name)); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if len(t.Columns) == 0 {
		return nil
	}

	schema := etl.InferSchema(t)
	types := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		types[i] = f.Type
	}
	if _, err := tx.ExecContext(ctx, d.CreateTable(name, t.Columns, types)); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, d.Insert(name, t.Columns))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range t.Rows {
		vals := t.Values(i)
		for j, f := range schema.Fields {
			// text columns may still hold numbers or booleans
			if f.Type == "text" && vals[j] != nil {
				vals[j] = etl.FormatValue(vals[j])
			}
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	return nil
}
