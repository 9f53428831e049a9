package dbclient

import (
	"fmt"
	"strings"
)

// Dialect holds the bits of SQL that differ between engines.
type Dialect struct {
	Driver   Driver
	quote    byte
	numbered bool // $1, $2 ... instead of ?
	textType string
	numType  string
	boolType string
}

// DialectFor returns the dialect of a SQL driver.
func DialectFor(d Driver) Dialect {
	switch d {
	case DriverPostgres:
		return Dialect{Driver: d, quote: '"', numbered: true, textType: "TEXT", numType: "DOUBLE PRECISION", boolType: "BOOLEAN"}
	case DriverMySQL:
		return Dialect{Driver: d, quote: '`', textType: "TEXT", numType: "DOUBLE", boolType: "BOOLEAN"}
	default:
		return Dialect{Driver: DriverSQLite, quote: '"', textType: "TEXT", numType: "REAL", boolType: "INTEGER"}
	}
}

// Quote escapes an identifier.
func (d Dialect) Quote(ident string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// Placeholder is the bind marker for the i-th (1-based) parameter.
func (d Dialect) Placeholder(i int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// ColumnType maps an inferred field type ("text", "number", "boolean").
func (d Dialect) ColumnType(fieldType string) string {
	switch fieldType {
	case "number":
		return d.numType
	case "boolean":
		return d.boolType
	default:
		return d.textType
	}
}

// DropTable is an idempotent DROP statement.
func (d Dialect) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(table)
}

// CreateTable builds a CREATE TABLE statement from column names and types.
func (d Dialect) CreateTable(table string, columns, types []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = d.Quote(c) + " " + d.ColumnType(types[i])
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(table), strings.Join(defs, ", "))
}

// Insert builds a single-row INSERT statement.
func (d Dialect) Insert(table string, columns []string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.Quote(c)
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// TableExists is a COUNT query taking the table name as its only parameter.
func (d Dialect) TableExists() string {
	switch d.Driver {
	case DriverPostgres:
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
	case DriverMySQL:
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	default:
		return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
}

// SelectAll reads a whole table.
func (d Dialect) SelectAll(table string) string {
	return "SELECT * FROM " + d.Quote(table)
}
