package etl

import (
	"slices"
	"strconv"
	"strings"
)

// Table is the materialized form of one entity type: ordered rows over a
// fixed column set. Columns are the union of record keys in first-seen order.
type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

// NewTable builds a table from records. An empty input yields a table with
// no rows and no columns.
func NewTable(name string, records []Record) *Table {
	seen := make(map[string]bool)
	var columns []string
	for _, r := range records {
		for _, k := range r.Fields {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	if columns == nil {
		columns = []string{}
	}
	if records == nil {
		records = []Record{}
	}
	return &Table{Name: name, Columns: columns, Rows: records}
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Values returns row i aligned to Columns; missing fields are nil.
func (t *Table) Values(i int) []any {
	row := t.Rows[i]
	out := make([]any, len(t.Columns))
	for j, col := range t.Columns {
		out[j] = row.Data[col]
	}
	return out
}

// DropColumns removes the named columns that exist and returns the ones
// actually removed. Unknown names are ignored.
func (t *Table) DropColumns(cols ...string) []string {
	var removed []string
	for _, c := range cols {
		if !t.HasColumn(c) || slices.Contains(removed, c) {
			continue
		}
		removed = append(removed, c)
	}
	if len(removed) == 0 {
		return nil
	}
	t.Columns = slices.DeleteFunc(t.Columns, func(c string) bool {
		return slices.Contains(removed, c)
	})
	for i := range t.Rows {
		for _, c := range removed {
			t.Rows[i].Delete(c)
		}
	}
	return removed
}

// SelectColumns keeps only the named columns (in table order) and returns
// the columns that were removed.
func (t *Table) SelectColumns(cols ...string) []string {
	var drop []string
	for _, c := range t.Columns {
		if !slices.Contains(cols, c) {
			drop = append(drop, c)
		}
	}
	return t.DropColumns(drop...)
}

// SheetName is the output name for an entity: trailing path separators are
// stripped so "people/" and "people" land on the same sheet.
func SheetName(entity string) string {
	return strings.TrimRight(entity, `/\`)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
