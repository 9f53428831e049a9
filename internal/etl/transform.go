package etl

// ── Table Transforms ───────────────────────────────────────
// Transforms modify a stored table in place. They run after fetching and
// before export; each returns the columns it removed.

// TableTransform processes one table.
type TableTransform interface {
	Apply(t *Table) []string
}

// DropColumnsTransform removes the named columns. Names the table does not
// have are ignored.
type DropColumnsTransform struct {
	Columns []string
}

func (tr *DropColumnsTransform) Apply(t *Table) []string {
	return t.DropColumns(tr.Columns...)
}

// SelectColumnsTransform keeps only the named columns.
type SelectColumnsTransform struct {
	Columns []string
}

func (tr *SelectColumnsTransform) Apply(t *Table) []string {
	return t.SelectColumns(tr.Columns...)
}

// Filter is the declarative form of a per-entity transform.
type Filter struct {
	Entity string   `json:"entity"`
	Drop   []string `json:"drop,omitempty"`
	Keep   []string `json:"keep,omitempty"`
}

// Transforms builds the transform chain for a filter: keep first, then drop.
func (f Filter) Transforms() []TableTransform {
	var ts []TableTransform
	if len(f.Keep) > 0 {
		ts = append(ts, &SelectColumnsTransform{Columns: f.Keep})
	}
	if len(f.Drop) > 0 {
		ts = append(ts, &DropColumnsTransform{Columns: f.Drop})
	}
	return ts
}
