package etl

import (
	"fmt"
	"reflect"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// All sources emit Records, all destinations consume Tables of Records.
//
// Values are one of: string, float64, bool, nil. Nested JSON values are
// carried as their compact JSON text.

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "boolean"
}

// Schema describes the shape of a table.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Record is a single row of data flowing through the pipeline.
// Fields keeps the key order in which the source produced them.
type Record struct {
	Fields []string       `json:"fields"`
	Data   map[string]any `json:"data"`
}

// NewRecord returns an empty record with room for n fields.
func NewRecord(n int) Record {
	return Record{
		Fields: make([]string, 0, n),
		Data:   make(map[string]any, n),
	}
}

// Set assigns a value, appending the field name if it is new.
func (r *Record) Set(name string, v any) {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	if _, ok := r.Data[name]; !ok {
		r.Fields = append(r.Fields, name)
	}
	r.Data[name] = v
}

func (r Record) Get(name string) (any, bool) {
	v, ok := r.Data[name]
	return v, ok
}

// Delete removes a field. Missing fields are ignored.
func (r *Record) Delete(name string) {
	if _, ok := r.Data[name]; !ok {
		return
	}
	delete(r.Data, name)
	for i, f := range r.Fields {
		if f == name {
			r.Fields = append(r.Fields[:i], r.Fields[i+1:]...)
			break
		}
	}
}

func (r Record) Len() int { return len(r.Fields) }

// InferSchema types each column from its non-nil values. A column whose
// values disagree (e.g. 172 and "unknown") is text.
func InferSchema(t *Table) *Schema {
	schema := &Schema{Fields: make([]Field, 0, len(t.Columns))}
	for _, col := range t.Columns {
		typ := ""
		for _, row := range t.Rows {
			v, ok := row.Data[col]
			if !ok || v == nil {
				continue
			}
			vt := inferType(v)
			if typ == "" {
				typ = vt
			} else if vt != typ {
				typ = "text"
				break
			}
		}
		if typ == "" {
			typ = "text"
		}
		schema.Fields = append(schema.Fields, Field{Name: col, Type: typ})
	}
	return schema
}

func inferType(v any) string {
	if v == nil {
		return "text"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Float64, reflect.Float32, reflect.Int, reflect.Int64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return "text"
	}
}

// FormatValue renders a cell value as text for text-only sinks.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}
