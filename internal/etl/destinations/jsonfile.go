package destinations

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"swapiexport/internal/etl"
)

// ── JSON File Destination ──────────────────────────────────
// Writes {"<sheet>": [ {...}, ... ]} keeping table and column order.

type jsonFileDestination struct{}

func init() { etl.RegisterDestination(&jsonFileDestination{}) }

func (d *jsonFileDestination) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{
		Type:     "json",
		Label:    "JSON File",
		Priority: 20,
		Local:    true,
		Help:     "Path to the .json file to write",
	}
}

func (d *jsonFileDestination) Match(locator string) bool {
	return strings.EqualFold(filepath.Ext(locator), ".json")
}

func (d *jsonFileDestination) Open(locator string) (etl.Destination, error) {
	return &JSONFile{path: locator}, nil
}

// JSONFile writes every table into one JSON document.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile { return &JSONFile{path: path} }

func (j *JSONFile) Export(ctx context.Context, tables []*etl.Table) error {
	names, err := etl.TargetNames(j.path, tables)
	if err != nil {
		return err
	}

	doc := []byte(`{}`)
	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return &etl.ExportError{Target: j.path, Err: err}
		}
		arr, err := encodeTable(t)
		if err != nil {
			return &etl.ExportError{Target: j.path, Table: t.Name, Err: err}
		}
		doc, err = sjson.SetRawBytes(doc, gjson.Escape(names[i]), arr)
		if err != nil {
			return &etl.ExportError{Target: j.path, Table: t.Name, Err: err}
		}
	}

	err = etl.WriteFileAtomic(j.path, func(w io.Writer) error {
		_, err := w.Write(append(doc, '\n'))
		return err
	})
	if err != nil {
		return &etl.ExportError{Target: j.path, Err: err}
	}
	return nil
}

// encodeTable renders rows as objects with keys in column order.
func encodeTable(t *etl.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := range t.Rows {
		obj := []byte(`{}`)
		var err error
		for j, v := range t.Values(i) {
			obj, err = sjson.SetBytes(obj, gjson.Escape(t.Columns[j]), v)
			if err != nil {
				return nil, err
			}
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(obj)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
