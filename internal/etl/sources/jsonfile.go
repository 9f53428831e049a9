package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"swapiexport/internal/etl"
)

// ── JSON File Source ────────────────────────────────────────
// Reads a document shaped {"<entity>": [ {...}, ... ], ...}.

type jsonFileSource struct{}

func init() { etl.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:     "json",
		Label:    "JSON File",
		Priority: 20,
		Help:     "Path to a .json file mapping entity type to an array of records",
	}
}

func (s *jsonFileSource) Match(locator string) bool {
	return strings.EqualFold(filepath.Ext(locator), ".json")
}

func (s *jsonFileSource) Open(_ context.Context, locator string, _ etl.SourceOptions) (etl.Source, error) {
	return OpenJSONFile(locator)
}

// JSONFile is a JSON document held in memory.
type JSONFile struct {
	path string
	doc  []byte
}

func OpenJSONFile(path string) (*JSONFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &etl.SourceLoadError{Path: path, Err: err}
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, &etl.SourceLoadError{Path: path, Err: errors.New("document is not a JSON object")}
	}
	return &JSONFile{path: path, doc: data}, nil
}

func (j *JSONFile) Fetch(_ context.Context, entity string) ([]etl.Record, error) {
	arr := gjson.GetBytes(j.doc, gjson.Escape(entity))
	if !arr.Exists() {
		return nil, &etl.UnknownEntityTypeError{Entity: entity, Source: j.path}
	}
	if !arr.IsArray() {
		return nil, &etl.SourceLoadError{Path: j.path, Err: errors.New("entry " + entity + " is not an array")}
	}
	records, err := toRecords(arr)
	if err != nil {
		return nil, &etl.SourceLoadError{Path: j.path, Err: err}
	}
	if records == nil {
		records = []etl.Record{}
	}
	return records, nil
}

func (j *JSONFile) Close() error { return nil }
