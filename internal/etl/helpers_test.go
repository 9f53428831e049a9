package etl_test

import (
	"context"
	"strings"
	"sync"

	"swapiexport/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// In-memory source and capturing destination, registered once for
// the package under the mem:// and capture:// locators.
// ─────────────────────────────────────────────────────────────

type memSource struct {
	data map[string][]etl.Record
	errs map[string]error
}

func (s *memSource) Fetch(_ context.Context, entity string) ([]etl.Record, error) {
	if err, ok := s.errs[entity]; ok {
		return nil, err
	}
	records, ok := s.data[entity]
	if !ok {
		return nil, &etl.UnknownEntityTypeError{Entity: entity, Source: "mem"}
	}
	return records, nil
}

func (s *memSource) Close() error { return nil }

var (
	memMu      sync.Mutex
	memSources = map[string]*memSource{}
	captured   = map[string][]*etl.Table{}
)

type memDriver struct{}

func (memDriver) Spec() etl.SourceSpec {
	return etl.SourceSpec{Type: "mem", Label: "Memory", Priority: -1}
}

func (memDriver) Match(locator string) bool { return strings.HasPrefix(locator, "mem://") }

func (memDriver) Open(_ context.Context, locator string, _ etl.SourceOptions) (etl.Source, error) {
	memMu.Lock()
	defer memMu.Unlock()
	s, ok := memSources[locator]
	if !ok {
		return nil, &etl.SourceLoadError{Path: locator, Err: context.Canceled}
	}
	return s, nil
}

type captureDest struct {
	target string
	err    error
}

func (d *captureDest) Export(_ context.Context, tables []*etl.Table) error {
	if _, err := etl.TargetNames(d.target, tables); err != nil {
		return err
	}
	if d.err != nil {
		return &etl.ExportError{Target: d.target, Err: d.err}
	}
	memMu.Lock()
	defer memMu.Unlock()
	captured[d.target] = tables
	return nil
}

type captureDriver struct{}

func (captureDriver) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{Type: "capture", Label: "Capture", Priority: -1}
}

func (captureDriver) Match(locator string) bool { return strings.HasPrefix(locator, "capture://") }

func (captureDriver) Open(locator string) (etl.Destination, error) {
	var err error
	if strings.HasSuffix(locator, "/fail") {
		err = context.DeadlineExceeded
	}
	return &captureDest{target: etl.Redact(locator), err: err}, nil
}

func init() {
	etl.RegisterSource(memDriver{})
	etl.RegisterDestination(captureDriver{})
}

func putSource(locator string, s *memSource) {
	memMu.Lock()
	defer memMu.Unlock()
	memSources[locator] = s
}

func capturedTables(target string) []*etl.Table {
	memMu.Lock()
	defer memMu.Unlock()
	return captured[target]
}

func rec(kv ...any) etl.Record {
	r := etl.NewRecord(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}
