package etl

import (
	"context"
	"net/http"
	"sort"
	"sync"
)

// ── Source ──────────────────────────────────────────────────
// A Source produces the records of a named entity type.
// Drivers live in etl/sources/, one file per source type, and register
// themselves from init().

// Source is an opened data source.
type Source interface {
	// Fetch returns every record of the entity type, in source order.
	// An entity with no records yields an empty slice and a nil error.
	Fetch(ctx context.Context, entity string) ([]Record, error)

	// Close releases anything held since Open.
	Close() error
}

// SourceSpec describes a source type.
type SourceSpec struct {
	Type     string `json:"type"`
	Label    string `json:"label"`
	Priority int    `json:"priority"` // lower is tried first by ResolveSource
	Help     string `json:"help,omitempty"`
}

// SourceOptions are shared knobs passed to every driver on Open.
type SourceOptions struct {
	HTTPClient *http.Client
	UserAgent  string
}

// SourceDriver opens sources of one type.
type SourceDriver interface {
	Spec() SourceSpec
	Match(locator string) bool
	Open(ctx context.Context, locator string, opts SourceOptions) (Source, error)
}

// ── Source Registry ────────────────────────────────────────

var (
	registryMu sync.RWMutex
	registry   = map[string]SourceDriver{}
)

// RegisterSource registers a source driver by its spec type.
// Called from init() in each source implementation file.
func RegisterSource(d SourceDriver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Spec().Type] = d
}

// ListSources returns the specs of all registered drivers in resolution order.
func ListSources() []SourceSpec {
	drivers := sortedSources()
	specs := make([]SourceSpec, len(drivers))
	for i, d := range drivers {
		specs[i] = d.Spec()
	}
	return specs
}

// ResolveSource opens the first driver, by priority, that accepts the locator.
func ResolveSource(ctx context.Context, locator string, opts SourceOptions) (Source, error) {
	for _, d := range sortedSources() {
		if d.Match(locator) {
			return d.Open(ctx, locator, opts)
		}
	}
	return nil, &UnrecognizedSourceFormatError{Locator: Redact(locator), Kind: "source"}
}

func sortedSources() []SourceDriver {
	registryMu.RLock()
	defer registryMu.RUnlock()
	drivers := make([]SourceDriver, 0, len(registry))
	for _, d := range registry {
		drivers = append(drivers, d)
	}
	sort.Slice(drivers, func(i, j int) bool {
		a, b := drivers[i].Spec(), drivers[j].Spec()
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Type < b.Type
	})
	return drivers
}
