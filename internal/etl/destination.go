package etl

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes every table of a store into one target.
// Drivers live in etl/destinations/ and register themselves from init().
//
// Export is all-or-nothing: a failed export leaves no committed artifact.

// Destination is an opened export target.
type Destination interface {
	Export(ctx context.Context, tables []*Table) error
}

// DestinationSpec describes a destination type.
type DestinationSpec struct {
	Type     string `json:"type"`
	Label    string `json:"label"`
	Priority int    `json:"priority"`
	Local    bool   `json:"local"` // target is a filesystem path
	Help     string `json:"help,omitempty"`
}

// DestinationDriver opens destinations of one type.
type DestinationDriver interface {
	Spec() DestinationSpec
	Match(locator string) bool
	Open(locator string) (Destination, error)
}

var (
	destMu       sync.RWMutex
	destRegistry = map[string]DestinationDriver{}
)

// RegisterDestination registers a destination driver by its spec type.
func RegisterDestination(d DestinationDriver) {
	destMu.Lock()
	defer destMu.Unlock()
	destRegistry[d.Spec().Type] = d
}

// ListDestinations returns the specs of all registered drivers in resolution order.
func ListDestinations() []DestinationSpec {
	drivers := sortedDestinations()
	specs := make([]DestinationSpec, len(drivers))
	for i, d := range drivers {
		specs[i] = d.Spec()
	}
	return specs
}

// ResolveDestination returns the first driver, by priority, that accepts the
// locator. The destination itself is opened by the caller.
func ResolveDestination(locator string) (DestinationDriver, error) {
	for _, d := range sortedDestinations() {
		if d.Match(locator) {
			return d, nil
		}
	}
	return nil, &UnrecognizedSourceFormatError{Locator: Redact(locator), Kind: "destination"}
}

func sortedDestinations() []DestinationDriver {
	destMu.RLock()
	defer destMu.RUnlock()
	drivers := make([]DestinationDriver, 0, len(destRegistry))
	for _, d := range destRegistry {
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

// ── Helpers shared by destinations ─────────────────────────

// Redact hides the password of a URL locator so it can be logged, stored in
// the run history or put in an error message.
func Redact(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.User == nil {
		return locator
	}
	return u.Redacted()
}

// TargetNames maps each table to its SheetName and rejects empty input and
// names that collide case-insensitively.
func TargetNames(target string, tables []*Table) ([]string, error) {
	if len(tables) == 0 {
		return nil, &ExportError{Target: target, Err: ErrNoTables}
	}
	names := make([]string, len(tables))
	seen := make(map[string]string, len(tables))
	for i, t := range tables {
		name := SheetName(t.Name)
		if name == "" {
			return nil, &ExportError{Target: target, Table: t.Name, Err: fmt.Errorf("empty output name")}
		}
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			return nil, &ExportError{Target: target, Table: t.Name,
				Err: fmt.Errorf("output name %q collides with table %q", name, prev)}
		}
		seen[key] = t.Name
		names[i] = name
	}
	return names, nil
}

// WriteFileAtomic writes path through a temp file in the same directory and
// renames it into place only after write succeeded and the file is closed.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
