package etl

import (
	"errors"
	"fmt"
)

// ErrNoTables is returned by destinations asked to export an empty store.
var ErrNoTables = errors.New("no tables to export")

// TransferError is a failed page request: a non-2xx status, or a transport
// failure (StatusCode 0, Err set).
type TransferError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transfer %s: %v", Redact(e.URL), e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("transfer %s: http %d: %s", Redact(e.URL), e.StatusCode, e.Body)
	}
	return fmt.Sprintf("transfer %s: http %d", Redact(e.URL), e.StatusCode)
}

func (e *TransferError) Unwrap() error { return e.Err }

// MalformedResponseError is a page that cannot be interpreted as
// {"results": [...], "next": url|null}.
type MalformedResponseError struct {
	URL    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", Redact(e.URL), e.Reason)
}

// SourceLoadError means a file-backed source could not be opened or parsed.
type SourceLoadError struct {
	Path string
	Err  error
}

func (e *SourceLoadError) Error() string {
	return fmt.Sprintf("load source %s: %v", e.Path, e.Err)
}

func (e *SourceLoadError) Unwrap() error { return e.Err }

// UnknownEntityTypeError is a fetch for an entity the source does not hold.
type UnknownEntityTypeError struct {
	Entity string
	Source string
}

func (e *UnknownEntityTypeError) Error() string {
	return fmt.Sprintf("entity %q not found in %s", e.Entity, e.Source)
}

// UnrecognizedSourceFormatError means no registered driver accepts a locator.
type UnrecognizedSourceFormatError struct {
	Locator string
	Kind    string // "source" | "destination"
}

func (e *UnrecognizedSourceFormatError) Error() string {
	return fmt.Sprintf("unrecognized %s format: %q", e.Kind, e.Locator)
}

// ExportError wraps any failure while writing tables to a destination.
type ExportError struct {
	Target string
	Table  string
	Err    error
}

func (e *ExportError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("export %s (table %q): %v", e.Target, e.Table, e.Err)
	}
	return fmt.Sprintf("export %s: %v", e.Target, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// IsUnknownEntity reports whether err is a soft miss for an entity type.
func IsUnknownEntity(err error) bool {
	var ue *UnknownEntityTypeError
	return errors.As(err, &ue)
}

// errorKind is the metrics label for a fetch error.
func errorKind(err error) string {
	var (
		te *TransferError
		me *MalformedResponseError
		le *SourceLoadError
		ue *UnknownEntityTypeError
	)
	switch {
	case errors.As(err, &te):
		return "transfer"
	case errors.As(err, &me):
		return "malformed"
	case errors.As(err, &le):
		return "load"
	case errors.As(err, &ue):
		return "unknown_entity"
	default:
		return "other"
	}
}
