package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"swapiexport/internal/etl"
	"swapiexport/internal/metrics"
)

// ── HTTP Source ─────────────────────────────────────────────
// Follows a paginated REST collection: {"results": [...], "next": url|null}.

const defaultUserAgent = "swapiexport/1.0"

type httpSource struct{}

func init() { etl.RegisterSource(&httpSource{}) }

func (s *httpSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:     "http",
		Label:    "HTTP API",
		Priority: 0,
		Help:     "Base URL of a paginated API, e.g. https://swapi.dev/api/",
	}
}

func (s *httpSource) Match(locator string) bool {
	return strings.HasPrefix(strings.ToLower(locator), "http")
}

func (s *httpSource) Open(_ context.Context, locator string, opts etl.SourceOptions) (etl.Source, error) {
	return NewHTTP(locator, opts)
}

// HTTP is a remote source rooted at a base URL.
type HTTP struct {
	base      string
	client    *http.Client
	userAgent string
}

// NewHTTP returns a remote source. The base gets a trailing slash so that
// entity URLs are always {base}{entity}/.
func NewHTTP(base string, opts etl.SourceOptions) (*HTTP, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &etl.UnrecognizedSourceFormatError{Locator: etl.Redact(base), Kind: "source"}
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &HTTP{base: base, client: client, userAgent: ua}, nil
}

// EntityURL is the first page URL for an entity type.
func (h *HTTP) EntityURL(entity string) string {
	return h.base + strings.Trim(entity, "/") + "/"
}

// Fetch follows "next" links until they run out and returns all results in
// page order.
func (h *HTTP) Fetch(ctx context.Context, entity string) ([]etl.Record, error) {
	records := []etl.Record{}
	visited := make(map[string]bool)

	next := h.EntityURL(entity)
	for page := 1; next != ""; page++ {
		if visited[next] {
			return nil, &etl.MalformedResponseError{URL: next, Reason: "pagination cycle"}
		}
		visited[next] = true

		body, err := h.get(ctx, next)
		if err != nil {
			return nil, err
		}
		results, nextURL, err := parsePage(next, body)
		if err != nil {
			return nil, err
		}
		records = append(records, results...)
		next = nextURL
	}
	return records, nil
}

func (h *HTTP) Close() error { return nil }

func (h *HTTP) get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &etl.TransferError{URL: pageURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)

	start := time.Now()
	resp, err := h.client.Do(req)
	metrics.PageFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PagesFetchedTotal.WithLabelValues("error").Inc()
		return nil, &etl.TransferError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.PagesFetchedTotal.WithLabelValues("error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &etl.TransferError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.PagesFetchedTotal.WithLabelValues("error").Inc()
		return nil, &etl.TransferError{URL: pageURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	metrics.PagesFetchedTotal.WithLabelValues("ok").Inc()
	return data, nil
}

// parsePage extracts the records and the absolute next URL ("" when done).
func parsePage(pageURL string, body []byte) ([]etl.Record, string, error) {
	if !gjson.ValidBytes(body) {
		return nil, "", &etl.MalformedResponseError{URL: pageURL, Reason: "body is not valid JSON"}
	}

	results := gjson.GetBytes(body, "results")
	if !results.Exists() {
		return nil, "", &etl.MalformedResponseError{URL: pageURL, Reason: `missing "results" field`}
	}
	if !results.IsArray() {
		return nil, "", &etl.MalformedResponseError{URL: pageURL, Reason: `"results" is not an array`}
	}

	records, err := toRecords(results)
	if err != nil {
		return nil, "", &etl.MalformedResponseError{URL: pageURL, Reason: err.Error()}
	}

	next := gjson.GetBytes(body, "next")
	switch next.Type {
	case gjson.Null:
		return records, "", nil
	case gjson.String:
		if next.Str == "" {
			return records, "", nil
		}
		resolved, err := resolveURL(pageURL, next.Str)
		if err != nil {
			return nil, "", &etl.MalformedResponseError{URL: pageURL, Reason: fmt.Sprintf("bad next link %q", next.Str)}
		}
		return records, resolved, nil
	default:
		return nil, "", &etl.MalformedResponseError{URL: pageURL, Reason: `"next" is neither a string nor null`}
	}
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// toRecords converts a JSON array of objects into Records, keeping key order.
func toRecords(arr gjson.Result) ([]etl.Record, error) {
	var (
		records []etl.Record
		err     error
	)
	i := 0
	arr.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			err = fmt.Errorf("result %d is not an object", i)
			return false
		}
		records = append(records, toRecord(item))
		i++
		return true
	})
	return records, err
}

func toRecord(obj gjson.Result) etl.Record {
	rec := etl.NewRecord(8)
	obj.ForEach(func(key, value gjson.Result) bool {
		rec.Set(key.String(), jsonValue(value))
		return true
	})
	return rec
}

// jsonValue maps a JSON value onto the record value kinds. Arrays and objects
// are kept as compact JSON text.
func jsonValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return v.Float()
	case gjson.String:
		return v.Str
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
			return v.Raw
		}
		return buf.String()
	}
}
