package ingest

import (
	"context"
	"io"
	"time"
)

// RawOpportunity is the untrusted, unnormalized record an adapter hands
// to the pipeline. Nothing here is guaranteed: fields may be empty,
// amounts may be garbage, deadlines may be text in any language.
type RawOpportunity struct {
	Title       string
	Agency      string
	Country     string
	Description string
	RawAmount   string // "$4.2M", "1.000.000", "up to 500,000" ...
	RawCurrency string // ISO code if the source knows it
	DaysUntil   int    // days until deadline; <= 0 means unknown
	RawDeadline string // raw deadline string, parsed when DaysUntil is unset
	Category    string // structured category if the source provides one
	Links       []string
	SourceName  string
	SourceType  string // Federal, International, Commercial, Research...
	Tags        []string
}

// Adapter is a single opportunity source. Each adapter is independent:
// it may fail or time out without affecting any other adapter, and it
// shares no state with the rest of the pipeline.
type Adapter interface {
	Name() string
	SourceType() string
	Fetch(ctx context.Context) ([]RawOpportunity, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc struct {
	ID   string
	Type string
	Fn   func(ctx context.Context) ([]RawOpportunity, error)
}

func (a AdapterFunc) Name() string       { return a.ID }
func (a AdapterFunc) SourceType() string { return a.Type }

func (a AdapterFunc) Fetch(ctx context.Context) ([]RawOpportunity, error) {
	return a.Fn(ctx)
}

// AdapterStatus is the typed per-adapter outcome of a collection pass.
// A failed adapter contributes zero records and this status entry; it
// never aborts the run.
type AdapterStatus struct {
	Name       string `json:"name"`
	Status     string `json:"status"` // healthy | failed
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

const (
	StatusHealthy = "healthy"
	StatusFailed  = "failed"
)

// FetchedDocument represents the raw result of a fetch operation.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     map[string][]string
}

// Fetcher retrieves raw content from a URL. The API adapters depend on
// this rather than a concrete client so tests can substitute a stub.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
	Post(ctx context.Context, url, contentType string, body []byte) (*FetchedDocument, error)
}
