package ingest

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCollectIsolatesFailures(t *testing.T) {
	adapters := []Adapter{
		AdapterFunc{ID: "healthy", Type: "Federal", Fn: func(ctx context.Context) ([]RawOpportunity, error) {
			return []RawOpportunity{{Title: "a"}, {Title: "b"}}, nil
		}},
		AdapterFunc{ID: "broken", Type: "Federal", Fn: func(ctx context.Context) ([]RawOpportunity, error) {
			return nil, errors.New("connection refused")
		}},
		AdapterFunc{ID: "panics", Type: "Federal", Fn: func(ctx context.Context) ([]RawOpportunity, error) {
			panic("boom")
		}},
	}

	res := NewCollector(2).Collect(context.Background(), adapters)

	if len(res.Raw) != 2 {
		t.Fatalf("got %d raw records, want 2", len(res.Raw))
	}
	if len(res.Statuses) != 3 {
		t.Fatalf("got %d statuses, want 3", len(res.Statuses))
	}

	byName := make(map[string]AdapterStatus)
	for _, st := range res.Statuses {
		byName[st.Name] = st
	}

	if st := byName["healthy"]; st.Status != StatusHealthy || st.Count != 2 {
		t.Errorf("healthy adapter: %+v", st)
	}
	if st := byName["broken"]; st.Status != StatusFailed || st.Error == "" || st.Count != 0 {
		t.Errorf("broken adapter: %+v", st)
	}
	if st := byName["panics"]; st.Status != StatusFailed || st.Count != 0 {
		t.Errorf("panicking adapter: %+v", st)
	}
}

func TestCollectFillsProvenanceDefaults(t *testing.T) {
	adapters := []Adapter{
		AdapterFunc{ID: "src", Type: "International", Fn: func(ctx context.Context) ([]RawOpportunity, error) {
			return []RawOpportunity{{Title: "x"}}, nil
		}},
	}

	res := NewCollector(1).Collect(context.Background(), adapters)
	if len(res.Raw) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Raw))
	}
	if res.Raw[0].SourceName != "src" || res.Raw[0].SourceType != "International" {
		t.Fatalf("provenance not defaulted: %+v", res.Raw[0])
	}
}

func TestCollectHonorsTimeout(t *testing.T) {
	c := NewCollector(1)
	c.Timeout = 50 * time.Millisecond

	adapters := []Adapter{
		AdapterFunc{ID: "slow", Type: "Federal", Fn: func(ctx context.Context) ([]RawOpportunity, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return []RawOpportunity{{Title: "too late"}}, nil
			}
		}},
	}

	start := time.Now()
	res := c.Collect(context.Background(), adapters)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("collection took %s, timeout not applied", elapsed)
	}
	if res.Statuses[0].Status != StatusFailed {
		t.Fatalf("slow adapter status = %s, want failed", res.Statuses[0].Status)
	}
	if len(res.Raw) != 0 {
		t.Fatalf("got %d records from timed-out adapter, want 0", len(res.Raw))
	}
}
