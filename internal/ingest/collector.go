package ingest

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// defaultAdapterTimeout bounds a single adapter's Fetch when the source
// config does not override it.
const defaultAdapterTimeout = 60 * time.Second

// Collector runs a set of adapters with bounded parallelism. One
// adapter failing never aborts the others; failures surface in the
// per-adapter status report instead.
type Collector struct {
	MaxParallel int
	Timeout     time.Duration
}

func NewCollector(maxParallel int) *Collector {
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &Collector{MaxParallel: maxParallel, Timeout: defaultAdapterTimeout}
}

// CollectResult holds everything the collection phase produced: the
// concatenated raw records in adapter registration order, plus one
// status entry per adapter.
type CollectResult struct {
	Raw      []RawOpportunity
	Statuses []AdapterStatus
}

// Collect fetches from every adapter. Each adapter gets its own
// timeout-bounded context; panics and errors are converted into a
// failed status entry with zero records.
func (c *Collector) Collect(ctx context.Context, adapters []Adapter) CollectResult {
	perAdapter := make([][]RawOpportunity, len(adapters))
	statuses := make([]AdapterStatus, len(adapters))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.MaxParallel)

	for i, a := range adapters {
		g.Go(func() error {
			st := c.runOne(gctx, a, &perAdapter[i])
			mu.Lock()
			statuses[i] = st
			mu.Unlock()
			return nil // adapter failures are recorded, not propagated
		})
	}
	_ = g.Wait()

	res := CollectResult{Statuses: statuses}
	for _, batch := range perAdapter {
		res.Raw = append(res.Raw, batch...)
	}

	sort.SliceStable(res.Statuses, func(i, j int) bool {
		return res.Statuses[i].Name < res.Statuses[j].Name
	})
	return res
}

func (c *Collector) runOne(ctx context.Context, a Adapter, out *[]RawOpportunity) (st AdapterStatus) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultAdapterTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	st = AdapterStatus{Name: a.Name(), Status: StatusHealthy}

	defer func() {
		st.DurationMS = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			st.Status = StatusFailed
			st.Error = "panic during fetch"
			st.Count = 0
			log.Printf("[Collector] %s panicked: %v", a.Name(), r)
		}
	}()

	raws, err := a.Fetch(fetchCtx)
	if err != nil {
		st.Status = StatusFailed
		st.Error = err.Error()
		log.Printf("[Collector] %s failed: %v", a.Name(), err)
		return st
	}

	for i := range raws {
		if raws[i].SourceName == "" {
			raws[i].SourceName = a.Name()
		}
		if raws[i].SourceType == "" {
			raws[i].SourceType = a.SourceType()
		}
	}

	st.Count = len(raws)
	*out = raws
	log.Printf("[Collector] %s returned %d records in %dms", a.Name(), len(raws), time.Since(start).Milliseconds())
	return st
}
