// Package perf collects request and query timings in a fixed-size ring
// buffer. Writes are cheap and non-blocking; aggregation happens only when a
// snapshot is requested.
package perf

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes request vs query entries.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is a single timing record.
type Entry struct {
	Kind       EntryKind
	Path       string // HTTP path or SQL op name
	StatusCode int    // HTTP status (0 for queries)
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries. When full, the
// oldest entries are overwritten.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   int64
}

// NewCollector creates a collector with the given ring capacity.
// PRE: size > 0, or 0 for DefaultRingSize
// POST: Returns a ready collector with pre-allocated storage
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size)}
}

// Record appends an entry, overwriting the oldest when full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % len(c.entries)
	c.mu.Unlock()
	atomic.AddInt64(&c.count, 1)
}

// TotalRecorded returns the total number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.count)
}

// Snapshot holds aggregated timings computed on read.
type Snapshot struct {
	TotalRecorded int64
	RequestP50Ms  float64
	RequestP95Ms  float64
	QueryP95Ms    float64
}

// Snapshot aggregates entries recorded since the given time. Sorting makes
// this comparatively expensive; call it from the health/stats path only.
func (c *Collector) Snapshot(since time.Time) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, len(c.entries))
	copy(buf, c.entries)
	c.mu.Unlock()

	var requests, queries []float64
	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		if e.Kind == KindRequest {
			requests = append(requests, e.DurationMs)
		} else {
			queries = append(queries, e.DurationMs)
		}
	}

	snap := Snapshot{TotalRecorded: c.TotalRecorded()}
	if len(requests) > 0 {
		sort.Float64s(requests)
		snap.RequestP50Ms = percentile(requests, 50)
		snap.RequestP95Ms = percentile(requests, 95)
	}
	if len(queries) > 0 {
		sort.Float64s(queries)
		snap.QueryP95Ms = percentile(queries, 95)
	}
	return snap
}

// percentile returns the p-th percentile from a sorted slice using
// linear interpolation between ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(idx)
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}
