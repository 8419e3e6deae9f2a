// Package stats implements C10: in-memory request counters bucketed by
// hour and by day, snapshotted to the KV store (C1) periodically and on
// shutdown, restored on start.
//
// The counter/histogram shape (atomic increments, a short critical section
// only for bucket rollover) is grounded on the teacher's
// infrastructure/metrics/metrics.go Prometheus CounterVec/HistogramVec
// pattern, observed before that tree was deleted (see DESIGN.md); this
// package carries the same "cheap atomic hot path, locked rollover" idiom
// without the Prometheus types themselves, which live in internal/metrics
// and read from a Stats snapshot instead of being updated directly on the
// request path.
package stats

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Akaere-NetWorks/whois-server/internal/kv"
)

const (
	hourlyBuckets = 24
	dailyBuckets  = 30
	statsSubDB    = "stats"
	statsKey      = "snapshot"
)

// Bucket is one time-windowed rollup: request count, byte count, and a
// per-kind breakdown.
type Bucket struct {
	Start        time.Time        `json:"start"`
	Requests     int64            `json:"requests"`
	Bytes        int64            `json:"bytes"`
	ErrorCount   int64            `json:"error_count"`
	ByKind       map[string]int64 `json:"by_kind"`
	TotalLatency time.Duration    `json:"total_latency_ns"`
}

func newBucket(start time.Time) Bucket {
	return Bucket{Start: start, ByKind: make(map[string]int64)}
}

// Snapshot is the restorable/exportable form of Stats.
type Snapshot struct {
	TotalRequests int64     `json:"total_requests"`
	TotalBytes    int64     `json:"total_bytes"`
	TotalErrors   int64     `json:"total_errors"`
	Hourly        []Bucket  `json:"hourly"`
	Daily         []Bucket  `json:"daily"`
	SavedAt       time.Time `json:"saved_at"`
}

// Stats tracks request counts with two rolling windows: 24 hourly buckets
// and 30 daily buckets, per spec.md §4.10.
type Stats struct {
	totalRequests int64
	totalBytes    int64
	totalErrors   int64

	mu     sync.Mutex
	hourly []Bucket
	daily  []Bucket

	now func() time.Time
}

// New creates an empty Stats, with its current hour/day bucket dated now.
func New() *Stats {
	return newAt(time.Now())
}

func newAt(t time.Time) *Stats {
	s := &Stats{now: time.Now}
	s.hourly = []Bucket{newBucket(t.Truncate(time.Hour))}
	s.daily = []Bucket{newBucket(t.Truncate(24 * time.Hour))}
	return s
}

// Record logs one completed request: its query kind, response size,
// latency, and whether it ended in an error, per C8 step 7.
func (s *Stats) Record(kind string, bytes int, latency time.Duration, isError bool) {
	atomic.AddInt64(&s.totalRequests, 1)
	atomic.AddInt64(&s.totalBytes, int64(bytes))
	if isError {
		atomic.AddInt64(&s.totalErrors, 1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.rollover(now)

	hb := &s.hourly[len(s.hourly)-1]
	hb.Requests++
	hb.Bytes += int64(bytes)
	hb.TotalLatency += latency
	hb.ByKind[kind]++
	if isError {
		hb.ErrorCount++
	}

	db := &s.daily[len(s.daily)-1]
	db.Requests++
	db.Bytes += int64(bytes)
	db.TotalLatency += latency
	db.ByKind[kind]++
	if isError {
		db.ErrorCount++
	}
}

// rollover appends fresh buckets for elapsed hours/days and trims to the
// configured window sizes. Must be called with mu held.
func (s *Stats) rollover(now time.Time) {
	curHour := now.Truncate(time.Hour)
	lastHour := s.hourly[len(s.hourly)-1].Start
	for lastHour.Before(curHour) {
		lastHour = lastHour.Add(time.Hour)
		s.hourly = append(s.hourly, newBucket(lastHour))
	}
	if len(s.hourly) > hourlyBuckets {
		s.hourly = s.hourly[len(s.hourly)-hourlyBuckets:]
	}

	curDay := now.Truncate(24 * time.Hour)
	lastDay := s.daily[len(s.daily)-1].Start
	for lastDay.Before(curDay) {
		lastDay = lastDay.Add(24 * time.Hour)
		s.daily = append(s.daily, newBucket(lastDay))
	}
	if len(s.daily) > dailyBuckets {
		s.daily = s.daily[len(s.daily)-dailyBuckets:]
	}
}

// Snapshot returns a point-in-time copy suitable for JSON export or
// persistence.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		TotalRequests: atomic.LoadInt64(&s.totalRequests),
		TotalBytes:    atomic.LoadInt64(&s.totalBytes),
		TotalErrors:   atomic.LoadInt64(&s.totalErrors),
		Hourly:        append([]Bucket(nil), s.hourly...),
		Daily:         append([]Bucket(nil), s.daily...),
		SavedAt:       s.now(),
	}
}

// SaveTo persists a Snapshot to the KV store under statsSubDB, per spec.md
// §4.10's "snapshot to C1 periodically and on graceful shutdown".
func (s *Stats) SaveTo(store *kv.Store) error {
	snap := s.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return store.Put(statsSubDB, statsKey, data, 0)
}

// LoadFrom restores Stats from the last snapshot saved to the KV store. A
// missing snapshot is not an error: it just means this is the first run.
func LoadFrom(store *kv.Store) (*Stats, error) {
	raw, ok := store.Get(statsSubDB, statsKey)
	if !ok {
		return New(), nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}

	s := &Stats{now: time.Now}
	s.totalRequests = snap.TotalRequests
	s.totalBytes = snap.TotalBytes
	s.totalErrors = snap.TotalErrors
	s.hourly = snap.Hourly
	s.daily = snap.Daily
	if len(s.hourly) == 0 {
		s.hourly = []Bucket{newBucket(time.Now().Truncate(time.Hour))}
	}
	if len(s.daily) == 0 {
		s.daily = []Bucket{newBucket(time.Now().Truncate(24 * time.Hour))}
	}
	return s, nil
}
