// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package inference

import (
	"sort"
	"sync"
	"time"

	"github.com/vigil-health/vigil/pkg/freshness"
)

// operationRecord tracks reliability signals for one named operation.
// errorCount counts consecutive failures since the last success or reset;
// a success always zeroes it together with setting lastSuccessAt, under
// the tracker mutex.
type operationRecord struct {
	lastSuccessAt time.Time
	hasSuccess    bool
	errorCount    int64
}

// Tracker maintains the mapping from operation name to its record.
// Records are created lazily on first use and live for the process
// lifetime; only the success timestamp ages out for freshness purposes.
// A single coarse mutex protects the map — contention is low and the
// critical sections are short.
type Tracker struct {
	mu      sync.Mutex
	records map[string]*operationRecord
	nowFunc func() time.Time // for testing
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		records: make(map[string]*operationRecord),
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (t *Tracker) SetNowFunc(fn func() time.Time) {
	t.mu.Lock()
	t.nowFunc = fn
	t.mu.Unlock()
}

// record returns the record for name, creating it if absent.
// Caller must hold t.mu.
func (t *Tracker) record(name string) *operationRecord {
	r, ok := t.records[name]
	if !ok {
		r = &operationRecord{}
		t.records[name] = r
	}
	return r
}

// RecordSuccess sets the operation's last-success timestamp to now and
// resets its consecutive-failure counter.
func (t *Tracker) RecordSuccess(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.record(name)
	r.errorCount = 0
	r.lastSuccessAt = t.nowFunc()
	r.hasSuccess = true
}

// RecordFailure increments the operation's consecutive-failure counter.
// The last-success timestamp is left untouched.
func (t *Tracker) RecordFailure(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.record(name).errorCount++
}

// IsFresh reports whether the most recent successful invocation is still
// within ttl. Operations that have never succeeded are never fresh.
func (t *Tracker) IsFresh(name string, ttl time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[name]
	if !ok || !r.hasSuccess {
		return false
	}
	return t.nowFunc().Sub(r.lastSuccessAt) < ttl
}

// ErrorRate returns n/(n+1) for n consecutive failures — a monotonically
// increasing, saturating heuristic that never reaches 1.0. It is NOT a
// failures-over-attempts ratio. Unknown operations report 0.
func (t *Tracker) ErrorRate(name string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[name]
	if !ok || r.errorCount == 0 {
		return 0
	}
	n := float64(r.errorCount)
	return n / (n + 1)
}

// Reset clears one operation's record. Unknown names are a no-op.
func (t *Tracker) Reset(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.records, name)
}

// ResetAll clears every record.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = make(map[string]*operationRecord)
}

// Operations returns the sorted names of all tracked operations.
func (t *Tracker) Operations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.records))
	for name := range t.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a point-in-time freshness.Metrics for the operation,
// evaluated against ttl. The returned struct holds no references to
// tracker state and is safe to serialize.
func (t *Tracker) Snapshot(name string, ttl time.Duration) freshness.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := freshness.Metrics{Operation: name}

	r, ok := t.records[name]
	if !ok {
		return m
	}

	m.ErrorCount = r.errorCount
	if r.errorCount > 0 {
		n := float64(r.errorCount)
		m.ErrorRate = n / (n + 1)
	}
	if r.hasSuccess {
		ts := r.lastSuccessAt
		m.LastSuccessAt = &ts
		m.Fresh = t.nowFunc().Sub(r.lastSuccessAt) < ttl
	}
	return m
}
