// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package inference_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vigil-health/vigil/internal/inference"
)

func TestTracker_UnknownOperation(t *testing.T) {
	tr := inference.NewTracker()

	assert.False(t, tr.IsFresh("health_metrics", time.Hour))
	assert.Zero(t, tr.ErrorRate("health_metrics"))
}

func TestTracker_SuccessResetsErrorRate(t *testing.T) {
	tr := inference.NewTracker()

	tr.RecordFailure("health_metrics")
	tr.RecordFailure("health_metrics")
	tr.RecordFailure("health_metrics")
	assert.InDelta(t, 0.75, tr.ErrorRate("health_metrics"), 1e-9)

	tr.RecordSuccess("health_metrics")
	assert.Zero(t, tr.ErrorRate("health_metrics"))
	assert.True(t, tr.IsFresh("health_metrics", time.Hour))
}

func TestTracker_ErrorRateSaturates(t *testing.T) {
	tests := []struct {
		failures int
		want     float64
	}{
		{0, 0},
		{1, 0.5},
		{2, 2.0 / 3.0},
		{9, 0.9},
		{99, 0.99},
	}

	for _, tt := range tests {
		tr := inference.NewTracker()
		for i := 0; i < tt.failures; i++ {
			tr.RecordFailure("risk_score")
		}
		got := tr.ErrorRate("risk_score")
		assert.InDelta(t, tt.want, got, 1e-9, "after %d failures", tt.failures)
		assert.Less(t, got, 1.0, "error rate never reaches 1.0")
	}
}

func TestTracker_FailureKeepsLastSuccess(t *testing.T) {
	now := time.Now()
	tr := inference.NewTracker()
	tr.SetNowFunc(func() time.Time { return now })

	tr.RecordSuccess("forecast")
	tr.RecordFailure("forecast")
	tr.RecordFailure("forecast")

	// Failures never age out the success timestamp.
	assert.True(t, tr.IsFresh("forecast", time.Minute))
	assert.InDelta(t, 2.0/3.0, tr.ErrorRate("forecast"), 1e-9)
}

func TestTracker_FreshnessBoundary(t *testing.T) {
	ttl := 10 * time.Second
	now := time.Now()

	tests := []struct {
		name      string
		elapsed   time.Duration
		wantFresh bool
	}{
		{"well within ttl", 9 * time.Second, true},
		{"exactly at ttl", 10 * time.Second, false},
		{"past ttl", 11 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := inference.NewTracker()
			tr.SetNowFunc(func() time.Time { return now })
			tr.RecordSuccess("health_metrics")

			tr.SetNowFunc(func() time.Time { return now.Add(tt.elapsed) })
			assert.Equal(t, tt.wantFresh, tr.IsFresh("health_metrics", ttl))
		})
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := inference.NewTracker()

	tr.RecordSuccess("health_metrics")
	tr.RecordFailure("health_metrics")
	tr.Reset("health_metrics")

	assert.Zero(t, tr.ErrorRate("health_metrics"))
	assert.False(t, tr.IsFresh("health_metrics", time.Hour), "reset discards the success record too")
}

func TestTracker_ResetAll(t *testing.T) {
	tr := inference.NewTracker()

	tr.RecordFailure("health_metrics")
	tr.RecordSuccess("risk_score")
	tr.ResetAll()

	assert.Empty(t, tr.Operations())
	assert.Zero(t, tr.ErrorRate("health_metrics"))
	assert.False(t, tr.IsFresh("risk_score", time.Hour))
}

func TestTracker_ResetUnknownIsNoop(t *testing.T) {
	tr := inference.NewTracker()
	tr.Reset("never_seen")
	assert.Empty(t, tr.Operations())
}

func TestTracker_OperationsSorted(t *testing.T) {
	tr := inference.NewTracker()

	tr.RecordFailure("risk_score")
	tr.RecordSuccess("forecast")
	tr.RecordSuccess("health_metrics")

	assert.Equal(t, []string{"forecast", "health_metrics", "risk_score"}, tr.Operations())
}

func TestTracker_Snapshot(t *testing.T) {
	now := time.Now()
	tr := inference.NewTracker()
	tr.SetNowFunc(func() time.Time { return now })

	m := tr.Snapshot("health_metrics", time.Minute)
	assert.Equal(t, "health_metrics", m.Operation)
	assert.Zero(t, m.ErrorCount)
	assert.Nil(t, m.LastSuccessAt)
	assert.False(t, m.Fresh)

	tr.RecordSuccess("health_metrics")
	tr.RecordFailure("health_metrics")

	m = tr.Snapshot("health_metrics", time.Minute)
	assert.Equal(t, int64(1), m.ErrorCount)
	assert.InDelta(t, 0.5, m.ErrorRate, 1e-9)
	assert.NotNil(t, m.LastSuccessAt)
	assert.True(t, m.Fresh)
}

// Run with `go test -race` to detect data races.
func TestTracker_ConcurrentRecordCalls(t *testing.T) {
	tr := inference.NewTracker()

	const goroutines = 10
	const iterations = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if n%2 == 0 {
					tr.RecordFailure("health_metrics")
				} else {
					tr.RecordSuccess("health_metrics")
				}
				_ = tr.ErrorRate("health_metrics")
				_ = tr.IsFresh("health_metrics", time.Second)
			}
		}(i)
	}
	wg.Wait()

	// State must be internally consistent: rate is within [0, 1).
	rate := tr.ErrorRate("health_metrics")
	assert.GreaterOrEqual(t, rate, 0.0)
	assert.Less(t, rate, 1.0)
}
