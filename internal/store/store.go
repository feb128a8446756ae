// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

// Package store defines the observation log: an append-only record of
// which source (remote, cache, fallback, default) served each inference
// request. Operators use it to spot silent degradation — a capability
// that keeps answering but never from the remote.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome records a single resolved inference request.
type Outcome struct {
	ID        uuid.UUID `json:"id"`
	Operation string    `json:"operation"`
	PatientID string    `json:"patient_id,omitempty"`
	Source    string    `json:"source"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OutcomeFilter narrows ListOutcomes results. Zero values match everything.
type OutcomeFilter struct {
	Operation string
	Source    string
	Limit     int
}

// ObservationStore persists resolved inference outcomes.
type ObservationStore interface {
	// RecordOutcome appends one outcome to the log.
	RecordOutcome(ctx context.Context, outcome *Outcome) error

	// ListOutcomes returns outcomes matching the filter, newest first.
	ListOutcomes(ctx context.Context, filter OutcomeFilter) ([]*Outcome, error)

	// Close releases the underlying storage.
	Close() error
}

// NopStore discards every outcome. Used when storage.backend is "none".
type NopStore struct{}

var _ ObservationStore = NopStore{}

func (NopStore) RecordOutcome(context.Context, *Outcome) error { return nil }

func (NopStore) ListOutcomes(context.Context, OutcomeFilter) ([]*Outcome, error) {
	return nil, nil
}

func (NopStore) Close() error { return nil }
