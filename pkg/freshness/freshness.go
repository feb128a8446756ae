// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package freshness

import "time"

// Metrics exposes the reliability state of a named operation for monitoring
// and operator visibility. All fields are point-in-time snapshots safe to
// serialize to JSON.
//
// ErrorRate is a heuristic saturating function of consecutive failures,
// n/(n+1) — not a true success/attempt ratio.
type Metrics struct {
	Operation     string     `json:"operation"`
	ErrorCount    int64      `json:"error_count"`
	ErrorRate     float64    `json:"error_rate"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	Fresh         bool       `json:"fresh"`
}
