// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

// Package sqlite implements the observation log on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vigil-health/vigil/internal/store"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

var _ store.ObservationStore = (*ObservationStore)(nil)

// ObservationStore implements store.ObservationStore backed by SQLite.
type ObservationStore struct {
	db *sql.DB
}

// NewObservationStore opens (or creates) the SQLite database at dbPath
// and initialises the observations table.
func NewObservationStore(dbPath string) (*ObservationStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, vigilerr.Wrapf(err, vigilerr.CodeStoreDatabaseFailure, "opening observation db %s", dbPath)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, vigilerr.Wrapf(err, vigilerr.CodeStoreDatabaseFailure, "pinging observation db %s", dbPath)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, vigilerr.Wrapf(err, vigilerr.CodeStoreDatabaseFailure, "migrating observation db %s", dbPath)
	}

	return &ObservationStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS observations (
	id         TEXT PRIMARY KEY,
	operation  TEXT NOT NULL,
	patient_id TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_observations_operation  ON observations(operation);
CREATE INDEX IF NOT EXISTS idx_observations_source     ON observations(source);
CREATE INDEX IF NOT EXISTS idx_observations_created_at ON observations(created_at);
`
	_, err := db.Exec(ddl)
	return err
}

func (s *ObservationStore) RecordOutcome(ctx context.Context, outcome *store.Outcome) error {
	if outcome == nil {
		return vigilerr.New(vigilerr.CodeStoreInvalidInput, "outcome must not be nil")
	}
	if outcome.Operation == "" || outcome.Source == "" {
		return vigilerr.New(vigilerr.CodeStoreInvalidInput, "outcome operation and source must not be empty")
	}

	id := outcome.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := outcome.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const q = `INSERT INTO observations (id, operation, patient_id, source, latency_ms, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		id.String(), outcome.Operation, outcome.PatientID, outcome.Source,
		outcome.LatencyMS, outcome.Error, formatTime(createdAt),
	)
	if err != nil {
		return vigilerr.Wrapf(err, vigilerr.CodeStoreObservationWriteFailure,
			"recording outcome for %s", outcome.Operation)
	}
	return nil
}

func (s *ObservationStore) ListOutcomes(ctx context.Context, filter store.OutcomeFilter) ([]*store.Outcome, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT id, operation, patient_id, source, latency_ms, error, created_at FROM observations`)

	var conditions []string
	var args []any

	if filter.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}

	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}

	qb.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	qb.WriteString(" LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, vigilerr.Wrapf(err, vigilerr.CodeStoreObservationQueryFailure, "querying observations")
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	var outcomes []*store.Outcome
	for rows.Next() {
		var o store.Outcome
		var rawID, createdAt string
		if err := rows.Scan(&rawID, &o.Operation, &o.PatientID, &o.Source, &o.LatencyMS, &o.Error, &createdAt); err != nil {
			return nil, vigilerr.Wrapf(err, vigilerr.CodeStoreObservationQueryFailure, "scanning observation row")
		}
		o.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, vigilerr.Wrapf(err, vigilerr.CodeStoreObservationQueryFailure, "parsing observation id %q", rawID)
		}
		o.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, vigilerr.Wrapf(err, vigilerr.CodeStoreObservationQueryFailure, "iterating observation rows")
	}
	return outcomes, nil
}

// Close closes the underlying database connection.
func (s *ObservationStore) Close() error { return s.db.Close() }

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, vigilerr.Wrapf(err, vigilerr.CodeStoreObservationQueryFailure, "parsing stored timestamp %q", s)
	}
	return t, nil
}
