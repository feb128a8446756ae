// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package server

import (
	"context"

	"github.com/vigil-health/vigil/internal/capability"
	"github.com/vigil-health/vigil/internal/inference"
	"github.com/vigil-health/vigil/internal/store"
	"github.com/vigil-health/vigil/pkg/freshness"
)

// InferenceService is the gateway surface the HTTP handlers call.
// An interface so route tests can run against a mock.
type InferenceService interface {
	GetVitals(ctx context.Context, patientID string) (*capability.VitalsReport, inference.Source, error)
	GetRisk(ctx context.Context, patientID string) (*capability.RiskAssessment, inference.Source, error)
	GetForecast(ctx context.Context, patientID string, horizonDays int) (*capability.Forecast, inference.Source, error)

	Operations() []freshness.Metrics
	Operation(name string) (freshness.Metrics, error)
	ResetOperation(name string)
	ResetAll()

	Observations(ctx context.Context, filter store.OutcomeFilter) ([]*store.Outcome, error)
}
