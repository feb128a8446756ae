// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

// Package gateway wires the Vigil process together: configuration in,
// one freshness tracker, one coordinator, the three capability adapters,
// and the observation log. The HTTP server and the CLI both talk to a
// Gateway, never to adapters directly.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vigil-health/vigil/internal/capability"
	"github.com/vigil-health/vigil/internal/capability/forecast"
	"github.com/vigil-health/vigil/internal/capability/risk"
	"github.com/vigil-health/vigil/internal/capability/vitals"
	"github.com/vigil-health/vigil/internal/config"
	"github.com/vigil-health/vigil/internal/inference"
	"github.com/vigil-health/vigil/internal/store"
	"github.com/vigil-health/vigil/internal/store/sqlite"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
	"github.com/vigil-health/vigil/pkg/freshness"
)

// recordTimeout bounds the best-effort observation write so a slow disk
// never delays an inference response.
const recordTimeout = 2 * time.Second

// Gateway owns the process-wide inference plumbing.
type Gateway struct {
	cfg      *config.Config
	tracker  *inference.Tracker
	coord    *inference.Coordinator
	vitals   *vitals.Adapter
	risk     *risk.Adapter
	forecast *forecast.Adapter
	obs      store.ObservationStore

	vitalsFallback   inference.FallbackFunc[capability.VitalsReport]
	riskFallback     inference.FallbackFunc[capability.RiskAssessment]
	forecastFallback inference.FallbackFunc[capability.Forecast]
}

// Option customises Gateway construction.
type Option func(*Gateway)

// WithVitalsFallback registers a local callable consulted when the
// remote health-metrics path fails or returns no data.
func WithVitalsFallback(fn inference.FallbackFunc[capability.VitalsReport]) Option {
	return func(g *Gateway) { g.vitalsFallback = fn }
}

// WithRiskFallback registers a local callable for the risk-score path.
func WithRiskFallback(fn inference.FallbackFunc[capability.RiskAssessment]) Option {
	return func(g *Gateway) { g.riskFallback = fn }
}

// WithForecastFallback registers a local callable for the forecast path.
func WithForecastFallback(fn inference.FallbackFunc[capability.Forecast]) Option {
	return func(g *Gateway) { g.forecastFallback = fn }
}

// WithObservationStore substitutes the observation log (for testing).
func WithObservationStore(s store.ObservationStore) Option {
	return func(g *Gateway) { g.obs = s }
}

// New builds a Gateway from configuration. Construction never fails
// because a capability is unconfigured — those adapters simply run in
// fallback-only mode. It fails only on invalid coordination settings,
// an unreadable defaults file, or a broken storage backend.
func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	defaults := capability.BuiltinDefaults()
	if cfg.Inference.DefaultsFile != "" {
		var err error
		defaults, err = capability.LoadDefaults(cfg.Inference.DefaultsFile)
		if err != nil {
			return nil, err
		}
	}

	tracker := inference.NewTracker()
	coord, err := inference.NewCoordinator(tracker, inference.Options{
		FallbackEnabled: cfg.Inference.FallbackEnabled,
		CacheEnabled:    cfg.Inference.CacheEnabled,
		CacheTTL:        cfg.Inference.CacheTTL,
	})
	if err != nil {
		return nil, err
	}

	// The master switch disables every remote path at once. Adapters see
	// it as their capability being disabled and run fallback-only.
	remote := cfg.Inference.Enabled

	g := &Gateway{
		cfg:     cfg,
		tracker: tracker,
		coord:   coord,
		vitals: vitals.New(vitals.Config{
			Enabled:  remote && cfg.Capabilities.Vitals.Enabled,
			Endpoint: cfg.Capabilities.Vitals.Endpoint,
			APIKey:   cfg.Capabilities.Vitals.APIKey,
			Timeout:  cfg.Inference.TimeoutFor(capability.OpHealthMetrics),
		}, coord, defaults),
		risk: risk.New(risk.Config{
			Enabled: remote && cfg.Capabilities.Risk.Enabled,
			APIKey:  cfg.Capabilities.Risk.APIKey,
			Model:   cfg.Capabilities.Risk.Model,
			Timeout: cfg.Inference.TimeoutFor(capability.OpRiskScore),
		}, coord, defaults),
		forecast: forecast.New(forecast.Config{
			Enabled: remote && cfg.Capabilities.Forecast.Enabled,
			APIKey:  cfg.Capabilities.Forecast.APIKey,
			BaseURL: cfg.Capabilities.Forecast.Endpoint,
			Model:   cfg.Capabilities.Forecast.Model,
			Timeout: cfg.Inference.TimeoutFor(capability.OpForecast),
		}, coord, defaults),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.obs == nil {
		switch cfg.Storage.Backend {
		case "sqlite":
			obs, err := sqlite.NewObservationStore(cfg.Storage.Path)
			if err != nil {
				return nil, err
			}
			g.obs = obs
		default:
			g.obs = store.NopStore{}
		}
	}

	return g, nil
}

// GetVitals resolves a health-metrics request through the coordinator.
func (g *Gateway) GetVitals(ctx context.Context, patientID string) (*capability.VitalsReport, inference.Source, error) {
	start := time.Now()
	report, src, err := g.vitals.GetVitals(ctx, patientID, g.vitalsFallback)
	g.record(capability.OpHealthMetrics, patientID, src, start, err)
	return report, src, err
}

// GetRisk resolves a risk-score request through the coordinator.
func (g *Gateway) GetRisk(ctx context.Context, patientID string) (*capability.RiskAssessment, inference.Source, error) {
	start := time.Now()
	assessment, src, err := g.risk.GetRisk(ctx, patientID, g.riskFallback)
	g.record(capability.OpRiskScore, patientID, src, start, err)
	return assessment, src, err
}

// GetForecast resolves a forecast request through the coordinator.
func (g *Gateway) GetForecast(ctx context.Context, patientID string, horizonDays int) (*capability.Forecast, inference.Source, error) {
	start := time.Now()
	fc, src, err := g.forecast.GetForecast(ctx, patientID, horizonDays, g.forecastFallback)
	g.record(capability.OpForecast, patientID, src, start, err)
	return fc, src, err
}

// Operations returns a freshness snapshot for every operation the
// tracker has seen, using the configured cache TTL as the window.
func (g *Gateway) Operations() []freshness.Metrics {
	names := g.tracker.Operations()
	metrics := make([]freshness.Metrics, 0, len(names))
	for _, name := range names {
		metrics = append(metrics, g.tracker.Snapshot(name, g.cfg.Inference.CacheTTL))
	}
	return metrics
}

// Operation returns the freshness snapshot for a single operation.
func (g *Gateway) Operation(name string) (freshness.Metrics, error) {
	if !capability.ValidOp(name) {
		return freshness.Metrics{}, vigilerr.New(vigilerr.CodeServerEntityNotFound,
			"unknown operation", vigilerr.FieldOperation(name))
	}
	return g.tracker.Snapshot(name, g.cfg.Inference.CacheTTL), nil
}

// ResetOperation clears the tracked state for one operation.
func (g *Gateway) ResetOperation(name string) {
	g.tracker.Reset(name)
	slog.Info("operation state reset", "operation", name)
}

// ResetAll clears all tracked operation state.
func (g *Gateway) ResetAll() {
	g.tracker.ResetAll()
	slog.Info("all operation state reset")
}

// Observations lists recorded inference outcomes, newest first.
func (g *Gateway) Observations(ctx context.Context, filter store.OutcomeFilter) ([]*store.Outcome, error) {
	return g.obs.ListOutcomes(ctx, filter)
}

// Config returns the configuration the gateway was built with.
func (g *Gateway) Config() *config.Config { return g.cfg }

// Close releases the observation log.
func (g *Gateway) Close() error { return g.obs.Close() }

// record appends an outcome to the observation log. Best-effort: a
// write failure is logged, never surfaced to the caller.
func (g *Gateway) record(operation, patientID string, src inference.Source, start time.Time, reqErr error) {
	// Failed requests resolve to no source at all.
	source := string(src)
	if source == "" {
		source = "none"
	}

	outcome := &store.Outcome{
		ID:        uuid.New(),
		Operation: operation,
		PatientID: patientID,
		Source:    source,
		LatencyMS: time.Since(start).Milliseconds(),
		CreatedAt: time.Now(),
	}
	if reqErr != nil {
		outcome.Error = reqErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := g.obs.RecordOutcome(ctx, outcome); err != nil {
		slog.Warn("failed to record inference outcome",
			"operation", operation, "error", err)
	}
}
