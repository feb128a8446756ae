// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

// Package vitals adapts a remote health-metrics inference endpoint
// (REST, JSON) behind the fallback coordinator.
package vitals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vigil-health/vigil/internal/capability"
	"github.com/vigil-health/vigil/internal/inference"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// DefaultTimeout bounds one remote health-metrics call.
const DefaultTimeout = 5 * time.Second

// Config holds the health-metrics endpoint configuration.
type Config struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Adapter pairs the remote health-metrics call with the vitals default
// payload. A disabled capability or missing endpoint/credentials leaves
// the client nil for the adapter's entire lifetime — fallback-only mode,
// not an error.
type Adapter struct {
	client   *http.Client
	endpoint string
	apiKey   string
	timeout  time.Duration
	coord    *inference.Coordinator
	defaults capability.Defaults
	nowFunc  func() time.Time // for testing
}

// New constructs the adapter once at process start.
func New(cfg Config, coord *inference.Coordinator, defaults capability.Defaults) *Adapter {
	a := &Adapter{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		coord:    coord,
		defaults: defaults,
		nowFunc:  time.Now,
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}

	if !cfg.Enabled || cfg.Endpoint == "" || cfg.APIKey == "" {
		slog.Info("health-metrics capability running in fallback-only mode",
			"enabled", cfg.Enabled,
			"endpoint_configured", cfg.Endpoint != "",
			"credentials_configured", cfg.APIKey != "")
		return a
	}

	a.client = &http.Client{Timeout: a.timeout}
	return a
}

// SetNowFunc overrides the time source (for testing).
func (a *Adapter) SetNowFunc(fn func() time.Time) { a.nowFunc = fn }

// Live reports whether a remote client was constructed.
func (a *Adapter) Live() bool { return a.client != nil }

// GetVitals returns a VitalsReport for the patient. The remote path is
// attempted only when a live client exists; otherwise the caller-supplied
// fallback (or the default payload) answers directly without touching the
// freshness tracker — configuration absence is not a reliability signal.
func (a *Adapter) GetVitals(ctx context.Context, patientID string, fallback inference.FallbackFunc[capability.VitalsReport]) (*capability.VitalsReport, inference.Source, error) {
	if patientID == "" {
		return nil, "", vigilerr.New(vigilerr.CodeCapabilityRequestInvalid,
			"patient id must not be empty", vigilerr.FieldCapability(capability.OpHealthMetrics))
	}

	deflt := func() *capability.VitalsReport {
		return a.defaults.VitalsReport(a.nowFunc())
	}

	if a.client == nil {
		return capability.Substitute(ctx, capability.OpHealthMetrics, fallback, deflt)
	}

	remote := func(ctx context.Context) (*capability.VitalsReport, error) {
		raw, err := a.fetch(ctx, patientID)
		if err != nil {
			return nil, err
		}
		return a.mapResponse(raw), nil
	}

	return inference.Execute(ctx, a.coord, capability.OpHealthMetrics, remote, fallback, deflt)
}

// fetch performs the single remote round trip.
func (a *Adapter) fetch(ctx context.Context, patientID string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"patient_id": patientID,
		"timestamp":  a.nowFunc().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, vigilerr.Wrapf(err, vigilerr.CodeCapabilityRequestInvalid, "encoding vitals request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, vigilerr.Wrapf(err, vigilerr.CodeCapabilityRequestInvalid, "building vitals request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, vigilerr.Wrap(err, vigilerr.CodeCapabilityUpstreamFailure, "calling vitals endpoint",
			vigilerr.FieldPatientID(patientID))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, vigilerr.Wrapf(err, vigilerr.CodeCapabilityUpstreamFailure, "reading vitals response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, vigilerr.New(vigilerr.CodeCapabilityUpstreamFailure,
			fmt.Sprintf("vitals endpoint returned %d", resp.StatusCode),
			vigilerr.Field("status", resp.StatusCode),
			vigilerr.FieldPatientID(patientID))
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, vigilerr.Wrap(err, vigilerr.CodeCapabilityResponseInvalid, "decoding vitals response",
			vigilerr.FieldPatientID(patientID))
	}
	return raw, nil
}

// mapResponse coerces the raw remote payload into the standard schema.
// Missing required fields or failed coercion yield nil — never an error —
// which the coordinator treats as an empty result.
func (a *Adapter) mapResponse(raw map[string]any) *capability.VitalsReport {
	hr, ok := capability.CoerceFloat(raw["heart_rate"])
	if !ok {
		return nil
	}
	conf, ok := capability.CoerceFloat(raw["confidence"])
	if !ok {
		return nil
	}

	report := &capability.VitalsReport{
		HeartRate:        hr,
		Confidence:       conf,
		TemperatureC:     capability.OptionalFloat(raw, "temperature_c"),
		SystolicBP:       capability.OptionalFloat(raw, "systolic_bp"),
		DiastolicBP:      capability.OptionalFloat(raw, "diastolic_bp"),
		OxygenSaturation: capability.OptionalFloat(raw, "oxygen_saturation"),
		RespiratoryRate:  capability.OptionalFloat(raw, "respiratory_rate"),
		ObservedAt:       a.nowFunc(),
	}
	if ts, ok := capability.CoerceString(raw["observed_at"]); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			report.ObservedAt = parsed
		}
	}
	return report
}
