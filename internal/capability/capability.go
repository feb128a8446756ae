// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

// Package capability defines the standard output schema of each inference
// capability and the shared shape of the adapters that produce them.
// Adapters pair one remote call with a fixed local default payload and a
// pure response mapper; which path produced a value is reported by the
// coordinator's Source, and degraded payloads always carry a confidence
// strictly below what a real remote inference reports.
package capability

import (
	"encoding/json"
	"time"
)

// Operation names used as tracker keys. These are the short string
// identifiers every freshness record is keyed by.
const (
	OpHealthMetrics = "health_metrics"
	OpRiskScore     = "risk_score"
	OpForecast      = "forecast"
)

// ValidOp reports whether name is a known operation.
func ValidOp(name string) bool {
	switch name {
	case OpHealthMetrics, OpRiskScore, OpForecast:
		return true
	}
	return false
}

// RiskLevel buckets a risk score for display.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Trend classifies the direction of a forecast.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// VitalsReport is the standard health-metrics schema. HeartRate and
// Confidence are required; the remaining measurements are optional and
// explicitly absent when the remote response did not include them.
type VitalsReport struct {
	HeartRate        float64   `json:"heart_rate"`
	Confidence       float64   `json:"confidence"`
	TemperatureC     *float64  `json:"temperature_c,omitempty"`
	SystolicBP       *float64  `json:"systolic_bp,omitempty"`
	DiastolicBP      *float64  `json:"diastolic_bp,omitempty"`
	OxygenSaturation *float64  `json:"oxygen_saturation,omitempty"`
	RespiratoryRate  *float64  `json:"respiratory_rate,omitempty"`
	ObservedAt       time.Time `json:"observed_at"`
}

// RiskAssessment is the standard risk-scoring schema.
type RiskAssessment struct {
	Score      float64   `json:"score"` // in [0,1]
	Level      RiskLevel `json:"level"`
	Confidence float64   `json:"confidence"`
	Factors    []string  `json:"factors,omitempty"`
	AssessedAt time.Time `json:"assessed_at"`
}

// ForecastPoint is one projected day in a forecast.
type ForecastPoint struct {
	Date      string   `json:"date"` // YYYY-MM-DD
	HeartRate float64  `json:"heart_rate"`
	RiskScore *float64 `json:"risk_score,omitempty"`
}

// Forecast is the standard forecasting schema.
type Forecast struct {
	HorizonDays int             `json:"horizon_days"`
	Trend       Trend           `json:"trend"`
	Confidence  float64         `json:"confidence"`
	Points      []ForecastPoint `json:"points,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// LevelForScore buckets a score into a RiskLevel.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 0.7:
		return RiskHigh
	case score >= 0.4:
		return RiskModerate
	default:
		return RiskLow
	}
}

// ValidLevel reports whether l is a known risk level.
func ValidLevel(l RiskLevel) bool {
	switch l {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	}
	return false
}

// ValidTrend reports whether t is a known trend.
func ValidTrend(t Trend) bool {
	switch t {
	case TrendImproving, TrendStable, TrendDeclining:
		return true
	}
	return false
}

// CoerceFloat converts a raw JSON value to float64. Mapping helpers use
// it for field-by-field type coercion; a false return marks the field as
// failing coercion, never raising.
func CoerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// CoerceString converts a raw JSON value to a non-empty string.
func CoerceString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// OptionalFloat coerces raw[key] into an optional field pointer, or nil
// when the key is absent or fails coercion.
func OptionalFloat(raw map[string]any, key string) *float64 {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	f, ok := CoerceFloat(v)
	if !ok {
		return nil
	}
	return &f
}
