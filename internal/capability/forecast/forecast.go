// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

// Package forecast adapts trend forecasting over an OpenAI-compatible
// Chat Completions endpoint behind the fallback coordinator.
package forecast

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/vigil-health/vigil/internal/capability"
	"github.com/vigil-health/vigil/internal/inference"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1-mini"

// DefaultTimeout bounds one remote forecasting call.
const DefaultTimeout = 20 * time.Second

// DefaultHorizonDays is used when the caller does not ask for a horizon.
const DefaultHorizonDays = 7

// MaxHorizonDays caps the projection window.
const MaxHorizonDays = 90

const systemPrompt = `You are a health-trend forecasting service. Given a patient
and a horizon in days, respond with a single JSON object and nothing else:
{"trend": "improving"|"stable"|"declining", "confidence": <float 0..1>,
 "points": [{"date": "YYYY-MM-DD", "heart_rate": <float>, "risk_score": <float 0..1>}, ...]}`

// Config holds the forecasting capability configuration.
type Config struct {
	Enabled bool
	APIKey  string
	BaseURL string // optional; any OpenAI-compatible endpoint
	Model   string
	Timeout time.Duration
}

// Adapter pairs the remote forecasting call with the flat default
// projection. A disabled capability or missing API key leaves the
// client nil for the adapter's entire lifetime.
type Adapter struct {
	client   *openaisdk.Client
	model    string
	timeout  time.Duration
	coord    *inference.Coordinator
	defaults capability.Defaults
	nowFunc  func() time.Time // for testing
}

// New constructs the adapter once at process start.
func New(cfg Config, coord *inference.Coordinator, defaults capability.Defaults) *Adapter {
	a := &Adapter{
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		coord:    coord,
		defaults: defaults,
		nowFunc:  time.Now,
	}
	if a.model == "" {
		a.model = DefaultModel
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}

	if !cfg.Enabled || cfg.APIKey == "" {
		slog.Info("forecasting capability running in fallback-only mode",
			"enabled", cfg.Enabled,
			"credentials_configured", cfg.APIKey != "")
		return a
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openaisdk.NewClient(opts...)
	a.client = &client
	return a
}

// SetNowFunc overrides the time source (for testing).
func (a *Adapter) SetNowFunc(fn func() time.Time) { a.nowFunc = fn }

// Live reports whether a remote client was constructed.
func (a *Adapter) Live() bool { return a.client != nil }

// GetForecast returns a Forecast for the patient over horizonDays.
// A zero horizon means DefaultHorizonDays.
func (a *Adapter) GetForecast(ctx context.Context, patientID string, horizonDays int, fallback inference.FallbackFunc[capability.Forecast]) (*capability.Forecast, inference.Source, error) {
	if patientID == "" {
		return nil, "", vigilerr.New(vigilerr.CodeCapabilityRequestInvalid,
			"patient id must not be empty", vigilerr.FieldCapability(capability.OpForecast))
	}
	if horizonDays == 0 {
		horizonDays = DefaultHorizonDays
	}
	if horizonDays < 1 || horizonDays > MaxHorizonDays {
		return nil, "", vigilerr.Errorf(vigilerr.CodeCapabilityRequestInvalid,
			"forecast horizon must be between 1 and %d days, got %d", MaxHorizonDays, horizonDays)
	}

	deflt := func() *capability.Forecast {
		return a.defaults.ForecastFor(a.nowFunc(), horizonDays)
	}

	if a.client == nil {
		return capability.Substitute(ctx, capability.OpForecast, fallback, deflt)
	}

	remote := func(ctx context.Context) (*capability.Forecast, error) {
		text, err := a.project(ctx, patientID, horizonDays)
		if err != nil {
			return nil, err
		}
		return a.mapResponse(text, horizonDays), nil
	}

	return inference.Execute(ctx, a.coord, capability.OpForecast, remote, fallback, deflt)
}

// project performs the single Chat Completions round trip and returns
// the model's text output.
func (a *Adapter) project(ctx context.Context, patientID string, horizonDays int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := "Project the health trend for patient " + patientID +
		" over the next " + strconv.Itoa(horizonDays) + " days, starting " +
		a.nowFunc().UTC().Format("2006-01-02") + "."

	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(a.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(prompt),
		},
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", vigilerr.Wrapf(err, vigilerr.CodeCapabilityUpstreamFailure, "calling forecasting model")
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

// mapResponse coerces the model's text output into the standard schema,
// yielding nil on any shape mismatch.
func (a *Adapter) mapResponse(text string, horizonDays int) *capability.Forecast {
	trimmed := strings.TrimSpace(text)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil
	}

	trendStr, ok := capability.CoerceString(raw["trend"])
	if !ok {
		return nil
	}
	trend := capability.Trend(trendStr)
	if !capability.ValidTrend(trend) {
		return nil
	}
	conf, ok := capability.CoerceFloat(raw["confidence"])
	if !ok || conf < 0 || conf > 1 {
		return nil
	}

	fc := &capability.Forecast{
		HorizonDays: horizonDays,
		Trend:       trend,
		Confidence:  conf,
		GeneratedAt: a.nowFunc(),
	}

	if list, ok := raw["points"].([]any); ok {
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			date, ok := capability.CoerceString(entry["date"])
			if !ok {
				continue
			}
			hr, ok := capability.CoerceFloat(entry["heart_rate"])
			if !ok {
				continue
			}
			fc.Points = append(fc.Points, capability.ForecastPoint{
				Date:      date,
				HeartRate: hr,
				RiskScore: capability.OptionalFloat(entry, "risk_score"),
			})
		}
	}
	return fc
}
