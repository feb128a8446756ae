// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

// Package risk adapts model-based risk scoring (Anthropic Messages API)
// behind the fallback coordinator. The model is asked for a strict JSON
// assessment; anything that does not map into the standard schema is an
// empty result, never an error.
package risk

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/vigil-health/vigil/internal/capability"
	"github.com/vigil-health/vigil/internal/inference"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5"

// DefaultTimeout bounds one remote risk-scoring call.
const DefaultTimeout = 15 * time.Second

const systemPrompt = `You are a clinical risk-scoring service. Given a patient
summary, respond with a single JSON object and nothing else:
{"score": <float 0..1>, "level": "low"|"moderate"|"high", "confidence": <float 0..1>, "factors": [<string>, ...]}`

// Config holds the risk-scoring capability configuration.
type Config struct {
	Enabled bool
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
	Model   string
	Timeout time.Duration
}

// Adapter pairs the remote risk-scoring call with the conservative
// default assessment. Construction happens once; a disabled capability
// or missing API key leaves the client nil forever.
type Adapter struct {
	client   *anthropicsdk.Client
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
		slog.Info("risk-scoring capability running in fallback-only mode",
			"enabled", cfg.Enabled,
			"credentials_configured", cfg.APIKey != "")
		return a
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropicsdk.NewClient(opts...)
	a.client = &client
	return a
}

// SetNowFunc overrides the time source (for testing).
func (a *Adapter) SetNowFunc(fn func() time.Time) { a.nowFunc = fn }

// Live reports whether a remote client was constructed.
func (a *Adapter) Live() bool { return a.client != nil }

// GetRisk returns a RiskAssessment for the patient.
func (a *Adapter) GetRisk(ctx context.Context, patientID string, fallback inference.FallbackFunc[capability.RiskAssessment]) (*capability.RiskAssessment, inference.Source, error) {
	if patientID == "" {
		return nil, "", vigilerr.New(vigilerr.CodeCapabilityRequestInvalid,
			"patient id must not be empty", vigilerr.FieldCapability(capability.OpRiskScore))
	}

	deflt := func() *capability.RiskAssessment {
		return a.defaults.RiskAssessment(a.nowFunc())
	}

	if a.client == nil {
		return capability.Substitute(ctx, capability.OpRiskScore, fallback, deflt)
	}

	remote := func(ctx context.Context) (*capability.RiskAssessment, error) {
		text, err := a.score(ctx, patientID)
		if err != nil {
			return nil, err
		}
		return a.mapResponse(text), nil
	}

	return inference.Execute(ctx, a.coord, capability.OpRiskScore, remote, fallback, deflt)
}

// score performs the single Messages API round trip and returns the
// model's text output.
func (a *Adapter) score(ctx context.Context, patientID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := "Assess the current health risk for patient " + patientID +
		" as of " + a.nowFunc().UTC().Format(time.RFC3339) + "."

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(a.model),
		MaxTokens: 512,
		System: []anthropicsdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", vigilerr.Wrapf(err, vigilerr.CodeCapabilityUpstreamFailure, "calling risk-scoring model")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// mapResponse coerces the model's text output into the standard schema.
// Absent required fields, failed coercion, or out-of-range values yield
// nil — the coordinator's empty-result path.
func (a *Adapter) mapResponse(text string) *capability.RiskAssessment {
	raw := decodeJSONObject(text)
	if raw == nil {
		return nil
	}

	score, ok := capability.CoerceFloat(raw["score"])
	if !ok || score < 0 || score > 1 {
		return nil
	}
	conf, ok := capability.CoerceFloat(raw["confidence"])
	if !ok || conf < 0 || conf > 1 {
		return nil
	}

	level := capability.LevelForScore(score)
	if s, ok := capability.CoerceString(raw["level"]); ok {
		if candidate := capability.RiskLevel(s); capability.ValidLevel(candidate) {
			level = candidate
		}
	}

	var factors []string
	if list, ok := raw["factors"].([]any); ok {
		for _, item := range list {
			if s, ok := capability.CoerceString(item); ok {
				factors = append(factors, s)
			}
		}
	}

	return &capability.RiskAssessment{
		Score:      score,
		Level:      level,
		Confidence: conf,
		Factors:    factors,
		AssessedAt: a.nowFunc(),
	}
}

// decodeJSONObject extracts a JSON object from model output, tolerating
// markdown code fences around it.
func decodeJSONObject(text string) map[string]any {
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
	return raw
}
