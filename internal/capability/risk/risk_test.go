// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package risk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigil-health/vigil/internal/capability"
	"github.com/vigil-health/vigil/internal/capability/risk"
	"github.com/vigil-health/vigil/internal/inference"
)

func newCoordinator(t *testing.T) (*inference.Coordinator, *inference.Tracker) {
	t.Helper()
	tracker := inference.NewTracker()
	coord, err := inference.NewCoordinator(tracker, inference.Options{FallbackEnabled: true})
	require.NoError(t, err)
	return coord, tracker
}

func newLiveAdapter(t *testing.T, baseURL string) *risk.Adapter {
	t.Helper()
	coord, _ := newCoordinator(t)
	return risk.New(risk.Config{
		Enabled: true,
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	}, coord, capability.BuiltinDefaults())
}

// messagesResponse builds a minimal Anthropic Messages API response whose
// single text block contains body.
func messagesResponse(body string) map[string]any {
	return map[string]any{
		"id":   "msg_test",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": body},
		},
		"model":       "claude-haiku-4-5",
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

func TestGetRisk_RemoteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// The SDK refuses sniffed text/plain responses.
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messagesResponse(
			`{"score": 0.72, "level": "high", "confidence": 0.85, "factors": ["elevated resting heart rate"]}`))
	}))
	defer srv.Close()

	a := newLiveAdapter(t, srv.URL)
	require.True(t, a.Live())

	assessment, source, err := a.GetRisk(context.Background(), "patient-1", nil)
	require.NoError(t, err)

	assert.Equal(t, inference.SourceRemote, source)
	assert.Equal(t, 0.72, assessment.Score)
	assert.Equal(t, capability.RiskHigh, assessment.Level)
	assert.Equal(t, 0.85, assessment.Confidence)
	assert.Equal(t, []string{"elevated resting heart rate"}, assessment.Factors)
}

func TestGetRisk_UpstreamErrorUsesDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	coord, tracker := newCoordinator(t)
	a := risk.New(risk.Config{
		Enabled: true,
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, coord, capability.BuiltinDefaults())

	assessment, source, err := a.GetRisk(context.Background(), "patient-1", nil)
	require.NoError(t, err)

	assert.Equal(t, inference.SourceDefault, source)
	assert.Equal(t, 0.2, assessment.Score)
	assert.Equal(t, capability.RiskLow, assessment.Level)
	assert.Equal(t, 0.4, assessment.Confidence)
	assert.Positive(t, tracker.ErrorRate(capability.OpRiskScore))
}

func TestGetRisk_DisabledRunsFallbackOnly(t *testing.T) {
	coord, tracker := newCoordinator(t)
	a := risk.New(risk.Config{Enabled: false}, coord, capability.BuiltinDefaults())
	assert.False(t, a.Live())

	assessment, source, err := a.GetRisk(context.Background(), "patient-1",
		func(_ context.Context) (*capability.RiskAssessment, error) {
			return &capability.RiskAssessment{Score: 0.1, Level: capability.RiskLow, Confidence: 0.3}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, inference.SourceFallback, source)
	assert.Equal(t, 0.1, assessment.Score)
	assert.Empty(t, tracker.Operations())
}

func TestGetRisk_EmptyPatientID(t *testing.T) {
	coord, _ := newCoordinator(t)
	a := risk.New(risk.Config{Enabled: false}, coord, capability.BuiltinDefaults())

	_, _, err := a.GetRisk(context.Background(), "", nil)
	require.Error(t, err)
}
