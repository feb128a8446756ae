// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

func TestCodeOf(t *testing.T) {
	err := vigilerr.New(vigilerr.CodeInferenceRemoteFailure, "remote call failed")
	assert.Equal(t, vigilerr.CodeInferenceRemoteFailure, vigilerr.CodeOf(err))
}

func TestCodeOf_NilAndPlainErrors(t *testing.T) {
	assert.Equal(t, vigilerr.Code(""), vigilerr.CodeOf(nil))
	assert.Equal(t, vigilerr.Code(""), vigilerr.CodeOf(stderrors.New("plain")))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.NoError(t, vigilerr.Wrap(nil, vigilerr.CodeStoreDatabaseFailure, "ignored"))
	assert.NoError(t, vigilerr.Wrapf(nil, vigilerr.CodeStoreDatabaseFailure, "ignored"))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := vigilerr.Wrap(cause, vigilerr.CodeCapabilityUpstreamFailure, "calling inference endpoint",
		vigilerr.FieldOperation("health_metrics"))

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, vigilerr.CodeCapabilityUpstreamFailure, vigilerr.CodeOf(err))

	fields := vigilerr.FieldsOf(err)
	assert.Equal(t, "health_metrics", fields["operation"])
}

func TestWrap_InnerCodeWins(t *testing.T) {
	inner := vigilerr.New(vigilerr.CodeSecretNotFound, "no secret stored")
	err := vigilerr.Wrapf(inner, vigilerr.CodeSecretResolveFailure, "resolving keyring URI")

	require.Error(t, err)
	assert.Equal(t, vigilerr.CodeSecretNotFound, vigilerr.CodeOf(err))
	assert.True(t, vigilerr.IsNotFound(err))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", vigilerr.New(vigilerr.CodeServerEntityNotFound, "x"), vigilerr.IsNotFound, true},
		{"invalid input", vigilerr.New(vigilerr.CodeCLIInputInvalid, "x"), vigilerr.IsInvalidInput, true},
		{"invalid value", vigilerr.New(vigilerr.CodeConfigValidateInvalidValue, "x"), vigilerr.IsInvalidInput, true},
		{"total failure", vigilerr.New(vigilerr.CodeInferenceTotalFailure, "x"), vigilerr.IsTotalFailure, true},
		{"upstream failure", vigilerr.New(vigilerr.CodeCapabilityUpstreamFailure, "x"), vigilerr.IsUpstreamFailure, true},
		{"upstream predicate rejects remote failure", vigilerr.New(vigilerr.CodeInferenceRemoteFailure, "x"), vigilerr.IsUpstreamFailure, false},
		{"nil error", nil, vigilerr.IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", vigilerr.New(vigilerr.CodeServerEntityNotFound, "x"), http.StatusNotFound},
		{"invalid", vigilerr.New(vigilerr.CodeServerRequestInvalid, "x"), http.StatusBadRequest},
		{"total failure", vigilerr.New(vigilerr.CodeInferenceTotalFailure, "x"), http.StatusBadGateway},
		{"upstream", vigilerr.New(vigilerr.CodeCapabilityUpstreamFailure, "x"), http.StatusBadGateway},
		{"internal", vigilerr.New(vigilerr.CodeServerInternalFailure, "x"), http.StatusInternalServerError},
		{"plain error", stderrors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vigilerr.HTTPStatus(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	err := vigilerr.Errorf(vigilerr.CodeSecretNotFound, "secret %q not found", "risk_api_key")
	assert.True(t, vigilerr.HasCode(err, vigilerr.CodeSecretNotFound))
	assert.False(t, vigilerr.HasCode(err, vigilerr.CodeSecretStoreFailure))
	assert.False(t, vigilerr.HasCode(nil, vigilerr.CodeSecretNotFound))
}

func TestJoin(t *testing.T) {
	e1 := stderrors.New("first")
	e2 := stderrors.New("second")
	err := vigilerr.Join(e1, e2)

	require.Error(t, err)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}
