// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package secrets_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigil-health/vigil/internal/secrets"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

func TestIsKeyringURI(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid URI", "keyring://vigil/risk-api-key", true},
		{"valid URI with dashes", "keyring://my-svc/my-key", true},
		{"env var reference", "${VIGIL_API_KEY}", false},
		{"literal value", "sk-abc123", false},
		{"empty string", "", false},
		{"just scheme", "keyring://", true},
		{"other scheme", "vault://secret/key", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := secrets.IsKeyringURI(tt.value)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://vigil/api-key", "vigil", "api-key", false},
		{"dashes", "keyring://my-service/my-key-name", "my-service", "my-key-name", false},
		{"slashes in key", "keyring://vigil/path/to/key", "vigil", "path/to/key", false},
		{"not a keyring URI", "vault://secret/key", "", "", true},
		{"missing key", "keyring://vigil/", "", "", true},
		{"missing service", "keyring:///key", "", "", true},
		{"missing both", "keyring://", "", "", true},
		{"no path", "keyring://vigil", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, vigilerr.HasCode(err, vigilerr.CodeSecretInvalidInput))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantService, svc)
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}

func TestResolveKeyringURI(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("vigil", "test-key", "resolved-secret"))

	t.Run("resolves keyring URI", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, "keyring://vigil/test-key")
		require.NoError(t, err)
		assert.Equal(t, "resolved-secret", val)
	})

	t.Run("passes through non-keyring values", func(t *testing.T) {
		val, err := secrets.ResolveKeyringURI(ks, "literal-value")
		require.NoError(t, err)
		assert.Equal(t, "literal-value", val)
	})

	t.Run("error on missing secret", func(t *testing.T) {
		_, err := secrets.ResolveKeyringURI(ks, "keyring://vigil/nonexistent")
		require.Error(t, err)
		// The store's not-found code survives the resolve wrapper.
		assert.True(t, vigilerr.HasCode(err, vigilerr.CodeSecretNotFound))
	})

	t.Run("error on malformed URI", func(t *testing.T) {
		_, err := secrets.ResolveKeyringURI(ks, "keyring://bad")
		require.Error(t, err)
	})
}

func TestResolveViperSecrets(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("vigil", "risk-api-key", "sk-ant-secret"))
	require.NoError(t, ks.Store("vigil", "forecast-api-key", "sk-oai-secret"))

	v := viper.New()
	v.Set("capabilities.risk.api_key", "keyring://vigil/risk-api-key")
	v.Set("capabilities.forecast.api_key", "keyring://vigil/forecast-api-key")
	v.Set("networking.listen", "127.0.0.1:18890") // non-keyring value
	v.Set("capabilities.risk.model", "claude-haiku-4-5")

	secrets.ResolveViperSecrets(v, ks)

	assert.Equal(t, "sk-ant-secret", v.GetString("capabilities.risk.api_key"))
	assert.Equal(t, "sk-oai-secret", v.GetString("capabilities.forecast.api_key"))
	assert.Equal(t, "127.0.0.1:18890", v.GetString("networking.listen"))
	assert.Equal(t, "claude-haiku-4-5", v.GetString("capabilities.risk.model"))
}

func TestResolveViperSecrets_MissingSecretKeepsURI(t *testing.T) {
	ks := secrets.NewKeyringStore()

	v := viper.New()
	v.Set("capabilities.risk.api_key", "keyring://vigil/nonexistent-key")

	// Resolution failures are non-fatal: the URI stays in place so the
	// failure surfaces when the capability is constructed.
	secrets.ResolveViperSecrets(v, ks)

	assert.Equal(t, "keyring://vigil/nonexistent-key", v.GetString("capabilities.risk.api_key"))
}
