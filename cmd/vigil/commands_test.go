// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigil-health/vigil/internal/secrets"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// executeCommand runs the root command with args and captures stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vigil dev")
}

func TestStatusCommand_NotRunning(t *testing.T) {
	// Port 1 is never listening.
	out, err := executeCommand(t, "status", "--address", "127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
}

func TestStatusCommand_Running(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/api/v1/operations":
			_, _ = w.Write([]byte(`{"operations":[{"operation":"risk_score","error_count":2,"error_rate":0.6667,"fresh":false}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	out, err := executeCommand(t, "status", "--address", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "risk_score")
	assert.Contains(t, out, "errors=2")
	assert.Contains(t, out, "stale")
}

func TestStatusCommand_NoOperations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			_, _ = w.Write([]byte(`{"operations":[]}`))
		}
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	out, err := executeCommand(t, "status", "--address", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "No operations tracked yet.")
}

// mapSecretStore is an in-memory secrets.Store for command tests.
type mapSecretStore struct {
	values map[string]string
}

func newMapSecretStore() *mapSecretStore {
	return &mapSecretStore{values: map[string]string{}}
}

func (m *mapSecretStore) Store(service, key, value string) error {
	m.values[service+"/"+key] = value
	return nil
}

func (m *mapSecretStore) Retrieve(service, key string) (string, error) {
	v, ok := m.values[service+"/"+key]
	if !ok {
		return "", vigilerr.Errorf(vigilerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	return v, nil
}

func (m *mapSecretStore) Delete(service, key string) error {
	if _, ok := m.values[service+"/"+key]; !ok {
		return vigilerr.Errorf(vigilerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	delete(m.values, service+"/"+key)
	return nil
}

func (m *mapSecretStore) List(service string) ([]string, error) {
	var keys []string
	for k := range m.values {
		if name, ok := strings.CutPrefix(k, service+"/"); ok {
			keys = append(keys, name)
		}
	}
	return keys, nil
}

func withMockSecretStore(t *testing.T, store secrets.Store) {
	t.Helper()
	prev := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return store }
	t.Cleanup(func() { secretStoreFactory = prev })
}

func TestSecretCommands(t *testing.T) {
	store := newMapSecretStore()
	withMockSecretStore(t, store)

	out, err := executeCommand(t, "secret", "set", "risk-api-key", "sk-123")
	require.NoError(t, err)
	assert.Contains(t, out, "keyring://vigil/risk-api-key")
	assert.Equal(t, "sk-123", store.values["vigil/risk-api-key"])

	out, err = executeCommand(t, "secret", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "risk-api-key")

	out, err = executeCommand(t, "secret", "delete", "risk-api-key")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted secret: risk-api-key")

	_, err = executeCommand(t, "secret", "delete", "risk-api-key")
	require.Error(t, err)
	assert.True(t, vigilerr.HasCode(err, vigilerr.CodeSecretNotFound))
}

func TestSecretList_Empty(t *testing.T) {
	withMockSecretStore(t, newMapSecretStore())

	out, err := executeCommand(t, "secret", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No secrets stored.")
}

func TestInitCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "vigil.yaml")
	prev := configPathForWrite
	configPathForWrite = func() (string, error) { return cfgPath, nil }
	t.Cleanup(func() { configPathForWrite = prev })

	out, err := executeCommand(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, cfgPath)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "inference:")

	// Second run refuses without --force.
	_, err = executeCommand(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = executeCommand(t, "init", "--force")
	require.NoError(t, err)
}

func TestDoctorCommand(t *testing.T) {
	out, err := executeCommand(t, "doctor", "--address", "127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "Binary:")
	assert.Contains(t, out, "not running")
	assert.Contains(t, out, "Disk Space:")
}

func TestRootCommand_UnknownSubcommand(t *testing.T) {
	_, err := executeCommand(t, "no-such-command")
	require.Error(t, err)
}
