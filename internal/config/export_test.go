// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package config

import "github.com/vigil-health/vigil/internal/secrets"

// SetSecretStore substitutes the keyring store used during Load and
// returns a restore function.
func SetSecretStore(s secrets.Store) func() {
	prev := secretStore
	secretStore = s
	return func() { secretStore = prev }
}
