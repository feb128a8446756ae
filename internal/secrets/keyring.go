// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/zalando/go-keyring"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// indexSuffix is appended to the service name to form the key under
// which a JSON array of stored key names lives. go-keyring cannot
// enumerate keys, so List is served from this side index.
const indexSuffix = "::keys-index"

// KeyringStore implements Store using the OS keyring via zalando/go-keyring:
// Keychain on macOS, secret-service (D-Bus) on Linux, Credential Manager
// on Windows.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func checkServiceKey(operation, service, key string) error {
	if service == "" {
		return vigilerr.Errorf(vigilerr.CodeSecretInvalidInput, "secret %s: service must not be empty", operation)
	}
	if key == "" {
		return vigilerr.Errorf(vigilerr.CodeSecretInvalidInput, "secret %s: key must not be empty", operation)
	}
	return nil
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkServiceKey("store", service, key); err != nil {
		return err
	}

	if err := keyring.Set(service, key, value); err != nil {
		return vigilerr.Wrapf(err, vigilerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	return s.updateIndex(service, func(keys []string) []string {
		for _, k := range keys {
			if k == key {
				return keys
			}
		}
		return append(keys, key)
	})
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkServiceKey("retrieve", service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", vigilerr.Errorf(vigilerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", vigilerr.Wrapf(err, vigilerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkServiceKey("delete", service, key); err != nil {
		return err
	}

	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return vigilerr.Errorf(vigilerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return vigilerr.Wrapf(err, vigilerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}

	return s.updateIndex(service, func(keys []string) []string {
		filtered := keys[:0]
		for _, k := range keys {
			if k != key {
				filtered = append(filtered, k)
			}
		}
		return filtered
	})
}

func (s *KeyringStore) List(service string) ([]string, error) {
	return s.loadIndex(service)
}

// loadIndex reads the JSON key index for a service from the keyring.
func (s *KeyringStore) loadIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+indexSuffix)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, vigilerr.Wrapf(err, vigilerr.CodeSecretListFailure, "loading key index for service %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, vigilerr.Wrapf(err, vigilerr.CodeSecretListFailure, "decoding key index for service %s", service)
	}
	return keys, nil
}

// updateIndex applies fn to the current key index and writes it back.
// An index that becomes empty is deleted rather than stored as [].
func (s *KeyringStore) updateIndex(service string, fn func(keys []string) []string) error {
	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}

	keys = fn(keys)
	indexKey := service + indexSuffix

	if len(keys) == 0 {
		if delErr := keyring.Delete(service, indexKey); delErr != nil && !errors.Is(delErr, keyring.ErrNotFound) {
			slog.Debug("failed to clean up empty key index", "service", service, "error", delErr)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return vigilerr.Wrapf(err, vigilerr.CodeSecretListFailure, "encoding key index for service %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return vigilerr.Wrapf(err, vigilerr.CodeSecretListFailure, "saving key index for service %s", service)
	}
	return nil
}
