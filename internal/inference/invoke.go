// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package inference

import (
	"context"

	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// RemoteFunc performs one network call within the caller's timeout budget
// and returns the mapped response, or nil when the response carried no
// usable data (including mapping failures). It must never retry internally.
type RemoteFunc[T any] func(ctx context.Context) (*T, error)

// FallbackFunc is the local substitute: a pure function with no network
// dependency, returning a result in the capability's standard schema.
type FallbackFunc[T any] func(ctx context.Context) (*T, error)

// DefaultFunc produces a capability's hard-coded default payload, used
// when no fallback callable was supplied.
type DefaultFunc[T any] func() *T

// Invoke executes exactly one attempt of remote and captures the outcome
// as a Result. It does not retry and does not inspect the value for
// domain correctness — only nil versus non-nil.
func Invoke[T any](ctx context.Context, remote RemoteFunc[T]) Result[T] {
	if remote == nil {
		return Failure[T](vigilerr.New(vigilerr.CodeInferenceInvalidInput, "remote callable is nil"))
	}

	value, err := remote(ctx)
	if err != nil {
		return Failure[T](err)
	}
	return Success(value)
}
