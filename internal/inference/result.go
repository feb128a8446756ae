// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

// Package inference implements the fallback-orchestration core: a single
// attempt invoker, a per-operation freshness tracker, and a coordinator
// deciding remote-vs-cache-vs-fallback for every outbound operation.
package inference

type resultKind int

const (
	kindFailure resultKind = iota
	kindEmpty
	kindSuccess
)

// Result is the outcome of one remote attempt. It has exactly three
// variants: Success (a non-nil mapped value), Empty (the remote answered
// but produced no usable data, including mapping failures), and Failure
// (the call itself errored). The coordinator branches on the variant
// rather than inferring it from control flow.
type Result[T any] struct {
	kind  resultKind
	value *T
	cause error
}

// Success wraps a non-nil value. A nil value degrades to Empty so a
// careless remote closure cannot produce a "successful nothing".
func Success[T any](value *T) Result[T] {
	if value == nil {
		return EmptyResult[T]()
	}
	return Result[T]{kind: kindSuccess, value: value}
}

// EmptyResult marks a well-formed response that carried no usable data.
func EmptyResult[T any]() Result[T] {
	return Result[T]{kind: kindEmpty}
}

// Failure wraps the error raised by the remote callable.
func Failure[T any](cause error) Result[T] {
	return Result[T]{kind: kindFailure, cause: cause}
}

func (r Result[T]) IsSuccess() bool { return r.kind == kindSuccess }
func (r Result[T]) IsEmpty() bool   { return r.kind == kindEmpty }
func (r Result[T]) IsFailure() bool { return r.kind == kindFailure }

// Value returns the wrapped value. Nil unless IsSuccess.
func (r Result[T]) Value() *T { return r.value }

// Cause returns the wrapped error. Nil unless IsFailure.
func (r Result[T]) Cause() error { return r.cause }
