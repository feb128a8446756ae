// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package inference

import (
	"context"
	"log/slog"
	"sync"
	"time"

	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// Source identifies which path produced a coordinated result.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
	SourceDefault  Source = "default"
)

// Options configures a Coordinator. All fields come from process-wide
// configuration and are immutable after construction.
type Options struct {
	// FallbackEnabled controls whether degraded paths run at all. When
	// false, remote failures propagate to the caller unsubstituted.
	FallbackEnabled bool

	// CacheEnabled allows serving the last successful remote value when
	// a later attempt fails and the operation is still fresh.
	CacheEnabled bool

	// CacheTTL is the validity window for cached last-success values.
	// Required when CacheEnabled.
	CacheTTL time.Duration
}

// Coordinator is the central decision point: for each named operation it
// attempts the remote call once, updates the freshness tracker, and on
// failure substitutes a cached value, the fallback callable, or the
// capability default — in that order. It never retries.
//
// The last-value cache is process-local and in-memory; it is keyed by
// operation name and holds whatever pointer type the operation produces.
type Coordinator struct {
	tracker         *Tracker
	fallbackEnabled bool
	cacheEnabled    bool
	cacheTTL        time.Duration

	mu    sync.Mutex
	cache map[string]any
}

// NewCoordinator creates a Coordinator over the given tracker.
func NewCoordinator(tracker *Tracker, opts Options) (*Coordinator, error) {
	if tracker == nil {
		return nil, vigilerr.New(vigilerr.CodeInferenceInvalidInput, "coordinator requires a tracker")
	}
	if opts.CacheEnabled && opts.CacheTTL <= 0 {
		return nil, vigilerr.Errorf(vigilerr.CodeConfigValidateInvalidValue,
			"cache TTL must be positive when the cache is enabled, got %s", opts.CacheTTL)
	}
	return &Coordinator{
		tracker:         tracker,
		fallbackEnabled: opts.FallbackEnabled,
		cacheEnabled:    opts.CacheEnabled,
		cacheTTL:        opts.CacheTTL,
		cache:           make(map[string]any),
	}, nil
}

// Tracker returns the coordinator's freshness tracker.
func (c *Coordinator) Tracker() *Tracker { return c.tracker }

// CacheTTL returns the configured validity window for cached values.
func (c *Coordinator) CacheTTL() time.Duration { return c.cacheTTL }

func (c *Coordinator) storeCached(operation string, value any) {
	if !c.cacheEnabled {
		return
	}
	c.mu.Lock()
	c.cache[operation] = value
	c.mu.Unlock()
}

// cachedValue returns the last successful value for the operation when
// the cache is enabled, the operation is still fresh, and the stored
// value has the expected type.
func cachedValue[T any](c *Coordinator, operation string) (*T, bool) {
	if !c.cacheEnabled || !c.tracker.IsFresh(operation, c.cacheTTL) {
		return nil, false
	}

	c.mu.Lock()
	raw, ok := c.cache[operation]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	value, ok := raw.(*T)
	if !ok {
		return nil, false
	}
	return value, true
}

// Execute performs one coordinated attempt of the named operation.
//
// Remote success records a success, refreshes the cache, and returns the
// remote value. An empty remote result (a well-formed "no data" response
// or a mapping failure) invokes the fallback WITHOUT touching the error
// counter — only raised errors count against reliability. A remote error
// records a failure, then tries the cache, then the fallback; if the
// fallback also fails, that error propagates — a total failure must
// surface, never be swallowed. With no fallback callable, the capability
// default is returned instead.
func Execute[T any](
	ctx context.Context,
	c *Coordinator,
	operation string,
	remote RemoteFunc[T],
	fallback FallbackFunc[T],
	deflt DefaultFunc[T],
) (*T, Source, error) {
	if operation == "" {
		return nil, "", vigilerr.New(vigilerr.CodeInferenceInvalidInput, "operation name must not be empty")
	}

	result := Invoke(ctx, remote)

	switch {
	case result.IsSuccess():
		c.tracker.RecordSuccess(operation)
		c.storeCached(operation, result.Value())
		slog.Debug("remote operation succeeded", "operation", operation)
		return result.Value(), SourceRemote, nil

	case result.IsEmpty():
		// A well-formed "no data" response is not counted against
		// reliability the way a raised error is.
		slog.Info("remote operation returned no data, substituting",
			"operation", operation)
		return substitute(ctx, c, operation, nil, fallback, deflt)

	default:
		c.tracker.RecordFailure(operation)
		slog.Warn("remote operation failed, degrading",
			"operation", operation,
			"error", result.Cause(),
			"error_rate", c.tracker.ErrorRate(operation))

		if value, ok := cachedValue[T](c, operation); ok {
			slog.Info("serving cached last-success value",
				"operation", operation)
			return value, SourceCache, nil
		}
		return substitute(ctx, c, operation, result.Cause(), fallback, deflt)
	}
}

// substitute resolves the degraded path: fallback callable first, then
// the capability default. remoteCause is nil on the empty-result path.
func substitute[T any](
	ctx context.Context,
	c *Coordinator,
	operation string,
	remoteCause error,
	fallback FallbackFunc[T],
	deflt DefaultFunc[T],
) (*T, Source, error) {
	if !c.fallbackEnabled {
		if remoteCause != nil {
			return nil, "", vigilerr.Wrap(remoteCause, vigilerr.CodeInferenceRemoteFailure,
				"remote operation failed and fallback is disabled",
				vigilerr.FieldOperation(operation))
		}
		return nil, "", vigilerr.New(vigilerr.CodeInferenceEmptyResult,
			"remote operation returned no data and fallback is disabled",
			vigilerr.FieldOperation(operation))
	}

	if fallback != nil {
		value, err := fallback(ctx)
		if err != nil {
			if remoteCause != nil {
				slog.Error("remote and fallback both failed",
					"operation", operation,
					"remote_error", remoteCause,
					"fallback_error", err)
				return nil, "", vigilerr.Wrap(err, vigilerr.CodeInferenceTotalFailure,
					"remote and fallback both failed",
					vigilerr.FieldOperation(operation),
					vigilerr.Field("remote_error", remoteCause.Error()))
			}
			return nil, "", vigilerr.Wrap(err, vigilerr.CodeInferenceFallbackFailure,
				"fallback failed after empty remote result",
				vigilerr.FieldOperation(operation))
		}
		if value != nil {
			return value, SourceFallback, nil
		}
		// A fallback that produced nothing falls through to the default.
	}

	if deflt != nil {
		if value := deflt(); value != nil {
			return value, SourceDefault, nil
		}
	}

	if remoteCause != nil {
		return nil, "", vigilerr.Wrap(remoteCause, vigilerr.CodeInferenceTotalFailure,
			"remote failed and no substitute is available",
			vigilerr.FieldOperation(operation))
	}
	return nil, "", vigilerr.New(vigilerr.CodeInferenceEmptyResult,
		"remote returned no data and no substitute is available",
		vigilerr.FieldOperation(operation))
}

// Wrapped is a coordinated callable produced by Wrap.
type Wrapped[T any] func(ctx context.Context) (*T, Source, error)

// Wrap binds an operation closure and its substitutes to the coordinator,
// returning a callable applied at call sites. This is explicit
// higher-order composition: the wrapping is visible where it is used.
func Wrap[T any](
	c *Coordinator,
	operation string,
	remote RemoteFunc[T],
	fallback FallbackFunc[T],
	deflt DefaultFunc[T],
) Wrapped[T] {
	return func(ctx context.Context) (*T, Source, error) {
		return Execute(ctx, c, operation, remote, fallback, deflt)
	}
}
