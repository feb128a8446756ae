// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package capability

import (
	"context"

	"github.com/vigil-health/vigil/internal/inference"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// Substitute answers for an adapter whose live client is absent: the
// caller-supplied fallback wins, otherwise the default payload. The
// freshness tracker is deliberately not involved — a capability running
// in fallback-only mode is a configuration state, not a failure.
func Substitute[T any](
	ctx context.Context,
	operation string,
	fallback inference.FallbackFunc[T],
	deflt inference.DefaultFunc[T],
) (*T, inference.Source, error) {
	if fallback != nil {
		value, err := fallback(ctx)
		if err != nil {
			return nil, "", vigilerr.Wrap(err, vigilerr.CodeInferenceFallbackFailure,
				"fallback failed with capability disabled",
				vigilerr.FieldOperation(operation))
		}
		if value != nil {
			return value, inference.SourceFallback, nil
		}
	}

	if deflt != nil {
		if value := deflt(); value != nil {
			return value, inference.SourceDefault, nil
		}
	}

	return nil, "", vigilerr.New(vigilerr.CodeCapabilityDisabled,
		"capability disabled and no substitute is available",
		vigilerr.FieldOperation(operation))
}
