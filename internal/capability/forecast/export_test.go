// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package forecast

import "github.com/vigil-health/vigil/internal/capability"

// MapResponse exposes mapResponse for white-box testing.
func (a *Adapter) MapResponse(text string, horizonDays int) *capability.Forecast {
	return a.mapResponse(text, horizonDays)
}
