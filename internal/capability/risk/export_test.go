// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package risk

import "github.com/vigil-health/vigil/internal/capability"

// MapResponse exposes mapResponse for white-box testing.
func (a *Adapter) MapResponse(text string) *capability.RiskAssessment {
	return a.mapResponse(text)
}

// DecodeJSONObject exposes decodeJSONObject for white-box testing.
var DecodeJSONObject = decodeJSONObject
