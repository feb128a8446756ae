// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package capability

import (
	"bytes"
	"os"
	"time"

	vigilerr "github.com/vigil-health/vigil/pkg/errors"
	"gopkg.in/yaml.v3"
)

// maxDefaultConfidence caps the confidence of any default payload so a
// degraded response is always distinguishable from a real remote
// inference downstream.
const maxDefaultConfidence = 0.9

// Defaults holds the hard-coded fallback payload values per capability.
// Operators may override them per deployment with a YAML defaults file;
// the file is loaded once at process start and validated.
type Defaults struct {
	Vitals   VitalsDefaults   `yaml:"vitals"`
	Risk     RiskDefaults     `yaml:"risk"`
	Forecast ForecastDefaults `yaml:"forecast"`
}

// VitalsDefaults are the nominal measurements returned when the
// health-metrics remote path is unavailable.
type VitalsDefaults struct {
	HeartRate        float64 `yaml:"heart_rate"`
	TemperatureC     float64 `yaml:"temperature_c"`
	SystolicBP       float64 `yaml:"systolic_bp"`
	DiastolicBP      float64 `yaml:"diastolic_bp"`
	OxygenSaturation float64 `yaml:"oxygen_saturation"`
	RespiratoryRate  float64 `yaml:"respiratory_rate"`
	Confidence       float64 `yaml:"confidence"`
}

// RiskDefaults are the conservative assessment returned when the
// risk-scoring remote path is unavailable.
type RiskDefaults struct {
	Score      float64   `yaml:"score"`
	Level      RiskLevel `yaml:"level"`
	Confidence float64   `yaml:"confidence"`
}

// ForecastDefaults shape the flat projection returned when the
// forecasting remote path is unavailable.
type ForecastDefaults struct {
	Trend      Trend   `yaml:"trend"`
	HeartRate  float64 `yaml:"heart_rate"`
	Confidence float64 `yaml:"confidence"`
}

// BuiltinDefaults returns the compiled-in default payload values.
func BuiltinDefaults() Defaults {
	return Defaults{
		Vitals: VitalsDefaults{
			HeartRate:        75,
			TemperatureC:     36.8,
			SystolicBP:       120,
			DiastolicBP:      80,
			OxygenSaturation: 97.5,
			RespiratoryRate:  16,
			Confidence:       0.5,
		},
		Risk: RiskDefaults{
			Score:      0.2,
			Level:      RiskLow,
			Confidence: 0.4,
		},
		Forecast: ForecastDefaults{
			Trend:      TrendStable,
			HeartRate:  75,
			Confidence: 0.4,
		},
	}
}

// LoadDefaults reads a YAML defaults file over the compiled-in values.
// An empty path returns the builtins unchanged. Unknown keys are
// rejected so typos surface at startup rather than silently keeping a
// builtin value.
func LoadDefaults(path string) (Defaults, error) {
	d := BuiltinDefaults()
	if path == "" {
		return d, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, vigilerr.Wrapf(err, vigilerr.CodeConfigLoadReadFailure,
			"reading capability defaults %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Defaults{}, vigilerr.Wrapf(err, vigilerr.CodeConfigParseInvalidFormat,
			"parsing capability defaults %s", path)
	}

	if err := d.Validate(); err != nil {
		return Defaults{}, err
	}
	return d, nil
}

// Validate checks that overridden values stay physiologically and
// semantically plausible.
func (d Defaults) Validate() error {
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"vitals", d.Vitals.Confidence},
		{"risk", d.Risk.Confidence},
		{"forecast", d.Forecast.Confidence},
	} {
		if c.value <= 0 || c.value > maxDefaultConfidence {
			return vigilerr.Errorf(vigilerr.CodeCapabilityDefaultsInvalid,
				"%s default confidence must be in (0, %g], got %g", c.name, maxDefaultConfidence, c.value)
		}
	}

	if d.Vitals.HeartRate <= 0 {
		return vigilerr.Errorf(vigilerr.CodeCapabilityDefaultsInvalid,
			"vitals default heart_rate must be positive, got %g", d.Vitals.HeartRate)
	}
	if d.Risk.Score < 0 || d.Risk.Score > 1 {
		return vigilerr.Errorf(vigilerr.CodeCapabilityDefaultsInvalid,
			"risk default score must be in [0,1], got %g", d.Risk.Score)
	}
	if !ValidLevel(d.Risk.Level) {
		return vigilerr.Errorf(vigilerr.CodeCapabilityDefaultsInvalid,
			"risk default level %q is not one of low/moderate/high", d.Risk.Level)
	}
	if !ValidTrend(d.Forecast.Trend) {
		return vigilerr.Errorf(vigilerr.CodeCapabilityDefaultsInvalid,
			"forecast default trend %q is not one of improving/stable/declining", d.Forecast.Trend)
	}
	if d.Forecast.HeartRate <= 0 {
		return vigilerr.Errorf(vigilerr.CodeCapabilityDefaultsInvalid,
			"forecast default heart_rate must be positive, got %g", d.Forecast.HeartRate)
	}
	return nil
}

// VitalsReport builds a fresh default payload stamped at now.
func (d Defaults) VitalsReport(now time.Time) *VitalsReport {
	temp := d.Vitals.TemperatureC
	sys := d.Vitals.SystolicBP
	dia := d.Vitals.DiastolicBP
	spo2 := d.Vitals.OxygenSaturation
	rr := d.Vitals.RespiratoryRate

	return &VitalsReport{
		HeartRate:        d.Vitals.HeartRate,
		Confidence:       d.Vitals.Confidence,
		TemperatureC:     &temp,
		SystolicBP:       &sys,
		DiastolicBP:      &dia,
		OxygenSaturation: &spo2,
		RespiratoryRate:  &rr,
		ObservedAt:       now,
	}
}

// RiskAssessment builds a fresh default payload stamped at now.
func (d Defaults) RiskAssessment(now time.Time) *RiskAssessment {
	return &RiskAssessment{
		Score:      d.Risk.Score,
		Level:      d.Risk.Level,
		Confidence: d.Risk.Confidence,
		AssessedAt: now,
	}
}

// ForecastFor builds a flat default projection over horizonDays.
func (d Defaults) ForecastFor(now time.Time, horizonDays int) *Forecast {
	points := make([]ForecastPoint, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		points = append(points, ForecastPoint{
			Date:      now.AddDate(0, 0, i).Format("2006-01-02"),
			HeartRate: d.Forecast.HeartRate,
		})
	}
	return &Forecast{
		HorizonDays: horizonDays,
		Trend:       d.Forecast.Trend,
		Confidence:  d.Forecast.Confidence,
		Points:      points,
		GeneratedAt: now,
	}
}
