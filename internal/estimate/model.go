// Package estimate turns measured volume and catalog tuning knobs into
// material mass and print time estimates.
package estimate

import (
	"strings"

	"printquote/internal/configstore"
	"printquote/pkg/units"
)

// Volume-factor clamp bounds. The infill/shell/support sum is a deliberately
// crude proxy for printed material fraction; the clamp keeps misconfigured
// settings from producing zero or over-100% results.
const (
	minVolumeFactor = 0.05
	maxVolumeFactor = 1.0
)

// Quality is a print quality tier.
type Quality string

const (
	QualityDraft  Quality = "draft"
	QualityNormal Quality = "normal"
	QualityFine   Quality = "fine"
)

// ParseQuality maps a caller-supplied tier string to a Quality. Matching is
// case-insensitive with surrounding whitespace trimmed; unrecognized tiers
// are treated as normal.
func ParseQuality(s string) Quality {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return QualityDraft
	case "fine":
		return QualityFine
	default:
		return QualityNormal
	}
}

// Multiplier returns the print-time multiplier for the tier.
func (q Quality) Multiplier() float64 {
	switch q {
	case QualityDraft:
		return 0.75
	case QualityFine:
		return 1.35
	default:
		return 1.0
	}
}

// Params are the estimation tuning knobs, read from catalog settings.
type Params struct {
	InfillFrac     float64
	ShellFrac      float64
	SupportFrac    float64
	MinutesPerCm3  float64
	FixedMinutes   float64
	MassMultiplier float64
}

// ParamsFromSettings reads tuning knobs with their calibration defaults.
func ParamsFromSettings(s configstore.Settings) Params {
	return Params{
		InfillFrac:     s.Float("estimate_infill_pct", 0.2),
		ShellFrac:      s.Float("estimate_shell_overhead", 0.18),
		SupportFrac:    s.Float("estimate_support_overhead", 0.05),
		MinutesPerCm3:  s.Float("estimate_time_min_per_cm3", 2.8),
		FixedMinutes:   s.Float("estimate_time_fixed_min", 12),
		MassMultiplier: s.Float("estimate_mass_multiplier", 1.0),
	}
}

// VolumeFactor returns the printed-material fraction, clamped into
// [0.05, 1.0].
func (p Params) VolumeFactor() float64 {
	return units.Clamp(p.InfillFrac+p.ShellFrac+p.SupportFrac, minVolumeFactor, maxVolumeFactor)
}

// Result is a mass and time estimate at full internal precision. Display
// rounding happens at the response edge only.
type Result struct {
	Grams   float64
	Minutes float64
}

// Estimate computes estimated mass and print time for a measured volume and
// material density.
func Estimate(volumeCm3, densityGCm3 float64, p Params, q Quality) Result {
	printedVolumeCm3 := volumeCm3 * p.VolumeFactor()
	return Result{
		Grams:   printedVolumeCm3 * densityGCm3 * p.MassMultiplier,
		Minutes: (p.FixedMinutes + volumeCm3*p.MinutesPerCm3) * q.Multiplier(),
	}
}
