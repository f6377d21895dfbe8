package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"printquote/internal/configstore"
)

func TestParseQuality(t *testing.T) {
	assert.Equal(t, QualityDraft, ParseQuality("draft"))
	assert.Equal(t, QualityFine, ParseQuality("  FINE "))
	assert.Equal(t, QualityNormal, ParseQuality("normal"))
	assert.Equal(t, QualityNormal, ParseQuality("ultra")) // unrecognized
	assert.Equal(t, QualityNormal, ParseQuality(""))
}

func TestQualityMultipliers(t *testing.T) {
	assert.Equal(t, 0.75, QualityDraft.Multiplier())
	assert.Equal(t, 1.0, QualityNormal.Multiplier())
	assert.Equal(t, 1.35, QualityFine.Multiplier())
}

func TestParamsFromSettingsDefaults(t *testing.T) {
	p := ParamsFromSettings(configstore.Settings{})
	assert.Equal(t, 0.2, p.InfillFrac)
	assert.Equal(t, 0.18, p.ShellFrac)
	assert.Equal(t, 0.05, p.SupportFrac)
	assert.Equal(t, 2.8, p.MinutesPerCm3)
	assert.Equal(t, 12.0, p.FixedMinutes)
	assert.Equal(t, 1.0, p.MassMultiplier)
	assert.InDelta(t, 0.43, p.VolumeFactor(), 1e-12)
}

func TestVolumeFactorClamp(t *testing.T) {
	low := Params{InfillFrac: 0.01}
	assert.Equal(t, 0.05, low.VolumeFactor())

	high := Params{InfillFrac: 0.9, ShellFrac: 0.5, SupportFrac: 0.3}
	assert.Equal(t, 1.0, high.VolumeFactor())
}

func TestEstimate(t *testing.T) {
	p := ParamsFromSettings(configstore.Settings{})

	// 10 cm³ at PLA density: 10 * 0.43 * 1.24 = 5.332 g,
	// 12 + 10*2.8 = 40 min at normal quality.
	got := Estimate(10, 1.24, p, QualityNormal)
	assert.InDelta(t, 5.332, got.Grams, 1e-9)
	assert.InDelta(t, 40.0, got.Minutes, 1e-9)

	// Quality scales time only.
	draft := Estimate(10, 1.24, p, QualityDraft)
	assert.InDelta(t, got.Grams, draft.Grams, 1e-9)
	assert.InDelta(t, 30.0, draft.Minutes, 1e-9)

	fine := Estimate(10, 1.24, p, QualityFine)
	assert.InDelta(t, 54.0, fine.Minutes, 1e-9)
}

func TestEstimateMassMultiplier(t *testing.T) {
	p := ParamsFromSettings(configstore.Settings{"estimate_mass_multiplier": 1.1})
	got := Estimate(10, 1.24, p, QualityNormal)
	assert.InDelta(t, 5.332*1.1, got.Grams, 1e-9)
}
