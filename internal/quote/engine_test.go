package quote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printquote/internal/configstore"
	perrors "printquote/pkg/errors"
)

func testSnapshot() *configstore.Snapshot {
	snap := &configstore.Snapshot{
		Settings: configstore.Settings{
			"electricity_rate_per_kwh": 2000.0,
			"overhead_pct":             0.15,
			"coloring_cost_per_hour":   150000.0,
			"markup_pct":               0.2,
			"default_machine_id":       "m1",
		},
		Materials: []configstore.Material{
			{ID: "mat1", Name: "PLA", PricePerKg: 500000, WastePct: 0.1},
			{ID: "hidden", Name: "Retired", PricePerKg: 400000, Active: configstore.Flex(false)},
		},
		Machines: []configstore.Machine{
			{ID: "m1", Name: "Printer A", PowerW: 500, PurchasePrice: 30000000, LifeHours: 3000, MaintenancePct: 0.1},
			{ID: "m2", Name: "Printer B", PowerW: 1000, PurchasePrice: 60000000, LifeHours: 3000, MaintenancePct: 0.1},
		},
	}
	snap.Normalize()
	return snap
}

func eq(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}

func TestComputeItemizedBreakdown(t *testing.T) {
	req := Request{
		MaterialID:          "mat1",
		MachineID:           "m1",
		Qty:                 2,
		GramsPerItem:        100,
		MinutesPerItem:      60,
		PostProHoursPerItem: 0.5,
		Extras:              10000,
	}

	got, err := Compute(req, testSnapshot())
	require.NoError(t, err)

	// material: 2 * (100*1.1/1000) * 500000
	eq(t, 110000, got.Material)
	// power: 2 * 0.5kW * 1h * 2000
	eq(t, 2000, got.Power)
	// depreciation: 2 * 1h * (30000000/3000)
	eq(t, 20000, got.Depreciation)
	// maintenance: 10% of depreciation
	eq(t, 2000, got.Maintenance)
	// coloring: 2 * 0.5h * 150000
	eq(t, 150000, got.Labor)
	// overhead: 15% of 284000
	eq(t, 42600, got.Overhead)
	eq(t, 10000, got.Extras)
	// total: (284000 + 42600 + 10000) * 1.2
	eq(t, 403920, got.Total)
}

func TestComputeIsDeterministic(t *testing.T) {
	req := Request{MaterialID: "mat1", MachineID: "m1", Qty: 3, GramsPerItem: 37.7, MinutesPerItem: 91, Extras: 123.45}
	snap := testSnapshot()

	first, err := Compute(req, snap)
	require.NoError(t, err)
	second, err := Compute(req, snap)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeRoundsTermsToEven(t *testing.T) {
	snap := testSnapshot()
	snap.Settings["markup_pct"] = 0.0
	snap.Settings["overhead_pct"] = 0.0

	// extras of 2.5 and 3.5 both round to even
	req := Request{MaterialID: "mat1", MachineID: "m1", Qty: 1, Extras: 2.5}
	got, err := Compute(req, snap)
	require.NoError(t, err)
	eq(t, 2, got.Extras)

	req.Extras = 3.5
	got, err = Compute(req, snap)
	require.NoError(t, err)
	eq(t, 4, got.Extras)
}

func TestComputeZeroLifeHoursAmortizesToZero(t *testing.T) {
	snap := testSnapshot()
	snap.Machines[0].LifeHours = 0

	req := Request{MaterialID: "mat1", MachineID: "m1", Qty: 1, MinutesPerItem: 60}
	got, err := Compute(req, snap)
	require.NoError(t, err)
	eq(t, 0, got.Depreciation)
	eq(t, 0, got.Maintenance)
}

func TestComputeUnknownIDs(t *testing.T) {
	snap := testSnapshot()

	_, err := Compute(Request{MaterialID: "nope", MachineID: "m1", Qty: 1}, snap)
	assert.True(t, perrors.IsCode(err, perrors.ErrCodeUnknownMaterial))

	_, err = Compute(Request{MaterialID: "mat1", MachineID: "nope", Qty: 1}, snap)
	assert.True(t, perrors.IsCode(err, perrors.ErrCodeUnknownMachine))

	// Inactive materials are invisible to pricing.
	_, err = Compute(Request{MaterialID: "hidden", MachineID: "m1", Qty: 1}, snap)
	assert.True(t, perrors.IsCode(err, perrors.ErrCodeUnknownMaterial))
}

func TestComputeValidation(t *testing.T) {
	snap := testSnapshot()
	cases := []Request{
		{MaterialID: "mat1", MachineID: "m1", Qty: 0},
		{MaterialID: "mat1", MachineID: "m1", Qty: 1, GramsPerItem: -1},
		{MaterialID: "mat1", MachineID: "m1", Qty: 1, MinutesPerItem: -1},
		{MaterialID: "mat1", MachineID: "m1", Qty: 1, PostProHoursPerItem: -0.1},
		{MaterialID: "mat1", MachineID: "m1", Qty: 1, Extras: -5},
	}
	for _, req := range cases {
		_, err := Compute(req, snap)
		assert.True(t, perrors.IsCode(err, perrors.ErrCodeInvalidInput), "request %+v", req)
	}
}

func TestComputePublicPinsDefaultMachine(t *testing.T) {
	snap := testSnapshot()
	req := Request{MaterialID: "mat1", MachineID: "m2", Qty: 1, GramsPerItem: 50, MinutesPerItem: 120}

	public, err := ComputePublic(req, snap)
	require.NoError(t, err)

	req.MachineID = "m1"
	pinned, err := Compute(req, snap)
	require.NoError(t, err)
	assert.Equal(t, pinned, public)
}

func TestComputePublicNoActiveMachine(t *testing.T) {
	snap := testSnapshot()
	for i := range snap.Machines {
		snap.Machines[i].Active = configstore.Flex(false)
	}

	_, err := ComputePublic(Request{MaterialID: "mat1", Qty: 1}, snap)
	assert.True(t, perrors.IsCode(err, perrors.ErrCodeUnknownMachine))
}
