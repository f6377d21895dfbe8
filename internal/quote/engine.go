// Package quote computes itemized monetary quotes from order parameters and
// the current catalog snapshot.
package quote

import (
	"github.com/shopspring/decimal"

	"printquote/internal/configstore"
	perrors "printquote/pkg/errors"
)

// Request holds per-order quote parameters. Grams, minutes, and
// post-processing hours are per item; extras apply to the whole order.
type Request struct {
	MaterialID          string
	MachineID           string
	Qty                 int
	GramsPerItem        float64
	MinutesPerItem      float64
	PostProHoursPerItem float64
	Extras              float64
}

// Breakdown is the itemized quote. Every term, including extras and the
// total, is rounded independently to the nearest whole monetary unit, so the
// total may differ by ±1 from the sum of the rounded line items. That is
// deliberate: rounding is per-term, not applied once to a pre-rounded sum.
type Breakdown struct {
	Material     decimal.Decimal `json:"material_t"`
	Power        decimal.Decimal `json:"power_t"`
	Depreciation decimal.Decimal `json:"depreciation_t"`
	Maintenance  decimal.Decimal `json:"maintenance_t"`
	Labor        decimal.Decimal `json:"coloring_t"`
	Overhead     decimal.Decimal `json:"overhead_t"`
	Extras       decimal.Decimal `json:"extras"`
	Total        decimal.Decimal `json:"total"`
}

var (
	one      = decimal.NewFromInt(1)
	sixty    = decimal.NewFromInt(60)
	thousand = decimal.NewFromInt(1000)
)

// Compute produces a quote against the given snapshot, accepting any active
// machine id. This is the staff pricing path.
func Compute(req Request, snap *configstore.Snapshot) (*Breakdown, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	mat, ok := snap.MaterialByID(req.MaterialID)
	if !ok {
		return nil, perrors.Newf(perrors.ErrCodeUnknownMaterial, "unknown material_id: %s", req.MaterialID)
	}
	mc, ok := snap.MachineByID(req.MachineID)
	if !ok {
		return nil, perrors.Newf(perrors.ErrCodeUnknownMachine, "unknown machine_id: %s", req.MachineID)
	}

	qty := decimal.NewFromInt(int64(req.Qty))
	hours := decimal.NewFromFloat(req.MinutesPerItem).Div(sixty)

	// Material, with waste fraction
	effectiveGrams := decimal.NewFromFloat(req.GramsPerItem).Mul(one.Add(decimal.NewFromFloat(mat.WastePct)))
	material := qty.Mul(effectiveGrams.Div(thousand)).Mul(decimal.NewFromFloat(mat.PricePerKg))

	// Power
	electricityRate := decimal.NewFromFloat(snap.Settings.Float("electricity_rate_per_kwh", 0))
	power := qty.Mul(decimal.NewFromFloat(mc.PowerW).Div(thousand)).Mul(hours).Mul(electricityRate)

	// Depreciation and maintenance; a non-positive rated lifetime amortizes
	// to zero instead of dividing by it.
	ratePerHour := decimal.Zero
	if mc.LifeHours > 0 {
		ratePerHour = decimal.NewFromFloat(mc.PurchasePrice).Div(decimal.NewFromFloat(mc.LifeHours))
	}
	depreciation := qty.Mul(hours).Mul(ratePerHour)
	maintenance := depreciation.Mul(decimal.NewFromFloat(mc.MaintenancePct))

	// Coloring / post-processing labor
	coloringRate := decimal.NewFromFloat(snap.Settings.Float("coloring_cost_per_hour", 0))
	labor := qty.Mul(decimal.NewFromFloat(req.PostProHoursPerItem)).Mul(coloringRate)

	base := material.Add(power).Add(depreciation).Add(maintenance).Add(labor)
	overhead := decimal.NewFromFloat(snap.Settings.Float("overhead_pct", 0)).Mul(base)

	extras := decimal.NewFromFloat(req.Extras)
	subtotal := base.Add(overhead).Add(extras)
	total := subtotal.Mul(one.Add(decimal.NewFromFloat(snap.Settings.Float("markup_pct", 0))))

	return &Breakdown{
		Material:     r0(material),
		Power:        r0(power),
		Depreciation: r0(depreciation),
		Maintenance:  r0(maintenance),
		Labor:        r0(labor),
		Overhead:     r0(overhead),
		Extras:       r0(extras),
		Total:        r0(total),
	}, nil
}

// ComputePublic is the restricted pricing path for anonymous customers: the
// machine is pinned to the snapshot's default regardless of caller input.
func ComputePublic(req Request, snap *configstore.Snapshot) (*Breakdown, error) {
	req.MachineID = snap.DefaultMachineID()
	if req.MachineID == "" {
		return nil, perrors.New(perrors.ErrCodeUnknownMachine, "no active machine configured")
	}
	return Compute(req, snap)
}

func validate(req Request) error {
	switch {
	case req.Qty < 1:
		return perrors.New(perrors.ErrCodeInvalidInput, "qty must be >= 1")
	case req.GramsPerItem < 0:
		return perrors.New(perrors.ErrCodeInvalidInput, "filament_grams must be >= 0")
	case req.MinutesPerItem < 0:
		return perrors.New(perrors.ErrCodeInvalidInput, "print_time_minutes must be >= 0")
	case req.PostProHoursPerItem < 0:
		return perrors.New(perrors.ErrCodeInvalidInput, "post_pro_hours must be >= 0")
	case req.Extras < 0:
		return perrors.New(perrors.ErrCodeInvalidInput, "extras must be >= 0")
	}
	return nil
}

// r0 rounds to whole monetary units, ties to even.
func r0(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(0)
}
