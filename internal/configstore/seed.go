package configstore

// DefaultSnapshot returns the starter catalog installed when no canonical
// config file exists yet. Prices are per kilogram in whole currency units.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		Settings: Settings{
			"electricity_rate_per_kwh":  2000.0,
			"overhead_pct":              0.15,
			"coloring_cost_per_hour":    150000.0,
			"markup_pct":                0.2,
			"default_machine_id":        "ender3-v2",
			"estimate_infill_pct":       0.2,
			"estimate_shell_overhead":   0.18,
			"estimate_support_overhead": 0.05,
			"estimate_time_min_per_cm3": 2.8,
			"estimate_time_fixed_min":   12.0,
			"estimate_mass_multiplier":  1.0,
		},
		Materials: []Material{
			{
				ID:          "pla-white",
				Name:        "PLA",
				PricePerKg:  500000,
				WastePct:    0.1,
				DensityGCm3: 1.24,
				Color:       "White",
				Public:      Flex(true),
				Active:      Flex(true),
			},
			{
				ID:          "pla-black",
				Name:        "PLA",
				PricePerKg:  500000,
				WastePct:    0.1,
				DensityGCm3: 1.24,
				Color:       "Black",
				Public:      Flex(true),
				Active:      Flex(true),
			},
			{
				ID:          "petg-clear",
				Name:        "PETG",
				PricePerKg:  650000,
				WastePct:    0.12,
				DensityGCm3: 1.27,
				Color:       "Clear",
				Notes:       "Higher bed temperature; staff approval for large parts.",
				Public:      Flex(true),
				Active:      Flex(true),
			},
		},
		Machines: []Machine{
			{
				ID:             "ender3-v2",
				Name:           "Ender 3 V2",
				PowerW:         270,
				PurchasePrice:  30000000,
				LifeHours:      3000,
				MaintenancePct: 0.1,
				Active:         Flex(true),
			},
			{
				ID:             "prusa-mk4",
				Name:           "Prusa MK4",
				PowerW:         240,
				PurchasePrice:  65000000,
				LifeHours:      5000,
				MaintenancePct: 0.08,
				Active:         Flex(true),
			},
		},
	}
}
