// Package configstore holds the durable, audited catalog of settings,
// materials, and machines consumed by the estimation and quoting engines.
package configstore

import (
	"encoding/json"
	"strconv"
	"strings"

	perrors "printquote/pkg/errors"
)

// DefaultDensityGCm3 is the fallback material density (PLA-like).
const DefaultDensityGCm3 = 1.24

// FlexBool is a boolean that tolerates legacy encodings: JSON booleans,
// numeric 0/1, and the strings yes/no/on/off/true/false/1/0 in any case.
// Unrecognized or missing values resolve to a per-field default at
// normalization time.
type FlexBool struct {
	value bool
	known bool
}

// Flex wraps a plain bool.
func Flex(v bool) FlexBool {
	return FlexBool{value: v, known: true}
}

// Or returns the parsed value, or def when the raw encoding was unrecognized.
func (b FlexBool) Or(def bool) bool {
	if b.known {
		return b.value
	}
	return def
}

// MarshalJSON always emits a plain JSON boolean, normalizing legacy forms.
func (b FlexBool) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatBool(b.value)), nil
}

// UnmarshalJSON never fails; unrecognized values are recorded as unknown.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*b = FlexBool{}
		return nil
	}
	switch v := raw.(type) {
	case bool:
		*b = Flex(v)
	case float64:
		if v == 0 {
			*b = Flex(false)
		} else if v == 1 {
			*b = Flex(true)
		} else {
			*b = FlexBool{}
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			*b = Flex(true)
		case "false", "no", "off", "0":
			*b = Flex(false)
		default:
			*b = FlexBool{}
		}
	default:
		*b = FlexBool{}
	}
	return nil
}

// Settings is a free-form mapping of tuning knobs. Known keys include
// electricity_rate_per_kwh, overhead_pct, coloring_cost_per_hour, markup_pct,
// default_machine_id, and the estimate_* calibration values.
type Settings map[string]any

// Float reads a numeric setting, accepting JSON numbers and numeric strings.
func (s Settings) Float(key string, def float64) float64 {
	raw, ok := s[key]
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// String reads a string setting.
func (s Settings) String(key, def string) string {
	if v, ok := s[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Material is one catalog material. Materials are immutable between snapshots
// and replaced wholesale on admin writes.
type Material struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PricePerKg  float64  `json:"price_per_kg"`
	WastePct    float64  `json:"waste_pct"`
	DensityGCm3 float64  `json:"density_g_cm3,omitempty"`
	Color       string   `json:"color,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Public      FlexBool `json:"public"`
	Active      FlexBool `json:"active"`
}

// Density returns the material density, falling back to the PLA-like default.
func (m Material) Density() float64 {
	if m.DensityGCm3 > 0 {
		return m.DensityGCm3
	}
	return DefaultDensityGCm3
}

// Machine is one catalog printer.
type Machine struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	PowerW         float64  `json:"power_w"`
	PurchasePrice  float64  `json:"purchase_price"`
	LifeHours      float64  `json:"life_hours"`
	MaintenancePct float64  `json:"maintenance_pct"`
	Active         FlexBool `json:"active"`
}

// Snapshot is one immutable, fully-validated generation of the catalog.
// It is the unit of atomicity for persistence.
type Snapshot struct {
	Settings  Settings   `json:"settings"`
	Materials []Material `json:"materials"`
	Machines  []Machine  `json:"machines"`
}

// Validate checks identifier uniqueness across materials and machines.
func (s *Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Materials))
	for _, m := range s.Materials {
		if m.ID == "" {
			return perrors.New(perrors.ErrCodeDuplicateID, "material with empty id")
		}
		if _, dup := seen[m.ID]; dup {
			return perrors.Newf(perrors.ErrCodeDuplicateID, "duplicate material id: %s", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	seen = make(map[string]struct{}, len(s.Machines))
	for _, m := range s.Machines {
		if m.ID == "" {
			return perrors.New(perrors.ErrCodeDuplicateID, "machine with empty id")
		}
		if _, dup := seen[m.ID]; dup {
			return perrors.Newf(perrors.ErrCodeDuplicateID, "duplicate machine id: %s", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// Normalize resolves legacy boolean encodings to their per-field defaults.
// Materials default to public and active; machines default to active.
func (s *Snapshot) Normalize() {
	if s.Settings == nil {
		s.Settings = Settings{}
	}
	for i := range s.Materials {
		s.Materials[i].Public = Flex(s.Materials[i].Public.Or(true))
		s.Materials[i].Active = Flex(s.Materials[i].Active.Or(true))
	}
	for i := range s.Machines {
		s.Machines[i].Active = Flex(s.Machines[i].Active.Or(true))
	}
}

// MaterialByID looks up an active material.
func (s *Snapshot) MaterialByID(id string) (Material, bool) {
	for _, m := range s.Materials {
		if m.ID == id && m.Active.Or(true) {
			return m, true
		}
	}
	return Material{}, false
}

// MachineByID looks up an active machine.
func (s *Snapshot) MachineByID(id string) (Machine, bool) {
	for _, m := range s.Machines {
		if m.ID == id && m.Active.Or(true) {
			return m, true
		}
	}
	return Machine{}, false
}

// ActiveMaterials returns all active materials in catalog order.
func (s *Snapshot) ActiveMaterials() []Material {
	out := make([]Material, 0, len(s.Materials))
	for _, m := range s.Materials {
		if m.Active.Or(true) {
			out = append(out, m)
		}
	}
	return out
}

// PublicMaterials returns active materials visible to anonymous customers.
func (s *Snapshot) PublicMaterials() []Material {
	out := make([]Material, 0, len(s.Materials))
	for _, m := range s.Materials {
		if m.Active.Or(true) && m.Public.Or(true) {
			out = append(out, m)
		}
	}
	return out
}

// ActiveMachines returns all active machines in catalog order.
func (s *Snapshot) ActiveMachines() []Machine {
	out := make([]Machine, 0, len(s.Machines))
	for _, m := range s.Machines {
		if m.Active.Or(true) {
			out = append(out, m)
		}
	}
	return out
}

// DefaultMachineID resolves the machine pinned by the public pricing path:
// the default_machine_id setting when it names an active machine, otherwise
// the first active machine in the catalog.
func (s *Snapshot) DefaultMachineID() string {
	if id := s.Settings.String("default_machine_id", ""); id != "" {
		if _, ok := s.MachineByID(id); ok {
			return id
		}
	}
	for _, m := range s.Machines {
		if m.Active.Or(true) {
			return m.ID
		}
	}
	return ""
}
