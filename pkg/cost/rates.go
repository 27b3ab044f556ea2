// Package cost implements the deterministic CNC machining cost model.
package cost

import "sort"

// Material names of the built-in rate table
const (
	Aluminum6061      = "Aluminum 6061"
	Steel1018         = "Steel 1018"
	StainlessSteel304 = "Stainless Steel 304"
	TitaniumGrade5    = "Titanium Grade 5"
	Brass             = "Brass"
	PlasticABS        = "Plastic (ABS)"
)

// DefaultMaterial is used when a request names no material
const DefaultMaterial = Aluminum6061

// DefaultRate applies to materials missing from the table
const DefaultRate = 0.15

// Rates maps a material name to its cost per cm³
type Rates map[string]float64

// DefaultRates returns a fresh copy of the built-in rate table
func DefaultRates() Rates {
	return Rates{
		Aluminum6061:      0.15,
		Steel1018:         0.12,
		StainlessSteel304: 0.25,
		TitaniumGrade5:    1.50,
		Brass:             0.20,
		PlasticABS:        0.05,
	}
}

// Rate returns the rate for a material and whether it is known. Unknown
// materials get DefaultRate.
func (r Rates) Rate(material string) (float64, bool) {
	rate, ok := r[material]
	if !ok {
		return DefaultRate, false
	}
	return rate, true
}

// Merge returns a new table with the overrides applied on top of r
func (r Rates) Merge(overrides map[string]float64) Rates {
	merged := make(Rates, len(r)+len(overrides))
	for name, rate := range r {
		merged[name] = rate
	}
	for name, rate := range overrides {
		merged[name] = rate
	}
	return merged
}

// Names returns the material names in sorted order
func (r Rates) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
