// Package catalog holds the static lookup tables pipe sizing and LV line
// construction draw from: DN/diameter/roughness/cost rows for pipes and
// electrical parameter rows for cables. These tables are read-only and
// immutable for the lifetime of a process (§5). WarmCache (rediscache.go)
// is an optional Redis read-through cache keyed by string; the catalog
// constructors here do not go through it, and the in-process table
// remains the single authoritative copy.
package catalog

import "sort"

// PipeRow is one catalog entry: a nominal diameter and its physical and
// cost parameters.
type PipeRow struct {
	DN              string
	InnerDiameterM  float64
	RoughnessMM     float64
	CostEURPerMeter float64
}

// CableRow is one LV line catalog entry.
type CableRow struct {
	Name           string
	ROhmPerKm      float64
	XOhmPerKm      float64
	CNFPerKm       float64
	MaxCurrentKA   float64
	CostEURPerMeter float64
}

// PipeCatalog is sorted ascending by InnerDiameterM so DN selection can
// scan forward for "smallest DN with inner_diameter >= required".
type PipeCatalog struct {
	rows []PipeRow
}

// DefaultPipeCatalog returns the standard steel district-heating pipe
// series used absent an explicit override table.
func DefaultPipeCatalog() *PipeCatalog {
	rows := []PipeRow{
		{DN: "DN25", InnerDiameterM: 0.0289, RoughnessMM: 0.1, CostEURPerMeter: 120},
		{DN: "DN32", InnerDiameterM: 0.0372, RoughnessMM: 0.1, CostEURPerMeter: 140},
		{DN: "DN40", InnerDiameterM: 0.0430, RoughnessMM: 0.1, CostEURPerMeter: 160},
		{DN: "DN50", InnerDiameterM: 0.0545, RoughnessMM: 0.1, CostEURPerMeter: 190},
		{DN: "DN65", InnerDiameterM: 0.0703, RoughnessMM: 0.1, CostEURPerMeter: 230},
		{DN: "DN80", InnerDiameterM: 0.0825, RoughnessMM: 0.1, CostEURPerMeter: 270},
		{DN: "DN100", InnerDiameterM: 0.1071, RoughnessMM: 0.1, CostEURPerMeter: 340},
		{DN: "DN125", InnerDiameterM: 0.1325, RoughnessMM: 0.1, CostEURPerMeter: 420},
		{DN: "DN150", InnerDiameterM: 0.1603, RoughnessMM: 0.1, CostEURPerMeter: 510},
		{DN: "DN200", InnerDiameterM: 0.2101, RoughnessMM: 0.1, CostEURPerMeter: 680},
		{DN: "DN250", InnerDiameterM: 0.2630, RoughnessMM: 0.1, CostEURPerMeter: 860},
		{DN: "DN300", InnerDiameterM: 0.3127, RoughnessMM: 0.1, CostEURPerMeter: 1050},
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].InnerDiameterM < rows[j].InnerDiameterM })
	return &PipeCatalog{rows: rows}
}

// SelectDN returns the smallest catalog row whose inner diameter is at
// least dReqM, and ok=false if the catalog is exhausted (caller keeps the
// largest DN and flags the sizing violation per §4.4).
func (c *PipeCatalog) SelectDN(dReqM float64) (PipeRow, bool) {
	for _, r := range c.rows {
		if r.InnerDiameterM >= dReqM {
			return r, true
		}
	}
	return c.rows[len(c.rows)-1], false
}

// Largest returns the catalog's biggest pipe, used by pipe sizing on the
// "catalog exhausted" path.
func (c *PipeCatalog) Largest() PipeRow { return c.rows[len(c.rows)-1] }

// Row finds a row by DN label, used when a pipe's DN is already known
// (e.g. looking up its cost per meter in run-economics).
func (c *PipeCatalog) Row(dn string) (PipeRow, bool) {
	for _, r := range c.rows {
		if r.DN == dn {
			return r, true
		}
	}
	return PipeRow{}, false
}

// CableCatalog holds the LV line electrical-parameter series.
type CableCatalog struct {
	rows []CableRow
}

// DefaultCableCatalog returns a standard NAYY-style low-voltage cable
// series used absent an explicit catalog override.
func DefaultCableCatalog() *CableCatalog {
	return &CableCatalog{rows: []CableRow{
		{Name: "NAYY 4x50", ROhmPerKm: 0.641, XOhmPerKm: 0.083, CNFPerKm: 210, MaxCurrentKA: 0.142, CostEURPerMeter: 18},
		{Name: "NAYY 4x95", ROhmPerKm: 0.320, XOhmPerKm: 0.080, CNFPerKm: 260, MaxCurrentKA: 0.221, CostEURPerMeter: 28},
		{Name: "NAYY 4x150", ROhmPerKm: 0.206, XOhmPerKm: 0.078, CNFPerKm: 290, MaxCurrentKA: 0.270, CostEURPerMeter: 38},
		{Name: "NAYY 4x240", ROhmPerKm: 0.125, XOhmPerKm: 0.075, CNFPerKm: 330, MaxCurrentKA: 0.359, CostEURPerMeter: 52},
	}}
}

// Default returns the default cable row used when a legacy grid
// description omits line parameters.
func (c *CableCatalog) Default() CableRow { return c.rows[0] }

// Row finds a cable row by name.
func (c *CableCatalog) Row(name string) (CableRow, bool) {
	for _, r := range c.rows {
		if r.Name == name {
			return r, true
		}
	}
	return CableRow{}, false
}
