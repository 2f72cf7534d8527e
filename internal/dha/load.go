package dha

import "math"

// BaseLoadProvider is the pluggable base-electrical-load source (§4.9):
// either a per-scenario scalar table or a standard-load-profile time
// series. Both return kW for a given building and hour index.
type BaseLoadProvider interface {
	BaseLoadKW(buildingID string, hour int) float64
}

// ScenarioTable is the simplest BaseLoadProvider: a flat per-building,
// per-hour kW table, auto-detected from a scenario JSON that may be
// authored in kW or MW (DetectAndNormalizeMagnitude handles the magnitude switch).
type ScenarioTable struct {
	kwByBuildingHour map[string][]float64
}

// NewScenarioTable wraps a pre-loaded building -> hourly kW series map.
func NewScenarioTable(kwByBuildingHour map[string][]float64) *ScenarioTable {
	return &ScenarioTable{kwByBuildingHour: kwByBuildingHour}
}

func (s *ScenarioTable) BaseLoadKW(buildingID string, hour int) float64 {
	series, ok := s.kwByBuildingHour[buildingID]
	if !ok || hour < 0 || hour >= len(series) {
		return 0
	}
	return series[hour]
}

// DetectAndNormalizeMagnitude rescales a raw scenario series to kW: if
// the maximum observed value across the series is implausibly small for
// kW (< 1.0, a hallmark of an MW-denominated table for building-scale
// loads), it is assumed to be MW and multiplied by 1000.
func DetectAndNormalizeMagnitude(series []float64) []float64 {
	max := 0.0
	for _, v := range series {
		if v > max {
			max = v
		}
	}
	if max > 0 && max < 1.0 {
		out := make([]float64, len(series))
		for i, v := range series {
			out[i] = v * 1000
		}
		return out
	}
	return series
}

// StandardLoadProfile is a BaseLoadProvider derived from building type
// and per-household/per-area yearly consumption, requiring a population
// table for household-count-weighted profiles (§4.9, the second pluggable
// base-load source).
type StandardLoadProfile struct {
	// NormalizedProfile is an 8760-length shape with values summing to 1,
	// shared across all buildings of the same class (the "standard load
	// profile" itself).
	NormalizedProfile []float64
	// AnnualKWhByBuilding is each building's yearly electricity
	// consumption, derived upstream from building type, floor area, and
	// the population table's per-household figure.
	AnnualKWhByBuilding map[string]float64
}

func (s *StandardLoadProfile) BaseLoadKW(buildingID string, hour int) float64 {
	if hour < 0 || hour >= len(s.NormalizedProfile) {
		return 0
	}
	annual := s.AnnualKWhByBuilding[buildingID]
	return annual * s.NormalizedProfile[hour]
}

// HeatDemandProvider supplies each building's hourly thermal demand
// (kW), the upstream hourly profile matrix consumed as a two-dimensional
// table (§1 scope note).
type HeatDemandProvider interface {
	HeatKW(buildingID string, hour int) float64
}

// BuildingLoad is one building's composed electrical load at one hour.
type BuildingLoad struct {
	BuildingID string
	ActiveKW   float64
	ReactiveKVAR float64
}

// ComposeHour computes P_total(b,h) = P_base(b,h) + Q_heat(b,h)/COP for
// every mapped building at hour h, applying a single power factor to
// derive reactive power (§4.9). Unmapped buildings are excluded by the
// caller passing only mapped building ids.
func ComposeHour(
	buildingIDs []string,
	hour int,
	base BaseLoadProvider,
	heat HeatDemandProvider,
	copValue float64,
	powerFactor float64,
) []BuildingLoad {
	out := make([]BuildingLoad, 0, len(buildingIDs))
	tanPhi := reactiveRatio(powerFactor)
	for _, id := range buildingIDs {
		p := base.BaseLoadKW(id, hour)
		if copValue > 0 {
			p += heat.HeatKW(id, hour) / copValue
		}
		out = append(out, BuildingLoad{BuildingID: id, ActiveKW: p, ReactiveKVAR: p * tanPhi})
	}
	return out
}

func reactiveRatio(powerFactor float64) float64 {
	if powerFactor <= 0 || powerFactor > 1 {
		powerFactor = 0.95
	}
	phi := math.Acos(powerFactor)
	return math.Tan(phi)
}

// AggregatePerBus sums composed building loads by their mapped bus.
func AggregatePerBus(loads []BuildingLoad, mapping []BusMapping) map[string]BuildingLoad {
	busOf := make(map[string]string, len(mapping))
	for _, m := range mapping {
		if !m.Unmapped {
			busOf[m.BuildingID] = m.BusID
		}
	}
	agg := make(map[string]BuildingLoad)
	for _, l := range loads {
		busID, ok := busOf[l.BuildingID]
		if !ok {
			continue
		}
		cur := agg[busID]
		cur.BuildingID = busID
		cur.ActiveKW += l.ActiveKW
		cur.ReactiveKVAR += l.ReactiveKVAR
		agg[busID] = cur
	}
	return agg
}
