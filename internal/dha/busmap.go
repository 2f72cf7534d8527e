package dha

import "math"

const DefaultUnmappedThresholdM = 1000.0

// BuildingPoint is the subset of a building this package needs for
// nearest-bus mapping.
type BuildingPoint struct {
	ID   string
	X, Y float64
}

// BusMapping records which bus a building maps to, or that it is
// unmapped because every bus exceeds the distance threshold (§4.8).
type BusMapping struct {
	BuildingID string
	BusID      string
	DistanceM  float64
	Unmapped   bool
}

// MapBuildings maps each building centroid to its nearest LV bus in
// projected coordinates. Buildings beyond thresholdM are flagged
// unmapped; their load is dropped at the load-composition stage, not
// here. Multiple buildings may share a bus.
func MapBuildings(g *Grid, buildings []BuildingPoint, thresholdM float64) []BusMapping {
	if thresholdM <= 0 {
		thresholdM = DefaultUnmappedThresholdM
	}
	out := make([]BusMapping, 0, len(buildings))
	for _, b := range buildings {
		bestID := ""
		bestD := math.Inf(1)
		for _, bus := range g.Buses {
			if bus.Kind == BusKindMVSlack {
				continue
			}
			d := math.Hypot(bus.X-b.X, bus.Y-b.Y)
			if d < bestD {
				bestD, bestID = d, bus.ID
			}
		}
		m := BusMapping{BuildingID: b.ID, BusID: bestID, DistanceM: bestD}
		if bestID == "" || bestD > thresholdM {
			m.Unmapped = true
		}
		out = append(out, m)
	}
	return out
}
