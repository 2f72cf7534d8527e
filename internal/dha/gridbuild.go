package dha

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvlath/core"

	"github.com/muniheat/dhcore/internal/catalog"
	"github.com/muniheat/dhcore/internal/errs"
)

// RawLine is one input line-and-substation table row before endpoint
// collapsing (§4.7).
type RawLine struct {
	ID           string
	FromX, FromY float64
	ToX, ToY     float64
	CableName    string // empty uses the catalog default
}

// RawTransformer is one input substation row.
type RawTransformer struct {
	ID       string
	HVBusID  string
	LVBusX   float64
	LVBusY   float64
	RatedMVA float64
}

// Build constructs the Option-2 LV grid: exactly one MV slack, at least
// one transformer from it to an LV bus, endpoints within 1 m collapsed
// into one bus (§4.7). mvSlackID names the single MV slack bus.
func Build(
	mvSlackID string,
	lines []RawLine,
	transformers []RawTransformer,
	cableCat *catalog.CableCatalog,
) (*Grid, error) {
	g := &Grid{}
	busID := func(x, y float64) string {
		return fmt.Sprintf("b_%.1f_%.1f", math.Round(x), math.Round(y))
	}
	seen := make(map[string]bool)
	addBus := func(id string, x, y float64, kind BusKind) {
		if seen[id] {
			return
		}
		seen[id] = true
		nominal := 0.4
		if kind == BusKindMVSlack {
			nominal = 20.0
		}
		g.Buses = append(g.Buses, Bus{ID: id, NominalKV: nominal, X: x, Y: y, Kind: kind})
	}

	addBus(mvSlackID, 0, 0, BusKindMVSlack)

	if len(transformers) == 0 {
		return nil, fmt.Errorf("%w: at least one transformer required from MV slack %s", errs.ErrBoundaryViolation, mvSlackID)
	}
	for _, t := range transformers {
		lvID := busID(t.LVBusX, t.LVBusY)
		addBus(lvID, t.LVBusX, t.LVBusY, BusKindTransformerLVSide)
		g.Transformers = append(g.Transformers, Transformer{
			ID: t.ID, HVBus: mvSlackID, LVBus: lvID, RatedMVA: t.RatedMVA,
			ShortCircuitPct: 6.0, ResistiveLossPct: 1.0, TapPosition: 0, TapRange: [2]int{-2, 2},
		})
	}

	for _, l := range lines {
		fromID, toID := busID(l.FromX, l.FromY), busID(l.ToX, l.ToY)
		addBus(fromID, l.FromX, l.FromY, BusKindLVNode)
		addBus(toID, l.ToX, l.ToY, BusKindLVNode)
		row := cableCat.Default()
		if l.CableName != "" {
			if r, ok := cableCat.Row(l.CableName); ok {
				row = r
			}
		}
		lengthKm := math.Hypot(l.ToX-l.FromX, l.ToY-l.FromY) / 1000.0
		g.Lines = append(g.Lines, Line{
			ID: l.ID, FromBus: fromID, ToBus: toID, LengthKm: lengthKm,
			ROhmPerKm: row.ROhmPerKm, XOhmPerKm: row.XOhmPerKm, CNFPerKm: row.CNFPerKm,
			MaxCurrentKA: row.MaxCurrentKA,
		})
	}

	if err := validateBoundary(g); err != nil {
		return nil, err
	}
	if err := validateSupplied(g); err != nil {
		return nil, err
	}
	return g, nil
}

func validateBoundary(g *Grid) error {
	slackCount := 0
	for _, b := range g.Buses {
		if b.Kind == BusKindMVSlack {
			slackCount++
		}
	}
	if slackCount != 1 {
		return fmt.Errorf("%w: expected exactly one MV slack, found %d", errs.ErrBoundaryViolation, slackCount)
	}
	if len(g.Transformers) == 0 {
		return fmt.Errorf("%w: no transformers from MV slack", errs.ErrBoundaryViolation)
	}
	return nil
}

// validateSupplied checks every LV bus can reach some transformer's LV
// side in the undirected line graph, using an lvlath core.Graph purely
// for connectivity (weights unused).
func validateSupplied(g *Grid) error {
	cg := core.NewGraph(false, false)
	for _, b := range g.Buses {
		cg.AddVertex(&core.Vertex{ID: b.ID, Metadata: map[string]interface{}{}})
	}
	for _, l := range g.Lines {
		cg.AddEdge(l.FromBus, l.ToBus, 1)
	}
	for _, t := range g.Transformers {
		cg.AddEdge(t.HVBus, t.LVBus, 1)
	}

	reachable := make(map[string]bool)
	var queue []string
	for _, t := range g.Transformers {
		if !reachable[t.LVBus] {
			reachable[t.LVBus] = true
			queue = append(queue, t.LVBus)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range cg.Neighbors(cur) {
			if !reachable[n.ID] {
				reachable[n.ID] = true
				queue = append(queue, n.ID)
			}
		}
	}

	var unsupplied []string
	for _, b := range g.Buses {
		if b.Kind == BusKindMVSlack {
			continue
		}
		if !reachable[b.ID] {
			unsupplied = append(unsupplied, b.ID)
		}
	}
	if len(unsupplied) > 0 {
		return fmt.Errorf("%w: %v", errs.ErrUnsuppliedBuses, unsupplied)
	}
	return nil
}
