package dha

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/muniheat/dhcore/internal/catalog"
)

func smallGrid(t *testing.T) *Grid {
	t.Helper()
	cat := catalog.DefaultCableCatalog()
	lines := []RawLine{
		{ID: "l1", FromX: 0, FromY: 0, ToX: 100, ToY: 0},
		{ID: "l2", FromX: 100, FromY: 0, ToX: 200, ToY: 0},
	}
	trafos := []RawTransformer{
		{ID: "t1", HVBusID: "mv1", LVBusX: 0, LVBusY: 0, RatedMVA: 0.4},
	}
	g, err := Build("mv1", lines, trafos, cat)
	require.NoError(t, err)
	return g
}

func TestBuildRejectsMissingTransformer(t *testing.T) {
	cat := catalog.DefaultCableCatalog()
	_, err := Build("mv1", nil, nil, cat)
	require.Error(t, err)
}

func TestBuildSuppliesEveryBus(t *testing.T) {
	g := smallGrid(t)
	require.NotEmpty(t, g.Buses)
	require.Len(t, g.Transformers, 1)
}

func TestMapBuildingsFlagsUnmapped(t *testing.T) {
	g := smallGrid(t)
	buildings := []BuildingPoint{
		{ID: "near", X: 5, Y: 1},
		{ID: "far", X: 50000, Y: 50000},
	}
	mapping := MapBuildings(g, buildings, DefaultUnmappedThresholdM)
	var near, far BusMapping
	for _, m := range mapping {
		if m.BuildingID == "near" {
			near = m
		}
		if m.BuildingID == "far" {
			far = m
		}
	}
	require.False(t, near.Unmapped)
	require.True(t, far.Unmapped)
}

type constHeat struct{ kw float64 }

func (c constHeat) HeatKW(string, int) float64 { return c.kw }

func TestComposeHourAddsHeatOverCOP(t *testing.T) {
	base := NewScenarioTable(map[string][]float64{"b1": {2.0, 3.0}})
	heat := constHeat{kw: 4.0}
	loads := ComposeHour([]string{"b1"}, 1, base, heat, 2.0, 0.95)
	require.Len(t, loads, 1)
	require.InDelta(t, 3.0+4.0/2.0, loads[0].ActiveKW, 1e-9)
	require.Greater(t, loads[0].ReactiveKVAR, 0.0)
}

func TestDetectAndNormalizeMagnitudeRescalesMW(t *testing.T) {
	out := DetectAndNormalizeMagnitude([]float64{0.002, 0.005})
	require.InDelta(t, 5.0, out[1], 1e-9)
}

func TestRadialSweepSolverConvergesOnTree(t *testing.T) {
	g := smallGrid(t)
	solver := NewRadialSweepSolver()
	var farBus string
	for _, b := range g.Buses {
		if b.Kind == BusKindLVNode {
			farBus = b.ID
			break
		}
	}
	require.NotEmpty(t, farBus)
	snap := solver.SolveHour(g, map[string]float64{farBus: 20.0}, map[string]float64{farBus: 6.0})
	require.True(t, snap.Converged)
	require.InDelta(t, 1.0, snap.PerBusVoltagePU[g.Transformers[0].LVBus], 0.05)
}

func TestExtractKPIsMissingWhenNoSnapshots(t *testing.T) {
	g := smallGrid(t)
	kpi := ExtractKPIs(g, map[int]Snapshot{}, 0, 0, 0, 0)
	require.Contains(t, kpi.Reasons, ReasonDHAMissingKPIs)
}

func TestExtractKPIsOKWhenWithinWindow(t *testing.T) {
	g := smallGrid(t)
	snaps := map[int]Snapshot{
		0: {
			HourIndex:                0,
			Converged:                true,
			PerBusVoltagePU:          map[string]float64{"mv1": 1.0},
			PerLineLoadingPct:        map[string]float64{"l1": 10},
			PerTransformerLoadingPct: map[string]float64{"t1": 20},
		},
	}
	kpi := ExtractKPIs(g, snaps, 0, 0, 0, 0)
	require.True(t, kpi.Feasible)
	require.Equal(t, MitigationNone, kpi.MitigationClass)
	require.Contains(t, kpi.Reasons, ReasonHPOK)
}

func TestExtractKPIsExpansionOnTransformerOverload(t *testing.T) {
	g := smallGrid(t)
	snaps := map[int]Snapshot{
		0: {
			HourIndex:                0,
			Converged:                true,
			PerBusVoltagePU:          map[string]float64{"mv1": 1.0},
			PerTransformerLoadingPct: map[string]float64{"t1": 130},
		},
	}
	kpi := ExtractKPIs(g, snaps, 0, 0, 0, 0)
	require.False(t, kpi.Feasible)
	require.Equal(t, MitigationExpansion, kpi.MitigationClass)
	require.Contains(t, kpi.Reasons, ReasonHPTrafoViolation)
}

func TestParseLegacyJSONSkipsUnhonoredTags(t *testing.T) {
	data := []byte(`{
		"nodes": [{"id":"n1","lat":52.0,"lon":13.0},{"id":"n2","lat":52.001,"lon":13.001}],
		"ways": [
			{"id":"w1","nodes":["n1","n2"],"tags":{"power":"line"}},
			{"id":"w2","nodes":["n1","n2"],"tags":{"power":"unknown_tag"}}
		]
	}`)
	lines, err := ParseLegacyJSON(data, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, lines, 1)
}
