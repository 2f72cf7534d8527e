package cha

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muniheat/dhcore/internal/catalog"
	"github.com/muniheat/dhcore/internal/streetgraph"
)

func TestSizePipeSelectsSmallestSatisfyingDN(t *testing.T) {
	cat := catalog.DefaultPipeCatalog()
	res := SizePipe(5.0, RoleTrunkSupply, cat)
	require.False(t, res.VelocityViolation)
	require.False(t, res.DPViolation)
	require.LessOrEqual(t, res.VelocityMS, VelocityLimitMS+1e-9)
}

func TestSwameeJainPositive(t *testing.T) {
	dp := SwameeJainDPPer100mBar(1.2, 0.1, 0.1)
	require.Greater(t, dp, 0.0)
}

func smallNetwork(t *testing.T) (*Network, []string, map[string]float64) {
	streets := []streetgraph.Street{
		{ID: "s1", Points: []streetgraph.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}},
		{ID: "s2", Points: []streetgraph.Point{{X: 100, Y: 0}, {X: 200, Y: 0}}},
	}
	g, err := streetgraph.Build(streets, true, 1.0)
	require.NoError(t, err)

	buildings := []streetgraph.Building{
		{ID: "b1", Centroid: streetgraph.Point{X: 50, Y: 5}},
		{ID: "b2", Centroid: streetgraph.Point{X: 150, Y: 5}},
	}
	atts, err := g.Attach(buildings, streetgraph.SplitEdgePerBuilding, 20)
	require.NoError(t, err)

	plant := "n_0.000_0.000"
	ids := []string{atts[0].NodeID, atts[1].NodeID}
	trunk, err := g.RouteTrunk(plant, ids)
	require.NoError(t, err)

	loads := map[string]float64{"b1": 100, "b2": 150}
	cat := catalog.DefaultPipeCatalog()
	net, err := BuildNetwork(trunk, atts, loads, 80, 50, 4186, cat)
	require.NoError(t, err)
	return net, ids, loads
}

func TestBuildNetworkTopologyClosure(t *testing.T) {
	net, _, _ := smallNetwork(t)
	supply, returnCount := 0, 0
	for _, p := range net.Pipes {
		if p.Role == RoleTrunkSupply {
			supply++
		}
		if p.Role == RoleTrunkReturn {
			returnCount++
		}
	}
	require.Equal(t, supply, returnCount)
	require.Greater(t, supply, 0)
}

func TestStabilizeProducesConvergedResult(t *testing.T) {
	net, ids, _ := smallNetwork(t)
	trunkDist := map[string]float64{ids[0]: 50, ids[1]: 150}

	solver := NewReferenceSolver()
	sr, err := Stabilize(net, ids, trunkDist, solver, 42)
	require.NoError(t, err)
	require.NotNil(t, sr)
	require.Less(t, sr.StabilizerFlowShare, 0.001)
}

func TestExtractKPIsMissingWhenNoResult(t *testing.T) {
	net, _, _ := smallNetwork(t)
	kpi := ExtractKPIs(net, nil, 250)
	require.False(t, kpi.Feasible)
	require.Contains(t, kpi.Reasons, ReasonCHAMissingKPIs)
}
