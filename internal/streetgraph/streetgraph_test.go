package streetgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func gridStreets() []Street {
	return []Street{
		{ID: "s1", Points: []Point{{0, 0}, {100, 0}}},
		{ID: "s2", Points: []Point{{100, 0}, {100, 100}}},
		{ID: "s3", Points: []Point{{0, 0}, {0, 100}}},
		{ID: "s4", Points: []Point{{0, 100}, {100, 100}}},
	}
}

func TestBuildRejectsGeographicCRS(t *testing.T) {
	_, err := Build(gridStreets(), false, 1.0)
	require.Error(t, err)
}

func TestBuildRejectsEmptyPolyline(t *testing.T) {
	_, err := Build([]Street{{ID: "bad", Points: nil}}, true, 1.0)
	require.Error(t, err)
}

func TestAttachSplitEdgeInsertsNode(t *testing.T) {
	g, err := Build(gridStreets(), true, 1.0)
	require.NoError(t, err)

	atts, err := g.Attach([]Building{{ID: "b1", Centroid: Point{50, 2}}}, SplitEdgePerBuilding, 10)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	require.Equal(t, "split_b1", atts[0].NodeID)
	require.InDelta(t, 2.0, atts[0].DistanceM, 1e-6)
}

func TestAttachTooFarFails(t *testing.T) {
	g, err := Build(gridStreets(), true, 1.0)
	require.NoError(t, err)

	_, err = g.Attach([]Building{{ID: "far", Centroid: Point{500, 500}}}, SplitEdgePerBuilding, 10)
	require.Error(t, err)
}

func TestRouteTrunkUnionOfShortestPaths(t *testing.T) {
	g, err := Build(gridStreets(), true, 1.0)
	require.NoError(t, err)
	plant := nodeID(Point{0, 0}, 1.0)

	atts, err := g.Attach([]Building{
		{ID: "b1", Centroid: Point{100, 50}},
		{ID: "b2", Centroid: Point{50, 100}},
	}, SplitEdgePerBuilding, 10)
	require.NoError(t, err)

	ids := make([]string, len(atts))
	for i, a := range atts {
		ids[i] = a.NodeID
	}

	trunk, err := g.RouteTrunk(plant, ids)
	require.NoError(t, err)
	require.NotEmpty(t, trunk.Edges)
	require.InDelta(t, 150.0, trunk.DistanceM[ids[0]], 1e-6)
}
