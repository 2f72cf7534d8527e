// Package streetgraph builds the undirected weighted street graph (§4.1),
// attaches buildings to it (§4.2), and routes the district-heating trunk
// as a deterministic shortest-path union from the plant (§4.3). The graph
// itself is a github.com/katalvlaran/lvlath/core.Graph; shortest paths are
// computed with github.com/katalvlaran/lvlath/dijkstra.
package streetgraph

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/lvlath/core"

	"github.com/muniheat/dhcore/internal/errs"
)

// Point is a planar coordinate in a projected CRS (meters).
type Point struct{ X, Y float64 }

// Street is one input polyline with a projected CRS.
type Street struct {
	ID     string
	Name   string
	Points []Point
}

// Graph wraps an lvlath core.Graph with the coordinate and provenance
// bookkeeping lvlath's Vertex.Metadata cannot type-safely hold, plus exact
// floating-point edge lengths in meters (lvlath edge weights are int64,
// so lengths are additionally stored rounded to millimeters as the graph
// weight for Dijkstra, and kept exact here for reporting).
type Graph struct {
	G          *core.Graph
	Coords     map[string]Point
	EdgeLength map[string]map[string]float64 // meters, exact
	EdgeStreet map[string]map[string]string  // node pair -> source street id
}

const mmPerMeter = 1000.0

// nodeID rounds a point to 1 m and formats it as a stable graph node
// identifier, snapping endpoints within 1 m of each other to one node.
func nodeID(p Point, toleranceM float64) string {
	if toleranceM <= 0 {
		toleranceM = 1.0
	}
	rx := math.Round(p.X/toleranceM) * toleranceM
	ry := math.Round(p.Y/toleranceM) * toleranceM
	return fmt.Sprintf("n_%.3f_%.3f", rx, ry)
}

// Build normalizes streets into an undirected weighted graph. Polylines
// with no points, or a single degenerate point, fail with
// errs.ErrInvalidGeometry; projectedCRS must be asserted by the caller
// since geometry alone cannot prove CRS provenance.
func Build(streets []Street, projectedCRS bool, snapToleranceM float64) (*Graph, error) {
	if !projectedCRS {
		return nil, fmt.Errorf("%w: street table is not in a projected CRS", errs.ErrMissingCRS)
	}
	g := &Graph{
		G:          core.NewGraph(false, true),
		Coords:     make(map[string]Point),
		EdgeLength: make(map[string]map[string]float64),
		EdgeStreet: make(map[string]map[string]string),
	}
	for _, s := range streets {
		if len(s.Points) < 2 {
			return nil, fmt.Errorf("%w: street %s has fewer than 2 points", errs.ErrInvalidGeometry, s.ID)
		}
		for i := 0; i+1 < len(s.Points); i++ {
			a, b := s.Points[i], s.Points[i+1]
			if a == b {
				continue
			}
			lenM := dist(a, b)
			if lenM <= 0 {
				return nil, fmt.Errorf("%w: street %s has a zero-length segment", errs.ErrInvalidGeometry, s.ID)
			}
			g.addSegment(nodeID(a, snapToleranceM), a, nodeID(b, snapToleranceM), b, lenM, s.ID)
		}
	}
	return g, nil
}

func (g *Graph) addSegment(fromID string, from Point, toID string, to Point, lenM float64, streetID string) {
	g.Coords[fromID] = from
	g.Coords[toID] = to
	g.G.AddEdge(fromID, toID, int64(math.Round(lenM*mmPerMeter)))
	g.setLength(fromID, toID, lenM)
	g.setStreet(fromID, toID, streetID)
}

func (g *Graph) setLength(a, b string, lenM float64) {
	if g.EdgeLength[a] == nil {
		g.EdgeLength[a] = make(map[string]float64)
	}
	if g.EdgeLength[b] == nil {
		g.EdgeLength[b] = make(map[string]float64)
	}
	g.EdgeLength[a][b] = lenM
	g.EdgeLength[b][a] = lenM
}

func (g *Graph) setStreet(a, b, streetID string) {
	if g.EdgeStreet[a] == nil {
		g.EdgeStreet[a] = make(map[string]string)
	}
	if g.EdgeStreet[b] == nil {
		g.EdgeStreet[b] = make(map[string]string)
	}
	g.EdgeStreet[a][b] = streetID
	g.EdgeStreet[b][a] = streetID
}

// Length returns the exact edge length in meters between two adjacent
// nodes, or 0, false if they are not directly connected.
func (g *Graph) Length(a, b string) (float64, bool) {
	m, ok := g.EdgeLength[a]
	if !ok {
		return 0, false
	}
	v, ok := m[b]
	return v, ok
}

// SortedNodeIDs returns every node id in the graph in lexicographic order,
// the basis for every deterministic tie-break in this package.
func (g *Graph) SortedNodeIDs() []string {
	vs := g.G.Vertices()
	ids := make([]string, 0, len(vs))
	for _, v := range vs {
		ids = append(ids, v.ID)
	}
	sort.Strings(ids)
	return ids
}

// SortedNeighbors returns the neighbor ids of id in lexicographic order.
func (g *Graph) SortedNeighbors(id string) []string {
	nbrs := g.G.Neighbors(id)
	ids := make([]string, 0, len(nbrs))
	for _, v := range nbrs {
		ids = append(ids, v.ID)
	}
	sort.Strings(ids)
	return ids
}

func dist(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
