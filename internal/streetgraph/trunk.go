package streetgraph

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/lvlath/dijkstra"

	"github.com/muniheat/dhcore/internal/errs"
)

// TrunkEdge is one materialized edge of the trunk tree, with the two
// physical pipes it will become (supply and return share this geometry).
type TrunkEdge struct {
	FromID   string
	ToID     string
	LengthM  float64
	StreetID string
}

// Trunk is the union of shortest paths from the plant to every attachment
// node — a shortest-path tree from the plant, pruned to the attachments.
type Trunk struct {
	PlantNodeID string
	Edges       []TrunkEdge
	// DistanceM is each node's shortest path length from the plant,
	// exact meters (recomputed from the tree, not from lvlath's
	// millimeter-rounded int64 distances).
	DistanceM map[string]float64
}

// RouteTrunk computes the trunk per §4.3: shortest-path distances come
// from lvlath's dijkstra.Dijkstra over the millimeter-weighted graph;
// because dijkstra's own tie-breaking depends on map/heap iteration order
// and is not specified as deterministic, the predecessor on each node is
// instead re-resolved here by scanning that node's neighbors in
// lexicographic order and keeping the first one whose distance plus edge
// length equals the node's shortest distance (within a sub-millimeter
// epsilon) — a deterministic tie-break on node identifiers, as required.
func (g *Graph) RouteTrunk(plantNodeID string, attachmentNodeIDs []string) (*Trunk, error) {
	if !g.G.HasVertex(plantNodeID) {
		return nil, fmt.Errorf("%w: plant node %s not present in street graph", errs.ErrInvalidGeometry, plantNodeID)
	}
	distMM, _, err := dijkstra.Dijkstra(g.G, dijkstra.Source(plantNodeID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidGeometry, err)
	}

	needed := make(map[string]bool, len(attachmentNodeIDs))
	for _, id := range attachmentNodeIDs {
		d, ok := distMM[id]
		if !ok || d == math.MaxInt64 {
			return nil, fmt.Errorf("%w: attachment node %s is unreachable from plant", errs.ErrInvalidGeometry, id)
		}
		needed[id] = true
	}

	pred := make(map[string]string)
	exactDist := make(map[string]float64)
	exactDist[plantNodeID] = 0

	sortedIDs := g.SortedNodeIDs()
	for _, id := range sortedIDs {
		if id == plantNodeID {
			continue
		}
		best := ""
		for _, n := range g.SortedNeighbors(id) {
			nd, ok := distMM[n]
			if !ok || nd == math.MaxInt64 {
				continue
			}
			lenMM, ok := g.millimeterLength(id, n)
			if !ok {
				continue
			}
			if nd+lenMM == distMM[id] {
				best = n
				break
			}
		}
		if best != "" {
			pred[id] = best
		}
	}
	// A predecessor can sort after its node, so sum lengths until stable.
	for added := true; added; {
		added = false
		for _, id := range sortedIDs {
			p, hasPred := pred[id]
			_, done := exactDist[id]
			pd, predDone := exactDist[p]
			if hasPred && !done && predDone {
				lenM, _ := g.Length(id, p)
				exactDist[id] = pd + lenM
				added = true
			}
		}
	}

	// Walk back from each needed attachment node to the plant, union the
	// path edges into the trunk tree. A sorted-set dedupe keeps the
	// result deterministic regardless of traversal order.
	type pair struct{ a, b string }
	edgeSet := make(map[pair]bool)
	var order []pair
	neededSorted := make([]string, 0, len(needed))
	for id := range needed {
		neededSorted = append(neededSorted, id)
	}
	sort.Strings(neededSorted)
	for _, id := range neededSorted {
		cur := id
		for cur != plantNodeID {
			p, ok := pred[cur]
			if !ok {
				return nil, fmt.Errorf("%w: no predecessor path from %s to plant", errs.ErrInvalidGeometry, cur)
			}
			key := pair{cur, p}
			rkey := pair{p, cur}
			if !edgeSet[key] && !edgeSet[rkey] {
				edgeSet[key] = true
				order = append(order, key)
			}
			cur = p
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].a != order[j].a {
			return order[i].a < order[j].a
		}
		return order[i].b < order[j].b
	})

	trunk := &Trunk{PlantNodeID: plantNodeID, DistanceM: exactDist}
	for _, e := range order {
		lenM, _ := g.Length(e.a, e.b)
		trunk.Edges = append(trunk.Edges, TrunkEdge{
			FromID: e.a, ToID: e.b, LengthM: lenM,
			StreetID: g.EdgeStreet[e.a][e.b],
		})
	}
	return trunk, nil
}

func (g *Graph) millimeterLength(a, b string) (int64, bool) {
	m, ok := g.Length(a, b)
	if !ok {
		return 0, false
	}
	return int64(math.Round(m * mmPerMeter)), true
}
