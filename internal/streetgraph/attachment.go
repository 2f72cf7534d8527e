package streetgraph

import (
	"fmt"
	"math"

	"github.com/muniheat/dhcore/internal/errs"
)

// AttachmentMode selects how a building is wired into the street graph.
type AttachmentMode int

const (
	// SplitEdgePerBuilding projects the centroid onto its nearest edge and
	// inserts a new node there, splitting the edge into two sub-edges
	// whose lengths sum to the original (the default, per §4.2).
	SplitEdgePerBuilding AttachmentMode = iota
	// NearestExistingNode snaps the building straight to the closest
	// existing graph node instead of creating a new one.
	NearestExistingNode
)

// Building is the subset of the building entity this package needs.
type Building struct {
	ID       string
	Centroid Point
}

// Attachment records where a building connects to the street graph.
type Attachment struct {
	BuildingID string
	NodeID     string
	DistanceM  float64
}

// edgeRef is one candidate street edge for nearest-edge search.
type edgeRef struct {
	fromID, toID string
	from, to     Point
	streetID     string
}

func (g *Graph) allEdges() []edgeRef {
	seen := make(map[[2]string]bool)
	var out []edgeRef
	for _, e := range g.G.Edges() {
		key := [2]string{e.From.ID, e.To.ID}
		rkey := [2]string{e.To.ID, e.From.ID}
		if seen[key] || seen[rkey] {
			continue
		}
		seen[key] = true
		out = append(out, edgeRef{
			fromID: e.From.ID, toID: e.To.ID,
			from: g.Coords[e.From.ID], to: g.Coords[e.To.ID],
			streetID: g.EdgeStreet[e.From.ID][e.To.ID],
		})
	}
	return out
}

// projectOnSegment returns the closest point on segment [a,b] to p, the
// parametric position t in [0,1], and the distance from p to that point.
func projectOnSegment(a, b, p Point) (Point, float64, float64) {
	abx, aby := b.X-a.X, b.Y-a.Y
	segLenSq := abx*abx + aby*aby
	if segLenSq == 0 {
		return a, 0, dist(a, p)
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / segLenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	proj := Point{X: a.X + t*abx, Y: a.Y + t*aby}
	return proj, t, dist(proj, p)
}

// Attach wires each building into the graph per mode, mutating g in place
// for SplitEdgePerBuilding. maxDistanceM is the configurable attachment
// limit (§4.2); exceeding it on every candidate edge/node fails with
// errs.ErrBuildingTooFar.
func (g *Graph) Attach(buildings []Building, mode AttachmentMode, maxDistanceM float64) ([]Attachment, error) {
	out := make([]Attachment, 0, len(buildings))
	for _, b := range buildings {
		var att Attachment
		var err error
		switch mode {
		case NearestExistingNode:
			att, err = g.attachNearestNode(b, maxDistanceM)
		default:
			att, err = g.attachSplitEdge(b, maxDistanceM)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}

func (g *Graph) attachNearestNode(b Building, maxDistanceM float64) (Attachment, error) {
	best := ""
	bestD := math.Inf(1)
	for _, id := range g.SortedNodeIDs() {
		d := dist(g.Coords[id], b.Centroid)
		if d < bestD {
			bestD = d
			best = id
		}
	}
	if best == "" || bestD > maxDistanceM {
		return Attachment{}, fmt.Errorf("%w: building %s is %.2fm from nearest node (limit %.2fm)", errs.ErrBuildingTooFar, b.ID, bestD, maxDistanceM)
	}
	return Attachment{BuildingID: b.ID, NodeID: best, DistanceM: bestD}, nil
}

func (g *Graph) attachSplitEdge(b Building, maxDistanceM float64) (Attachment, error) {
	edges := g.allEdges()
	if len(edges) == 0 {
		return Attachment{}, fmt.Errorf("%w: street graph has no edges to attach building %s to", errs.ErrInvalidGeometry, b.ID)
	}
	bestIdx := -1
	bestD := math.Inf(1)
	var bestProj Point
	var bestT float64
	for i, e := range edges {
		proj, t, d := projectOnSegment(e.from, e.to, b.Centroid)
		if d < bestD {
			bestD, bestProj, bestT, bestIdx = d, proj, t, i
		}
	}
	if bestD > maxDistanceM {
		return Attachment{}, fmt.Errorf("%w: building %s is %.2fm from nearest street edge (limit %.2fm)", errs.ErrBuildingTooFar, b.ID, bestD, maxDistanceM)
	}
	e := edges[bestIdx]

	// Projection lands exactly on an existing endpoint: reuse it, no split.
	if bestT <= 1e-9 {
		return Attachment{BuildingID: b.ID, NodeID: e.fromID, DistanceM: bestD}, nil
	}
	if bestT >= 1-1e-9 {
		return Attachment{BuildingID: b.ID, NodeID: e.toID, DistanceM: bestD}, nil
	}

	splitID := fmt.Sprintf("split_%s", b.ID)
	totalLen, _ := g.Length(e.fromID, e.toID)
	lenA := totalLen * bestT
	lenB := totalLen - lenA

	g.G.RemoveEdge(e.fromID, e.toID)
	delete(g.EdgeLength[e.fromID], e.toID)
	delete(g.EdgeLength[e.toID], e.fromID)
	delete(g.EdgeStreet[e.fromID], e.toID)
	delete(g.EdgeStreet[e.toID], e.fromID)

	g.addSegment(e.fromID, e.from, splitID, bestProj, lenA, e.streetID)
	g.addSegment(splitID, bestProj, e.toID, e.to, lenB, e.streetID)

	return Attachment{BuildingID: b.ID, NodeID: splitID, DistanceM: bestD}, nil
}
