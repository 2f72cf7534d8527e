package dha

import (
	"math"
	"sort"
)

// PowerFlowSolver is the multi-hour driver's pluggable solver boundary,
// mirroring cha.Solver's shape: a balanced/unbalanced load-flow backend
// could sit behind this interface without touching the driver.
type PowerFlowSolver interface {
	SolveHour(g *Grid, busLoadKW, busLoadKVAR map[string]float64) Snapshot
}

// RadialSweepSolver is a linearized backward/forward sweep (DistFlow-style
// voltage-drop approximation) for radial LV feeders — no third-party
// power-flow solver exists in the retrieved corpus, so this is a direct,
// from-spec implementation rather than an adaptation of one.
type RadialSweepSolver struct {
	MaxIterations int
	ToleranceVPU  float64
}

func NewRadialSweepSolver() *RadialSweepSolver {
	return &RadialSweepSolver{MaxIterations: 20, ToleranceVPU: 1e-5}
}

func (s *RadialSweepSolver) SolveHour(g *Grid, busLoadKW, busLoadKVAR map[string]float64) Snapshot {
	if s.MaxIterations <= 0 {
		s.MaxIterations = 20
	}
	if s.ToleranceVPU <= 0 {
		s.ToleranceVPU = 1e-5
	}

	v := make(map[string]float64, len(g.Buses))
	for _, b := range g.Buses {
		v[b.ID] = 1.0
	}
	for _, t := range g.Transformers {
		v[t.LVBus] = 1.0 - t.ResistiveLossPct/100.0*0.1
	}

	adj := make(map[string][]Line)
	for _, l := range g.Lines {
		adj[l.FromBus] = append(adj[l.FromBus], l)
		adj[l.ToBus] = append(adj[l.ToBus], Line{
			ID: l.ID, FromBus: l.ToBus, ToBus: l.FromBus, LengthKm: l.LengthKm,
			ROhmPerKm: l.ROhmPerKm, XOhmPerKm: l.XOhmPerKm, CNFPerKm: l.CNFPerKm, MaxCurrentKA: l.MaxCurrentKA,
		})
	}

	roots := make([]string, 0, len(g.Transformers))
	for _, t := range g.Transformers {
		roots = append(roots, t.LVBus)
	}
	sort.Strings(roots)

	order, parentLine, visited := bfsOrder(adj, roots)

	downstreamP := make(map[string]float64)
	downstreamQ := make(map[string]float64)
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		downstreamP[node] += busLoadKW[node]
		downstreamQ[node] += busLoadKVAR[node]
		if pl, ok := parentLine[node]; ok {
			downstreamP[pl.ToBus] += downstreamP[node]
			downstreamQ[pl.ToBus] += downstreamQ[node]
		}
	}

	converged := true
	for iter := 0; iter < s.MaxIterations; iter++ {
		maxDelta := 0.0
		for _, node := range order {
			pl, ok := parentLine[node]
			if !ok {
				continue
			}
			parentV := v[pl.ToBus]
			if parentV <= 0 {
				parentV = 1.0
			}
			nominalKV := 0.4
			for _, b := range g.Buses {
				if b.ID == node {
					nominalKV = b.NominalKV
					break
				}
			}
			rTot := pl.ROhmPerKm * pl.LengthKm
			xTot := pl.XOhmPerKm * pl.LengthKm
			dv := (downstreamP[node]*rTot + downstreamQ[node]*xTot) / (nominalKV * nominalKV * 1000.0)
			newV := parentV - dv
			if math.Abs(newV-v[node]) > maxDelta {
				maxDelta = math.Abs(newV - v[node])
			}
			v[node] = newV
		}
		if maxDelta < s.ToleranceVPU {
			break
		}
		if iter == s.MaxIterations-1 && maxDelta >= s.ToleranceVPU {
			converged = false
		}
	}
	for id := range busLoadKW {
		if !visited[id] {
			converged = false
		}
	}

	lineLoadingPct := make(map[string]float64, len(g.Lines))
	for _, l := range g.Lines {
		p := downstreamP[l.ToBus]
		q := downstreamQ[l.ToBus]
		if _, ok := parentLine[l.ToBus]; !ok || parentLine[l.ToBus].ID != l.ID {
			p = downstreamP[l.FromBus]
			q = downstreamQ[l.FromBus]
		}
		s_kVA := math.Hypot(p, q)
		vRef := v[l.FromBus]
		if vRef <= 0 {
			vRef = 1.0
		}
		nominalKV := 0.4
		iKA := s_kVA / (math.Sqrt(3) * nominalKV * vRef * 1000.0)
		if l.MaxCurrentKA > 0 {
			lineLoadingPct[l.ID] = iKA / l.MaxCurrentKA * 100.0
		}
	}

	trafoLoadingPct := make(map[string]float64, len(g.Transformers))
	for _, t := range g.Transformers {
		sKVA := math.Hypot(downstreamP[t.LVBus], downstreamQ[t.LVBus])
		if t.RatedMVA > 0 {
			trafoLoadingPct[t.ID] = sKVA / (t.RatedMVA * 1000.0) * 100.0
		}
	}

	return Snapshot{
		Converged:                converged,
		PerBusVoltagePU:          v,
		PerLineLoadingPct:        lineLoadingPct,
		PerTransformerLoadingPct: trafoLoadingPct,
	}
}

func bfsOrder(adj map[string][]Line, roots []string) ([]string, map[string]Line, map[string]bool) {
	visited := make(map[string]bool)
	parentLine := make(map[string]Line)
	var order []string
	var queue []string
	for _, r := range roots {
		if !visited[r] {
			visited[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		lines := append([]Line(nil), adj[cur]...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ToBus < lines[j].ToBus })
		for _, l := range lines {
			if visited[l.ToBus] {
				continue
			}
			visited[l.ToBus] = true
			pl := l
			pl.ToBus = cur
			parentLine[l.ToBus] = pl
			queue = append(queue, l.ToBus)
		}
	}
	return order, parentLine, visited
}

// Driver runs the design hour plus the top-N hours (§4.10). hours is the
// already-unioned set the data-preparation contract supplies (§9 Open
// Question: the union is accepted as given, not re-derived here).
type Driver struct {
	Grid   *Grid
	Solver PowerFlowSolver
}

// RunHours executes one power-flow solve per hour, looking up each hour's
// aggregated bus loads from loadByHour.
func (d *Driver) RunHours(hours []int, loadByHour map[int]map[string]BuildingLoad) map[int]Snapshot {
	out := make(map[int]Snapshot, len(hours))
	for _, h := range hours {
		byBus := loadByHour[h]
		p := make(map[string]float64, len(byBus))
		q := make(map[string]float64, len(byBus))
		for busID, l := range byBus {
			p[busID] = l.ActiveKW
			q[busID] = l.ReactiveKVAR
		}
		snap := d.Solver.SolveHour(d.Grid, p, q)
		snap.HourIndex = h
		out[h] = snap
	}
	return out
}
