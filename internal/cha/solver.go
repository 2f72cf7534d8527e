package cha

import (
	"math"
)

// ReferenceSolver is a self-contained Newton-Raphson pipe-flow solver
// standing in for an external vendor solver behind the Solver interface
// (§4 names the simulator as a "drive an external solver" boundary; no
// third-party hydraulic-network solver exists anywhere in the retrieved
// corpus, so this reference implementation is hand-written and grounded
// directly in the Hardy-Cross/Newton-Raphson loop-correction method the
// spec describes). Flows on every tree pipe come pre-assigned from
// downstream design demand (network.go); the only unknown this solver
// resolves is the single loop the stabilizer pipe introduces.
type ReferenceSolver struct {
	MaxIterations int
	ToleranceKgS  float64
}

// NewReferenceSolver returns a solver with sane default iteration limits.
func NewReferenceSolver() *ReferenceSolver {
	return &ReferenceSolver{MaxIterations: 50, ToleranceKgS: 1e-6}
}

func (s *ReferenceSolver) Solve(n *Network) (*Result, error) {
	if s.MaxIterations <= 0 {
		s.MaxIterations = 50
	}
	if s.ToleranceKgS <= 0 {
		s.ToleranceKgS = 1e-6
	}

	loop, stabilizerIdx := s.findLoop(n)
	converged := true
	iterations := 0
	if loop != nil {
		converged, iterations = s.balanceLoop(n, loop, stabilizerIdx)
	}

	res := &Result{
		Converged:   converged,
		Iterations:  iterations,
		PipeResults: make(map[string]PipeResult, len(n.Pipes)),
		NodeResults: make(map[string]JunctionResult),
	}
	for _, p := range n.Pipes {
		v := VelocityMS(math.Abs(p.MassFlowKgS), p.InnerDiameterM)
		dp := SwameeJainDPPer100mBar(v, p.InnerDiameterM, p.RoughnessMM) * (p.LengthM / 100.0)
		tFrom, tTo := n.SupplyTempC, n.SupplyTempC
		if p.Role == RoleTrunkReturn || p.Role == RoleServiceReturn {
			tFrom, tTo = n.ReturnTempC, n.ReturnTempC
		}
		heatLossKW := p.UWPerMK * p.LengthM * (tFrom - 10) / 1000.0 // ambient ~10C
		if heatLossKW < 0 {
			heatLossKW = 0
		}
		res.PipeResults[p.ID] = PipeResult{
			VelocityMS:             v,
			PressureDropBar:        dp,
			PressureDropPer100mBar: SwameeJainDPPer100mBar(v, p.InnerDiameterM, p.RoughnessMM),
			TFromC:                 tFrom,
			TToC:                   tTo,
			HeatLossKW:             heatLossKW,
		}
	}
	return res, nil
}

// loopEdge is one pipe index in the stabilizer cycle, plus its traversal
// sign (+1 if the pipe's stored From->To direction matches the loop's
// chosen walking direction, -1 otherwise).
type loopEdge struct {
	pipeIdx int
	sign    float64
}

// findLoop locates the stabilizer pipe and the tree path between its two
// endpoints through the trunk-supply pipes, forming the single cycle
// §4.5 guarantees exists after stabilization. Returns nil if no
// stabilizer pipe is present (network not yet stabilized).
func (s *ReferenceSolver) findLoop(n *Network) ([]loopEdge, int) {
	stabIdx := -1
	for i, p := range n.Pipes {
		if p.Role == RoleLoopStabilizer {
			stabIdx = i
			break
		}
	}
	if stabIdx < 0 {
		return nil, -1
	}
	adj := make(map[string][]int) // node -> pipe indices of trunk_supply edges touching it
	for i, p := range n.Pipes {
		if p.Role != RoleTrunkSupply {
			continue
		}
		adj[p.FromNode] = append(adj[p.FromNode], i)
		adj[p.ToNode] = append(adj[p.ToNode], i)
	}
	start, goal := n.Pipes[stabIdx].FromNode, n.Pipes[stabIdx].ToNode

	type frame struct {
		node string
		path []loopEdge
	}
	visited := map[string]bool{start: true}
	queue := []frame{{node: start}}
	var found []loopEdge
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.node == goal {
			found = cur.path
			break
		}
		for _, idx := range adj[cur.node] {
			p := n.Pipes[idx]
			next := p.ToNode
			sign := 1.0
			if p.FromNode != cur.node {
				next = p.FromNode
				sign = -1.0
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			np := append(append([]loopEdge(nil), cur.path...), loopEdge{pipeIdx: idx, sign: sign})
			queue = append(queue, frame{node: next, path: np})
		}
	}
	if found == nil {
		return nil, stabIdx
	}
	loop := append(found, loopEdge{pipeIdx: stabIdx, sign: -1.0})
	return loop, stabIdx
}

// resistanceCoeff returns the Darcy-Weisbach loop resistance K such that
// headloss h = K * |Q| * Q (signed), evaluated at the pipe's current flow
// so the Hardy-Cross correction is a frozen-coefficient Newton step.
func resistanceCoeff(p Pipe) float64 {
	if p.InnerDiameterM <= 0 {
		return math.Inf(1)
	}
	v := VelocityMS(math.Max(math.Abs(p.MassFlowKgS), 1e-6), p.InnerDiameterM)
	dpBar := SwameeJainDPPer100mBar(v, p.InnerDiameterM, p.RoughnessMM) * (p.LengthM / 100.0)
	dpPa := dpBar * 1e5
	q := math.Max(math.Abs(p.MassFlowKgS), 1e-6)
	return dpPa / (q * q)
}

// balanceLoop runs Hardy-Cross/Newton-Raphson flow correction on the
// single stabilizer cycle until the correction falls below tolerance or
// MaxIterations is exhausted.
func (s *ReferenceSolver) balanceLoop(n *Network, loop []loopEdge, stabilizerIdx int) (bool, int) {
	for it := 1; it <= s.MaxIterations; it++ {
		var sumH, sumHOverQ float64
		for _, le := range loop {
			p := &n.Pipes[le.pipeIdx]
			q := le.sign * p.MassFlowKgS
			k := resistanceCoeff(*p)
			h := k * math.Abs(q) * q
			sumH += h
			sumHOverQ += 2 * k * math.Abs(q)
		}
		if sumHOverQ == 0 {
			return true, it
		}
		deltaQ := -sumH / sumHOverQ
		for _, le := range loop {
			p := &n.Pipes[le.pipeIdx]
			p.MassFlowKgS += le.sign * deltaQ
		}
		if math.Abs(deltaQ) < s.ToleranceKgS {
			return true, it
		}
	}
	return false, s.MaxIterations
}
