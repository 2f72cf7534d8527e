package cha

import (
	"fmt"
	"math"
	"sort"

	"github.com/muniheat/dhcore/internal/seed"
)

const (
	StabilizerLengthM    = 10.0
	StabilizerDN         = "DN50"
	StabilizerRoughnessM = 100.0 // mm, deliberately high per §4.5

	DefaultEpsilon        = 1e-4
	DefaultEpsilonCeiling = 1e-2
)

// StabilizeResult carries the solver outcome plus the post-hoc stabilizer
// flow-share check §4.5 requires.
type StabilizeResult struct {
	*Result
	StabilizerFlowShare float64
	EpsilonUsed         float64
	Attempts            int
}

// Stabilize inserts the high-resistance loop pipe between the two
// attachment nodes farthest from the plant, perturbs every other pipe's
// roughness by a seeded uniform factor, and calls solver, retrying with
// doubled epsilon up to epsilonCeiling on non-convergence (§4.5).
func Stabilize(
	net *Network,
	attachmentNodeIDs []string,
	trunkDistanceM map[string]float64,
	solver Solver,
	baseSeed int64,
) (*StabilizeResult, error) {
	nodeA, nodeB, err := farthestPair(attachmentNodeIDs, trunkDistanceM)
	if err != nil {
		return nil, err
	}

	net.Pipes = append(net.Pipes, Pipe{
		ID: "stabilizer", FromNode: nodeA, ToNode: nodeB, Role: RoleLoopStabilizer,
		LengthM: StabilizerLengthM, DN: StabilizerDN, InnerDiameterM: 0.0545,
		RoughnessMM: StabilizerRoughnessM, MassFlowKgS: 0,
	})

	baseRoughness := make(map[string]float64, len(net.Pipes))
	for _, p := range net.Pipes {
		baseRoughness[p.ID] = p.RoughnessMM
	}

	eps := DefaultEpsilon
	attempt := 0
	var result *Result
	for {
		rng := seed.New(baseSeed, seed.RoughnessPerturbationIndex-attempt)
		for i := range net.Pipes {
			p := &net.Pipes[i]
			if p.Role == RoleLoopStabilizer {
				continue
			}
			factor := 1 - eps + 2*eps*rng.Float64()
			p.RoughnessMM = baseRoughness[p.ID] * factor
		}
		var err error
		result, err = solver.Solve(net)
		if err != nil {
			return nil, err
		}
		attempt++
		if result.Converged || eps >= DefaultEpsilonCeiling {
			break
		}
		eps *= 2
	}

	totalFlow := 0.0
	for _, p := range net.Pipes {
		if p.Role == RoleLoopStabilizer {
			continue
		}
		totalFlow += p.MassFlowKgS
	}
	stabilizerFlow := 0.0
	if pr, ok := result.PipeResults["stabilizer"]; ok {
		stabilizerFlow = pr.VelocityMS * math.Pi / 4 * 0.0545 * 0.0545 * WaterDensityKgM3
	}
	share := 0.0
	if totalFlow > 0 {
		share = stabilizerFlow / totalFlow
	}

	return &StabilizeResult{Result: result, StabilizerFlowShare: share, EpsilonUsed: eps, Attempts: attempt}, nil
}

// farthestPair returns the two attachment nodes with the largest distance
// from the plant, ties broken lexicographically for determinism.
func farthestPair(attachmentNodeIDs []string, distM map[string]float64) (string, string, error) {
	if len(attachmentNodeIDs) < 2 {
		return "", "", fmt.Errorf("cha: need at least 2 attachment nodes to stabilize, got %d", len(attachmentNodeIDs))
	}
	sorted := append([]string(nil), attachmentNodeIDs...)
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := distM[sorted[i]], distM[sorted[j]]
		if di != dj {
			return di > dj
		}
		return sorted[i] < sorted[j]
	})
	return sorted[0], sorted[1], nil
}
