package contract

import (
	"time"

	"github.com/muniheat/dhcore/internal/cha"
	"github.com/muniheat/dhcore/internal/dha"
	"github.com/muniheat/dhcore/internal/economics"
)

// AssembleInput bundles every upstream block the assembler merges into
// one canonical contract (§4.13). MC is nil when Monte Carlo was not
// run.
type AssembleInput struct {
	ClusterID     string
	Inputs        map[string]string
	GitCommit     string
	CHAKPIs       cha.KPIBlock
	DHAKPIs       dha.KPIBlock
	DeterministicDH economics.DeterministicResult
	MC            *economics.Summary
	HPTotalKWDesign float64
	PlanningWarning bool
}

// reasonStringsCHA and reasonStringsDHA convert a closed-set slice of
// typed reason codes to the plain strings the contract schema stores.
func reasonStringsCHA(rs []cha.ReasonCode) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

func reasonStringsDHA(rs []dha.ReasonCode) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// Assemble merges CHA/DHA/Economics outputs into the canonical contract
// record, not yet validated — call ValidateOrError on the result.
func Assemble(in AssembleInput, now time.Time) *Contract {
	c := &Contract{
		Version:   SchemaVersion,
		ClusterID: in.ClusterID,
		Metadata: Metadata{
			CreatedUTC: now,
			Inputs:     in.Inputs,
			GitCommit:  in.GitCommit,
		},
		DistrictHeating: DistrictHeating{
			Feasible: in.CHAKPIs.Feasible,
			Reasons:  reasonStringsCHA(in.CHAKPIs.Reasons),
			Hydraulics: Hydraulics{
				VelocityOK:         in.CHAKPIs.VelocityOK,
				DPOK:               in.CHAKPIs.DPOK,
				VMaxMS:             in.CHAKPIs.VMaxMS,
				VShareWithinLimits: in.CHAKPIs.VShareWithinLimits,
			},
			Losses: Losses{
				TotalLengthM: in.CHAKPIs.TotalLengthM,
				LossSharePct: in.CHAKPIs.LossSharePct,
				PumpPowerKW:  in.CHAKPIs.PumpPowerKW,
			},
		},
		HeatPumps: HeatPumps{
			Feasible: in.DHAKPIs.Feasible,
			Reasons:  reasonStringsDHA(in.DHAKPIs.Reasons),
			LVGrid: LVGrid{
				PlanningWarning:        in.PlanningWarning,
				MaxFeederLoadingPct:    in.DHAKPIs.MaxFeederLoadingPct,
				VoltageViolationsTotal: in.DHAKPIs.VoltageViolationsTotal,
				LineViolationsTotal:    in.DHAKPIs.LineViolationsTotal,
			},
			HPSystem: HPSystem{HPTotalKWDesign: in.HPTotalKWDesign},
		},
	}

	// Without Monte Carlo the deterministic value fills all three
	// quantiles, so p05 <= median <= p95 holds.
	det := in.DeterministicDH
	c.DistrictHeating.LCOH = Quantiles{P05: det.LCOHDHEURPerMWh, Median: det.LCOHDHEURPerMWh, P95: det.LCOHDHEURPerMWh}
	c.DistrictHeating.CO2 = Quantiles{P05: det.CO2DHTPerA, Median: det.CO2DHTPerA, P95: det.CO2DHTPerA}
	c.HeatPumps.LCOH = Quantiles{P05: det.LCOHHPEURPerMWh, Median: det.LCOHHPEURPerMWh, P95: det.LCOHHPEURPerMWh}
	c.HeatPumps.CO2 = Quantiles{P05: det.CO2HPTPerA, Median: det.CO2HPTPerA, P95: det.CO2HPTPerA}

	if in.MC != nil {
		c.DistrictHeating.LCOH = Quantiles{P05: in.MC.LCOHDH.P05, Median: in.MC.LCOHDH.P50, P95: in.MC.LCOHDH.P95}
		c.DistrictHeating.CO2 = Quantiles{P05: in.MC.CO2DH.P05, Median: in.MC.CO2DH.P50, P95: in.MC.CO2DH.P95}
		c.HeatPumps.LCOH = Quantiles{P05: in.MC.LCOHHP.P05, Median: in.MC.LCOHHP.P50, P95: in.MC.LCOHHP.P95}
		c.HeatPumps.CO2 = Quantiles{P05: in.MC.CO2HP.P05, Median: in.MC.CO2HP.P50, P95: in.MC.CO2HP.P95}
		c.MonteCarlo = &MonteCarlo{
			DHWinsFraction: in.MC.DHWinsFraction,
			HPWinsFraction: in.MC.HPWinsFraction,
			NSamples:       in.MC.NSamples,
			Seed:           in.MC.Seed,
		}
	}

	c.Metadata.InputDigest = InputDigest(in.ClusterID, c.Version, in.Inputs)
	return c
}
