package cha

// ReasonCode is the closed set of CHA feasibility reason codes (§4.6).
type ReasonCode string

const (
	ReasonDHOK                ReasonCode = "DH_OK"
	ReasonDHVelocityViolation ReasonCode = "DH_VELOCITY_VIOLATION"
	ReasonDHDPViolation       ReasonCode = "DH_DP_VIOLATION"
	ReasonCHAMissingKPIs      ReasonCode = "CHA_MISSING_KPIS"
	ReasonCHANonConvergence   ReasonCode = "CHA_NON_CONVERGENCE"
)

// KPIBlock is the EN 13941-1 compliance KPI block §4.6 produces.
type KPIBlock struct {
	VShareWithinLimits float64
	VMaxMS             float64
	DPMaxBarPer100m    float64
	LossSharePct       float64
	TotalLengthM       float64
	LengthByRole       map[Role]float64
	PumpPowerKW        float64

	VelocityOK bool
	DPOK       bool
	Feasible   bool
	Reasons    []ReasonCode
}

const velocityShareThreshold = 0.95
const dpLimitBarPer100m = 0.3

// ExtractKPIs aggregates pipe-level hydraulic results into the EN
// 13941-1 KPI block. designLoadTotalKW is the cluster's total building
// demand (pre-margin), the denominator of loss_share_pct.
func ExtractKPIs(n *Network, result *Result, designLoadTotalKW float64) KPIBlock {
	kpi := KPIBlock{LengthByRole: make(map[Role]float64)}

	if result == nil || len(result.PipeResults) == 0 {
		kpi.Reasons = []ReasonCode{ReasonCHAMissingKPIs}
		return kpi
	}

	var withinLimits, total int
	var totalLossKW float64
	for _, p := range n.Pipes {
		pr, ok := result.PipeResults[p.ID]
		if !ok {
			continue
		}
		total++
		if pr.VelocityMS <= VelocityLimitMS {
			withinLimits++
		}
		if pr.VelocityMS > kpi.VMaxMS {
			kpi.VMaxMS = pr.VelocityMS
		}
		if pr.PressureDropPer100mBar > kpi.DPMaxBarPer100m {
			kpi.DPMaxBarPer100m = pr.PressureDropPer100mBar
		}
		totalLossKW += pr.HeatLossKW
		kpi.TotalLengthM += p.LengthM
		kpi.LengthByRole[p.Role] += p.LengthM
	}
	if total > 0 {
		kpi.VShareWithinLimits = float64(withinLimits) / float64(total)
	}
	if designLoadTotalKW > 0 {
		kpi.LossSharePct = totalLossKW / designLoadTotalKW * 100
	}

	kpi.VelocityOK = kpi.VShareWithinLimits >= velocityShareThreshold
	kpi.DPOK = kpi.DPMaxBarPer100m <= dpLimitBarPer100m

	if !result.Converged {
		kpi.Feasible = false
		kpi.Reasons = append(kpi.Reasons, ReasonCHANonConvergence)
		return kpi
	}

	kpi.Feasible = kpi.VelocityOK && kpi.DPOK
	if kpi.Feasible {
		kpi.Reasons = append(kpi.Reasons, ReasonDHOK)
		return kpi
	}
	if !kpi.VelocityOK {
		kpi.Reasons = append(kpi.Reasons, ReasonDHVelocityViolation)
	}
	if !kpi.DPOK {
		kpi.Reasons = append(kpi.Reasons, ReasonDHDPViolation)
	}
	return kpi
}
