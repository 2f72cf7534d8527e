// Package decision implements the deterministic feasibility/cost/CO2/
// robustness cascade that selects DH, HP, or UNDECIDED (§4.14).
package decision

import (
	"math"

	"github.com/muniheat/dhcore/internal/config"
	"github.com/muniheat/dhcore/internal/contract"
)

// Choice is the closed decision outcome set.
type Choice string

const (
	ChoiceDH        Choice = "DH"
	ChoiceHP        Choice = "HP"
	ChoiceUndecided Choice = "UNDECIDED"
)

// ReasonCode is the closed set of decision-cascade reason codes (§4.14).
type ReasonCode string

const (
	ReasonOnlyDHFeasible  ReasonCode = "ONLY_DH_FEASIBLE"
	ReasonOnlyHPFeasible  ReasonCode = "ONLY_HP_FEASIBLE"
	ReasonNoneFeasible    ReasonCode = "NONE_FEASIBLE"
	ReasonCostDominantDH  ReasonCode = "COST_DOMINANT_DH"
	ReasonCostDominantHP  ReasonCode = "COST_DOMINANT_HP"
	ReasonCostCloseUseCO2 ReasonCode = "COST_CLOSE_USE_CO2"
	ReasonCO2TiebreakerDH ReasonCode = "CO2_TIEBREAKER_DH"
	ReasonCO2TiebreakerHP ReasonCode = "CO2_TIEBREAKER_HP"
	ReasonRobustDecision  ReasonCode = "ROBUST_DECISION"
	ReasonSensitiveDecision ReasonCode = "SENSITIVE_DECISION"
	ReasonMCMissing       ReasonCode = "MC_MISSING"
)

// Result is the decision cascade's output (§3 Decision result).
type Result struct {
	Choice      Choice
	Robust      bool
	ReasonCodes []ReasonCode
	MetricsUsed map[string]float64
}

// Decide runs the four-stage cascade against an already-validated
// contract. Pure: the same contract and config always produce the same
// result (§4.14).
func Decide(c *contract.Contract, cfg *config.Config) Result {
	metrics := map[string]float64{
		"lcoh_dh_eur_per_mwh": c.DistrictHeating.LCOH.Median,
		"lcoh_hp_eur_per_mwh": c.HeatPumps.LCOH.Median,
		"co2_dh_t_per_a":      c.DistrictHeating.CO2.Median,
		"co2_hp_t_per_a":      c.HeatPumps.CO2.Median,
	}

	dhFeasible := c.DistrictHeating.Feasible
	hpFeasible := c.HeatPumps.Feasible

	switch {
	case dhFeasible && !hpFeasible:
		return finalizeRobustness(Result{Choice: ChoiceDH, ReasonCodes: []ReasonCode{ReasonOnlyDHFeasible}, MetricsUsed: metrics}, c, cfg, ChoiceDH)
	case hpFeasible && !dhFeasible:
		return finalizeRobustness(Result{Choice: ChoiceHP, ReasonCodes: []ReasonCode{ReasonOnlyHPFeasible}, MetricsUsed: metrics}, c, cfg, ChoiceHP)
	case !dhFeasible && !hpFeasible:
		return Result{Choice: ChoiceUndecided, Robust: false, ReasonCodes: []ReasonCode{ReasonNoneFeasible}, MetricsUsed: metrics}
	}

	lDH, lHP := c.DistrictHeating.LCOH.Median, c.HeatPumps.LCOH.Median
	rel := math.Abs(lDH-lHP) / math.Min(lDH, lHP)
	abs := math.Abs(lDH - lHP)

	if rel > cfg.CloseCostRelThreshold && abs > cfg.CloseCostAbsThreshold {
		if lDH < lHP {
			return finalizeRobustness(Result{Choice: ChoiceDH, ReasonCodes: []ReasonCode{ReasonCostDominantDH}, MetricsUsed: metrics}, c, cfg, ChoiceDH)
		}
		return finalizeRobustness(Result{Choice: ChoiceHP, ReasonCodes: []ReasonCode{ReasonCostDominantHP}, MetricsUsed: metrics}, c, cfg, ChoiceHP)
	}

	reasons := []ReasonCode{ReasonCostCloseUseCO2}
	cDH, cHP := c.DistrictHeating.CO2.Median, c.HeatPumps.CO2.Median
	choice := ChoiceHP
	if cDH <= cHP {
		choice = ChoiceDH
		reasons = append(reasons, ReasonCO2TiebreakerDH)
	} else {
		reasons = append(reasons, ReasonCO2TiebreakerHP)
	}
	return finalizeRobustness(Result{Choice: choice, ReasonCodes: reasons, MetricsUsed: metrics}, c, cfg, choice)
}

// finalizeRobustness applies the robustness stage, reading the winner's
// Monte Carlo win fraction (§4.14). Threshold comparisons are inclusive
// on the lower bound, per the recorded Open Question decision.
func finalizeRobustness(r Result, c *contract.Contract, cfg *config.Config, winner Choice) Result {
	if c.MonteCarlo == nil {
		r.Robust = false
		r.ReasonCodes = append(r.ReasonCodes, ReasonMCMissing)
		return r
	}
	w := c.MonteCarlo.DHWinsFraction
	if winner == ChoiceHP {
		w = c.MonteCarlo.HPWinsFraction
	}
	switch {
	case w >= cfg.RobustWinFraction:
		r.Robust = true
		r.ReasonCodes = append(r.ReasonCodes, ReasonRobustDecision)
	case w >= cfg.SensitiveWinFraction:
		r.Robust = false
		r.ReasonCodes = append(r.ReasonCodes, ReasonSensitiveDecision)
	default:
		r.Robust = false
	}
	return r
}
