package decision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muniheat/dhcore/internal/config"
	"github.com/muniheat/dhcore/internal/contract"
)

func baseContract() *contract.Contract {
	return &contract.Contract{
		Version:   contract.SchemaVersion,
		ClusterID: "cluster-1",
		DistrictHeating: contract.DistrictHeating{
			Feasible: true,
			Reasons:  []string{"DH_OK"},
			LCOH:     contract.Quantiles{Median: 75},
			CO2:      contract.Quantiles{Median: 200},
		},
		HeatPumps: contract.HeatPumps{
			Feasible: true,
			Reasons:  []string{"HP_OK"},
			LCOH:     contract.Quantiles{Median: 82},
			CO2:      contract.Quantiles{Median: 120},
		},
	}
}

func TestDecideOnlyDHFeasible(t *testing.T) {
	c := baseContract()
	c.HeatPumps.Feasible = false
	r := Decide(c, config.DefaultConfig())
	require.Equal(t, ChoiceDH, r.Choice)
	require.Contains(t, r.ReasonCodes, ReasonOnlyDHFeasible)
	require.Contains(t, r.ReasonCodes, ReasonMCMissing)
	require.False(t, r.Robust)
}

func TestDecideOnlyHPFeasible(t *testing.T) {
	c := baseContract()
	c.DistrictHeating.Feasible = false
	r := Decide(c, config.DefaultConfig())
	require.Equal(t, ChoiceHP, r.Choice)
	require.Contains(t, r.ReasonCodes, ReasonOnlyHPFeasible)
}

func TestDecideNeitherFeasible(t *testing.T) {
	c := baseContract()
	c.DistrictHeating.Feasible = false
	c.HeatPumps.Feasible = false
	r := Decide(c, config.DefaultConfig())
	require.Equal(t, ChoiceUndecided, r.Choice)
	require.Equal(t, []ReasonCode{ReasonNoneFeasible}, r.ReasonCodes)
	require.False(t, r.Robust)
}

func TestDecideCostDominantDHIsRobustWithHighWinFraction(t *testing.T) {
	c := baseContract()
	c.DistrictHeating.LCOH = contract.Quantiles{Median: 50}
	c.HeatPumps.LCOH = contract.Quantiles{Median: 90}
	c.MonteCarlo = &contract.MonteCarlo{DHWinsFraction: 0.95, HPWinsFraction: 0.05, NSamples: 1000, Seed: 1}
	r := Decide(c, config.DefaultConfig())
	require.Equal(t, ChoiceDH, r.Choice)
	require.Contains(t, r.ReasonCodes, ReasonCostDominantDH)
	require.True(t, r.Robust)
	require.Contains(t, r.ReasonCodes, ReasonRobustDecision)
}

func TestDecideCostCloseUsesCO2TiebreakAndIsSensitive(t *testing.T) {
	c := baseContract()
	c.DistrictHeating.LCOH = contract.Quantiles{Median: 80}
	c.HeatPumps.LCOH = contract.Quantiles{Median: 81}
	c.DistrictHeating.CO2 = contract.Quantiles{Median: 220}
	c.HeatPumps.CO2 = contract.Quantiles{Median: 110}
	c.MonteCarlo = &contract.MonteCarlo{DHWinsFraction: 0.40, HPWinsFraction: 0.60, NSamples: 1000, Seed: 1}
	r := Decide(c, config.DefaultConfig())
	require.Equal(t, ChoiceHP, r.Choice)
	require.Contains(t, r.ReasonCodes, ReasonCostCloseUseCO2)
	require.Contains(t, r.ReasonCodes, ReasonCO2TiebreakerHP)
	require.False(t, r.Robust)
	require.Contains(t, r.ReasonCodes, ReasonSensitiveDecision)
}

func TestDecideCO2TieDefaultsToDH(t *testing.T) {
	c := baseContract()
	c.DistrictHeating.LCOH = contract.Quantiles{Median: 80}
	c.HeatPumps.LCOH = contract.Quantiles{Median: 81}
	c.DistrictHeating.CO2 = contract.Quantiles{Median: 150}
	c.HeatPumps.CO2 = contract.Quantiles{Median: 150}
	r := Decide(c, config.DefaultConfig())
	require.Equal(t, ChoiceDH, r.Choice)
	require.Contains(t, r.ReasonCodes, ReasonCO2TiebreakerDH)
}

func TestDecideBelowSensitiveThresholdHasNoExtraRobustnessCode(t *testing.T) {
	c := baseContract()
	c.DistrictHeating.LCOH = contract.Quantiles{Median: 50}
	c.HeatPumps.LCOH = contract.Quantiles{Median: 90}
	c.MonteCarlo = &contract.MonteCarlo{DHWinsFraction: 0.40, HPWinsFraction: 0.60, NSamples: 1000, Seed: 1}
	r := Decide(c, config.DefaultConfig())
	require.Equal(t, ChoiceDH, r.Choice)
	require.False(t, r.Robust)
	require.NotContains(t, r.ReasonCodes, ReasonRobustDecision)
	require.NotContains(t, r.ReasonCodes, ReasonSensitiveDecision)
}

func TestDecideIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	c := baseContract()
	cfg := config.DefaultConfig()
	r1 := Decide(c, cfg)
	r2 := Decide(c, cfg)
	require.Equal(t, r1, r2)
}
