package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/muniheat/dhcore/internal/cha"
	"github.com/muniheat/dhcore/internal/dha"
	"github.com/muniheat/dhcore/internal/economics"
)

func baseAssembleInput() AssembleInput {
	return AssembleInput{
		ClusterID: "cluster-1",
		Inputs:    map[string]string{"buildings": "abc123", "streets": "def456"},
		CHAKPIs: cha.KPIBlock{
			Feasible: true, VelocityOK: true, DPOK: true,
			VShareWithinLimits: 0.98, VMaxMS: 1.2,
			Reasons: []cha.ReasonCode{cha.ReasonDHOK},
		},
		DHAKPIs: dha.KPIBlock{
			Feasible: true, MaxFeederLoadingPct: 40,
			Reasons: []dha.ReasonCode{dha.ReasonHPOK},
		},
		DeterministicDH: economics.DeterministicResult{
			LCOHDHEURPerMWh: 75.2, LCOHHPEURPerMWh: 82.5,
			CO2DHTPerA: 220, CO2HPTPerA: 125,
		},
	}
}

func TestAssembleValidatesCleanly(t *testing.T) {
	c := Assemble(baseAssembleInput(), time.Unix(0, 0).UTC())
	require.Empty(t, Validate(c))
	require.NotEmpty(t, c.Metadata.InputDigest)
}

func TestValidateRejectsUnknownReasonCode(t *testing.T) {
	c := Assemble(baseAssembleInput(), time.Unix(0, 0).UTC())
	c.DistrictHeating.Reasons = []string{"NOT_A_REAL_CODE"}
	problems := Validate(c)
	require.NotEmpty(t, problems)
}

func TestValidateRejectsBadQuantileOrder(t *testing.T) {
	c := Assemble(baseAssembleInput(), time.Unix(0, 0).UTC())
	c.DistrictHeating.LCOH = Quantiles{P05: 10, Median: 5, P95: 20}
	problems := Validate(c)
	require.NotEmpty(t, problems)
}

func TestValidateRejectsWrongVersion(t *testing.T) {
	c := Assemble(baseAssembleInput(), time.Unix(0, 0).UTC())
	c.Version = "0.9"
	problems := Validate(c)
	require.Contains(t, problems[0], "version")
}

func TestInputDigestIsStableAndOrderIndependent(t *testing.T) {
	d1 := InputDigest("c1", "1.0", map[string]string{"a": "1", "b": "2"})
	d2 := InputDigest("c1", "1.0", map[string]string{"b": "2", "a": "1"})
	require.Equal(t, d1, d2)
}

func TestAssembleWithMonteCarloPopulatesQuantiles(t *testing.T) {
	in := baseAssembleInput()
	in.MC = &economics.Summary{
		NSamples: 500, Seed: 42,
		LCOHDH: economics.Quantiles{P05: 60, P50: 75, P95: 90},
		LCOHHP: economics.Quantiles{P05: 70, P50: 82, P95: 95},
		CO2DH:  economics.Quantiles{P05: 200, P50: 220, P95: 240},
		CO2HP:  economics.Quantiles{P05: 100, P50: 125, P95: 150},
		DHWinsFraction: 0.78, HPWinsFraction: 0.22,
	}
	c := Assemble(in, time.Unix(0, 0).UTC())
	require.NotNil(t, c.MonteCarlo)
	require.InDelta(t, 75, c.DistrictHeating.LCOH.Median, 1e-9)
	require.Empty(t, Validate(c))
}
