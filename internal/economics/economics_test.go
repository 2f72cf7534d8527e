package economics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseInputs() Inputs {
	return Inputs{
		Shared: SharedInputs{DiscountRate: 0.03, LifetimeYears: 25, AnnualHeatMWh: 1000},
		DH: DHInputs{
			PipeCostEUR: 500000, PumpCostEURPerKW: 800, PumpPowerKW: 15,
			PlantCostEUR: 300000, FixedOPEXShareOfCapex: 0.015,
			FuelPriceEURPerMWh: 45, BoilerEfficiency: 0.9,
			FuelEmissionFactorKgPerMWh: DefaultFuelEmissionFactorKgPerMWh,
		},
		HP: HPInputs{
			EquipmentCostEURPerKWThermal: 900, TotalKWDesign: 400,
			OverloadFraction: 0.1, PlanningLoadingThresholdFraction: 0.8,
			LVUpgradeCostEURPerKW: 200, FixedOPEXShareOfCapex: 0.02,
			ElectricityPriceEURPerMWh: 180, COP: 3.2,
			GridEmissionFactorKgPerMWh: DefaultGridEmissionFactorKgPerMWh,
		},
	}
}

func TestCRFZeroRateIsInverseLifetime(t *testing.T) {
	require.InDelta(t, 1.0/25.0, CRF(0, 25), 1e-12)
}

func TestCRFPositiveRateIsBounded(t *testing.T) {
	c := CRF(0.05, 20)
	require.Greater(t, c, 0.05)
	require.Less(t, c, 1.0)
}

func TestDeterministicProducesPositiveLCOH(t *testing.T) {
	res := Deterministic(baseInputs())
	require.Greater(t, res.LCOHDHEURPerMWh, 0.0)
	require.Greater(t, res.LCOHHPEURPerMWh, 0.0)
	require.Greater(t, res.CO2DHTPerA, 0.0)
	require.Greater(t, res.CO2HPTPerA, 0.0)
}

func TestHPCapexAddsUpgradeOnlyAboveThreshold(t *testing.T) {
	hp := HPInputs{EquipmentCostEURPerKWThermal: 900, TotalKWDesign: 100, PlanningLoadingThresholdFraction: 0.8}
	below := hp
	below.OverloadFraction = 0.5
	above := hp
	above.OverloadFraction = 0.95
	above.LVUpgradeCostEURPerKW = 200
	require.Equal(t, HPCapexEUR(hp), HPCapexEUR(below))
	require.Greater(t, HPCapexEUR(above), HPCapexEUR(below))
}

func TestMonteCarloQuantileOrderingAndWinFractionComplement(t *testing.T) {
	perturbations := []Perturbation{
		{Name: "dh_fuel_price", Dist: Normal{Mean: 45, StdDev: 5, Clip: true, ClipMin: 20, ClipMax: 80},
			Apply: func(in *Inputs, v float64) { in.DH.FuelPriceEURPerMWh = v }},
		{Name: "hp_electricity_price", Dist: Triangular{Min: 120, Mode: 180, Max: 260},
			Apply: func(in *Inputs, v float64) { in.HP.ElectricityPriceEURPerMWh = v }},
	}
	samples, summary := Run(baseInputs(), perturbations, 500, 42)
	require.Len(t, samples, 500)
	require.LessOrEqual(t, summary.LCOHDH.P05, summary.LCOHDH.P50)
	require.LessOrEqual(t, summary.LCOHDH.P50, summary.LCOHDH.P95)
	require.LessOrEqual(t, summary.LCOHHP.P05, summary.LCOHHP.P50)
	require.LessOrEqual(t, summary.LCOHHP.P50, summary.LCOHHP.P95)
	require.InDelta(t, 1.0, summary.DHWinsFraction+summary.HPWinsFraction, 1e-9)
}

func TestMonteCarloDeterministicAcrossRuns(t *testing.T) {
	perturbations := []Perturbation{
		{Name: "dh_fuel_price", Dist: Uniform{Min: 30, Max: 60},
			Apply: func(in *Inputs, v float64) { in.DH.FuelPriceEURPerMWh = v }},
	}
	s1, _ := Run(baseInputs(), perturbations, 50, 42)
	s2, _ := Run(baseInputs(), perturbations, 50, 42)
	require.Equal(t, s1, s2)
}
