package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muniheat/dhcore/internal/catalog"
	"github.com/muniheat/dhcore/internal/cha"
	"github.com/muniheat/dhcore/internal/economics"
)

// economicsAssumptions bundles the financial and efficiency parameters
// the CHA/DHA technical stages don't produce themselves: discount rate,
// lifetime, prices, efficiencies, and cost-per-unit figures (§4.12).
type economicsAssumptions struct {
	DiscountRate                     float64 `json:"discount_rate"`
	LifetimeYears                     int     `json:"lifetime_years"`
	AnnualHeatMWh                     float64 `json:"annual_heat_mwh"`
	PumpCostEURPerKW                  float64 `json:"pump_cost_eur_per_kw"`
	PlantCostEUR                      float64 `json:"plant_cost_eur"`
	DHFixedOPEXShareOfCapex           float64 `json:"dh_fixed_opex_share_of_capex"`
	FuelPriceEURPerMWh                float64 `json:"fuel_price_eur_per_mwh"`
	BoilerEfficiency                  float64 `json:"boiler_efficiency"`
	FuelEmissionFactorKgPerMWh        float64 `json:"fuel_emission_factor_kg_per_mwh"`
	HPEquipmentCostEURPerKWThermal    float64 `json:"hp_equipment_cost_eur_per_kw_thermal"`
	HPTotalKWDesign                   float64 `json:"hp_total_kw_design"`
	PlanningLoadingThresholdFraction  float64 `json:"planning_loading_threshold_fraction"`
	LVUpgradeCostEURPerKW             float64 `json:"lv_upgrade_cost_eur_per_kw"`
	HPFixedOPEXShareOfCapex           float64 `json:"hp_fixed_opex_share_of_capex"`
	ElectricityPriceEURPerMWh         float64 `json:"electricity_price_eur_per_mwh"`
	COP                               float64 `json:"cop"`
	GridEmissionFactorKgPerMWh        float64 `json:"grid_emission_factor_kg_per_mwh"`
}

func newRunEconomicsCmd() *cobra.Command {
	var clusterID, assumptionsPath string
	var n int
	var seed int64

	cmd := &cobra.Command{
		Use:   "run-economics",
		Short: "Evaluate LCOH/CO2 deterministically and via seeded Monte Carlo for one cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			scoped, done := logEconomicsStage(clusterID)
			defer done()

			var assumptions economicsAssumptions
			if err := loadJSON(assumptionsPath, &assumptions); err != nil {
				return err
			}

			var chaOut chaOutput
			if err := loadJSON(clusterPath(flagBaseDir, "cha", clusterID, "network.json"), &chaOut); err != nil {
				return err
			}
			var dhaOut dhaOutput
			if err := loadJSON(clusterPath(flagBaseDir, "dha", clusterID, "grid.json"), &dhaOut); err != nil {
				return err
			}

			in := buildEconomicsInputs(assumptions, chaOut, dhaOut)
			det := economics.Deterministic(in)

			perturbations := defaultPerturbations()
			samples, summary := economics.Run(in, perturbations, n, seed)

			if err := writeJSON(clusterPath(flagBaseDir, "economics", clusterID, "economics_deterministic.json"), det); err != nil {
				return err
			}
			if err := writeJSON(clusterPath(flagBaseDir, "economics", clusterID, "monte_carlo_summary.json"), summary); err != nil {
				return err
			}
			if err := writeJSON(clusterPath(flagBaseDir, "economics", clusterID, "monte_carlo_samples.json"), samples); err != nil {
				return err
			}

			scoped.Info().Int("n_samples", n).Int64("seed", seed).Msg("run-economics: monte carlo complete")
			fmt.Printf("run-economics: cluster=%s lcoh_dh=%.2f lcoh_hp=%.2f dh_wins_fraction=%.3f\n",
				clusterID, det.LCOHDHEURPerMWh, det.LCOHHPEURPerMWh, summary.DHWinsFraction)
			return nil
		},
	}

	cmd.Flags().StringVar(&clusterID, "cluster-id", "", "cluster identifier")
	cmd.Flags().StringVar(&assumptionsPath, "assumptions", "", "path to an economics assumptions JSON file")
	cmd.Flags().IntVar(&n, "n", 500, "number of Monte Carlo samples")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Monte Carlo base seed")
	cmd.MarkFlagRequired("cluster-id")
	cmd.MarkFlagRequired("assumptions")
	return cmd
}

// buildEconomicsInputs merges financial assumptions with the CHA/DHA
// technical KPIs they depend on: pipe cost summed from the sized network
// against the pipe catalog, pump power from the CHA KPI block, and LV
// overload fraction from the DHA KPI block (§4.12).
func buildEconomicsInputs(a economicsAssumptions, chaOut chaOutput, dhaOut dhaOutput) economics.Inputs {
	pipeCat := catalog.DefaultPipeCatalog()
	var pipeCostEUR float64
	if chaOut.Network != nil {
		for _, p := range chaOut.Network.Pipes {
			if p.Role == cha.RoleLoopStabilizer {
				continue
			}
			if row, ok := pipeCat.Row(p.DN); ok {
				pipeCostEUR += row.CostEURPerMeter * p.LengthM
			}
		}
	}

	return economics.Inputs{
		Shared: economics.SharedInputs{
			DiscountRate:  a.DiscountRate,
			LifetimeYears: a.LifetimeYears,
			AnnualHeatMWh: a.AnnualHeatMWh,
		},
		DH: economics.DHInputs{
			PipeCostEUR:                pipeCostEUR,
			PumpCostEURPerKW:           a.PumpCostEURPerKW,
			PumpPowerKW:                chaOut.KPIs.PumpPowerKW,
			PlantCostEUR:               a.PlantCostEUR,
			FixedOPEXShareOfCapex:      a.DHFixedOPEXShareOfCapex,
			FuelPriceEURPerMWh:         a.FuelPriceEURPerMWh,
			BoilerEfficiency:           a.BoilerEfficiency,
			FuelEmissionFactorKgPerMWh: a.FuelEmissionFactorKgPerMWh,
		},
		HP: economics.HPInputs{
			EquipmentCostEURPerKWThermal:     a.HPEquipmentCostEURPerKWThermal,
			TotalKWDesign:                    a.HPTotalKWDesign,
			OverloadFraction:                 dhaOut.KPIs.MaxFeederLoadingPct / 100.0,
			PlanningLoadingThresholdFraction: a.PlanningLoadingThresholdFraction,
			LVUpgradeCostEURPerKW:            a.LVUpgradeCostEURPerKW,
			FixedOPEXShareOfCapex:            a.HPFixedOPEXShareOfCapex,
			ElectricityPriceEURPerMWh:        a.ElectricityPriceEURPerMWh,
			COP:                              a.COP,
			GridEmissionFactorKgPerMWh:       a.GridEmissionFactorKgPerMWh,
		},
	}
}

// defaultPerturbations names the uncertain parameters the Monte Carlo
// engine samples independently per draw (§4.12): fuel and electricity
// price as lognormal (always positive, right-skewed), discount rate as a
// clipped normal, and both capex cost bases as triangular.
func defaultPerturbations() []economics.Perturbation {
	return []economics.Perturbation{
		{
			Name: "fuel_price_eur_per_mwh",
			Dist: economics.Lognormal{MuLog: 0, SigmaLog: 0.15},
			Apply: func(in *economics.Inputs, v float64) {
				in.DH.FuelPriceEURPerMWh *= v
			},
		},
		{
			Name: "electricity_price_eur_per_mwh",
			Dist: economics.Lognormal{MuLog: 0, SigmaLog: 0.20},
			Apply: func(in *economics.Inputs, v float64) {
				in.HP.ElectricityPriceEURPerMWh *= v
			},
		},
		{
			Name: "discount_rate",
			Dist: economics.Normal{Mean: 0, StdDev: 0.01, Clip: true, ClipMin: -0.9, ClipMax: 0.9},
			Apply: func(in *economics.Inputs, v float64) {
				in.Shared.DiscountRate += v
			},
		},
		{
			Name: "dh_capex_multiplier",
			Dist: economics.Triangular{Min: 0.85, Mode: 1.0, Max: 1.25},
			Apply: func(in *economics.Inputs, v float64) {
				in.DH.PipeCostEUR *= v
				in.DH.PlantCostEUR *= v
			},
		},
		{
			Name: "hp_capex_multiplier",
			Dist: economics.Triangular{Min: 0.85, Mode: 1.0, Max: 1.25},
			Apply: func(in *economics.Inputs, v float64) {
				in.HP.EquipmentCostEURPerKWThermal *= v
			},
		},
	}
}
