// Package economics implements the CRF-based LCOH/CO2 evaluator and its
// seeded Monte Carlo uncertainty propagation (§4.12).
package economics

import "math"

// SharedInputs are parameters common to both options.
type SharedInputs struct {
	DiscountRate  float64
	LifetimeYears int
	AnnualHeatMWh float64
}

// DHInputs are the district-heating cost and emissions parameters.
type DHInputs struct {
	PipeCostEUR                float64 // summed from the CHA pipe catalog selection
	PumpCostEURPerKW           float64
	PumpPowerKW                float64
	PlantCostEUR               float64
	FixedOPEXShareOfCapex      float64
	FuelPriceEURPerMWh         float64
	BoilerEfficiency           float64
	FuelEmissionFactorKgPerMWh float64
}

// HPInputs are the heat-pump cost and emissions parameters.
type HPInputs struct {
	EquipmentCostEURPerKWThermal      float64
	TotalKWDesign                     float64
	OverloadFraction                  float64 // from the DHA KPI block
	PlanningLoadingThresholdFraction  float64
	LVUpgradeCostEURPerKW             float64
	FixedOPEXShareOfCapex             float64
	ElectricityPriceEURPerMWh         float64
	COP                               float64
	GridEmissionFactorKgPerMWh        float64
}

// Inputs bundles every parameter the deterministic evaluator and the
// Monte Carlo engine consume; Monte Carlo perturbs a copy per sample.
type Inputs struct {
	Shared SharedInputs
	DH     DHInputs
	HP     HPInputs
}

// DeterministicResult is one evaluation's LCOH/CO2 outputs for both
// options (§3 Economics sample, minus sample_id/sampled_params).
type DeterministicResult struct {
	LCOHDHEURPerMWh float64
	LCOHHPEURPerMWh float64
	CO2DHTPerA      float64
	CO2HPTPerA      float64
}

// CRF computes the capital recovery factor. CRF(r,n) = r(1+r)^n /
// ((1+r)^n - 1); when r is effectively zero, CRF = 1/n (§4.12).
func CRF(r float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	if math.Abs(r) < 1e-9 {
		return 1.0 / float64(n)
	}
	pow := math.Pow(1+r, float64(n))
	return r * pow / (pow - 1)
}

// DHCapexEUR sums pipe cost by DN, pump cost, and plant cost (§4.12).
func DHCapexEUR(dh DHInputs) float64 {
	return dh.PipeCostEUR + dh.PumpCostEURPerKW*dh.PumpPowerKW + dh.PlantCostEUR
}

// HPCapexEUR sums equipment cost per kW thermal and a conditional LV
// upgrade term proportional to the overload fraction above the planning
// loading threshold (§4.12).
func HPCapexEUR(hp HPInputs) float64 {
	capex := hp.EquipmentCostEURPerKWThermal * hp.TotalKWDesign
	excess := hp.OverloadFraction - hp.PlanningLoadingThresholdFraction
	if excess > 0 {
		capex += hp.LVUpgradeCostEURPerKW * hp.TotalKWDesign * excess
	}
	return capex
}

// DHOpexEUR is fixed (share of CAPEX) plus variable (heat/eta * fuel
// price) annual operating cost (§4.12).
func DHOpexEUR(dh DHInputs, capexEUR, annualHeatMWh float64) float64 {
	fixed := dh.FixedOPEXShareOfCapex * capexEUR
	variable := 0.0
	if dh.BoilerEfficiency > 0 {
		variable = (annualHeatMWh / dh.BoilerEfficiency) * dh.FuelPriceEURPerMWh
	}
	return fixed + variable
}

// HPOpexEUR is fixed (share of CAPEX) plus variable (heat/COP *
// electricity price) annual operating cost (§4.12).
func HPOpexEUR(hp HPInputs, capexEUR, annualHeatMWh float64) float64 {
	fixed := hp.FixedOPEXShareOfCapex * capexEUR
	variable := 0.0
	if hp.COP > 0 {
		variable = (annualHeatMWh / hp.COP) * hp.ElectricityPriceEURPerMWh
	}
	return fixed + variable
}

// DHCO2TPerA converts fuel-equivalent heat delivery to tonnes CO2/year.
func DHCO2TPerA(dh DHInputs, annualHeatMWh float64) float64 {
	if dh.BoilerEfficiency <= 0 {
		return 0
	}
	kg := (annualHeatMWh / dh.BoilerEfficiency) * dh.FuelEmissionFactorKgPerMWh
	return kg / 1000.0
}

// HPCO2TPerA converts grid-electricity-equivalent heat delivery to
// tonnes CO2/year.
func HPCO2TPerA(hp HPInputs, annualHeatMWh float64) float64 {
	if hp.COP <= 0 {
		return 0
	}
	kg := (annualHeatMWh / hp.COP) * hp.GridEmissionFactorKgPerMWh
	return kg / 1000.0
}

// LCOH computes (CAPEX*CRF + annual OPEX) / annual heat (§4.12).
func LCOH(capexEUR, opexEUR, crf, annualHeatMWh float64) float64 {
	if annualHeatMWh <= 0 {
		return 0
	}
	return (capexEUR*crf + opexEUR) / annualHeatMWh
}

// Deterministic evaluates both options once at the given input point.
func Deterministic(in Inputs) DeterministicResult {
	crf := CRF(in.Shared.DiscountRate, in.Shared.LifetimeYears)
	dhCapex := DHCapexEUR(in.DH)
	hpCapex := HPCapexEUR(in.HP)
	dhOpex := DHOpexEUR(in.DH, dhCapex, in.Shared.AnnualHeatMWh)
	hpOpex := HPOpexEUR(in.HP, hpCapex, in.Shared.AnnualHeatMWh)
	return DeterministicResult{
		LCOHDHEURPerMWh: LCOH(dhCapex, dhOpex, crf, in.Shared.AnnualHeatMWh),
		LCOHHPEURPerMWh: LCOH(hpCapex, hpOpex, crf, in.Shared.AnnualHeatMWh),
		CO2DHTPerA:      DHCO2TPerA(in.DH, in.Shared.AnnualHeatMWh),
		CO2HPTPerA:      HPCO2TPerA(in.HP, in.Shared.AnnualHeatMWh),
	}
}
