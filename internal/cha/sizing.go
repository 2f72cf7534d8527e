package cha

import (
	"math"

	"github.com/muniheat/dhcore/internal/catalog"
)

const (
	// WaterDensityKgM3 and WaterViscosityPaS are fixed fluid properties
	// for the supply/return temperature band this system targets; §9
	// leaves specific-heat-like constants adjustable via config, but no
	// upstream override was supplied for these, so they are named
	// constants here.
	WaterDensityKgM3  = 970.0
	WaterViscosityPaS = 0.40e-3

	VelocityTargetMS  = 1.5
	VelocityLimitMS   = 1.5
	DPPer100mLimitBar = 0.3

	DesignMarginFrac = 0.25
)

// RequiredDiameterM returns the candidate inner diameter from target
// velocity and mass flow: d_req = sqrt(4*mdot / (pi*rho*v_target)).
func RequiredDiameterM(massFlowKgS float64) float64 {
	if massFlowKgS <= 0 {
		return 0
	}
	return math.Sqrt(4 * massFlowKgS / (math.Pi * WaterDensityKgM3 * VelocityTargetMS))
}

// VelocityMS computes the flow velocity in a pipe of given inner diameter.
func VelocityMS(massFlowKgS, innerDiameterM float64) float64 {
	if innerDiameterM <= 0 {
		return math.Inf(1)
	}
	area := math.Pi / 4 * innerDiameterM * innerDiameterM
	return massFlowKgS / (WaterDensityKgM3 * area)
}

// SwameeJainDPPer100mBar returns the frictional pressure drop per 100 m
// using the Swamee-Jain explicit approximation of the Darcy friction
// factor, in bar.
func SwameeJainDPPer100mBar(velocityMS, innerDiameterM, roughnessMM float64) float64 {
	if innerDiameterM <= 0 || velocityMS <= 0 {
		return 0
	}
	re := WaterDensityKgM3 * velocityMS * innerDiameterM / WaterViscosityPaS
	if re < 2300 {
		re = 2300 // laminar floor; district-heating trunks are always turbulent in practice
	}
	roughnessM := roughnessMM / 1000.0
	term := roughnessM/(3.7*innerDiameterM) + 5.74/math.Pow(re, 0.9)
	f := 0.25 / math.Pow(math.Log10(term), 2)
	dpPaPerM := f * (WaterDensityKgM3 * velocityMS * velocityMS) / (2 * innerDiameterM)
	dpBarPer100m := dpPaPerM * 100 / 1e5
	return dpBarPer100m
}

// SizeResult is the outcome of selecting a catalog DN for one pipe.
type SizeResult struct {
	Row               catalog.PipeRow
	VelocityMS        float64
	DPPer100mBar      float64
	VelocityViolation bool
	DPViolation       bool
}

// SizePipe selects the smallest catalog DN satisfying both the velocity
// and Swamee-Jain pressure-drop limits for role, per §4.4. If the catalog
// is exhausted, the largest DN is kept and the appropriate violation flag
// set.
func SizePipe(massFlowKgS float64, role Role, cat *catalog.PipeCatalog) SizeResult {
	dReq := RequiredDiameterM(massFlowKgS)
	var row catalog.PipeRow
	var v, dp float64
	for {
		var ok bool
		row, ok = cat.SelectDN(dReq)
		if !ok {
			row = cat.Largest()
		}
		v = VelocityMS(massFlowKgS, row.InnerDiameterM)
		dp = SwameeJainDPPer100mBar(v, row.InnerDiameterM, row.RoughnessMM)
		if !ok || (v <= VelocityLimitMS && dp <= DPPer100mLimitBar) || row == cat.Largest() {
			break
		}
		// Step to the next larger DN in the catalog.
		dReq = math.Nextafter(row.InnerDiameterM, math.Inf(1))
	}

	res := SizeResult{
		Row:          row,
		VelocityMS:   v,
		DPPer100mBar: dp,
	}
	if v > VelocityLimitMS {
		res.VelocityViolation = true
	}
	if dp > DPPer100mLimitBar {
		res.DPViolation = true
	}
	return res
}

// ApplyDesignMargin scales a raw design load by the fixed 25% margin
// applied to all building loads prior to sizing (§4.4).
func ApplyDesignMargin(designLoadKW float64) float64 {
	return designLoadKW * (1 + DesignMarginFrac)
}

// MassFlowKgS converts a thermal load in kW to a mass flow rate given the
// supply/return temperature split and water's specific heat.
func MassFlowKgS(loadKW, cpJPerKgK, supplyTempC, returnTempC float64) float64 {
	dT := supplyTempC - returnTempC
	if dT <= 0 || cpJPerKgK <= 0 {
		return 0
	}
	return (loadKW * 1000) / (cpJPerKgK * dT)
}
