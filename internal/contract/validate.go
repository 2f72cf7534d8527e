package contract

import (
	"fmt"

	"github.com/muniheat/dhcore/internal/cha"
	"github.com/muniheat/dhcore/internal/dha"
	"github.com/muniheat/dhcore/internal/errs"
)

var closedReasonCodes = map[string]bool{
	string(cha.ReasonDHOK):                true,
	string(cha.ReasonDHVelocityViolation):  true,
	string(cha.ReasonDHDPViolation):        true,
	string(cha.ReasonCHAMissingKPIs):       true,
	string(cha.ReasonCHANonConvergence):    true,
	string(dha.ReasonHPOK):                 true,
	string(dha.ReasonHPVoltageViolation):   true,
	string(dha.ReasonHPLineViolation):      true,
	string(dha.ReasonHPTrafoViolation):     true,
	string(dha.ReasonDHAMissingKPIs):       true,
	string(dha.ReasonDHANonConvergence):    true,
}

// Validate checks the contract against §4.13's rejection rules, returning
// every violation found (nil means the contract validates). Required
// numeric fields that are structurally present but semantically absent
// (feasible forced false with a *_MISSING_KPIS reason) are the caller's
// responsibility to set before calling Validate; this function only
// checks the assembled record.
func Validate(c *Contract) []string {
	var problems []string

	if c.Version != SchemaVersion {
		problems = append(problems, fmt.Sprintf("version %q does not equal %q", c.Version, SchemaVersion))
	}
	if c.ClusterID == "" {
		problems = append(problems, "cluster_id is required")
	}
	if c.Metadata.InputDigest == "" {
		problems = append(problems, "metadata.input_digest is required")
	}

	problems = append(problems, validateReasons("district_heating.reasons", c.DistrictHeating.Reasons)...)
	problems = append(problems, validateReasons("heat_pumps.reasons", c.HeatPumps.Reasons)...)

	if len(c.DistrictHeating.Reasons) == 0 {
		problems = append(problems, "district_heating.reasons must be non-empty")
	}
	if len(c.HeatPumps.Reasons) == 0 {
		problems = append(problems, "heat_pumps.reasons must be non-empty")
	}

	problems = append(problems, validateQuantileOrder("district_heating.lcoh", c.DistrictHeating.LCOH)...)
	problems = append(problems, validateQuantileOrder("district_heating.co2", c.DistrictHeating.CO2)...)
	problems = append(problems, validateQuantileOrder("heat_pumps.lcoh", c.HeatPumps.LCOH)...)
	problems = append(problems, validateQuantileOrder("heat_pumps.co2", c.HeatPumps.CO2)...)

	if c.DistrictHeating.Losses.LossSharePct < 0 {
		problems = append(problems, "district_heating.losses.loss_share_pct must be non-negative")
	}
	if c.HeatPumps.LVGrid.VoltageViolationsTotal < 0 {
		problems = append(problems, "heat_pumps.lv_grid.voltage_violations_total must be non-negative")
	}
	if c.HeatPumps.LVGrid.LineViolationsTotal < 0 {
		problems = append(problems, "heat_pumps.lv_grid.line_violations_total must be non-negative")
	}
	if c.HeatPumps.LVGrid.MaxFeederLoadingPct < 0 || c.HeatPumps.LVGrid.MaxFeederLoadingPct > 1000 {
		problems = append(problems, "heat_pumps.lv_grid.max_feeder_loading_pct must be within [0, 1000]")
	}

	if c.MonteCarlo != nil {
		if c.MonteCarlo.NSamples < 0 {
			problems = append(problems, "monte_carlo.n_samples must be non-negative")
		}
		if c.MonteCarlo.DHWinsFraction < 0 || c.MonteCarlo.DHWinsFraction > 1 {
			problems = append(problems, "monte_carlo.dh_wins_fraction must be within [0,1]")
		}
		if c.MonteCarlo.HPWinsFraction < 0 || c.MonteCarlo.HPWinsFraction > 1 {
			problems = append(problems, "monte_carlo.hp_wins_fraction must be within [0,1]")
		}
	}

	return problems
}

// ValidateOrError wraps Validate, returning errs.ErrSchemaValidation
// carrying every accumulated problem when validation fails.
func ValidateOrError(c *Contract) error {
	problems := Validate(c)
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", errs.ErrSchemaValidation, problems)
}

func validateReasons(field string, reasons []string) []string {
	var problems []string
	for _, r := range reasons {
		if !closedReasonCodes[r] {
			problems = append(problems, fmt.Sprintf("%s contains unknown reason code %q", field, r))
		}
	}
	return problems
}

func validateQuantileOrder(field string, q Quantiles) []string {
	var problems []string
	if q.P05 > q.Median {
		problems = append(problems, fmt.Sprintf("%s: p05 (%v) must be <= median (%v)", field, q.P05, q.Median))
	}
	if q.Median > q.P95 {
		problems = append(problems, fmt.Sprintf("%s: median (%v) must be <= p95 (%v)", field, q.Median, q.P95))
	}
	return problems
}
