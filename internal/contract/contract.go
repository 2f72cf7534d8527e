// Package contract assembles CHA, DHA, and Economics outputs into the
// canonical KPI contract (§3, §4.13): a schema-validated, versioned,
// content-addressable record that the decision engine and explanation
// generator consume.
package contract

import "time"

const SchemaVersion = "1.0"

// Quantiles mirrors the contract schema's {p05, median, p95} shape.
type Quantiles struct {
	P05    float64 `json:"p05"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
}

// Metadata records provenance: creation time, the input digest that
// makes the contract content-addressable, and an optional build commit.
type Metadata struct {
	CreatedUTC       time.Time         `json:"created_utc"`
	Inputs           map[string]string `json:"inputs"`
	GitCommit        string            `json:"git_commit,omitempty"`
	InputDigest      string            `json:"input_digest"`
	ValidationStatus string            `json:"validation_status"`
}

// Hydraulics mirrors the CHA hydraulics sub-block.
type Hydraulics struct {
	VelocityOK         bool    `json:"velocity_ok"`
	DPOK               bool    `json:"dp_ok"`
	VMaxMS             float64 `json:"v_max_ms"`
	VShareWithinLimits float64 `json:"v_share_within_limits"`
}

// Losses mirrors the CHA losses sub-block.
type Losses struct {
	TotalLengthM float64 `json:"total_length_m"`
	LossSharePct float64 `json:"loss_share_pct"`
	PumpPowerKW  float64 `json:"pump_power_kw"`
}

// DistrictHeating is the contract's CHA-derived block.
type DistrictHeating struct {
	Feasible   bool       `json:"feasible"`
	Reasons    []string   `json:"reasons"`
	LCOH       Quantiles  `json:"lcoh"`
	CO2        Quantiles  `json:"co2"`
	Hydraulics Hydraulics `json:"hydraulics"`
	Losses     Losses     `json:"losses"`
}

// LVGrid is the contract's DHA-derived mitigation summary.
type LVGrid struct {
	PlanningWarning           bool    `json:"planning_warning"`
	MaxFeederLoadingPct       float64 `json:"max_feeder_loading_pct"`
	VoltageViolationsTotal    int     `json:"voltage_violations_total"`
	LineViolationsTotal       int     `json:"line_violations_total"`
}

// HPSystem is the contract's heat-pump equipment summary.
type HPSystem struct {
	HPTotalKWDesign float64 `json:"hp_total_kw_design"`
}

// HeatPumps is the contract's DHA-derived block.
type HeatPumps struct {
	Feasible bool      `json:"feasible"`
	Reasons  []string  `json:"reasons"`
	LCOH     Quantiles `json:"lcoh"`
	CO2      Quantiles `json:"co2"`
	LVGrid   LVGrid    `json:"lv_grid"`
	HPSystem HPSystem  `json:"hp_system"`
}

// MonteCarlo is the optional Monte Carlo summary block.
type MonteCarlo struct {
	DHWinsFraction float64 `json:"dh_wins_fraction"`
	HPWinsFraction float64 `json:"hp_wins_fraction"`
	NSamples       int     `json:"n_samples"`
	Seed           int64   `json:"seed"`
}

// Contract is the canonical versioned record (§3).
type Contract struct {
	Version         string          `json:"version"`
	ClusterID       string          `json:"cluster_id"`
	Metadata        Metadata        `json:"metadata"`
	DistrictHeating DistrictHeating `json:"district_heating"`
	HeatPumps       HeatPumps       `json:"heat_pumps"`
	MonteCarlo      *MonteCarlo     `json:"monte_carlo,omitempty"`
}
