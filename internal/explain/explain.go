// Package explain assembles a style-keyed natural-language explanation of
// a decision from contract-only fields (§4.15), optionally delegating text
// generation to an external model behind a circuit breaker and rate
// limiter, and always falling back to a deterministic template.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muniheat/dhcore/internal/contract"
	"github.com/muniheat/dhcore/internal/decision"
)

// Style is the closed set of explanation registers.
type Style string

const (
	StyleExecutive Style = "executive"
	StyleTechnical Style = "technical"
	StyleDetailed  Style = "detailed"
)

// AllowedStandards is the closed set of standards names the generator and
// the auditor both recognize (§4.15).
var AllowedStandards = []string{"EN 13941-1", "VDE-AR-N 4100"}

// Numeric is one contract-derived value the generator is permitted to
// cite, carrying enough context for both prompt assembly and auditing.
type Numeric struct {
	Field string
	Value float64
	Unit  string
}

// Prompt is the fully-assembled, contract-only generation request.
type Prompt struct {
	Style       Style
	Numerics    []Numeric
	Choice      decision.Choice
	ReasonCodes []decision.ReasonCode
	Rules       []string
	Text        string
}

// BuildPrompt enumerates every DH/HP metric with units, the decision
// choice and reason codes, and the citation rules, under the requested
// style. The prompt is built only from contract and decision fields —
// never from raw upstream inputs — so every numeric it lists is
// independently auditable (§4.15).
func BuildPrompt(c *contract.Contract, d decision.Result, style Style) Prompt {
	numerics := []Numeric{
		{"district_heating.lcoh.median", c.DistrictHeating.LCOH.Median, "EUR/MWh"},
		{"district_heating.co2.median", c.DistrictHeating.CO2.Median, "t/a"},
		{"heat_pumps.lcoh.median", c.HeatPumps.LCOH.Median, "EUR/MWh"},
		{"heat_pumps.co2.median", c.HeatPumps.CO2.Median, "t/a"},
		{"heat_pumps.lv_grid.max_feeder_loading_pct", c.HeatPumps.LVGrid.MaxFeederLoadingPct, "%"},
		{"district_heating.hydraulics.v_max_ms", c.DistrictHeating.Hydraulics.VMaxMS, "m/s"},
	}
	if c.MonteCarlo != nil {
		numerics = append(numerics,
			Numeric{"monte_carlo.dh_wins_fraction", c.MonteCarlo.DHWinsFraction, "fraction"},
			Numeric{"monte_carlo.hp_wins_fraction", c.MonteCarlo.HPWinsFraction, "fraction"},
		)
	}

	rules := []string{
		fmt.Sprintf("cite only the numerics listed above, each within ±1%% of its stated value"),
		fmt.Sprintf("cite only the standards names %s", strings.Join(AllowedStandards, " or ")),
		"state the recommended choice and its reason codes verbatim",
	}

	p := Prompt{Style: style, Numerics: numerics, Choice: d.Choice, ReasonCodes: d.ReasonCodes, Rules: rules}
	p.Text = renderPromptText(p)
	return p
}

func renderPromptText(p Prompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "style: %s\n", p.Style)
	fmt.Fprintf(&b, "choice: %s\n", p.Choice)
	codes := make([]string, len(p.ReasonCodes))
	for i, r := range p.ReasonCodes {
		codes[i] = string(r)
	}
	fmt.Fprintf(&b, "reason_codes: %s\n", strings.Join(codes, ", "))
	fmt.Fprintln(&b, "metrics:")
	for _, n := range p.Numerics {
		fmt.Fprintf(&b, "  %s = %.4g %s\n", n.Field, n.Value, n.Unit)
	}
	fmt.Fprintln(&b, "rules:")
	for _, r := range p.Rules {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	return b.String()
}

// Template renders the deterministic fallback text directly from contract
// and decision fields, without any external generator (§4.15). It is
// itself subject to auditing before emission, like any other candidate.
func Template(c *contract.Contract, d decision.Result, style Style) string {
	var b strings.Builder

	switch style {
	case StyleExecutive:
		fmt.Fprintf(&b, "Recommended choice: %s.\n", d.Choice)
	case StyleTechnical:
		fmt.Fprintf(&b, "Decision: %s (robust=%t).\n", d.Choice, d.Robust)
	default:
		fmt.Fprintf(&b, "Decision cascade selected %s (robust=%t).\n", d.Choice, d.Robust)
	}

	fmt.Fprintf(&b, "District heating LCOH is %.2f EUR/MWh with %.1f t/a CO2; heat pumps LCOH is %.2f EUR/MWh with %.1f t/a CO2.\n",
		c.DistrictHeating.LCOH.Median, c.DistrictHeating.CO2.Median,
		c.HeatPumps.LCOH.Median, c.HeatPumps.CO2.Median)

	if style == StyleDetailed || style == StyleTechnical {
		fmt.Fprintf(&b, "Heat pump maximum feeder loading is %.1f%%; district heating peak velocity is %.2f m/s.\n",
			c.HeatPumps.LVGrid.MaxFeederLoadingPct, c.DistrictHeating.Hydraulics.VMaxMS)
	}

	reasons := make([]string, len(d.ReasonCodes))
	for i, r := range d.ReasonCodes {
		reasons[i] = string(r)
	}
	sort.Strings(reasons)
	fmt.Fprintf(&b, "Reasons: %s.\n", strings.Join(reasons, ", "))

	if c.MonteCarlo != nil {
		fmt.Fprintf(&b, "Monte Carlo robustness check ran %d samples (seed %d): district heating wins %.0f%% of samples, heat pumps win %.0f%%.\n",
			c.MonteCarlo.NSamples, c.MonteCarlo.Seed, c.MonteCarlo.DHWinsFraction*100, c.MonteCarlo.HPWinsFraction*100)
	} else {
		fmt.Fprintln(&b, "No Monte Carlo robustness check was run.")
	}

	return b.String()
}
