// Package audit implements the tabular-entailment auditor (§4.16): it
// checks that every factual sentence in a generated explanation is
// entailed by the KPI contract the explanation was built from.
package audit

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/muniheat/dhcore/internal/contract"
	"github.com/muniheat/dhcore/internal/decision"
	"github.com/muniheat/dhcore/internal/explain"
)

// Verdict is the closed set of per-sentence entailment outcomes.
type Verdict string

const (
	VerdictEntailment    Verdict = "entailment"
	VerdictContradiction Verdict = "contradiction"
	VerdictNeutral       Verdict = "neutral"
)

// Status is the closed set of overall audit outcomes.
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// SentenceResult is one sentence's audit outcome.
type SentenceResult struct {
	Sentence   string
	Verdict    Verdict
	Confidence float64
	Evidence   string
}

// Report is the auditor's full output for one candidate text.
type Report struct {
	Sentences         []SentenceResult
	VerifiedCount     int
	UnverifiedCount   int
	ContradictionCount int
	Status            Status
	Confidence        float64
}

// numericTolerance is the ±1% after-unit-normalization tolerance for
// matching an explicit numeric literal against contract fields (§4.16).
const numericTolerance = 0.01

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// Audit runs the sentence-split and rule pass over text, comparing every
// claim against the contract and decision it was generated from. model,
// if non-nil, is consulted only for sentences the rule pass leaves
// Neutral, and can only upgrade Neutral to Entailment or Contradiction —
// never override a rule verdict (§4.16 step 3).
func Audit(text string, c *contract.Contract, d decision.Result, p explain.Prompt, model ModelAuditor) Report {
	var rep Report
	for _, s := range splitSentences(text) {
		res := ruleCheck(s, c, d, p)
		if res.Verdict == VerdictNeutral && model != nil {
			if mv, ok := model.Classify(s, c, d); ok && mv != VerdictNeutral {
				res.Verdict = mv
				res.Evidence = "model pass: " + res.Evidence
			}
		}
		rep.Sentences = append(rep.Sentences, res)
	}
	return aggregate(rep)
}

// ModelAuditor is the optional external entailment model (§4.16 step 3).
// Classify returns ok=false on any model failure; Audit's caller is
// responsible for disabling the model for the remainder of the run after
// the first such failure (fail-closed).
type ModelAuditor interface {
	Classify(sentence string, c *contract.Contract, d decision.Result) (Verdict, bool)
}

// splitSentences splits on terminal punctuation and drops fragments
// shorter than 15 characters or containing no letters (§4.16 step 1).
func splitSentences(text string) []string {
	raw := regexp.MustCompile(`[.!?]+`).Split(text, -1)
	var out []string
	hasLetter := regexp.MustCompile(`[A-Za-z]`)
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) < 15 || !hasLetter.MatchString(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func ruleCheck(sentence string, c *contract.Contract, d decision.Result, p explain.Prompt) SentenceResult {
	lower := strings.ToLower(sentence)

	if verdict, evidence, matched := checkRecommendedChoice(lower, d); matched {
		return SentenceResult{sentence, verdict, 0.95, evidence}
	}
	if verdict, evidence, matched := checkOnlyFeasible(lower, c); matched {
		return SentenceResult{sentence, verdict, 0.95, evidence}
	}
	if verdict, evidence, matched := checkRobustness(lower, d, p); matched {
		return SentenceResult{sentence, verdict, 0.9, evidence}
	}
	if verdict, evidence, matched := checkComparative(lower, c); matched {
		return SentenceResult{sentence, verdict, 0.85, evidence}
	}
	if verdict, evidence, matched := checkNumerics(sentence, p); matched {
		return SentenceResult{sentence, verdict, 0.9, evidence}
	}

	return SentenceResult{sentence, VerdictNeutral, 0.5, "no rule matched"}
}

func checkRecommendedChoice(lower string, d decision.Result) (Verdict, string, bool) {
	if !strings.Contains(lower, "recommend") && !strings.Contains(lower, "decision") && !strings.Contains(lower, "choice") {
		return "", "", false
	}
	saysDH := strings.Contains(lower, "district heating") || strings.Contains(lower, " dh ") || strings.HasSuffix(lower, " dh")
	saysHP := strings.Contains(lower, "heat pump") || strings.Contains(lower, " hp ") || strings.HasSuffix(lower, " hp")
	if !saysDH && !saysHP {
		return "", "", false
	}
	claimed := decision.ChoiceHP
	if saysDH {
		claimed = decision.ChoiceDH
	}
	if claimed == d.Choice {
		return VerdictEntailment, "decision.choice", true
	}
	return VerdictContradiction, "decision.choice", true
}

func checkOnlyFeasible(lower string, c *contract.Contract) (Verdict, string, bool) {
	if !strings.Contains(lower, "only") || !strings.Contains(lower, "feasible") {
		return "", "", false
	}
	claimsDHOnly := strings.Contains(lower, "district heating") || strings.Contains(lower, " dh ") ||
		strings.Contains(lower, "only_dh_feasible")
	actualDHOnly := c.DistrictHeating.Feasible && !c.HeatPumps.Feasible
	actualHPOnly := c.HeatPumps.Feasible && !c.DistrictHeating.Feasible
	if claimsDHOnly && actualDHOnly {
		return VerdictEntailment, "district_heating.feasible,heat_pumps.feasible", true
	}
	if !claimsDHOnly && actualHPOnly {
		return VerdictEntailment, "district_heating.feasible,heat_pumps.feasible", true
	}
	return VerdictContradiction, "district_heating.feasible,heat_pumps.feasible", true
}

func checkRobustness(lower string, d decision.Result, p explain.Prompt) (Verdict, string, bool) {
	if !strings.Contains(lower, "robust") {
		return "", "", false
	}
	claimsRobust := !strings.Contains(lower, "not robust") && !strings.Contains(lower, "sensitive")
	if claimsRobust == d.Robust {
		return VerdictEntailment, "decision.robust", true
	}
	return VerdictContradiction, "decision.robust", true
}

func checkComparative(lower string, c *contract.Contract) (Verdict, string, bool) {
	cheaper := strings.Contains(lower, "cheaper") || strings.Contains(lower, "lower cost")
	lowerEmissions := strings.Contains(lower, "lower emission") || strings.Contains(lower, "less co2") || strings.Contains(lower, "lower co2")
	if !cheaper && !lowerEmissions {
		return "", "", false
	}
	claimsDH := strings.Contains(lower, "district heating") || strings.Contains(lower, " dh ")
	if cheaper {
		actualDHCheaper := c.DistrictHeating.LCOH.Median <= c.HeatPumps.LCOH.Median
		if claimsDH == actualDHCheaper {
			return VerdictEntailment, "district_heating.lcoh.median,heat_pumps.lcoh.median", true
		}
		return VerdictContradiction, "district_heating.lcoh.median,heat_pumps.lcoh.median", true
	}
	actualDHLower := c.DistrictHeating.CO2.Median <= c.HeatPumps.CO2.Median
	if claimsDH == actualDHLower {
		return VerdictEntailment, "district_heating.co2.median,heat_pumps.co2.median", true
	}
	return VerdictContradiction, "district_heating.co2.median,heat_pumps.co2.median", true
}

// checkNumerics matches every explicit numeric literal in sentence
// against the prompt's allowed-numerics set within ±1% tolerance. A
// sentence with no numeric literal does not match this rule at all.
func checkNumerics(sentence string, p explain.Prompt) (Verdict, string, bool) {
	matches := numberPattern.FindAllString(sentence, -1)
	if len(matches) == 0 {
		return "", "", false
	}
	allContradicted := true
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		if anyNumericWithinTolerance(v, p.Numerics) {
			allContradicted = false
		}
	}
	if allContradicted {
		return VerdictContradiction, "no numeric in contract matches within tolerance", true
	}
	return VerdictEntailment, "numeric literal matched a contract field", true
}

func anyNumericWithinTolerance(v float64, numerics []explain.Numeric) bool {
	for _, n := range numerics {
		if n.Value == 0 {
			if math.Abs(v) < 1e-9 {
				return true
			}
			continue
		}
		if math.Abs(v-n.Value)/math.Abs(n.Value) <= numericTolerance {
			return true
		}
	}
	return false
}

func aggregate(rep Report) Report {
	var sumConf float64
	for _, s := range rep.Sentences {
		sumConf += s.Confidence
		switch s.Verdict {
		case VerdictEntailment:
			rep.VerifiedCount++
		case VerdictNeutral:
			rep.UnverifiedCount++
		case VerdictContradiction:
			rep.ContradictionCount++
		}
	}
	n := len(rep.Sentences)
	if n > 0 {
		rep.Confidence = sumConf / float64(n)
	}

	switch {
	case rep.ContradictionCount > 0:
		rep.Status = StatusFail
	case n > 0 && float64(rep.UnverifiedCount)/float64(n) >= 0.5:
		rep.Status = StatusWarning
	default:
		rep.Status = StatusPass
	}
	return rep
}
