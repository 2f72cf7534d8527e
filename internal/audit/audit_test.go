package audit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muniheat/dhcore/internal/contract"
	"github.com/muniheat/dhcore/internal/decision"
	"github.com/muniheat/dhcore/internal/explain"
)

func sampleContract() *contract.Contract {
	return &contract.Contract{
		DistrictHeating: contract.DistrictHeating{
			Feasible: true,
			LCOH:     contract.Quantiles{Median: 75},
			CO2:      contract.Quantiles{Median: 200},
		},
		HeatPumps: contract.HeatPumps{
			Feasible: false,
			LCOH:     contract.Quantiles{Median: 85},
			CO2:      contract.Quantiles{Median: 110},
		},
	}
}

func TestAuditPassesOnEntailedTemplate(t *testing.T) {
	c := sampleContract()
	d := decision.Result{Choice: decision.ChoiceDH, Robust: true, ReasonCodes: []decision.ReasonCode{decision.ReasonOnlyDHFeasible, decision.ReasonRobustDecision}}
	p := explain.BuildPrompt(c, d, explain.StyleDetailed)
	text := explain.Template(c, d, explain.StyleDetailed)
	rep := Audit(text, c, d, p, nil)
	require.Equal(t, StatusPass, rep.Status)
	require.Zero(t, rep.ContradictionCount)
}

func TestAuditFlagsWrongChoiceClaim(t *testing.T) {
	c := sampleContract()
	d := decision.Result{Choice: decision.ChoiceDH, ReasonCodes: []decision.ReasonCode{decision.ReasonOnlyDHFeasible}}
	p := explain.BuildPrompt(c, d, explain.StyleExecutive)
	text := "The recommended choice is heat pumps for this street cluster based on the analysis."
	rep := Audit(text, c, d, p, nil)
	require.Equal(t, StatusFail, rep.Status)
	require.Equal(t, 1, rep.ContradictionCount)
}

func TestAuditFlagsUnsupportedNumeric(t *testing.T) {
	c := sampleContract()
	d := decision.Result{Choice: decision.ChoiceDH, ReasonCodes: []decision.ReasonCode{decision.ReasonOnlyDHFeasible}}
	p := explain.BuildPrompt(c, d, explain.StyleExecutive)
	text := "The district heating system will cost approximately 999999.0 EUR per MWh to operate reliably."
	rep := Audit(text, c, d, p, nil)
	require.Equal(t, StatusFail, rep.Status)
}

func TestAuditNeutralOnUnmatchedSentenceDrivesWarning(t *testing.T) {
	c := sampleContract()
	d := decision.Result{Choice: decision.ChoiceDH, ReasonCodes: []decision.ReasonCode{decision.ReasonOnlyDHFeasible}}
	p := explain.BuildPrompt(c, d, explain.StyleExecutive)
	text := "This street cluster has a long and interesting urban planning history worth noting."
	rep := Audit(text, c, d, p, nil)
	require.Equal(t, StatusWarning, rep.Status)
	require.Equal(t, 1, rep.UnverifiedCount)
}

func TestRunWithFeedbackFallsBackToTemplateOnExhaustion(t *testing.T) {
	c := sampleContract()
	d := decision.Result{Choice: decision.ChoiceDH, Robust: true, ReasonCodes: []decision.ReasonCode{decision.ReasonOnlyDHFeasible, decision.ReasonRobustDecision}}
	p := explain.BuildPrompt(c, d, explain.StyleExecutive)

	badText := "The recommended choice is heat pumps for this street cluster based on the analysis."
	regenCalls := 0
	regen := func(ctx string) (string, error) {
		regenCalls++
		return badText, nil
	}

	out, err := RunWithFeedback(badText, c, d, p, nil, true, 3, regen)
	require.NoError(t, err)
	require.True(t, out.UsedTemplate)
	require.Equal(t, StatusPass, out.Report.Status)
	require.Equal(t, 1, regenCalls)
}

func TestRunWithFeedbackSucceedsWithoutRegenerationWhenInitialTextPasses(t *testing.T) {
	c := sampleContract()
	d := decision.Result{Choice: decision.ChoiceDH, Robust: true, ReasonCodes: []decision.ReasonCode{decision.ReasonOnlyDHFeasible, decision.ReasonRobustDecision}}
	p := explain.BuildPrompt(c, d, explain.StyleExecutive)
	text := explain.Template(c, d, explain.StyleExecutive)

	regen := func(ctx string) (string, error) { t.Fatal("regen should not be called"); return "", nil }

	out, err := RunWithFeedback(text, c, d, p, nil, true, 3, regen)
	require.NoError(t, err)
	require.False(t, out.UsedTemplate)
	require.Equal(t, StatusPass, out.Report.Status)
}
