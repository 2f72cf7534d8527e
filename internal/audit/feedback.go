package audit

import (
	"fmt"

	"github.com/muniheat/dhcore/internal/contract"
	"github.com/muniheat/dhcore/internal/decision"
	"github.com/muniheat/dhcore/internal/errs"
	"github.com/muniheat/dhcore/internal/explain"
)

// RegenerateFunc re-runs text generation given an enriched context
// listing the contradictory sentences and the contract fields they
// violated. Returning an error halts the feedback loop immediately.
type RegenerateFunc func(enrichedContext string) (string, error)

// Outcome is the final result of an audited-generation attempt, after
// any feedback-loop iterations and possible template fallback.
type Outcome struct {
	Text       string
	Report     Report
	Iterations int
	UsedTemplate bool
}

// RunWithFeedback audits initialText; if it fails and feedback is
// enabled, calls regen up to maxIterations times, re-auditing each
// candidate, and halts early on pass, on an unchanged candidate, or on a
// regen error. Text that still fails after the loop falls back to the
// deterministic template, which is re-audited and must itself pass
// (§4.16 step 5); a template that still fails returns
// errs.ErrContradictionDetected.
func RunWithFeedback(
	initialText string,
	c *contract.Contract,
	d decision.Result,
	p explain.Prompt,
	model ModelAuditor,
	feedbackEnabled bool,
	maxIterations int,
	regen RegenerateFunc,
) (Outcome, error) {
	text := initialText
	rep := Audit(text, c, d, p, model)
	iterations := 0

	for feedbackEnabled && rep.Status == StatusFail && iterations < maxIterations {
		enriched := enrichedContext(text, rep)
		next, err := regen(enriched)
		if err != nil {
			break
		}
		iterations++
		if next == text {
			break
		}
		text = next
		rep = Audit(text, c, d, p, model)
	}

	if rep.Status != StatusFail {
		return Outcome{Text: text, Report: rep, Iterations: iterations}, nil
	}

	template := explain.Template(c, d, p.Style)
	templateReport := Audit(template, c, d, p, model)
	if templateReport.Status == StatusFail {
		return Outcome{Text: template, Report: templateReport, Iterations: iterations, UsedTemplate: true},
			fmt.Errorf("%w: template fallback also failed audit", errs.ErrContradictionDetected)
	}
	return Outcome{Text: template, Report: templateReport, Iterations: iterations, UsedTemplate: true}, nil
}

func enrichedContext(text string, rep Report) string {
	out := "previous text:\n" + text + "\ncontradictions:\n"
	for _, s := range rep.Sentences {
		if s.Verdict == VerdictContradiction {
			out += "- \"" + s.Sentence + "\" violates " + s.Evidence + "\n"
		}
	}
	return out
}
