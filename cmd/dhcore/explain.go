package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/muniheat/dhcore/internal/audit"
	"github.com/muniheat/dhcore/internal/contract"
	"github.com/muniheat/dhcore/internal/decision"
	"github.com/muniheat/dhcore/internal/errs"
	"github.com/muniheat/dhcore/internal/explain"
)

// generateExplanation runs §4.15-§4.16: build the contract-only prompt,
// attempt external generation (failing closed when none is configured,
// per explain.Generator's nil-inner behavior), fall back to the
// deterministic template on failure unless noFallback is set, then audit
// the candidate with the feedback loop before returning it.
func generateExplanation(c *contract.Contract, d decision.Result, style explain.Style, noFallback bool) (audit.Report, string, error) {
	scoped, done := logExplainStage(c.ClusterID)
	defer done()

	prompt := explain.BuildPrompt(c, d, style)

	initial := explain.Template(c, d, style)
	if !cfg.ForceTemplate {
		gen := explain.NewGenerator(nil, time.Duration(cfg.LLMTimeoutS)*time.Second, 1.0)
		text, err := gen.Generate(context.Background(), prompt.Text)
		switch {
		case err == nil:
			initial = text
		case noFallback:
			return audit.Report{}, "", fmt.Errorf("%w: explanation generator unavailable: %v", errs.ErrExternalServiceUnavailable, err)
		default:
			scoped.Warn().Err(err).Msg("explanation generator unavailable, falling back to template")
		}
	}

	regen := func(enrichedContext string) (string, error) {
		scoped.Debug().Msg("regenerating explanation after audit contradiction")
		return explain.Template(c, d, style), nil
	}

	out, err := audit.RunWithFeedback(initial, c, d, prompt, nil, cfg.Validation.EnableFeedback, cfg.Validation.MaxIterations, regen)
	if err != nil {
		return audit.Report{}, "", err
	}
	scoped.Info().Str("status", string(out.Report.Status)).Int("iterations", out.Iterations).Bool("used_template", out.UsedTemplate).Msg("explanation audited")
	return out.Report, out.Text, nil
}

// writeExplanation persists the audited explanation text as markdown
// under results/decision/<cluster_id>/ alongside the contract and
// decision artifacts (§6).
func writeExplanation(clusterID string, style explain.Style, text string) error {
	path := clusterPath(flagBaseDir, "decision", clusterID, fmt.Sprintf("explanation_%s_%s.md", clusterID, style))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
