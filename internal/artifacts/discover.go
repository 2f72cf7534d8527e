// Package artifacts locates per-cluster pipeline outputs on disk (§4.17).
// Each artifact type is searched via a prioritized list of path patterns;
// the first existing path wins, and every pattern tried is logged at
// debug level the way the teacher's provider-fallback chain logs every
// hop it tries before settling on a fallback.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/muniheat/dhcore/internal/errs"
)

// Kind identifies a discoverable artifact type.
type Kind string

const (
	KindCHAKPIs        Kind = "cha_kpis"
	KindDHAKPIs        Kind = "dha_kpis"
	KindEconomicsDet   Kind = "economics_deterministic"
	KindMonteCarloSum  Kind = "monte_carlo_summary"
	KindMonteCarloSmpl Kind = "monte_carlo_samples"
	KindKPIContract    Kind = "kpi_contract"
	KindDecision       Kind = "decision"
)

// patternsFor returns, for a given base directory and cluster id, the
// prioritized list of candidate paths for kind: nested per-cluster first
// (results/<phase>/<cluster_id>/<file>), then a flat fallback
// (results/<cluster_id>_<file>) for older batch layouts.
func patternsFor(baseDir, clusterID string, kind Kind) []string {
	nested := map[Kind][2]string{
		KindCHAKPIs:        {"cha", "cha_kpis.json"},
		KindDHAKPIs:        {"dha", "dha_kpis.json"},
		KindEconomicsDet:   {"economics", "economics_deterministic.json"},
		KindMonteCarloSum:  {"economics", "monte_carlo_summary.json"},
		KindMonteCarloSmpl: {"economics", "monte_carlo_samples.json"},
		KindKPIContract:    {"decision", fmt.Sprintf("kpi_contract_%s.json", clusterID)},
		KindDecision:       {"decision", fmt.Sprintf("decision_%s.json", clusterID)},
	}
	phaseFile := nested[kind]
	phase, file := phaseFile[0], phaseFile[1]

	return []string{
		filepath.Join(baseDir, phase, clusterID, file),
		filepath.Join(baseDir, fmt.Sprintf("%s_%s", clusterID, file)),
	}
}

// Find searches kind's patterns under baseDir for clusterID in priority
// order, logging every path tried at debug level, and returns the first
// path that exists. Returns errs.ErrMissingInputArtifact listing every
// pattern tried when none match.
func Find(log zerolog.Logger, baseDir, clusterID string, kind Kind) (string, error) {
	var tried []string
	for _, p := range patternsFor(baseDir, clusterID, kind) {
		tried = append(tried, p)
		log.Debug().Str("kind", string(kind)).Str("path", p).Msg("artifact discovery: trying path")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: kind=%s cluster=%s tried=[%s]", errs.ErrMissingInputArtifact, kind, clusterID, strings.Join(tried, ", "))
}

// FindAll resolves every kind in kinds, returning as soon as the first
// one fails so contract assembly fails early with a clear error (§4.17).
func FindAll(log zerolog.Logger, baseDir, clusterID string, kinds []Kind) (map[Kind]string, error) {
	out := make(map[Kind]string, len(kinds))
	for _, k := range kinds {
		p, err := Find(log, baseDir, clusterID, k)
		if err != nil {
			return nil, err
		}
		out[k] = p
	}
	return out, nil
}
