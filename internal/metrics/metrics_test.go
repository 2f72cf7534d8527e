package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStageTimerRecordsDurationAndRunCount(t *testing.T) {
	r := NewRegistry()
	timer := r.StartStage(StageCHA)
	timer.Stop(ResultSuccess, "")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "dhcore_stage_runs_total")
}

func TestRecordDecisionIncrementsCounter(t *testing.T) {
	r := NewRegistry()
	r.RecordDecision("DH", true)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	require.Contains(t, rec.Body.String(), "dhcore_decisions_total")
}

func TestTwoRegistriesDoNotConflict(t *testing.T) {
	require.NotPanics(t, func() {
		NewRegistry()
		NewRegistry()
	})
}
