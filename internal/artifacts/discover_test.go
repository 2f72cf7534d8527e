package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFindPrefersNestedLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cha", "cluster-1"), 0o755))
	nestedPath := filepath.Join(dir, "cha", "cluster-1", "cha_kpis.json")
	require.NoError(t, os.WriteFile(nestedPath, []byte("{}"), 0o644))

	flatPath := filepath.Join(dir, "cluster-1_cha_kpis.json")
	require.NoError(t, os.WriteFile(flatPath, []byte("{}"), 0o644))

	got, err := Find(zerolog.Nop(), dir, "cluster-1", KindCHAKPIs)
	require.NoError(t, err)
	require.Equal(t, nestedPath, got)
}

func TestFindFallsBackToFlatLayout(t *testing.T) {
	dir := t.TempDir()
	flatPath := filepath.Join(dir, "cluster-1_dha_kpis.json")
	require.NoError(t, os.WriteFile(flatPath, []byte("{}"), 0o644))

	got, err := Find(zerolog.Nop(), dir, "cluster-1", KindDHAKPIs)
	require.NoError(t, err)
	require.Equal(t, flatPath, got)
}

func TestFindReturnsErrorListingTriedPatterns(t *testing.T) {
	dir := t.TempDir()
	_, err := Find(zerolog.Nop(), dir, "cluster-1", KindEconomicsDet)
	require.Error(t, err)
	require.Contains(t, err.Error(), "tried=")
}

func TestFindAllStopsAtFirstMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cha", "cluster-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cha", "cluster-1", "cha_kpis.json"), []byte("{}"), 0o644))

	_, err := FindAll(zerolog.Nop(), dir, "cluster-1", []Kind{KindCHAKPIs, KindDHAKPIs})
	require.Error(t, err)
}
