package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.Empty(t, cfg.Validate())
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_key: 1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(path, []byte("robust_win_fraction: 0.8\nmonte_carlo:\n  n: 1000\n  seed: 7\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0.8, cfg.RobustWinFraction)
	require.Equal(t, 1000, cfg.MonteCarlo.N)
	require.Equal(t, int64(7), cfg.MonteCarlo.Seed)
}

func TestValidateCatchesInvertedThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SensitiveWinFraction = 0.9
	cfg.RobustWinFraction = 0.5
	require.NotEmpty(t, cfg.Validate())
}
