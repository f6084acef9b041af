package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSettings_PrefersUserConfigOverLocal(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)

	workdir := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workdir))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })

	userConfigPath := filepath.Join(home, ".config", "memengine", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userConfigPath), 0o755))
	require.NoError(t, os.WriteFile(userConfigPath, []byte("db_path: /tmp/from-user.db\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "config.yaml"), []byte("db_path: /tmp/from-local.db\n"), 0o600))

	s, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-user.db", s.DBPath)
}

func TestLoadSettings_FallsBackToLocalConfig(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)

	workdir := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workdir))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })

	require.NoError(t, os.WriteFile(filepath.Join(workdir, "config.yaml"), []byte("db_path: /tmp/from-local.db\n"), 0o600))

	s, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-local.db", s.DBPath)
}

func TestLoadSettings_InvalidYAMLReturnsError(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)

	userConfigPath := filepath.Join(home, ".config", "memengine", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userConfigPath), 0o755))
	require.NoError(t, os.WriteFile(userConfigPath, []byte("db_path: ["), 0o600))

	_, err := LoadSettings()
	require.Error(t, err)
}

func TestLoadSettingsFile_ReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: /tmp/read.db\n"), 0o600))

	s, err := loadSettingsFile(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/read.db", s.DBPath)
}

func TestLoadSettingsFile_ReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "db_path = \"/tmp/read-toml.db\"\nrrf_k = 80\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := loadSettingsFile(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/read-toml.db", s.DBPath)
	require.Equal(t, 80, s.RRFK)
}

func TestLoadSettingsFile_ReadsEngineFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "max_closure_depth: 4\n" +
		"warmup_steps: 3\n" +
		"rrf_k: 90\n" +
		"graph_boost_topk: 15\n" +
		"boost_weight: 0.5\n" +
		"observer_budget_ms: 3\n" +
		"embedding_cache_ttl_days: 14\n" +
		"session_type_promotion_limits:\n  build: 25\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := loadSettingsFile(path)
	require.NoError(t, err)
	require.Equal(t, 4, s.MaxClosureDepth)
	require.Equal(t, 3, s.WarmupSteps)
	require.Equal(t, 90, s.RRFK)
	require.Equal(t, 15, s.GraphBoostTopK)
	require.InDelta(t, 0.5, s.BoostWeight, 0.0001)
	require.InDelta(t, 3.0, s.ObserverBudgetMS, 0.0001)
	require.Equal(t, 14, s.EmbeddingCacheTTLDays)
	require.Equal(t, 25, s.SessionTypePromotionLimits["build"])
}

func TestEffectiveEngineSettings_DefaultsAndOverridesAndClamp(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)

	// No config file: spec.md section 6.4 defaults.
	eff := EffectiveEngineSettings()
	require.Equal(t, 5, eff.MaxClosureDepth)
	require.Equal(t, 5, eff.WarmupSteps)
	require.Equal(t, 60, eff.RRFK)
	require.Equal(t, 10, eff.GraphBoostTopK)
	require.InDelta(t, 0.3, eff.BoostWeight, 0.0001)
	require.InDelta(t, 2.0, eff.ObserverBudgetMS, 0.0001)
	require.Equal(t, 7, eff.EmbeddingCacheTTLDays)
	require.Equal(t, 20, eff.SessionTypePromotionLimits["build"])
	require.Equal(t, 0, eff.SessionTypePromotionLimits["changelog"])
	require.Equal(t, 3000, eff.PhasePackingBudgets["implement"])

	userConfigPath := filepath.Join(home, ".config", "memengine", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userConfigPath), 0o755))
	require.NoError(t, os.WriteFile(userConfigPath, []byte("max_closure_depth: 9999\nrrf_k: 120\n"), 0o600))

	resetSettingsStateForTest()
	eff = EffectiveEngineSettings()
	require.Equal(t, 5, eff.MaxClosureDepth) // hard ceiling enforced regardless of config
	require.Equal(t, 120, eff.RRFK)
}
