package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings represents configuration loaded from config.yaml or config.toml.
// Field names match snake_case keys in both formats.
type Settings struct {
	DBPath string `yaml:"db_path" toml:"db_path"`

	MaxClosureDepth  int     `yaml:"max_closure_depth" toml:"max_closure_depth"`
	WarmupSteps      int     `yaml:"warmup_steps" toml:"warmup_steps"`
	RRFK             int     `yaml:"rrf_k" toml:"rrf_k"`
	GraphBoostTopK   int     `yaml:"graph_boost_topk" toml:"graph_boost_topk"`
	BoostWeight      float64 `yaml:"boost_weight" toml:"boost_weight"`
	ObserverBudgetMS float64 `yaml:"observer_budget_ms" toml:"observer_budget_ms"`
	EmbeddingCacheTTLDays int `yaml:"embedding_cache_ttl_days" toml:"embedding_cache_ttl_days"`

	SessionTypePromotionLimits map[string]int     `yaml:"session_type_promotion_limits" toml:"session_type_promotion_limits"`
	PhasePackingBudgets        map[string]int     `yaml:"phase_packing_budgets" toml:"phase_packing_budgets"`
	DecayHalfLivesByKind       map[string]int     `yaml:"default_decay_half_lives_by_kind" toml:"default_decay_half_lives_by_kind"`
}

// EffectiveSettings are validated runtime values used across the engine,
// with every unset or invalid field replaced by its spec.md section 6.4
// default.
type EffectiveSettings struct {
	MaxClosureDepth            int
	WarmupSteps                int
	RRFK                       int
	GraphBoostTopK             int
	BoostWeight                float64
	ObserverBudgetMS           float64
	EmbeddingCacheTTLDays      int
	SessionTypePromotionLimits map[string]int
	PhasePackingBudgets        map[string]int
	DecayHalfLivesByKind       map[string]int
}

var defaultSessionTypePromotionLimits = map[string]int{
	"build":         20,
	"pr_review":     8,
	"insights":      5,
	"roadmap":       3,
	"terminal":      3,
	"spec_creation": 3,
	"changelog":     0,
}

var defaultPhasePackingBudgets = map[string]int{
	"define":    2500,
	"implement": 3000,
	"validate":  2500,
	"refine":    2000,
	"explore":   2000,
	"reflect":   1500,
}

const (
	defaultMaxClosureDepth       = 5
	defaultWarmupSteps           = 5
	defaultRRFK                  = 60
	defaultGraphBoostTopK        = 10
	defaultBoostWeight           = 0.3
	defaultObserverBudgetMS      = 2.0
	defaultEmbeddingCacheTTLDays = 7
)

// EffectiveEngineSettings returns validated engine-wide settings with
// spec.md section 6.4 defaults applied over any loaded config.yaml/toml.
func EffectiveEngineSettings() EffectiveSettings {
	eff := EffectiveSettings{
		MaxClosureDepth:            defaultMaxClosureDepth,
		WarmupSteps:                defaultWarmupSteps,
		RRFK:                       defaultRRFK,
		GraphBoostTopK:             defaultGraphBoostTopK,
		BoostWeight:                defaultBoostWeight,
		ObserverBudgetMS:           defaultObserverBudgetMS,
		EmbeddingCacheTTLDays:      defaultEmbeddingCacheTTLDays,
		SessionTypePromotionLimits: copyIntMap(defaultSessionTypePromotionLimits),
		PhasePackingBudgets:        copyIntMap(defaultPhasePackingBudgets),
		DecayHalfLivesByKind:       map[string]int{},
	}

	s, err := LoadSettings()
	if err != nil {
		return eff
	}

	if s.MaxClosureDepth > 0 {
		eff.MaxClosureDepth = s.MaxClosureDepth
	}
	if eff.MaxClosureDepth > 5 {
		eff.MaxClosureDepth = 5 // hard ceiling enforced regardless of config
	}
	if s.WarmupSteps > 0 {
		eff.WarmupSteps = s.WarmupSteps
	}
	if s.RRFK > 0 {
		eff.RRFK = s.RRFK
	}
	if s.GraphBoostTopK > 0 {
		eff.GraphBoostTopK = s.GraphBoostTopK
	}
	if s.BoostWeight > 0 {
		eff.BoostWeight = s.BoostWeight
	}
	if s.ObserverBudgetMS > 0 {
		eff.ObserverBudgetMS = s.ObserverBudgetMS
	}
	if s.EmbeddingCacheTTLDays > 0 {
		eff.EmbeddingCacheTTLDays = s.EmbeddingCacheTTLDays
	}
	for k, v := range s.SessionTypePromotionLimits {
		eff.SessionTypePromotionLimits[k] = v
	}
	for k, v := range s.PhasePackingBudgets {
		eff.PhasePackingBudgets[k] = v
	}
	for k, v := range s.DecayHalfLivesByKind {
		eff.DecayHalfLivesByKind[k] = v
	}

	return eff
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// dbPathOverrideMu and dbPathOverride implement a mutex-protected process-wide override for CLI --db-path.
// These globals are required by the sync.Once pattern and the RWMutex pattern; they cannot be avoided.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	dbPathOverrideMu sync.RWMutex
	dbPathOverride   string
)

// SetDBPathOverride sets a process-wide database path override.
// Intended for CLI flag support (e.g. --db-path).
func SetDBPathOverride(path string) {
	dbPathOverrideMu.Lock()
	dbPathOverride = path
	dbPathOverrideMu.Unlock()
}

func getDBPathOverride() string {
	dbPathOverrideMu.RLock()
	v := dbPathOverride
	dbPathOverrideMu.RUnlock()
	return v
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins), each tried as both config.yaml and
// config.toml (extension selects the parser):
// 1) ~/.config/memengine/
// 2) /etc/memengine/
// 3) ./ (lowest priority; allows repo-local overrides if desired)
// Environment variables are handled separately.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{}

		dir, err := ConfigDir()
		if err != nil {
			settingsErr = err
			return
		}
		candidates := []string{
			filepath.Join(dir, "config.yaml"),
			filepath.Join(dir, "config.toml"),
			filepath.Join(string(os.PathSeparator), "etc", "memengine", "config.yaml"),
			filepath.Join(string(os.PathSeparator), "etc", "memengine", "config.toml"),
			"config.yaml",
			"config.toml",
		}

		for _, path := range candidates {
			s, loadErr := loadSettingsFile(path)
			if loadErr == nil {
				settings = s
				return
			}
			if !errors.Is(loadErr, os.ErrNotExist) {
				settingsErr = loadErr
				return
			}
		}
	})

	return settings, settingsErr
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if strings.HasSuffix(path, ".toml") {
		if _, err := toml.Decode(string(b), &s); err != nil {
			return Settings{}, err
		}
		return s, nil
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
