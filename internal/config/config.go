// Package config loads and validates the pipeline's YAML configuration
// into a typed Config. There is no process-wide singleton: DefaultConfig
// or Load produce a value that is threaded explicitly through every stage.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/muniheat/dhcore/internal/errs"
)

// MonteCarlo holds the seeded uncertainty-propagation parameters.
type MonteCarlo struct {
	N    int   `yaml:"n"`
	Seed int64 `yaml:"seed"`
}

// Validation holds the tabular-entailment auditor's tunables.
type Validation struct {
	MinConfidence  float64 `yaml:"min_confidence"`
	EnableFeedback bool    `yaml:"enable_feedback"`
	MaxIterations  int     `yaml:"max_iterations"`
}

// Config is the fully resolved, validated pipeline configuration. Every
// recognized key from the external-interfaces table has a field here;
// Load fails closed on any key it does not recognize.
type Config struct {
	RobustWinFraction     float64    `yaml:"robust_win_fraction"`
	SensitiveWinFraction  float64    `yaml:"sensitive_win_fraction"`
	CloseCostRelThreshold float64    `yaml:"close_cost_rel_threshold"`
	CloseCostAbsThreshold float64    `yaml:"close_cost_abs_threshold"`
	MonteCarlo            MonteCarlo `yaml:"monte_carlo"`
	Validation            Validation `yaml:"validation"`
	ForceTemplate         bool       `yaml:"force_template"`
	LLMTimeoutS           int        `yaml:"llm_timeout_s"`
	LLMModelName          string     `yaml:"llm_model_name"`

	// LLMAPIKey is never populated from YAML (there is no yaml tag): it is
	// read from the environment at Load time and never logged or
	// serialized back out.
	LLMAPIKey string `yaml:"-"`
}

// DefaultConfig returns the configuration with every default named in the
// external-interfaces recognized-keys table.
func DefaultConfig() *Config {
	return &Config{
		RobustWinFraction:     0.70,
		SensitiveWinFraction:  0.55,
		CloseCostRelThreshold: 0.05,
		CloseCostAbsThreshold: 0.0,
		MonteCarlo:            MonteCarlo{N: 500, Seed: 42},
		Validation:            Validation{MinConfidence: 0.7, EnableFeedback: true, MaxIterations: 3},
		ForceTemplate:         false,
		LLMTimeoutS:           30,
	}
}

// strictConfig is unmarshalled with KnownFields(true) so any key absent
// from Config's yaml tags fails the load instead of being silently dropped.
type strictConfig Config

// Load reads a YAML file at path, merges it over DefaultConfig, validates
// it, and resolves LLMAPIKey from the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrConfigValidation, path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	sc := strictConfig(*cfg)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfigValidation, err)
	}
	*cfg = Config(sc)
	cfg.LLMAPIKey = os.Getenv("DHCORE_LLM_API_KEY")

	if errs2 := cfg.Validate(); len(errs2) > 0 {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfigValidation, errs2)
	}
	return cfg, nil
}

// Validate cross-checks threshold ordering and ranges. It returns a
// human-readable list of violations rather than failing fast, mirroring
// the teacher's ValidateProfile() shape.
func (c *Config) Validate() []string {
	var problems []string
	inUnit := func(name string, v float64) {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s=%.4f outside [0,1]", name, v))
		}
	}
	inUnit("robust_win_fraction", c.RobustWinFraction)
	inUnit("sensitive_win_fraction", c.SensitiveWinFraction)
	if c.SensitiveWinFraction > c.RobustWinFraction {
		problems = append(problems, "sensitive_win_fraction must be <= robust_win_fraction")
	}
	if c.CloseCostRelThreshold < 0 {
		problems = append(problems, "close_cost_rel_threshold must be >= 0")
	}
	if c.CloseCostAbsThreshold < 0 {
		problems = append(problems, "close_cost_abs_threshold must be >= 0")
	}
	if c.MonteCarlo.N <= 0 {
		problems = append(problems, "monte_carlo.n must be > 0")
	}
	inUnit("validation.min_confidence", c.Validation.MinConfidence)
	if c.Validation.MaxIterations < 0 {
		problems = append(problems, "validation.max_iterations must be >= 0")
	}
	if c.LLMTimeoutS <= 0 {
		problems = append(problems, "llm_timeout_s must be > 0")
	}
	return problems
}
