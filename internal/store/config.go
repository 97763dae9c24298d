package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bandit-trading-engine/internal/types"
)

type Config struct {
	Mode             string  `yaml:"mode"`
	PollSeconds      int     `yaml:"poll_seconds"`
	FeatureDimension int     `yaml:"feature_dimension"`
	ExplorationAlpha float64 `yaml:"exploration_alpha"`
	LearningRate     float64 `yaml:"learning_rate"`
	Zeta             float64 `yaml:"zeta"`
	DecisionTimeout  int     `yaml:"decision_timeout_ms"`
	Aggregation      string  `yaml:"aggregation"`

	Diversity struct {
		Threshold float64 `yaml:"threshold"`
		Window    int     `yaml:"window"`
	} `yaml:"diversity"`

	Calibration struct {
		LinUCB types.CalibrationRange `yaml:"linucb"`
		Neural types.CalibrationRange `yaml:"neural"`
		UCBV   types.CalibrationRange `yaml:"ucbv"`
	} `yaml:"calibration"`

	Neural struct {
		HiddenSizes []int `yaml:"hidden_sizes"`
		MaxPasses   int   `yaml:"max_passes"`
		Seed        int64 `yaml:"seed"`
	} `yaml:"neural"`

	Profiles struct {
		LinUCB types.PersonalityProfile `yaml:"linucb"`
		Neural types.PersonalityProfile `yaml:"neural"`
		UCBV   types.PersonalityProfile `yaml:"ucbv"`
	} `yaml:"profiles"`

	Cache struct {
		Backend    string `yaml:"backend"`
		Addr       string `yaml:"addr"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"cache"`

	NATS struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	State struct {
		Path string `yaml:"path"`
	} `yaml:"state"`

	API struct {
		Enabled bool   `yaml:"enabled"`
		Listen  string `yaml:"listen"`
	} `yaml:"api"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.FeatureDimension <= 0 {
		return fmt.Errorf("feature_dimension must be positive, got %d", c.FeatureDimension)
	}
	if c.ExplorationAlpha <= 0 {
		return fmt.Errorf("exploration_alpha must be positive, got %.3f", c.ExplorationAlpha)
	}
	if c.LearningRate <= 0 || c.LearningRate >= 1 {
		return fmt.Errorf("learning_rate must be in (0,1), got %.4f", c.LearningRate)
	}
	if c.Aggregation != "mean" && c.Aggregation != "inverse_uncertainty" {
		return fmt.Errorf("aggregation must be 'mean' or 'inverse_uncertainty', got '%s'", c.Aggregation)
	}
	if c.Diversity.Threshold <= 0 || c.Diversity.Threshold >= 1 {
		return fmt.Errorf("diversity.threshold must be in (0,1), got %.3f", c.Diversity.Threshold)
	}
	for _, r := range []struct {
		name string
		rng  types.CalibrationRange
	}{
		{"linucb", c.Calibration.LinUCB},
		{"neural", c.Calibration.Neural},
		{"ucbv", c.Calibration.UCBV},
	} {
		if r.rng.Min >= r.rng.Max || r.rng.Min < 0 || r.rng.Max > 1 {
			return fmt.Errorf("calibration.%s must satisfy 0 <= min < max <= 1, got [%.2f, %.2f]",
				r.name, r.rng.Min, r.rng.Max)
		}
	}
	for _, p := range []struct {
		name string
		prof types.PersonalityProfile
	}{
		{"linucb", c.Profiles.LinUCB},
		{"neural", c.Profiles.Neural},
		{"ucbv", c.Profiles.UCBV},
	} {
		if bad(p.prof.RiskTolerance) || bad(p.prof.DecisionSpeed) || bad(p.prof.Aggression) {
			return fmt.Errorf("profiles.%s: all traits must be in [0,1]", p.name)
		}
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	return nil
}

func bad(v float64) bool { return v < 0 || v > 1 }

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	ApplyDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// ApplyDefaults fills unset fields. All values are immutable after init.
func ApplyDefaults(c *Config) {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 15
	}
	if c.FeatureDimension == 0 {
		c.FeatureDimension = 15
	}
	if c.ExplorationAlpha == 0 {
		c.ExplorationAlpha = 1.0
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.01
	}
	if c.Zeta == 0 {
		c.Zeta = 1.2
	}
	if c.DecisionTimeout == 0 {
		c.DecisionTimeout = 250
	}
	if c.Aggregation == "" {
		c.Aggregation = "inverse_uncertainty"
	}
	if c.Diversity.Threshold == 0 {
		c.Diversity.Threshold = 0.15
	}
	if c.Diversity.Window == 0 {
		c.Diversity.Window = 50
	}
	zero := types.CalibrationRange{}
	if c.Calibration.LinUCB == zero {
		c.Calibration.LinUCB = types.CalibrationRange{Min: 0.45, Max: 0.90}
	}
	if c.Calibration.Neural == zero {
		c.Calibration.Neural = types.CalibrationRange{Min: 0.40, Max: 0.95}
	}
	if c.Calibration.UCBV == zero {
		c.Calibration.UCBV = types.CalibrationRange{Min: 0.40, Max: 0.85}
	}
	if len(c.Neural.HiddenSizes) == 0 {
		c.Neural.HiddenSizes = []int{32, 16}
	}
	if c.Neural.MaxPasses == 0 {
		c.Neural.MaxPasses = 8
	}
	if c.Neural.Seed == 0 {
		c.Neural.Seed = 42
	}
	zp := types.PersonalityProfile{}
	if c.Profiles.LinUCB == zp {
		c.Profiles.LinUCB = types.DefaultProfile()
	}
	if c.Profiles.Neural == zp {
		c.Profiles.Neural = types.DefaultProfile()
	}
	if c.Profiles.UCBV == zp {
		c.Profiles.UCBV = types.DefaultProfile()
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "trading.outcomes"
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8090"
	}
}

// DefaultConfig returns a fully defaulted configuration, used by tests
// and DRY_RUN bootstrap when no config file is present.
func DefaultConfig() *Config {
	c := &Config{}
	ApplyDefaults(c)
	return c
}
