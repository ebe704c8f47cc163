// Package config loads simulation settings from YAML files and environment
// variables. Order: defaults, then the file (if any), then PRIVSIM_* overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/privacy-world/internal/agents"
	"github.com/talgya/privacy-world/internal/logging"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Config contains every simulator setting.
type Config struct {
	Population PopulationConfig `json:"population" yaml:"population"`
	Policy     PolicyConfig     `json:"policy" yaml:"policy"`
	Rewards    RewardConfig     `json:"rewards" yaml:"rewards"`
	Run        RunConfig        `json:"run" yaml:"run"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	API        APIConfig        `json:"api" yaml:"api"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// PopulationConfig shapes the agents and their social graph.
type PopulationConfig struct {
	// Agents is the population size.
	Agents int `json:"agents" yaml:"agents"`

	// Degree is the Watts-Strogatz ring degree k. Odd values behave as k-1.
	Degree int `json:"degree" yaml:"degree"`

	// Rewire is the Watts-Strogatz rewiring probability in [0,1].
	Rewire float64 `json:"rewire" yaml:"rewire"`

	// WeightModel is "archetype" (default) or "uniform".
	WeightModel string `json:"weight_model" yaml:"weight_model"`
}

// PolicyConfig selects the decision policy shared by every agent.
type PolicyConfig struct {
	// Name is one of selfish, majority, epsilon, random.
	Name string `json:"name" yaml:"name"`

	// ExploreSteps is the epsilon-greedy exploration phase length.
	ExploreSteps uint64 `json:"explore_steps" yaml:"explore_steps"`
}

// RewardConfig holds the companion conformity constants.
type RewardConfig struct {
	ConformBonus   float64 `json:"conform_bonus" yaml:"conform_bonus"`
	DiscordPenalty float64 `json:"discord_penalty" yaml:"discord_penalty"`
	Normalize      bool    `json:"normalize" yaml:"normalize"`
}

// RunConfig controls how long and how fast the simulation runs.
type RunConfig struct {
	// Seed drives every random draw. Zero picks a random seed.
	Seed int64 `json:"seed" yaml:"seed"`

	// Steps is the number of steps for a batch run.
	Steps uint64 `json:"steps" yaml:"steps"`

	// ReportEvery logs a summary every N steps; 0 disables reports.
	ReportEvery uint64 `json:"report_every" yaml:"report_every"`

	// Interval is the pause between steps when serving.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// StorageConfig locates the SQLite database. An empty path disables storage.
type StorageConfig struct {
	Path string `json:"path" yaml:"path"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Port int `json:"port" yaml:"port"`
}

// LoggingConfig sets log verbosity: "info" (default), "debug" or "trace".
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Population: PopulationConfig{
			Agents:      100,
			Degree:      4,
			Rewire:      0.1,
			WeightModel: "archetype",
		},
		Policy: PolicyConfig{
			Name:         "selfish",
			ExploreSteps: agents.DefaultExploreSteps,
		},
		Rewards: RewardConfig{
			ConformBonus:   agents.DefaultConformBonus,
			DiscordPenalty: agents.DefaultDiscordPenalty,
			Normalize:      true,
		},
		Run: RunConfig{
			Steps:       200,
			ReportEvery: 50,
			Interval:    time.Second,
		},
		API: APIConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path (skipped when empty) on top of the defaults, then applies
// environment overrides. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks every field. The returned error is a *ValidationError
// wrapping ErrInvalid.
func (c *Config) Validate() error {
	p := c.Population
	if p.Agents <= 0 {
		return invalid("population.agents", "must be positive, got %d", p.Agents)
	}
	if p.Degree < 0 {
		return invalid("population.degree", "must be non-negative, got %d", p.Degree)
	}
	if p.Degree >= p.Agents {
		return invalid("population.degree", "must be less than agents (%d), got %d", p.Agents, p.Degree)
	}
	if math.IsNaN(p.Rewire) || p.Rewire < 0 || p.Rewire > 1 {
		return invalid("population.rewire", "must be between 0 and 1, got %v", p.Rewire)
	}
	if _, err := agents.ParseWeightModel(p.WeightModel); err != nil {
		return invalid("population.weight_model", "%v", err)
	}

	if _, err := agents.ParsePolicy(c.Policy.Name); err != nil {
		return invalid("policy.name", "%v", err)
	}

	if !finiteNonNegative(c.Rewards.ConformBonus) {
		return invalid("rewards.conform_bonus", "must be a non-negative number, got %v", c.Rewards.ConformBonus)
	}
	if !finiteNonNegative(c.Rewards.DiscordPenalty) {
		return invalid("rewards.discord_penalty", "must be a non-negative number, got %v", c.Rewards.DiscordPenalty)
	}

	if c.Run.Interval < 0 {
		return invalid("run.interval", "must be non-negative, got %v", c.Run.Interval)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return invalid("api.port", "out of range: %d", c.API.Port)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return invalid("logging.level", "%q (valid: info, debug, trace)", c.Logging.Level)
	}
	return nil
}

func finiteNonNegative(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

// PolicyKind returns the parsed policy. Call after Validate.
func (c *Config) PolicyKind() agents.PolicyKind {
	k, _ := agents.ParsePolicy(c.Policy.Name)
	return k
}

// WeightModel returns the parsed weight model. Call after Validate.
func (c *Config) WeightModel() agents.WeightModel {
	m, _ := agents.ParseWeightModel(c.Population.WeightModel)
	return m
}

// RewardEngine returns the run's companion reward engine.
func (c *Config) RewardEngine() agents.RewardEngine {
	return agents.RewardEngine{
		ConformBonus:   c.Rewards.ConformBonus,
		DiscordPenalty: c.Rewards.DiscordPenalty,
		Normalize:      c.Rewards.Normalize,
	}
}

// applyEnvOverrides applies PRIVSIM_* variables.
func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("PRIVSIM_SEED"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return invalid("PRIVSIM_SEED", "not an integer: %q", v)
		}
		c.Run.Seed = n
	}

	if v := os.Getenv("PRIVSIM_AGENTS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return invalid("PRIVSIM_AGENTS", "not an integer: %q", v)
		}
		c.Population.Agents = n
	}

	if v := os.Getenv("PRIVSIM_POLICY"); v != "" {
		c.Policy.Name = v
	}

	if v := os.Getenv("PRIVSIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("PRIVSIM_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	return nil
}
