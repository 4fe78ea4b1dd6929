// Package config loads and validates ChemClassify runtime configuration
// from an optional YAML file overlaid with CHEMCLASS_-prefixed environment
// variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/ChemClassify/internal/infrastructure/logging"
	"github.com/turtacn/ChemClassify/pkg/errors"
	"github.com/turtacn/ChemClassify/pkg/types/classify"
)

// Config is the full runtime configuration tree.
type Config struct {
	Log     logging.LogConfig `mapstructure:"log"`
	Engine  EngineConfig      `mapstructure:"engine"`
	Rules   RulesConfig       `mapstructure:"rules"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
}

// EngineConfig tunes the classification pipeline.
type EngineConfig struct {
	// Aggregation is the per-class rule combination policy: "max", "any" or
	// "all".
	Aggregation string `mapstructure:"aggregation"`

	// ConflictThreshold is the explicit-negative certainty in [0,1] required
	// to contradict a matched descendant.
	ConflictThreshold float64 `mapstructure:"conflict_threshold"`

	// EdgeDecay attenuates propagated confidence per hierarchy edge, in
	// (0,1].
	EdgeDecay float64 `mapstructure:"edge_decay"`

	// BatchWorkers bounds batch concurrency; 0 selects GOMAXPROCS.
	BatchWorkers int `mapstructure:"batch_workers"`
}

// RulesConfig locates the rule-set document.
type RulesConfig struct {
	// Path is the rule-set YAML file.
	Path string `mapstructure:"path"`

	// Watch enables hot reload of the rule-set file.
	Watch bool `mapstructure:"watch"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})

	v.SetDefault("engine.aggregation", string(classify.AggregationMax))
	v.SetDefault("engine.conflict_threshold", 0.5)
	v.SetDefault("engine.edge_decay", 1.0)
	v.SetDefault("engine.batch_workers", 0)

	v.SetDefault("rules.path", "")
	v.SetDefault("rules.watch", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9108")
}

// Load reads configuration from path (optional; empty means defaults plus
// environment only) and validates the result.  Environment variables use
// the CHEMCLASS_ prefix with underscores for nesting, e.g.
// CHEMCLASS_ENGINE_EDGE_DECAY=0.8.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHEMCLASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to read config file").
				WithDetail("path=" + path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for process bootstrap paths where a bad configuration
// has no recovery.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks cross-field constraints.  Called by Load; exported for
// callers that assemble a Config programmatically.
func (c *Config) Validate() error {
	if _, err := classify.ParseRuleAggregation(c.Engine.Aggregation); err != nil {
		return err
	}
	if c.Engine.ConflictThreshold < 0 || c.Engine.ConflictThreshold > 1 {
		return errors.New(errors.ErrCodeValidation, "engine.conflict_threshold must be in [0,1]").
			WithDetail(fmt.Sprintf("value=%g", c.Engine.ConflictThreshold))
	}
	if c.Engine.EdgeDecay <= 0 || c.Engine.EdgeDecay > 1 {
		return errors.New(errors.ErrCodeValidation, "engine.edge_decay must be in (0,1]").
			WithDetail(fmt.Sprintf("value=%g", c.Engine.EdgeDecay))
	}
	if c.Engine.BatchWorkers < 0 {
		return errors.New(errors.ErrCodeValidation, "engine.batch_workers must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New(errors.ErrCodeValidation, "metrics.listen required when metrics are enabled")
	}
	return nil
}
