package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemClassify/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "max", cfg.Engine.Aggregation)
	assert.Equal(t, 0.5, cfg.Engine.ConflictThreshold)
	assert.Equal(t, 1.0, cfg.Engine.EdgeDecay)
	assert.Equal(t, 0, cfg.Engine.BatchWorkers)
	assert.False(t, cfg.Rules.Watch)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: console
engine:
  aggregation: all
  conflict_threshold: 0.7
  edge_decay: 0.8
  batch_workers: 4
rules:
  path: /etc/chemclass/rules.yaml
  watch: true
metrics:
  enabled: true
  listen: ":9200"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "all", cfg.Engine.Aggregation)
	assert.Equal(t, 0.7, cfg.Engine.ConflictThreshold)
	assert.Equal(t, 0.8, cfg.Engine.EdgeDecay)
	assert.Equal(t, 4, cfg.Engine.BatchWorkers)
	assert.Equal(t, "/etc/chemclass/rules.yaml", cfg.Rules.Path)
	assert.True(t, cfg.Rules.Watch)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9200", cfg.Metrics.Listen)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("CHEMCLASS_ENGINE_EDGE_DECAY", "0.25")
	t.Setenv("CHEMCLASS_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Engine.EdgeDecay)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown aggregation", func(c *Config) { c.Engine.Aggregation = "bogus" }},
		{"threshold above one", func(c *Config) { c.Engine.ConflictThreshold = 1.1 }},
		{"zero decay", func(c *Config) { c.Engine.EdgeDecay = 0 }},
		{"negative workers", func(c *Config) { c.Engine.BatchWorkers = -1 }},
		{"metrics without listen", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Listen = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
