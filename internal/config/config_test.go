package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), ".yui", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LLM.Model, cfg.LLM.Model)
	assert.Equal(t, DefaultConfig().Energy.Max, cfg.Energy.Max)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  model: gemini-exp
energy:
  max: 50
  low_floor: 5
  wake_threshold: 20
sleep:
  energy_grant: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-exp", cfg.LLM.Model)
	assert.Equal(t, 50.0, cfg.Energy.Max)
	assert.Equal(t, 25.0, cfg.Sleep.EnergyGrant)
	// Untouched sections keep defaults.
	assert.Equal(t, DefaultConfig().Scheduler.CycleInterval, cfg.Scheduler.CycleInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not a map"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("GOOGLE_API_KEY sets the key", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "google-key")
		t.Setenv("GEMINI_API_KEY", "")
		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "google-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini", cfg.LLM.Provider)
	})

	t.Run("GEMINI_API_KEY wins over GOOGLE_API_KEY", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "google-key")
		t.Setenv("GEMINI_API_KEY", "gemini-key")
		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	})

	t.Run("env does not clobber explicit provider", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "k")
		cfg := &Config{LLM: LLMConfig{Provider: "scripted"}}
		cfg.applyEnvOverrides()
		assert.Equal(t, "scripted", cfg.LLM.Provider)
	})

	t.Run("YUI_DB_PATH overrides database path", func(t *testing.T) {
		t.Setenv("YUI_DB_PATH", "/tmp/elsewhere.db")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "/tmp/elsewhere.db", cfg.Memory.DatabasePath)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-positive max energy", func(c *Config) { c.Energy.Max = 0 }},
		{"floor above max", func(c *Config) { c.Energy.LowFloor = 200 }},
		{"wake threshold below floor", func(c *Config) { c.Energy.WakeThreshold = c.Energy.LowFloor }},
		{"grant above max", func(c *Config) { c.Sleep.EnergyGrant = 1000 }},
		{"zero slots", func(c *Config) { c.LLM.MaxConcurrent = 0 }},
		{"bad timeout", func(c *Config) { c.LLM.Timeout = "ninety seconds" }},
		{"bad heartbeat", func(c *Config) { c.Energy.HeartbeatInterval = "" }},
		{"bad cycle interval", func(c *Config) { c.Scheduler.CycleInterval = "-" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 3*time.Second, Duration("3s", time.Minute))
	assert.Equal(t, time.Minute, Duration("garbage", time.Minute))
	assert.Equal(t, time.Minute, Duration("-5s", time.Minute))
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/home/x", ".yui", "config.yaml"), Path("/home/x"))
}
