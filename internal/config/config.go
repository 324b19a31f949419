// Package config loads and validates the yui engine configuration from
// .yui/config.yaml, with environment-variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all yui configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM       LLMConfig       `yaml:"llm"`
	Energy    EnergyConfig    `yaml:"energy"`
	Sleep     SleepConfig     `yaml:"sleep"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Memory    MemoryConfig    `yaml:"memory"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig configures the text-generation collaborator.
type LLMConfig struct {
	Provider      string `yaml:"provider"` // gemini, scripted
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	Timeout       string `yaml:"timeout"`
	MaxConcurrent int    `yaml:"max_concurrent"` // concurrent API call slots
	MaxRetries    int    `yaml:"max_retries"`
}

// EnergyConfig tunes the energy/dormancy control loop.
type EnergyConfig struct {
	Max               float64 `yaml:"max"`
	LowFloor          float64 `yaml:"low_floor"`       // below this: dormant
	WakeThreshold     float64 `yaml:"wake_threshold"`  // above this: wake
	HeartbeatRecovery float64 `yaml:"heartbeat_recovery"`
	HeartbeatInterval string  `yaml:"heartbeat_interval"`
}

// SleepConfig tunes the explicit sleep mode.
type SleepConfig struct {
	PhaseDuration string  `yaml:"phase_duration"` // timed wait per phase
	EnergyGrant   float64 `yaml:"energy_grant"`   // one-time gain on completion
}

// SchedulerConfig tunes cycle admission.
type SchedulerConfig struct {
	CycleInterval string `yaml:"cycle_interval"` // pause between admitted cycles
}

// MemoryConfig configures persistence.
type MemoryConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the categorized debug logger.
// Mirrored by the logging package, which reads its own section to avoid a
// circular import.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "yui",
		Version: "0.4.0",

		LLM: LLMConfig{
			Provider:      "gemini",
			Model:         "gemini-2.0-flash",
			Timeout:       "90s",
			MaxConcurrent: 5,
			MaxRetries:    2,
		},

		Energy: EnergyConfig{
			Max:               100,
			LowFloor:          10,
			WakeThreshold:     30,
			HeartbeatRecovery: 0.5,
			HeartbeatInterval: "5s",
		},

		Sleep: SleepConfig{
			PhaseDuration: "3s",
			EnergyGrant:   40,
		},

		Scheduler: SchedulerConfig{
			CycleInterval: "45s",
		},

		Memory: MemoryConfig{
			DatabasePath: filepath.Join(".yui", "yui.db"),
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the canonical config path under home.
func Path(home string) string {
	return filepath.Join(home, ".yui", "config.yaml")
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets credentials come from the environment rather than
// a file on disk. GEMINI_API_KEY wins over GOOGLE_API_KEY.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if db := os.Getenv("YUI_DB_PATH"); db != "" {
		c.Memory.DatabasePath = db
	}
}

// Validate checks tunables for internally consistent values.
func (c *Config) Validate() error {
	if c.Energy.Max <= 0 {
		return fmt.Errorf("energy.max must be positive, got %.2f", c.Energy.Max)
	}
	if c.Energy.LowFloor < 0 || c.Energy.LowFloor >= c.Energy.Max {
		return fmt.Errorf("energy.low_floor %.2f outside [0, max)", c.Energy.LowFloor)
	}
	if c.Energy.WakeThreshold <= c.Energy.LowFloor {
		return fmt.Errorf("energy.wake_threshold %.2f must exceed low_floor %.2f",
			c.Energy.WakeThreshold, c.Energy.LowFloor)
	}
	if c.Sleep.EnergyGrant < 0 || c.Sleep.EnergyGrant > c.Energy.Max {
		return fmt.Errorf("sleep.energy_grant %.2f outside [0, max]", c.Sleep.EnergyGrant)
	}
	if c.LLM.MaxConcurrent <= 0 {
		return fmt.Errorf("llm.max_concurrent must be positive")
	}
	for _, d := range []struct {
		name, val string
	}{
		{"llm.timeout", c.LLM.Timeout},
		{"energy.heartbeat_interval", c.Energy.HeartbeatInterval},
		{"sleep.phase_duration", c.Sleep.PhaseDuration},
		{"scheduler.cycle_interval", c.Scheduler.CycleInterval},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// Duration parses a config duration string with a fallback.
func Duration(val string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
