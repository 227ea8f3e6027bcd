package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cchan987/nengo-viz/errors"
)

// ServerConfig controls the HTTP/websocket listener
type ServerConfig struct {
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// SimulationConfig controls the simulation attachment
type SimulationConfig struct {
	DT      float64 `yaml:"dt"`
	Quantum float64 `yaml:"quantum"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ComponentConfig is one pre-configured template entry
type ComponentConfig struct {
	Kind    string         `yaml:"kind"`
	Options map[string]any `yaml:"options"`
}

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Simulation SimulationConfig  `yaml:"simulation"`
	Logging    LoggingConfig     `yaml:"logging"`
	Components []ComponentConfig `yaml:"components"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			OpenBrowser: true,
		},
		Simulation: SimulationConfig{
			DT:      0.001,
			Quantum: 0.1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads and validates a YAML configuration file. Values absent
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "file read")
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "yaml parse")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: port %d out of range", errors.ErrInvalidConfig, c.Server.Port),
			"config", "Validate", "server port")
	}
	if c.Simulation.DT <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: dt must be positive, got %g", errors.ErrInvalidConfig, c.Simulation.DT),
			"config", "Validate", "simulation dt")
	}
	if c.Simulation.Quantum <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: quantum must be positive, got %g", errors.ErrInvalidConfig, c.Simulation.Quantum),
			"config", "Validate", "simulation quantum")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log level %q", errors.ErrInvalidConfig, c.Logging.Level),
			"config", "Validate", "logging level")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log format %q", errors.ErrInvalidConfig, c.Logging.Format),
			"config", "Validate", "logging format")
	}

	for i, comp := range c.Components {
		if comp.Kind == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: components[%d] has no kind", errors.ErrInvalidConfig, i),
				"config", "Validate", "component kind")
		}
	}
	return nil
}
