// Package config provides configuration management for the gridsight CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	// Dashboard is the path to the dashboard document (YAML).
	Dashboard string `koanf:"dashboard"`
	// Dataset overrides the dataset path named in the document.
	Dataset string `koanf:"dataset"`
	// StatePath is the path to the SQLite state database.
	StatePath string `koanf:"state_path"`
	// Environment selects the named environment (dev, staging, prod).
	Environment string `koanf:"environment"`
	// OutputFormat selects the renderer: text or json.
	OutputFormat string `koanf:"output"`
	// Locale drives number formatting (BCP 47 tag).
	Locale string `koanf:"locale"`
	// NoColor disables terminal colors.
	NoColor bool `koanf:"no_color"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	Serve *ServeConfig `koanf:"serve"`

	Environments map[string]EnvConfig `koanf:"environments"`
}

// ServeConfig holds configuration for the HTTP API server.
type ServeConfig struct {
	Addr string `koanf:"addr"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Dashboard string `koanf:"dashboard"`
	Dataset   string `koanf:"dataset"`
	StatePath string `koanf:"state_path"`
}

// GetServeConfig returns the serve config with defaults applied.
func (c *Config) GetServeConfig() *ServeConfig {
	if c.Serve == nil {
		return &ServeConfig{Addr: DefaultServeAddr}
	}
	s := c.Serve
	if s.Addr == "" {
		s.Addr = DefaultServeAddr
	}
	return s
}

// Default configuration values.
const (
	DefaultDashboard = "dashboard.yaml"
	DefaultStateFile = ".gridsight/state.db"
	DefaultEnv       = "dev"
	DefaultOutput    = "text"
	DefaultLocale    = "en"
	DefaultServeAddr = ":8090"
)
