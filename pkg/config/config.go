// Package config loads and validates the gridfeed service configuration
// from a YAML file, environment variables, and flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Roster source kinds.
const (
	SourceStatic = "static"
	SourceHTTP   = "http"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
)

// Duration wraps time.Duration for YAML decoding of values like "5s".
type Duration time.Duration

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// RosterConfig selects and parameterizes the roster provider.
type RosterConfig struct {
	// Source is "static" (driver list below) or "http" (remote URL).
	Source string `yaml:"source"`

	// URL is the roster endpoint for the http source.
	URL string `yaml:"url"`

	// Drivers is the driver list for the static source.
	Drivers []string `yaml:"drivers"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full service configuration.
type Config struct {
	Port           int          `yaml:"port"`
	AdminToken     string       `yaml:"admin_token"`
	TickInterval   Duration     `yaml:"tick_interval"`
	FetchTimeout   Duration     `yaml:"fetch_timeout"`
	WSPushInterval Duration     `yaml:"ws_push_interval"`
	ReadTimeout    Duration     `yaml:"read_timeout"`
	WriteTimeout   Duration     `yaml:"write_timeout"`
	Roster         RosterConfig `yaml:"roster"`
	Log            LogConfig    `yaml:"log"`
}

// defaultDrivers is the fallback grid for the static roster source.
var defaultDrivers = []string{
	"VER", "PER", "HAM", "RUS", "LEC", "SAI", "NOR", "PIA", "ALO", "STR",
	"GAS", "OCO", "ALB", "SAR", "TSU", "RIC", "BOT", "ZHO", "MAG", "HUL",
}

// Default returns the built-in configuration.
func Default() *Config {
	drivers := make([]string, len(defaultDrivers))
	copy(drivers, defaultDrivers)
	return &Config{
		Port:           8000,
		TickInterval:   Duration(5 * time.Second),
		FetchTimeout:   Duration(10 * time.Second),
		WSPushInterval: Duration(time.Second),
		ReadTimeout:    Duration(30 * time.Second),
		WriteTimeout:   Duration(30 * time.Second),
		Roster: RosterConfig{
			Source:  SourceStatic,
			Drivers: drivers,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.TickInterval <= 0 {
		return errors.New("tick_interval must be positive")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch_timeout must be positive")
	}
	if c.WSPushInterval <= 0 {
		return errors.New("ws_push_interval must be positive")
	}

	switch c.Roster.Source {
	case SourceStatic:
		if len(c.Roster.Drivers) == 0 {
			return errors.New("static roster source requires at least one driver")
		}
	case SourceHTTP:
		if c.Roster.URL == "" {
			return errors.New("http roster source requires a url")
		}
	default:
		return fmt.Errorf("roster source must be %q or %q, got %q",
			SourceStatic, SourceHTTP, c.Roster.Source)
	}
	return nil
}
