// Package config resolves gantry settings through viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds all runtime configuration for a gantry invocation.
// Values are populated from .gantry.yaml, GANTRY_* env vars, and CLI flags.
type Config struct {
	Project       string `mapstructure:"project"`
	DBPath        string `mapstructure:"db_path"`
	TelemetryPath string `mapstructure:"telemetry_path"`
	Color         bool   `mapstructure:"color"`
	Format        string `mapstructure:"format"`
	Cascade       bool   `mapstructure:"cascade"`
	LogLevel      string `mapstructure:"log_level"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("project", "")
	viper.SetDefault("db_path", "gantry.db")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("color", true)
	viper.SetDefault("format", FormatText)
	viper.SetDefault("cascade", false)
	viper.SetDefault("log_level", "warn")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: format %q (want %q or %q)", ErrInvalidConfig, c.Format, FormatText, FormatJSON)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: db_path is empty", ErrInvalidConfig)
	}
	return nil
}

// Level returns the slog level for LogLevel, defaulting to warn.
func (c Config) Level() slog.Level {
	lvl, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// ParseLogLevel maps debug, info, warn, or error to a slog level. An empty
// string means warn.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, s)
	}
}
