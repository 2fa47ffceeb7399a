// Package config provides configuration loading and validation for the
// slate-watcher worker: process-level ambient settings (Config) via Viper,
// and the domain WatcherConfig document (see watcher.go) unmarshaled
// straight from the positional config-file argument.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default ambient configuration values.
const (
	defaultMetricsShutdownTimeout = 10 * time.Second
	defaultHTTPConnectTimeout     = 500 * time.Millisecond
	defaultHTTPMaxResponseSize    = 1 << 20 // 1MiB
	defaultEmptyPollInterval      = 100 * time.Millisecond
	defaultDebounceWindow         = 5 * time.Second
	defaultFrameRateLimit         = 10
)

// Config holds process-wide ambient configuration: everything the worker
// needs that is not part of the per-Watcher configuration document.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds the metrics/snapshot HTTP server configuration. The
// server binds to the Watcher's own ingest_port per spec, but the shutdown
// timeout is an ambient operational knob.
type MetricsConfig struct {
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IngestConfig holds the allowlists used to validate slate URLs, overridable
// per deployment environment.
type IngestConfig struct {
	Environment        string   `mapstructure:"environment"` // "production" tightens AllowedSchemes
	AllowedSchemes     []string `mapstructure:"allowed_schemes"`
	AllowedExtensions  []string `mapstructure:"allowed_extensions"`
	EmptyPollInterval  time.Duration `mapstructure:"empty_poll_interval"`
	FrameRateLimit     int           `mapstructure:"frame_rate_limit"`
}

// HTTPConfig holds outbound HTTP client settings. They are loaded with the
// rest of the ambient configuration but not read by any client: the Action
// Executor Runtime uses a fixed 500ms connect timeout and the slate loader a
// fixed 1s connect / 10s overall timeout.
type HTTPConfig struct {
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxResponseSize ByteSize      `mapstructure:"max_response_size"`
}

// PipelineConfig holds the debounce window and other transition-engine
// knobs. The spec treats the debounce window as a fixed policy (5s); it is
// exposed here only so tests can exercise shorter windows, not as an
// operator-facing tuning surface.
type PipelineConfig struct {
	DebounceWindow Duration `mapstructure:"debounce_window"`
}

// Load reads ambient configuration from file and environment variables.
// Environment variables take precedence over file configuration and are
// prefixed with CUEHOOK_, using underscores for nesting, e.g.
// CUEHOOK_LOGGING_LEVEL=debug.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("cuehook")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/cuehook")
		v.AddConfigPath("$HOME/.cuehook")
	}

	v.SetEnvPrefix("CUEHOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Production drops "file" from the default scheme allowlist; an explicit
	// file or env setting still takes precedence over this default.
	if (&IngestConfig{Environment: v.GetString("ingest.environment")}).IsProduction() {
		v.SetDefault("ingest.allowed_schemes", []string{"http", "https"})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all ambient configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("metrics.shutdown_timeout", defaultMetricsShutdownTimeout)

	v.SetDefault("ingest.environment", "development")
	v.SetDefault("ingest.allowed_schemes", []string{"http", "https", "file"})
	v.SetDefault("ingest.allowed_extensions", []string{"jpg", "jpeg", "png"})
	v.SetDefault("ingest.empty_poll_interval", defaultEmptyPollInterval)
	v.SetDefault("ingest.frame_rate_limit", defaultFrameRateLimit)

	v.SetDefault("http.connect_timeout", defaultHTTPConnectTimeout)
	v.SetDefault("http.max_response_size", defaultHTTPMaxResponseSize)

	v.SetDefault("pipeline.debounce_window", defaultDebounceWindow)
}

// Validate checks the ambient configuration for errors.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	if len(c.Ingest.AllowedSchemes) == 0 {
		return fmt.Errorf("ingest.allowed_schemes must not be empty")
	}
	if len(c.Ingest.AllowedExtensions) == 0 {
		return fmt.Errorf("ingest.allowed_extensions must not be empty")
	}
	return nil
}

// IsProduction reports whether the ambient environment is production,
// which tightens the default allowed slate-URL schemes (no "file").
func (c *IngestConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
