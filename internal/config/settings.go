package config

import (
	"strings"
	"time"
)

// Settings are the resolved options of one run.
//
// Fields carry mapstructure tags so viper can unmarshal flags and
// SHOPLOAD_* environment variables straight into them.
type Settings struct {
	// TargetsFile is the path of the targets file
	TargetsFile string `mapstructure:"config"`

	// LogFile is the request log path
	LogFile string `mapstructure:"log"`

	// LogMaxSizeMB enables request log rotation when > 0
	LogMaxSizeMB int `mapstructure:"log-max-size"`

	// LogMaxBackups is the number of rotated request logs to keep
	LogMaxBackups int `mapstructure:"log-max-backups"`

	// LogMaxAgeDays removes rotated request logs older than this (0 = keep)
	LogMaxAgeDays int `mapstructure:"log-max-age"`

	// LogCompress gzips rotated request logs
	LogCompress bool `mapstructure:"log-compress"`

	// Workers is the number of concurrent sessions (1 = sequential)
	Workers int `mapstructure:"workers"`

	// Sessions stops dispatch after this many sessions (0 = unbounded)
	Sessions int `mapstructure:"sessions"`

	// Duration bounds the whole run (0 = until interrupted)
	Duration time.Duration `mapstructure:"duration"`

	// Timeout is the per-request timeout
	Timeout time.Duration `mapstructure:"timeout"`

	// Seed for all session randomness (0 = time based)
	Seed int64 `mapstructure:"seed"`

	// ThinkTime pauses a session between consecutive calls (0 = none)
	ThinkTime time.Duration `mapstructure:"think-time"`

	// FailFast stops the whole run on the first failed session
	FailFast bool `mapstructure:"fail-fast"`

	// MetricsAddr serves Prometheus metrics when set
	MetricsAddr string `mapstructure:"metrics-addr"`

	// LogLevel and LogFormat configure diagnostic logging
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`

	Quiet   bool `mapstructure:"quiet"`
	NoColor bool `mapstructure:"no-color"`
}

// DefaultTimeout is the per-request timeout when none is configured.
const DefaultTimeout = 30 * time.Second

// ApplyDefaults fills zero values with defaults.
func (s *Settings) ApplyDefaults() {
	if s.Workers == 0 {
		s.Workers = 1
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.LogFormat == "" {
		s.LogFormat = "console"
	}
	if s.Seed == 0 {
		s.Seed = time.Now().UnixNano()
	}
}

// Validate checks the settings.
//
// Returns nil if valid, or a ValidationErrors containing all validation errors.
func (s *Settings) Validate() error {
	errs := &ValidationErrors{}

	if s.TargetsFile == "" {
		errs.Add("config", "targets file is required")
	}
	if s.LogFile == "" {
		errs.Add("log", "request log path is required")
	}
	if s.Workers < 1 {
		errs.Add("workers", "must be at least 1")
	}
	if s.Sessions < 0 {
		errs.Add("sessions", "cannot be negative")
	}
	if s.Duration < 0 {
		errs.Add("duration", "cannot be negative")
	}
	if s.Timeout <= 0 {
		errs.Add("timeout", "must be positive")
	}
	if s.LogMaxSizeMB < 0 {
		errs.Add("log-max-size", "cannot be negative")
	}
	if s.LogMaxBackups < 0 {
		errs.Add("log-max-backups", "cannot be negative")
	}
	if s.LogMaxAgeDays < 0 {
		errs.Add("log-max-age", "cannot be negative")
	}
	if s.ThinkTime < 0 {
		errs.Add("think-time", "cannot be negative")
	}

	switch strings.ToLower(s.LogFormat) {
	case "console", "json":
	default:
		errs.Add("log-format", "must be console or json")
	}

	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs.Add("log-level", "must be one of debug, info, warn, error")
	}

	return errs.orNil()
}
