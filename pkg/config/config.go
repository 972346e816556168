package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the application configuration: logging, output rendering,
// export, dashboard, and watch behavior. The analysis configuration
// (schema and rules) is deliberately not here; it travels with the data
// and is loaded per run.
type Config struct {
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"` // console or json

	Output OutputConfig `yaml:"output" json:"output"`
	Export ExportConfig `yaml:"export" json:"export"`
	Serve  ServeConfig  `yaml:"serve" json:"serve"`
	Watch  WatchConfig  `yaml:"watch" json:"watch"`
}

// OutputConfig controls how reports are rendered on the terminal.
type OutputConfig struct {
	Format string `yaml:"format" json:"format"` // human, json, yaml
	Color  bool   `yaml:"color" json:"color"`
}

// ExportConfig controls report file export.
type ExportConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Directory string   `yaml:"directory" json:"directory"`
	Prefix    string   `yaml:"prefix" json:"prefix"`
	Formats   []string `yaml:"formats" json:"formats"` // json, yaml, csv, markdown
}

// ServeConfig contains dashboard server settings.
type ServeConfig struct {
	Host            string `yaml:"host" json:"host"`
	Port            int    `yaml:"port" json:"port"`
	ReadTimeout     int    `yaml:"read_timeout" json:"read_timeout"`         // seconds
	WriteTimeout    int    `yaml:"write_timeout" json:"write_timeout"`       // seconds
	ShutdownTimeout int    `yaml:"shutdown_timeout" json:"shutdown_timeout"` // seconds
	AutoReload      bool   `yaml:"auto_reload" json:"auto_reload"`
}

// Address returns the host:port the dashboard listens on.
func (s ServeConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WatchConfig contains watch mode settings.
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms" json:"debounce_ms"`
}

// Debounce returns the watch debounce window as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMillis) * time.Millisecond
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "console",
		Output: OutputConfig{
			Format: "human",
			Color:  true,
		},
		Export: ExportConfig{
			Enabled:   false,
			Directory: "./exports",
			Prefix:    "sampo",
			Formats:   []string{"json"},
		},
		Serve: ServeConfig{
			Host:            "127.0.0.1",
			Port:            8780,
			ReadTimeout:     10,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
			AutoReload:      true,
		},
		Watch: WatchConfig{
			DebounceMillis: 500,
		},
	}
}

// ApplyDefaults fills any field still at its zero value. Booleans are left
// alone: their defaults come from DefaultConfig and survive file loading
// because files are unmarshaled on top of it.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()

	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	if c.Output.Format == "" {
		c.Output.Format = def.Output.Format
	}
	if c.Export.Directory == "" {
		c.Export.Directory = def.Export.Directory
	}
	if c.Export.Prefix == "" {
		c.Export.Prefix = def.Export.Prefix
	}
	if len(c.Export.Formats) == 0 {
		c.Export.Formats = def.Export.Formats
	}
	if c.Serve.Host == "" {
		c.Serve.Host = def.Serve.Host
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = def.Serve.Port
	}
	if c.Serve.ReadTimeout == 0 {
		c.Serve.ReadTimeout = def.Serve.ReadTimeout
	}
	if c.Serve.WriteTimeout == 0 {
		c.Serve.WriteTimeout = def.Serve.WriteTimeout
	}
	if c.Serve.ShutdownTimeout == 0 {
		c.Serve.ShutdownTimeout = def.Serve.ShutdownTimeout
	}
	if c.Watch.DebounceMillis == 0 {
		c.Watch.DebounceMillis = def.Watch.DebounceMillis
	}
}

// Validate checks the configuration and collects every problem found.
func (c *Config) Validate() error {
	var errs []ValidationError

	if !validLogLevel(c.LogLevel) {
		errs = append(errs, NewValidationError("log_level",
			fmt.Sprintf("unknown log level %q", c.LogLevel),
			"use one of: debug, info, warn, error"))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, NewValidationError("log_format",
			fmt.Sprintf("unknown log format %q", c.LogFormat),
			`use "console" or "json"`))
	}
	if !validOutputFormat(c.Output.Format) {
		errs = append(errs, NewValidationError("output.format",
			fmt.Sprintf("unknown output format %q", c.Output.Format),
			"use one of: human, json, yaml"))
	}

	for _, f := range c.Export.Formats {
		if !validExportFormat(f) {
			errs = append(errs, NewValidationError("export.formats",
				fmt.Sprintf("unknown export format %q", f),
				"use one of: json, yaml, csv, markdown"))
		}
	}
	if c.Export.Enabled && c.Export.Directory == "" {
		errs = append(errs, NewValidationError("export.directory",
			"export is enabled but no directory is set",
			"set export.directory or disable export"))
	}

	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		errs = append(errs, NewValidationError("serve.port",
			fmt.Sprintf("port %d is out of range", c.Serve.Port),
			"use a port between 1 and 65535"))
	}
	if c.Serve.ReadTimeout < 0 || c.Serve.WriteTimeout < 0 || c.Serve.ShutdownTimeout < 0 {
		errs = append(errs, NewValidationError("serve",
			"timeouts cannot be negative",
			"use zero to fall back to the default"))
	}

	if c.Watch.DebounceMillis < 0 {
		errs = append(errs, NewValidationError("watch.debounce_ms",
			"debounce cannot be negative",
			"use zero to fall back to the default"))
	}

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func validOutputFormat(format string) bool {
	switch strings.ToLower(format) {
	case "human", "json", "yaml":
		return true
	}
	return false
}

func validExportFormat(format string) bool {
	switch strings.ToLower(format) {
	case "json", "yaml", "csv", "markdown":
		return true
	}
	return false
}
