package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader assembles the application configuration from defaults, an
// optional YAML file, and environment variables, in that priority order.
// Command line flags override on top and are handled by the CLI.
type Loader struct {
	searchPaths  []string
	envPrefix    string
	allowMissing bool
	configFile   string
}

// NewLoader creates a loader with the standard search paths and the
// SAMPO_ environment prefix.
func NewLoader() *Loader {
	return &Loader{
		searchPaths:  DefaultSearchPaths(),
		envPrefix:    "SAMPO_",
		allowMissing: true,
	}
}

// WithSearchPaths sets custom search paths for configuration files.
func (l *Loader) WithSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithConfigFile pins the loader to one specific configuration file.
func (l *Loader) WithConfigFile(file string) *Loader {
	l.configFile = file
	return l
}

// RequireConfigFile makes a missing configuration file an error instead
// of falling back to defaults.
func (l *Loader) RequireConfigFile() *Loader {
	l.allowMissing = false
	return l
}

// Load builds the effective configuration: defaults, then the config file
// if one is found, then environment overrides, then validation.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	if _, err := l.loadConfigFile(config); err != nil {
		return nil, err
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, NewConfigError("env_override",
			fmt.Sprintf("failed to apply environment overrides: %v", err),
			"check environment variable format and values").WithCause(err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadConfigFile finds and loads a configuration file into config.
// Returns the path used, or "" when none was found and that is allowed.
func (l *Loader) loadConfigFile(config *Config) (string, error) {
	configFile := l.configFile
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return "", NewConfigFileError("not_found", configFile,
				"specified config file does not exist",
				"check the file path")
		}
	} else {
		configFile = l.findConfigFile()
		if configFile == "" {
			if !l.allowMissing {
				return "", NewConfigError("not_found",
					"no configuration file found",
					"create one of the standard config files or set SAMPO_CONFIG")
			}
			return "", nil
		}
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return "", NewConfigFileError("read_error", configFile,
			fmt.Sprintf("failed to read config file: %v", err),
			"check file permissions").WithCause(err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return "", NewConfigFileError("parse_error", configFile,
			fmt.Sprintf("failed to parse YAML: %v", err),
			"check YAML syntax").WithCause(err)
	}

	return configFile, nil
}

// findConfigFile searches the SAMPO_CONFIG variable and the standard paths.
func (l *Loader) findConfigFile() string {
	if envFile := os.Getenv("SAMPO_CONFIG"); envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			return envFile
		}
	}
	for _, path := range l.searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// applyEnvOverrides writes prefixed environment variables into config.
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		"LOG_LEVEL": func(val string) error {
			config.LogLevel = val
			return nil
		},
		"LOG_FORMAT": func(val string) error {
			config.LogFormat = val
			return nil
		},
		"OUTPUT_FORMAT": func(val string) error {
			config.Output.Format = val
			return nil
		},
		"OUTPUT_COLOR": func(val string) error {
			config.Output.Color = parseBool(val)
			return nil
		},
		"EXPORT_ENABLED": func(val string) error {
			config.Export.Enabled = parseBool(val)
			return nil
		},
		"EXPORT_DIR": func(val string) error {
			config.Export.Directory = val
			return nil
		},
		"EXPORT_PREFIX": func(val string) error {
			config.Export.Prefix = val
			return nil
		},
		"EXPORT_FORMATS": func(val string) error {
			config.Export.Formats = parseStringSlice(val)
			return nil
		},
		"SERVE_HOST": func(val string) error {
			config.Serve.Host = val
			return nil
		},
		"SERVE_PORT": func(val string) error {
			port, err := parseInt(val)
			if err != nil {
				return fmt.Errorf("invalid port number: %v", err)
			}
			config.Serve.Port = port
			return nil
		},
		"SERVE_AUTO_RELOAD": func(val string) error {
			config.Serve.AutoReload = parseBool(val)
			return nil
		},
		"WATCH_DEBOUNCE_MS": func(val string) error {
			ms, err := parseInt(val)
			if err != nil {
				return fmt.Errorf("invalid debounce value: %v", err)
			}
			config.Watch.DebounceMillis = ms
			return nil
		},
	}

	for envKey, applyFunc := range envMappings {
		fullEnvKey := l.envPrefix + envKey
		if val := os.Getenv(fullEnvKey); val != "" {
			if err := applyFunc(val); err != nil {
				return fmt.Errorf("environment variable %s: %v", fullEnvKey, err)
			}
		}
	}

	return nil
}

// SaveConfig writes config as YAML to path, creating directories as needed.
func (l *Loader) SaveConfig(config *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return NewConfigFileError("create_dir", dir,
				fmt.Sprintf("failed to create config directory: %v", err),
				"check directory permissions").WithCause(err)
		}
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return NewConfigError("marshal",
			fmt.Sprintf("failed to marshal config to YAML: %v", err), "").WithCause(err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewConfigFileError("write", path,
			fmt.Sprintf("failed to write config file: %v", err),
			"check file permissions and disk space").WithCause(err)
	}

	return nil
}

// DefaultSearchPaths lists where configuration files are looked for,
// in priority order.
func DefaultSearchPaths() []string {
	paths := []string{
		"./sampo.yaml",
		"./.sampo.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".sampo.yaml"),
			filepath.Join(home, ".sampo", "config.yaml"),
		)
	}
	paths = append(paths, "/etc/sampo/config.yaml")
	return paths
}

// DefaultConfigPath returns where a new configuration file should go.
func (l *Loader) DefaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".sampo.yaml")
	}
	return "./sampo.yaml"
}
