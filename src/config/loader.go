package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	precedence ConfigPrecedence
	validator  *Validator
}

// NewLoader creates a new configuration loader
func NewLoader(precedence ConfigPrecedence) *Loader {
	return &Loader{
		precedence: precedence,
		validator:  NewValidator(),
	}
}

// Load loads configuration from all sources and merges them
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	sources := []struct {
		path   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.LocalConfig, SourceLocal},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}

		if cfg, err := l.loadFile(src.path); err == nil {
			config = l.mergeConfigs(config, cfg)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
	}

	if l.precedence.EnvironmentPrefix != "" {
		l.applyEnvironmentOverrides(config)
	}

	// Resolve the session token from its env var when the file holds none.
	if config.API.SessionToken == "" && config.API.SessionTokenEnvVar != "" {
		config.API.SessionToken = os.Getenv(config.API.SessionTokenEnvVar)
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFile loads a single configuration file
func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &config, nil
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// mergeConfigs merges two configurations with the second taking precedence
func (l *Loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.API.BaseURL != "" {
		result.API.BaseURL = override.API.BaseURL
	}
	if override.API.SessionToken != "" {
		result.API.SessionToken = override.API.SessionToken
	}
	if override.API.SessionTokenEnvVar != "" {
		result.API.SessionTokenEnvVar = override.API.SessionTokenEnvVar
	}
	if override.API.Timeout != 0 {
		result.API.Timeout = override.API.Timeout
	}

	if override.Chat.Model != "" {
		result.Chat.Model = override.Chat.Model
	}
	if override.Chat.Endpoint != "" {
		result.Chat.Endpoint = override.Chat.Endpoint
	}

	if override.Storage.DatabasePath != "" {
		result.Storage.DatabasePath = override.Storage.DatabasePath
	}

	if override.Preferences.UI.Theme != "" {
		result.Preferences.UI.Theme = override.Preferences.UI.Theme
	}
	result.Preferences.Output.Verbose = override.Preferences.Output.Verbose
	result.Preferences.Output.Quiet = override.Preferences.Output.Quiet

	if override.Observability.Logging.Level != "" {
		result.Observability.Logging.Level = override.Observability.Logging.Level
	}
	if override.Observability.Logging.Format != "" {
		result.Observability.Logging.Format = override.Observability.Logging.Format
	}
	if override.Observability.Logging.File.Enabled {
		result.Observability.Logging.File = override.Observability.Logging.File
	}

	if override.Debug {
		result.Debug = true
	}

	return &result
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) {
	prefix := l.precedence.EnvironmentPrefix

	if token := os.Getenv(prefix + "_SESSION_TOKEN"); token != "" {
		config.API.SessionToken = token
	}
	if baseURL := os.Getenv(prefix + "_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if model := os.Getenv(prefix + "_MODEL"); model != "" {
		config.Chat.Model = model
	}
	if endpoint := os.Getenv(prefix + "_ENDPOINT"); endpoint != "" {
		config.Chat.Endpoint = endpoint
	}
	if dbPath := os.Getenv(prefix + "_DB_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}
	if level := os.Getenv(prefix + "_LOG_LEVEL"); level != "" {
		config.Observability.Logging.Level = level
	}
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	userConfigPath := filepath.Join(xdg.ConfigHome, "parley", "config.json")

	return ConfigPrecedence{
		SystemConfig:      "/etc/parley/config.json",
		UserConfig:        userConfigPath,
		LocalConfig:       filepath.Join(".parley", "config.local.json"),
		EnvironmentPrefix: "PARLEY",
	}
}

// FindConfigFile searches for a configuration file in standard locations
func FindConfigFile() (string, error) {
	paths := GetConfigPaths()

	checkPaths := []string{
		paths.LocalConfig,
		paths.UserConfig,
		paths.SystemConfig,
	}

	for _, path := range checkPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found")
}
