package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Manager manages configuration loading, validation, and access
type Manager struct {
	config     *Config
	loader     *Loader
	validator  *Validator
	configPath string
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	precedence := GetConfigPaths()
	loader := NewLoader(precedence)

	config, err := loader.Load()
	if err != nil {
		if os.IsNotExist(err) {
			config = DefaultConfig()
		} else {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	// Find which config file was actually loaded
	configPath, _ := FindConfigFile()

	return &Manager{
		config:     config,
		loader:     loader,
		validator:  NewValidator(),
		configPath: configPath,
	}, nil
}

// NewManagerWithConfig creates a manager with a specific configuration
func NewManagerWithConfig(config *Config) (*Manager, error) {
	validator := NewValidator()
	if err := validator.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Manager{
		config:    config,
		loader:    NewLoader(GetConfigPaths()),
		validator: validator,
	}, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetAPIConfig returns the API configuration
func (m *Manager) GetAPIConfig() APIConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.API
}

// GetChatConfig returns the chat configuration
func (m *Manager) GetChatConfig() ChatConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Chat
}

// Reload reloads the configuration from disk
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	m.config = config
	return nil
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.configPath == "" {
		return fmt.Errorf("no configuration file path set")
	}

	return m.loader.SaveFile(m.config, m.configPath)
}

// SaveTo saves the configuration to a specific path
func (m *Manager) SaveTo(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.loader.SaveFile(m.config, path)
}

// Update updates the configuration with new values
func (m *Manager) Update(updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Round-trip through JSON to apply the partial update to the config.
	updateJSON, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("failed to marshal updates: %w", err)
	}

	var partialConfig Config
	if err := json.Unmarshal(updateJSON, &partialConfig); err != nil {
		return fmt.Errorf("failed to unmarshal updates: %w", err)
	}

	m.config = m.loader.mergeConfigs(m.config, &partialConfig)

	if err := m.validator.Validate(m.config); err != nil {
		return fmt.Errorf("invalid configuration after update: %w", err)
	}

	return nil
}
