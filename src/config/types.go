package config

// Config represents the complete configuration for parley
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// API configuration for the remote conversation service
	API APIConfig `json:"api"`

	// Chat configuration (model selection and endpoint hint)
	Chat ChatConfig `json:"chat"`

	// Storage configuration for the local conversation cache
	Storage StorageConfig `json:"storage,omitempty"`

	// User preferences
	Preferences PreferencesConfig `json:"preferences"`

	// Observability configuration
	Observability ObservabilityConfig `json:"observability,omitempty"`

	// Debug enables general debug logging
	Debug bool `json:"debug,omitempty"`
}

// APIConfig defines how to reach and authenticate with the conversation
// service.
type APIConfig struct {
	// BaseURL of the conversation service
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// SessionToken authenticates the user. When empty the client falls back
	// to the anonymous visitor identity.
	SessionToken string `json:"session_token,omitempty"`

	// SessionTokenEnvVar names an environment variable to read the session
	// token from instead of storing it in the file
	SessionTokenEnvVar string `json:"session_token_env_var,omitempty"`

	// Timeout for API requests in seconds
	Timeout int `json:"timeout,omitempty" validate:"omitempty,min=1,max=600"`
}

// ChatConfig defines chat session settings.
type ChatConfig struct {
	// Model requested for new conversations
	Model string `json:"model,omitempty"`

	// Endpoint is a custom endpoint hint recorded on conversation creation
	Endpoint string `json:"endpoint,omitempty"`
}

// StorageConfig defines where the local conversation cache lives.
type StorageConfig struct {
	// DatabasePath overrides the default cache database location
	DatabasePath string `json:"database_path,omitempty"`
}

// PreferencesConfig defines user preferences
type PreferencesConfig struct {
	// UI preferences
	UI UIPreferences `json:"ui"`

	// Output preferences
	Output OutputPreferences `json:"output"`
}

// UIPreferences defines UI preferences
type UIPreferences struct {
	// Theme (light, dark, auto)
	Theme string `json:"theme" validate:"omitempty,theme"`
}

// OutputPreferences defines output preferences
type OutputPreferences struct {
	// Verbose output
	Verbose bool `json:"verbose"`

	// Quiet mode
	Quiet bool `json:"quiet"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	// Logging configuration
	Logging LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" validate:"omitempty,log_level"`

	// Format is the output format (text, json)
	Format string `json:"format,omitempty" validate:"omitempty,log_format"`

	// File output configuration
	File FileLoggingConfig `json:"file,omitempty"`
}

// FileLoggingConfig defines file logging configuration
type FileLoggingConfig struct {
	// Enabled indicates if file logging is on
	Enabled bool `json:"enabled"`

	// Path of the log file; defaults to the state directory
	Path string `json:"path,omitempty"`
}

// ConfigSource identifies where a configuration value came from
type ConfigSource string

const (
	SourceSystem ConfigSource = "system"
	SourceUser   ConfigSource = "user"
	SourceLocal  ConfigSource = "local"
)

// ConfigPrecedence defines the configuration file locations in merge order
type ConfigPrecedence struct {
	SystemConfig      string
	UserConfig        string
	LocalConfig       string
	EnvironmentPrefix string
}

// ValidationError describes a single invalid configuration value
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}
