package config

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			SessionTokenEnvVar: "PARLEY_SESSION_TOKEN",
			Timeout:            30,
		},

		Chat: ChatConfig{
			Model: "parley-standard",
		},

		Preferences: PreferencesConfig{
			UI: UIPreferences{
				Theme: "auto",
			},
		},

		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}
