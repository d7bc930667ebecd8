package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	conf := DefaultConfig()
	require.NoError(t, NewValidator().Validate(conf))
	assert.Equal(t, "parley-standard", conf.Chat.Model)
	assert.Equal(t, 30, conf.API.Timeout)
	assert.Equal(t, "auto", conf.Preferences.UI.Theme)
}

func TestValidatorRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad theme", func(c *Config) { c.Preferences.UI.Theme = "neon" }},
		{"bad log level", func(c *Config) { c.Observability.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Observability.Logging.Format = "xml" }},
		{"bad base url", func(c *Config) { c.API.BaseURL = "not a url" }},
		{"timeout too large", func(c *Config) { c.API.Timeout = 9999 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := DefaultConfig()
			tt.mutate(conf)
			assert.Error(t, NewValidator().Validate(conf))
		})
	}
}

func TestLoaderMergePrecedence(t *testing.T) {
	dir := t.TempDir()

	userPath := filepath.Join(dir, "user.json")
	require.NoError(t, os.WriteFile(userPath, []byte(`{
		"api": {"base_url": "https://user.example.com", "timeout": 10},
		"chat": {"model": "user-model"}
	}`), 0644))

	localPath := filepath.Join(dir, "local.json")
	require.NoError(t, os.WriteFile(localPath, []byte(`{
		"chat": {"model": "local-model"}
	}`), 0644))

	loader := NewLoader(ConfigPrecedence{
		UserConfig:  userPath,
		LocalConfig: localPath,
	})
	conf, err := loader.Load()
	require.NoError(t, err)

	// Local overrides user; user overrides defaults.
	assert.Equal(t, "local-model", conf.Chat.Model)
	assert.Equal(t, "https://user.example.com", conf.API.BaseURL)
	assert.Equal(t, 10, conf.API.Timeout)
}

func TestLoaderMissingFilesUseDefaults(t *testing.T) {
	loader := NewLoader(ConfigPrecedence{
		UserConfig:  filepath.Join(t.TempDir(), "does-not-exist.json"),
		LocalConfig: "",
	})
	conf, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Chat.Model, conf.Chat.Model)
}

func TestLoaderRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{not json"), 0644))

	loader := NewLoader(ConfigPrecedence{UserConfig: badPath})
	_, err := loader.Load()
	assert.Error(t, err)
}

func TestLoaderEnvironmentOverrides(t *testing.T) {
	t.Setenv("PARLEYTEST_SESSION_TOKEN", "env-token")
	t.Setenv("PARLEYTEST_MODEL", "env-model")
	t.Setenv("PARLEYTEST_LOG_LEVEL", "debug")

	loader := NewLoader(ConfigPrecedence{EnvironmentPrefix: "PARLEYTEST"})
	conf, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "env-token", conf.API.SessionToken)
	assert.Equal(t, "env-model", conf.Chat.Model)
	assert.Equal(t, "debug", conf.Observability.Logging.Level)
}

func TestLoaderResolvesTokenEnvVar(t *testing.T) {
	t.Setenv("MY_PARLEY_TOKEN", "indirect-token")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api": {"session_token_env_var": "MY_PARLEY_TOKEN"}
	}`), 0644))

	loader := NewLoader(ConfigPrecedence{UserConfig: path})
	conf, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "indirect-token", conf.API.SessionToken)
}

func TestSaveFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	conf := DefaultConfig()
	conf.Chat.Model = "saved-model"

	loader := NewLoader(ConfigPrecedence{})
	require.NoError(t, loader.SaveFile(conf, path))

	reloaded := NewLoader(ConfigPrecedence{UserConfig: path})
	got, err := reloaded.Load()
	require.NoError(t, err)
	assert.Equal(t, "saved-model", got.Chat.Model)
}

func TestManagerUpdate(t *testing.T) {
	mgr, err := NewManagerWithConfig(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, mgr.Update(map[string]interface{}{
		"chat": map[string]interface{}{"model": "updated-model"},
	}))
	assert.Equal(t, "updated-model", mgr.GetChatConfig().Model)

	err = mgr.Update(map[string]interface{}{
		"preferences": map[string]interface{}{"ui": map[string]interface{}{"theme": "neon"}},
	})
	assert.Error(t, err)
}
