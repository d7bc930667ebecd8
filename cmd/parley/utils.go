package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mlevan/parley/src/app"
	"github.com/mlevan/parley/src/config"
	"github.com/mlevan/parley/src/syncengine"
	"github.com/mlevan/parley/src/theme"
)

// buildApp loads configuration, applies CLI flag overrides and wires the
// application services.
func buildApp(ctx context.Context, cli *CLI) (*app.App, error) {
	conf, err := loadConfig(cli)
	if err != nil {
		return nil, err
	}

	theme.SetTheme(conf.Preferences.UI.Theme)

	return app.New(ctx, app.AppConfig{
		Config:       conf,
		Logger:       createCLILogger(cli.LogLevel),
		Notifier:     stderrNotifier{},
		DatabasePath: cli.DBPath,
	})
}

// loadConfig merges file configuration with CLI flag overrides.
func loadConfig(cli *CLI) (*config.Config, error) {
	loader := config.NewLoader(config.GetConfigPaths())
	conf, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cli.SessionToken != "" {
		conf.API.SessionToken = cli.SessionToken
	}
	if cli.BaseURL != "" {
		conf.API.BaseURL = cli.BaseURL
	}
	if cli.Model != "" {
		conf.Chat.Model = cli.Model
	}
	if cli.Endpoint != "" {
		conf.Chat.Endpoint = cli.Endpoint
	}
	return conf, nil
}

// stderrNotifier surfaces terminal sync failures to the user.
type stderrNotifier struct{}

var _ syncengine.Notifier = stderrNotifier{}

func (stderrNotifier) Notify(message string) {
	fmt.Fprintln(os.Stderr, theme.ErrorStyle().Render(message))
}
