package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/mlevan/parley/src/chatapi"
	"github.com/mlevan/parley/src/chatmsg"
	"github.com/mlevan/parley/src/config"
	"github.com/mlevan/parley/src/convstore"
	"github.com/mlevan/parley/src/export"
	"github.com/mlevan/parley/src/identity"
	"github.com/mlevan/parley/src/syncengine"
)

// App represents the main application with all services
type App struct {
	Service  chatapi.Service
	Store    *convstore.DB
	Messages *chatmsg.Store
	Engine   *syncengine.Engine
	Identity *identity.Identity
	Exporter *export.Exporter
	Logger   *slog.Logger
	Config   *config.Config
}

// AppConfig holds configuration for creating a new App instance
type AppConfig struct {
	Config   *config.Config
	Logger   *slog.Logger
	Notifier syncengine.Notifier

	// OnListRefresh is forwarded to the sync engine
	OnListRefresh func()

	// DatabasePath overrides the configured cache location, used by tests
	DatabasePath string
}

// New creates a new App instance with all services initialized. The engine is
// rehydrated and ready; the caller kicks it when it wants draining to start.
func New(ctx context.Context, cfg AppConfig) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	conf := cfg.Config
	if conf == nil {
		conf = config.DefaultConfig()
	}

	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = conf.Storage.DatabasePath
	}
	if dbPath == "" {
		dbPath = config.GetDefaultStoragePaths().DatabasePath
	}
	if dir := filepath.Dir(dbPath); dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	store, err := convstore.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation cache: %w", err)
	}

	ident := identity.Resolve(ctx, store, conf.API.SessionToken, logger)
	if !ident.CanSync() {
		logger.Warn("no sync identity available, conversations stay local")
	}

	client := chatapi.NewClient(chatapi.Config{
		BaseURL:      conf.API.BaseURL,
		SessionToken: ident.SessionToken,
		VisitorID:    ident.VisitorID,
		Timeout:      time.Duration(conf.API.Timeout) * time.Second,
		Logger:       logger,
	})

	messages := chatmsg.NewStore()
	engine := syncengine.New(syncengine.Config{
		Store:         messages,
		DB:            store,
		Service:       client,
		Identity:      ident,
		Logger:        logger,
		Notifier:      cfg.Notifier,
		OnListRefresh: cfg.OnListRefresh,
		Model:         conf.Chat.Model,
		Endpoint:      conf.Chat.Endpoint,
	})

	if err := engine.Rehydrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to rehydrate session: %w", err)
	}

	if conf.Chat.Endpoint != "" {
		if err := recordEndpoint(ctx, store, conf.Chat.Endpoint); err != nil {
			logger.Warn("failed to record endpoint history", "error", err)
		}
	}

	return &App{
		Service:  client,
		Store:    store,
		Messages: messages,
		Engine:   engine,
		Identity: ident,
		Exporter: export.New(afero.NewOsFs(), store, logger),
		Logger:   logger,
		Config:   conf,
	}, nil
}

// Close stops the engine and closes all resources held by the app
func (a *App) Close() error {
	if a.Engine != nil {
		a.Engine.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func recordEndpoint(ctx context.Context, store *convstore.DB, endpoint string) error {
	state, err := convstore.GetClientState(ctx, store.DB())
	if err != nil {
		return err
	}
	state.RecordEndpoint(endpoint)
	return convstore.SaveClientState(ctx, store.DB(), state)
}
