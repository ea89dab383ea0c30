package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/common"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
	"github.com/ternarybob/speckle-accounts/internal/services/accounts"
	"github.com/ternarybob/speckle-accounts/internal/services/scheduler"
	"github.com/ternarybob/speckle-accounts/internal/services/streams"
	"github.com/ternarybob/speckle-accounts/internal/speckle"
	"github.com/ternarybob/speckle-accounts/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	SpeckleClient    interfaces.SpeckleClient
	AccountService   *accounts.Service
	StreamResolver   *streams.Resolver
	SchedulerService *scheduler.Service
}

// Option configures the App
type Option func(*App, *[]accounts.Option)

// WithAccountOptions passes options through to the account service
func WithAccountOptions(opts ...accounts.Option) Option {
	return func(_ *App, accountOpts *[]accounts.Option) {
		*accountOpts = append(*accountOpts, opts...)
	}
}

// New builds the application from configuration
func New(cfg *common.Config, logger arbor.ILogger, opts ...Option) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var accountOpts []accounts.Option
	for _, opt := range opts {
		opt(app, &accountOpts)
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(accountOpts); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Debug().
		Str("storage", cfg.Storage.Type).
		Bool("sealed", cfg.Storage.Sealed.IdentityFile != "").
		Str("accounts_dir", cfg.Accounts.Dir).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", a.Config.Storage.Type).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices(accountOpts []accounts.Option) error {
	store, err := storage.NewAccountStorage(a.Logger, a.StorageManager, a.Config)
	if err != nil {
		return err
	}

	a.SpeckleClient = speckle.NewClient(
		speckle.WithApp(a.Config.Auth.AppID, a.Config.Auth.AppSecret),
		speckle.WithTimeout(a.Config.RequestTimeout()),
		speckle.WithPingTimeout(a.Config.PingTimeout()),
		speckle.WithRateLimit(a.Config.Client.RateLimit),
		speckle.WithLogger(a.Logger),
	)

	a.AccountService = accounts.NewService(store, a.SpeckleClient, a.Config, a.Logger, accountOpts...)
	a.StreamResolver = streams.NewResolver(a.AccountService, a.SpeckleClient, a.Logger)

	// Each call made by a refresh run is already bounded by the client timeout
	a.SchedulerService = scheduler.NewService(a.AccountService, 0, a.Logger)

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Debug().Msg("Storage closed")
	}

	return nil
}
