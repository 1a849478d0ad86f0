// Package app wires configuration, storage, the credential resolver, the
// HTTP endpoints and the gRPC health service into a runnable application.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/mailkeeper/internal/backends"
	"github.com/dmitrijs2005/mailkeeper/internal/config"
	"github.com/dmitrijs2005/mailkeeper/internal/configstore"
	"github.com/dmitrijs2005/mailkeeper/internal/cryptox"
	"github.com/dmitrijs2005/mailkeeper/internal/grpcapi"
	"github.com/dmitrijs2005/mailkeeper/internal/httpapi"
	"github.com/dmitrijs2005/mailkeeper/internal/logging"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/repomanager"
	"github.com/dmitrijs2005/mailkeeper/internal/resolver"
	"github.com/dmitrijs2005/mailkeeper/internal/services"
	"github.com/dmitrijs2005/mailkeeper/internal/transport"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	store    configstore.Store
	accounts *services.AccountService
}

// healthNamespace is read by the config store health check. No account
// namespace has this form.
const healthNamespace = "health"

// openPostgres is a seam for tests.
var openPostgres = repomanager.OpenPostgres

// New opens storage and builds the services. An empty DatabaseDSN selects
// in-memory repositories, which only makes sense with the memory, sqlite,
// keyring or s3 config stores.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	var (
		db  *sql.DB
		rm  repomanager.RepositoryManager
		err error
	)

	if cfg.DatabaseDSN == "" {
		rm = repomanager.NewInMemoryRepositoryManager()
		logger.Warn(ctx, "No database configured, using in-memory repositories")
	} else {
		db, err = openPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm = repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	app, err := build(ctx, cfg, logger, db, rm)
	if err != nil && db != nil {
		_ = db.Close()
	}
	return app, err
}

func build(ctx context.Context, cfg *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	store, err := configstore.Open(ctx, cfg, db)
	if err != nil {
		return nil, fmt.Errorf("config store: %w", err)
	}

	codec := cryptox.NewCodec(cfg.SecretKey)

	registry, err := backends.FromConfig(cfg, rm.Instances(db), codec)
	if err != nil {
		return nil, fmt.Errorf("auth backends: %w", err)
	}

	r := resolver.New(store, codec, registry, logger.With("module", "resolver"), cfg.RefreshTimeout)
	dialer := transport.NewNetDialer(cfg.ProbeTimeout, logger)
	accounts := services.NewAccountService(db, rm, r, store, dialer, cfg, logger.With("module", "accounts"))

	return &App{config: cfg, logger: logger, db: db, store: store, accounts: accounts}, nil
}

// Accounts exposes the account service to the CLI.
func (app *App) Accounts() *services.AccountService {
	return app.accounts
}

// Close releases the database handle, and the config store when it holds
// its own resources.
func (app *App) Close() error {
	var errs []error
	if c, ok := app.store.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// healthChecks covers the config store and, when configured, the database.
func (app *App) healthChecks() []grpcapi.Check {
	checks := []grpcapi.Check{{
		Name: "configstore",
		Run: func(ctx context.Context) error {
			_, err := app.store.GetAll(ctx, healthNamespace)
			return err
		},
	}}
	if app.db != nil {
		checks = append(checks, grpcapi.Check{Name: "database", Run: app.db.PingContext})
	}
	return checks
}

// Run serves HTTP, and gRPC health when GRPCAddr is set, until a termination
// signal arrives or ctx is cancelled. A server that fails stops the others.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "config_store", app.config.ConfigStore)
	app.initSignalHandler(cancelFunc)

	router := httpapi.NewRouter(app.accounts, app.logger)
	servers := []func(context.Context) error{
		httpapi.NewServer(app.config.HTTPAddr, router, app.logger).Run,
	}
	if app.config.GRPCAddr != "" {
		health := grpcapi.NewServer(app.config.GRPCAddr, app.logger, app.config.HealthInterval, app.healthChecks()...)
		servers = append(servers, health.Run)
	}

	errs := make(chan error, len(servers))
	for _, run := range servers {
		run := run
		go func(){ errs <- run(ctx) }()
	}

	var err error
	for range servers {
		if e := <-errs; e != nil && err == nil {
			err = e
			cancelFunc()
		}
	}

	if cerr := app.Close(); cerr != nil {
		app.logger.Error(ctx, "close", "error", cerr)
	}
	return err
}
