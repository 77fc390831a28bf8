package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/microlearn-backend/internal/data/db"
	httpserver "github.com/yungbote/microlearn-backend/internal/http"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

// Version is stamped at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

type App struct {
	Log       *logger.Logger
	Cfg       Config
	DBService *db.Service
	DB        *gorm.DB
	Metrics   *observability.Metrics
	Repos     Repos
	Clients   Clients
	Gates     Gates
	Jobs      Jobs
	Services  Services
	Server    *httpserver.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.NewMetrics()

	dbs, err := db.NewService(cfg.DB, log)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := dbs.AutoMigrateAll(); err != nil {
		_ = dbs.Close()
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbs.DB()

	reposet := wireRepos(theDB, log)
	clients, err := wireClients(log, cfg, metrics)
	if err != nil {
		_ = dbs.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}
	gates := wireGates(log, reposet)
	jobs, err := wireJobs(log, cfg, reposet, gates, clients, metrics)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}
	serviceset := wireServices(theDB, log, cfg, reposet, gates, clients, jobs.Runner)
	handlers := wireHandlers(log, serviceset, dbs)
	middleware := wireMiddleware(log, cfg)
	server := wireServer(log, cfg, metrics, handlers, middleware)

	return &App{
		Log:          log,
		Cfg:          cfg,
		DBService:    dbs,
		DB:           theDB,
		Metrics:      metrics,
		Repos:        reposet,
		Clients:      clients,
		Gates:        gates,
		Jobs:         jobs,
		Services:     serviceset,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work that is not tied to a request.
func (a *App) Start() error {
	if a == nil || a.Jobs.Sweeper == nil {
		return nil
	}
	if err := a.Jobs.Sweeper.Start(); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	return nil
}

// Run blocks serving HTTP until Close is called.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	a.Log.Info("HTTP server listening", "port", a.Cfg.Port, "version", Version)
	return a.Server.Run()
}

// Close stops accepting requests, drains in-flight jobs, then releases clients and the DB.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown", "error", err)
		}
	}
	if a.Jobs.Runner != nil {
		if err := a.Jobs.Runner.Shutdown(ctx); err != nil {
			a.Log.Warn("Job runner shutdown", "error", err)
		}
	}
	if a.Jobs.Sweeper != nil {
		a.Jobs.Sweeper.Stop(ctx)
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown", "error", err)
		}
	}
	if a.DBService != nil {
		if err := a.DBService.Close(); err != nil {
			a.Log.Warn("DB close", "error", err)
		}
	}
	a.Log.Sync()
}

// Migrate applies the schema and exits without starting anything else.
func Migrate(log *logger.Logger, cfg Config) error {
	dbs, err := db.NewService(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}
	defer dbs.Close()
	if err := dbs.AutoMigrateAll(); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	log.Info("Migration complete", "driver", dbs.Driver())
	return nil
}
