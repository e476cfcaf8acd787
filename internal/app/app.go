package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/pg"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Name string
	Cfg  *Config
	Log  *slog.Logger
}

func New(name string, cfg *Config) *App {
	log := logger.New(name, cfg.Log)
	logger.SetDefault(log)
	return &App{
		Name: name,
		Cfg:  cfg,
		Log:  log,
	}
}

func (a *App) Run(ctx context.Context) error {
	a.Log.Info("running tarot bot",
		"storage", a.Cfg.StorageDriver,
		"ingress", a.Cfg.Bot.IngressMode,
		"timezone", a.Cfg.Bot.Timezone,
	)

	deps, err := a.initDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to init dependencies: %w", err)
	}

	return a.runServices(ctx, deps)
}

func (a *App) initPostgres(ctx context.Context) (*sqlx.DB, error) {
	if a.Cfg.Postgres == nil {
		return nil, fmt.Errorf("postgres configuration is missing")
	}

	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	a.Log.Info("postgres connected successfully")

	if err := pg.RunMigrations(ctx, db, a.Log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
