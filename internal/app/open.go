package app

import (
	"context"
	"fmt"
	"path/filepath"

	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/database"
	"balanced-meal-planner/internal/pgstore"
	"balanced-meal-planner/internal/planner"

	"go.uber.org/zap"
)

// Open connects to the configured database, runs its migrations and builds
// the App. The returned func releases the connection.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	var opts []planner.Option
	if cfg.MenuLayoutsFile != "" {
		layouts, err := planner.LoadLayouts(cfg.MenuLayoutsFile)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := layouts.Get(cfg.MenuLayout); !ok {
			return nil, nil, fmt.Errorf("%w: %s", planner.ErrUnknownLayout, cfg.MenuLayout)
		}
		opts = append(opts, planner.WithLayouts(layouts, cfg.MenuLayout))
	}

	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		store, err := pgstore.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		log.Info("Using postgres storage")
		return NewApp(PostgresStores(store), cfg, log, opts...), store.Close, nil
	default:
		db, err := database.NewDB(cfg.DatabasePath, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info("Using sqlite storage", zap.String("path", cfg.DatabasePath))
		closeDB := func() {
			if err := db.Close(); err != nil {
				log.Warn("Failed to close database", zap.Error(err))
			}
		}
		return NewApp(SQLiteStores(db.SQL), cfg, log, opts...), closeDB, nil
	}
}

// DataDir is the directory whose size the health reports include.
func DataDir(cfg *config.Config) string {
	if cfg.DatabaseDriver == config.DriverPostgres {
		return "data"
	}
	return filepath.Dir(cfg.DatabasePath)
}
