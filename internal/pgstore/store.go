// Package pgstore keeps ingredients, recipes, menu plans, shopping lists and
// generation metrics in PostgreSQL. It mirrors the SQLite repositories so the
// server can run on either backend.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store owns the connection pool shared by every repository.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open migrates the database at databaseURL and connects a pool to it.
func Open(ctx context.Context, databaseURL string, log *zap.Logger) (*Store, error) {
	if err := RunMigrations(databaseURL, log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("PostgreSQL pool ready", zap.Int32("max_conns", config.MaxConns))
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ingredients returns the ingredient repository.
func (s *Store) Ingredients() *IngredientRepository { return &IngredientRepository{s} }

// Recipes returns the recipe repository.
func (s *Store) Recipes() *RecipeRepository { return &RecipeRepository{s} }

// Plans returns the menu plan repository.
func (s *Store) Plans() *PlanRepository { return &PlanRepository{s} }

// ShoppingLists returns the shopping list repository.
func (s *Store) ShoppingLists() *ShoppingRepository { return &ShoppingRepository{s} }

// Metrics returns the generation metrics store.
func (s *Store) Metrics() *MetricsStore { return &MetricsStore{s} }

// RunMigrations applies the embedded PostgreSQL migrations.
func RunMigrations(databaseURL string, log *zap.Logger) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	log.Info("Database migrations applied", zap.String("driver", "postgres"), zap.Uint("version", version))
	return nil
}

// migrateURL points a postgres:// URL at the pgx/v5 migrate driver.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
