package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/resource-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationDir is the directory inside MigrationFS holding the schema files.
const MigrationDir = "migrations"

// MigrationFS exposes the embedded schema migrations.
func MigrationFS() embed.FS {
	return migrationFS
}

// Store bundles the repositories that share one connection pool.
type Store struct {
	Events      *EventRepository
	Resources   *ResourceRepository
	Allocations *AllocationRepository

	pool *ConnectionPool
}

// Open connects to the database described by config, applies pending
// migrations and returns the repositories.
func Open(ctx context.Context, config SQLiteConfig, logger *slog.Logger) (*Store, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}

	if _, err := Migrate(ctx, pool, logger); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &Store{
		Events:      NewEventRepository(pool),
		Resources:   NewResourceRepository(pool),
		Allocations: NewAllocationRepository(pool),
		pool:        pool,
	}, nil
}

// Migrate applies the embedded migrations to the pool's database and returns
// how many were applied.
func Migrate(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) (int, error) {
	applied, err := newMigrationManager(pool, logger).Run(ctx)
	if err != nil {
		return applied, fmt.Errorf("failed to migrate database: %w", err)
	}
	return applied, nil
}

// MigrationStatus reports applied and pending migrations without changing
// the schema.
func MigrationStatus(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) (migration.Status, error) {
	return newMigrationManager(pool, logger).Status(ctx)
}

func newMigrationManager(pool *ConnectionPool, logger *slog.Logger) *migration.Manager {
	return migration.NewManager(
		migration.NewFileScanner(migrationFS, MigrationDir),
		migration.NewSQLiteExecutor(pool.DB()),
		logger,
	)
}

// Pool returns the connection pool shared by the repositories.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

// Close releases the underlying connections.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}
