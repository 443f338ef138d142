package migration

import (
	"context"
	"time"
)

// Migration represents a database migration with its metadata and SQL content.
type Migration struct {
	Version     string // numeric version taken from the file name, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // sha256 of SQL, hex encoded
}

// AppliedMigration represents a migration recorded in schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status provides information about the current migration state.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// FileScanner discovers and parses migration files.
type FileScanner interface {
	// ScanMigrations returns every migration sorted by numeric version.
	ScanMigrations() ([]Migration, error)

	// ValidateFileName checks if a file name follows the naming convention.
	ValidateFileName(name string) error

	// ParseMigrationFile reads and parses a single migration file.
	ParseMigrationFile(path string) (*Migration, error)
}

// Executor runs migrations against the database.
type Executor interface {
	// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
	InitializeVersionTable(ctx context.Context) error

	// ExecuteMigration runs every statement of the migration and records it in
	// schema_migrations within one transaction.
	ExecuteMigration(ctx context.Context, migration Migration) (time.Duration, error)

	// GetAppliedVersions returns all applied migrations ordered by version.
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
