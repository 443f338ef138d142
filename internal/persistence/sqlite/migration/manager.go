package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Manager orchestrates scanning, validating and applying migrations.
type Manager struct {
	scanner  FileScanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger falls back to slog.Default.
func NewManager(scanner FileScanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// Run applies every pending migration in version order and returns how many
// were applied. Execution stops at the first failure.
func (m *Manager) Run(ctx context.Context) (int, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}

	m.logger.InfoContext(ctx, "schema version",
		"current_version", status.CurrentVersion,
		"pending", len(status.Pending),
	)

	for i, migration := range status.Pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"step", i+1,
			"total", len(status.Pending),
		)

		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				"version", migration.Version,
				"file", migration.FilePath,
				"error", err,
			)
			return i, NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}

		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"duration", elapsed,
		)
	}

	return len(status.Pending), nil
}

// Status reports the applied and pending migrations after validating that the
// files on disk agree with what the database has recorded.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return Status{}, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateApplied(available, applied); err != nil {
		return Status{}, err
	}

	appliedSet := make(map[int]bool, len(applied))
	for _, record := range applied {
		number, _ := strconv.Atoi(record.Version)
		appliedSet[number] = true
	}

	status := Status{Applied: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	for _, migration := range available {
		number, _ := strconv.Atoi(migration.Version)
		if !appliedSet[number] {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}

// validateApplied rejects databases that recorded a version missing from the
// migration files, or whose recorded checksum differs from the file.
func validateApplied(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		number, _ := strconv.Atoi(migration.Version)
		byVersion[number] = migration
	}

	for _, record := range applied {
		number, err := strconv.Atoi(record.Version)
		if err != nil {
			return NewDatabaseError(record.Version, "", "validate applied versions",
				fmt.Errorf("%w: applied version %q is not numeric", ErrInvalidVersion, record.Version))
		}
		migration, ok := byVersion[number]
		if !ok {
			return NewMigrationError(record.Version, "", "validate applied versions", ErrUnknownVersion)
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return NewMigrationError(record.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
