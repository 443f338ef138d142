package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const versionTableDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		applied_at TEXT NOT NULL,
		checksum TEXT NOT NULL DEFAULT '',
		execution_time_ms INTEGER NOT NULL DEFAULT 0
	)
`

// SQLiteExecutor implements the Executor interface for SQLite databases.
type SQLiteExecutor struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteExecutor creates a new SQLite migration executor.
func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, versionTableDDL); err != nil {
		return NewDatabaseError("", versionTableDDL, "create schema_migrations table", err)
	}
	return nil
}

// ExecuteMigration runs the migration statements and records the version in a
// single transaction, so a failed migration leaves no trace.
func (e *SQLiteExecutor) ExecuteMigration(ctx context.Context, migration Migration) (elapsed time.Duration, err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return 0, NewMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	started := time.Now()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewDatabaseError(migration.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback error: %v)", err, rbErr)
			}
		}
	}()

	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return 0, NewDatabaseError(migration.Version, stmt, fmt.Sprintf("execute statement %d", i+1), execErr)
		}
	}

	elapsed = time.Since(started)
	const record = `
		INSERT INTO schema_migrations (version, description, applied_at, checksum, execution_time_ms)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, execErr := tx.ExecContext(ctx, record,
		migration.Version,
		migration.Description,
		e.now().Format(time.RFC3339Nano),
		migration.Checksum,
		elapsed.Milliseconds(),
	); execErr != nil {
		return 0, NewDatabaseError(migration.Version, record, "record migration", execErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return 0, NewDatabaseError(migration.Version, "", "commit transaction", commitErr)
	}
	return elapsed, nil
}

// GetAppliedVersions returns all applied migration versions with timestamps.
func (e *SQLiteExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	const query = `
		SELECT version, applied_at, execution_time_ms, checksum
		FROM schema_migrations
		ORDER BY CAST(version AS INTEGER) ASC
	`

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, NewDatabaseError("", query, "get applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			record      AppliedMigration
			appliedAt   string
			executionMs int64
		)
		if err := rows.Scan(&record.Version, &appliedAt, &executionMs, &record.Checksum); err != nil {
			return nil, NewDatabaseError("", query, "scan applied migration", err)
		}
		if record.AppliedAt, err = time.Parse(time.RFC3339Nano, appliedAt); err != nil {
			return nil, NewDatabaseError(record.Version, query, "parse applied_at", err)
		}
		record.ExecutionTime = time.Duration(executionMs) * time.Millisecond
		applied = append(applied, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("", query, "iterate applied migrations", err)
	}
	return applied, nil
}

// splitStatements splits SQL content on semicolons after dropping "--"
// comment lines. Statements must not embed semicolons in literals.
func splitStatements(sql string) []string {
	var statements []string
	for _, chunk := range strings.Split(sql, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, trimmed)
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
