package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "migrations.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	return count > 0
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- Description: two tables
CREATE TABLE a (id TEXT);

-- second
CREATE TABLE b (
    id TEXT
);
`
	statements := splitStatements(sql)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE TABLE b (\nid TEXT\n)" {
		t.Fatalf("unexpected second statement: %q", statements[1])
	}
}

func TestSQLiteExecutorRecordsMigration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	executor := NewSQLiteExecutor(db)

	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("InitializeVersionTable failed: %v", err)
	}

	migration := Migration{Version: "001", Description: "things", SQL: "CREATE TABLE things (id TEXT);", Checksum: "abc"}
	if _, err := executor.ExecuteMigration(ctx, migration); err != nil {
		t.Fatalf("ExecuteMigration failed: %v", err)
	}

	applied, err := executor.GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("GetAppliedVersions failed: %v", err)
	}
	if len(applied) != 1 || applied[0].Version != "001" || applied[0].Checksum != "abc" {
		t.Fatalf("unexpected applied migrations: %#v", applied)
	}
	if !tableExists(t, db, "things") {
		t.Fatalf("expected table to be created")
	}
}

func TestSQLiteExecutorRollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	executor := NewSQLiteExecutor(db)

	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("InitializeVersionTable failed: %v", err)
	}

	migration := Migration{
		Version: "001",
		SQL:     "CREATE TABLE first (id TEXT);\nINSERT INTO missing_table VALUES (1);",
	}
	_, err := executor.ExecuteMigration(ctx, migration)

	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}
	if tableExists(t, db, "first") {
		t.Fatalf("expected partial migration to be rolled back")
	}

	applied, err := executor.GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("GetAppliedVersions failed: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no recorded versions, got %#v", applied)
	}
}
