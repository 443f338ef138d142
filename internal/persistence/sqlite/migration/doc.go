// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files follow the naming convention {version}_{description}.sql
// (for example "001_initial_schema.sql") and are read from any fs.FS, which
// lets the schema ship embedded in the binary. Applied versions are tracked in
// the schema_migrations table together with the checksum of the file that was
// executed, so an edited migration is detected on the next start.
//
// Example usage:
//
//	scanner := migration.NewFileScanner(migrationFS, "migrations")
//	executor := migration.NewSQLiteExecutor(db)
//	manager := migration.NewManager(scanner, executor, logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
