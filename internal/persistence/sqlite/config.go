package sqlite

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SQLiteConfig holds SQLite-specific database configuration.
type SQLiteConfig struct {
	// Path is the database file path, or ":memory:".
	Path string

	// BusyTimeout sets how long a connection waits for a lock held by another.
	BusyTimeout time.Duration

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, ...).
	JournalMode string

	// Synchronous sets the synchronous mode (FULL, NORMAL, OFF).
	Synchronous string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultSQLiteConfig returns the configuration used by the server.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:            path,
		BusyTimeout:     5 * time.Second,
		JournalMode:     "WAL",
		Synchronous:     "NORMAL",
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Hour,
	}
}

// InMemorySQLiteConfig returns a configuration for a private in-memory
// database. A single connection keeps every query on the same database.
func InMemorySQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:         ":memory:",
		BusyTimeout:  time.Second,
		JournalMode:  "MEMORY",
		Synchronous:  "OFF",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// Validate checks the configuration before a connection is opened.
func (c SQLiteConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("sqlite: database path is required")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy timeout must not be negative")
	}
	switch strings.ToUpper(c.JournalMode) {
	case "", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
	default:
		return fmt.Errorf("sqlite: unsupported journal mode %q", c.JournalMode)
	}
	switch strings.ToUpper(c.Synchronous) {
	case "", "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("sqlite: unsupported synchronous mode %q", c.Synchronous)
	}
	return nil
}

// IsInMemory reports whether the configuration targets an in-memory database.
func (c SQLiteConfig) IsInMemory() bool {
	return c.Path == ":memory:"
}

// DSN builds the modernc.org/sqlite connection string. Pragmas are passed as
// _pragma parameters so every pooled connection gets them, and _txlock makes
// each transaction take the write lock on BEGIN.
func (c SQLiteConfig) DSN() string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.JournalMode != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", strings.ToUpper(c.JournalMode)))
	}
	if c.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", strings.ToUpper(c.Synchronous)))
	}
	params.Set("_txlock", "immediate")
	return "file:" + c.Path + "?" + params.Encode()
}
