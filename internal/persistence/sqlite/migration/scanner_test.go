package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestFileScannerScanMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_add_index.sql":      {Data: []byte("CREATE INDEX idx ON things (name);")},
		"migrations/002_things.sql":         {Data: []byte("-- Description: Things table\nCREATE TABLE things (id TEXT, name TEXT);")},
		"migrations/README.md":              {Data: []byte("not a migration")},
		"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE base (id TEXT);")},
	}

	migrations, err := NewFileScanner(fsys, "migrations").ScanMigrations()
	if err != nil {
		t.Fatalf("ScanMigrations failed: %v", err)
	}

	want := []string{"001", "002", "010"}
	if len(migrations) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(migrations))
	}
	for i, version := range want {
		if migrations[i].Version != version {
			t.Errorf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
		}
	}

	if migrations[0].Description != "initial schema" {
		t.Errorf("expected description from file name, got %q", migrations[0].Description)
	}
	if migrations[1].Description != "Things table" {
		t.Errorf("expected description from header, got %q", migrations[1].Description)
	}
	if len(migrations[0].Checksum) != 64 {
		t.Errorf("expected hex sha256 checksum, got %q", migrations[0].Checksum)
	}
}

func TestFileScannerRejectsInvalidFiles(t *testing.T) {
	cases := []struct {
		name string
		fsys fstest.MapFS
		want error
	}{
		{
			name: "bad file name",
			fsys: fstest.MapFS{"m/initial.sql": {Data: []byte("SELECT 1;")}},
			want: ErrInvalidMigrationFile,
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"m/001_a.sql": {Data: []byte("SELECT 1;")},
				"m/1_b.sql":   {Data: []byte("SELECT 2;")},
			},
			want: ErrDuplicateVersion,
		},
		{
			name: "comments only",
			fsys: fstest.MapFS{"m/001_empty.sql": {Data: []byte("-- nothing here\n")}},
			want: ErrInvalidMigrationFile,
		},
		{
			name: "unbalanced parentheses",
			fsys: fstest.MapFS{"m/001_broken.sql": {Data: []byte("CREATE TABLE t (id TEXT;")}},
			want: ErrInvalidMigrationFile,
		},
		{
			name: "open string literal",
			fsys: fstest.MapFS{"m/001_quote.sql": {Data: []byte("INSERT INTO t VALUES ('oops);")}},
			want: ErrInvalidMigrationFile,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFileScanner(tc.fsys, "m").ScanMigrations()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFileScannerMissingDirectory(t *testing.T) {
	_, err := NewFileScanner(fstest.MapFS{}, "missing").ScanMigrations()

	var fsErr *FileSystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("expected FileSystemError, got %v", err)
	}
}
