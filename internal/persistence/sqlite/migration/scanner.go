package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// fsScanner implements FileScanner on top of an fs.FS.
type fsScanner struct {
	fsys fs.FS
	dir  string
}

// NewFileScanner returns a FileScanner reading migrations from dir inside fsys.
func NewFileScanner(fsys fs.FS, dir string) FileScanner {
	if dir == "" {
		dir = "."
	}
	return &fsScanner{fsys: fsys, dir: dir}
}

// ScanMigrations reads every *.sql file in the migration directory.
func (s *fsScanner) ScanMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.fsys, s.dir)
	if err != nil {
		return nil, NewFileSystemError(s.dir, "read directory", err)
	}

	var migrations []Migration
	seen := make(map[int]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		migration, err := s.ParseMigrationFile(path.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		number, _ := strconv.Atoi(migration.Version)
		if existing, ok := seen[number]; ok {
			return nil, NewMigrationError(migration.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s", ErrDuplicateVersion, migration.Version, existing, entry.Name()))
		}
		seen[number] = entry.Name()

		migrations = append(migrations, *migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := strconv.Atoi(migrations[i].Version)
		vj, _ := strconv.Atoi(migrations[j].Version)
		return vi < vj
	})

	return migrations, nil
}

// ValidateFileName checks if a migration file follows {version}_{description}.sql.
func (s *fsScanner) ValidateFileName(name string) error {
	matches := fileNamePattern.FindStringSubmatch(name)
	if matches == nil {
		return fmt.Errorf("%w: filename '%s' does not match pattern '{version}_{description}.sql'",
			ErrInvalidMigrationFile, name)
	}
	if _, err := strconv.Atoi(matches[1]); err != nil {
		return fmt.Errorf("%w: version '%s' in filename '%s' is not a valid number",
			ErrInvalidVersion, matches[1], name)
	}
	return nil
}

// ParseMigrationFile reads and parses a single migration file.
func (s *fsScanner) ParseMigrationFile(filePath string) (*Migration, error) {
	name := path.Base(filePath)
	if err := s.ValidateFileName(name); err != nil {
		return nil, NewMigrationError("", filePath, "validate filename", err)
	}
	matches := fileNamePattern.FindStringSubmatch(name)
	version := matches[1]

	content, err := fs.ReadFile(s.fsys, filePath)
	if err != nil {
		return nil, NewFileSystemError(filePath, "read file", err)
	}
	sqlContent := string(content)

	if err := validateSQL(sqlContent); err != nil {
		return nil, NewMigrationError(version, filePath, "validate SQL", err)
	}

	description := descriptionFromHeader(sqlContent)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	sum := sha256.Sum256(content)

	return &Migration{
		Version:     version,
		Description: description,
		SQL:         sqlContent,
		FilePath:    filePath,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

// validateSQL catches the mistakes that would otherwise surface halfway
// through a migration: empty files, unbalanced parentheses and open quotes.
func validateSQL(sql string) error {
	clean := stripComments(sql)
	if strings.TrimSpace(clean) == "" {
		return fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile)
	}

	depth := 0
	var quote rune
	for _, char := range clean {
		if quote != 0 {
			if char == quote {
				quote = 0
			}
			continue
		}
		switch char {
		case '\'', '"':
			quote = char
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unmatched closing parenthesis", ErrInvalidMigrationFile)
			}
		}
	}
	if quote != 0 {
		return fmt.Errorf("%w: unterminated string literal", ErrInvalidMigrationFile)
	}
	if depth != 0 {
		return fmt.Errorf("%w: unmatched opening parenthesis", ErrInvalidMigrationFile)
	}
	return nil
}

func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if idx := strings.Index(line, "--"); idx != -1 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// descriptionFromHeader returns the value of a "-- Description:" line found
// in the leading comment block.
func descriptionFromHeader(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
