package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	// A money column declared in a CREATE or ALTER statement.
	moneyColumnRe = regexp.MustCompile(`(?im)^\s*(?:add\s+column\s+)?(?:if\s+not\s+exists\s+)?(amount|balance)\s+([a-z]+(?:\s*\([^)]*\))?)`)
)

// MoneyColumnType must match types.MaxAmount: 16 integer digits and cents.
const MoneyColumnType = "numeric(18,2)"

// Migration is one goose SQL file in a migrations directory.
type Migration struct {
	Version int64
	Name    string
	Path    string
}

// List returns the directory's migrations in version order. Files that are
// not .sql are ignored.
func List(dir string) ([]Migration, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var out []Migration
	seen := map[int64]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name)
		}
		seen[version] = name
		out = append(out, Migration{Version: version, Name: name, Path: filepath.Join(dir, name)})
	}
	return out, nil
}

// ValidateDir checks filenames and goose markers, and that every amount or
// balance column uses MoneyColumnType. A wider column would accept values
// the ledger refuses; a narrower one would fail inserts the API accepted.
func ValidateDir(dir string) error {
	migrations, err := List(dir)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		b, err := os.ReadFile(m.Path)
		if err != nil {
			return fmt.Errorf("read file %q: %w", m.Path, err)
		}
		if err := validateSQL(m.Name, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func validateSQL(name, txt string) error {
	if !strings.Contains(txt, "-- +goose Up") {
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	}
	if !strings.Contains(txt, "-- +goose Down") {
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	}
	for _, match := range moneyColumnRe.FindAllStringSubmatch(txt, -1) {
		declared := strings.ToLower(strings.ReplaceAll(match[2], " ", ""))
		if declared != MoneyColumnType {
			return fmt.Errorf("migration %q declares %s as %s, want %s", name, match[1], match[2], MoneyColumnType)
		}
	}
	return nil
}
