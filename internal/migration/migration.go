// Package migration applies embedded *.up.sql files in name order and
// records each applied version in schema_migrations.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"
)

// Dialect holds the SQL that differs between databases
type Dialect struct {
	Name        string
	CreateTable string
	Exists      string
	Insert      string
}

// Postgres dialect
var Postgres = Dialect{
	Name: "postgres",
	CreateTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	Exists: "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
	Insert: "INSERT INTO schema_migrations (version) VALUES ($1)",
}

// SQLite dialect
var SQLite = Dialect{
	Name: "sqlite",
	CreateTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		)`,
	Exists: "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)",
	Insert: "INSERT INTO schema_migrations (version) VALUES (?)",
}

// Record is one migration and whether it has been applied
type Record struct {
	Version   string     `json:"version"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// Versions lists the migration versions found in dir, sorted
func Versions(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(entry.Name(), ".up.sql"))
	}
	sort.Strings(versions)

	return versions, nil
}

// Run applies every pending migration. Each migration runs in its own
// transaction together with its schema_migrations row.
func Run(ctx context.Context, db *sql.DB, d Dialect, fsys fs.FS, dir string) (int, error) {
	if _, err := db.ExecContext(ctx, d.CreateTable); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	versions, err := Versions(fsys, dir)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, version := range versions {
		var exists bool
		if err := db.QueryRowContext(ctx, d.Exists, version).Scan(&exists); err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", version, err)
		}
		if exists {
			continue
		}

		content, err := fs.ReadFile(fsys, dir+"/"+version+".up.sql")
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", version, err)
		}

		log.Printf("[Migration] applying %s migration: %s", d.Name, version)

		if err := apply(ctx, db, d, version, string(content)); err != nil {
			return applied, err
		}
		applied++
	}

	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, d Dialect, version, content string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, content); err != nil {
		return fmt.Errorf("failed to apply migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, d.Insert, version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", version, err)
	}

	return tx.Commit()
}

// Status reports every known migration and when it was applied
func Status(ctx context.Context, db *sql.DB, d Dialect, fsys fs.FS, dir string) ([]Record, error) {
	if _, err := db.ExecContext(ctx, d.CreateTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	versions, err := Versions(fsys, dir)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	appliedAt := make(map[string]time.Time)
	for rows.Next() {
		var version string
		var at any
		if err := rows.Scan(&version, &at); err != nil {
			return nil, err
		}
		appliedAt[version] = toTime(at)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(versions))
	for _, v := range versions {
		r := Record{Version: v}
		if at, ok := appliedAt[v]; ok {
			r.Applied = true
			if !at.IsZero() {
				r.AppliedAt = &at
			}
		}
		records = append(records, r)
	}

	return records, nil
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, _ := time.Parse(time.RFC3339, t)
		return parsed
	case []byte:
		parsed, _ := time.Parse(time.RFC3339, string(t))
		return parsed
	default:
		return time.Time{}
	}
}
