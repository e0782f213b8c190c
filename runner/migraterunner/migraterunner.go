// Package migraterunner applies or reports database migrations and exits
package migraterunner

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sadewadee/safety-observer/internal/migration"
	"github.com/sadewadee/safety-observer/internal/repository/postgres"
	"github.com/sadewadee/safety-observer/internal/repository/sqlite"
	"github.com/sadewadee/safety-observer/runner"
)

type migrateRunner struct {
	cfg *runner.Config
	db  *sql.DB
	out io.Writer
}

// New opens the configured database for a migrate or migrate-status run
func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeMigrate && cfg.RunMode != runner.RunModeMigrateStatus {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	if cfg.Dsn == "" {
		return nil, runner.ErrMissingDSN
	}

	var (
		db  *sql.DB
		err error
	)

	if cfg.IsPostgres() {
		db, err = postgres.OpenConnection(cfg.Dsn)
	} else {
		db, err = sqlite.OpenConnection(cfg.Dsn)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &migrateRunner{cfg: cfg, db: db, out: os.Stdout}, nil
}

func (m *migrateRunner) Run(ctx context.Context) error {
	if m.cfg.RunMode == runner.RunModeMigrateStatus {
		return m.status(ctx)
	}

	var (
		applied int
		err     error
	)

	if m.cfg.IsPostgres() {
		applied, err = postgres.RunMigrations(ctx, m.db)
	} else {
		applied, err = sqlite.RunMigrations(ctx, m.db)
	}

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("[Migration] %d migration(s) applied", applied)

	return nil
}

func (m *migrateRunner) status(ctx context.Context) error {
	var (
		records []migration.Record
		err     error
	)

	if m.cfg.IsPostgres() {
		records, err = postgres.MigrationStatus(ctx, m.db)
	} else {
		records, err = sqlite.MigrationStatus(ctx, m.db)
	}

	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	writeStatus(m.out, records)

	return nil
}

func (m *migrateRunner) Close(context.Context) error {
	return m.db.Close()
}

func writeStatus(w io.Writer, records []migration.Record) {
	pending := 0

	for _, r := range records {
		if !r.Applied {
			pending++
			fmt.Fprintf(w, "  [pending] %s\n", r.Version)

			continue
		}

		appliedAt := "unknown"
		if r.AppliedAt != nil {
			appliedAt = r.AppliedAt.Format(time.RFC3339)
		}

		fmt.Fprintf(w, "  [applied] %s (%s)\n", r.Version, appliedAt)
	}

	fmt.Fprintf(w, "%d migration(s), %d pending\n", len(records), pending)
}
