package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadewadee/safety-observer/internal/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// OpenConnection opens a SQLite connection
func OpenConnection(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: pragmas are per connection and writes serialize anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RunMigrations applies the embedded migrations
func RunMigrations(ctx context.Context, db *sql.DB) (int, error) {
	return migration.Run(ctx, db, migration.SQLite, migrationsFS, "migrations")
}

// MigrationStatus reports the embedded migrations and whether each is applied
func MigrationStatus(ctx context.Context, db *sql.DB) ([]migration.Record, error) {
	return migration.Status(ctx, db, migration.SQLite, migrationsFS, "migrations")
}

// Repositories holds all repository instances
type Repositories struct {
	Observations *ObservationRepository
	Operators    *OperatorRepository
	Profiles     *ProfileRepository
	Sessions     *SessionRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Observations: NewObservationRepository(db),
		Operators:    NewOperatorRepository(db),
		Profiles:     NewProfileRepository(db),
		Sessions:     NewSessionRepository(db),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

type scanner interface {
	Scan(dest ...any) error
}
