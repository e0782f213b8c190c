package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sadewadee/safety-observer/internal/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenConnection opens a PostgreSQL connection
func OpenConnection(dsn string) (*sql.DB, error) {
	// Re-encode the DSN so special characters in the password survive
	parsedDSN, err := sanitizeDSN(dsn)
	if err != nil {
		parsedDSN = dsn
	}

	db, err := sql.Open("pgx", parsedDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func sanitizeDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		// key=value format
		return dsn, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}

	if u.User != nil {
		if password, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), password)
		}
	}

	return u.String(), nil
}

// RunMigrations applies the embedded migrations
func RunMigrations(ctx context.Context, db *sql.DB) (int, error) {
	return migration.Run(ctx, db, migration.Postgres, migrationsFS, "migrations")
}

// MigrationStatus reports the embedded migrations and whether each is applied
func MigrationStatus(ctx context.Context, db *sql.DB) ([]migration.Record, error) {
	return migration.Status(ctx, db, migration.Postgres, migrationsFS, "migrations")
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
