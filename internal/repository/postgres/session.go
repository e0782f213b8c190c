package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// SessionRepository implements domain.SessionRepository for PostgreSQL
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `INSERT INTO sessions (token, profile_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, s.Token, s.ProfileID, s.CreatedAt, s.ExpiresAt)
	return err
}

// Get retrieves a session by token
func (r *SessionRepository) Get(ctx context.Context, token uuid.UUID) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT token, profile_id, created_at, expires_at FROM sessions WHERE token = $1`, token,
	).Scan(&s.Token, &s.ProfileID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete deletes a session
func (r *SessionRepository) Delete(ctx context.Context, token uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteByProfile deletes every session of a profile
func (r *SessionRepository) DeleteByProfile(ctx context.Context, profileID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE profile_id = $1`, profileID)
	return err
}

// DeleteExpired deletes sessions that expired at or before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
