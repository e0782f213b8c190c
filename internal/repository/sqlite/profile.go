package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// ProfileRepository implements domain.ProfileRepository for SQLite
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `
	id, observer_id, email, full_name, role, site_default, group_default,
	is_active, must_change_password, password_hash, created_at`

// List retrieves every profile ordered by name
func (r *ProfileRepository) List(ctx context.Context) ([]*domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY full_name ASC, email ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	return list, rows.Err()
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id.String())
}

// GetByLogin retrieves a profile by login email, case-insensitively
func (r *ProfileRepository) GetByLogin(ctx context.Context, login string) (*domain.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = ? COLLATE NOCASE`, login)
}

func (r *ProfileRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (
			id, observer_id, email, full_name, role, site_default, group_default,
			is_active, must_change_password, password_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID.String(), p.ObserverID, p.Email, p.FullName, string(p.Role), p.SiteDefault, p.GroupDefault,
		p.IsActive, p.MustChangePassword, p.PasswordHash, formatTime(p.CreatedAt),
	)
	return err
}

// Update updates every mutable profile field
func (r *ProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	query := `
		UPDATE profiles SET
			full_name = ?, role = ?, site_default = ?, group_default = ?,
			is_active = ?, must_change_password = ?, password_hash = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		p.FullName, string(p.Role), p.SiteDefault, p.GroupDefault,
		p.IsActive, p.MustChangePassword, p.PasswordHash, p.ID.String(),
	)
	return err
}

// Delete deletes a profile. Its sessions cascade.
func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id.String())
	return err
}

func scanProfile(row scanner) (*domain.Profile, error) {
	var p domain.Profile
	var role, createdAt string
	err := row.Scan(
		&p.ID, &p.ObserverID, &p.Email, &p.FullName, &role, &p.SiteDefault, &p.GroupDefault,
		&p.IsActive, &p.MustChangePassword, &p.PasswordHash, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	p.Role = domain.Role(role)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}
