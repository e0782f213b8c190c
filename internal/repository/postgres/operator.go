package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// OperatorRepository implements domain.OperatorRepository for PostgreSQL
type OperatorRepository struct {
	db *sql.DB
}

// NewOperatorRepository creates a new OperatorRepository
func NewOperatorRepository(db *sql.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// List retrieves active operators, optionally narrowed by site and group
func (r *OperatorRepository) List(ctx context.Context, params domain.OperatorListParams) ([]*domain.Operator, error) {
	clauses := []string{"is_active"}
	var args []any

	if params.Site != "" {
		args = append(args, params.Site)
		clauses = append(clauses, fmt.Sprintf("site = $%d", len(args)))
	}
	if params.Group != "" {
		args = append(args, params.Group)
		clauses = append(clauses, fmt.Sprintf("group_name = $%d", len(args)))
	}

	query := `
		SELECT id, name, site, group_name, is_active, created_at
		FROM operators
		WHERE ` + strings.Join(clauses, " AND ") + `
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*domain.Operator
	for rows.Next() {
		op, err := scanOperator(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

// GetByID retrieves an operator by ID
func (r *OperatorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	query := `SELECT id, name, site, group_name, is_active, created_at FROM operators WHERE id = $1`

	op, err := scanOperator(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return op, err
}

// Create creates a new operator
func (r *OperatorRepository) Create(ctx context.Context, op *domain.Operator) error {
	query := `
		INSERT INTO operators (id, name, site, group_name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, op.ID, op.Name, op.Site, op.Group, op.IsActive, op.CreatedAt)
	return err
}

// CreateBatch inserts operators in one transaction
func (r *OperatorRepository) CreateBatch(ctx context.Context, ops []*domain.Operator) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO operators (id, name, site, group_name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, op := range ops {
		if _, err := stmt.ExecContext(ctx, op.ID, op.Name, op.Site, op.Group, op.IsActive, op.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert operator %s: %w", op.Name, err)
		}
	}

	return tx.Commit()
}

// Update updates the editable fields of an operator
func (r *OperatorRepository) Update(ctx context.Context, op *domain.Operator) error {
	query := `UPDATE operators SET name = $1, site = $2, group_name = $3, is_active = $4 WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, op.Name, op.Site, op.Group, op.IsActive, op.ID)
	return err
}

// Deactivate soft-deletes an operator
func (r *OperatorRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE operators SET is_active = FALSE WHERE id = $1`, id)
	return err
}

func scanOperator(row scanner) (*domain.Operator, error) {
	var op domain.Operator
	if err := row.Scan(&op.ID, &op.Name, &op.Site, &op.Group, &op.IsActive, &op.CreatedAt); err != nil {
		return nil, err
	}
	return &op, nil
}
