package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// OperatorRepository implements domain.OperatorRepository for SQLite
type OperatorRepository struct {
	db *sql.DB
}

// NewOperatorRepository creates a new OperatorRepository
func NewOperatorRepository(db *sql.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

const operatorColumns = `id, name, site, group_name, is_active, created_at`

// List retrieves active operators, optionally narrowed by site and group
func (r *OperatorRepository) List(ctx context.Context, params domain.OperatorListParams) ([]*domain.Operator, error) {
	clauses := []string{"is_active = 1"}
	var args []any

	if params.Site != "" {
		clauses = append(clauses, "site = ?")
		args = append(args, params.Site)
	}
	if params.Group != "" {
		clauses = append(clauses, "group_name = ?")
		args = append(args, params.Group)
	}

	query := `SELECT ` + operatorColumns + ` FROM operators WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY name ASC`

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
	op, err := scanOperator(r.db.QueryRowContext(ctx, `SELECT `+operatorColumns+` FROM operators WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return op, err
}

// Create creates a new operator
func (r *OperatorRepository) Create(ctx context.Context, op *domain.Operator) error {
	_, err := r.db.ExecContext(ctx, insertOperator, operatorArgs(op)...)
	return err
}

const insertOperator = `
	INSERT INTO operators (id, name, site, group_name, is_active, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

func operatorArgs(op *domain.Operator) []any {
	return []any{op.ID.String(), op.Name, op.Site, op.Group, op.IsActive, formatTime(op.CreatedAt)}
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

	for _, op := range ops {
		if _, err := tx.ExecContext(ctx, insertOperator, operatorArgs(op)...); err != nil {
			return fmt.Errorf("failed to insert operator %s: %w", op.Name, err)
		}
	}

	return tx.Commit()
}

// Update updates the editable fields of an operator
func (r *OperatorRepository) Update(ctx context.Context, op *domain.Operator) error {
	query := `UPDATE operators SET name = ?, site = ?, group_name = ?, is_active = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, op.Name, op.Site, op.Group, op.IsActive, op.ID.String())
	return err
}

// Deactivate soft-deletes an operator
func (r *OperatorRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE operators SET is_active = 0 WHERE id = ?`, id.String())
	return err
}

func scanOperator(row scanner) (*domain.Operator, error) {
	var op domain.Operator
	var createdAt string
	if err := row.Scan(&op.ID, &op.Name, &op.Site, &op.Group, &op.IsActive, &createdAt); err != nil {
		return nil, err
	}
	op.CreatedAt = parseTime(createdAt)
	return &op, nil
}
