package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// ObservationRepository implements domain.ObservationRepository for SQLite
type ObservationRepository struct {
	db *sql.DB
}

// NewObservationRepository creates a new ObservationRepository
func NewObservationRepository(db *sql.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

const observationColumns = `
	o.id, o.supervisor_id, COALESCE(p.full_name, ''),
	o.date, o.shift, o.site, o.group_name,
	o.observation_type, o.status, o.created_at`

const observationFrom = `
	FROM observations o
	LEFT JOIN profiles p ON p.id = o.supervisor_id`

// Create creates a new observation header
func (r *ObservationRepository) Create(ctx context.Context, obs *domain.Observation) error {
	query := `
		INSERT INTO observations (
			id, supervisor_id, date, shift, site, group_name,
			observation_type, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var supervisor any
	if obs.SupervisorID != uuid.Nil {
		supervisor = obs.SupervisorID.String()
	}

	_, err := r.db.ExecContext(ctx, query,
		obs.ID.String(), supervisor, obs.Date, obs.Shift, obs.Site, obs.Group,
		obs.ObservationType, string(obs.Status), formatTime(obs.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}
	return nil
}

// GetByID retrieves an observation with its records
func (r *ObservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Observation, error) {
	query := `SELECT ` + observationColumns + observationFrom + ` WHERE o.id = ?`
	return r.getOne(ctx, query, id.String())
}

// GetActiveBySupervisor retrieves the supervisor's in-progress observation
func (r *ObservationRepository) GetActiveBySupervisor(ctx context.Context, supervisorID uuid.UUID) (*domain.Observation, error) {
	query := `SELECT ` + observationColumns + observationFrom + `
		WHERE o.supervisor_id = ? AND o.status = ?
		ORDER BY o.created_at DESC
		LIMIT 1`
	return r.getOne(ctx, query, supervisorID.String(), string(domain.ObservationStatusInProgress))
}

func (r *ObservationRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Observation, error) {
	obs, err := scanObservation(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachRecords(ctx, []*domain.Observation{obs}); err != nil {
		return nil, err
	}
	return obs, nil
}

// UpdateStatus updates only the status of an observation
func (r *ObservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ObservationStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE observations SET status = ? WHERE id = ?`, string(status), id.String())
	return err
}

// Delete deletes an observation and its records
func (r *ObservationRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM observations WHERE id = ?`, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRecent retrieves the newest observations with record counts
func (r *ObservationRepository) ListRecent(ctx context.Context, params domain.ListParams) ([]*domain.Observation, error) {
	where, args := buildFilter(params.Filter)
	if params.SupervisorID != uuid.Nil {
		args = append(args, params.SupervisorID.String())
		where = andWhere(where, "o.supervisor_id = ?")
	}
	args = append(args, params.Limit)

	query := `SELECT ` + observationColumns + `,
			(SELECT COUNT(*) FROM observation_records rc WHERE rc.observation_id = o.id)` +
		observationFrom + where + `
		ORDER BY o.created_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*domain.Observation
	for rows.Next() {
		var count int
		obs, err := scanObservation(rows, &count)
		if err != nil {
			return nil, err
		}
		obs.RecordCount = count
		list = append(list, obs)
	}

	return list, rows.Err()
}

// ListWithRecords retrieves filtered observations, newest first, with records
func (r *ObservationRepository) ListWithRecords(ctx context.Context, filter domain.StatsFilter) ([]*domain.Observation, error) {
	where, args := buildFilter(filter)
	args = append(args, filter.Limit())

	query := `SELECT ` + observationColumns + observationFrom + where + `
		ORDER BY o.created_at DESC
		LIMIT ?`

	return r.listWithRecords(ctx, query, args...)
}

// ListAllWithRecords retrieves every observation with records, newest first
func (r *ObservationRepository) ListAllWithRecords(ctx context.Context) ([]*domain.Observation, error) {
	query := `SELECT ` + observationColumns + observationFrom + ` ORDER BY o.created_at DESC`
	return r.listWithRecords(ctx, query)
}

func (r *ObservationRepository) listWithRecords(ctx context.Context, query string, args ...any) ([]*domain.Observation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var list []*domain.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, obs)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// rows must be closed first: the pool holds a single connection
	if err := r.attachRecords(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// attachRecords loads the records of every observation in one query
func (r *ObservationRepository) attachRecords(ctx context.Context, list []*domain.Observation) error {
	if len(list) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Observation, len(list))
	args := make([]any, len(list))
	for i, obs := range list {
		byID[obs.ID] = obs
		args[i] = obs.ID.String()
	}

	query := `
		SELECT id, observation_id, operator_name, checklist, comments, created_at
		FROM observation_records
		WHERE observation_id IN (` + placeholders(len(args)) + `)
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if obs, ok := byID[rec.ObservationID]; ok {
			obs.Records = append(obs.Records, *rec)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, obs := range list {
		obs.RecordCount = len(obs.Records)
	}
	return nil
}

// FilterOptions retrieves the distinct values used by the dashboard filters
func (r *ObservationRepository) FilterOptions(ctx context.Context) (*domain.FilterOptions, error) {
	opts := &domain.FilterOptions{}

	queries := []struct {
		query string
		dest  *[]string
	}{
		{`SELECT DISTINCT shift FROM observations WHERE shift <> '' ORDER BY 1`, &opts.Shifts},
		{`SELECT DISTINCT observation_type FROM observations WHERE observation_type <> '' ORDER BY 1`, &opts.Types},
		{`SELECT DISTINCT group_name FROM observations WHERE group_name <> '' ORDER BY 1`, &opts.Groups},
		{`SELECT DISTINCT p.full_name FROM observations o JOIN profiles p ON p.id = o.supervisor_id WHERE p.full_name <> '' ORDER BY 1`, &opts.Supervisors},
	}

	for _, q := range queries {
		values, err := r.distinct(ctx, q.query)
		if err != nil {
			return nil, err
		}
		*q.dest = values
	}

	return opts, nil
}

func (r *ObservationRepository) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// AddRecord creates a record under an observation
func (r *ObservationRepository) AddRecord(ctx context.Context, rec *domain.ObservationRecord) error {
	checklist, err := encodeChecklist(rec.Checklist)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO observation_records (id, observation_id, operator_name, checklist, comments, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID.String(), rec.ObservationID.String(), rec.OperatorName, checklist, rec.Comments, formatTime(rec.CreatedAt),
	)
	return err
}

// GetRecord retrieves a single record
func (r *ObservationRepository) GetRecord(ctx context.Context, id uuid.UUID) (*domain.ObservationRecord, error) {
	query := `
		SELECT id, observation_id, operator_name, checklist, comments, created_at
		FROM observation_records
		WHERE id = ?
	`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// UpdateRecord updates the operator, checklist and comments of a record
func (r *ObservationRepository) UpdateRecord(ctx context.Context, rec *domain.ObservationRecord) error {
	checklist, err := encodeChecklist(rec.Checklist)
	if err != nil {
		return err
	}

	query := `UPDATE observation_records SET operator_name = ?, checklist = ?, comments = ? WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query, rec.OperatorName, checklist, rec.Comments, rec.ID.String())
	return err
}

// buildFilter turns the dashboard filter into a WHERE clause. Shift values
// are expanded to their stored synonyms. Dates are stored as YYYY-MM-DD so
// text comparison orders them.
// andWhere appends a clause to a WHERE fragment built by buildFilter
func andWhere(where, clause string) string {
	if where == "" {
		return " WHERE " + clause
	}
	return where + " AND " + clause
}

func buildFilter(f domain.StatsFilter) (string, []any) {
	var clauses []string
	var args []any

	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		clauses = append(clauses, column+" IN ("+placeholders(len(values))+")")
		for _, v := range values {
			args = append(args, v)
		}
	}

	if f.StartDate != "" {
		clauses = append(clauses, "o.date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		clauses = append(clauses, "o.date <= ?")
		args = append(args, f.EndDate)
	}
	in("o.shift", f.ExpandedShifts())
	in("o.site", f.Site)
	in("o.group_name", f.Group)
	in("o.observation_type", f.Type)
	in("p.full_name", f.Supervisor)

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func scanObservation(row scanner, extra ...any) (*domain.Observation, error) {
	var obs domain.Observation
	var supervisor sql.NullString
	var status, createdAt string

	dest := []any{
		&obs.ID, &supervisor, &obs.SupervisorName,
		&obs.Date, &obs.Shift, &obs.Site, &obs.Group,
		&obs.ObservationType, &status, &createdAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if supervisor.Valid {
		id, err := uuid.Parse(supervisor.String)
		if err != nil {
			return nil, fmt.Errorf("invalid supervisor id %q: %w", supervisor.String, err)
		}
		obs.SupervisorID = id
	}
	obs.Status = domain.ObservationStatus(status)
	obs.CreatedAt = parseTime(createdAt)

	return &obs, nil
}

func scanRecord(row scanner) (*domain.ObservationRecord, error) {
	var rec domain.ObservationRecord
	var checklist, createdAt string

	if err := row.Scan(&rec.ID, &rec.ObservationID, &rec.OperatorName, &checklist, &rec.Comments, &createdAt); err != nil {
		return nil, err
	}

	rec.Checklist = map[string]string{}
	if checklist != "" {
		if err := json.Unmarshal([]byte(checklist), &rec.Checklist); err != nil {
			return nil, fmt.Errorf("failed to decode checklist of record %s: %w", rec.ID, err)
		}
	}
	rec.CreatedAt = parseTime(createdAt)

	return &rec, nil
}

func encodeChecklist(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode checklist: %w", err)
	}
	return string(data), nil
}
