package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// ObservationRepository implements domain.ObservationRepository for PostgreSQL
type ObservationRepository struct {
	db *sql.DB
}

// NewObservationRepository creates a new ObservationRepository
func NewObservationRepository(db *sql.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

const observationColumns = `
	o.id, o.supervisor_id, COALESCE(p.full_name, ''),
	to_char(o.date, 'YYYY-MM-DD'), o.shift, o.site, o.group_name,
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
		) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		obs.ID, nullableUUID(obs.SupervisorID), obs.Date, obs.Shift, obs.Site, obs.Group,
		obs.ObservationType, obs.Status, obs.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}
	return nil
}

// GetByID retrieves an observation with its records
func (r *ObservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Observation, error) {
	query := `SELECT ` + observationColumns + observationFrom + ` WHERE o.id = $1`

	obs, err := scanObservation(r.db.QueryRowContext(ctx, query, id))
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

// GetActiveBySupervisor retrieves the supervisor's in-progress observation
func (r *ObservationRepository) GetActiveBySupervisor(ctx context.Context, supervisorID uuid.UUID) (*domain.Observation, error) {
	query := `SELECT ` + observationColumns + observationFrom + `
		WHERE o.supervisor_id = $1 AND o.status = $2
		ORDER BY o.created_at DESC
		LIMIT 1`

	obs, err := scanObservation(r.db.QueryRowContext(ctx, query, supervisorID, domain.ObservationStatusInProgress))
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
	_, err := r.db.ExecContext(ctx, `UPDATE observations SET status = $1 WHERE id = $2`, status, id)
	return err
}

// Delete deletes an observation. Records go with it through ON DELETE CASCADE.
func (r *ObservationRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM observations WHERE id = $1`, id)
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
		args = append(args, params.SupervisorID)
		where = andWhere(where, fmt.Sprintf("o.supervisor_id = $%d", len(args)))
	}
	args = append(args, params.Limit)

	query := `SELECT ` + observationColumns + `,
			(SELECT COUNT(*) FROM observation_records rc WHERE rc.observation_id = o.id)` +
		observationFrom + where + fmt.Sprintf(`
		ORDER BY o.created_at DESC
		LIMIT $%d`, len(args))

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

	query := `SELECT ` + observationColumns + observationFrom + where + fmt.Sprintf(`
		ORDER BY o.created_at DESC
		LIMIT $%d`, len(args))

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
	defer rows.Close()

	var list []*domain.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

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

	ids := make([]string, len(list))
	byID := make(map[uuid.UUID]*domain.Observation, len(list))
	for i, obs := range list {
		ids[i] = obs.ID.String()
		byID[obs.ID] = obs
	}

	query := `
		SELECT id, observation_id, operator_name, checklist, comments, created_at
		FROM observation_records
		WHERE observation_id = ANY($1::uuid[])
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
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
	checklist, err := json.Marshal(checklistOrEmpty(rec.Checklist))
	if err != nil {
		return fmt.Errorf("failed to encode checklist: %w", err)
	}

	query := `
		INSERT INTO observation_records (id, observation_id, operator_name, checklist, comments, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.ObservationID, rec.OperatorName, string(checklist), rec.Comments, rec.CreatedAt,
	)
	return err
}

// GetRecord retrieves a single record
func (r *ObservationRepository) GetRecord(ctx context.Context, id uuid.UUID) (*domain.ObservationRecord, error) {
	query := `
		SELECT id, observation_id, operator_name, checklist, comments, created_at
		FROM observation_records
		WHERE id = $1
	`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// UpdateRecord updates the operator, checklist and comments of a record
func (r *ObservationRepository) UpdateRecord(ctx context.Context, rec *domain.ObservationRecord) error {
	checklist, err := json.Marshal(checklistOrEmpty(rec.Checklist))
	if err != nil {
		return fmt.Errorf("failed to encode checklist: %w", err)
	}

	query := `
		UPDATE observation_records
		SET operator_name = $1, checklist = $2::jsonb, comments = $3
		WHERE id = $4
	`

	_, err = r.db.ExecContext(ctx, query, rec.OperatorName, string(checklist), rec.Comments, rec.ID)
	return err
}

// buildFilter turns the dashboard filter into a WHERE clause. Shift values
// are expanded to their stored synonyms.
func buildFilter(f domain.StatsFilter) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.StartDate != "" {
		add("o.date >= $%d::date", f.StartDate)
	}
	if f.EndDate != "" {
		add("o.date <= $%d::date", f.EndDate)
	}
	if shifts := f.ExpandedShifts(); len(shifts) > 0 {
		add("o.shift = ANY($%d)", pq.Array(shifts))
	}
	if len(f.Site) > 0 {
		add("o.site = ANY($%d)", pq.Array(f.Site))
	}
	if len(f.Group) > 0 {
		add("o.group_name = ANY($%d)", pq.Array(f.Group))
	}
	if len(f.Type) > 0 {
		add("o.observation_type = ANY($%d)", pq.Array(f.Type))
	}
	if len(f.Supervisor) > 0 {
		add("p.full_name = ANY($%d)", pq.Array(f.Supervisor))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// andWhere appends a clause to a WHERE fragment built by buildFilter
func andWhere(where, clause string) string {
	if where == "" {
		return " WHERE " + clause
	}
	return where + " AND " + clause
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObservation(row scanner, extra ...any) (*domain.Observation, error) {
	var obs domain.Observation
	var supervisor uuid.NullUUID

	dest := []any{
		&obs.ID, &supervisor, &obs.SupervisorName,
		&obs.Date, &obs.Shift, &obs.Site, &obs.Group,
		&obs.ObservationType, &obs.Status, &obs.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if supervisor.Valid {
		obs.SupervisorID = supervisor.UUID
	}
	return &obs, nil
}

func scanRecord(row scanner) (*domain.ObservationRecord, error) {
	var rec domain.ObservationRecord
	var checklist []byte

	if err := row.Scan(&rec.ID, &rec.ObservationID, &rec.OperatorName, &checklist, &rec.Comments, &rec.CreatedAt); err != nil {
		return nil, err
	}

	rec.Checklist = map[string]string{}
	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &rec.Checklist); err != nil {
			return nil, fmt.Errorf("failed to decode checklist of record %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func checklistOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullableUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
