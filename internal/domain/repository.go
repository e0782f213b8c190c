package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ObservationRepository defines the interface for observation persistence
type ObservationRepository interface {
	// Create creates a new observation header
	Create(ctx context.Context, obs *Observation) error

	// GetByID retrieves an observation with its records
	GetByID(ctx context.Context, id uuid.UUID) (*Observation, error)

	// GetActiveBySupervisor retrieves the supervisor's in-progress observation
	GetActiveBySupervisor(ctx context.Context, supervisorID uuid.UUID) (*Observation, error)

	// UpdateStatus updates only the status of an observation
	UpdateStatus(ctx context.Context, id uuid.UUID, status ObservationStatus) error

	// Delete deletes an observation and its records. Returns false when
	// no observation had that id.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// ListRecent retrieves the newest observations with record counts
	ListRecent(ctx context.Context, params ListParams) ([]*Observation, error)

	// ListWithRecords retrieves observations matching the filter, newest
	// first, with their records attached. At most filter.Limit() rows.
	ListWithRecords(ctx context.Context, filter StatsFilter) ([]*Observation, error)

	// ListAllWithRecords retrieves every observation with records, newest first
	ListAllWithRecords(ctx context.Context) ([]*Observation, error)

	// FilterOptions retrieves the distinct shift, type, group and supervisor values
	FilterOptions(ctx context.Context) (*FilterOptions, error)

	// AddRecord creates a record under an observation
	AddRecord(ctx context.Context, rec *ObservationRecord) error

	// GetRecord retrieves a single record
	GetRecord(ctx context.Context, id uuid.UUID) (*ObservationRecord, error)

	// UpdateRecord updates the operator, checklist and comments of a record
	UpdateRecord(ctx context.Context, rec *ObservationRecord) error
}

// OperatorRepository defines the interface for the operator catalog
type OperatorRepository interface {
	List(ctx context.Context, params OperatorListParams) ([]*Operator, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Operator, error)
	Create(ctx context.Context, op *Operator) error
	CreateBatch(ctx context.Context, ops []*Operator) error
	Update(ctx context.Context, op *Operator) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// ProfileRepository defines the interface for user persistence
type ProfileRepository interface {
	List(ctx context.Context) ([]*Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByLogin(ctx context.Context, login string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepository defines the interface for login sessions
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, token uuid.UUID) (*Session, error)
	Delete(ctx context.Context, token uuid.UUID) error
	DeleteByProfile(ctx context.Context, profileID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
