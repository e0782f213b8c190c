package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/auth"
	"github.com/sadewadee/safety-observer/internal/cache"
	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/events"
)

// Recent list bounds
const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 50
)

// ObservationService handles observation sessions and their records
type ObservationService struct {
	observations domain.ObservationRepository
	cache        cache.Cache
	notify       notifier
	now          func() time.Time
}

// NewObservationService creates a new ObservationService. c and pub may be nil.
func NewObservationService(observations domain.ObservationRepository, c cache.Cache, pub events.Publisher) *ObservationService {
	n := newNotifier("ObservationService", c, pub)
	return &ObservationService{
		observations: observations,
		cache:        n.cache,
		notify:       n,
		now:          time.Now,
	}
}

// CreateHeader starts a new observation for the supervisor. A supervisor can
// only have one observation in progress at a time.
func (s *ObservationService) CreateHeader(ctx context.Context, supervisorID uuid.UUID, req *domain.CreateObservationRequest) (*domain.Observation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	active, err := s.observations.GetActiveBySupervisor(ctx, supervisorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active observation: %w", err)
	}
	if active != nil {
		return nil, ErrActiveObservationExists
	}

	obs := req.ToObservation(supervisorID, s.now())
	if err := s.observations.Create(ctx, obs); err != nil {
		return nil, fmt.Errorf("failed to create observation: %w", err)
	}

	log.Printf("[ObservationService] Observation %s started by %s (%s, %s, group %s)",
		obs.ID, supervisorID, obs.ObservationType, obs.Site, obs.Group)

	ev := events.New(events.ObservationCreated, obs.ID)
	ev.ActorID = supervisorID
	s.notify.changed(ctx, ev, dashboardPrefixes...)

	return obs, nil
}

// GetActive returns the supervisor's in-progress observation, or nil when
// there is none
func (s *ObservationService) GetActive(ctx context.Context, supervisorID uuid.UUID) (*domain.Observation, error) {
	obs, err := s.observations.GetActiveBySupervisor(ctx, supervisorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active observation: %w", err)
	}
	return obs, nil
}

// GetByID returns an observation with its records
func (s *ObservationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Observation, error) {
	obs, err := s.observations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}
	if obs == nil {
		return nil, ErrObservationNotFound
	}
	return obs, nil
}

// AddRecord stores one operator's checklist under an in-progress observation
func (s *ObservationService) AddRecord(ctx context.Context, observationID uuid.UUID, req *domain.RecordRequest) (*domain.ObservationRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	obs, err := s.GetByID(ctx, observationID)
	if err != nil {
		return nil, err
	}
	if obs.Status == domain.ObservationStatusCompleted {
		return nil, ErrObservationCompleted
	}

	rec := &domain.ObservationRecord{
		ID:            uuid.New(),
		ObservationID: observationID,
		OperatorName:  req.OperatorName,
		Checklist:     req.Checklist,
		Comments:      req.Comments,
		CreatedAt:     s.now(),
	}
	if err := s.observations.AddRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to add record: %w", err)
	}

	ev := events.New(events.RecordAdded, observationID)
	ev.RecordID = rec.ID
	s.notify.changed(ctx, ev, dashboardPrefixes...)

	return rec, nil
}

// UpdateRecord replaces the operator, answers and comments of a record
func (s *ObservationService) UpdateRecord(ctx context.Context, recordID uuid.UUID, req *domain.RecordRequest) (*domain.ObservationRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.observations.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}

	rec.OperatorName = req.OperatorName
	rec.Checklist = req.Checklist
	rec.Comments = req.Comments

	if err := s.observations.UpdateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	ev := events.New(events.RecordUpdated, rec.ObservationID)
	ev.RecordID = rec.ID
	s.notify.changed(ctx, ev, dashboardPrefixes...)

	return rec, nil
}

// Complete closes an observation. Completing twice is a no-op.
func (s *ObservationService) Complete(ctx context.Context, id uuid.UUID) (*domain.Observation, error) {
	obs, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obs.Status == domain.ObservationStatusCompleted {
		return obs, nil
	}

	if err := s.observations.UpdateStatus(ctx, id, domain.ObservationStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to complete observation: %w", err)
	}
	obs.Status = domain.ObservationStatusCompleted

	log.Printf("[ObservationService] Observation %s completed with %d records", id, len(obs.Records))

	s.notify.changed(ctx, events.New(events.ObservationCompleted, id), dashboardPrefixes...)

	return obs, nil
}

// Recent returns the newest observations matching the filter. Viewers whose
// role does not see every observation only get their own.
func (s *ObservationService) Recent(ctx context.Context, viewer *auth.Session, filter domain.StatsFilter, limit int) ([]*domain.Observation, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	params := domain.ListParams{Filter: filter, Limit: limit}
	if viewer != nil && !viewer.Profile.Role.SeesAllObservations() {
		params.SupervisorID = viewer.ProfileID()
	}

	list, err := s.observations.ListRecent(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	return list, nil
}

// Delete removes an observation and all of its records
func (s *ObservationService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.observations.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete observation: %w", err)
	}
	if !deleted {
		return ErrObservationNotFound
	}

	log.Printf("[ObservationService] Observation %s deleted", id)

	s.notify.changed(ctx, events.New(events.ObservationDeleted, id), dashboardPrefixes...)

	return nil
}

// FilterOptions lists the values the dashboard filters can choose from
func (s *ObservationService) FilterOptions(ctx context.Context) (*domain.FilterOptions, error) {
	key := cache.Key(cache.KeyPrefixFilterOption, "all")

	var opts domain.FilterOptions
	if err := cache.GetJSON(ctx, s.cache, key, &opts); err == nil {
		return &opts, nil
	}

	found, err := s.observations.FilterOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get filter options: %w", err)
	}
	found.Sites = append([]string(nil), domain.Sites...)

	if err := cache.SetJSON(ctx, s.cache, key, found, cache.TTLFilterOptions); err != nil {
		log.Printf("[ObservationService] WARNING: failed to cache filter options: %v", err)
	}

	return found, nil
}
