package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/events"
)

type fakeObservations struct {
	mu      sync.Mutex
	obs     map[uuid.UUID]*domain.Observation
	records map[uuid.UUID]*domain.ObservationRecord
	listErr error
}

func newFakeObservations() *fakeObservations {
	return &fakeObservations{
		obs:     make(map[uuid.UUID]*domain.Observation),
		records: make(map[uuid.UUID]*domain.ObservationRecord),
	}
}

func (f *fakeObservations) Create(_ context.Context, obs *domain.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *obs
	f.obs[obs.ID] = &cp
	return nil
}

func (f *fakeObservations) withRecords(o *domain.Observation) *domain.Observation {
	cp := *o
	cp.Records = nil
	for _, r := range f.records {
		if r.ObservationID == o.ID {
			cp.Records = append(cp.Records, *r)
		}
	}
	cp.RecordCount = len(cp.Records)
	return &cp
}

func (f *fakeObservations) GetByID(_ context.Context, id uuid.UUID) (*domain.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.obs[id]
	if !ok {
		return nil, nil
	}
	return f.withRecords(o), nil
}

func (f *fakeObservations) GetActiveBySupervisor(_ context.Context, supervisorID uuid.UUID) (*domain.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.obs {
		if o.SupervisorID == supervisorID && o.Status == domain.ObservationStatusInProgress {
			return f.withRecords(o), nil
		}
	}
	return nil, nil
}

func (f *fakeObservations) UpdateStatus(_ context.Context, id uuid.UUID, status domain.ObservationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.obs[id]; ok {
		o.Status = status
	}
	return nil
}

func (f *fakeObservations) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.obs[id]; !ok {
		return false, nil
	}
	for rid, r := range f.records {
		if r.ObservationID == id {
			delete(f.records, rid)
		}
	}
	delete(f.obs, id)
	return true, nil
}

func (f *fakeObservations) all() []*domain.Observation {
	out := make([]*domain.Observation, 0, len(f.obs))
	for _, o := range f.obs {
		out = append(out, f.withRecords(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeObservations) ListRecent(_ context.Context, params domain.ListParams) ([]*domain.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.all()
	if params.SupervisorID != uuid.Nil {
		var own []*domain.Observation
		for _, o := range out {
			if o.SupervisorID == params.SupervisorID {
				own = append(own, o)
			}
		}
		out = own
	}
	if len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (f *fakeObservations) ListWithRecords(_ context.Context, filter domain.StatsFilter) ([]*domain.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.Observation
	for _, o := range f.all() {
		if len(filter.Group) > 0 && !contains(filter.Group, o.Group) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeObservations) ListAllWithRecords(_ context.Context) ([]*domain.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.all(), nil
}

func (f *fakeObservations) FilterOptions(_ context.Context) (*domain.FilterOptions, error) {
	return &domain.FilterOptions{Shifts: []string{"Diurno"}}, nil
}

func (f *fakeObservations) AddRecord(_ context.Context, rec *domain.ObservationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeObservations) GetRecord(_ context.Context, id uuid.UUID) (*domain.ObservationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeObservations) UpdateRecord(_ context.Context, rec *domain.ObservationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

type fakeOperators struct {
	ops     map[uuid.UUID]*domain.Operator
	batches int
}

func newFakeOperators() *fakeOperators {
	return &fakeOperators{ops: make(map[uuid.UUID]*domain.Operator)}
}

func (f *fakeOperators) List(_ context.Context, params domain.OperatorListParams) ([]*domain.Operator, error) {
	var out []*domain.Operator
	for _, op := range f.ops {
		if !op.IsActive {
			continue
		}
		if params.Site != "" && op.Site != params.Site {
			continue
		}
		if params.Group != "" && op.Group != params.Group {
			continue
		}
		cp := *op
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeOperators) GetByID(_ context.Context, id uuid.UUID) (*domain.Operator, error) {
	op, ok := f.ops[id]
	if !ok {
		return nil, nil
	}
	cp := *op
	return &cp, nil
}

func (f *fakeOperators) Create(_ context.Context, op *domain.Operator) error {
	cp := *op
	f.ops[op.ID] = &cp
	return nil
}

func (f *fakeOperators) CreateBatch(ctx context.Context, ops []*domain.Operator) error {
	f.batches++
	for _, op := range ops {
		_ = f.Create(ctx, op)
	}
	return nil
}

func (f *fakeOperators) Update(ctx context.Context, op *domain.Operator) error {
	return f.Create(ctx, op)
}

func (f *fakeOperators) Deactivate(_ context.Context, id uuid.UUID) error {
	if op, ok := f.ops[id]; ok {
		op.IsActive = false
	}
	return nil
}

type fakeProfiles struct {
	profiles map[uuid.UUID]*domain.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[uuid.UUID]*domain.Profile)}
}

func (f *fakeProfiles) List(_ context.Context) ([]*domain.Profile, error) {
	var out []*domain.Profile
	for _, p := range f.profiles {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) GetByLogin(_ context.Context, login string) (*domain.Profile, error) {
	for _, p := range f.profiles {
		if strings.EqualFold(p.Email, login) || p.ObserverID == login {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeProfiles) Create(_ context.Context, p *domain.Profile) error {
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfiles) Update(ctx context.Context, p *domain.Profile) error {
	return f.Create(ctx, p)
}

func (f *fakeProfiles) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.profiles, id)
	return nil
}

type fakeSessions struct {
	sessions map[uuid.UUID]*domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (f *fakeSessions) Create(_ context.Context, s *domain.Session) error {
	cp := *s
	f.sessions[s.Token] = &cp
	return nil
}

func (f *fakeSessions) Get(_ context.Context, token uuid.UUID) (*domain.Session, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Delete(_ context.Context, token uuid.UUID) error {
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessions) DeleteByProfile(_ context.Context, profileID uuid.UUID) error {
	for token, s := range f.sessions {
		if s.ProfileID == profileID {
			delete(f.sessions, token)
		}
	}
	return nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	n := 0
	for token, s := range f.sessions {
		if s.Expired(now) {
			delete(f.sessions, token)
			n++
		}
	}
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
