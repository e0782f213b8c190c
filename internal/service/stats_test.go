package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/safety-observer/internal/cache"
	"github.com/sadewadee/safety-observer/internal/catalog"
	"github.com/sadewadee/safety-observer/internal/domain"
)

func seedStats(t *testing.T, repo *fakeObservations) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	for i, group := range []string{"1", "2", "2"} {
		req := newHeader()
		req.Group = group
		o := req.ToObservation(uuid.New(), base.Add(time.Duration(i)*time.Hour))
		o.SupervisorName = "Ana"
		require.NoError(t, repo.Create(ctx, o))
		require.NoError(t, repo.AddRecord(ctx, &domain.ObservationRecord{
			ID:            uuid.New(),
			ObservationID: o.ID,
			OperatorName:  "Juan",
			Checklist:     map[string]string{"seatbelt": "No"},
		}))
	}
}

func TestDashboardUsesGroupFreeFetchForGroupsChart(t *testing.T) {
	repo := newFakeObservations()
	seedStats(t, repo)
	svc := NewStatsService(repo, catalog.Default(), nil, StatsConfig{})

	res, err := svc.Dashboard(context.Background(), domain.StatsFilter{Group: []string{"2"}})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.Total)
	assert.Equal(t, []string{"1", "2"}, res.Stats.GroupsChart.Labels)
	assert.Equal(t, []int{1, 2}, res.Stats.GroupsChart.Operators)
	assert.False(t, res.Cached)
}

func TestDashboardCachesByFilter(t *testing.T) {
	ctx := context.Background()
	repo := newFakeObservations()
	seedStats(t, repo)
	svc := NewStatsService(repo, catalog.Default(), cache.NewMemoryCache(0), StatsConfig{})

	first, err := svc.Dashboard(ctx, domain.StatsFilter{Site: []string{domain.SiteElDescanso}})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Dashboard(ctx, domain.StatsFilter{Site: []string{domain.SiteElDescanso}})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Stats.Total, second.Stats.Total)
	assert.Equal(t, first.Stats.GroupsChart, second.Stats.GroupsChart)
}

func TestDashboardFailures(t *testing.T) {
	repo := newFakeObservations()
	repo.listErr = errors.New("connection refused")
	svc := NewStatsService(repo, catalog.Default(), nil, StatsConfig{})

	_, err := svc.Dashboard(context.Background(), domain.StatsFilter{})
	assert.ErrorIs(t, err, ErrStatsUnavailable)

	_, err = svc.Dashboard(context.Background(), domain.StatsFilter{StartDate: "2024-03-10", EndDate: "2024-03-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

// recordingSource keeps every filter passed to ListWithRecords
type recordingSource struct {
	*fakeObservations

	mu      sync.Mutex
	filters []domain.StatsFilter
}

func (s *recordingSource) ListWithRecords(ctx context.Context, filter domain.StatsFilter) ([]*domain.Observation, error) {
	s.mu.Lock()
	s.filters = append(s.filters, filter)
	s.mu.Unlock()
	return s.fakeObservations.ListWithRecords(ctx, filter)
}

func TestDashboardGroupFetchKeepsOnlyDateSiteAndShift(t *testing.T) {
	repo := newFakeObservations()
	seedStats(t, repo)
	src := &recordingSource{fakeObservations: repo}
	svc := NewStatsService(src, catalog.Default(), nil, StatsConfig{RowCap: 50})

	_, err := svc.Dashboard(context.Background(), domain.StatsFilter{
		StartDate:  "2024-03-01",
		EndDate:    "2024-03-31",
		Shift:      []string{string(domain.ShiftDay)},
		Site:       []string{domain.SiteElDescanso},
		Group:      []string{"2"},
		Type:       []string{domain.TypeRoads},
		Supervisor: []string{"Ana"},
	})
	require.NoError(t, err)
	require.Len(t, src.filters, 2)

	want := domain.StatsFilter{
		StartDate: "2024-03-01",
		EndDate:   "2024-03-31",
		Shift:     []string{string(domain.ShiftDay)},
		Site:      []string{domain.SiteElDescanso},
		RowCap:    50,
	}

	var main, groups int
	for _, f := range src.filters {
		if len(f.Group) > 0 {
			main++
			assert.Equal(t, []string{domain.TypeRoads}, f.Type)
			assert.Equal(t, []string{"Ana"}, f.Supervisor)
			continue
		}
		groups++
		assert.Equal(t, want, f)
	}
	assert.Equal(t, 1, main)
	assert.Equal(t, 1, groups)
}

// groupFailingSource fails only the fetch without a group filter
type groupFailingSource struct {
	*fakeObservations
}

func (s groupFailingSource) ListWithRecords(ctx context.Context, filter domain.StatsFilter) ([]*domain.Observation, error) {
	if len(filter.Group) == 0 {
		return nil, errors.New("timeout")
	}
	return s.fakeObservations.ListWithRecords(ctx, filter)
}

func TestDashboardGroupFetchFailureDegrades(t *testing.T) {
	repo := newFakeObservations()
	seedStats(t, repo)
	svc := NewStatsService(groupFailingSource{repo}, catalog.Default(), nil, StatsConfig{})

	res, err := svc.Dashboard(context.Background(), domain.StatsFilter{Group: []string{"1"}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Total)
	assert.Empty(t, res.Stats.GroupsChart.Labels)
	assert.NotNil(t, res.Stats.GroupsChart.Labels)
}

// blockingSource blocks every fetch until its context ends, except when
// release is set
type blockingSource struct {
	started chan struct{}
	release atomic.Bool
}

func (s *blockingSource) ListWithRecords(ctx context.Context, _ domain.StatsFilter) ([]*domain.Observation, error) {
	if s.release.Load() {
		return nil, nil
	}
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDashboardTimeout(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}, 2)}
	svc := NewStatsService(src, catalog.Default(), nil, StatsConfig{Timeout: 20 * time.Millisecond})

	_, err := svc.Dashboard(context.Background(), domain.StatsFilter{})
	assert.ErrorIs(t, err, ErrStatsUnavailable)
	assert.True(t, IsTimeout(err))
}

func TestDashboardLatestSupersedesOlderRequest(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}, 2)}
	svc := NewStatsService(src, catalog.Default(), nil, StatsConfig{Timeout: 5 * time.Second})

	type outcome struct {
		res *DashboardResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := svc.DashboardLatest(context.Background(), "viewer", domain.StatsFilter{})
		first <- outcome{res, err}
	}()

	<-src.started
	src.release.Store(true)

	res, err := svc.DashboardLatest(context.Background(), "viewer", domain.StatsFilter{Site: []string{"x"}})
	require.NoError(t, err)

	old := <-first
	assert.ErrorIs(t, old.err, ErrSuperseded)
	require.NotNil(t, old.res)
	assert.Less(t, old.res.Sequence, res.Sequence)
	assert.Zero(t, res.Stats.Total)
}

func TestDashboardLatestIsPerViewer(t *testing.T) {
	repo := newFakeObservations()
	seedStats(t, repo)
	svc := NewStatsService(repo, catalog.Default(), nil, StatsConfig{})

	a, err := svc.DashboardLatest(context.Background(), "a", domain.StatsFilter{})
	require.NoError(t, err)
	b, err := svc.DashboardLatest(context.Background(), "b", domain.StatsFilter{})
	require.NoError(t, err)

	assert.Equal(t, 3, a.Stats.Total)
	assert.Greater(t, b.Sequence, a.Sequence)
	assert.Empty(t, svc.inflight)
}
