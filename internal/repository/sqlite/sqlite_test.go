package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/safety-observer/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = RunMigrations(context.Background(), db)
	require.NoError(t, err)

	return db
}

func createProfile(t *testing.T, repos *Repositories, name string) *domain.Profile {
	t.Helper()

	p := &domain.Profile{
		ID:           uuid.New(),
		ObserverID:   name,
		Email:        name + "@sistema.com",
		FullName:     name,
		Role:         domain.RoleObserver,
		IsActive:     true,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repos.Profiles.Create(context.Background(), p))
	return p
}

func createObservation(t *testing.T, repos *Repositories, supervisor uuid.UUID, shift, group string, created time.Time) *domain.Observation {
	t.Helper()

	obs := &domain.Observation{
		ID:              uuid.New(),
		SupervisorID:    supervisor,
		Date:            created.Format(domain.DateLayout),
		Shift:           shift,
		Site:            domain.SiteElDescanso,
		Group:           group,
		ObservationType: domain.TypeRoads,
		Status:          domain.ObservationStatusCompleted,
		CreatedAt:       created,
	}
	require.NoError(t, repos.Observations.Create(context.Background(), obs))
	return obs
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)

	n, err := RunMigrations(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, n)

	status, err := MigrationStatus(context.Background(), db)
	require.NoError(t, err)
	require.NotEmpty(t, status)
	assert.True(t, status[0].Applied)
}

func TestObservationLifecycle(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))
	ana := createProfile(t, repos, "Ana")

	obs := &domain.Observation{
		ID:              uuid.New(),
		SupervisorID:    ana.ID,
		Date:            "2024-03-10",
		Shift:           "Diurno",
		Site:            domain.SitePribbenow,
		Group:           "2",
		ObservationType: domain.TypeDumps,
		Status:          domain.ObservationStatusInProgress,
		CreatedAt:       time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repos.Observations.Create(ctx, obs))

	rec := &domain.ObservationRecord{
		ID:            uuid.New(),
		ObservationID: obs.ID,
		OperatorName:  "Juan",
		Checklist:     map[string]string{"seatbelt": "No", "gloves": "Si"},
		Comments:      "sin cinturón",
		CreatedAt:     time.Now(),
	}
	require.NoError(t, repos.Observations.AddRecord(ctx, rec))

	active, err := repos.Observations.GetActiveBySupervisor(ctx, ana.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, obs.ID, active.ID)
	assert.Equal(t, "Ana", active.SupervisorName)
	assert.Equal(t, "2024-03-10", active.Date)
	require.Len(t, active.Records, 1)
	assert.Equal(t, "No", active.Records[0].Checklist["seatbelt"])

	rec.Checklist["seatbelt"] = "Si"
	rec.OperatorName = "Juan Pérez"
	require.NoError(t, repos.Observations.UpdateRecord(ctx, rec))

	got, err := repos.Observations.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", got.OperatorName)
	assert.Equal(t, "Si", got.Checklist["seatbelt"])

	require.NoError(t, repos.Observations.UpdateStatus(ctx, obs.ID, domain.ObservationStatusCompleted))

	active, err = repos.Observations.GetActiveBySupervisor(ctx, ana.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	deleted, err := repos.Observations.Delete(ctx, obs.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = repos.Observations.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "records cascade with their observation")

	deleted, err = repos.Observations.Delete(ctx, obs.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestOneInProgressObservationPerSupervisor(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))
	ana := createProfile(t, repos, "Ana")

	first := createObservation(t, repos, ana.ID, "Diurno", "1", time.Now())
	require.NoError(t, repos.Observations.UpdateStatus(ctx, first.ID, domain.ObservationStatusInProgress))

	second := &domain.Observation{
		ID:              uuid.New(),
		SupervisorID:    ana.ID,
		Date:            "2024-03-11",
		Shift:           "Diurno",
		Site:            domain.SiteElDescanso,
		Group:           "1",
		ObservationType: domain.TypeRoads,
		Status:          domain.ObservationStatusInProgress,
		CreatedAt:       time.Now(),
	}
	assert.Error(t, repos.Observations.Create(ctx, second))
}

func TestListWithRecordsFilters(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))
	ana := createProfile(t, repos, "Ana")
	luis := createProfile(t, repos, "Luis")

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	a := createObservation(t, repos, ana.ID, "Mañana", "1", base)
	createObservation(t, repos, ana.ID, "Noche", "2", base.Add(24*time.Hour))
	c := createObservation(t, repos, luis.ID, "Diurno", "1", base.Add(48*time.Hour))

	require.NoError(t, repos.Observations.AddRecord(ctx, &domain.ObservationRecord{
		ID: uuid.New(), ObservationID: a.ID, OperatorName: "Juan",
		Checklist: map[string]string{"q": "No"}, CreatedAt: base,
	}))

	all, err := repos.Observations.ListWithRecords(ctx, domain.StatsFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, c.ID, all[0].ID, "newest first")
	require.Len(t, all[2].Records, 1)

	day, err := repos.Observations.ListWithRecords(ctx, domain.StatsFilter{Shift: []string{"Diurno"}})
	require.NoError(t, err)
	assert.Len(t, day, 2, "Mañana is stored under the Diurno synonym")

	group, err := repos.Observations.ListWithRecords(ctx, domain.StatsFilter{Group: []string{"1"}, Supervisor: []string{"Ana"}})
	require.NoError(t, err)
	require.Len(t, group, 1)
	assert.Equal(t, a.ID, group[0].ID)

	dated, err := repos.Observations.ListWithRecords(ctx, domain.StatsFilter{StartDate: "2024-03-02", EndDate: "2024-03-02"})
	require.NoError(t, err)
	assert.Len(t, dated, 1)

	capped, err := repos.Observations.ListWithRecords(ctx, domain.StatsFilter{RowCap: 2})
	require.NoError(t, err)
	assert.Len(t, capped, 2)

	recent, err := repos.Observations.ListRecent(ctx, domain.ListParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, 1, recent[2].RecordCount)

	own, err := repos.Observations.ListRecent(ctx, domain.ListParams{Limit: 10, SupervisorID: luis.ID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, c.ID, own[0].ID)

	own, err = repos.Observations.ListRecent(ctx, domain.ListParams{
		Filter:       domain.StatsFilter{Shift: []string{"Nocturno"}},
		Limit:        10,
		SupervisorID: ana.ID,
	})
	require.NoError(t, err)
	assert.Len(t, own, 1)

	opts, err := repos.Observations.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Luis"}, opts.Supervisors)
	assert.Equal(t, []string{"1", "2"}, opts.Groups)
	assert.Len(t, opts.Shifts, 3)
}

func TestOperatorRepository(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))

	ops := []*domain.Operator{
		{ID: uuid.New(), Name: "Pedro", Site: domain.SiteElDescanso, Group: "1", IsActive: true, CreatedAt: time.Now()},
		{ID: uuid.New(), Name: "Ana", Site: domain.SiteElDescanso, Group: "2", IsActive: true, CreatedAt: time.Now()},
		{ID: uuid.New(), Name: "Luis", Site: domain.SitePribbenow, Group: "1", IsActive: true, CreatedAt: time.Now()},
	}
	require.NoError(t, repos.Operators.CreateBatch(ctx, ops))

	list, err := repos.Operators.List(ctx, domain.OperatorListParams{Site: domain.SiteElDescanso})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].Name)

	require.NoError(t, repos.Operators.Deactivate(ctx, ops[1].ID))

	list, err = repos.Operators.List(ctx, domain.OperatorListParams{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := repos.Operators.GetByID(ctx, ops[1].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)

	missing, err := repos.Operators.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProfileAndSessionRepositories(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(openTestDB(t))
	ana := createProfile(t, repos, "ana")

	got, err := repos.Profiles.GetByLogin(ctx, "ANA@sistema.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ana.ID, got.ID)
	assert.Equal(t, domain.RoleObserver, got.Role)
	assert.True(t, got.IsActive)

	got.Role = domain.RoleLeader
	got.MustChangePassword = true
	require.NoError(t, repos.Profiles.Update(ctx, got))

	got, err = repos.Profiles.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLeader, got.Role)
	assert.True(t, got.MustChangePassword)

	now := time.Now()
	live := &domain.Session{Token: uuid.New(), ProfileID: ana.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &domain.Session{Token: uuid.New(), ProfileID: ana.ID, CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, repos.Sessions.Create(ctx, live))
	require.NoError(t, repos.Sessions.Create(ctx, stale))

	n, err := repos.Sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sess, err := repos.Sessions.Get(ctx, live.Token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.WithinDuration(t, live.ExpiresAt, sess.ExpiresAt, time.Millisecond)

	require.NoError(t, repos.Profiles.Delete(ctx, ana.ID))

	sess, err = repos.Sessions.Get(ctx, live.Token)
	require.NoError(t, err)
	assert.Nil(t, sess, "sessions cascade with their profile")
}
