package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/safety-observer/internal/api/handlers"
	"github.com/sadewadee/safety-observer/internal/archive"
	"github.com/sadewadee/safety-observer/internal/catalog"
	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/repository/sqlite"
	"github.com/sadewadee/safety-observer/internal/service"
	"github.com/sadewadee/safety-observer/tlmt/gonoop"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	users   *service.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.OpenConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = sqlite.RunMigrations(ctx, db)
	require.NoError(t, err)

	repos := sqlite.NewRepositories(db)
	cat := catalog.Default()

	authSvc := service.NewAuthService(repos.Profiles, repos.Sessions, time.Hour)
	users := service.NewUserService(repos.Profiles, repos.Sessions)
	observations := service.NewObservationService(repos.Observations, nil, nil)
	stats := service.NewStatsService(repos.Observations, cat, nil, service.StatsConfig{})
	operators := service.NewOperatorService(repos.Operators, nil, nil)
	exports := service.NewExportService(repos.Observations, cat, archive.Disabled{}, gonoop.New(), time.UTC)

	router := NewRouter(Handlers{
		Auth:         handlers.NewAuthHandler(authSvc, users),
		Catalog:      handlers.NewCatalogHandler(cat),
		Observations: handlers.NewObservationHandler(observations),
		Stats:        handlers.NewStatsHandler(stats),
		Exports:      handlers.NewExportHandler(exports, stats),
		Operators:    handlers.NewOperatorHandler(operators),
		Users:        handlers.NewUserHandler(users),
		Health:       handlers.NewHealthHandler("test", map[string]handlers.Pinger{"database": db}),
	}, authSvc)

	_, err = users.EnsureAdmin(ctx, "admin", "admin123")
	require.NoError(t, err)

	return &testServer{t: t, handler: router.Setup(""), users: users}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(login, password string) string {
	s.t.Helper()

	w := s.do(http.MethodPost, "/api/v1/auth/login", "", handlers.LoginRequest{Login: login, Password: password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var resp handlers.LoginResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token.String()
}

func TestObservationFlowFeedsDashboard(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")

	w := s.do(http.MethodPost, "/api/v1/users", admin, domain.CreateUserRequest{
		ObserverID: "ana",
		FullName:   "Ana Pérez",
		Password:   "secreto1",
		Role:       domain.RoleObserver,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	ana := s.login("ana", "secreto1")

	w = s.do(http.MethodGet, "/api/v1/observations/active", ana, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, "/api/v1/observations", ana, domain.CreateObservationRequest{
		Date:            "2024-03-10",
		Shift:           "Diurno",
		Site:            domain.SiteElDescanso,
		Group:           "1",
		ObservationType: domain.TypeRoads,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var obs domain.Observation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &obs))

	w = s.do(http.MethodPost, "/api/v1/observations", ana, domain.CreateObservationRequest{
		Shift: "Diurno", Site: domain.SiteElDescanso, Group: "1", ObservationType: domain.TypeRoads,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/observations/"+obs.ID.String()+"/records", ana, domain.RecordRequest{
		OperatorName: "Juan",
		Checklist:    map[string]string{"seatbelt": "no", "gloves": "Si"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/observations/"+obs.ID.String()+"/complete", ana, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/stats?group=1", ana, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Stats-Sequence"))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	var bundle domain.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bundle))
	assert.Equal(t, 1, bundle.Total)
	assert.Equal(t, 1, bundle.Risk)
	assert.Equal(t, 1, bundle.TotalDeviations)
	require.Len(t, bundle.DeviationList, 1)
	assert.Equal(t, "Ana Pérez", bundle.DeviationList[0].Observer)
	assert.Equal(t, []string{"1"}, bundle.GroupsChart.Labels)

	// observers cannot export or delete
	w = s.do(http.MethodGet, "/api/v1/exports/observations", ana, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, "/api/v1/observations/"+obs.ID.String(), ana, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/exports/observations?format=csv", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, w.Body.String(), "Juan")

	w = s.do(http.MethodDelete, "/api/v1/observations/"+obs.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, "/api/v1/observations/"+obs.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (s *testServer) createUser(admin, observerID, name string, role domain.Role) string {
	s.t.Helper()

	w := s.do(http.MethodPost, "/api/v1/users", admin, domain.CreateUserRequest{
		ObserverID: observerID,
		FullName:   name,
		Password:   "secreto1",
		Role:       role,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	return s.login(observerID, "secreto1")
}

func TestReaderCannotRecord(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")
	reader := s.createUser(admin, "lector", "Lector Uno", domain.RoleReader)

	header := domain.CreateObservationRequest{
		Date: "2024-03-10", Shift: "Diurno", Site: domain.SiteElDescanso, Group: "1", ObservationType: domain.TypeRoads,
	}

	w := s.do(http.MethodPost, "/api/v1/observations", reader, header)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/v1/observations", admin, header)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var obs domain.Observation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &obs))

	w = s.do(http.MethodPost, "/api/v1/observations/"+obs.ID.String()+"/records", reader, domain.RecordRequest{OperatorName: "Juan"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodPost, "/api/v1/observations/"+obs.ID.String()+"/complete", reader, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodPut, "/api/v1/records/"+obs.ID.String(), reader, domain.RecordRequest{OperatorName: "Juan"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// readers still see the dashboard
	w = s.do(http.MethodGet, "/api/v1/stats", reader, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/v1/observations", reader, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecentObservationsScopedToObserver(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")
	ana := s.createUser(admin, "ana", "Ana Pérez", domain.RoleObserver)
	luis := s.createUser(admin, "luis", "Luis Gómez", domain.RoleObserver)
	leader := s.createUser(admin, "lider", "Líder Uno", domain.RoleLeader)

	for _, token := range []string{ana, luis} {
		w := s.do(http.MethodPost, "/api/v1/observations", token, domain.CreateObservationRequest{
			Date: "2024-03-10", Shift: "Diurno", Site: domain.SiteElDescanso, Group: "1", ObservationType: domain.TypeRoads,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	list := func(token string) []domain.Observation {
		w := s.do(http.MethodGet, "/api/v1/observations", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []domain.Observation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	own := list(ana)
	require.Len(t, own, 1)
	assert.Equal(t, "Ana Pérez", own[0].SupervisorName)

	assert.Len(t, list(leader), 2)
	assert.Len(t, list(admin), 2)

	w := s.do(http.MethodGet, "/api/v1/observations?limit=abc", ana, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, "/api/v1/observations?limit=0", ana, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, "/api/v1/observations?limit=1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/auth/login", "", handlers.LoginRequest{Login: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/catalog", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.login("admin@sistema.com", "admin123")

	w = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me domain.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, domain.RoleAdmin, me.Role)

	w = s.do(http.MethodGet, "/api/v1/catalog", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap catalog.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Len(t, snap.Categories, 5)

	w = s.do(http.MethodPost, "/api/v1/auth/password", token, handlers.ChangePasswordRequest{Password: "abc", Confirm: "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatsRejectsBadDates(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin123")

	w := s.do(http.MethodGet, "/api/v1/stats?start_date=2024-05-01&end_date=2024-04-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bundle domain.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bundle))
	assert.Zero(t, bundle.Total)
	assert.NotNil(t, bundle.OperatorList)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
}
