package api

import (
	"net/http"

	"github.com/sadewadee/safety-observer/internal/api/handlers"
	"github.com/sadewadee/safety-observer/internal/domain"
)

// Handlers groups the HTTP handlers the router mounts
type Handlers struct {
	Auth         *handlers.AuthHandler
	Catalog      *handlers.CatalogHandler
	Observations *handlers.ObservationHandler
	Stats        *handlers.StatsHandler
	Exports      *handlers.ExportHandler
	Operators    *handlers.OperatorHandler
	Users        *handlers.UserHandler
	Health       *handlers.HealthHandler
}

// Router sets up all API routes
type Router struct {
	mux       *http.ServeMux
	h         Handlers
	sessions  SessionResolver
	staticDir string
}

// NewRouter creates a new Router
func NewRouter(h Handlers, sessions SessionResolver) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		h:        h,
		sessions: sessions,
	}
}

// WithStatic serves the files in dir for every path outside the API
func (r *Router) WithStatic(dir string) *Router {
	r.staticDir = dir
	return r
}

// Setup configures all routes
func (r *Router) Setup(token string) http.Handler {
	session := RequireSession(r.sessions)
	admin := RequireRole(domain.RoleAdmin)
	reporting := RequireRole(domain.RoleAdmin, domain.RoleLeader)
	recording := RequireRole(domain.RecordingRoles...)

	authed := func(h http.HandlerFunc, extra ...func(http.Handler) http.Handler) http.Handler {
		return Chain(h, append([]func(http.Handler) http.Handler{session}, extra...)...)
	}

	// Public
	r.mux.HandleFunc("/api/v1/health", r.h.Health.Health)
	r.mux.HandleFunc("/api/v1/auth/login", r.h.Auth.Login)

	// Signed-in user
	r.mux.Handle("/api/v1/auth/logout", authed(r.h.Auth.Logout))
	r.mux.Handle("/api/v1/auth/me", authed(r.h.Auth.Me))
	r.mux.Handle("/api/v1/auth/password", authed(r.h.Auth.ChangePassword))
	r.mux.Handle("/api/v1/auth/defaults", authed(r.h.Auth.UpdateDefaults))
	r.mux.Handle("/api/v1/catalog", authed(r.h.Catalog.Get))

	// Observations
	r.mux.Handle("/api/v1/observations", authed(r.handleObservations))
	r.mux.Handle("/api/v1/observations/active", authed(r.h.Observations.Active))
	r.mux.Handle("/api/v1/observations/{id}", authed(r.handleObservation))
	r.mux.Handle("/api/v1/observations/{id}/records", authed(r.h.Observations.AddRecord, recording))
	r.mux.Handle("/api/v1/observations/{id}/complete", authed(r.h.Observations.Complete, recording))
	r.mux.Handle("/api/v1/records/{id}", authed(r.h.Observations.UpdateRecord, recording))

	// Dashboard
	r.mux.Handle("/api/v1/stats", authed(r.h.Stats.GetDashboardStats))
	r.mux.Handle("/api/v1/stats/filters", authed(r.h.Observations.FilterOptions))

	// Exports
	r.mux.Handle("/api/v1/exports/observations", authed(r.h.Exports.Observations, reporting))
	r.mux.Handle("/api/v1/exports/dashboard", authed(r.h.Exports.Dashboard, reporting))
	r.mux.Handle("/api/v1/exports/archive", authed(r.h.Exports.Archive, admin))

	// Operator catalog
	r.mux.Handle("/api/v1/operators", authed(r.handleOperators))
	r.mux.Handle("/api/v1/operators/import", authed(r.h.Operators.Import, admin))
	r.mux.Handle("/api/v1/operators/{id}", authed(r.handleOperator, admin))

	// User administration
	r.mux.Handle("/api/v1/users", authed(r.handleUsers, admin))
	r.mux.Handle("/api/v1/users/{id}", authed(r.handleUser, admin))
	r.mux.Handle("/api/v1/users/{id}/active", authed(r.h.Users.SetActive, admin))

	if r.staticDir != "" {
		r.mux.Handle("/", http.FileServer(http.Dir(r.staticDir)))
	}

	return Chain(r.mux,
		Recovery,
		Logger,
		CORS,
		SecurityHeaders,
		Auth(token),
	)
}

// handleObservations routes requests for /api/v1/observations. Readers
// list but do not create.
func (r *Router) handleObservations(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.h.Observations.List(w, req)
	case http.MethodPost:
		RequireRole(domain.RecordingRoles...)(http.HandlerFunc(r.h.Observations.Create)).ServeHTTP(w, req)
	default:
		handlers.RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleObservation routes requests for /api/v1/observations/{id}.
// Only administrators delete.
func (r *Router) handleObservation(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.h.Observations.Get(w, req)
	case http.MethodDelete:
		RequireRole(domain.RoleAdmin)(http.HandlerFunc(r.h.Observations.Delete)).ServeHTTP(w, req)
	default:
		handlers.RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleOperators routes requests for /api/v1/operators. Any signed-in
// user lists; only administrators create.
func (r *Router) handleOperators(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.h.Operators.List(w, req)
	case http.MethodPost:
		RequireRole(domain.RoleAdmin)(http.HandlerFunc(r.h.Operators.Create)).ServeHTTP(w, req)
	default:
		handlers.RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleOperator routes requests for /api/v1/operators/{id}
func (r *Router) handleOperator(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPut:
		r.h.Operators.Update(w, req)
	case http.MethodDelete:
		r.h.Operators.Delete(w, req)
	default:
		handlers.RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleUsers routes requests for /api/v1/users
func (r *Router) handleUsers(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.h.Users.List(w, req)
	case http.MethodPost:
		r.h.Users.Create(w, req)
	default:
		handlers.RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleUser routes requests for /api/v1/users/{id}
func (r *Router) handleUser(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.h.Users.Get(w, req)
	case http.MethodPut:
		r.h.Users.Update(w, req)
	case http.MethodDelete:
		r.h.Users.Delete(w, req)
	default:
		handlers.RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
