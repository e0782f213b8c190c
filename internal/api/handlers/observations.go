package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/auth"
	"github.com/sadewadee/safety-observer/internal/domain"
)

// ObservationServiceInterface defines the observation service methods
type ObservationServiceInterface interface {
	CreateHeader(ctx context.Context, supervisorID uuid.UUID, req *domain.CreateObservationRequest) (*domain.Observation, error)
	GetActive(ctx context.Context, supervisorID uuid.UUID) (*domain.Observation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Observation, error)
	AddRecord(ctx context.Context, observationID uuid.UUID, req *domain.RecordRequest) (*domain.ObservationRecord, error)
	UpdateRecord(ctx context.Context, recordID uuid.UUID, req *domain.RecordRequest) (*domain.ObservationRecord, error)
	Complete(ctx context.Context, id uuid.UUID) (*domain.Observation, error)
	Recent(ctx context.Context, viewer *auth.Session, filter domain.StatsFilter, limit int) ([]*domain.Observation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FilterOptions(ctx context.Context) (*domain.FilterOptions, error)
}

// ObservationHandler handles observation sessions and their records
type ObservationHandler struct {
	observations ObservationServiceInterface
}

// NewObservationHandler creates a new ObservationHandler
func NewObservationHandler(observations ObservationServiceInterface) *ObservationHandler {
	return &ObservationHandler{observations: observations}
}

// Create handles POST /api/v1/observations
func (h *ObservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req domain.CreateObservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	obs, err := h.observations.CreateHeader(r.Context(), sess.ProfileID(), &req)
	if err != nil {
		RenderServiceError(w, "CreateObservation", err)
		return
	}

	RenderJSON(w, http.StatusCreated, obs)
}

// List handles GET /api/v1/observations
func (h *ObservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			RenderError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = n
	}

	list, err := h.observations.Recent(r.Context(), sess, ParseStatsFilter(r.URL.Query()), limit)
	if err != nil {
		RenderServiceError(w, "ListObservations", err)
		return
	}
	if list == nil {
		list = []*domain.Observation{}
	}

	RenderJSON(w, http.StatusOK, list)
}

// Active handles GET /api/v1/observations/active. Returns 204 when the
// user has no observation in progress.
func (h *ObservationHandler) Active(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	obs, err := h.observations.GetActive(r.Context(), sess.ProfileID())
	if err != nil {
		RenderServiceError(w, "ActiveObservation", err)
		return
	}
	if obs == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	RenderJSON(w, http.StatusOK, obs)
}

// Get handles GET /api/v1/observations/{id}
func (h *ObservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid observation ID")
		return
	}

	obs, err := h.observations.GetByID(r.Context(), id)
	if err != nil {
		RenderServiceError(w, "GetObservation", err)
		return
	}

	RenderJSON(w, http.StatusOK, obs)
}

// Delete handles DELETE /api/v1/observations/{id}
func (h *ObservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid observation ID")
		return
	}

	if err := h.observations.Delete(r.Context(), id); err != nil {
		RenderServiceError(w, "DeleteObservation", err)
		return
	}

	log.Printf("[DeleteObservation] Observation %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// AddRecord handles POST /api/v1/observations/{id}/records
func (h *ObservationHandler) AddRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid observation ID")
		return
	}

	var req domain.RecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.observations.AddRecord(r.Context(), id, &req)
	if err != nil {
		RenderServiceError(w, "AddRecord", err)
		return
	}

	RenderJSON(w, http.StatusCreated, rec)
}

// UpdateRecord handles PUT /api/v1/records/{id}
func (h *ObservationHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	var req domain.RecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.observations.UpdateRecord(r.Context(), id, &req)
	if err != nil {
		RenderServiceError(w, "UpdateRecord", err)
		return
	}

	RenderJSON(w, http.StatusOK, rec)
}

// Complete handles POST /api/v1/observations/{id}/complete
func (h *ObservationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid observation ID")
		return
	}

	obs, err := h.observations.Complete(r.Context(), id)
	if err != nil {
		RenderServiceError(w, "CompleteObservation", err)
		return
	}

	RenderJSON(w, http.StatusOK, obs)
}

// FilterOptions handles GET /api/v1/stats/filters
func (h *ObservationHandler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	opts, err := h.observations.FilterOptions(r.Context())
	if err != nil {
		RenderServiceError(w, "FilterOptions", err)
		return
	}

	RenderJSON(w, http.StatusOK, opts)
}
