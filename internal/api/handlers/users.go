package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// UserServiceInterface defines the user service methods
type UserServiceInterface interface {
	List(ctx context.Context) ([]*domain.Profile, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.Profile, error)
	Update(ctx context.Context, id uuid.UUID, req *domain.UpdateUserRequest) (*domain.Profile, error)
	SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*domain.Profile, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

// UserHandler handles user administration
type UserHandler struct {
	users UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserServiceInterface) *UserHandler {
	return &UserHandler{users: users}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		RenderServiceError(w, "ListUsers", err)
		return
	}
	if list == nil {
		list = []*domain.Profile{}
	}

	RenderJSON(w, http.StatusOK, list)
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.users.Create(r.Context(), &req)
	if err != nil {
		RenderServiceError(w, "CreateUser", err)
		return
	}

	RenderJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	p, err := h.users.Get(r.Context(), id)
	if err != nil {
		RenderServiceError(w, "GetUser", err)
		return
	}

	RenderJSON(w, http.StatusOK, p)
}

// Update handles PUT /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req domain.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.users.Update(r.Context(), id, &req)
	if err != nil {
		RenderServiceError(w, "UpdateUser", err)
		return
	}

	RenderJSON(w, http.StatusOK, p)
}

// ActiveRequest enables or disables a user
type ActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive handles POST /api/v1/users/{id}/active
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req ActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.users.SetActive(r.Context(), sess.ProfileID(), id, req.Active)
	if err != nil {
		RenderServiceError(w, "SetUserActive", err)
		return
	}

	RenderJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/v1/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.users.Delete(r.Context(), sess.ProfileID(), id); err != nil {
		RenderServiceError(w, "DeleteUser", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
