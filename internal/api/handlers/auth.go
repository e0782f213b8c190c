package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/auth"
	"github.com/sadewadee/safety-observer/internal/domain"
)

// SessionCookie carries the session token for browser clients
const SessionCookie = "session_token"

// AuthServiceInterface defines the auth service methods
type AuthServiceInterface interface {
	SignIn(ctx context.Context, login, password string) (*auth.Session, error)
	SignOut(ctx context.Context, token uuid.UUID) error
	ChangePassword(ctx context.Context, profileID uuid.UUID, password, confirm string) error
}

// DefaultsUpdater saves a user's preferred site and group
type DefaultsUpdater interface {
	UpdateDefaults(ctx context.Context, id uuid.UUID, site, group string) (*domain.Profile, error)
}

// AuthHandler handles sign in, sign out and the signed-in user's profile
type AuthHandler struct {
	auth     AuthServiceInterface
	defaults DefaultsUpdater
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(a AuthServiceInterface, defaults DefaultsUpdater) *AuthHandler {
	return &AuthHandler{
		auth:     a,
		defaults: defaults,
	}
}

// LoginRequest carries sign in credentials
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful sign in
type LoginResponse struct {
	Token     uuid.UUID       `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *domain.Profile `json:"profile"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.auth.SignIn(r.Context(), req.Login, req.Password)
	if err != nil {
		RenderServiceError(w, "Login", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token.String(),
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	RenderJSON(w, http.StatusOK, LoginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Profile:   sess.Profile,
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.auth.SignOut(r.Context(), sess.Token); err != nil {
		RenderServiceError(w, "Logout", err)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	RenderJSON(w, http.StatusOK, sess.Profile)
}

// ChangePasswordRequest carries a new password and its confirmation
type ChangePasswordRequest struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// ChangePassword handles POST /api/v1/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), sess.ProfileID(), req.Password, req.Confirm); err != nil {
		RenderServiceError(w, "ChangePassword", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DefaultsRequest carries the preferred site and group
type DefaultsRequest struct {
	Site  string `json:"site"`
	Group string `json:"group"`
}

// UpdateDefaults handles PUT /api/v1/auth/defaults
func (h *AuthHandler) UpdateDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req DefaultsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.defaults.UpdateDefaults(r.Context(), sess.ProfileID(), req.Site, req.Group)
	if err != nil {
		RenderServiceError(w, "UpdateDefaults", err)
		return
	}

	RenderJSON(w, http.StatusOK, p)
}
