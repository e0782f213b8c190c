package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role controls what a user may do
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleLeader   Role = "lider"
	RoleObserver Role = "observer"
	RoleReader   Role = "reader"
)

// RecordingRoles may start observations and write records
var RecordingRoles = []Role{RoleAdmin, RoleLeader, RoleObserver}

// IsValid reports whether the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleLeader, RoleObserver, RoleReader:
		return true
	}
	return false
}

// SeesAllObservations reports whether the role lists every supervisor's
// observations rather than only its own
func (r Role) SeesAllObservations() bool {
	return r == RoleAdmin || r == RoleLeader
}

// LoginEmailDomain is appended to observer ids to form login emails
const LoginEmailDomain = "sistema.com"

// Profile is an application user (observer, reader, leader or administrator)
type Profile struct {
	ID                 uuid.UUID `json:"id"`
	ObserverID         string    `json:"observer_id"`
	Email              string    `json:"email"`
	FullName           string    `json:"full_name"`
	Role               Role      `json:"role"`
	SiteDefault        string    `json:"site_default"`
	GroupDefault       string    `json:"group_default"`
	IsActive           bool      `json:"is_active"`
	MustChangePassword bool      `json:"must_change_password"`
	PasswordHash       string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
}

// DisplayName returns the name shown on dashboards
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// CreateUserRequest carries the fields for a new user
type CreateUserRequest struct {
	ObserverID string `json:"observer_id"`
	FullName   string `json:"full_name"`
	Password   string `json:"password"`
	Role       Role   `json:"role"`
	Site       string `json:"site"`
	Group      string `json:"group"`
}

// UpdateUserRequest carries the editable user fields. An empty password
// leaves the current one untouched.
type UpdateUserRequest struct {
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	Site     string `json:"site"`
	Group    string `json:"group"`
	Password string `json:"password,omitempty"`
}

// Session is an authenticated login
type Session struct {
	Token     uuid.UUID `json:"token"`
	ProfileID uuid.UUID `json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at t
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
