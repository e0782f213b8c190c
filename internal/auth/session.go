// Package auth carries the authenticated session through request contexts
// and hashes passwords.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// Session is the authenticated user for one request. It is built by the
// session middleware from a stored login and dropped at sign-out.
type Session struct {
	Token     uuid.UUID
	Profile   *domain.Profile
	ExpiresAt time.Time
}

// ProfileID returns the signed-in user's id
func (s *Session) ProfileID() uuid.UUID {
	return s.Profile.ID
}

// HasRole reports whether the user holds one of roles
func (s *Session) HasRole(roles ...domain.Role) bool {
	if s == nil || s.Profile == nil {
		return false
	}
	for _, r := range roles {
		if s.Profile.Role == r {
			return true
		}
	}
	return false
}

// ViewerKey identifies the client for latest-wins dashboard requests
func (s *Session) ViewerKey() string {
	return s.Token.String()
}

type sessionKey struct{}

// WithSession returns a context carrying s
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
