package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/auth"
	"github.com/sadewadee/safety-observer/internal/domain"
)

// DefaultSessionTTL is how long a login stays valid
const DefaultSessionTTL = 12 * time.Hour

// AuthService signs users in and out and resolves session tokens
type AuthService struct {
	profiles domain.ProfileRepository
	sessions domain.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(profiles domain.ProfileRepository, sessions domain.SessionRepository, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		profiles: profiles,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// SignIn checks the credentials and opens a new session. login is an
// observer id or a full login email.
func (s *AuthService) SignIn(ctx context.Context, login, password string) (*auth.Session, error) {
	email, err := auth.LoginEmail(login)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByLogin(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil || !auth.CheckPassword(profile.PasswordHash, password) {
		log.Printf("[AuthService] Failed sign in for %s", email)
		return nil, ErrInvalidCredentials
	}
	if !profile.IsActive {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	sess := &domain.Session{
		Token:     uuid.New(),
		ProfileID: profile.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Printf("[AuthService] %s signed in (%s)", profile.Email, profile.Role)

	return &auth.Session{Token: sess.Token, Profile: profile, ExpiresAt: sess.ExpiresAt}, nil
}

// SignOut ends a session
func (s *AuthService) SignOut(ctx context.Context, token uuid.UUID) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Resolve returns the session for a token with its current profile
func (s *AuthService) Resolve(ctx context.Context, token uuid.UUID) (*auth.Session, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, token); err != nil {
			log.Printf("[AuthService] WARNING: failed to delete expired session: %v", err)
		}
		return nil, ErrSessionExpired
	}

	profile, err := s.profiles.GetByID(ctx, sess.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrSessionNotFound
	}
	if !profile.IsActive {
		return nil, ErrAccountDisabled
	}

	return &auth.Session{Token: sess.Token, Profile: profile, ExpiresAt: sess.ExpiresAt}, nil
}

// ChangePassword sets a new password chosen by the user and clears the
// forced-change flag
func (s *AuthService) ChangePassword(ctx context.Context, profileID uuid.UUID, password, confirm string) error {
	if err := auth.ValidateNewPassword(password, confirm); err != nil {
		return err
	}

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return ErrUserNotFound
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	profile.PasswordHash = hash
	profile.MustChangePassword = false

	if err := s.profiles.Update(ctx, profile); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
