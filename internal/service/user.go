package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/auth"
	"github.com/sadewadee/safety-observer/internal/domain"
)

// UserService manages user accounts
type UserService struct {
	profiles domain.ProfileRepository
	sessions domain.SessionRepository
	now      func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(profiles domain.ProfileRepository, sessions domain.SessionRepository) *UserService {
	return &UserService{
		profiles: profiles,
		sessions: sessions,
		now:      time.Now,
	}
}

// List returns every user
func (s *UserService) List(ctx context.Context) ([]*domain.Profile, error) {
	list, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if list == nil {
		list = []*domain.Profile{}
	}
	return list, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if p == nil {
		return nil, ErrUserNotFound
	}
	return p, nil
}

// Create registers a user who must change the password on first sign in
func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.Profile, error) {
	observerID := strings.TrimSpace(req.ObserverID)
	if observerID == "" {
		return nil, ErrObserverIDRequired
	}

	email, err := auth.LoginEmail(observerID)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = domain.RoleObserver
	}
	if !role.IsValid() {
		return nil, domain.ErrInvalidRole
	}

	site, err := normalizeDefaultSite(req.Site)
	if err != nil {
		return nil, err
	}

	existing, err := s.profiles.GetByLogin(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check observer id: %w", err)
	}
	if existing != nil {
		return nil, ErrObserverIDTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	p := &domain.Profile{
		ID:                 uuid.New(),
		ObserverID:         observerID,
		Email:              email,
		FullName:           strings.TrimSpace(req.FullName),
		Role:               role,
		SiteDefault:        site,
		GroupDefault:       strings.TrimSpace(req.Group),
		IsActive:           true,
		MustChangePassword: true,
		PasswordHash:       hash,
		CreatedAt:          s.now(),
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[UserService] User %s created (%s)", p.Email, p.Role)

	return p, nil
}

// Update edits a user. A new password forces a change on next sign in and
// ends the user's sessions.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateUserRequest) (*domain.Profile, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != "" {
		if !req.Role.IsValid() {
			return nil, domain.ErrInvalidRole
		}
		p.Role = req.Role
	}

	site, err := normalizeDefaultSite(req.Site)
	if err != nil {
		return nil, err
	}

	p.FullName = strings.TrimSpace(req.FullName)
	p.SiteDefault = site
	p.GroupDefault = strings.TrimSpace(req.Group)

	reset := req.Password != ""
	if reset {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		p.PasswordHash = hash
		p.MustChangePassword = true
	}

	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if reset {
		s.endSessions(ctx, p.ID)
	}

	return p, nil
}

// SetActive enables or disables a user. Disabling ends their sessions.
func (s *UserService) SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*domain.Profile, error) {
	if !active && actorID == id {
		return nil, ErrCannotDeactivateSelf
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p.IsActive = active
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if !active {
		s.endSessions(ctx, p.ID)
	}

	return p, nil
}

// Delete removes a user and their sessions
func (s *UserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	s.endSessions(ctx, id)

	if err := s.profiles.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	log.Printf("[UserService] User %s deleted", id)
	return nil
}

// UpdateDefaults stores the site and group preselected for a user's new observations
func (s *UserService) UpdateDefaults(ctx context.Context, id uuid.UUID, site, group string) (*domain.Profile, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeDefaultSite(site)
	if err != nil {
		return nil, err
	}

	p.SiteDefault = normalized
	p.GroupDefault = strings.TrimSpace(group)

	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update defaults: %w", err)
	}

	return p, nil
}

// EnsureAdmin makes sure an active admin with the given observer id exists
func (s *UserService) EnsureAdmin(ctx context.Context, observerID, password string) (*domain.Profile, error) {
	email, err := auth.LoginEmail(observerID)
	if err != nil {
		return nil, err
	}

	p, err := s.profiles.GetByLogin(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	if p == nil {
		p, err = s.Create(ctx, &domain.CreateUserRequest{
			ObserverID: observerID,
			FullName:   "Administrador",
			Password:   password,
			Role:       domain.RoleAdmin,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("[UserService] Bootstrap admin %s created", p.Email)
		return p, nil
	}

	if p.Role == domain.RoleAdmin && p.IsActive {
		return p, nil
	}

	p.Role = domain.RoleAdmin
	p.IsActive = true
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to promote admin: %w", err)
	}

	log.Printf("[UserService] Bootstrap admin %s promoted", p.Email)
	return p, nil
}

func (s *UserService) endSessions(ctx context.Context, profileID uuid.UUID) {
	if err := s.sessions.DeleteByProfile(ctx, profileID); err != nil {
		log.Printf("[UserService] WARNING: failed to end sessions of %s: %v", profileID, err)
	}
}

func normalizeDefaultSite(site string) (string, error) {
	if strings.TrimSpace(site) == "" {
		return "", nil
	}
	normalized, ok := domain.NormalizeSite(site)
	if !ok {
		return "", domain.ErrInvalidSite
	}
	return normalized, nil
}
