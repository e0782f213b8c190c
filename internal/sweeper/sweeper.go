// Package sweeper periodically removes expired sessions
package sweeper

import (
	"context"
	"log"
	"time"
)

// DefaultInterval is how often expired sessions are purged
const DefaultInterval = time.Minute

// SessionStore defines methods needed for session expiry
type SessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper deletes expired sessions on a fixed interval
type Sweeper struct {
	sessions SessionStore
	interval time.Duration
	now      func() time.Time
}

// New creates a sweeper
func New(sessions SessionStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Sweeper{
		sessions: sessions,
		interval: interval,
		now:      time.Now,
	}
}

// Run blocks until ctx is done
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[Sweeper] started (interval: %s)", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("[Sweeper] stopped")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	count, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		log.Printf("[Sweeper] error deleting expired sessions: %v", err)
		return
	}

	if count > 0 {
		log.Printf("[Sweeper] removed %d expired sessions", count)
	}
}
