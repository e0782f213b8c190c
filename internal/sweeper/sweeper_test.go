package sweeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingStore struct {
	calls atomic.Int32
}

func (c *countingStore) DeleteExpired(context.Context, time.Time) (int, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestSweeperRunsUntilCancelled(t *testing.T) {
	store := &countingStore{}
	s := New(store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(&countingStore{}, 0)
	assert.Equal(t, DefaultInterval, s.interval)
}
