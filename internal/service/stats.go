package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sadewadee/safety-observer/internal/cache"
	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/stats"
)

// DefaultStatsTimeout bounds a dashboard computation
const DefaultStatsTimeout = 8 * time.Second

// StatsSource is the read side the dashboard needs
type StatsSource interface {
	ListWithRecords(ctx context.Context, filter domain.StatsFilter) ([]*domain.Observation, error)
}

// DashboardResult is a computed statistics bundle
type DashboardResult struct {
	Stats    *domain.Stats
	Cached   bool
	Sequence uint64
}

// StatsService computes the dashboard statistics bundle
type StatsService struct {
	source  StatsSource
	labels  stats.Labeler
	cache   cache.Cache
	timeout time.Duration
	rowCap  int

	seq      atomic.Uint64
	mu       sync.Mutex
	inflight map[string]*inflightRequest
}

type inflightRequest struct {
	seq    uint64
	cancel context.CancelFunc
}

// StatsConfig holds the StatsService limits
type StatsConfig struct {
	Timeout time.Duration
	RowCap  int
}

// NewStatsService creates a new StatsService. c may be nil.
func NewStatsService(source StatsSource, labels stats.Labeler, c cache.Cache, cfg StatsConfig) *StatsService {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultStatsTimeout
	}
	if cfg.RowCap <= 0 {
		cfg.RowCap = domain.DefaultRowCap
	}

	return &StatsService{
		source:   source,
		labels:   labels,
		cache:    c,
		timeout:  cfg.Timeout,
		rowCap:   cfg.RowCap,
		inflight: make(map[string]*inflightRequest),
	}
}

// Dashboard computes the statistics bundle for a filter. The filtered fetch
// and the group comparison fetch (date, site and shift only) run concurrently.
// A failed group fetch leaves the groups chart empty; a failed main fetch
// returns ErrStatsUnavailable.
func (s *StatsService) Dashboard(ctx context.Context, filter domain.StatsFilter) (*DashboardResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.RowCap <= 0 {
		filter.RowCap = s.rowCap
	}

	key := cache.Key(cache.KeyPrefixStats, filter.Key())

	var cached domain.Stats
	if err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil {
		return &DashboardResult{Stats: &cached, Cached: true}, nil
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		main   []*domain.Observation
		groups []*domain.Observation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		main, err = s.source.ListWithRecords(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.source.ListWithRecords(gctx, filter.GroupComparison())
		if err != nil && gctx.Err() == nil {
			log.Printf("[StatsService] WARNING: group comparison fetch failed: %v", err)
			groups = nil
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("[StatsService] dashboard fetch failed after %v: %v", time.Since(start), err)
		return nil, fmt.Errorf("%w: %w", ErrStatsUnavailable, err)
	}

	bundle := stats.Aggregate(main, s.labels)
	bundle.GroupsChart = stats.GroupStats(groups)

	log.Printf("[StatsService] dashboard computed in %v (%d observations)", time.Since(start), bundle.Total)

	if err := cache.SetJSON(ctx, s.cache, key, bundle, cache.TTLStats); err != nil {
		log.Printf("[StatsService] WARNING: failed to cache dashboard: %v", err)
	}

	return &DashboardResult{Stats: bundle}, nil
}

// DashboardLatest computes the dashboard for a viewer, cancelling that
// viewer's previous request if it is still running. Only the newest request
// per viewer returns a bundle; older ones get ErrSuperseded. The returned
// result carries the request's sequence number even when err is non-nil.
func (s *StatsService) DashboardLatest(ctx context.Context, viewer string, filter domain.StatsFilter) (*DashboardResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	seq := s.begin(viewer, cancel)
	defer s.finish(viewer, seq)

	res, err := s.Dashboard(ctx, filter)
	if !s.isLatest(viewer, seq) {
		return &DashboardResult{Sequence: seq}, ErrSuperseded
	}
	if err != nil {
		return &DashboardResult{Sequence: seq}, err
	}

	res.Sequence = seq
	return res, nil
}

func (s *StatsService) begin(viewer string, cancel context.CancelFunc) uint64 {
	seq := s.seq.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.inflight[viewer]; ok {
		prev.cancel()
	}
	s.inflight[viewer] = &inflightRequest{seq: seq, cancel: cancel}

	return seq
}

func (s *StatsService) finish(viewer string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.inflight[viewer]; ok && cur.seq == seq {
		delete(s.inflight, viewer)
	}
}

func (s *StatsService) isLatest(viewer string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.inflight[viewer]
	return ok && cur.seq == seq
}

// IsTimeout reports whether err came from the dashboard time bound
func IsTimeout(err error) bool {
	return errors.Is(err, ErrStatsUnavailable) && errors.Is(err, context.DeadlineExceeded)
}
