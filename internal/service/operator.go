package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/cache"
	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/events"
)

// ImportBatchSize is the number of operators inserted per statement
const ImportBatchSize = 100

// ImportResult summarises an operator import
type ImportResult struct {
	Read       int `json:"read"`
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

// OperatorService manages the operator catalog
type OperatorService struct {
	operators domain.OperatorRepository
	cache     cache.Cache
	notify    notifier
	now       func() time.Time
}

// NewOperatorService creates a new OperatorService. c and pub may be nil.
func NewOperatorService(operators domain.OperatorRepository, c cache.Cache, pub events.Publisher) *OperatorService {
	n := newNotifier("OperatorService", c, pub)
	return &OperatorService{
		operators: operators,
		cache:     n.cache,
		notify:    n,
		now:       time.Now,
	}
}

// List returns active operators ordered by name
func (s *OperatorService) List(ctx context.Context, params domain.OperatorListParams) ([]*domain.Operator, error) {
	if params.Site != "" {
		if site, ok := domain.NormalizeSite(params.Site); ok {
			params.Site = site
		}
	}

	key := cache.Key(cache.KeyPrefixOperators, fmt.Sprintf("site=%s:group=%s", params.Site, params.Group))

	var ops []*domain.Operator
	if err := cache.GetJSON(ctx, s.cache, key, &ops); err == nil {
		return ops, nil
	}

	ops, err := s.operators.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}
	if ops == nil {
		ops = []*domain.Operator{}
	}

	if err := cache.SetJSON(ctx, s.cache, key, ops, cache.TTLOperators); err != nil {
		log.Printf("[OperatorService] WARNING: failed to cache operators: %v", err)
	}

	return ops, nil
}

// Create adds an operator to the catalog
func (s *OperatorService) Create(ctx context.Context, req *domain.OperatorRequest) (*domain.Operator, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	op := &domain.Operator{
		ID:        uuid.New(),
		Name:      req.Name,
		Site:      req.Site,
		Group:     req.Group,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err := s.operators.Create(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	s.changed(ctx)
	return op, nil
}

// Update edits an operator
func (s *OperatorService) Update(ctx context.Context, id uuid.UUID, req *domain.OperatorRequest) (*domain.Operator, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	op, err := s.operators.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	if op == nil {
		return nil, ErrOperatorNotFound
	}

	op.Name = req.Name
	op.Site = req.Site
	op.Group = req.Group

	if err := s.operators.Update(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to update operator: %w", err)
	}

	s.changed(ctx)
	return op, nil
}

// Deactivate hides an operator from the catalog without deleting it
func (s *OperatorService) Deactivate(ctx context.Context, id uuid.UUID) error {
	op, err := s.operators.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get operator: %w", err)
	}
	if op == nil {
		return ErrOperatorNotFound
	}

	if err := s.operators.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate operator: %w", err)
	}

	s.changed(ctx)
	return nil
}

// Import reads tab separated "group<TAB>site<TAB>name" lines and inserts the
// operators not already in the catalog, deduplicated by name, site and group.
func (s *OperatorService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	existing, err := s.operators.List(ctx, domain.OperatorListParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}

	seen := make(map[string]bool, len(existing))
	for _, op := range existing {
		seen[op.DedupKey()] = true
	}

	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	result := &ImportResult{}
	batch := make([]*domain.Operator, 0, ImportBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.operators.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to import operators: %w", err)
		}
		result.Imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to read import: %w", err)
		}

		result.Read++

		op, ok := parseImportLine(fields)
		if !ok {
			result.Invalid++
			continue
		}
		if seen[op.DedupKey()] {
			result.Duplicates++
			continue
		}
		seen[op.DedupKey()] = true

		op.ID = uuid.New()
		op.IsActive = true
		op.CreatedAt = s.now()
		batch = append(batch, op)

		if len(batch) == ImportBatchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}

	if err := flush(); err != nil {
		return result, err
	}

	log.Printf("[OperatorService] Import finished: read=%d imported=%d duplicates=%d invalid=%d",
		result.Read, result.Imported, result.Duplicates, result.Invalid)

	if result.Imported > 0 {
		s.changed(ctx)
	}

	return result, nil
}

func parseImportLine(fields []string) (*domain.Operator, bool) {
	if len(fields) < 3 {
		return nil, false
	}

	group := strings.TrimSpace(fields[0])
	name := strings.TrimSpace(fields[2])
	site, ok := domain.NormalizeSite(fields[1])
	if name == "" || !ok {
		return nil, false
	}

	return &domain.Operator{Name: name, Site: site, Group: group}, true
}

func (s *OperatorService) changed(ctx context.Context) {
	s.notify.changed(ctx, events.Event{Type: events.OperatorsChanged, OccurredAt: s.now().UTC()}, cache.KeyPrefixOperators)
}
