package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tjfontaine/courier/internal/core/ports"
)

const defaultListLimit = 100

// Store is an in-memory ExchangeStore. It keeps at most capacity records,
// discarding the oldest first.
type Store struct {
	mu       sync.RWMutex
	records  []*ports.ExchangeRecord
	byID     map[string]*ports.ExchangeRecord
	capacity int
}

var _ ports.ExchangeStore = (*Store)(nil)

// New creates a store. A capacity below 1 keeps every record.
func New(capacity int) *Store {
	return &Store{
		byID:     make(map[string]*ports.ExchangeRecord),
		capacity: capacity,
	}
}

func (s *Store) SaveExchange(ctx context.Context, rec *ports.ExchangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[rec.ID]; exists {
		return fmt.Errorf("exchange %s already exists", rec.ID)
	}

	stored := *rec
	s.records = append(s.records, &stored)
	s.byID[stored.ID] = &stored

	if s.capacity > 0 && len(s.records) > s.capacity {
		evicted := s.records[0]
		s.records[0] = nil
		s.records = s.records[1:]
		delete(s.byID, evicted.ID)
	}
	return nil
}

func (s *Store) GetExchange(ctx context.Context, id string) (*ports.ExchangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.byID[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrExchangeNotFound, id)
	}
	out := *rec
	return &out, nil
}

func (s *Store) ListExchanges(ctx context.Context, opts ports.ExchangeListOptions) ([]*ports.ExchangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var result []*ports.ExchangeRecord
	for i := len(s.records) - 1; i >= 0 && len(result) < limit; i-- {
		rec := s.records[i]
		if opts.Target != "" && rec.Target != opts.Target {
			continue
		}
		if opts.Outcome != "" && rec.Outcome != opts.Outcome {
			continue
		}
		out := *rec
		result = append(result, &out)
	}
	return result, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
