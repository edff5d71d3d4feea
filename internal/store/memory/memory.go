// Package memory is an in-process Store used by tests and by deployments
// without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	queries  map[string]model.QueryRecord
	results  map[string]map[string]model.ScannerResult
	entities map[string][]model.Entity
	now      func() time.Time
}

func New() *Store {
	return &Store{
		queries:  make(map[string]model.QueryRecord),
		results:  make(map[string]map[string]model.ScannerResult),
		entities: make(map[string][]model.Entity),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreateQuery(ctx context.Context, q model.Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queries[q.ID]; ok {
		return fmt.Errorf("query %s: %w", q.ID, store.ErrAlreadyExists)
	}
	s.queries[q.ID] = model.QueryRecord{Query: q, Status: model.QueryStatusPending, UpdatedAt: s.now()}
	return nil
}

func (s *Store) UpdateQueryStatus(ctx context.Context, queryID string, status model.QueryStatus, confidence float64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.queries[queryID]
	if !ok {
		return fmt.Errorf("query %s: %w", queryID, store.ErrNotFound)
	}
	if !rec.Status.CanTransition(status) {
		return fmt.Errorf("query %s %s -> %s: %w", queryID, rec.Status, status, store.ErrInvalidTransition)
	}
	rec.Status = status
	rec.Confidence = model.ClampConfidence(confidence)
	rec.Error = reason
	rec.UpdatedAt = s.now()
	s.queries[queryID] = rec
	return nil
}

func (s *Store) GetQuery(ctx context.Context, queryID string) (model.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.queries[queryID]
	if !ok {
		return model.QueryRecord{}, fmt.Errorf("query %s: %w", queryID, store.ErrNotFound)
	}
	return rec, nil
}

func (s *Store) SaveResults(ctx context.Context, queryID string, results map[string]model.ScannerResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queries[queryID]; !ok {
		return fmt.Errorf("query %s: %w", queryID, store.ErrNotFound)
	}
	stored, ok := s.results[queryID]
	if !ok {
		stored = make(map[string]model.ScannerResult, len(results))
		s.results[queryID] = stored
	}
	for name, r := range results {
		if _, exists := stored[name]; exists {
			continue
		}
		stored[name] = r
	}
	return nil
}

func (s *Store) ListResults(ctx context.Context, queryID string) (map[string]model.ScannerResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.queries[queryID]; !ok {
		return nil, fmt.Errorf("query %s: %w", queryID, store.ErrNotFound)
	}
	out := make(map[string]model.ScannerResult, len(s.results[queryID]))
	for name, r := range s.results[queryID] {
		out[name] = r
	}
	return out, nil
}

func (s *Store) SaveEntities(ctx context.Context, queryID string, entities []model.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queries[queryID]; !ok {
		return fmt.Errorf("query %s: %w", queryID, store.ErrNotFound)
	}
	byID := make(map[string]model.Entity)
	for _, e := range s.entities[queryID] {
		byID[e.ID] = e
	}
	for _, e := range entities {
		byID[e.ID] = e
	}
	merged := make([]model.Entity, 0, len(byID))
	for _, e := range byID {
		merged = append(merged, e)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	s.entities[queryID] = merged
	return nil
}

func (s *Store) ListEntities(ctx context.Context, queryID string) ([]model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.queries[queryID]; !ok {
		return nil, fmt.Errorf("query %s: %w", queryID, store.ErrNotFound)
	}
	out := make([]model.Entity, len(s.entities[queryID]))
	copy(out, s.entities[queryID])
	return out, nil
}

func (s *Store) Close() error { return nil }
