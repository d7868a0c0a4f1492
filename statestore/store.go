// Package statestore persists run results so in-flight and finished runs
// can be inspected outside the process that executed them.
//
// Two implementations are provided: an in-memory store for single-process
// runs and tests, and a Redis-backed store for shared or long-lived state.
// Both satisfy engine.ResultStore.
package statestore

import (
	"context"
	"errors"
	"sync"

	"github.com/parleylabs/gauntlet/engine"
)

// ErrNotFound is returned when a result id is unknown.
var ErrNotFound = errors.New("result not found")

// MemoryStore keeps results in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*engine.RunResult
	byRun   map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]*engine.RunResult),
		byRun:   make(map[string][]string),
	}
}

// SaveResult stores a snapshot of the result. Saving the same id again
// overwrites the snapshot but keeps its position in the run listing.
func (s *MemoryStore) SaveResult(_ context.Context, result *engine.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := *result
	if _, seen := s.results[result.ID]; !seen {
		s.byRun[result.RunID] = append(s.byRun[result.RunID], result.ID)
	}
	s.results[result.ID] = &snapshot
	return nil
}

// GetResult returns the stored result for the id.
func (s *MemoryStore) GetResult(_ context.Context, id string) (*engine.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *r
	return &snapshot, nil
}

// ListResults returns the run's results in first-save order.
func (s *MemoryStore) ListResults(_ context.Context, runID string) ([]*engine.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRun[runID]
	out := make([]*engine.RunResult, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.results[id]; ok {
			snapshot := *r
			out = append(out, &snapshot)
		}
	}
	return out, nil
}
