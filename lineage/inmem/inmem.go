// Package inmem provides an in-memory lineage store for tests and
// single-process deployments. State is lost on restart; production
// deployments use the Mongo-backed store.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"goa.design/agui/lineage"
)

// Store is an in-memory implementation of lineage.Store. Safe for concurrent
// use.
type Store struct {
	mu sync.Mutex
	// threads maps thread id to the runs recorded for it, keyed by run id.
	threads map[string]map[string]lineage.Record
	// order preserves recording order per thread for Children queries.
	order map[string][]string
}

// New creates an empty in-memory lineage store.
func New() *Store {
	return &Store{
		threads: make(map[string]map[string]lineage.Record),
		order:   make(map[string][]string),
	}
}

// RecordRun implements lineage.Store.
func (s *Store) RecordRun(_ context.Context, rec lineage.Record) error {
	if rec.ThreadID == "" || rec.RunID == "" {
		return fmt.Errorf("lineage: thread id and run id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	runs, ok := s.threads[rec.ThreadID]
	if !ok {
		runs = make(map[string]lineage.Record)
		s.threads[rec.ThreadID] = runs
	}
	if _, ok := runs[rec.RunID]; ok {
		return fmt.Errorf("%w: %q in thread %q", lineage.ErrDuplicateRun, rec.RunID, rec.ThreadID)
	}
	if rec.ParentRunID != "" {
		if _, ok := runs[rec.ParentRunID]; !ok {
			return fmt.Errorf("%w: %q in thread %q", lineage.ErrUnknownParent, rec.ParentRunID, rec.ThreadID)
		}
	}
	runs[rec.RunID] = rec
	s.order[rec.ThreadID] = append(s.order[rec.ThreadID], rec.RunID)
	return nil
}

// ResolveAncestors implements lineage.Store.
func (s *Store) ResolveAncestors(_ context.Context, threadID, runID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.threads[threadID]
	rec, ok := runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %q in thread %q", lineage.ErrUnknownRun, runID, threadID)
	}
	// Walk parent pointers to the root, then reverse into root-first order.
	chain := []string{rec.RunID}
	for rec.ParentRunID != "" {
		rec = runs[rec.ParentRunID]
		chain = append(chain, rec.RunID)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Children implements lineage.Store.
func (s *Store) Children(_ context.Context, threadID, runID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.threads[threadID]
	if _, ok := runs[runID]; !ok {
		return nil, fmt.Errorf("%w: %q in thread %q", lineage.ErrUnknownRun, runID, threadID)
	}
	var children []string
	for _, id := range s.order[threadID] {
		if runs[id].ParentRunID == runID {
			children = append(children, id)
		}
	}
	return children, nil
}

// Reset clears all recorded lineage. Tests use it between cases.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = make(map[string]map[string]lineage.Record)
	s.order = make(map[string][]string)
}
