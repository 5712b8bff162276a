package mongo

import (
	"context"
	"errors"
	"fmt"

	mongoc "goa.design/agui/features/lineage/mongo/clients/mongo"
	"goa.design/agui/lineage"
)

// Store implements lineage.Store by delegating to the Mongo client. The
// unique (thread_id, run_id) index enforces run id uniqueness; parent
// existence is checked with a read before insert.
type Store struct {
	client mongoc.Client
}

// NewStore builds a Store using the provided client.
func NewStore(client mongoc.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: client}, nil
}

// RecordRun implements lineage.Store.
func (s *Store) RecordRun(ctx context.Context, rec lineage.Record) error {
	if rec.ThreadID == "" || rec.RunID == "" {
		return errors.New("thread id and run id are required")
	}
	if rec.ParentRunID != "" {
		_, ok, err := s.client.FindRun(ctx, rec.ThreadID, rec.ParentRunID)
		if err != nil {
			return fmt.Errorf("load parent run: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %q in thread %q", lineage.ErrUnknownParent, rec.ParentRunID, rec.ThreadID)
		}
	}
	err := s.client.InsertRun(ctx, mongoc.Run{
		ThreadID:    rec.ThreadID,
		RunID:       rec.RunID,
		ParentRunID: rec.ParentRunID,
		StartedAt:   rec.StartedAt,
	})
	if errors.Is(err, mongoc.ErrDuplicate) {
		return fmt.Errorf("%w: %q in thread %q", lineage.ErrDuplicateRun, rec.RunID, rec.ThreadID)
	}
	return err
}

// ResolveAncestors implements lineage.Store. It walks parent pointers one
// read per hop; chains are bounded by branch depth, not thread size.
func (s *Store) ResolveAncestors(ctx context.Context, threadID, runID string) ([]string, error) {
	run, ok, err := s.client.FindRun(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q in thread %q", lineage.ErrUnknownRun, runID, threadID)
	}
	chain := []string{run.RunID}
	for run.ParentRunID != "" {
		parentID := run.ParentRunID
		run, ok, err = s.client.FindRun(ctx, threadID, parentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q in thread %q", lineage.ErrUnknownRun, parentID, threadID)
		}
		chain = append(chain, run.RunID)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Children implements lineage.Store.
func (s *Store) Children(ctx context.Context, threadID, runID string) ([]string, error) {
	_, ok, err := s.client.FindRun(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q in thread %q", lineage.ErrUnknownRun, runID, threadID)
	}
	return s.client.FindChildren(ctx, threadID, runID)
}
