// Package lineage tracks run ancestry within a thread. Each run optionally
// names a parent run; several runs may share a parent, forming branches
// (alternate continuations from the parent's final state). The store answers
// ancestry and branching queries without interpreting run content.
package lineage

import (
	"context"
	"errors"
	"time"
)

// Store errors. Implementations return these sentinels (possibly wrapped) so
// callers can branch with errors.Is.
var (
	// ErrUnknownParent reports a recorded run naming a parent that was never
	// recorded for the thread. Lineage is append-only and parents must exist
	// before children.
	ErrUnknownParent = errors.New("lineage: unknown parent run")
	// ErrDuplicateRun reports a run id already recorded for the thread.
	ErrDuplicateRun = errors.New("lineage: duplicate run")
	// ErrUnknownRun reports a query for a run never recorded for the thread.
	ErrUnknownRun = errors.New("lineage: unknown run")
)

type (
	// Record is one run in a thread's lineage.
	Record struct {
		// ThreadID identifies the conversation.
		ThreadID string
		// RunID identifies the run within the thread.
		RunID string
		// ParentRunID names the run this one continues from, empty for a root
		// run.
		ParentRunID string
		// StartedAt is when the run started.
		StartedAt time.Time
	}

	// Store records run lineage and answers ancestry queries. Implementations
	// must be safe for concurrent use.
	Store interface {
		// RecordRun appends a run to the thread's lineage. Returns
		// ErrUnknownParent when the record names an unrecorded parent and
		// ErrDuplicateRun when the run id is already recorded for the thread.
		RecordRun(ctx context.Context, rec Record) error

		// ResolveAncestors returns the chain of run ids from the root run down
		// to and including runID. Returns ErrUnknownRun when the run was never
		// recorded.
		ResolveAncestors(ctx context.Context, threadID, runID string) ([]string, error)

		// Children returns the ids of runs recorded with runID as their
		// parent, in recording order. Returns ErrUnknownRun when the run was
		// never recorded.
		Children(ctx context.Context, threadID, runID string) ([]string, error)
	}
)
