// Package interrupt correlates run interrupts with later resumes. When a run
// finishes awaiting human input the host records the pending interrupt; when
// a resume request arrives, possibly much later and from a different
// goroutine, the correlator matches it back to the recording run and
// consumes the record so each interrupt resumes at most once.
package interrupt

import (
	"errors"
	"fmt"
	"sync"

	"goa.design/agui/protocol"
)

// ErrNotFound reports a resume naming no pending interrupt, either because
// the id was never recorded or because it was already consumed.
var ErrNotFound = errors.New("interrupt: no pending interrupt")

type (
	// Pending is a recorded interrupt awaiting its resume.
	Pending struct {
		// RunID is the run that raised the interrupt.
		RunID string
		// Interrupt is the payload recorded when the run paused.
		Interrupt protocol.Interrupt
	}

	// Correlator matches resumes to pending interrupts. Safe for concurrent
	// use. A run holds at most one pending interrupt: re-recording displaces
	// the previous one.
	Correlator struct {
		mu sync.Mutex
		// byRun holds the pending interrupt per run.
		byRun map[string]Pending
		// byID indexes pending interrupts by interrupt id for resume lookup.
		byID map[string]string
	}
)

// NewCorrelator creates an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{
		byRun: make(map[string]Pending),
		byID:  make(map[string]string),
	}
}

// RecordInterrupt records the pending interrupt for a run. A second record
// for the same run displaces the first; the displaced interrupt is returned
// so hosts can observe the overwrite. The interrupt id must be non-empty,
// since resumes correlate by id.
func (c *Correlator) RecordInterrupt(runID string, intr protocol.Interrupt) (displaced *protocol.Interrupt, err error) {
	if runID == "" {
		return nil, fmt.Errorf("interrupt: run id is required")
	}
	if intr.ID == "" {
		return nil, fmt.Errorf("interrupt: interrupt id is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.byRun[runID]; ok {
		delete(c.byID, prev.Interrupt.ID)
		displaced = &prev.Interrupt
	}
	c.byRun[runID] = Pending{RunID: runID, Interrupt: intr}
	c.byID[intr.ID] = runID
	return displaced, nil
}

// MatchResume resolves a resume to its pending interrupt and consumes the
// record: a second resume for the same interrupt id returns ErrNotFound.
func (c *Correlator) MatchResume(resume protocol.Resume) (Pending, error) {
	if resume.InterruptID == "" {
		return Pending{}, fmt.Errorf("interrupt: resume carries no interrupt id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	runID, ok := c.byID[resume.InterruptID]
	if !ok {
		return Pending{}, fmt.Errorf("%w: id %q", ErrNotFound, resume.InterruptID)
	}
	p := c.byRun[runID]
	delete(c.byID, resume.InterruptID)
	delete(c.byRun, runID)
	return p, nil
}

// Pending returns the pending interrupt for a run without consuming it.
func (c *Correlator) Pending(runID string) (Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.byRun[runID]
	return p, ok
}

// Reset drops every pending interrupt. Tests use it between cases.
func (c *Correlator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byRun = make(map[string]Pending)
	c.byID = make(map[string]string)
}
