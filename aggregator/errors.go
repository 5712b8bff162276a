package aggregator

import (
	"fmt"

	"goa.design/agui/protocol"
)

// SequenceErrorKind classifies protocol-sequencing violations. These indicate
// either a non-conformant sender or a desynchronized consumer; they are a
// distinct error category from transport failures and from agent-reported
// run errors.
type SequenceErrorKind string

const (
	// DuplicateOpenBuilder reports a start event for an id that already has an
	// open builder. A well-formed stream never double-opens.
	DuplicateOpenBuilder SequenceErrorKind = "duplicate_open_builder"
	// NoOpenBuilder reports a content or end event with no matching open
	// builder.
	NoOpenBuilder SequenceErrorKind = "no_open_builder"
	// KindMismatch reports an event referencing a builder of the wrong kind,
	// including mixing chunk-form and explicitly bracketed reasoning events
	// for one id.
	KindMismatch SequenceErrorKind = "kind_mismatch"
	// DanglingBuilder reports a run-terminating event (or reasoning block
	// close) while builders remain open.
	DanglingBuilder SequenceErrorKind = "dangling_builder"
	// RunClosed reports an event for a run that already reached a terminal
	// lifecycle event.
	RunClosed SequenceErrorKind = "run_closed"
	// RunAborted reports an event fed after a previous sequencing error
	// poisoned the run. Feed the next RUN_STARTED or call Abandon to recover.
	RunAborted SequenceErrorKind = "run_aborted"
	// MalformedPayload reports streamed fragments that do not assemble into
	// the required shape, such as tool call arguments that are not valid
	// JSON.
	MalformedPayload SequenceErrorKind = "malformed_payload"
	// BufferExceeded reports a builder that outgrew the configured delta
	// buffer cap.
	BufferExceeded SequenceErrorKind = "buffer_exceeded"
)

// SequenceError reports a protocol-sequencing violation with enough context
// to diagnose the offending event: the run, the entity id, and the event
// type that triggered the violation.
type SequenceError struct {
	// Kind classifies the violation.
	Kind SequenceErrorKind
	// RunID is the run being aggregated when the violation occurred, when
	// known.
	RunID string
	// EntityID is the offending entity id, when the event carried one.
	EntityID string
	// EventType is the type of the offending event.
	EventType protocol.EventType
}

// Error implements error.
func (e *SequenceError) Error() string {
	msg := fmt.Sprintf("sequence violation %s: event %s", e.Kind, e.EventType)
	if e.EntityID != "" {
		msg += fmt.Sprintf(" id %q", e.EntityID)
	}
	if e.RunID != "" {
		msg += fmt.Sprintf(" run %q", e.RunID)
	}
	return msg
}
