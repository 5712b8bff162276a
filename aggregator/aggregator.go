// Package aggregator implements the decoding half of the streaming
// translator: it consumes an ordered sequence of wire events, maintains open
// per-entity builders (text message, tool call, reasoning block), and emits
// aggregated content whenever a builder closes. It also tracks the run
// lifecycle and exposes the interrupt payload when a run finishes awaiting
// human input.
//
// An Aggregator is a strictly sequential, single-threaded state machine:
// event order within a run is a protocol invariant, so there is no internal
// locking and no I/O. Construct one Aggregator per run stream; instances are
// cheap and share no state. If the underlying channel is torn down mid-run
// the host must call Abandon explicitly; open builders are never inferred
// stale from the absence of events.
package aggregator

import (
	"encoding/json"

	"goa.design/agui/content"
	"goa.design/agui/protocol"
)

// Phase labels run lifecycle signals surfaced by the aggregator.
type Phase string

const (
	// PhaseStarted signals a RUN_STARTED event.
	PhaseStarted Phase = "started"
	// PhaseFinished signals a terminal-success RUN_FINISHED event.
	PhaseFinished Phase = "finished"
	// PhaseInterrupted signals a RUN_FINISHED event with a pending interrupt.
	PhaseInterrupted Phase = "interrupted"
	// PhaseFailed signals a RUN_ERROR event.
	PhaseFailed Phase = "failed"
)

type (
	// Emit is the result of feeding one event: zero or more aggregated
	// content items plus an optional run lifecycle signal.
	Emit struct {
		// Items holds the content materialized by this event, in order.
		Items []content.Item
		// Signal is set when the event changed the run lifecycle.
		Signal *RunSignal
	}

	// RunSignal describes a run lifecycle transition.
	RunSignal struct {
		// Phase is the lifecycle transition kind.
		Phase Phase
		// ThreadID identifies the conversation.
		ThreadID string
		// RunID identifies the run.
		RunID string
		// ParentRunID is the lineage parent recorded at run start, when any.
		ParentRunID string
		// Input echoes the request bundle attached to RUN_STARTED, when any.
		Input *protocol.RunInput
		// Result carries the final result of a successful run, when any.
		Result json.RawMessage
		// Interrupt carries the pending interrupt of an interrupted run.
		Interrupt *protocol.Interrupt
		// ErrorMessage and ErrorCode carry the agent-reported failure of a
		// failed run.
		ErrorMessage string
		ErrorCode    string
	}

	// Option configures an Aggregator.
	Option func(*options)

	options struct {
		maxBufferedBytes int
	}

	// Aggregator decodes an ordered event stream into aggregated content.
	// Not safe for concurrent use; drive it from a single goroutine.
	Aggregator struct {
		opts     options
		builders map[string]*builder

		// lastChunkID names the most recently chunk-opened reasoning builder
		// so id-less follow-up chunks can find it.
		lastChunkID string

		threadID    string
		runID       string
		parentRunID string
		terminal    bool
		aborted     bool

		snapshot  json.RawMessage
		interrupt *protocol.Interrupt
	}
)

// WithMaxBufferedBytes caps the number of delta bytes buffered per builder.
// The protocol leaves per-builder buffers unbounded; the cap is a hardening
// choice that fails the run instead of growing without bound. Zero means
// unbounded.
func WithMaxBufferedBytes(n int) Option {
	return func(o *options) { o.maxBufferedBytes = n }
}

// New constructs an Aggregator with no open builders and no current run.
func New(opts ...Option) *Aggregator {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Aggregator{opts: o, builders: make(map[string]*builder)}
}

// Abandon discards all open builders and run state. Hosts call it when the
// underlying channel is torn down mid-run; leaving stale open builders on an
// abandoned run leaks the buffered deltas.
func (a *Aggregator) Abandon() {
	a.builders = make(map[string]*builder)
	a.lastChunkID = ""
	a.threadID, a.runID, a.parentRunID = "", "", ""
	a.terminal, a.aborted = false, false
	a.snapshot = nil
	a.interrupt = nil
}

// State returns the last state snapshot observed on the stream. Deltas are
// not applied: the consumer pairs each StateDelta item with the snapshot it
// patches.
func (a *Aggregator) State() (json.RawMessage, bool) {
	if a.snapshot == nil {
		return nil, false
	}
	return a.snapshot, true
}

// PendingInterrupt returns the interrupt reported by the last RUN_FINISHED
// event, when the run finished awaiting human input.
func (a *Aggregator) PendingInterrupt() (*protocol.Interrupt, bool) {
	if a.interrupt == nil {
		return nil, false
	}
	return a.interrupt, true
}

// Feed advances the state machine with the next event in stream order.
// Sequencing violations poison the current run: every subsequent Feed fails
// with a RunAborted sequence error until the next RUN_STARTED or an explicit
// Abandon. Violations are never recovered by skipping the offending event,
// because doing so would desynchronize builder state.
func (a *Aggregator) Feed(ev protocol.Event) (Emit, error) {
	if a.aborted {
		if _, ok := ev.(protocol.RunStartedEvent); !ok {
			return Emit{}, a.seqErr(RunAborted, ev.Type(), "")
		}
	}
	if a.terminal {
		if _, ok := ev.(protocol.RunStartedEvent); !ok {
			return Emit{}, a.fail(RunClosed, ev.Type(), "")
		}
	}

	switch e := ev.(type) {
	case protocol.RunStartedEvent:
		return a.runStarted(e)
	case protocol.RunFinishedEvent:
		return a.runFinished(e)
	case protocol.RunErrorEvent:
		a.terminal = true
		return Emit{
			Items: []content.Item{content.Error{Message: e.Message, Code: e.Code}},
			Signal: &RunSignal{
				Phase:        PhaseFailed,
				ThreadID:     a.threadID,
				RunID:        a.runID,
				ParentRunID:  a.parentRunID,
				ErrorMessage: e.Message,
				ErrorCode:    e.Code,
			},
		}, nil

	case protocol.TextMessageStartEvent:
		if err := a.open(&builder{kind: kindText, id: e.MessageID, role: e.Role}, ev.Type()); err != nil {
			return Emit{}, err
		}
		return Emit{}, nil
	case protocol.TextMessageContentEvent:
		return Emit{}, a.appendTo(kindText, e.MessageID, e.Delta, ev.Type())
	case protocol.TextMessageEndEvent:
		b, err := a.close(kindText, e.MessageID, ev.Type())
		if err != nil {
			return Emit{}, err
		}
		return Emit{Items: []content.Item{content.Text{
			MessageID: b.id,
			Role:      b.role,
			Text:      b.buf.String(),
		}}}, nil

	case protocol.ToolCallStartEvent:
		b := &builder{kind: kindToolCall, id: e.ToolCallID, toolName: e.ToolCallName, parentMessageID: e.ParentMessageID}
		if err := a.open(b, ev.Type()); err != nil {
			return Emit{}, err
		}
		return Emit{}, nil
	case protocol.ToolCallArgsEvent:
		return Emit{}, a.appendTo(kindToolCall, e.ToolCallID, e.Delta, ev.Type())
	case protocol.ToolCallEndEvent:
		b, err := a.close(kindToolCall, e.ToolCallID, ev.Type())
		if err != nil {
			return Emit{}, err
		}
		args := b.buf.String()
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			return Emit{}, a.fail(MalformedPayload, ev.Type(), b.id)
		}
		return Emit{Items: []content.Item{content.ToolCall{
			ID:              b.id,
			Name:            b.toolName,
			ParentMessageID: b.parentMessageID,
			Arguments:       json.RawMessage(args),
		}}}, nil
	case protocol.ToolCallResultEvent:
		return Emit{Items: []content.Item{content.ToolResult{
			ID:        e.ToolCallID,
			MessageID: e.MessageID,
			Role:      e.Role,
			Value:     content.NewResultValue(e.Result),
		}}}, nil

	case protocol.StateSnapshotEvent:
		a.snapshot = e.Snapshot
		return Emit{Items: []content.Item{content.StateSnapshot{Snapshot: e.Snapshot}}}, nil
	case protocol.StateDeltaEvent:
		return Emit{Items: []content.Item{content.StateDelta{Delta: e.Delta, Base: a.snapshot}}}, nil

	case protocol.StepStartedEvent:
		return Emit{Items: []content.Item{content.StepStarted{
			StepID:       e.StepID,
			StepName:     e.StepName,
			ParentStepID: e.ParentStepID,
		}}}, nil
	case protocol.StepFinishedEvent:
		return Emit{Items: []content.Item{content.StepFinished{
			StepID:   e.StepID,
			StepName: e.StepName,
			Status:   e.Status,
			Result:   e.Result,
		}}}, nil
	case protocol.ActivitySnapshotEvent:
		return Emit{Items: []content.Item{content.ActivitySnapshot{
			ActivityID:   e.ActivityID,
			ActivityType: e.ActivityType,
			State:        e.State,
			Metadata:     e.Metadata,
		}}}, nil
	case protocol.ActivityDeltaEvent:
		return Emit{Items: []content.Item{content.ActivityDelta{
			ActivityID: e.ActivityID,
			Delta:      e.Delta,
		}}}, nil

	case protocol.ReasoningStartEvent:
		b := &builder{kind: kindReasoning, id: e.MessageID, encrypted: e.EncryptedContent}
		if err := a.open(b, ev.Type()); err != nil {
			return Emit{}, err
		}
		return Emit{}, nil
	case protocol.ReasoningMessageStartEvent:
		b, err := a.reasoning(e.MessageID, ev.Type())
		if err != nil {
			return Emit{}, err
		}
		if b.msgOpen {
			return Emit{}, a.fail(DuplicateOpenBuilder, ev.Type(), e.MessageID)
		}
		b.msgOpen = true
		b.role = e.Role
		return Emit{}, nil
	case protocol.ReasoningMessageContentEvent:
		b, err := a.reasoning(e.MessageID, ev.Type())
		if err != nil {
			return Emit{}, err
		}
		if !b.msgOpen {
			return Emit{}, a.fail(NoOpenBuilder, ev.Type(), e.MessageID)
		}
		if !b.append(e.Delta, a.opts.maxBufferedBytes) {
			return Emit{}, a.fail(BufferExceeded, ev.Type(), e.MessageID)
		}
		return Emit{}, nil
	case protocol.ReasoningMessageEndEvent:
		b, err := a.reasoning(e.MessageID, ev.Type())
		if err != nil {
			return Emit{}, err
		}
		if !b.msgOpen {
			return Emit{}, a.fail(NoOpenBuilder, ev.Type(), e.MessageID)
		}
		b.msgOpen = false
		return Emit{}, nil
	case protocol.ReasoningEndEvent:
		b, ok := a.builders[e.MessageID]
		if !ok {
			return Emit{}, a.fail(NoOpenBuilder, ev.Type(), e.MessageID)
		}
		if b.kind != kindReasoning {
			return Emit{}, a.fail(KindMismatch, ev.Type(), e.MessageID)
		}
		if b.msgOpen && !b.viaChunk {
			return Emit{}, a.fail(DanglingBuilder, ev.Type(), e.MessageID)
		}
		return a.closeReasoning(b), nil
	case protocol.ReasoningMessageChunkEvent:
		return a.reasoningChunk(e)

	case protocol.MessagesSnapshotEvent:
		return Emit{Items: []content.Item{content.MessagesSnapshot{Messages: e.Messages}}}, nil
	case protocol.RawEvent:
		return Emit{Items: []content.Item{content.Raw{Source: e.Source, Event: e.Event}}}, nil
	case protocol.CustomEvent:
		return Emit{Items: []content.Item{content.Custom{Name: e.Name, Value: e.Value}}}, nil

	default:
		// The union is closed; a new variant reaching this point means the
		// codec and the aggregator disagree on the event set.
		return Emit{}, a.fail(KindMismatch, ev.Type(), "")
	}
}

func (a *Aggregator) runStarted(e protocol.RunStartedEvent) (Emit, error) {
	// A new RUN_STARTED resets the current run wholesale, discarding any
	// builders the previous run left open.
	a.builders = make(map[string]*builder)
	a.lastChunkID = ""
	a.threadID, a.runID, a.parentRunID = e.ThreadID, e.RunID, e.ParentRunID
	a.terminal, a.aborted = false, false
	a.interrupt = nil
	return Emit{Signal: &RunSignal{
		Phase:       PhaseStarted,
		ThreadID:    e.ThreadID,
		RunID:       e.RunID,
		ParentRunID: e.ParentRunID,
		Input:       e.Input,
	}}, nil
}

func (a *Aggregator) runFinished(e protocol.RunFinishedEvent) (Emit, error) {
	if len(a.builders) > 0 {
		return Emit{}, a.fail(DanglingBuilder, e.Type(), "")
	}
	threadID, runID := e.ThreadID, e.RunID
	if threadID == "" {
		threadID = a.threadID
	}
	if runID == "" {
		runID = a.runID
	}
	a.terminal = true

	// Explicit outcome wins; with outcome absent an attached interrupt means
	// terminal-interrupt, anything else terminal-success.
	interrupted := e.Outcome == protocol.OutcomeInterrupt || (e.Outcome == "" && e.Interrupt != nil)
	if interrupted {
		a.interrupt = e.Interrupt
		return Emit{Signal: &RunSignal{
			Phase:       PhaseInterrupted,
			ThreadID:    threadID,
			RunID:       runID,
			ParentRunID: a.parentRunID,
			Interrupt:   e.Interrupt,
		}}, nil
	}
	return Emit{Signal: &RunSignal{
		Phase:       PhaseFinished,
		ThreadID:    threadID,
		RunID:       runID,
		ParentRunID: a.parentRunID,
		Result:      e.Result,
	}}, nil
}

func (a *Aggregator) reasoningChunk(e protocol.ReasoningMessageChunkEvent) (Emit, error) {
	id := e.MessageID
	if id == "" {
		id = a.lastChunkID
	}
	b, ok := a.builders[id]
	if !ok {
		// First occurrence opens the block; the opening chunk must name the
		// reasoning block and carry content.
		if e.MessageID == "" || e.Delta == "" {
			return Emit{}, a.fail(NoOpenBuilder, e.Type(), e.MessageID)
		}
		b = &builder{kind: kindReasoning, id: e.MessageID, viaChunk: true, msgOpen: true}
		if err := a.open(b, e.Type()); err != nil {
			return Emit{}, err
		}
		a.lastChunkID = e.MessageID
		if !b.append(e.Delta, a.opts.maxBufferedBytes) {
			return Emit{}, a.fail(BufferExceeded, e.Type(), e.MessageID)
		}
		return Emit{}, nil
	}
	if b.kind != kindReasoning || !b.viaChunk {
		// Mixing the chunk form with explicit bracketing for one id is
		// undefined upstream; rejecting keeps the two forms unambiguous.
		return Emit{}, a.fail(KindMismatch, e.Type(), id)
	}
	if e.Delta == "" {
		return a.closeReasoning(b), nil
	}
	if !b.append(e.Delta, a.opts.maxBufferedBytes) {
		return Emit{}, a.fail(BufferExceeded, e.Type(), id)
	}
	return Emit{}, nil
}

func (a *Aggregator) closeReasoning(b *builder) Emit {
	delete(a.builders, b.id)
	if a.lastChunkID == b.id {
		a.lastChunkID = ""
	}
	return Emit{Items: []content.Item{content.Reasoning{
		MessageID:        b.id,
		Role:             b.role,
		Text:             b.buf.String(),
		EncryptedContent: b.encrypted,
	}}}
}

// reasoning resolves the open reasoning builder for id, rejecting wrong
// kinds and chunk-opened builders (explicit bracketing and the chunk form
// never mix for one id).
func (a *Aggregator) reasoning(id string, et protocol.EventType) (*builder, error) {
	b, ok := a.builders[id]
	if !ok {
		return nil, a.fail(NoOpenBuilder, et, id)
	}
	if b.kind != kindReasoning || b.viaChunk {
		return nil, a.fail(KindMismatch, et, id)
	}
	return b, nil
}

func (a *Aggregator) open(b *builder, et protocol.EventType) error {
	if _, ok := a.builders[b.id]; ok {
		return a.fail(DuplicateOpenBuilder, et, b.id)
	}
	a.builders[b.id] = b
	return nil
}

func (a *Aggregator) appendTo(kind builderKind, id, delta string, et protocol.EventType) error {
	b, ok := a.builders[id]
	if !ok {
		return a.fail(NoOpenBuilder, et, id)
	}
	if b.kind != kind {
		return a.fail(KindMismatch, et, id)
	}
	if !b.append(delta, a.opts.maxBufferedBytes) {
		return a.fail(BufferExceeded, et, id)
	}
	return nil
}

func (a *Aggregator) close(kind builderKind, id string, et protocol.EventType) (*builder, error) {
	b, ok := a.builders[id]
	if !ok {
		return nil, a.fail(NoOpenBuilder, et, id)
	}
	if b.kind != kind {
		return nil, a.fail(KindMismatch, et, id)
	}
	delete(a.builders, id)
	return b, nil
}

// fail builds a sequence error and poisons the current run.
func (a *Aggregator) fail(kind SequenceErrorKind, et protocol.EventType, entityID string) error {
	a.aborted = true
	return a.seqErr(kind, et, entityID)
}

func (a *Aggregator) seqErr(kind SequenceErrorKind, et protocol.EventType, entityID string) error {
	return &SequenceError{Kind: kind, RunID: a.runID, EntityID: entityID, EventType: et}
}
