// Package emitter implements the encoding half of the streaming translator:
// it turns a completed turn of aggregated content items into the correctly
// ordered wire event sequence, minting fresh ids where the producer did not
// assign any. The emitter is the inverse of the aggregator: feeding its
// output to a fresh aggregator reproduces the input items.
package emitter

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"goa.design/agui/content"
	"goa.design/agui/protocol"
)

type (
	// Lifecycle identifies the run a turn belongs to and carries the optional
	// request echo for RUN_STARTED.
	Lifecycle struct {
		// ThreadID identifies the conversation.
		ThreadID string
		// RunID identifies the run.
		RunID string
		// ParentRunID optionally names the lineage parent, making the run a
		// branch.
		ParentRunID string
		// Input optionally echoes the request bundle on RUN_STARTED.
		Input *protocol.RunInput
	}

	// Option configures an Emitter.
	Option func(*Emitter)

	// Emitter encodes aggregated content into wire event sequences. Safe for
	// concurrent use as long as the configured id generator is.
	Emitter struct {
		chunkSize int
		newID     func() string
	}
)

// WithChunkSize sets the maximum delta size in bytes for streamed content
// fragments. Zero or negative emits each delta as a single fragment.
func WithChunkSize(n int) Option {
	return func(e *Emitter) { e.chunkSize = n }
}

// WithNewID overrides the id generator used when an item carries no id.
// Defaults to uuid.NewString. Tests inject deterministic generators here.
func WithNewID(f func() string) Option {
	return func(e *Emitter) { e.newID = f }
}

// New constructs an Emitter.
func New(opts ...Option) *Emitter {
	e := &Emitter{newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit encodes one run turn: RUN_STARTED first, then the events for each
// item in order, then exactly one terminal event. An ApprovalRequest or
// UserInputRequest item terminates the run with an interrupt outcome and no
// items may follow it; a content.Error item terminates the run with
// RUN_ERROR under the same rule. Otherwise the turn closes with a
// terminal-success RUN_FINISHED.
func (e *Emitter) Emit(lc Lifecycle, turn []content.Item) ([]protocol.Event, error) {
	if lc.ThreadID == "" || lc.RunID == "" {
		return nil, fmt.Errorf("emit: thread id and run id are required")
	}
	events := []protocol.Event{protocol.RunStartedEvent{
		ThreadID:    lc.ThreadID,
		RunID:       lc.RunID,
		ParentRunID: lc.ParentRunID,
		Input:       lc.Input,
	}}
	for i, item := range turn {
		terminal := false
		switch it := item.(type) {
		case content.Text:
			events = e.appendText(events, it)
		case content.Reasoning:
			events = e.appendReasoning(events, it)
		case content.ToolCall:
			events = e.appendToolCall(events, it)
		case content.ToolResult:
			events = append(events, protocol.ToolCallResultEvent{
				ToolCallID: it.ID,
				Result:     it.Value.Text,
				MessageID:  it.MessageID,
				Role:       it.Role,
			})
		case content.StateSnapshot:
			events = append(events, protocol.StateSnapshotEvent{Snapshot: it.Snapshot})
		case content.StateDelta:
			events = append(events, protocol.StateDeltaEvent{Delta: it.Delta})
		case content.StepStarted:
			events = append(events, protocol.StepStartedEvent{
				StepID:       e.orMint(it.StepID),
				StepName:     it.StepName,
				ParentStepID: it.ParentStepID,
			})
		case content.StepFinished:
			events = append(events, protocol.StepFinishedEvent{
				StepID:   e.orMint(it.StepID),
				StepName: it.StepName,
				Status:   it.Status,
				Result:   it.Result,
			})
		case content.ActivitySnapshot:
			events = append(events, protocol.ActivitySnapshotEvent{
				ActivityID:   it.ActivityID,
				ActivityType: it.ActivityType,
				State:        it.State,
				Metadata:     it.Metadata,
			})
		case content.ActivityDelta:
			events = append(events, protocol.ActivityDeltaEvent{
				ActivityID: it.ActivityID,
				Delta:      it.Delta,
			})
		case content.MessagesSnapshot:
			events = append(events, protocol.MessagesSnapshotEvent{Messages: it.Messages})
		case content.Raw:
			events = append(events, protocol.RawEvent{Source: it.Source, Event: it.Event})
		case content.Custom:
			events = append(events, protocol.CustomEvent{Name: it.Name, Value: it.Value})
		case content.ApprovalRequest:
			intr, err := e.approvalInterrupt(it)
			if err != nil {
				return nil, err
			}
			events = append(events, protocol.RunFinishedEvent{
				ThreadID:  lc.ThreadID,
				RunID:     lc.RunID,
				Outcome:   protocol.OutcomeInterrupt,
				Interrupt: intr,
			})
			terminal = true
		case content.UserInputRequest:
			events = append(events, protocol.RunFinishedEvent{
				ThreadID: lc.ThreadID,
				RunID:    lc.RunID,
				Outcome:  protocol.OutcomeInterrupt,
				Interrupt: &protocol.Interrupt{
					ID:      e.orMint(it.ID),
					Payload: it.Payload,
				},
			})
			terminal = true
		case content.Error:
			events = append(events, protocol.RunErrorEvent{Message: it.Message, Code: it.Code})
			terminal = true
		default:
			return nil, fmt.Errorf("emit: item %d: kind %q cannot be encoded", i, item.Kind())
		}
		if terminal {
			if i != len(turn)-1 {
				return nil, fmt.Errorf("emit: item %d: %d item(s) follow the terminal %q item", i, len(turn)-1-i, item.Kind())
			}
			return events, nil
		}
	}
	events = append(events, protocol.RunFinishedEvent{
		ThreadID: lc.ThreadID,
		RunID:    lc.RunID,
		Outcome:  protocol.OutcomeSuccess,
	})
	return events, nil
}

func (e *Emitter) appendText(events []protocol.Event, it content.Text) []protocol.Event {
	id := e.orMint(it.MessageID)
	role := it.Role
	if role == "" {
		role = string(protocol.RoleAssistant)
	}
	events = append(events, protocol.TextMessageStartEvent{MessageID: id, Role: role})
	for _, delta := range e.chunks(it.Text) {
		events = append(events, protocol.TextMessageContentEvent{MessageID: id, Delta: delta})
	}
	return append(events, protocol.TextMessageEndEvent{MessageID: id})
}

func (e *Emitter) appendReasoning(events []protocol.Event, it content.Reasoning) []protocol.Event {
	id := e.orMint(it.MessageID)
	role := it.Role
	if role == "" {
		role = string(protocol.RoleAssistant)
	}
	events = append(events, protocol.ReasoningStartEvent{MessageID: id, EncryptedContent: it.EncryptedContent})
	events = append(events, protocol.ReasoningMessageStartEvent{MessageID: id, Role: role})
	for _, delta := range e.chunks(it.Text) {
		// Empty reasoning deltas are invalid on the wire; an all-empty trace
		// emits the brackets with no content events.
		if delta == "" {
			continue
		}
		events = append(events, protocol.ReasoningMessageContentEvent{MessageID: id, Delta: delta})
	}
	events = append(events, protocol.ReasoningMessageEndEvent{MessageID: id})
	return append(events, protocol.ReasoningEndEvent{MessageID: id})
}

func (e *Emitter) appendToolCall(events []protocol.Event, it content.ToolCall) []protocol.Event {
	id := e.orMint(it.ID)
	events = append(events, protocol.ToolCallStartEvent{
		ToolCallID:      id,
		ToolCallName:    it.Name,
		ParentMessageID: it.ParentMessageID,
	})
	for _, delta := range e.chunks(string(it.Arguments)) {
		if delta == "" {
			continue
		}
		events = append(events, protocol.ToolCallArgsEvent{ToolCallID: id, Delta: delta})
	}
	return append(events, protocol.ToolCallEndEvent{ToolCallID: id})
}

// approvalInterrupt shapes a tool approval request into the interrupt
// payload resumes correlate against.
func (e *Emitter) approvalInterrupt(it content.ApprovalRequest) (*protocol.Interrupt, error) {
	payload, err := json.Marshal(struct {
		FunctionName      string          `json:"functionName"`
		FunctionArguments json.RawMessage `json:"functionArguments,omitempty"`
	}{
		FunctionName:      it.FunctionName,
		FunctionArguments: it.FunctionArguments,
	})
	if err != nil {
		return nil, fmt.Errorf("emit: encode approval payload: %w", err)
	}
	return &protocol.Interrupt{ID: e.orMint(it.ID), Payload: payload}, nil
}

func (e *Emitter) orMint(id string) string {
	if id != "" {
		return id
	}
	return e.newID()
}

// chunks splits s into fragments of at most chunkSize bytes. An empty string
// yields no fragments.
func (e *Emitter) chunks(s string) []string {
	if s == "" {
		return nil
	}
	if e.chunkSize <= 0 || len(s) <= e.chunkSize {
		return []string{s}
	}
	var out []string
	for len(s) > e.chunkSize {
		out = append(out, s[:e.chunkSize])
		s = s[e.chunkSize:]
	}
	return append(out, s)
}
