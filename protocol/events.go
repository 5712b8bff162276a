// Package protocol defines the wire event and message model for the agent
// interaction protocol: a closed, discriminated set of events describing the
// lifecycle of an agent run (start/finish/error, streaming text, streaming
// tool calls, state snapshots and deltas, step and activity markers,
// reasoning traces, human-in-the-loop interrupts) together with the message
// and run-input containers that appear nested inside events.
//
// Events are immutable, transient wire values: created at emission time,
// consumed once by the aggregator, never mutated. Every event carries a
// string discriminator under the "type" JSON key; messages are discriminated
// by "role". The polymorphic codec lives in event_json.go and
// message_json.go.
package protocol

import "encoding/json"

// EventType identifies a concrete event variant on the wire. The string
// constants are fixed protocol identifiers; changing them breaks every
// deployed consumer.
type EventType string

const (
	// EventTypeRunStarted brackets the beginning of a run.
	EventTypeRunStarted EventType = "RUN_STARTED"
	// EventTypeRunFinished brackets the end of a run, either successfully or
	// with a pending interrupt.
	EventTypeRunFinished EventType = "RUN_FINISHED"
	// EventTypeRunError terminates a run with an agent-reported failure.
	EventTypeRunError EventType = "RUN_ERROR"

	// EventTypeTextMessageStart opens a streaming text message.
	EventTypeTextMessageStart EventType = "TEXT_MESSAGE_START"
	// EventTypeTextMessageContent appends a delta to an open text message.
	EventTypeTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"
	// EventTypeTextMessageEnd closes a streaming text message.
	EventTypeTextMessageEnd EventType = "TEXT_MESSAGE_END"

	// EventTypeToolCallStart opens a streaming tool call.
	EventTypeToolCallStart EventType = "TOOL_CALL_START"
	// EventTypeToolCallArgs appends an argument fragment to an open tool call.
	EventTypeToolCallArgs EventType = "TOOL_CALL_ARGS"
	// EventTypeToolCallEnd closes a streaming tool call.
	EventTypeToolCallEnd EventType = "TOOL_CALL_END"
	// EventTypeToolCallResult reports the result of a completed tool call.
	// Unlike the start/args/end trio it is self-contained.
	EventTypeToolCallResult EventType = "TOOL_CALL_RESULT"

	// EventTypeStateSnapshot replaces the shared state wholesale.
	EventTypeStateSnapshot EventType = "STATE_SNAPSHOT"
	// EventTypeStateDelta patches the last known state snapshot.
	EventTypeStateDelta EventType = "STATE_DELTA"

	// EventTypeStepStarted marks the beginning of a named step within a run.
	EventTypeStepStarted EventType = "STEP_STARTED"
	// EventTypeStepFinished marks the completion of a named step.
	EventTypeStepFinished EventType = "STEP_FINISHED"
	// EventTypeActivitySnapshot reports the full state of a long-lived activity.
	EventTypeActivitySnapshot EventType = "ACTIVITY_SNAPSHOT"
	// EventTypeActivityDelta patches the state of a long-lived activity.
	EventTypeActivityDelta EventType = "ACTIVITY_DELTA"

	// EventTypeReasoningStart opens a reasoning block.
	EventTypeReasoningStart EventType = "REASONING_START"
	// EventTypeReasoningMessageStart opens the message inside a reasoning block.
	EventTypeReasoningMessageStart EventType = "REASONING_MESSAGE_START"
	// EventTypeReasoningMessageContent appends a delta to an open reasoning
	// message. The delta must be non-empty.
	EventTypeReasoningMessageContent EventType = "REASONING_MESSAGE_CONTENT"
	// EventTypeReasoningMessageEnd closes the message inside a reasoning block.
	EventTypeReasoningMessageEnd EventType = "REASONING_MESSAGE_END"
	// EventTypeReasoningEnd closes a reasoning block.
	EventTypeReasoningEnd EventType = "REASONING_END"
	// EventTypeReasoningMessageChunk is the auto-bracketing convenience form of
	// the reasoning quintet: the first chunk opens the block, a delta-less
	// chunk (or an explicit REASONING_END) closes it.
	EventTypeReasoningMessageChunk EventType = "REASONING_MESSAGE_CHUNK"

	// EventTypeMessagesSnapshot replaces the visible conversation history.
	EventTypeMessagesSnapshot EventType = "MESSAGES_SNAPSHOT"
	// EventTypeRaw forwards an unmodified upstream event.
	EventTypeRaw EventType = "RAW"
	// EventTypeCustom carries an application-defined payload.
	EventTypeCustom EventType = "CUSTOM"
)

// Outcome reports how a run finished.
type Outcome string

const (
	// OutcomeSuccess indicates the run completed normally.
	OutcomeSuccess Outcome = "success"
	// OutcomeInterrupt indicates the run stopped awaiting human input and
	// expects a later resume correlated by interrupt id.
	OutcomeInterrupt Outcome = "interrupt"
)

type (
	// Event is the closed union of wire event variants. Concrete types are the
	// *Event structs in this package; the codec never produces anything else.
	// Consumers dispatch on Type() or type-switch over the concrete variants.
	Event interface {
		// Type returns the wire discriminator for the variant.
		Type() EventType

		// validate reports malformed variant payloads after decode. Keeping it
		// on the interface forces every new variant to declare its required
		// fields.
		validate() error
	}

	// RunStartedEvent brackets the beginning of a run for a thread. ParentRunID,
	// when set, names a previously recorded run in the same thread and makes
	// this run an alternate continuation (branch) from that run's final state.
	RunStartedEvent struct {
		// ThreadID identifies the conversation the run belongs to.
		ThreadID string `json:"threadId"`
		// RunID uniquely identifies this run within the thread.
		RunID string `json:"runId"`
		// ParentRunID optionally names the lineage parent within the thread.
		ParentRunID string `json:"parentRunId,omitempty"`
		// Input optionally echoes the request bundle that started the run.
		Input *RunInput `json:"input,omitempty"`
	}

	// RunFinishedEvent brackets the end of a run. When Outcome is
	// OutcomeInterrupt (or Outcome is absent and Interrupt is set) the run is
	// paused awaiting a correlated resume rather than complete.
	RunFinishedEvent struct {
		// ThreadID identifies the conversation the run belongs to.
		ThreadID string `json:"threadId,omitempty"`
		// RunID identifies the finishing run.
		RunID string `json:"runId,omitempty"`
		// Outcome reports how the run finished. Absent outcome is inferred:
		// interrupt when Interrupt is set, success otherwise.
		Outcome Outcome `json:"outcome,omitempty"`
		// Result optionally carries the run's final result value.
		Result json.RawMessage `json:"result,omitempty"`
		// Interrupt carries the pending interrupt when the run paused for
		// human input.
		Interrupt *Interrupt `json:"interrupt,omitempty"`
	}

	// RunErrorEvent terminates a run with an agent-reported failure. It is a
	// valid, successfully decoded event: the run ends but the consumer is free
	// to start a new one.
	RunErrorEvent struct {
		// Message is the human-readable failure description.
		Message string `json:"message"`
		// Code optionally classifies the failure.
		Code string `json:"code,omitempty"`
	}

	// TextMessageStartEvent opens a streaming text message identified by
	// MessageID. Between this event and the matching end, zero or more content
	// events append deltas to the message.
	TextMessageStartEvent struct {
		// MessageID identifies the message being streamed. Unique within the
		// run; may be reused across runs.
		MessageID string `json:"messageId"`
		// Role is the conversational role the finished message will carry,
		// typically "assistant".
		Role string `json:"role"`
	}

	// TextMessageContentEvent appends a text fragment to the open message
	// identified by MessageID. Fragments concatenate in arrival order.
	TextMessageContentEvent struct {
		// MessageID references the open message.
		MessageID string `json:"messageId"`
		// Delta is the incremental text fragment.
		Delta string `json:"delta"`
	}

	// TextMessageEndEvent closes the open message identified by MessageID.
	TextMessageEndEvent struct {
		// MessageID references the open message.
		MessageID string `json:"messageId"`
	}

	// ToolCallStartEvent opens a streaming tool call. The tool name is only
	// carried here; subsequent args events reference the call by id alone.
	ToolCallStartEvent struct {
		// ToolCallID identifies the tool call being streamed.
		ToolCallID string `json:"toolCallId"`
		// ToolCallName is the name of the tool being invoked.
		ToolCallName string `json:"toolCallName"`
		// ParentMessageID optionally links the call to the assistant message
		// that requested it.
		ParentMessageID string `json:"parentMessageId,omitempty"`
	}

	// ToolCallArgsEvent appends an argument fragment to the open tool call.
	// Fragments concatenate into a JSON document; individual fragments need
	// not be valid JSON on their own.
	ToolCallArgsEvent struct {
		// ToolCallID references the open tool call.
		ToolCallID string `json:"toolCallId"`
		// Delta is the incremental argument fragment.
		Delta string `json:"delta"`
	}

	// ToolCallEndEvent closes the open tool call identified by ToolCallID.
	ToolCallEndEvent struct {
		// ToolCallID references the open tool call.
		ToolCallID string `json:"toolCallId"`
	}

	// ToolCallResultEvent reports the result of a completed tool call. It is
	// self-contained: no bracketing events surround it.
	ToolCallResultEvent struct {
		// ToolCallID identifies the tool call the result belongs to.
		ToolCallID string `json:"toolCallId"`
		// Result is the tool output. It is interpreted leniently: consumers
		// attempt a JSON parse and fall back to the raw string.
		Result string `json:"result"`
		// MessageID optionally identifies the tool message materialized from
		// this result.
		MessageID string `json:"messageId,omitempty"`
		// Role optionally overrides the role of the materialized message.
		Role string `json:"role,omitempty"`
	}

	// StateSnapshotEvent replaces the shared run state wholesale.
	StateSnapshotEvent struct {
		// Snapshot is the full replacement state.
		Snapshot json.RawMessage `json:"snapshot,omitempty"`
	}

	// StateDeltaEvent patches the last known state snapshot. The delta is a
	// JSON-patch-like operation list; applying it is the consumer's
	// responsibility, the translator only guarantees ordering relative to the
	// snapshot it patches.
	StateDeltaEvent struct {
		// Delta is the patch operation list.
		Delta json.RawMessage `json:"delta,omitempty"`
	}

	// StepStartedEvent marks the beginning of a named step within a run.
	StepStartedEvent struct {
		// StepID identifies the step.
		StepID string `json:"stepId"`
		// StepName is the human-readable step name.
		StepName string `json:"stepName"`
		// ParentStepID optionally nests the step under another step.
		ParentStepID string `json:"parentStepId,omitempty"`
	}

	// StepFinishedEvent marks the completion of a named step.
	StepFinishedEvent struct {
		// StepID identifies the step.
		StepID string `json:"stepId"`
		// StepName is the human-readable step name.
		StepName string `json:"stepName"`
		// Status reports the terminal step status (for example "completed").
		Status string `json:"status"`
		// Result optionally carries the step's output.
		Result json.RawMessage `json:"result,omitempty"`
	}

	// ActivitySnapshotEvent reports the full state of a long-lived activity.
	ActivitySnapshotEvent struct {
		// ActivityID identifies the activity.
		ActivityID string `json:"activityId"`
		// ActivityType classifies the activity.
		ActivityType string `json:"activityType"`
		// State is the full activity state.
		State json.RawMessage `json:"state"`
		// Metadata optionally carries activity metadata.
		Metadata json.RawMessage `json:"metadata,omitempty"`
	}

	// ActivityDeltaEvent patches the state of a long-lived activity.
	ActivityDeltaEvent struct {
		// ActivityID identifies the activity.
		ActivityID string `json:"activityId"`
		// Delta is the patch applied against the last activity snapshot.
		Delta json.RawMessage `json:"delta"`
	}

	// ReasoningStartEvent opens a reasoning block identified by MessageID.
	ReasoningStartEvent struct {
		// MessageID identifies the reasoning block.
		MessageID string `json:"messageId"`
		// EncryptedContent optionally carries provider-encrypted reasoning
		// content that accompanies the visible trace.
		EncryptedContent string `json:"encryptedContent,omitempty"`
	}

	// ReasoningMessageStartEvent opens the message inside an open reasoning
	// block.
	ReasoningMessageStartEvent struct {
		// MessageID references the open reasoning block.
		MessageID string `json:"messageId"`
		// Role is the conversational role of the reasoning message.
		Role string `json:"role"`
	}

	// ReasoningMessageContentEvent appends a reasoning fragment. Delta must be
	// non-empty; the codec rejects empty deltas at decode time and emitters
	// skip them.
	ReasoningMessageContentEvent struct {
		// MessageID references the open reasoning block.
		MessageID string `json:"messageId"`
		// Delta is the incremental reasoning fragment. Never empty.
		Delta string `json:"delta"`
	}

	// ReasoningMessageEndEvent closes the message inside an open reasoning
	// block.
	ReasoningMessageEndEvent struct {
		// MessageID references the open reasoning block.
		MessageID string `json:"messageId"`
	}

	// ReasoningEndEvent closes an open reasoning block.
	ReasoningEndEvent struct {
		// MessageID references the open reasoning block.
		MessageID string `json:"messageId"`
	}

	// ReasoningMessageChunkEvent is the non-bracketed convenience form of a
	// reasoning trace. The first chunk for an id opens the block (MessageID
	// required then); a chunk without a delta closes it. Mixing chunks with
	// explicit bracketing events for the same id is rejected by the
	// aggregator.
	ReasoningMessageChunkEvent struct {
		// MessageID identifies the reasoning block. Required on the opening
		// chunk.
		MessageID string `json:"messageId,omitempty"`
		// Delta is the incremental reasoning fragment. An absent delta closes
		// the block.
		Delta string `json:"delta,omitempty"`
	}

	// MessagesSnapshotEvent replaces the visible conversation history with the
	// given messages.
	MessagesSnapshotEvent struct {
		// Messages is the full replacement history.
		Messages []Message `json:"messages"`
	}

	// RawEvent forwards an event from an upstream system without
	// interpretation.
	RawEvent struct {
		// Source names the upstream system the event originated from.
		Source string `json:"source"`
		// Event is the unmodified upstream payload.
		Event json.RawMessage `json:"event"`
	}

	// CustomEvent carries an application-defined payload past the protocol
	// without interpretation.
	CustomEvent struct {
		// Name identifies the application-defined event kind.
		Name string `json:"name"`
		// Value is the application-defined payload.
		Value json.RawMessage `json:"value"`
	}
)

// Type implements Event.
func (RunStartedEvent) Type() EventType { return EventTypeRunStarted }

// Type implements Event.
func (RunFinishedEvent) Type() EventType { return EventTypeRunFinished }

// Type implements Event.
func (RunErrorEvent) Type() EventType { return EventTypeRunError }

// Type implements Event.
func (TextMessageStartEvent) Type() EventType { return EventTypeTextMessageStart }

// Type implements Event.
func (TextMessageContentEvent) Type() EventType { return EventTypeTextMessageContent }

// Type implements Event.
func (TextMessageEndEvent) Type() EventType { return EventTypeTextMessageEnd }

// Type implements Event.
func (ToolCallStartEvent) Type() EventType { return EventTypeToolCallStart }

// Type implements Event.
func (ToolCallArgsEvent) Type() EventType { return EventTypeToolCallArgs }

// Type implements Event.
func (ToolCallEndEvent) Type() EventType { return EventTypeToolCallEnd }

// Type implements Event.
func (ToolCallResultEvent) Type() EventType { return EventTypeToolCallResult }

// Type implements Event.
func (StateSnapshotEvent) Type() EventType { return EventTypeStateSnapshot }

// Type implements Event.
func (StateDeltaEvent) Type() EventType { return EventTypeStateDelta }

// Type implements Event.
func (StepStartedEvent) Type() EventType { return EventTypeStepStarted }

// Type implements Event.
func (StepFinishedEvent) Type() EventType { return EventTypeStepFinished }

// Type implements Event.
func (ActivitySnapshotEvent) Type() EventType { return EventTypeActivitySnapshot }

// Type implements Event.
func (ActivityDeltaEvent) Type() EventType { return EventTypeActivityDelta }

// Type implements Event.
func (ReasoningStartEvent) Type() EventType { return EventTypeReasoningStart }

// Type implements Event.
func (ReasoningMessageStartEvent) Type() EventType { return EventTypeReasoningMessageStart }

// Type implements Event.
func (ReasoningMessageContentEvent) Type() EventType { return EventTypeReasoningMessageContent }

// Type implements Event.
func (ReasoningMessageEndEvent) Type() EventType { return EventTypeReasoningMessageEnd }

// Type implements Event.
func (ReasoningEndEvent) Type() EventType { return EventTypeReasoningEnd }

// Type implements Event.
func (ReasoningMessageChunkEvent) Type() EventType { return EventTypeReasoningMessageChunk }

// Type implements Event.
func (MessagesSnapshotEvent) Type() EventType { return EventTypeMessagesSnapshot }

// Type implements Event.
func (RawEvent) Type() EventType { return EventTypeRaw }

// Type implements Event.
func (CustomEvent) Type() EventType { return EventTypeCustom }
