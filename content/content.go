// Package content defines the generic aggregated content union exchanged at
// the boundary between the streaming translator and the external message
// model. The aggregator emits these items after closing streaming builders;
// the emitter consumes them to produce a correctly ordered event sequence.
// Any concrete SDK's richer type system is mapped to or from this union
// outside the translator core.
package content

import (
	"encoding/json"

	"goa.design/agui/protocol"
)

// Kind identifies a content item variant.
type Kind string

const (
	// KindText is a completed assistant (or other role) text message.
	KindText Kind = "text"
	// KindReasoning is a completed reasoning trace.
	KindReasoning Kind = "reasoning"
	// KindToolCall is a completed tool invocation request with parsed
	// arguments.
	KindToolCall Kind = "tool_call"
	// KindToolResult is a tool execution result.
	KindToolResult Kind = "tool_result"
	// KindStateSnapshot is a full shared-state replacement.
	KindStateSnapshot Kind = "state_snapshot"
	// KindStateDelta is a patch against the last shared-state snapshot.
	KindStateDelta Kind = "state_delta"
	// KindStepStarted marks the beginning of a named step.
	KindStepStarted Kind = "step_started"
	// KindStepFinished marks the completion of a named step.
	KindStepFinished Kind = "step_finished"
	// KindActivitySnapshot is a full activity-state report.
	KindActivitySnapshot Kind = "activity_snapshot"
	// KindActivityDelta is a patch against the last activity snapshot.
	KindActivityDelta Kind = "activity_delta"
	// KindMessagesSnapshot is a full conversation-history replacement.
	KindMessagesSnapshot Kind = "messages_snapshot"
	// KindRaw is an uninterpreted upstream event.
	KindRaw Kind = "raw"
	// KindCustom is an application-defined payload.
	KindCustom Kind = "custom"
	// KindApprovalRequest asks a human to approve a pending tool call. The
	// emitter translates it into an interrupt, not ordinary content.
	KindApprovalRequest Kind = "approval_request"
	// KindApprovalResponse carries the human approval decision back in.
	KindApprovalResponse Kind = "approval_response"
	// KindUserInputRequest asks a human for free-form input. The emitter
	// translates it into an interrupt, not ordinary content.
	KindUserInputRequest Kind = "user_input_request"
	// KindUserInputResponse carries the human-provided input back in.
	KindUserInputResponse Kind = "user_input_response"
	// KindError is an agent-reported run failure.
	KindError Kind = "error"
)

type (
	// Item is the closed union of aggregated content variants.
	Item interface {
		// Kind returns the variant identifier.
		Kind() Kind
	}

	// Text is a completed streamed text message.
	Text struct {
		// MessageID identifies the message the text was streamed under.
		MessageID string
		// Role is the conversational role of the message.
		Role string
		// Text is the full concatenated message text.
		Text string
	}

	// Reasoning is a completed streamed reasoning trace.
	Reasoning struct {
		// MessageID identifies the reasoning block.
		MessageID string
		// Role is the conversational role of the reasoning message, when one
		// was declared.
		Role string
		// Text is the full concatenated reasoning text.
		Text string
		// EncryptedContent carries provider-encrypted reasoning content, when
		// present on the opening event.
		EncryptedContent string
	}

	// ToolCall is a completed streamed tool invocation request.
	ToolCall struct {
		// ID identifies the tool call.
		ID string
		// Name is the tool name captured at stream start.
		Name string
		// ParentMessageID links the call to the assistant message that
		// requested it, when declared.
		ParentMessageID string
		// Arguments is the parsed JSON argument object assembled from the
		// streamed fragments.
		Arguments json.RawMessage
	}

	// ToolResult is a tool execution result.
	ToolResult struct {
		// ID identifies the tool call the result belongs to.
		ID string
		// MessageID identifies the materialized tool message, when declared.
		MessageID string
		// Role overrides the role of the materialized message, when declared.
		Role string
		// Value is the result with lenient string-or-JSON interpretation.
		Value ResultValue
	}

	// ResultValue holds a tool result in both its raw string form and, when
	// the string is valid JSON, its parsed form. Parse failure is a tagged
	// outcome, never an error.
	ResultValue struct {
		// Text is the raw result string, always present.
		Text string
		// JSON is the parsed form, nil when Text is not valid JSON.
		JSON json.RawMessage
	}

	// StateSnapshot is a full shared-state replacement.
	StateSnapshot struct {
		// Snapshot is the replacement state.
		Snapshot json.RawMessage
	}

	// StateDelta is a patch against the last shared-state snapshot. The
	// consumer applies the patch; the translator only guarantees ordering.
	StateDelta struct {
		// Delta is the patch operation list.
		Delta json.RawMessage
		// Base is the last snapshot held by the aggregator when the delta
		// arrived, nil when no snapshot preceded it.
		Base json.RawMessage
	}

	// StepStarted marks the beginning of a named step.
	StepStarted struct {
		// StepID identifies the step.
		StepID string
		// StepName is the human-readable step name.
		StepName string
		// ParentStepID nests the step under another step, when declared.
		ParentStepID string
	}

	// StepFinished marks the completion of a named step.
	StepFinished struct {
		// StepID identifies the step.
		StepID string
		// StepName is the human-readable step name.
		StepName string
		// Status reports the terminal step status.
		Status string
		// Result carries the step output, when any.
		Result json.RawMessage
	}

	// ActivitySnapshot is a full activity-state report.
	ActivitySnapshot struct {
		// ActivityID identifies the activity.
		ActivityID string
		// ActivityType classifies the activity.
		ActivityType string
		// State is the full activity state.
		State json.RawMessage
		// Metadata carries activity metadata, when any.
		Metadata json.RawMessage
	}

	// ActivityDelta is a patch against the last activity snapshot.
	ActivityDelta struct {
		// ActivityID identifies the activity.
		ActivityID string
		// Delta is the patch payload.
		Delta json.RawMessage
	}

	// MessagesSnapshot is a full conversation-history replacement.
	MessagesSnapshot struct {
		// Messages is the replacement history.
		Messages []protocol.Message
	}

	// Raw is an uninterpreted upstream event forwarded through the protocol.
	Raw struct {
		// Source names the upstream system.
		Source string
		// Event is the unmodified upstream payload.
		Event json.RawMessage
	}

	// Custom is an application-defined payload forwarded through the
	// protocol.
	Custom struct {
		// Name identifies the application-defined kind.
		Name string
		// Value is the application-defined payload.
		Value json.RawMessage
	}

	// ApprovalRequest asks a human to approve a pending tool call before the
	// run can continue.
	ApprovalRequest struct {
		// ID correlates the request with the eventual approval response.
		ID string
		// FunctionName is the tool awaiting approval.
		FunctionName string
		// FunctionArguments is the JSON argument object of the pending call.
		FunctionArguments json.RawMessage
	}

	// ApprovalResponse carries the human approval decision for a pending tool
	// call.
	ApprovalResponse struct {
		// ID matches the originating approval request.
		ID string
		// Approved reports the decision.
		Approved bool
	}

	// UserInputRequest asks a human for free-form input before the run can
	// continue.
	UserInputRequest struct {
		// ID correlates the request with the eventual response.
		ID string
		// Payload describes what input is requested, opaque to the protocol.
		Payload json.RawMessage
	}

	// UserInputResponse carries the human-provided input for a pending
	// request.
	UserInputResponse struct {
		// ID matches the originating request.
		ID string
		// Payload is the provided input, opaque to the protocol.
		Payload json.RawMessage
	}

	// Error is an agent-reported run failure surfaced through the external
	// model.
	Error struct {
		// Message is the failure description.
		Message string
		// Code classifies the failure, when known.
		Code string
	}
)

// Kind implements Item.
func (Text) Kind() Kind { return KindText }

// Kind implements Item.
func (Reasoning) Kind() Kind { return KindReasoning }

// Kind implements Item.
func (ToolCall) Kind() Kind { return KindToolCall }

// Kind implements Item.
func (ToolResult) Kind() Kind { return KindToolResult }

// Kind implements Item.
func (StateSnapshot) Kind() Kind { return KindStateSnapshot }

// Kind implements Item.
func (StateDelta) Kind() Kind { return KindStateDelta }

// Kind implements Item.
func (StepStarted) Kind() Kind { return KindStepStarted }

// Kind implements Item.
func (StepFinished) Kind() Kind { return KindStepFinished }

// Kind implements Item.
func (ActivitySnapshot) Kind() Kind { return KindActivitySnapshot }

// Kind implements Item.
func (ActivityDelta) Kind() Kind { return KindActivityDelta }

// Kind implements Item.
func (MessagesSnapshot) Kind() Kind { return KindMessagesSnapshot }

// Kind implements Item.
func (Raw) Kind() Kind { return KindRaw }

// Kind implements Item.
func (Custom) Kind() Kind { return KindCustom }

// Kind implements Item.
func (ApprovalRequest) Kind() Kind { return KindApprovalRequest }

// Kind implements Item.
func (ApprovalResponse) Kind() Kind { return KindApprovalResponse }

// Kind implements Item.
func (UserInputRequest) Kind() Kind { return KindUserInputRequest }

// Kind implements Item.
func (UserInputResponse) Kind() Kind { return KindUserInputResponse }

// Kind implements Item.
func (Error) Kind() Kind { return KindError }

// NewResultValue builds a ResultValue from the raw result string, attempting
// the JSON parse eagerly so consumers can branch on the tagged outcome.
func NewResultValue(raw string) ResultValue {
	v := ResultValue{Text: raw}
	if json.Valid([]byte(raw)) {
		v.JSON = json.RawMessage(raw)
	}
	return v
}

// Parsed reports the parsed JSON form and whether the raw string was valid
// JSON.
func (v ResultValue) Parsed() (json.RawMessage, bool) {
	if v.JSON == nil {
		return nil, false
	}
	return v.JSON, true
}
