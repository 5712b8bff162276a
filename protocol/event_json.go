// Polymorphic event codec. Decoding reads the "type" discriminator first,
// independent of field order, then deserializes the remainder against the
// variant's schema. Encoding injects the discriminator ahead of the variant
// fields. Optional fields with no value are omitted, never emitted as
// explicit null: several deployed consumers reject null for optional fields,
// so omission is a wire-compatibility invariant.

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeEvent decodes a single wire event from its JSON encoding. It returns
// a *DecodeError when the payload carries no discriminator, names an unknown
// variant, or fails the variant's schema.
func DecodeEvent(data []byte) (Event, error) {
	var probe struct {
		Type *EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, decodeErr(MalformedVariant, "", err)
	}
	if probe.Type == nil || *probe.Type == "" {
		return nil, decodeErr(MissingDiscriminator, "", nil)
	}
	switch *probe.Type {
	case EventTypeRunStarted:
		return decodeAs[RunStartedEvent](data)
	case EventTypeRunFinished:
		return decodeAs[RunFinishedEvent](data)
	case EventTypeRunError:
		return decodeAs[RunErrorEvent](data)
	case EventTypeTextMessageStart:
		return decodeAs[TextMessageStartEvent](data)
	case EventTypeTextMessageContent:
		return decodeAs[TextMessageContentEvent](data)
	case EventTypeTextMessageEnd:
		return decodeAs[TextMessageEndEvent](data)
	case EventTypeToolCallStart:
		return decodeAs[ToolCallStartEvent](data)
	case EventTypeToolCallArgs:
		return decodeAs[ToolCallArgsEvent](data)
	case EventTypeToolCallEnd:
		return decodeAs[ToolCallEndEvent](data)
	case EventTypeToolCallResult:
		return decodeAs[ToolCallResultEvent](data)
	case EventTypeStateSnapshot:
		return decodeAs[StateSnapshotEvent](data)
	case EventTypeStateDelta:
		return decodeAs[StateDeltaEvent](data)
	case EventTypeStepStarted:
		return decodeAs[StepStartedEvent](data)
	case EventTypeStepFinished:
		return decodeAs[StepFinishedEvent](data)
	case EventTypeActivitySnapshot:
		return decodeAs[ActivitySnapshotEvent](data)
	case EventTypeActivityDelta:
		return decodeAs[ActivityDeltaEvent](data)
	case EventTypeReasoningStart:
		return decodeAs[ReasoningStartEvent](data)
	case EventTypeReasoningMessageStart:
		return decodeAs[ReasoningMessageStartEvent](data)
	case EventTypeReasoningMessageContent:
		return decodeAs[ReasoningMessageContentEvent](data)
	case EventTypeReasoningMessageEnd:
		return decodeAs[ReasoningMessageEndEvent](data)
	case EventTypeReasoningEnd:
		return decodeAs[ReasoningEndEvent](data)
	case EventTypeReasoningMessageChunk:
		return decodeAs[ReasoningMessageChunkEvent](data)
	case EventTypeMessagesSnapshot:
		return decodeAs[MessagesSnapshotEvent](data)
	case EventTypeRaw:
		return decodeAs[RawEvent](data)
	case EventTypeCustom:
		return decodeAs[CustomEvent](data)
	default:
		return nil, decodeErr(UnknownDiscriminator, string(*probe.Type), nil)
	}
}

// EncodeEvent encodes a wire event to JSON with its discriminator injected.
// It is a thin wrapper over json.Marshal provided for symmetry with
// DecodeEvent.
func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeAs[E Event](data []byte) (Event, error) {
	var ev E
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, decodeErr(MalformedVariant, string(ev.Type()), err)
	}
	if err := ev.validate(); err != nil {
		return nil, decodeErr(MalformedVariant, string(ev.Type()), err)
	}
	return ev, nil
}

func (e RunStartedEvent) validate() error {
	if e.ThreadID == "" {
		return errors.New("threadId is required")
	}
	if e.RunID == "" {
		return errors.New("runId is required")
	}
	return nil
}

func (e RunFinishedEvent) validate() error {
	switch e.Outcome {
	case "", OutcomeSuccess, OutcomeInterrupt:
		return nil
	default:
		return fmt.Errorf("unknown outcome %q", e.Outcome)
	}
}

func (e RunErrorEvent) validate() error {
	if e.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

func (e TextMessageStartEvent) validate() error {
	if e.MessageID == "" {
		return errors.New("messageId is required")
	}
	if e.Role == "" {
		return errors.New("role is required")
	}
	return nil
}

func (e TextMessageContentEvent) validate() error {
	if e.MessageID == "" {
		return errors.New("messageId is required")
	}
	return nil
}

func (e TextMessageEndEvent) validate() error {
	if e.MessageID == "" {
		return errors.New("messageId is required")
	}
	return nil
}

func (e ToolCallStartEvent) validate() error {
	if e.ToolCallID == "" {
		return errors.New("toolCallId is required")
	}
	if e.ToolCallName == "" {
		return errors.New("toolCallName is required")
	}
	return nil
}

func (e ToolCallArgsEvent) validate() error {
	if e.ToolCallID == "" {
		return errors.New("toolCallId is required")
	}
	return nil
}

func (e ToolCallEndEvent) validate() error {
	if e.ToolCallID == "" {
		return errors.New("toolCallId is required")
	}
	return nil
}

func (e ToolCallResultEvent) validate() error {
	if e.ToolCallID == "" {
		return errors.New("toolCallId is required")
	}
	return nil
}

func (StateSnapshotEvent) validate() error { return nil }

func (StateDeltaEvent) validate() error { return nil }

func (e StepStartedEvent) validate() error {
	if e.StepID == "" {
		return errors.New("stepId is required")
	}
	if e.StepName == "" {
		return errors.New("stepName is required")
	}
	return nil
}

func (e StepFinishedEvent) validate() error {
	if e.StepID == "" {
		return errors.New("stepId is required")
	}
	if e.StepName == "" {
		return errors.New("stepName is required")
	}
	if e.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

func (e ActivitySnapshotEvent) validate() error {
	if e.ActivityID == "" {
		return errors.New("activityId is required")
	}
	if e.ActivityType == "" {
		return errors.New("activityType is required")
	}
	if len(e.State) == 0 {
		return errors.New("state is required")
	}
	return nil
}

func (e ActivityDeltaEvent) validate() error {
	if e.ActivityID == "" {
		return errors.New("activityId is required")
	}
	if len(e.Delta) == 0 {
		return errors.New("delta is required")
	}
	return nil
}

func (e ReasoningStartEvent) validate() error {
	if e.MessageID == "" {
		return errors.New("messageId is required")
	}
	return nil
}

func (e ReasoningMessageStartEvent) validate() error {
	if e.MessageID == "" {
		return errors.New("messageId is required")
	}
	if e.Role == "" {
		return errors.New("role is required")
	}
	return nil
}

func (e ReasoningMessageContentEvent) validate() error {
	if e.MessageID == "" {
		return errors.New("messageId is required")
	}
	if e.Delta == "" {
		return errors.New("delta must be non-empty")
	}
	return nil
}

func (e ReasoningMessageEndEvent) validate() error {
	if e.MessageID == "" {
		return errors.New("messageId is required")
	}
	return nil
}

func (e ReasoningEndEvent) validate() error {
	if e.MessageID == "" {
		return errors.New("messageId is required")
	}
	return nil
}

func (ReasoningMessageChunkEvent) validate() error { return nil }

func (MessagesSnapshotEvent) validate() error { return nil }

func (e RawEvent) validate() error {
	if e.Source == "" {
		return errors.New("source is required")
	}
	if len(e.Event) == 0 {
		return errors.New("event is required")
	}
	return nil
}

func (e CustomEvent) validate() error {
	if e.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// MarshalJSON encodes RunStartedEvent with its type discriminator.
func (e RunStartedEvent) MarshalJSON() ([]byte, error) {
	type alias RunStartedEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeRunStarted, alias: alias(e)})
}

// MarshalJSON encodes RunFinishedEvent with its type discriminator.
func (e RunFinishedEvent) MarshalJSON() ([]byte, error) {
	type alias RunFinishedEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeRunFinished, alias: alias(e)})
}

// MarshalJSON encodes RunErrorEvent with its type discriminator.
func (e RunErrorEvent) MarshalJSON() ([]byte, error) {
	type alias RunErrorEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeRunError, alias: alias(e)})
}

// MarshalJSON encodes TextMessageStartEvent with its type discriminator.
func (e TextMessageStartEvent) MarshalJSON() ([]byte, error) {
	type alias TextMessageStartEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeTextMessageStart, alias: alias(e)})
}

// MarshalJSON encodes TextMessageContentEvent with its type discriminator.
func (e TextMessageContentEvent) MarshalJSON() ([]byte, error) {
	type alias TextMessageContentEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeTextMessageContent, alias: alias(e)})
}

// MarshalJSON encodes TextMessageEndEvent with its type discriminator.
func (e TextMessageEndEvent) MarshalJSON() ([]byte, error) {
	type alias TextMessageEndEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeTextMessageEnd, alias: alias(e)})
}

// MarshalJSON encodes ToolCallStartEvent with its type discriminator.
func (e ToolCallStartEvent) MarshalJSON() ([]byte, error) {
	type alias ToolCallStartEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeToolCallStart, alias: alias(e)})
}

// MarshalJSON encodes ToolCallArgsEvent with its type discriminator.
func (e ToolCallArgsEvent) MarshalJSON() ([]byte, error) {
	type alias ToolCallArgsEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeToolCallArgs, alias: alias(e)})
}

// MarshalJSON encodes ToolCallEndEvent with its type discriminator.
func (e ToolCallEndEvent) MarshalJSON() ([]byte, error) {
	type alias ToolCallEndEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeToolCallEnd, alias: alias(e)})
}

// MarshalJSON encodes ToolCallResultEvent with its type discriminator.
func (e ToolCallResultEvent) MarshalJSON() ([]byte, error) {
	type alias ToolCallResultEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeToolCallResult, alias: alias(e)})
}

// MarshalJSON encodes StateSnapshotEvent with its type discriminator.
func (e StateSnapshotEvent) MarshalJSON() ([]byte, error) {
	type alias StateSnapshotEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeStateSnapshot, alias: alias(e)})
}

// MarshalJSON encodes StateDeltaEvent with its type discriminator.
func (e StateDeltaEvent) MarshalJSON() ([]byte, error) {
	type alias StateDeltaEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeStateDelta, alias: alias(e)})
}

// MarshalJSON encodes StepStartedEvent with its type discriminator.
func (e StepStartedEvent) MarshalJSON() ([]byte, error) {
	type alias StepStartedEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeStepStarted, alias: alias(e)})
}

// MarshalJSON encodes StepFinishedEvent with its type discriminator.
func (e StepFinishedEvent) MarshalJSON() ([]byte, error) {
	type alias StepFinishedEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeStepFinished, alias: alias(e)})
}

// MarshalJSON encodes ActivitySnapshotEvent with its type discriminator.
func (e ActivitySnapshotEvent) MarshalJSON() ([]byte, error) {
	type alias ActivitySnapshotEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeActivitySnapshot, alias: alias(e)})
}

// MarshalJSON encodes ActivityDeltaEvent with its type discriminator.
func (e ActivityDeltaEvent) MarshalJSON() ([]byte, error) {
	type alias ActivityDeltaEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeActivityDelta, alias: alias(e)})
}

// MarshalJSON encodes ReasoningStartEvent with its type discriminator.
func (e ReasoningStartEvent) MarshalJSON() ([]byte, error) {
	type alias ReasoningStartEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeReasoningStart, alias: alias(e)})
}

// MarshalJSON encodes ReasoningMessageStartEvent with its type discriminator.
func (e ReasoningMessageStartEvent) MarshalJSON() ([]byte, error) {
	type alias ReasoningMessageStartEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeReasoningMessageStart, alias: alias(e)})
}

// MarshalJSON encodes ReasoningMessageContentEvent with its type discriminator.
func (e ReasoningMessageContentEvent) MarshalJSON() ([]byte, error) {
	type alias ReasoningMessageContentEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeReasoningMessageContent, alias: alias(e)})
}

// MarshalJSON encodes ReasoningMessageEndEvent with its type discriminator.
func (e ReasoningMessageEndEvent) MarshalJSON() ([]byte, error) {
	type alias ReasoningMessageEndEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeReasoningMessageEnd, alias: alias(e)})
}

// MarshalJSON encodes ReasoningEndEvent with its type discriminator.
func (e ReasoningEndEvent) MarshalJSON() ([]byte, error) {
	type alias ReasoningEndEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeReasoningEnd, alias: alias(e)})
}

// MarshalJSON encodes ReasoningMessageChunkEvent with its type discriminator.
func (e ReasoningMessageChunkEvent) MarshalJSON() ([]byte, error) {
	type alias ReasoningMessageChunkEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeReasoningMessageChunk, alias: alias(e)})
}

// MarshalJSON encodes MessagesSnapshotEvent with its type discriminator. A
// nil message list encodes as an empty array: the messages field is required
// on the wire.
func (e MessagesSnapshotEvent) MarshalJSON() ([]byte, error) {
	msgs := e.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(struct {
		Type     EventType `json:"type"`
		Messages []Message `json:"messages"`
	}{Type: EventTypeMessagesSnapshot, Messages: msgs})
}

// UnmarshalJSON decodes MessagesSnapshotEvent, materializing the concrete
// message variants from their role discriminators.
func (e *MessagesSnapshotEvent) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	e.Messages = make([]Message, 0, len(tmp.Messages))
	for i, raw := range tmp.Messages {
		msg, err := DecodeMessage(raw)
		if err != nil {
			return fmt.Errorf("decode messages[%d]: %w", i, err)
		}
		e.Messages = append(e.Messages, msg)
	}
	return nil
}

// MarshalJSON encodes RawEvent with its type discriminator.
func (e RawEvent) MarshalJSON() ([]byte, error) {
	type alias RawEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeRaw, alias: alias(e)})
}

// MarshalJSON encodes CustomEvent with its type discriminator.
func (e CustomEvent) MarshalJSON() ([]byte, error) {
	type alias CustomEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{Type: EventTypeCustom, alias: alias(e)})
}
