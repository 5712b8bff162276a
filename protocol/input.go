package protocol

import (
	"encoding/json"
	"fmt"
)

type (
	// RunInput is the logical request bundle submitted to start or resume a
	// run. One RunInput corresponds to exactly one run attempt; resuming an
	// interrupted run submits a new RunInput carrying a Resume correlated by
	// interrupt id.
	RunInput struct {
		// ThreadID identifies the conversation the run belongs to.
		ThreadID string `json:"threadId"`
		// RunID uniquely identifies the run within the thread.
		RunID string `json:"runId"`
		// ParentRunID optionally names a previously recorded run in the same
		// thread, making this run a branch from that run's final state. The
		// first run of a thread has no parent.
		ParentRunID string `json:"parentRunId,omitempty"`
		// State optionally carries the caller's view of the shared state.
		State json.RawMessage `json:"state,omitempty"`
		// Messages is the conversation history visible to the run.
		Messages []Message `json:"messages"`
		// Tools lists the tools available to the run.
		Tools []Tool `json:"tools,omitempty"`
		// Context carries caller-provided contextual values.
		Context []ContextItem `json:"context"`
		// ForwardedProperties passes caller properties through to the agent
		// unmodified.
		ForwardedProperties json.RawMessage `json:"forwardedProperties,omitempty"`
		// Resume correlates this input with a pending interrupt, when the run
		// resumes an interrupted predecessor.
		Resume *Resume `json:"resume,omitempty"`
	}

	// Tool describes a callable tool advertised to the agent.
	Tool struct {
		// Name is the tool identifier the agent uses in tool calls.
		Name string `json:"name"`
		// Description tells the agent what the tool does.
		Description string `json:"description"`
		// Parameters is the JSON schema of the tool's argument object.
		Parameters json.RawMessage `json:"parameters"`
	}

	// ContextItem is a caller-provided contextual value with a human-readable
	// description.
	ContextItem struct {
		// Description explains what the value represents.
		Description string `json:"description"`
		// Value is the contextual value.
		Value string `json:"value"`
	}

	// Resume correlates a new run input with a previously reported interrupt.
	Resume struct {
		// InterruptID is the id of the pending interrupt being resumed.
		InterruptID string `json:"interruptId,omitempty"`
		// Payload carries the human-provided resolution (for example an
		// approval decision or free-form input).
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	// Interrupt is the payload of a RunFinished event with an interrupt
	// outcome. It correlates 1:1 with a later Resume carrying the same id.
	Interrupt struct {
		// ID correlates the interrupt with its resume.
		ID string `json:"id,omitempty"`
		// Payload describes what the run is waiting for. For tool approval
		// requests the payload is {functionName, functionArguments}; for
		// free-form input requests it is opaque caller-supplied JSON.
		Payload json.RawMessage `json:"payload,omitempty"`
	}
)

// MarshalJSON encodes RunInput. Nil message and context lists encode as
// empty arrays: both fields are required on the wire.
func (in RunInput) MarshalJSON() ([]byte, error) {
	type alias RunInput
	a := alias(in)
	if a.Messages == nil {
		a.Messages = []Message{}
	}
	if a.Context == nil {
		a.Context = []ContextItem{}
	}
	return json.Marshal(a)
}

// UnmarshalJSON decodes RunInput, materializing the concrete message
// variants from their role discriminators.
func (in *RunInput) UnmarshalJSON(data []byte) error {
	type alias struct {
		ThreadID            string            `json:"threadId"`
		RunID               string            `json:"runId"`
		ParentRunID         string            `json:"parentRunId"`
		State               json.RawMessage   `json:"state"`
		Messages            []json.RawMessage `json:"messages"`
		Tools               []Tool            `json:"tools"`
		Context             []ContextItem     `json:"context"`
		ForwardedProperties json.RawMessage   `json:"forwardedProperties"`
		Resume              *Resume           `json:"resume"`
	}
	var tmp alias
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	in.ThreadID = tmp.ThreadID
	in.RunID = tmp.RunID
	in.ParentRunID = tmp.ParentRunID
	in.State = tmp.State
	in.Tools = tmp.Tools
	in.Context = tmp.Context
	in.ForwardedProperties = tmp.ForwardedProperties
	in.Resume = tmp.Resume
	in.Messages = make([]Message, 0, len(tmp.Messages))
	for i, raw := range tmp.Messages {
		msg, err := DecodeMessage(raw)
		if err != nil {
			return fmt.Errorf("decode messages[%d]: %w", i, err)
		}
		in.Messages = append(in.Messages, msg)
	}
	return nil
}

// DecodeRunInput decodes a run input bundle from its JSON encoding and
// validates the required identifiers.
func DecodeRunInput(data []byte) (*RunInput, error) {
	var in RunInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, decodeErr(MalformedVariant, "RunInput", err)
	}
	if in.ThreadID == "" {
		return nil, decodeErr(MalformedVariant, "RunInput", fmt.Errorf("threadId is required"))
	}
	if in.RunID == "" {
		return nil, decodeErr(MalformedVariant, "RunInput", fmt.Errorf("runId is required"))
	}
	return &in, nil
}
