package protocol

import (
	"encoding/json"
	"errors"
)

// Role identifies a concrete message variant on the wire.
type Role string

const (
	// RoleSystem marks instructions injected by the hosting application.
	RoleSystem Role = "system"
	// RoleUser marks end-user input.
	RoleUser Role = "user"
	// RoleAssistant marks agent output, including requested tool calls.
	RoleAssistant Role = "assistant"
	// RoleTool marks a tool execution result correlated by tool call id.
	RoleTool Role = "tool"
	// RoleDeveloper marks developer-authored instructions.
	RoleDeveloper Role = "developer"
)

// InputContentType discriminates user input content items.
type InputContentType string

const (
	// InputContentText marks a plain text content item.
	InputContentText InputContentType = "text"
	// InputContentBinary marks a binary attachment content item.
	InputContentBinary InputContentType = "binary"
)

type (
	// Message is the closed union of conversation message variants,
	// discriminated by role on the wire. Messages are append-only within a
	// thread's visible history and owned by whichever conversation context
	// holds them.
	Message interface {
		// Role returns the wire discriminator for the variant.
		Role() Role
	}

	// SystemMessage carries instructions from the hosting application.
	SystemMessage struct {
		// ID optionally identifies the message within the conversation.
		ID string `json:"id,omitempty"`
		// Content is the instruction text.
		Content string `json:"content"`
	}

	// DeveloperMessage carries developer-authored instructions.
	DeveloperMessage struct {
		// ID optionally identifies the message within the conversation.
		ID string `json:"id,omitempty"`
		// Content is the instruction text.
		Content string `json:"content"`
	}

	// UserMessage carries end-user input. Content holds one or more input
	// content items; on the wire a single text item round-trips through the
	// bare-string shorthand form.
	UserMessage struct {
		// ID optionally identifies the message within the conversation.
		ID string `json:"id,omitempty"`
		// Content is the ordered list of input content items.
		Content []InputContent `json:"content"`
	}

	// AssistantMessage carries agent output: free text, requested tool calls,
	// or both.
	AssistantMessage struct {
		// ID optionally identifies the message within the conversation.
		ID string `json:"id,omitempty"`
		// Content is the assistant text, when any.
		Content string `json:"content,omitempty"`
		// ToolCalls lists the tool invocations requested by the assistant.
		ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	}

	// ToolMessage carries a tool execution result. Content is interpreted
	// leniently: ParsedContent attempts a JSON parse and reports whether it
	// succeeded, the raw string is always preserved.
	ToolMessage struct {
		// ID optionally identifies the message within the conversation.
		ID string `json:"id,omitempty"`
		// ToolCallID correlates the result with the originating tool call.
		ToolCallID string `json:"toolCallId"`
		// Content is the tool output, optionally JSON-encoded.
		Content string `json:"content"`
	}

	// InputContent is the closed union of user input content items,
	// discriminated by type on the wire.
	InputContent interface {
		// ContentType returns the wire discriminator for the item.
		ContentType() InputContentType
	}

	// TextContent is a plain text input item.
	TextContent struct {
		// Text is the item text.
		Text string `json:"text"`
	}

	// BinaryContent is a binary attachment input item. Exactly one of Data,
	// URL or ID must be present; use NewBinaryContent to construct values
	// that satisfy the invariant.
	BinaryContent struct {
		// MimeType is the attachment media type.
		MimeType string `json:"mimeType"`
		// Data is the inline base64-encoded payload, when inlined.
		Data string `json:"data,omitempty"`
		// URL locates the payload out of band, when referenced by address.
		URL string `json:"url,omitempty"`
		// ID names a previously uploaded payload, when referenced by handle.
		ID string `json:"id,omitempty"`
		// Filename optionally preserves the original file name.
		Filename string `json:"filename,omitempty"`
	}

	// ToolCall describes a tool invocation requested by an assistant message.
	ToolCall struct {
		// ID uniquely identifies the invocation.
		ID string `json:"id"`
		// Type is always "function".
		Type string `json:"type"`
		// Function names the tool and carries its JSON-encoded arguments.
		Function FunctionCall `json:"function"`
	}

	// FunctionCall is the function payload of a tool call.
	FunctionCall struct {
		// Name is the tool name.
		Name string `json:"name"`
		// Arguments is the JSON-encoded argument object.
		Arguments string `json:"arguments"`
	}
)

// ToolCallTypeFunction is the only defined tool call type.
const ToolCallTypeFunction = "function"

// Role implements Message.
func (SystemMessage) Role() Role { return RoleSystem }

// Role implements Message.
func (DeveloperMessage) Role() Role { return RoleDeveloper }

// Role implements Message.
func (UserMessage) Role() Role { return RoleUser }

// Role implements Message.
func (AssistantMessage) Role() Role { return RoleAssistant }

// Role implements Message.
func (ToolMessage) Role() Role { return RoleTool }

// ContentType implements InputContent.
func (TextContent) ContentType() InputContentType { return InputContentText }

// ContentType implements InputContent.
func (BinaryContent) ContentType() InputContentType { return InputContentBinary }

// ErrBinaryContentSource is returned when a binary content item names none of
// data, url or id.
var ErrBinaryContentSource = errors.New("binary content requires exactly one of data, url or id")

// NewBinaryContent constructs a BinaryContent item, enforcing that exactly
// one of data, url or id is provided.
func NewBinaryContent(mimeType, data, url, id string) (BinaryContent, error) {
	c := BinaryContent{MimeType: mimeType, Data: data, URL: url, ID: id}
	if err := c.validateSource(); err != nil {
		return BinaryContent{}, err
	}
	return c, nil
}

func (c BinaryContent) validateSource() error {
	n := 0
	if c.Data != "" {
		n++
	}
	if c.URL != "" {
		n++
	}
	if c.ID != "" {
		n++
	}
	if n != 1 {
		return ErrBinaryContentSource
	}
	return nil
}

// NewFunctionCall constructs an assistant tool call with the fixed
// "function" type and the given JSON-encoded arguments.
func NewFunctionCall(id, name, arguments string) ToolCall {
	return ToolCall{
		ID:       id,
		Type:     ToolCallTypeFunction,
		Function: FunctionCall{Name: name, Arguments: arguments},
	}
}

// ParsedContent attempts to interpret the tool message content as JSON. It
// returns the raw JSON and true on success, nil and false when the content
// is not valid JSON. The raw string form is always available via Content;
// parse failure is a tagged outcome, never an error.
func (m ToolMessage) ParsedContent() (json.RawMessage, bool) {
	if !json.Valid([]byte(m.Content)) {
		return nil, false
	}
	return json.RawMessage(m.Content), true
}

// TextOnly reports the user message text when the content is exactly one
// text item, which is the shorthand-eligible form.
func (m UserMessage) TextOnly() (string, bool) {
	if len(m.Content) != 1 {
		return "", false
	}
	t, ok := m.Content[0].(TextContent)
	if !ok {
		return "", false
	}
	return t.Text, true
}
