package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"system", SystemMessage{ID: "s1", Content: "be terse"}},
		{"developer", DeveloperMessage{Content: "prefer bullet lists"}},
		{"user single text", UserMessage{ID: "u1", Content: []InputContent{TextContent{Text: "hi"}}}},
		{"user mixed content", UserMessage{Content: []InputContent{
			TextContent{Text: "see attached"},
			BinaryContent{MimeType: "image/png", URL: "https://example.com/a.png", Filename: "a.png"},
		}}},
		{"assistant text", AssistantMessage{ID: "a1", Content: "hello"}},
		{"assistant tool calls", AssistantMessage{
			ToolCalls: []ToolCall{NewFunctionCall("c1", "search", `{"q":"weather"}`)},
		}},
		{"tool", ToolMessage{ID: "t1", ToolCallID: "c1", Content: `{"ok":true}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeMessage(tc.msg)
			require.NoError(t, err)
			decoded, err := DecodeMessage(data)
			require.NoError(t, err)
			require.Equal(t, tc.msg, decoded)
		})
	}
}

func TestUserMessageShorthandEquivalence(t *testing.T) {
	// A single text item encodes as the bare-string shorthand.
	data, err := EncodeMessage(UserMessage{Content: []InputContent{TextContent{Text: "hello"}}})
	require.NoError(t, err)
	require.JSONEq(t, `{"role":"user","content":"hello"}`, string(data))

	// Both wire forms decode to the same value.
	short, err := DecodeMessage([]byte(`{"role":"user","content":"hello"}`))
	require.NoError(t, err)
	long, err := DecodeMessage([]byte(`{"role":"user","content":[{"type":"text","text":"hello"}]}`))
	require.NoError(t, err)
	require.Equal(t, short, long)

	um, ok := short.(UserMessage)
	require.True(t, ok)
	text, ok := um.TextOnly()
	require.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestUserMessageMultiItemNotShorthand(t *testing.T) {
	msg := UserMessage{Content: []InputContent{
		TextContent{Text: "a"},
		TextContent{Text: "b"},
	}}
	data, err := EncodeMessage(msg)
	require.NoError(t, err)
	var fields struct {
		Content []json.RawMessage `json:"content"`
	}
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Len(t, fields.Content, 2)

	_, ok := msg.TextOnly()
	assert.False(t, ok)
}

func TestBinaryContentSourceValidation(t *testing.T) {
	_, err := NewBinaryContent("image/png", "", "", "")
	require.ErrorIs(t, err, ErrBinaryContentSource)

	_, err = NewBinaryContent("image/png", "aGk=", "https://example.com/x", "")
	require.ErrorIs(t, err, ErrBinaryContentSource)

	c, err := NewBinaryContent("image/png", "aGk=", "", "")
	require.NoError(t, err)
	assert.Equal(t, "aGk=", c.Data)

	// The invariant holds on decode too.
	_, err = DecodeMessage([]byte(`{"role":"user","content":[{"type":"binary","mimeType":"image/png"}]}`))
	require.Error(t, err)
}

func TestToolMessageRequiresToolCallID(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"role":"tool","content":"ok"}`))
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, MalformedVariant, derr.Kind)
}

func TestToolMessageLenientContent(t *testing.T) {
	m := ToolMessage{ToolCallID: "c1", Content: `{"temp":21}`}
	parsed, ok := m.ParsedContent()
	require.True(t, ok)
	assert.JSONEq(t, `{"temp":21}`, string(parsed))

	m.Content = "72 degrees and sunny"
	parsed, ok = m.ParsedContent()
	assert.False(t, ok)
	assert.Nil(t, parsed)
	assert.Equal(t, "72 degrees and sunny", m.Content)
}

func TestDecodeMessageDiscriminatorErrors(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"content":"hi"}`))
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, MissingDiscriminator, derr.Kind)

	_, err = DecodeMessage([]byte(`{"role":"moderator","content":"hi"}`))
	require.ErrorAs(t, err, &derr)
	require.Equal(t, UnknownDiscriminator, derr.Kind)
	require.Equal(t, "moderator", derr.Discriminator)
}

func TestRunInputRoundTrip(t *testing.T) {
	in := RunInput{
		ThreadID:    "t1",
		RunID:       "r2",
		ParentRunID: "r1",
		State:       json.RawMessage(`{"count":3}`),
		Messages: []Message{
			SystemMessage{Content: "be helpful"},
			UserMessage{Content: []InputContent{TextContent{Text: "what now?"}}},
		},
		Tools: []Tool{{
			Name:        "search",
			Description: "web search",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}},"required":["q"]}`),
		}},
		Context: []ContextItem{{Description: "user locale", Value: "en-GB"}},
		Resume:  &Resume{InterruptID: "int-1", Payload: json.RawMessage(`{"approved":true}`)},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	decoded, err := DecodeRunInput(data)
	require.NoError(t, err)
	require.Equal(t, in, *decoded)
}

func TestRunInputEncodesRequiredArrays(t *testing.T) {
	data, err := json.Marshal(RunInput{ThreadID: "t1", RunID: "r1"})
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Equal(t, "[]", string(fields["messages"]))
	require.Equal(t, "[]", string(fields["context"]))
	require.NotContains(t, fields, "tools")
	require.NotContains(t, fields, "resume")
}

func TestDecodeRunInputValidation(t *testing.T) {
	_, err := DecodeRunInput([]byte(`{"runId":"r1","messages":[],"context":[]}`))
	require.Error(t, err)
	_, err = DecodeRunInput([]byte(`{"threadId":"t1","messages":[],"context":[]}`))
	require.Error(t, err)
}
