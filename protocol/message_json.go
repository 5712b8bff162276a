// Polymorphic message codec. Messages are discriminated by the "role" field;
// user content additionally supports the bare-string shorthand for a single
// text item. As with events, optional fields are omitted on encode rather
// than emitted as null.

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeMessage decodes a single conversation message from its JSON
// encoding, dispatching on the "role" discriminator.
func DecodeMessage(data []byte) (Message, error) {
	var probe struct {
		Role *Role `json:"role"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, decodeErr(MalformedVariant, "", err)
	}
	if probe.Role == nil || *probe.Role == "" {
		return nil, decodeErr(MissingDiscriminator, "", nil)
	}
	switch *probe.Role {
	case RoleSystem:
		var m SystemMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeErr(MalformedVariant, string(RoleSystem), err)
		}
		return m, nil
	case RoleDeveloper:
		var m DeveloperMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeErr(MalformedVariant, string(RoleDeveloper), err)
		}
		return m, nil
	case RoleUser:
		var m UserMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeErr(MalformedVariant, string(RoleUser), err)
		}
		return m, nil
	case RoleAssistant:
		var m AssistantMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeErr(MalformedVariant, string(RoleAssistant), err)
		}
		return m, nil
	case RoleTool:
		var m ToolMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeErr(MalformedVariant, string(RoleTool), err)
		}
		if m.ToolCallID == "" {
			return nil, decodeErr(MalformedVariant, string(RoleTool), errors.New("toolCallId is required"))
		}
		return m, nil
	default:
		return nil, decodeErr(UnknownDiscriminator, string(*probe.Role), nil)
	}
}

// EncodeMessage encodes a conversation message to JSON with its role
// discriminator injected.
func EncodeMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// MarshalJSON encodes SystemMessage with its role discriminator.
func (m SystemMessage) MarshalJSON() ([]byte, error) {
	type alias SystemMessage
	return json.Marshal(struct {
		Role Role `json:"role"`
		alias
	}{Role: RoleSystem, alias: alias(m)})
}

// MarshalJSON encodes DeveloperMessage with its role discriminator.
func (m DeveloperMessage) MarshalJSON() ([]byte, error) {
	type alias DeveloperMessage
	return json.Marshal(struct {
		Role Role `json:"role"`
		alias
	}{Role: RoleDeveloper, alias: alias(m)})
}

// MarshalJSON encodes AssistantMessage with its role discriminator.
func (m AssistantMessage) MarshalJSON() ([]byte, error) {
	type alias AssistantMessage
	return json.Marshal(struct {
		Role Role `json:"role"`
		alias
	}{Role: RoleAssistant, alias: alias(m)})
}

// MarshalJSON encodes ToolMessage with its role discriminator.
func (m ToolMessage) MarshalJSON() ([]byte, error) {
	type alias ToolMessage
	return json.Marshal(struct {
		Role Role `json:"role"`
		alias
	}{Role: RoleTool, alias: alias(m)})
}

// MarshalJSON encodes UserMessage with its role discriminator. When the
// content is exactly one text item it is encoded in the bare-string
// shorthand form; otherwise as an array of content items.
func (m UserMessage) MarshalJSON() ([]byte, error) {
	var content any
	if text, ok := m.TextOnly(); ok {
		content = text
	} else {
		items := make([]json.RawMessage, 0, len(m.Content))
		for _, item := range m.Content {
			raw, err := marshalInputContent(item)
			if err != nil {
				return nil, err
			}
			items = append(items, raw)
		}
		content = items
	}
	return json.Marshal(struct {
		Role    Role   `json:"role"`
		ID      string `json:"id,omitempty"`
		Content any    `json:"content"`
	}{Role: RoleUser, ID: m.ID, Content: content})
}

// UnmarshalJSON decodes UserMessage, accepting both the bare-string
// shorthand and the array-of-items content forms as equivalent.
func (m *UserMessage) UnmarshalJSON(data []byte) error {
	var tmp struct {
		ID      string          `json:"id"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	m.ID = tmp.ID
	if len(tmp.Content) == 0 {
		m.Content = nil
		return nil
	}
	var text string
	if err := json.Unmarshal(tmp.Content, &text); err == nil {
		m.Content = []InputContent{TextContent{Text: text}}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(tmp.Content, &items); err != nil {
		return fmt.Errorf("decode user content: %w", err)
	}
	m.Content = make([]InputContent, 0, len(items))
	for i, raw := range items {
		item, err := decodeInputContent(raw)
		if err != nil {
			return fmt.Errorf("decode content[%d]: %w", i, err)
		}
		m.Content = append(m.Content, item)
	}
	return nil
}

func marshalInputContent(item InputContent) (json.RawMessage, error) {
	switch c := item.(type) {
	case TextContent:
		type alias TextContent
		return json.Marshal(struct {
			Type InputContentType `json:"type"`
			alias
		}{Type: InputContentText, alias: alias(c)})
	case BinaryContent:
		if err := c.validateSource(); err != nil {
			return nil, err
		}
		type alias BinaryContent
		return json.Marshal(struct {
			Type InputContentType `json:"type"`
			alias
		}{Type: InputContentBinary, alias: alias(c)})
	default:
		return nil, fmt.Errorf("unknown input content type %T", item)
	}
}

func decodeInputContent(raw json.RawMessage) (InputContent, error) {
	var probe struct {
		Type *InputContentType `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if probe.Type == nil || *probe.Type == "" {
		return nil, errors.New("missing content item type")
	}
	switch *probe.Type {
	case InputContentText:
		var c TextContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case InputContentBinary:
		var c BinaryContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		if err := c.validateSource(); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown content item type %q", *probe.Type)
	}
}
