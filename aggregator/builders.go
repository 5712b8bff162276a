package aggregator

import "strings"

// builderKind discriminates the streaming entity a builder accumulates.
type builderKind int

const (
	kindText builderKind = iota
	kindToolCall
	kindReasoning
)

func (k builderKind) String() string {
	switch k {
	case kindText:
		return "text_message"
	case kindToolCall:
		return "tool_call"
	case kindReasoning:
		return "reasoning"
	default:
		return "unknown"
	}
}

// builder is the transient per-entity accumulator for streamed deltas
// between a start event and its matching end. Builders are owned solely by
// the aggregator and discarded on close or explicit abandon.
type builder struct {
	kind builderKind
	id   string

	// role is the conversational role declared at start (text messages and
	// reasoning messages).
	role string

	// toolName and parentMessageID are captured from TOOL_CALL_START.
	toolName        string
	parentMessageID string

	// encrypted carries REASONING_START encrypted content.
	encrypted string

	// msgOpen tracks the inner message of a reasoning block: true between
	// REASONING_MESSAGE_START and REASONING_MESSAGE_END.
	msgOpen bool

	// viaChunk marks a reasoning builder opened by the chunk convenience
	// form. Chunk-opened builders reject explicit bracketing events and vice
	// versa.
	viaChunk bool

	buf  strings.Builder
	size int
}

// append accumulates a delta fragment, enforcing the optional buffer cap.
// Returns false when the cap is exceeded; the caller fails the run.
func (b *builder) append(delta string, maxBytes int) bool {
	b.size += len(delta)
	if maxBytes > 0 && b.size > maxBytes {
		return false
	}
	b.buf.WriteString(delta)
	return true
}
