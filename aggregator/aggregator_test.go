package aggregator

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/agui/content"
	"goa.design/agui/protocol"
)

func startRun(t *testing.T, a *Aggregator) {
	t.Helper()
	emit, err := a.Feed(protocol.RunStartedEvent{ThreadID: "t1", RunID: "r1"})
	require.NoError(t, err)
	require.NotNil(t, emit.Signal)
	require.Equal(t, PhaseStarted, emit.Signal.Phase)
}

// feedAll feeds events in order, failing the test on any error, and returns
// the concatenated items.
func feedAll(t *testing.T, a *Aggregator, events ...protocol.Event) []content.Item {
	t.Helper()
	var items []content.Item
	for i, ev := range events {
		emit, err := a.Feed(ev)
		require.NoError(t, err, "event %d (%s)", i, ev.Type())
		items = append(items, emit.Items...)
	}
	return items
}

func TestTextMessageAggregation(t *testing.T) {
	a := New()
	startRun(t, a)
	items := feedAll(t, a,
		protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"},
		protocol.TextMessageContentEvent{MessageID: "m1", Delta: "a"},
		protocol.TextMessageContentEvent{MessageID: "m1", Delta: "b"},
		protocol.TextMessageEndEvent{MessageID: "m1"},
	)
	require.Equal(t, []content.Item{content.Text{MessageID: "m1", Role: "assistant", Text: "ab"}}, items)
}

func TestStartEmitsNothingUntilEnd(t *testing.T) {
	a := New()
	startRun(t, a)
	emit, err := a.Feed(protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"})
	require.NoError(t, err)
	require.Empty(t, emit.Items)
	emit, err = a.Feed(protocol.TextMessageContentEvent{MessageID: "m1", Delta: "hello"})
	require.NoError(t, err)
	require.Empty(t, emit.Items)
}

func TestInterleavedBuilders(t *testing.T) {
	a := New()
	startRun(t, a)
	items := feedAll(t, a,
		protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"},
		protocol.ToolCallStartEvent{ToolCallID: "c1", ToolCallName: "search", ParentMessageID: "m1"},
		protocol.TextMessageContentEvent{MessageID: "m1", Delta: "looking"},
		protocol.ToolCallArgsEvent{ToolCallID: "c1", Delta: `{"q":"go"}`},
		protocol.ToolCallEndEvent{ToolCallID: "c1"},
		protocol.TextMessageEndEvent{MessageID: "m1"},
	)
	require.Equal(t, []content.Item{
		content.ToolCall{ID: "c1", Name: "search", ParentMessageID: "m1", Arguments: json.RawMessage(`{"q":"go"}`)},
		content.Text{MessageID: "m1", Role: "assistant", Text: "looking"},
	}, items)
}

func TestToolCallEmptyArgsParseAsEmptyObject(t *testing.T) {
	a := New()
	startRun(t, a)
	items := feedAll(t, a,
		protocol.ToolCallStartEvent{ToolCallID: "c1", ToolCallName: "ping"},
		protocol.ToolCallEndEvent{ToolCallID: "c1"},
	)
	require.Len(t, items, 1)
	tc := items[0].(content.ToolCall)
	assert.JSONEq(t, `{}`, string(tc.Arguments))
}

func TestToolCallMalformedArgs(t *testing.T) {
	a := New()
	startRun(t, a)
	feedAll(t, a,
		protocol.ToolCallStartEvent{ToolCallID: "c1", ToolCallName: "search"},
		protocol.ToolCallArgsEvent{ToolCallID: "c1", Delta: `{"q":`},
	)
	_, err := a.Feed(protocol.ToolCallEndEvent{ToolCallID: "c1"})
	var serr *SequenceError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, MalformedPayload, serr.Kind)
	require.Equal(t, "c1", serr.EntityID)
}

func TestToolCallResultImmediate(t *testing.T) {
	a := New()
	startRun(t, a)
	items := feedAll(t, a, protocol.ToolCallResultEvent{ToolCallID: "c1", Result: `{"ok":true}`, MessageID: "m2", Role: "tool"})
	require.Len(t, items, 1)
	tr := items[0].(content.ToolResult)
	assert.Equal(t, "c1", tr.ID)
	assert.Equal(t, "m2", tr.MessageID)
	assert.Equal(t, "tool", tr.Role)
	parsed, ok := tr.Value.Parsed()
	require.True(t, ok)
	assert.JSONEq(t, `{"ok":true}`, string(parsed))

	items = feedAll(t, a, protocol.ToolCallResultEvent{ToolCallID: "c2", Result: "plain text"})
	_, ok = items[0].(content.ToolResult).Value.Parsed()
	assert.False(t, ok)
	assert.Equal(t, "plain text", items[0].(content.ToolResult).Value.Text)
}

func TestContentBeforeRunStart(t *testing.T) {
	a := New()
	_, err := a.Feed(protocol.TextMessageContentEvent{MessageID: "m1", Delta: "hi"})
	var serr *SequenceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, NoOpenBuilder, serr.Kind)
}

func TestSequencingViolations(t *testing.T) {
	cases := []struct {
		name   string
		events []protocol.Event
		kind   SequenceErrorKind
	}{
		{
			"duplicate open",
			[]protocol.Event{
				protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"},
				protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"},
			},
			DuplicateOpenBuilder,
		},
		{
			"duplicate open across kinds",
			[]protocol.Event{
				protocol.TextMessageStartEvent{MessageID: "x", Role: "assistant"},
				protocol.ToolCallStartEvent{ToolCallID: "x", ToolCallName: "search"},
			},
			DuplicateOpenBuilder,
		},
		{
			"content without open",
			[]protocol.Event{protocol.TextMessageContentEvent{MessageID: "m1", Delta: "a"}},
			NoOpenBuilder,
		},
		{
			"end without open",
			[]protocol.Event{protocol.ToolCallEndEvent{ToolCallID: "c1"}},
			NoOpenBuilder,
		},
		{
			"kind mismatch",
			[]protocol.Event{
				protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"},
				protocol.ToolCallArgsEvent{ToolCallID: "m1", Delta: "{}"},
			},
			KindMismatch,
		},
		{
			"finish with open builder",
			[]protocol.Event{
				protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"},
				protocol.RunFinishedEvent{},
			},
			DanglingBuilder,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := New()
			startRun(t, a)
			var err error
			for _, ev := range tc.events {
				_, err = a.Feed(ev)
				if err != nil {
					break
				}
			}
			var serr *SequenceError
			require.ErrorAs(t, err, &serr)
			require.Equal(t, tc.kind, serr.Kind)
			require.Equal(t, "r1", serr.RunID)
		})
	}
}

func TestViolationPoisonsRun(t *testing.T) {
	a := New()
	startRun(t, a)
	_, err := a.Feed(protocol.TextMessageContentEvent{MessageID: "m1", Delta: "a"})
	require.Error(t, err)

	// Everything but a new run start now fails with RunAborted.
	_, err = a.Feed(protocol.TextMessageStartEvent{MessageID: "m2", Role: "assistant"})
	var serr *SequenceError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, RunAborted, serr.Kind)

	// A new run start recovers.
	emit, err := a.Feed(protocol.RunStartedEvent{ThreadID: "t1", RunID: "r2"})
	require.NoError(t, err)
	require.Equal(t, PhaseStarted, emit.Signal.Phase)
	items := feedAll(t, a,
		protocol.TextMessageStartEvent{MessageID: "m2", Role: "assistant"},
		protocol.TextMessageContentEvent{MessageID: "m2", Delta: "ok"},
		protocol.TextMessageEndEvent{MessageID: "m2"},
	)
	require.Equal(t, "ok", items[0].(content.Text).Text)
}

func TestEventsAfterTerminalRejected(t *testing.T) {
	a := New()
	startRun(t, a)
	emit, err := a.Feed(protocol.RunFinishedEvent{Outcome: protocol.OutcomeSuccess})
	require.NoError(t, err)
	require.Equal(t, PhaseFinished, emit.Signal.Phase)

	_, err = a.Feed(protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"})
	var serr *SequenceError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, RunClosed, serr.Kind)

	// The next run start is accepted.
	_, err = a.Feed(protocol.RunStartedEvent{ThreadID: "t1", RunID: "r2"})
	require.NoError(t, err)
}

func TestRunStartedResetsOpenBuilders(t *testing.T) {
	a := New()
	startRun(t, a)
	feedAll(t, a, protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"})

	emit, err := a.Feed(protocol.RunStartedEvent{ThreadID: "t1", RunID: "r2"})
	require.NoError(t, err)
	require.Equal(t, "r2", emit.Signal.RunID)

	// The builder from the previous run is gone.
	_, err = a.Feed(protocol.TextMessageContentEvent{MessageID: "m1", Delta: "a"})
	var serr *SequenceError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, NoOpenBuilder, serr.Kind)
}

func TestRunFinishedOutcomes(t *testing.T) {
	intr := &protocol.Interrupt{ID: "int-1", Payload: json.RawMessage(`{"q":"approve?"}`)}

	t.Run("explicit interrupt", func(t *testing.T) {
		a := New()
		startRun(t, a)
		emit, err := a.Feed(protocol.RunFinishedEvent{Outcome: protocol.OutcomeInterrupt, Interrupt: intr})
		require.NoError(t, err)
		require.Equal(t, PhaseInterrupted, emit.Signal.Phase)
		require.Equal(t, intr, emit.Signal.Interrupt)
		pending, ok := a.PendingInterrupt()
		require.True(t, ok)
		require.Equal(t, intr, pending)
	})

	t.Run("inferred interrupt", func(t *testing.T) {
		a := New()
		startRun(t, a)
		emit, err := a.Feed(protocol.RunFinishedEvent{Interrupt: intr})
		require.NoError(t, err)
		require.Equal(t, PhaseInterrupted, emit.Signal.Phase)
	})

	t.Run("inferred success", func(t *testing.T) {
		a := New()
		startRun(t, a)
		emit, err := a.Feed(protocol.RunFinishedEvent{Result: json.RawMessage(`"done"`)})
		require.NoError(t, err)
		require.Equal(t, PhaseFinished, emit.Signal.Phase)
		require.Equal(t, json.RawMessage(`"done"`), emit.Signal.Result)
		_, ok := a.PendingInterrupt()
		require.False(t, ok)
	})

	t.Run("ids default to run start", func(t *testing.T) {
		a := New()
		startRun(t, a)
		emit, err := a.Feed(protocol.RunFinishedEvent{Outcome: protocol.OutcomeSuccess})
		require.NoError(t, err)
		require.Equal(t, "t1", emit.Signal.ThreadID)
		require.Equal(t, "r1", emit.Signal.RunID)
	})
}

func TestRunError(t *testing.T) {
	a := New()
	startRun(t, a)
	emit, err := a.Feed(protocol.RunErrorEvent{Message: "model timeout", Code: "timeout"})
	require.NoError(t, err)
	require.Equal(t, PhaseFailed, emit.Signal.Phase)
	require.Equal(t, "model timeout", emit.Signal.ErrorMessage)
	require.Equal(t, []content.Item{content.Error{Message: "model timeout", Code: "timeout"}}, emit.Items)

	// Terminal: further events rejected until the next run.
	_, err = a.Feed(protocol.StepStartedEvent{StepID: "s1", StepName: "plan"})
	require.Error(t, err)
}

func TestReasoningQuintet(t *testing.T) {
	a := New()
	startRun(t, a)
	items := feedAll(t, a,
		protocol.ReasoningStartEvent{MessageID: "rm1", EncryptedContent: "opaque"},
		protocol.ReasoningMessageStartEvent{MessageID: "rm1", Role: "assistant"},
		protocol.ReasoningMessageContentEvent{MessageID: "rm1", Delta: "think"},
		protocol.ReasoningMessageContentEvent{MessageID: "rm1", Delta: "ing"},
		protocol.ReasoningMessageEndEvent{MessageID: "rm1"},
		protocol.ReasoningEndEvent{MessageID: "rm1"},
	)
	require.Equal(t, []content.Item{content.Reasoning{
		MessageID:        "rm1",
		Role:             "assistant",
		Text:             "thinking",
		EncryptedContent: "opaque",
	}}, items)
}

func TestReasoningViolations(t *testing.T) {
	t.Run("message start without block", func(t *testing.T) {
		a := New()
		startRun(t, a)
		_, err := a.Feed(protocol.ReasoningMessageStartEvent{MessageID: "rm1", Role: "assistant"})
		var serr *SequenceError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, NoOpenBuilder, serr.Kind)
	})

	t.Run("content without message", func(t *testing.T) {
		a := New()
		startRun(t, a)
		feedAll(t, a, protocol.ReasoningStartEvent{MessageID: "rm1"})
		_, err := a.Feed(protocol.ReasoningMessageContentEvent{MessageID: "rm1", Delta: "x"})
		var serr *SequenceError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, NoOpenBuilder, serr.Kind)
	})

	t.Run("block end with open message", func(t *testing.T) {
		a := New()
		startRun(t, a)
		feedAll(t, a,
			protocol.ReasoningStartEvent{MessageID: "rm1"},
			protocol.ReasoningMessageStartEvent{MessageID: "rm1", Role: "assistant"},
		)
		_, err := a.Feed(protocol.ReasoningEndEvent{MessageID: "rm1"})
		var serr *SequenceError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, DanglingBuilder, serr.Kind)
	})

	t.Run("double message start", func(t *testing.T) {
		a := New()
		startRun(t, a)
		feedAll(t, a,
			protocol.ReasoningStartEvent{MessageID: "rm1"},
			protocol.ReasoningMessageStartEvent{MessageID: "rm1", Role: "assistant"},
		)
		_, err := a.Feed(protocol.ReasoningMessageStartEvent{MessageID: "rm1", Role: "assistant"})
		var serr *SequenceError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, DuplicateOpenBuilder, serr.Kind)
	})
}

func TestReasoningChunkAutoBracketing(t *testing.T) {
	a := New()
	startRun(t, a)
	items := feedAll(t, a,
		protocol.ReasoningMessageChunkEvent{MessageID: "rm1", Delta: "auto"},
		protocol.ReasoningMessageChunkEvent{MessageID: "rm1", Delta: " brackets"},
		protocol.ReasoningMessageChunkEvent{MessageID: "rm1"},
	)
	require.Equal(t, []content.Item{content.Reasoning{MessageID: "rm1", Text: "auto brackets"}}, items)
}

func TestReasoningChunkEmptyIDTargetsLastChunk(t *testing.T) {
	a := New()
	startRun(t, a)
	items := feedAll(t, a,
		protocol.ReasoningMessageChunkEvent{MessageID: "rm1", Delta: "a"},
		protocol.ReasoningMessageChunkEvent{Delta: "b"},
		protocol.ReasoningMessageChunkEvent{},
	)
	require.Equal(t, []content.Item{content.Reasoning{MessageID: "rm1", Text: "ab"}}, items)
}

func TestReasoningChunkOpenRequiresID(t *testing.T) {
	a := New()
	startRun(t, a)
	_, err := a.Feed(protocol.ReasoningMessageChunkEvent{Delta: "orphan"})
	var serr *SequenceError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, NoOpenBuilder, serr.Kind)
}

func TestReasoningChunkExplicitMixingRejected(t *testing.T) {
	t.Run("chunk into explicit block", func(t *testing.T) {
		a := New()
		startRun(t, a)
		feedAll(t, a, protocol.ReasoningStartEvent{MessageID: "rm1"})
		_, err := a.Feed(protocol.ReasoningMessageChunkEvent{MessageID: "rm1", Delta: "x"})
		var serr *SequenceError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, KindMismatch, serr.Kind)
	})

	t.Run("explicit content into chunk block", func(t *testing.T) {
		a := New()
		startRun(t, a)
		feedAll(t, a, protocol.ReasoningMessageChunkEvent{MessageID: "rm1", Delta: "x"})
		_, err := a.Feed(protocol.ReasoningMessageContentEvent{MessageID: "rm1", Delta: "y"})
		var serr *SequenceError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, KindMismatch, serr.Kind)
	})
}

func TestStateSnapshotAndDelta(t *testing.T) {
	a := New()
	startRun(t, a)

	_, ok := a.State()
	require.False(t, ok)

	snap := json.RawMessage(`{"count":1}`)
	delta := json.RawMessage(`[{"op":"replace","path":"/count","value":2}]`)
	items := feedAll(t, a,
		protocol.StateSnapshotEvent{Snapshot: snap},
		protocol.StateDeltaEvent{Delta: delta},
	)
	require.Equal(t, []content.Item{
		content.StateSnapshot{Snapshot: snap},
		content.StateDelta{Delta: delta, Base: snap},
	}, items)

	got, ok := a.State()
	require.True(t, ok)
	require.Equal(t, snap, got)
}

func TestDeltaBeforeSnapshotHasNilBase(t *testing.T) {
	a := New()
	startRun(t, a)
	items := feedAll(t, a, protocol.StateDeltaEvent{Delta: json.RawMessage(`[]`)})
	require.Nil(t, items[0].(content.StateDelta).Base)
}

func TestStepAndActivityPassThrough(t *testing.T) {
	a := New()
	startRun(t, a)
	items := feedAll(t, a,
		protocol.StepStartedEvent{StepID: "s1", StepName: "plan"},
		protocol.ActivitySnapshotEvent{ActivityID: "a1", ActivityType: "indexing", State: json.RawMessage(`{"p":0.1}`)},
		protocol.ActivityDeltaEvent{ActivityID: "a1", Delta: json.RawMessage(`{"p":0.5}`)},
		protocol.StepFinishedEvent{StepID: "s1", StepName: "plan", Status: "completed"},
	)
	require.Equal(t, []content.Item{
		content.StepStarted{StepID: "s1", StepName: "plan"},
		content.ActivitySnapshot{ActivityID: "a1", ActivityType: "indexing", State: json.RawMessage(`{"p":0.1}`)},
		content.ActivityDelta{ActivityID: "a1", Delta: json.RawMessage(`{"p":0.5}`)},
		content.StepFinished{StepID: "s1", StepName: "plan", Status: "completed"},
	}, items)
}

func TestAbandonDiscardsOpenBuilders(t *testing.T) {
	a := New()
	startRun(t, a)
	feedAll(t, a,
		protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"},
		protocol.TextMessageContentEvent{MessageID: "m1", Delta: "partial"},
	)
	a.Abandon()

	startRun(t, a)
	_, err := a.Feed(protocol.TextMessageContentEvent{MessageID: "m1", Delta: "more"})
	var serr *SequenceError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, NoOpenBuilder, serr.Kind)
}

func TestBufferCap(t *testing.T) {
	a := New(WithMaxBufferedBytes(8))
	startRun(t, a)
	feedAll(t, a,
		protocol.TextMessageStartEvent{MessageID: "m1", Role: "assistant"},
		protocol.TextMessageContentEvent{MessageID: "m1", Delta: "12345678"},
	)
	_, err := a.Feed(protocol.TextMessageContentEvent{MessageID: "m1", Delta: "9"})
	var serr *SequenceError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, BufferExceeded, serr.Kind)
}

func TestChunkingInvariance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("any chunking yields the same aggregate", prop.ForAll(
		func(text string, cuts []int) bool {
			a := New()
			if _, err := a.Feed(protocol.RunStartedEvent{ThreadID: "t", RunID: "r"}); err != nil {
				return false
			}
			if _, err := a.Feed(protocol.TextMessageStartEvent{MessageID: "m", Role: "assistant"}); err != nil {
				return false
			}
			rest := text
			for _, cut := range cuts {
				if len(rest) == 0 {
					break
				}
				n := cut % len(rest)
				if n < 0 {
					n = -n
				}
				if _, err := a.Feed(protocol.TextMessageContentEvent{MessageID: "m", Delta: rest[:n]}); err != nil {
					return false
				}
				rest = rest[n:]
			}
			if _, err := a.Feed(protocol.TextMessageContentEvent{MessageID: "m", Delta: rest}); err != nil {
				return false
			}
			emit, err := a.Feed(protocol.TextMessageEndEvent{MessageID: "m"})
			if err != nil || len(emit.Items) != 1 {
				return false
			}
			return emit.Items[0].(content.Text).Text == text
		},
		gen.AnyString(),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}
