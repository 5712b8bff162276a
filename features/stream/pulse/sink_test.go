package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	streamopts "goa.design/pulse/streaming/options"

	clientspulse "goa.design/agui/features/stream/pulse/clients/pulse"
	"goa.design/agui/protocol"
)

type fakeClient struct {
	streams   map[string]*fakeStream
	streamErr error
	closed    bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{streams: make(map[string]*fakeStream)}
}

func (c *fakeClient) Stream(name string, _ ...streamopts.Stream) (clientspulse.Stream, error) {
	if c.streamErr != nil {
		return nil, c.streamErr
	}
	str, ok := c.streams[name]
	if !ok {
		str = &fakeStream{}
		c.streams[name] = str
	}
	return str, nil
}

func (c *fakeClient) Close(context.Context) error {
	c.closed = true
	return nil
}

type fakeStream struct {
	added   []addedEntry
	addErr  error
	sink    clientspulse.Sink
	sinkErr error
}

type addedEntry struct {
	event   string
	payload []byte
}

func (s *fakeStream) Add(_ context.Context, event string, payload []byte) (string, error) {
	if s.addErr != nil {
		return "", s.addErr
	}
	s.added = append(s.added, addedEntry{event: event, payload: payload})
	return "1-0", nil
}

func (s *fakeStream) NewSink(context.Context, string, ...streamopts.Sink) (clientspulse.Sink, error) {
	if s.sinkErr != nil {
		return nil, s.sinkErr
	}
	if s.sink == nil {
		return nil, errors.New("no sink configured")
	}
	return s.sink, nil
}

func (s *fakeStream) Destroy(context.Context) error { return nil }

func TestSendPublishesEnvelope(t *testing.T) {
	cli := newFakeClient()
	sink, err := NewSink(Options{Client: cli, ThreadID: "thread-1"})
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), protocol.RunStartedEvent{ThreadID: "thread-1", RunID: "run-1"}))
	require.NoError(t, sink.Send(context.Background(), protocol.TextMessageContentEvent{MessageID: "m1", Delta: "hi"}))

	str := cli.streams["thread/thread-1"]
	require.NotNil(t, str)
	require.Len(t, str.added, 2)

	require.Equal(t, "RUN_STARTED", str.added[0].event)
	var env Envelope
	require.NoError(t, json.Unmarshal(str.added[1].payload, &env))
	require.Equal(t, "TEXT_MESSAGE_CONTENT", env.Type)
	require.Equal(t, "thread-1", env.ThreadID)
	require.Equal(t, "run-1", env.RunID)
	require.False(t, env.Timestamp.IsZero())

	decoded, err := protocol.DecodeEvent(env.Event)
	require.NoError(t, err)
	require.Equal(t, protocol.TextMessageContentEvent{MessageID: "m1", Delta: "hi"}, decoded)
}

func TestRunIDTracksRunStarts(t *testing.T) {
	cli := newFakeClient()
	sink, err := NewSink(Options{Client: cli, ThreadID: "thread-1"})
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), protocol.RunStartedEvent{ThreadID: "thread-1", RunID: "run-1"}))
	require.NoError(t, sink.Send(context.Background(), protocol.RunFinishedEvent{Outcome: protocol.OutcomeSuccess}))
	require.NoError(t, sink.Send(context.Background(), protocol.RunStartedEvent{ThreadID: "thread-1", RunID: "run-2"}))
	require.NoError(t, sink.Send(context.Background(), protocol.RunFinishedEvent{Outcome: protocol.OutcomeSuccess}))

	str := cli.streams["thread/thread-1"]
	var runIDs []string
	for _, entry := range str.added {
		var env Envelope
		require.NoError(t, json.Unmarshal(entry.payload, &env))
		runIDs = append(runIDs, env.RunID)
	}
	require.Equal(t, []string{"run-1", "run-1", "run-2", "run-2"}, runIDs)
}

func TestNewSinkValidation(t *testing.T) {
	_, err := NewSink(Options{ThreadID: "t"})
	require.EqualError(t, err, "pulse client is required")
	_, err = NewSink(Options{Client: newFakeClient()})
	require.EqualError(t, err, "thread id is required")
}

func TestCustomStreamID(t *testing.T) {
	cli := newFakeClient()
	sink, err := NewSink(Options{
		Client:   cli,
		ThreadID: "thread-1",
		StreamID: func(ev protocol.Event) (string, error) {
			return "custom/" + string(ev.Type()), nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, sink.Send(context.Background(), protocol.TextMessageEndEvent{MessageID: "m1"}))
	require.Contains(t, cli.streams, "custom/TEXT_MESSAGE_END")
}

func TestStreamCreationError(t *testing.T) {
	cli := newFakeClient()
	cli.streamErr = errors.New("boom")
	sink, err := NewSink(Options{Client: cli, ThreadID: "thread-1"})
	require.NoError(t, err)
	err = sink.Send(context.Background(), protocol.TextMessageEndEvent{MessageID: "m1"})
	require.EqualError(t, err, "boom")
}

func TestAddError(t *testing.T) {
	cli := newFakeClient()
	cli.streams["thread/thread-1"] = &fakeStream{addErr: errors.New("add-failed")}
	sink, err := NewSink(Options{Client: cli, ThreadID: "thread-1"})
	require.NoError(t, err)
	err = sink.Send(context.Background(), protocol.TextMessageEndEvent{MessageID: "m1"})
	require.EqualError(t, err, "add-failed")
}

func TestCloseDelegates(t *testing.T) {
	cli := newFakeClient()
	sink, err := NewSink(Options{Client: cli, ThreadID: "thread-1"})
	require.NoError(t, err)
	require.NoError(t, sink.Close(context.Background()))
	require.True(t, cli.closed)
}
