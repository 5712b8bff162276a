// Package pulse exposes a stream.Sink implementation that publishes protocol
// events to goa.design/pulse streams. It mirrors the layering used by
// existing Pulse deployments: services build a Redis client, pass it to the
// Pulse client, and hand the resulting sink to the stream pipe.
package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"goa.design/agui/features/stream/pulse/clients/pulse"
	"goa.design/agui/protocol"
)

type (
	// Options configures the Pulse sink.
	Options struct {
		// Client is the Pulse client used to publish events. Required.
		Client pulse.Client
		// ThreadID is the conversation the sink serves. Required; the
		// default stream name derives from it.
		ThreadID string
		// StreamID derives the target Pulse stream from an event. Defaults
		// to `thread/<ThreadID>`.
		StreamID func(protocol.Event) (string, error)
		// MarshalEnvelope overrides envelope serialization, primarily for
		// tests.
		MarshalEnvelope func(Envelope) ([]byte, error)
	}

	// Sink publishes protocol events into Pulse streams. Thread-safe for
	// concurrent Send operations.
	Sink struct {
		client pulse.Client
		opts   sinkOptions

		mu    sync.Mutex
		runID string
	}

	sinkOptions struct {
		threadID        string
		streamID        func(protocol.Event) (string, error)
		marshalEnvelope func(Envelope) ([]byte, error)
	}

	// Envelope wraps protocol events for transmission over Pulse streams.
	Envelope struct {
		// Type is the wire discriminator of the wrapped event.
		Type string `json:"type"`
		// ThreadID identifies the conversation the sink serves.
		ThreadID string `json:"threadId"`
		// RunID identifies the run the event belongs to, tracked from the
		// last run start observed on the stream.
		RunID string `json:"runId,omitempty"`
		// Timestamp records when the event was published (UTC).
		Timestamp time.Time `json:"timestamp"`
		// Event is the encoded protocol event.
		Event json.RawMessage `json:"event"`
	}
)

// NewSink constructs a Pulse-backed event sink bound to one thread. The
// Client and ThreadID fields in opts are required; StreamID and
// MarshalEnvelope default to the built-in implementations.
func NewSink(opts Options) (*Sink, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	if opts.ThreadID == "" {
		return nil, errors.New("thread id is required")
	}
	cfg := sinkOptions{
		threadID:        opts.ThreadID,
		streamID:        func(protocol.Event) (string, error) { return fmt.Sprintf("thread/%s", opts.ThreadID), nil },
		marshalEnvelope: defaultMarshal,
	}
	if opts.StreamID != nil {
		cfg.streamID = opts.StreamID
	}
	if opts.MarshalEnvelope != nil {
		cfg.marshalEnvelope = opts.MarshalEnvelope
	}
	return &Sink{client: opts.Client, opts: cfg}, nil
}

// Send publishes the event to the derived Pulse stream: encode the event,
// wrap it in the envelope with thread and run metadata, and Add it via the
// Pulse client. Run starts update the run id stamped on subsequent
// envelopes.
func (s *Sink) Send(ctx context.Context, ev protocol.Event) error {
	streamID, err := s.opts.streamID(ev)
	if err != nil {
		return err
	}
	handle, err := s.client.Stream(streamID)
	if err != nil {
		return err
	}
	encoded, err := protocol.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	env := Envelope{
		Type:      string(ev.Type()),
		ThreadID:  s.opts.threadID,
		RunID:     s.trackRun(ev),
		Timestamp: time.Now().UTC(),
		Event:     encoded,
	}
	payload, err := s.opts.marshalEnvelope(env)
	if err != nil {
		return err
	}
	if _, err := handle.Add(ctx, env.Type, payload); err != nil {
		return err
	}
	return nil
}

// Close delegates to the underlying Pulse client.
func (s *Sink) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// trackRun returns the run id to stamp on the envelope, updating it when the
// event starts a new run.
func (s *Sink) trackRun(ev protocol.Event) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if started, ok := ev.(protocol.RunStartedEvent); ok {
		s.runID = started.RunID
	}
	return s.runID
}

func defaultMarshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
