package pulse

import (
	"context"
	"errors"

	clientspulse "goa.design/agui/features/stream/pulse/clients/pulse"
	"goa.design/agui/stream"
)

// ThreadStreams wires a caller-provided Pulse client into the stream pipe.
// It owns a publishing sink (used by stream.NewPipe) and can spawn
// subscribers that reuse the same client so services do not need to manage
// multiple Pulse connections.
type ThreadStreams struct {
	sink   *Sink
	client clientspulse.Client
}

// ThreadStreamsOptions configures the helper returned by NewThreadStreams.
type ThreadStreamsOptions struct {
	// Client is the Pulse client used for both publishing and subscribing. It is
	// required and typically built via features/stream/pulse/clients/pulse.
	Client clientspulse.Client
	// Sink holds the publishing sink configuration. ThreadID is required;
	// StreamID and MarshalEnvelope default to the built-in implementations.
	Sink Options
}

// NewThreadStreams constructs helpers for publishing protocol events to
// Pulse and subscribing to the resulting streams. Callers pass the returned
// sink to the stream pipe and keep the helper around to create subscribers
// (e.g., SSE fan-out) later on.
func NewThreadStreams(opts ThreadStreamsOptions) (*ThreadStreams, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	sinkOpts := opts.Sink
	sinkOpts.Client = opts.Client
	sink, err := NewSink(sinkOpts)
	if err != nil {
		return nil, err
	}
	return &ThreadStreams{sink: sink, client: opts.Client}, nil
}

// Sink exposes the publishing sink so callers can pass it to the stream pipe.
func (r *ThreadStreams) Sink() stream.Sink {
	return r.sink
}

// NewSubscriber constructs a Pulse-backed subscriber that reuses the helper's
// client. This keeps stream publishing and consumption on the same Redis
// connection pool.
func (r *ThreadStreams) NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	opts.Client = r.client
	return NewSubscriber(opts)
}

// Close shuts down the publishing sink (and therefore the underlying Pulse
// client). Call this during service shutdown after all subscribers have been
// canceled.
func (r *ThreadStreams) Close(ctx context.Context) error {
	return r.sink.Close(ctx)
}
