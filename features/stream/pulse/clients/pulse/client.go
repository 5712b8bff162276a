// Package pulse provides a thin wrapper around Pulse streams. Callers build
// a Redis client, pass it to New, and receive a typed interface that exposes
// only the operations the event sink needs.
package pulse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"
)

type (
	// Options configures the Pulse client.
	Options struct {
		// Redis is the Redis connection backing the Pulse streams. Required.
		Redis *redis.Client
		// StreamMaxLen bounds the number of entries kept per stream. Zero
		// uses Pulse defaults.
		StreamMaxLen int
		// StreamOptions returns additional stream options applied when
		// opening a stream, invoked once per Stream call with the stream
		// name. Nil means no additional options.
		StreamOptions func(name string) []streamopts.Stream
		// OperationTimeout bounds individual Add operations. Zero means no
		// timeout.
		OperationTimeout time.Duration
	}

	// Client exposes the subset of Pulse APIs required by the event sink.
	Client interface {
		// Stream returns a handle to the named Pulse stream, creating it if
		// needed.
		Stream(name string, opts ...streamopts.Stream) (Stream, error)
		// Close releases resources owned by the client. Callers typically own
		// the Redis connection; the default implementation is a no-op.
		Close(ctx context.Context) error
	}

	// Stream exposes the operations needed to publish events and create
	// consumer groups.
	Stream interface {
		// Add publishes an event with the given name and payload, returning
		// the Redis-assigned event id.
		Add(ctx context.Context, event string, payload []byte) (string, error)
		// NewSink creates a Pulse consumer group on this stream.
		NewSink(ctx context.Context, name string, opts ...streamopts.Sink) (Sink, error)
		// Destroy deletes the stream and all its messages from Redis.
		Destroy(ctx context.Context) error
	}

	// Sink mirrors the subset of Pulse streaming sinks required by readers.
	Sink interface {
		// Subscribe returns a channel emitting events as they arrive.
		Subscribe() <-chan *streaming.Event
		// Ack acknowledges successful processing of an event.
		Ack(context.Context, *streaming.Event) error
		// Close stops the sink and releases resources.
		Close(context.Context)
	}
)

type client struct {
	redis        *redis.Client
	maxLen       int
	streamOptsFn func(name string) []streamopts.Stream
	timeout      time.Duration
}

// New constructs a Pulse client backed by the provided Redis connection.
func New(opts Options) (Client, error) {
	if opts.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	return &client{
		redis:        opts.Redis,
		maxLen:       opts.StreamMaxLen,
		streamOptsFn: opts.StreamOptions,
		timeout:      opts.OperationTimeout,
	}, nil
}

// Stream returns a handle to the named Pulse stream, creating it if needed.
func (c *client) Stream(name string, opts ...streamopts.Stream) (Stream, error) {
	if name == "" {
		return nil, errors.New("stream name is required")
	}
	var streamOptions []streamopts.Stream
	if c.maxLen > 0 {
		streamOptions = append(streamOptions, streamopts.WithStreamMaxLen(c.maxLen))
	}
	if c.streamOptsFn != nil {
		streamOptions = append(streamOptions, c.streamOptsFn(name)...)
	}
	streamOptions = append(streamOptions, opts...)
	str, err := streaming.NewStream(name, c.redis, streamOptions...)
	if err != nil {
		return nil, fmt.Errorf("create pulse stream: %w", err)
	}
	return &handle{stream: str, timeout: c.timeout}, nil
}

// Close is a no-op; the caller owns the Redis connection lifecycle.
func (c *client) Close(context.Context) error {
	return nil
}

// handle wraps a Pulse stream and applies optional timeouts to operations.
type handle struct {
	stream  *streaming.Stream
	timeout time.Duration
}

// Add publishes an event to the stream with an optional timeout.
func (h *handle) Add(ctx context.Context, event string, payload []byte) (string, error) {
	if event == "" {
		return "", errors.New("event name is required")
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	id, err := h.stream.Add(ctx, event, payload)
	if err != nil {
		return "", fmt.Errorf("pulse add: %w", err)
	}
	return id, nil
}

// NewSink creates a consumer group on the stream.
func (h *handle) NewSink(ctx context.Context, name string, opts ...streamopts.Sink) (Sink, error) {
	sink, err := h.stream.NewSink(ctx, name, opts...)
	if err != nil {
		return nil, err
	}
	return &sinkAdapter{Sink: sink}, nil
}

// Destroy deletes the stream and all its messages from Redis.
func (h *handle) Destroy(ctx context.Context) error {
	return h.stream.Destroy(ctx)
}

// sinkAdapter adapts streaming.Sink to the Sink interface.
type sinkAdapter struct {
	*streaming.Sink
}

// Close delegates to the underlying Pulse sink.
func (s sinkAdapter) Close(ctx context.Context) {
	s.Sink.Close(ctx)
}
