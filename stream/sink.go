// Package stream wires the translator pieces into a push-driven pipeline: a
// Sink abstraction for fanning decoded events out to transports, and a Pipe
// that drives an aggregator, the lineage store and the interrupt correlator
// from a live event feed.
package stream

import (
	"context"

	"goa.design/agui/protocol"
)

// Sink delivers protocol events to clients over a transport (SSE, WebSocket,
// Pulse). Implementations must be safe for concurrent use; the host may fan
// events out from several runs through one sink.
type Sink interface {
	// Send publishes one event. Implementations marshal the event into their
	// wire format and handle transport delivery semantics. Send errors
	// surface to the Pipe caller immediately rather than silently dropping
	// events.
	Send(ctx context.Context, ev protocol.Event) error

	// Close releases resources owned by the sink. Idempotent; after Close
	// returns, subsequent Send calls must return errors. The context bounds
	// graceful shutdown.
	Close(ctx context.Context) error
}

// NopSink returns a Sink that discards every event. Hosts that only want
// aggregation use it in place of a transport.
func NopSink() Sink { return nopSink{} }

type nopSink struct{}

func (nopSink) Send(context.Context, protocol.Event) error { return nil }
func (nopSink) Close(context.Context) error                { return nil }
