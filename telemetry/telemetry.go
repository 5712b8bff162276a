// Package telemetry defines the small observability facade used by the
// stream driver and the feature backends: structured logging, counters and
// timers, and span creation. Production wiring delegates to Clue and
// OpenTelemetry; the no-op implementations serve tests and hosts that bring
// their own instrumentation.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger captures structured logging. The interface is intentionally
	// small so tests can provide lightweight stubs.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics exposes counter and histogram helpers. Tags are flat
	// key-value string pairs.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, duration time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer abstracts span creation so translator code stays agnostic of
	// the underlying OpenTelemetry provider.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
		Span(ctx context.Context) Span
	}

	// Span is the subset of the OTEL span surface the translator uses.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, attrs ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}
)
