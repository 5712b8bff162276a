package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"

	"goa.design/agui/aggregator"
	"goa.design/agui/content"
	"goa.design/agui/interrupt"
	"goa.design/agui/lineage"
	"goa.design/agui/protocol"
	"goa.design/agui/telemetry"
)

type (
	// ItemHandler receives aggregated content items in stream order. A
	// handler error aborts the Feed call; the aggregator state is unchanged
	// for the remaining items of the event.
	ItemHandler func(ctx context.Context, item content.Item) error

	// Option configures a Pipe.
	Option func(*Pipe)

	// Pipe drives the translator from a live event feed: each event is fanned
	// out to the sink, run through the aggregator, and its side effects
	// (lineage records, pending interrupts) applied. A Pipe serves one event
	// stream; feed it from a single goroutine. Resume may be called from any
	// goroutine.
	Pipe struct {
		agg     *aggregator.Aggregator
		corr    *interrupt.Correlator
		lin     lineage.Store
		sink    Sink
		handler ItemHandler
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
		now     func() time.Time

		// runSpan brackets the current run, opened on the started signal and
		// ended on the terminal signal (or superseded by the next run start).
		runSpan telemetry.Span
	}
)

// WithItemHandler sets the callback receiving aggregated content items.
// Without one, items are dropped after their side effects apply.
func WithItemHandler(h ItemHandler) Option {
	return func(p *Pipe) { p.handler = h }
}

// WithLogger overrides the logger. Defaults to the Clue-backed logger.
func WithLogger(l telemetry.Logger) Option {
	return func(p *Pipe) { p.logger = l }
}

// WithMetrics overrides the metrics recorder. Defaults to no-op.
func WithMetrics(m telemetry.Metrics) Option {
	return func(p *Pipe) { p.metrics = m }
}

// WithTracer overrides the tracer used to bracket runs in spans. Defaults to
// no-op.
func WithTracer(tr telemetry.Tracer) Option {
	return func(p *Pipe) { p.tracer = tr }
}

// WithClock overrides the clock used for lineage timestamps. Tests inject a
// fixed clock here.
func WithClock(now func() time.Time) Option {
	return func(p *Pipe) { p.now = now }
}

// NewPipe wires an aggregator, interrupt correlator, lineage store and sink
// into a push driver. A nil sink means no fan-out.
func NewPipe(agg *aggregator.Aggregator, corr *interrupt.Correlator, lin lineage.Store, sink Sink, opts ...Option) *Pipe {
	if sink == nil {
		sink = NopSink()
	}
	p := &Pipe{
		agg:     agg,
		corr:    corr,
		lin:     lin,
		sink:    sink,
		logger:  telemetry.NewClueLogger(),
		metrics: telemetry.NewNoopMetrics(),
		tracer:  telemetry.NewNoopTracer(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed processes the next event in stream order: fan out to the sink, run
// through the aggregator, record lineage on run start, record the pending
// interrupt on an interrupted finish, and hand aggregated items to the
// handler. Sequence errors are logged and returned; the aggregator stays
// poisoned until the next run start, so callers may keep feeding.
func (p *Pipe) Feed(ctx context.Context, ev protocol.Event) error {
	p.metrics.IncCounter("agui.pipe.events", 1, "type", string(ev.Type()))
	if err := p.sink.Send(ctx, ev); err != nil {
		return fmt.Errorf("stream: sink send: %w", err)
	}
	emit, err := p.agg.Feed(ev)
	if err != nil {
		var serr *aggregator.SequenceError
		if errors.As(err, &serr) {
			p.metrics.IncCounter("agui.pipe.sequence_errors", 1, "kind", string(serr.Kind))
			p.logger.Warn(ctx, "sequence violation",
				"kind", string(serr.Kind),
				"event", string(serr.EventType),
				"run_id", serr.RunID,
				"entity_id", serr.EntityID)
		}
		return err
	}
	if emit.Signal != nil {
		if err := p.applySignal(ctx, emit.Signal); err != nil {
			return err
		}
	}
	if p.handler != nil {
		for _, item := range emit.Items {
			if err := p.handler(ctx, item); err != nil {
				return fmt.Errorf("stream: item handler: %w", err)
			}
		}
	}
	return nil
}

// Resume validates a resume request against the correlator and returns the
// matched pending interrupt. The run input must carry a resume with an
// interrupt id; interrupt.ErrNotFound surfaces unwrapped for errors.Is.
func (p *Pipe) Resume(_ context.Context, input protocol.RunInput) (interrupt.Pending, error) {
	if input.Resume == nil {
		return interrupt.Pending{}, fmt.Errorf("stream: run input carries no resume")
	}
	return p.corr.MatchResume(*input.Resume)
}

// Close ends any in-flight run span and closes the underlying sink.
func (p *Pipe) Close(ctx context.Context) error {
	p.endRunSpan(codes.Unset, "")
	return p.sink.Close(ctx)
}

func (p *Pipe) applySignal(ctx context.Context, sig *aggregator.RunSignal) error {
	switch sig.Phase {
	case aggregator.PhaseStarted:
		p.endRunSpan(codes.Unset, "")
		_, p.runSpan = p.tracer.Start(ctx, "pipe.run")
		p.logger.Info(ctx, "run started",
			"thread_id", sig.ThreadID, "run_id", sig.RunID, "parent_run_id", sig.ParentRunID)
		if p.lin == nil {
			return nil
		}
		err := p.lin.RecordRun(ctx, lineage.Record{
			ThreadID:    sig.ThreadID,
			RunID:       sig.RunID,
			ParentRunID: sig.ParentRunID,
			StartedAt:   p.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("stream: record lineage: %w", err)
		}
	case aggregator.PhaseInterrupted:
		p.endRunSpan(codes.Ok, "interrupted")
		p.logger.Info(ctx, "run interrupted",
			"thread_id", sig.ThreadID, "run_id", sig.RunID)
		if p.corr == nil || sig.Interrupt == nil {
			return nil
		}
		if sig.Interrupt.ID == "" {
			// Valid on the wire, just not resumable by id.
			p.logger.Warn(ctx, "interrupt carries no id, resume correlation skipped",
				"run_id", sig.RunID)
			return nil
		}
		displaced, err := p.corr.RecordInterrupt(sig.RunID, *sig.Interrupt)
		if err != nil {
			return fmt.Errorf("stream: record interrupt: %w", err)
		}
		if displaced != nil {
			p.logger.Warn(ctx, "pending interrupt displaced",
				"run_id", sig.RunID, "interrupt_id", displaced.ID)
		}
	case aggregator.PhaseFinished:
		p.endRunSpan(codes.Ok, "")
		p.logger.Info(ctx, "run finished",
			"thread_id", sig.ThreadID, "run_id", sig.RunID)
	case aggregator.PhaseFailed:
		p.endRunSpan(codes.Error, sig.ErrorMessage)
		p.logger.Error(ctx, "run failed",
			"thread_id", sig.ThreadID, "run_id", sig.RunID,
			"error_code", sig.ErrorCode, "error_message", sig.ErrorMessage)
	}
	return nil
}

// endRunSpan closes the current run span, if any, with the given status.
func (p *Pipe) endRunSpan(code codes.Code, description string) {
	if p.runSpan == nil {
		return
	}
	p.runSpan.SetStatus(code, description)
	p.runSpan.End()
	p.runSpan = nil
}
