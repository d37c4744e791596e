package audit

import (
	"context"
	"errors"
	"log/slog"

	"agegate/pkg/requestcontext"
)

// Sink receives audit events. Writes must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, event Event) error
	Close() error
}

// Publisher fans events out to its sinks. Audit is best effort: a sink
// failure is logged and counted but never fails the calling operation.
// A nil *Publisher discards events.
type Publisher struct {
	sinks   []Sink
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps the event with the request time and request ID when they are
// missing and writes it to every sink.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, event); err != nil {
			p.metrics.IncFailures()
			p.logger.WarnContext(ctx, "audit sink write failed",
				"action", event.Action,
				"cart_id", event.CartID,
				"request_id", event.RequestID,
				"error", err,
			)
			continue
		}
		p.metrics.IncEmitted(event.Action)
	}
}

// Close closes every sink and returns their joined errors.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, sink := range p.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
