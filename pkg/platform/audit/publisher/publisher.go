// Package publisher provides the async audit event pipeline. Events are
// queued on a buffered channel and drained by a background goroutine that
// persists them and, when a sink is configured, streams them to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"credverse/pkg/platform/audit"
)

// Sink streams serialized audit events to an external system.
type Sink interface {
	Produce(ctx context.Context, key, value []byte) error
}

// Publisher implements audit.Publisher. Publish never blocks the caller:
// when the buffer is full the event is dropped and counted in the log.
type Publisher struct {
	store  audit.Store
	sink   Sink
	events chan audit.Event
	wg     sync.WaitGroup
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithSink attaches an external sink, typically the Kafka producer.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		p.sink = sink
	}
}

// WithLogger sets the logger used for drain errors.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithBuffer overrides the default channel capacity of 256.
func WithBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan audit.Event, size)
		}
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		events: make(chan audit.Event, 256),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(1)
	go p.drain()
	return p
}

// Publish queues an event for persistence. It never returns an error so
// audit failures cannot fail the operation being audited.
func (p *Publisher) Publish(_ context.Context, event audit.Event) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("audit buffer full, event dropped",
			"action", event.Action,
			"issuer_id", event.IssuerID,
		)
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.events {
		ctx := context.Background()
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"issuer_id", event.IssuerID,
			)
		}
		if p.sink != nil {
			p.forward(ctx, event)
		}
	}
}

func (p *Publisher) forward(ctx context.Context, event audit.Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode audit event", "error", err)
		return
	}
	if err := p.sink.Produce(ctx, []byte(event.IssuerID), value); err != nil {
		p.logger.Error("failed to stream audit event",
			"error", err,
			"action", event.Action,
		)
	}
}

// Close stops accepting events and waits for the queue to drain.
func (p *Publisher) Close() {
	close(p.events)
	p.wg.Wait()
}
