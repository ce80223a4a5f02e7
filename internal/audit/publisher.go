package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink receives events. Implementations: KafkaSink for production,
// MemorySink for tests and dev wiring.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher hands events to a sink, either inline or through a buffered
// channel drained by a background goroutine. Async mode keeps audit
// emission off the lifecycle hot path.
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given
// channel capacity. Events are dropped (and logged) when the buffer is
// full rather than blocking the caller.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

// WithLogger sets the logger used for sink failures.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit records one event. In async mode the error only reflects handoff;
// sink failures are logged by the drain goroutine.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.sink.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
		return nil
	}
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.sink.Append(context.Background(), event); err != nil {
			p.logger.Warn("audit sink append failed", "action", event.Action, "error", err)
		}
	}
}

// Close drains the async buffer and stops the background goroutine.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}
