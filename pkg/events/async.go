package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"rentals/pkg/logger"
)

var (
	ErrQueueFull       = errors.New("event queue is full")
	ErrPublisherClosed = errors.New("event publisher is closed")
)

type pendingEvent struct {
	ctx   context.Context
	event Event
}

// AsyncPublisher queues events for a single background worker, so Publish never
// waits on the broker. Each event is published under its own timeout, detached
// from the request that produced it. One worker keeps publish order.
type AsyncPublisher struct {
	next    Publisher
	log     *logger.Logger
	timeout time.Duration
	queue   chan pendingEvent
	done    chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func NewAsyncPublisher(next Publisher, log *logger.Logger, timeout time.Duration, queueSize int) *AsyncPublisher {
	p := &AsyncPublisher{
		next:    next,
		log:     log,
		timeout: timeout,
		queue:   make(chan pendingEvent, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues the event and returns at once. It fails with ErrQueueFull
// instead of blocking when the worker falls behind.
func (p *AsyncPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- pendingEvent{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)

	for pending := range p.queue {
		ctx, cancel := context.WithTimeout(pending.ctx, p.timeout)
		err := p.next.Publish(ctx, pending.event)
		cancel()

		if err != nil {
			p.log.Warn("Failed to publish domain event",
				"event_type", pending.event.Type,
				"aggregate_id", pending.event.AggregateID,
				"error", err,
			)
		}
	}
}

// Close stops accepting events, waits for the queued ones, then closes the
// underlying publisher.
func (p *AsyncPublisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		<-p.done
		p.closeErr = p.next.Close()
	})
	return p.closeErr
}
