package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"verity/pkg/platform/circuit"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 5 * time.Second
)

// Dispatcher queues events in a bounded buffer and delivers them from a single
// background worker. When the buffer is full new events are dropped. While the
// sink's breaker is open events are dropped without calling the sink.
type Dispatcher struct {
	sink        Sink
	queue       chan Event
	breaker     *circuit.Breaker
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *Metrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(d *Dispatcher) { d.breaker = b }
}

func WithSendTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.sendTimeout = t
		}
	}
}

// NewDispatcher starts the delivery worker. Close stops it after draining.
func NewDispatcher(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:        sink,
		queue:       make(chan Event, defaultQueueSize),
		sendTimeout: defaultSendTimeout,
		logger:      slog.Default(),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.breaker == nil {
		d.breaker = circuit.New("notification-sink", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(1))
	}
	go d.run()
	return d
}

// Publish enqueues e without blocking.
func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.incDropped("closed")
		return
	}
	select {
	case d.queue <- e:
	default:
		d.metrics.incDropped("queue_full")
		d.logger.WarnContext(ctx, "notification queue full, event dropped",
			"event_type", e.Type,
			"application_id", e.ApplicationID,
		)
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// worker, or until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	if !d.breaker.Allow() {
		d.metrics.incDropped("circuit_open")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sink.Send(ctx, e); err != nil {
		_, change := d.breaker.RecordFailure()
		d.metrics.incFailure(e.Type)
		if change.Opened {
			d.metrics.setBreakerOpen(true)
			d.logger.Warn("notification sink circuit opened", "breaker", d.breaker.Name())
		}
		d.logger.Error("notification delivery failed",
			"event_type", e.Type,
			"application_id", e.ApplicationID,
			"error", err,
		)
		return
	}
	if _, change := d.breaker.RecordSuccess(); change.Closed {
		d.metrics.setBreakerOpen(false)
		d.logger.Info("notification sink circuit closed", "breaker", d.breaker.Name())
	}
	d.metrics.incDelivered(e.Type)
}
