package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gomarketplace/internal/domain"
	"gomarketplace/pkg/prometheus"
)

// emitter hands cart events to the sink on its own goroutine, in mutation order.
type emitter struct {
	sink    EventSink
	timeout time.Duration
	events  chan domain.CartEvent
	stopped chan struct{}
	log     *slog.Logger
}

func newEmitter(sink EventSink, queueSize int, timeout time.Duration, log *slog.Logger) *emitter {
	return &emitter{
		sink:    sink,
		timeout: timeout,
		events:  make(chan domain.CartEvent, queueSize),
		stopped: make(chan struct{}),
		log:     log,
	}
}

func (e *emitter) start() {
	go e.run()
}

func (e *emitter) run() {
	defer close(e.stopped)

	for event := range e.events {
		e.publish(event)
	}
}

func (e *emitter) publish(event domain.CartEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.sink.Publish(ctx, event); err != nil {
		prometheus.CartEventsTotal.WithLabelValues("error").Inc()
		e.log.Warn("failed to publish cart event", "event_id", event.EventID, "op", event.Op, "error", err)
		return
	}
	prometheus.CartEventsTotal.WithLabelValues("success").Inc()
}

// send never blocks. Events are dropped while the queue is full.
func (e *emitter) send(event domain.CartEvent) {
	select {
	case e.events <- event:
	default:
		prometheus.CartEventsTotal.WithLabelValues("dropped").Inc()
		e.log.Warn("cart event queue full, dropping event", "event_id", event.EventID, "op", event.Op)
	}
}

func (e *emitter) stop(ctx context.Context) error {
	close(e.events)
	select {
	case <-e.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cart event drain timed out: %w", ctx.Err())
	}
}
