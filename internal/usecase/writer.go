package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gomarketplace/pkg/prometheus"
)

// Completion reports the outcome of the persistence write scheduled by one
// mutation. It is safe to ignore.
type Completion struct {
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func completed(err error) *Completion {
	c := newCompletion()
	c.finish(err)
	return c
}

func (c *Completion) finish(err error) {
	c.err = err
	close(c.done)
}

func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the write finished or ctx is done. Cancelling ctx does
// not cancel the write.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err is nil until the write has finished.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

type writeJob struct {
	value string
	done  *Completion
}

// writer applies snapshots to the KV store one at a time in enqueue order.
type writer struct {
	kv      KVStore
	key     string
	timeout time.Duration
	jobs    chan writeJob
	stopped chan struct{}
	log     *slog.Logger
}

func newWriter(kv KVStore, key string, queueSize int, timeout time.Duration, log *slog.Logger) *writer {
	return &writer{
		kv:      kv,
		key:     key,
		timeout: timeout,
		jobs:    make(chan writeJob, queueSize),
		stopped: make(chan struct{}),
		log:     log,
	}
}

func (w *writer) start() {
	go w.run()
}

func (w *writer) run() {
	defer close(w.stopped)

	for job := range w.jobs {
		prometheus.PersistQueueLength.Set(float64(len(w.jobs)))
		job.done.finish(w.write(job.value))
	}
}

func (w *writer) write(value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	err := w.kv.Set(ctx, w.key, value)
	prometheus.ObservePersist(start, err)
	if err != nil {
		w.log.Error("failed to persist cart", "key", w.key, "error", err)
		return fmt.Errorf("persist cart: %w", err)
	}
	w.log.Debug("cart persisted", "key", w.key, "bytes", len(value),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// enqueue blocks while the queue is full.
func (w *writer) enqueue(job writeJob) {
	w.jobs <- job
	prometheus.PersistQueueLength.Set(float64(len(w.jobs)))
}

// stop drains the queue. Callers must not enqueue after stop.
func (w *writer) stop(ctx context.Context) error {
	close(w.jobs)
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cart writer drain timed out: %w", ctx.Err())
	}
}
