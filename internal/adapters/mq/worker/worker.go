// Package worker drains the notification queue into a delivery sink.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	defaultSendTimeout  = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Sink delivers one notification.
type Sink interface {
	Send(ctx context.Context, n model.Notification) error
}

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue() <-chan model.Notification
}

// InMemoryWorker reads notifications off the queue and hands them to the sink.
type InMemoryWorker struct {
	queue       Queue
	sink        Sink
	name        string
	sendTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(queue Queue, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		sink:        sink,
		name:        "worker",
		sendTimeout: defaultSendTimeout,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.GetOrNop().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run delivers notifications until the queue is closed and drained, ctx is
// cancelled, or Stop is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-items:
			if !ok {
				return
			}
			if err := w.deliver(ctx, n); err != nil {
				w.logger.Warn(ctx, "notification delivery failed",
					logger.String("id", n.ID), logger.String("kind", string(n.Kind)), logger.Error(err))
			}
		}
	}
}

// Stop makes Run return without draining the queue.
func (w *InMemoryWorker) Stop() {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
}

// Done is closed when Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) deliver(ctx context.Context, n model.Notification) error {
	start := time.Now()
	defer func() { metrics.RecordWorkerLatency(metrics.Since(start)) }()

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	err := w.sink.Send(sendCtx, n)
	metrics.RecordNotification(string(n.Kind), err == nil)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "send_failed")
		return fmt.Errorf("send %s: %w", n.ID, err)
	}
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool. A count below one means one worker per CPU.
func NewPool(workerCount int, queue Queue, sink Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.GetOrNop().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(queue, sink, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it. Workers
// still running when ctx expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			w.Stop()
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
