// Package queue is a bounded in-memory queue of outbound notifications.
//
// Enqueue never blocks: when the queue is full the notification is dropped
// and counted, so callers on the request path are never held up by slow
// delivery.
package queue

import (
	"context"
	"sync"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

const defaultCapacity = 10000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notification. It returns ErrFull or ErrClosed when the
	// notification was not accepted.
	Enqueue(ctx context.Context, n model.Notification) error

	// Dequeue returns the channel notifications are delivered on. It is
	// closed once the queue is closed and drained.
	Dequeue() <-chan model.Notification

	// Len returns the number of queued notifications.
	Len() int

	// Close stops accepting notifications.
	Close() error
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	items    chan model.Notification
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Notification, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a notification without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n model.Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDropped("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueDropped("context_cancelled")
		return err
	}

	select {
	case q.items <- n:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueDropped("full")
		return ErrFull
	}
}

// Dequeue returns the delivery channel.
func (q *InMemoryQueue) Dequeue() <-chan model.Notification {
	return q.items
}

// Len returns the number of queued notifications.
func (q *InMemoryQueue) Len() int {
	q.observe()
	return len(q.items)
}

// Close stops accepting notifications. Queued notifications stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
