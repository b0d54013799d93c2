package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// Dispatcher accepts notifications without blocking and delivers them in
// the background.
type Dispatcher struct {
	queue  *queue.InMemoryQueue
	pool   *worker.Pool
	now    func() time.Time
	logger logger.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	capacity    int
	workers     int
	sendTimeout time.Duration
	logger      logger.Logger
}

// WithQueueSize bounds the number of pending notifications.
func WithQueueSize(n int) DispatcherOption {
	return func(c *dispatcherConfig) { c.capacity = n }
}

// WithWorkers sets how many workers deliver concurrently.
func WithWorkers(n int) DispatcherOption {
	return func(c *dispatcherConfig) { c.workers = n }
}

// WithSendTimeout bounds a single delivery.
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) { c.sendTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) DispatcherOption {
	return func(c *dispatcherConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher delivering into sink. Call Start before
// publishing.
func NewDispatcher(sink worker.Sink, opts ...DispatcherOption) *Dispatcher {
	cfg := dispatcherConfig{workers: 2, logger: logger.GetOrNop().Named("notify")}
	for _, opt := range opts {
		opt(&cfg)
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.capacity))
	return &Dispatcher{
		queue:  q,
		pool:   worker.NewPool(cfg.workers, q, sink, worker.WithSendTimeout(cfg.sendTimeout), worker.WithLogger(cfg.logger)),
		now:    time.Now,
		logger: cfg.logger,
	}
}

// Start launches the workers. Cancelling ctx does not stop them; they run
// until Shutdown has drained the queue or its deadline passes.
func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(context.WithoutCancel(ctx))
}

// Publish enqueues n, filling in its id and timestamp when unset. A full
// queue drops the notification; the drop is logged and counted but not
// returned, so award paths never fail on delivery.
func (d *Dispatcher) Publish(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now().UTC()
	}
	err := d.queue.Enqueue(ctx, n)
	if errors.Is(err, queue.ErrFull) {
		d.logger.Warn(ctx, "notification dropped",
			logger.String("kind", string(n.Kind)),
			logger.String("leaderboard_id", n.LeaderboardID),
			logger.String("user_id", n.UserID))
		return nil
	}
	return err
}

// Pending returns the number of queued notifications.
func (d *Dispatcher) Pending() int { return d.queue.Len() }

// Shutdown stops accepting notifications and waits for the queue to drain.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	return d.pool.Shutdown(ctx)
}
