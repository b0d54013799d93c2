package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

type mockSink struct {
	mu     sync.Mutex
	sent   []string
	failOn map[string]error
}

func newMockSink() *mockSink {
	return &mockSink{failOn: make(map[string]error)}
}

func (s *mockSink) Send(_ context.Context, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOn[n.ID]; ok {
		return err
	}
	s.sent = append(s.sent, n.ID)
	return nil
}

func (s *mockSink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func note(id string) model.Notification {
	return model.Notification{ID: id, Kind: model.NotifyProgress, LeaderboardID: "lb", UserID: "u1"}
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		sink := newMockSink()
		pool := worker.NewPool(3, q, sink)
		pool.Start(ctx)

		convey.Convey("When notifications are queued and the pool shuts down", func() {
			for _, id := range []string{"a", "b", "c", "d"} {
				convey.So(q.Enqueue(ctx, note(id)), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every queued notification is delivered", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sink.delivered(), convey.ShouldHaveLength, 4)
				convey.So(q.Enqueue(ctx, note("late")), convey.ShouldEqual, queue.ErrClosed)
			})
		})

		convey.Convey("When a delivery fails", func() {
			sink.failOn["bad"] = errors.New("nats down")
			convey.So(q.Enqueue(ctx, note("bad")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, note("good")), convey.ShouldBeNil)
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then the worker keeps going", func() {
				convey.So(sink.delivered(), convey.ShouldResemble, []string{"good"})
			})
		})
	})
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a single worker", t, func() {
		q := queue.NewInMemoryQueue()
		sink := newMockSink()
		w := worker.NewInMemoryWorker(q, sink, worker.WithName("test-worker"), worker.WithSendTimeout(time.Second))

		convey.Convey("When its context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			convey.Convey("Then it returns", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
				}
				_, open := <-w.Done()
				convey.So(open, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When it is stopped", func() {
			go w.Run(context.Background())
			w.Stop()
			w.Stop()

			convey.Convey("Then it returns and a second stop is harmless", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
				}
				_, open := <-w.Done()
				convey.So(open, convey.ShouldBeFalse)
			})
		})
	})
}
