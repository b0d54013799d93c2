package progress_test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/adapters/cache/keys"
	"github.com/okian/podium/internal/adapters/cache/progress"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recorder) Publish(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

var config = rules.PointConfig{
	"WIN": {
		Rules:  []rules.Rule{{Points: rules.Fixed(10)}, {Count: rules.Count(3), Points: rules.Fixed(50)}, {Count: rules.Count(5), Points: rules.Fixed(100)}},
		Resets: []string{"LOSS"},
	},
	"LOSS": {
		Rules:  []rules.Rule{{Count: rules.Count(2), Points: rules.Fixed(-5)}},
		Resets: []string{"WIN"},
	},
	"PLAY": {
		Rules: []rules.Rule{{Points: rules.Fixed(1)}},
	},
}

func TestTracker(t *testing.T) {
	Convey("Given a tracker with a notifier", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		rec := &recorder{}
		tr := progress.New(client, progress.WithNotifier(rec))
		So(client.SAdd(ctx, keys.New("").For("lb").Events, "WIN", "LOSS").Err(), ShouldBeNil)

		Convey("When an event is counted twice", func() {
			_, err := tr.Increment(ctx, "lb", "u1", "WIN", nil)
			So(err, ShouldBeNil)
			n, err := tr.Increment(ctx, "lb", "u1", "WIN", nil)

			Convey("Then the count grows and each step is published", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				So(rec.sent, ShouldHaveLength, 2)
				So(rec.sent[1].Kind, ShouldEqual, model.NotifyProgress)
				So(rec.sent[1].Counts["WIN"], ShouldEqual, 2)
			})
		})

		Convey("When an event resets another", func() {
			for range 3 {
				_, err := tr.Increment(ctx, "lb", "u1", "WIN", nil)
				So(err, ShouldBeNil)
			}
			n, err := tr.Increment(ctx, "lb", "u1", "LOSS", []string{"WIN"})

			Convey("Then the reset counter reads zero", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				counts, err := tr.Counts(ctx, "lb", "u1", []string{"WIN", "LOSS", "PLAY"})
				So(err, ShouldBeNil)
				So(counts, ShouldResemble, map[string]int64{"WIN": 0, "LOSS": 1, "PLAY": 0})
			})
		})

		Convey("When reading progress for every event", func() {
			for range 3 {
				_, err := tr.Increment(ctx, "lb", "u1", "WIN", nil)
				So(err, ShouldBeNil)
			}
			got, err := tr.Get(ctx, "lb", "u1", config, "")

			Convey("Then events without milestones are omitted", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].EventName, ShouldEqual, "LOSS")
				So(got[1].EventName, ShouldEqual, "WIN")
				So(got[1].Count, ShouldEqual, 3)
				So(got[1].Milestones, ShouldResemble, []model.Milestone{{Count: 3, Reached: true}, {Count: 5, Reached: false}})
			})
		})

		Convey("When reading progress for one event", func() {
			got, err := tr.Get(ctx, "lb", "u1", config, "WIN")

			Convey("Then only that event is reported", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].EventName, ShouldEqual, "WIN")
			})

			Convey("Then an unknown event reports nothing", func() {
				got, err := tr.Get(ctx, "lb", "u1", config, "NOPE")
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When a user's progress is reset", func() {
			_, err := tr.Increment(ctx, "lb", "u1", "WIN", nil)
			So(err, ShouldBeNil)
			_, err = tr.Increment(ctx, "lb", "u2", "WIN", nil)
			So(err, ShouldBeNil)
			So(tr.Reset(ctx, "lb", "u1"), ShouldBeNil)

			Convey("Then only that user's counters are zeroed", func() {
				c1, err := tr.Counts(ctx, "lb", "u1", []string{"WIN"})
				So(err, ShouldBeNil)
				So(c1["WIN"], ShouldEqual, 0)
				c2, err := tr.Counts(ctx, "lb", "u2", []string{"WIN"})
				So(err, ShouldBeNil)
				So(c2["WIN"], ShouldEqual, 1)
			})
		})
	})
}
