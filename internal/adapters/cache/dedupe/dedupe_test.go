package dedupe_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/adapters/cache/dedupe"
	"github.com/okian/podium/internal/adapters/cache/keys"
)

func TestDeduper(t *testing.T) {
	Convey("Given a deduper over a cache", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = client.Close() }()
		ctx := context.Background()
		d := dedupe.New(client, keys.New(""), time.Hour)

		Convey("When a key is recorded", func() {
			seen, err := d.SeenAndRecord(ctx, "weekly", "req-1")
			So(err, ShouldBeNil)

			Convey("Then the first call should be fresh and the second seen", func() {
				So(seen, ShouldBeFalse)
				again, err := d.SeenAndRecord(ctx, "weekly", "req-1")
				So(err, ShouldBeNil)
				So(again, ShouldBeTrue)
			})

			Convey("Then the same key on another leaderboard should be fresh", func() {
				other, err := d.SeenAndRecord(ctx, "daily", "req-1")
				So(err, ShouldBeNil)
				So(other, ShouldBeFalse)
			})

			Convey("Then it should carry the TTL", func() {
				So(mr.TTL("podium:lb:{weekly}:award:req-1"), ShouldEqual, time.Hour)
			})

			Convey("Then unrecording should allow a retry", func() {
				So(d.Unrecord(ctx, "weekly", "req-1"), ShouldBeNil)
				retry, err := d.SeenAndRecord(ctx, "weekly", "req-1")
				So(err, ShouldBeNil)
				So(retry, ShouldBeFalse)
			})

			Convey("Then it should be forgotten after the TTL", func() {
				mr.FastForward(time.Hour + time.Second)
				later, err := d.SeenAndRecord(ctx, "weekly", "req-1")
				So(err, ShouldBeNil)
				So(later, ShouldBeFalse)
			})
		})

		Convey("When the cache is down", func() {
			mr.Close()
			_, err := d.SeenAndRecord(ctx, "weekly", "req-2")

			Convey("Then the error should surface", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
