package service_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/adapters/cache/dedupe"
	"github.com/okian/podium/internal/adapters/cache/identity"
	"github.com/okian/podium/internal/adapters/cache/keys"
	"github.com/okian/podium/internal/adapters/cache/progress"
	"github.com/okian/podium/internal/adapters/cache/ranking"
	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/score"
	"github.com/okian/podium/internal/domain/rules"
	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeAwarder struct {
	mu    sync.Mutex
	calls []model.AwardRecord
	err   error
}

func (a *fakeAwarder) Award(_ context.Context, id, userID string, rank int64, prizes model.Prizes) (model.AwardRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return model.AwardRecord{}, a.err
	}
	rec := model.AwardRecord{ID: userID + "-award", LeaderboardID: id, UserID: userID, Rank: rank, Prizes: prizes}
	a.calls = append(a.calls, rec)
	return rec, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (n *fakeNotifier) Publish(_ context.Context, m model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return nil
}

func (n *fakeNotifier) kinds() []model.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.NotificationKind, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.Kind
	}
	return out
}

type harness struct {
	svc      *service.Service
	repo     *repository.MemoryRepository
	mr       *miniredis.Miniredis
	awarder  *fakeAwarder
	notifier *fakeNotifier
	profiles *identity.Resolver
}

func newHarness(t *testing.T) *harness {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	k := keys.New("")
	h := &harness{
		repo:     repository.NewMemoryRepository(),
		mr:       mr,
		awarder:  &fakeAwarder{},
		notifier: &fakeNotifier{},
		profiles: identity.New(client, k),
	}
	store := ranking.New(client, ranking.WithKeys(k), ranking.WithLockRetries(500, 2*time.Millisecond))
	tracker := progress.New(client, progress.WithKeys(k), progress.WithNotifier(h.notifier))
	h.svc = service.New(h.repo, store, tracker,
		service.WithIdentity(h.profiles),
		service.WithNotifier(h.notifier),
		service.WithAwarder(h.awarder),
		service.WithDeduper(dedupe.New(client, k, time.Hour)),
		service.WithDefaultCountry("GB"),
		service.WithPersistBatchSize(2),
	)
	return h
}

func winConfig() rules.PointConfig {
	return rules.PointConfig{
		"WIN": {Rules: []rules.Rule{
			{Points: rules.Input()},
			{Points: rules.Input(), Count: rules.Count(2), Multiplier: rules.Factor(2)},
		}},
		"KILL": {Rules: []rules.Rule{{Points: rules.Fixed(10)}}},
		"QUEST": {
			Rules:  []rules.Rule{{Points: rules.Fixed(0)}, {Points: rules.Fixed(25), Count: rules.Count(3)}},
			Resets: []string{"KILL"},
		},
	}
}

func f(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

func userIDs(es []model.Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.UserID
	}
	return out
}

func TestServiceAward(t *testing.T) {
	Convey("Given an active leaderboard with a point configuration", t, func() {
		ctx := context.Background()
		h := newHarness(t)
		info, err := h.svc.AddLeaderboard(ctx, model.NewLeaderboard{ID: "cup", Type: "weekly", PointConfig: winConfig()})
		So(err, ShouldBeNil)
		So(info.State(), ShouldEqual, model.StateActive)
		create := model.AwardOptions{CreateEntry: true, Notify: true}

		Convey("When a user wins twice with input 50", func() {
			first, err := h.svc.Award(ctx, "cup", "u1", "WIN", f(50), create)
			So(err, ShouldBeNil)
			second, err := h.svc.Award(ctx, "cup", "u1", "WIN", f(50), create)
			So(err, ShouldBeNil)

			Convey("Then the second win matches the count rule and doubles", func() {
				So(first.Points, ShouldEqual, 50)
				So(second.Matched, ShouldBeTrue)
				So(second.Awarded, ShouldBeTrue)
				So(second.EventCount, ShouldEqual, 2)
				So(second.Points, ShouldEqual, 100)
				So(second.Result.Points, ShouldEqual, 150)
				So(second.Result.Rank, ShouldEqual, 1)
			})

			Convey("Then the durable store mirrors the score", func() {
				got, err := h.repo.Get(ctx, "cup", 0, 0)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].Points, ShouldEqual, 150)
			})

			Convey("Then the entry reads back hydrated", func() {
				e, err := h.svc.GetEntry(ctx, "cup", "u1")
				So(err, ShouldBeNil)
				So(e.RunningPoints, ShouldEqual, 150)
				So(e.Active, ShouldBeTrue)
				So(e.DisplayName, ShouldEqual, "Anonymous")
				So(e.Country, ShouldEqual, "GB")
			})

			Convey("Then progress and points notifications were pushed", func() {
				So(h.notifier.kinds(), ShouldContain, model.NotifyPoints)
				So(h.notifier.kinds(), ShouldContain, model.NotifyProgress)
			})
		})

		Convey("Then an unconfigured event is reported unmatched", func() {
			res, err := h.svc.Award(ctx, "cup", "u1", "LOSE", nil, create)
			So(err, ShouldBeNil)
			So(res.Matched, ShouldBeFalse)
			So(res.Awarded, ShouldBeFalse)
		})

		Convey("Then a zero-point rule matches without awarding", func() {
			res, err := h.svc.Award(ctx, "cup", "u1", "QUEST", nil, create)
			So(err, ShouldBeNil)
			So(res.Matched, ShouldBeTrue)
			So(res.Awarded, ShouldBeFalse)
			So(res.EventCount, ShouldEqual, 1)
		})

		Convey("Then a non-integer input is rejected", func() {
			_, err := h.svc.Award(ctx, "cup", "u1", "WIN", f(1.5), create)
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("Then a missing entry is not created unless asked", func() {
			_, err := h.svc.Award(ctx, "cup", "ghost", "KILL", nil, model.AwardOptions{})
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then a missing leaderboard is not found", func() {
			_, err := h.svc.Award(ctx, "nope", "u1", "KILL", nil, create)
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})

		Convey("When an award is retried with the same idempotency key", func() {
			keyed := create
			keyed.IdempotencyKey = "req-1"
			first, err := h.svc.Award(ctx, "cup", "u1", "KILL", nil, keyed)
			So(err, ShouldBeNil)
			again, err := h.svc.Award(ctx, "cup", "u1", "KILL", nil, keyed)
			So(err, ShouldBeNil)

			Convey("Then the retry is a duplicate and points land once", func() {
				So(first.Awarded, ShouldBeTrue)
				So(again.Duplicate, ShouldBeTrue)
				So(again.Awarded, ShouldBeFalse)
				e, err := h.svc.GetEntry(ctx, "cup", "u1")
				So(err, ShouldBeNil)
				So(e.Points, ShouldEqual, 10)
			})

			Convey("Then a different key is applied", func() {
				keyed.IdempotencyKey = "req-2"
				res, err := h.svc.Award(ctx, "cup", "u1", "KILL", nil, keyed)
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
				So(res.Result.Points, ShouldEqual, 20)
			})
		})

		Convey("When a keyed award fails", func() {
			keyed := model.AwardOptions{IdempotencyKey: "req-ghost"}
			_, err := h.svc.Award(ctx, "cup", "ghost", "KILL", nil, keyed)
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)

			Convey("Then the key is forgotten and a retry applies", func() {
				keyed.CreateEntry = true
				res, err := h.svc.Award(ctx, "cup", "ghost", "KILL", nil, keyed)
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
				So(res.Awarded, ShouldBeTrue)
			})
		})

		Convey("When the same user is awarded concurrently", func() {
			_, err := h.svc.AddEntry(ctx, "cup", "racer")
			So(err, ShouldBeNil)

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i := range 2 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = h.svc.Award(ctx, "cup", "racer", "KILL", nil, model.AwardOptions{})
				}()
			}
			wg.Wait()

			Convey("Then both awards land", func() {
				So(errs[0], ShouldBeNil)
				So(errs[1], ShouldBeNil)
				e, err := h.svc.GetEntry(ctx, "cup", "racer")
				So(err, ShouldBeNil)
				So(e.RunningPoints, ShouldEqual, 20)
				So(e.Points, ShouldEqual, 20)
			})
		})
	})
}

func TestServiceProgress(t *testing.T) {
	Convey("Given a leaderboard with milestone rules", t, func() {
		ctx := context.Background()
		h := newHarness(t)
		_, err := h.svc.AddLeaderboard(ctx, model.NewLeaderboard{ID: "cup", Type: "daily", PointConfig: winConfig()})
		So(err, ShouldBeNil)
		_, err = h.svc.AddEntry(ctx, "cup", "u1")
		So(err, ShouldBeNil)

		Convey("When progress is incremented", func() {
			for range 3 {
				_, err := h.svc.IncrementProgress(ctx, "cup", "u1", "QUEST")
				So(err, ShouldBeNil)
			}

			Convey("Then the milestone is reached", func() {
				got, err := h.svc.GetProgress(ctx, "cup", "u1", "QUEST")
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].Count, ShouldEqual, 3)
				So(got[0].Milestones, ShouldResemble, []model.Milestone{{Count: 3, Reached: true}})
			})

			Convey("Then a reset zeroes it", func() {
				So(h.svc.ResetProgress(ctx, "cup", "u1"), ShouldBeNil)
				got, err := h.svc.GetProgress(ctx, "cup", "u1", "")
				So(err, ShouldBeNil)
				for _, p := range got {
					So(p.Count, ShouldEqual, 0)
				}
			})
		})
	})
}

func TestServiceEntries(t *testing.T) {
	Convey("Given a leaderboard with scored entries", t, func() {
		ctx := context.Background()
		h := newHarness(t)
		_, err := h.svc.AddLeaderboard(ctx, model.NewLeaderboard{ID: "cup", Type: "weekly", PointConfig: winConfig()})
		So(err, ShouldBeNil)
		for _, u := range []string{"a", "b", "c", "d"} {
			_, err := h.svc.AddEntry(ctx, "cup", u)
			So(err, ShouldBeNil)
		}
		_, err = h.svc.AdjustPoints(ctx, "cup", []model.Adjustment{
			{UserID: "a", Points: 50},
			{UserID: "b", Points: 99},
			{UserID: "c", Points: 100},
			{UserID: "d", Points: 150},
		})
		So(err, ShouldBeNil)
		So(h.profiles.Put(ctx, "d", model.Profile{DisplayName: "Dora", Country: "NL"}), ShouldBeNil)

		Convey("Then entries read best first with profiles", func() {
			got, err := h.svc.GetEntries(ctx, "cup", 0, 0)
			So(err, ShouldBeNil)
			So(userIDs(got), ShouldResemble, []string{"d", "c", "b", "a"})
			So(got[0].DisplayName, ShouldEqual, "Dora")
			So(got[0].Country, ShouldEqual, "NL")
			So(got[1].DisplayName, ShouldEqual, "Anonymous")
		})

		Convey("Then rank and point windows agree", func() {
			byRank, err := h.svc.GetByRank(ctx, "cup", 2, 3)
			So(err, ShouldBeNil)
			So(userIDs(byRank), ShouldResemble, []string{"c", "b"})

			byPoints, err := h.svc.GetByPoints(ctx, "cup", i64(99), i64(100))
			So(err, ShouldBeNil)
			So(userIDs(byPoints), ShouldResemble, []string{"c", "b"})
			So(byPoints[0].Rank, ShouldEqual, 2)
		})

		Convey("Then adding an existing entry conflicts", func() {
			_, err := h.svc.AddEntry(ctx, "cup", "a")
			So(errors.Is(err, service.ErrConflict), ShouldBeTrue)
		})

		Convey("When entries under 100 points are knocked out", func() {
			below, err := h.svc.GetByPoints(ctx, "cup", nil, i64(99))
			So(err, ShouldBeNil)
			res, err := h.svc.KnockoutByPoints(ctx, "cup", 100)
			So(err, ShouldBeNil)

			Convey("Then exactly the entries below the threshold are removed", func() {
				So(userIDs(res.Removed), ShouldResemble, userIDs(below))
				So(userIDs(res.Removed), ShouldResemble, []string{"b", "a"})
				So(res.Remaining, ShouldEqual, 2)

				exists, err := h.svc.EntryExists(ctx, "cup", "a")
				So(err, ShouldBeNil)
				So(exists, ShouldBeFalse)
				exists, err = h.svc.EntryExists(ctx, "cup", "c")
				So(err, ShouldBeNil)
				So(exists, ShouldBeTrue)

				durable, err := h.repo.Get(ctx, "cup", 0, 0)
				So(err, ShouldBeNil)
				So(userIDs(durable), ShouldResemble, []string{"d", "c"})
			})
		})

		Convey("When an entry is removed", func() {
			So(h.svc.RemoveEntry(ctx, "cup", "b"), ShouldBeNil)

			Convey("Then it is gone and removing again is not found", func() {
				_, err := h.svc.GetEntry(ctx, "cup", "b")
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(h.svc.RemoveEntry(ctx, "cup", "b"), service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the leaderboard is reset", func() {
			So(h.svc.ResetLeaderboard(ctx, "cup"), ShouldBeNil)

			Convey("Then every score is zero", func() {
				got, err := h.svc.GetEntries(ctx, "cup", 0, 0)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 4)
				for _, e := range got {
					So(e.Points, ShouldEqual, 0)
				}
			})
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a leaderboard with prizes and scored entries", t, func() {
		ctx := context.Background()
		h := newHarness(t)
		_, err := h.svc.AddLeaderboard(ctx, model.NewLeaderboard{
			ID:          "cup",
			Type:        "season",
			PointConfig: winConfig(),
			Prizes: []model.PrizeBand{
				{MinRank: 1, MaxRank: 1, Prizes: model.Prizes{model.CashPrize{Amount: 1000, Currency: "EUR"}}},
				{MinRank: 2, MaxRank: 3, Prizes: model.Prizes{model.TangiblePrize{SKU: "CAP"}}},
			},
		})
		So(err, ShouldBeNil)
		for _, u := range []string{"a", "b", "c"} {
			_, err := h.svc.AddEntry(ctx, "cup", u)
			So(err, ShouldBeNil)
		}
		_, err = h.svc.AdjustPoints(ctx, "cup", []model.Adjustment{{UserID: "a", Points: 30}, {UserID: "b", Points: 20}})
		So(err, ShouldBeNil)

		Convey("Then it is listed as active", func() {
			page, err := h.svc.GetActive(ctx, 1, 10)
			So(err, ShouldBeNil)
			So(page.Total, ShouldEqual, 1)
			So(page.Items[0].EntryCount, ShouldEqual, 3)
		})

		Convey("Then paying out before finalising conflicts", func() {
			_, err := h.svc.Payout(ctx, "cup")
			So(errors.Is(err, service.ErrConflict), ShouldBeTrue)
		})

		Convey("When it is finalised", func() {
			info, err := h.svc.Finalise(ctx, "cup")
			So(err, ShouldBeNil)
			So(info.Finalised, ShouldBeTrue)

			Convey("Then finalising again conflicts and leaves payout untouched", func() {
				_, err := h.svc.Finalise(ctx, "cup")
				So(errors.Is(err, service.ErrConflict), ShouldBeTrue)
				got, err := h.svc.GetLeaderboard(ctx, "cup")
				So(err, ShouldBeNil)
				So(got.PayoutTime, ShouldBeNil)
			})

			Convey("Then it leaves the active index and is listed as inactive", func() {
				active, err := h.svc.GetActive(ctx, 1, 10)
				So(err, ShouldBeNil)
				So(active.Total, ShouldEqual, 0)
				inactive, err := h.svc.GetInactive(ctx, 1, 10)
				So(err, ShouldBeNil)
				So(inactive.Total, ShouldEqual, 1)
			})

			Convey("Then it no longer accepts points", func() {
				_, err := h.svc.Award(ctx, "cup", "a", "KILL", nil, model.AwardOptions{})
				So(errors.Is(err, service.ErrConflict), ShouldBeTrue)
				_, err = h.svc.KnockoutByPoints(ctx, "cup", 10)
				So(errors.Is(err, service.ErrConflict), ShouldBeTrue)
			})

			Convey("Then ranks are materialised and the cache expires later", func() {
				got, err := h.repo.Get(ctx, "cup", 0, 0)
				So(err, ShouldBeNil)
				So(userIDs(got), ShouldResemble, []string{"a", "b", "c"})
				So(got[0].Rank, ShouldEqual, 1)
				So(h.mr.TTL("podium:lb:{cup}:info") > 0, ShouldBeTrue)
			})

			Convey("When it is paid out", func() {
				records, err := h.svc.Payout(ctx, "cup")
				So(err, ShouldBeNil)

				Convey("Then each band goes to its scoring ranks", func() {
					So(records, ShouldHaveLength, 2)
					So(records[0].UserID, ShouldEqual, "a")
					So(records[0].Rank, ShouldEqual, 1)
					So(records[1].UserID, ShouldEqual, "b")
					So(records[1].Rank, ShouldEqual, 2)
				})

				Convey("Then it is paid out once", func() {
					got, err := h.svc.GetLeaderboard(ctx, "cup")
					So(err, ShouldBeNil)
					So(got.State(), ShouldEqual, model.StatePaidOut)
					_, err = h.svc.Payout(ctx, "cup")
					So(errors.Is(err, service.ErrConflict), ShouldBeTrue)
				})
			})

			Convey("When the cache is lost", func() {
				h.mr.FlushAll()

				Convey("Then reads fall back to the durable ranks", func() {
					got, err := h.svc.GetByRank(ctx, "cup", 1, 2)
					So(err, ShouldBeNil)
					So(userIDs(got), ShouldResemble, []string{"a", "b"})
					So(got[1].Rank, ShouldEqual, 2)
				})

				Convey("Then a restore brings it back with a retention expiry", func() {
					So(h.svc.RestoreCache(ctx, "cup", true), ShouldBeNil)
					got, err := h.svc.GetEntries(ctx, "cup", 0, 0)
					So(err, ShouldBeNil)
					So(userIDs(got), ShouldResemble, []string{"a", "b", "c"})
					So(h.mr.TTL("podium:lb:{cup}:info") > 0, ShouldBeTrue)
					active, err := h.svc.GetActive(ctx, 1, 10)
					So(err, ShouldBeNil)
					So(active.Total, ShouldEqual, 0)
				})
			})
		})

		Convey("When an active leaderboard loses its cache", func() {
			h.mr.FlushAll()

			Convey("Then writes ask for a restore", func() {
				_, err := h.svc.AdjustPoints(ctx, "cup", []model.Adjustment{{UserID: "a", Points: 1}})
				So(errors.Is(err, service.ErrUnavailable), ShouldBeTrue)
			})

			Convey("Then a restore re-indexes it", func() {
				So(h.svc.RestoreCache(ctx, "cup", true), ShouldBeNil)
				active, err := h.svc.GetActive(ctx, 1, 10)
				So(err, ShouldBeNil)
				So(active.Total, ShouldEqual, 1)
				e, err := h.svc.GetEntry(ctx, "cup", "a")
				So(err, ShouldBeNil)
				So(e.Points, ShouldEqual, 30)
			})
		})

		Convey("When it is removed", func() {
			So(h.svc.RemoveLeaderboard(ctx, "cup"), ShouldBeNil)

			Convey("Then it is gone everywhere", func() {
				_, err := h.svc.GetLeaderboard(ctx, "cup")
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
				So(h.mr.Exists("podium:lb:{cup}:entries"), ShouldBeFalse)
			})
		})
	})
}

func TestServiceValidation(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		h := newHarness(t)

		Convey("Then a leaderboard needs a type", func() {
			_, err := h.svc.AddLeaderboard(ctx, model.NewLeaderboard{})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("Then overlapping prize bands are rejected", func() {
			_, err := h.svc.AddLeaderboard(ctx, model.NewLeaderboard{Type: "x", Prizes: []model.PrizeBand{
				{MinRank: 1, MaxRank: 3, Prizes: model.Prizes{model.TangiblePrize{SKU: "A"}}},
				{MinRank: 3, MaxRank: 5, Prizes: model.Prizes{model.TangiblePrize{SKU: "B"}}},
			}})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("Then a duplicate id conflicts", func() {
			_, err := h.svc.AddLeaderboard(ctx, model.NewLeaderboard{ID: "x", Type: "x"})
			So(err, ShouldBeNil)
			_, err = h.svc.AddLeaderboard(ctx, model.NewLeaderboard{ID: "x", Type: "x"})
			So(errors.Is(err, service.ErrConflict), ShouldBeTrue)
			So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
		})

		Convey("Then awarding without a point configuration is invalid", func() {
			_, err := h.svc.AddLeaderboard(ctx, model.NewLeaderboard{ID: "bare", Type: "x"})
			So(err, ShouldBeNil)
			_, err = h.svc.Award(ctx, "bare", "u", "WIN", nil, model.AwardOptions{CreateEntry: true})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("Then points beyond the encodable range are invalid", func() {
			_, err := h.svc.AddLeaderboard(ctx, model.NewLeaderboard{ID: "big", Type: "x"})
			So(err, ShouldBeNil)
			_, err = h.svc.AddEntry(ctx, "big", "u")
			So(err, ShouldBeNil)
			_, err = h.svc.AdjustPoints(ctx, "big", []model.Adjustment{{UserID: "u", Points: score.MaxPoints + 1}})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			So(errors.Is(err, score.ErrOutOfRange), ShouldBeTrue)
		})
	})
}

func TestWithLogging(t *testing.T) {
	Convey("Given a logged service", t, func() {
		ctx := context.Background()
		var buf bytes.Buffer
		h := newHarness(t)
		api := service.WithLogging(h.svc, logger.New(&buf))

		Convey("When an operation fails", func() {
			_, err := api.GetLeaderboard(ctx, "missing")

			Convey("Then the failure is returned and logged", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
				So(buf.String(), ShouldContainSubstring, "operation failed")
				So(buf.String(), ShouldContainSubstring, "GetLeaderboard")
				So(buf.String(), ShouldContainSubstring, "missing")
			})
		})
	})
}
