package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/adapters/cache/dedupe"
	"github.com/okian/podium/internal/adapters/cache/keys"
	"github.com/okian/podium/internal/adapters/cache/progress"
	"github.com/okian/podium/internal/adapters/cache/ranking"
	"github.com/okian/podium/internal/adapters/http/api"
	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newMux(t *testing.T) *http.ServeMux {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	k := keys.New("")
	svc := service.New(repository.NewMemoryRepository(),
		ranking.New(client, ranking.WithKeys(k)),
		progress.New(client, progress.WithKeys(k)),
		service.WithDeduper(dedupe.New(client, k, 0)),
	)
	mux := http.NewServeMux()
	api.NewServer(svc, nil).Register(mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

const weeklyBoard = `{
	"id": "weekly",
	"type": "weekly",
	"pointConfig": {
		"KILL": {"rules": [{"points": 10}, {"points": 25, "count": 3}]},
		"WIN": {"rules": [{"points": "input"}]}
	},
	"prizes": [{"minRank": 1, "maxRank": 1, "prizes": [{"kind": "cash", "amount": 100, "currency": "usd"}]}]
}`

func TestServer_Routes(t *testing.T) {
	Convey("Given an API server over a live service", t, func() {
		mux := newMux(t)

		Convey("When probing health", func() {
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then it should report ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"ok"`)
			})
		})

		Convey("When scraping metrics", func() {
			w := do(mux, http.MethodGet, "/metrics", "")

			Convey("Then it should serve the registry", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When fetching the API docs", func() {
			w := do(mux, http.MethodGet, "/openapi.yaml", "")

			Convey("Then the OpenAPI document should be served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "openapi:")
			})
		})

		Convey("When creating a leaderboard", func() {
			w := do(mux, http.MethodPost, "/leaderboards", weeklyBoard)

			Convey("Then it should be created and readable", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				info := decodeBody[model.LeaderboardInfo](w)
				So(info.ID, ShouldEqual, "weekly")

				got := do(mux, http.MethodGet, "/leaderboards/weekly", "")
				So(got.Code, ShouldEqual, http.StatusOK)
				So(decodeBody[model.LeaderboardInfo](got).Type, ShouldEqual, "weekly")

				active := do(mux, http.MethodGet, "/leaderboards/active?page=0&size=10", "")
				So(active.Code, ShouldEqual, http.StatusOK)
				So(decodeBody[model.Page[model.LeaderboardInfo]](active).Total, ShouldEqual, 1)
			})

			Convey("Then creating it again should conflict", func() {
				again := do(mux, http.MethodPost, "/leaderboards", weeklyBoard)
				So(again.Code, ShouldEqual, http.StatusConflict)
				So(decodeBody[map[string]string](again)["code"], ShouldEqual, "conflict")
			})

			Convey("Then awards should rank users", func() {
				for _, u := range []string{"alice", "bob"} {
					So(do(mux, http.MethodPut, "/leaderboards/weekly/entries/"+u, "").Code, ShouldEqual, http.StatusCreated)
				}
				aw := do(mux, http.MethodPost, "/leaderboards/weekly/award", `{"userId":"bob","event":"WIN","input":42}`)
				So(aw.Code, ShouldEqual, http.StatusOK)
				res := decodeBody[model.AwardResult](aw)
				So(res.Awarded, ShouldBeTrue)
				So(res.Points, ShouldEqual, 42)

				kill := do(mux, http.MethodPost, "/leaderboards/weekly/award", `{"userId":"alice","event":"KILL"}`)
				So(decodeBody[model.AwardResult](kill).Points, ShouldEqual, 10)

				list := do(mux, http.MethodGet, "/leaderboards/weekly/entries?skip=0&take=10", "")
				So(list.Code, ShouldEqual, http.StatusOK)
				entries := decodeBody[[]model.Entry](list)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].UserID, ShouldEqual, "bob")
				So(entries[0].Rank, ShouldEqual, 1)

				byPoints := do(mux, http.MethodGet, "/leaderboards/weekly/entries/points?min=20", "")
				So(len(decodeBody[[]model.Entry](byPoints)), ShouldEqual, 1)

				byRank := do(mux, http.MethodGet, "/leaderboards/weekly/entries/rank?min=2&max=2", "")
				So(decodeBody[[]model.Entry](byRank)[0].UserID, ShouldEqual, "alice")

				around := do(mux, http.MethodGet, "/leaderboards/weekly/entries/alice/around?count=1", "")
				So(len(decodeBody[[]model.Entry](around)), ShouldEqual, 2)

				one := do(mux, http.MethodGet, "/leaderboards/weekly/entries/alice", "")
				So(decodeBody[model.Entry](one).Points, ShouldEqual, 10)
			})

			Convey("Then a retried award with the same idempotency key should apply once", func() {
				do(mux, http.MethodPut, "/leaderboards/weekly/entries/dave", "")
				keyed := func() *httptest.ResponseRecorder {
					req := httptest.NewRequest(http.MethodPost, "/leaderboards/weekly/award",
						strings.NewReader(`{"userId":"dave","event":"KILL"}`))
					req.Header.Set("Idempotency-Key", "abc")
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, req)
					return w
				}
				So(decodeBody[model.AwardResult](keyed()).Awarded, ShouldBeTrue)
				So(decodeBody[model.AwardResult](keyed()).Duplicate, ShouldBeTrue)

				one := do(mux, http.MethodGet, "/leaderboards/weekly/entries/dave", "")
				So(decodeBody[model.Entry](one).Points, ShouldEqual, 10)
			})

			Convey("Then adjustments and knockouts should apply", func() {
				for i := range 3 {
					do(mux, http.MethodPut, fmt.Sprintf("/leaderboards/weekly/entries/u%d", i), "")
				}
				adj := do(mux, http.MethodPost, "/leaderboards/weekly/adjust",
					`{"adjustments":[{"userId":"u0","points":5},{"userId":"u1","points":50},{"userId":"ghost","points":9}]}`)
				So(adj.Code, ShouldEqual, http.StatusOK)
				So(len(decodeBody[[]model.AdjustmentResult](adj)), ShouldEqual, 2)

				ko := do(mux, http.MethodPost, "/leaderboards/weekly/knockout", `{"minPoints":10}`)
				So(ko.Code, ShouldEqual, http.StatusOK)
				res := decodeBody[model.KnockoutResult](ko)
				So(len(res.Removed), ShouldEqual, 2)
				So(res.Remaining, ShouldEqual, 1)
			})

			Convey("Then progress should be counted and reset", func() {
				do(mux, http.MethodPut, "/leaderboards/weekly/entries/carol", "")
				inc := do(mux, http.MethodPost, "/leaderboards/weekly/progress/carol/KILL", "")
				So(inc.Code, ShouldEqual, http.StatusOK)
				So(decodeBody[map[string]int64](inc)["count"], ShouldEqual, 1)

				got := do(mux, http.MethodGet, "/leaderboards/weekly/progress/carol?event=KILL", "")
				So(got.Code, ShouldEqual, http.StatusOK)
				progress := decodeBody[[]model.Progress](got)
				So(len(progress), ShouldEqual, 1)
				So(progress[0].Count, ShouldEqual, 1)
				So(progress[0].Milestones, ShouldResemble, []model.Milestone{{Count: 3, Reached: false}})

				all := do(mux, http.MethodGet, "/leaderboards/weekly/progress/carol", "")
				So(all.Code, ShouldEqual, http.StatusOK)
				So(len(decodeBody[[]model.Progress](all)), ShouldEqual, 1)

				So(do(mux, http.MethodDelete, "/leaderboards/weekly/progress/carol", "").Code, ShouldEqual, http.StatusNoContent)
			})

			Convey("Then finalising should close the board to writes", func() {
				So(do(mux, http.MethodPost, "/leaderboards/weekly/finalise", "").Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodPost, "/leaderboards/weekly/finalise", "").Code, ShouldEqual, http.StatusConflict)
				So(do(mux, http.MethodPut, "/leaderboards/weekly/entries/late", "").Code, ShouldEqual, http.StatusConflict)

				inactive := do(mux, http.MethodGet, "/leaderboards/inactive", "")
				So(decodeBody[model.Page[model.LeaderboardInfo]](inactive).Total, ShouldEqual, 1)
			})

			Convey("Then removing it should make it unknown", func() {
				So(do(mux, http.MethodDelete, "/leaderboards/weekly", "").Code, ShouldEqual, http.StatusNoContent)
				So(do(mux, http.MethodGet, "/leaderboards/weekly", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a request is malformed", func() {
			do(mux, http.MethodPost, "/leaderboards", weeklyBoard)

			Convey("Then bad query and body values should be rejected", func() {
				So(do(mux, http.MethodGet, "/leaderboards/weekly/entries?skip=abc", "").Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/leaderboards/weekly/award", `{"event":"KILL"}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/leaderboards/weekly/award", `{"userId":"x","event":"WIN","input":1.5,"createEntry":true}`).Code,
					ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/leaderboards/weekly/knockout", `{}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/leaderboards/weekly/expire", `{"at":"tomorrow"}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/leaderboards", `{"type":""}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/leaderboards", `{"type":"x","bogus":1}`).Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

// failingAPI answers GetLeaderboard with a fixed error.
type failingAPI struct {
	service.API
	err error
}

func (f failingAPI) GetLeaderboard(context.Context, string) (model.LeaderboardInfo, error) {
	return model.LeaderboardInfo{}, f.err
}

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given a service that fails", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("op: %w", service.ErrNotFound), http.StatusNotFound, "not_found"},
			{fmt.Errorf("op: %w", service.ErrConflict), http.StatusConflict, "conflict"},
			{fmt.Errorf("op: %w", service.ErrValidation), http.StatusBadRequest, "bad_request"},
			{fmt.Errorf("op: %w", service.ErrUnavailable), http.StatusServiceUnavailable, "unavailable"},
			{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}
		for _, c := range cases {
			mux := http.NewServeMux()
			api.NewServer(failingAPI{err: c.err}, nil).Register(mux)
			w := do(mux, http.MethodGet, "/leaderboards/x", "")

			So(w.Code, ShouldEqual, c.status)
			body := decodeBody[map[string]string](w)
			So(body["code"], ShouldEqual, c.code)
			if c.status == http.StatusInternalServerError {
				So(body["message"], ShouldNotContainSubstring, "disk")
			}
		}
	})
}
