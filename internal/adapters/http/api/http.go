// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/podium/internal/adapters/http/swagger"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/pkg/logger"
)

// Server wires HTTP routes for the leaderboard API.
type Server struct {
	svc    service.API
	logger logger.Logger

	healthHandler      *HealthHandler
	leaderboardHandler *LeaderboardHandler
	entriesHandler     *EntriesHandler
	scoringHandler     *ScoringHandler
	progressHandler    *ProgressHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(svc service.API, l logger.Logger) *Server {
	if l == nil {
		l = logger.GetOrNop().Named("api")
	}
	return &Server{
		svc:                svc,
		logger:             l,
		healthHandler:      NewHealthHandler(),
		leaderboardHandler: NewLeaderboardHandler(svc, l),
		entriesHandler:     NewEntriesHandler(svc, l),
		scoringHandler:     NewScoringHandler(svc, l),
		progressHandler:    NewProgressHandler(svc, l),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	swagger.Register(mux)

	lb := s.leaderboardHandler
	route("POST /leaderboards", "leaderboards_add", lb.HandleAdd)
	route("GET /leaderboards/active", "leaderboards_active", lb.HandleActive)
	route("GET /leaderboards/inactive", "leaderboards_inactive", lb.HandleInactive)
	route("GET /leaderboards/{id}", "leaderboard_get", lb.HandleGet)
	route("DELETE /leaderboards/{id}", "leaderboard_remove", lb.HandleRemove)
	route("POST /leaderboards/{id}/reset", "leaderboard_reset", lb.HandleReset)
	route("POST /leaderboards/{id}/finalise", "leaderboard_finalise", lb.HandleFinalise)
	route("POST /leaderboards/{id}/payout", "leaderboard_payout", lb.HandlePayout)
	route("POST /leaderboards/{id}/restore", "leaderboard_restore", lb.HandleRestore)
	route("POST /leaderboards/{id}/expire", "leaderboard_expire", lb.HandleExpire)

	en := s.entriesHandler
	route("GET /leaderboards/{id}/entries", "entries_list", en.HandleList)
	route("GET /leaderboards/{id}/entries/rank", "entries_rank", en.HandleByRank)
	route("GET /leaderboards/{id}/entries/points", "entries_points", en.HandleByPoints)
	route("GET /leaderboards/{id}/entries/{user}", "entry_get", en.HandleGet)
	route("GET /leaderboards/{id}/entries/{user}/around", "entries_around", en.HandleAround)
	route("PUT /leaderboards/{id}/entries/{user}", "entry_add", en.HandleAdd)
	route("DELETE /leaderboards/{id}/entries/{user}", "entry_remove", en.HandleRemove)

	sc := s.scoringHandler
	route("POST /leaderboards/{id}/award", "award", sc.HandleAward)
	route("POST /leaderboards/{id}/adjust", "adjust", sc.HandleAdjust)
	route("POST /leaderboards/{id}/knockout", "knockout", sc.HandleKnockout)

	pr := s.progressHandler
	route("GET /leaderboards/{id}/progress/{user}", "progress_get", pr.HandleGet)
	route("POST /leaderboards/{id}/progress/{user}/{event}", "progress_increment", pr.HandleIncrement)
	route("DELETE /leaderboards/{id}/progress/{user}", "progress_reset", pr.HandleReset)
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name + "; must be an integer")
	}
	return v, nil
}

// queryIntPtr reads an optional integer query parameter, nil when absent.
func queryIntPtr(r *http.Request, name string) (*int64, error) {
	if r.URL.Query().Get(name) == "" {
		return nil, nil
	}
	v, err := queryInt(r, name, 0)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// handlerBase carries what every resource handler needs.
type handlerBase struct {
	svc    service.API
	logger logger.Logger
}
