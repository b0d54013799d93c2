package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// LeaderboardHandler handles leaderboard lifecycle requests.
type LeaderboardHandler struct {
	handlerBase
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(svc service.API, l logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{handlerBase{svc: svc, logger: l}}
}

// HandleAdd handles POST /leaderboards.
func (h *LeaderboardHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_leaderboard"
	var req model.NewLeaderboard
	if err := decode(r, &req); err != nil {
		badRequest(w, op, err)
		return
	}
	info, err := h.svc.AddLeaderboard(r.Context(), req)
	if err != nil {
		fail(w, r, h.handlerBase, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// HandleGet handles GET /leaderboards/{id}.
func (h *LeaderboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetLeaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.handlerBase, "api.get_leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleRemove handles DELETE /leaderboards/{id}.
func (h *LeaderboardHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveLeaderboard(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, h.handlerBase, "api.remove_leaderboard", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleActive handles GET /leaderboards/active?page&size.
func (h *LeaderboardHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "api.active_leaderboards", h.svc.GetActive)
}

// HandleInactive handles GET /leaderboards/inactive?page&size.
func (h *LeaderboardHandler) HandleInactive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "api.inactive_leaderboards", h.svc.GetInactive)
}

func (h *LeaderboardHandler) list(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, page, size int) (model.Page[model.LeaderboardInfo], error),
) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		badRequest(w, op, err)
		return
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		badRequest(w, op, err)
		return
	}
	out, err := fn(r.Context(), int(page), int(size))
	if err != nil {
		fail(w, r, h.handlerBase, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleReset handles POST /leaderboards/{id}/reset.
func (h *LeaderboardHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetLeaderboard(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, h.handlerBase, "api.reset_leaderboard", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFinalise handles POST /leaderboards/{id}/finalise.
func (h *LeaderboardHandler) HandleFinalise(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Finalise(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.handlerBase, "api.finalise_leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandlePayout handles POST /leaderboards/{id}/payout.
func (h *LeaderboardHandler) HandlePayout(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Payout(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.handlerBase, "api.payout_leaderboard", err)
		return
	}
	if records == nil {
		records = []model.AwardRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleRestore handles POST /leaderboards/{id}/restore?entries=true.
func (h *LeaderboardHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	const op = "api.restore_leaderboard"
	entries := true
	if raw := r.URL.Query().Get("entries"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, op, errors.New("invalid entries; must be a boolean"))
			return
		}
		entries = v
	}
	if err := h.svc.RestoreCache(r.Context(), r.PathValue("id"), entries); err != nil {
		fail(w, r, h.handlerBase, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expireRequest struct {
	At string `json:"at"`
}

// HandleExpire handles POST /leaderboards/{id}/expire with {"at": RFC3339}.
func (h *LeaderboardHandler) HandleExpire(w http.ResponseWriter, r *http.Request) {
	const op = "api.expire_leaderboard"
	var req expireRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, op, err)
		return
	}
	at, err := time.Parse(time.RFC3339, req.At)
	if err != nil {
		badRequest(w, op, errors.New("invalid at; must be RFC3339"))
		return
	}
	if err := h.svc.Expire(r.Context(), r.PathValue("id"), at); err != nil {
		fail(w, r, h.handlerBase, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
