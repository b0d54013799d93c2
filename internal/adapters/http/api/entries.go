package api

import (
	"net/http"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

const defaultAroundCount = 5

// EntriesHandler handles entry listing and membership requests.
type EntriesHandler struct {
	handlerBase
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(svc service.API, l logger.Logger) *EntriesHandler {
	return &EntriesHandler{handlerBase{svc: svc, logger: l}}
}

// HandleList handles GET /leaderboards/{id}/entries?skip&take.
func (h *EntriesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_entries"
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		badRequest(w, op, err)
		return
	}
	take, err := queryInt(r, "take", 0)
	if err != nil {
		badRequest(w, op, err)
		return
	}
	entries, err := h.svc.GetEntries(r.Context(), r.PathValue("id"), skip, take)
	h.respond(w, r, op, entries, err)
}

// HandleByRank handles GET /leaderboards/{id}/entries/rank?min&max.
func (h *EntriesHandler) HandleByRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.entries_by_rank"
	minRank, err := queryInt(r, "min", 1)
	if err != nil {
		badRequest(w, op, err)
		return
	}
	maxRank, err := queryInt(r, "max", 0)
	if err != nil {
		badRequest(w, op, err)
		return
	}
	entries, err := h.svc.GetByRank(r.Context(), r.PathValue("id"), minRank, maxRank)
	h.respond(w, r, op, entries, err)
}

// HandleByPoints handles GET /leaderboards/{id}/entries/points?min&max.
func (h *EntriesHandler) HandleByPoints(w http.ResponseWriter, r *http.Request) {
	const op = "api.entries_by_points"
	minPoints, err := queryIntPtr(r, "min")
	if err != nil {
		badRequest(w, op, err)
		return
	}
	maxPoints, err := queryIntPtr(r, "max")
	if err != nil {
		badRequest(w, op, err)
		return
	}
	entries, err := h.svc.GetByPoints(r.Context(), r.PathValue("id"), minPoints, maxPoints)
	h.respond(w, r, op, entries, err)
}

// HandleAround handles GET /leaderboards/{id}/entries/{user}/around?count.
func (h *EntriesHandler) HandleAround(w http.ResponseWriter, r *http.Request) {
	const op = "api.entries_around"
	count, err := queryInt(r, "count", defaultAroundCount)
	if err != nil {
		badRequest(w, op, err)
		return
	}
	entries, err := h.svc.GetAroundUser(r.Context(), r.PathValue("id"), r.PathValue("user"), count)
	h.respond(w, r, op, entries, err)
}

// HandleGet handles GET /leaderboards/{id}/entries/{user}.
func (h *EntriesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.GetEntry(r.Context(), r.PathValue("id"), r.PathValue("user"))
	if err != nil {
		fail(w, r, h.handlerBase, "api.get_entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleAdd handles PUT /leaderboards/{id}/entries/{user}.
func (h *EntriesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.AddEntry(r.Context(), r.PathValue("id"), r.PathValue("user"))
	if err != nil {
		fail(w, r, h.handlerBase, "api.add_entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleRemove handles DELETE /leaderboards/{id}/entries/{user}.
func (h *EntriesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveEntry(r.Context(), r.PathValue("id"), r.PathValue("user")); err != nil {
		fail(w, r, h.handlerBase, "api.remove_entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntriesHandler) respond(w http.ResponseWriter, r *http.Request, op string, entries []model.Entry, err error) {
	if err != nil {
		fail(w, r, h.handlerBase, op, err)
		return
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
