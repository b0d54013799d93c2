package api

import (
	"net/http"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// ProgressHandler handles milestone progress requests.
type ProgressHandler struct {
	handlerBase
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(svc service.API, l logger.Logger) *ProgressHandler {
	return &ProgressHandler{handlerBase{svc: svc, logger: l}}
}

// HandleGet handles GET /leaderboards/{id}/progress/{user}?event.
func (h *ProgressHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetProgress(r.Context(), r.PathValue("id"), r.PathValue("user"), r.URL.Query().Get("event"))
	if err != nil {
		fail(w, r, h.handlerBase, "api.get_progress", err)
		return
	}
	if out == nil {
		out = []model.Progress{}
	}
	writeJSON(w, http.StatusOK, out)
}

type incrementResponse struct {
	Count int64 `json:"count"`
}

// HandleIncrement handles POST /leaderboards/{id}/progress/{user}/{event}.
func (h *ProgressHandler) HandleIncrement(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.IncrementProgress(r.Context(), r.PathValue("id"), r.PathValue("user"), r.PathValue("event"))
	if err != nil {
		fail(w, r, h.handlerBase, "api.increment_progress", err)
		return
	}
	writeJSON(w, http.StatusOK, incrementResponse{Count: n})
}

// HandleReset handles DELETE /leaderboards/{id}/progress/{user}.
func (h *ProgressHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetProgress(r.Context(), r.PathValue("id"), r.PathValue("user")); err != nil {
		fail(w, r, h.handlerBase, "api.reset_progress", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
