package api

import (
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// ScoringHandler handles award, adjustment and knockout requests.
type ScoringHandler struct {
	handlerBase
}

// NewScoringHandler creates a new scoring handler.
func NewScoringHandler(svc service.API, l logger.Logger) *ScoringHandler {
	return &ScoringHandler{handlerBase{svc: svc, logger: l}}
}

const idempotencyHeader = "Idempotency-Key"

// awardRequest is the body of POST /leaderboards/{id}/award.
type awardRequest struct {
	UserID string   `json:"userId"`
	Event  string   `json:"event"`
	Input  *float64 `json:"input,omitempty"`
	model.AwardOptions
}

func (a awardRequest) validate() error {
	switch {
	case strings.TrimSpace(a.UserID) == "":
		return errors.New("missing userId")
	case strings.TrimSpace(a.Event) == "":
		return errors.New("missing event")
	}
	return nil
}

// HandleAward handles POST /leaderboards/{id}/award.
func (h *ScoringHandler) HandleAward(w http.ResponseWriter, r *http.Request) {
	const op = "api.award"
	var req awardRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, op, err)
		return
	}
	if err := req.validate(); err != nil {
		badRequest(w, op, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(idempotencyHeader)
	}
	res, err := h.svc.Award(r.Context(), r.PathValue("id"), req.UserID, req.Event, req.Input, req.AwardOptions)
	if err != nil {
		fail(w, r, h.handlerBase, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type adjustRequest struct {
	Adjustments []model.Adjustment `json:"adjustments"`
}

// HandleAdjust handles POST /leaderboards/{id}/adjust.
func (h *ScoringHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	const op = "api.adjust"
	var req adjustRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, op, err)
		return
	}
	if len(req.Adjustments) == 0 {
		badRequest(w, op, errors.New("missing adjustments"))
		return
	}
	results, err := h.svc.AdjustPoints(r.Context(), r.PathValue("id"), req.Adjustments)
	if err != nil {
		fail(w, r, h.handlerBase, op, err)
		return
	}
	if results == nil {
		results = []model.AdjustmentResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

type knockoutRequest struct {
	MinPoints *int64 `json:"minPoints"`
}

// HandleKnockout handles POST /leaderboards/{id}/knockout.
func (h *ScoringHandler) HandleKnockout(w http.ResponseWriter, r *http.Request) {
	const op = "api.knockout"
	var req knockoutRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, op, err)
		return
	}
	if req.MinPoints == nil {
		badRequest(w, op, errors.New("missing minPoints"))
		return
	}
	res, err := h.svc.KnockoutByPoints(r.Context(), r.PathValue("id"), *req.MinPoints)
	if err != nil {
		fail(w, r, h.handlerBase, op, err)
		return
	}
	if res.Removed == nil {
		res.Removed = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, res)
}
