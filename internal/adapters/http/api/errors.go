package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// WrapKind tags err with op and kind so errors.Is matches both.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// statusFor maps a service error kind to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes err with the status its kind maps to. Internal errors are
// logged and their detail is not returned to the client.
func fail(w http.ResponseWriter, r *http.Request, h handlerBase, op string, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// badRequest writes a 400 for a malformed request.
func badRequest(w http.ResponseWriter, op string, err error) {
	writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
}
