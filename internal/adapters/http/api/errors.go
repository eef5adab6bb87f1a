package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/shaanlabs/Tekista/internal/app"
)

// ErrBadRequest marks malformed requests rejected before reaching the service.
var ErrBadRequest = errors.New("bad request")

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps service error kinds onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrRetryable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}
