package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shaanlabs/Tekista/pkg/logger"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusConflict        = 409
	statusTooManyRequests = 429
	statusInternalError   = 500
)

// MetricsMiddleware records Prometheus metrics per route pattern, so
// requests for different ids share one series.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		statusCode := strconv.Itoa(status)
		endpoint := routePattern(r)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCode)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCode, durationMs)
		if status >= statusBadRequest {
			metrics.RecordErrorByComponent("http", getErrorType(status))
		}
	})
}

// RequestLogger logs one line per request at debug level, and at warn level
// for server errors.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("route", routePattern(r)),
				logger.String("path", r.URL.Path),
				logger.Int("status", status),
				logger.Duration("elapsed", time.Since(start)),
				logger.String("request_id", chiMiddleware.GetReqID(r.Context())),
			}
			if status >= statusInternalError {
				log.Warn(r.Context(), "http request failed", fields...)
				return
			}
			log.Debug(r.Context(), "http request", fields...)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode == statusConflict:
		return "conflict"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}
