package middleware

import (
	"cmp"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"retail-insights/internal/observability"
)

const unmatchedRoute = "unmatched"

// Instrument traces, logs and counts every request in one pass. The route
// label is the ServeMux pattern, which the mux sets on the request it is
// given, so nothing between here and the mux may replace r.
func Instrument(logger *slog.Logger, metrics *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := observability.StartSpan(r.Context(), "http.request")
			r = r.WithContext(ctx)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			elapsed := span.Finish()
			route := cmp.Or(r.Pattern, unmatchedRoute)
			span.Operation = route
			span.SetTag("http.status_code", strconv.Itoa(rec.status))
			if rec.status >= http.StatusBadRequest {
				span.SetError(fmt.Errorf("HTTP %d", rec.status))
			}
			span.Log(ctx, logger)

			if metrics != nil {
				metrics.ObserveRequest(r.Method, route, rec.status, elapsed)
			}

			logger.Log(ctx, statusLevel(rec.status), "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", rec.status,
				"duration", elapsed,
				"request_id", observability.GetRequestID(ctx),
			)
		})
	}
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
