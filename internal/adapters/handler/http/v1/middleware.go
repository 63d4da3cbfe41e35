package v1

import (
	"log/slog"
	"net/http"
	"time"

	"cryptoarb/internal/metrics"
)

// LoggingMiddleware logs every request once it completes.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &metrics.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}

		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", rec.Status,
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr)
	})
}

// Wrap applies request logging and Prometheus instrumentation.
func Wrap(router http.Handler) http.Handler {
	return metrics.InstrumentHandler(LoggingMiddleware(router))
}
