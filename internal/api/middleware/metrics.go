package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bufv/NGULIKANG-FINAL/internal/metrics"
)

// statusWriter wraps http.ResponseWriter to capture status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Metrics returns middleware that records Prometheus metrics. Websocket
// upgrades are skipped: their wrapped writer cannot be hijacked, and a
// connection's lifetime is not a request duration anyway.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method, path, strconv.Itoa(wrapped.status),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method, path,
		).Observe(duration)
	})
}

// normalizePath collapses room ids to avoid high cardinality in metrics.
func normalizePath(path string) string {
	const roomsPrefix = "/api/chat/rooms/"
	if rest, ok := strings.CutPrefix(path, roomsPrefix); ok && rest != "" {
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			return roomsPrefix + ":id" + rest[idx:]
		}
		return roomsPrefix + ":id"
	}
	const negotiationPrefix = "/api/negotiation/rooms/"
	if rest, ok := strings.CutPrefix(path, negotiationPrefix); ok && rest != "" {
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			return negotiationPrefix + ":id" + rest[idx:]
		}
		return negotiationPrefix + ":id"
	}
	return path
}
