// Package httpapi is the sidecar HTTP surface next to the TCP protocol
// server: health checks and Prometheus scraping, routed with go-chi/chi/v5
// and logged with gorilla/handlers the way the teacher logs its own HTTP
// surface.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatd/chatd/internal/hub"
)

// HealthStatus is the /healthz response body.
type HealthStatus struct {
	OK            bool  `json:"ok"`
	LiveSessions  int   `json:"liveSessions"`
	UptimeSeconds int64 `json:"uptimeSeconds"`
}

// NewRouter builds the sidecar router. h may be nil in tests that don't
// need a live session count.
func NewRouter(h *hub.Hub, logger *log.Logger, startedAt time.Time) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		live := 0
		if h != nil {
			live = h.LiveSessionCount()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(HealthStatus{
			OK:            true,
			LiveSessions:  live,
			UptimeSeconds: int64(time.Since(startedAt).Seconds()),
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	if logger == nil {
		logger = log.Default()
	}
	return handlers.CombinedLoggingHandler(logger.Writer(), r)
}
