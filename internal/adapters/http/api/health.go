package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/killwatch/pkg/metrics"
)

// HealthHandler handles liveness and metrics requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status      string `json:"status"`
	PollerState string `json:"poller_state"`
	Connected   bool   `json:"connected"`
}

// HandleHealth handles GET /healthz. The process is healthy while it serves;
// upstream liveness is reported alongside.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	conn := h.deps.ConnectionStatus(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		PollerState: conn.State,
		Connected:   conn.Connected,
	})
}

// HandleMetrics handles GET /metrics from the custom registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
