package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/okian/clashintel/internal/app"
	"github.com/okian/clashintel/pkg/metrics"
)

// HealthChecker reports storage health.
type HealthChecker interface {
	Health(ctx context.Context) service.Health
}

// HealthHandler serves liveness and metrics endpoints.
type HealthHandler struct {
	checker HealthChecker
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleMetrics handles GET /healthz with the Prometheus exposition.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// Tool describes a read operation agents can call.
type Tool struct {
	Name        string `json:"name"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var tools = []Tool{ //nolint:gochecknoglobals // fixed catalogue
	{"get_roster", http.MethodGet, "/roster", "Clan members from their latest snapshots"},
	{"get_insights", http.MethodGet, "/insights?clanTag={clanTag}", "Clan summary with top donors and inactive members"},
	{"get_player_profile", http.MethodGet, "/players/{tag}/profile", "Latest snapshot, timeline, milestones and activity"},
	{"get_player_timeline", http.MethodGet, "/players/{tag}/timeline", "Derived timeline, newest first"},
	{"get_player_milestones", http.MethodGet, "/players/{tag}/milestones", "Up to four milestone highlights"},
	{"get_player_history", http.MethodGet, "/players/{tag}/history?days={days}", "Daily history with deltas"},
	{"get_player_comparison", http.MethodGet, "/players/{tag}/comparison", "Percentile and rank against the clan"},
}

type toolHealth struct {
	service.Health
	Tools []Tool `json:"tools"`
}

// HandleHealth handles GET /health. With ?mcp=true the tool catalogue is included.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.checker.Health(r.Context())
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	if mcp, _ := strconv.ParseBool(r.URL.Query().Get("mcp")); mcp {
		writeJSON(w, status, toolHealth{Health: health, Tools: tools})
		return
	}
	writeJSON(w, status, health)
}
