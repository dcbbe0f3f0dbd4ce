// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/clashintel/internal/app"
	"github.com/okian/clashintel/internal/auth"
	"github.com/okian/clashintel/internal/domain/comparison"
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
)

const (
	maxSnapshotBody = 1 << 20
	maxBatchBody    = 16 << 20
	maxRecordBody   = 64 << 10
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Ingest(ctx context.Context, s model.Snapshot) (string, error)
	IngestBatch(ctx context.Context, snaps []model.Snapshot) []service.BatchResult

	Roster(ctx context.Context) (service.Roster, error)
	ResolveClan(raw string) (string, error)
	Insights(ctx context.Context, clanTag string) (service.Insights, error)
	Profile(ctx context.Context, tag string, includeLeadership bool) (service.Profile, error)
	Timeline(ctx context.Context, tag string, includeLeadership bool) ([]model.TimelineItem, error)
	Milestones(ctx context.Context, tag string, townHall model.Number) ([]model.MilestoneHighlight, error)
	History(ctx context.Context, tag string, days int) (service.History, error)
	Comparison(ctx context.Context, tag string) (comparison.Report, error)

	AddNote(ctx context.Context, n model.Note) (model.Note, error)
	AddWarning(ctx context.Context, w model.Warning) (model.Warning, error)
	AddMovement(ctx context.Context, m model.Movement) (model.Movement, error)
	AddTenureAction(ctx context.Context, a model.TenureAction) (model.TenureAction, error)
	AddJoinerEvent(ctx context.Context, j model.JoinerEvent) (model.JoinerEvent, error)

	Health(ctx context.Context) service.Health
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	snapshotsHandler  *SnapshotsHandler
	playersHandler    *PlayersHandler
	leadershipHandler *LeadershipHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, tokens *auth.Service) *Server {
	log := logger.Named("api")
	return &Server{
		healthHandler:     NewHealthHandler(deps),
		statsHandler:      NewStatsHandler(statsProvider),
		snapshotsHandler:  NewSnapshotsHandler(deps, log),
		playersHandler:    NewPlayersHandler(deps, tokens, log),
		leadershipHandler: NewLeadershipHandler(deps, tokens, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleMetrics, "healthz"))
	mux.HandleFunc("GET /health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /snapshots", MetricsMiddleware(s.snapshotsHandler.HandlePostSnapshot, "snapshots"))
	mux.HandleFunc("POST /snapshots/batch", MetricsMiddleware(s.snapshotsHandler.HandlePostBatch, "snapshots_batch"))

	p := s.playersHandler
	mux.HandleFunc("GET /roster", MetricsMiddleware(p.HandleRoster, "roster"))
	mux.HandleFunc("GET /insights", MetricsMiddleware(p.HandleInsights, "insights"))
	mux.HandleFunc("GET /players/{tag}/profile", MetricsMiddleware(p.HandleProfile, "profile"))
	mux.HandleFunc("GET /players/{tag}/timeline", MetricsMiddleware(p.HandleTimeline, "timeline"))
	mux.HandleFunc("GET /players/{tag}/milestones", MetricsMiddleware(p.HandleMilestones, "milestones"))
	mux.HandleFunc("GET /players/{tag}/history", MetricsMiddleware(p.HandleHistory, "history"))
	mux.HandleFunc("GET /players/{tag}/comparison", MetricsMiddleware(p.HandleComparison, "comparison"))

	l := s.leadershipHandler
	mux.HandleFunc("POST /players/{tag}/notes", MetricsMiddleware(l.requireLeadership(l.HandleNote), "notes"))
	mux.HandleFunc("POST /players/{tag}/warnings", MetricsMiddleware(l.requireLeadership(l.HandleWarning), "warnings"))
	mux.HandleFunc("POST /players/{tag}/tenure", MetricsMiddleware(l.requireLeadership(l.HandleTenure), "tenure"))
	mux.HandleFunc("POST /players/{tag}/movements", MetricsMiddleware(l.requireLeadership(l.HandleMovement), "movements"))
	mux.HandleFunc("POST /players/{tag}/joiner-events", MetricsMiddleware(l.requireLeadership(l.HandleJoinerEvent), "joiner_events"))
}

// envelope is the response shape of read endpoints.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Meta    any  `json:"meta,omitempty"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data, meta any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Meta: meta})
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

// writeFailure classifies err and writes the matching status. Server errors
// are logged; their text is not exposed.
func writeFailure(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
