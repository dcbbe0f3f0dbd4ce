package api

import (
	"net/http"
	"strconv"

	"github.com/okian/clashintel/internal/auth"
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
)

// PlayersHandler serves roster and per-player read models.
type PlayersHandler struct {
	deps   Dependencies
	tokens *auth.Service
	log    logger.Logger
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps Dependencies, tokens *auth.Service, log logger.Logger) *PlayersHandler {
	return &PlayersHandler{deps: deps, tokens: tokens, log: log}
}

// leadership reports whether the caller holds a valid leader or co-leader
// token. Missing or invalid tokens read as viewers.
func (h *PlayersHandler) leadership(r *http.Request) bool {
	if h.tokens == nil {
		return false
	}
	claims, err := h.tokens.FromRequest(r)
	return err == nil && claims.IsLeadership()
}

// HandleRoster handles GET /roster. An optional clanTag must name the tracked clan.
func (h *PlayersHandler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.roster"
	if raw := r.URL.Query().Get("clanTag"); raw != "" {
		if _, err := h.deps.ResolveClan(raw); err != nil {
			writeFailure(r.Context(), w, h.log, Wrap(op, err))
			return
		}
	}
	roster, err := h.deps.Roster(r.Context())
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeData(w, roster, nil)
}

// HandleInsights handles GET /insights?clanTag=.
func (h *PlayersHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.deps.Insights(r.Context(), r.URL.Query().Get("clanTag"))
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap("api.insights", err))
		return
	}
	writeData(w, insights, nil)
}

// HandleProfile handles GET /players/{tag}/profile.
func (h *PlayersHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.deps.Profile(r.Context(), r.PathValue("tag"), h.leadership(r))
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap("api.profile", err))
		return
	}
	writeData(w, profile, nil)
}

// HandleTimeline handles GET /players/{tag}/timeline.
func (h *PlayersHandler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Timeline(r.Context(), r.PathValue("tag"), h.leadership(r))
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap("api.timeline", err))
		return
	}
	writeData(w, items, nil)
}

// HandleMilestones handles GET /players/{tag}/milestones?th=N.
func (h *PlayersHandler) HandleMilestones(w http.ResponseWriter, r *http.Request) {
	const op = "api.milestones"

	var th model.Number
	if raw := r.URL.Query().Get("th"); raw != "" {
		if th = model.ParseNumber(raw); !th.Valid() {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errBadTH))
			return
		}
	}
	out, err := h.deps.Milestones(r.Context(), r.PathValue("tag"), th)
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeData(w, out, nil)
}

// HandleHistory handles GET /players/{tag}/history?days=N.
func (h *PlayersHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.history"

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errBadDays))
			return
		}
		days = n
	}
	hist, err := h.deps.History(r.Context(), r.PathValue("tag"), days)
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeData(w, hist.Points, map[string]any{
		"playerTag":      hist.PlayerTag,
		"days":           hist.Days,
		"snapshotsFound": hist.SnapshotsFound,
	})
}

// HandleComparison handles GET /players/{tag}/comparison.
func (h *PlayersHandler) HandleComparison(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Comparison(r.Context(), r.PathValue("tag"))
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap("api.comparison", err))
		return
	}
	writeData(w, report, nil)
}
