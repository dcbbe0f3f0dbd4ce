package api

import (
	"context"
	"net/http"

	"github.com/okian/clashintel/internal/auth"
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
)

type claimsKey struct{}

// LeadershipHandler records leadership data. Every route requires a leader
// or co-leader token.
type LeadershipHandler struct {
	deps   Dependencies
	tokens *auth.Service
	log    logger.Logger
}

// NewLeadershipHandler creates a new leadership handler.
func NewLeadershipHandler(deps Dependencies, tokens *auth.Service, log logger.Logger) *LeadershipHandler {
	return &LeadershipHandler{deps: deps, tokens: tokens, log: log}
}

// requireLeadership rejects callers without a token with 401 and callers
// whose role is not leadership with 403.
func (h *LeadershipHandler) requireLeadership(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.require_leadership"
		if h.tokens == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
			return
		}
		claims, err := h.tokens.FromRequest(r)
		switch {
		case err != nil:
			writeError(w, http.StatusUnauthorized, "unauthorized", WrapKind(op, ErrUnauthorized, err))
			return
		case claims == nil:
			writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
			return
		case !claims.IsLeadership():
			writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrForbidden))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}

func actor(r *http.Request) string {
	claims, _ := r.Context().Value(claimsKey{}).(*auth.Claims)
	return claims.Actor()
}

// created decodes the body into req, lets build turn it into a stored
// record and writes it back with 201.
func created[Req, Rec any](h *LeadershipHandler, w http.ResponseWriter, r *http.Request, op string,
	build func(ctx context.Context, tag, actor string, req Req) (Rec, error),
) {
	var req Req
	if err := decodeJSON(w, r, maxRecordBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := build(r.Context(), r.PathValue("tag"), actor(r), req)
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: rec})
}

type noteRequest struct {
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// HandleNote handles POST /players/{tag}/notes.
func (h *LeadershipHandler) HandleNote(w http.ResponseWriter, r *http.Request) {
	created(h, w, r, "api.add_note", func(ctx context.Context, tag, by string, req noteRequest) (model.Note, error) {
		return h.deps.AddNote(ctx, model.Note{PlayerTag: tag, Text: req.Text, CreatedAt: req.CreatedAt, CreatedBy: by})
	})
}

type warningRequest struct {
	Text      string `json:"text"`
	Active    *bool  `json:"active"`
	CreatedAt string `json:"createdAt"`
}

// HandleWarning handles POST /players/{tag}/warnings. Warnings are active
// unless the body says otherwise.
func (h *LeadershipHandler) HandleWarning(w http.ResponseWriter, r *http.Request) {
	created(h, w, r, "api.add_warning", func(ctx context.Context, tag, by string, req warningRequest) (model.Warning, error) {
		active := req.Active == nil || *req.Active
		return h.deps.AddWarning(ctx, model.Warning{
			PlayerTag: tag, Text: req.Text, Active: active, CreatedAt: req.CreatedAt, CreatedBy: by,
		})
	})
}

type tenureRequest struct {
	Action     string `json:"action"`
	Reason     string `json:"reason"`
	OccurredAt string `json:"occurredAt"`
}

// HandleTenure handles POST /players/{tag}/tenure.
func (h *LeadershipHandler) HandleTenure(w http.ResponseWriter, r *http.Request) {
	created(h, w, r, "api.add_tenure", func(ctx context.Context, tag, by string, req tenureRequest) (model.TenureAction, error) {
		return h.deps.AddTenureAction(ctx, model.TenureAction{
			PlayerTag: tag, Action: req.Action, Reason: req.Reason, OccurredAt: req.OccurredAt, RecordedBy: by,
		})
	})
}

type movementRequest struct {
	Type       string `json:"type"`
	Reason     string `json:"reason"`
	OccurredAt string `json:"occurredAt"`
}

// HandleMovement handles POST /players/{tag}/movements.
func (h *LeadershipHandler) HandleMovement(w http.ResponseWriter, r *http.Request) {
	created(h, w, r, "api.add_movement", func(ctx context.Context, tag, by string, req movementRequest) (model.Movement, error) {
		return h.deps.AddMovement(ctx, model.Movement{
			PlayerTag: tag, Type: req.Type, Reason: req.Reason, OccurredAt: req.OccurredAt, RecordedBy: by,
		})
	})
}

type joinerRequest struct {
	Status     string `json:"status"`
	Summary    string `json:"summary"`
	DetectedAt string `json:"detectedAt"`
}

// HandleJoinerEvent handles POST /players/{tag}/joiner-events.
func (h *LeadershipHandler) HandleJoinerEvent(w http.ResponseWriter, r *http.Request) {
	created(h, w, r, "api.add_joiner_event", func(ctx context.Context, tag, _ string, req joinerRequest) (model.JoinerEvent, error) {
		return h.deps.AddJoinerEvent(ctx, model.JoinerEvent{
			PlayerTag: tag, Status: req.Status, Summary: req.Summary, DetectedAt: req.DetectedAt,
		})
	})
}
