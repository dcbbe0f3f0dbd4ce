package api

import (
	"net/http"

	service "github.com/okian/clashintel/internal/app"
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
)

// SnapshotsHandler handles snapshot ingestion.
type SnapshotsHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewSnapshotsHandler creates a new snapshots handler.
func NewSnapshotsHandler(deps Dependencies, log logger.Logger) *SnapshotsHandler {
	return &SnapshotsHandler{deps: deps, log: log}
}

// HandlePostSnapshot handles POST /snapshots.
func (h *SnapshotsHandler) HandlePostSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_snapshot"

	var snap model.Snapshot
	if err := decodeJSON(w, r, maxSnapshotBody, &snap); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	status, err := h.deps.Ingest(r.Context(), snap)
	if err != nil {
		writeFailure(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	if status == service.OutcomeDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: status, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: status})
}

type batchResponse struct {
	Accepted  int                   `json:"accepted"`
	Duplicate int                   `json:"duplicate"`
	Rejected  int                   `json:"rejected"`
	Results   []service.BatchResult `json:"results"`
}

// HandlePostBatch handles POST /snapshots/batch.
func (h *SnapshotsHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_snapshot_batch"

	var snaps []model.Snapshot
	if err := decodeJSON(w, r, maxBatchBody, &snaps); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(snaps) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errEmptyBatch))
		return
	}

	resp := batchResponse{Results: h.deps.IngestBatch(r.Context(), snaps)}
	for _, res := range resp.Results {
		switch res.Status {
		case service.OutcomeAccepted:
			resp.Accepted++
		case service.OutcomeDuplicate:
			resp.Duplicate++
		default:
			resp.Rejected++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
