package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/clashintel/internal/adapters/mq/queue"
	"github.com/okian/clashintel/internal/domain/dedupe"
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
	"github.com/okian/clashintel/pkg/metrics"
)

// Ingestion outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
)

// BatchResult reports what happened to one snapshot of a batch.
type BatchResult struct {
	Index     int    `json:"index"`
	PlayerTag string `json:"playerTag,omitempty"`
	Date      string `json:"snapshotDate,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	err       error
}

// Err returns the failure behind a rejected result.
func (r BatchResult) Err() error { return r.err }

// Ingest validates snap and queues it for storage. The first snapshot per
// player and calendar date wins; later ones report OutcomeDuplicate.
func (s *Service) Ingest(ctx context.Context, snap model.Snapshot) (string, error) {
	const op = "service.ingest"

	tag, err := model.NormalizeTag(snap.PlayerTag)
	if err != nil {
		metrics.RecordSnapshotRejected("invalid_tag")
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if _, ok := snap.Day(); !ok {
		metrics.RecordSnapshotRejected("invalid_date")
		return "", fmt.Errorf("%s: %w: %q", op, model.ErrInvalidDate, snap.Date)
	}
	snap.PlayerTag = tag
	snap.Date = snap.DayKey()

	s.mu.RLock()
	started, deduper, q := s.started, s.deduper, s.queue
	s.mu.RUnlock()
	if !started {
		return "", fmt.Errorf("%s: %w", op, ErrNotStarted)
	}

	key := dedupe.Key(tag, snap.Date)
	if deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSnapshotDuplicate()
		return OutcomeDuplicate, nil
	}

	if err := q.TryEnqueue(ctx, snap); err != nil {
		deduper.Unrecord(ctx, key)
		reason := "enqueue_failed"
		if errors.Is(err, queue.ErrFull) {
			reason = "backpressure"
		}
		metrics.RecordSnapshotRejected(reason)
		s.logger.Debug(ctx, "snapshot not queued",
			logger.String("tag", tag), logger.String("date", snap.Date), logger.Error(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	metrics.RecordSnapshotIngested()
	return OutcomeAccepted, nil
}

// IngestBatch ingests each snapshot independently and reports per-item outcomes.
func (s *Service) IngestBatch(ctx context.Context, snaps []model.Snapshot) []BatchResult {
	results := make([]BatchResult, len(snaps))
	for i, snap := range snaps {
		res := BatchResult{Index: i, PlayerTag: snap.PlayerTag, Date: snap.Date}
		status, err := s.Ingest(ctx, snap)
		if err != nil {
			res.Status, res.Error, res.err = OutcomeRejected, err.Error(), err
		} else {
			res.Status = status
		}
		results[i] = res
	}
	return results
}
