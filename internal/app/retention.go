package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/clashintel/pkg/logger"
	"github.com/okian/clashintel/pkg/metrics"
)

const retentionRunTimeout = 5 * time.Minute

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct{ l logger.Logger }

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug(context.Background(), msg, logger.Any("details", kv))
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error(context.Background(), msg, logger.Error(err), logger.Any("details", kv))
}

func (s *Service) startRetention(ctx context.Context) error {
	log := s.logger.Named("retention")
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{l: log})), cron.WithLogger(cronLogger{l: log}))
	_, err := c.AddFunc(s.retentionSchedule, func() {
		rctx, cancel := context.WithTimeout(ctx, retentionRunTimeout)
		defer cancel()
		if _, err := s.Prune(rctx); err != nil {
			log.Error(rctx, "retention run failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retention %q: %w", s.retentionSchedule, err)
	}
	c.Start()
	s.scheduler = c
	return nil
}

// Prune deletes snapshots older than the retention window and clears cached
// profiles. It is a no-op when retention is disabled.
func (s *Service) Prune(ctx context.Context) (int, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}
	store, profiles, err := s.deps()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -s.retentionDays)
	n, err := store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune before %s: %w", cutoff.Format(time.DateOnly), err)
	}
	metrics.RecordSnapshotsPruned(n)
	profiles.Purge()
	s.logger.Info(ctx, "retention pruned snapshots",
		logger.Int("removed", n), logger.String("cutoff", cutoff.Format(time.DateOnly)))
	return n, nil
}
