package seeder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"

	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
)

const settlePoll = 100 * time.Millisecond

// Run generates snapshots, submits them concurrently, waits for the service
// to store them and verifies every player's timeline.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("seeder")
	start := time.Now()

	stats := &Stats{RunID: uuid.NewString()}
	if cfg.Seed == 0 {
		cfg.Seed = seedFromRunID(stats.RunID)
	}
	log.Info(ctx, "starting seeding run",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("days", cfg.Days),
		logger.Int("workers", cfg.Workers))

	c := newClient(cfg.BaseURL, cfg.Token, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, err
	}

	players := Generate(cfg)
	for _, snaps := range players {
		stats.Generated += len(snaps)
	}

	pool := pond.NewPool(cfg.Workers)
	defer pool.StopAndWait()

	submitAll(ctx, pool, c, players, stats)
	log.Info(ctx, "snapshots submitted",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed))

	if err := waitStored(ctx, c, players, cfg); err != nil {
		stats.Duration = time.Since(start)
		return stats, err
	}

	verifyAll(ctx, pool, c, players, stats)
	stats.Duration = time.Since(start)

	log.Info(ctx, "seeding run finished",
		logger.Int("timelines", stats.TimelinesFetched),
		logger.Int("timelineItems", stats.TimelineItems),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.Duration("duration", stats.Duration))

	if len(stats.Mismatches) > 0 {
		return stats, fmt.Errorf("%w: %d mismatches, first: %s", ErrVerification, len(stats.Mismatches), stats.Mismatches[0])
	}
	return stats, nil
}

// submitAll posts every snapshot plus a second copy of each player's first
// day, which the service must report as a duplicate.
func submitAll(ctx context.Context, pool pond.Pool, c *client, players [][]model.Snapshot, stats *Stats) {
	var accepted, duplicate, failed atomic.Int64

	group := pool.NewGroupContext(ctx)
	submit := func(snap model.Snapshot) {
		group.Submit(func() {
			switch c.submit(ctx, snap) {
			case outcomeAccepted:
				accepted.Add(1)
			case outcomeDuplicate:
				duplicate.Add(1)
			default:
				failed.Add(1)
			}
		})
	}
	for _, snaps := range players {
		for _, snap := range snaps {
			submit(snap)
		}
		submit(snaps[0])
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		logger.Named("seeder").Warn(ctx, "submission group failed", logger.Error(err))
	}

	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Failed = int(failed.Load())
	stats.Submitted = stats.Accepted + stats.Duplicate + stats.Failed
}

// waitStored polls each player's history until every day is stored.
func waitStored(ctx context.Context, c *client, players [][]model.Snapshot, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Settle)
	defer cancel()

	pending := make([]string, 0, len(players))
	for _, snaps := range players {
		pending = append(pending, snaps[0].PlayerTag)
	}
	for {
		pending = slices.DeleteFunc(pending, func(tag string) bool {
			n, err := c.storedDays(ctx, tag, cfg.Days)
			return err == nil && n >= cfg.Days
		})
		if len(pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d players pending", ErrNotSettled, len(pending))
		case <-time.After(settlePoll):
		}
	}
}

// verifyAll fetches every timeline and milestone list and checks them
// against what was generated.
func verifyAll(ctx context.Context, pool pond.Pool, c *client, players [][]model.Snapshot, stats *Stats) {
	var (
		mu         sync.Mutex
		items      atomic.Int64
		timelines  atomic.Int64
		milestones atomic.Int64
	)
	mismatch := func(format string, args ...any) {
		mu.Lock()
		stats.Mismatches = append(stats.Mismatches, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	group := pool.NewGroupContext(ctx)
	for _, snaps := range players {
		group.Submit(func() {
			tag := snaps[0].PlayerTag
			got, err := c.timeline(ctx, tag)
			if err != nil {
				mismatch("%s: timeline: %v", tag, err)
				return
			}
			timelines.Add(1)
			items.Add(int64(len(got)))
			if problem := checkTimeline(snaps, got); problem != "" {
				mismatch("%s: %s", tag, problem)
			}

			if _, err := c.milestones(ctx, tag); err != nil {
				mismatch("%s: milestones: %v", tag, err)
				return
			}
			milestones.Add(1)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		mismatch("verification group: %v", err)
	}

	stats.TimelinesFetched = int(timelines.Load())
	stats.TimelineItems = int(items.Load())
	stats.MilestonesFetched = int(milestones.Load())
}

// checkTimeline returns a description of the first problem found, or "".
// Items must be newest first and dated within the generated range, and a
// player with more than one day must have at least one item.
func checkTimeline(snaps []model.Snapshot, items []model.TimelineItem) string {
	if len(snaps) > 1 && len(items) == 0 {
		return "empty timeline"
	}
	first, last := snaps[0].Date, snaps[len(snaps)-1].Date
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if _, dup := seen[it.ID]; dup {
			return "duplicate item id " + it.ID
		}
		seen[it.ID] = struct{}{}

		day := it.Date
		if len(day) > len(model.DateLayout) {
			day = day[:len(model.DateLayout)]
		}
		if day < first || day > last {
			return fmt.Sprintf("item %s dated %s outside %s..%s", it.ID, it.Date, first, last)
		}
		if i > 0 && it.Date > items[i-1].Date {
			return fmt.Sprintf("item %s out of order", it.ID)
		}
	}
	return ""
}
