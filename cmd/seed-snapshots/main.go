package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/okian/clashintel/internal/auth"
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/internal/seeder"
	"github.com/okian/clashintel/pkg/logger"
)

const runTimeout = 10 * time.Minute

func main() {
	def := seeder.DefaultConfig()

	fs := flag.NewFlagSet("seed-snapshots", flag.ExitOnError)
	baseURL := fs.String("url", def.BaseURL, "base URL of the service")
	players := fs.IntP("players", "p", def.Players, "number of synthetic players")
	days := fs.IntP("days", "d", def.Days, "consecutive days of snapshots per player")
	start := fs.String("start", def.StartDate.Format(model.DateLayout), "date of the first snapshot (YYYY-MM-DD)")
	workers := fs.IntP("workers", "w", def.Workers, "concurrent submitters")
	timeout := fs.Duration("timeout", def.Timeout, "per-request timeout")
	settle := fs.Duration("settle", def.Settle, "how long to wait for ingestion to drain")
	seed := fs.Uint64("seed", 0, "generator seed (0 derives one from the run id)")
	secret := fs.String("jwt-secret", "", "sign a leader token with this secret so timelines include leadership items")
	logLevel := fs.String("log-level", "info", "log level")
	_ = fs.Parse(os.Args[1:])

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(*logLevel)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	startDate, ok := model.ParseDate(*start)
	if !ok {
		log.Error(ctx, "invalid --start", logger.String("start", *start))
		os.Exit(2)
	}

	cfg := seeder.Config{
		BaseURL:   *baseURL,
		Players:   *players,
		Days:      *days,
		StartDate: startDate,
		Workers:   *workers,
		Timeout:   *timeout,
		Settle:    *settle,
		Seed:      *seed,
	}
	if *secret != "" {
		token, err := auth.NewService(*secret, runTimeout).GenerateToken("seed-snapshots", auth.RoleLeader)
		if err != nil {
			log.Error(ctx, "failed to sign token", logger.Error(err))
			os.Exit(2)
		}
		cfg.Token = token
	}

	stats, err := seeder.Run(ctx, cfg)
	if stats != nil {
		log.Info(ctx, "final statistics",
			logger.String("runID", stats.RunID),
			logger.Int("generated", stats.Generated),
			logger.Int("submitted", stats.Submitted),
			logger.Int("accepted", stats.Accepted),
			logger.Int("duplicate", stats.Duplicate),
			logger.Int("failed", stats.Failed),
			logger.Int("timelines", stats.TimelinesFetched),
			logger.Int("timelineItems", stats.TimelineItems),
			logger.Int("milestones", stats.MilestonesFetched),
			logger.Duration("duration", stats.Duration))
	}
	if err != nil {
		log.Error(ctx, "seeding failed", logger.Error(err))
		os.Exit(1)
	}
}
