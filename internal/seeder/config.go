// Package seeder generates synthetic clan snapshots, submits them to a
// running service and verifies the derived timelines.
package seeder

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

var (
	ErrInvalidConfig = errors.New("invalid seeder config")
	ErrUnhealthy     = errors.New("service is not healthy")
	ErrNotSettled    = errors.New("snapshots were not all stored before the deadline")
	ErrVerification  = errors.New("timeline verification failed")
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Players   int           // Number of synthetic players
	Days      int           // Consecutive days of snapshots per player
	StartDate time.Time     // Date of the first snapshot
	Workers   int           // Concurrent submitters
	Timeout   time.Duration // Per-request timeout
	Settle    time.Duration // How long to wait for ingestion to drain
	Seed      uint64        // Generator seed; 0 derives one from the run id
	Token     string        // Optional bearer token
}

// DefaultConfig returns the defaults used by cmd/seed-snapshots.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://localhost:9080",
		Players:   50,
		Days:      14,
		StartDate: time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -13),
		Workers:   runtime.NumCPU() * 2,
		Timeout:   10 * time.Second,
		Settle:    time.Minute,
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case c.Players < 1:
		return fmt.Errorf("%w: players must be positive", ErrInvalidConfig)
	case c.Days < 1:
		return fmt.Errorf("%w: days must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.StartDate.IsZero():
		return fmt.Errorf("%w: start date must be set", ErrInvalidConfig)
	}
	return nil
}

// Stats summarises a run.
type Stats struct {
	RunID             string
	Generated         int
	Submitted         int
	Accepted          int
	Duplicate         int
	Failed            int
	TimelinesFetched  int
	TimelineItems     int
	MilestonesFetched int
	Mismatches        []string
	Duration          time.Duration
}
