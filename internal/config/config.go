// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and CLASHINTEL_* env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Storage drivers understood by the service.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ClanTag labels metrics and the health payload.
	ClanTag string `koanf:"clan_tag"`

	// QueueSize bounds the in-memory snapshot ingestion queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the (player, date) first-wins cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StorageDriver selects the snapshot store: memory or sqlite.
	StorageDriver string `koanf:"storage_driver"`

	// SQLitePath is the database file used when StorageDriver is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// CacheTTL is how long a derived profile is served without revalidation.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// CacheStaleTTL is how long past CacheTTL a stale profile may still be served.
	CacheStaleTTL time.Duration `koanf:"cache_stale_ttl"`

	// HistoryMaxDays caps GET /players/{tag}/history?days.
	HistoryMaxDays int `koanf:"history_max_days"`

	// RetentionDays drops snapshots older than this many days; 0 keeps everything.
	RetentionDays int `koanf:"retention_days"`

	// RetentionSchedule is a cron spec for the retention job.
	RetentionSchedule string `koanf:"retention_schedule"`

	// JWTSecret signs leadership bearer tokens. Empty disables leadership access.
	JWTSecret string `koanf:"jwt_secret"`

	// ActivityWeights overrides per-signal activity score weights.
	ActivityWeights map[string]float64 `koanf:"activity_weights"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		ClanTag:           "",
		QueueSize:         10_000,
		WorkerCount:       runtime.NumCPU() * 2,
		DedupeSize:        200_000,
		StorageDriver:     StorageMemory,
		SQLitePath:        "clashintel.db",
		CacheTTL:          30 * time.Second,
		CacheStaleTTL:     5 * time.Minute,
		HistoryMaxDays:    90,
		RetentionDays:     0,
		RetentionSchedule: "@daily",
		ActivityWeights:   map[string]float64{},
	}
}
