// Package service wires storage, ingestion, caching and derivation into the
// operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/clashintel/internal/adapters/cache"
	"github.com/okian/clashintel/internal/adapters/mq/queue"
	"github.com/okian/clashintel/internal/adapters/mq/worker"
	"github.com/okian/clashintel/internal/adapters/repository"
	"github.com/okian/clashintel/internal/config"
	"github.com/okian/clashintel/internal/domain/activity"
	"github.com/okian/clashintel/internal/domain/dedupe"
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
	"github.com/okian/clashintel/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const defaultHistoryMaxDays = 90

// playerView is what the profile cache holds for one player.
type playerView struct {
	Snapshots []model.Snapshot
	Records   model.LeadershipRecords
}

// Service implements the dependencies of the HTTP API.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	ownsStore  bool
	deduper    dedupe.Deduper
	queue      *queue.SnapshotQueue
	workerPool *worker.Pool
	profiles   *cache.SWR[playerView]
	scorer     *activity.Scorer
	scheduler  *cron.Cron

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	storageDriver     string
	sqlitePath        string
	cacheTTL          time.Duration
	cacheStaleTTL     time.Duration
	historyMaxDays    int
	retentionDays     int
	retentionSchedule string
	activityWeights   map[string]float64
	clanTag           string
	now               func() time.Time

	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many (player, date) keys the ingestion guard remembers.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStorage selects the store built on Start.
func WithStorage(driver, sqlitePath string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storageDriver = driver
		}
		if sqlitePath != "" {
			s.sqlitePath = sqlitePath
		}
	}
}

// WithStore injects a ready store. The service does not close injected stores.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCacheTTL sets how long profiles stay fresh and then stale.
func WithCacheTTL(ttl, stale time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
		if stale >= 0 {
			s.cacheStaleTTL = stale
		}
	}
}

// WithHistoryMaxDays caps the history window.
func WithHistoryMaxDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.historyMaxDays = days
		}
	}
}

// WithRetention prunes snapshots older than days on the given cron schedule.
// Zero days disables pruning.
func WithRetention(days int, schedule string) Option {
	return func(s *Service) {
		if days >= 0 {
			s.retentionDays = days
		}
		if schedule != "" {
			s.retentionSchedule = schedule
		}
	}
}

// WithActivityWeights overrides activity signal weights.
func WithActivityWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.activityWeights = weights
	}
}

// WithClanTag labels roster responses.
func WithClanTag(tag string) Option {
	return func(s *Service) {
		s.clanTag = tag
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// FromConfig maps a loaded configuration onto service options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithStorage(cfg.StorageDriver, cfg.SQLitePath),
		WithCacheTTL(cfg.CacheTTL, cfg.CacheStaleTTL),
		WithHistoryMaxDays(cfg.HistoryMaxDays),
		WithRetention(cfg.RetentionDays, cfg.RetentionSchedule),
		WithActivityWeights(cfg.ActivityWeights),
		WithClanTag(cfg.ClanTag),
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         10_000,
		dedupeSize:        200_000,
		storageDriver:     config.StorageMemory,
		cacheTTL:          30 * time.Second,
		cacheStaleTTL:     5 * time.Minute,
		historyMaxDays:    defaultHistoryMaxDays,
		retentionSchedule: "@daily",
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.logger.Info(ctx, "starting clashintel service...")

	runCtx, cancel := context.WithCancel(context.Background())
	if s.store == nil {
		store, err := s.openStore(ctx, runCtx)
		if err != nil {
			cancel()
			return err
		}
		s.store, s.ownsStore = store, true
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewSnapshotQueue(queue.WithCapacity(s.queueSize))
	s.scorer = activity.NewScorer(activity.WithWeights(s.activityWeights))
	s.profiles = cache.New("profiles", s.loadPlayer,
		cache.WithTTL[playerView](s.cacheTTL),
		cache.WithStaleTTL[playerView](s.cacheStaleTTL),
		cache.WithClock[playerView](s.now),
	)

	s.workerPool = worker.NewPool(s.workerCount, s.queue, s.store,
		worker.WithInvalidator(s.profiles),
		worker.WithFailureHook(func(snap model.Snapshot) {
			s.deduper.Unrecord(runCtx, dedupe.Key(snap.PlayerTag, snap.DayKey()))
		}),
	)
	s.workerPool.Start(runCtx)

	if s.retentionDays > 0 {
		if err := s.startRetention(runCtx); err != nil {
			cancel()
			return err
		}
	}

	s.cancel = cancel
	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "clashintel service started",
		logger.String("storage", s.store.Driver()),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("retentionDays", s.retentionDays),
	)
	return nil
}

func (s *Service) openStore(ctx, runCtx context.Context) (repository.Store, error) {
	switch s.storageDriver {
	case config.StorageSQLite:
		store, err := repository.NewSQLiteStore(ctx, s.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.StorageMemory, "":
		return repository.NewMemoryStore(runCtx), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, s.storageDriver)
	}
}

// Stop drains the ingestion queue and releases resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping clashintel service...")

	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
		s.scheduler = nil
	}
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.cancel()
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "error closing store", logger.Error(err))
		}
		s.store, s.ownsStore = nil, false
	}

	s.started = false
	s.logger.Info(ctx, "clashintel service stopped")
}

// deps returns the running components or ErrNotStarted.
func (s *Service) deps() (repository.Store, *cache.SWR[playerView], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.profiles, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"storageDriver": s.storageDriver,
		"retentionDays": s.retentionDays,
	}
	if !s.started {
		return stats
	}

	players, err := s.store.Count(context.Background())
	if err != nil {
		s.logger.Warn(context.Background(), "count players failed", logger.Error(err))
	}
	queueLen := s.queue.Len()
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
	stats["queueLength"] = queueLen
	stats["dedupeEntries"] = s.deduper.Size()
	stats["cachedProfiles"] = s.profiles.Len()
	stats["totalPlayers"] = players
	stats["workers"] = s.workerPool.Stats()

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateTotalPlayers(players)
	metrics.UpdateSystemMemoryUsage(mem.HeapAlloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return stats
}

// Health summarises storage reachability.
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Players int    `json:"players"`
}

// Health reports whether the store answers.
func (s *Service) Health(ctx context.Context) Health {
	store, _, err := s.deps()
	if err != nil {
		return Health{Status: "starting", Storage: s.storageDriver}
	}
	n, err := store.Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "health check failed", logger.Error(err))
		return Health{Status: "degraded", Storage: store.Driver()}
	}
	return Health{Status: "ok", Storage: store.Driver(), Players: n}
}

func (s *Service) loadPlayer(ctx context.Context, tag string) (playerView, error) {
	store, _, err := s.deps()
	if err != nil {
		return playerView{}, err
	}
	snaps, err := store.Snapshots(ctx, tag)
	missing := errors.Is(err, repository.ErrNotFound)
	if err != nil && !missing {
		return playerView{}, err
	}
	recs, rerr := store.Leadership(ctx, tag)
	if rerr != nil {
		return playerView{}, rerr
	}
	// Records alone are enough to know the player; joiners can precede snapshots.
	if missing && recs.Empty() {
		return playerView{}, err
	}
	return playerView{Snapshots: snaps, Records: recs}, nil
}

// player resolves a raw tag and returns the cached view of that player.
func (s *Service) player(ctx context.Context, rawTag string) (string, playerView, error) {
	tag, err := model.NormalizeTag(rawTag)
	if err != nil {
		return "", playerView{}, err
	}
	_, profiles, err := s.deps()
	if err != nil {
		return "", playerView{}, err
	}
	view, err := profiles.Get(ctx, tag)
	if err != nil {
		return "", playerView{}, err
	}
	return tag, view, nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
