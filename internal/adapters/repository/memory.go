package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/metrics"
)

const driverMemory = "memory"

// playerData holds one player's snapshots (by calendar date) and records.
type playerData struct {
	mu        sync.RWMutex
	snapshots map[string]model.Snapshot
	records   model.LeadershipRecords
}

// MemoryStore keeps everything in process memory. Players live in a
// concurrent map; each player's data has its own lock.
type MemoryStore struct {
	players               *xsync.Map[string, *playerData]
	metricsUpdateInterval time.Duration
	closed                atomic.Bool
	stop                  context.CancelFunc
}

// NewMemoryStore creates an empty store and starts its metrics loop, which
// stops when ctx is cancelled or the store is closed.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		players:               xsync.NewMap[string, *playerData](),
		metricsUpdateInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx, s.stop = context.WithCancel(ctx)
	go s.metricsLoop(ctx)
	return s
}

func (s *MemoryStore) metricsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateTotalPlayers(s.players.Size())
		}
	}
}

// player returns the data for tag, creating it when create is set.
func (s *MemoryStore) player(tag string, create bool) (*playerData, bool) {
	if !create {
		return s.players.Load(tag)
	}
	pd, _ := s.players.Compute(tag, func(old *playerData, loaded bool) (*playerData, xsync.ComputeOp) {
		if !loaded {
			old = &playerData{snapshots: make(map[string]model.Snapshot)}
		}
		return old, xsync.UpdateOp
	})
	return pd, true
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snap model.Snapshot) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryLatency(driverMemory, "save_snapshot", msSince(start)) }()

	key, err := snapshotKey(snap)
	if err != nil {
		return false, err
	}

	pd, _ := s.player(snap.PlayerTag, true)
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if _, exists := pd.snapshots[key]; exists {
		return false, nil
	}
	pd.snapshots[key] = snap.Clone()
	return true, nil
}

func (s *MemoryStore) Snapshots(_ context.Context, tag string) ([]model.Snapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryLatency(driverMemory, "snapshots", msSince(start)) }()

	pd, ok := s.player(tag, false)
	if !ok {
		return nil, fmt.Errorf("%s: %w", tag, ErrNotFound)
	}
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	if len(pd.snapshots) == 0 {
		return nil, fmt.Errorf("%s: %w", tag, ErrNotFound)
	}

	keys := make([]string, 0, len(pd.snapshots))
	for k := range pd.snapshots {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]model.Snapshot, len(keys))
	for i, k := range keys {
		out[i] = pd.snapshots[k].Clone()
	}
	return out, nil
}

func (s *MemoryStore) Latest(_ context.Context) ([]model.Snapshot, error) {
	var out []model.Snapshot
	s.players.Range(func(_ string, pd *playerData) bool {
		pd.mu.RLock()
		defer pd.mu.RUnlock()
		var latestKey string
		for k := range pd.snapshots {
			if k > latestKey {
				latestKey = k
			}
		}
		if latestKey != "" {
			out = append(out, pd.snapshots[latestKey].Clone())
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerTag < out[j].PlayerTag })
	return out, nil
}

// addRecord appends a leadership record under the player's lock.
func (s *MemoryStore) addRecord(tag string, apply func(*model.LeadershipRecords)) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if tag == "" {
		return fmt.Errorf("player tag: %w", ErrInvalidRecord)
	}
	pd, _ := s.player(tag, true)
	pd.mu.Lock()
	apply(&pd.records)
	pd.mu.Unlock()
	return nil
}

func (s *MemoryStore) AddNote(_ context.Context, n model.Note) error {
	return s.addRecord(n.PlayerTag, func(r *model.LeadershipRecords) { r.Notes = append(r.Notes, n) })
}

func (s *MemoryStore) AddWarning(_ context.Context, w model.Warning) error {
	return s.addRecord(w.PlayerTag, func(r *model.LeadershipRecords) { r.Warnings = append(r.Warnings, w) })
}

func (s *MemoryStore) AddMovement(_ context.Context, m model.Movement) error {
	return s.addRecord(m.PlayerTag, func(r *model.LeadershipRecords) { r.Movements = append(r.Movements, m) })
}

func (s *MemoryStore) AddTenureAction(_ context.Context, a model.TenureAction) error {
	return s.addRecord(a.PlayerTag, func(r *model.LeadershipRecords) { r.TenureActions = append(r.TenureActions, a) })
}

func (s *MemoryStore) AddJoinerEvent(_ context.Context, j model.JoinerEvent) error {
	return s.addRecord(j.PlayerTag, func(r *model.LeadershipRecords) { r.JoinerEvents = append(r.JoinerEvents, j) })
}

func (s *MemoryStore) Leadership(_ context.Context, tag string) (model.LeadershipRecords, error) {
	pd, ok := s.player(tag, false)
	if !ok {
		return model.LeadershipRecords{}, nil
	}
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	return model.LeadershipRecords{
		Movements:     slices.Clone(pd.records.Movements),
		TenureActions: slices.Clone(pd.records.TenureActions),
		Warnings:      slices.Clone(pd.records.Warnings),
		Notes:         slices.Clone(pd.records.Notes),
		JoinerEvents:  slices.Clone(pd.records.JoinerEvents),
	}, nil
}

func (s *MemoryStore) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	limit := cutoff.UTC().Format(model.DateLayout)
	pruned := 0
	s.players.Range(func(_ string, pd *playerData) bool {
		pd.mu.Lock()
		for k := range pd.snapshots {
			if k < limit {
				delete(pd.snapshots, k)
				pruned++
			}
		}
		pd.mu.Unlock()
		return true
	})
	return pruned, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	n := 0
	s.players.Range(func(_ string, pd *playerData) bool {
		pd.mu.RLock()
		if len(pd.snapshots) > 0 {
			n++
		}
		pd.mu.RUnlock()
		return true
	})
	return n, nil
}

func (s *MemoryStore) Driver() string { return driverMemory }

func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.stop()
	}
	return nil
}

// snapshotKey validates s and returns its calendar date.
func snapshotKey(s model.Snapshot) (string, error) {
	if s.PlayerTag == "" {
		return "", fmt.Errorf("player tag: %w", ErrInvalidRecord)
	}
	key := s.DayKey()
	if key == "" {
		return "", fmt.Errorf("snapshot date %q: %w", s.Date, ErrInvalidRecord)
	}
	return key, nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
