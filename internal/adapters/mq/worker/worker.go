// Package worker persists queued snapshots.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
	"github.com/okian/clashintel/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Saver stores a snapshot. It reports false when the player already has a
// snapshot for that date.
type Saver interface {
	SaveSnapshot(ctx context.Context, s model.Snapshot) (bool, error)
}

// Invalidator drops any cached view of a player.
type Invalidator interface {
	Invalidate(key string)
}

// Queue defines how workers receive snapshots.
type Queue interface {
	Dequeue() <-chan model.Snapshot
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(string) {}

// SnapshotWorker drains the queue into a Saver.
type SnapshotWorker struct {
	queue       Queue
	saver       Saver
	invalidator Invalidator
	onFailure   func(model.Snapshot)
	name        string

	stored    *atomic.Int64
	duplicate *atomic.Int64
	failed    *atomic.Int64

	done   chan struct{}
	logger logger.Logger
}

// NewSnapshotWorker creates a worker with configuration options.
func NewSnapshotWorker(q Queue, saver Saver, opts ...Option) *SnapshotWorker {
	w := &SnapshotWorker{
		queue:       q,
		saver:       saver,
		invalidator: nopInvalidator{},
		onFailure:   func(model.Snapshot) {},
		name:        "worker",
		stored:      new(atomic.Int64),
		duplicate:   new(atomic.Int64),
		failed:      new(atomic.Int64),
		done:        make(chan struct{}),
		logger:      logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run processes snapshots until the queue is closed and drained or ctx is done.
func (w *SnapshotWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error persisting snapshot", logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *SnapshotWorker) Done() <-chan struct{} { return w.done }

func (w *SnapshotWorker) process(ctx context.Context, s model.Snapshot) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	inserted, err := w.saver.SaveSnapshot(ctx, s)
	if err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError("store")
		w.onFailure(s)
		return fmt.Errorf("save snapshot %s@%s: %w", s.PlayerTag, s.Date, err)
	}
	if !inserted {
		w.duplicate.Add(1)
		metrics.RecordSnapshotDuplicate()
		w.logger.Debug(ctx, "snapshot already stored",
			logger.String("tag", s.PlayerTag), logger.String("date", s.Date))
		return nil
	}

	w.stored.Add(1)
	metrics.RecordSnapshotStored()
	w.invalidator.Invalidate(s.PlayerTag)
	return nil
}

// Stats are the pool's lifetime counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Stored    int64 `json:"stored"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*SnapshotWorker
	queue   Queue

	stored    atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates workerCount workers. A count below one selects a default
// based on the number of CPUs.
func NewPool(workerCount int, q Queue, saver Saver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*SnapshotWorker, workerCount),
		queue:   q,
		logger:  logger.Named("worker-pool"),
	}
	for i := range workerCount {
		w := NewSnapshotWorker(q, saver, slices.Concat(opts, []Option{WithName("worker-" + strconv.Itoa(i))})...)
		w.stored, w.duplicate, w.failed = &p.stored, &p.duplicate, &p.failed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stats returns the aggregated counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Stored:    p.stored.Load(),
		Duplicate: p.duplicate.Load(),
		Failed:    p.failed.Load(),
	}
}

// Shutdown closes the queue when it supports closing and waits for workers to
// drain what is left.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
