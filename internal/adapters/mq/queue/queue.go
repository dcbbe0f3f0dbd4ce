// Package queue holds accepted snapshots until an ingestion worker persists them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/metrics"
)

const defaultCapacity = 10_000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// TryEnqueue adds s without blocking. It returns ErrFull when the queue
	// is at capacity and ErrClosed after Close.
	TryEnqueue(ctx context.Context, s model.Snapshot) error

	// Dequeue returns the channel workers read from. It is closed by Close
	// once every queued snapshot has been handed out.
	Dequeue() <-chan model.Snapshot

	Len() int
	Cap() int
	Close() error
}

// SnapshotQueue implements Queue on a buffered channel.
type SnapshotQueue struct {
	items    chan model.Snapshot
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewSnapshotQueue creates a bounded queue.
func NewSnapshotQueue(opts ...Option) *SnapshotQueue {
	q := &SnapshotQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Snapshot, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// TryEnqueue adds s to the queue if there is room.
func (q *SnapshotQueue) TryEnqueue(ctx context.Context, s model.Snapshot) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	select {
	case q.items <- s:
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrFull
	}
}

// Dequeue returns the receive side of the queue.
func (q *SnapshotQueue) Dequeue() <-chan model.Snapshot { return q.items }

// Len returns the number of waiting snapshots.
func (q *SnapshotQueue) Len() int {
	q.observe()
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *SnapshotQueue) Cap() int { return q.capacity }

// Close stops accepting snapshots. Already queued ones remain readable.
func (q *SnapshotQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *SnapshotQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *SnapshotQueue) observe() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
