package worker

import (
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/logger"
)

// Option applies a configuration option to a SnapshotWorker.
type Option func(*SnapshotWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *SnapshotWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *SnapshotWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithInvalidator registers the cache that must forget a player once a new
// snapshot of theirs is stored.
func WithInvalidator(inv Invalidator) Option {
	return func(w *SnapshotWorker) {
		if inv != nil {
			w.invalidator = inv
		}
	}
}

// WithFailureHook is called with every snapshot the store rejected with an
// error, so the caller can release its dedupe slot.
func WithFailureHook(fn func(model.Snapshot)) Option {
	return func(w *SnapshotWorker) {
		if fn != nil {
			w.onFailure = fn
		}
	}
}
