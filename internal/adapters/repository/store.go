// Package repository defines the snapshot store interface and its
// in-memory and SQLite implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/clashintel/internal/domain/model"
)

// Store persists player snapshots and leadership records.
type Store interface {
	// SaveSnapshot stores s keyed by player and calendar date. The first
	// snapshot for a date wins; later ones are ignored and reported as false.
	SaveSnapshot(ctx context.Context, s model.Snapshot) (bool, error)

	// Snapshots returns a player's snapshots in ascending date order.
	// Returns ErrNotFound if the player has none.
	Snapshots(ctx context.Context, tag string) ([]model.Snapshot, error)

	// Latest returns the most recent snapshot of every player.
	Latest(ctx context.Context) ([]model.Snapshot, error)

	AddNote(ctx context.Context, n model.Note) error
	AddWarning(ctx context.Context, w model.Warning) error
	AddMovement(ctx context.Context, m model.Movement) error
	AddTenureAction(ctx context.Context, a model.TenureAction) error
	AddJoinerEvent(ctx context.Context, j model.JoinerEvent) error

	// Leadership returns every leadership record stored for a player.
	Leadership(ctx context.Context, tag string) (model.LeadershipRecords, error)

	// PruneBefore deletes snapshots dated before cutoff and returns how many went.
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Count returns the number of players with at least one snapshot.
	Count(ctx context.Context) (int, error)

	// Driver names the backing implementation.
	Driver() string

	Close() error
}

// Record kinds used by stores that keep leadership records in one collection.
const (
	kindNote     = "note"
	kindWarning  = "warning"
	kindMovement = "movement"
	kindTenure   = "tenure"
	kindJoiner   = "joiner"
)
