// Package store provides persistence backends for execution snapshots.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested tree id or snapshot does not
// exist.
var ErrNotFound = errors.New("not found")

// SnapshotRecord is the persisted form of one execution snapshot.
//
// Snapshot holds the full snapshot payload and is typed as any to avoid a
// dependency on the engine package; it must be JSON-serializable and is
// stored verbatim.
type SnapshotRecord struct {
	// ID is the snapshot's unique identifier.
	ID string `json:"id"`

	// TreeID identifies the tree instance that produced the snapshot.
	TreeID string `json:"tree_id"`

	// TickNumber is the engine tick that produced the snapshot.
	TickNumber int `json:"tick_number"`

	// Timestamp records when the snapshot was captured.
	Timestamp time.Time `json:"timestamp"`

	// RootStatus is the root's status string for that tick.
	RootStatus string `json:"root_status"`

	// Snapshot is the JSON-serializable snapshot payload.
	Snapshot any `json:"snapshot"`
}

// SnapshotStore persists execution snapshots for later inspection.
//
// Stores persist observability data, not resumable running state: a tree
// cannot be restarted from a stored snapshot.
//
// Implementations:
//   - MemStore: in-memory, for tests and short-lived processes.
//   - SQLiteStore: single-file database, zero setup.
//   - MySQLStore: shared database for multi-process deployments.
type SnapshotStore interface {
	// SaveSnapshot persists one snapshot record.
	SaveSnapshot(ctx context.Context, record SnapshotRecord) error

	// LoadLatest returns the most recent snapshot for a tree, or
	// ErrNotFound.
	LoadLatest(ctx context.Context, treeID string) (SnapshotRecord, error)

	// ListSnapshots returns up to limit snapshots for a tree in tick
	// order (all of them when limit <= 0). An empty result is not an
	// error.
	ListSnapshots(ctx context.Context, treeID string, limit int) ([]SnapshotRecord, error)

	// DeleteTree removes every snapshot recorded for a tree.
	DeleteTree(ctx context.Context, treeID string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources. Operations after Close fail.
	Close() error
}
