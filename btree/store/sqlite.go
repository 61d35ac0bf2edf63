package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed SnapshotStore.
//
// It stores snapshots in a single-file database with zero setup:
// auto-migration on first use, WAL mode for concurrent reads, and
// transactional writes. Suitable for development and single-process
// deployments; use MySQLStore when several processes share history.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens (creating if needed) the database at path.
// Use ":memory:" for an in-memory database that disappears on Close.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports a single writer; keep one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS tree_snapshots (
			id TEXT NOT NULL PRIMARY KEY,
			tree_id TEXT NOT NULL,
			tick_number INTEGER NOT NULL,
			root_status TEXT NOT NULL,
			snapshot TEXT NOT NULL,
			captured_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tree_id, tick_number)
		)
	`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create tree_snapshots table: %w", err)
	}
	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_snapshots_tree ON tree_snapshots(tree_id)",
		"CREATE INDEX IF NOT EXISTS idx_snapshots_tree_tick ON tree_snapshots(tree_id, tick_number)",
	} {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// SaveSnapshot persists the record; re-saving the same (tree, tick) pair
// replaces the stored snapshot.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, record SnapshotRecord) error {
	if err := s.open(); err != nil {
		return err
	}

	payload, err := json.Marshal(record.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO tree_snapshots (id, tree_id, tick_number, root_status, snapshot, captured_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tree_id, tick_number) DO UPDATE SET
			id = excluded.id,
			root_status = excluded.root_status,
			snapshot = excluded.snapshot,
			captured_at = excluded.captured_at
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.TreeID, record.TickNumber, record.RootStatus,
		string(payload), record.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadLatest returns the record with the highest tick number for the
// tree, or ErrNotFound.
func (s *SQLiteStore) LoadLatest(ctx context.Context, treeID string) (SnapshotRecord, error) {
	if err := s.open(); err != nil {
		return SnapshotRecord{}, err
	}

	query := `
		SELECT id, tree_id, tick_number, root_status, snapshot, captured_at
		FROM tree_snapshots
		WHERE tree_id = ?
		ORDER BY tick_number DESC
		LIMIT 1
	`
	record, err := s.scanRecord(s.db.QueryRowContext(ctx, query, treeID))
	if err == sql.ErrNoRows {
		return SnapshotRecord{}, ErrNotFound
	}
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	return record, nil
}

// ListSnapshots returns up to limit records in tick order.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, treeID string, limit int) ([]SnapshotRecord, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unlimited
	}

	query := `
		SELECT id, tree_id, tick_number, root_status, snapshot, captured_at
		FROM tree_snapshots
		WHERE tree_id = ?
		ORDER BY tick_number ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, treeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []SnapshotRecord
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return records, nil
}

// DeleteTree removes every snapshot recorded for the tree.
func (s *SQLiteStore) DeleteTree(ctx context.Context, treeID string) error {
	if err := s.open(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tree_snapshots WHERE tree_id = ?", treeID); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.open(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Close closes the database connection. Double-close is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) open() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanRecord(row rowScanner) (SnapshotRecord, error) {
	var (
		record     SnapshotRecord
		payload    string
		capturedAt string
	)
	if err := row.Scan(&record.ID, &record.TreeID, &record.TickNumber, &record.RootStatus, &payload, &capturedAt); err != nil {
		return SnapshotRecord{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, capturedAt)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	record.Timestamp = ts

	var snapshot any
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return SnapshotRecord{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	record.Snapshot = snapshot
	return record, nil
}
