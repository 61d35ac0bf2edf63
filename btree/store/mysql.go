package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed SnapshotStore.
//
// Designed for deployments where several processes share snapshot
// history, and for audit trails that must survive the ticking process.
// Uses connection pooling and upserts for reliability.
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens a store over the given DSN, e.g.
//
//	user:password@tcp(localhost:3306)/btree?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment. The
// store creates its tables on first use.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS tree_snapshots (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			tree_id VARCHAR(255) NOT NULL,
			tick_number INT NOT NULL,
			root_status VARCHAR(32) NOT NULL,
			snapshot JSON NOT NULL,
			captured_at TIMESTAMP(6) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_tree_id (tree_id),
			UNIQUE KEY unique_tree_tick (tree_id, tick_number)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create tree_snapshots table: %w", err)
	}
	return nil
}

// SaveSnapshot persists the record; re-saving the same (tree, tick) pair
// replaces the stored snapshot.
func (m *MySQLStore) SaveSnapshot(ctx context.Context, record SnapshotRecord) error {
	if err := m.open(); err != nil {
		return err
	}

	payload, err := json.Marshal(record.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO tree_snapshots (id, tree_id, tick_number, root_status, snapshot, captured_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = VALUES(id),
			root_status = VALUES(root_status),
			snapshot = VALUES(snapshot),
			captured_at = VALUES(captured_at)
	`
	_, err = m.db.ExecContext(ctx, query,
		record.ID, record.TreeID, record.TickNumber, record.RootStatus,
		string(payload), record.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadLatest returns the record with the highest tick number for the
// tree, or ErrNotFound.
func (m *MySQLStore) LoadLatest(ctx context.Context, treeID string) (SnapshotRecord, error) {
	if err := m.open(); err != nil {
		return SnapshotRecord{}, err
	}

	query := `
		SELECT id, tree_id, tick_number, root_status, snapshot, captured_at
		FROM tree_snapshots
		WHERE tree_id = ?
		ORDER BY tick_number DESC
		LIMIT 1
	`
	record, err := m.scanRecord(m.db.QueryRowContext(ctx, query, treeID))
	if err == sql.ErrNoRows {
		return SnapshotRecord{}, ErrNotFound
	}
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	return record, nil
}

// ListSnapshots returns up to limit records in tick order.
func (m *MySQLStore) ListSnapshots(ctx context.Context, treeID string, limit int) ([]SnapshotRecord, error) {
	if err := m.open(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tree_id, tick_number, root_status, snapshot, captured_at
		FROM tree_snapshots
		WHERE tree_id = ?
		ORDER BY tick_number ASC
	`
	args := []any{treeID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []SnapshotRecord
	for rows.Next() {
		record, err := m.scanRecord(rows)
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
func (m *MySQLStore) DeleteTree(ctx context.Context, treeID string) error {
	if err := m.open(); err != nil {
		return err
	}
	if _, err := m.db.ExecContext(ctx, "DELETE FROM tree_snapshots WHERE tree_id = ?", treeID); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	if err := m.open(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

// Close closes the database connection. Double-close is a no-op.
func (m *MySQLStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

func (m *MySQLStore) open() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

func (m *MySQLStore) scanRecord(row rowScanner) (SnapshotRecord, error) {
	var (
		record     SnapshotRecord
		payload    string
		capturedAt time.Time
	)
	if err := row.Scan(&record.ID, &record.TreeID, &record.TickNumber, &record.RootStatus, &payload, &capturedAt); err != nil {
		return SnapshotRecord{}, err
	}
	record.Timestamp = capturedAt

	var snapshot any
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return SnapshotRecord{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	record.Snapshot = snapshot
	return record, nil
}
