package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStore_SaveAndLoadRoundtrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	saved := SnapshotRecord{
		ID:         "snap-1",
		TreeID:     "t1",
		TickNumber: 1,
		Timestamp:  time.Now().UTC(),
		RootStatus: "success",
		Snapshot:   map[string]any{"blackboard": map[string]any{"k": "v"}},
	}
	if err := st.SaveSnapshot(ctx, saved); err != nil {
		t.Fatal(err)
	}

	loaded, err := st.LoadLatest(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != "snap-1" || loaded.TickNumber != 1 || loaded.RootStatus != "success" {
		t.Errorf("loaded = %+v", loaded)
	}
	snap := loaded.Snapshot.(map[string]any)
	bb := snap["blackboard"].(map[string]any)
	if bb["k"] != "v" {
		t.Errorf("snapshot payload = %v", loaded.Snapshot)
	}
}

func TestSQLiteStore_UpsertSameTick(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	first := record("t1", 1)
	_ = st.SaveSnapshot(ctx, first)
	replacement := record("t1", 1)
	replacement.RootStatus = "failure"
	if err := st.SaveSnapshot(ctx, replacement); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	records, err := st.ListSnapshots(ctx, "t1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].RootStatus != "failure" {
		t.Errorf("records = %+v, want one replaced record", records)
	}
}

func TestSQLiteStore_ListOrderAndLimit(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	for tick := 3; tick >= 1; tick-- {
		if err := st.SaveSnapshot(ctx, record("t1", tick)); err != nil {
			t.Fatal(err)
		}
	}

	records, err := st.ListSnapshots(ctx, "t1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0].TickNumber != 1 || records[2].TickNumber != 3 {
		t.Errorf("order = %v", records)
	}

	limited, _ := st.ListSnapshots(ctx, "t1", 2)
	if len(limited) != 2 {
		t.Errorf("limited = %d, want 2", len(limited))
	}
}

func TestSQLiteStore_NotFoundAndDelete(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	if _, err := st.LoadLatest(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	_ = st.SaveSnapshot(ctx, record("t1", 1))
	if err := st.DeleteTree(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadLatest(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Error("deleted tree still loads")
	}
}

func TestSQLiteStore_ClosedRejectsOperations(t *testing.T) {
	st := newTestSQLite(t)
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveSnapshot(context.Background(), record("t1", 1)); err == nil {
		t.Error("save on a closed store must fail")
	}
	if err := st.Close(); err != nil {
		t.Errorf("double close must be a no-op, got %v", err)
	}
}
