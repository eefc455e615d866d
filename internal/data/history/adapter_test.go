package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestAdapter_SaveAndLoadSnapshots(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	adapter := NewAdapter(store)
	defer func() { _ = adapter.Close() }()

	now := time.Now().UTC().Truncate(time.Second)
	snapshot := Snapshot{
		RunID:      "run-1",
		Timestamp:  now,
		FileCount:  5,
		RuleCounts: map[string]int{"WL003": 2},
	}
	id, err := adapter.SaveSnapshot("project-a", snapshot)
	if err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if id != "run-1" {
		t.Fatalf("expected caller run id to be kept, got %q", id)
	}

	rows, err := adapter.LoadSnapshots("project-a", now.Add(-time.Second))
	if err != nil {
		t.Fatalf("load snapshots: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(rows))
	}
	if rows[0].FileCount != 5 || rows[0].RuleCounts["WL003"] != 2 {
		t.Fatalf("unexpected snapshot: %+v", rows[0])
	}

	run, err := adapter.LoadRun("run-1")
	if err != nil || run.RunID != "run-1" {
		t.Fatalf("unexpected run %+v, %v", run, err)
	}
	if removed, err := adapter.Prune("project-a", 1); err != nil || removed != 0 {
		t.Fatalf("expected nothing pruned, got %d, %v", removed, err)
	}
}
