package cron

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/knowdhq/knowd/internal/knowledge"
)

func TestStatsJob(t *testing.T) {
	t.Parallel()

	store := knowledge.NewInMemoryStore()
	ctx := context.Background()
	if _, err := store.CreateEntity(ctx, "Thing", "misc", nil); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	j := &StatsJob{Store: store, Logger: slog.Default()}

	if j.Name() != "stats" {
		t.Errorf("Name = %q, want stats", j.Name())
	}
	if j.Schedule() != "*/5 * * * *" {
		t.Errorf("default Schedule = %q", j.Schedule())
	}
	if err := j.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	j.ScheduleExpr = "* * * * *"
	if j.Schedule() != "* * * * *" {
		t.Errorf("custom Schedule = %q", j.Schedule())
	}
}

func TestSnapshotJob(t *testing.T) {
	t.Parallel()

	store := knowledge.NewInMemoryStore()
	ctx := context.Background()
	if _, err := store.AddNote(ctx, "keep this", []string{"backup"}, nil); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	dir := t.TempDir()
	j := &SnapshotJob{Store: store, Logger: slog.Default(), Dir: filepath.Join(dir, "snaps")}

	if err := j.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The job writes through the shared snapshot writer, so the file must
	// read back with its counterpart.
	snap, err := knowledge.ReadSnapshotFile(filepath.Join(dir, "snaps", "snapshot.json"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(snap.Notes) != 1 {
		t.Errorf("snapshot notes = %d, want 1", len(snap.Notes))
	}

	// No temp file leftover.
	if _, err := os.Stat(filepath.Join(dir, "snaps", "snapshot.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}
