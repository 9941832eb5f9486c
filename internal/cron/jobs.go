package cron

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/knowdhq/knowd/internal/knowledge"
)

// StatsJob periodically logs record counts from the knowledge store.
type StatsJob struct {
	Store        knowledge.Store
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*StatsJob)(nil)

// Name implements Job.
func (j *StatsJob) Name() string { return "stats" }

// Schedule implements Job.
func (j *StatsJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run logs the current record counts.
func (j *StatsJob) Run(ctx context.Context) error {
	stats, err := j.Store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("cron: stats read failed: %w", err)
	}
	j.Logger.Info("store stats",
		"entities", stats.Entities,
		"facts", stats.Facts,
		"notes", stats.Notes,
		"conversations", stats.Conversations,
	)
	return nil
}

// SnapshotJob periodically exports the store to a JSON file. The write goes
// through a temp file and rename so readers never see a partial snapshot.
type SnapshotJob struct {
	Store        knowledge.Store
	Logger       *slog.Logger
	Dir          string
	ScheduleExpr string // empty = default "0 * * * *"
}

// Compile-time interface check.
var _ Job = (*SnapshotJob)(nil)

// Name implements Job.
func (j *SnapshotJob) Name() string { return "snapshot" }

// Schedule implements Job.
func (j *SnapshotJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run writes the current export to <dir>/snapshot.json.
func (j *SnapshotJob) Run(ctx context.Context) error {
	snap, err := j.Store.Export(ctx)
	if err != nil {
		return fmt.Errorf("cron: export failed: %w", err)
	}

	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return fmt.Errorf("cron: create snapshot dir: %w", err)
	}

	path := filepath.Join(j.Dir, "snapshot.json")
	if err := knowledge.WriteSnapshotFile(path, snap); err != nil {
		return fmt.Errorf("cron: %w", err)
	}

	j.Logger.Info("snapshot written", "path", path)
	return nil
}
