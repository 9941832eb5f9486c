package inmem

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/knowdhq/knowd/internal/core"
	"github.com/knowdhq/knowd/internal/events"
	"github.com/knowdhq/knowd/internal/knowledge"
)

func TestModule_ModuleInfo(t *testing.T) {
	t.Parallel()

	m := &Module{}
	info := m.ModuleInfo()
	if info.ID != "memory.store" {
		t.Errorf("ID = %q, want %q", info.ID, "memory.store")
	}
	if info.New == nil {
		t.Fatal("New is nil")
	}
	if _, ok := info.New().(*Module); !ok {
		t.Error("New() did not return *Module")
	}
}

func TestModule_ProvisionRegistersServices(t *testing.T) {
	t.Parallel()

	ctx := core.NewAppContext(slog.New(slog.DiscardHandler), t.TempDir())
	m := &Module{}
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	svc, ok := ctx.Service("memory.store")
	if !ok {
		t.Fatal("memory.store service not registered")
	}
	if _, ok := svc.(knowledge.Store); !ok {
		t.Errorf("memory.store has type %T, want knowledge.Store", svc)
	}

	svc, ok = ctx.Service("memory.events")
	if !ok {
		t.Fatal("memory.events service not registered")
	}
	if _, ok := svc.(*events.Broker); !ok {
		t.Errorf("memory.events has type %T, want *events.Broker", svc)
	}
}

func TestModule_StartLoadsSeed(t *testing.T) {
	t.Parallel()

	seed := &knowledge.Snapshot{
		Entities: []*knowledge.Entity{
			{ID: "entity_seed", Name: "seeded", Type: "person"},
		},
		Notes: []*knowledge.Note{
			{ID: "note_seed", Content: "from the seed file"},
		},
	}
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := knowledge.WriteSnapshotFile(path, seed); err != nil {
		t.Fatalf("WriteSnapshotFile() error = %v", err)
	}

	ctx := core.NewAppContext(slog.New(slog.DiscardHandler), t.TempDir())
	m := &Module{config: Config{Seed: path}}
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stats, err := m.store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Entities != 1 || stats.Notes != 1 {
		t.Errorf("stats = %+v, want 1 entity and 1 note", stats)
	}

	got, err := m.store.GetEntity(context.Background(), "entity_seed")
	if err != nil {
		t.Fatalf("GetEntity() error = %v", err)
	}
	if got == nil || got.Name != "seeded" {
		t.Errorf("GetEntity() = %+v, want seeded entity", got)
	}
}

func TestModule_StartMissingSeedFails(t *testing.T) {
	t.Parallel()

	ctx := core.NewAppContext(slog.New(slog.DiscardHandler), t.TempDir())
	m := &Module{config: Config{Seed: filepath.Join(t.TempDir(), "nope.json")}}
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if err := m.Start(); err == nil {
		t.Error("Start() with missing seed file succeeded, want error")
	}
}

func TestModule_StopClosesBroker(t *testing.T) {
	t.Parallel()

	ctx := core.NewAppContext(slog.New(slog.DiscardHandler), t.TempDir())
	m := &Module{}
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	ch, _ := m.broker.Subscribe()
	if _, open := <-ch; open {
		t.Error("Subscribe after Stop returned an open channel")
	}
}
