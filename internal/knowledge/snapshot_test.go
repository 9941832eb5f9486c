package knowledge_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/knowdhq/knowd/internal/knowledge"
)

func populate(t *testing.T, store *knowledge.InMemoryStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.CreateEntity(ctx, "Anthropic", "company", knowledge.Properties{
		"hq":     knowledge.String("SF"),
		"models": knowledge.Strings([]string{"claude"}),
	}); err != nil {
		t.Fatalf("CreateEntity: unexpected error: %v", err)
	}
	if _, err := store.AddFact(ctx, "Claude", "made_by", "Anthropic", 0.95, "docs"); err != nil {
		t.Fatalf("AddFact: unexpected error: %v", err)
	}
	if _, err := store.AddNote(ctx, "remember the launch date", []string{"todo"}, map[string]knowledge.Value{
		"priority": knowledge.Number(1),
	}); err != nil {
		t.Fatalf("AddNote: unexpected error: %v", err)
	}
	if _, err := store.SaveConversationSummary(ctx, "conv-1", "kickoff chat",
		[]string{"ship it"}, []string{"Anthropic"}); err != nil {
		t.Fatalf("SaveConversationSummary: unexpected error: %v", err)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := knowledge.NewInMemoryStore()
	populate(t, store)

	before, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: unexpected error: %v", err)
	}

	snap, err := store.Export(ctx)
	if err != nil {
		t.Fatalf("Export: unexpected error: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: unexpected error: %v", err)
	}

	after, err := store.Import(ctx, snap)
	if err != nil {
		t.Fatalf("Import: unexpected error: %v", err)
	}
	if after != before {
		t.Fatalf("stats after clear+import = %+v, want %+v", after, before)
	}

	// A second export must reproduce the snapshot exactly, including the
	// property bag values and iteration order.
	again, err := store.Export(ctx)
	if err != nil {
		t.Fatalf("Export (second): unexpected error: %v", err)
	}

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	againJSON, err := json.Marshal(again)
	if err != nil {
		t.Fatalf("marshal second snapshot: %v", err)
	}
	if string(snapJSON) != string(againJSON) {
		t.Fatalf("export after import differs:\n%s\n---\n%s", snapJSON, againJSON)
	}
}

func TestImport_EmptySnapshotIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := knowledge.NewInMemoryStore()

	stats, err := store.Import(ctx, &knowledge.Snapshot{})
	if err != nil {
		t.Fatalf("Import: unexpected error: %v", err)
	}
	if stats != (knowledge.Stats{}) {
		t.Fatalf("Import(empty) stats = %+v, want all zero", stats)
	}

	stats, err = store.Import(ctx, nil)
	if err != nil {
		t.Fatalf("Import(nil): unexpected error: %v", err)
	}
	if stats != (knowledge.Stats{}) {
		t.Fatalf("Import(nil) stats = %+v, want all zero", stats)
	}
}

func TestImport_UpsertsAndAppends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := knowledge.NewInMemoryStore()

	e, err := store.CreateEntity(ctx, "Original", "thing", nil)
	if err != nil {
		t.Fatalf("CreateEntity: unexpected error: %v", err)
	}
	f, err := store.AddFact(ctx, "s", "p", "o", 1.0, "")
	if err != nil {
		t.Fatalf("AddFact: unexpected error: %v", err)
	}
	if _, err := store.SaveConversationSummary(ctx, "conv-1", "v1", nil, nil); err != nil {
		t.Fatalf("SaveConversationSummary: unexpected error: %v", err)
	}

	// Same entity id (overwrite), same fact id (append anyway — no
	// uniqueness check), same conversation id (overwrite).
	renamed := *e
	renamed.Name = "Renamed"
	stats, err := store.Import(ctx, &knowledge.Snapshot{
		Entities: []*knowledge.Entity{&renamed},
		Facts:    []*knowledge.Fact{f},
		Conversations: []*knowledge.ConversationSummary{
			{ID: "conv-1", Summary: "v2"},
		},
	})
	if err != nil {
		t.Fatalf("Import: unexpected error: %v", err)
	}

	if stats.Entities != 1 {
		t.Errorf("Entities = %d, want 1 (upsert by id)", stats.Entities)
	}
	if stats.Facts != 2 {
		t.Errorf("Facts = %d, want 2 (unconditional append)", stats.Facts)
	}
	if stats.Conversations != 1 {
		t.Errorf("Conversations = %d, want 1 (upsert by id)", stats.Conversations)
	}

	got, err := store.GetEntity(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEntity: unexpected error: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("Name = %q, want %q after import overwrite", got.Name, "Renamed")
	}

	conv, err := store.GetConversationSummary(ctx, "conv-1")
	if err != nil {
		t.Fatalf("GetConversationSummary: unexpected error: %v", err)
	}
	if conv.Summary != "v2" {
		t.Errorf("Summary = %q, want %q", conv.Summary, "v2")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := knowledge.NewInMemoryStore()
	populate(t, store)

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: unexpected error: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: unexpected error: %v", err)
	}
	if stats != (knowledge.Stats{}) {
		t.Fatalf("Stats after Clear = %+v, want all zero", stats)
	}

	entities, err := store.FindEntities(ctx, knowledge.EntityFilter{})
	if err != nil {
		t.Fatalf("FindEntities: unexpected error: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("FindEntities after Clear: got %d, want 0", len(entities))
	}

	facts, err := store.QueryFacts(ctx, knowledge.FactFilter{})
	if err != nil {
		t.Fatalf("QueryFacts: unexpected error: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("QueryFacts after Clear: got %d, want 0", len(facts))
	}

	notes, err := store.SearchNotes(ctx, knowledge.NoteFilter{})
	if err != nil {
		t.Fatalf("SearchNotes: unexpected error: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("SearchNotes after Clear: got %d, want 0", len(notes))
	}
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := knowledge.NewInMemoryStore()
	populate(t, store)

	snap, err := store.Export(ctx)
	if err != nil {
		t.Fatalf("Export: unexpected error: %v", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored knowledge.Snapshot
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	other := knowledge.NewInMemoryStore()
	stats, err := other.Import(ctx, &restored)
	if err != nil {
		t.Fatalf("Import: unexpected error: %v", err)
	}
	want := knowledge.Stats{Entities: 1, Facts: 1, Notes: 1, Conversations: 1}
	if stats != want {
		t.Fatalf("stats after JSON round trip = %+v, want %+v", stats, want)
	}

	// The tagged-union property values must survive the trip intact.
	entities, err := other.FindEntities(ctx, knowledge.EntityFilter{
		Property: &knowledge.PropertyMatch{Key: "hq", Value: knowledge.String("SF")},
	})
	if err != nil {
		t.Fatalf("FindEntities: unexpected error: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("FindEntities by property after round trip: got %d, want 1", len(entities))
	}
	if v := entities[0].Properties["models"]; v.Kind() != knowledge.KindStrings {
		t.Errorf("models property kind = %v, want KindStrings", v.Kind())
	}
}
