package gitlog

import (
	"context"
	"testing"
	"time"

	"github.com/knowdhq/knowd/internal/knowledge"
)

func TestParse(t *testing.T) {
	t.Parallel()

	output := []byte(
		"abc123def456|Alice|1700000000|fix race in broker\n" +
			"789xyz|Bob|1700000100|add mirror sync\n" +
			"malformed line without pipes\n",
	)

	commits, err := parse(output)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("commits = %d, want 2", len(commits))
	}
	if commits[0].Hash != "abc123def456" || commits[0].Author != "Alice" {
		t.Errorf("first commit = %+v", commits[0])
	}
	if commits[0].When != time.Unix(1700000000, 0).UTC() {
		t.Errorf("When = %v, want unix 1700000000", commits[0].When)
	}
	if commits[1].Subject != "add mirror sync" {
		t.Errorf("Subject = %q", commits[1].Subject)
	}
}

func TestParse_SubjectWithPipes(t *testing.T) {
	t.Parallel()

	commits, err := parse([]byte("abc|Alice|1700000000|feat: a | b | c\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(commits))
	}
	if commits[0].Subject != "feat: a | b | c" {
		t.Errorf("Subject = %q, pipes in subject should survive", commits[0].Subject)
	}
}

func TestIngest(t *testing.T) {
	t.Parallel()

	store := knowledge.NewInMemoryStore()
	ctx := context.Background()

	commits := []Commit{
		{Hash: "abc123def456", Author: "Alice", When: time.Unix(1700000000, 0).UTC(), Subject: "fix race"},
		{Hash: "789xyz111222", Author: "Bob", When: time.Unix(1700000100, 0).UTC(), Subject: "add sync"},
	}

	added, err := Ingest(ctx, store, "knowd", commits)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	notes, err := store.SearchNotes(ctx, knowledge.NoteFilter{Tags: []string{"git"}})
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(notes))
	}
	if v, ok := notes[0].Metadata["commit"]; !ok || v.Str() != "abc123def456" {
		t.Errorf("commit metadata = %v", notes[0].Metadata)
	}

	// Re-ingesting the same commits is a no-op.
	added, err = Ingest(ctx, store, "knowd", commits)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if added != 0 {
		t.Errorf("added on re-ingest = %d, want 0", added)
	}

	// Commit notes are reachable through relevance search.
	hits, err := store.Search(ctx, "race", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Kind != knowledge.KindNote {
		t.Errorf("search hits = %v, want the fix-race note", hits)
	}
}
