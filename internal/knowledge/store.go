// Package knowledge implements the typed-record store backing the memory
// service: entities, facts, notes, and conversation summaries, with filtered
// queries and a cross-type keyword relevance search.
package knowledge

import "context"

// Store is the knowledge store contract consumed by the dispatchers.
// Implementations must be safe for concurrent use. Get-style lookups report
// absence as a nil record with a nil error; only UpdateEntity and
// DeleteEntity fail with a NotFoundError.
type Store interface {
	// CreateEntity allocates a fresh id, stamps creation and update times,
	// and stores the entity. Always succeeds.
	CreateEntity(ctx context.Context, name, entityType string, props Properties) (*Entity, error)

	// GetEntity returns the entity with the given id, or nil if unknown.
	GetEntity(ctx context.Context, id string) (*Entity, error)

	// FindEntities returns entities matching the filter in creation order.
	FindEntities(ctx context.Context, f EntityFilter) ([]*Entity, error)

	// UpdateEntity merges props into the entity's property bag per key,
	// preserving keys absent from props, and refreshes UpdatedAt.
	UpdateEntity(ctx context.Context, id string, props Properties) (*Entity, error)

	// DeleteEntity removes the entity with the given id.
	DeleteEntity(ctx context.Context, id string) error

	// AddFact appends a new fact. Confidence outside [0,1] is clamped into
	// range so the append always succeeds.
	AddFact(ctx context.Context, subject, predicate, object string, confidence float64, source string) (*Fact, error)

	// QueryFacts returns facts matching the filter in insertion order.
	QueryFacts(ctx context.Context, f FactFilter) ([]*Fact, error)

	// AddNote appends a new note. Always succeeds.
	AddNote(ctx context.Context, content string, tags []string, metadata map[string]Value) (*Note, error)

	// SearchNotes returns notes matching the filter in insertion order.
	SearchNotes(ctx context.Context, f NoteFilter) ([]*Note, error)

	// SaveConversationSummary upserts a summary by conversation id.
	SaveConversationSummary(ctx context.Context, conversationID, summary string, keyPoints, entities []string) (*ConversationSummary, error)

	// GetConversationSummary returns the summary for the conversation id,
	// or nil if none was saved.
	GetConversationSummary(ctx context.Context, conversationID string) (*ConversationSummary, error)

	// Search scans entities, facts, and notes for the query words and
	// returns the top limit records by relevance score. Conversation
	// summaries are excluded.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Stats returns per-collection record counts.
	Stats(ctx context.Context) (Stats, error)

	// Export returns a full snapshot of all collections in iteration order.
	Export(ctx context.Context) (*Snapshot, error)

	// Import merges a snapshot: entities and conversations upsert by their
	// carried id, facts and notes append unconditionally, nil collections
	// are skipped. Returns the stats after the import.
	Import(ctx context.Context, snap *Snapshot) (Stats, error)

	// Clear empties all four collections.
	Clear(ctx context.Context) error
}
