package knowledge

import "time"

// Entity is a named, typed record with an open property bag. Identity is
// immutable; properties may be merged per key via UpdateEntity but never
// wholesale replaced.
type Entity struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Fact is an append-only subject/predicate/object triple with a confidence
// weight in [0,1]. Facts are never mutated; a correction is a new fact.
type Fact struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Predicate  string    `json:"predicate"`
	Object     string    `json:"object"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Note is an append-only free-form text record. Tags keep their given order
// and may contain duplicates.
type Note struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	Tags      []string         `json:"tags"`
	Metadata  map[string]Value `json:"metadata"`
	CreatedAt time.Time        `json:"created_at"`
}

// ConversationSummary is keyed by a caller-supplied conversation ID.
// Re-saving the same ID overwrites the prior summary. The Entities field is
// a list of plain entity names, not a relation to the entity collection.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	KeyPoints []string  `json:"key_points"`
	Entities  []string  `json:"entities"`
	SavedAt   time.Time `json:"saved_at"`
}

// PropertyMatch selects entities holding the given property key with exactly
// the given value (equality, not substring).
type PropertyMatch struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

// EntityFilter narrows FindEntities results. All set fields are conjunctive.
// A zero filter matches every entity.
type EntityFilter struct {
	// Type matches exactly.
	Type string
	// Name matches as a case-insensitive substring.
	Name string
	// Property requires the entity to hold Key with exactly Value.
	Property *PropertyMatch
}

// FactFilter narrows QueryFacts results. All set fields are conjunctive.
type FactFilter struct {
	// Subject matches as a case-insensitive substring.
	Subject string
	// Predicate matches exactly.
	Predicate string
	// Object matches as a case-insensitive substring.
	Object string
	// MinConfidence keeps facts with Confidence >= the threshold.
	MinConfidence *float64
}

// NoteFilter narrows SearchNotes results. Query is a case-insensitive
// substring match against content; Tags, when non-empty, require the note to
// carry at least one of the listed tags.
type NoteFilter struct {
	Query string
	Tags  []string
}

// Stats reports per-collection record counts.
type Stats struct {
	Entities      int `json:"entity_count"`
	Facts         int `json:"fact_count"`
	Notes         int `json:"note_count"`
	Conversations int `json:"conversation_count"`
}

// Snapshot is a full export of all four collections in iteration order.
// Any nil collection in an imported snapshot is a no-op for that collection.
type Snapshot struct {
	Entities      []*Entity              `json:"entities"`
	Facts         []*Fact                `json:"facts"`
	Notes         []*Note                `json:"notes"`
	Conversations []*ConversationSummary `json:"conversations"`
}
