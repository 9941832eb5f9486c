package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the record type inside a SearchResult.
type Kind string

const (
	// KindEntity marks an entity result.
	KindEntity Kind = "entity"
	// KindFact marks a fact result.
	KindFact Kind = "fact"
	// KindNote marks a note result.
	KindNote Kind = "note"
)

// DefaultSearchLimit caps Search results when the caller passes limit <= 0.
const DefaultSearchLimit = 10

// SearchResult is one scored record from a cross-type search. Exactly one of
// Entity, Fact, or Note is non-nil, matching Kind.
type SearchResult struct {
	Kind   Kind
	Entity *Entity
	Fact   *Fact
	Note   *Note
	Score  int
}

// Record returns the non-nil record as an untyped value.
func (r SearchResult) Record() any {
	switch r.Kind {
	case KindEntity:
		return r.Entity
	case KindFact:
		return r.Fact
	case KindNote:
		return r.Note
	}
	return nil
}

// MarshalJSON flattens the result to {kind, record, score}.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   Kind `json:"kind"`
		Record any  `json:"record"`
		Score  int  `json:"score"`
	}{Kind: r.Kind, Record: r.Record(), Score: r.Score})
}

// UnmarshalJSON restores a result produced by MarshalJSON.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var head struct {
		Kind   Kind            `json:"kind"`
		Record json.RawMessage `json:"record"`
		Score  int             `json:"score"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	*r = SearchResult{Kind: head.Kind, Score: head.Score}
	switch head.Kind {
	case KindEntity:
		r.Entity = &Entity{}
		return json.Unmarshal(head.Record, r.Entity)
	case KindFact:
		r.Fact = &Fact{}
		return json.Unmarshal(head.Record, r.Fact)
	case KindNote:
		r.Note = &Note{}
		return json.Unmarshal(head.Record, r.Note)
	}
	return fmt.Errorf("knowledge: unknown search result kind %q", head.Kind)
}

// Search scans all entities, facts, and notes and ranks them by keyword
// relevance. The query is lower-cased and split on whitespace; each record's
// score is the sum over its searchable fields of +1 per query word contained
// as a substring, plus +2 more when the whole field equals the word. Records
// scoring 0 are dropped. Ties keep scan order (entities, then facts, then
// notes, each in insertion order) — the sort is stable, so equal scores are
// deterministic. Every call rescans the collections; there is no inverted
// index.
func (s *InMemoryStore) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for _, e := range s.entities {
		if score := scoreFields(words, entityFields(e)...); score > 0 {
			results = append(results, SearchResult{Kind: KindEntity, Entity: cloneEntity(e), Score: score})
		}
	}
	for _, f := range s.facts {
		if score := scoreFields(words, f.Subject, f.Predicate, f.Object); score > 0 {
			results = append(results, SearchResult{Kind: KindFact, Fact: cloneFact(f), Score: score})
		}
	}
	for _, n := range s.notes {
		fields := append([]string{n.Content}, n.Tags...)
		if score := scoreFields(words, fields...); score > 0 {
			results = append(results, SearchResult{Kind: KindNote, Note: cloneNote(n), Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// entityFields lists an entity's searchable text: name, type, and the text
// form of every property value. Property order does not affect the score —
// fields are summed independently.
func entityFields(e *Entity) []string {
	fields := make([]string, 0, 2+len(e.Properties))
	fields = append(fields, e.Name, e.Type)
	for _, v := range e.Properties {
		fields = append(fields, v.Text())
	}
	return fields
}

// scoreFields sums per-field hits: +1 per word contained in the field, +2
// more when the lower-cased field is exactly that word. A word matching in
// two fields scores twice.
func scoreFields(words []string, fields ...string) int {
	score := 0
	for _, field := range fields {
		lower := strings.ToLower(field)
		for _, w := range words {
			if strings.Contains(lower, w) {
				score++
				if lower == w {
					score += 2
				}
			}
		}
	}
	return score
}
