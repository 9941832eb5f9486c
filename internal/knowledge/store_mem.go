package knowledge

import (
	"context"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// InMemoryStore is a thread-safe, in-memory implementation of Store.
// Collections are slices in insertion order with id→index maps for O(1)
// lookup, guarded by a single RWMutex. Every operation holds the lock for
// that one call only; nothing is held across external calls. Records are
// cloned on the way in and out so callers can never mutate internal state.
type InMemoryStore struct {
	mu        sync.RWMutex
	entities  []*Entity
	entityIdx map[string]int // id → index in entities
	facts     []*Fact
	notes     []*Note
	convs     []*ConversationSummary
	convIdx   map[string]int // conversation id → index in convs
}

// NewInMemoryStore creates a new empty knowledge store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entityIdx: make(map[string]int),
		convIdx:   make(map[string]int),
	}
}

// Compile-time interface check.
var _ Store = (*InMemoryStore)(nil)

func now() time.Time { return time.Now().UTC() }

func cloneEntity(e *Entity) *Entity {
	cp := *e
	cp.Properties = e.Properties.clone()
	return &cp
}

func cloneFact(f *Fact) *Fact {
	cp := *f
	return &cp
}

func cloneNote(n *Note) *Note {
	cp := *n
	cp.Tags = slices.Clone(n.Tags)
	cp.Metadata = Properties(n.Metadata).clone()
	return &cp
}

func cloneSummary(c *ConversationSummary) *ConversationSummary {
	cp := *c
	cp.KeyPoints = slices.Clone(c.KeyPoints)
	cp.Entities = slices.Clone(c.Entities)
	return &cp
}

// CreateEntity allocates a fresh id and stores the entity.
func (s *InMemoryStore) CreateEntity(_ context.Context, name, entityType string, props Properties) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	e := &Entity{
		ID:         newID(entityPrefix),
		Name:       name,
		Type:       entityType,
		Properties: props.clone(),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if e.Properties == nil {
		e.Properties = Properties{}
	}

	s.entityIdx[e.ID] = len(s.entities)
	s.entities = append(s.entities, e)
	return cloneEntity(e), nil
}

// GetEntity returns the entity with the given id, or nil if unknown.
func (s *InMemoryStore) GetEntity(_ context.Context, id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.entityIdx[id]
	if !ok {
		return nil, nil
	}
	return cloneEntity(s.entities[idx]), nil
}

// FindEntities returns entities matching the filter in creation order.
// A filter with a Property whose key is empty is an InvalidArgumentError.
func (s *InMemoryStore) FindEntities(_ context.Context, f EntityFilter) ([]*Entity, error) {
	if f.Property != nil && f.Property.Key == "" {
		return nil, &InvalidArgumentError{Reason: "property filter requires a key"}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	nameLower := strings.ToLower(f.Name)

	var result []*Entity
	for _, e := range s.entities {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(e.Name), nameLower) {
			continue
		}
		if f.Property != nil {
			v, ok := e.Properties[f.Property.Key]
			if !ok || !v.Equal(f.Property.Value) {
				continue
			}
		}
		result = append(result, cloneEntity(e))
	}
	return result, nil
}

// UpdateEntity merges props into the entity's property bag per key.
// Keys absent from props are preserved.
func (s *InMemoryStore) UpdateEntity(_ context.Context, id string, props Properties) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.entityIdx[id]
	if !ok {
		return nil, &NotFoundError{Kind: "entity", ID: id}
	}

	e := s.entities[idx]
	if e.Properties == nil {
		e.Properties = Properties{}
	}
	for k, v := range props {
		e.Properties[k] = v
	}
	e.UpdatedAt = now()

	return cloneEntity(e), nil
}

// DeleteEntity removes the entity, preserving creation order of the rest.
func (s *InMemoryStore) DeleteEntity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.entityIdx[id]
	if !ok {
		return &NotFoundError{Kind: "entity", ID: id}
	}

	s.entities = slices.Delete(s.entities, idx, idx+1)
	delete(s.entityIdx, id)
	for i := idx; i < len(s.entities); i++ {
		s.entityIdx[s.entities[i].ID] = i
	}
	return nil
}

// clamp01 forces confidence into [0,1]; NaN becomes the 1.0 default so the
// append still succeeds.
func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return 1.0
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// AddFact appends a new fact.
func (s *InMemoryStore) AddFact(_ context.Context, subject, predicate, object string, confidence float64, source string) (*Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &Fact{
		ID:         newID(factPrefix),
		Subject:    subject,
		Predicate:  predicate,
		Object:     object,
		Confidence: clamp01(confidence),
		Source:     source,
		CreatedAt:  now(),
	}
	s.facts = append(s.facts, f)
	return cloneFact(f), nil
}

// QueryFacts returns facts matching the filter in insertion order.
func (s *InMemoryStore) QueryFacts(_ context.Context, f FactFilter) ([]*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjectLower := strings.ToLower(f.Subject)
	objectLower := strings.ToLower(f.Object)

	var result []*Fact
	for _, fact := range s.facts {
		if f.Subject != "" && !strings.Contains(strings.ToLower(fact.Subject), subjectLower) {
			continue
		}
		if f.Predicate != "" && fact.Predicate != f.Predicate {
			continue
		}
		if f.Object != "" && !strings.Contains(strings.ToLower(fact.Object), objectLower) {
			continue
		}
		if f.MinConfidence != nil && fact.Confidence < *f.MinConfidence {
			continue
		}
		result = append(result, cloneFact(fact))
	}
	return result, nil
}

// AddNote appends a new note.
func (s *InMemoryStore) AddNote(_ context.Context, content string, tags []string, metadata map[string]Value) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := &Note{
		ID:        newID(notePrefix),
		Content:   content,
		Tags:      slices.Clone(tags),
		Metadata:  Properties(metadata).clone(),
		CreatedAt: now(),
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.Metadata == nil {
		n.Metadata = map[string]Value{}
	}
	s.notes = append(s.notes, n)
	return cloneNote(n), nil
}

// SearchNotes returns notes matching the filter in insertion order. The
// content query and the tag list are conjunctive; within the tag list any
// single match suffices.
func (s *InMemoryStore) SearchNotes(_ context.Context, f NoteFilter) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryLower := strings.ToLower(f.Query)

	var result []*Note
	for _, n := range s.notes {
		if f.Query != "" && !strings.Contains(strings.ToLower(n.Content), queryLower) {
			continue
		}
		if len(f.Tags) > 0 && !anyTag(n.Tags, f.Tags) {
			continue
		}
		result = append(result, cloneNote(n))
	}
	return result, nil
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

// SaveConversationSummary upserts a summary by conversation id.
func (s *InMemoryStore) SaveConversationSummary(_ context.Context, conversationID, summary string, keyPoints, entities []string) (*ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &ConversationSummary{
		ID:        conversationID,
		Summary:   summary,
		KeyPoints: slices.Clone(keyPoints),
		Entities:  slices.Clone(entities),
		SavedAt:   now(),
	}
	if c.KeyPoints == nil {
		c.KeyPoints = []string{}
	}
	if c.Entities == nil {
		c.Entities = []string{}
	}

	s.upsertSummaryLocked(c)
	return cloneSummary(c), nil
}

// upsertSummaryLocked inserts or overwrites by conversation id. Caller must
// hold the write lock.
func (s *InMemoryStore) upsertSummaryLocked(c *ConversationSummary) {
	if idx, ok := s.convIdx[c.ID]; ok {
		s.convs[idx] = c
		return
	}
	s.convIdx[c.ID] = len(s.convs)
	s.convs = append(s.convs, c)
}

// GetConversationSummary returns the summary for the id, or nil if none.
func (s *InMemoryStore) GetConversationSummary(_ context.Context, conversationID string) (*ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.convIdx[conversationID]
	if !ok {
		return nil, nil
	}
	return cloneSummary(s.convs[idx]), nil
}
