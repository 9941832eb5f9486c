package knowledge

import "context"

// Stats returns per-collection record counts.
func (s *InMemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked(), nil
}

func (s *InMemoryStore) statsLocked() Stats {
	return Stats{
		Entities:      len(s.entities),
		Facts:         len(s.facts),
		Notes:         len(s.notes),
		Conversations: len(s.convs),
	}
}

// Export returns a full snapshot of all four collections in iteration order.
// The snapshot shares nothing with the store; importing it elsewhere cannot
// alias internal state.
func (s *InMemoryStore) Export(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Entities:      make([]*Entity, 0, len(s.entities)),
		Facts:         make([]*Fact, 0, len(s.facts)),
		Notes:         make([]*Note, 0, len(s.notes)),
		Conversations: make([]*ConversationSummary, 0, len(s.convs)),
	}
	for _, e := range s.entities {
		snap.Entities = append(snap.Entities, cloneEntity(e))
	}
	for _, f := range s.facts {
		snap.Facts = append(snap.Facts, cloneFact(f))
	}
	for _, n := range s.notes {
		snap.Notes = append(snap.Notes, cloneNote(n))
	}
	for _, c := range s.convs {
		snap.Conversations = append(snap.Conversations, cloneSummary(c))
	}
	return snap, nil
}

// Import merges a snapshot under a single write lock. Entities and
// conversations upsert by their carried id; facts and notes append
// unconditionally, duplicates included. A nil snapshot or nil collection is
// a no-op. Carried ids are trusted as-is — no regeneration.
func (s *InMemoryStore) Import(_ context.Context, snap *Snapshot) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap == nil {
		return s.statsLocked(), nil
	}

	for _, e := range snap.Entities {
		if e == nil {
			continue
		}
		cp := cloneEntity(e)
		if idx, ok := s.entityIdx[cp.ID]; ok {
			s.entities[idx] = cp
			continue
		}
		s.entityIdx[cp.ID] = len(s.entities)
		s.entities = append(s.entities, cp)
	}

	for _, f := range snap.Facts {
		if f == nil {
			continue
		}
		s.facts = append(s.facts, cloneFact(f))
	}

	for _, n := range snap.Notes {
		if n == nil {
			continue
		}
		s.notes = append(s.notes, cloneNote(n))
	}

	for _, c := range snap.Conversations {
		if c == nil {
			continue
		}
		s.upsertSummaryLocked(cloneSummary(c))
	}

	return s.statsLocked(), nil
}

// Clear empties all four collections atomically from the caller's view.
func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities = nil
	s.entityIdx = make(map[string]int)
	s.facts = nil
	s.notes = nil
	s.convs = nil
	s.convIdx = make(map[string]int)
	return nil
}
