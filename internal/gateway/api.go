package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/knowdhq/knowd/internal/events"
	"github.com/knowdhq/knowd/internal/knowledge"
	"github.com/knowdhq/knowd/internal/tokencount"
)

// createEntityRequest is the body for POST /api/entities.
type createEntityRequest struct {
	Name       string               `json:"name"`
	Type       string               `json:"type"`
	Properties knowledge.Properties `json:"properties"`
}

func (g *Gateway) handleCreateEntity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("create_entity")

		var req createEntityRequest
		if err := decodeBody(r, &req); err != nil {
			g.writeBadRequest(w, "create_entity", err)
			return
		}

		entity, err := g.store.CreateEntity(r.Context(), req.Name, req.Type, req.Properties)
		if err != nil {
			g.writeStoreError(w, "create_entity", err)
			return
		}

		g.publish(events.OpEntityCreated, "entity", entity.ID)
		g.metrics.UpdateRecordCounts(r.Context(), g.store)
		g.writeJSON(w, http.StatusCreated, entity)
	}
}

func (g *Gateway) handleGetEntity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("get_entity")

		id := chi.URLParam(r, "id")
		entity, err := g.store.GetEntity(r.Context(), id)
		if err != nil {
			g.writeStoreError(w, "get_entity", err)
			return
		}
		if entity == nil {
			// Absent is not a store error, but the REST surface maps it to 404.
			g.writeJSON(w, http.StatusNotFound, errorResponse{Error: "entity not found: " + id, ID: id})
			return
		}

		g.writeJSON(w, http.StatusOK, entity)
	}
}

func (g *Gateway) handleFindEntities() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("find_entities")

		q := r.URL.Query()
		filter := knowledge.EntityFilter{
			Type: q.Get("type"),
			Name: q.Get("name"),
		}
		if key := q.Get("prop_key"); key != "" || q.Has("prop_key") {
			filter.Property = &knowledge.PropertyMatch{
				Key:   key,
				Value: parseValueParam(q.Get("prop_value")),
			}
		}

		entities, err := g.store.FindEntities(r.Context(), filter)
		if err != nil {
			g.writeStoreError(w, "find_entities", err)
			return
		}

		g.writeJSON(w, http.StatusOK, entities)
	}
}

// updateEntityRequest is the body for PATCH /api/entities/{id}. Only the
// provided property keys are touched; existing keys survive.
type updateEntityRequest struct {
	Properties knowledge.Properties `json:"properties"`
}

func (g *Gateway) handleUpdateEntity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("update_entity")

		var req updateEntityRequest
		if err := decodeBody(r, &req); err != nil {
			g.writeBadRequest(w, "update_entity", err)
			return
		}

		id := chi.URLParam(r, "id")
		entity, err := g.store.UpdateEntity(r.Context(), id, req.Properties)
		if err != nil {
			g.writeStoreError(w, "update_entity", err)
			return
		}

		g.publish(events.OpEntityUpdated, "entity", id)
		g.writeJSON(w, http.StatusOK, entity)
	}
}

func (g *Gateway) handleDeleteEntity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("delete_entity")

		id := chi.URLParam(r, "id")
		if err := g.store.DeleteEntity(r.Context(), id); err != nil {
			g.writeStoreError(w, "delete_entity", err)
			return
		}

		g.publish(events.OpEntityDeleted, "entity", id)
		g.metrics.UpdateRecordCounts(r.Context(), g.store)
		w.WriteHeader(http.StatusNoContent)
	}
}

// addFactRequest is the body for POST /api/facts. Confidence defaults to 1
// when omitted.
type addFactRequest struct {
	Subject    string   `json:"subject"`
	Predicate  string   `json:"predicate"`
	Object     string   `json:"object"`
	Confidence *float64 `json:"confidence"`
	Source     string   `json:"source"`
}

func (g *Gateway) handleAddFact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("add_fact")

		var req addFactRequest
		if err := decodeBody(r, &req); err != nil {
			g.writeBadRequest(w, "add_fact", err)
			return
		}

		confidence := 1.0
		if req.Confidence != nil {
			confidence = *req.Confidence
		}

		fact, err := g.store.AddFact(r.Context(), req.Subject, req.Predicate, req.Object, confidence, req.Source)
		if err != nil {
			g.writeStoreError(w, "add_fact", err)
			return
		}

		g.publish(events.OpFactAdded, "fact", fact.ID)
		g.metrics.UpdateRecordCounts(r.Context(), g.store)
		g.writeJSON(w, http.StatusCreated, fact)
	}
}

func (g *Gateway) handleQueryFacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("query_facts")

		q := r.URL.Query()
		filter := knowledge.FactFilter{
			Subject:   q.Get("subject"),
			Predicate: q.Get("predicate"),
			Object:    q.Get("object"),
		}
		if raw := q.Get("min_confidence"); raw != "" {
			min, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				g.writeBadRequest(w, "query_facts", err)
				return
			}
			filter.MinConfidence = &min
		}

		facts, err := g.store.QueryFacts(r.Context(), filter)
		if err != nil {
			g.writeStoreError(w, "query_facts", err)
			return
		}

		g.writeJSON(w, http.StatusOK, facts)
	}
}

// addNoteRequest is the body for POST /api/notes.
type addNoteRequest struct {
	Content  string                     `json:"content"`
	Tags     []string                   `json:"tags"`
	Metadata map[string]knowledge.Value `json:"metadata"`
}

func (g *Gateway) handleAddNote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("add_note")

		var req addNoteRequest
		if err := decodeBody(r, &req); err != nil {
			g.writeBadRequest(w, "add_note", err)
			return
		}

		note, err := g.store.AddNote(r.Context(), req.Content, req.Tags, req.Metadata)
		if err != nil {
			g.writeStoreError(w, "add_note", err)
			return
		}

		g.publish(events.OpNoteAdded, "note", note.ID)
		g.metrics.UpdateRecordCounts(r.Context(), g.store)
		g.writeJSON(w, http.StatusCreated, note)
	}
}

func (g *Gateway) handleSearchNotes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("search_notes")

		q := r.URL.Query()
		filter := knowledge.NoteFilter{Query: q.Get("q")}
		if raw := q.Get("tags"); raw != "" {
			filter.Tags = strings.Split(raw, ",")
		}

		notes, err := g.store.SearchNotes(r.Context(), filter)
		if err != nil {
			g.writeStoreError(w, "search_notes", err)
			return
		}

		g.writeJSON(w, http.StatusOK, notes)
	}
}

// saveConversationRequest is the body for PUT /api/conversations/{id}.
type saveConversationRequest struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Entities  []string `json:"entities"`
}

func (g *Gateway) handleSaveConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("save_conversation_summary")

		var req saveConversationRequest
		if err := decodeBody(r, &req); err != nil {
			g.writeBadRequest(w, "save_conversation_summary", err)
			return
		}

		id := chi.URLParam(r, "id")
		summary, err := g.store.SaveConversationSummary(r.Context(), id, req.Summary, req.KeyPoints, req.Entities)
		if err != nil {
			g.writeStoreError(w, "save_conversation_summary", err)
			return
		}

		g.publish(events.OpSummarySaved, "conversation", id)
		g.metrics.UpdateRecordCounts(r.Context(), g.store)
		g.writeJSON(w, http.StatusOK, summary)
	}
}

func (g *Gateway) handleGetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("get_conversation_summary")

		id := chi.URLParam(r, "id")
		summary, err := g.store.GetConversationSummary(r.Context(), id)
		if err != nil {
			g.writeStoreError(w, "get_conversation_summary", err)
			return
		}
		if summary == nil {
			g.writeJSON(w, http.StatusNotFound, errorResponse{Error: "conversation not found: " + id, ID: id})
			return
		}

		g.writeJSON(w, http.StatusOK, summary)
	}
}

// searchResult decorates a store search hit with its token estimate so
// clients can budget prompt context without a second pass.
type searchResult struct {
	Kind          knowledge.Kind `json:"kind"`
	Record        any            `json:"record"`
	Score         int            `json:"score"`
	TokenEstimate int            `json:"token_estimate"`
}

// searchResponse is the body for GET /api/search.
type searchResponse struct {
	Results     []searchResult `json:"results"`
	TotalTokens int            `json:"total_tokens"`
}

func (g *Gateway) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("search")

		q := r.URL.Query()
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				g.writeBadRequest(w, "search", err)
				return
			}
			limit = n
		}

		hits, err := g.store.Search(r.Context(), q.Get("q"), limit)
		if err != nil {
			g.writeStoreError(w, "search", err)
			return
		}

		resp := searchResponse{Results: make([]searchResult, 0, len(hits))}
		for _, hit := range hits {
			est := tokencount.EstimateResult(g.estimator, hit)
			resp.Results = append(resp.Results, searchResult{
				Kind:          hit.Kind,
				Record:        hit.Record(),
				Score:         hit.Score,
				TokenEstimate: est,
			})
			resp.TotalTokens += est
		}

		g.writeJSON(w, http.StatusOK, resp)
	}
}

func (g *Gateway) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("get_stats")

		stats, err := g.store.Stats(r.Context())
		if err != nil {
			g.writeStoreError(w, "get_stats", err)
			return
		}

		g.writeJSON(w, http.StatusOK, stats)
	}
}

func (g *Gateway) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("export_memory")

		snap, err := g.store.Export(r.Context())
		if err != nil {
			g.writeStoreError(w, "export_memory", err)
			return
		}

		g.writeJSON(w, http.StatusOK, snap)
	}
}

func (g *Gateway) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("import_memory")

		var snap knowledge.Snapshot
		if err := decodeBody(r, &snap); err != nil {
			g.writeBadRequest(w, "import_memory", err)
			return
		}

		stats, err := g.store.Import(r.Context(), &snap)
		if err != nil {
			g.writeStoreError(w, "import_memory", err)
			return
		}

		g.publish(events.OpImported, "", "")
		g.metrics.UpdateRecordCounts(r.Context(), g.store)
		g.writeJSON(w, http.StatusOK, stats)
	}
}

func (g *Gateway) handleClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest("clear_memory")

		if err := g.store.Clear(r.Context()); err != nil {
			g.writeStoreError(w, "clear_memory", err)
			return
		}

		g.publish(events.OpCleared, "", "")
		g.metrics.UpdateRecordCounts(r.Context(), g.store)
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseValueParam interprets a query-string property value: JSON forms
// (numbers, booleans, quoted strings, string arrays) are decoded, anything
// else is taken as a plain string.
func parseValueParam(raw string) knowledge.Value {
	var v knowledge.Value
	if err := v.UnmarshalJSON([]byte(raw)); err == nil {
		return v
	}
	return knowledge.String(raw)
}
