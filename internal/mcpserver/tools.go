package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/knowdhq/knowd/internal/events"
	"github.com/knowdhq/knowd/internal/knowledge"
)

// registerTools wires one tool per store operation.
func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("create_entity",
		mcp.WithDescription("Create an entity with a name, a type label, and an optional property bag."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Entity name")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity type label, e.g. person or project")),
		mcp.WithObject("properties", mcp.Description("Property bag: string, number, boolean, or string-list values")),
	), s.handleCreateEntity)

	s.mcp.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Fetch one entity by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.handleGetEntity)

	s.mcp.AddTool(mcp.NewTool("find_entities",
		mcp.WithDescription("List entities matching a filter. All provided criteria must match; no criteria returns everything in insertion order."),
		mcp.WithString("type", mcp.Description("Exact type match")),
		mcp.WithString("name", mcp.Description("Case-insensitive name substring")),
		mcp.WithString("prop_key", mcp.Description("Property key to match; requires prop_value")),
		mcp.WithString("prop_value", mcp.Description("Property value to match exactly; JSON forms are decoded")),
	), s.handleFindEntities)

	s.mcp.AddTool(mcp.NewTool("update_entity",
		mcp.WithDescription("Merge properties into an existing entity. Only the provided keys change."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
		mcp.WithObject("properties", mcp.Required(), mcp.Description("Property keys to set or overwrite")),
	), s.handleUpdateEntity)

	s.mcp.AddTool(mcp.NewTool("delete_entity",
		mcp.WithDescription("Delete an entity by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.handleDeleteEntity)

	s.mcp.AddTool(mcp.NewTool("add_fact",
		mcp.WithDescription("Record a subject-predicate-object fact. Confidence outside [0,1] is clamped."),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Fact subject")),
		mcp.WithString("predicate", mcp.Required(), mcp.Description("Relationship")),
		mcp.WithString("object", mcp.Required(), mcp.Description("Fact object")),
		mcp.WithNumber("confidence", mcp.Description("Confidence in [0,1]; defaults to 1")),
		mcp.WithString("source", mcp.Description("Where the fact came from")),
	), s.handleAddFact)

	s.mcp.AddTool(mcp.NewTool("query_facts",
		mcp.WithDescription("List facts matching a filter, in insertion order."),
		mcp.WithString("subject", mcp.Description("Case-insensitive subject substring")),
		mcp.WithString("predicate", mcp.Description("Exact predicate match")),
		mcp.WithString("object", mcp.Description("Case-insensitive object substring")),
		mcp.WithNumber("min_confidence", mcp.Description("Minimum confidence, inclusive")),
	), s.handleQueryFacts)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Store a free-form note with optional tags and metadata."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body")),
		mcp.WithArray("tags", mcp.Description("Tags, order preserved")),
		mcp.WithObject("metadata", mcp.Description("Arbitrary metadata values")),
	), s.handleAddNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("List notes matching a content substring and/or any of the given tags."),
		mcp.WithString("query", mcp.Description("Case-insensitive content substring")),
		mcp.WithArray("tags", mcp.Description("Match notes carrying at least one of these tags")),
	), s.handleSearchNotes)

	s.mcp.AddTool(mcp.NewTool("save_conversation_summary",
		mcp.WithDescription("Save or overwrite the summary for a conversation id."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Caller-supplied conversation id")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Summary text")),
		mcp.WithArray("key_points", mcp.Description("Key points")),
		mcp.WithArray("entities", mcp.Description("Entity names mentioned")),
	), s.handleSaveConversationSummary)

	s.mcp.AddTool(mcp.NewTool("get_conversation_summary",
		mcp.WithDescription("Fetch the summary saved for a conversation id."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
	), s.handleGetConversationSummary)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Keyword search across entities, facts, and notes, ranked by relevance."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Whitespace-separated keywords")),
		mcp.WithNumber("limit", mcp.Description("Maximum results; defaults to 10")),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Count records per collection."),
	), s.handleGetStats)

	s.mcp.AddTool(mcp.NewTool("export_memory",
		mcp.WithDescription("Export the full store as a JSON snapshot."),
	), s.handleExportMemory)

	s.mcp.AddTool(mcp.NewTool("import_memory",
		mcp.WithDescription("Merge a snapshot into the store. Entities and conversations upsert by id; facts and notes append."),
		mcp.WithObject("snapshot", mcp.Required(), mcp.Description("Snapshot produced by export_memory")),
	), s.handleImportMemory)

	s.mcp.AddTool(mcp.NewTool("clear_memory",
		mcp.WithDescription("Remove every record from the store."),
	), s.handleClearMemory)
}

// jsonResult renders v as a JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("encode result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleCreateEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Name       string               `json:"name"`
		Type       string               `json:"type"`
		Properties knowledge.Properties `json:"properties"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entity, err := s.store.CreateEntity(ctx, args.Name, args.Type, args.Properties)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.publish(events.OpEntityCreated, "entity", entity.ID)
	return jsonResult(entity)
}

func (s *Server) handleGetEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entity, err := s.store.GetEntity(ctx, args.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if entity == nil {
		return mcp.NewToolResultError("entity not found: " + args.ID), nil
	}

	return jsonResult(entity)
}

func (s *Server) handleFindEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Type      string  `json:"type"`
		Name      string  `json:"name"`
		PropKey   *string `json:"prop_key"`
		PropValue string  `json:"prop_value"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filter := knowledge.EntityFilter{Type: args.Type, Name: args.Name}
	if args.PropKey != nil {
		filter.Property = &knowledge.PropertyMatch{
			Key:   *args.PropKey,
			Value: parseValueArg(args.PropValue),
		}
	}

	entities, err := s.store.FindEntities(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(entities)
}

func (s *Server) handleUpdateEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ID         string               `json:"id"`
		Properties knowledge.Properties `json:"properties"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entity, err := s.store.UpdateEntity(ctx, args.ID, args.Properties)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.publish(events.OpEntityUpdated, "entity", args.ID)
	return jsonResult(entity)
}

func (s *Server) handleDeleteEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.store.DeleteEntity(ctx, args.ID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.publish(events.OpEntityDeleted, "entity", args.ID)
	return mcp.NewToolResultText("deleted " + args.ID), nil
}

func (s *Server) handleAddFact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Subject    string   `json:"subject"`
		Predicate  string   `json:"predicate"`
		Object     string   `json:"object"`
		Confidence *float64 `json:"confidence"`
		Source     string   `json:"source"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	confidence := 1.0
	if args.Confidence != nil {
		confidence = *args.Confidence
	}

	fact, err := s.store.AddFact(ctx, args.Subject, args.Predicate, args.Object, confidence, args.Source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.publish(events.OpFactAdded, "fact", fact.ID)
	return jsonResult(fact)
}

func (s *Server) handleQueryFacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Subject       string   `json:"subject"`
		Predicate     string   `json:"predicate"`
		Object        string   `json:"object"`
		MinConfidence *float64 `json:"min_confidence"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	facts, err := s.store.QueryFacts(ctx, knowledge.FactFilter{
		Subject:       args.Subject,
		Predicate:     args.Predicate,
		Object:        args.Object,
		MinConfidence: args.MinConfidence,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(facts)
}

func (s *Server) handleAddNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Content  string                     `json:"content"`
		Tags     []string                   `json:"tags"`
		Metadata map[string]knowledge.Value `json:"metadata"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.store.AddNote(ctx, args.Content, args.Tags, args.Metadata)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.publish(events.OpNoteAdded, "note", note.ID)
	return jsonResult(note)
}

func (s *Server) handleSearchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Query string   `json:"query"`
		Tags  []string `json:"tags"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	notes, err := s.store.SearchNotes(ctx, knowledge.NoteFilter{Query: args.Query, Tags: args.Tags})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(notes)
}

func (s *Server) handleSaveConversationSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ConversationID string   `json:"conversation_id"`
		Summary        string   `json:"summary"`
		KeyPoints      []string `json:"key_points"`
		Entities       []string `json:"entities"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary, err := s.store.SaveConversationSummary(ctx, args.ConversationID, args.Summary, args.KeyPoints, args.Entities)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.publish(events.OpSummarySaved, "conversation", args.ConversationID)
	return jsonResult(summary)
}

func (s *Server) handleGetConversationSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary, err := s.store.GetConversationSummary(ctx, args.ConversationID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if summary == nil {
		return mcp.NewToolResultError("conversation not found: " + args.ConversationID), nil
	}

	return jsonResult(summary)
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := s.store.Search(ctx, args.Query, args.Limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(results)
}

func (s *Server) handleGetStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stats)
}

func (s *Server) handleExportMemory(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.store.Export(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(snap)
}

func (s *Server) handleImportMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Snapshot *knowledge.Snapshot `json:"snapshot"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stats, err := s.store.Import(ctx, args.Snapshot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.publish(events.OpImported, "", "")
	return jsonResult(stats)
}

func (s *Server) handleClearMemory(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.store.Clear(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.publish(events.OpCleared, "", "")
	return mcp.NewToolResultText("memory cleared"), nil
}

// parseValueArg interprets a property value argument: JSON forms (numbers,
// booleans, quoted strings, string arrays) are decoded, anything else is
// taken as a plain string.
func parseValueArg(raw string) knowledge.Value {
	var v knowledge.Value
	if err := v.UnmarshalJSON([]byte(raw)); err == nil {
		return v
	}
	return knowledge.String(raw)
}
