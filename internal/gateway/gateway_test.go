package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/knowdhq/knowd/internal/core"
	"github.com/knowdhq/knowd/internal/events"
	"github.com/knowdhq/knowd/internal/knowledge"
	"github.com/knowdhq/knowd/internal/tokencount"
)

func TestGateway_ModuleInfo(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	info := g.ModuleInfo()

	if info.ID != "gateway.http" {
		t.Errorf("ID = %q, want %q", info.ID, "gateway.http")
	}
	if info.New == nil {
		t.Fatal("New func is nil")
	}

	mod := info.New()
	if _, ok := mod.(*Gateway); !ok {
		t.Error("New() should return *Gateway")
	}
}

func TestGateway_ConfigureDefaults(t *testing.T) {
	t.Parallel()

	g := &Gateway{}

	node := mustYAMLNode(t, "{}")
	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "127.0.0.1:8080" {
		t.Errorf("Bind = %q, want default", g.config.Bind)
	}
	if g.config.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", g.config.ReadTimeout)
	}
	if g.config.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want 30s", g.config.WriteTimeout)
	}
	if g.config.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", g.config.ShutdownTimeout)
	}
}

func TestGateway_ConfigureCustom(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	node := mustYAMLNode(t, `
bind: "0.0.0.0:9090"
read_timeout: 5s
write_timeout: 15s
shutdown_timeout: 10s
chars_per_token: 3.5
auth:
  bearer_token: "my-token"
`)

	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "0.0.0.0:9090" {
		t.Errorf("Bind = %q, want custom", g.config.Bind)
	}
	if g.config.Auth.BearerToken != "my-token" {
		t.Errorf("BearerToken = %q", g.config.Auth.BearerToken)
	}
	if g.config.CharsPerToken != 3.5 {
		t.Errorf("CharsPerToken = %v, want 3.5", g.config.CharsPerToken)
	}
}

func TestGateway_ValidateBadAddress(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	g.config.Bind = "not a valid address::"
	if err := g.Validate(); err == nil {
		t.Error("expected validation error for bad address")
	}
}

func TestGateway_StartWithoutStore(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	g := &Gateway{}
	g.config.defaults()
	g.config.Bind = freeAddr(t)
	g.appCtx = core.NewAppContext(logger, t.TempDir())
	g.logger = logger
	g.metrics = NewMetrics()

	if err := g.Start(); err == nil {
		t.Error("Start without memory.store service should fail")
		_ = g.Stop(context.Background())
	}
}

func TestGateway_StopNilServer(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Stop(context.Background()); err != nil {
		t.Errorf("Stop on nil server should not error: %v", err)
	}
}

// newTestGateway builds a started gateway over a fresh store and returns its
// base URL. The server is shut down when the test finishes.
func newTestGateway(t *testing.T, auth AuthConfig) (string, knowledge.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	appCtx := core.NewAppContext(logger, t.TempDir())

	store := knowledge.NewInMemoryStore()
	appCtx.RegisterService("memory.store", store)
	appCtx.RegisterService("memory.events", events.NewBroker(logger))

	g := &Gateway{}
	g.config = Config{
		Bind:            freeAddr(t),
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		Auth:            auth,
	}
	g.appCtx = appCtx
	g.logger = logger
	g.metrics = NewMetrics()
	g.estimator = tokencount.NewCharEstimator(0)

	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = g.Stop(context.Background()) })

	return "http://" + g.config.Bind, store
}

func TestGateway_EntityLifecycle(t *testing.T) {
	t.Parallel()

	base, _ := newTestGateway(t, AuthConfig{})

	// Create.
	resp := doJSON(t, http.MethodPost, base+"/api/entities", "",
		`{"name":"Anthropic","type":"company","properties":{"hq":"SF"}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created knowledge.Entity
	decodeResponse(t, resp, &created)
	if created.ID == "" || !strings.HasPrefix(created.ID, "entity_") {
		t.Fatalf("created.ID = %q, want entity_ prefix", created.ID)
	}

	// Get.
	resp = doJSON(t, http.MethodGet, base+"/api/entities/"+created.ID, "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var fetched knowledge.Entity
	decodeResponse(t, resp, &fetched)
	if fetched.Name != "Anthropic" {
		t.Errorf("Name = %q, want %q", fetched.Name, "Anthropic")
	}

	// Update merges properties.
	resp = doJSON(t, http.MethodPatch, base+"/api/entities/"+created.ID, "",
		`{"properties":{"founded":2021}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var updated knowledge.Entity
	decodeResponse(t, resp, &updated)
	if len(updated.Properties) != 2 {
		t.Errorf("Properties = %v, want hq and founded", updated.Properties)
	}

	// Find by type.
	resp = doJSON(t, http.MethodGet, base+"/api/entities?type=company", "", "")
	var found []knowledge.Entity
	decodeResponse(t, resp, &found)
	if len(found) != 1 {
		t.Fatalf("find: got %d entities, want 1", len(found))
	}

	// Delete.
	resp = doJSON(t, http.MethodDelete, base+"/api/entities/"+created.ID, "", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	// Get after delete → 404 with the id in the body.
	resp = doJSON(t, http.MethodGet, base+"/api/entities/"+created.ID, "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get-deleted status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	var errBody struct {
		Error string `json:"error"`
		ID    string `json:"id"`
	}
	decodeResponse(t, resp, &errBody)
	if errBody.ID != created.ID {
		t.Errorf("error body id = %q, want %q", errBody.ID, created.ID)
	}
}

func TestGateway_UpdateUnknownEntityIs404(t *testing.T) {
	t.Parallel()

	base, _ := newTestGateway(t, AuthConfig{})

	resp := doJSON(t, http.MethodPatch, base+"/api/entities/entity_missing", "",
		`{"properties":{"a":1}}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	var errBody struct {
		ID string `json:"id"`
	}
	decodeResponse(t, resp, &errBody)
	if errBody.ID != "entity_missing" {
		t.Errorf("error body id = %q, want %q", errBody.ID, "entity_missing")
	}
}

func TestGateway_EmptyPropertyKeyIs400(t *testing.T) {
	t.Parallel()

	base, _ := newTestGateway(t, AuthConfig{})

	resp := doJSON(t, http.MethodGet, base+"/api/entities?prop_key=&prop_value=x", "", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestGateway_FactsAndNotes(t *testing.T) {
	t.Parallel()

	base, _ := newTestGateway(t, AuthConfig{})

	resp := doJSON(t, http.MethodPost, base+"/api/facts", "",
		`{"subject":"Claude","predicate":"made_by","object":"Anthropic","confidence":0.9}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add fact status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var fact knowledge.Fact
	decodeResponse(t, resp, &fact)
	if fact.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", fact.Confidence)
	}

	// Omitted confidence defaults to 1.
	resp = doJSON(t, http.MethodPost, base+"/api/facts", "",
		`{"subject":"s","predicate":"p","object":"o"}`)
	var fact2 knowledge.Fact
	decodeResponse(t, resp, &fact2)
	if fact2.Confidence != 1.0 {
		t.Errorf("default Confidence = %v, want 1.0", fact2.Confidence)
	}

	resp = doJSON(t, http.MethodGet, base+"/api/facts?min_confidence=0.95", "", "")
	var facts []knowledge.Fact
	decodeResponse(t, resp, &facts)
	if len(facts) != 1 || facts[0].Subject != "s" {
		t.Errorf("query: got %v, want only the full-confidence fact", facts)
	}

	resp = doJSON(t, http.MethodPost, base+"/api/notes", "",
		`{"content":"ship the release","tags":["todo","release"]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add note status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, base+"/api/notes?tags=todo", "", "")
	var notes []knowledge.Note
	decodeResponse(t, resp, &notes)
	if len(notes) != 1 {
		t.Errorf("notes by tag: got %d, want 1", len(notes))
	}
}

func TestGateway_SearchCarriesTokenEstimates(t *testing.T) {
	t.Parallel()

	base, store := newTestGateway(t, AuthConfig{})
	ctx := context.Background()

	if _, err := store.AddNote(ctx, "the MCP protocol spec", []string{"mcp"}, nil); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	resp := doJSON(t, http.MethodGet, base+"/api/search?q=mcp", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body struct {
		Results []struct {
			Kind          string `json:"kind"`
			Score         int    `json:"score"`
			TokenEstimate int    `json:"token_estimate"`
		} `json:"results"`
		TotalTokens int `json:"total_tokens"`
	}
	decodeResponse(t, resp, &body)

	if len(body.Results) != 1 {
		t.Fatalf("results: got %d, want 1", len(body.Results))
	}
	if body.Results[0].Kind != "note" {
		t.Errorf("kind = %q, want %q", body.Results[0].Kind, "note")
	}
	if body.Results[0].TokenEstimate <= 0 {
		t.Errorf("token_estimate = %d, want > 0", body.Results[0].TokenEstimate)
	}
	if body.TotalTokens != body.Results[0].TokenEstimate {
		t.Errorf("total_tokens = %d, want %d", body.TotalTokens, body.Results[0].TokenEstimate)
	}
}

func TestGateway_ExportImportClear(t *testing.T) {
	t.Parallel()

	base, store := newTestGateway(t, AuthConfig{})
	ctx := context.Background()

	if _, err := store.CreateEntity(ctx, "Thing", "misc", nil); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	resp := doJSON(t, http.MethodGet, base+"/api/export", "", "")
	snapBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	resp = doJSON(t, http.MethodPost, base+"/api/clear", "", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp = doJSON(t, http.MethodPost, base+"/api/import", "", string(snapBody))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var stats knowledge.Stats
	decodeResponse(t, resp, &stats)
	if stats.Entities != 1 {
		t.Errorf("Entities after import = %d, want 1", stats.Entities)
	}
}

func TestGateway_BearerAuth(t *testing.T) {
	t.Parallel()

	base, _ := newTestGateway(t, AuthConfig{BearerToken: "test-token"})

	// Health stays public.
	resp := doJSON(t, http.MethodGet, base+"/health", "", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// API without token → 401.
	resp = doJSON(t, http.MethodGet, base+"/api/stats", "", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no-auth status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	// With valid token → 200.
	resp = doJSON(t, http.MethodGet, base+"/api/stats", "test-token", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("auth status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Wrong token → 401.
	resp = doJSON(t, http.MethodGet, base+"/api/stats", "wrong", "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad-token status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestGateway_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	base, _ := newTestGateway(t, AuthConfig{})

	// Generate one counted request first.
	resp := doJSON(t, http.MethodGet, base+"/api/stats", "", "")
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, base+"/metrics", "", "")
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(string(body), "knowd_gateway_requests_total") {
		t.Error("metrics exposition missing knowd_gateway_requests_total")
	}
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

// doJSON issues a request with optional bearer token and JSON body.
func doJSON(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, rdr)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// decodeResponse decodes a JSON response body and closes it.
func decodeResponse(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
