package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/knowdhq/knowd/internal/gitlog"
	"github.com/knowdhq/knowd/internal/knowledge"
)

// apiClient drives a running knowd instance over its HTTP API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

// Compile-time interface guard: ingest works against a remote instance.
var _ gitlog.NoteStore = (*apiClient)(nil)

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) CreateEntity(ctx context.Context, name, typ string, props knowledge.Properties) (*knowledge.Entity, error) {
	var entity knowledge.Entity
	body := map[string]any{"name": name, "type": typ, "properties": props}
	if err := c.do(ctx, http.MethodPost, "/api/entities", body, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (c *apiClient) AddFact(ctx context.Context, subject, predicate, object string, confidence float64, source string) (*knowledge.Fact, error) {
	var fact knowledge.Fact
	body := map[string]any{
		"subject":    subject,
		"predicate":  predicate,
		"object":     object,
		"confidence": confidence,
		"source":     source,
	}
	if err := c.do(ctx, http.MethodPost, "/api/facts", body, &fact); err != nil {
		return nil, err
	}
	return &fact, nil
}

// AddNote implements gitlog.NoteStore.
func (c *apiClient) AddNote(ctx context.Context, content string, tags []string, metadata map[string]knowledge.Value) (*knowledge.Note, error) {
	var note knowledge.Note
	body := map[string]any{"content": content, "tags": tags, "metadata": metadata}
	if err := c.do(ctx, http.MethodPost, "/api/notes", body, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// SearchNotes implements gitlog.NoteStore.
func (c *apiClient) SearchNotes(ctx context.Context, filter knowledge.NoteFilter) ([]*knowledge.Note, error) {
	q := url.Values{}
	if filter.Query != "" {
		q.Set("q", filter.Query)
	}
	if len(filter.Tags) > 0 {
		q.Set("tags", strings.Join(filter.Tags, ","))
	}
	path := "/api/notes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var notes []*knowledge.Note
	if err := c.do(ctx, http.MethodGet, path, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// searchHit mirrors the gateway's search result shape.
type searchHit struct {
	Kind          knowledge.Kind  `json:"kind"`
	Record        json.RawMessage `json:"record"`
	Score         int             `json:"score"`
	TokenEstimate int             `json:"token_estimate"`
}

type searchReply struct {
	Results     []searchHit `json:"results"`
	TotalTokens int         `json:"total_tokens"`
}

func (c *apiClient) Search(ctx context.Context, query string) (*searchReply, error) {
	var reply searchReply
	path := "/api/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *apiClient) Stats(ctx context.Context) (*knowledge.Stats, error) {
	var stats knowledge.Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *apiClient) Export(ctx context.Context) (*knowledge.Snapshot, error) {
	var snap knowledge.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/export", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *apiClient) Import(ctx context.Context, snap *knowledge.Snapshot) (*knowledge.Stats, error) {
	var stats knowledge.Stats
	if err := c.do(ctx, http.MethodPost, "/api/import", snap, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
