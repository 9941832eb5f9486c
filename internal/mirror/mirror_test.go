package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/knowdhq/knowd/internal/knowledge"
	"github.com/knowdhq/knowd/internal/resilience"
)

func TestMirror_ModuleInfo(t *testing.T) {
	t.Parallel()

	m := &Mirror{}
	info := m.ModuleInfo()
	if info.ID != "mirror.pull" {
		t.Errorf("ID = %q, want %q", info.ID, "mirror.pull")
	}
	if _, ok := info.New().(*Mirror); !ok {
		t.Error("New() should return *Mirror")
	}
}

func TestMirror_ValidateRemote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remote  string
		wantErr bool
	}{
		{"valid", "http://peer:8080", false},
		{"missing", "", true},
		{"no scheme", "peer:8080", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := &Mirror{config: Config{Remote: tt.remote}}
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

// newTestMirror builds a Mirror pointed at a fake peer, bypassing the
// module lifecycle.
func newTestMirror(t *testing.T, remote string, token string) (*Mirror, knowledge.Store) {
	t.Helper()
	store := knowledge.NewInMemoryStore()
	cfg := Config{Remote: remote, BearerToken: token, Attempts: 2}
	cfg.defaults()
	return &Mirror{
		config:  cfg,
		logger:  discardLogger(),
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: resilience.NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		store:   store,
	}, store
}

func TestMirror_Sync(t *testing.T) {
	t.Parallel()

	source := knowledge.NewInMemoryStore()
	ctx := context.Background()
	if _, err := source.CreateEntity(ctx, "Peer Thing", "misc", nil); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if _, err := source.AddFact(ctx, "a", "b", "c", 1, ""); err != nil {
		t.Fatalf("AddFact: %v", err)
	}

	var sawAuth atomic.Bool
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/export" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") == "Bearer secret" {
			sawAuth.Store(true)
		}
		snap, _ := source.Export(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	}))
	defer peer.Close()

	m, local := newTestMirror(t, peer.URL, "secret")

	if err := m.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !sawAuth.Load() {
		t.Error("bearer token not sent")
	}

	stats, err := local.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entities != 1 || stats.Facts != 1 {
		t.Errorf("stats after sync = %+v, want 1 entity and 1 fact", stats)
	}

	// A second sync upserts the entity but appends the fact again.
	if err := m.Sync(ctx); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	stats, _ = local.Stats(ctx)
	if stats.Entities != 1 {
		t.Errorf("Entities after resync = %d, want 1 (upsert)", stats.Entities)
	}
	if stats.Facts != 2 {
		t.Errorf("Facts after resync = %d, want 2 (append)", stats.Facts)
	}
}

func TestMirror_SyncRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(&knowledge.Snapshot{})
	}))
	defer peer.Close()

	m, _ := newTestMirror(t, peer.URL, "")

	if err := m.Sync(context.Background()); err != nil {
		t.Fatalf("Sync should succeed on retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("peer calls = %d, want 2", calls.Load())
	}
}

func TestMirror_BreakerOpensOnRepeatedFailure(t *testing.T) {
	t.Parallel()

	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer peer.Close()

	m, _ := newTestMirror(t, peer.URL, "")
	m.breaker = resilience.NewBreaker(2, time.Minute)
	ctx := context.Background()

	// Two failing syncs trip the breaker.
	for i := 0; i < 2; i++ {
		if err := m.Sync(ctx); err == nil {
			t.Fatal("expected sync failure")
		}
	}

	if err := m.Sync(ctx); !errors.Is(err, resilience.ErrOpen) {
		t.Fatalf("Sync while open = %v, want ErrOpen", err)
	}
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
