// Package mirror periodically pulls a snapshot from a remote peer's export
// endpoint and merges it into the local store. Pulls go through retry and a
// circuit breaker so a flaky peer cannot wedge the loop.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/knowdhq/knowd/internal/core"
	"github.com/knowdhq/knowd/internal/knowledge"
	"github.com/knowdhq/knowd/internal/resilience"
)

func init() {
	core.RegisterModule(&Mirror{})
}

// Config holds mirror configuration. Remote is the peer's base URL.
type Config struct {
	Remote           string        `yaml:"remote"`
	BearerToken      string        `yaml:"bearer_token"`
	Interval         time.Duration `yaml:"interval"`
	Attempts         int           `yaml:"attempts"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = time.Minute
	}
}

// Mirror is the snapshot pull module.
type Mirror struct {
	config  Config
	appCtx  *core.AppContext
	logger  *slog.Logger
	client  *http.Client
	breaker *resilience.Breaker
	cancel  context.CancelFunc
	done    chan struct{}

	// Resolved lazily at Start() via service registry.
	store knowledge.Store
}

// ModuleInfo implements core.Module.
func (m *Mirror) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "mirror.pull",
		New: func() core.Module { return &Mirror{} },
	}
}

// Configure implements core.Configurable.
func (m *Mirror) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Mirror) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger
	m.client = &http.Client{Timeout: 30 * time.Second}
	m.breaker = resilience.NewBreaker(m.config.BreakerThreshold, m.config.BreakerCooldown)
	return nil
}

// Validate implements core.Validator.
func (m *Mirror) Validate() error {
	if m.config.Remote == "" {
		return errors.New("mirror: remote is required")
	}
	u, err := url.Parse(m.config.Remote)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("mirror: invalid remote %q", m.config.Remote)
	}
	return nil
}

// Start implements core.Starter. It launches the pull loop.
func (m *Mirror) Start() error {
	svc, ok := m.appCtx.Service("memory.store")
	if !ok {
		return errors.New("mirror: memory.store service not available; is the memory module loaded?")
	}
	store, ok := svc.(knowledge.Store)
	if !ok {
		return errors.New("mirror: memory.store service has unexpected type")
	}
	m.store = store

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(ctx)

	m.logger.Info("mirror started", "remote", m.config.Remote, "interval", m.config.Interval)
	return nil
}

// Stop implements core.Stopper.
func (m *Mirror) Stop(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.logger.Info("mirror stopped")
	return nil
}

func (m *Mirror) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Sync(ctx); err != nil {
				m.logger.Warn("mirror sync failed", "error", err)
			}
		}
	}
}

// Sync pulls the remote snapshot once and imports it into the local store.
func (m *Mirror) Sync(ctx context.Context) error {
	var snap *knowledge.Snapshot

	err := m.breaker.Do(func() error {
		return resilience.Retry(ctx, m.config.Attempts, 500*time.Millisecond, func(ctx context.Context) error {
			var err error
			snap, err = m.fetch(ctx)
			return err
		})
	})
	if err != nil {
		return err
	}

	stats, err := m.store.Import(ctx, snap)
	if err != nil {
		return fmt.Errorf("mirror: import failed: %w", err)
	}

	m.logger.Info("mirror synced",
		"entities", stats.Entities,
		"facts", stats.Facts,
		"notes", stats.Notes,
		"conversations", stats.Conversations,
	)
	return nil
}

// fetch downloads the remote export.
func (m *Mirror) fetch(ctx context.Context) (*knowledge.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.config.Remote+"/api/export", nil)
	if err != nil {
		return nil, fmt.Errorf("mirror: build request: %w", err)
	}
	if m.config.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.config.BearerToken)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mirror: fetch export: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mirror: remote returned %d: %s", resp.StatusCode, body)
	}

	var snap knowledge.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("mirror: decode snapshot: %w", err)
	}
	return &snap, nil
}
