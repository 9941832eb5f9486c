// Package inmem provides the in-memory knowledge store as a loadable
// module. It registers the store and the mutation event broker for other
// modules to discover.
package inmem

import (
	"context"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/knowdhq/knowd/internal/core"
	"github.com/knowdhq/knowd/internal/events"
	"github.com/knowdhq/knowd/internal/knowledge"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config holds the module's YAML configuration.
type Config struct {
	// Seed is an optional snapshot file loaded into the store at startup.
	Seed string `yaml:"seed"`
}

// Module owns the store and broker lifecycles.
type Module struct {
	config Config
	logger *slog.Logger
	store  *knowledge.InMemoryStore
	broker *events.Broker
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.store",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner. The store and broker register
// before any dependent module starts.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.store = knowledge.NewInMemoryStore()
	m.broker = events.NewBroker(ctx.Logger)

	ctx.RegisterService("memory.store", knowledge.Store(m.store))
	ctx.RegisterService("memory.events", m.broker)

	return nil
}

// Start implements core.Starter. It loads the seed snapshot when one is
// configured.
func (m *Module) Start() error {
	if m.config.Seed == "" {
		return nil
	}

	snap, err := knowledge.ReadSnapshotFile(m.config.Seed)
	if err != nil {
		return err
	}

	stats, err := m.store.Import(context.Background(), snap)
	if err != nil {
		return err
	}

	m.logger.Info("seed snapshot loaded",
		"path", m.config.Seed,
		"entities", stats.Entities,
		"facts", stats.Facts,
		"notes", stats.Notes,
		"conversations", stats.Conversations,
	)
	return nil
}

// Stop implements core.Stopper. It shuts the broker down so event
// subscribers drain.
func (m *Module) Stop(_ context.Context) error {
	m.broker.Close()
	return nil
}
