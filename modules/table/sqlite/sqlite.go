// Package sqlite implements a small named-table service backed by
// modernc.org/sqlite (pure Go, no CGO). Tables hold TEXT columns only; the
// gateway mounts the HTTP surface under /api/tables when the module is
// loaded.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/knowdhq/knowd/internal/core"

	_ "modernc.org/sqlite" // SQLite driver registration
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ http.Handler      = (*Handler)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module owns the database connection and registers the table store and its
// HTTP handler as services.
type Module struct {
	config  Config
	db      *sql.DB
	logger  *slog.Logger
	store   *Store
	handler *Handler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "table.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("table: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path != ":memory:" {
		if dir := filepath.Dir(m.config.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return fmt.Errorf("table: create directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", m.config.Path)
	if err != nil {
		return fmt.Errorf("table: open %s: %w", m.config.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if m.config.walEnabled() {
		if _, err := db.ExecContext(context.TODO(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return fmt.Errorf("table: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(context.TODO(), fmt.Sprintf("PRAGMA busy_timeout=%d", m.config.BusyTimeout)); err != nil {
		_ = db.Close()
		return fmt.Errorf("table: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return err
	}

	m.db = db
	m.store = NewStore(db)
	m.handler = NewHandler(m.store, ctx.Logger)

	ctx.RegisterService("table.store", m.store)
	ctx.RegisterService("table.handler", http.Handler(m.handler))

	m.logger.Info("table module provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)

	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("table: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Store returns the table store.
func (m *Module) Store() *Store {
	return m.store
}
