package cron

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/knowdhq/knowd/internal/core"
	"github.com/knowdhq/knowd/internal/knowledge"
)

func init() {
	core.RegisterModule(&Module{})
}

// ModuleConfig holds YAML configuration for the scheduler module. Empty
// schedules keep the job defaults; setting enabled: false drops a job.
type ModuleConfig struct {
	Stats struct {
		Enabled  *bool  `yaml:"enabled"`
		Schedule string `yaml:"schedule"`
	} `yaml:"stats"`
	Snapshot struct {
		Enabled  *bool  `yaml:"enabled"`
		Schedule string `yaml:"schedule"`
		Dir      string `yaml:"dir"`
	} `yaml:"snapshot"`
}

// Module wraps the Scheduler in the module lifecycle. Jobs bind against the
// store service at Start().
type Module struct {
	config    ModuleConfig
	appCtx    *core.AppContext
	logger    *slog.Logger
	scheduler *Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "cron.scheduler",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger
	m.scheduler = NewScheduler(ctx.Logger)
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	svc, ok := m.appCtx.Service("memory.store")
	if !ok {
		return errors.New("cron: memory.store service not available; is the memory module loaded?")
	}
	store, ok := svc.(knowledge.Store)
	if !ok {
		return errors.New("cron: memory.store service has unexpected type")
	}

	if enabled(m.config.Stats.Enabled) {
		job := &StatsJob{Store: store, Logger: m.logger, ScheduleExpr: m.config.Stats.Schedule}
		if err := m.scheduler.RegisterJob(job); err != nil {
			return err
		}
	}

	if enabled(m.config.Snapshot.Enabled) {
		dir := m.config.Snapshot.Dir
		if dir == "" {
			dir = filepath.Join(m.appCtx.DataDir, "snapshots")
		}
		job := &SnapshotJob{Store: store, Logger: m.logger, Dir: dir, ScheduleExpr: m.config.Snapshot.Schedule}
		if err := m.scheduler.RegisterJob(job); err != nil {
			return err
		}
	}

	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}

// enabled treats an absent flag as on.
func enabled(b *bool) bool { return b == nil || *b }
