package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// entry pairs a job with the mutex that guards its execution. TryLock on
// busy keeps a slow run from overlapping with the next tick.
type entry struct {
	job  Job
	busy sync.Mutex
}

// Scheduler runs registered jobs on standard five-field cron expressions.
// A job never runs concurrently with itself; a tick that arrives while the
// previous run is still going is skipped and logged.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]*entry
	order   []string
	logger  *slog.Logger
	cancel  context.CancelFunc
	started bool
}

// NewScheduler creates a scheduler. Jobs must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// RegisterJob adds a job. Names must be unique, and registration after
// Start() is rejected.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("cron: cannot register %q after start", j.Name())
	}

	name := j.Name()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}

	s.entries[name] = &entry{job: j}
	s.order = append(s.order, name)
	return nil
}

// Start parses every registered schedule and begins ticking. An invalid
// expression fails the whole start.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser))

	for _, name := range s.order {
		e := s.entries[name]
		if _, err := s.cron.AddFunc(e.job.Schedule(), func() { s.runOne(ctx, e) }); err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
		}
	}

	s.cron.Start()
	s.started = true
	s.logger.Info("cron: scheduler started", "jobs", len(s.order))
	return nil
}

// runOne executes a single tick of a job, skipping if the previous tick is
// still in flight.
func (s *Scheduler) runOne(ctx context.Context, e *entry) {
	if !e.busy.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", e.job.Name())
		return
	}
	defer e.busy.Unlock()

	s.logger.Debug("cron: job started", "job", e.job.Name())
	if err := e.job.Run(ctx); err != nil {
		s.logger.Error("cron: job failed", "job", e.job.Name(), "error", err)
		return
	}
	s.logger.Debug("cron: job completed", "job", e.job.Name())
}

// Stop cancels the job context and waits for in-flight runs to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}
