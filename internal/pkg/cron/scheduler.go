package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named function triggered by a standard five-field cron spec
// evaluated in the scheduler's location.
type Job struct {
	Name string
	Spec string
	Fn   func(ctx context.Context) error
}

// Scheduler runs jobs on wall-clock specs in one timezone. The job set and
// the timezone can be swapped at runtime with Reload.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	loc     *time.Location
	cron    *cron.Cron
	jobs    []Job
	entries map[string]cron.EntryID
	running bool
}

// NewScheduler creates a scheduler evaluating specs in loc (UTC when nil).
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:     ctx,
		cancel:  cancel,
		loc:     loc,
		cron:    newCron(loc),
		entries: make(map[string]cron.EntryID),
	}
}

func newCron(loc *time.Location) *cron.Cron {
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(name, spec string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := Job{Name: name, Spec: spec, Fn: fn}
	if err := s.schedule(s.cron, job); err != nil {
		return err
	}
	s.jobs = append(s.jobs, job)
	slog.Info("Cron job registered", "name", name, "spec", spec, "timezone", s.loc.String())
	return nil
}

// schedule must be called with s.mu held.
func (s *Scheduler) schedule(c *cron.Cron, job Job) error {
	if _, exists := s.entries[job.Name]; exists {
		return fmt.Errorf("cron job %s already registered", job.Name)
	}
	id, err := c.AddFunc(job.Spec, func() { s.executeJob(job) })
	if err != nil {
		return fmt.Errorf("invalid spec %q for cron job %s: %w", job.Spec, job.Name, err)
	}
	s.entries[job.Name] = id
	return nil
}

// Start begins running all scheduled jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Start()
	s.running = true
	slog.Info("Cron scheduler started", "job_count", len(s.jobs), "timezone", s.loc.String())
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	slog.Info("Stopping cron scheduler...")
	s.cancel()

	s.mu.Lock()
	done := s.cron.Stop()
	s.running = false
	s.mu.Unlock()

	<-done.Done()
	slog.Info("Cron scheduler stopped")
}

// Reload replaces the timezone and the job set. Jobs already executing keep
// running to completion on the old schedule, so Reload is safe to call from
// inside a job.
func (s *Scheduler) Reload(loc *time.Location, jobs []Job) error {
	if loc == nil {
		loc = time.UTC
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := newCron(loc)
	previous := s.entries
	s.entries = make(map[string]cron.EntryID, len(jobs))
	for _, job := range jobs {
		if err := s.schedule(next, job); err != nil {
			s.entries = previous
			return err
		}
	}

	s.cron.Stop()
	s.cron = next
	s.loc = loc
	s.jobs = append([]Job(nil), jobs...)
	if s.running {
		s.cron.Start()
	}

	slog.Info("Cron scheduler reloaded", "job_count", len(jobs), "timezone", loc.String())
	return nil
}

// Next returns the first activation of the named job strictly after the given time.
func (s *Scheduler) Next(name string, after time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Schedule.Next(after.In(s.loc)), true
}

func (s *Scheduler) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

// executeJob executes a job and logs results
func (s *Scheduler) executeJob(job Job) {
	start := time.Now()
	slog.Debug("Cron job starting", "name", job.Name)

	if err := job.Fn(s.ctx); err != nil {
		slog.Error("Cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
	} else {
		slog.Debug("Cron job completed", "name", job.Name, "duration", time.Since(start))
	}
}
