package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/config"
	"grn-sheet-sync-go/internal/models"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still executing.
var ErrRunInProgress = errors.New("a run is already in progress")

// Job is one scheduled run.
type Job interface {
	Run(ctx context.Context) (models.RunSummary, error)
}

// Scheduler manages the periodic workflow runs
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	config    config.SchedulerConfig
	job       Job
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex

	// runMu is shared by cron ticks and manual triggers.
	runMu   sync.Mutex
	lastRun time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg config.SchedulerConfig, job Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config: cfg,
		job:    job,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if s.config.Interval <= 0 {
		return fmt.Errorf("invalid scheduler interval %s", s.config.Interval)
	}
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}

	logger := cron.PrintfLogger(logrus.StandardLogger())
	s.cron = cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	schedule := "@every " + s.config.Interval.String()
	entryID, err := s.cron.AddFunc(schedule, s.runScheduled)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %s", s.config.Interval)

	if s.config.RunOnStart {
		if err := s.trigger(s.ctx); err != nil {
			logrus.Warnf("Initial run not started: %v", err)
		}
	}
	return nil
}

// Stop stops the scheduler and cancels the run in progress. The lock is
// released before waiting so that ticks already firing can finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.isRunning = false
	s.mu.Unlock()

	cancel()
	ctx := c.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Scheduler) runScheduled() {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	if _, err := s.RunOnce(ctx); err != nil {
		logrus.Errorf("Scheduled run failed: %v", err)
	}
}

// RunOnce runs the job synchronously. It fails with ErrRunInProgress when
// another run holds the lock.
func (s *Scheduler) RunOnce(ctx context.Context) (models.RunSummary, error) {
	if !s.runMu.TryLock() {
		return models.RunSummary{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()
	return s.run(ctx)
}

// Trigger starts a run in the background.
func (s *Scheduler) Trigger() error {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	return s.trigger(ctx)
}

func (s *Scheduler) trigger(ctx context.Context) error {
	if !s.runMu.TryLock() {
		return ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.runMu.Unlock()
		if _, err := s.run(ctx); err != nil {
			logrus.Errorf("Triggered run failed: %v", err)
		}
	}()
	return nil
}

// run expects runMu to be held.
func (s *Scheduler) run(ctx context.Context) (models.RunSummary, error) {
	startTime := time.Now()
	s.mu.Lock()
	s.lastRun = startTime
	s.mu.Unlock()

	summary, err := s.job.Run(ctx)
	logrus.Infof("Run completed in %v", time.Since(startTime))
	return summary, err
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// GetLastRun returns the start time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// Wait waits for running jobs to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
