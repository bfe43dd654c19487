package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/repositories"
	"github.com/desertthunder/releaseradar/internal/shared"
	"github.com/robfig/cron/v3"
)

// RunOptions controls one fleet run.
type RunOptions struct {
	Manual   bool      // Manual runs bypass the recency gate, not the guard
	FromDate time.Time // Optional lower bound for release dates; zero means "today"
}

// RunSummary is the aggregated outcome of one ExecuteJob call.
type RunSummary struct {
	ExecutionTime time.Time     // When the run started
	Duration      time.Duration // Wall time of the run
	Status        models.RunStatus
	Skipped       bool   // True when the recency gate suppressed the run
	SkipReason    string // Why the run was skipped, empty otherwise
	UsersSynced   int
	UsersFailed   int
	TracksAdded   int
}

// Scheduler is the fleet control loop: it gates, fans out, and records
// synchronization runs.
//
// At most one fleet run executes at a time per instance; a second caller
// observes the guard and returns [shared.ErrRunActive] without touching the
// log store. The recurring timer is purely a trigger; all correctness lives
// in the gating inside ExecuteJob.
type Scheduler struct {
	sync    *Synchronizer
	users   *repositories.UserRepository
	entries *repositories.ExecutionLogRepository
	config  shared.SchedulerConfig
	logger  *log.Logger

	running atomic.Bool
	wg      sync.WaitGroup
	cron    *cron.Cron
	now     func() time.Time
}

// NewScheduler creates a Scheduler over the given synchronizer and stores.
func NewScheduler(
	synchronizer *Synchronizer,
	users *repositories.UserRepository,
	entries *repositories.ExecutionLogRepository,
	config shared.SchedulerConfig,
	logger *log.Logger,
) *Scheduler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Scheduler{
		sync:    synchronizer,
		users:   users,
		entries: entries,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// userOutcome carries one settled per-user result through the fan-in channel.
type userOutcome struct {
	result *SyncResult
	err    error
}

// ExecuteJob performs one gated fleet run.
//
// Returns [shared.ErrRunActive] when another run holds the guard. Automatic
// runs are skipped without a log entry while the most recent logged run is
// younger than the configured minimum interval. Per-user failures are counted
// and never abort the run; exactly one execution log entry is written per
// executed run.
func (s *Scheduler) ExecuteJob(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("skipping, previous run active")
		return nil, shared.ErrRunActive
	}
	defer s.running.Store(false)

	s.wg.Add(1)
	defer s.wg.Done()

	start := s.now()

	latest, err := s.entries.Latest()
	if err != nil {
		return nil, s.recordFailure(start, fmt.Errorf("failed to read execution log: %w", err))
	}

	if !opts.Manual && latest != nil {
		elapsed := start.Sub(latest.ExecutionTime())
		if elapsed < s.config.MinInterval() {
			s.logger.Info("skipping, last run too recent", "elapsed", elapsed, "min_interval", s.config.MinInterval())
			return &RunSummary{
				ExecutionTime: start,
				Skipped:       true,
				SkipReason:    "last run too recent",
			}, nil
		}
	}

	users, err := s.users.List(nil)
	if err != nil {
		return nil, s.recordFailure(start, fmt.Errorf("failed to list users: %w", err))
	}

	s.logger.Info("starting fleet run", "users", len(users), "manual", opts.Manual)

	// Settle-all fan-out: every user reaches a terminal state before the
	// run's log entry is written.
	outcomes := make(chan userOutcome, len(users))
	for _, user := range users {
		go func(u *models.User) {
			result, err := s.sync.SyncUser(ctx, u, opts.FromDate)
			if err != nil {
				s.logger.Error("user sync failed", "user_id", u.ID(), "error", err)
			}
			outcomes <- userOutcome{result: result, err: err}
		}(user)
	}

	summary := &RunSummary{ExecutionTime: start, Status: models.RunSuccess}
	for i := 0; i < len(users); i++ {
		outcome := <-outcomes
		if outcome.err != nil {
			summary.UsersFailed++
			continue
		}
		summary.UsersSynced++
		summary.TracksAdded += outcome.result.TracksAdded
	}
	summary.Duration = s.now().Sub(start)

	s.logger.Info("fleet run settled",
		"synced", summary.UsersSynced,
		"failed", summary.UsersFailed,
		"tracks", summary.TracksAdded,
		"duration", summary.Duration,
	)

	entry := models.NewExecutionLog(start, models.RunSuccess, summary.Duration)
	if err := s.entries.Insert(entry); err != nil {
		summary.Status = models.RunFailed
		return summary, fmt.Errorf("failed to record run: %w", err)
	}

	return summary, nil
}

// Initialize prepares the log store, recovers a missed run, and starts the
// recurring timer.
//
// A run is considered missed when no entry exists or the most recent entry is
// older than the configured threshold; recovery executes one fleet run before
// the timer starts.
func (s *Scheduler) Initialize(ctx context.Context) error {
	if err := s.entries.EnsureIndex(); err != nil {
		return fmt.Errorf("failed to prepare execution log: %w", err)
	}

	latest, err := s.entries.Latest()
	if err != nil {
		return fmt.Errorf("failed to read execution log: %w", err)
	}

	if latest == nil || s.now().Sub(latest.ExecutionTime()) > s.config.MissedRunAfter() {
		s.logger.Info("missed run detected, executing now")
		if _, err := s.ExecuteJob(ctx, RunOptions{}); err != nil {
			s.logger.Error("missed run recovery failed", "error", err)
		}
	}

	location, err := s.config.Location()
	if err != nil {
		return err
	}

	runner := cron.New(cron.WithLocation(location))
	if _, err := runner.AddFunc(s.config.Cron, func() {
		if _, err := s.ExecuteJob(context.Background(), RunOptions{}); err != nil && !errors.Is(err, shared.ErrRunActive) {
			s.logger.Error("scheduled run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.config.Cron, err)
	}

	runner.Start()
	s.cron = runner

	s.logger.Info("scheduler started", "cron", s.config.Cron, "timezone", location.String())

	return nil
}

// Stop halts the recurring timer and waits for an in-flight run to settle.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	s.wg.Wait()
}

// Running reports whether a fleet run currently holds the guard.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// recordFailure writes a FAILED log entry for a fleet-level error. The write
// is best effort: if the store itself is unreachable, the original error
// still propagates.
func (s *Scheduler) recordFailure(start time.Time, cause error) error {
	entry := models.NewExecutionLog(start, models.RunFailed, s.now().Sub(start))
	entry.SetError(cause.Error())

	if err := s.entries.Insert(entry); err != nil {
		s.logger.Warn("failed to record failed run", "error", err)
	}

	return cause
}
