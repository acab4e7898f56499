package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// SubscriptionChecker reports whether the webhook subscription is active.
type SubscriptionChecker interface {
	IsAppSubscribed(ctx context.Context) (bool, error)
}

// Pruner drops expired entries and returns how many were removed.
type Pruner interface {
	Prune() int
}

// Scheduler runs the periodic housekeeping jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	checker   SubscriptionChecker
	pruner    Pruner
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. Either checker or pruner may be nil.
func New(checker SubscriptionChecker, pruner Pruner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		checker:   checker,
		pruner:    pruner,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: interval disabled; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	if s.checker != nil {
		if _, err := s.scheduler.Every(minutes).Minutes().Do(s.CheckSubscription); err != nil {
			return err
		}
	}
	if s.pruner != nil {
		if _, err := s.scheduler.Every(minutes).Minutes().Do(s.PruneRuns); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// CheckSubscription warns when the app lost its webhook subscription, since
// no new activities will be delivered until it is recreated.
func (s *Scheduler) CheckSubscription() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ok, err := s.checker.IsAppSubscribed(ctx)
	if err != nil {
		s.logger.Error("scheduler: subscription check failed", "error", err)
		return
	}
	if !ok {
		s.logger.Warn("scheduler: app is not subscribed to activity events")
		return
	}
	s.logger.Debug("scheduler: subscription active")
}

// PruneRuns drops run log entries past their max age.
func (s *Scheduler) PruneRuns() {
	if n := s.pruner.Prune(); n > 0 {
		s.logger.Info("scheduler: pruned run log", "removed", n)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
