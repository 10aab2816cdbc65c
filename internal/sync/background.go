package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerConfig configures the periodic enqueue-all-users and
// session-retention jobs (spec §6).
type SchedulerConfig struct {
	// EnqueueCron is the cron expression driving the all-user sweep.
	// Defaults to hourly; individual users are skipped unless their
	// FrequencyHours window has elapsed since LastSync.
	EnqueueCron string
	// CleanupCron drives the old-session pruning job.
	CleanupCron string
	// SessionRetention is how long a completed sync_sessions row is
	// kept before DeleteOlderThan removes it.
	SessionRetention time.Duration
}

// DefaultSchedulerConfig returns the spec's defaults: hourly enqueue
// sweep, daily session cleanup, 30-day retention.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		EnqueueCron:      "0 * * * *",
		CleanupCron:      "0 3 * * *",
		SessionRetention: 30 * 24 * time.Hour,
	}
}

// Scheduler periodically enqueues a sync for every eligible, due user,
// and prunes old sync sessions. It wraps robfig/cron rather than a bare
// ticker so the two jobs can run on independent, human-readable
// schedules, while still exposing the teacher's Start/Stop/doneCh
// lifecycle shape.
type Scheduler struct {
	config       SchedulerConfig
	orchestrator *Orchestrator
	cron         *cron.Cron
	logger       *slog.Logger
	doneCh       chan struct{}
}

// NewScheduler builds a Scheduler bound to orchestrator.
func NewScheduler(config SchedulerConfig, orchestrator *Orchestrator, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		config:       config,
		orchestrator: orchestrator,
		cron:         cron.New(),
		logger:       logger,
		doneCh:       make(chan struct{}),
	}
}

// Start registers the two scheduled jobs and begins running them. The
// initial 30-second delay before the first enqueue sweep gives the
// server time to finish warming up its connection pool.
func (s *Scheduler) Start(ctx context.Context) {
	_, err := s.cron.AddFunc(s.config.EnqueueCron, func() {
		s.enqueueAll(ctx)
	})
	if err != nil {
		s.logger.Error("scheduler: failed to register enqueue job", "error", err)
	}

	_, err = s.cron.AddFunc(s.config.CleanupCron, func() {
		s.cleanup(ctx)
	})
	if err != nil {
		s.logger.Error("scheduler: failed to register cleanup job", "error", err)
	}

	go func() {
		select {
		case <-time.After(30 * time.Second):
		case <-ctx.Done():
			close(s.doneCh)
			return
		}
		s.cron.Start()
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		close(s.doneCh)
	}()
}

// Stop blocks until the scheduler's goroutine has finished tearing
// down. Callers should cancel the context passed to Start first.
func (s *Scheduler) Stop() {
	<-s.doneCh
}

// enqueueAll runs a sync for every user whose capability flags permit
// it and whose frequency window has elapsed (spec §6's "sync_all_users"
// sweep).
func (s *Scheduler) enqueueAll(ctx context.Context) {
	users, err := s.orchestrator.users.ListEligibleForSync(ctx)
	if err != nil {
		s.logger.Error("scheduler: failed to list eligible users", "error", err)
		return
	}

	s.logger.Info("scheduler: starting enqueue sweep", "eligible_users", len(users))
	for _, user := range users {
		cfg, err := s.orchestrator.configs.GetOrCreate(ctx, user.ID)
		if err != nil {
			s.logger.Error("scheduler: failed to load sync configuration", "user_id", user.ID, "error", err)
			continue
		}
		if !cfg.SyncEnabled {
			continue
		}
		if user.LastSync != nil && time.Since(*user.LastSync) < time.Duration(cfg.FrequencyHours)*time.Hour {
			continue
		}

		if _, err := s.orchestrator.SyncUserCalendar(ctx, user.ID, nil, nil); err != nil {
			s.logger.Error("scheduler: sync failed", "user_id", user.ID, "error", err)
		}
	}
}

// cleanup prunes sync_sessions rows older than SessionRetention (spec
// §6's second scheduled task).
func (s *Scheduler) cleanup(ctx context.Context) {
	deleted, err := s.orchestrator.sessions.DeleteOlderThan(ctx, s.config.SessionRetention)
	if err != nil {
		s.logger.Error("scheduler: session cleanup failed", "error", err)
		return
	}
	s.logger.Info("scheduler: pruned old sync sessions", "deleted", deleted)
}
