package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/config"
	"github.com/spec-kit/tix-api/internal/repository"
	"github.com/spec-kit/tix-api/internal/service"
	"github.com/spec-kit/tix-api/internal/session"
)

// Scheduler owns the cron entries: the daily open-ticket reminder
// digest and the refresh-token retention sweep.
type Scheduler struct {
	cron     *cron.Cron
	store    *repository.Store
	sessions *session.Manager
	mailer   service.Mailer
	cfg      config.Config
	logger   *zap.Logger
}

// NewScheduler builds the scheduler with both entries registered.
func NewScheduler(store *repository.Store, sessions *session.Manager, mailer service.Mailer, cfg config.Config, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		store:    store,
		sessions: sessions,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(cfg.Scheduler.ReminderCron, s.runReminderDigest); err != nil {
		return nil, fmt.Errorf("register reminder schedule: %w", err)
	}
	if _, err := s.cron.AddFunc(cfg.Scheduler.SweepCron, s.runTokenSweep); err != nil {
		return nil, fmt.Errorf("register sweep schedule: %w", err)
	}
	return s, nil
}

// Start begins running the schedules in their own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("reminder_cron", s.cfg.Scheduler.ReminderCron),
		zap.String("sweep_cron", s.cfg.Scheduler.SweepCron))
}

// Stop halts the schedules and waits for running entries.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runReminderDigest mails every agent holding open tickets a digest of
// them, oldest first.
func (s *Scheduler) runReminderDigest() {
	ctx := context.Background()
	agents, err := s.store.Agents.ListWithOpenTickets(ctx)
	if err != nil {
		s.logger.Error("reminder digest failed listing agents", zap.Error(err))
		return
	}
	for _, agent := range agents {
		tickets, err := s.store.Tickets.ListOpenByAgent(ctx, agent.ID)
		if err != nil {
			s.logger.Error("reminder digest failed listing tickets",
				zap.String("agent_id", agent.ID), zap.Error(err))
			continue
		}
		if len(tickets) == 0 {
			continue
		}
		if err := s.mailer.OpenTicketsDigest(ctx, agent.Name, agent.Email, tickets); err != nil {
			s.logger.Error("reminder digest delivery failed",
				zap.String("agent_id", agent.ID), zap.Error(err))
		}
	}
	s.logger.Info("reminder digest run complete", zap.Int("agents", len(agents)))
}

// runTokenSweep deletes refresh tokens dead past the retention window.
func (s *Scheduler) runTokenSweep() {
	ctx := context.Background()
	if _, err := s.sessions.Sweep(ctx, s.store.RefreshTokens, s.cfg.Session.Retention()); err != nil {
		s.logger.Error("token sweep failed", zap.Error(err))
	}
}
