package scheduler

import (
	"context"
	"fmt"

	"github.com/brandlens/mentions-sync/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SyncRunner performs one scheduled batch sync
type SyncRunner interface {
	RunScheduledSync(ctx context.Context) error
}

// Service handles scheduling of sync runs
type Service struct {
	config *config.Config
	runner SyncRunner
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a new scheduler service. Overlapping runs are skipped.
func NewService(cfg *config.Config, runner SyncRunner) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config: cfg,
		runner: runner,
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the scheduled syncs
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.config.SyncSchedule, func() {
		logrus.Info("Starting scheduled sync run")
		if err := s.runner.RunScheduledSync(s.ctx); err != nil {
			logrus.Errorf("Scheduled sync run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.config.SyncSchedule, err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.config.SyncSchedule)
	return nil
}

// Stop cancels a running sync and waits for it to return
func (s *Service) Stop() {
	if s.cron != nil {
		s.cancel()
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
