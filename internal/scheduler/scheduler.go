package scheduler

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/config"
	"github.com/mamadbah2/maleta/internal/domain/models"
)

// OverdueSweeper flags cycles past their due date.
type OverdueSweeper interface {
	MarkOverdue(ctx context.Context) ([]string, error)
}

// WeeklyReporter builds the owner's weekly settlement report.
type WeeklyReporter interface {
	GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error)
}

// Notifier delivers a message to a phone number.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  OverdueSweeper
	reporter WeeklyReporter
	notifier Notifier
	cfg      config.ReportingConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance. reporter and notifier may be
// nil; the weekly report is then skipped.
func NewScheduler(cfg config.ReportingConfig, sweeper OverdueSweeper, reporter WeeklyReporter, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		sweeper:  sweeper,
		reporter: reporter,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().In(loc) },
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if _, err := s.cron.AddFunc(s.cfg.OverdueCronSchedule, s.runOverdueSweep); err != nil {
		return fmt.Errorf("schedule overdue sweep %q: %w", s.cfg.OverdueCronSchedule, err)
	}

	if s.reporter != nil && s.notifier != nil && s.cfg.OwnerPhone != "" {
		if _, err := s.cron.AddFunc(s.cfg.WeeklyCronSchedule, s.sendWeeklyReport); err != nil {
			return fmt.Errorf("schedule weekly report %q: %w", s.cfg.WeeklyCronSchedule, err)
		}
	} else {
		s.logger.Warn("weekly report disabled: sheets, messaging or OWNER_PHONE not configured")
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOverdueSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	changed, err := s.sweeper.MarkOverdue(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("overdue sweep finished", zap.Strings("cycles", changed))
}

func (s *Scheduler) sendWeeklyReport() {
	s.logger.Info("generating weekly report")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.reporter.GenerateWeeklyReport(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to generate weekly report", zap.Error(err))
		return
	}

	req := models.OutboundMessageRequest{
		To:      s.cfg.OwnerPhone,
		Message: report,
	}

	if err := s.notifier.SendOutbound(ctx, req); err != nil {
		s.logger.Error("failed to send weekly report", zap.Error(err))
	} else {
		s.logger.Info("weekly report sent successfully")
	}
}
