package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// PreselectionScheduler периодически выполняет отбор в турнирах, где все судьи
// уже выставили оценки, но никто не вызвал завершение.
type PreselectionScheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

func NewPreselectionScheduler(ctx context.Context, preselection PreselectionService, interval time.Duration, logger *slog.Logger) (*PreselectionScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, interval)
			defer cancel()
			performed, err := preselection.ReconcilePending(runCtx)
			if err != nil {
				logger.Error("preselection reconcile run failed", slog.Any("error", err))
				return
			}
			if performed > 0 {
				logger.Info("preselection reconcile run", slog.Int("cuts", performed))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("preselection-reconcile"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to register preselection job: %w", err)
	}

	return &PreselectionScheduler{scheduler: sched, logger: logger}, nil
}

func (s *PreselectionScheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("preselection scheduler started")
}

func (s *PreselectionScheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
