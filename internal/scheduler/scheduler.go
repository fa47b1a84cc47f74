package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"persona-chatter/internal/analytics"
	"persona-chatter/internal/storage"
)

// Scheduler runs the daily usage report on a cron schedule (UTC).
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	ctx        context.Context
	cancel     context.CancelFunc
	reportFunc func(ctx context.Context) error
	logger     *zap.Logger
}

func New(spec string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		spec:   spec,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

// Start registers the report job. An empty spec or missing report
// function leaves the scheduler idle.
func (s *Scheduler) Start() error {
	if s.reportFunc == nil || s.spec == "" {
		s.logger.Warn("⚠️ Daily report disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() {
		s.logger.Info("🕘 Triggered daily report")
		if err := s.RunNow(s.ctx); err != nil {
			s.logger.Error("❌ Daily report failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("📅 Scheduler started", zap.String("spec", s.spec))
	return nil
}

// RunNow runs the report job once, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if s.reportFunc == nil {
		return nil
	}
	return s.reportFunc(ctx)
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("📅 Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}

// DailyReport summarizes the recorded turns of the current day.
func DailyReport(rec storage.Recorder, logger *zap.Logger, now func() time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		events, err := rec.LoadInteractions()
		if err != nil {
			return fmt.Errorf("failed to load turns: %w", err)
		}
		stats := analytics.AnalyzeDailyLogs(events, now().UTC())
		logger.Info("📊 Daily report",
			zap.String("date", stats.Date),
			zap.Int("turns", stats.TotalTurns),
			zap.Int("users", stats.UniqueUsers),
			zap.Int("tool_calls", stats.ToolCallsTotal))
		logger.Info(stats.Summary())
		return nil
	}
}
