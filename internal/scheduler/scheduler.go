package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/volaengine/vola/internal/model"
)

// Querier is the part of the orchestrator the scheduler refreshes.
type Querier interface {
	RunQuery(ctx context.Context, symbol string) bool
	State() model.DashboardState
}

// Scheduler re-runs the current symbol's query on a cron schedule.
type Scheduler struct {
	Cron   *cron.Cron
	q      Querier
	ctx    context.Context
	logger *zap.Logger
}

// New creates a Scheduler whose jobs run with ctx.
func New(ctx context.Context, q Querier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		q:      q,
		ctx:    ctx,
		logger: logger,
	}
}

// Register adds the auto-refresh job. spec uses the seconds-first cron
// format or a descriptor such as "@every 5m".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.RefreshNow); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	s.logger.Info("auto-refresh registered", zap.String("schedule", spec))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RefreshNow re-queries the symbol currently on screen. It skips when no
// symbol has been queried yet or a cycle is already in flight, so it never
// supersedes a query the user just submitted.
func (s *Scheduler) RefreshNow() {
	if s.ctx.Err() != nil {
		return
	}
	st := s.q.State()
	switch {
	case st.Symbol == "":
		s.logger.Debug("refresh skipped: no symbol")
		return
	case st.Loading:
		s.logger.Debug("refresh skipped: cycle in flight", zap.String("symbol", st.Symbol))
		return
	}
	s.logger.Info("refreshing", zap.String("symbol", st.Symbol))
	s.q.RunQuery(s.ctx, st.Symbol)
}
