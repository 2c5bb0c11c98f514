package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/config"
	"github.com/drona-gyawali/Supportix/internal/observability"
	"github.com/drona-gyawali/Supportix/internal/service"
)

// Task names used for logging and metrics.
const (
	TaskQueueDrain  = "queue_drain"
	TaskLoadBalance = "load_balance"
	TaskStaleReaper = "stale_ticket_reaper"
	TaskRuleSweep   = "rule_sweep"
)

// Scheduler drives the periodic background tasks. Each task runs on its own
// ticker; a failing or panicking run is logged and the ticker keeps going.
type Scheduler struct {
	assignments *service.AssignmentService
	tickets     *service.TicketService
	automations *service.AutomationService
	metrics     *observability.Metrics
	logger      *zap.Logger
	schedCfg    config.SchedulerConfig
	autoCfg     config.AutomationConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates the scheduler.
func NewScheduler(
	assignments *service.AssignmentService,
	tickets *service.TicketService,
	automations *service.AutomationService,
	metrics *observability.Metrics,
	logger *zap.Logger,
	schedCfg config.SchedulerConfig,
	autoCfg config.AutomationConfig,
) *Scheduler {
	return &Scheduler{
		assignments: assignments,
		tickets:     tickets,
		automations: automations,
		metrics:     metrics,
		logger:      logger,
		schedCfg:    schedCfg,
		autoCfg:     autoCfg,
	}
}

// Start launches the task loops. No-op when the scheduler is disabled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.schedCfg.Enabled {
		s.logger.Info("scheduler disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.spawn(ctx, TaskQueueDrain, s.schedCfg.DrainIntervalSec, s.RunQueueDrain)
	s.spawn(ctx, TaskLoadBalance, s.schedCfg.BalanceIntervalSec, s.RunLoadBalance)
	s.spawn(ctx, TaskStaleReaper, s.schedCfg.ReapIntervalSec, s.RunStaleReaper)
	s.spawn(ctx, TaskRuleSweep, s.schedCfg.SweepIntervalSec, s.RunRuleSweep)
}

// Stop cancels the task loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunQueueDrain assigns waiting tickets to the first available agents.
func (s *Scheduler) RunQueueDrain(ctx context.Context) (int, error) {
	return s.assignments.DrainQueue(ctx)
}

// RunLoadBalance assigns waiting tickets to the least-loaded agents.
func (s *Scheduler) RunLoadBalance(ctx context.Context) (int, error) {
	return s.assignments.BalanceLoad(ctx)
}

// RunStaleReaper deletes finished tickets past the retention window.
func (s *Scheduler) RunStaleReaper(ctx context.Context) (int, error) {
	removed, err := s.tickets.ReapStale(ctx, s.autoCfg.Retention())
	return int(removed), err
}

// RunRuleSweep runs the automation rules over every ticket.
func (s *Scheduler) RunRuleSweep(ctx context.Context) (int, error) {
	return s.automations.Sweep(ctx)
}

func (s *Scheduler) spawn(ctx context.Context, name string, intervalSec int, run func(context.Context) (int, error)) {
	if intervalSec <= 0 {
		s.logger.Info("task disabled", zap.String("task", name))
		return
	}
	interval := time.Duration(intervalSec) * time.Second

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		s.logger.Info("task scheduled", zap.String("task", name), zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx, name, run)
			}
		}
	}()
}

func (s *Scheduler) runOnce(ctx context.Context, name string, run func(context.Context) (int, error)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", zap.String("task", name), zap.Any("panic", r))
		}
	}()

	started := time.Now()
	items, err := run(ctx)
	s.metrics.RecordTaskRun(name, items)
	if err != nil {
		s.logger.Warn("task finished with error",
			zap.String("task", name),
			zap.Int("items", items),
			zap.Duration("took", time.Since(started)),
			zap.Error(err))
		return
	}
	if items > 0 {
		s.logger.Info("task finished",
			zap.String("task", name),
			zap.Int("items", items),
			zap.Duration("took", time.Since(started)))
	}
}
