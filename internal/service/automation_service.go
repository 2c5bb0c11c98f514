package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/automation"
	"github.com/drona-gyawali/Supportix/internal/repository"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

// AutomationService exposes the rule engine to callers and the scheduler.
type AutomationService struct {
	engine    *automation.Engine
	tickets   repository.TicketRepository
	logger    *zap.Logger
	batchSize int
}

// NewAutomationService creates the service. batchSize bounds how many tickets
// a single sweep page loads; values at or below zero fall back to 100.
func NewAutomationService(engine *automation.Engine, tickets repository.TicketRepository, logger *zap.Logger, batchSize int) *AutomationService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &AutomationService{
		engine:    engine,
		tickets:   tickets,
		logger:    logger,
		batchSize: batchSize,
	}
}

// RunRules evaluates every rule against one ticket.
func (s *AutomationService) RunRules(ctx context.Context, ticketKey string) ([]automation.RuleResult, error) {
	if _, err := s.tickets.GetByKey(ctx, ticketKey); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_key": ticketKey})
		}
		return nil, util.MapError(err)
	}
	return s.engine.Run(ctx, ticketKey), nil
}

// Sweep walks every ticket in pages and runs the rules against each one.
// A failing ticket never interrupts the sweep. Returns how many tickets were
// visited.
func (s *AutomationService) Sweep(ctx context.Context) (int, error) {
	visited := 0
	for offset := 0; ; offset += s.batchSize {
		if err := ctx.Err(); err != nil {
			return visited, err
		}
		batch, err := s.tickets.ListBatch(ctx, offset, s.batchSize)
		if err != nil {
			return visited, util.MapError(err)
		}
		if len(batch) == 0 {
			return visited, nil
		}
		for _, ticket := range batch {
			results := s.engine.Run(ctx, ticket.TicketKey)
			for _, result := range results {
				if result.Outcome.Status == automation.StatusFailed {
					s.logger.Warn("sweep rule failed",
						zap.String("ticket_key", ticket.TicketKey),
						zap.String("rule", result.Rule),
						zap.String("reason", result.Outcome.Reason))
				}
			}
			visited++
		}
		if len(batch) < s.batchSize {
			return visited, nil
		}
	}
}
