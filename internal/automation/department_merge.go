package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/domain"
	"github.com/drona-gyawali/Supportix/internal/events"
	"github.com/drona-gyawali/Supportix/internal/lock"
	"github.com/drona-gyawali/Supportix/internal/repository"
)

// DepartmentMerge levels the wait-queue load across departments: when one
// department's backlog crosses the overload threshold while another sits
// under the underutilized threshold, the oldest waiting tickets of the
// overloaded department are reassigned toward the idle one.
//
// The rule is global; the ticket key passed by the engine is ignored.
//
// Reassignment takes the same per-ticket keyed locks the assignment path
// holds, and every candidate is re-checked under its lock; a ticket assigned
// after selection is left alone.
type DepartmentMerge struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	dispatcher events.Dispatcher
	locks      *lock.Registry
	logger     *zap.Logger

	overloadThreshold      int
	underutilizedThreshold int
}

// NewDepartmentMerge builds the rule with the given backlog thresholds.
func NewDepartmentMerge(
	tickets repository.TicketRepository,
	agents repository.AgentRepository,
	dispatcher events.Dispatcher,
	locks *lock.Registry,
	logger *zap.Logger,
	overloadThreshold, underutilizedThreshold int,
) *DepartmentMerge {
	if overloadThreshold <= 0 {
		overloadThreshold = 50
	}
	if underutilizedThreshold <= 0 {
		underutilizedThreshold = 10
	}
	return &DepartmentMerge{
		tickets:                tickets,
		agents:                 agents,
		dispatcher:             dispatcher,
		locks:                  locks,
		logger:                 logger,
		overloadThreshold:      overloadThreshold,
		underutilizedThreshold: underutilizedThreshold,
	}
}

func (r *DepartmentMerge) Name() string { return "DepartmentMerge" }

// ShouldApply holds when the busiest department exceeds the overload
// threshold while the idlest one is under the underutilized threshold.
func (r *DepartmentMerge) ShouldApply(ctx context.Context, _ string) (bool, error) {
	counts, err := r.tickets.WaitingCountsByDepartment(ctx)
	if err != nil {
		return false, err
	}
	if len(counts) < 2 {
		return false, nil
	}
	overloaded, underloaded := pickExtremes(counts)
	return counts[overloaded] > r.overloadThreshold && counts[underloaded] < r.underutilizedThreshold, nil
}

func (r *DepartmentMerge) Apply(ctx context.Context, _ string) Outcome {
	counts, err := r.tickets.WaitingCountsByDepartment(ctx)
	if err != nil {
		return failed(err.Error())
	}
	if len(counts) < 2 {
		return skipped("fewer than two departments")
	}

	overloaded, underloaded := pickExtremes(counts)
	overloadedCount := counts[overloaded]
	underloadedCount := counts[underloaded]
	if overloadedCount <= r.overloadThreshold || underloadedCount >= r.underutilizedThreshold {
		return failed("condition not met")
	}

	moveCount := (overloadedCount - underloadedCount) / 2
	if moveCount < 1 {
		moveCount = 1
	}

	target, err := r.agents.FirstInDepartment(ctx, underloaded)
	if err != nil {
		return failed(err.Error())
	}
	if target == nil {
		return failed(fmt.Sprintf("no agent in department %s", underloaded))
	}

	candidates, err := r.tickets.OldestWaitingInDepartment(ctx, overloaded, moveCount)
	if err != nil {
		return failed(err.Error())
	}
	if len(candidates) == 0 {
		r.logger.Info("no tickets to reassign",
			zap.String("from_department", overloaded),
			zap.String("to_department", underloaded))
		return skipped("no tickets to reassign")
	}

	keys := make([]string, len(candidates))
	for i, ticket := range candidates {
		keys[i] = "ticket:" + ticket.TicketKey
	}
	release := r.locks.LockMany(keys)
	defer release()

	// candidates were selected without locks; only tickets still waiting
	// under their lock may be rebound
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		current, err := r.tickets.GetByKey(ctx, candidate.TicketKey)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return failed(err.Error())
		}
		if current.Status != domain.TicketStatusWaiting {
			continue
		}
		ids = append(ids, current.ID)
	}
	if len(ids) == 0 {
		r.logger.Info("no tickets to reassign",
			zap.String("from_department", overloaded),
			zap.String("to_department", underloaded))
		return skipped("no tickets to reassign")
	}

	moved, err := r.tickets.ReassignAgentBulk(ctx, ids, target.ID)
	if err != nil {
		return failed(err.Error())
	}

	r.logger.Info("rebalanced waiting tickets",
		zap.String("from_department", overloaded),
		zap.Int("from_count", overloadedCount),
		zap.String("to_department", underloaded),
		zap.Int("to_count", underloadedCount),
		zap.Int64("moved", moved))

	if r.dispatcher != nil {
		_ = r.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketsRebalanced,
			Timestamp: time.Now().UTC(),
			Payload: events.TicketsRebalancedPayload{
				FromDepartmentID: overloaded,
				ToDepartmentID:   underloaded,
				Moved:            int(moved),
			},
		})
	}
	return succeeded(fmt.Sprintf("moved %d tickets from department %s to %s", moved, overloaded, underloaded))
}

// pickExtremes returns the busiest and idlest department ids. Ties break on
// the smaller id so repeated runs make the same choice.
func pickExtremes(counts map[string]int) (overloaded, underloaded string) {
	for id, count := range counts {
		if overloaded == "" || count > counts[overloaded] || (count == counts[overloaded] && id < overloaded) {
			overloaded = id
		}
		if underloaded == "" || count < counts[underloaded] || (count == counts[underloaded] && id < underloaded) {
			underloaded = id
		}
	}
	return overloaded, underloaded
}
