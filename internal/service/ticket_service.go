package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/domain"
	"github.com/drona-gyawali/Supportix/internal/events"
	"github.com/drona-gyawali/Supportix/internal/lock"
	"github.com/drona-gyawali/Supportix/internal/repository"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

// TicketService coordinates the ticket lifecycle outside of assignment.
type TicketService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	customers  repository.CustomerRepository
	changes    repository.StatusChangeRepository
	dispatcher events.Dispatcher
	locks      *lock.Registry
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	AgentRepo    repository.AgentRepository
	CustomerRepo repository.CustomerRepository
	ChangeRepo   repository.StatusChangeRepository
	Dispatcher   events.Dispatcher
	Locks        *lock.Registry
	Logger       *zap.Logger
}

// TicketCreateInput describes the ticket creation payload.
type TicketCreateInput struct {
	CustomerID  string
	Title       string
	Description string
	Tag         string
}

// NewTicketService creates the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		customers:  deps.CustomerRepo,
		changes:    deps.ChangeRepo,
		dispatcher: deps.Dispatcher,
		locks:      deps.Locks,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// CreateTicket registers a new ticket in waiting state with a generated
// business key.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, util.NewValidationError("title is required", nil)
	}

	customer, err := s.customers.GetByID(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("customer", map[string]any{"customer_id": input.CustomerID})
		}
		return nil, util.MapError(err)
	}

	key, err := s.nextTicketKey(ctx, customer)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		TicketKey:   key,
		CustomerID:  customer.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Tag:         strings.TrimSpace(input.Tag),
		Status:      domain.TicketStatusWaiting,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Timestamp: s.now().UTC(),
		Payload: events.TicketCreatedPayload{
			TicketKey:  ticket.TicketKey,
			CustomerID: customer.ID,
			Title:      ticket.Title,
		},
	})
	s.logger.Info("ticket created",
		zap.String("ticket_key", ticket.TicketKey),
		zap.String("customer_id", customer.ID))
	return ticket, nil
}

// GetTicket fetches a ticket by its business key.
func (s *TicketService) GetTicket(ctx context.Context, ticketKey string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByKey(ctx, ticketKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_key": ticketKey})
		}
		return nil, util.MapError(err)
	}
	return ticket, nil
}

// History lists the transition audit trail for a ticket.
func (s *TicketService) History(ctx context.Context, ticketKey string) ([]domain.StatusChange, error) {
	ticket, err := s.GetTicket(ctx, ticketKey)
	if err != nil {
		return nil, err
	}
	changes, err := s.changes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return changes, nil
}

// Transition moves a ticket to the next status. A disallowed transition
// returns (false, nil); callers decide whether that is a client error.
// agentID, when set, rebinds the ticket as part of the move.
func (s *TicketService) Transition(ctx context.Context, ticketKey string, next domain.TicketStatus, agentID *string) (bool, error) {
	if !domain.ValidStatus(next) {
		return false, util.NewValidationError(fmt.Sprintf("unknown status %q", next), nil)
	}

	release := s.locks.Lock("ticket:" + ticketKey)
	defer release()

	ticket, err := s.GetTicket(ctx, ticketKey)
	if err != nil {
		return false, err
	}
	if !domain.CanTransition(ticket.Status, next) {
		return false, nil
	}

	previous := ticket.Status
	if err := s.shiftCapacity(ctx, ticket, previous, next, agentID); err != nil {
		return false, err
	}

	if agentID != nil {
		ticket.AgentID = agentID
	}
	ticket.Status = next
	if next == domain.TicketStatusWaiting && ticket.QueuedAt == nil {
		queuedAt := s.now().UTC()
		ticket.QueuedAt = &queuedAt
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return false, util.MapError(err)
	}

	if err := s.changes.Create(ctx, &domain.StatusChange{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		NewStatus:  next,
		NewAgentID: ticket.AgentID,
	}); err != nil {
		return false, util.MapError(err)
	}

	if next == domain.TicketStatusCompleted {
		if err := s.customers.IncrementSolvedIssues(ctx, ticket.CustomerID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("failed to bump solved issues",
				zap.String("customer_id", ticket.CustomerID), zap.Error(err))
		}
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		Timestamp: s.now().UTC(),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: next,
			AgentID:   ticket.AgentID,
		},
	})
	s.logger.Info("ticket transitioned",
		zap.String("ticket_key", ticket.TicketKey),
		zap.String("from", string(previous)),
		zap.String("to", string(next)))
	return true, nil
}

// Reopen returns a finished ticket to the wait queue. This is the only path
// that clears queued_at, so the reopened ticket queues as a fresh arrival.
func (s *TicketService) Reopen(ctx context.Context, ticketKey string) (*domain.Ticket, error) {
	release := s.locks.Lock("ticket:" + ticketKey)
	defer release()

	ticket, err := s.GetTicket(ctx, ticketKey)
	if err != nil {
		return nil, err
	}
	if !ticket.Finished() {
		return nil, util.NewConflict("only finished tickets can be reopened", map[string]any{
			"ticket_key": ticketKey,
			"status":     string(ticket.Status),
		})
	}

	previous := ticket.Status
	ticket.Status = domain.TicketStatusWaiting
	ticket.AgentID = nil
	ticket.QueuedAt = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	if err := s.changes.Create(ctx, &domain.StatusChange{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		NewStatus: domain.TicketStatusWaiting,
	}); err != nil {
		return nil, util.MapError(err)
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		Timestamp: s.now().UTC(),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: domain.TicketStatusWaiting,
		},
	})
	s.logger.Info("ticket reopened", zap.String("ticket_key", ticket.TicketKey))
	return ticket, nil
}

// ReapStale deletes finished tickets whose last update is older than the
// retention window. Returns the number of rows removed.
func (s *TicketService) ReapStale(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	removed, err := s.tickets.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, util.MapError(err)
	}
	if removed > 0 {
		s.logger.Info("reaped stale tickets", zap.Int64("removed", removed))
	}
	return removed, nil
}

// shiftCapacity reconciles agent load around a transition: entering the
// assigned/progress pair reserves a unit, leaving it releases one, and a
// rebind while held moves the unit between agents.
func (s *TicketService) shiftCapacity(ctx context.Context, ticket *domain.Ticket, previous, next domain.TicketStatus, agentID *string) error {
	heldBefore := previous == domain.TicketStatusAssigned || previous == domain.TicketStatusProgress
	heldAfter := next == domain.TicketStatusAssigned || next == domain.TicketStatusProgress

	target := ticket.AgentID
	if agentID != nil {
		target = agentID
	}

	switch {
	case heldAfter && !heldBefore:
		if target == nil {
			return util.NewValidationError("an agent is required for this transition", map[string]any{
				"status": string(next),
			})
		}
		ok, err := s.agents.ReserveCapacity(ctx, *target)
		if err != nil {
			return util.MapError(err)
		}
		if !ok {
			return util.NewConflict("agent has no free capacity", map[string]any{"agent_id": *target})
		}
	case heldBefore && !heldAfter:
		if ticket.AgentID != nil {
			if err := s.agents.ReleaseCapacity(ctx, *ticket.AgentID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return util.MapError(err)
			}
		}
	case heldBefore && heldAfter:
		if agentID != nil && ticket.AgentID != nil && *agentID != *ticket.AgentID {
			ok, err := s.agents.ReserveCapacity(ctx, *agentID)
			if err != nil {
				return util.MapError(err)
			}
			if !ok {
				return util.NewConflict("agent has no free capacity", map[string]any{"agent_id": *agentID})
			}
			if err := s.agents.ReleaseCapacity(ctx, *ticket.AgentID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return util.MapError(err)
			}
		}
	}
	return nil
}

// nextTicketKey mints a business key: three-letter customer prefix, year and
// month, then a per-customer sequence number.
func (s *TicketService) nextTicketKey(ctx context.Context, customer *domain.Customer) (string, error) {
	prefix := strings.ToUpper(customer.Name)
	prefix = strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, prefix)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	if prefix == "" {
		prefix = "TKT"
	}

	count, err := s.tickets.CountByCustomer(ctx, customer.ID)
	if err != nil {
		return "", util.MapError(err)
	}
	return fmt.Sprintf("%s%s%02d", prefix, s.now().Format("200601"), count+1), nil
}
