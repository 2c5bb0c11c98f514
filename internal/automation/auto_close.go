package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/drona-gyawali/Supportix/internal/domain"
	"github.com/drona-gyawali/Supportix/internal/events"
	"github.com/drona-gyawali/Supportix/internal/repository"
)

// AutoClose closes tickets that have sat in the wait queue beyond the
// inactivity window. The close goes through the escalation audit path so the
// transition is attributable to automation rather than a user.
type AutoClose struct {
	tickets      repository.TicketRepository
	changes      repository.StatusChangeRepository
	dispatcher   events.Dispatcher
	inactiveDays int
	now          func() time.Time
}

// NewAutoClose builds the rule. inactiveDays at or below zero falls back to 90.
func NewAutoClose(
	tickets repository.TicketRepository,
	changes repository.StatusChangeRepository,
	dispatcher events.Dispatcher,
	inactiveDays int,
) *AutoClose {
	if inactiveDays <= 0 {
		inactiveDays = 90
	}
	return &AutoClose{
		tickets:      tickets,
		changes:      changes,
		dispatcher:   dispatcher,
		inactiveDays: inactiveDays,
		now:          time.Now,
	}
}

func (r *AutoClose) Name() string { return "AutoClose" }

// ShouldApply holds for waiting tickets untouched for the inactivity window.
// A missing ticket is not an error here; the rule simply does not apply.
func (r *AutoClose) ShouldApply(ctx context.Context, ticketKey string) (bool, error) {
	ticket, err := r.tickets.GetByKey(ctx, ticketKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.eligible(ticket), nil
}

func (r *AutoClose) Apply(ctx context.Context, ticketKey string) Outcome {
	ticket, err := r.tickets.GetByKey(ctx, ticketKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return failed("ticket not found")
	}
	if err != nil {
		return failed(err.Error())
	}
	if !r.eligible(ticket) {
		return failed("condition not met")
	}
	if !domain.CanTransition(ticket.Status, domain.TicketStatusClosed) {
		return failed(fmt.Sprintf("cannot close ticket in status %s", ticket.Status))
	}

	// persist the close first so the audit trail never records a close
	// that did not happen
	ticket.Status = domain.TicketStatusClosed
	if err := r.tickets.Update(ctx, ticket); err != nil {
		return failed(err.Error())
	}

	change := &domain.StatusChange{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		NewStatus:  domain.TicketStatusClosed,
		NewAgentID: ticket.AgentID,
	}
	if err := r.changes.Create(ctx, change); err != nil {
		return failed(err.Error())
	}
	escalation := &domain.AutoEscalation{
		ID:             uuid.NewString(),
		TicketID:       ticket.ID,
		StatusChangeID: change.ID,
	}
	if err := r.changes.CreateEscalation(ctx, escalation); err != nil {
		return failed(err.Error())
	}

	reason := fmt.Sprintf("inactive for more than %d days", r.inactiveDays)
	if r.dispatcher != nil {
		_ = r.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketAutoClosed,
			TicketID:  ticket.ID,
			Timestamp: r.now().UTC(),
			Payload:   events.TicketAutoClosedPayload{Rule: r.Name(), Reason: reason},
		})
	}
	return succeeded(fmt.Sprintf("ticket %s closed: %s", ticket.TicketKey, reason))
}

func (r *AutoClose) eligible(ticket *domain.Ticket) bool {
	cutoff := r.now().Add(-time.Duration(r.inactiveDays) * 24 * time.Hour)
	return ticket.Status == domain.TicketStatusWaiting && ticket.UpdatedAt.Before(cutoff)
}
