package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/drona-gyawali/Supportix/internal/domain"
)

type ticketStore struct {
	s *Store
}

func (t *ticketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	now := time.Now()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	clone := *ticket
	t.s.tickets[ticket.ID] = &clone
	return nil
}

func (t *ticketStore) Update(ctx context.Context, ticket *domain.Ticket) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	t.s.tickets[ticket.ID] = &clone
	return nil
}

func (t *ticketStore) GetByKey(ctx context.Context, ticketKey string) (*domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, ticket := range t.s.tickets {
		if ticket.TicketKey == ticketKey {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (t *ticketStore) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	count := 0
	for _, ticket := range t.s.tickets {
		if ticket.CustomerID == customerID {
			count++
		}
	}
	return count, nil
}

func (t *ticketStore) Enqueue(ctx context.Context, ticket *domain.Ticket) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	stored, ok := t.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	stored.Status = domain.TicketStatusWaiting
	stored.AgentID = nil
	if stored.QueuedAt == nil {
		queuedAt := now
		stored.QueuedAt = &queuedAt
	}
	stored.UpdatedAt = now
	*ticket = *stored
	return nil
}

func (t *ticketStore) QueuePosition(ctx context.Context, ticket *domain.Ticket) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ahead := 0
	for _, other := range t.s.tickets {
		if other.Status != domain.TicketStatusWaiting {
			continue
		}
		if other.CreatedAt.Before(ticket.CreatedAt) ||
			(other.CreatedAt.Equal(ticket.CreatedAt) && other.ID < ticket.ID) {
			ahead++
		}
	}
	return ahead + 1, nil
}

func (t *ticketStore) NextWaiting(ctx context.Context, departmentID *string) (*domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	candidates := t.s.waitingLocked(departmentID)
	if len(candidates) == 0 {
		return nil, nil
	}
	clone := candidates[0]
	return &clone, nil
}

func (t *ticketStore) WaitingCountsByDepartment(ctx context.Context) (map[string]int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	counts := make(map[string]int, len(t.s.departments))
	for id := range t.s.departments {
		counts[id] = 0
	}
	for _, ticket := range t.s.tickets {
		if ticket.Status != domain.TicketStatusWaiting || ticket.AgentID == nil {
			continue
		}
		agent, ok := t.s.agents[*ticket.AgentID]
		if !ok {
			continue
		}
		counts[agent.DepartmentID]++
	}
	return counts, nil
}

func (t *ticketStore) OldestWaitingInDepartment(ctx context.Context, departmentID string, limit int) ([]domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	candidates := t.s.waitingLocked(&departmentID)
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (t *ticketStore) ReassignAgentBulk(ctx context.Context, ticketIDs []string, agentID string) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var updated int64
	now := time.Now()
	for _, id := range ticketIDs {
		ticket, ok := t.s.tickets[id]
		if !ok || ticket.Status != domain.TicketStatusWaiting {
			continue
		}
		boundID := agentID
		ticket.AgentID = &boundID
		ticket.UpdatedAt = now
		updated++
	}
	return updated, nil
}

func (t *ticketStore) ListBatch(ctx context.Context, offset, limit int) ([]domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	all := make([]domain.Ticket, 0, len(t.s.tickets))
	for _, ticket := range t.s.tickets {
		all = append(all, *ticket)
	}
	sortTickets(all)
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (t *ticketStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var deleted int64
	for id, ticket := range t.s.tickets {
		if ticket.Finished() && ticket.UpdatedAt.Before(cutoff) {
			delete(t.s.tickets, id)
			deleted++
		}
	}
	return deleted, nil
}
