// Package memory provides mutex-guarded in-memory implementations of the
// repository interfaces. It backs the test suite and DSN-less runs; the pgx
// implementations are the production path.
package memory

import (
	"sort"
	"sync"

	"github.com/drona-gyawali/Supportix/internal/domain"
	"github.com/drona-gyawali/Supportix/internal/repository"
)

// Store holds every aggregate behind one mutex and hands out per-aggregate
// repository views. Not-found lookups return pgx.ErrNoRows so callers map
// errors the same way as with the pgx stores.
type Store struct {
	mu          sync.Mutex
	tickets     map[string]*domain.Ticket
	agents      map[string]*domain.Agent
	departments map[string]*domain.Department
	customers   map[string]*domain.Customer
	changes     []domain.StatusChange
	escalations []domain.AutoEscalation
}

// NewStore initializes an empty store.
func NewStore() *Store {
	return &Store{
		tickets:     make(map[string]*domain.Ticket),
		agents:      make(map[string]*domain.Agent),
		departments: make(map[string]*domain.Department),
		customers:   make(map[string]*domain.Customer),
	}
}

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return &ticketStore{s} }

// Agents returns the agent repository view.
func (s *Store) Agents() repository.AgentRepository { return &agentStore{s} }

// Departments returns the department repository view.
func (s *Store) Departments() repository.DepartmentRepository { return &departmentStore{s} }

// Customers returns the customer repository view.
func (s *Store) Customers() repository.CustomerRepository { return &customerStore{s} }

// StatusChanges returns the audit-trail repository view.
func (s *Store) StatusChanges() repository.StatusChangeRepository { return &statusChangeStore{s} }

// EscalationCount reports how many auto-escalations were recorded for a
// ticket. Used by tests.
func (s *Store) EscalationCount(ticketID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, escalation := range s.escalations {
		if escalation.TicketID == ticketID {
			count++
		}
	}
	return count
}

// waitingLocked returns waiting tickets sorted FIFO; a department filter
// restricts to tickets whose bound agent belongs to that department.
func (s *Store) waitingLocked(departmentID *string) []domain.Ticket {
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if ticket.Status != domain.TicketStatusWaiting {
			continue
		}
		if departmentID != nil {
			if ticket.AgentID == nil {
				continue
			}
			agent, ok := s.agents[*ticket.AgentID]
			if !ok || agent.DepartmentID != *departmentID {
				continue
			}
		}
		result = append(result, *ticket)
	}
	sortTickets(result)
	return result
}

func sortTickets(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}
