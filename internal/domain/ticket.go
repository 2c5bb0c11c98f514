package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusWaiting   TicketStatus = "waiting"
	TicketStatusAssigned  TicketStatus = "assigned"
	TicketStatusProgress  TicketStatus = "progress"
	TicketStatusCompleted TicketStatus = "completed"
	TicketStatusClosed    TicketStatus = "closed"
)

// Ticket is the aggregate for support requests.
//
// QueuedAt is set exactly once, the first time the ticket enters the wait
// queue with no agent; only an explicit reopen clears it again. AgentID may
// remain populated on a waiting ticket that was previously routed to a
// department; the rebalancer reads it as department affinity.
type Ticket struct {
	ID          string
	TicketKey   string
	CustomerID  string
	AgentID     *string
	Title       string
	Description string
	Tag         string
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	QueuedAt    *time.Time
}

// Finished reports whether the ticket reached a resolution state and is a
// candidate for retention-based cleanup.
func (t *Ticket) Finished() bool {
	return t.Status == TicketStatusCompleted || t.Status == TicketStatusClosed
}
