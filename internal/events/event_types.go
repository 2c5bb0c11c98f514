package events

import (
	"time"

	"github.com/drona-gyawali/Supportix/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketQueued        EventType = "ticket_queued"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAutoClosed    EventType = "ticket_auto_closed"
	EventTicketsRebalanced   EventType = "tickets_rebalanced"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketKey  string `json:"ticket_key"`
	CustomerID string `json:"customer_id"`
	Title      string `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID      string `json:"agent_id"`
	DepartmentID string `json:"department_id,omitempty"`
}

// TicketQueuedPayload payload.
type TicketQueuedPayload struct {
	Position int       `json:"position"`
	QueuedAt time.Time `json:"queued_at"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	AgentID   *string             `json:"agent_id,omitempty"`
}

// TicketAutoClosedPayload payload.
type TicketAutoClosedPayload struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// TicketsRebalancedPayload payload.
type TicketsRebalancedPayload struct {
	FromDepartmentID string `json:"from_department_id"`
	ToDepartmentID   string `json:"to_department_id"`
	Moved            int    `json:"moved"`
}
