package domain

import "time"

// StatusChange is an immutable audit row appended on every transition.
type StatusChange struct {
	ID         string
	TicketID   string
	NewStatus  TicketStatus
	NewAgentID *string
	CreatedAt  time.Time
}

// AutoEscalation links a ticket to a StatusChange that was driven by the
// rule engine rather than a user. Append-only.
type AutoEscalation struct {
	ID             string
	TicketID       string
	StatusChangeID string
	CreatedAt      time.Time
}
