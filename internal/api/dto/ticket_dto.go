package dto

import (
	"time"

	"github.com/drona-gyawali/Supportix/internal/automation"
	"github.com/drona-gyawali/Supportix/internal/domain"
)

// CreateTicketRequest is the ticket creation payload.
type CreateTicketRequest struct {
	CustomerID  string `json:"customer_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tag         string `json:"tag"`
}

// TransitionRequest moves a ticket to a new status.
type TransitionRequest struct {
	Status  string  `json:"status"`
	AgentID *string `json:"agent_id,omitempty"`
}

// TicketResponse is the serialized ticket.
type TicketResponse struct {
	TicketKey   string     `json:"ticket_key"`
	CustomerID  string     `json:"customer_id"`
	AgentID     *string    `json:"agent_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Tag         string     `json:"tag,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	QueuedAt    *time.Time `json:"queued_at,omitempty"`
}

// AssignmentResponse reports the outcome of an assignment attempt.
type AssignmentResponse struct {
	TicketKey     string  `json:"ticket_key"`
	Customer      string  `json:"customer"`
	IsPaid        bool    `json:"is_paid"`
	Agent         *string `json:"agent,omitempty"`
	Status        string  `json:"status"`
	QueuePosition *int    `json:"queue_position,omitempty"`
}

// StatusChangeResponse is one audit trail entry.
type StatusChangeResponse struct {
	NewStatus  string    `json:"new_status"`
	NewAgentID *string   `json:"new_agent_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RuleRunResponse reports the rules fired against a ticket.
type RuleRunResponse struct {
	TicketKey string                  `json:"ticket_key"`
	Results   []automation.RuleResult `json:"results"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		TicketKey:   ticket.TicketKey,
		CustomerID:  ticket.CustomerID,
		AgentID:     ticket.AgentID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Tag:         ticket.Tag,
		Status:      string(ticket.Status),
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		QueuedAt:    ticket.QueuedAt,
	}
}

// NewStatusChangeResponses maps the audit trail.
func NewStatusChangeResponses(changes []domain.StatusChange) []StatusChangeResponse {
	items := make([]StatusChangeResponse, 0, len(changes))
	for _, change := range changes {
		items = append(items, StatusChangeResponse{
			NewStatus:  string(change.NewStatus),
			NewAgentID: change.NewAgentID,
			CreatedAt:  change.CreatedAt,
		})
	}
	return items
}
