package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/drona-gyawali/Supportix/internal/api/dto"
	"github.com/drona-gyawali/Supportix/internal/domain"
	"github.com/drona-gyawali/Supportix/internal/service"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
	automations *service.AutomationService
	directory   *service.DirectoryService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(
	tickets *service.TicketService,
	assignments *service.AssignmentService,
	automations *service.AutomationService,
	directory *service.DirectoryService,
) *TicketsHandler {
	return &TicketsHandler{
		tickets:     tickets,
		assignments: assignments,
		automations: automations,
		directory:   directory,
	}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.CustomerID == "" || req.Title == "" {
		return util.NewValidationError("customer_id and title required", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), service.TicketCreateInput{
		CustomerID:  req.CustomerID,
		Title:       req.Title,
		Description: req.Description,
		Tag:         req.Tag,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetTicket GET /tickets/:key.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// History GET /tickets/:key/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	changes, err := h.tickets.History(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatusChangeResponses(changes)})
}

// Assign POST /tickets/:key/assign. Returns 200 when bound to an agent and
// 202 with the queue position when no agent has capacity.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	result, err := h.assignments.Assign(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}

	response := dto.AssignmentResponse{
		TicketKey: result.Ticket.TicketKey,
		Status:    string(result.Ticket.Status),
	}
	if customer, err := h.directory.GetCustomer(c.UserContext(), result.Ticket.CustomerID); err == nil {
		response.Customer = customer.Name
		response.IsPaid = customer.Paid
	}
	if result.Agent != nil {
		response.Agent = &result.Agent.Name
	}

	if result.Assigned {
		return c.JSON(fiber.Map{"data": response})
	}
	response.QueuePosition = &result.Position
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": response})
}

// QueuePosition GET /tickets/:key/queue-position.
func (h *TicketsHandler) QueuePosition(c *fiber.Ctx) error {
	position, err := h.assignments.QueuePosition(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket_key":     c.Params("key"),
		"queue_position": position,
	}})
}

// Transition POST /tickets/:key/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	next := domain.TicketStatus(strings.ToLower(strings.TrimSpace(req.Status)))

	ok, err := h.tickets.Transition(c.UserContext(), c.Params("key"), next, req.AgentID)
	if err != nil {
		return err
	}
	if !ok {
		return util.NewConflict("transition not allowed", map[string]any{
			"ticket_key": c.Params("key"),
			"status":     string(next),
		})
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Reopen POST /tickets/:key/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	ticket, err := h.tickets.Reopen(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// RunRules POST /tickets/:key/rules/run.
func (h *TicketsHandler) RunRules(c *fiber.Ctx) error {
	results, err := h.automations.RunRules(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RuleRunResponse{
		TicketKey: c.Params("key"),
		Results:   results,
	}})
}
