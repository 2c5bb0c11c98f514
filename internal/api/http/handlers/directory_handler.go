package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/drona-gyawali/Supportix/internal/api/dto"
	"github.com/drona-gyawali/Supportix/internal/service"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

// DirectoryHandler manages department, agent, and customer endpoints.
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs the handler.
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// CreateDepartment POST /departments.
func (h *DirectoryHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	dept, err := h.directory.CreateDepartment(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// ListDepartments GET /departments.
func (h *DirectoryHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.directory.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, dto.NewDepartmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateAgent POST /agents.
func (h *DirectoryHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	agent, err := h.directory.CreateAgent(c.UserContext(), service.AgentCreateInput{
		Name:         req.Name,
		Email:        req.Email,
		DepartmentID: req.DepartmentID,
		MaxCapacity:  req.MaxCapacity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// GetAgent GET /agents/:id.
func (h *DirectoryHandler) GetAgent(c *fiber.Ctx) error {
	agent, err := h.directory.GetAgent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// CreateCustomer POST /customers.
func (h *DirectoryHandler) CreateCustomer(c *fiber.Ctx) error {
	var req dto.CreateCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	customer, err := h.directory.CreateCustomer(c.UserContext(), req.Name, req.Email, req.Paid)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCustomerResponse(customer)})
}

// GetCustomer GET /customers/:id.
func (h *DirectoryHandler) GetCustomer(c *fiber.Ctx) error {
	customer, err := h.directory.GetCustomer(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCustomerResponse(customer)})
}
