package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/domain"
	"github.com/drona-gyawali/Supportix/internal/repository"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

// DirectoryService manages the supporting aggregates around tickets:
// departments, agents, and the customer directory.
type DirectoryService struct {
	agents      repository.AgentRepository
	departments repository.DepartmentRepository
	customers   repository.CustomerRepository
	logger      *zap.Logger
}

// NewDirectoryService creates the service.
func NewDirectoryService(
	agents repository.AgentRepository,
	departments repository.DepartmentRepository,
	customers repository.CustomerRepository,
	logger *zap.Logger,
) *DirectoryService {
	return &DirectoryService{
		agents:      agents,
		departments: departments,
		customers:   customers,
		logger:      logger,
	}
}

// AgentCreateInput describes the agent registration payload.
type AgentCreateInput struct {
	Name         string
	Email        string
	DepartmentID string
	MaxCapacity  int
}

// CreateDepartment registers a department.
func (s *DirectoryService) CreateDepartment(ctx context.Context, name string) (*domain.Department, error) {
	if strings.TrimSpace(name) == "" {
		return nil, util.NewValidationError("name is required", nil)
	}
	dept := &domain.Department{Name: strings.TrimSpace(name)}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, util.MapError(err)
	}
	s.logger.Info("department created", zap.String("department_id", dept.ID), zap.String("name", dept.Name))
	return dept, nil
}

// ListDepartments returns all departments.
func (s *DirectoryService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	return depts, nil
}

// CreateAgent registers an agent in a department. New agents start idle and
// available.
func (s *DirectoryService) CreateAgent(ctx context.Context, input AgentCreateInput) (*domain.Agent, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.DepartmentID) == "" {
		return nil, util.NewValidationError("name and department_id are required", nil)
	}
	if input.MaxCapacity <= 0 {
		return nil, util.NewValidationError("max_capacity must be positive", map[string]any{
			"max_capacity": input.MaxCapacity,
		})
	}

	if _, err := s.departments.GetByID(ctx, input.DepartmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("department", map[string]any{"department_id": input.DepartmentID})
		}
		return nil, util.MapError(err)
	}

	agent := &domain.Agent{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		DepartmentID: input.DepartmentID,
		MaxCapacity:  input.MaxCapacity,
		Available:    true,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, util.MapError(err)
	}
	s.logger.Info("agent created",
		zap.String("agent_id", agent.ID),
		zap.String("department_id", agent.DepartmentID))
	return agent, nil
}

// GetAgent fetches an agent by id.
func (s *DirectoryService) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("agent", map[string]any{"agent_id": id})
		}
		return nil, util.MapError(err)
	}
	return agent, nil
}

// CreateCustomer registers a customer profile.
func (s *DirectoryService) CreateCustomer(ctx context.Context, name, email string, paid bool) (*domain.Customer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, util.NewValidationError("name is required", nil)
	}
	customer := &domain.Customer{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
		Paid:  paid,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, util.MapError(err)
	}
	s.logger.Info("customer created", zap.String("customer_id", customer.ID))
	return customer, nil
}

// GetCustomer fetches a customer by id.
func (s *DirectoryService) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("customer", map[string]any{"customer_id": id})
		}
		return nil, util.MapError(err)
	}
	return customer, nil
}
