package dto

import (
	"time"

	"github.com/drona-gyawali/Supportix/internal/domain"
)

// CreateDepartmentRequest registers a department.
type CreateDepartmentRequest struct {
	Name string `json:"name"`
}

// CreateAgentRequest registers an agent.
type CreateAgentRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	DepartmentID string `json:"department_id"`
	MaxCapacity  int    `json:"max_capacity"`
}

// CreateCustomerRequest registers a customer profile.
type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Paid  bool   `json:"is_paid"`
}

// DepartmentResponse is the serialized department.
type DepartmentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentResponse is the serialized agent.
type AgentResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	DepartmentID string `json:"department_id"`
	CurrentLoad  int    `json:"current_load"`
	MaxCapacity  int    `json:"max_capacity"`
	Available    bool   `json:"is_available"`
}

// CustomerResponse is the serialized customer.
type CustomerResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Paid         bool   `json:"is_paid"`
	SolvedIssues int    `json:"solved_issues"`
}

// NewDepartmentResponse maps a domain department.
func NewDepartmentResponse(dept *domain.Department) DepartmentResponse {
	return DepartmentResponse{ID: dept.ID, Name: dept.Name, CreatedAt: dept.CreatedAt}
}

// NewAgentResponse maps a domain agent.
func NewAgentResponse(agent *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:           agent.ID,
		Name:         agent.Name,
		Email:        agent.Email,
		DepartmentID: agent.DepartmentID,
		CurrentLoad:  agent.CurrentLoad,
		MaxCapacity:  agent.MaxCapacity,
		Available:    agent.Available,
	}
}

// NewCustomerResponse maps a domain customer.
func NewCustomerResponse(customer *domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:           customer.ID,
		Name:         customer.Name,
		Email:        customer.Email,
		Paid:         customer.Paid,
		SolvedIssues: customer.SolvedIssues,
	}
}
