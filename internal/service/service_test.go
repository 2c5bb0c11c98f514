package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/config"
	"github.com/drona-gyawali/Supportix/internal/domain"
	"github.com/drona-gyawali/Supportix/internal/events"
	"github.com/drona-gyawali/Supportix/internal/lock"
	"github.com/drona-gyawali/Supportix/internal/observability"
	"github.com/drona-gyawali/Supportix/internal/repository/memory"
)

type testEnv struct {
	store       *memory.Store
	metrics     *observability.Metrics
	assignments *AssignmentService
	tickets     *TicketService
	directory   *DirectoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	locks := lock.NewRegistry()

	assignments := NewAssignmentService(AssignmentDependencies{
		TicketRepo: store.Tickets(),
		AgentRepo:  store.Agents(),
		ChangeRepo: store.StatusChanges(),
		Dispatcher: dispatcher,
		Locks:      locks,
		Cache:      nil,
		Metrics:    metrics,
		Logger:     logger,
		Config: config.AssignmentConfig{
			ReserveRetries:          3,
			RetryBackoffMs:          1,
			PositionCacheTTLSeconds: 1,
		},
	})
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:   store.Tickets(),
		AgentRepo:    store.Agents(),
		CustomerRepo: store.Customers(),
		ChangeRepo:   store.StatusChanges(),
		Dispatcher:   dispatcher,
		Locks:        locks,
		Logger:       logger,
	})
	directory := NewDirectoryService(store.Agents(), store.Departments(), store.Customers(), logger)

	return &testEnv{
		store:       store,
		metrics:     metrics,
		assignments: assignments,
		tickets:     tickets,
		directory:   directory,
	}
}

func (e *testEnv) mustCustomer(t *testing.T, name string) *domain.Customer {
	t.Helper()
	customer, err := e.directory.CreateCustomer(context.Background(), name, name+"@example.com", true)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

func (e *testEnv) mustDepartment(t *testing.T, name string) *domain.Department {
	t.Helper()
	dept, err := e.directory.CreateDepartment(context.Background(), name)
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	return dept
}

func (e *testEnv) mustAgent(t *testing.T, name, departmentID string, capacity int) *domain.Agent {
	t.Helper()
	agent, err := e.directory.CreateAgent(context.Background(), AgentCreateInput{
		Name:         name,
		Email:        name + "@example.com",
		DepartmentID: departmentID,
		MaxCapacity:  capacity,
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	return agent
}

func (e *testEnv) mustTicket(t *testing.T, customerID, title string) *domain.Ticket {
	t.Helper()
	ticket, err := e.tickets.CreateTicket(context.Background(), TicketCreateInput{
		CustomerID: customerID,
		Title:      title,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}
