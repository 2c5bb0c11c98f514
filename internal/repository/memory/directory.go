package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/drona-gyawali/Supportix/internal/domain"
)

type departmentStore struct {
	s *Store
}

func (d *departmentStore) Create(ctx context.Context, dept *domain.Department) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	now := time.Now()
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	if dept.CreatedAt.IsZero() {
		dept.CreatedAt = now
	}
	dept.UpdatedAt = now
	clone := *dept
	d.s.departments[dept.ID] = &clone
	return nil
}

func (d *departmentStore) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	dept, ok := d.s.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *dept
	return &clone, nil
}

func (d *departmentStore) List(ctx context.Context) ([]domain.Department, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	result := make([]domain.Department, 0, len(d.s.departments))
	for _, dept := range d.s.departments {
		result = append(result, *dept)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type customerStore struct {
	s *Store
}

func (c *customerStore) Create(ctx context.Context, customer *domain.Customer) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	now := time.Now()
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	clone := *customer
	c.s.customers[customer.ID] = &clone
	return nil
}

func (c *customerStore) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	customer, ok := c.s.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *customer
	return &clone, nil
}

func (c *customerStore) IncrementSolvedIssues(ctx context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	customer, ok := c.s.customers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	customer.SolvedIssues++
	customer.UpdatedAt = time.Now()
	return nil
}

type statusChangeStore struct {
	s *Store
}

func (sc *statusChangeStore) Create(ctx context.Context, change *domain.StatusChange) error {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now()
	}
	sc.s.changes = append(sc.s.changes, *change)
	return nil
}

func (sc *statusChangeStore) CreateEscalation(ctx context.Context, escalation *domain.AutoEscalation) error {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	if escalation.ID == "" {
		escalation.ID = uuid.NewString()
	}
	if escalation.CreatedAt.IsZero() {
		escalation.CreatedAt = time.Now()
	}
	sc.s.escalations = append(sc.s.escalations, *escalation)
	return nil
}

func (sc *statusChangeStore) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChange, error) {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	var result []domain.StatusChange
	for _, change := range sc.s.changes {
		if change.TicketID == ticketID {
			result = append(result, change)
		}
	}
	return result, nil
}
