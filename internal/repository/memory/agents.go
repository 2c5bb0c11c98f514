package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/drona-gyawali/Supportix/internal/domain"
)

type agentStore struct {
	s *Store
}

func (a *agentStore) Create(ctx context.Context, agent *domain.Agent) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	now := time.Now()
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now
	clone := *agent
	a.s.agents[agent.ID] = &clone
	return nil
}

func (a *agentStore) Update(ctx context.Context, agent *domain.Agent) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, ok := a.s.agents[agent.ID]; !ok {
		return pgx.ErrNoRows
	}
	agent.UpdatedAt = time.Now()
	clone := *agent
	a.s.agents[agent.ID] = &clone
	return nil
}

func (a *agentStore) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	agent, ok := a.s.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *agent
	return &clone, nil
}

func (a *agentStore) ReserveCapacity(ctx context.Context, agentID string) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	agent, ok := a.s.agents[agentID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if !agent.Available || !agent.HasCapacity() {
		return false, nil
	}
	agent.CurrentLoad++
	if agent.CurrentLoad >= agent.MaxCapacity {
		agent.Available = false
	}
	agent.UpdatedAt = time.Now()
	return true, nil
}

func (a *agentStore) ReleaseCapacity(ctx context.Context, agentID string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	agent, ok := a.s.agents[agentID]
	if !ok {
		return pgx.ErrNoRows
	}
	wasFull := agent.CurrentLoad >= agent.MaxCapacity
	if agent.CurrentLoad > 0 {
		agent.CurrentLoad--
	}
	if wasFull {
		agent.Available = true
	}
	agent.UpdatedAt = time.Now()
	return nil
}

func (a *agentStore) FirstAvailable(ctx context.Context, departmentID *string) (*domain.Agent, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	candidates := a.eligibleLocked(departmentID)
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	clone := candidates[0]
	return &clone, nil
}

func (a *agentStore) LeastLoaded(ctx context.Context, departmentID *string) (*domain.Agent, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	candidates := a.eligibleLocked(departmentID)
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CurrentLoad == candidates[j].CurrentLoad {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].CurrentLoad < candidates[j].CurrentLoad
	})
	clone := candidates[0]
	return &clone, nil
}

func (a *agentStore) FirstInDepartment(ctx context.Context, departmentID string) (*domain.Agent, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	var candidates []domain.Agent
	for _, agent := range a.s.agents {
		if agent.DepartmentID == departmentID {
			candidates = append(candidates, *agent)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	clone := candidates[0]
	return &clone, nil
}

func (a *agentStore) eligibleLocked(departmentID *string) []domain.Agent {
	var result []domain.Agent
	for _, agent := range a.s.agents {
		if !agent.Available || !agent.HasCapacity() {
			continue
		}
		if departmentID != nil && agent.DepartmentID != *departmentID {
			continue
		}
		result = append(result, *agent)
	}
	return result
}
