package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drona-gyawali/Supportix/internal/domain"
)

// AgentRepository handles agent persistence and atomic capacity accounting.
//
// ReserveCapacity and ReleaseCapacity are single guarded statements so that
// concurrent reservations can never push an agent past MaxCapacity. Picker
// methods return (nil, nil) when no eligible agent exists.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)

	// ReserveCapacity increments the agent's load if it is available with
	// free capacity; reaching capacity flips availability off. Returns false
	// without mutation when the guard fails.
	ReserveCapacity(ctx context.Context, agentID string) (bool, error)
	// ReleaseCapacity decrements the load; an agent that was full becomes
	// available again.
	ReleaseCapacity(ctx context.Context, agentID string) error

	FirstAvailable(ctx context.Context, departmentID *string) (*domain.Agent, error)
	LeastLoaded(ctx context.Context, departmentID *string) (*domain.Agent, error)
	FirstInDepartment(ctx context.Context, departmentID string) (*domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the pgx-backed repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, department_id, current_load, max_capacity, is_available, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, department_id, current_load, max_capacity, is_available)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.DepartmentID,
		agent.CurrentLoad,
		agent.MaxCapacity,
		agent.Available,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents
        SET name=$1, email=$2, department_id=$3, current_load=$4, max_capacity=$5, is_available=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		agent.Name,
		agent.Email,
		agent.DepartmentID,
		agent.CurrentLoad,
		agent.MaxCapacity,
		agent.Available,
		agent.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *agentRepository) ReserveCapacity(ctx context.Context, agentID string) (bool, error) {
	const query = `
        UPDATE agents
        SET current_load = current_load + 1,
            is_available = (current_load + 1 < max_capacity),
            updated_at = NOW()
        WHERE id=$1 AND is_available AND current_load < max_capacity`
	cmd, err := r.pool.Exec(ctx, query, agentID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *agentRepository) ReleaseCapacity(ctx context.Context, agentID string) error {
	const query = `
        UPDATE agents
        SET current_load = GREATEST(current_load - 1, 0),
            is_available = CASE WHEN current_load >= max_capacity THEN TRUE ELSE is_available END,
            updated_at = NOW()
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, agentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) FirstAvailable(ctx context.Context, departmentID *string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE is_available AND current_load < max_capacity`
	args := []any{}
	if departmentID != nil {
		args = append(args, *departmentID)
		query += ` AND department_id=$1`
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT 1`
	return r.fetchOptional(ctx, query, args...)
}

func (r *agentRepository) LeastLoaded(ctx context.Context, departmentID *string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE is_available AND current_load < max_capacity`
	args := []any{}
	if departmentID != nil {
		args = append(args, *departmentID)
		query += ` AND department_id=$1`
	}
	query += ` ORDER BY current_load ASC, id ASC LIMIT 1`
	return r.fetchOptional(ctx, query, args...)
}

func (r *agentRepository) FirstInDepartment(ctx context.Context, departmentID string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE department_id=$1 ORDER BY created_at ASC, id ASC LIMIT 1`
	return r.fetchOptional(ctx, query, departmentID)
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.DepartmentID,
		&agent.CurrentLoad,
		&agent.MaxCapacity,
		&agent.Available,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) fetchOptional(ctx context.Context, query string, args ...any) (*domain.Agent, error) {
	agent, err := r.fetchSingle(ctx, query, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}
