package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drona-gyawali/Supportix/internal/domain"
)

// StatusChangeRepository stores the append-only transition audit trail.
type StatusChangeRepository interface {
	Create(ctx context.Context, change *domain.StatusChange) error
	CreateEscalation(ctx context.Context, escalation *domain.AutoEscalation) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChange, error)
}

type statusChangeRepository struct {
	pool *pgxpool.Pool
}

// NewStatusChangeRepository builds the repository.
func NewStatusChangeRepository(pool *pgxpool.Pool) StatusChangeRepository {
	return &statusChangeRepository{pool: pool}
}

func (r *statusChangeRepository) Create(ctx context.Context, change *domain.StatusChange) error {
	const query = `
        INSERT INTO status_changes (ticket_id, new_status, new_agent_id)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		change.TicketID,
		change.NewStatus,
		change.NewAgentID,
	).Scan(&change.ID, &change.CreatedAt)
}

func (r *statusChangeRepository) CreateEscalation(ctx context.Context, escalation *domain.AutoEscalation) error {
	const query = `
        INSERT INTO auto_escalations (ticket_id, status_change_id)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		escalation.TicketID,
		escalation.StatusChangeID,
	).Scan(&escalation.ID, &escalation.CreatedAt)
}

func (r *statusChangeRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChange, error) {
	const query = `
        SELECT id, ticket_id, new_status, new_agent_id, created_at
        FROM status_changes WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusChange
	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(
			&change.ID,
			&change.TicketID,
			&change.NewStatus,
			&change.NewAgentID,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
