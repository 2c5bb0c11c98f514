package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drona-gyawali/Supportix/internal/domain"
)

// TicketRepository encapsulates ticket persistence and queue bookkeeping.
//
// Lookup methods that target a single optional row (NextWaiting) return
// (nil, nil) when no row qualifies, so scheduler loops can terminate without
// error plumbing.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByKey(ctx context.Context, ticketKey string) (*domain.Ticket, error)
	CountByCustomer(ctx context.Context, customerID string) (int, error)

	// Enqueue puts the ticket into the wait queue: status becomes waiting,
	// the agent binding is cleared and queued_at is stamped only if unset.
	Enqueue(ctx context.Context, ticket *domain.Ticket) error
	// QueuePosition is the count of waiting tickets created strictly before
	// this one, plus one. Ties on created_at break by id.
	QueuePosition(ctx context.Context, ticket *domain.Ticket) (int, error)
	// NextWaiting returns the earliest-created waiting ticket, optionally
	// restricted to tickets whose bound agent belongs to the department.
	NextWaiting(ctx context.Context, departmentID *string) (*domain.Ticket, error)

	// WaitingCountsByDepartment groups waiting tickets with a non-null agent
	// by the agent's department; departments without waiting tickets map to 0.
	WaitingCountsByDepartment(ctx context.Context) (map[string]int, error)
	OldestWaitingInDepartment(ctx context.Context, departmentID string, limit int) ([]domain.Ticket, error)
	// ReassignAgentBulk rebinds the given tickets to agentID and reports how
	// many rows changed. Only tickets still in waiting are touched; anything
	// assigned since selection is left alone.
	ReassignAgentBulk(ctx context.Context, ticketIDs []string, agentID string) (int64, error)

	ListBatch(ctx context.Context, offset, limit int) ([]domain.Ticket, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the pgx-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_key, customer_id, agent_id, title, description, tag, status, created_at, updated_at, queued_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_key, customer_id, agent_id, title, description, tag, status, queued_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketKey,
		ticket.CustomerID,
		ticket.AgentID,
		ticket.Title,
		ticket.Description,
		ticket.Tag,
		ticket.Status,
		ticket.QueuedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET agent_id=$1, title=$2, description=$3, tag=$4, status=$5, queued_at=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	if err := r.pool.QueryRow(ctx, query,
		ticket.AgentID,
		ticket.Title,
		ticket.Description,
		ticket.Tag,
		ticket.Status,
		ticket.QueuedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (r *ticketRepository) GetByKey(ctx context.Context, ticketKey string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_key=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, ticketKey).Scan(
		&ticket.ID,
		&ticket.TicketKey,
		&ticket.CustomerID,
		&ticket.AgentID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Tag,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.QueuedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE customer_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, customerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) Enqueue(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets
        SET status=$1, agent_id=NULL, queued_at=COALESCE(queued_at, NOW()), updated_at=NOW()
        WHERE id=$2
        RETURNING queued_at, updated_at`
	if err := r.pool.QueryRow(ctx, query, domain.TicketStatusWaiting, ticket.ID).
		Scan(&ticket.QueuedAt, &ticket.UpdatedAt); err != nil {
		return err
	}
	ticket.Status = domain.TicketStatusWaiting
	ticket.AgentID = nil
	return nil
}

func (r *ticketRepository) QueuePosition(ctx context.Context, ticket *domain.Ticket) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE status=$1 AND (created_at < $2 OR (created_at = $2 AND id < $3))`
	var ahead int
	if err := r.pool.QueryRow(ctx, query, domain.TicketStatusWaiting, ticket.CreatedAt, ticket.ID).Scan(&ahead); err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

func (r *ticketRepository) NextWaiting(ctx context.Context, departmentID *string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status=$1`
	args := []any{domain.TicketStatusWaiting}
	if departmentID != nil {
		query = `
            SELECT t.id, t.ticket_key, t.customer_id, t.agent_id, t.title, t.description, t.tag, t.status,
                   t.created_at, t.updated_at, t.queued_at
            FROM tickets t
            JOIN agents a ON a.id = t.agent_id
            WHERE t.status=$1 AND a.department_id=$2`
		args = append(args, *departmentID)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT 1`

	var ticket domain.Ticket
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.TicketKey,
		&ticket.CustomerID,
		&ticket.AgentID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Tag,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.QueuedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) WaitingCountsByDepartment(ctx context.Context) (map[string]int, error) {
	const query = `
        SELECT a.department_id, COUNT(t.id)
        FROM tickets t
        JOIN agents a ON a.id = t.agent_id
        WHERE t.status=$1
        GROUP BY a.department_id`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusWaiting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var deptID string
		var count int
		if err := rows.Scan(&deptID, &count); err != nil {
			return nil, err
		}
		counts[deptID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const deptQuery = `SELECT id FROM departments`
	deptRows, err := r.pool.Query(ctx, deptQuery)
	if err != nil {
		return nil, err
	}
	defer deptRows.Close()
	for deptRows.Next() {
		var deptID string
		if err := deptRows.Scan(&deptID); err != nil {
			return nil, err
		}
		if _, ok := counts[deptID]; !ok {
			counts[deptID] = 0
		}
	}
	return counts, deptRows.Err()
}

func (r *ticketRepository) OldestWaitingInDepartment(ctx context.Context, departmentID string, limit int) ([]domain.Ticket, error) {
	const query = `
        SELECT t.id, t.ticket_key, t.customer_id, t.agent_id, t.title, t.description, t.tag, t.status,
               t.created_at, t.updated_at, t.queued_at
        FROM tickets t
        JOIN agents a ON a.id = t.agent_id
        WHERE t.status=$1 AND a.department_id=$2
        ORDER BY t.created_at ASC, t.id ASC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusWaiting, departmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ReassignAgentBulk(ctx context.Context, ticketIDs []string, agentID string) (int64, error) {
	if len(ticketIDs) == 0 {
		return 0, nil
	}
	const query = `UPDATE tickets SET agent_id=$1, updated_at=NOW() WHERE id = ANY($2) AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, agentID, ticketIDs, string(domain.TicketStatusWaiting))
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) ListBatch(ctx context.Context, offset, limit int) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM tickets WHERE status = ANY($1) AND updated_at < $2`
	statuses := []string{string(domain.TicketStatusCompleted), string(domain.TicketStatusClosed)}
	cmd, err := r.pool.Exec(ctx, query, statuses, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketKey,
			&ticket.CustomerID,
			&ticket.AgentID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Tag,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.QueuedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
