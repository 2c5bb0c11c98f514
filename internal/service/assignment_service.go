package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/config"
	"github.com/drona-gyawali/Supportix/internal/domain"
	"github.com/drona-gyawali/Supportix/internal/events"
	"github.com/drona-gyawali/Supportix/internal/lock"
	"github.com/drona-gyawali/Supportix/internal/observability"
	"github.com/drona-gyawali/Supportix/internal/persistence"
	"github.com/drona-gyawali/Supportix/internal/repository"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

// AssignmentResult reports what Assign did with a ticket.
type AssignmentResult struct {
	Ticket   *domain.Ticket
	Agent    *domain.Agent
	Assigned bool
	Position int
}

// AssignmentService binds tickets to agents and runs the queue batch paths.
//
// Single-ticket assignment takes the ticket key lock, then the agent key
// lock, always in that order. The batch paths additionally serialize behind
// batchMu so two scheduler ticks never interleave their scans.
type AssignmentService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	changes    repository.StatusChangeRepository
	dispatcher events.Dispatcher
	locks      *lock.Registry
	cache      *persistence.Redis
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.AssignmentConfig

	batchMu sync.Mutex
}

// AssignmentDependencies bundles collaborators for the assignment service.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	AgentRepo  repository.AgentRepository
	ChangeRepo repository.StatusChangeRepository
	Dispatcher events.Dispatcher
	Locks      *lock.Registry
	Cache      *persistence.Redis
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Config     config.AssignmentConfig
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		changes:    deps.ChangeRepo,
		dispatcher: deps.Dispatcher,
		locks:      deps.Locks,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        deps.Config,
	}
}

// Assign binds the ticket to an available agent, or queues it when no agent
// has capacity. Calling Assign on an already-bound ticket returns the current
// binding without side effects.
func (s *AssignmentService) Assign(ctx context.Context, ticketKey string) (*AssignmentResult, error) {
	release := s.locks.Lock("ticket:" + ticketKey)
	defer release()

	ticket, err := s.tickets.GetByKey(ctx, ticketKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_key": ticketKey})
		}
		return nil, util.MapError(err)
	}

	if bound, agent, err := s.currentBinding(ctx, ticket); err != nil {
		return nil, err
	} else if bound {
		return &AssignmentResult{Ticket: ticket, Agent: agent, Assigned: true}, nil
	}

	agent, err := s.reserveAny(ctx, nil, s.agents.FirstAvailable)
	if err != nil {
		return nil, err
	}
	if agent != nil {
		if err := s.bind(ctx, ticket, agent); err != nil {
			s.unreserve(ctx, agent.ID)
			return nil, err
		}
		s.metrics.RecordAssignment("assigned")
		return &AssignmentResult{Ticket: ticket, Agent: agent, Assigned: true}, nil
	}

	position, err := s.queue(ctx, ticket)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAssignment("queued")
	return &AssignmentResult{Ticket: ticket, Assigned: false, Position: position}, nil
}

// QueuePosition resolves the ticket's place in the wait queue, preferring the
// short-lived cache written when the ticket was queued.
func (s *AssignmentService) QueuePosition(ctx context.Context, ticketKey string) (int, error) {
	if position, ok := s.cache.QueuePosition(ctx, ticketKey); ok {
		return position, nil
	}

	ticket, err := s.tickets.GetByKey(ctx, ticketKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, util.NewNotFound("ticket", map[string]any{"ticket_key": ticketKey})
		}
		return 0, util.MapError(err)
	}
	if ticket.Status != domain.TicketStatusWaiting {
		return 0, util.NewConflict("ticket is not waiting", map[string]any{
			"ticket_key": ticketKey,
			"status":     string(ticket.Status),
		})
	}

	position, err := s.tickets.QueuePosition(ctx, ticket)
	if err != nil {
		return 0, util.MapError(err)
	}
	s.cache.CacheQueuePosition(ctx, ticketKey, position, s.cfg.PositionCacheTTL())
	return position, nil
}

// DrainQueue assigns waiting tickets in FIFO order to the first available
// agent until either side runs dry. Returns the number of tickets assigned.
func (s *AssignmentService) DrainQueue(ctx context.Context) (int, error) {
	return s.drain(ctx, s.agents.FirstAvailable)
}

// BalanceLoad assigns waiting tickets in FIFO order to the least-loaded
// available agent. Returns the number of tickets assigned.
func (s *AssignmentService) BalanceLoad(ctx context.Context) (int, error) {
	return s.drain(ctx, s.agents.LeastLoaded)
}

type agentPicker func(ctx context.Context, departmentID *string) (*domain.Agent, error)

func (s *AssignmentService) drain(ctx context.Context, pick agentPicker) (int, error) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	assigned := 0
	for {
		if err := ctx.Err(); err != nil {
			return assigned, err
		}

		next, err := s.tickets.NextWaiting(ctx, nil)
		if err != nil {
			return assigned, util.MapError(err)
		}
		if next == nil {
			return assigned, nil
		}

		agent, err := s.reserveAny(ctx, nil, pick)
		if err != nil {
			return assigned, err
		}
		if agent == nil {
			return assigned, nil
		}

		release := s.locks.LockMany([]string{"ticket:" + next.TicketKey, "agent:" + agent.ID})
		ticket, err := s.tickets.GetByKey(ctx, next.TicketKey)
		if err != nil || ticket.Status != domain.TicketStatusWaiting {
			// someone raced the queue scan, hand the reservation back
			release()
			s.unreserve(ctx, agent.ID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return assigned, util.MapError(err)
			}
			continue
		}
		err = s.bind(ctx, ticket, agent)
		release()
		if err != nil {
			s.unreserve(ctx, agent.ID)
			return assigned, err
		}
		assigned++
	}
}

// reserveAny picks eligible agents and reserves one unit of capacity,
// retrying with backoff when a pick loses the reservation race. Returns
// (nil, nil) when no agent can be reserved.
func (s *AssignmentService) reserveAny(ctx context.Context, departmentID *string, pick agentPicker) (*domain.Agent, error) {
	attempts := s.cfg.ReserveRetries
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		agent, err := pick(ctx, departmentID)
		if err != nil {
			return nil, util.MapError(err)
		}
		if agent == nil {
			return nil, nil
		}

		ok, err := s.agents.ReserveCapacity(ctx, agent.ID)
		if err != nil {
			return nil, util.MapError(err)
		}
		if ok {
			agent.CurrentLoad++
			agent.Available = agent.CurrentLoad < agent.MaxCapacity
			return agent, nil
		}
		if backoff := s.cfg.RetryBackoff(); backoff > 0 {
			time.Sleep(backoff)
		}
	}
	return nil, nil
}

// unreserve hands a capacity reservation back when the assignment it was
// taken for did not land.
func (s *AssignmentService) unreserve(ctx context.Context, agentID string) {
	if err := s.agents.ReleaseCapacity(ctx, agentID); err != nil {
		s.logger.Warn("failed to release reservation", zap.String("agent_id", agentID), zap.Error(err))
	}
}

// bind records the assignment. The caller holds the ticket lock and the
// capacity reservation on the agent.
func (s *AssignmentService) bind(ctx context.Context, ticket *domain.Ticket, agent *domain.Agent) error {
	ticket.AgentID = &agent.ID
	ticket.Status = domain.TicketStatusAssigned
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return util.MapError(err)
	}
	if err := s.changes.Create(ctx, &domain.StatusChange{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		NewStatus:  domain.TicketStatusAssigned,
		NewAgentID: ticket.AgentID,
	}); err != nil {
		return util.MapError(err)
	}

	s.cache.DropQueuePosition(ctx, ticket.TicketKey)
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketAssignedPayload{
			AgentID:      agent.ID,
			DepartmentID: agent.DepartmentID,
		},
	})
	s.logger.Info("ticket assigned",
		zap.String("ticket_key", ticket.TicketKey),
		zap.String("agent_id", agent.ID))
	return nil
}

func (s *AssignmentService) queue(ctx context.Context, ticket *domain.Ticket) (int, error) {
	firstEntry := ticket.QueuedAt == nil
	if err := s.tickets.Enqueue(ctx, ticket); err != nil {
		return 0, util.MapError(err)
	}
	position, err := s.tickets.QueuePosition(ctx, ticket)
	if err != nil {
		return 0, util.MapError(err)
	}
	s.cache.CacheQueuePosition(ctx, ticket.TicketKey, position, s.cfg.PositionCacheTTL())

	if firstEntry && ticket.QueuedAt != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketQueued,
			TicketID:  ticket.ID,
			Timestamp: time.Now().UTC(),
			Payload: events.TicketQueuedPayload{
				Position: position,
				QueuedAt: *ticket.QueuedAt,
			},
		})
	}
	s.logger.Info("ticket queued",
		zap.String("ticket_key", ticket.TicketKey),
		zap.Int("position", position))
	return position, nil
}

// currentBinding reports whether the ticket is already held by an agent and
// resolves that agent for the idempotent-return path.
func (s *AssignmentService) currentBinding(ctx context.Context, ticket *domain.Ticket) (bool, *domain.Agent, error) {
	if ticket.AgentID == nil {
		return false, nil, nil
	}
	if ticket.Status != domain.TicketStatusAssigned && ticket.Status != domain.TicketStatusProgress {
		return false, nil, nil
	}
	agent, err := s.agents.GetByID(ctx, *ticket.AgentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, util.MapError(err)
	}
	return true, agent, nil
}
