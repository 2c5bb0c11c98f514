package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/config"
	"github.com/drona-gyawali/Supportix/internal/domain"
	"github.com/drona-gyawali/Supportix/internal/events"
	"github.com/drona-gyawali/Supportix/internal/lock"
	"github.com/drona-gyawali/Supportix/internal/observability"
	"github.com/drona-gyawali/Supportix/internal/repository"
	"github.com/drona-gyawali/Supportix/internal/repository/memory"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

func TestAssignBindsAvailableAgent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.mustCustomer(t, "dorna")
	dept := env.mustDepartment(t, "support")
	agent := env.mustAgent(t, "alice", dept.ID, 2)
	ticket := env.mustTicket(t, customer.ID, "login broken")

	result, err := env.assignments.Assign(ctx, ticket.TicketKey)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !result.Assigned {
		t.Fatal("expected ticket to be assigned")
	}
	if result.Agent == nil || result.Agent.ID != agent.ID {
		t.Fatalf("expected binding to agent %s, got %+v", agent.ID, result.Agent)
	}
	if result.Ticket.Status != domain.TicketStatusAssigned {
		t.Fatalf("status = %s, want assigned", result.Ticket.Status)
	}

	stored, err := env.directory.GetAgent(ctx, agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CurrentLoad != 1 || !stored.Available {
		t.Fatalf("agent load=%d available=%v, want 1/true", stored.CurrentLoad, stored.Available)
	}

	history, err := env.tickets.History(ctx, ticket.TicketKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].NewStatus != domain.TicketStatusAssigned {
		t.Fatalf("expected one assigned audit entry, got %+v", history)
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.mustCustomer(t, "dorna")
	dept := env.mustDepartment(t, "support")
	agent := env.mustAgent(t, "alice", dept.ID, 3)
	ticket := env.mustTicket(t, customer.ID, "billing question")

	first, err := env.assignments.Assign(ctx, ticket.TicketKey)
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.assignments.Assign(ctx, ticket.TicketKey)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Assigned || second.Agent.ID != first.Agent.ID {
		t.Fatal("repeat assign must return the existing binding")
	}

	stored, _ := env.directory.GetAgent(ctx, agent.ID)
	if stored.CurrentLoad != 1 {
		t.Fatalf("repeat assign must not consume capacity, load=%d", stored.CurrentLoad)
	}
}

func TestAssignQueuesWhenNoCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.mustCustomer(t, "dorna")
	dept := env.mustDepartment(t, "support")
	env.mustAgent(t, "alice", dept.ID, 1)

	first := env.mustTicket(t, customer.ID, "issue one")
	second := env.mustTicket(t, customer.ID, "issue two")

	if result, err := env.assignments.Assign(ctx, first.TicketKey); err != nil || !result.Assigned {
		t.Fatalf("first assign: assigned=%v err=%v", result != nil && result.Assigned, err)
	}

	result, err := env.assignments.Assign(ctx, second.TicketKey)
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if result.Assigned {
		t.Fatal("second ticket must queue, the only agent is full")
	}
	if result.Position != 1 {
		t.Fatalf("queue position = %d, want 1", result.Position)
	}
	if result.Ticket.QueuedAt == nil {
		t.Fatal("queued ticket must have queued_at stamped")
	}
	if result.Ticket.AgentID != nil {
		t.Fatal("queued ticket must not keep an agent binding")
	}
}

func TestAssignUnknownTicket(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.assignments.Assign(context.Background(), "missing")
	if !util.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestConcurrentAssignNeverOverCommits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.mustCustomer(t, "dorna")
	dept := env.mustDepartment(t, "support")
	a1 := env.mustAgent(t, "alice", dept.ID, 2)
	a2 := env.mustAgent(t, "bob", dept.ID, 1)

	keys := make([]string, 8)
	for i := range keys {
		keys[i] = env.mustTicket(t, customer.ID, "concurrent issue").TicketKey
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	assigned, queued := 0, 0
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			result, err := env.assignments.Assign(ctx, key)
			if err != nil {
				t.Errorf("assign %s: %v", key, err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if result.Assigned {
				assigned++
			} else {
				queued++
			}
		}(key)
	}
	wg.Wait()

	if assigned != 3 || queued != 5 {
		t.Fatalf("assigned=%d queued=%d, want 3/5", assigned, queued)
	}
	s1, _ := env.directory.GetAgent(ctx, a1.ID)
	s2, _ := env.directory.GetAgent(ctx, a2.ID)
	if s1.CurrentLoad+s2.CurrentLoad != 3 {
		t.Fatalf("total load = %d, want 3", s1.CurrentLoad+s2.CurrentLoad)
	}
	if s1.CurrentLoad > s1.MaxCapacity || s2.CurrentLoad > s2.MaxCapacity {
		t.Fatal("no agent may exceed its capacity")
	}
}

func TestDrainQueueAssignsFIFO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.mustCustomer(t, "dorna")
	dept := env.mustDepartment(t, "support")

	first := env.mustTicket(t, customer.ID, "oldest")
	second := env.mustTicket(t, customer.ID, "middle")
	third := env.mustTicket(t, customer.ID, "newest")

	// no agents yet, everything queues
	for _, key := range []string{first.TicketKey, second.TicketKey, third.TicketKey} {
		if result, err := env.assignments.Assign(ctx, key); err != nil || result.Assigned {
			t.Fatalf("expected %s to queue", key)
		}
	}

	env.mustAgent(t, "alice", dept.ID, 2)

	drained, err := env.assignments.DrainQueue(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if drained != 2 {
		t.Fatalf("drained = %d, want 2", drained)
	}

	for key, wantAssigned := range map[string]bool{
		first.TicketKey:  true,
		second.TicketKey: true,
		third.TicketKey:  false,
	} {
		ticket, err := env.tickets.GetTicket(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		gotAssigned := ticket.Status == domain.TicketStatusAssigned
		if gotAssigned != wantAssigned {
			t.Errorf("ticket %s assigned=%v, want %v", key, gotAssigned, wantAssigned)
		}
	}
}

func TestBalanceLoadPrefersLeastLoaded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.mustCustomer(t, "dorna")
	dept := env.mustDepartment(t, "support")
	busy := env.mustAgent(t, "alice", dept.ID, 5)
	idle := env.mustAgent(t, "bob", dept.ID, 5)

	// bias alice with two held tickets
	for i := 0; i < 2; i++ {
		ticket := env.mustTicket(t, customer.ID, "held issue")
		if ok, err := env.tickets.Transition(ctx, ticket.TicketKey, domain.TicketStatusAssigned, &busy.ID); err != nil || !ok {
			t.Fatalf("seed transition: ok=%v err=%v", ok, err)
		}
	}

	waiting := env.mustTicket(t, customer.ID, "new issue")

	moved, err := env.assignments.BalanceLoad(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}
	ticket, _ := env.tickets.GetTicket(ctx, waiting.TicketKey)
	if ticket.AgentID == nil || *ticket.AgentID != idle.ID {
		t.Fatalf("expected least-loaded agent %s, got %v", idle.ID, ticket.AgentID)
	}
}

func TestQueuePositionsAreOrdered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.mustCustomer(t, "dorna")

	keys := make([]string, 3)
	for i := range keys {
		keys[i] = env.mustTicket(t, customer.ID, "queued issue").TicketKey
	}
	for _, key := range keys {
		if _, err := env.assignments.Assign(ctx, key); err != nil {
			t.Fatal(err)
		}
	}

	for i, key := range keys {
		position, err := env.assignments.QueuePosition(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if position != i+1 {
			t.Errorf("ticket %s position = %d, want %d", key, position, i+1)
		}
	}
}

// flakyTickets fails the next updateFailures Update calls, then behaves
// normally.
type flakyTickets struct {
	repository.TicketRepository
	updateFailures int
}

func (f *flakyTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	if f.updateFailures > 0 {
		f.updateFailures--
		return errors.New("update failed")
	}
	return f.TicketRepository.Update(ctx, ticket)
}

func newFlakyAssignments(t *testing.T) (*AssignmentService, *memory.Store, *flakyTickets) {
	t.Helper()
	store := memory.NewStore()
	flaky := &flakyTickets{TicketRepository: store.Tickets()}
	assignments := NewAssignmentService(AssignmentDependencies{
		TicketRepo: flaky,
		AgentRepo:  store.Agents(),
		ChangeRepo: store.StatusChanges(),
		Dispatcher: events.NewInMemoryDispatcher(),
		Locks:      lock.NewRegistry(),
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
		Config: config.AssignmentConfig{
			ReserveRetries:          3,
			RetryBackoffMs:          1,
			PositionCacheTTLSeconds: 1,
		},
	})
	return assignments, store, flaky
}

func seedAssignable(t *testing.T, store *memory.Store, capacity int) *domain.Agent {
	t.Helper()
	ctx := context.Background()
	dept := &domain.Department{Name: "support"}
	if err := store.Departments().Create(ctx, dept); err != nil {
		t.Fatal(err)
	}
	agent := &domain.Agent{Name: "alice", DepartmentID: dept.ID, MaxCapacity: capacity, Available: true}
	if err := store.Agents().Create(ctx, agent); err != nil {
		t.Fatal(err)
	}
	if err := store.Tickets().Create(ctx, &domain.Ticket{TicketKey: "T1", Status: domain.TicketStatusWaiting}); err != nil {
		t.Fatal(err)
	}
	return agent
}

func TestAssignReleasesReservationWhenBindFails(t *testing.T) {
	assignments, store, flaky := newFlakyAssignments(t)
	ctx := context.Background()
	agent := seedAssignable(t, store, 1)

	flaky.updateFailures = 1
	if _, err := assignments.Assign(ctx, "T1"); err == nil {
		t.Fatal("expected the failed bind to surface")
	}

	stored, err := store.Agents().GetByID(ctx, agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CurrentLoad != 0 || !stored.Available {
		t.Fatalf("agent load=%d available=%v after failed bind, want 0/true", stored.CurrentLoad, stored.Available)
	}

	// with the reservation handed back the retry lands on the same agent
	result, err := assignments.Assign(ctx, "T1")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Assigned {
		t.Fatal("retry must assign, not queue")
	}
}

func TestDrainReleasesReservationWhenBindFails(t *testing.T) {
	assignments, store, flaky := newFlakyAssignments(t)
	ctx := context.Background()
	agent := seedAssignable(t, store, 1)

	flaky.updateFailures = 1
	drained, err := assignments.DrainQueue(ctx)
	if err == nil {
		t.Fatal("expected the failed bind to surface")
	}
	if drained != 0 {
		t.Fatalf("drained = %d, want 0", drained)
	}

	stored, err := store.Agents().GetByID(ctx, agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CurrentLoad != 0 || !stored.Available {
		t.Fatalf("agent load=%d available=%v after failed bind, want 0/true", stored.CurrentLoad, stored.Available)
	}

	drained, err = assignments.DrainQueue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if drained != 1 {
		t.Fatalf("drained = %d on retry, want 1", drained)
	}
}
