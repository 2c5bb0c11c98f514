package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/drona-gyawali/Supportix/internal/domain"
)

func TestTicketQueuePositionFIFO(t *testing.T) {
	store := NewStore()
	tickets := store.Tickets()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var created []*domain.Ticket
	for i := 0; i < 3; i++ {
		ticket := &domain.Ticket{
			TicketKey: "T" + string(rune('A'+i)),
			Status:    domain.TicketStatusWaiting,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := tickets.Create(ctx, ticket); err != nil {
			t.Fatalf("create: %v", err)
		}
		created = append(created, ticket)
	}

	for i, ticket := range created {
		pos, err := tickets.QueuePosition(ctx, ticket)
		if err != nil {
			t.Fatalf("position: %v", err)
		}
		if pos != i+1 {
			t.Errorf("ticket %s: position = %d, want %d", ticket.TicketKey, pos, i+1)
		}
	}

	next, err := tickets.NextWaiting(ctx, nil)
	if err != nil {
		t.Fatalf("next waiting: %v", err)
	}
	if next == nil || next.TicketKey != "TA" {
		t.Fatalf("expected oldest ticket TA first, got %+v", next)
	}
}

func TestEnqueueStampsQueuedAtOnce(t *testing.T) {
	store := NewStore()
	tickets := store.Tickets()
	ctx := context.Background()

	ticket := &domain.Ticket{TicketKey: "T1", Status: domain.TicketStatusAssigned}
	if err := tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := tickets.Enqueue(ctx, ticket); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if ticket.Status != domain.TicketStatusWaiting {
		t.Fatalf("status = %s, want waiting", ticket.Status)
	}
	if ticket.AgentID != nil {
		t.Fatal("enqueue must clear the agent binding")
	}
	if ticket.QueuedAt == nil {
		t.Fatal("enqueue must stamp queued_at")
	}

	first := *ticket.QueuedAt
	if err := tickets.Enqueue(ctx, ticket); err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if !ticket.QueuedAt.Equal(first) {
		t.Fatal("queued_at must not change on re-enqueue")
	}
}

func TestGetByKeyNotFound(t *testing.T) {
	store := NewStore()
	if _, err := store.Tickets().GetByKey(context.Background(), "missing"); err != pgx.ErrNoRows {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
}

func TestReserveAndReleaseCapacity(t *testing.T) {
	store := NewStore()
	agents := store.Agents()
	ctx := context.Background()

	agent := &domain.Agent{Name: "a", MaxCapacity: 2, Available: true}
	if err := agents.Create(ctx, agent); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := agents.ReserveCapacity(ctx, agent.ID)
		if err != nil || !ok {
			t.Fatalf("reserve %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := agents.ReserveCapacity(ctx, agent.ID)
	if err != nil {
		t.Fatalf("reserve over capacity: %v", err)
	}
	if ok {
		t.Fatal("reserve must fail at capacity")
	}

	stored, err := agents.GetByID(ctx, agent.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Available {
		t.Fatal("agent at capacity must be unavailable")
	}

	if err := agents.ReleaseCapacity(ctx, agent.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	stored, _ = agents.GetByID(ctx, agent.ID)
	if !stored.Available || stored.CurrentLoad != 1 {
		t.Fatalf("after release: load=%d available=%v", stored.CurrentLoad, stored.Available)
	}
}

func TestConcurrentReserveNeverExceedsCapacity(t *testing.T) {
	store := NewStore()
	agents := store.Agents()
	ctx := context.Background()

	agent := &domain.Agent{Name: "a", MaxCapacity: 5, Available: true}
	if err := agents.Create(ctx, agent); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := agents.ReserveCapacity(ctx, agent.ID)
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 5 {
		t.Fatalf("granted = %d, want exactly 5", granted)
	}
	stored, _ := agents.GetByID(ctx, agent.ID)
	if stored.CurrentLoad != 5 {
		t.Fatalf("current load = %d, want 5", stored.CurrentLoad)
	}
}

func TestWaitingCountsByDepartment(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	deptA := &domain.Department{Name: "A"}
	deptB := &domain.Department{Name: "B"}
	if err := store.Departments().Create(ctx, deptA); err != nil {
		t.Fatal(err)
	}
	if err := store.Departments().Create(ctx, deptB); err != nil {
		t.Fatal(err)
	}

	agentA := &domain.Agent{Name: "a", DepartmentID: deptA.ID, MaxCapacity: 3, Available: true}
	if err := store.Agents().Create(ctx, agentA); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		ticket := &domain.Ticket{
			TicketKey: "T" + string(rune('0'+i)),
			AgentID:   &agentA.ID,
			Status:    domain.TicketStatusWaiting,
		}
		if err := store.Tickets().Create(ctx, ticket); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := store.Tickets().WaitingCountsByDepartment(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[deptA.ID] != 2 {
		t.Errorf("department A count = %d, want 2", counts[deptA.ID])
	}
	if got, ok := counts[deptB.ID]; !ok || got != 0 {
		t.Errorf("department B must be zero-filled, got %d (present=%v)", got, ok)
	}
}

func TestDeleteFinishedBefore(t *testing.T) {
	store := NewStore()
	tickets := store.Tickets()
	ctx := context.Background()

	old := &domain.Ticket{TicketKey: "OLD", Status: domain.TicketStatusClosed}
	if err := tickets.Create(ctx, old); err != nil {
		t.Fatal(err)
	}
	fresh := &domain.Ticket{TicketKey: "NEW", Status: domain.TicketStatusWaiting}
	if err := tickets.Create(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	removed, err := tickets.DeleteFinishedBefore(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := tickets.GetByKey(ctx, "OLD"); err != pgx.ErrNoRows {
		t.Fatal("finished ticket should be gone")
	}
	if _, err := tickets.GetByKey(ctx, "NEW"); err != nil {
		t.Fatal("waiting ticket must survive the reaper")
	}
}

func TestReassignAgentBulkSkipsNonWaiting(t *testing.T) {
	store := NewStore()
	tickets := store.Tickets()
	ctx := context.Background()

	originalAgent := "agent-original"
	waiting := &domain.Ticket{TicketKey: "W", Status: domain.TicketStatusWaiting, AgentID: &originalAgent}
	assigned := &domain.Ticket{TicketKey: "A", Status: domain.TicketStatusAssigned, AgentID: &originalAgent}
	for _, ticket := range []*domain.Ticket{waiting, assigned} {
		if err := tickets.Create(ctx, ticket); err != nil {
			t.Fatal(err)
		}
	}

	moved, err := tickets.ReassignAgentBulk(ctx, []string{waiting.ID, assigned.ID, "missing"}, "agent-new")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}

	stored, _ := tickets.GetByKey(ctx, "W")
	if stored.AgentID == nil || *stored.AgentID != "agent-new" {
		t.Fatal("waiting ticket must be rebound")
	}
	kept, _ := tickets.GetByKey(ctx, "A")
	if kept.AgentID == nil || *kept.AgentID != originalAgent {
		t.Fatal("assigned ticket must keep its agent")
	}
}
