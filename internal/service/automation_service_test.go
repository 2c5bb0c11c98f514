package service

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/automation"
	"github.com/drona-gyawali/Supportix/internal/repository/memory"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

type countingRule struct {
	seen []string
	fail map[string]bool
}

func (r *countingRule) Name() string { return "counting" }

func (r *countingRule) ShouldApply(ctx context.Context, ticketKey string) (bool, error) {
	return true, nil
}

func (r *countingRule) Apply(ctx context.Context, ticketKey string) automation.Outcome {
	r.seen = append(r.seen, ticketKey)
	if r.fail[ticketKey] {
		return automation.Outcome{Operation: "apply", Status: automation.StatusFailed, Reason: "forced"}
	}
	return automation.Outcome{Operation: "apply", Status: automation.StatusSuccess}
}

func TestRunRulesUnknownTicket(t *testing.T) {
	store := memory.NewStore()
	svc := NewAutomationService(automation.NewEngine(zap.NewNop()), store.Tickets(), zap.NewNop(), 10)

	_, err := svc.RunRules(context.Background(), "missing")
	if !util.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestSweepVisitsEveryTicketAcrossPages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.mustCustomer(t, "Dora")

	for i := 0; i < 7; i++ {
		env.mustTicket(t, customer.ID, fmt.Sprintf("issue %d", i))
	}

	rule := &countingRule{}
	svc := NewAutomationService(automation.NewEngine(zap.NewNop(), rule), env.store.Tickets(), zap.NewNop(), 3)

	visited, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if visited != 7 {
		t.Fatalf("visited = %d, want 7", visited)
	}
	if len(rule.seen) != 7 {
		t.Fatalf("rule saw %d tickets, want 7", len(rule.seen))
	}
}

func TestSweepContinuesPastFailingTickets(t *testing.T) {
	env := newTestEnv(t)
	customer := env.mustCustomer(t, "Dora")

	first := env.mustTicket(t, customer.ID, "first")
	env.mustTicket(t, customer.ID, "second")

	rule := &countingRule{fail: map[string]bool{first.TicketKey: true}}
	svc := NewAutomationService(automation.NewEngine(zap.NewNop(), rule), env.store.Tickets(), zap.NewNop(), 10)

	visited, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if visited != 2 {
		t.Fatalf("visited = %d, want 2", visited)
	}
}
