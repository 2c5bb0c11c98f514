package automation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type stubRule struct {
	name     string
	apply    bool
	checkErr error
	panics   bool
	outcome  Outcome
	applied  int
}

func (r *stubRule) Name() string { return r.name }

func (r *stubRule) ShouldApply(ctx context.Context, ticketKey string) (bool, error) {
	return r.apply, r.checkErr
}

func (r *stubRule) Apply(ctx context.Context, ticketKey string) Outcome {
	r.applied++
	if r.panics {
		panic("boom")
	}
	return r.outcome
}

func TestEngineOmitsNonFiringRules(t *testing.T) {
	fires := &stubRule{name: "fires", apply: true, outcome: succeeded("done")}
	dormant := &stubRule{name: "dormant"}

	engine := NewEngine(zap.NewNop(), dormant, fires)
	results := engine.Run(context.Background(), "T1")

	if len(results) != 1 || results[0].Rule != "fires" {
		t.Fatalf("results = %+v, want only the firing rule", results)
	}
	if dormant.applied != 0 {
		t.Fatal("a rule whose precondition does not hold must not be applied")
	}
}

func TestEngineRecordsPreconditionErrors(t *testing.T) {
	broken := &stubRule{name: "broken", checkErr: errors.New("db down")}

	engine := NewEngine(zap.NewNop(), broken)
	results := engine.Run(context.Background(), "T1")

	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Outcome.Status != StatusFailed || results[0].Outcome.Reason != "db down" {
		t.Fatalf("outcome = %+v", results[0].Outcome)
	}
	if broken.applied != 0 {
		t.Fatal("a failing precondition must not reach apply")
	}
}

func TestEnginePanicDoesNotStopLaterRules(t *testing.T) {
	panicky := &stubRule{name: "panicky", apply: true, panics: true}
	after := &stubRule{name: "after", apply: true, outcome: succeeded("done")}

	engine := NewEngine(zap.NewNop(), panicky, after)
	results := engine.Run(context.Background(), "T1")

	if len(results) != 2 {
		t.Fatalf("results = %+v, want panic plus success", results)
	}
	if results[0].Rule != "panicky" || results[0].Outcome.Status != StatusFailed {
		t.Fatalf("panic result = %+v", results[0])
	}
	if !strings.Contains(results[0].Outcome.Reason, "boom") {
		t.Fatalf("panic reason = %q", results[0].Outcome.Reason)
	}
	if results[1].Rule != "after" || results[1].Outcome.Status != StatusSuccess {
		t.Fatalf("second result = %+v", results[1])
	}
	if after.applied != 1 {
		t.Fatal("rules after a panic must still run")
	}
}
