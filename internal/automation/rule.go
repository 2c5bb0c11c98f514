package automation

import "context"

// Outcome statuses reported by rules.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Outcome describes what a single rule did to a ticket.
type Outcome struct {
	Operation string `json:"operation"`
	Status    string `json:"status"`
	Details   string `json:"details,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// RuleResult pairs an outcome with the rule that produced it.
type RuleResult struct {
	Rule    string  `json:"rule"`
	Outcome Outcome `json:"outcome"`
}

// Rule is one automation step evaluated against a ticket. ShouldApply is a
// cheap precondition check; Apply re-validates before mutating because state
// may change between the two calls.
type Rule interface {
	Name() string
	ShouldApply(ctx context.Context, ticketKey string) (bool, error)
	Apply(ctx context.Context, ticketKey string) Outcome
}

func failed(reason string) Outcome {
	return Outcome{Operation: "apply", Status: StatusFailed, Reason: reason}
}

func skipped(reason string) Outcome {
	return Outcome{Operation: "apply", Status: StatusSkipped, Reason: reason}
}

func succeeded(details string) Outcome {
	return Outcome{Operation: "apply", Status: StatusSuccess, Details: details}
}
