package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Engine runs an ordered set of rules against a ticket. One rule failing or
// panicking never stops the remaining rules.
type Engine struct {
	rules  []Rule
	logger *zap.Logger
}

// NewEngine builds an engine over the given rules, evaluated in order.
func NewEngine(logger *zap.Logger, rules ...Rule) *Engine {
	return &Engine{rules: rules, logger: logger}
}

// Run evaluates every rule against the ticket and collects results for the
// rules that fired or failed. Rules whose precondition did not hold are
// omitted, matching the audit expectations of callers.
func (e *Engine) Run(ctx context.Context, ticketKey string) []RuleResult {
	results := make([]RuleResult, 0, len(e.rules))
	for _, rule := range e.rules {
		if result, ok := e.runOne(ctx, rule, ticketKey); ok {
			results = append(results, result)
		}
	}
	return results
}

func (e *Engine) runOne(ctx context.Context, rule Rule, ticketKey string) (result RuleResult, fired bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule panicked",
				zap.String("rule", rule.Name()),
				zap.String("ticket_key", ticketKey),
				zap.Any("panic", r))
			result = RuleResult{Rule: rule.Name(), Outcome: failed(fmt.Sprintf("panic: %v", r))}
			fired = true
		}
	}()

	apply, err := rule.ShouldApply(ctx, ticketKey)
	if err != nil {
		e.logger.Warn("rule precondition check failed",
			zap.String("rule", rule.Name()),
			zap.String("ticket_key", ticketKey),
			zap.Error(err))
		return RuleResult{Rule: rule.Name(), Outcome: failed(err.Error())}, true
	}
	if !apply {
		return RuleResult{}, false
	}

	outcome := rule.Apply(ctx, ticketKey)
	if outcome.Status == StatusFailed {
		e.logger.Warn("rule application failed",
			zap.String("rule", rule.Name()),
			zap.String("ticket_key", ticketKey),
			zap.String("reason", outcome.Reason))
	}
	return RuleResult{Rule: rule.Name(), Outcome: outcome}, true
}
