package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/drona-gyawali/Supportix/internal/repository"
	"github.com/drona-gyawali/Supportix/internal/tagging"
)

// TagByContent infers content tags for untagged tickets. Tags already set,
// by a human or a previous run, are never overwritten.
type TagByContent struct {
	tickets   repository.TicketRepository
	generator tagging.Generator
}

// NewTagByContent builds the rule.
func NewTagByContent(tickets repository.TicketRepository, generator tagging.Generator) *TagByContent {
	return &TagByContent{tickets: tickets, generator: generator}
}

func (r *TagByContent) Name() string { return "TagByContent" }

// ShouldApply holds for existing tickets without a tag.
func (r *TagByContent) ShouldApply(ctx context.Context, ticketKey string) (bool, error) {
	ticket, err := r.tickets.GetByKey(ctx, ticketKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(ticket.Tag) == "", nil
}

func (r *TagByContent) Apply(ctx context.Context, ticketKey string) Outcome {
	ticket, err := r.tickets.GetByKey(ctx, ticketKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return failed("ticket not found")
	}
	if err != nil {
		return failed(err.Error())
	}
	if strings.TrimSpace(ticket.Tag) != "" {
		return skipped(fmt.Sprintf("skipping, ticket already tagged: %s", ticket.Tag))
	}

	tags, err := r.generator.GenerateTags(ctx, ticket.Title, ticket.Description)
	if err != nil {
		return failed(err.Error())
	}
	if len(tags) == 0 {
		return skipped("no tags generated")
	}

	ticket.Tag = strings.Join(tags, ", ")
	if err := r.tickets.Update(ctx, ticket); err != nil {
		return failed(err.Error())
	}
	return succeeded(fmt.Sprintf("tagged ticket %s with: %s", ticket.TicketKey, ticket.Tag))
}
