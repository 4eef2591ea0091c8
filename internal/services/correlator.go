package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/mailbox"
	"github.com/tbourn/notice-escalator/internal/observability"
	"github.com/tbourn/notice-escalator/internal/repo"
)

// DefaultExcerptMax is the number of characters kept from a reply body.
const DefaultExcerptMax = 1000

// Mailbox yields inbound messages not seen before.
type Mailbox interface {
	FetchUnseen(ctx context.Context) ([]mailbox.Message, error)
	MarkSeen(ctx context.Context, uids []uint32) error
}

// Outcome is the result of correlating one reply.
type Outcome string

const (
	OutcomeMatched  Outcome = "matched"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeConflict Outcome = "conflict"
)

// Correlation describes what happened to one reply.
type Correlation struct {
	Outcome    Outcome `json:"outcome"`
	CaseID     string  `json:"case_id,omitempty"`
	Candidates int     `json:"candidates"`
}

// InboxSummary aggregates one ProcessInbox run.
type InboxSummary struct {
	Received  int `json:"received"`
	Matched   int `json:"matched"`
	Ignored   int `json:"ignored"`
	Conflicts int `json:"conflicts"`
	Failed    int `json:"failed"`
}

// Correlator moves open cases to responded when their contact replies.
//
// When several open cases share the sender address the one that most
// recently changed state wins (greatest state_entered_at, then greatest id).
type Correlator struct {
	Store      CaseStore
	Mailbox    Mailbox
	ExcerptMax int

	Now func() time.Time
	Log zerolog.Logger
}

func (c *Correlator) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// Excerpt trims body and keeps at most max characters. max <= 0 uses
// DefaultExcerptMax.
func Excerpt(body string, max int) string {
	if max <= 0 {
		max = DefaultExcerptMax
	}
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	return string([]rune(body)[:max])
}

// Correlate records a reply from sender. A reply that matches no open case is
// ignored. If the chosen case is advanced concurrently to another open state
// the lookup is retried; if every candidate left the open states first the
// reply is reported as a conflict.
func (c *Correlator) Correlate(ctx context.Context, sender, body string) (Correlation, error) {
	tr := otel.Tracer("services/Correlator")
	ctx, span := tr.Start(ctx, "Correlate",
		trace.WithAttributes(attribute.Int("body.bytes", len(body))),
	)
	defer span.End()

	addr := repo.NormalizeAddress(sender)
	if addr == "" {
		return Correlation{Outcome: OutcomeIgnored}, nil
	}
	excerpt := Excerpt(body, c.ExcerptMax)

	for attempt := 0; attempt < len(domain.OpenStates); attempt++ {
		cands, err := c.Store.Find(ctx, repo.CaseFilter{
			States:         domain.OpenStates,
			Responded:      repo.Bool(false),
			ContactAddress: addr,
			Order:          repo.NewestFirst,
		})
		if err != nil {
			span.RecordError(err)
			return Correlation{}, fmt.Errorf("find open cases: %w", err)
		}
		if len(cands) == 0 {
			if attempt == 0 {
				return Correlation{Outcome: OutcomeIgnored}, nil
			}
			return Correlation{Outcome: OutcomeConflict}, nil
		}

		target := cands[0]
		log := c.Log.With().Str("case_id", target.ID).Str("state", string(target.State)).Logger()
		if len(cands) > 1 {
			log.Warn().Int("candidates", len(cands)).Msg("ambiguous reply; most recently transitioned case wins")
		}
		span.SetAttributes(
			attribute.String("case.id", target.ID),
			attribute.Int("candidates", len(cands)),
		)

		at := c.now()
		if at.Before(target.StateEnteredAt) {
			at = target.StateEnteredAt
		}
		applied, err := c.Store.ConditionalUpdate(ctx, target.ID, target.State, repo.CaseUpdate{
			State:        domain.StateResponded,
			EnteredAt:    at,
			ReplyExcerpt: excerpt,
		})
		if err != nil {
			span.RecordError(err)
			return Correlation{}, fmt.Errorf("record reply for case %s: %w", target.ID, err)
		}
		if applied {
			log.Info().Int("excerpt_len", utf8.RuneCountInString(excerpt)).Msg("reply recorded")
			return Correlation{Outcome: OutcomeMatched, CaseID: target.ID, Candidates: len(cands)}, nil
		}
		log.Debug().Msg("case moved while recording reply; retrying")
	}
	return Correlation{Outcome: OutcomeConflict}, nil
}

// ProcessInbox fetches unseen replies and correlates each one. A failure on
// one message is counted and does not stop the rest.
func (c *Correlator) ProcessInbox(ctx context.Context) (InboxSummary, error) {
	if c.Mailbox == nil {
		return InboxSummary{}, ErrNoMailbox
	}
	tr := otel.Tracer("services/Correlator")
	ctx, span := tr.Start(ctx, "ProcessInbox")
	defer span.End()

	msgs, err := c.Mailbox.FetchUnseen(ctx)
	if err != nil && len(msgs) == 0 {
		span.RecordError(err)
		return InboxSummary{}, fmt.Errorf("%w: %w", ErrMailboxFetch, err)
	}
	if err != nil {
		c.Log.Warn().Err(err).Int("fetched", len(msgs)).Msg("partial mailbox fetch")
	}

	sum := InboxSummary{Received: len(msgs)}
	handled := make([]uint32, 0, len(msgs))
	for _, m := range msgs {
		res, err := c.Correlate(ctx, m.From, m.Body)
		if err != nil {
			sum.Failed++
			c.Log.Error().Err(err).Uint32("uid", m.UID).Msg("correlate reply")
			continue
		}
		if m.UID != 0 {
			handled = append(handled, m.UID)
		}
		switch res.Outcome {
		case OutcomeMatched:
			sum.Matched++
			observability.ObserveReply(observability.ReplyMatched)
		case OutcomeConflict:
			sum.Conflicts++
			observability.ObserveReply(observability.ReplyConflict)
		default:
			sum.Ignored++
			observability.ObserveReply(observability.ReplyIgnored)
		}
	}
	// Failed replies stay unseen and are retried on the next poll.
	if err := c.Mailbox.MarkSeen(ctx, handled); err != nil {
		c.Log.Warn().Err(err).Int("count", len(handled)).Msg("mark replies seen")
	}
	span.SetAttributes(
		attribute.Int("replies.received", sum.Received),
		attribute.Int("replies.matched", sum.Matched),
	)
	c.Log.Info().
		Int("received", sum.Received).
		Int("matched", sum.Matched).
		Int("ignored", sum.Ignored).
		Int("conflicts", sum.Conflicts).
		Int("failed", sum.Failed).
		Msg("inbox processed")
	return sum, nil
}
