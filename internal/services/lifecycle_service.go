// Package services – LifecycleService
//
// This file implements the time-triggered half of the case lifecycle. Each
// scan follows the same protocol:
//
//  1. select candidates in the source state whose dwell time has elapsed and
//     that have not responded;
//  2. perform the notification side effect;
//  3. commit the transition with a conditional update guarded by the state
//     observed in step 1.
//
// The side effect runs before the commit. A crash in between yields a
// duplicate notice on the next run (at-least-once delivery); committing first
// could lose a required notice. Concurrent scans over the same predicate are
// safe: exactly one conditional update per case succeeds and the others are
// counted as conflicts.
//
// Observability: each scan is an OpenTelemetry span; per-case outcomes are
// logged with zerolog and counted on notice_transitions_total.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/notify"
	"github.com/tbourn/notice-escalator/internal/observability"
	"github.com/tbourn/notice-escalator/internal/repo"
)

// DefaultBatchSize bounds how many candidates a single scan selects.
const DefaultBatchSize = 500

// CaseStore is the lifecycle's view of persisted cases.
type CaseStore interface {
	Find(ctx context.Context, f repo.CaseFilter) ([]domain.Case, error)
	ConditionalUpdate(ctx context.Context, id string, expected domain.State, u repo.CaseUpdate) (bool, error)
}

// Notifier performs the side effect of a time-triggered transition.
type Notifier interface {
	Notify(ctx context.Context, c domain.Case, kind domain.TransitionKind) (notify.Receipt, error)
}

// RequestRecorder persists the legal request produced by an escalation.
type RequestRecorder interface {
	RecordLegalRequest(ctx context.Context, r *domain.LegalRequest) error
}

// Summary aggregates the per-case outcomes of one scan.
//
//   - Selected: candidates returned by the store query.
//   - Advanced: transitions this scan committed.
//   - Conflicts: candidates another writer advanced first.
//   - Failed: side effect or commit failures; the case stays eligible.
//   - Skipped: candidates that were no longer due on re-check.
type Summary struct {
	Selected  int `json:"selected"`
	Advanced  int `json:"advanced"`
	Conflicts int `json:"conflicts"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// LifecycleService drives the time-triggered transitions.
type LifecycleService struct {
	Store    CaseStore
	Notifier Notifier
	Requests RequestRecorder // optional

	Windows   domain.Windows
	BatchSize int

	Now func() time.Time
	Log zerolog.Logger
}

func (s *LifecycleService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *LifecycleService) windows() domain.Windows {
	w := s.Windows
	if w.FollowUpAfter <= 0 {
		w.FollowUpAfter = domain.DefaultWindows.FollowUpAfter
	}
	if w.EscalateAfter <= 0 {
		w.EscalateAfter = domain.DefaultWindows.EscalateAfter
	}
	return w
}

// Due reports the transition c is eligible for at now, if any.
func (s *LifecycleService) Due(c domain.Case, now time.Time) (domain.Transition, bool) {
	return s.windows().Due(c, now)
}

// SendPendingWarnings warns every pending case and moves it to warned.
func (s *LifecycleService) SendPendingWarnings(ctx context.Context) (Summary, error) {
	return s.scanFrom(ctx, domain.StatePending)
}

// RunFollowUpScan sends the final warning to warned cases whose follow-up
// window elapsed.
func (s *LifecycleService) RunFollowUpScan(ctx context.Context) (Summary, error) {
	return s.scanFrom(ctx, domain.StateWarned)
}

// RunEscalationScan escalates followed-up cases whose escalation window
// elapsed, generating and delivering the legal document.
func (s *LifecycleService) RunEscalationScan(ctx context.Context) (Summary, error) {
	return s.scanFrom(ctx, domain.StateFollowedUp)
}

// RunScan runs the scan for the given transition kind.
func (s *LifecycleService) RunScan(ctx context.Context, kind domain.TransitionKind) (Summary, error) {
	switch kind {
	case domain.KindWarning:
		return s.SendPendingWarnings(ctx)
	case domain.KindFollowUp:
		return s.RunFollowUpScan(ctx)
	case domain.KindEscalation:
		return s.RunEscalationScan(ctx)
	default:
		return Summary{}, fmt.Errorf("no scan for transition %q", kind)
	}
}

func (s *LifecycleService) scanFrom(ctx context.Context, from domain.State) (Summary, error) {
	t, ok := s.windows().TransitionFrom(from)
	if !ok {
		return Summary{}, fmt.Errorf("no time-triggered transition from %s", from)
	}

	tr := otel.Tracer("services/LifecycleService")
	ctx, span := tr.Start(ctx, "scan",
		trace.WithAttributes(
			attribute.String("transition.from", string(t.From)),
			attribute.String("transition.to", string(t.To)),
		),
	)
	defer span.End()

	now := s.now()
	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	f := repo.CaseFilter{
		States:    []domain.State{t.From},
		Responded: repo.Bool(false),
		Order:     repo.OldestFirst,
		Limit:     batch,
	}
	if t.MinDwell > 0 {
		cutoff := t.Cutoff(now)
		f.EnteredAtOrBefore = &cutoff
	}

	cases, err := s.Store.Find(ctx, f)
	if err != nil {
		span.RecordError(err)
		return Summary{}, fmt.Errorf("select %s candidates: %w", t.From, err)
	}

	sum := Summary{Selected: len(cases)}
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			span.SetAttributes(attribute.Int("cases.advanced", sum.Advanced))
			return sum, err
		}
		s.advance(ctx, t, c, now, &sum)
	}

	span.SetAttributes(
		attribute.Int("cases.selected", sum.Selected),
		attribute.Int("cases.advanced", sum.Advanced),
		attribute.Int("cases.conflicts", sum.Conflicts),
		attribute.Int("cases.failed", sum.Failed),
	)
	s.Log.Info().
		Str("transition", string(t.Kind)).
		Int("selected", sum.Selected).
		Int("advanced", sum.Advanced).
		Int("conflicts", sum.Conflicts).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Msg("scan finished")
	return sum, nil
}

// advance runs the notify-then-commit protocol for one candidate.
func (s *LifecycleService) advance(ctx context.Context, t domain.Transition, c domain.Case, now time.Time, sum *Summary) {
	log := s.Log.With().
		Str("case_id", c.ID).
		Str("state", string(c.State)).
		Str("transition", string(t.Kind)).
		Logger()

	if !t.Due(c, now) {
		sum.Skipped++
		return
	}

	rcpt, err := s.Notifier.Notify(ctx, c, t.Kind)
	if err != nil {
		sum.Failed++
		observability.ObserveTransition(t.From, t.To, observability.OutcomeFailed)
		log.Warn().Err(err).Msg("notification failed; case left for next scan")
		return
	}

	u := repo.CaseUpdate{State: t.To, EnteredAt: now}
	if t.To == domain.StateEscalated {
		if rcpt.DocumentRef == "" {
			sum.Failed++
			observability.ObserveTransition(t.From, t.To, observability.OutcomeFailed)
			log.Error().Msg("escalation delivered without a document reference")
			return
		}
		u.EscalationDocumentRef = rcpt.DocumentRef
	}

	applied, err := s.Store.ConditionalUpdate(ctx, c.ID, t.From, u)
	switch {
	case err != nil:
		sum.Failed++
		observability.ObserveTransition(t.From, t.To, observability.OutcomeFailed)
		log.Error().Err(err).Msg("commit transition")
		return
	case !applied:
		sum.Conflicts++
		observability.ObserveTransition(t.From, t.To, observability.OutcomeConflict)
		log.Debug().Msg("case already advanced by another writer")
		return
	}

	sum.Advanced++
	observability.ObserveTransition(t.From, t.To, observability.OutcomeAdvanced)
	log.Info().Str("to", string(t.To)).Msg("case advanced")

	if rcpt.Request != nil && s.Requests != nil {
		if err := s.Requests.RecordLegalRequest(ctx, rcpt.Request); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("document_ref", rcpt.DocumentRef).Msg("record escalation request")
		}
	}
}
