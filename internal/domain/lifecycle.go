package domain

import (
	"errors"
	"fmt"
	"time"
)

// State is a position in the case lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateWarned     State = "warned"
	StateFollowedUp State = "followed_up"
	StateEscalated  State = "escalated"
	StateResponded  State = "responded"
)

// OpenStates lists the states in which a case still awaits a reply.
var OpenStates = []State{StatePending, StateWarned, StateFollowedUp}

// ErrIllegalTransition is returned when a write would move a case along an
// edge that is not part of the lifecycle graph.
var ErrIllegalTransition = errors.New("illegal state transition")

// successors is the lifecycle graph. Forward edges only; responded hangs off
// every pre-escalation state.
var successors = map[State][]State{
	StatePending:    {StateWarned, StateResponded},
	StateWarned:     {StateFollowedUp, StateResponded},
	StateFollowedUp: {StateEscalated, StateResponded},
	StateEscalated:  nil,
	StateResponded:  nil,
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := successors[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s.Valid() && len(successors[s]) == 0 }

// Open reports whether s is a non-terminal state.
func (s State) Open() bool { return s.Valid() && len(successors[s]) > 0 }

// CanTransition reports whether from → to is an edge of the lifecycle graph.
func CanTransition(from, to State) bool {
	for _, next := range successors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrIllegalTransition (wrapped with the edge) when
// from → to is not allowed.
func CheckTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// TransitionKind names the side effect a transition requires.
type TransitionKind string

const (
	KindWarning    TransitionKind = "warning"
	KindFollowUp   TransitionKind = "follow_up"
	KindEscalation TransitionKind = "escalation"
	KindReply      TransitionKind = "reply"
)

// Transition is a time-triggered edge with its minimum dwell time in From.
type Transition struct {
	From     State
	To       State
	Kind     TransitionKind
	MinDwell time.Duration
}

// Windows holds the per-deployment dwell times guarding the time-triggered
// transitions.
type Windows struct {
	FollowUpAfter time.Duration // warned → followed_up
	EscalateAfter time.Duration // followed_up → escalated
}

// DefaultWindows are the observed production defaults.
var DefaultWindows = Windows{
	FollowUpAfter: 48 * time.Hour,
	EscalateAfter: 24 * time.Hour,
}

// Transitions returns the time-triggered edges for the given windows in
// lifecycle order. pending → warned has no dwell guard.
func (w Windows) Transitions() []Transition {
	return []Transition{
		{From: StatePending, To: StateWarned, Kind: KindWarning},
		{From: StateWarned, To: StateFollowedUp, Kind: KindFollowUp, MinDwell: w.FollowUpAfter},
		{From: StateFollowedUp, To: StateEscalated, Kind: KindEscalation, MinDwell: w.EscalateAfter},
	}
}

// TransitionFrom returns the time-triggered edge leaving s, if any.
func (w Windows) TransitionFrom(s State) (Transition, bool) {
	for _, t := range w.Transitions() {
		if t.From == s {
			return t, true
		}
	}
	return Transition{}, false
}

// Due reports the transition c is eligible for at now. A case is never due
// once it responded or reached a terminal state. The dwell boundary is
// inclusive.
func (t Transition) Due(c Case, now time.Time) bool {
	if c.Responded || c.State != t.From {
		return false
	}
	return !now.Before(c.StateEnteredAt.Add(t.MinDwell))
}

// Cutoff is the latest state_entered_at a case may carry and still be due at
// now.
func (t Transition) Cutoff(now time.Time) time.Time { return now.Add(-t.MinDwell) }

// Due returns the transition c is eligible for at now under w.
func (w Windows) Due(c Case, now time.Time) (Transition, bool) {
	t, ok := w.TransitionFrom(c.State)
	if !ok || !t.Due(c, now) {
		return Transition{}, false
	}
	return t, true
}
