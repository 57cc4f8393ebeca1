// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import "fmt"

// Kind classifies why an operation was rejected.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindElectionNotActive
	KindInvalidTarget
	KindInvalidQuantity
	KindInsufficientVotes
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindElectionNotActive:
		return "election_not_active"
	case KindInvalidTarget:
		return "invalid_target"
	case KindInvalidQuantity:
		return "invalid_quantity"
	case KindInsufficientVotes:
		return "insufficient_votes"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is the typed rejection returned at the engine boundary.
// Remaining is set for KindInsufficientVotes and KindConflict.
type Error struct {
	Kind      Kind
	Remaining int
	Message   string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, engine.ErrInsufficientVotes).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether calling Allocate again from scratch may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindConflict
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrElectionNotActive = &Error{Kind: KindElectionNotActive, Message: "election is not active"}
	ErrInvalidTarget     = &Error{Kind: KindInvalidTarget, Message: "candidate does not belong to this office and election"}
	ErrInvalidQuantity   = &Error{Kind: KindInvalidQuantity, Message: "quantity must be at least 1"}
	ErrInsufficientVotes = &Error{Kind: KindInsufficientVotes, Message: "not enough votes remaining"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "concurrent vote conflict"}
)

func notFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func notActive(state string) *Error {
	return &Error{
		Kind:    KindElectionNotActive,
		Message: fmt.Sprintf("election is %s, votes are only accepted while it is active", state),
	}
}

func insufficientVotes(remaining int) *Error {
	return &Error{
		Kind:      KindInsufficientVotes,
		Remaining: remaining,
		Message:   fmt.Sprintf("only %d votes remaining for this office", remaining),
	}
}

func conflict(remaining int) *Error {
	return &Error{
		Kind:      KindConflict,
		Remaining: remaining,
		Message:   fmt.Sprintf("another vote was recorded concurrently; %d votes remaining for this office", remaining),
	}
}
