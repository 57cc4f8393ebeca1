// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/store"
)

// CommitFunc is called after an allocation commits.
type CommitFunc func(electionID, officeID string)

type Engine struct {
	store    store.Store
	onCommit CommitFunc
	now      func() time.Time
}

func New(st store.Store) *Engine {
	return &Engine{store: st, now: time.Now}
}

// OnCommit registers fn to run after every committed allocation.
// Call it before the engine is shared between goroutines.
func (e *Engine) OnCommit(fn CommitFunc) {
	e.onCommit = fn
}

// Entitlement is the number of votes a voter may spend on each office.
func Entitlement(v models.Voter) int {
	return v.BaseVotes + v.Powers
}

// VotesUsed returns how many votes the voter has spent on the office (0 if none).
func (e *Engine) VotesUsed(ctx context.Context, key models.ParticipationKey) (int, error) {
	return e.store.VotesUsed(ctx, key)
}

// Allocate spends req.Quantity of the voter's allowance for the office on
// the candidate. The participation update and the anonymous tally row are
// written in one transaction, or not at all.
//
// Allocate is not idempotent: every successful call spends votes.
func (e *Engine) Allocate(ctx context.Context, req models.AllocateRequest) (models.Allocation, error) {
	election, err := e.store.Election(ctx, req.ElectionID)
	if err != nil {
		return models.Allocation{}, lookupError("election", req.ElectionID, err)
	}
	if election.State != models.StateActive {
		return models.Allocation{}, notActive(election.State)
	}

	office, err := e.store.Office(ctx, req.OfficeID)
	if err != nil {
		return models.Allocation{}, lookupError("office", req.OfficeID, err)
	}
	candidate, err := e.store.Candidate(ctx, req.CandidateID)
	if err != nil {
		return models.Allocation{}, lookupError("candidate", req.CandidateID, err)
	}
	if office.ElectionID != election.ID || candidate.OfficeID != office.ID || candidate.ElectionID != election.ID {
		slog.Warn("allocation target mismatch",
			"election_id", election.ID,
			"office_id", office.ID,
			"office_election_id", office.ElectionID,
			"candidate_office_id", candidate.OfficeID,
		)
		return models.Allocation{}, ErrInvalidTarget
	}

	if req.Quantity < 1 {
		return models.Allocation{}, ErrInvalidQuantity
	}

	voter, err := e.store.Voter(ctx, req.VoterID)
	if err != nil {
		return models.Allocation{}, lookupError("voter", req.VoterID, err)
	}
	entitlement := Entitlement(voter)

	key := models.ParticipationKey{
		ElectionID: election.ID,
		VoterID:    voter.ID,
		OfficeID:   office.ID,
	}

	var used int
	err = e.store.WithTx(ctx, func(tx store.Tx) error {
		// The state may have moved since the lookup above.
		state, err := tx.ElectionState(ctx, election.ID)
		if err != nil {
			return lookupError("election", election.ID, err)
		}
		if state != models.StateActive {
			return notActive(state)
		}

		current, err := tx.VotesUsed(ctx, key)
		if err != nil {
			return err
		}
		if remaining := entitlement - current; req.Quantity > remaining {
			return insufficientVotes(max(remaining, 0))
		}

		used, err = tx.RecordUsage(ctx, key, req.Quantity, entitlement)
		if errors.Is(err, store.ErrConflict) {
			latest, rerr := tx.VotesUsed(ctx, key)
			if rerr != nil {
				return rerr
			}
			return conflict(max(entitlement-latest, 0))
		}
		if err != nil {
			return err
		}

		return tx.AppendTally(ctx, models.TallyEntry{
			ID:          uuid.NewString(),
			ElectionID:  election.ID,
			OfficeID:    office.ID,
			CandidateID: candidate.ID,
			Quantity:    req.Quantity,
			CreatedAt:   e.now(),
		})
	})
	if err != nil {
		var engineErr *Error
		if errors.As(err, &engineErr) {
			return models.Allocation{}, engineErr
		}
		return models.Allocation{}, fmt.Errorf("failed to allocate votes: %w", err)
	}

	// No candidate here: the log must not link a voter to a choice.
	slog.Info("votes allocated",
		"election_id", election.ID,
		"office_id", office.ID,
		"quantity", req.Quantity,
		"votes_used", used,
	)

	if e.onCommit != nil {
		e.onCommit(election.ID, office.ID)
	}

	return models.Allocation{
		ElectionID:  election.ID,
		OfficeID:    office.ID,
		Entitlement: entitlement,
		VotesUsed:   used,
		Remaining:   entitlement - used,
	}, nil
}

// VoterStatus lists, per office of the election, how much of the voter's
// allowance is spent. It never reads tally data.
func (e *Engine) VoterStatus(ctx context.Context, electionID, voterID string) ([]models.OfficeStatus, error) {
	if _, err := e.store.Election(ctx, electionID); err != nil {
		return nil, lookupError("election", electionID, err)
	}
	voter, err := e.store.Voter(ctx, voterID)
	if err != nil {
		return nil, lookupError("voter", voterID, err)
	}
	offices, err := e.store.OfficesByElection(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load offices: %w", err)
	}

	entitlement := Entitlement(voter)
	statuses := make([]models.OfficeStatus, 0, len(offices))
	for _, office := range offices {
		used, err := e.store.VotesUsed(ctx, models.ParticipationKey{
			ElectionID: electionID,
			VoterID:    voterID,
			OfficeID:   office.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load votes used: %w", err)
		}
		statuses = append(statuses, models.OfficeStatus{
			OfficeID:    office.ID,
			OfficeName:  office.Name,
			Entitlement: entitlement,
			VotesUsed:   used,
			Remaining:   max(entitlement-used, 0),
		})
	}
	return statuses, nil
}

func lookupError(what, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(what, id)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
