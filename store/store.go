// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/danielhkuo/quickly-elect/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate record")

	// ErrConflict is returned by RecordUsage when adding delta would push
	// votes_used past the cap, typically because a concurrent writer got there first.
	ErrConflict = errors.New("participation cap conflict")

	// ErrLocked is returned by GrantPowers while any election is active:
	// entitlements cannot change under a running election.
	ErrLocked = errors.New("entitlements locked while an election is active")
)

// RosterReader reads elections, offices, candidates and voters.
type RosterReader interface {
	Election(ctx context.Context, id string) (models.Election, error)
	ElectionByLink(ctx context.Context, link string) (models.Election, error)
	Office(ctx context.Context, id string) (models.Office, error)
	OfficesByElection(ctx context.Context, electionID string) ([]models.Office, error)
	Candidate(ctx context.Context, id string) (models.Candidate, error)
	CandidatesByOffice(ctx context.Context, officeID string) ([]models.Candidate, error)
	Voter(ctx context.Context, id string) (models.Voter, error)
	VoterByToken(ctx context.Context, token string) (models.Voter, error)
	ActiveVoters(ctx context.Context) ([]models.Voter, error)
}

// ParticipationReader is everything the participation report may see.
// It deliberately has no path to tally data.
type ParticipationReader interface {
	Election(ctx context.Context, id string) (models.Election, error)
	OfficesByElection(ctx context.Context, electionID string) ([]models.Office, error)
	ActiveVoters(ctx context.Context) ([]models.Voter, error)
	VotesUsed(ctx context.Context, key models.ParticipationKey) (int, error)
	ParticipationByElection(ctx context.Context, electionID string) ([]models.ParticipationRecord, error)
}

// TallyReader sums anonymous tally rows.
type TallyReader interface {
	// TallyByOffice returns candidate ID -> summed quantity.
	TallyByOffice(ctx context.Context, electionID, officeID string) (map[string]int, error)
}

// RosterWriter covers the management operations around the core.
type RosterWriter interface {
	CreateElection(ctx context.Context, e models.Election) error
	SetElectionState(ctx context.Context, id, state string, at time.Time) error
	CreateOffice(ctx context.Context, o models.Office) error
	CreateCandidate(ctx context.Context, c models.Candidate) error
	CreateVoter(ctx context.Context, v models.Voter) error
	// GrantPowers adds g.Powers to the voter and records the grant. It fails
	// with ErrLocked while any election is active.
	GrantPowers(ctx context.Context, g models.PowerGrant) (models.Voter, error)
	SetVoterActive(ctx context.Context, id string, active bool) (models.Voter, error)
}

// Tx is the unit of work for one allocation.
type Tx interface {
	// ElectionState reads the election's state inside the transaction. On
	// PostgreSQL the row is share-locked, so a state change waits for the
	// allocation to commit or roll back.
	ElectionState(ctx context.Context, id string) (string, error)
	VotesUsed(ctx context.Context, key models.ParticipationKey) (int, error)
	// RecordUsage adds delta to votes_used for key, creating the record if
	// needed, as one conditional write: it fails with ErrConflict if the
	// result would exceed limit. Returns the new votes_used.
	RecordUsage(ctx context.Context, key models.ParticipationKey, delta, limit int) (int, error)
	AppendTally(ctx context.Context, entry models.TallyEntry) error
}

// Store is the storage port shared by every component.
type Store interface {
	RosterReader
	RosterWriter
	ParticipationReader
	TallyReader

	// WithTx runs fn in a transaction. It commits if fn returns nil and
	// rolls back otherwise, returning fn's error unchanged.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
