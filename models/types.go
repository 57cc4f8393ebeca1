// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Election state constants
const (
	StatePending   = "pending"
	StateActive    = "active"
	StateFinalized = "finalized"
)

// Request types

type CreateElectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SetElectionStateRequest struct {
	State string `json:"state"`
}

type CreateOfficeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateCandidateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ListNumber  *int   `json:"list_number,omitempty"`
}

type RegisterVoterRequest struct {
	DocumentID string `json:"document_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email,omitempty"`
}

type GrantPowersRequest struct {
	Powers int    `json:"powers"`
	Reason string `json:"reason"`
}

// SetVoterActiveRequest turns a voter on or off. Active is required.
type SetVoterActiveRequest struct {
	Active *bool `json:"active"`
}

// CastVoteRequest spends Quantity votes of the voter's allowance for OfficeID
// on CandidateID. Each call spends votes; repeating it spends again.
type CastVoteRequest struct {
	OfficeID    string `json:"office_id"`
	CandidateID string `json:"candidate_id"`
	Quantity    int    `json:"quantity"`
}

// Response types

type CreateElectionResponse struct {
	ElectionID string `json:"election_id"`
	PublicLink string `json:"public_link"`
	AdminKey   string `json:"admin_key,omitempty"`
}

type CreateOfficeResponse struct {
	OfficeID string `json:"office_id"`
}

type CreateCandidateResponse struct {
	CandidateID string `json:"candidate_id"`
}

type RegisterVoterResponse struct {
	VoterID    string `json:"voter_id"`
	VoterToken string `json:"voter_token"`
}

type GrantPowersResponse struct {
	VoterID     string `json:"voter_id"`
	Powers      int    `json:"powers"`
	Entitlement int    `json:"entitlement"`
}

type CastVoteResponse struct {
	OfficeID  string `json:"office_id"`
	VotesUsed int    `json:"votes_used"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message"`
}

type OfficeStatus struct {
	OfficeID    string `json:"office_id"`
	OfficeName  string `json:"office_name"`
	Entitlement int    `json:"entitlement"`
	VotesUsed   int    `json:"votes_used"`
	Remaining   int    `json:"remaining"`
}

type VoterStatusResponse struct {
	ElectionID string         `json:"election_id"`
	Offices    []OfficeStatus `json:"offices"`
}

// Domain types

type Election struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	State       string     `json:"state"`
	PublicLink  *string    `json:"public_link,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Office struct {
	ID          string `json:"id"`
	ElectionID  string `json:"election_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Candidate struct {
	ID          string `json:"id"`
	ElectionID  string `json:"election_id"`
	OfficeID    string `json:"office_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ListNumber  *int   `json:"list_number,omitempty"`
}

type Voter struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email,omitempty"`
	BaseVotes  int    `json:"base_votes"`
	Powers     int    `json:"powers"`
	Active     bool   `json:"active"`
	Token      string `json:"-"` // Never expose in JSON
}

// ParticipationKey identifies one voter's allowance for one office.
type ParticipationKey struct {
	ElectionID string
	VoterID    string
	OfficeID   string
}

// ParticipationRecord says who voted and how much, never for whom.
type ParticipationRecord struct {
	ElectionID string    `json:"election_id"`
	VoterID    string    `json:"voter_id"`
	OfficeID   string    `json:"office_id"`
	VotesUsed  int       `json:"votes_used"`
	VotedAt    time.Time `json:"voted_at"`
}

// TallyEntry is an append-only anonymous vote row with no voter reference.
type TallyEntry struct {
	ID          string    `json:"id"`
	ElectionID  string    `json:"election_id"`
	OfficeID    string    `json:"office_id"`
	CandidateID string    `json:"candidate_id"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

type PowerGrant struct {
	ID        string    `json:"id"`
	VoterID   string    `json:"voter_id"`
	Powers    int       `json:"powers"`
	Reason    string    `json:"reason"`
	GrantedBy string    `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}

type AllocateRequest struct {
	ElectionID  string
	VoterID     string
	OfficeID    string
	CandidateID string
	Quantity    int
}

// Allocation is the outcome of a committed allocate call.
type Allocation struct {
	ElectionID  string `json:"election_id"`
	OfficeID    string `json:"office_id"`
	Entitlement int    `json:"entitlement"`
	VotesUsed   int    `json:"votes_used"`
	Remaining   int    `json:"remaining"`
}

type OfficeWithCandidates struct {
	Office     Office      `json:"office"`
	Candidates []Candidate `json:"candidates"`
}

type ElectionWithOffices struct {
	Election Election               `json:"election"`
	Offices  []OfficeWithCandidates `json:"offices"`
}

// Result types

type CandidateResult struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	ListNumber  *int    `json:"list_number,omitempty"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
	Rank        int     `json:"rank"` // 1-indexed ranking
	Place       string  `json:"place"`
}

type OfficeResults struct {
	OfficeID   string            `json:"office_id"`
	OfficeName string            `json:"office_name"`
	TotalVotes int               `json:"total_votes"`
	Candidates []CandidateResult `json:"candidates"`
}

type ElectionResults struct {
	Election   Election        `json:"election"`
	TotalVotes int             `json:"total_votes"`
	Offices    []OfficeResults `json:"offices"`
	ComputedAt time.Time       `json:"computed_at"`
}

// Participation types

type VoterParticipation struct {
	VoterID          string `json:"voter_id"`
	FullName         string `json:"full_name"`
	Entitlement      int    `json:"entitlement"`
	VotesUsedTotal   int    `json:"votes_used_total"`
	OfficesVoted     int    `json:"offices_voted"`
	OfficesCompleted int    `json:"offices_completed"`
	OfficesTotal     int    `json:"offices_total"`
	HasVoted         bool   `json:"has_voted"`
}

type ParticipationSummary struct {
	TotalVoters       int     `json:"total_voters"`
	VotersVoted       int     `json:"voters_voted"`
	VotersPending     int     `json:"voters_pending"`
	ParticipationRate float64 `json:"participation_rate"`
}

type ParticipationReport struct {
	ElectionID string               `json:"election_id"`
	Summary    ParticipationSummary `json:"summary"`
	Voters     []VoterParticipation `json:"voters"`
}

// Error response

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}
