// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreateElectionRequest, SetElectionStateRequest
  - CreateOfficeRequest, CreateCandidateRequest
  - RegisterVoterRequest, GrantPowersRequest
  - CastVoteRequest: office_id, candidate_id, quantity

# Domain Types

  - Election: lifecycle state (pending, active, finalized) and public link
  - Office: unit of vote allocation within an election
  - Candidate: belongs to one office, optional list number
  - Voter: base votes plus delegated powers
  - ParticipationRecord: votes used per (election, voter, office), no candidate
  - TallyEntry: anonymous (election, office, candidate, quantity) row

# Read Models

  - OfficeResults, ElectionResults: ranked per-candidate sums
  - ParticipationReport: per-voter counts and a summary, no candidates

All vote counts are integers end to end.

# Constants

Election states:

	StatePending   = "pending"
	StateActive    = "active"
	StateFinalized = "finalized"
*/
package models
