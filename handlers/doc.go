// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Elect API.

# Handler Types

Each handler is a struct with its dependencies injected by a constructor:

  - ElectionHandler: election lifecycle, offices, candidates
  - VoterHandler: voter registration and delegated powers
  - VotingHandler: vote allocation and per-office status
  - ResultsHandler: results, participation, live results

	electionHandler := handlers.NewElectionHandler(st, cfg)
	votingHandler := handlers.NewVotingHandler(st, eng, cfg)

# Election Lifecycle

Elections move forward through three states: pending → active → finalized

	POST /elections                          → CreateElection (returns admin_key, public_link)
	POST /elections/{id}/offices             → AddOffice (pending only)
	POST /elections/{id}/offices/{o}/candidates → AddCandidate (pending only)
	POST /elections/{id}/state               → SetState

Admin operations require the X-Admin-Key header.

# Voter Registry

	POST /voters              → RegisterVoter
	POST /voters/{id}/powers  → GrantPowers (409 while any election is active)
	POST /voters/{id}/active  → SetActive

These take the registry key in X-Admin-Key. Inactive voters get 403 when
voting.

# Voting

	POST /elections/{id}/votes     → CastVote
	GET  /elections/{id}/my-status → GetMyStatus

Voter operations require the X-Voter-Token header. Rejections from the
engine carry a kind, and for balance problems the remaining votes:

	{"error": "Unprocessable Entity", "kind": "insufficient_votes", "remaining": 2, ...}

A conflict (409, "retryable": true) means another vote for the same office
committed first; retrying from scratch is safe.
*/
package handlers
