// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package engine implements vote allocation and the tally read models.

# Entitlement

A voter may spend base votes plus delegated powers on each office of an
election. The allowance is per office, not a pool shared across offices:

	n := engine.Entitlement(voter) // voter.BaseVotes + voter.Powers

# Allocation

Allocate spends part of that allowance on one candidate:

	alloc, err := eng.Allocate(ctx, models.AllocateRequest{
		ElectionID: e, VoterID: v, OfficeID: o, CandidateID: c, Quantity: 2,
	})

Calls add up: 3 votes to one candidate and 2 to another use 5 of the
office allowance. Validation runs in this order, each with its own Kind:

  - election exists and is active (KindNotFound, KindElectionNotActive)
  - office and candidate exist and belong together (KindNotFound, KindInvalidTarget)
  - quantity >= 1 (KindInvalidQuantity)
  - quantity <= remaining allowance (KindInsufficientVotes, with Remaining)

The participation increment and the tally insert share one store
transaction. The increment is a conditional write, so racing calls cannot
overspend; the loser gets KindConflict with the fresh Remaining. The engine
never retries.

# Read Models

ResultsFor and ElectionResults sum anonymous tally rows per candidate.
ParticipationFor reports votes used per voter without touching tally rows.
*/
package engine
