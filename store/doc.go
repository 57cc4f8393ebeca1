// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the storage port for elections, participation and tallies.

# Implementations

SQLStore runs on PostgreSQL or SQLite through database/sql:

	st, err := store.Open(store.DialectPostgres, cfg.DatabaseURL)

MemStore keeps everything in memory and is meant for tests:

	st := store.NewMemStore()

# Allocation Transactions

WithTx groups the participation update and the tally insert:

	err := st.WithTx(ctx, func(tx store.Tx) error {
		used, err := tx.RecordUsage(ctx, key, 2, entitlement)
		...
		return tx.AppendTally(ctx, entry)
	})

RecordUsage is a conditional write. It never lets votes_used exceed the
limit, whatever the caller read earlier, and reports ErrConflict instead.
Tx.ElectionState rereads the election inside the allocation, so a vote
cannot commit against an election that has already been finalized.

GrantPowers fails with ErrLocked while any election is active.

# Privacy Boundary

ParticipationReader exposes participation records without any tally
method. Tally rows carry no voter reference.
*/
package store
