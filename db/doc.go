// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The DDL is shared by PostgreSQL and SQLite.

# Tables

  - election: Election metadata and lifecycle state
  - office: Offices ("cargos") per election
  - candidate: Candidates per office
  - voter: Registered voters with base votes and delegated powers
  - power_grant: History of power grants
  - participation: Votes used per (election, voter, office)
  - tally_entry: Anonymous, append-only vote rows

# Relationships

	election 1──* office 1──* candidate
	voter 1──* power_grant
	(election, voter, office) 1──1 participation
	(election, office, candidate) 1──* tally_entry

participation and tally_entry share no column that links a voter to a
candidate.
*/
package db
