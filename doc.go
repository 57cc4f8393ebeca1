// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Elect API server.

Quickly Elect runs secret-ballot elections where each voter spends a number
of votes per office: one base vote plus any delegated powers. Tallies are
stored without any link back to the voter who cast them.

# Starting the Server

The server requires environment variables or CLI flags for configuration.
A .env file in the working directory is loaded first if present:

	DATABASE_URL=file:elect.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

Print the voter registry key and exit:

	go run . -registry-key

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL connection string or SQLite file
  - ADMIN_KEY_SALT (-admin-salt): Secret for admin key HMAC
  - LINK_SLUG_SALT (-link-salt): Secret for public results links

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - RESULTS_REFRESH (-refresh): Live results refresh interval (default: 5s)

# Architecture

  - engine: vote allocation, results, participation (the core)
  - store: storage port with SQL and in-memory implementations
  - live: websocket results hub
  - handlers: HTTP request handlers (elections, voters, voting, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response and domain types
  - auth: Key and token generation and validation
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
