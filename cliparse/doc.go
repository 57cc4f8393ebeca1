// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Database connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - AdminKeySalt: Secret for admin key HMAC (required)
  - LinkSlugSalt: Secret for public results links (required)
  - ResultsRefresh: Live results push interval (default: 5s)

# CLI Flags

	-p             Server port
	-d             Database URL
	-t             Database type
	-refresh       Live results refresh interval
	-env           .env file to load (default: .env)
	-admin-salt    Admin key salt
	-link-salt     Public link salt
	-registry-key  Print the voter registry key and exit

# Environment Variables

Flags fall back to environment variables, which may come from a .env file:

	PORT            → -p
	DATABASE_URL    → -d
	DATABASE_TYPE   → -t
	RESULTS_REFRESH → -refresh
	ADMIN_KEY_SALT  → -admin-salt
	LINK_SLUG_SALT  → -link-salt

CLI flags take precedence over environment variables, and variables already
set in the environment take precedence over the .env file.
*/
package cliparse
