// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides admin keys, voter tokens and public link slugs.

# Admin Keys

Admin keys use HMAC-SHA256 over a scope to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(electionID, salt)
	err := auth.ValidateAdminKey(electionID, adminKey, salt)

Each election has its own key, returned once when the election is created.
Voter registration and power grants use the registry scope:

	key := auth.RegistryKey(salt)

Nothing is stored; validation recomputes the HMAC.

# Voter Tokens

Voter tokens are random 24-byte (192-bit) secrets:

	token, err := auth.GenerateVoterToken()

Tokens are URL-safe base64 encoded and sent as X-Voter-Token.

# Public Links

Public results links are base62 slugs derived from the election ID:

	link := auth.GeneratePublicLink(electionID, salt)
*/
package auth
