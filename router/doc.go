// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Elect API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(st, eng, hub, cfg)

# Endpoints

Health:

	GET /health

Election management (X-Admin-Key from election creation):

	POST /elections                                      - Create election
	GET  /elections/{id}                                 - Election, offices, candidates
	POST /elections/{id}/state                           - Activate or finalize
	POST /elections/{id}/offices                         - Add office
	POST /elections/{id}/offices/{officeID}/candidates   - Add candidate

Voter registry (X-Admin-Key set to the registry key):

	POST /voters              - Register voter
	POST /voters/{id}/powers  - Grant delegated powers
	POST /voters/{id}/active  - Activate or deactivate a voter

Voting (X-Voter-Token):

	POST /elections/{id}/votes     - Allocate votes
	GET  /elections/{id}/my-status - Votes used per office

Results:

	GET /results/{link}                               - Public results
	GET /results/{link}/live                          - Websocket results feed
	GET /elections/{id}/offices/{officeID}/results    - One office
	GET /elections/{id}/participation                 - Participation (admin)
*/
package router
