// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/engine"
	"github.com/danielhkuo/quickly-elect/handlers"
	"github.com/danielhkuo/quickly-elect/live"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/store"
)

func NewRouter(st store.Store, eng *engine.Engine, hub *live.Hub, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(st, cfg)
	voterHandler := handlers.NewVoterHandler(st, cfg)
	votingHandler := handlers.NewVotingHandler(st, eng, cfg)
	resultsHandler := handlers.NewResultsHandler(st, eng, hub, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election management (admin operations)
	mux.HandleFunc("POST /elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(electionHandler.GetElection))
	mux.HandleFunc("POST /elections/{id}/state", middleware.WithLogging(electionHandler.SetState))
	mux.HandleFunc("POST /elections/{id}/offices", middleware.WithLogging(electionHandler.AddOffice))
	mux.HandleFunc("POST /elections/{id}/offices/{officeID}/candidates", middleware.WithLogging(electionHandler.AddCandidate))

	// Voter registry (registry key)
	mux.HandleFunc("POST /voters", middleware.WithLogging(voterHandler.RegisterVoter))
	mux.HandleFunc("POST /voters/{id}/powers", middleware.WithLogging(voterHandler.GrantPowers))
	mux.HandleFunc("POST /voters/{id}/active", middleware.WithLogging(voterHandler.SetActive))

	// Voting operations (voter token)
	mux.HandleFunc("POST /elections/{id}/votes", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("GET /elections/{id}/my-status", middleware.WithLogging(votingHandler.GetMyStatus))

	// Results and participation
	mux.HandleFunc("GET /results/{link}", middleware.WithLogging(resultsHandler.GetResultsByLink))
	mux.HandleFunc("GET /results/{link}/live", resultsHandler.LiveResults)
	mux.HandleFunc("GET /elections/{id}/offices/{officeID}/results", middleware.WithLogging(resultsHandler.GetOfficeResults))
	mux.HandleFunc("GET /elections/{id}/participation", middleware.WithLogging(resultsHandler.GetParticipation))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-elect API v1"))
	})

	return mux
}
