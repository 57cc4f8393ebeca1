// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/engine"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/store"
)

type VotingHandler struct {
	store  store.Store
	engine *engine.Engine
	cfg    cliparse.Config
}

func NewVotingHandler(st store.Store, eng *engine.Engine, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{store: st, engine: eng, cfg: cfg}
}

// CastVote handles POST /elections/:id/votes
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	voter, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OfficeID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "office_id is required")
		return
	}
	if req.CandidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	alloc, err := h.engine.Allocate(r.Context(), models.AllocateRequest{
		ElectionID:  electionID,
		VoterID:     voter.ID,
		OfficeID:    req.OfficeID,
		CandidateID: req.CandidateID,
		Quantity:    req.Quantity,
	})
	if err != nil {
		if !errors.Is(err, engine.ErrInsufficientVotes) {
			slog.Warn("vote rejected", "election_id", electionID, "office_id", req.OfficeID, "error", err)
		}
		writeEngineError(w, "allocate", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CastVoteResponse{
		OfficeID:  alloc.OfficeID,
		VotesUsed: alloc.VotesUsed,
		Remaining: alloc.Remaining,
		Message:   fmt.Sprintf("%d of %d votes used for this office", alloc.VotesUsed, alloc.Entitlement),
	})
}

// GetMyStatus handles GET /elections/:id/my-status
// Reports how much of the voter's allowance is spent per office. It never
// says where the votes went.
func (h *VotingHandler) GetMyStatus(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	voter, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	offices, err := h.engine.VoterStatus(r.Context(), electionID, voter.ID)
	if err != nil {
		writeEngineError(w, "voter status", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoterStatusResponse{
		ElectionID: electionID,
		Offices:    offices,
	})
}

func (h *VotingHandler) authenticate(w http.ResponseWriter, r *http.Request) (models.Voter, bool) {
	token := r.Header.Get("X-Voter-Token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Token header is required")
		return models.Voter{}, false
	}
	if err := auth.ValidateVoterToken(token); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token")
		return models.Voter{}, false
	}

	voter, err := h.store.VoterByToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token")
		return models.Voter{}, false
	}
	if err != nil {
		slog.Error("failed to query voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Voter{}, false
	}
	if !voter.Active {
		middleware.ErrorResponse(w, http.StatusForbidden, "Voter is not active")
		return models.Voter{}, false
	}
	return voter, true
}
