// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/engine"
	"github.com/danielhkuo/quickly-elect/live"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/store"
)

type ResultsHandler struct {
	store  store.Store
	engine *engine.Engine
	hub    *live.Hub
	cfg    cliparse.Config
}

func NewResultsHandler(st store.Store, eng *engine.Engine, hub *live.Hub, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{store: st, engine: eng, hub: hub, cfg: cfg}
}

// GetResultsByLink handles GET /results/:link
// Results are public while the election runs and after it is finalized.
func (h *ResultsHandler) GetResultsByLink(w http.ResponseWriter, r *http.Request) {
	link := r.PathValue("link")

	results, err := h.engine.ResultsByLink(r.Context(), link)
	if err != nil {
		writeEngineError(w, "results by link", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// GetOfficeResults handles GET /elections/:id/offices/:officeID/results
func (h *ResultsHandler) GetOfficeResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	officeID := r.PathValue("officeID")

	results, err := h.engine.ResultsFor(r.Context(), electionID, officeID)
	if err != nil {
		writeEngineError(w, "office results", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// GetParticipation handles GET /elections/:id/participation
// Admin only. Lists who has voted and how much, never for whom.
func (h *ResultsHandler) GetParticipation(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(electionID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	report, err := h.engine.ParticipationFor(r.Context(), electionID)
	if err != nil {
		writeEngineError(w, "participation", err)
		return
	}

	slog.Info("participation viewed",
		"election_id", electionID,
		"voted", humanize.Comma(int64(report.Summary.VotersVoted)),
		"voters", humanize.Comma(int64(report.Summary.TotalVoters)),
	)

	middleware.JSONResponse(w, http.StatusOK, report)
}

// LiveResults handles GET /results/:link/live
// Upgrades to a websocket that receives the election's results whenever a
// vote commits and on every refresh tick.
func (h *ResultsHandler) LiveResults(w http.ResponseWriter, r *http.Request) {
	link := r.PathValue("link")

	election, err := h.store.ElectionByLink(r.Context(), link)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.hub.Serve(w, r, election.ID)
}
