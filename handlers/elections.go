// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/store"
)

type ElectionHandler struct {
	store store.Store
	cfg   cliparse.Config
}

func NewElectionHandler(st store.Store, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{store: st, cfg: cfg}
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	electionID := uuid.NewString()
	publicLink := auth.GeneratePublicLink(electionID, h.cfg.LinkSlugSalt)
	adminKey := auth.GenerateAdminKey(electionID, h.cfg.AdminKeySalt)

	err := h.store.CreateElection(r.Context(), models.Election{
		ID:          electionID,
		Name:        req.Name,
		Description: req.Description,
		State:       models.StatePending,
		PublicLink:  &publicLink,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "public_link", publicLink)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: electionID,
		PublicLink: publicLink,
		AdminKey:   adminKey,
	})
}

// GetElection handles GET /elections/:id
// Returns the election with its offices and candidates. This is what a
// ballot is rendered from, so it needs no key.
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	election, err := h.store.Election(r.Context(), electionID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	offices, err := h.store.OfficesByElection(r.Context(), electionID)
	if err != nil {
		slog.Error("failed to query offices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	response := models.ElectionWithOffices{
		Election: election,
		Offices:  make([]models.OfficeWithCandidates, 0, len(offices)),
	}
	for _, office := range offices {
		candidates, err := h.store.CandidatesByOffice(r.Context(), office.ID)
		if err != nil {
			slog.Error("failed to query candidates", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		response.Offices = append(response.Offices, models.OfficeWithCandidates{
			Office:     office,
			Candidates: candidates,
		})
	}

	middleware.JSONResponse(w, http.StatusOK, response)
}

// SetState handles POST /elections/:id/state
// Elections only move forward: pending -> active -> finalized.
func (h *ElectionHandler) SetState(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if !h.authorize(w, r, electionID) {
		return
	}

	var req models.SetElectionStateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var from string
	switch req.State {
	case models.StateActive:
		from = models.StatePending
	case models.StateFinalized:
		from = models.StateActive
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "state must be active or finalized")
		return
	}

	election, ok := h.loadElection(w, r, electionID)
	if !ok {
		return
	}
	if election.State != from {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot move a "+election.State+" election to "+req.State)
		return
	}

	if req.State == models.StateActive {
		offices, err := h.store.OfficesByElection(r.Context(), electionID)
		if err != nil {
			slog.Error("failed to query offices", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if len(offices) == 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Election must have at least 1 office")
			return
		}
	}

	if err := h.store.SetElectionState(r.Context(), electionID, req.State, time.Now()); err != nil {
		slog.Error("failed to update election state", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update election")
		return
	}

	slog.Info("election state changed", "election_id", electionID, "from", from, "to", req.State)

	election.State = req.State
	middleware.JSONResponse(w, http.StatusOK, election)
}

// AddOffice handles POST /elections/:id/offices
func (h *ElectionHandler) AddOffice(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if !h.authorize(w, r, electionID) {
		return
	}

	var req models.CreateOfficeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	election, ok := h.loadElection(w, r, electionID)
	if !ok {
		return
	}
	if election.State != models.StatePending {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot add offices to a started election")
		return
	}

	officeID := uuid.NewString()
	err := h.store.CreateOffice(r.Context(), models.Office{
		ID:          officeID,
		ElectionID:  electionID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		slog.Error("failed to insert office", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create office")
		return
	}

	slog.Info("office added", "election_id", electionID, "office_id", officeID)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateOfficeResponse{
		OfficeID: officeID,
	})
}

// AddCandidate handles POST /elections/:id/offices/:officeID/candidates
func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	officeID := r.PathValue("officeID")
	if !h.authorize(w, r, electionID) {
		return
	}

	var req models.CreateCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.ListNumber != nil && *req.ListNumber < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "list_number must be positive")
		return
	}

	election, ok := h.loadElection(w, r, electionID)
	if !ok {
		return
	}
	if election.State != models.StatePending {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot add candidates to a started election")
		return
	}

	office, err := h.store.Office(r.Context(), officeID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && office.ElectionID != electionID) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Office not found")
		return
	}
	if err != nil {
		slog.Error("failed to query office", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	candidateID := uuid.NewString()
	err = h.store.CreateCandidate(r.Context(), models.Candidate{
		ID:          candidateID,
		ElectionID:  electionID,
		OfficeID:    officeID,
		Name:        req.Name,
		Description: req.Description,
		ListNumber:  req.ListNumber,
	})
	if err != nil {
		slog.Error("failed to insert candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create candidate")
		return
	}

	slog.Info("candidate added", "election_id", electionID, "office_id", officeID, "candidate_id", candidateID)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateCandidateResponse{
		CandidateID: candidateID,
	})
}

func (h *ElectionHandler) authorize(w http.ResponseWriter, r *http.Request, electionID string) bool {
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(electionID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

func (h *ElectionHandler) loadElection(w http.ResponseWriter, r *http.Request, electionID string) (models.Election, bool) {
	election, err := h.store.Election(r.Context(), electionID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return models.Election{}, false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Election{}, false
	}
	return election, true
}
