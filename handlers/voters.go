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
	"github.com/danielhkuo/quickly-elect/engine"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/store"
)

type VoterHandler struct {
	store store.Store
	cfg   cliparse.Config
}

func NewVoterHandler(st store.Store, cfg cliparse.Config) *VoterHandler {
	return &VoterHandler{store: st, cfg: cfg}
}

// RegisterVoter handles POST /voters
func (h *VoterHandler) RegisterVoter(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var req models.RegisterVoterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.DocumentID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "document_id is required")
		return
	}
	if req.FullName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "full_name is required")
		return
	}

	token, err := auth.GenerateVoterToken()
	if err != nil {
		slog.Error("failed to generate voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
		return
	}

	voterID := uuid.NewString()
	err = h.store.CreateVoter(r.Context(), models.Voter{
		ID:         voterID,
		DocumentID: req.DocumentID,
		FullName:   req.FullName,
		Email:      req.Email,
		BaseVotes:  1,
		Active:     true,
		Token:      token,
	})
	if errors.Is(err, store.ErrDuplicate) {
		middleware.ErrorResponse(w, http.StatusConflict, "Voter already registered")
		return
	}
	if err != nil {
		slog.Error("failed to insert voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
		return
	}

	slog.Info("voter registered", "voter_id", voterID)

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterVoterResponse{
		VoterID:    voterID,
		VoterToken: token,
	})
}

// GrantPowers handles POST /voters/:id/powers
// Powers are additive and each grant is kept in the history.
func (h *VoterHandler) GrantPowers(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	voterID := r.PathValue("id")

	var req models.GrantPowersRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Powers < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "powers must be at least 1")
		return
	}
	if req.Reason == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "reason is required")
		return
	}

	voter, err := h.store.GrantPowers(r.Context(), models.PowerGrant{
		ID:        uuid.NewString(),
		VoterID:   voterID,
		Powers:    req.Powers,
		Reason:    req.Reason,
		GrantedBy: middleware.GetClientIP(r),
		CreatedAt: time.Now(),
	})
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}
	if errors.Is(err, store.ErrLocked) {
		middleware.ErrorResponse(w, http.StatusConflict, "Powers cannot change while an election is active")
		return
	}
	if err != nil {
		slog.Error("failed to grant powers", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to grant powers")
		return
	}

	slog.Info("powers granted", "voter_id", voterID, "powers", req.Powers, "total_powers", voter.Powers)

	middleware.JSONResponse(w, http.StatusOK, models.GrantPowersResponse{
		VoterID:     voter.ID,
		Powers:      voter.Powers,
		Entitlement: engine.Entitlement(voter),
	})
}

// SetActive handles POST /voters/:id/active
// Inactive voters cannot vote and drop out of participation reports.
func (h *VoterHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	voterID := r.PathValue("id")

	var req models.SetVoterActiveRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Active == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "active is required")
		return
	}

	voter, err := h.store.SetVoterActive(r.Context(), voterID, *req.Active)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}
	if err != nil {
		slog.Error("failed to update voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update voter")
		return
	}

	slog.Info("voter updated", "voter_id", voterID, "active", voter.Active)

	middleware.JSONResponse(w, http.StatusOK, voter)
}

func (h *VoterHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(auth.RegistryScope, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid registry key")
		return false
	}
	return true
}
