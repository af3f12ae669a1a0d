package handlers

import (
	"context"
	"net/http"
	"time"

	"reclaimAPI/internal/types/progress"
	"reclaimAPI/services"
)

type ProgressHandler struct {
	progressionService *services.ProgressionService
	ledgerService      *services.LedgerService
}

func NewProgressHandler(progressionService *services.ProgressionService, ledgerService *services.LedgerService) *ProgressHandler {
	return &ProgressHandler{
		progressionService: progressionService,
		ledgerService:      ledgerService,
	}
}

func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerFor(w, r)
	if !ok {
		return
	}

	p, err := h.progressionService.GetProgress(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProgressHandler) SelectPhase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerFor(w, r)
	if !ok {
		return
	}

	var req progress.SelectPhaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.progressionService.SelectPhase(ctx, userID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProgressHandler) RecordRelapse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerFor(w, r)
	if !ok {
		return
	}

	p, err := h.progressionService.RecordRelapse(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProgressHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := callerFor(w, r)
	if !ok {
		return
	}

	completions, err := h.ledgerService.ListCompletions(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, completions)
}
