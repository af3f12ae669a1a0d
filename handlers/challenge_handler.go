package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"reclaimAPI/internal/types/challenge"
	"reclaimAPI/services"
)

type ChallengeHandler struct {
	catalogService *services.CatalogService
	ledgerService  *services.LedgerService
}

func NewChallengeHandler(catalogService *services.CatalogService, ledgerService *services.LedgerService) *ChallengeHandler {
	return &ChallengeHandler{
		catalogService: catalogService,
		ledgerService:  ledgerService,
	}
}

// ListAll returns every catalog keyed by cadence.
func (h *ChallengeHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	all, err := h.catalogService.ListAll(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, all)
}

func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cadence := challenge.Cadence(mux.Vars(r)["cadence"])
	defs, err := h.catalogService.ListChallenges(ctx, cadence)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, defs)
}

// CompleteChallenge credits the caller. A body userId, when present, must
// match the caller.
func (h *ChallengeHandler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	callerID, ok := callerFor(w, r)
	if !ok {
		return
	}

	var req challenge.CompleteChallengeRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	if req.UserID != "" && req.UserID != callerID {
		respondWithError(w, http.StatusForbidden, "cannot act on another user")
		return
	}

	awarded, err := h.ledgerService.CompleteChallenge(ctx, callerID, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenge.CompleteChallengeResponse{AwardedXP: awarded})
}
