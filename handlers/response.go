package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"reclaimAPI/internal/apperr"
	"reclaimAPI/middleware"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps an apperr kind to its HTTP status.
func respondWithServiceError(w http.ResponseWriter, err error) {
	respondWithError(w, statusFor(err), apperr.Message(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidSelection), errors.Is(err, apperr.ErrInvalidCadence),
		errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrUnknownChallenge), errors.Is(err, apperr.ErrUnknownRoom):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// callerFor resolves the authenticated caller and, when the route carries a
// {userId}, checks that it names the caller.
func callerFor(w http.ResponseWriter, r *http.Request) (string, bool) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return "", false
	}
	if userID, has := mux.Vars(r)["userId"]; has && userID != callerID {
		respondWithError(w, http.StatusForbidden, "cannot act on another user")
		return "", false
	}
	return callerID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted,
// including an empty chunked body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
