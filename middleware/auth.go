package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"

	"reclaimAPI/internal/logger"
)

type contextKey string

// CallerIDKey holds the authenticated user id of the request.
const CallerIDKey contextKey = "callerID"

// UserIDHeader carries the caller id when header auth is configured.
const UserIDHeader = "X-User-ID"

var (
	errMissingAuth   = errors.New("Authorization header required")
	errBadAuthFormat = errors.New("Invalid authorization format. Use 'Bearer <token>'")
)

// IdentityProvider resolves the caller of a request to a user id.
type IdentityProvider interface {
	Identify(r *http.Request) (string, error)
}

// ClerkProvider verifies Clerk session JWTs. clerk.SetKey must be called first.
type ClerkProvider struct{}

func (ClerkProvider) Identify(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingAuth
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return "", errBadAuthFormat
	}

	claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{
		Token: token,
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// HeaderProvider trusts X-User-ID as set by a fronting gateway. Local
// development and tests only.
type HeaderProvider struct{}

func (HeaderProvider) Identify(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if id == "" {
		return "", errors.New(UserIDHeader + " header required")
	}
	return id, nil
}

// AuthMiddleware rejects unauthenticated requests and stores the caller id
// under CallerIDKey.
func AuthMiddleware(provider IdentityProvider, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID, err := provider.Identify(r)
			if err != nil || callerID == "" {
				log.Debug("authentication failed", "path", r.URL.Path, "error", err)
				message := "Invalid token"
				if errors.Is(err, errMissingAuth) || errors.Is(err, errBadAuthFormat) {
					message = err.Error()
				}
				respondWithError(w, http.StatusUnauthorized, message)
				return
			}

			ctx := context.WithValue(r.Context(), CallerIDKey, callerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCallerID extracts the authenticated user id from context
func GetCallerID(ctx context.Context) (string, bool) {
	callerID, ok := ctx.Value(CallerIDKey).(string)
	return callerID, ok && callerID != ""
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
