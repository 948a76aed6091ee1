// Package middleware holds the HTTP middleware of the /api/v1 and /mcp routes.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/crmops/internal/api/ctxkeys"
	pkgauth "github.com/matiasleandrokruk/crmops/pkg/auth"
)

// CorrelationHeader carries the caller's correlation id in and out.
const CorrelationHeader = "X-Correlation-ID"

// TokenParser validates a bearer token. *pkgauth.Signer satisfies it.
type TokenParser interface {
	Parse(token string) (*pkgauth.Claims, error)
}

// AuthMiddleware validates the Bearer JWT token and injects claims into context.
//
// Flow:
//  1. Read "Authorization: Bearer <token>" header
//  2. Reject if missing or not Bearer scheme -> 401
//  3. Parse + validate JWT -> 401 on invalid/expired
//  4. Inject ctxkeys.UserID and ctxkeys.WorkspaceID into context
func AuthMiddleware(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := parser.Parse(tokenString)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = ctxkeys.WithValue(ctx, ctxkeys.UserID, claims.UserID)
			ctx = ctxkeys.WithValue(ctx, ctxkeys.WorkspaceID, claims.WorkspaceID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DefaultWorkspace injects workspaceID when no earlier middleware set one.
// It is used instead of AuthMiddleware when no JWT secret is configured.
func DefaultWorkspace(workspaceID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ctxkeys.String(r.Context(), ctxkeys.WorkspaceID) == "" {
				r = r.WithContext(ctxkeys.WithValue(r.Context(), ctxkeys.WorkspaceID, workspaceID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Correlation reuses the caller's X-Correlation-ID or mints a UUID, stores it
// in context and echoes it on the response.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(CorrelationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(ctxkeys.WithValue(r.Context(), ctxkeys.CorrelationID, id)))
	})
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
// Returns empty string if header is missing, wrong scheme, or token is empty.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	// Must start with "Bearer " (case-sensitive per RFC 7235)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// writeUnauthorized writes a 401 JSON response in the handlers' error format.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
