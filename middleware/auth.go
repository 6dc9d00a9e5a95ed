package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cmrp/models"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	slotKey      contextKey = "principal_slot"
)

// principalSlot lets outer middleware (the request logger) see who was authenticated
// further down the chain.
type principalSlot struct {
	p *models.Principal
}

// Authenticator verifies a bearer token and returns the caller
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

// AuthMiddleware validates bearer tokens and puts the principal on the request context
type AuthMiddleware struct {
	auth   Authenticator
	logger logrus.FieldLogger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(auth Authenticator, logger logrus.FieldLogger) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, logger: logger.WithField("component", "auth")}
}

// RequireAuth rejects requests without a valid token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Authorization header required. Expected: Bearer <token>")
			return
		}

		p, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, models.ErrUnauthenticated) {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
				return
			}
			m.logger.WithError(err).Error("token verification failed")
			respondWithError(w, http.StatusInternalServerError, "Internal error", "Could not verify credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>"; the scheme is case-insensitive
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// WithPrincipal stores p on ctx
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	if slot, ok := ctx.Value(slotKey).(*principalSlot); ok {
		slot.p = &p
	}
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, if any
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: errorType, Message: message, Code: statusCode})
}
