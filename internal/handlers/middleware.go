package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prudhvinik1/authcore/internal/services"
)

type accountIDKey struct{}

func withAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey{}, id)
}

// AccountIDFromContext returns the authenticated account id set by
// RequireAuth, or "" outside a protected route.
func AccountIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey{}).(string)
	return id
}

type tokenVerifier interface {
	VerifyToken(tokenString string) (string, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer"
// token and stores the token subject in the request context.
func RequireAuth(verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			accountID, err := verifier.VerifyToken(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				if errors.Is(err, services.ErrExpired) {
					writeError(w, http.StatusUnauthorized, "Token expired")
				} else {
					writeError(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withAccountID(r.Context(), accountID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
