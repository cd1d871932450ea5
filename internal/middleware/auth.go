package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/agendalink/server/internal/model/user"
	"github.com/agendalink/server/internal/service/relay"
	"github.com/agendalink/server/pkg/utils"
)

type contextKey int

const identityKey contextKey = iota

// RequireAuth authenticates REST requests from a Bearer token and stores the
// resulting identity in the request context.
func RequireAuth(verifier relay.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				utils.RespondError(w, http.StatusUnauthorized, "Token não fornecido")
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "Token inválido")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose identity is not an administrator. It
// must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok || identity.Role != user.RoleAdmin {
			utils.RespondError(w, http.StatusForbidden, "Acesso negado")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFrom extracts the authenticated identity placed by RequireAuth.
func IdentityFrom(ctx context.Context) (user.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(user.Identity)
	return identity, ok
}
