package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type Middleware struct {
	tokens *TokenManager
	policy Policy
}

func NewMiddleware(tokens *TokenManager, policy Policy) *Middleware {
	return &Middleware{tokens: tokens, policy: policy}
}

// Authenticate attaches the Principal of a valid bearer access token to the
// request context. Requests without a token pass through anonymous; a
// malformed or expired token is rejected.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		claims, err := m.tokens.Parse(tokenString, TokenAccess)
		if err != nil {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("auth: rejected access token")
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		principal, err := claims.Principal()
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// Authorize evaluates the policy table once for the route.
func (m *Middleware) Authorize(res Resource, act Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())

			switch m.policy.Evaluate(principal, res, act) {
			case Allow:
				next.ServeHTTP(w, r)
			case Unauthenticated:
				writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
			default:
				log.Warn().
					Stringer("user_id", principal.UserID).
					Stringer("role", principal.Role).
					Str("resource", string(res)).
					Str("action", string(act)).
					Msg("auth: permission denied")
				writeError(w, http.StatusForbidden, "You do not have permission to perform this action")
			}
		})
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
