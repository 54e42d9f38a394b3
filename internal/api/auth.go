package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/merako/storefront/internal/domain/user"
)

type principalKey struct{}

// principalFrom returns the authenticated principal stored by authenticate.
func principalFrom(ctx context.Context) (*user.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*user.Principal)
	return p, ok
}

// authenticate resolves the bearer token into a Principal and stores it in
// the request context. Requests without a valid token get 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		role, id, err := s.tokens.Parse(token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		p, err := s.users.ResolvePrincipal(r.Context(), role, id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser admits only customer principals.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok || p.Role != user.RoleUser {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "customer account required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin admits only admin principals.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok || !p.IsAdmin() {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin account required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser returns the customer account behind the request. Handlers
// guarded by requireUser can rely on it being present.
func currentUser(r *http.Request) *user.User {
	p, _ := principalFrom(r.Context())
	return p.User
}
