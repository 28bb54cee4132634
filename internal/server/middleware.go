package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/campuslink/campuslink/internal/model"
	"github.com/campuslink/campuslink/internal/store"
)

type contextKey int

const principalKey contextKey = iota

// principal is the authenticated caller of a REST request: the resolved
// user record plus its tenant partition handle.
type principal struct {
	user   *model.User
	tenant *store.Tenant
}

func principalFrom(ctx context.Context) *principal {
	p, _ := ctx.Value(principalKey).(*principal)
	return p
}

// withAuth verifies the bearer token, resolves the tenant from the
// credential, and loads the caller's user record. Handshake-order matters:
// credential validation is pure, then tenant lookup, then user lookup.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}

		identity, err := s.auth.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}

		tenant, err := s.tenants.Resolve(r.Context(), identity.TenantID)
		if err != nil {
			if errors.Is(err, model.ErrTenantNotFound) {
				respondError(w, http.StatusNotFound, "college not found")
				return
			}
			s.log.Error().Err(err).Msg("resolving tenant")
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user, err := tenant.Users().FindByEmail(r.Context(), identity.Role, identity.Email)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, &principal{user: user, tenant: tenant})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
