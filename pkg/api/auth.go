// Admin token authentication for the simulation control endpoints.

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gridfeed/gridfeed/pkg/httputil"
)

// AdminTokenHeader is the HTTP header carrying the admin credential.
// Authorization: Bearer <token> is accepted as an alternative.
const AdminTokenHeader = "X-Admin-Token"

// requireAdmin enforces the shared-secret admin credential.
//
// A missing configured secret is a server-side misconfiguration (500),
// a missing header is 401, a mismatch is 403.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			httputil.WriteInternalError(w, "auth_misconfigured",
				"Admin token is not configured on the server")
			return
		}

		token := r.Header.Get(AdminTokenHeader)
		if token == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if token == "" {
			httputil.WriteUnauthorized(w, "missing_token",
				"Admin token required. Provide via "+AdminTokenHeader+" header or Authorization: Bearer <token>.")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			httputil.WriteForbidden(w, "invalid_token", "Invalid admin token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
