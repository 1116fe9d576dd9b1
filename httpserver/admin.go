package httpserver

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ruteri/credential-registry/api"
	"github.com/ruteri/credential-registry/interfaces"
)

// requireAdmin rejects requests that do not carry the configured admin token
// as a bearer credential.
func (srv *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), api.BearerPrefix)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(srv.cfg.AdminToken)) != 1 {
			srv.log.Warn("Admin authentication failed", "path", r.URL.Path, "remote", r.RemoteAddr)
			srv.handler.writeJSON(w, http.StatusForbidden, api.ErrorResponse{Error: interfaces.KindNotAuthorized, Message: "admin token required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
