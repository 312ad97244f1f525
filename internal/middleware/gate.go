package middleware

import (
	"net/http"

	"github.com/phorium/phorium/internal/auth"
	"github.com/phorium/phorium/internal/model"
)

// Gate cookie names.
const (
	AccessCookieName = "phorium_access"
	AdminCookieName  = "phorium_admin"
)

// openPaths stay reachable behind the access wall and during maintenance.
var openPaths = map[string]bool{
	"/healthz":       true,
	"/readyz":        true,
	"/metrics":       true,
	"/access":        true,
	"/admin/session": true,
}

// SessionParser validates gate tokens.
type SessionParser interface {
	Parse(token string) (*model.Session, error)
}

// Sessions reads the gate cookies and stores the strongest valid session
// in the request context. Invalid cookies are ignored.
func Sessions(parser SessionParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range []string{AdminCookieName, AccessCookieName} {
				c, err := r.Cookie(name)
				if err != nil {
					continue
				}
				sess, err := parser.Parse(c.Value)
				if err != nil {
					continue
				}
				// An admin role is only honoured from the admin cookie.
				if name == AccessCookieName && sess.IsAdmin() {
					continue
				}
				r = r.WithContext(auth.ContextWithSession(r.Context(), sess))
				break
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AccessWall requires a visitor or admin session when enabled.
func AccessWall(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || openPaths[r.URL.Path] || auth.SessionFromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusUnauthorized, "ACCESS_REQUIRED", "Access code required")
		})
	}
}

// Maintenance answers 503 to everyone but admins when enabled.
func Maintenance(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || openPaths[r.URL.Path] || auth.SessionFromContext(r.Context()).IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "300")
			writeError(w, http.StatusServiceUnavailable, "MAINTENANCE", "Down for maintenance")
		})
	}
}

// RequireAdmin rejects requests without an admin session.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.SessionFromContext(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "ADMIN_REQUIRED", "Admin session required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
