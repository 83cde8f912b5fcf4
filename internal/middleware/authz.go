package middleware

import (
	"go-pages-app/internal/auth"
	"go-pages-app/internal/logger"
	"go-pages-app/internal/service"
	"go-pages-app/internal/session"
	"net/http"

	"github.com/casbin/casbin/v2"
)

// Authorizer creates a new middleware for authorization.
// The caller is read from the session and checked against the Casbin policy by role:
// logged-in users act as members, everyone else as anonymous. Denied anonymous
// visitors are sent to the login page.
func Authorizer(e casbin.IEnforcer, sm session.Manager, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := service.Caller{
				UserID:   sm.GetInt64(r.Context(), session.UserIDKey),
				Username: sm.GetString(r.Context(), session.UsernameKey),
			}
			r = r.WithContext(SetCaller(r.Context(), caller))

			role := auth.RoleAnonymous
			if caller.Authenticated() {
				role = auth.RoleMember
			}

			allowed, err := e.Enforce(role, r.URL.Path, r.Method)
			if err != nil {
				log.Error(err, "Authorization check failed")
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				if !caller.Authenticated() {
					session.AddFlash(r.Context(), sm, "info", "Please log in to access this page.")
					http.Redirect(w, r, "/login", http.StatusSeeOther)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
