// Package guard enforces per-operation role requirements. Guards run
// strictly before the protected handler: a denied request never reaches
// business logic, so denial can have no side effects.
package guard

import (
	"context"
	"net/http"

	"github.com/coursekit/policywizard/internal/role"
	"github.com/coursekit/policywizard/internal/session"
)

type ctxKey struct{}

// Require wraps next so it only runs when the request carries an
// established session whose role is in the allowed set. Anything else
// is a 403 denial. The session Context rides the request context for
// the handler (see From).
func Require(sessions *session.Store, next http.Handler, allowed ...role.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, err := sessionFrom(sessions, r)
		if err != nil {
			deny(w)
			return
		}
		for _, a := range allowed {
			if sc.Role == a {
				next.ServeHTTP(w, r.WithContext(
					context.WithValue(r.Context(), ctxKey{}, sc)))
				return
			}
		}
		deny(w)
	})
}

// From returns the session Context a guard attached to the request.
// The bool is false only if the handler was not wrapped by Require.
func From(ctx context.Context) (session.Context, bool) {
	sc, ok := ctx.Value(ctxKey{}).(session.Context)
	return sc, ok
}

func sessionFrom(sessions *session.Store, r *http.Request) (session.Context, error) {
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return session.Context{}, session.ErrNotEstablished
	}
	return sessions.Get(c.Value)
}

// deny writes the generic denial. The body is deliberately uniform
// across "no session", "expired session", and "wrong role" so the
// response does not leak which check failed.
func deny(w http.ResponseWriter) {
	http.Error(w, "You are not authorized to access this resource.", http.StatusForbidden)
}
