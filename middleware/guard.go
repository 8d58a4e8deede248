package middleware

import (
	"errors"
	"net/http"

	bearauth "github.com/bearauth/bearauth"
)

// Require returns middleware that rejects requests lacking a valid token.
// Failed requests get a 401 with a WWW-Authenticate challenge carrying the
// configured scheme.
func Require(engine *bearauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				challenge(w, engine)
				status := http.StatusUnauthorized
				if errors.Is(err, bearauth.ErrPrincipalInactive) {
					status = http.StatusForbidden
				}
				http.Error(w, "unauthorized", status)
				return
			}

			next.ServeHTTP(w, r.WithContext(bearauth.ContextWithAuthResult(r.Context(), res)))
		})
	}
}

// Optional returns middleware that authenticates when an Authorization
// header with the configured scheme is present and passes the request
// through unauthenticated otherwise. Handlers distinguish the two via
// [bearauth.AuthResultFromContext].
func Optional(engine *bearauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}

			res, err := engine.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				// Another authenticator's scheme, or no header at all: not
				// this guard's problem.
				if errors.Is(err, bearauth.ErrSchemeMismatch) {
					next.ServeHTTP(w, r)
					return
				}
				challenge(w, engine)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(bearauth.ContextWithAuthResult(r.Context(), res)))
		})
	}
}

func challenge(w http.ResponseWriter, engine *bearauth.Engine) {
	scheme := engine.Config().Token.HeaderScheme
	if scheme != "" {
		w.Header().Set("WWW-Authenticate", scheme)
	}
}
