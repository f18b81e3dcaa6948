package handler

import (
	"net/http"
	"strings"

	"github.com/stockroom/stockroom-backend/internal/identity/token"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/errors"
	"github.com/stockroom/stockroom-backend/pkg/httputil"
)

// RequireAuth validates the bearer token and attaches the actor to the
// request context. The actor's source IP comes from the connection
// address, never from a forwarding header.
func RequireAuth(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.Error(w, errors.Unauthorized("authentication required"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httputil.Error(w, errors.Unauthorized("invalid authorization header"))
				return
			}

			claims, err := tokens.ValidateAccessToken(parts[1])
			if err != nil {
				httputil.Error(w, err)
				return
			}

			act := &actor.Actor{
				ID:       claims.UserID,
				Username: claims.Username,
				Email:    claims.Email,
				IsStaff:  claims.IsStaff,
				SourceIP: httputil.ClientIP(r),
			}

			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), act)))
		})
	}
}

// RequireStaff rejects non-staff actors. Must run after RequireAuth.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		act := actor.FromContext(r.Context())
		if act == nil {
			httputil.Error(w, errors.Unauthorized("authentication required"))
			return
		}
		if !act.IsStaff {
			httputil.Error(w, errors.Forbidden("administrator access required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
