package middleware

import (
	"context"
	"net/http"
	"proposal_server/lib"

	"github.com/MonkyMars/gecho"
)

// Context keys for storing caller data in request context
type contextKey string

const ClaimsContextKey contextKey = "claims"

// APIAuthMiddleware protects mutating proposal routes: callers present a
// bearer token issued for the proposing service. This never authenticates
// the accepting party.
func (mw *Middleware) APIAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := lib.ExtractClaims(r, mw.cfg.Auth.APITokenSecret)
		if err != nil {
			mw.logger.Warn("Failed to extract claims from request", gecho.Field("error", err))
			gecho.Unauthorized(w, gecho.WithMessage("Invalid or missing API token"), gecho.Send())
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the API claims stored by APIAuthMiddleware.
func ClaimsFromContext(ctx context.Context) (*lib.APIClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*lib.APIClaims)
	return claims, ok
}
