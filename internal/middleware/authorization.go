package middleware

import (
	"net/http"

	"book-store/internal/access"

	"go.uber.org/zap"
)

// RequireCapability checks the caller against the policy entry for
// (resource, action) before the handler runs.
func RequireCapability(policy access.Policy, resource access.Resource, action access.Action, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := GetCaller(r.Context())

			switch policy.Decide(caller, resource, action) {
			case access.Allow:
				next.ServeHTTP(w, r)
			case access.Unauthenticated:
				RespondWithError(w, http.StatusUnauthorized, "authentication credentials were not provided")
			case access.Forbidden:
				logger.Warn("Caller lacks capability",
					zap.String("customer_id", caller.CustomerID.String()),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
			default:
				RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
			}
		})
	}
}
