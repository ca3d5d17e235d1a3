package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"book-store/internal/access"
	"book-store/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const CallerKey contextKey = "caller"

// TokenVerifier checks a JWT access token.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*service.Claims, error)
}

// AuthMiddleware attaches the caller identity to the request context. Requests
// without an Authorization header continue as anonymous; a header carrying a
// bad or expired token is rejected.
func AuthMiddleware(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), access.AnonymousCaller)))
				return
			}

			// Check for Bearer token format
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := verifier.VerifyAccessToken(parts[1])
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, service.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			caller := access.Caller{
				CustomerID:    claims.CustomerID,
				Role:          claims.Role,
				Authenticated: true,
			}

			logger.Debug("Customer authenticated",
				zap.String("customer_id", caller.CustomerID.String()),
				zap.String("role", string(caller.Role)),
			)

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func WithCaller(ctx context.Context, caller access.Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// GetCaller returns the request's caller, anonymous when none was attached.
func GetCaller(ctx context.Context) access.Caller {
	caller, ok := ctx.Value(CallerKey).(access.Caller)
	if !ok {
		return access.AnonymousCaller
	}
	return caller
}
