package transport

import (
	"errors"
	"net/http"
	"strings"

	"book-store/internal/access"
	"book-store/internal/middleware"
	"book-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OAuth2 error codes from RFC 6749 section 5.2.
const (
	oauthInvalidRequest       = "invalid_request"
	oauthInvalidClient        = "invalid_client"
	oauthInvalidGrant         = "invalid_grant"
	oauthUnsupportedGrantType = "unsupported_grant_type"
	oauthServerError          = "server_error"
)

// OAuthTokenResponse is the RFC 6749 access token response.
type OAuthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// OAuthErrorResponse is the RFC 6749 error response.
type OAuthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// RefreshRequest carries a refresh JWT.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// RefreshResponse carries a new access JWT.
type RefreshResponse struct {
	Access string `json:"access"`
}

// TokenHandler issues OAuth2 tokens and exchanges them for JWT pairs
type TokenHandler struct {
	auth   service.AuthService
	logger *zap.Logger
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(auth service.AuthService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{auth: auth, logger: logger}
}

// RegisterRoutes registers the token endpoints. limit may be nil.
func (h *TokenHandler) RegisterRoutes(r chi.Router, guard Guard, limit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Use(guard(access.ResourceToken, access.ActionCreate))

		r.Post("/api/o/token/", h.PasswordGrant)
		r.Get("/api/token/", h.IssueTokenPair)
		r.Post("/api/token/", h.IssueTokenPair)
		r.Post("/api/token/refresh/", h.Refresh)
		r.Post("/api/token/revoke/", h.Revoke)
	})
}

// PasswordGrant implements the resource owner password credentials grant.
// Client credentials may come from HTTP basic auth or the form body.
func (h *TokenHandler) PasswordGrant(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if err := r.ParseForm(); err != nil {
		respondOAuthError(w, http.StatusBadRequest, oauthInvalidRequest, "malformed form body")
		return
	}

	if grantType := r.PostForm.Get("grant_type"); grantType != "password" {
		if grantType == "" {
			respondOAuthError(w, http.StatusBadRequest, oauthInvalidRequest, "missing grant_type")
			return
		}
		respondOAuthError(w, http.StatusBadRequest, oauthUnsupportedGrantType, "")
		return
	}

	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID, clientSecret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if clientID == "" {
		respondOAuthError(w, http.StatusUnauthorized, oauthInvalidClient, "")
		return
	}
	if username == "" || password == "" {
		respondOAuthError(w, http.StatusBadRequest, oauthInvalidRequest, "username and password are required")
		return
	}

	token, err := h.auth.PasswordGrant(r.Context(), clientID, clientSecret, username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			respondOAuthError(w, http.StatusUnauthorized, oauthInvalidClient, "")
		case errors.Is(err, service.ErrInvalidCredentials):
			h.logger.Debug("Password grant rejected", zap.String("username", username))
			respondOAuthError(w, http.StatusBadRequest, oauthInvalidGrant, "invalid credentials given")
		default:
			h.logger.Error("Password grant failed", zap.Error(err))
			respondOAuthError(w, http.StatusInternalServerError, oauthServerError, "")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OAuthTokenResponse{
		AccessToken: token.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(token.ExpiresAt.Sub(token.CreatedAt).Seconds()),
		Scope:       token.Scope,
	})
}

func respondOAuthError(w http.ResponseWriter, status int, code, description string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="api"`)
	}
	middleware.RespondWithJSON(w, status, OAuthErrorResponse{Error: code, ErrorDescription: description})
}

// IssueTokenPair exchanges the opaque OAuth2 token in the Authorization
// header for an access/refresh JWT pair.
func (h *TokenHandler) IssueTokenPair(w http.ResponseWriter, r *http.Request) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		middleware.RespondWithError(w, http.StatusUnauthorized, "authentication credentials were not provided")
		return
	}

	pair, err := h.auth.IssueTokenPair(r.Context(), parts[1])
	if err != nil {
		h.logger.Debug("Token exchange failed", zap.Error(err))
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, pair)
}

// Refresh handles access token refresh
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	accessToken, err := h.auth.RefreshAccessToken(r.Context(), req.Refresh)
	if err != nil {
		h.logger.Debug("Token refresh failed", zap.Error(err))
		if errors.Is(err, service.ErrTokenExpired) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "refresh token expired")
			return
		}
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{Access: accessToken})
}

// Revoke invalidates a refresh token
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	if err := h.auth.RevokeRefreshToken(r.Context(), req.Refresh); err != nil {
		h.logger.Debug("Token revoke failed", zap.Error(err))
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Refresh token revoked")
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "token revoked"})
}
