package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"book-store/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestPasswordGrantWithOAuth2Client(t *testing.T) {
	api := newTestAPI(t)
	customer, _ := api.customer(t)

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	conf := &oauth2.Config{
		ClientID:     api.clientID,
		ClientSecret: api.secret,
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL + "/api/o/token/"},
	}
	token, err := conf.PasswordCredentialsToken(context.Background(), customer.Username, testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, service.OAuthScope, token.Extra("scope"))

	// The opaque token buys a JWT pair.
	rec := api.do(t, http.MethodPost, "/api/token/", token.AccessToken, nil)
	requireStatus(t, rec, http.StatusOK)
	var pair service.TokenPair
	decodeBody(t, rec, &pair)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	// Protected endpoints take the JWT but not the opaque token.
	rec = api.do(t, http.MethodGet, "/api/sales/", pair.Access, nil)
	requireStatus(t, rec, http.StatusOK)
	rec = api.do(t, http.MethodGet, "/api/sales/", token.AccessToken, nil)
	requireStatus(t, rec, http.StatusUnauthorized)
}

func TestPasswordGrantErrors(t *testing.T) {
	api := newTestAPI(t)
	customer, _ := api.customer(t)

	tests := []struct {
		name   string
		form   url.Values
		status int
		code   string
	}{
		{
			name:   "missing grant type",
			form:   url.Values{"username": {customer.Username}, "password": {testPassword}},
			status: http.StatusBadRequest,
			code:   oauthInvalidRequest,
		},
		{
			name:   "unsupported grant type",
			form:   url.Values{"grant_type": {"client_credentials"}},
			status: http.StatusBadRequest,
			code:   oauthUnsupportedGrantType,
		},
		{
			name:   "unknown client",
			form:   url.Values{"grant_type": {"password"}, "client_id": {"nope"}, "client_secret": {"x"}, "username": {customer.Username}, "password": {testPassword}},
			status: http.StatusUnauthorized,
			code:   oauthInvalidClient,
		},
		{
			name:   "wrong client secret",
			form:   url.Values{"grant_type": {"password"}, "client_id": {api.clientID}, "client_secret": {"x"}, "username": {customer.Username}, "password": {testPassword}},
			status: http.StatusUnauthorized,
			code:   oauthInvalidClient,
		},
		{
			name:   "wrong password",
			form:   url.Values{"grant_type": {"password"}, "client_id": {api.clientID}, "client_secret": {api.secret}, "username": {customer.Username}, "password": {"wrong"}},
			status: http.StatusBadRequest,
			code:   oauthInvalidGrant,
		},
		{
			name:   "missing password",
			form:   url.Values{"grant_type": {"password"}, "client_id": {api.clientID}, "client_secret": {api.secret}, "username": {customer.Username}},
			status: http.StatusBadRequest,
			code:   oauthInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/o/token/", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, req)

			requireStatus(t, rec, tt.status)
			var body OAuthErrorResponse
			decodeBody(t, rec, &body)
			assert.Equal(t, tt.code, body.Error)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		})
	}
}

func TestTokenExchangeRejectsUnknownToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/token/", "not-a-token", nil)
	requireStatus(t, rec, http.StatusUnauthorized)

	rec = api.do(t, http.MethodGet, "/api/token/", "", nil)
	requireStatus(t, rec, http.StatusUnauthorized)
}

func TestRefreshAndRevoke(t *testing.T) {
	api := newTestAPI(t)
	customer, _ := api.customer(t)

	opaque, err := api.auth.PasswordGrant(context.Background(), api.clientID, api.secret, customer.Username, testPassword)
	require.NoError(t, err)
	pair, err := api.auth.IssueTokenPair(context.Background(), opaque.Token)
	require.NoError(t, err)

	rec := api.do(t, http.MethodPost, "/api/token/refresh/", "", RefreshRequest{Refresh: pair.Refresh})
	requireStatus(t, rec, http.StatusOK)
	var refreshed RefreshResponse
	decodeBody(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.Access)

	rec = api.do(t, http.MethodPost, "/api/token/revoke/", "", RefreshRequest{Refresh: pair.Refresh})
	requireStatus(t, rec, http.StatusOK)

	rec = api.do(t, http.MethodPost, "/api/token/refresh/", "", RefreshRequest{Refresh: pair.Refresh})
	requireStatus(t, rec, http.StatusUnauthorized)

	rec = api.do(t, http.MethodPost, "/api/token/refresh/", "", map[string]string{})
	requireStatus(t, rec, http.StatusBadRequest)
}
