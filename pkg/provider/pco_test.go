package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*PCO, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	p := NewWithEndpoints("client-id", "client-secret", "http://localhost:8000/auth/callback",
		[]string{"services", "people"}, Endpoints{
			AuthorizeURL: ts.URL + "/oauth/authorize",
			TokenURL:     ts.URL + "/oauth/token",
			UserInfoURL:  ts.URL + "/people/v2/me",
		})
	return p, ts
}

func TestAuthCodeURL(t *testing.T) {
	p, ts := newTestProvider(t, nil)

	authURL := p.AuthCodeURL("the-state")
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	assert.Contains(t, authURL, ts.URL+"/oauth/authorize")
	query := parsed.Query()
	assert.Equal(t, "the-state", query.Get("state"))
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "services people", query.Get("scope"))
	assert.Equal(t, "http://localhost:8000/auth/callback", query.Get("redirect_uri"))
}

func TestExchange(t *testing.T) {
	var gotCode, gotGrantType string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotCode = r.Form.Get("code")
		gotGrantType = r.Form.Get("grant_type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "at", "refresh_token": "rt", "token_type": "Bearer", "expires_in": 7200}`))
	})

	token, err := p.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "the-code", gotCode)
	assert.Equal(t, "authorization_code", gotGrantType)
	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, "rt", token.RefreshToken)
}

func TestExchangeRejected(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
	})

	_, err := p.Exchange(context.Background(), "bad-code")
	require.Error(t, err)
	assert.True(t, IsRejected(err))
}

func TestRefreshPreservesRefreshToken(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-rt", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		// PCO may omit the refresh token from the refresh response.
		_, _ = w.Write([]byte(`{"access_token": "new-at", "token_type": "Bearer", "expires_in": 7200}`))
	})

	token, err := p.Refresh(context.Background(), "old-rt")
	require.NoError(t, err)
	assert.Equal(t, "new-at", token.AccessToken)
	assert.Equal(t, "old-rt", token.RefreshToken)
}

func TestRefreshRejected(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
	})

	_, err := p.Refresh(context.Background(), "dead-rt")
	require.Error(t, err)
	assert.True(t, IsRejected(err))
}

func TestUserInfo(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {
				"id": "123",
				"attributes": {
					"first_name": "Pat",
					"last_name": "Example",
					"primary_email_address": "pat@example.com"
				}
			}
		}`))
	})

	info, err := p.UserInfo(context.Background(), "at")
	require.NoError(t, err)
	assert.Equal(t, "123", info.ID)
	assert.Equal(t, "Pat Example", info.Name)
	assert.Equal(t, "pat@example.com", info.Email)
}

func TestUserInfoRejected(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := p.UserInfo(context.Background(), "bad")
	assert.Error(t, err)
}
