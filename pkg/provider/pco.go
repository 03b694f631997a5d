package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Planning Center Online OAuth and API endpoints.
const (
	DefaultAuthorizeURL = "https://api.planningcenteronline.com/oauth/authorize"
	DefaultTokenURL     = "https://api.planningcenteronline.com/oauth/token"
	DefaultUserInfoURL  = "https://api.planningcenteronline.com/people/v2/me"
)

// requestTimeout bounds every call to PCO's authorization server.
const requestTimeout = 10 * time.Second

// retryBackoff is the delay before the single retry of a network-level
// failure talking to the token endpoint.
const retryBackoff = 500 * time.Millisecond

// Endpoints are the authorization server URLs, overridable in tests.
type Endpoints struct {
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
}

// UserInfo is the authenticated user's identity from /people/v2/me.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PCO drives the OAuth authorization-code and refresh-token exchanges with
// Planning Center's authorization server.
type PCO struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// New creates a provider against the production PCO endpoints.
func New(clientID, clientSecret, redirectURL string, scopes []string) *PCO {
	return NewWithEndpoints(clientID, clientSecret, redirectURL, scopes, Endpoints{
		AuthorizeURL: DefaultAuthorizeURL,
		TokenURL:     DefaultTokenURL,
		UserInfoURL:  DefaultUserInfoURL,
	})
}

// NewWithEndpoints creates a provider against explicit endpoints.
func NewWithEndpoints(clientID, clientSecret, redirectURL string, scopes []string, endpoints Endpoints) *PCO {
	return &PCO{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  endpoints.AuthorizeURL,
				TokenURL: endpoints.TokenURL,
			},
		},
		userInfoURL: endpoints.UserInfoURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// AuthCodeURL returns the authorization URL carrying the given state.
func (p *PCO) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens. A network-level failure
// is retried once after a short backoff; a rejection from the authorization
// server is returned as is.
func (p *PCO) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config.Exchange(ctx, code)
	if err != nil && isNetworkError(err) {
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		token, err = p.config.Exchange(ctx, code)
	}
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// Refresh trades a refresh token for a new access token. Network failures
// are retried once; if the new token response omits a refresh token the old
// one is preserved.
func (p *PCO) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	source := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil && isNetworkError(err) {
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		token, err = p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	}
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// UserInfo fetches the authenticated user's identity with the given access
// token. A non-200 response means the token is not valid for PCO.
func (p *PCO) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed: %s", resp.Status)
	}

	var body struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				FirstName           string `json:"first_name"`
				LastName            string `json:"last_name"`
				PrimaryEmailAddress string `json:"primary_email_address"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode user info response: %w", err)
	}

	return &UserInfo{
		ID:    body.Data.ID,
		Name:  strings.TrimSpace(body.Data.Attributes.FirstName + " " + body.Data.Attributes.LastName),
		Email: body.Data.Attributes.PrimaryEmailAddress,
	}, nil
}

// IsRejected reports whether err is an explicit rejection from the
// authorization server (as opposed to a network failure).
func IsRejected(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re)
}

func isNetworkError(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
