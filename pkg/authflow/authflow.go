package authflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pco-tools/pco-mcp-server/pkg/autherr"
	"github.com/pco-tools/pco-mcp-server/pkg/encryption"
	"github.com/pco-tools/pco-mcp-server/pkg/store"
	"github.com/pco-tools/pco-mcp-server/pkg/types"
	"golang.org/x/oauth2"
)

// PendingTTL is how long an issued state token stays valid.
const PendingTTL = 10 * time.Minute

// stateLength is the number of random bytes in a state token.
const stateLength = 32

// Store is the subset of the token store the flow needs.
type Store interface {
	CreatePendingAuthorization(state, sessionID string, ttl time.Duration) error
	ConsumePendingAuthorization(state string) (*types.PendingAuthorization, error)
	PutCredential(cred *types.OAuthCredential) error
}

// Provider drives the OAuth exchanges with the authorization server.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Flow implements the authorization-code flow against Planning Center:
// Begin hands out an authorization URL bound to a session, Complete trades
// the returned code for tokens and persists them.
type Flow struct {
	store    Store
	provider Provider
	scope    string
}

// New creates a Flow. scope is recorded on stored credentials.
func New(store Store, provider Provider, scope string) *Flow {
	return &Flow{
		store:    store,
		provider: provider,
		scope:    scope,
	}
}

// Begin starts an authorization flow for the session and returns the
// authorization URL to redirect the user to. The state token embedded in
// the URL is random, single use, and expires after PendingTTL.
func (f *Flow) Begin(sessionID string) (string, error) {
	state := encryption.GenerateRandomString(stateLength)
	if err := f.store.CreatePendingAuthorization(state, sessionID, PendingTTL); err != nil {
		return "", fmt.Errorf("failed to record pending authorization: %w", err)
	}
	return f.provider.AuthCodeURL(state), nil
}

// Complete finishes the flow for a callback carrying state and code. The
// state is consumed before the code exchange, so a replayed callback fails
// with ErrUnknownState even if the first attempt's exchange also failed.
// On success the session's credential is stored, replacing any previous one.
func (f *Flow) Complete(ctx context.Context, state, code string) (*types.OAuthCredential, error) {
	pending, err := f.store.ConsumePendingAuthorization(state)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, autherr.ErrUnknownState
		}
		return nil, fmt.Errorf("failed to consume pending authorization: %w", err)
	}

	token, err := f.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", autherr.ErrExchangeFailed, err)
	}

	cred := &types.OAuthCredential{
		SessionID:    pending.SessionID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		Scope:        f.scope,
	}
	if err := f.store.PutCredential(cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	return cred, nil
}
