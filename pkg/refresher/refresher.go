package refresher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pco-tools/pco-mcp-server/pkg/autherr"
	"github.com/pco-tools/pco-mcp-server/pkg/provider"
	"github.com/pco-tools/pco-mcp-server/pkg/store"
	"github.com/pco-tools/pco-mcp-server/pkg/types"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// ExpiryMargin is the safety window before the recorded expiry within which
// a token is already treated as expired, so a token never dies mid-request.
const ExpiryMargin = 60 * time.Second

// Store is the subset of the token store the refresher needs.
type Store interface {
	GetCredential(sessionID string) (*types.OAuthCredential, error)
	PutCredential(cred *types.OAuthCredential) error
	DeleteCredential(sessionID string) error
}

// Provider performs the refresh-token exchange.
type Provider interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Refresher hands out access tokens that are guaranteed fresh for at least
// ExpiryMargin. Concurrent refreshes for the same session are collapsed into
// a single upstream exchange; different sessions never wait on each other.
type Refresher struct {
	store    Store
	provider Provider
	group    singleflight.Group
}

// New creates a Refresher.
func New(store Store, provider Provider) *Refresher {
	return &Refresher{
		store:    store,
		provider: provider,
	}
}

// EnsureFresh returns an access token for the session, refreshing it first
// if it is within ExpiryMargin of expiry. ErrReauthRequired means the
// session has no usable credential and the user must authorize again.
func (r *Refresher) EnsureFresh(ctx context.Context, sessionID string) (string, error) {
	cred, err := r.store.GetCredential(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", autherr.ErrReauthRequired
		}
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	if time.Until(cred.ExpiresAt) > ExpiryMargin {
		return cred.AccessToken, nil
	}
	return r.refresh(ctx, sessionID, false)
}

// ForceRefresh refreshes the session's token even if it does not look
// expired yet. The gateway calls this after the upstream API rejects a
// token that the local expiry said was still good.
func (r *Refresher) ForceRefresh(ctx context.Context, sessionID string) (string, error) {
	return r.refresh(ctx, sessionID, true)
}

func (r *Refresher) refresh(ctx context.Context, sessionID string, force bool) (string, error) {
	token, err, _ := r.group.Do(sessionID, func() (interface{}, error) {
		cred, err := r.store.GetCredential(sessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, autherr.ErrReauthRequired
			}
			return nil, fmt.Errorf("failed to load credential: %w", err)
		}

		// A caller that piled up behind an in-flight refresh may find the
		// credential already renewed.
		if !force && time.Until(cred.ExpiresAt) > ExpiryMargin {
			return cred.AccessToken, nil
		}

		if cred.RefreshToken == "" {
			if err := r.store.DeleteCredential(sessionID); err != nil {
				return nil, fmt.Errorf("failed to clear credential: %w", err)
			}
			return nil, autherr.ErrReauthRequired
		}

		fresh, err := r.provider.Refresh(ctx, cred.RefreshToken)
		if err != nil {
			if provider.IsRejected(err) {
				// The refresh token itself is dead. Clear the credential so
				// every later call fails fast until the user reauthorizes.
				if derr := r.store.DeleteCredential(sessionID); derr != nil {
					return nil, fmt.Errorf("failed to clear credential: %w", derr)
				}
			}
			return nil, fmt.Errorf("%w: %v", autherr.ErrReauthRequired, err)
		}

		cred.AccessToken = fresh.AccessToken
		cred.RefreshToken = fresh.RefreshToken
		cred.ExpiresAt = fresh.Expiry
		if err := r.store.PutCredential(cred); err != nil {
			return nil, fmt.Errorf("failed to store refreshed credential: %w", err)
		}
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}
