package authflow

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/pco-tools/pco-mcp-server/pkg/autherr"
	"github.com/pco-tools/pco-mcp-server/pkg/store"
	"github.com/pco-tools/pco-mcp-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeProvider struct {
	exchangeCalls int
	exchangeErr   error
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://auth.test/oauth/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{
		AccessToken:  "access-for-" + code,
		RefreshToken: "refresh-for-" + code,
		Expiry:       time.Now().Add(2 * time.Hour),
	}, nil
}

func newTestFlow(t *testing.T, provider *fakeProvider) (*Flow, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return New(s, provider, "services people"), s
}

func stateFromAuthURL(t *testing.T, authURL string) string {
	t.Helper()
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestBeginIssuesUniqueStates(t *testing.T) {
	flow, _ := newTestFlow(t, &fakeProvider{})

	first, err := flow.Begin("session-1")
	require.NoError(t, err)
	second, err := flow.Begin("session-1")
	require.NoError(t, err)

	assert.NotEqual(t, stateFromAuthURL(t, first), stateFromAuthURL(t, second))
}

func TestBeginCompleteStoresCredential(t *testing.T) {
	provider := &fakeProvider{}
	flow, s := newTestFlow(t, provider)

	authURL, err := flow.Begin("session-1")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	cred, err := flow.Complete(context.Background(), state, "the-code")
	require.NoError(t, err)
	assert.Equal(t, "session-1", cred.SessionID)
	assert.Equal(t, 1, provider.exchangeCalls)

	stored, err := s.GetCredential("session-1")
	require.NoError(t, err)
	assert.Equal(t, "access-for-the-code", stored.AccessToken)
	assert.Equal(t, "refresh-for-the-code", stored.RefreshToken)
	assert.Equal(t, "services people", stored.Scope)
}

func TestCompleteReplayRejected(t *testing.T) {
	provider := &fakeProvider{}
	flow, _ := newTestFlow(t, provider)

	authURL, err := flow.Begin("session-1")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	_, err = flow.Complete(context.Background(), state, "the-code")
	require.NoError(t, err)

	_, err = flow.Complete(context.Background(), state, "the-code")
	assert.ErrorIs(t, err, autherr.ErrUnknownState)
	assert.Equal(t, 1, provider.exchangeCalls)
}

func TestCompleteUnknownState(t *testing.T) {
	provider := &fakeProvider{}
	flow, _ := newTestFlow(t, provider)

	_, err := flow.Complete(context.Background(), "never-issued", "the-code")
	assert.ErrorIs(t, err, autherr.ErrUnknownState)
	assert.Zero(t, provider.exchangeCalls)
}

type brokenStore struct {
	err error
}

func (b *brokenStore) CreatePendingAuthorization(state, sessionID string, ttl time.Duration) error {
	return b.err
}

func (b *brokenStore) ConsumePendingAuthorization(state string) (*types.PendingAuthorization, error) {
	return nil, b.err
}

func (b *brokenStore) PutCredential(cred *types.OAuthCredential) error {
	return b.err
}

func TestCompleteStoreFailureIsNotUnknownState(t *testing.T) {
	provider := &fakeProvider{}
	dbErr := errors.New("database is locked")
	flow := New(&brokenStore{err: dbErr}, provider, "services people")

	// A store outage must be distinguishable from a replayed or expired
	// state, and must never reach the code exchange.
	_, err := flow.Complete(context.Background(), "state-1", "the-code")
	require.Error(t, err)
	assert.NotErrorIs(t, err, autherr.ErrUnknownState)
	assert.ErrorIs(t, err, dbErr)
	assert.Zero(t, provider.exchangeCalls)
}

func TestCompleteExchangeFailureConsumesState(t *testing.T) {
	provider := &fakeProvider{exchangeErr: errors.New("boom")}
	flow, s := newTestFlow(t, provider)

	authURL, err := flow.Begin("session-1")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	_, err = flow.Complete(context.Background(), state, "the-code")
	assert.ErrorIs(t, err, autherr.ErrExchangeFailed)

	_, err = s.GetCredential("session-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The state went with the failed attempt; a retry needs a new Begin.
	_, err = flow.Complete(context.Background(), state, "the-code")
	assert.ErrorIs(t, err, autherr.ErrUnknownState)
}
