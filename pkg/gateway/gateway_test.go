package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pco-tools/pco-mcp-server/pkg/autherr"
	"github.com/pco-tools/pco-mcp-server/pkg/pco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	fresh      string
	forced     string
	freshErr   error
	forcedErr  error
	forceCalls int
}

func (f *fakeTokens) EnsureFresh(ctx context.Context, sessionID string) (string, error) {
	if f.freshErr != nil {
		return "", f.freshErr
	}
	return f.fresh, nil
}

func (f *fakeTokens) ForceRefresh(ctx context.Context, sessionID string) (string, error) {
	f.forceCalls++
	if f.forcedErr != nil {
		return "", f.forcedErr
	}
	return f.forced, nil
}

func TestAttachesBearerToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"id": "1"}}`))
	}))
	defer ts.Close()

	tokens := &fakeTokens{fresh: "token-1"}
	g := New(tokens, pco.NewClient(ts.URL))

	doc, err := g.Get(context.Background(), "session-1", "/services/v2/service_types")
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.JSONEq(t, `{"id": "1"}`, string(doc.Data))
	assert.Zero(t, tokens.forceCalls)
}

func TestRetriesOnceAfterUpstreamRejection(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("Authorization") != "Bearer token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data": {"id": "1"}}`))
	}))
	defer ts.Close()

	tokens := &fakeTokens{fresh: "token-1", forced: "token-2"}
	g := New(tokens, pco.NewClient(ts.URL))

	doc, err := g.Get(context.Background(), "session-1", "/services/v2/service_types")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "1"}`, string(doc.Data))
	assert.Equal(t, 1, tokens.forceCalls)
	assert.Equal(t, 2, requests)
}

func TestSecondRejectionIsTerminal(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	tokens := &fakeTokens{fresh: "token-1", forced: "token-2"}
	g := New(tokens, pco.NewClient(ts.URL))

	_, err := g.Get(context.Background(), "session-1", "/services/v2/service_types")
	assert.ErrorIs(t, err, autherr.ErrUnauthorized)
	assert.Equal(t, 1, tokens.forceCalls)
	assert.Equal(t, 2, requests)
}

func TestNonAuthFailurePassesThrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors": [{"title": "not found"}]}`))
	}))
	defer ts.Close()

	tokens := &fakeTokens{fresh: "token-1"}
	g := New(tokens, pco.NewClient(ts.URL))

	_, err := g.Get(context.Background(), "session-1", "/services/v2/songs/999")
	var ue *autherr.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusNotFound, ue.Status)
	assert.Contains(t, ue.Body, "not found")
	assert.Zero(t, tokens.forceCalls)
}

func TestTokenSourceFailurePropagates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called without a token")
	}))
	defer ts.Close()

	tokens := &fakeTokens{freshErr: autherr.ErrReauthRequired}
	g := New(tokens, pco.NewClient(ts.URL))

	_, err := g.Get(context.Background(), "session-1", "/services/v2/service_types")
	assert.ErrorIs(t, err, autherr.ErrReauthRequired)
}

func TestForceRefreshFailureStopsRetry(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	tokens := &fakeTokens{fresh: "token-1", forcedErr: autherr.ErrReauthRequired}
	g := New(tokens, pco.NewClient(ts.URL))

	_, err := g.Get(context.Background(), "session-1", "/services/v2/service_types")
	assert.ErrorIs(t, err, autherr.ErrReauthRequired)
	assert.Equal(t, 1, requests)
}
