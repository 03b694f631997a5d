package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/pco-tools/pco-mcp-server/pkg/autherr"
	"github.com/pco-tools/pco-mcp-server/pkg/pco"
)

// TokenSource hands out fresh access tokens for a session.
type TokenSource interface {
	EnsureFresh(ctx context.Context, sessionID string) (string, error)
	ForceRefresh(ctx context.Context, sessionID string) (string, error)
}

// Gateway executes upstream API calls on behalf of a session. It attaches
// a fresh access token and, if the upstream still answers 401, forces one
// refresh and retries exactly once. A second 401 is terminal.
type Gateway struct {
	tokens TokenSource
	api    *pco.Client
}

// New creates a Gateway.
func New(tokens TokenSource, api *pco.Client) *Gateway {
	return &Gateway{
		tokens: tokens,
		api:    api,
	}
}

// Do runs one request for the session with the bounded retry described
// above. Non-authentication upstream failures pass through unmodified.
func (g *Gateway) Do(ctx context.Context, sessionID string, req pco.Request) (*pco.Document, error) {
	token, err := g.tokens.EnsureFresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	doc, err := g.api.Do(ctx, token, req)
	if !isTokenRejected(err) {
		return doc, err
	}

	// The local expiry said the token was good but the upstream disagreed.
	// Force one refresh and retry once, never more.
	token, err = g.tokens.ForceRefresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	doc, err = g.api.Do(ctx, token, req)
	if isTokenRejected(err) {
		return nil, autherr.ErrUnauthorized
	}
	return doc, err
}

// Get performs a GET for the session.
func (g *Gateway) Get(ctx context.Context, sessionID, path string) (*pco.Document, error) {
	return g.Do(ctx, sessionID, pco.Request{Method: http.MethodGet, Path: path})
}

// Post performs a POST for the session.
func (g *Gateway) Post(ctx context.Context, sessionID, path string, body any) (*pco.Document, error) {
	return g.Do(ctx, sessionID, pco.Request{Method: http.MethodPost, Path: path, Body: body})
}

// Patch performs a PATCH for the session.
func (g *Gateway) Patch(ctx context.Context, sessionID, path string, body any) (*pco.Document, error) {
	return g.Do(ctx, sessionID, pco.Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE for the session.
func (g *Gateway) Delete(ctx context.Context, sessionID, path string) (*pco.Document, error) {
	return g.Do(ctx, sessionID, pco.Request{Method: http.MethodDelete, Path: path})
}

func isTokenRejected(err error) bool {
	var ue *autherr.UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusUnauthorized
}
