package autherr

import (
	"errors"
	"fmt"
)

// Sentinel authentication errors. Callers branch on these with errors.Is;
// none of them ever carries token material.
var (
	// ErrNoSession means the request carried no valid server-issued
	// session credential.
	ErrNoSession = errors.New("no valid session")

	// ErrUnknownState means the OAuth state parameter did not match any
	// pending authorization, either because it was never issued, already
	// consumed, or expired.
	ErrUnknownState = errors.New("unknown or expired state")

	// ErrExchangeFailed means the authorization-code exchange with the
	// upstream authorization server failed.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrReauthRequired means no usable credential remains for the session
	// and the user must go through the authorization flow again.
	ErrReauthRequired = errors.New("reauthentication required")

	// ErrUnauthorized means the upstream API rejected a freshly obtained
	// access token. It is terminal for the request: the gateway never
	// retries past it.
	ErrUnauthorized = errors.New("upstream rejected access token")
)

// UpstreamError is a non-authentication failure from the upstream API
// (not-found, validation, rate limiting). It passes through to callers
// unmodified as a domain error.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d", e.Status)
}

// IsUpstream reports whether err is a pass-through upstream API failure.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
