package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pco-tools/pco-mcp-server/pkg/autherr"
	"github.com/pco-tools/pco-mcp-server/pkg/store"
	"github.com/pco-tools/pco-mcp-server/pkg/types"
)

// CookieName is the cookie carrying the session credential for browser
// clients. Non-browser clients send the same value as a bearer token.
const CookieName = "pco_mcp_session"

// CredentialTTL is the lifetime of an issued session credential.
const CredentialTTL = 24 * time.Hour

// Store is the subset of the token store the binder needs.
type Store interface {
	CreateSession(session *types.Session) error
	GetSession(sessionID string) (*types.Session, error)
	TouchSession(sessionID string) error
}

// Binder issues and verifies the server's own session credentials. These
// are HS256 JWTs signed with the server's key and are a separate trust
// domain from anything Planning Center issues: a PCO token is never usable
// as a session credential and vice versa.
type Binder struct {
	signingKey []byte
	store      Store
}

// NewBinder creates a Binder signing with the given key.
func NewBinder(signingKey []byte, store Store) *Binder {
	return &Binder{
		signingKey: signingKey,
		store:      store,
	}
}

// Establish creates a new session record and returns its ID together with
// a signed credential for it.
func (b *Binder) Establish() (string, string, error) {
	sessionID := uuid.NewString()
	if err := b.store.CreateSession(&types.Session{ID: sessionID}); err != nil {
		return "", "", fmt.Errorf("failed to create session: %w", err)
	}
	credential, err := b.Issue(sessionID)
	if err != nil {
		return "", "", err
	}
	return sessionID, credential, nil
}

// Issue signs a credential for an existing session.
func (b *Binder) Issue(sessionID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(CredentialTTL)),
	})
	signed, err := token.SignedString(b.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session credential: %w", err)
	}
	return signed, nil
}

// Verify checks a credential's signature and expiry and returns the session
// ID it names. Any failure is ErrNoSession; the reason is not disclosed.
func (b *Binder) Verify(credential string) (string, error) {
	token, err := jwt.ParseWithClaims(credential, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return b.signingKey, nil
	})
	if err != nil || !token.Valid {
		return "", autherr.ErrNoSession
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", autherr.ErrNoSession
	}
	return claims.Subject, nil
}

// Resolve extracts the session credential from a request (Authorization
// bearer first, then the session cookie), verifies it, and confirms the
// session still exists. A hit updates the session's last-activity time.
func (b *Binder) Resolve(r *http.Request) (string, error) {
	credential := credentialFromRequest(r)
	if credential == "" {
		return "", autherr.ErrNoSession
	}

	sessionID, err := b.Verify(credential)
	if err != nil {
		return "", err
	}

	if _, err := b.store.GetSession(sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", autherr.ErrNoSession
		}
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if err := b.store.TouchSession(sessionID); err != nil {
		return "", fmt.Errorf("failed to touch session: %w", err)
	}
	return sessionID, nil
}

// SetCookie attaches the session credential to the response.
func (b *Binder) SetCookie(w http.ResponseWriter, r *http.Request, credential string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    credential,
		Path:     "/",
		MaxAge:   int(CredentialTTL / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func (b *Binder) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func credentialFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

type contextKey struct{}

// WithID returns a context carrying the resolved session ID.
func WithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKey{}, sessionID)
}

// IDFromContext returns the session ID placed by WithID, if any.
func IDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(contextKey{}).(string)
	return sessionID, ok && sessionID != ""
}
