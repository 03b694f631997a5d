package types

import (
	"time"
)

// Config holds all configuration values for the PCO MCP server
type Config struct {
	Port            string
	Host            string
	BaseURL         string
	DatabaseDSN     string
	PCOClientID     string
	PCOClientSecret string
	Scopes          string
	JWTSigningKey   string
	EncryptionKey   string
	PostLoginURL    string
}

// Session identifies one logical client connection to the MCP server.
// Session IDs are issued by this server and are never derived from PCO
// tokens; the two are distinct trust domains.
type Session struct {
	ID             string    `gorm:"primaryKey"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	LastActivityAt time.Time `gorm:"not null;index"`
}

// OAuthCredential is one user's PCO token material. SessionID is the
// primary key, so the schema itself enforces at most one live credential
// per session. Token columns are encrypted at rest when an encryption key
// is configured.
type OAuthCredential struct {
	SessionID    string `gorm:"primaryKey"`
	AccessToken  string `gorm:"not null"`
	RefreshToken string
	ExpiresAt    time.Time `gorm:"not null;index"`
	Scope        string
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// PendingAuthorization is an in-flight authorization-code request. The
// state token is single-use: the row is deleted on the first Complete call
// that matches it, or by cleanup once ExpiresAt has passed.
type PendingAuthorization struct {
	State     string    `gorm:"primaryKey"`
	SessionID string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// OAuthError represents an OAuth-style error response
type OAuthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
