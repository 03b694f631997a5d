package broker

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/pco-tools/pco-mcp-server/pkg/autherr"
	"github.com/pco-tools/pco-mcp-server/pkg/authflow"
	"github.com/pco-tools/pco-mcp-server/pkg/encryption"
	"github.com/pco-tools/pco-mcp-server/pkg/gateway"
	"github.com/pco-tools/pco-mcp-server/pkg/handlerutils"
	"github.com/pco-tools/pco-mcp-server/pkg/pco"
	"github.com/pco-tools/pco-mcp-server/pkg/provider"
	"github.com/pco-tools/pco-mcp-server/pkg/ratelimit"
	"github.com/pco-tools/pco-mcp-server/pkg/refresher"
	"github.com/pco-tools/pco-mcp-server/pkg/session"
	"github.com/pco-tools/pco-mcp-server/pkg/store"
	"github.com/pco-tools/pco-mcp-server/pkg/toolsrv"
	"github.com/pco-tools/pco-mcp-server/pkg/types"
)

// Broker is the OAuth session broker in front of the Planning Center API.
// It owns the HTTP surface: the authorization flow endpoints, the MCP
// transport, and the supporting store and token machinery.
type Broker struct {
	config      *types.Config
	store       *store.Store
	provider    *provider.PCO
	flow        *authflow.Flow
	refresher   *refresher.Refresher
	binder      *session.Binder
	gateway     *gateway.Gateway
	tools       *toolsrv.Server
	rateLimiter *ratelimit.RateLimiter

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires up a Broker from config.
func New(config *types.Config) (*Broker, error) {
	if config.PCOClientID == "" || config.PCOClientSecret == "" {
		return nil, fmt.Errorf("PCO client ID and secret are required")
	}
	if config.JWTSigningKey == "" {
		return nil, fmt.Errorf("JWT signing key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.Scopes == "" {
		config.Scopes = "services people"
	}

	if config.DatabaseDSN == "" {
		log.Println("DATABASE_DSN not set, using SQLite database at data/pco_mcp.db")
	} else if strings.HasPrefix(config.DatabaseDSN, "postgres://") || strings.HasPrefix(config.DatabaseDSN, "postgresql://") {
		log.Println("Using PostgreSQL database")
	} else {
		log.Printf("Using SQLite database at: %s", config.DatabaseDSN)
	}

	var cipher *encryption.Cipher
	if config.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(config.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode encryption key: %w", err)
		}
		if cipher, err = encryption.NewCipher(key); err != nil {
			return nil, err
		}
	} else {
		log.Println("ENCRYPTION_KEY not set, tokens will be stored unencrypted")
	}

	tokenStore, err := store.New(config.DatabaseDSN, cipher)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	pcoProvider := provider.New(
		config.PCOClientID,
		config.PCOClientSecret,
		config.BaseURL+"/auth/callback",
		strings.Fields(config.Scopes),
	)

	flow := authflow.New(tokenStore, pcoProvider, config.Scopes)
	tokenRefresher := refresher.New(tokenStore, pcoProvider)
	binder := session.NewBinder([]byte(config.JWTSigningKey), tokenStore)
	gw := gateway.New(tokenRefresher, pco.NewClient(""))

	return &Broker{
		config:      config,
		store:       tokenStore,
		provider:    pcoProvider,
		flow:        flow,
		refresher:   tokenRefresher,
		binder:      binder,
		gateway:     gw,
		tools:       toolsrv.New(gw, config.BaseURL+"/auth/login"),
		rateLimiter: ratelimit.NewRateLimiter(15*time.Minute, 5000),
	}, nil
}

// Start launches the hourly cleanup of expired pending authorizations and
// idle sessions.
func (b *Broker) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-b.ctx.Done():
				return
			case <-ticker.C:
				if err := b.store.CleanupExpired(); err != nil {
					log.Printf("Failed to cleanup expired records: %v", err)
				}
			}
		}
	}()

	return nil
}

func (b *Broker) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

// SetupRoutes registers all routes on the mux.
func (b *Broker) SetupRoutes(mux *http.ServeMux) {
	// No method qualifiers here: withCORS answers OPTIONS preflights itself,
	// and a method-qualified pattern would shortcut them to the mux's 405.
	mux.HandleFunc("/health", b.withCORS(http.HandlerFunc(b.healthHandler)))

	mux.HandleFunc("/auth/login", b.withCORS(b.withRateLimit(http.HandlerFunc(b.loginHandler))))
	mux.HandleFunc("/auth/callback", b.withCORS(b.withRateLimit(http.HandlerFunc(b.callbackHandler))))
	mux.HandleFunc("/auth/success", b.withCORS(b.withRateLimit(http.HandlerFunc(b.successHandler))))
	mux.HandleFunc("/auth/logout", b.withCORS(b.withRateLimit(http.HandlerFunc(b.logoutHandler))))

	mcpHandler := b.tools.Handler(func(ctx context.Context, r *http.Request) context.Context {
		sessionID, err := b.binder.Resolve(r)
		if err != nil {
			return ctx
		}
		return session.WithID(ctx, sessionID)
	})
	mux.Handle("/mcp", b.withCORS(b.withRateLimit(mcpHandler)))
}

// GetHandler returns the broker's HTTP handler with request logging.
func (b *Broker) GetHandler() http.Handler {
	mux := http.NewServeMux()
	b.SetupRoutes(mux)
	return handlers.LoggingHandler(os.Stdout, mux)
}

// withCORS wraps a handler with CORS headers
func (b *Broker) withCORS(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With, mcp-protocol-version")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(int((12 * time.Hour).Seconds())))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// withRateLimit wraps a handler with per-IP rate limiting
func (b *Broker) withRateLimit(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.rateLimiter != nil {
			clientIP := handlerutils.GetClientIP(r)
			if !b.rateLimiter.Allow(clientIP) {
				handlerutils.JSON(w, http.StatusTooManyRequests, types.OAuthError{
					Error:            "too_many_requests",
					ErrorDescription: "Rate limit exceeded",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	}
}

func (b *Broker) healthHandler(w http.ResponseWriter, r *http.Request) {
	handlerutils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loginHandler starts the authorization flow. It reuses the request's
// session if it carries one, otherwise it establishes a new session and
// hands the browser its credential, then redirects to Planning Center.
func (b *Broker) loginHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := b.binder.Resolve(r)
	if err != nil {
		var credential string
		sessionID, credential, err = b.binder.Establish()
		if err != nil {
			log.Printf("Failed to establish session: %v", err)
			handlerutils.JSON(w, http.StatusInternalServerError, types.OAuthError{
				Error:            "server_error",
				ErrorDescription: "Failed to establish session",
			})
			return
		}
		b.binder.SetCookie(w, r, credential)
	}

	authURL, err := b.flow.Begin(sessionID)
	if err != nil {
		log.Printf("Failed to begin authorization flow: %v", err)
		handlerutils.JSON(w, http.StatusInternalServerError, types.OAuthError{
			Error:            "server_error",
			ErrorDescription: "Failed to start authorization",
		})
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// callbackHandler finishes the authorization flow. Upstream error details
// are logged but never echoed back to the browser.
func (b *Broker) callbackHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		log.Printf("Authorization server returned error: %s (%s)", errCode, query.Get("error_description"))
		handlerutils.JSON(w, http.StatusBadRequest, types.OAuthError{
			Error:            errCode,
			ErrorDescription: "Authorization was not granted",
		})
		return
	}

	state := query.Get("state")
	code := query.Get("code")
	if state == "" || code == "" {
		handlerutils.JSON(w, http.StatusBadRequest, types.OAuthError{
			Error:            "invalid_request",
			ErrorDescription: "Missing state or code parameter",
		})
		return
	}

	cred, err := b.flow.Complete(r.Context(), state, code)
	if err != nil {
		switch {
		case errors.Is(err, autherr.ErrUnknownState):
			handlerutils.JSON(w, http.StatusBadRequest, types.OAuthError{
				Error:            "invalid_state",
				ErrorDescription: "State is unknown, expired, or already used",
			})
		default:
			log.Printf("Authorization code exchange failed: %v", err)
			handlerutils.JSON(w, http.StatusBadGateway, types.OAuthError{
				Error:            "exchange_failed",
				ErrorDescription: "Could not exchange authorization code",
			})
		}
		return
	}

	credential, err := b.binder.Issue(cred.SessionID)
	if err != nil {
		log.Printf("Failed to issue session credential: %v", err)
		handlerutils.JSON(w, http.StatusInternalServerError, types.OAuthError{
			Error:            "server_error",
			ErrorDescription: "Failed to issue session credential",
		})
		return
	}
	b.binder.SetCookie(w, r, credential)

	if userInfo, err := b.provider.UserInfo(r.Context(), cred.AccessToken); err == nil {
		log.Printf("Authorized session %s for %s", cred.SessionID, userInfo.Name)
	}

	target := b.config.PostLoginURL
	if target == "" {
		target = "/auth/success"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>Authorization Complete</title></head>
<body>
<h1>Authorization complete</h1>
<p>Your Planning Center account is now connected. You can close this window.</p>
</body>
</html>`

func (b *Broker) successHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(successPage))
}

// logoutHandler destroys the request's session and its credential.
func (b *Broker) logoutHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := b.binder.Resolve(r)
	if err == nil {
		if err := b.store.DeleteSession(sessionID); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}
	b.binder.ClearCookie(w)
	handlerutils.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
