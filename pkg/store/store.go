package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pco-tools/pco-mcp-server/pkg/encryption"
	"github.com/pco-tools/pco-mcp-server/pkg/types"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a session, credential, or pending
// authorization does not exist (or has expired).
var ErrNotFound = errors.New("record not found")

// SessionIdleTimeout is how long a session may stay inactive before
// cleanup destroys it along with its credential.
const SessionIdleTimeout = 24 * time.Hour

// Store owns all OAuthCredential and PendingAuthorization records. Other
// components hold only session identifiers and go through the Store for
// every read or mutation. Credential mutations happen under a per-session
// lock so unrelated sessions are never serialized against each other.
type Store struct {
	db     *gorm.DB
	dbType string // "postgres" or "sqlite"
	cipher *encryption.Cipher

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New opens the database and sets up the schema. An empty DSN selects a
// local SQLite file; a postgres:// DSN selects PostgreSQL. cipher may be
// nil, in which case tokens are stored in plaintext.
func New(dsn string, cipher *encryption.Cipher) (*Store, error) {
	var gormDB *gorm.DB
	var dbType string
	var err error

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	if dsn == "" {
		dataDir := "data"
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		gormDB, err = gorm.Open(sqlite.Open(filepath.Join(dataDir, "pco_mcp.db")), gormConfig)
		dbType = "sqlite"
	} else if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		gormDB, err = gorm.Open(postgres.Open(dsn), gormConfig)
		dbType = "postgres"
	} else {
		gormDB, err = gorm.Open(sqlite.Open(dsn), gormConfig)
		dbType = "sqlite"
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:     gormDB,
		dbType: dbType,
		cipher: cipher,
		locks:  make(map[string]*sync.Mutex),
	}

	if err := s.setupSchema(); err != nil {
		return nil, fmt.Errorf("failed to setup schema: %w", err)
	}

	return s, nil
}

func (s *Store) setupSchema() error {
	err := s.db.AutoMigrate(
		&types.Session{},
		&types.OAuthCredential{},
		&types.PendingAuthorization{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database schema: %w", err)
	}
	return nil
}

// sessionLock returns the mutex guarding one session's credential record.
func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[sessionID] = m
	}
	return m
}

// CreateSession stores a new session record.
func (s *Store) CreateSession(session *types.Session) error {
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = time.Now()
	}
	return s.db.Create(session).Error
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(sessionID string) (*types.Session, error) {
	var session types.Session
	err := s.db.First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// TouchSession updates a session's last-activity time.
func (s *Store) TouchSession(sessionID string) error {
	return s.db.Model(&types.Session{}).Where("id = ?", sessionID).
		Update("last_activity_at", time.Now()).Error
}

// DeleteSession removes a session and its credential.
func (s *Store) DeleteSession(sessionID string) error {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.db.Delete(&types.OAuthCredential{}, "session_id = ?", sessionID).Error; err != nil {
		return err
	}
	return s.db.Delete(&types.Session{}, "id = ?", sessionID).Error
}

// PutCredential stores or replaces the session's credential. SessionID is
// the primary key, so there is never more than one credential per session.
func (s *Store) PutCredential(cred *types.OAuthCredential) error {
	mu := s.sessionLock(cred.SessionID)
	mu.Lock()
	defer mu.Unlock()

	stored := *cred
	if s.cipher != nil {
		var err error
		if stored.AccessToken, err = s.cipher.EncryptString(cred.AccessToken); err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		if cred.RefreshToken != "" {
			if stored.RefreshToken, err = s.cipher.EncryptString(cred.RefreshToken); err != nil {
				return fmt.Errorf("failed to encrypt refresh token: %w", err)
			}
		}
	}
	return s.db.Save(&stored).Error
}

// GetCredential retrieves the session's credential, decrypting token
// columns when encryption is configured.
func (s *Store) GetCredential(sessionID string) (*types.OAuthCredential, error) {
	var cred types.OAuthCredential
	err := s.db.First(&cred, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.cipher != nil {
		if cred.AccessToken, err = s.cipher.DecryptString(cred.AccessToken); err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		if cred.RefreshToken != "" {
			if cred.RefreshToken, err = s.cipher.DecryptString(cred.RefreshToken); err != nil {
				return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
			}
		}
	}
	return &cred, nil
}

// DeleteCredential removes the session's credential.
func (s *Store) DeleteCredential(sessionID string) error {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()
	return s.db.Delete(&types.OAuthCredential{}, "session_id = ?", sessionID).Error
}

// CreatePendingAuthorization stores an in-flight authorization request.
func (s *Store) CreatePendingAuthorization(state, sessionID string, ttl time.Duration) error {
	pending := &types.PendingAuthorization{
		State:     state,
		SessionID: sessionID,
		ExpiresAt: time.Now().Add(ttl),
	}
	return s.db.Create(pending).Error
}

// ConsumePendingAuthorization removes a pending authorization by state and
// returns it. The single delete-returning statement makes consumption
// exactly-once: of any number of concurrent callers only the one whose
// delete affected the row gets the record. Expired rows are deleted too but
// reported as ErrNotFound.
func (s *Store) ConsumePendingAuthorization(state string) (*types.PendingAuthorization, error) {
	var pending types.PendingAuthorization
	result := s.db.Clauses(clause.Returning{}).Where("state = ?", state).Delete(&pending)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	if time.Now().After(pending.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &pending, nil
}

// CleanupExpired removes expired pending authorizations and idle sessions
// along with their credentials.
func (s *Store) CleanupExpired() error {
	now := time.Now()

	result := s.db.Where("expires_at < ?", now).Delete(&types.PendingAuthorization{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired pending authorizations: %w", result.Error)
	}

	var idle []types.Session
	if err := s.db.Where("last_activity_at < ?", now.Add(-SessionIdleTimeout)).Find(&idle).Error; err != nil {
		return fmt.Errorf("failed to find idle sessions: %w", err)
	}
	for _, session := range idle {
		if err := s.DeleteSession(session.ID); err != nil {
			return fmt.Errorf("failed to delete idle session: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
