package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pericope-app/pericope/internal/ident"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSessionTTL = 30 * 24 * time.Hour

var (
	// ErrMissingSessionToken indicates an empty session token.
	ErrMissingSessionToken = errors.New("auth: session token required")
	// ErrInvalidSession indicates an unknown or expired session token.
	ErrInvalidSession = errors.New("auth: invalid session")

	errMissingSessionDB       = errors.New("auth: database handle required")
	errMissingSessionProvider = errors.New("auth: id provider required")
)

// Session is one opaque web session token with its expiry.
type Session struct {
	Token     string `gorm:"column:token;primaryKey;size:190;not null"`
	ExpiresAt string `gorm:"column:expires_at;size:40;not null;index"`
	CreatedAt string `gorm:"column:created_at;size:40;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Session) TableName() string {
	return "auth_sessions"
}

// SessionStoreConfig bundles the dependencies for the session store.
type SessionStoreConfig struct {
	Database   *gorm.DB
	TTL        time.Duration
	Clock      func() time.Time
	IDProvider ident.Provider
	Logger     *zap.Logger
}

// SessionStore issues and validates opaque session tokens for single-password
// web access.
type SessionStore struct {
	db         *gorm.DB
	ttl        time.Duration
	clock      func() time.Time
	idProvider ident.Provider
	logger     *zap.Logger
}

// NewSessionStore validates configuration and constructs a SessionStore.
func NewSessionStore(cfg SessionStoreConfig) (*SessionStore, error) {
	if cfg.Database == nil {
		return nil, errMissingSessionDB
	}
	if cfg.IDProvider == nil {
		return nil, errMissingSessionProvider
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionStore{
		db:         cfg.Database,
		ttl:        ttl,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create issues a new opaque session token.
func (s *SessionStore) Create(ctx context.Context) (Session, error) {
	token, err := s.idProvider.NewID()
	if err != nil {
		return Session{}, err
	}
	now := s.clock().UTC()
	session := Session{
		Token:     token,
		ExpiresAt: now.Add(s.ttl).Format(time.RFC3339),
		CreatedAt: now.Format(time.RFC3339),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return Session{}, err
	}
	return session, nil
}

// Validate checks that a token exists and has not expired. Expired rows are
// removed on sight.
func (s *SessionStore) Validate(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingSessionToken
	}

	var session Session
	err := s.db.WithContext(ctx).Where("token = ?", token).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidSession
	}
	if err != nil {
		return err
	}

	now := s.clock().UTC().Format(time.RFC3339)
	if session.ExpiresAt <= now {
		if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&Session{}).Error; err != nil {
			s.logger.Warn("failed to purge expired session", zap.Error(err))
		}
		return ErrInvalidSession
	}
	return nil
}

// Revoke removes a session token, e.g. on logout. Unknown tokens are ignored.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingSessionToken
	}
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&Session{}).Error
}

// PurgeExpired removes every expired session row.
func (s *SessionStore) PurgeExpired(ctx context.Context) error {
	now := s.clock().UTC().Format(time.RFC3339)
	return s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&Session{}).Error
}
