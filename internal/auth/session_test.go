package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/pericope-app/pericope/internal/ident"
	"gorm.io/gorm"
)

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2026, time.May, 11, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func newTestSessionStore(t *testing.T, ttl time.Duration) (*SessionStore, *testClock) {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "auth.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Session{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	clock := newTestClock()
	store, err := NewSessionStore(SessionStoreConfig{
		Database:   db,
		TTL:        ttl,
		Clock:      clock.Now,
		IDProvider: ident.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store, clock
}

func TestSessionStoreDefaultsTTL(t *testing.T) {
	store, _ := newTestSessionStore(t, 0)
	if store.TTL() != 30*24*time.Hour {
		t.Fatalf("unexpected default ttl: %v", store.TTL())
	}
}

func TestSessionCreateAndValidate(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	session, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("expected generated token")
	}
	if session.ExpiresAt != "2026-05-11T09:00:00Z" {
		t.Fatalf("unexpected expiry %q", session.ExpiresAt)
	}

	if err := store.Validate(context.Background(), session.Token); err != nil {
		t.Fatalf("expected fresh session to validate, got %v", err)
	}
	if err := store.Validate(context.Background(), ""); !errors.Is(err, ErrMissingSessionToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if err := store.Validate(context.Background(), "unknown"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected invalid session error, got %v", err)
	}
}

func TestSessionValidateDeletesExpiredRow(t *testing.T) {
	store, clock := newTestSessionStore(t, time.Hour)
	session, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if err := store.Validate(context.Background(), session.Token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected expired session rejected, got %v", err)
	}

	var count int64
	if err := store.db.Model(&Session{}).Where("token = ?", session.Token).Count(&count).Error; err != nil {
		t.Fatalf("failed to count sessions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected expired row removed on sight")
	}
}

func TestSessionRevoke(t *testing.T) {
	store, _ := newTestSessionStore(t, time.Hour)
	session, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if err := store.Revoke(context.Background(), session.Token); err != nil {
		t.Fatalf("unexpected revoke error: %v", err)
	}
	if err := store.Validate(context.Background(), session.Token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected revoked session rejected, got %v", err)
	}

	// Revoking an unknown token is not an error.
	if err := store.Revoke(context.Background(), "unknown"); err != nil {
		t.Fatalf("unexpected error revoking unknown token: %v", err)
	}
}

func TestPurgeExpiredKeepsLiveSessions(t *testing.T) {
	store, clock := newTestSessionStore(t, time.Hour)
	if _, err := store.Create(context.Background()); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	clock.Advance(50 * time.Minute)
	live, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	clock.Advance(30 * time.Minute)
	if err := store.PurgeExpired(context.Background()); err != nil {
		t.Fatalf("unexpected purge error: %v", err)
	}

	var tokens []string
	if err := store.db.Model(&Session{}).Pluck("token", &tokens).Error; err != nil {
		t.Fatalf("failed to list tokens: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != live.Token {
		t.Fatalf("expected only the live session to survive, got %v", tokens)
	}
}
