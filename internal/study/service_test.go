package study

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/pericope-app/pericope/internal/apperr"
	"github.com/pericope-app/pericope/internal/ident"
	"gorm.io/gorm"
)

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2026, time.May, 11, 12, 0, 0, 0, time.UTC)}
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

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "study.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Session{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	clock := newTestClock()
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: ident.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, clock
}

func mustLog(t *testing.T, service *Service, kind SessionKind, referenceID, noteID string) Session {
	t.Helper()
	session, err := service.Log(context.Background(), kind, referenceID, noteID)
	if err != nil {
		t.Fatalf("failed to log session: %v", err)
	}
	return session
}

func TestLogValidatesInput(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Log(context.Background(), "browsing", "JHN 3", "")
	if code := apperr.CodeOf(err); code != "study.log.invalid_kind" {
		t.Fatalf("unexpected error code: %q", code)
	}

	_, err = service.Log(context.Background(), SessionKindPassage, "  ", "")
	if code := apperr.CodeOf(err); code != "study.log.missing_reference_id" {
		t.Fatalf("unexpected error code: %q", code)
	}
}

func TestLogStampsSession(t *testing.T) {
	service, _ := newTestService(t)
	session := mustLog(t, service, SessionKindPassage, " JHN 3 ", "note-1")
	if session.SessionID == "" {
		t.Fatalf("expected generated session id")
	}
	if session.ReferenceID != "JHN 3" {
		t.Fatalf("expected trimmed reference, got %q", session.ReferenceID)
	}
	if session.ViewedAt != "2026-05-11T12:00:00Z" {
		t.Fatalf("unexpected timestamp %q", session.ViewedAt)
	}
}

func TestSummarizeGroupsByReferenceAndDay(t *testing.T) {
	service, clock := newTestService(t)
	mustLog(t, service, SessionKindPassage, "JHN 3", "")
	clock.Advance(time.Hour)
	mustLog(t, service, SessionKindPassage, "JHN 3", "")
	clock.Advance(time.Hour)
	mustLog(t, service, SessionKindTheology, "ch-32", "")
	clock.Advance(24 * time.Hour)
	mustLog(t, service, SessionKindPassage, "ROM 5", "")

	summary, err := service.Summarize(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.WindowDays != 7 || summary.Total != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.References) != 3 {
		t.Fatalf("expected 3 references, got %d", len(summary.References))
	}
	top := summary.References[0]
	if top.ReferenceID != "JHN 3" || top.Views != 2 || top.Kind != SessionKindPassage {
		t.Fatalf("unexpected top reference: %+v", top)
	}
	if len(summary.Days) != 2 {
		t.Fatalf("expected 2 days, got %+v", summary.Days)
	}
	if summary.Days[0].Day != "2026-05-11" || summary.Days[0].Views != 3 {
		t.Fatalf("unexpected first day: %+v", summary.Days[0])
	}
	if summary.Days[1].Day != "2026-05-12" || summary.Days[1].Views != 1 {
		t.Fatalf("unexpected second day: %+v", summary.Days[1])
	}
}

func TestSummarizeExcludesSessionsOutsideWindow(t *testing.T) {
	service, clock := newTestService(t)
	mustLog(t, service, SessionKindPassage, "GEN 1", "")
	clock.Advance(10 * 24 * time.Hour)
	mustLog(t, service, SessionKindPassage, "JHN 3", "")

	summary, err := service.Summarize(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 1 || len(summary.References) != 1 {
		t.Fatalf("expected only the recent session, got %+v", summary)
	}
	if summary.References[0].ReferenceID != "JHN 3" {
		t.Fatalf("unexpected reference: %+v", summary.References[0])
	}
}

func TestSummarizeDefaultsWindow(t *testing.T) {
	service, _ := newTestService(t)
	summary, err := service.Summarize(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.WindowDays != 30 {
		t.Fatalf("expected default window, got %d", summary.WindowDays)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	service, clock := newTestService(t)
	mustLog(t, service, SessionKindPassage, "GEN 1", "")
	clock.Advance(time.Minute)
	mustLog(t, service, SessionKindPassage, "JHN 3", "")
	clock.Advance(time.Minute)
	mustLog(t, service, SessionKindTheology, "ch-32", "")

	sessions, err := service.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected limit applied, got %d", len(sessions))
	}
	if sessions[0].ReferenceID != "ch-32" || sessions[1].ReferenceID != "JHN 3" {
		t.Fatalf("unexpected order: %s, %s", sessions[0].ReferenceID, sessions[1].ReferenceID)
	}
}
