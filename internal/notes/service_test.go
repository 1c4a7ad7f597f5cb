package notes

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

func newStepClock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2026, time.May, 11, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "notes.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := db.AutoMigrate(&Note{}, &Topic{}, &NoteTopic{}, &InlineTag{}, &Series{}, &SeriesItem{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      newStepClock(),
		IDProvider: ident.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func mustCreateNote(t *testing.T, service *Service, input NoteInput) NoteDetail {
	t.Helper()
	detail, err := service.CreateNote(context.Background(), input)
	if err != nil {
		t.Fatalf("failed to create note: %v", err)
	}
	return detail
}

func mustCreateTopic(t *testing.T, service *Service, input TopicInput) Topic {
	t.Helper()
	topic, err := service.CreateTopic(context.Background(), input)
	if err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	return topic
}

func TestCreateNoteRejectsInvalidInput(t *testing.T) {
	service := newTestService(t)

	_, err := service.CreateNote(context.Background(), NoteInput{Kind: "journal", Title: "x", Book: "JHN", StartChapter: 3})
	if code := apperr.CodeOf(err); code != "notes.create.invalid_kind" {
		t.Fatalf("unexpected error code: %q", code)
	}

	_, err = service.CreateNote(context.Background(), NoteInput{Kind: "note", Title: "  ", Book: "JHN", StartChapter: 3})
	if code := apperr.CodeOf(err); code != "notes.create.missing_title" {
		t.Fatalf("unexpected error code: %q", code)
	}

	_, err = service.CreateNote(context.Background(), NoteInput{Kind: "note", Title: "x", Book: "XYZ", StartChapter: 3})
	if code := apperr.CodeOf(err); code != "notes.create.invalid_reference" {
		t.Fatalf("unexpected error code: %q", code)
	}
}

func TestCreateNotePersistsLinksAndTags(t *testing.T) {
	service := newTestService(t)
	topic := mustCreateTopic(t, service, TopicInput{Name: "Atonement"})

	detail := mustCreateNote(t, service, NoteInput{
		Kind:         "sermon",
		Title:        "  God So Loved  ",
		Content:      "For God so loved the world",
		Book:         "jhn",
		StartChapter: 3,
		StartVerse:   16,
		EndVerse:     18,
		TopicIDs:     []string{topic.TopicID, topic.TopicID, " "},
		InlineTags: []InlineTagInput{
			{Label: "Illustration", Excerpt: "world"},
			{Label: "  "},
		},
	})

	if detail.Note.Title != "God So Loved" {
		t.Fatalf("expected trimmed title, got %q", detail.Note.Title)
	}
	if detail.Note.Book != "JHN" || detail.Note.EndChapter != 3 || detail.Note.EndVerse != 18 {
		t.Fatalf("unexpected anchor: %+v", detail.Note)
	}
	if len(detail.TopicIDs) != 1 || detail.TopicIDs[0] != topic.TopicID {
		t.Fatalf("expected deduplicated topic link, got %v", detail.TopicIDs)
	}
	if len(detail.InlineTags) != 1 || detail.InlineTags[0].Label != "Illustration" {
		t.Fatalf("expected one inline tag, got %v", detail.InlineTags)
	}
}

func TestCreateNoteRejectsUnknownTopic(t *testing.T) {
	service := newTestService(t)
	_, err := service.CreateNote(context.Background(), NoteInput{
		Kind: "note", Title: "x", Book: "JHN", StartChapter: 3,
		TopicIDs: []string{"missing"},
	})
	if code := apperr.CodeOf(err); code != "notes.create.write_failed" {
		t.Fatalf("unexpected error code: %q", code)
	}
}

func TestUpdateNoteReplacesLinksAsSet(t *testing.T) {
	service := newTestService(t)
	first := mustCreateTopic(t, service, TopicInput{Name: "Love"})
	second := mustCreateTopic(t, service, TopicInput{Name: "Faith"})

	created := mustCreateNote(t, service, NoteInput{
		Kind: "note", Title: "Draft", Book: "JHN", StartChapter: 3,
		TopicIDs:   []string{first.TopicID},
		InlineTags: []InlineTagInput{{Label: "Greek"}},
	})

	updated, err := service.UpdateNote(context.Background(), created.Note.NoteID, NoteInput{
		Kind: "commentary", Title: "Final", Book: "JHN", StartChapter: 3, StartVerse: 16,
		TopicIDs:   []string{second.TopicID},
		InlineTags: []InlineTagInput{{Label: "Application"}, {Label: "Quote"}},
	})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated.Note.Kind != KindCommentary || updated.Note.Title != "Final" {
		t.Fatalf("unexpected note after update: %+v", updated.Note)
	}
	if updated.Note.UpdatedAt == created.Note.UpdatedAt {
		t.Fatalf("expected updated_at to advance")
	}
	if updated.Note.CreatedAt != created.Note.CreatedAt {
		t.Fatalf("expected created_at to survive update")
	}
	if len(updated.TopicIDs) != 1 || updated.TopicIDs[0] != second.TopicID {
		t.Fatalf("expected topic links replaced, got %v", updated.TopicIDs)
	}
	if len(updated.InlineTags) != 2 {
		t.Fatalf("expected inline tags replaced, got %v", updated.InlineTags)
	}
}

func TestUpdateNoteMissingReturnsNotFound(t *testing.T) {
	service := newTestService(t)
	_, err := service.UpdateNote(context.Background(), "missing", NoteInput{
		Kind: "note", Title: "x", Book: "JHN", StartChapter: 3,
	})
	if code := apperr.CodeOf(err); code != "notes.update.not_found" {
		t.Fatalf("unexpected error code: %q", code)
	}
}

func TestDeleteNoteCascadesLinksAndTags(t *testing.T) {
	service := newTestService(t)
	topic := mustCreateTopic(t, service, TopicInput{Name: "Grace"})
	created := mustCreateNote(t, service, NoteInput{
		Kind: "note", Title: "x", Book: "ROM", StartChapter: 5,
		TopicIDs:   []string{topic.TopicID},
		InlineTags: []InlineTagInput{{Label: "Keyword"}},
	})

	if err := service.DeleteNote(context.Background(), created.Note.NoteID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	var linkCount, tagCount int64
	if err := service.db.Model(&NoteTopic{}).Where("note_id = ?", created.Note.NoteID).Count(&linkCount).Error; err != nil {
		t.Fatalf("failed to count links: %v", err)
	}
	if err := service.db.Model(&InlineTag{}).Where("note_id = ?", created.Note.NoteID).Count(&tagCount).Error; err != nil {
		t.Fatalf("failed to count tags: %v", err)
	}
	if linkCount != 0 || tagCount != 0 {
		t.Fatalf("expected cascade, %d links %d tags remain", linkCount, tagCount)
	}

	err := service.DeleteNote(context.Background(), created.Note.NoteID)
	if code := apperr.CodeOf(err); code != "notes.delete.not_found" {
		t.Fatalf("unexpected error code: %q", code)
	}
}

func TestListNotesFiltersByPassageOverlap(t *testing.T) {
	service := newTestService(t)
	mustCreateNote(t, service, NoteInput{Kind: "note", Title: "Creation", Book: "GEN", StartChapter: 1, EndChapter: 2})
	mustCreateNote(t, service, NoteInput{Kind: "note", Title: "Fall", Book: "GEN", StartChapter: 3})
	mustCreateNote(t, service, NoteInput{Kind: "sermon", Title: "Flood", Book: "GEN", StartChapter: 6, EndChapter: 9})
	mustCreateNote(t, service, NoteInput{Kind: "note", Title: "Elsewhere", Book: "EXO", StartChapter: 1})

	covering, err := service.ListNotes(context.Background(), ListFilter{Book: "GEN", Chapter: 7})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(covering) != 1 || covering[0].Title != "Flood" {
		t.Fatalf("expected overlap filter to match the flood note, got %+v", covering)
	}

	genesis, err := service.ListNotes(context.Background(), ListFilter{Book: "gen"})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(genesis) != 3 {
		t.Fatalf("expected 3 Genesis notes, got %d", len(genesis))
	}

	sermons, err := service.ListNotes(context.Background(), ListFilter{Kind: "sermon"})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(sermons) != 1 || sermons[0].Title != "Flood" {
		t.Fatalf("expected kind filter to match, got %+v", sermons)
	}

	_, err = service.ListNotes(context.Background(), ListFilter{Book: "XYZ"})
	if code := apperr.CodeOf(err); code != "notes.list.invalid_book" {
		t.Fatalf("unexpected error code: %q", code)
	}
}

func TestListNotesFiltersByTopic(t *testing.T) {
	service := newTestService(t)
	topic := mustCreateTopic(t, service, TopicInput{Name: "Covenant"})
	tagged := mustCreateNote(t, service, NoteInput{
		Kind: "note", Title: "Tagged", Book: "GEN", StartChapter: 15,
		TopicIDs: []string{topic.TopicID},
	})
	mustCreateNote(t, service, NoteInput{Kind: "note", Title: "Untagged", Book: "GEN", StartChapter: 15})

	results, err := service.ListNotes(context.Background(), ListFilter{TopicID: topic.TopicID})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(results) != 1 || results[0].NoteID != tagged.Note.NoteID {
		t.Fatalf("expected topic filter to match, got %+v", results)
	}
}

func TestListTagLabelsCountsUsage(t *testing.T) {
	service := newTestService(t)
	mustCreateNote(t, service, NoteInput{
		Kind: "sermon", Title: "One", Book: "JHN", StartChapter: 1,
		InlineTags: []InlineTagInput{{Label: "Illustration"}, {Label: "Greek"}},
	})
	mustCreateNote(t, service, NoteInput{
		Kind: "sermon", Title: "Two", Book: "JHN", StartChapter: 2,
		InlineTags: []InlineTagInput{{Label: "Illustration"}},
	})

	labels, err := service.ListTagLabels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(labels))
	}
	if labels[0].Label != "Illustration" || labels[0].Count != 2 {
		t.Fatalf("unexpected top label: %+v", labels[0])
	}
	if labels[1].Label != "Greek" || labels[1].Count != 1 {
		t.Fatalf("unexpected second label: %+v", labels[1])
	}
}
