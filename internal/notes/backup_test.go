package notes

import (
	"context"
	"testing"

	"github.com/pericope-app/pericope/internal/apperr"
)

func TestBackupRoundTrip(t *testing.T) {
	source := newTestService(t)
	topic := mustCreateTopic(t, source, TopicInput{Name: "Christology"})
	note := mustCreateNote(t, source, NoteInput{
		Kind: "sermon", Title: "The Word", Content: "In the beginning was the Word",
		Book: "JHN", StartChapter: 1, StartVerse: 1, EndVerse: 14,
		TopicIDs:   []string{topic.TopicID},
		InlineTags: []InlineTagInput{{Label: "Greek", Excerpt: "logos"}},
	})
	series := mustCreateSeries(t, source, SeriesInput{Title: "John", Description: "Gospel of John"})
	if _, err := source.SetSeriesNotes(context.Background(), series.SeriesID, []string{note.Note.NoteID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := source.ExportBackup(context.Background())
	if err != nil {
		t.Fatalf("unexpected export error: %v", err)
	}
	if doc.FormatVersion != BackupFormatVersion {
		t.Fatalf("unexpected format version %d", doc.FormatVersion)
	}
	if len(doc.Notes) != 1 || len(doc.Topics) != 1 || len(doc.Series) != 1 {
		t.Fatalf("unexpected document shape: %d notes, %d topics, %d series", len(doc.Notes), len(doc.Topics), len(doc.Series))
	}

	target := newTestService(t)
	report, err := target.ImportBackup(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}
	if report.Notes.Inserted != 1 || report.Topics.Inserted != 1 || report.Series.Inserted != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("unexpected row errors: %+v", report.Errors)
	}

	restored, err := target.GetNote(context.Background(), note.Note.NoteID)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if restored.Note.Title != "The Word" || restored.Note.CreatedAt != note.Note.CreatedAt {
		t.Fatalf("unexpected restored note: %+v", restored.Note)
	}
	if len(restored.TopicIDs) != 1 || restored.TopicIDs[0] != topic.TopicID {
		t.Fatalf("expected topic link restored, got %v", restored.TopicIDs)
	}
	if len(restored.InlineTags) != 1 || restored.InlineTags[0].Label != "Greek" {
		t.Fatalf("expected inline tag restored, got %v", restored.InlineTags)
	}

	restoredSeries, err := target.GetSeries(context.Background(), series.SeriesID)
	if err != nil {
		t.Fatalf("unexpected get series error: %v", err)
	}
	if len(restoredSeries.Notes) != 1 || restoredSeries.Notes[0].NoteID != note.Note.NoteID {
		t.Fatalf("expected series membership restored, got %+v", restoredSeries.Notes)
	}
}

func TestImportBackupIsIdempotentByID(t *testing.T) {
	source := newTestService(t)
	mustCreateNote(t, source, NoteInput{Kind: "note", Title: "Original", Book: "JHN", StartChapter: 1})
	doc, err := source.ExportBackup(context.Background())
	if err != nil {
		t.Fatalf("unexpected export error: %v", err)
	}

	target := newTestService(t)
	if _, err := target.ImportBackup(context.Background(), doc); err != nil {
		t.Fatalf("unexpected first import error: %v", err)
	}

	doc.Notes[0].Title = "Revised"
	report, err := target.ImportBackup(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected second import error: %v", err)
	}
	if report.Notes.Inserted != 0 || report.Notes.Updated != 1 {
		t.Fatalf("expected update on re-import, got %+v", report.Notes)
	}

	restored, err := target.GetNote(context.Background(), doc.Notes[0].NoteID)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if restored.Note.Title != "Revised" {
		t.Fatalf("expected re-import to overwrite, got %q", restored.Note.Title)
	}
}

func TestImportBackupRejectsUnsupportedVersion(t *testing.T) {
	service := newTestService(t)
	_, err := service.ImportBackup(context.Background(), BackupDocument{FormatVersion: 2})
	if code := apperr.CodeOf(err); code != "notes.import_backup.unsupported_version" {
		t.Fatalf("unexpected error code: %q", code)
	}
}

func TestImportBackupCountsRowErrors(t *testing.T) {
	service := newTestService(t)
	doc := BackupDocument{
		FormatVersion: BackupFormatVersion,
		Topics: []BackupTopic{
			{TopicID: "topic-1", Name: "Valid"},
			{TopicID: "topic-2", Name: "  "},
		},
		Notes: []BackupNote{
			{NoteID: "note-1", Kind: "note", Title: "Valid", Book: "JHN", StartChapter: 1},
			{NoteID: "note-2", Kind: "journal", Title: "Bad kind", Book: "JHN", StartChapter: 1},
			{NoteID: "note-3", Kind: "note", Title: "Bad book", Book: "XYZ", StartChapter: 1},
		},
		Series: []BackupSeries{
			{SeriesID: "series-1", Title: "  "},
		},
	}

	report, err := service.ImportBackup(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}
	if report.Topics.Inserted != 1 || report.Topics.Errored != 1 {
		t.Fatalf("unexpected topic counts: %+v", report.Topics)
	}
	if report.Notes.Inserted != 1 || report.Notes.Errored != 2 {
		t.Fatalf("unexpected note counts: %+v", report.Notes)
	}
	if report.Series.Errored != 1 {
		t.Fatalf("unexpected series counts: %+v", report.Series)
	}
	if len(report.Errors) != 4 {
		t.Fatalf("expected 4 row errors, got %+v", report.Errors)
	}
}

func TestImportBackupRecordsUnknownLinksWithoutAborting(t *testing.T) {
	service := newTestService(t)
	doc := BackupDocument{
		FormatVersion: BackupFormatVersion,
		Notes: []BackupNote{
			{NoteID: "note-1", Kind: "note", Title: "Linked", Book: "JHN", StartChapter: 1,
				TopicIDs: []string{"missing-topic"}},
		},
		Series: []BackupSeries{
			{SeriesID: "series-1", Title: "Partial", NoteIDs: []string{"note-1", "missing-note"}},
		},
	}

	report, err := service.ImportBackup(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}
	if report.Notes.Inserted != 1 || report.Series.Inserted != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 link errors, got %+v", report.Errors)
	}

	detail, err := service.GetSeries(context.Background(), "series-1")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if len(detail.Notes) != 1 || detail.Notes[0].NoteID != "note-1" {
		t.Fatalf("expected known member kept, got %+v", detail.Notes)
	}
}

func TestImportBackupFillsMissingTimestamps(t *testing.T) {
	service := newTestService(t)
	doc := BackupDocument{
		FormatVersion: BackupFormatVersion,
		Notes: []BackupNote{
			{NoteID: "note-1", Kind: "note", Title: "No timestamps", Book: "JHN", StartChapter: 1},
		},
	}
	if _, err := service.ImportBackup(context.Background(), doc); err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}

	restored, err := service.GetNote(context.Background(), "note-1")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if restored.Note.CreatedAt == "" || restored.Note.UpdatedAt == "" {
		t.Fatalf("expected timestamps filled, got %+v", restored.Note)
	}
}
