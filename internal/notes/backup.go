package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pericope-app/pericope/internal/apperr"
	"github.com/pericope-app/pericope/internal/scripture"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BackupFormatVersion is the supported backup document version.
const BackupFormatVersion = 1

// ErrUnsupportedBackupVersion indicates a backup document from a newer or
// unknown format revision.
var ErrUnsupportedBackupVersion = errors.New("notes: unsupported backup format version")

const (
	opExportBackup = "notes.export_backup"
	opImportBackup = "notes.import_backup"
)

// BackupDocument is the versioned export/import payload for the notes domain.
type BackupDocument struct {
	FormatVersion int            `json:"format_version"`
	ExportedAt    string         `json:"exported_at"`
	Notes         []BackupNote   `json:"notes"`
	Topics        []BackupTopic  `json:"topics"`
	Series        []BackupSeries `json:"series"`
}

// BackupNote is one note row with its topic links and inline tags inlined.
type BackupNote struct {
	NoteID       string            `json:"id"`
	Kind         string            `json:"type"`
	Title        string            `json:"title"`
	Content      string            `json:"content"`
	Book         string            `json:"book"`
	StartChapter int               `json:"start_chapter"`
	StartVerse   int               `json:"start_verse,omitempty"`
	EndChapter   int               `json:"end_chapter"`
	EndVerse     int               `json:"end_verse,omitempty"`
	TopicIDs     []string          `json:"topic_ids,omitempty"`
	InlineTags   []BackupInlineTag `json:"inline_tags,omitempty"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

// BackupInlineTag is one labeled span of a backed-up note.
type BackupInlineTag struct {
	Label   string `json:"label"`
	Excerpt string `json:"excerpt,omitempty"`
}

// BackupTopic is one topic row of a backup document.
type BackupTopic struct {
	TopicID   string  `json:"id"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parent_id"`
	SortOrder int     `json:"sort_order"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// BackupSeries is one series row with its ordered member note ids.
type BackupSeries struct {
	SeriesID    string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	NoteIDs     []string `json:"note_ids"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// ImportCounts tallies per-row outcomes for one entity kind.
type ImportCounts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Errored  int `json:"errored"`
}

// ImportRowError records why one backup row was skipped.
type ImportRowError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ImportReport summarizes a backup import.
type ImportReport struct {
	Notes  ImportCounts     `json:"notes"`
	Topics ImportCounts     `json:"topics"`
	Series ImportCounts     `json:"series"`
	Errors []ImportRowError `json:"errors,omitempty"`
}

// ExportBackup snapshots the full notes domain into a backup document.
func (s *Service) ExportBackup(ctx context.Context) (BackupDocument, error) {
	doc := BackupDocument{
		FormatVersion: BackupFormatVersion,
		ExportedAt:    s.now(),
	}

	var allNotes []Note
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&allNotes).Error; err != nil {
		s.logError(opExportBackup, "notes_query_failed", err)
		return BackupDocument{}, apperr.New(opExportBackup, "notes_query_failed", err)
	}
	for _, note := range allNotes {
		row := BackupNote{
			NoteID:       note.NoteID,
			Kind:         string(note.Kind),
			Title:        note.Title,
			Content:      note.Content,
			Book:         note.Book,
			StartChapter: note.StartChapter,
			StartVerse:   note.StartVerse,
			EndChapter:   note.EndChapter,
			EndVerse:     note.EndVerse,
			CreatedAt:    note.CreatedAt,
			UpdatedAt:    note.UpdatedAt,
		}
		var links []NoteTopic
		if err := s.db.WithContext(ctx).Where("note_id = ?", note.NoteID).Find(&links).Error; err != nil {
			s.logError(opExportBackup, "topic_links_query_failed", err, zap.String("note_id", note.NoteID))
			return BackupDocument{}, apperr.New(opExportBackup, "topic_links_query_failed", err)
		}
		for _, link := range links {
			row.TopicIDs = append(row.TopicIDs, link.TopicID)
		}
		var tags []InlineTag
		if err := s.db.WithContext(ctx).
			Where("note_id = ?", note.NoteID).
			Order("created_at ASC").
			Find(&tags).Error; err != nil {
			s.logError(opExportBackup, "tags_query_failed", err, zap.String("note_id", note.NoteID))
			return BackupDocument{}, apperr.New(opExportBackup, "tags_query_failed", err)
		}
		for _, tag := range tags {
			row.InlineTags = append(row.InlineTags, BackupInlineTag{Label: tag.Label, Excerpt: tag.Excerpt})
		}
		doc.Notes = append(doc.Notes, row)
	}

	var topics []Topic
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&topics).Error; err != nil {
		s.logError(opExportBackup, "topics_query_failed", err)
		return BackupDocument{}, apperr.New(opExportBackup, "topics_query_failed", err)
	}
	for _, topic := range topics {
		doc.Topics = append(doc.Topics, BackupTopic{
			TopicID:   topic.TopicID,
			Name:      topic.Name,
			ParentID:  topic.ParentID,
			SortOrder: topic.SortOrder,
			CreatedAt: topic.CreatedAt,
			UpdatedAt: topic.UpdatedAt,
		})
	}

	var allSeries []Series
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&allSeries).Error; err != nil {
		s.logError(opExportBackup, "series_query_failed", err)
		return BackupDocument{}, apperr.New(opExportBackup, "series_query_failed", err)
	}
	for _, series := range allSeries {
		row := BackupSeries{
			SeriesID:    series.SeriesID,
			Title:       series.Title,
			Description: series.Description,
			CreatedAt:   series.CreatedAt,
			UpdatedAt:   series.UpdatedAt,
		}
		var items []SeriesItem
		if err := s.db.WithContext(ctx).
			Where("series_id = ?", series.SeriesID).
			Order("position ASC").
			Find(&items).Error; err != nil {
			s.logError(opExportBackup, "series_items_query_failed", err, zap.String("series_id", series.SeriesID))
			return BackupDocument{}, apperr.New(opExportBackup, "series_items_query_failed", err)
		}
		for _, item := range items {
			row.NoteIDs = append(row.NoteIDs, item.NoteID)
		}
		doc.Series = append(doc.Series, row)
	}

	return doc, nil
}

// ImportBackup upserts backup rows by id inside one transaction. Rows failing
// validation are counted and skipped; storage failures abort the import.
func (s *Service) ImportBackup(ctx context.Context, doc BackupDocument) (ImportReport, error) {
	if doc.FormatVersion != BackupFormatVersion {
		return ImportReport{}, apperr.New(opImportBackup, "unsupported_version",
			fmt.Errorf("%w: %d", ErrUnsupportedBackupVersion, doc.FormatVersion))
	}

	report := ImportReport{}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.importTopics(tx, doc.Topics, &report); err != nil {
			return err
		}
		if err := s.importNotes(tx, doc.Notes, &report); err != nil {
			return err
		}
		return s.importSeries(tx, doc.Series, &report)
	})
	if txErr != nil {
		s.logError(opImportBackup, "transaction_failed", txErr)
		return ImportReport{}, apperr.New(opImportBackup, "transaction_failed", txErr)
	}

	s.logger.Info("backup import finished",
		zap.Int("notes_inserted", report.Notes.Inserted),
		zap.Int("notes_updated", report.Notes.Updated),
		zap.Int("notes_errored", report.Notes.Errored),
		zap.Int("topics_inserted", report.Topics.Inserted),
		zap.Int("series_inserted", report.Series.Inserted))
	return report, nil
}

func (s *Service) importTopics(tx *gorm.DB, rows []BackupTopic, report *ImportReport) error {
	for _, row := range rows {
		topicID := strings.TrimSpace(row.TopicID)
		if topicID == "" || len(topicID) > maxIdentifierLength {
			report.Topics.Errored++
			report.Errors = append(report.Errors, ImportRowError{Entity: "topic", ID: row.TopicID, Reason: ErrInvalidTopicID.Error()})
			continue
		}
		if strings.TrimSpace(row.Name) == "" {
			report.Topics.Errored++
			report.Errors = append(report.Errors, ImportRowError{Entity: "topic", ID: topicID, Reason: ErrMissingTopicName.Error()})
			continue
		}

		topic := Topic{
			TopicID:   topicID,
			Name:      strings.TrimSpace(row.Name),
			ParentID:  row.ParentID,
			SortOrder: row.SortOrder,
			CreatedAt: orNow(row.CreatedAt, s.now),
			UpdatedAt: orNow(row.UpdatedAt, s.now),
		}
		inserted, err := upsertByID(tx, &Topic{}, "topic_id = ?", topicID, &topic)
		if err != nil {
			return err
		}
		if inserted {
			report.Topics.Inserted++
		} else {
			report.Topics.Updated++
		}
	}
	return nil
}

func (s *Service) importNotes(tx *gorm.DB, rows []BackupNote, report *ImportReport) error {
	for _, row := range rows {
		noteID := strings.TrimSpace(row.NoteID)
		if noteID == "" || len(noteID) > maxIdentifierLength {
			report.Notes.Errored++
			report.Errors = append(report.Errors, ImportRowError{Entity: "note", ID: row.NoteID, Reason: ErrInvalidNoteID.Error()})
			continue
		}
		kind, err := ParseKind(row.Kind)
		if err != nil {
			report.Notes.Errored++
			report.Errors = append(report.Errors, ImportRowError{Entity: "note", ID: noteID, Reason: err.Error()})
			continue
		}
		if strings.TrimSpace(row.Title) == "" {
			report.Notes.Errored++
			report.Errors = append(report.Errors, ImportRowError{Entity: "note", ID: noteID, Reason: ErrMissingTitle.Error()})
			continue
		}
		ref, err := scripture.NewReference(row.Book, row.StartChapter, row.StartVerse, row.EndChapter, row.EndVerse)
		if err != nil {
			report.Notes.Errored++
			report.Errors = append(report.Errors, ImportRowError{Entity: "note", ID: noteID, Reason: err.Error()})
			continue
		}

		note := Note{
			NoteID:       noteID,
			Kind:         kind,
			Title:        strings.TrimSpace(row.Title),
			Content:      row.Content,
			Book:         ref.Book,
			StartChapter: ref.StartChapter,
			StartVerse:   ref.StartVerse,
			EndChapter:   ref.EndChapter,
			EndVerse:     ref.EndVerse,
			CreatedAt:    orNow(row.CreatedAt, s.now),
			UpdatedAt:    orNow(row.UpdatedAt, s.now),
		}
		inserted, err := upsertByID(tx, &Note{}, "note_id = ?", noteID, &note)
		if err != nil {
			return err
		}
		if inserted {
			report.Notes.Inserted++
		} else {
			report.Notes.Updated++
		}

		topicIDs := make([]string, 0, len(row.TopicIDs))
		for _, topicID := range row.TopicIDs {
			var topic Topic
			err := tx.Where("topic_id = ?", topicID).Take(&topic).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				report.Errors = append(report.Errors, ImportRowError{
					Entity: "note", ID: noteID, Reason: fmt.Sprintf("unknown topic %q", topicID)})
				continue
			}
			if err != nil {
				return err
			}
			topicIDs = append(topicIDs, topicID)
		}
		if err := s.replaceTopicLinks(tx, noteID, topicIDs); err != nil {
			return err
		}

		tags := make([]InlineTagInput, 0, len(row.InlineTags))
		for _, tag := range row.InlineTags {
			tags = append(tags, InlineTagInput{Label: tag.Label, Excerpt: tag.Excerpt})
		}
		if err := s.replaceInlineTags(tx, noteID, tags); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) importSeries(tx *gorm.DB, rows []BackupSeries, report *ImportReport) error {
	for _, row := range rows {
		seriesID := strings.TrimSpace(row.SeriesID)
		if seriesID == "" || len(seriesID) > maxIdentifierLength {
			report.Series.Errored++
			report.Errors = append(report.Errors, ImportRowError{Entity: "series", ID: row.SeriesID, Reason: ErrInvalidSeriesID.Error()})
			continue
		}
		if strings.TrimSpace(row.Title) == "" {
			report.Series.Errored++
			report.Errors = append(report.Errors, ImportRowError{Entity: "series", ID: seriesID, Reason: ErrMissingTitle.Error()})
			continue
		}

		series := Series{
			SeriesID:    seriesID,
			Title:       strings.TrimSpace(row.Title),
			Description: row.Description,
			CreatedAt:   orNow(row.CreatedAt, s.now),
			UpdatedAt:   orNow(row.UpdatedAt, s.now),
		}
		inserted, err := upsertByID(tx, &Series{}, "series_id = ?", seriesID, &series)
		if err != nil {
			return err
		}
		if inserted {
			report.Series.Inserted++
		} else {
			report.Series.Updated++
		}

		if err := tx.Where("series_id = ?", seriesID).Delete(&SeriesItem{}).Error; err != nil {
			return err
		}
		position := 0
		for _, noteID := range row.NoteIDs {
			var note Note
			err := tx.Where("note_id = ?", noteID).Take(&note).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				report.Errors = append(report.Errors, ImportRowError{
					Entity: "series", ID: seriesID, Reason: fmt.Sprintf("unknown note %q", noteID)})
				continue
			}
			if err != nil {
				return err
			}
			item := SeriesItem{SeriesID: seriesID, NoteID: noteID, Position: position}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			position++
		}
	}
	return nil
}

func upsertByID(tx *gorm.DB, model interface{}, condition, id string, value interface{}) (bool, error) {
	err := tx.Where(condition, id).Take(model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, tx.Create(value).Error
	}
	if err != nil {
		return false, err
	}
	return false, tx.Save(value).Error
}

func orNow(value string, now func() string) string {
	if strings.TrimSpace(value) == "" {
		return now()
	}
	return value
}
