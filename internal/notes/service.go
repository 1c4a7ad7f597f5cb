package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pericope-app/pericope/internal/apperr"
	"github.com/pericope-app/pericope/internal/ident"
	"github.com/pericope-app/pericope/internal/scripture"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errNoteNotFound      = errors.New("note not found")
	errEmptyQuery        = errors.New("search query is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew    = "notes.service.new"
	opCreateNote    = "notes.create"
	opUpdateNote    = "notes.update"
	opDeleteNote    = "notes.delete"
	opGetNote       = "notes.get"
	opListNotes     = "notes.list"
	opSearchNotes   = "notes.search"
	opListTagLabels = "notes.list_tag_labels"
)

// ServiceConfig bundles the dependencies for the notes service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ident.Provider
	Logger     *zap.Logger
}

// Service exposes CRUD, passage queries, and full-text search for notes,
// topics, inline tags, and sermon series.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider ident.Provider
	logger     *zap.Logger
}

// NewService validates configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, apperr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

func (s *Service) now() string {
	return s.clock().UTC().Format(time.RFC3339)
}

// InlineTagInput describes one labeled span supplied on note save.
type InlineTagInput struct {
	Label   string
	Excerpt string
}

// NoteInput carries the client-supplied fields for creating or updating a note.
type NoteInput struct {
	Kind         string
	Title        string
	Content      string
	Book         string
	StartChapter int
	StartVerse   int
	EndChapter   int
	EndVerse     int
	TopicIDs     []string
	InlineTags   []InlineTagInput
}

// NoteDetail is a note together with its topic links and inline tags.
type NoteDetail struct {
	Note       Note
	TopicIDs   []string
	InlineTags []InlineTag
}

func (s *Service) validateInput(operation string, input NoteInput) (Kind, scripture.Reference, error) {
	kind, err := ParseKind(input.Kind)
	if err != nil {
		return "", scripture.Reference{}, apperr.New(operation, "invalid_kind", err)
	}
	if strings.TrimSpace(input.Title) == "" {
		return "", scripture.Reference{}, apperr.New(operation, "missing_title", ErrMissingTitle)
	}
	ref, err := scripture.NewReference(input.Book, input.StartChapter, input.StartVerse, input.EndChapter, input.EndVerse)
	if err != nil {
		return "", scripture.Reference{}, apperr.New(operation, "invalid_reference", err)
	}
	return kind, ref, nil
}

// CreateNote persists a new note with its topic links and inline tags.
func (s *Service) CreateNote(ctx context.Context, input NoteInput) (NoteDetail, error) {
	kind, ref, err := s.validateInput(opCreateNote, input)
	if err != nil {
		return NoteDetail{}, err
	}

	noteID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateNote, "id_generation_failed", err)
		return NoteDetail{}, apperr.New(opCreateNote, "id_generation_failed", err)
	}

	now := s.now()
	note := Note{
		NoteID:       noteID,
		Kind:         kind,
		Title:        strings.TrimSpace(input.Title),
		Content:      input.Content,
		Book:         ref.Book,
		StartChapter: ref.StartChapter,
		StartVerse:   ref.StartVerse,
		EndChapter:   ref.EndChapter,
		EndVerse:     ref.EndVerse,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&note).Error; err != nil {
			return err
		}
		if err := s.replaceTopicLinks(tx, noteID, input.TopicIDs); err != nil {
			return err
		}
		return s.replaceInlineTags(tx, noteID, input.InlineTags)
	})
	if txErr != nil {
		s.logError(opCreateNote, "write_failed", txErr, zap.String("note_id", noteID))
		return NoteDetail{}, apperr.New(opCreateNote, "write_failed", txErr)
	}

	return s.GetNote(ctx, noteID)
}

// UpdateNote rewrites an existing note, replacing topic links and inline tags
// as a set. UpdatedAt always advances.
func (s *Service) UpdateNote(ctx context.Context, noteID string, input NoteInput) (NoteDetail, error) {
	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return NoteDetail{}, apperr.New(opUpdateNote, "missing_note_id", ErrInvalidNoteID)
	}
	kind, ref, err := s.validateInput(opUpdateNote, input)
	if err != nil {
		return NoteDetail{}, err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note Note
		err := tx.Where("note_id = ?", noteID).Take(&note).Error
		if err != nil {
			return err
		}
		note.Kind = kind
		note.Title = strings.TrimSpace(input.Title)
		note.Content = input.Content
		note.Book = ref.Book
		note.StartChapter = ref.StartChapter
		note.StartVerse = ref.StartVerse
		note.EndChapter = ref.EndChapter
		note.EndVerse = ref.EndVerse
		note.UpdatedAt = s.now()
		if err := tx.Save(&note).Error; err != nil {
			return err
		}
		if err := s.replaceTopicLinks(tx, noteID, input.TopicIDs); err != nil {
			return err
		}
		return s.replaceInlineTags(tx, noteID, input.InlineTags)
	})
	if errors.Is(txErr, gorm.ErrRecordNotFound) {
		return NoteDetail{}, apperr.New(opUpdateNote, "not_found", errNoteNotFound)
	}
	if txErr != nil {
		s.logError(opUpdateNote, "write_failed", txErr, zap.String("note_id", noteID))
		return NoteDetail{}, apperr.New(opUpdateNote, "write_failed", txErr)
	}

	return s.GetNote(ctx, noteID)
}

// DeleteNote removes a note; inline tags and topic links cascade.
func (s *Service) DeleteNote(ctx context.Context, noteID string) error {
	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return apperr.New(opDeleteNote, "missing_note_id", ErrInvalidNoteID)
	}
	result := s.db.WithContext(ctx).Where("note_id = ?", noteID).Delete(&Note{})
	if result.Error != nil {
		s.logError(opDeleteNote, "delete_failed", result.Error, zap.String("note_id", noteID))
		return apperr.New(opDeleteNote, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(opDeleteNote, "not_found", errNoteNotFound)
	}
	return nil
}

// GetNote loads one note with topic ids and inline tags.
func (s *Service) GetNote(ctx context.Context, noteID string) (NoteDetail, error) {
	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return NoteDetail{}, apperr.New(opGetNote, "missing_note_id", ErrInvalidNoteID)
	}

	var note Note
	err := s.db.WithContext(ctx).Where("note_id = ?", noteID).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NoteDetail{}, apperr.New(opGetNote, "not_found", errNoteNotFound)
	}
	if err != nil {
		s.logError(opGetNote, "query_failed", err, zap.String("note_id", noteID))
		return NoteDetail{}, apperr.New(opGetNote, "query_failed", err)
	}

	detail := NoteDetail{Note: note}
	var links []NoteTopic
	if err := s.db.WithContext(ctx).Where("note_id = ?", noteID).Find(&links).Error; err != nil {
		s.logError(opGetNote, "topics_query_failed", err, zap.String("note_id", noteID))
		return NoteDetail{}, apperr.New(opGetNote, "topics_query_failed", err)
	}
	for _, link := range links {
		detail.TopicIDs = append(detail.TopicIDs, link.TopicID)
	}
	if err := s.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("created_at ASC").
		Find(&detail.InlineTags).Error; err != nil {
		s.logError(opGetNote, "tags_query_failed", err, zap.String("note_id", noteID))
		return NoteDetail{}, apperr.New(opGetNote, "tags_query_failed", err)
	}
	return detail, nil
}

// ListFilter narrows ListNotes results. Zero values leave a dimension
// unconstrained; Chapter matches notes whose chapter range covers it.
type ListFilter struct {
	Book    string
	Chapter int
	Kind    string
	TopicID string
	Limit   int
}

// ListNotes returns notes matching the filter, most recently updated first.
func (s *Service) ListNotes(ctx context.Context, filter ListFilter) ([]Note, error) {
	query := s.db.WithContext(ctx).Model(&Note{})

	if book := strings.ToUpper(strings.TrimSpace(filter.Book)); book != "" {
		if _, ok := scripture.LookupBook(book); !ok {
			return nil, apperr.New(opListNotes, "invalid_book", fmt.Errorf("%w: %q", scripture.ErrUnknownBook, filter.Book))
		}
		query = query.Where("book = ?", book)
		if filter.Chapter > 0 {
			query = query.Where("start_chapter <= ? AND end_chapter >= ?", filter.Chapter, filter.Chapter)
		}
	}
	if strings.TrimSpace(filter.Kind) != "" {
		kind, err := ParseKind(filter.Kind)
		if err != nil {
			return nil, apperr.New(opListNotes, "invalid_kind", err)
		}
		query = query.Where("kind = ?", kind)
	}
	if topicID := strings.TrimSpace(filter.TopicID); topicID != "" {
		query = query.Where("note_id IN (?)",
			s.db.Model(&NoteTopic{}).Select("note_id").Where("topic_id = ?", topicID))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var results []Note
	if err := query.Order("updated_at DESC").Find(&results).Error; err != nil {
		s.logError(opListNotes, "query_failed", err)
		return nil, apperr.New(opListNotes, "query_failed", err)
	}
	return results, nil
}

// SearchNotes runs a full-text query over note titles and content. Ranking
// is delegated to the storage engine.
func (s *Service) SearchNotes(ctx context.Context, query string, limit int) ([]Note, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(opSearchNotes, "missing_query", errEmptyQuery)
	}
	if limit <= 0 {
		limit = 20
	}

	var results []Note
	err := s.db.WithContext(ctx).Raw(
		`SELECT n.* FROM notes n
		 JOIN note_search ns ON ns.note_id = n.note_id
		 WHERE note_search MATCH ?
		 ORDER BY rank LIMIT ?`, query, limit).Scan(&results).Error
	if err != nil {
		s.logError(opSearchNotes, "query_failed", err, zap.String("query", query))
		return nil, apperr.New(opSearchNotes, "query_failed", err)
	}
	return results, nil
}

// TagLabelCount pairs an inline tag label with its usage count.
type TagLabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ListTagLabels returns distinct inline tag labels with usage counts.
func (s *Service) ListTagLabels(ctx context.Context) ([]TagLabelCount, error) {
	var labels []TagLabelCount
	err := s.db.WithContext(ctx).Model(&InlineTag{}).
		Select("label, COUNT(*) AS count").
		Group("label").
		Order("count DESC, label ASC").
		Scan(&labels).Error
	if err != nil {
		s.logError(opListTagLabels, "query_failed", err)
		return nil, apperr.New(opListTagLabels, "query_failed", err)
	}
	return labels, nil
}

func (s *Service) replaceTopicLinks(tx *gorm.DB, noteID string, topicIDs []string) error {
	if err := tx.Where("note_id = ?", noteID).Delete(&NoteTopic{}).Error; err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(topicIDs))
	for _, topicID := range topicIDs {
		topicID = strings.TrimSpace(topicID)
		if topicID == "" {
			continue
		}
		if _, dup := seen[topicID]; dup {
			continue
		}
		seen[topicID] = struct{}{}
		var topic Topic
		if err := tx.Where("topic_id = ?", topicID).Take(&topic).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("unknown topic %q", topicID)
			}
			return err
		}
		if err := tx.Create(&NoteTopic{NoteID: noteID, TopicID: topicID}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) replaceInlineTags(tx *gorm.DB, noteID string, tags []InlineTagInput) error {
	if err := tx.Where("note_id = ?", noteID).Delete(&InlineTag{}).Error; err != nil {
		return err
	}
	for _, tag := range tags {
		label := strings.TrimSpace(tag.Label)
		if label == "" {
			continue
		}
		tagID, err := s.idProvider.NewID()
		if err != nil {
			return err
		}
		record := InlineTag{
			TagID:     tagID,
			NoteID:    noteID,
			Label:     label,
			Excerpt:   tag.Excerpt,
			CreatedAt: s.now(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("notes service error", attrs...)
}
