package theology

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pericope-app/pericope/internal/apperr"
	"github.com/pericope-app/pericope/internal/ident"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingEntryID    = errors.New("entry identifier is required")
	errEntryNotFound     = errors.New("entry not found")
	errAnnotationMissing = errors.New("annotation not found")
	errEmptyQuery        = errors.New("search query is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew       = "theology.service.new"
	opImportCorpus     = "theology.import_corpus"
	opOutline          = "theology.outline"
	opGetEntry         = "theology.get_entry"
	opUpsertEntry      = "theology.upsert_entry"
	opDeleteEntry      = "theology.delete_entry"
	opResolve          = "theology.resolve"
	opTokenForEntry    = "theology.token_for_entry"
	opEntriesForPass   = "theology.entries_for_passage"
	opSearch           = "theology.search"
	opListAnnotations  = "theology.list_annotations"
	opCreateAnnotation = "theology.create_annotation"
	opUpdateAnnotation = "theology.update_annotation"
	opDeleteAnnotation = "theology.delete_annotation"
)

// ServiceConfig bundles the dependencies for the theology service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ident.Provider
	Logger     *zap.Logger
}

// Service exposes the systematic theology corpus: outline reads, reference
// resolution, scripture index lookups, annotations, and corpus import.
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

// Outline returns the full doctrinal outline as a sorted forest.
func (s *Service) Outline(ctx context.Context) ([]*Node, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Order("sort_order ASC").Find(&entries).Error; err != nil {
		s.logError(opOutline, "query_failed", err)
		return nil, apperr.New(opOutline, "query_failed", err)
	}

	roots, err := BuildTree(entries)
	if err != nil {
		s.logError(opOutline, "cyclic_outline", err)
		return nil, apperr.New(opOutline, "cyclic_outline", err)
	}
	return roots, nil
}

// EntryDetail carries one entry with its scripture index rows and annotations.
type EntryDetail struct {
	Entry         Entry
	Token         string
	ScriptureRefs []ScriptureRef
	Annotations   []Annotation
}

// GetEntry loads an entry together with its scripture references and annotations.
func (s *Service) GetEntry(ctx context.Context, entryID string) (EntryDetail, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return EntryDetail{}, apperr.New(opGetEntry, "missing_entry_id", errMissingEntryID)
	}

	var entry Entry
	err := s.db.WithContext(ctx).Where("entry_id = ?", entryID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EntryDetail{}, apperr.New(opGetEntry, "not_found", errEntryNotFound)
	}
	if err != nil {
		s.logError(opGetEntry, "query_failed", err, zap.String("entry_id", entryID))
		return EntryDetail{}, apperr.New(opGetEntry, "query_failed", err)
	}

	detail := EntryDetail{Entry: entry}
	if token, err := s.tokenFor(ctx, entry); err == nil {
		detail.Token = token
	}

	if err := s.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("book ASC, chapter ASC, start_verse ASC").
		Find(&detail.ScriptureRefs).Error; err != nil {
		s.logError(opGetEntry, "refs_query_failed", err, zap.String("entry_id", entryID))
		return EntryDetail{}, apperr.New(opGetEntry, "refs_query_failed", err)
	}
	if err := s.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at ASC").
		Find(&detail.Annotations).Error; err != nil {
		s.logError(opGetEntry, "annotations_query_failed", err, zap.String("entry_id", entryID))
		return EntryDetail{}, apperr.New(opGetEntry, "annotations_query_failed", err)
	}
	return detail, nil
}

// UpsertEntry creates or rewrites a single outline entry.
func (s *Service) UpsertEntry(ctx context.Context, entry Entry) (Entry, error) {
	if err := entry.Validate(); err != nil {
		return Entry{}, apperr.New(opUpsertEntry, "invalid_entry", err)
	}

	now := s.now()
	entry.UpdatedAt = now
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Entry
		err := tx.Where("entry_id = ?", entry.EntryID).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			entry.CreatedAt = now
			return tx.Create(&entry).Error
		}
		if err != nil {
			return err
		}
		entry.CreatedAt = existing.CreatedAt
		return tx.Save(&entry).Error
	})
	if err != nil {
		s.logError(opUpsertEntry, "write_failed", err, zap.String("entry_id", entry.EntryID))
		return Entry{}, apperr.New(opUpsertEntry, "write_failed", err)
	}
	return entry, nil
}

// DeleteEntry removes an entry. Children and scripture references cascade
// through the storage layer's foreign keys.
func (s *Service) DeleteEntry(ctx context.Context, entryID string) error {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return apperr.New(opDeleteEntry, "missing_entry_id", errMissingEntryID)
	}
	result := s.db.WithContext(ctx).Where("entry_id = ?", entryID).Delete(&Entry{})
	if result.Error != nil {
		s.logError(opDeleteEntry, "delete_failed", result.Error, zap.String("entry_id", entryID))
		return apperr.New(opDeleteEntry, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(opDeleteEntry, "not_found", errEntryNotFound)
	}
	return nil
}

// Resolve maps a reference token to its entry. Malformed tokens and tokens
// addressing no entry both resolve to nil without an error.
func (s *Service) Resolve(ctx context.Context, token string) (*Entry, error) {
	address, ok := ParseToken(token)
	if !ok {
		return nil, nil
	}
	return s.ResolveAddress(ctx, address)
}

// ResolveAddress finds the entry for a decoded token address by exact match,
// case-insensitively on the section letter.
func (s *Service) ResolveAddress(ctx context.Context, address Address) (*Entry, error) {
	var chapter Entry
	err := s.db.WithContext(ctx).
		Where("kind = ? AND chapter_number = ?", KindChapter, address.Chapter).
		Take(&chapter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logError(opResolve, "chapter_query_failed", err, zap.Int("chapter", address.Chapter))
		return nil, apperr.New(opResolve, "chapter_query_failed", err)
	}
	if address.SectionLetter == "" {
		return &chapter, nil
	}

	var section Entry
	err = s.db.WithContext(ctx).
		Where("parent_id = ? AND kind = ? AND UPPER(section_letter) = ?",
			chapter.EntryID, KindSection, strings.ToUpper(address.SectionLetter)).
		Take(&section).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logError(opResolve, "section_query_failed", err, zap.Int("chapter", address.Chapter))
		return nil, apperr.New(opResolve, "section_query_failed", err)
	}
	if address.SubsectionNumber == 0 {
		return &section, nil
	}

	var subsection Entry
	err = s.db.WithContext(ctx).
		Where("parent_id = ? AND kind = ? AND subsection_number = ?",
			section.EntryID, KindSubsection, address.SubsectionNumber).
		Take(&subsection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logError(opResolve, "subsection_query_failed", err, zap.Int("chapter", address.Chapter))
		return nil, apperr.New(opResolve, "subsection_query_failed", err)
	}
	return &subsection, nil
}

// TokenForEntry renders the canonical reference token for an addressable
// entry. Parts and other non-addressable entries return ok=false.
func (s *Service) TokenForEntry(ctx context.Context, entryID string) (string, bool, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where("entry_id = ?", strings.TrimSpace(entryID)).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, apperr.New(opTokenForEntry, "not_found", errEntryNotFound)
	}
	if err != nil {
		s.logError(opTokenForEntry, "query_failed", err, zap.String("entry_id", entryID))
		return "", false, apperr.New(opTokenForEntry, "query_failed", err)
	}
	token, err := s.tokenFor(ctx, entry)
	if err != nil {
		s.logError(opTokenForEntry, "ancestry_query_failed", err, zap.String("entry_id", entryID))
		return "", false, apperr.New(opTokenForEntry, "ancestry_query_failed", err)
	}
	return token, token != "", nil
}

func (s *Service) tokenFor(ctx context.Context, entry Entry) (string, error) {
	switch entry.Kind {
	case KindChapter:
		if entry.ChapterNumber == nil {
			return "", nil
		}
		return FormatToken(Address{Chapter: *entry.ChapterNumber}), nil
	case KindSection:
		if entry.ParentID == nil {
			return "", nil
		}
		parent, err := s.loadEntry(ctx, *entry.ParentID)
		if err != nil || parent == nil || parent.ChapterNumber == nil {
			return "", err
		}
		return FormatToken(Address{
			Chapter:       *parent.ChapterNumber,
			SectionLetter: strings.ToUpper(entry.SectionLetter),
		}), nil
	case KindSubsection:
		if entry.ParentID == nil || entry.SubsectionNumber == nil {
			return "", nil
		}
		section, err := s.loadEntry(ctx, *entry.ParentID)
		if err != nil || section == nil || section.ParentID == nil {
			return "", err
		}
		chapter, err := s.loadEntry(ctx, *section.ParentID)
		if err != nil || chapter == nil || chapter.ChapterNumber == nil {
			return "", err
		}
		return FormatToken(Address{
			Chapter:          *chapter.ChapterNumber,
			SectionLetter:    strings.ToUpper(section.SectionLetter),
			SubsectionNumber: *entry.SubsectionNumber,
		}), nil
	default:
		return "", nil
	}
}

func (s *Service) loadEntry(ctx context.Context, entryID string) (*Entry, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where("entry_id = ?", entryID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PassageEntry pairs an entry with the scripture index row that matched.
type PassageEntry struct {
	Entry Entry
	Ref   ScriptureRef
}

// EntriesForPassage lists entries whose scripture index covers the chapter.
func (s *Service) EntriesForPassage(ctx context.Context, book string, chapter int) ([]PassageEntry, error) {
	book = strings.ToUpper(strings.TrimSpace(book))
	if book == "" || chapter < 1 {
		return nil, apperr.New(opEntriesForPass, "invalid_passage", fmt.Errorf("book %q chapter %d", book, chapter))
	}

	var refs []ScriptureRef
	if err := s.db.WithContext(ctx).
		Where("book = ? AND chapter = ?", book, chapter).
		Order("start_verse ASC").
		Find(&refs).Error; err != nil {
		s.logError(opEntriesForPass, "refs_query_failed", err, zap.String("book", book), zap.Int("chapter", chapter))
		return nil, apperr.New(opEntriesForPass, "refs_query_failed", err)
	}
	if len(refs) == 0 {
		return nil, nil
	}

	entryIDs := make([]string, 0, len(refs))
	for _, ref := range refs {
		entryIDs = append(entryIDs, ref.EntryID)
	}
	var entries []Entry
	if err := s.db.WithContext(ctx).Where("entry_id IN ?", entryIDs).Find(&entries).Error; err != nil {
		s.logError(opEntriesForPass, "entries_query_failed", err, zap.String("book", book), zap.Int("chapter", chapter))
		return nil, apperr.New(opEntriesForPass, "entries_query_failed", err)
	}
	entriesByID := make(map[string]Entry, len(entries))
	for _, entry := range entries {
		entriesByID[entry.EntryID] = entry
	}

	results := make([]PassageEntry, 0, len(refs))
	for _, ref := range refs {
		entry, ok := entriesByID[ref.EntryID]
		if !ok {
			continue
		}
		results = append(results, PassageEntry{Entry: entry, Ref: ref})
	}
	return results, nil
}

// Search runs a full-text query over entry titles, summaries, and bodies.
// Ranking is delegated to the storage engine.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(opSearch, "missing_query", errEmptyQuery)
	}
	if limit <= 0 {
		limit = 20
	}

	var entries []Entry
	err := s.db.WithContext(ctx).Raw(
		`SELECT e.* FROM theology_entries e
		 JOIN theology_search ts ON ts.entry_id = e.entry_id
		 WHERE theology_search MATCH ?
		 ORDER BY rank LIMIT ?`, query, limit).Scan(&entries).Error
	if err != nil {
		s.logError(opSearch, "query_failed", err, zap.String("query", query))
		return nil, apperr.New(opSearch, "query_failed", err)
	}
	return entries, nil
}

// ListAnnotations returns every annotation attached to an entry.
func (s *Service) ListAnnotations(ctx context.Context, entryID string) ([]Annotation, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return nil, apperr.New(opListAnnotations, "missing_entry_id", errMissingEntryID)
	}
	var annotations []Annotation
	if err := s.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at ASC").
		Find(&annotations).Error; err != nil {
		s.logError(opListAnnotations, "query_failed", err, zap.String("entry_id", entryID))
		return nil, apperr.New(opListAnnotations, "query_failed", err)
	}
	return annotations, nil
}

// CreateAnnotation attaches a highlight or note to an entry.
func (s *Service) CreateAnnotation(ctx context.Context, entryID string, kind AnnotationKind, body string) (Annotation, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return Annotation{}, apperr.New(opCreateAnnotation, "missing_entry_id", errMissingEntryID)
	}
	if _, err := ParseAnnotationKind(string(kind)); err != nil {
		return Annotation{}, apperr.New(opCreateAnnotation, "invalid_kind", err)
	}

	var entry Entry
	err := s.db.WithContext(ctx).Where("entry_id = ?", entryID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Annotation{}, apperr.New(opCreateAnnotation, "entry_not_found", errEntryNotFound)
	}
	if err != nil {
		s.logError(opCreateAnnotation, "entry_query_failed", err, zap.String("entry_id", entryID))
		return Annotation{}, apperr.New(opCreateAnnotation, "entry_query_failed", err)
	}

	annotationID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateAnnotation, "id_generation_failed", err)
		return Annotation{}, apperr.New(opCreateAnnotation, "id_generation_failed", err)
	}
	now := s.now()
	annotation := Annotation{
		AnnotationID: annotationID,
		EntryID:      entryID,
		Kind:         kind,
		Body:         body,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&annotation).Error; err != nil {
		s.logError(opCreateAnnotation, "insert_failed", err, zap.String("entry_id", entryID))
		return Annotation{}, apperr.New(opCreateAnnotation, "insert_failed", err)
	}
	return annotation, nil
}

// UpdateAnnotation rewrites the body of an existing annotation.
func (s *Service) UpdateAnnotation(ctx context.Context, annotationID, body string) (Annotation, error) {
	annotationID = strings.TrimSpace(annotationID)
	if annotationID == "" {
		return Annotation{}, apperr.New(opUpdateAnnotation, "missing_annotation_id", errAnnotationMissing)
	}

	var annotation Annotation
	err := s.db.WithContext(ctx).Where("annotation_id = ?", annotationID).Take(&annotation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Annotation{}, apperr.New(opUpdateAnnotation, "not_found", errAnnotationMissing)
	}
	if err != nil {
		s.logError(opUpdateAnnotation, "query_failed", err, zap.String("annotation_id", annotationID))
		return Annotation{}, apperr.New(opUpdateAnnotation, "query_failed", err)
	}

	annotation.Body = body
	annotation.UpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Save(&annotation).Error; err != nil {
		s.logError(opUpdateAnnotation, "save_failed", err, zap.String("annotation_id", annotationID))
		return Annotation{}, apperr.New(opUpdateAnnotation, "save_failed", err)
	}
	return annotation, nil
}

// DeleteAnnotation removes one annotation.
func (s *Service) DeleteAnnotation(ctx context.Context, annotationID string) error {
	annotationID = strings.TrimSpace(annotationID)
	if annotationID == "" {
		return apperr.New(opDeleteAnnotation, "missing_annotation_id", errAnnotationMissing)
	}
	result := s.db.WithContext(ctx).Where("annotation_id = ?", annotationID).Delete(&Annotation{})
	if result.Error != nil {
		s.logError(opDeleteAnnotation, "delete_failed", result.Error, zap.String("annotation_id", annotationID))
		return apperr.New(opDeleteAnnotation, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(opDeleteAnnotation, "not_found", errAnnotationMissing)
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
	s.logger.Error("theology service error", attrs...)
}
