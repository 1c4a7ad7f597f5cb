package study

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pericope-app/pericope/internal/apperr"
	"github.com/pericope-app/pericope/internal/ident"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase    = errors.New("database handle is required")
	errMissingIDProvider  = errors.New("id provider is required")
	errMissingReferenceID = errors.New("reference identifier is required")
	noOpLogger            = zap.NewNop()
)

const (
	opServiceNew = "study.service.new"
	opLog        = "study.log"
	opSummary    = "study.summary"
	opRecent     = "study.recent"
)

const defaultSummaryWindowDays = 30

// ServiceConfig bundles the dependencies for the study history service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ident.Provider
	Logger     *zap.Logger
}

// Service records and summarizes study history. The log is append-only;
// deduplication is the caller's concern.
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

// Log appends one immutable session row.
func (s *Service) Log(ctx context.Context, kind SessionKind, referenceID, noteID string) (Session, error) {
	if _, err := ParseSessionKind(string(kind)); err != nil {
		return Session{}, apperr.New(opLog, "invalid_kind", err)
	}
	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return Session{}, apperr.New(opLog, "missing_reference_id", errMissingReferenceID)
	}

	sessionID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opLog, "id_generation_failed", err)
		return Session{}, apperr.New(opLog, "id_generation_failed", err)
	}
	session := Session{
		SessionID:   sessionID,
		Kind:        kind,
		ReferenceID: referenceID,
		NoteID:      strings.TrimSpace(noteID),
		ViewedAt:    s.clock().UTC().Format(time.RFC3339),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		s.logError(opLog, "insert_failed", err, zap.String("reference_id", referenceID))
		return Session{}, apperr.New(opLog, "insert_failed", err)
	}
	return session, nil
}

// ReferenceCount is the view count of one reference within the window.
type ReferenceCount struct {
	Kind        SessionKind `json:"kind"`
	ReferenceID string      `json:"reference_id"`
	Views       int         `json:"views"`
	LastViewed  string      `json:"last_viewed"`
}

// DayCount is the number of sessions logged on one day.
type DayCount struct {
	Day   string `json:"day"`
	Views int    `json:"views"`
}

// Summary aggregates the window's sessions by reference and by day.
type Summary struct {
	WindowDays int              `json:"window_days"`
	Since      string           `json:"since"`
	Total      int              `json:"total"`
	References []ReferenceCount `json:"references"`
	Days       []DayCount       `json:"days"`
}

// Summarize groups sessions inside a trailing window of whole days.
func (s *Service) Summarize(ctx context.Context, windowDays int) (Summary, error) {
	if windowDays <= 0 {
		windowDays = defaultSummaryWindowDays
	}
	since := s.clock().UTC().AddDate(0, 0, -windowDays).Format(time.RFC3339)

	summary := Summary{WindowDays: windowDays, Since: since}

	if err := s.db.WithContext(ctx).Model(&Session{}).
		Select("kind, reference_id, COUNT(*) AS views, MAX(viewed_at) AS last_viewed").
		Where("viewed_at >= ?", since).
		Group("kind, reference_id").
		Order("views DESC, last_viewed DESC").
		Scan(&summary.References).Error; err != nil {
		s.logError(opSummary, "reference_query_failed", err)
		return Summary{}, apperr.New(opSummary, "reference_query_failed", err)
	}
	for _, ref := range summary.References {
		summary.Total += ref.Views
	}

	// RFC3339 sorts lexicographically, so the date prefix doubles as the
	// grouping key.
	if err := s.db.WithContext(ctx).Model(&Session{}).
		Select("substr(viewed_at, 1, 10) AS day, COUNT(*) AS views").
		Where("viewed_at >= ?", since).
		Group("day").
		Order("day ASC").
		Scan(&summary.Days).Error; err != nil {
		s.logError(opSummary, "day_query_failed", err)
		return Summary{}, apperr.New(opSummary, "day_query_failed", err)
	}

	return summary, nil
}

// Recent returns the newest session rows, most recent first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []Session
	if err := s.db.WithContext(ctx).
		Order("viewed_at DESC, session_id DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		s.logError(opRecent, "query_failed", err)
		return nil, apperr.New(opRecent, "query_failed", err)
	}
	return sessions, nil
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
	s.logger.Error("study service error", attrs...)
}
