package notes

import (
	"context"
	"errors"
	"strings"

	"github.com/pericope-app/pericope/internal/apperr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidSeriesID indicates that a series identifier is empty or exceeds storage bounds.
	ErrInvalidSeriesID = errors.New("notes: invalid series id")

	errSeriesNotFound = errors.New("series not found")
)

const (
	opCreateSeries   = "notes.create_series"
	opUpdateSeries   = "notes.update_series"
	opDeleteSeries   = "notes.delete_series"
	opGetSeries      = "notes.get_series"
	opListSeries     = "notes.list_series"
	opSetSeriesNotes = "notes.set_series_notes"
)

// SeriesInput carries the client-supplied fields for a series.
type SeriesInput struct {
	Title       string
	Description string
}

// SeriesDetail is a series with its member notes in position order.
type SeriesDetail struct {
	Series Series
	Notes  []Note
}

// SeriesSummary is a series with its member count for list views.
type SeriesSummary struct {
	Series    Series
	NoteCount int
}

// CreateSeries persists a new sermon series.
func (s *Service) CreateSeries(ctx context.Context, input SeriesInput) (Series, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Series{}, apperr.New(opCreateSeries, "missing_title", ErrMissingTitle)
	}

	seriesID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateSeries, "id_generation_failed", err)
		return Series{}, apperr.New(opCreateSeries, "id_generation_failed", err)
	}
	now := s.now()
	series := Series{
		SeriesID:    seriesID,
		Title:       title,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&series).Error; err != nil {
		s.logError(opCreateSeries, "insert_failed", err)
		return Series{}, apperr.New(opCreateSeries, "insert_failed", err)
	}
	return series, nil
}

// UpdateSeries rewrites a series' title and description.
func (s *Service) UpdateSeries(ctx context.Context, seriesID string, input SeriesInput) (Series, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return Series{}, apperr.New(opUpdateSeries, "missing_series_id", ErrInvalidSeriesID)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Series{}, apperr.New(opUpdateSeries, "missing_title", ErrMissingTitle)
	}

	var series Series
	err := s.db.WithContext(ctx).Where("series_id = ?", seriesID).Take(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Series{}, apperr.New(opUpdateSeries, "not_found", errSeriesNotFound)
	}
	if err != nil {
		s.logError(opUpdateSeries, "query_failed", err, zap.String("series_id", seriesID))
		return Series{}, apperr.New(opUpdateSeries, "query_failed", err)
	}

	series.Title = title
	series.Description = input.Description
	series.UpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Save(&series).Error; err != nil {
		s.logError(opUpdateSeries, "save_failed", err, zap.String("series_id", seriesID))
		return Series{}, apperr.New(opUpdateSeries, "save_failed", err)
	}
	return series, nil
}

// DeleteSeries removes a series; its membership rows cascade. Member notes
// are untouched.
func (s *Service) DeleteSeries(ctx context.Context, seriesID string) error {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return apperr.New(opDeleteSeries, "missing_series_id", ErrInvalidSeriesID)
	}
	result := s.db.WithContext(ctx).Where("series_id = ?", seriesID).Delete(&Series{})
	if result.Error != nil {
		s.logError(opDeleteSeries, "delete_failed", result.Error, zap.String("series_id", seriesID))
		return apperr.New(opDeleteSeries, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(opDeleteSeries, "not_found", errSeriesNotFound)
	}
	return nil
}

// ListSeries returns every series with member counts, most recent first.
func (s *Service) ListSeries(ctx context.Context) ([]SeriesSummary, error) {
	var all []Series
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&all).Error; err != nil {
		s.logError(opListSeries, "query_failed", err)
		return nil, apperr.New(opListSeries, "query_failed", err)
	}

	summaries := make([]SeriesSummary, 0, len(all))
	for _, series := range all {
		var count int64
		if err := s.db.WithContext(ctx).Model(&SeriesItem{}).
			Where("series_id = ?", series.SeriesID).
			Count(&count).Error; err != nil {
			s.logError(opListSeries, "count_failed", err, zap.String("series_id", series.SeriesID))
			return nil, apperr.New(opListSeries, "count_failed", err)
		}
		summaries = append(summaries, SeriesSummary{Series: series, NoteCount: int(count)})
	}
	return summaries, nil
}

// GetSeries loads a series with its member notes ordered by position.
func (s *Service) GetSeries(ctx context.Context, seriesID string) (SeriesDetail, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return SeriesDetail{}, apperr.New(opGetSeries, "missing_series_id", ErrInvalidSeriesID)
	}

	var series Series
	err := s.db.WithContext(ctx).Where("series_id = ?", seriesID).Take(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SeriesDetail{}, apperr.New(opGetSeries, "not_found", errSeriesNotFound)
	}
	if err != nil {
		s.logError(opGetSeries, "query_failed", err, zap.String("series_id", seriesID))
		return SeriesDetail{}, apperr.New(opGetSeries, "query_failed", err)
	}

	var items []SeriesItem
	if err := s.db.WithContext(ctx).
		Where("series_id = ?", seriesID).
		Order("position ASC").
		Find(&items).Error; err != nil {
		s.logError(opGetSeries, "items_query_failed", err, zap.String("series_id", seriesID))
		return SeriesDetail{}, apperr.New(opGetSeries, "items_query_failed", err)
	}

	detail := SeriesDetail{Series: series, Notes: make([]Note, 0, len(items))}
	for _, item := range items {
		var note Note
		err := s.db.WithContext(ctx).Where("note_id = ?", item.NoteID).Take(&note).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			s.logError(opGetSeries, "note_query_failed", err, zap.String("note_id", item.NoteID))
			return SeriesDetail{}, apperr.New(opGetSeries, "note_query_failed", err)
		}
		detail.Notes = append(detail.Notes, note)
	}
	return detail, nil
}

// SetSeriesNotes rewrites a series' membership to the given note ids in
// order. Unknown notes abort the rewrite.
func (s *Service) SetSeriesNotes(ctx context.Context, seriesID string, noteIDs []string) (SeriesDetail, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return SeriesDetail{}, apperr.New(opSetSeriesNotes, "missing_series_id", ErrInvalidSeriesID)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var series Series
		if err := tx.Where("series_id = ?", seriesID).Take(&series).Error; err != nil {
			return err
		}
		if err := tx.Where("series_id = ?", seriesID).Delete(&SeriesItem{}).Error; err != nil {
			return err
		}
		position := 0
		seen := make(map[string]struct{}, len(noteIDs))
		for _, noteID := range noteIDs {
			noteID = strings.TrimSpace(noteID)
			if noteID == "" {
				continue
			}
			if _, dup := seen[noteID]; dup {
				continue
			}
			seen[noteID] = struct{}{}
			var note Note
			if err := tx.Where("note_id = ?", noteID).Take(&note).Error; err != nil {
				return err
			}
			item := SeriesItem{SeriesID: seriesID, NoteID: noteID, Position: position}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			position++
		}
		series.UpdatedAt = s.now()
		return tx.Save(&series).Error
	})
	if errors.Is(txErr, gorm.ErrRecordNotFound) {
		return SeriesDetail{}, apperr.New(opSetSeriesNotes, "not_found", errSeriesNotFound)
	}
	if txErr != nil {
		s.logError(opSetSeriesNotes, "write_failed", txErr, zap.String("series_id", seriesID))
		return SeriesDetail{}, apperr.New(opSetSeriesNotes, "write_failed", txErr)
	}

	return s.GetSeries(ctx, seriesID)
}
