package theology

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

// CorpusFormatVersion is the supported corpus document version.
const CorpusFormatVersion = 1

// ErrUnsupportedCorpusVersion indicates a corpus document from a newer or
// unknown format revision.
var ErrUnsupportedCorpusVersion = errors.New("theology: unsupported corpus format version")

// CorpusDocument is the import payload for the doctrinal outline.
type CorpusDocument struct {
	FormatVersion int           `json:"format_version"`
	Entries       []CorpusEntry `json:"entries"`
}

// CorpusEntry is one outline row of a corpus document.
type CorpusEntry struct {
	EntryID          string      `json:"id"`
	ParentID         *string     `json:"parent_id"`
	Kind             string      `json:"kind"`
	Title            string      `json:"title"`
	Body             string      `json:"body"`
	Summary          string      `json:"summary"`
	ChapterNumber    *int        `json:"chapter_number"`
	SectionLetter    string      `json:"section_letter"`
	SubsectionNumber *int        `json:"subsection_number"`
	SortOrder        int         `json:"sort_order"`
	ScriptureRefs    []CorpusRef `json:"scripture_refs"`
}

// CorpusRef is one scripture index row of a corpus entry.
type CorpusRef struct {
	Book       string `json:"book"`
	Chapter    int    `json:"chapter"`
	StartVerse int    `json:"start_verse"`
	EndVerse   int    `json:"end_verse"`
}

// RowError records why one corpus row was skipped during import.
type RowError struct {
	EntryID string `json:"id"`
	Reason  string `json:"reason"`
}

// ImportSummary reports per-row outcomes of a corpus import.
type ImportSummary struct {
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Errored  int        `json:"errored"`
	Errors   []RowError `json:"errors,omitempty"`
}

// ImportCorpus upserts corpus rows by id inside a single transaction.
// Rows failing validation are counted and skipped; storage failures abort
// the whole import.
func (s *Service) ImportCorpus(ctx context.Context, doc CorpusDocument) (ImportSummary, error) {
	if doc.FormatVersion != CorpusFormatVersion {
		return ImportSummary{}, apperr.New(opImportCorpus, "unsupported_version",
			fmt.Errorf("%w: %d", ErrUnsupportedCorpusVersion, doc.FormatVersion))
	}

	summary := ImportSummary{}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Parent pointers may reference rows later in the document, so the
		// self-referential FK on theology_entries is checked at commit.
		if err := tx.Exec("PRAGMA defer_foreign_keys = ON;").Error; err != nil {
			return err
		}
		for _, row := range doc.Entries {
			entry, err := entryFromCorpusRow(row)
			if err != nil {
				summary.Errored++
				summary.Errors = append(summary.Errors, RowError{EntryID: row.EntryID, Reason: err.Error()})
				continue
			}

			now := s.now()
			entry.UpdatedAt = now
			var existing Entry
			err = tx.Where("entry_id = ?", entry.EntryID).Take(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				entry.CreatedAt = now
				if err := tx.Create(&entry).Error; err != nil {
					return err
				}
				summary.Inserted++
			case err != nil:
				return err
			default:
				entry.CreatedAt = existing.CreatedAt
				if err := tx.Save(&entry).Error; err != nil {
					return err
				}
				summary.Updated++
			}

			if err := s.replaceScriptureRefs(tx, entry.EntryID, row.ScriptureRefs); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		s.logError(opImportCorpus, "transaction_failed", txErr)
		return ImportSummary{}, apperr.New(opImportCorpus, "transaction_failed", txErr)
	}

	s.logger.Info("corpus import finished",
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("errored", summary.Errored))
	return summary, nil
}

func entryFromCorpusRow(row CorpusEntry) (Entry, error) {
	kind, err := ParseKind(row.Kind)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		EntryID:          strings.TrimSpace(row.EntryID),
		ParentID:         row.ParentID,
		Kind:             kind,
		Title:            strings.TrimSpace(row.Title),
		Body:             row.Body,
		Summary:          row.Summary,
		ChapterNumber:    row.ChapterNumber,
		SectionLetter:    strings.ToUpper(strings.TrimSpace(row.SectionLetter)),
		SubsectionNumber: row.SubsectionNumber,
		SortOrder:        row.SortOrder,
	}
	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}
	for _, ref := range row.ScriptureRefs {
		if _, ok := scripture.LookupBook(ref.Book); !ok {
			return Entry{}, fmt.Errorf("%w: %q", scripture.ErrUnknownBook, ref.Book)
		}
		if ref.Chapter < 1 {
			return Entry{}, fmt.Errorf("%w: chapter %d", scripture.ErrInvalidChapterRange, ref.Chapter)
		}
	}
	return entry, nil
}

func (s *Service) replaceScriptureRefs(tx *gorm.DB, entryID string, refs []CorpusRef) error {
	if err := tx.Where("entry_id = ?", entryID).Delete(&ScriptureRef{}).Error; err != nil {
		return err
	}
	for _, ref := range refs {
		refID, err := s.idProvider.NewID()
		if err != nil {
			return err
		}
		record := ScriptureRef{
			RefID:      refID,
			EntryID:    entryID,
			Book:       strings.ToUpper(strings.TrimSpace(ref.Book)),
			Chapter:    ref.Chapter,
			StartVerse: ref.StartVerse,
			EndVerse:   ref.EndVerse,
			CreatedAt:  s.now(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}
