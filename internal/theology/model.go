package theology

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the levels of the doctrinal outline.
type Kind string

const (
	// KindPart is a top-level division of the outline.
	KindPart Kind = "part"
	// KindChapter is a numbered chapter; only chapters are addressable by reference token.
	KindChapter Kind = "chapter"
	// KindSection is a lettered section within a chapter.
	KindSection Kind = "section"
	// KindSubsection is a numbered subsection within a section.
	KindSubsection Kind = "subsection"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidEntryID indicates that an entry identifier is empty or exceeds storage bounds.
	ErrInvalidEntryID = errors.New("theology: invalid entry id")
	// ErrInvalidKind indicates an unrecognized outline level.
	ErrInvalidKind = errors.New("theology: invalid entry kind")
	// ErrInvalidAddress indicates address fields inconsistent with the entry kind.
	ErrInvalidAddress = errors.New("theology: invalid entry address")
)

// ParseKind validates raw input against the known outline levels.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindPart:
		return KindPart, nil
	case KindChapter:
		return KindChapter, nil
	case KindSection:
		return KindSection, nil
	case KindSubsection:
		return KindSubsection, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

// Entry is one node of the doctrinal outline. Chapter entries carry the
// chapter number used by reference tokens; sections carry a letter and
// subsections a number within their section.
type Entry struct {
	EntryID          string  `gorm:"column:entry_id;primaryKey;size:190;not null"`
	ParentID         *string `gorm:"column:parent_id;size:190;index"`
	Kind             Kind    `gorm:"column:kind;size:16;not null"`
	Title            string  `gorm:"column:title;size:512;not null"`
	Body             string  `gorm:"column:body;type:text;not null;default:''"`
	Summary          string  `gorm:"column:summary;type:text;not null;default:''"`
	ChapterNumber    *int    `gorm:"column:chapter_number;index"`
	SectionLetter    string  `gorm:"column:section_letter;size:4;not null;default:''"`
	SubsectionNumber *int    `gorm:"column:subsection_number"`
	SortOrder        int     `gorm:"column:sort_order;not null;default:0"`
	CreatedAt        string  `gorm:"column:created_at;size:40;not null"`
	UpdatedAt        string  `gorm:"column:updated_at;size:40;not null"`

	Children      []Entry        `gorm:"foreignKey:ParentID;references:EntryID;constraint:OnDelete:CASCADE" json:"-"`
	ScriptureRefs []ScriptureRef `gorm:"foreignKey:EntryID;references:EntryID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "theology_entries"
}

// Validate checks identifier, kind, and address consistency.
func (e Entry) Validate() error {
	trimmed := strings.TrimSpace(e.EntryID)
	if trimmed == "" || len(trimmed) > maxIdentifierLength {
		return fmt.Errorf("%w: %q", ErrInvalidEntryID, e.EntryID)
	}
	if _, err := ParseKind(string(e.Kind)); err != nil {
		return err
	}
	if e.Kind == KindChapter && (e.ChapterNumber == nil || *e.ChapterNumber < 1) {
		return fmt.Errorf("%w: chapter entry requires a positive chapter number", ErrInvalidAddress)
	}
	if e.Kind != KindChapter && e.ChapterNumber != nil {
		return fmt.Errorf("%w: only chapter entries carry a chapter number", ErrInvalidAddress)
	}
	if e.Kind == KindSection && strings.TrimSpace(e.SectionLetter) == "" {
		return fmt.Errorf("%w: section entry requires a letter", ErrInvalidAddress)
	}
	if e.Kind == KindSubsection && (e.SubsectionNumber == nil || *e.SubsectionNumber < 1) {
		return fmt.Errorf("%w: subsection entry requires a positive number", ErrInvalidAddress)
	}
	return nil
}

// ScriptureRef maps one verse reference of the scripture index to an entry.
type ScriptureRef struct {
	RefID      string `gorm:"column:ref_id;primaryKey;size:190;not null"`
	EntryID    string `gorm:"column:entry_id;size:190;not null;index"`
	Book       string `gorm:"column:book;size:8;not null;index:idx_theology_refs_passage,priority:1"`
	Chapter    int    `gorm:"column:chapter;not null;index:idx_theology_refs_passage,priority:2"`
	StartVerse int    `gorm:"column:start_verse;not null;default:0"`
	EndVerse   int    `gorm:"column:end_verse;not null;default:0"`
	CreatedAt  string `gorm:"column:created_at;size:40;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ScriptureRef) TableName() string {
	return "theology_scripture_refs"
}

// AnnotationKind enumerates user markup attached to an entry.
type AnnotationKind string

const (
	// AnnotationKindHighlight marks a highlighted span of an entry.
	AnnotationKindHighlight AnnotationKind = "highlight"
	// AnnotationKindNote carries free-form user commentary on an entry.
	AnnotationKindNote AnnotationKind = "note"
)

// ErrInvalidAnnotationKind indicates an unrecognized annotation kind.
var ErrInvalidAnnotationKind = errors.New("theology: invalid annotation kind")

// ParseAnnotationKind validates raw input against the known annotation kinds.
func ParseAnnotationKind(raw string) (AnnotationKind, error) {
	switch AnnotationKind(strings.ToLower(strings.TrimSpace(raw))) {
	case AnnotationKindHighlight:
		return AnnotationKindHighlight, nil
	case AnnotationKindNote:
		return AnnotationKindNote, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAnnotationKind, raw)
	}
}

// Annotation is a user highlight or note attached to a theology entry.
type Annotation struct {
	AnnotationID string         `gorm:"column:annotation_id;primaryKey;size:190;not null"`
	EntryID      string         `gorm:"column:entry_id;size:190;not null;index"`
	Kind         AnnotationKind `gorm:"column:kind;size:16;not null"`
	Body         string         `gorm:"column:body;type:text;not null;default:''"`
	CreatedAt    string         `gorm:"column:created_at;size:40;not null"`
	UpdatedAt    string         `gorm:"column:updated_at;size:40;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Annotation) TableName() string {
	return "theology_annotations"
}
