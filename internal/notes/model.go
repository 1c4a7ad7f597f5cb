package notes

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the supported note types.
type Kind string

const (
	// KindNote is a plain study note.
	KindNote Kind = "note"
	// KindCommentary is a running commentary note.
	KindCommentary Kind = "commentary"
	// KindSermon is a sermon-preparation note; only sermons join a series.
	KindSermon Kind = "sermon"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidNoteID indicates that a note identifier is empty or exceeds storage bounds.
	ErrInvalidNoteID = errors.New("notes: invalid note id")
	// ErrInvalidKind indicates an unrecognized note kind.
	ErrInvalidKind = errors.New("notes: invalid note kind")
	// ErrMissingTitle indicates that a note or series title is empty.
	ErrMissingTitle = errors.New("notes: title is required")
)

// ParseKind validates raw input against the known note kinds.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindNote:
		return KindNote, nil
	case KindCommentary:
		return KindCommentary, nil
	case KindSermon:
		return KindSermon, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

// Note models a rich-text document attached to a verse range. A note always
// carries a book code and chapter bounds; verse bounds are optional and zero
// for chapter-level notes.
type Note struct {
	NoteID       string `gorm:"column:note_id;primaryKey;size:190;not null"`
	Kind         Kind   `gorm:"column:kind;size:16;not null;index"`
	Title        string `gorm:"column:title;size:512;not null"`
	Content      string `gorm:"column:content;type:text;not null;default:''"`
	Book         string `gorm:"column:book;size:8;not null;index:idx_notes_passage,priority:1"`
	StartChapter int    `gorm:"column:start_chapter;not null;index:idx_notes_passage,priority:2"`
	StartVerse   int    `gorm:"column:start_verse;not null;default:0"`
	EndChapter   int    `gorm:"column:end_chapter;not null"`
	EndVerse     int    `gorm:"column:end_verse;not null;default:0"`
	CreatedAt    string `gorm:"column:created_at;size:40;not null"`
	UpdatedAt    string `gorm:"column:updated_at;size:40;not null"`

	InlineTags []InlineTag `gorm:"foreignKey:NoteID;references:NoteID;constraint:OnDelete:CASCADE" json:"-"`
	TopicLinks []NoteTopic `gorm:"foreignKey:NoteID;references:NoteID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// Topic is a user-defined hierarchical tag applied to notes.
type Topic struct {
	TopicID   string  `gorm:"column:topic_id;primaryKey;size:190;not null"`
	Name      string  `gorm:"column:name;size:255;not null"`
	ParentID  *string `gorm:"column:parent_id;size:190;index"`
	SortOrder int     `gorm:"column:sort_order;not null;default:0"`
	CreatedAt string  `gorm:"column:created_at;size:40;not null"`
	UpdatedAt string  `gorm:"column:updated_at;size:40;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Topic) TableName() string {
	return "topics"
}

// NoteTopic joins a note to one of its topics.
type NoteTopic struct {
	NoteID  string `gorm:"column:note_id;primaryKey;size:190;not null"`
	TopicID string `gorm:"column:topic_id;primaryKey;size:190;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (NoteTopic) TableName() string {
	return "note_topics"
}

// InlineTag is a labeled span inside note content, e.g. "Illustration".
type InlineTag struct {
	TagID     string `gorm:"column:tag_id;primaryKey;size:190;not null"`
	NoteID    string `gorm:"column:note_id;size:190;not null;index"`
	Label     string `gorm:"column:label;size:64;not null;index"`
	Excerpt   string `gorm:"column:excerpt;type:text;not null;default:''"`
	CreatedAt string `gorm:"column:created_at;size:40;not null"`
}

// TableName provides the explicit table binding for GORM.
func (InlineTag) TableName() string {
	return "note_inline_tags"
}

// Series is an ordered grouping of sermon notes.
type Series struct {
	SeriesID    string `gorm:"column:series_id;primaryKey;size:190;not null"`
	Title       string `gorm:"column:title;size:512;not null"`
	Description string `gorm:"column:description;type:text;not null;default:''"`
	CreatedAt   string `gorm:"column:created_at;size:40;not null"`
	UpdatedAt   string `gorm:"column:updated_at;size:40;not null"`

	Items []SeriesItem `gorm:"foreignKey:SeriesID;references:SeriesID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Series) TableName() string {
	return "series"
}

// SeriesItem places one note at a position within a series.
type SeriesItem struct {
	SeriesID string `gorm:"column:series_id;primaryKey;size:190;not null"`
	NoteID   string `gorm:"column:note_id;primaryKey;size:190;not null;index"`
	Position int    `gorm:"column:position;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (SeriesItem) TableName() string {
	return "series_items"
}
