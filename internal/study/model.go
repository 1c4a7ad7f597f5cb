package study

import (
	"errors"
	"fmt"
	"strings"
)

// SessionKind enumerates what was viewed during a study session.
type SessionKind string

const (
	// SessionKindPassage records viewing a scripture passage.
	SessionKindPassage SessionKind = "passage"
	// SessionKindTheology records viewing a theology entry.
	SessionKindTheology SessionKind = "theology"
)

// ErrInvalidSessionKind indicates an unrecognized session kind.
var ErrInvalidSessionKind = errors.New("study: invalid session kind")

// ParseSessionKind validates raw input against the known session kinds.
func ParseSessionKind(raw string) (SessionKind, error) {
	switch SessionKind(strings.ToLower(strings.TrimSpace(raw))) {
	case SessionKindPassage:
		return SessionKindPassage, nil
	case SessionKindTheology:
		return SessionKindTheology, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionKind, raw)
	}
}

// Session is one immutable row of the study history log.
type Session struct {
	SessionID   string      `gorm:"column:session_id;primaryKey;size:190;not null"`
	Kind        SessionKind `gorm:"column:kind;size:16;not null"`
	ReferenceID string      `gorm:"column:reference_id;size:190;not null;index:idx_study_reference"`
	NoteID      string      `gorm:"column:note_id;size:190;not null;default:''"`
	ViewedAt    string      `gorm:"column:viewed_at;size:40;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (Session) TableName() string {
	return "study_sessions"
}
