package scripture

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownBook indicates that a book code is missing or not part of the canon.
	ErrUnknownBook = errors.New("scripture: unknown book code")
	// ErrInvalidChapterRange indicates that chapter bounds are missing or out of order.
	ErrInvalidChapterRange = errors.New("scripture: invalid chapter range")
	// ErrInvalidVerseRange indicates that verse bounds are inconsistent.
	ErrInvalidVerseRange = errors.New("scripture: invalid verse range")
)

// Reference addresses a verse range within a single book. Verse bounds are
// optional: a reference with zero verses spans whole chapters.
type Reference struct {
	Book         string
	StartChapter int
	StartVerse   int
	EndChapter   int
	EndVerse     int
}

// NewReference validates the raw parts and returns a normalized Reference.
func NewReference(book string, startChapter, startVerse, endChapter, endVerse int) (Reference, error) {
	code := strings.ToUpper(strings.TrimSpace(book))
	resolved, ok := LookupBook(code)
	if !ok {
		return Reference{}, fmt.Errorf("%w: %q", ErrUnknownBook, book)
	}

	if endChapter == 0 {
		endChapter = startChapter
	}
	if startChapter < 1 || endChapter < startChapter || endChapter > resolved.Chapters {
		return Reference{}, fmt.Errorf("%w: %d-%d in %s", ErrInvalidChapterRange, startChapter, endChapter, code)
	}

	if startVerse < 0 || endVerse < 0 {
		return Reference{}, fmt.Errorf("%w: negative verse", ErrInvalidVerseRange)
	}
	if startVerse == 0 && endVerse != 0 {
		return Reference{}, fmt.Errorf("%w: end verse without start verse", ErrInvalidVerseRange)
	}
	if startVerse > 0 && endVerse == 0 {
		endVerse = startVerse
		if endChapter > startChapter {
			// A range like JHN 3:16-4 keeps the explicit end chapter open-ended;
			// verse bounds only pin down single-chapter references by default.
			endVerse = 0
		}
	}
	if startChapter == endChapter && endVerse > 0 && endVerse < startVerse {
		return Reference{}, fmt.Errorf("%w: %d before %d", ErrInvalidVerseRange, endVerse, startVerse)
	}

	return Reference{
		Book:         code,
		StartChapter: startChapter,
		StartVerse:   startVerse,
		EndChapter:   endChapter,
		EndVerse:     endVerse,
	}, nil
}

// IsChapterLevel reports whether the reference spans whole chapters.
func (r Reference) IsChapterLevel() bool {
	return r.StartVerse == 0
}

// String renders the reference in the usual human form, e.g. "JHN 3:16-18".
func (r Reference) String() string {
	var b strings.Builder
	b.WriteString(r.Book)
	b.WriteString(" ")
	fmt.Fprintf(&b, "%d", r.StartChapter)
	if r.StartVerse > 0 {
		fmt.Fprintf(&b, ":%d", r.StartVerse)
	}
	if r.EndChapter > r.StartChapter {
		fmt.Fprintf(&b, "-%d", r.EndChapter)
		if r.EndVerse > 0 {
			fmt.Fprintf(&b, ":%d", r.EndVerse)
		}
	} else if r.EndVerse > r.StartVerse {
		fmt.Fprintf(&b, "-%d", r.EndVerse)
	}
	return b.String()
}
