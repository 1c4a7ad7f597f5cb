package scripture

import (
	"errors"
	"testing"
)

func mustReference(t *testing.T, book string, startChapter, startVerse, endChapter, endVerse int) Reference {
	t.Helper()
	ref, err := NewReference(book, startChapter, startVerse, endChapter, endVerse)
	if err != nil {
		t.Fatalf("unexpected reference error: %v", err)
	}
	return ref
}

func TestNewReferenceNormalizesBookCode(t *testing.T) {
	ref := mustReference(t, " jhn ", 3, 16, 0, 18)
	if ref.Book != "JHN" {
		t.Fatalf("expected normalized book code, got %q", ref.Book)
	}
	if ref.EndChapter != 3 {
		t.Fatalf("expected end chapter to default to start chapter, got %d", ref.EndChapter)
	}
}

func TestNewReferenceRejectsUnknownBook(t *testing.T) {
	_, err := NewReference("XYZ", 1, 0, 0, 0)
	if !errors.Is(err, ErrUnknownBook) {
		t.Fatalf("expected unknown book error, got %v", err)
	}
}

func TestNewReferenceRejectsChapterBeyondBook(t *testing.T) {
	_, err := NewReference("JHN", 22, 0, 0, 0)
	if !errors.Is(err, ErrInvalidChapterRange) {
		t.Fatalf("expected chapter range error, got %v", err)
	}
}

func TestNewReferenceRejectsReversedChapters(t *testing.T) {
	_, err := NewReference("PSA", 20, 0, 10, 0)
	if !errors.Is(err, ErrInvalidChapterRange) {
		t.Fatalf("expected chapter range error, got %v", err)
	}
}

func TestNewReferenceRejectsEndVerseWithoutStart(t *testing.T) {
	_, err := NewReference("JHN", 3, 0, 3, 18)
	if !errors.Is(err, ErrInvalidVerseRange) {
		t.Fatalf("expected verse range error, got %v", err)
	}
}

func TestNewReferenceRejectsReversedVerses(t *testing.T) {
	_, err := NewReference("JHN", 3, 18, 3, 16)
	if !errors.Is(err, ErrInvalidVerseRange) {
		t.Fatalf("expected verse range error, got %v", err)
	}
}

func TestNewReferenceSingleVerseDefaultsEndVerse(t *testing.T) {
	ref := mustReference(t, "JHN", 3, 16, 0, 0)
	if ref.EndVerse != 16 {
		t.Fatalf("expected single-verse reference, got end verse %d", ref.EndVerse)
	}
	if ref.IsChapterLevel() {
		t.Fatalf("expected verse-level reference")
	}
}

func TestNewReferenceChapterLevel(t *testing.T) {
	ref := mustReference(t, "GEN", 1, 0, 2, 0)
	if !ref.IsChapterLevel() {
		t.Fatalf("expected chapter-level reference")
	}
}

func TestReferenceString(t *testing.T) {
	cases := []struct {
		ref      Reference
		expected string
	}{
		{mustReference(t, "JHN", 3, 16, 0, 18), "JHN 3:16-18"},
		{mustReference(t, "JHN", 3, 16, 0, 0), "JHN 3:16"},
		{mustReference(t, "GEN", 1, 0, 0, 0), "GEN 1"},
		{mustReference(t, "GEN", 1, 0, 2, 0), "GEN 1-2"},
	}
	for _, testCase := range cases {
		if rendered := testCase.ref.String(); rendered != testCase.expected {
			t.Fatalf("expected %q, got %q", testCase.expected, rendered)
		}
	}
}

func TestBooksCoversProtestantCanon(t *testing.T) {
	books := Books()
	if len(books) != 66 {
		t.Fatalf("expected 66 books, got %d", len(books))
	}
	if books[0].Code != "GEN" || books[len(books)-1].Code != "REV" {
		t.Fatalf("unexpected canon bounds: %s..%s", books[0].Code, books[len(books)-1].Code)
	}
}

func TestLookupBookIsCaseInsensitive(t *testing.T) {
	book, ok := LookupBook("psa")
	if !ok {
		t.Fatalf("expected book lookup to succeed")
	}
	if book.Name != "Psalms" || book.Chapters != 150 {
		t.Fatalf("unexpected book: %+v", book)
	}
	if _, ok := LookupBook("NOPE"); ok {
		t.Fatalf("expected unknown code to miss")
	}
}

func TestIsValidChapter(t *testing.T) {
	if !IsValidChapter("JHN", 21) {
		t.Fatalf("expected chapter 21 of John to be valid")
	}
	if IsValidChapter("JHN", 22) {
		t.Fatalf("expected chapter 22 of John to be invalid")
	}
	if IsValidChapter("JHN", 0) {
		t.Fatalf("expected chapter 0 to be invalid")
	}
}
