package scripture

import "strings"

// Book describes one book of the Protestant canon.
type Book struct {
	Code     string
	Name     string
	Chapters int
}

var canon = []Book{
	{Code: "GEN", Name: "Genesis", Chapters: 50},
	{Code: "EXO", Name: "Exodus", Chapters: 40},
	{Code: "LEV", Name: "Leviticus", Chapters: 27},
	{Code: "NUM", Name: "Numbers", Chapters: 36},
	{Code: "DEU", Name: "Deuteronomy", Chapters: 34},
	{Code: "JOS", Name: "Joshua", Chapters: 24},
	{Code: "JDG", Name: "Judges", Chapters: 21},
	{Code: "RUT", Name: "Ruth", Chapters: 4},
	{Code: "1SA", Name: "1 Samuel", Chapters: 31},
	{Code: "2SA", Name: "2 Samuel", Chapters: 24},
	{Code: "1KI", Name: "1 Kings", Chapters: 22},
	{Code: "2KI", Name: "2 Kings", Chapters: 25},
	{Code: "1CH", Name: "1 Chronicles", Chapters: 29},
	{Code: "2CH", Name: "2 Chronicles", Chapters: 36},
	{Code: "EZR", Name: "Ezra", Chapters: 10},
	{Code: "NEH", Name: "Nehemiah", Chapters: 13},
	{Code: "EST", Name: "Esther", Chapters: 10},
	{Code: "JOB", Name: "Job", Chapters: 42},
	{Code: "PSA", Name: "Psalms", Chapters: 150},
	{Code: "PRO", Name: "Proverbs", Chapters: 31},
	{Code: "ECC", Name: "Ecclesiastes", Chapters: 12},
	{Code: "SNG", Name: "Song of Solomon", Chapters: 8},
	{Code: "ISA", Name: "Isaiah", Chapters: 66},
	{Code: "JER", Name: "Jeremiah", Chapters: 52},
	{Code: "LAM", Name: "Lamentations", Chapters: 5},
	{Code: "EZK", Name: "Ezekiel", Chapters: 48},
	{Code: "DAN", Name: "Daniel", Chapters: 12},
	{Code: "HOS", Name: "Hosea", Chapters: 14},
	{Code: "JOL", Name: "Joel", Chapters: 3},
	{Code: "AMO", Name: "Amos", Chapters: 9},
	{Code: "OBA", Name: "Obadiah", Chapters: 1},
	{Code: "JON", Name: "Jonah", Chapters: 4},
	{Code: "MIC", Name: "Micah", Chapters: 7},
	{Code: "NAM", Name: "Nahum", Chapters: 3},
	{Code: "HAB", Name: "Habakkuk", Chapters: 3},
	{Code: "ZEP", Name: "Zephaniah", Chapters: 3},
	{Code: "HAG", Name: "Haggai", Chapters: 2},
	{Code: "ZEC", Name: "Zechariah", Chapters: 14},
	{Code: "MAL", Name: "Malachi", Chapters: 4},
	{Code: "MAT", Name: "Matthew", Chapters: 28},
	{Code: "MRK", Name: "Mark", Chapters: 16},
	{Code: "LUK", Name: "Luke", Chapters: 24},
	{Code: "JHN", Name: "John", Chapters: 21},
	{Code: "ACT", Name: "Acts", Chapters: 28},
	{Code: "ROM", Name: "Romans", Chapters: 16},
	{Code: "1CO", Name: "1 Corinthians", Chapters: 16},
	{Code: "2CO", Name: "2 Corinthians", Chapters: 13},
	{Code: "GAL", Name: "Galatians", Chapters: 6},
	{Code: "EPH", Name: "Ephesians", Chapters: 6},
	{Code: "PHP", Name: "Philippians", Chapters: 4},
	{Code: "COL", Name: "Colossians", Chapters: 4},
	{Code: "1TH", Name: "1 Thessalonians", Chapters: 5},
	{Code: "2TH", Name: "2 Thessalonians", Chapters: 3},
	{Code: "1TI", Name: "1 Timothy", Chapters: 6},
	{Code: "2TI", Name: "2 Timothy", Chapters: 4},
	{Code: "TIT", Name: "Titus", Chapters: 3},
	{Code: "PHM", Name: "Philemon", Chapters: 1},
	{Code: "HEB", Name: "Hebrews", Chapters: 13},
	{Code: "JAS", Name: "James", Chapters: 5},
	{Code: "1PE", Name: "1 Peter", Chapters: 5},
	{Code: "2PE", Name: "2 Peter", Chapters: 3},
	{Code: "1JN", Name: "1 John", Chapters: 5},
	{Code: "2JN", Name: "2 John", Chapters: 1},
	{Code: "3JN", Name: "3 John", Chapters: 1},
	{Code: "JUD", Name: "Jude", Chapters: 1},
	{Code: "REV", Name: "Revelation", Chapters: 22},
}

var booksByCode = func() map[string]Book {
	index := make(map[string]Book, len(canon))
	for _, book := range canon {
		index[book.Code] = book
	}
	return index
}()

// Books returns the canon in canonical order.
func Books() []Book {
	out := make([]Book, len(canon))
	copy(out, canon)
	return out
}

// LookupBook resolves a book by its three-character code, case-insensitively.
func LookupBook(code string) (Book, bool) {
	book, ok := booksByCode[strings.ToUpper(strings.TrimSpace(code))]
	return book, ok
}

// IsValidChapter reports whether the chapter exists in the named book.
func IsValidChapter(code string, chapter int) bool {
	book, ok := LookupBook(code)
	if !ok {
		return false
	}
	return chapter >= 1 && chapter <= book.Chapters
}
