package theology

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// tokenPattern matches the inline reference syntax embedded in note bodies:
// [[ST:Ch32]], [[ST:Ch32:A]], [[ST:Ch32:A.1]]. Matching is case-insensitive.
var tokenPattern = regexp.MustCompile(`(?i)\[\[ST:Ch(\d+)(?::([A-Za-z])(?:\.(\d+))?)?\]\]`)

var exactTokenPattern = regexp.MustCompile(`(?i)^\[\[ST:Ch(\d+)(?::([A-Za-z])(?:\.(\d+))?)?\]\]$`)

// Address is the lookup key decoded from one reference token. SectionLetter
// and SubsectionNumber are zero-valued when the token omits them.
type Address struct {
	Chapter          int
	SectionLetter    string
	SubsectionNumber int
}

// Token pairs a decoded address with the raw text it was scanned from.
type Token struct {
	Raw     string
	Address Address
}

// ParseToken decodes a single reference token. Malformed input reports
// ok=false rather than an error; callers treat it as "not found".
func ParseToken(raw string) (Address, bool) {
	match := exactTokenPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return Address{}, false
	}
	return addressFromMatch(match), true
}

// FindTokens scans free text for every embedded reference token in order of
// appearance.
func FindTokens(text string) []Token {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]Token, 0, len(matches))
	for _, match := range matches {
		tokens = append(tokens, Token{Raw: match[0], Address: addressFromMatch(match)})
	}
	return tokens
}

func addressFromMatch(match []string) Address {
	chapter, _ := strconv.Atoi(match[1])
	address := Address{
		Chapter:       chapter,
		SectionLetter: strings.ToUpper(match[2]),
	}
	if match[3] != "" {
		address.SubsectionNumber, _ = strconv.Atoi(match[3])
	}
	return address
}

// FormatToken renders the canonical token string for an address. It is the
// pure inverse of ParseToken, keyed on which address parts are present.
func FormatToken(address Address) string {
	switch {
	case address.SectionLetter != "" && address.SubsectionNumber > 0:
		return fmt.Sprintf("[[ST:Ch%d:%s.%d]]", address.Chapter, address.SectionLetter, address.SubsectionNumber)
	case address.SectionLetter != "":
		return fmt.Sprintf("[[ST:Ch%d:%s]]", address.Chapter, address.SectionLetter)
	default:
		return fmt.Sprintf("[[ST:Ch%d]]", address.Chapter)
	}
}
