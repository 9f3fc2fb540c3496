package matching

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrEmptyReference     = errors.New("empty reference")
	ErrMalformedReference = errors.New("malformed reference")
)

// Normalize trims a reference or variable symbol and upper-cases it when it is
// plain ASCII alphanumeric. Values with inner whitespace or control characters
// are rejected so they never take part in an exact match.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyReference
	}
	alnum := true
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", ErrMalformedReference
		}
		if !isASCIIAlnum(r) {
			alnum = false
		}
	}
	if alnum {
		return strings.ToUpper(s), nil
	}
	return s, nil
}

func isASCIIAlnum(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}
