package bids

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrMalformedLabel is returned when a label contains anything but ASCII letters and digits.
	ErrMalformedLabel = errors.New("malformed BIDS label")
	// ErrInconsistentNaming is returned when a mandatory entity is missing.
	ErrInconsistentNaming = errors.New("inconsistent BIDS naming")
)

// CheckLabel verifies that label only holds ASCII letters and digits.
// The empty label is accepted: it means the entity has no label part.
func CheckLabel(label string) error {
	for _, r := range label {
		if !isAlnum(r) {
			return fmt.Errorf("%w: %q contains illegal character %q", ErrMalformedLabel, label, r)
		}
	}
	return nil
}

// SanitizeLabel turns free text, such as a series description, into a valid label:
// accents are folded ("Résting" -> "Resting") and everything else non-alphanumeric is dropped.
func SanitizeLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range folded {
		if isAlnum(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
