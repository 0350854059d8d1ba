package transcript

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CanonicalToken keeps the raw fragment text next to its corrected form.
type CanonicalToken struct {
	Original  string
	Corrected string
}

// Normalize repairs the character confusions OCR engines make on printed
// digits. The result is a fixed point: normalizing Corrected again changes
// nothing.
func Normalize(raw string) CanonicalToken {
	runes := []rune(collapseSpaces(norm.NFC.String(raw)))
	// every pass either turns a letter into a digit or settles a 0 between
	// letters, so the loop ends well before this bound
	for i := 0; i <= 2*len(runes); i++ {
		if !fixConfusables(runes) {
			break
		}
	}
	return CanonicalToken{Original: raw, Corrected: string(runes)}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// fixConfusables runs one correction pass in place and reports whether
// anything changed.
func fixConfusables(r []rune) bool {
	changed := false

	// I, l and | read next to a digit are a one
	for i, c := range r {
		if (c == 'I' || c == 'l' || c == '|') && digitNeighbour(r, i) {
			r[i] = '1'
			changed = true
		}
	}

	for i, c := range r {
		switch {
		case (c == 'O' || c == 'o') && digitNeighbour(r, i) && !letterNeighbour(r, i):
			r[i] = '0'
			changed = true
		case c == '0' && letterAt(r, i-1) && letterAt(r, i+1):
			if unicode.IsLower(r[i-1]) {
				r[i] = 'o'
			} else {
				r[i] = 'O'
			}
			changed = true
		}
	}
	return changed
}

func digitAt(r []rune, i int) bool {
	return i >= 0 && i < len(r) && unicode.IsDigit(r[i])
}

func letterAt(r []rune, i int) bool {
	return i >= 0 && i < len(r) && unicode.IsLetter(r[i])
}

func digitNeighbour(r []rune, i int) bool {
	return digitAt(r, i-1) || digitAt(r, i+1)
}

func letterNeighbour(r []rune, i int) bool {
	return letterAt(r, i-1) || letterAt(r, i+1)
}
