package transcript

import (
	"regexp"
	"strings"
	"unicode"
)

// ClassCode identifies a class such as "12A3": grade, section letter and
// suffix. Grade and Suffix keep their digits as printed.
type ClassCode struct {
	Grade   string
	Section byte
	Suffix  string
}

func (c ClassCode) String() string {
	return c.Grade + string(rune(c.Section)) + c.Suffix
}

var (
	reClassToken = regexp.MustCompile(`^(\d{1,2})([A-Za-z048]+?)(\d{1,2})$`)
	// I, l and | at the ends of a token have no digit beside them for
	// Normalize to go by: "12Al" is 12A1 and "IIA2" is 11A2.
	reConfusableTail = regexp.MustCompile(`^(.*?[A-Za-z])([Il|]{1,2})$`)
	reConfusableHead = regexp.MustCompile(`^([Il|]{1,2})[A-Za-z048]`)
)

// ResolveClass looks for a class code among the tokens of fragment. Labeled
// fragments (the text after a class marker) also accept sections OCR'd as
// digits, such as "1241" for 12A1. The longest matching token wins.
func ResolveClass(fragment string, labeled bool) (ClassCode, bool) {
	code, _, ok := findClassCode(fragment, labeled)
	return code, ok
}

// ParseClassCode reads back a rendered class code like "12A3".
func ParseClassCode(s string) (ClassCode, bool) {
	m := reClassToken.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || len(m[2]) != 1 || m[2][0] < 'A' || m[2][0] > 'Z' {
		return ClassCode{}, false
	}
	return ClassCode{Grade: m[1], Section: m[2][0], Suffix: m[3]}, true
}

// findClassCode also returns the rank of the winning token so candidates
// from different fragments can be compared. Tokens whose section is a real
// letter outrank digit-read sections, then longer tokens win; ties keep the
// first.
func findClassCode(fragment string, labeled bool) (ClassCode, int, bool) {
	var (
		best     ClassCode
		bestRank int
	)
	for _, tok := range classTokens(fragment) {
		code, letter, ok := resolveClassToken(tok, labeled)
		if !ok {
			continue
		}
		rank := len(tok)
		if letter {
			rank += 100
		}
		if rank > bestRank {
			best, bestRank = code, rank
		}
	}
	return best, bestRank, bestRank > 0
}

func classTokens(fragment string) []string {
	fields := strings.FieldsFunc(Normalize(fragment).Corrected, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '|'
	})
	return fields
}

func resolveClassToken(tok string, labeled bool) (code ClassCode, letter bool, ok bool) {
	m := reClassToken.FindStringSubmatch(repairClassToken(tok, labeled))
	if m == nil {
		return ClassCode{}, false, false
	}
	section, letter, ok := resolveSection(m[2], labeled)
	if !ok {
		return ClassCode{}, false, false
	}
	return ClassCode{Grade: m[1], Section: section, Suffix: m[3]}, letter, true
}

// resolveSection maps the middle run of a class token to a section letter.
// Runs made only of 4/0 read as A and runs of 8 read as B; those are only
// trusted after a class marker. letter reports whether a real letter was
// found.
func resolveSection(run string, allowDigits bool) (section byte, letter bool, ok bool) {
	allA, allB := true, true
	for i := 0; i < len(run); i++ {
		c := run[i]
		if c != '4' && c != '0' {
			allA = false
		}
		if c != '8' {
			allB = false
		}
	}
	switch {
	case allA:
		return 'A', false, allowDigits
	case allB:
		return 'B', false, allowDigits
	}
	for i := 0; i < len(run); i++ {
		c := run[i]
		if c >= 'a' && c <= 'z' {
			return c - 'a' + 'A', true, true
		}
		if c >= 'A' && c <= 'Z' {
			return c, true, true
		}
	}
	return 0, false, false
}

// repairClassToken reads a one-like run after the section letter as suffix
// digits. A leading run is read as grade digits only after a class marker.
func repairClassToken(tok string, labeled bool) string {
	if m := reConfusableTail.FindStringSubmatch(tok); m != nil {
		tok = m[1] + strings.Repeat("1", len(m[2]))
	}
	if !labeled {
		return tok
	}
	if m := reConfusableHead.FindStringSubmatch(tok); m != nil {
		tok = strings.Repeat("1", len(m[1])) + tok[len(m[1]):]
	}
	return tok
}
