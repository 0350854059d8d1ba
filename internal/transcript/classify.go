package transcript

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/transcript-reader/constants"
)

// classHit is a class code found in a fragment. rank orders candidates of
// the same kind; see findClassCode.
type classHit struct {
	code    ClassCode
	rank    int
	labeled bool
}

// classified is a normalized fragment with its tag and the payload the tag
// implies.
type classified struct {
	kind FragmentKind
	text string

	// KindName: text after the name marker, possibly empty.
	name string
	// KindScore, or grades printed on the same line as a subject or
	// average label.
	scores []ScoreValue
	// KindSubject and KindAverage.
	subject SubjectName
	// Any kind may carry a class code; KindName lines sometimes hold both.
	class *classHit
	// A class marker with nothing resolvable after it.
	classPending bool
	// Table column headings such as "Môn học" or "HK1"; noise that never
	// opens a record.
	heading bool
}

var columnHeadings = map[string]struct{}{
	"mon hoc": {}, "mon": {}, "cac mon hoc": {}, "subject": {}, "subjects": {},
	"hk1": {}, "hk2": {}, "hk i": {}, "hk ii": {}, "hoc ky 1": {}, "hoc ky 2": {},
	"hoc ky i": {}, "hoc ky ii": {}, "ca nam": {}, "term 1": {}, "term 2": {},
	"semester 1": {}, "semester 2": {}, "final": {}, "whole year": {},
}

// classify tags one normalized fragment. Precedence: name marker, class
// marker, average marker, grades, subject label, bare class code, noise.
func (p *Parser) classify(text string) classified {
	c := classified{text: text}

	if start, end, ok := p.markers.findNameSpan(text); ok {
		c.kind = KindName
		rest := text[end:]
		if before, after, found := splitClassMarker(rest); found {
			rest = before
			c.class, c.classPending = labeledClass(after)
		} else if _, after, found := splitClassMarker(text[:start]); found {
			c.class, c.classPending = labeledClass(after)
		}
		c.name = cleanName(dropNameLabel(rest))
		return c
	}

	if _, after, ok := splitClassMarker(text); ok {
		c.kind = KindClass
		c.class, c.classPending = labeledClass(after)
		return c
	}

	if p.markers.isAverage(text) {
		c.kind = KindAverage
		c.subject = SubjectName{Subject: constants.Average}
		if _, scores, ok := p.splitTrailingScores(text); ok {
			c.scores = scores
		}
		return c
	}

	if scores, ok := p.allScores(text); ok {
		c.kind = KindScore
		c.scores = scores
		return c
	}

	if _, ok := columnHeadings[foldKey(text)]; ok {
		c.heading = true
		return c
	}

	if label, scores, ok := p.splitTrailingScores(text); ok {
		if subject := p.vocab.Match(label); subject.Recognized() {
			c.kind = KindSubject
			c.subject = subject
			c.scores = scores
			return c
		}
	}
	if subject := p.vocab.Match(text); subject.Recognized() {
		c.kind = KindSubject
		c.subject = subject
		return c
	}

	if code, rank, ok := findClassCode(text, false); ok {
		c.kind = KindClass
		c.class = &classHit{code: code, rank: rank}
		return c
	}

	return c
}

func labeledClass(text string) (*classHit, bool) {
	code, rank, ok := findClassCode(text, true)
	if !ok {
		return nil, true
	}
	return &classHit{code: code, rank: rank, labeled: true}, false
}

// allScores reads a fragment made only of grades, such as "8.5" or
// "8.5 9.0 9.0" when the engine merged a row.
func (p *Parser) allScores(text string) ([]ScoreValue, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, false
	}
	scores := make([]ScoreValue, 0, len(fields))
	for _, f := range fields {
		s, ok := p.markers.ClassifyScore(f)
		if !ok {
			return nil, false
		}
		scores = append(scores, s)
	}
	return scores, true
}

// splitTrailingScores separates "Toán 8.5 9.0" into its label and grades.
// Both parts must be non-empty.
func (p *Parser) splitTrailingScores(text string) (string, []ScoreValue, bool) {
	fields := strings.Fields(text)
	cut := len(fields)
	for cut > 0 {
		if _, ok := p.markers.ClassifyScore(fields[cut-1]); !ok {
			break
		}
		cut--
	}
	if cut == 0 || cut == len(fields) {
		return "", nil, false
	}
	scores := make([]ScoreValue, 0, len(fields)-cut)
	for _, f := range fields[cut:] {
		s, _ := p.markers.ClassifyScore(f)
		scores = append(scores, s)
	}
	return strings.Join(fields[:cut], " "), scores, true
}

// cleanName trims separators left around a captured name and title-cases it.
// Text without any letter is not a name.
func cleanName(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if strings.IndexFunc(s, unicode.IsLetter) < 0 {
		return ""
	}
	return cases.Title(language.Vietnamese).String(collapseSpaces(s))
}

// nameLabelWords may sit between a name marker and its colon, as in
// "Họ và tên của học sinh: ...".
var nameLabelWords = map[string]struct{}{
	"cua": {}, "hoc": {}, "sinh": {}, "hs": {}, "vien": {}, "student": {}, "pupil": {},
}

// dropNameLabel removes label words ending in a colon from the start of the
// text captured after a name marker.
func dropNameLabel(rest string) string {
	label, after, ok := strings.Cut(rest, ":")
	if !ok {
		return rest
	}
	words := strings.Fields(foldKey(label))
	if len(words) == 0 {
		return after
	}
	for _, w := range words {
		if _, ok := nameLabelWords[w]; !ok {
			return rest
		}
	}
	return after
}

var (
	reNameLike     = regexp.MustCompile(`^\p{Lu}\p{Ll}*(?:\s+\p{Lu}\p{Ll}*)+$`)
	reNameLikeCaps = regexp.MustCompile(`^\p{Lu}\p{L}*(?:\s+\p{Lu}\p{L}*)+$`)
)

// headingPhrases mark upper-case document headings that are not names.
var headingPhrases = []string{
	"bang diem", "so diem", "hoc ba", "ket qua", "cong hoa", "doc lap",
	"thpt", "thcs", "giao duc", "phieu", "truong", "nam hoc", "hoc ky",
}

func isHeading(text string) bool {
	key := foldKey(text)
	for _, h := range headingPhrases {
		if strings.Contains(key, h) {
			return true
		}
	}
	return false
}

// looksLikeLabel decides whether unmatched text could be a subject label
// worth keeping for review: mostly letters, a few words at most.
func looksLikeLabel(text string) bool {
	letters, others := 0, 0
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsSpace(r):
		default:
			others++
		}
	}
	return letters >= 2 && letters >= others && len(strings.Fields(text)) <= 6
}
