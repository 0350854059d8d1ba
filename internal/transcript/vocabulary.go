package transcript

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/transcript-reader/constants"
)

// similarityEpsilon absorbs float noise so a score sitting exactly on the
// threshold is accepted.
const similarityEpsilon = 1e-9

// minFuzzyRunes is the shortest folded text compared by edit distance. A
// single edit on a three-letter word already clears the usual threshold, so
// "Ban" would read as "Văn"; shorter labels and fragments match exactly.
const minFuzzyRunes = 4

// SubjectName is either a vocabulary subject or, when Subject is empty, the
// raw text of a subject label nothing in the vocabulary matched.
type SubjectName struct {
	Subject constants.Subject
	Raw     string
}

// Unrecognized builds a SubjectName that carries raw label text only.
func Unrecognized(raw string) SubjectName {
	return SubjectName{Raw: raw}
}

func (n SubjectName) Recognized() bool { return n.Subject != "" }

// String is the canonical subject name, or the raw text when unrecognized.
func (n SubjectName) String() string {
	if n.Recognized() {
		return string(n.Subject)
	}
	return n.Raw
}

// VocabularyEntry lists the printed labels that identify one subject.
type VocabularyEntry struct {
	Subject constants.Subject `json:"subject" yaml:"subject"`
	Labels  []string          `json:"labels" yaml:"labels"`
}

type vocabLabel struct {
	subject constants.Subject
	key     string
	runes   int
}

// Vocabulary resolves subject labels through an exact alias table first and
// fuzzy label similarity second.
type Vocabulary struct {
	aliases   map[string]constants.Subject
	labels    []vocabLabel
	threshold float64
}

// NewVocabulary indexes entries and aliases. Alias keys are compared after
// the same normalization fragments go through.
func NewVocabulary(entries []VocabularyEntry, aliases map[string]constants.Subject, threshold float64) *Vocabulary {
	v := &Vocabulary{
		aliases:   make(map[string]constants.Subject, len(aliases)),
		threshold: threshold,
	}
	for k, s := range aliases {
		v.aliases[Normalize(k).Corrected] = s
	}
	for _, e := range entries {
		for _, label := range e.Labels {
			key := foldKey(label)
			if key == "" {
				continue
			}
			v.labels = append(v.labels, vocabLabel{subject: e.Subject, key: key, runes: utf8.RuneCountInString(key)})
		}
	}
	return v
}

// Match maps fragment text to a subject, or to Unrecognized(fragment) when
// neither an alias nor a close enough label exists.
func (v *Vocabulary) Match(fragment string) SubjectName {
	text := collapseSpaces(fragment)
	if s, ok := v.aliases[text]; ok {
		return SubjectName{Subject: s}
	}

	key := foldKey(text)
	if key == "" {
		return Unrecognized(fragment)
	}
	keyRunes := utf8.RuneCountInString(key)

	best := math.Inf(-1)
	var bestSubject constants.Subject
	for _, l := range v.labels {
		if (keyRunes < minFuzzyRunes || l.runes < minFuzzyRunes) && key != l.key {
			continue
		}
		sim := similarityRunes(key, keyRunes, l.key, l.runes)
		switch {
		case sim > best+similarityEpsilon:
			best, bestSubject = sim, l.subject
		case math.Abs(sim-best) <= similarityEpsilon && l.subject < bestSubject:
			bestSubject = l.subject
		}
	}
	if bestSubject != "" && best+similarityEpsilon >= v.threshold {
		return SubjectName{Subject: bestSubject}
	}
	return Unrecognized(fragment)
}

// Similarity compares two labels the way Match does: 1 minus the edit
// distance over the longer length, after folding case and diacritics.
func Similarity(a, b string) float64 {
	ka, kb := foldKey(a), foldKey(b)
	return similarityRunes(ka, utf8.RuneCountInString(ka), kb, utf8.RuneCountInString(kb))
}

func similarityRunes(a string, la int, b string, lb int) float64 {
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.Distance(a, b, nil)
	return 1 - float64(d)/float64(longest)
}

// foldKey lowercases, strips diacritics and trims punctuation from both ends.
func foldKey(s string) string {
	folded := strings.ToLower(unidecode.Unidecode(norm.NFC.String(s)))
	folded = strings.TrimFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return collapseSpaces(folded)
}
