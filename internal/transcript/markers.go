package transcript

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Language selects which label markers are recognized. The zero value
// accepts every supported language.
type Language string

const (
	LanguageAuto       Language = ""
	LanguageVietnamese Language = "vi"
	LanguageEnglish    Language = "en"
)

func (l Language) Valid() bool {
	return l == LanguageAuto || l == LanguageVietnamese || l == LanguageEnglish
}

func (l Language) includes(other Language) bool {
	return l == LanguageAuto || l == other
}

type qualitativeMarker struct {
	verdict Verdict
	marker  string
}

var (
	viQualitative = map[string]qualitativeMarker{
		"đ":  {Pass, "Đ"},
		"cđ": {Fail, "CĐ"},
	}
	enQualitative = map[string]qualitativeMarker{
		"p":    {Pass, "P"},
		"pass": {Pass, "P"},
		"f":    {Fail, "F"},
		"fail": {Fail, "F"},
	}
	anyQualitative = mergeQualitative(viQualitative, enQualitative)
)

var (
	viNameMarker = regexp.MustCompile(`(?i)h[oọ]\s*(?:v[aà]\s*)?t[eê]n(?:\s+h[oọ]c\s*sinh)?\s*:?`)
	enNameMarker = regexp.MustCompile(`(?i)^(?:full\s+|student'?s?\s+)?name\s*:?`)

	// class markers are matched in both languages regardless of the hint
	classMarker = regexp.MustCompile(`(?i)(?:^|\s)(l[oơớờởỡợ]p|class)\s*:?`)

	viAverageMarker = regexp.MustCompile(`(?i)^(?:(?:điểm|diem)\s*(?:tb|trung\s*b[iì]nh)|đtb|tbcm|trung\s*b[iì]nh)`)
	enAverageMarker = regexp.MustCompile(`(?i)^(?:overall\s+)?(?:average|gpa)`)
)

// markerSet is the per-language view of label and grade markers.
type markerSet struct {
	name        []*regexp.Regexp
	average     []*regexp.Regexp
	qualitative map[string]qualitativeMarker
}

func markersFor(lang Language) markerSet {
	var m markerSet
	qual := []map[string]qualitativeMarker{}
	if lang.includes(LanguageVietnamese) {
		m.name = append(m.name, viNameMarker)
		m.average = append(m.average, viAverageMarker)
		qual = append(qual, viQualitative)
	}
	if lang.includes(LanguageEnglish) {
		m.name = append(m.name, enNameMarker)
		m.average = append(m.average, enAverageMarker)
		qual = append(qual, enQualitative)
	}
	m.qualitative = mergeQualitative(qual...)
	return m
}

func mergeQualitative(sets ...map[string]qualitativeMarker) map[string]qualitativeMarker {
	out := make(map[string]qualitativeMarker)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// findNameSpan locates the first name marker in text.
func (m markerSet) findNameSpan(text string) (start, end int, ok bool) {
	for _, re := range m.name {
		if loc := re.FindStringIndex(text); loc != nil {
			return loc[0], loc[1], true
		}
	}
	return 0, 0, false
}

func (m markerSet) isAverage(text string) bool {
	for _, re := range m.average {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// splitClassMarker splits text around the first class marker. A marker
// running straight into more letters is a longer word ("Classroom").
func splitClassMarker(text string) (before, after string, ok bool) {
	for _, loc := range classMarker.FindAllStringSubmatchIndex(text, -1) {
		if r, _ := utf8.DecodeRuneInString(text[loc[3]:]); unicode.IsLetter(r) {
			continue
		}
		return text[:loc[0]], text[loc[1]:], true
	}
	return text, "", false
}

// ClassifyScore reads a fragment as a single grade: a number or a
// pass/fail marker of the configured language.
func (m markerSet) ClassifyScore(fragment string) (ScoreValue, bool) {
	tok := strings.TrimSpace(fragment)
	if s, ok := parseNumericScore(tok); ok {
		return s, true
	}
	if q, ok := m.qualitative[strings.ToLower(tok)]; ok {
		return QualitativeScore(q.verdict, q.marker), true
	}
	return ScoreValue{}, false
}

// ClassifyScore is the language-agnostic form used outside a Parser.
func ClassifyScore(fragment string) (ScoreValue, bool) {
	return markersFor(LanguageAuto).ClassifyScore(fragment)
}
