package constants

import (
	"strings"
)

// Subject is the canonical name of a school subject on a transcript.
type Subject string

const (
	Math                     Subject = "Math"
	Literature               Subject = "Literature"
	ForeignLanguage          Subject = "Foreign Language"
	Physics                  Subject = "Physics"
	Chemistry                Subject = "Chemistry"
	Biology                  Subject = "Biology"
	History                  Subject = "History"
	Geography                Subject = "Geography"
	Technology               Subject = "Technology"
	Informatics              Subject = "Informatics"
	CivicEducation           Subject = "Civic Education"
	PhysicalEducation        Subject = "Physical Education"
	NationalDefenseEducation Subject = "National Defense Education"
	VocationalEducation      Subject = "Vocational Education"
	Music                    Subject = "Music"
	FineArts                 Subject = "Fine Arts"
	ExperientialActivities   Subject = "Experiential Activities"

	// Average is the overall-average row. It is not a real subject and is
	// never part of the matching vocabulary.
	Average Subject = "Average"
)

var allSubjects = []Subject{
	Math,
	Literature,
	ForeignLanguage,
	Physics,
	Chemistry,
	Biology,
	History,
	Geography,
	Technology,
	Informatics,
	CivicEducation,
	PhysicalEducation,
	NationalDefenseEducation,
	VocationalEducation,
	Music,
	FineArts,
	ExperientialActivities,
}

// Subjects returns the real subjects in their conventional transcript order.
func Subjects() []Subject {
	out := make([]Subject, len(allSubjects))
	copy(out, allSubjects)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allSubjects))
	for i, s := range allSubjects {
		result[i] = string(s)
	}
	return result
}

// Canonicalize maps an English subject name (as written in config files or
// JSON output) to its Subject. Average is accepted too.
func Canonicalize(input string) (Subject, bool) {
	normalized := strings.ToLower(strings.Join(strings.Fields(input), " "))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Subject{
		"maths":             Math,
		"mathematics":       Math,
		"english":           ForeignLanguage,
		"foreignlanguage":   ForeignLanguage,
		"it":                Informatics,
		"computer science":  Informatics,
		"civics":            CivicEducation,
		"pe":                PhysicalEducation,
		"defense education": NationalDefenseEducation,
		"defence education": NationalDefenseEducation,
		"art":               FineArts,
		"arts":              FineArts,
		"experiential":      ExperientialActivities,
		"overall average":   Average,
		"gpa":               Average,
	}

	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	compact := strings.ReplaceAll(normalized, " ", "")
	for _, s := range append(allSubjects, Average) {
		name := strings.ToLower(string(s))
		if normalized == name || compact == strings.ReplaceAll(name, " ", "") {
			return s, true
		}
	}

	return "", false
}

// DefaultQualitativeSubjects lists the subjects graded with pass/fail markers
// instead of numbers.
func DefaultQualitativeSubjects() []Subject {
	return []Subject{PhysicalEducation, VocationalEducation, Music, FineArts, ExperientialActivities}
}
