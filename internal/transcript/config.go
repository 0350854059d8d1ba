package transcript

import (
	"fmt"
	"maps"
	"slices"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
)

const (
	DefaultConfidenceThreshold = 0.5
	DefaultMatchThreshold      = 0.65
)

// Config is everything a Parser needs. It is copied by NewParser, so later
// changes to the caller's value have no effect on a built parser.
type Config struct {
	// Fragments below this confidence are dropped before classification.
	ConfidenceThreshold float64
	// Minimum label similarity for a fuzzy subject match.
	MatchThreshold float64
	Language       Language
	Vocabulary     []VocabularyEntry
	// Aliases map exact OCR spellings to subjects, bypassing fuzzy matching.
	Aliases map[string]constants.Subject
	// Subjects that accept pass/fail markers instead of numeric grades.
	QualitativeSubjects []constants.Subject
}

// DefaultConfig returns the built-in Vietnamese/English curriculum.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MatchThreshold:      DefaultMatchThreshold,
		Language:            LanguageAuto,
		Vocabulary:          DefaultVocabulary(),
		Aliases:             DefaultAliases(),
		QualitativeSubjects: constants.DefaultQualitativeSubjects(),
	}
}

// Validate checks ranges and that every referenced subject exists.
func (c Config) Validate() error {
	v := common.NewValidator()
	v.Field("ConfidenceThreshold", c.ConfidenceThreshold, common.InRange(0, 1))
	v.Field("MatchThreshold", c.MatchThreshold, common.InRange(0, 1))
	if !c.Language.Valid() {
		v.Field("Language", string(c.Language), common.Invalid(`must be "vi", "en" or empty`))
	}
	if len(c.Vocabulary) == 0 {
		v.Field("Vocabulary", nil, common.Invalid("must list at least one subject"))
	}
	for i, e := range c.Vocabulary {
		field := fmt.Sprintf("Vocabulary[%d]", i)
		if !knownSubject(e.Subject) || e.Subject == constants.Average {
			v.Field(field+".Subject", string(e.Subject), common.Invalid("unknown subject"))
		}
		if len(e.Labels) == 0 {
			v.Field(field+".Labels", nil, common.Invalid("must not be empty"))
		}
	}
	for _, k := range slices.Sorted(maps.Keys(c.Aliases)) {
		if !knownSubject(c.Aliases[k]) {
			v.Field("Aliases["+k+"]", string(c.Aliases[k]), common.Invalid("unknown subject"))
		}
	}
	for i, s := range c.QualitativeSubjects {
		if !knownSubject(s) {
			v.Field(fmt.Sprintf("QualitativeSubjects[%d]", i), string(s), common.Invalid("unknown subject"))
		}
	}
	if v.HasErrors() {
		return common.NewAppError(common.CodeConfig, v.ErrorMessage(), common.ErrInvalidInput)
	}
	return nil
}

func knownSubject(s constants.Subject) bool {
	return s == constants.Average || slices.Contains(constants.Subjects(), s)
}

// clone deep-copies the slices and maps so a Parser owns its configuration.
func (c Config) clone() Config {
	out := c
	out.Vocabulary = make([]VocabularyEntry, len(c.Vocabulary))
	for i, e := range c.Vocabulary {
		out.Vocabulary[i] = VocabularyEntry{Subject: e.Subject, Labels: slices.Clone(e.Labels)}
	}
	out.Aliases = maps.Clone(c.Aliases)
	out.QualitativeSubjects = slices.Clone(c.QualitativeSubjects)
	return out
}

// DefaultVocabulary lists Vietnamese and English labels for every subject.
func DefaultVocabulary() []VocabularyEntry {
	return []VocabularyEntry{
		{constants.Math, []string{"Toán", "Toán học", "Math", "Mathematics"}},
		{constants.Literature, []string{"Ngữ văn", "Văn", "Literature"}},
		{constants.ForeignLanguage, []string{"Ngoại ngữ", "Tiếng Anh", "Foreign Language", "English"}},
		{constants.Physics, []string{"Vật lí", "Vật lý", "Physics"}},
		{constants.Chemistry, []string{"Hóa học", "Hoá học", "Hóa", "Chemistry"}},
		{constants.Biology, []string{"Sinh học", "Biology"}},
		{constants.History, []string{"Lịch sử", "Sử", "History"}},
		{constants.Geography, []string{"Địa lí", "Địa lý", "Geography"}},
		{constants.Technology, []string{"Công nghệ", "Technology"}},
		{constants.Informatics, []string{"Tin học", "Informatics", "Computer Science"}},
		{constants.CivicEducation, []string{"Giáo dục công dân", "GDCD", "Civic Education"}},
		{constants.PhysicalEducation, []string{"Thể dục", "Giáo dục thể chất", "Physical Education"}},
		{constants.NationalDefenseEducation, []string{"Giáo dục quốc phòng", "GDQP", "GDQP-AN", "National Defense Education"}},
		{constants.VocationalEducation, []string{"Nghề phổ thông", "Nghề", "Vocational Education"}},
		{constants.Music, []string{"Âm nhạc", "Music"}},
		{constants.FineArts, []string{"Mĩ thuật", "Mỹ thuật", "Fine Arts"}},
		{constants.ExperientialActivities, []string{"Hoạt động trải nghiệm", "Hoạt động trải nghiệm, hướng nghiệp", "Experiential Activities"}},
	}
}

// DefaultAliases are OCR misreadings seen on real transcripts.
func DefaultAliases() map[string]constants.Subject {
	return map[string]constants.Subject{
		"Vật 1í":                constants.Physics,
		"Vật 1ý":                constants.Physics,
		"Địa 1í":                constants.Geography,
		"Địa 1ý":                constants.Geography,
		"Anh":                   constants.ForeignLanguage,
		"Ngoại ngữ (Tiếng Anh)": constants.ForeignLanguage,
		"nghệ":                  constants.Technology,
		"Ơv nghệ":               constants.Technology,
		"CN":                    constants.Technology,
		"Tin":                   constants.Informatics,
		"Sinh":                  constants.Biology,
		"GD CD":                 constants.CivicEducation,
		"GD QP":                 constants.NationalDefenseEducation,
		"TD":                    constants.PhysicalEducation,
	}
}
