// Package curriculum loads subject vocabularies, OCR aliases and grading
// rules from YAML or JSON files into a transcript.Config.
package curriculum

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/schema"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// File is the on-disk curriculum document.
type File struct {
	// When true (the default) the file extends the built-in curriculum
	// instead of replacing it.
	ExtendsDefault      *bool             `json:"extends_default,omitempty" yaml:"extends_default,omitempty"`
	Language            string            `json:"language,omitempty" yaml:"language,omitempty"`
	ConfidenceThreshold *float64          `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	MatchThreshold      *float64          `json:"match_threshold,omitempty" yaml:"match_threshold,omitempty"`
	Subjects            []SubjectEntry    `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	Aliases             map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// SubjectEntry adds labels to a subject and optionally sets whether it is
// graded with pass/fail markers.
type SubjectEntry struct {
	Subject     string   `json:"subject" yaml:"subject"`
	Labels      []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Qualitative *bool    `json:"qualitative,omitempty" yaml:"qualitative,omitempty"`
}

// BuildCurriculumJSONSchema describes File.
func BuildCurriculumJSONSchema() map[string]any {
	subjects := constants.AsStringSlice()
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"extends_default":      map[string]any{"type": "boolean"},
			"language":             map[string]any{"type": "string", "enum": []string{"", "vi", "en"}},
			"confidence_threshold": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"match_threshold":      map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"subjects": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"subject"},
					"properties": map[string]any{
						"subject":     map[string]any{"type": "string", "enum": subjects},
						"labels":      map[string]any{"type": "array", "items": map[string]any{"type": "string", "minLength": 1}},
						"qualitative": map[string]any{"type": "boolean"},
					},
				},
			},
			"aliases": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string", "enum": subjects},
			},
		},
	}
}

var curriculumSchema = sync.OnceValues(func() (*schema.Schema, error) {
	return schema.Compile("curriculum", BuildCurriculumJSONSchema())
})

// LoadFile reads a .yaml/.yml or .json curriculum and merges it into the
// built-in configuration.
func LoadFile(path string) (transcript.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transcript.Config{}, common.NewAppError(common.CodeCurriculum, "read curriculum file", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	default:
		return transcript.Config{}, common.NewAppError(common.CodeCurriculum,
			fmt.Sprintf("unsupported curriculum extension %q", filepath.Ext(path)), common.ErrUnsupported)
	}
}

// ParseYAML converts the document to JSON so both formats go through the
// same schema.
func ParseYAML(data []byte) (transcript.Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return transcript.Config{}, common.NewAppError(common.CodeCurriculum, "decode yaml", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	j, err := json.Marshal(doc)
	if err != nil {
		return transcript.Config{}, common.NewAppError(common.CodeCurriculum, "convert yaml", err)
	}
	return ParseJSON(j)
}

func ParseJSON(data []byte) (transcript.Config, error) {
	s, err := curriculumSchema()
	if err != nil {
		return transcript.Config{}, common.NewAppError(common.CodeCurriculum, "compile schema", err)
	}
	if err := s.ValidateJSON(data); err != nil {
		return transcript.Config{}, common.NewAppError(common.CodeCurriculum, "invalid curriculum", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return transcript.Config{}, common.NewAppError(common.CodeCurriculum, "decode curriculum", err)
	}
	cfg := f.Apply(transcript.DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return transcript.Config{}, err
	}
	return cfg, nil
}

// Apply merges f over base. Without extends_default=false, labels and
// aliases are added to base; otherwise they replace it.
func (f File) Apply(base transcript.Config) transcript.Config {
	cfg := base
	extend := f.ExtendsDefault == nil || *f.ExtendsDefault
	if !extend {
		cfg.Vocabulary = nil
		cfg.Aliases = map[string]constants.Subject{}
		cfg.QualitativeSubjects = nil
	} else {
		cfg.Vocabulary = slices.Clone(base.Vocabulary)
		cfg.Aliases = make(map[string]constants.Subject, len(base.Aliases)+len(f.Aliases))
		for k, v := range base.Aliases {
			cfg.Aliases[k] = v
		}
		cfg.QualitativeSubjects = slices.Clone(base.QualitativeSubjects)
	}

	if f.Language != "" {
		cfg.Language = transcript.Language(f.Language)
	}
	if f.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *f.ConfidenceThreshold
	}
	if f.MatchThreshold != nil {
		cfg.MatchThreshold = *f.MatchThreshold
	}

	for _, e := range f.Subjects {
		subject, ok := constants.Canonicalize(e.Subject)
		if !ok {
			continue
		}
		cfg.Vocabulary = addLabels(cfg.Vocabulary, subject, e.Labels)
		if e.Qualitative != nil {
			cfg.QualitativeSubjects = setQualitative(cfg.QualitativeSubjects, subject, *e.Qualitative)
		}
	}
	for alias, name := range f.Aliases {
		if subject, ok := constants.Canonicalize(name); ok {
			cfg.Aliases[alias] = subject
		}
	}
	return cfg
}

func addLabels(vocab []transcript.VocabularyEntry, subject constants.Subject, labels []string) []transcript.VocabularyEntry {
	if len(labels) == 0 {
		return vocab
	}
	for i, e := range vocab {
		if e.Subject == subject {
			merged := slices.Clone(e.Labels)
			for _, l := range labels {
				if !slices.Contains(merged, l) {
					merged = append(merged, l)
				}
			}
			vocab[i] = transcript.VocabularyEntry{Subject: subject, Labels: merged}
			return vocab
		}
	}
	return append(vocab, transcript.VocabularyEntry{Subject: subject, Labels: slices.Clone(labels)})
}

func setQualitative(list []constants.Subject, subject constants.Subject, on bool) []constants.Subject {
	i := slices.Index(list, subject)
	switch {
	case on && i < 0:
		return append(list, subject)
	case !on && i >= 0:
		return slices.Delete(list, i, i+1)
	}
	return list
}
