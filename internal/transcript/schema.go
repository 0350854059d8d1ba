package transcript

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/schema"
)

// BuildRecordJSONSchema describes the JSON form of a TranscriptRecord.
// Recognized subjects must use one of the canonical names; unrecognized
// ones carry raw text and "unrecognized": true.
func BuildRecordJSONSchema() map[string]any {
	subjects := append(constants.AsStringSlice(), string(constants.Average))

	score := map[string]any{
		"anyOf": []any{
			map[string]any{"type": "null"},
			map[string]any{"type": "number", "minimum": 0, "maximum": 10},
			map[string]any{"type": "string", "enum": qualitativeMarkers()},
		},
	}

	subject := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"subject", "term1", "term2", "final"},
		"properties": map[string]any{
			"subject":      map[string]any{"type": "string", "minLength": 1},
			"unrecognized": map[string]any{"type": "boolean"},
			"term1":        score,
			"term2":        score,
			"final":        score,
		},
		"if": map[string]any{
			"not": map[string]any{
				"required":   []string{"unrecognized"},
				"properties": map[string]any{"unrecognized": map[string]any{"const": true}},
			},
		},
		"then": map[string]any{
			"properties": map[string]any{"subject": map[string]any{"enum": subjects}},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name", "class", "subjects"},
		"properties": map[string]any{
			"name":     map[string]any{"type": []string{"string", "null"}, "minLength": 1},
			"class":    map[string]any{"type": []string{"string", "null"}, "pattern": `^[0-9]{1,2}[A-Z][0-9]{1,2}$`},
			"subjects": map[string]any{"type": "array", "items": subject},
		},
	}
}

func qualitativeMarkers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, k := range []string{"đ", "cđ", "p", "f"} {
		m := anyQualitative[k].marker
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

var recordSchema = sync.OnceValues(func() (*schema.Schema, error) {
	return schema.Compile("transcript_record", BuildRecordJSONSchema())
})

// ValidateRecordJSON checks data against the record schema.
func ValidateRecordJSON(data []byte) error {
	s, err := recordSchema()
	if err != nil {
		return err
	}
	return s.ValidateJSON(data)
}

// ValidateRecord marshals rec and validates the result.
func ValidateRecord(rec TranscriptRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return ValidateRecordJSON(data)
}
