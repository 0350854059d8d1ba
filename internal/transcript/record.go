package transcript

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/transcript-reader/constants"
)

// SubjectRecord holds up to three scores for one subject, filled in the
// order they were read: first term, second term, then final.
type SubjectRecord struct {
	Subject SubjectName
	Term1   *ScoreValue
	Term2   *ScoreValue
	Final   *ScoreValue
}

// ScoreCount is the number of filled term slots.
func (r SubjectRecord) ScoreCount() int {
	n := 0
	for _, s := range r.slots() {
		if *s != nil {
			n++
		}
	}
	return n
}

// addScore fills the next free slot and reports false when all three are
// taken.
func (r *SubjectRecord) addScore(v ScoreValue) bool {
	for _, s := range r.slots() {
		if *s == nil {
			*s = &v
			return true
		}
	}
	return false
}

func (r *SubjectRecord) slots() []**ScoreValue {
	return []**ScoreValue{&r.Term1, &r.Term2, &r.Final}
}

// TranscriptRecord is the structured result for one transcript image. Name
// and class are nil when they could not be recovered.
type TranscriptRecord struct {
	StudentName *string
	ClassCode   *ClassCode
	Subjects    []SubjectRecord
}

// NeedsReview reports whether a human should look at the record: a header
// field is missing or some subject label was not recognized.
func (r TranscriptRecord) NeedsReview() bool {
	if r.StudentName == nil || r.ClassCode == nil {
		return true
	}
	for _, s := range r.Subjects {
		if !s.Subject.Recognized() {
			return true
		}
	}
	return false
}

type subjectJSON struct {
	Subject      string      `json:"subject"`
	Unrecognized bool        `json:"unrecognized,omitempty"`
	Term1        *ScoreValue `json:"term1"`
	Term2        *ScoreValue `json:"term2"`
	Final        *ScoreValue `json:"final"`
}

type recordJSON struct {
	Name     *string       `json:"name"`
	Class    *string       `json:"class"`
	Subjects []subjectJSON `json:"subjects"`
}

func (r TranscriptRecord) MarshalJSON() ([]byte, error) {
	out := recordJSON{Name: r.StudentName, Subjects: make([]subjectJSON, 0, len(r.Subjects))}
	if r.ClassCode != nil {
		c := r.ClassCode.String()
		out.Class = &c
	}
	for _, s := range r.Subjects {
		out.Subjects = append(out.Subjects, subjectJSON{
			Subject:      s.Subject.String(),
			Unrecognized: !s.Subject.Recognized(),
			Term1:        s.Term1,
			Term2:        s.Term2,
			Final:        s.Final,
		})
	}
	return json.Marshal(out)
}

func (r *TranscriptRecord) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	rec := TranscriptRecord{StudentName: in.Name, Subjects: make([]SubjectRecord, 0, len(in.Subjects))}
	if in.Class != nil {
		c, ok := ParseClassCode(*in.Class)
		if !ok {
			return fmt.Errorf("invalid class code %q", *in.Class)
		}
		rec.ClassCode = &c
	}
	for _, s := range in.Subjects {
		name := Unrecognized(s.Subject)
		if !s.Unrecognized {
			subject, ok := constants.Canonicalize(s.Subject)
			if !ok {
				return fmt.Errorf("unknown subject %q", s.Subject)
			}
			name = SubjectName{Subject: subject}
		}
		rec.Subjects = append(rec.Subjects, SubjectRecord{Subject: name, Term1: s.Term1, Term2: s.Term2, Final: s.Final})
	}
	*r = rec
	return nil
}

// ParseRecordJSON reads a record previously written with json.Marshal.
func ParseRecordJSON(data []byte) (TranscriptRecord, error) {
	var rec TranscriptRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return TranscriptRecord{}, fmt.Errorf("parse transcript record: %w", err)
	}
	return rec, nil
}
