package transcript

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/transcript-reader/constants"
)

func sampleRecord() TranscriptRecord {
	return TranscriptRecord{
		StudentName: strPtr("Nguyen Van A"),
		ClassCode:   classPtr("12A3"),
		Subjects: []SubjectRecord{
			{Subject: subj(constants.Math), Term1: num(85), Term2: num(90), Final: num(90)},
			{Subject: subj(constants.Physics), Term1: num(70)},
		},
	}
}

func TestRecordMarshalJSON(t *testing.T) {
	b, err := json.Marshal(sampleRecord())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"Nguyen Van A","class":"12A3","subjects":[` +
		`{"subject":"Math","term1":8.5,"term2":9.0,"final":9.0},` +
		`{"subject":"Physics","term1":7.0,"term2":null,"final":null}]}`
	if string(b) != want {
		t.Fatalf("marshal =\n%s\nwant\n%s", b, want)
	}
}

func TestRecordMarshalEmpty(t *testing.T) {
	b, err := json.Marshal(Assemble(nil, nil, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"name":null,"class":null,"subjects":[]}` {
		t.Fatalf("marshal = %s", b)
	}
}

func TestParseRecordJSONRoundTrip(t *testing.T) {
	rec := sampleRecord()
	rec.Subjects = append(rec.Subjects,
		SubjectRecord{Subject: subj(constants.Music), Term1: qual(Pass, "Đ")},
		SubjectRecord{Subject: Unrecognized("Kỹ năng sống"), Term1: num(75)},
	)
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"unrecognized":true`) {
		t.Fatalf("unrecognized subject not flagged: %s", b)
	}
	back, err := ParseRecordJSON(b)
	if err != nil {
		t.Fatalf("ParseRecordJSON: %v", err)
	}
	if diff := cmp.Diff(rec, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRecordJSONErrors(t *testing.T) {
	for _, in := range []string{
		`{"name":null,"class":"12-A","subjects":[]}`,
		`{"name":null,"class":null,"subjects":[{"subject":"Alchemy","term1":null,"term2":null,"final":null}]}`,
		`{"name":null,"class":null,"subjects":[{"subject":"Math","term1":12,"term2":null,"final":null}]}`,
		`not json`,
	} {
		if _, err := ParseRecordJSON([]byte(in)); err == nil {
			t.Errorf("ParseRecordJSON(%s) should fail", in)
		}
	}
}

func TestValidateRecord(t *testing.T) {
	rec := sampleRecord()
	rec.Subjects = append(rec.Subjects, SubjectRecord{Subject: Unrecognized("Kỹ năng sống"), Term1: num(75)})
	if err := ValidateRecord(rec); err != nil {
		t.Fatalf("ValidateRecord: %v", err)
	}
	if err := ValidateRecord(Assemble(nil, nil, nil)); err != nil {
		t.Fatalf("ValidateRecord(empty): %v", err)
	}
}

func TestValidateRecordJSONRejects(t *testing.T) {
	for _, in := range []string{
		`{"name":"A","class":"12A3"}`,
		`{"name":"A","class":"12-A3","subjects":[]}`,
		`{"name":"A","class":null,"subjects":[{"subject":"Alchemy","term1":1,"term2":null,"final":null}]}`,
		`{"name":"A","class":null,"subjects":[{"subject":"Math","term1":11,"term2":null,"final":null}]}`,
		`{"name":"A","class":null,"subjects":[],"extra":1}`,
	} {
		if err := ValidateRecordJSON([]byte(in)); err == nil {
			t.Errorf("ValidateRecordJSON(%s) should fail", in)
		}
	}
}

func TestNeedsReview(t *testing.T) {
	rec := sampleRecord()
	if rec.NeedsReview() {
		t.Fatal("complete record flagged for review")
	}
	rec.ClassCode = nil
	if !rec.NeedsReview() {
		t.Fatal("record without class should need review")
	}
}

func TestAssembleDropsScorelessUnrecognized(t *testing.T) {
	records := []SubjectRecord{
		{Subject: Unrecognized("??")},
		{Subject: subj(constants.Math), Term1: num(80)},
		{Subject: Unrecognized("Kỹ năng sống"), Term1: num(70)},
	}
	got := Assemble(nil, nil, records)
	want := []SubjectRecord{records[1], records[2]}
	if diff := cmp.Diff(want, got.Subjects); diff != "" {
		t.Fatalf("Assemble (-want +got):\n%s", diff)
	}
}
