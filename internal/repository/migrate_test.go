package repository

import (
	"testing"

	"entgo.io/ent"
	entschema "entgo.io/ent/dialect/sql/schema"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/db/ent/schema"
)

type fielder interface{ Fields() []ent.Field }

// The migration tables are written by hand; keep them in step with the ent
// declarations under db/ent/schema.
func TestTablesMatchEntSchema(t *testing.T) {
	for _, tc := range []struct {
		table  *entschema.Table
		schema fielder
	}{
		{TranscriptsTable, schema.Transcript{}},
		{TranscriptSubjectsTable, schema.TranscriptSubject{}},
		{ExtractJobsTable, schema.ExtractJob{}},
	} {
		fields := tc.schema.Fields()
		if len(fields) != len(tc.table.Columns) {
			t.Errorf("%s: %d ent fields, %d columns", tc.table.Name, len(fields), len(tc.table.Columns))
			continue
		}
		for i, f := range fields {
			d := f.Descriptor()
			if d.Err != nil {
				t.Fatalf("%s.%s: %v", tc.table.Name, d.Name, d.Err)
			}
			col := tc.table.Columns[i]
			if d.Name != col.Name {
				t.Errorf("%s column %d: ent %q, table %q", tc.table.Name, i, d.Name, col.Name)
			}
			if d.Info.Type != col.Type {
				t.Errorf("%s.%s: ent type %v, table type %v", tc.table.Name, col.Name, d.Info.Type, col.Type)
			}
			if d.Optional != col.Nullable {
				t.Errorf("%s.%s: ent optional %v, table nullable %v", tc.table.Name, col.Name, d.Optional, col.Nullable)
			}
		}
	}
}

func TestEntStatusValidator(t *testing.T) {
	var status *ent.Field
	for _, f := range (schema.ExtractJob{}).Fields() {
		if f.Descriptor().Name == "status" {
			status = &f
		}
	}
	if status == nil {
		t.Fatal("status field missing")
	}
	validate := (*status).Descriptor().Validators[0].(func(string) error)
	for _, s := range constants.JobStatuses() {
		if err := validate(s); err != nil {
			t.Errorf("status %s rejected: %v", s, err)
		}
	}
	if validate("DONE") == nil {
		t.Error("unknown status accepted")
	}
}
