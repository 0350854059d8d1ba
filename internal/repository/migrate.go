package repository

import (
	"context"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
)

const (
	tableTranscripts = "transcripts"
	tableSubjects    = "transcript_subjects"
	tableJobs        = "extract_jobs"
)

var (
	// TranscriptsColumns holds the columns for the "transcripts" table.
	TranscriptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "source_path", Type: field.TypeString},
		{Name: "content_hash", Type: field.TypeString},
		{Name: "student_name", Type: field.TypeString, Nullable: true},
		{Name: "class_code", Type: field.TypeString, Nullable: true},
		{Name: "result_json", Type: field.TypeJSON},
		{Name: "needs_review", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
	}
	// TranscriptsTable holds the schema information for the "transcripts" table.
	TranscriptsTable = &schema.Table{
		Name:       tableTranscripts,
		Columns:    TranscriptsColumns,
		PrimaryKey: []*schema.Column{TranscriptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "transcript_content_hash", Columns: []*schema.Column{TranscriptsColumns[2]}},
			{Name: "transcript_needs_review_created_at", Columns: []*schema.Column{TranscriptsColumns[6], TranscriptsColumns[7]}},
		},
	}
	// TranscriptSubjectsColumns holds the columns for the "transcript_subjects" table.
	TranscriptSubjectsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "transcript_id", Type: field.TypeUUID},
		{Name: "position", Type: field.TypeInt},
		{Name: "subject", Type: field.TypeString},
		{Name: "recognized", Type: field.TypeBool},
		{Name: "term1", Type: field.TypeString, Nullable: true},
		{Name: "term2", Type: field.TypeString, Nullable: true},
		{Name: "final", Type: field.TypeString, Nullable: true},
	}
	// TranscriptSubjectsTable holds the schema information for the "transcript_subjects" table.
	TranscriptSubjectsTable = &schema.Table{
		Name:       tableSubjects,
		Columns:    TranscriptSubjectsColumns,
		PrimaryKey: []*schema.Column{TranscriptSubjectsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "transcript_subjects_transcripts_subjects",
				Columns:    []*schema.Column{TranscriptSubjectsColumns[1]},
				RefColumns: []*schema.Column{TranscriptsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "transcriptsubject_transcript_id_position", Unique: true, Columns: []*schema.Column{TranscriptSubjectsColumns[1], TranscriptSubjectsColumns[2]}},
		},
	}
	// ExtractJobsColumns holds the columns for the "extract_jobs" table.
	ExtractJobsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "source_path", Type: field.TypeString},
		{Name: "content_hash", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "engine", Type: field.TypeString, Default: ""},
		{Name: "fragment_count", Type: field.TypeInt, Default: 0},
		{Name: "mean_confidence", Type: field.TypeFloat64, Default: 0},
		{Name: "error_message", Type: field.TypeString, Nullable: true},
		{Name: "transcript_id", Type: field.TypeUUID, Nullable: true},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "finished_at", Type: field.TypeTime, Nullable: true},
	}
	// ExtractJobsTable holds the schema information for the "extract_jobs" table.
	ExtractJobsTable = &schema.Table{
		Name:       tableJobs,
		Columns:    ExtractJobsColumns,
		PrimaryKey: []*schema.Column{ExtractJobsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "extract_jobs_transcripts_jobs",
				Columns:    []*schema.Column{ExtractJobsColumns[8]},
				RefColumns: []*schema.Column{TranscriptsColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{Name: "extractjob_status_started_at", Columns: []*schema.Column{ExtractJobsColumns[3], ExtractJobsColumns[9]}},
			{Name: "extractjob_content_hash", Columns: []*schema.Column{ExtractJobsColumns[2]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		TranscriptsTable,
		TranscriptSubjectsTable,
		ExtractJobsTable,
	}
)

func init() {
	TranscriptSubjectsTable.ForeignKeys[0].RefTable = TranscriptsTable
	ExtractJobsTable.ForeignKeys[0].RefTable = TranscriptsTable
}

// Migrate creates or updates the tables above.
func (db *DB) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(db.Driver)
	if err != nil {
		return common.NewAppError(common.CodeStorage, "init migration", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		db.logger.Error("schema migration failed", "error", err)
		return common.NewAppError(common.CodeStorage, "migrate", err)
	}
	db.logger.Info("schema migrated", "tables", len(Tables))
	return nil
}
