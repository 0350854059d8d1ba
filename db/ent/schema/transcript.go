// Package schema declares the stored entities in ent's schema language. The
// repository builds its statements by hand; these definitions are the
// reference its migration tables are checked against.
package schema

import (
	"encoding/json"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/transcript-reader/db/ent/schema/utils"
)

type Transcript struct {
	ent.Schema
}

func (Transcript) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "transcripts"},
	}
}

func (Transcript) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("source_path").NotEmpty(),
		field.String("content_hash").
			Validate(utils.SHA256Hex),
		field.String("student_name").Optional().Nillable(),
		field.String("class_code").Optional().Nillable(),
		// full record as emitted by the parser
		field.JSON("result_json", json.RawMessage{}).
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.Bool("needs_review").Default(false),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Transcript) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("subjects", TranscriptSubject.Type),
		edge.To("jobs", ExtractJob.Type),
	}
}

func (Transcript) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("content_hash"),
		index.Fields("needs_review", "created_at"),
	}
}

// TranscriptSubject is one subject line of a transcript, kept in reading
// order by position.
type TranscriptSubject struct {
	ent.Schema
}

func (TranscriptSubject) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "transcript_subjects"},
	}
}

func (TranscriptSubject) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id"),
		field.UUID("transcript_id", uuid.UUID{}),
		field.Int("position").NonNegative(),
		field.String("subject").NotEmpty(),
		field.Bool("recognized"),
		field.String("term1").Optional().Nillable(),
		field.String("term2").Optional().Nillable(),
		field.String("final").Optional().Nillable(),
	}
}

func (TranscriptSubject) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("transcript", Transcript.Type).
			Ref("subjects").
			Field("transcript_id").
			Unique().
			Required().
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (TranscriptSubject) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("transcript_id", "position").Unique(),
	}
}
