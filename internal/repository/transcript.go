package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/entity"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// ListFilter narrows List and ListSubjectRows. Zero values mean no filter;
// Offset only applies together with Limit.
type ListFilter struct {
	NeedsReview *bool
	Limit       int
	Offset      int
}

type TranscriptRepository interface {
	Save(ctx context.Context, t *entity.Transcript) (*entity.Transcript, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Transcript, error)
	FindByHash(ctx context.Context, contentHash string) (*entity.Transcript, error)
	List(ctx context.Context, f ListFilter) ([]*entity.Transcript, error)
	ListSubjectRows(ctx context.Context, f ListFilter) ([]entity.SubjectRow, error)
}

type transcriptRepo struct {
	db  *DB
	log *slog.Logger
}

func NewTranscriptRepository(db *DB, log *slog.Logger) TranscriptRepository {
	if log == nil {
		log = slog.Default()
	}
	return &transcriptRepo{db: db, log: log}
}

var transcriptColumns = []string{"id", "source_path", "content_hash", "result_json", "needs_review", "created_at"}

// Save stores the transcript and one row per subject in a transaction. A
// zero ID or CreatedAt is filled in.
func (r *transcriptRepo) Save(ctx context.Context, t *entity.Transcript) (*entity.Transcript, error) {
	out := *t
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(out.Record)
	if err != nil {
		return nil, common.NewAppError(common.CodeStorage, "encode transcript record", err)
	}

	var className *string
	if out.Record.ClassCode != nil {
		c := out.Record.ClassCode.String()
		className = &c
	}

	b := r.db.sql()
	tx, err := r.db.Driver.Tx(ctx)
	if err != nil {
		return nil, common.NewAppError(common.CodeStorage, "begin tx", err)
	}
	q, args := b.Insert(tableTranscripts).
		Columns("id", "source_path", "content_hash", "student_name", "class_code", "result_json", "needs_review", "created_at").
		Values(out.ID, out.SourcePath, out.ContentHash, out.Record.StudentName, className, string(payload), out.NeedsReview, out.CreatedAt).
		Query()
	if err := tx.Exec(ctx, q, args, nil); err != nil {
		return nil, r.rollback(tx, "insert transcript", err)
	}
	for i, s := range out.Record.Subjects {
		q, args := b.Insert(tableSubjects).
			Columns("transcript_id", "position", "subject", "recognized", "term1", "term2", "final").
			Values(out.ID, i, s.Subject.String(), s.Subject.Recognized(), scoreText(s.Term1), scoreText(s.Term2), scoreText(s.Final)).
			Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			return nil, r.rollback(tx, "insert subject", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, common.NewAppError(common.CodeStorage, "commit", err)
	}
	r.log.Info("transcript saved", "transcript_id", out.ID, "subjects", len(out.Record.Subjects), "needs_review", out.NeedsReview)
	return &out, nil
}

func (r *transcriptRepo) rollback(tx dialect.Tx, what string, cause error) error {
	if err := tx.Rollback(); err != nil {
		r.log.Error("rollback failed", "error", err)
	}
	r.log.Error(what+" failed", "error", cause)
	return common.NewAppError(common.CodeStorage, what, cause)
}

func scoreText(v *transcript.ScoreValue) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func (r *transcriptRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Transcript, error) {
	sel := r.db.sql().Select(transcriptColumns...).From(r.db.sql().Table(tableTranscripts))
	sel.Where(entsql.EQ(sel.C("id"), id))
	return r.one(ctx, sel, "id", id.String())
}

// FindByHash returns the most recent transcript stored for the content hash.
func (r *transcriptRepo) FindByHash(ctx context.Context, contentHash string) (*entity.Transcript, error) {
	sel := r.db.sql().Select(transcriptColumns...).From(r.db.sql().Table(tableTranscripts))
	sel.Where(entsql.EQ(sel.C("content_hash"), contentHash)).
		OrderBy(entsql.Desc(sel.C("created_at"))).
		Limit(1)
	return r.one(ctx, sel, "content_hash", contentHash)
}

func (r *transcriptRepo) one(ctx context.Context, sel *entsql.Selector, key, val string) (*entity.Transcript, error) {
	list, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("transcript %s=%s: %w", key, val, common.ErrNotFound)
	}
	return list[0], nil
}

// List returns transcripts newest first.
func (r *transcriptRepo) List(ctx context.Context, f ListFilter) ([]*entity.Transcript, error) {
	sel := r.db.sql().Select(transcriptColumns...).From(r.db.sql().Table(tableTranscripts))
	if f.NeedsReview != nil {
		sel.Where(entsql.EQ(sel.C("needs_review"), *f.NeedsReview))
	}
	sel.OrderBy(entsql.Desc(sel.C("created_at")), entsql.Desc(sel.C("id")))
	applyPage(sel, f)
	return r.query(ctx, sel)
}

func applyPage(sel *entsql.Selector, f ListFilter) {
	if f.Limit <= 0 {
		return
	}
	sel.Limit(f.Limit)
	if f.Offset > 0 {
		sel.Offset(f.Offset)
	}
}

func (r *transcriptRepo) query(ctx context.Context, sel *entsql.Selector) ([]*entity.Transcript, error) {
	q, args := sel.Query()
	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, q, args, &rows); err != nil {
		r.log.Error("failed to query transcripts", "error", err)
		return nil, common.NewAppError(common.CodeStorage, "query transcripts", err)
	}
	defer rows.Close()

	var out []*entity.Transcript
	for rows.Next() {
		var (
			t       entity.Transcript
			payload []byte
		)
		if err := rows.Scan(&t.ID, &t.SourcePath, &t.ContentHash, &payload, &t.NeedsReview, &t.CreatedAt); err != nil {
			return nil, common.NewAppError(common.CodeStorage, "scan transcript", err)
		}
		rec, err := transcript.ParseRecordJSON(payload)
		if err != nil {
			return nil, common.NewAppError(common.CodeStorage, "decode transcript record", err)
		}
		t.Record = rec
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeStorage, "iterate transcripts", err)
	}
	return out, nil
}

// ListSubjectRows flattens transcripts into subject rows, oldest transcript
// first and in printed order within a transcript.
func (r *transcriptRepo) ListSubjectRows(ctx context.Context, f ListFilter) ([]entity.SubjectRow, error) {
	b := r.db.sql()
	// aliases must be set before any column is rendered; Join would
	// otherwise rename the table after the select list was built
	t := b.Table(tableTranscripts).As("t")
	s := b.Table(tableSubjects).As("s")
	sel := b.Select(
		t.C("id"), t.C("source_path"), t.C("student_name"), t.C("class_code"), t.C("needs_review"),
		s.C("position"), s.C("subject"), s.C("recognized"), s.C("term1"), s.C("term2"), s.C("final"),
	).From(s).Join(t).On(s.C("transcript_id"), t.C("id"))
	if f.NeedsReview != nil {
		sel.Where(entsql.EQ(t.C("needs_review"), *f.NeedsReview))
	}
	sel.OrderBy(t.C("created_at"), t.C("id"), s.C("position"))
	applyPage(sel, f)

	q, args := sel.Query()
	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, q, args, &rows); err != nil {
		r.log.Error("failed to query subject rows", "error", err)
		return nil, common.NewAppError(common.CodeStorage, "query subject rows", err)
	}
	defer rows.Close()

	var out []entity.SubjectRow
	for rows.Next() {
		var (
			row                        entity.SubjectRow
			name, class, t1, t2, final sql.NullString
		)
		if err := rows.Scan(&row.TranscriptID, &row.SourcePath, &name, &class, &row.NeedsReview,
			&row.Position, &row.Subject, &row.Recognized, &t1, &t2, &final); err != nil {
			return nil, common.NewAppError(common.CodeStorage, "scan subject row", err)
		}
		row.StudentName = nullString(name)
		row.ClassCode = nullString(class)
		row.Term1, row.Term2, row.Final = nullString(t1), nullString(t2), nullString(final)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeStorage, "iterate subject rows", err)
	}
	return out, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
