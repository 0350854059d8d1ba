package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/entity"
)

// OCRStats summarizes the recognition step of a job.
type OCRStats struct {
	Engine         string
	FragmentCount  int
	MeanConfidence float64
}

type ExtractJobRepository interface {
	Start(ctx context.Context, sourcePath, contentHash string) (*entity.ExtractJob, error)
	MarkOCR(ctx context.Context, jobID uuid.UUID, stats OCRStats) error
	FinishSuccess(ctx context.Context, jobID, transcriptID uuid.UUID) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log}
}

func (r *extractJobRepo) Start(ctx context.Context, sourcePath, contentHash string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Status:      constants.JobStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	q, args := r.db.sql().Insert(tableJobs).
		Columns("id", "source_path", "content_hash", "status", "engine", "fragment_count", "mean_confidence", "started_at").
		Values(job.ID, job.SourcePath, job.ContentHash, string(job.Status), "", 0, 0.0, job.StartedAt).
		Query()
	if err := r.db.Driver.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extract_job start failed", "source_path", sourcePath, "err", err)
		return nil, common.NewAppError(common.CodeStorage, "start job", err)
	}
	r.log.Info("extract_job started", "job_id", job.ID, "source_path", sourcePath)
	return job, nil
}

func (r *extractJobRepo) MarkOCR(ctx context.Context, jobID uuid.UUID, stats OCRStats) error {
	err := r.update(ctx, jobID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusOCROK)).
			Set("engine", stats.Engine).
			Set("fragment_count", stats.FragmentCount).
			Set("mean_confidence", stats.MeanConfidence)
	})
	if err != nil {
		r.log.Error("extract_job mark(OCR_OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Debug("extract_job OCR done", "job_id", jobID, "engine", stats.Engine, "fragments", stats.FragmentCount)
	return nil
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID, transcriptID uuid.UUID) error {
	err := r.update(ctx, jobID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusParsed)).
			Set("transcript_id", transcriptID).
			Set("finished_at", time.Now().UTC())
	})
	if err != nil {
		r.log.Error("extract_job finish(PARSED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (PARSED)", "job_id", jobID, "transcript_id", transcriptID)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusFailed)).
			Set("error_message", message).
			Set("finished_at", time.Now().UTC())
	})
	if err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) update(ctx context.Context, jobID uuid.UUID, set func(*entsql.UpdateBuilder)) error {
	u := r.db.sql().Update(tableJobs)
	set(u)
	q, args := u.Where(entsql.EQ("id", jobID)).Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, q, args, &res); err != nil {
		return common.NewAppError(common.CodeStorage, "update job", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("extract job %s: %w", jobID, common.ErrNotFound)
	}
	return nil
}

func (r *extractJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	b := r.db.sql()
	sel := b.Select("id", "source_path", "content_hash", "status", "engine", "fragment_count",
		"mean_confidence", "error_message", "transcript_id", "started_at", "finished_at").
		From(b.Table(tableJobs))
	sel.Where(entsql.EQ(sel.C("id"), jobID))
	q, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, q, args, &rows); err != nil {
		return nil, common.NewAppError(common.CodeStorage, "query job", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, common.NewAppError(common.CodeStorage, "query job", err)
		}
		return nil, fmt.Errorf("extract job %s: %w", jobID, common.ErrNotFound)
	}

	var (
		job        entity.ExtractJob
		status     string
		errMsg     sql.NullString
		transcript uuid.NullUUID
		finished   sql.NullTime
	)
	if err := rows.Scan(&job.ID, &job.SourcePath, &job.ContentHash, &status, &job.Engine, &job.FragmentCount,
		&job.MeanConfidence, &errMsg, &transcript, &job.StartedAt, &finished); err != nil {
		return nil, common.NewAppError(common.CodeStorage, "scan job", err)
	}
	job.Status = constants.JobStatus(status)
	job.ErrorMessage = nullString(errMsg)
	if transcript.Valid {
		id := transcript.UUID
		job.TranscriptID = &id
	}
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	return &job, nil
}
