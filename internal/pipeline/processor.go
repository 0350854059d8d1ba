// Package pipeline turns a transcript image on disk into a stored,
// structured record.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/cache"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/ocr"
	"github.com/joseph-ayodele/transcript-reader/internal/repository"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// DefaultReviewConfidence flags records whose mean OCR confidence is below it.
const DefaultReviewConfidence = 0.60

// Result describes one processed file.
type Result struct {
	JobID          uuid.UUID                   `json:"job_id"`
	TranscriptID   uuid.UUID                   `json:"transcript_id"`
	SourcePath     string                      `json:"source_path"`
	ContentHash    string                      `json:"content_hash"`
	Record         transcript.TranscriptRecord `json:"record"`
	NeedsReview    bool                        `json:"needs_review"`
	Cached         bool                        `json:"cached"`
	FragmentCount  int                         `json:"fragment_count"`
	MeanConfidence float64                     `json:"mean_confidence"`
}

// Processor coordinates the OCR stage then the parse stage, with job
// bookkeeping and the result cache around them.
type Processor struct {
	logger *slog.Logger
	ocr    *OCRStage
	parse  *ParseStage
	jobs   repository.ExtractJobRepository
	cache  cache.ResultCache
}

func NewProcessor(logger *slog.Logger, ocrStage *OCRStage, parse *ParseStage, jobs repository.ExtractJobRepository, rc cache.ResultCache) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if rc == nil {
		rc = cache.Noop{}
	}
	return &Processor{logger: logger, ocr: ocrStage, parse: parse, jobs: jobs, cache: rc}
}

// ProcessFile reads path and runs it through Process.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, common.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.Process(ctx, path, data)
}

// Process structures one image. sourcePath names the image for storage and
// picks the decoder by extension. Content already seen, in the cache or the
// transcript table, returns without starting a job.
func (p *Processor) Process(ctx context.Context, sourcePath string, data []byte) (*Result, error) {
	ext := constants.NormalizeExt(filepath.Ext(sourcePath))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return nil, common.NewAppError(common.CodeUnsupported, fmt.Sprintf("unsupported file type %q", ext), common.ErrUnsupported)
	}
	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])
	ctx = ocr.WithContentHash(ctx, hashHex)
	ctx = common.WithLogger(ctx, p.logger.With("content_hash", hashHex[:12]))

	if hit, ok := p.lookup(ctx, hashHex); ok {
		hit.SourcePath = sourcePath
		return hit, nil
	}

	job, err := p.jobs.Start(ctx, sourcePath, hashHex)
	if err != nil {
		return nil, err
	}
	ctx = common.WithJobID(ctx, job.ID.String())
	start := time.Now()

	// 1) OCR stage → fragments + confidence, job marked OCR_OK
	frags, err := p.ocr.Run(ctx, job.ID, ext, data)
	if err != nil {
		p.logger.Error("processor.ocr.failed", "job_id", job.ID, "source_path", sourcePath, "err", err)
		p.fail(ctx, job.ID, err)
		return nil, err
	}

	// 2) parse stage → record validated and stored, job marked PARSED
	res, err := p.parse.Run(ctx, job.ID, sourcePath, hashHex, frags)
	if err != nil {
		p.logger.Error("processor.parse.failed", "job_id", job.ID, "source_path", sourcePath, "err", err)
		p.fail(ctx, job.ID, err)
		return nil, err
	}
	res.JobID = job.ID

	if err := p.cache.Set(ctx, hashHex, &cache.Entry{TranscriptID: res.TranscriptID, Record: res.Record, NeedsReview: res.NeedsReview}); err != nil {
		p.logger.Warn("processor.cache.store.failed", "job_id", job.ID, "err", err)
	}
	p.logger.Info("processor.ok",
		"job_id", job.ID,
		"transcript_id", res.TranscriptID,
		"subjects", len(res.Record.Subjects),
		"needs_review", res.NeedsReview,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Processor) lookup(ctx context.Context, hashHex string) (*Result, bool) {
	e, ok, err := p.cache.Get(ctx, hashHex)
	if err != nil {
		p.logger.Warn("processor.cache.lookup.failed", "err", err)
		return nil, false
	}
	if ok {
		p.logger.Debug("processor.cache.hit", "transcript_id", e.TranscriptID)
		return &Result{
			TranscriptID: e.TranscriptID,
			ContentHash:  hashHex,
			Record:       e.Record,
			NeedsReview:  e.NeedsReview,
			Cached:       true,
		}, true
	}
	return p.lookupStored(ctx, hashHex)
}

// lookupStored falls back to the transcript table when the cache missed, and
// warms the cache on a hit.
func (p *Processor) lookupStored(ctx context.Context, hashHex string) (*Result, bool) {
	if p.parse == nil || p.parse.Transcripts == nil {
		return nil, false
	}
	t, err := p.parse.Transcripts.FindByHash(ctx, hashHex)
	if err != nil {
		if !repository.IsNotFound(err) {
			p.logger.Warn("processor.store.lookup.failed", "err", err)
		}
		return nil, false
	}
	p.logger.Debug("processor.store.hit", "transcript_id", t.ID)
	if err := p.cache.Set(ctx, hashHex, &cache.Entry{TranscriptID: t.ID, Record: t.Record, NeedsReview: t.NeedsReview}); err != nil {
		p.logger.Warn("processor.cache.store.failed", "err", err)
	}
	return &Result{
		TranscriptID: t.ID,
		ContentHash:  hashHex,
		Record:       t.Record,
		NeedsReview:  t.NeedsReview,
		Cached:       true,
	}, true
}

// fail records the failure even when ctx has already expired.
func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.jobs.FinishFailure(ctx, jobID, cause.Error()); err != nil {
		p.logger.Error("processor.job.finish_failure.failed", "job_id", jobID, "err", err)
	}
}
