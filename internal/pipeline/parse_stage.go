package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/entity"
	"github.com/joseph-ayodele/transcript-reader/internal/ocr"
	"github.com/joseph-ayodele/transcript-reader/internal/repository"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

type ParseStage struct {
	Parser           *transcript.Parser
	Transcripts      repository.TranscriptRepository
	Jobs             repository.ExtractJobRepository
	ReviewConfidence float64
	Logger           *slog.Logger
}

func NewParseStage(parser *transcript.Parser, transcripts repository.TranscriptRepository, jobs repository.ExtractJobRepository, reviewConfidence float64, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	if reviewConfidence <= 0 {
		reviewConfidence = DefaultReviewConfidence
	}
	return &ParseStage{
		Parser:           parser,
		Transcripts:      transcripts,
		Jobs:             jobs,
		ReviewConfidence: reviewConfidence,
		Logger:           logger,
	}
}

// Run structures the fragments, validates the record against the output
// schema, stores it and marks the job PARSED.
func (s *ParseStage) Run(ctx context.Context, jobID uuid.UUID, sourcePath, contentHash string, frags []transcript.Fragment) (*Result, error) {
	logger := common.LoggerFromContext(ctx, s.Logger)
	rec := s.Parser.Parse(frags)
	if err := transcript.ValidateRecord(rec); err != nil {
		return nil, common.NewAppError(common.CodeSchema, "record failed output schema", err)
	}

	mean := ocr.MeanConfidence(frags)
	needsReview := rec.NeedsReview()
	if mean < s.ReviewConfidence {
		logger.Warn("ocr confidence low; needs review", "job_id", jobID, "conf", mean)
		needsReview = true
	}

	saved, err := s.Transcripts.Save(ctx, &entity.Transcript{
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Record:      rec,
		NeedsReview: needsReview,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Jobs.FinishSuccess(ctx, jobID, saved.ID); err != nil {
		return nil, err
	}

	return &Result{
		TranscriptID:   saved.ID,
		SourcePath:     sourcePath,
		ContentHash:    contentHash,
		Record:         rec,
		NeedsReview:    needsReview,
		FragmentCount:  len(frags),
		MeanConfidence: mean,
	}, nil
}
