package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/imaging"
	"github.com/joseph-ayodele/transcript-reader/internal/ocr"
	"github.com/joseph-ayodele/transcript-reader/internal/repository"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// Preprocessor cleans an image before recognition.
type Preprocessor interface {
	Process(ctx context.Context, data []byte) (*imaging.Result, error)
}

// HEICConverter turns HEIC/HEIF bytes into PNG bytes.
type HEICConverter interface {
	ToPNG(ctx context.Context, data []byte) ([]byte, error)
}

type OCRStage struct {
	Engine  ocr.Engine
	Options ocr.Options
	Prep    Preprocessor  // nil skips preprocessing
	HEIC    HEICConverter // nil rejects HEIC input
	Jobs    repository.ExtractJobRepository
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewOCRStage(engine ocr.Engine, opts ocr.Options, prep Preprocessor, heic HEICConverter, jobs repository.ExtractJobRepository, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{Engine: engine, Options: opts, Prep: prep, HEIC: heic, Jobs: jobs, Logger: logger}
}

// Run converts, preprocesses and recognizes one image, then marks the job
// OCR_OK with the recognition stats. Without Jobs the bookkeeping is skipped.
func (s *OCRStage) Run(ctx context.Context, jobID uuid.UUID, ext string, data []byte) ([]transcript.Fragment, error) {
	logger := common.LoggerFromContext(ctx, s.Logger)
	if constants.IsHEIC(ext) {
		if s.HEIC == nil {
			return nil, common.NewAppError(common.CodeUnsupported, "HEIC input needs a converter", common.ErrUnsupported)
		}
		png, err := s.HEIC.ToPNG(ctx, data)
		if err != nil {
			return nil, err
		}
		data = png
	}

	if s.Prep != nil {
		res, err := s.Prep.Process(ctx, data)
		if err != nil {
			return nil, err
		}
		logger.Debug("ocr.preprocess.ok",
			"job_id", jobID,
			"rotated", res.Rotated,
			"skew", res.SkewAngle,
			"ink_ratio", res.InkRatio,
			"stamp_pixels", res.StampPixels,
		)
		data = res.Data
	}

	rctx, cancel := common.WithTimeout(ctx, s.Timeout)
	defer cancel()
	frags, err := s.Engine.Recognize(rctx, data, s.Options)
	if err != nil {
		return nil, err
	}

	stats := repository.OCRStats{
		Engine:         s.Engine.Name(),
		FragmentCount:  len(frags),
		MeanConfidence: ocr.MeanConfidence(frags),
	}
	if s.Jobs != nil {
		if err := s.Jobs.MarkOCR(ctx, jobID, stats); err != nil {
			return nil, err
		}
	}
	logger.Info("ocr.ok", "job_id", jobID, "engine", stats.Engine, "fragments", stats.FragmentCount, "confidence", stats.MeanConfidence)
	return frags, nil
}
