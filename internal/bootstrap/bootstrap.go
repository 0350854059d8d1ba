// Package bootstrap wires configuration into the storage, OCR and parsing
// components shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/transcript-reader/internal/cache"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/curriculum"
	"github.com/joseph-ayodele/transcript-reader/internal/imaging"
	"github.com/joseph-ayodele/transcript-reader/internal/ocr"
	"github.com/joseph-ayodele/transcript-reader/internal/ocr/tesseract"
	"github.com/joseph-ayodele/transcript-reader/internal/pipeline"
	"github.com/joseph-ayodele/transcript-reader/internal/repository"
	"github.com/joseph-ayodele/transcript-reader/internal/server"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// NewLogger builds the process logger. format is "json" or "text"; text
// output drops the time attribute to keep terminal logs short.
func NewLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		}
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParserConfig starts from the built-in curriculum, or the curriculum file
// when one is configured, and applies explicit environment overrides.
// Thresholds left at their defaults do not override the file.
func ParserConfig(pc common.ParseConfig) (transcript.Config, error) {
	cfg := transcript.DefaultConfig()
	if pc.CurriculumFile != "" {
		var err error
		if cfg, err = curriculum.LoadFile(pc.CurriculumFile); err != nil {
			return transcript.Config{}, err
		}
	}
	if pc.ConfidenceThreshold != transcript.DefaultConfidenceThreshold {
		cfg.ConfidenceThreshold = pc.ConfidenceThreshold
	}
	if pc.MatchThreshold != transcript.DefaultMatchThreshold {
		cfg.MatchThreshold = pc.MatchThreshold
	}
	if pc.Language != "" {
		cfg.Language = transcript.Language(pc.Language)
	}
	return cfg, cfg.Validate()
}

func NewParser(pc common.ParseConfig, logger *slog.Logger) (*transcript.Parser, error) {
	cfg, err := ParserConfig(pc)
	if err != nil {
		return nil, err
	}
	return transcript.NewParser(cfg, logger)
}

// NewEngine selects the OCR engine named by cfg.Engine.
func NewEngine(cfg common.OCRConfig, logger *slog.Logger) (ocr.Engine, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", "cli":
		return ocr.NewCLIEngine(cfg.TesseractBin, logger), nil
	case "gosseract":
		return tesseract.New(), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown OCR engine %q", cfg.Engine), common.ErrInvalidInput)
	}
}

// OCROptions maps configuration to per-call recognition options.
func OCROptions(cfg common.OCRConfig) ocr.Options {
	return ocr.Options{Language: cfg.Language, PSM: cfg.PSM, TessdataDir: cfg.TessdataDir}
}

// NewOCRStage builds the OCR stage with preprocessing and HEIC conversion
// as configured. jobs may be nil for callers that only recognize.
func NewOCRStage(cfg *common.Config, engine ocr.Engine, jobs repository.ExtractJobRepository, logger *slog.Logger) *pipeline.OCRStage {
	var prep pipeline.Preprocessor
	if cfg.Imaging.Enabled {
		prep = imaging.NewPreprocessor(imaging.OptionsFromConfig(cfg.Imaging), logger)
	}
	heic := ocr.HEICConverter{
		Converter: cfg.OCR.HeicConverter,
		CacheDir:  cfg.OCR.ArtifactCacheDir,
		Runner:    ocr.ExecRunner{Logger: logger},
		Logger:    logger,
	}
	stage := pipeline.NewOCRStage(engine, OCROptions(cfg.OCR), prep, heic, jobs, logger)
	stage.Timeout = cfg.OCR.Timeout
	return stage
}

// App holds the long-lived components of a processing command.
type App struct {
	Config      *common.Config
	DB          *repository.DB
	Parser      *transcript.Parser
	Transcripts repository.TranscriptRepository
	Jobs        repository.ExtractJobRepository
	Cache       cache.ResultCache
	Processor   *pipeline.Processor

	logger *slog.Logger
}

// New opens storage and the result cache and assembles the pipeline. The
// database schema is migrated on open.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parser, err := NewParser(cfg.Parse, logger)
	if err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}
	engine, err := NewEngine(cfg.OCR, logger)
	if err != nil {
		return nil, err
	}

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	rc, err := cache.Connect(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Warn("result cache unavailable, continuing without it", "error", err)
		rc = cache.Noop{}
	}

	a := &App{
		Config:      cfg,
		DB:          db,
		Parser:      parser,
		Transcripts: repository.NewTranscriptRepository(db, logger),
		Jobs:        repository.NewExtractJobRepository(db, logger),
		Cache:       rc,
		logger:      logger,
	}
	ocrStage := NewOCRStage(cfg, engine, a.Jobs, logger)
	parseStage := pipeline.NewParseStage(parser, a.Transcripts, a.Jobs, cfg.OCR.ReviewConfidence, logger)
	a.Processor = pipeline.NewProcessor(logger, ocrStage, parseStage, a.Jobs, rc)
	logger.Info("pipeline ready", "engine", engine.Name(), "db", db.Dialect(), "imaging", cfg.Imaging.Enabled)
	return a, nil
}

func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		a.logger.Warn("closing result cache", "error", err)
	}
	a.DB.Close()
}
