package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/bootstrap"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/ocr"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

type output struct {
	Path           string                      `json:"path"`
	Engine         string                      `json:"engine"`
	Record         transcript.TranscriptRecord `json:"record"`
	NeedsReview    bool                        `json:"needs_review"`
	MeanConfidence float64                     `json:"mean_confidence"`
	Fragments      []transcript.Fragment       `json:"fragments,omitempty"`
}

func main() {
	cfg := common.LoadConfig()
	var (
		engineName = flag.String("engine", cfg.OCR.Engine, `OCR engine: "cli" or "gosseract"`)
		lang       = flag.String("lang", cfg.OCR.Language, "tesseract languages")
		noPrep     = flag.Bool("no-preprocess", false, "skip image preprocessing")
		showFrags  = flag.Bool("fragments", false, "include the recognized fragments")
		timeout    = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	// logs go to stderr so stdout stays pure JSON
	logger := bootstrap.NewLogger(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [flags] <image>")
		os.Exit(2)
	}
	path := flag.Arg(0)
	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		logger.Error("unsupported image type", "path", path, "ext", ext)
		os.Exit(2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read image", "path", path, "error", err)
		os.Exit(1)
	}

	cfg.OCR.Engine, cfg.OCR.Language = *engineName, *lang
	cfg.Imaging.Enabled = cfg.Imaging.Enabled && !*noPrep
	engine, err := bootstrap.NewEngine(cfg.OCR, logger)
	if err != nil {
		logger.Error("ocr engine", "error", err)
		os.Exit(2)
	}
	parser, err := bootstrap.NewParser(cfg.Parse, logger)
	if err != nil {
		logger.Error("parser config", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	sum := sha256.Sum256(data)
	ctx = ocr.WithContentHash(ctx, hex.EncodeToString(sum[:]))

	start := time.Now()
	stage := bootstrap.NewOCRStage(cfg, engine, nil, logger)
	frags, err := stage.Run(ctx, uuid.Nil, ext, data)
	if err != nil {
		logger.Error("ocr failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	rec := parser.Parse(frags)
	mean := ocr.MeanConfidence(frags)

	out := output{
		Path:           path,
		Engine:         engine.Name(),
		Record:         rec,
		NeedsReview:    rec.NeedsReview() || mean < cfg.OCR.ReviewConfidence,
		MeanConfidence: mean,
	}
	if *showFrags {
		out.Fragments = frags
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	logger.Info("ocr ok", "path", path, "fragments", len(frags), "duration_ms", time.Since(start).Milliseconds())
}
