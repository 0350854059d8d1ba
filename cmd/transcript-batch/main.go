package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/transcript-reader/internal/bootstrap"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/export"
	"github.com/joseph-ayodele/transcript-reader/internal/ingest"
	"github.com/joseph-ayodele/transcript-reader/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	cfg := common.LoadConfig()

	// Parse CLI flags
	var (
		dir        = flag.String("dir", "", "directory to process transcript images from (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		inmem      = flag.Bool("inmem", false, "use an in-memory SQLite database")
		sqlitePath = flag.String("sqlite", "", "SQLite database file (overrides DB_DRIVER/DB_URL)")
		workers    = flag.Int("workers", cfg.Queue.Workers, "files processed concurrently")
		reviewOnly = flag.Bool("review-only", false, "export only transcripts that need review")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "transcripts.xlsx")
	}
	if *workers < 1 {
		*workers = 1
	}

	switch {
	case *inmem:
		cfg.Database.Driver, cfg.Database.DSN = "sqlite", ":memory:"
	case *sqlitePath != "":
		cfg.Database.Driver, cfg.Database.DSN = "sqlite", *sqlitePath
	case cfg.Database.DSN == "":
		printError("Error: set DB_URL, --sqlite or --inmem\n")
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	files, stats, err := ingest.ScanDirectory(ctx, *dir, ingest.ScanOptions{SkipHidden: true})
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("scan complete", "dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

	start := time.Now()
	var processed, failures, review atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	for _, f := range files {
		if f.Err != "" {
			failures.Add(1)
			continue
		}
		path := f.Path
		g.Go(func() error {
			res, err := app.Processor.ProcessFile(gctx, path)
			if err != nil {
				// one bad image must not stop the batch; only cancellation does
				logger.Error("failed to process file", "path", path, "error", err)
				failures.Add(1)
				return gctx.Err()
			}
			processed.Add(1)
			if res.NeedsReview {
				review.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("batch interrupted", "error", err)
		os.Exit(1)
	}

	// Export to XLSX
	filter := repository.ListFilter{}
	if *reviewOnly {
		t := true
		filter.NeedsReview = &t
	}
	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := export.NewService(app.Transcripts, logger).ExportTranscriptsXLSX(ctx, filter)
	if err != nil {
		logger.Error("failed to export transcripts", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_matched", stats.Matched,
		"files_processed", processed.Load(),
		"needs_review", review.Load(),
		"failures", failures.Load(),
		"duration_ms", time.Since(start).Milliseconds(),
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files matched: %d\n", stats.Matched)
	fmt.Printf("- Files processed: %d\n", processed.Load())
	fmt.Printf("- Needs review: %d\n", review.Load())
	fmt.Printf("- Failures: %d\n", failures.Load())
	fmt.Printf("- Output: %s\n", *out)
}
