package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/async"
	"github.com/joseph-ayodele/transcript-reader/internal/bootstrap"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/export"
	"github.com/joseph-ayodele/transcript-reader/internal/ingest"
	"github.com/joseph-ayodele/transcript-reader/internal/pipeline"
	"github.com/joseph-ayodele/transcript-reader/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := bootstrap.NewLogger(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	queue := async.NewProcessorQueue(app.Processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.JobTimeout),
		async.WithCompletion(func(job async.Job, res *pipeline.Result, err error) {
			if err != nil {
				return // already logged by the queue
			}
			logger.Info("transcript ready",
				"path", job.Path,
				"transcript_id", res.TranscriptID,
				"needs_review", res.NeedsReview,
				"cached", res.Cached,
				"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
			)
		}),
	)

	if cfg.Watch.Dir != "" {
		if err := watch(ctx, cfg.Watch, queue, logger); err != nil {
			logger.Error("failed to start watcher", "dir", cfg.Watch.Dir, "error", err)
			os.Exit(1)
		}
	}

	svc := server.NewTranscriptService(server.Deps{
		Parser:      app.Parser,
		Processor:   app.Processor,
		Queue:       queue,
		Transcripts: app.Transcripts,
		Export:      export.NewService(app.Transcripts, logger),
	}, logger)
	grpcServer, healthServer := server.NewGRPCServer(svc, logger)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	logger.Info("transcript-reader listening", "addr", addr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.JobTimeout)
	defer cancel()
	queue.Shutdown(drainCtx)
}

// watch queues every image that appears under the configured directory.
func watch(ctx context.Context, wc common.WatchConfig, queue async.Queue, logger *slog.Logger) error {
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{wc.Dir},
		AllowedExts: constants.AllowedExtensions,
		InitialScan: wc.InitialScan,
		Debounce:    wc.Debounce,
		SkipHidden:  true,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.Info("watching directory", "dir", wc.Dir, "initial_scan", wc.InitialScan)
	go func() {
		for {
			select {
			case p, ok := <-paths:
				if !ok {
					return
				}
				if err := queue.Enqueue(ctx, async.Job{Path: p, SubmittedAt: time.Now()}); err != nil {
					logger.Warn("watch.enqueue.failed", "path", p, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watch.error", "error", err)
			}
		}
	}()
	return nil
}
