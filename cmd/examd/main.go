// examd watches drop folders for exam PDFs and processes each one through
// the pipeline, writing a JSON artifact per document.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prepforge/exam-pipeline/internal/answer"
	"github.com/prepforge/exam-pipeline/internal/async"
	"github.com/prepforge/exam-pipeline/internal/common"
	"github.com/prepforge/exam-pipeline/internal/docsource"
	"github.com/prepforge/exam-pipeline/internal/extract"
	"github.com/prepforge/exam-pipeline/internal/inference"
	"github.com/prepforge/exam-pipeline/internal/inference/gemini"
	"github.com/prepforge/exam-pipeline/internal/inference/openai"
	"github.com/prepforge/exam-pipeline/internal/ingest"
	"github.com/prepforge/exam-pipeline/internal/pipeline"
	"github.com/prepforge/exam-pipeline/internal/raster"
)

func main() {
	var (
		dirs     = flag.String("dirs", "", "comma-separated directories to watch (required)")
		out      = flag.String("out", "", "output directory for artifacts (default: alongside each document)")
		workers  = flag.Int("workers", 2, "number of processing workers")
		scan     = flag.Bool("scan", true, "process documents already present at startup")
		debounce = flag.Duration("debounce", 500*time.Millisecond, "coalesce window for file events")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *dirs == "" {
		logger.Error("usage", "cmd", "examd --dirs <dir[,dir...]> [--out dir] [--workers n]")
		os.Exit(2)
	}
	var roots []string
	for _, d := range strings.Split(*dirs, ",") {
		if d = strings.TrimSpace(d); d != "" {
			roots = append(roots, d)
		}
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Error("engine setup failed", "error", err)
		os.Exit(1)
	}
	logger.Info("inference engine ready", "provider", engine.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	proc := buildProcessor(cfg, engine, logger)
	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(*workers),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
		async.WithOutputDir(*out),
	)

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       roots,
		InitialScan: *scan,
		Debounce:    *debounce,
	})
	if err != nil {
		logger.Error("watcher start failed", "error", err)
		os.Exit(1)
	}
	logger.Info("watching for documents", "roots", roots, "workers", *workers)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			queue.Shutdown(shutdownCtx)
			cancel()
			return
		case path, ok := <-events:
			if !ok {
				continue
			}
			_ = queue.Enqueue(ctx, async.Job{Path: path, SubmittedAt: time.Now()})
		case werr, ok := <-watchErrs:
			if ok && werr != nil {
				logger.Warn("watcher reported error", "error", werr)
			}
		}
	}
}

func buildEngine(cfg *common.Config, logger *slog.Logger) (inference.Engine, error) {
	builders := map[string]inference.ProviderBuilder{
		"openai": func(l *slog.Logger) (inference.Engine, error) {
			return openai.NewClient(openai.Config{
				APIKey:      cfg.Inference.APIKey,
				BaseURL:     cfg.Inference.BaseURL,
				VisionModel: cfg.Inference.VisionModel,
				TextModel:   cfg.Inference.TextModel,
				Temperature: cfg.Inference.Temperature,
				Timeout:     cfg.Inference.Timeout,
			}, l), nil
		},
		"gemini": func(l *slog.Logger) (inference.Engine, error) {
			eng := gemini.New(cfg.Inference.APIKey, cfg.Inference.VisionModel, cfg.Inference.TextModel, l)
			eng.Temperature = cfg.Inference.Temperature
			return eng, nil
		},
	}
	return inference.NewFromBuilders(cfg.Inference.Provider, builders,
		cfg.Inference.RequestsPerSecond, cfg.Inference.Burst, logger)
}

func buildProcessor(cfg *common.Config, engine inference.Engine, logger *slog.Logger) *pipeline.Processor {
	source := docsource.NewSource(docsource.Config{
		MaxBytes: cfg.Source.MaxDownloadBytes,
		Timeout:  cfg.Source.DownloadTimeout,
	}, logger)
	rz := raster.NewRasterizer(raster.Config{
		Pdftoppm: cfg.Raster.Pdftoppm,
		DPI:      cfg.Raster.DPI,
		MaxPages: cfg.Raster.MaxPages,
	}, logger)

	return pipeline.NewProcessor(
		logger,
		source,
		rz,
		extract.NewMetadataExtractor(engine, logger),
		extract.NewDiagramExtractor(engine, logger),
		extract.NewQuestionExtractor(engine, logger),
		answer.NewSynthesizer(engine, logger),
		cfg.Pipeline.MaxInFlight,
	)
}
