package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/prepforge/exam-pipeline/internal/answer"
	"github.com/prepforge/exam-pipeline/internal/common"
	"github.com/prepforge/exam-pipeline/internal/docsource"
	"github.com/prepforge/exam-pipeline/internal/export"
	"github.com/prepforge/exam-pipeline/internal/extract"
	"github.com/prepforge/exam-pipeline/internal/inference"
	"github.com/prepforge/exam-pipeline/internal/inference/gemini"
	"github.com/prepforge/exam-pipeline/internal/inference/openai"
	"github.com/prepforge/exam-pipeline/internal/pipeline"
	"github.com/prepforge/exam-pipeline/internal/raster"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 || len(os.Args) > 4 {
		logger.Error("usage", "cmd", "processexam <path-or-url> [out.json [answer-key.xlsx]]")
		os.Exit(2)
	}
	input := os.Args[1]
	outPath := "exam.json"
	if len(os.Args) >= 3 {
		outPath = os.Args[2]
	}
	keyPath := ""
	if len(os.Args) == 4 {
		keyPath = os.Args[3]
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
	ctx, cancel := context.WithTimeout(ctx, cfg.Pipeline.ProcessTimeout)
	defer cancel()

	proc := buildProcessor(cfg, engine, logger)

	start := time.Now()
	exam, err := proc.Process(ctx, input)
	if err != nil {
		logger.Error("processing failed",
			"input", input, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	b, err := json.MarshalIndent(exam, "", "  ")
	if err != nil {
		logger.Error("marshal artifact", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		logger.Error("write artifact", "path", outPath, "error", err)
		os.Exit(1)
	}

	if keyPath != "" {
		xlsx, err := export.NewService(logger).AnswerKeyXLSX(exam)
		if err != nil {
			logger.Error("build answer key", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(keyPath, xlsx, 0o644); err != nil {
			logger.Error("write answer key", "path", keyPath, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("processing OK",
		"input", input,
		"title", exam.Metadata.Title,
		"questions", len(exam.Questions),
		"artifact", outPath,
		"duration_ms", time.Since(start).Milliseconds(),
	)
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
