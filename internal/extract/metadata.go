package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prepforge/exam-pipeline/constants"
	"github.com/prepforge/exam-pipeline/internal/entity"
	"github.com/prepforge/exam-pipeline/internal/inference"
)

// PlaceholderTitle is the metadata fallback when extraction fails.
const PlaceholderTitle = "Untitled Exam"

// MetadataExtractor issues a single structured call over the opening pages.
type MetadataExtractor struct {
	engine inference.Engine
	logger *slog.Logger
	pages  int
}

func NewMetadataExtractor(engine inference.Engine, logger *slog.Logger) *MetadataExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataExtractor{engine: engine, logger: logger, pages: constants.MetadataPageCount}
}

type metadataWire struct {
	Title           string `json:"title"`
	Subject         string `json:"subject"`
	Topic           string `json:"topic"`
	TotalQuestions  int    `json:"total_questions"`
	DurationMinutes *int   `json:"duration_minutes"`
	DifficultyLevel string `json:"difficulty_level"`
}

// Extract never fails: any inference error, timeout, or schema violation
// degrades to placeholder metadata so the pipeline keeps going. The returned
// TotalQuestions is provisional until the linker overwrites it.
func (x *MetadataExtractor) Extract(ctx context.Context, pages []entity.PageImage) entity.ExamMetadata {
	start := time.Now()

	if len(pages) > x.pages {
		pages = pages[:x.pages]
	}
	if len(pages) == 0 {
		x.logger.Warn("extract.metadata.no_pages")
		return entity.ExamMetadata{Title: PlaceholderTitle}
	}

	raw, err := x.engine.Structured(ctx, inference.Request{
		Instruction: BuildMetadataPrompt(),
		SchemaName:  "extract_exam_metadata",
		Schema:      BuildMetadataSchema(),
		Images:      pages,
	})
	if err != nil {
		x.logger.Error("extract.metadata.failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExamMetadata{Title: PlaceholderTitle}
	}

	var w metadataWire
	if err := json.Unmarshal(raw, &w); err != nil {
		x.logger.Error("extract.metadata.unmarshal_failed", "error", err)
		return entity.ExamMetadata{Title: PlaceholderTitle}
	}
	if w.Title == "" {
		w.Title = PlaceholderTitle
	}

	x.logger.Info("extract.metadata.ok",
		"title", w.Title,
		"subject", w.Subject,
		"provisional_total", w.TotalQuestions,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.ExamMetadata{
		Title:           w.Title,
		Subject:         w.Subject,
		Topic:           w.Topic,
		DifficultyLevel: w.DifficultyLevel,
		TotalQuestions:  w.TotalQuestions,
		DurationMinutes: w.DurationMinutes,
	}
}
