package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/exam-pipeline/internal/entity"
	"github.com/prepforge/exam-pipeline/internal/inference"
)

// QuestionExtractor extracts questions and option sets one page at a time,
// with the same per-page failure isolation contract as DiagramExtractor.
type QuestionExtractor struct {
	engine inference.Engine
	logger *slog.Logger
}

func NewQuestionExtractor(engine inference.Engine, logger *slog.Logger) *QuestionExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionExtractor{engine: engine, logger: logger}
}

type questionWire struct {
	ID             string   `json:"id"`
	QuestionNumber *string  `json:"question_number"`
	QuestionText   string   `json:"question_text"`
	Options        []string `json:"options"`
	DiagramIDs     []string `json:"diagram_ids"`
}

// ExtractPage returns the questions found on one page. Questions come back
// unanswered; the linker and the synthesizer enrich them later.
func (x *QuestionExtractor) ExtractPage(ctx context.Context, page entity.PageImage) ([]entity.Question, error) {
	start := time.Now()

	raw, err := x.engine.Structured(ctx, inference.Request{
		Instruction: BuildQuestionPrompt(page.PageNumber),
		SchemaName:  "extract_questions",
		Schema:      BuildQuestionsSchema(),
		Images:      []entity.PageImage{page},
	})
	if err != nil {
		return nil, fmt.Errorf("page %d question extraction: %w", page.PageNumber, err)
	}

	var w struct {
		Questions []questionWire `json:"questions"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("page %d question decode: %w", page.PageNumber, err)
	}

	out := make([]entity.Question, 0, len(w.Questions))
	for _, q := range w.Questions {
		id := q.ID
		if id == "" {
			id = fmt.Sprintf("q_%d_%s", page.PageNumber, uuid.New().String()[:8])
		}
		out = append(out, entity.Question{
			ID:             id,
			QuestionNumber: q.QuestionNumber,
			QuestionText:   q.QuestionText,
			Options:        q.Options,
			PageNumber:     page.PageNumber,
			DiagramIDs:     q.DiagramIDs,
		})
	}

	x.logger.Info("extract.questions.ok",
		"page", page.PageNumber,
		"count", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
