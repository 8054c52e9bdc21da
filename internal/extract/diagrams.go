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

// DiagramExtractor enumerates diagrams one page at a time. A failed page is
// the caller's problem to isolate; this type just reports it.
type DiagramExtractor struct {
	engine inference.Engine
	logger *slog.Logger
}

func NewDiagramExtractor(engine inference.Engine, logger *slog.Logger) *DiagramExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiagramExtractor{engine: engine, logger: logger}
}

type diagramWire struct {
	ID             string          `json:"id"`
	Description    string          `json:"description"`
	Position       entity.Position `json:"position"`
	QuestionNumber *string         `json:"question_number"`
}

// ExtractPage returns the diagrams found on one page, tagged with the page
// number and a reference back to the page image. An empty result is valid.
func (x *DiagramExtractor) ExtractPage(ctx context.Context, page entity.PageImage) ([]entity.Diagram, error) {
	start := time.Now()

	raw, err := x.engine.Structured(ctx, inference.Request{
		Instruction: BuildDiagramPrompt(page.PageNumber),
		SchemaName:  "extract_diagrams",
		Schema:      BuildDiagramsSchema(),
		Images:      []entity.PageImage{page},
	})
	if err != nil {
		return nil, fmt.Errorf("page %d diagram extraction: %w", page.PageNumber, err)
	}

	var w struct {
		Diagrams []diagramWire `json:"diagrams"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("page %d diagram decode: %w", page.PageNumber, err)
	}

	out := make([]entity.Diagram, 0, len(w.Diagrams))
	for _, d := range w.Diagrams {
		id := d.ID
		if id == "" {
			id = fmt.Sprintf("diagram_%d_%s", page.PageNumber, uuid.New().String()[:8])
		}
		out = append(out, entity.Diagram{
			ID:             id,
			PageNumber:     page.PageNumber,
			Description:    d.Description,
			Position:       d.Position,
			QuestionNumber: d.QuestionNumber,
			PageRef:        page.PageNumber,
		})
	}

	x.logger.Info("extract.diagrams.ok",
		"page", page.PageNumber,
		"count", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
