// Package pipeline coordinates the exam document processing stages:
// source → raster → {metadata, diagrams, questions} → link → answers.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/exam-pipeline/constants"
	"github.com/prepforge/exam-pipeline/internal/answer"
	"github.com/prepforge/exam-pipeline/internal/common"
	"github.com/prepforge/exam-pipeline/internal/docsource"
	"github.com/prepforge/exam-pipeline/internal/entity"
	"github.com/prepforge/exam-pipeline/internal/extract"
	"github.com/prepforge/exam-pipeline/internal/linker"
	"github.com/prepforge/exam-pipeline/internal/raster"
)

// Processor owns the full document-to-artifact flow. Per-page and
// per-question units run concurrently under MaxInFlight; each unit writes
// into its own output slot so downstream stages always see results in
// original page/question order, never completion order.
type Processor struct {
	Logger      *slog.Logger
	Source      *docsource.Source
	Raster      *raster.Rasterizer
	Metadata    *extract.MetadataExtractor
	Diagrams    *extract.DiagramExtractor
	Questions   *extract.QuestionExtractor
	Answers     *answer.Synthesizer
	MaxInFlight int
}

func NewProcessor(
	logger *slog.Logger,
	source *docsource.Source,
	rz *raster.Rasterizer,
	meta *extract.MetadataExtractor,
	diagrams *extract.DiagramExtractor,
	questions *extract.QuestionExtractor,
	answers *answer.Synthesizer,
	maxInFlight int,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	return &Processor{
		Logger:      logger,
		Source:      source,
		Raster:      rz,
		Metadata:    meta,
		Diagrams:    diagrams,
		Questions:   questions,
		Answers:     answers,
		MaxInFlight: maxInFlight,
	}
}

// Process runs the pipeline for one input (path or URL). Fatal failures
// (download, unreadable document) surface as StageError before any partial
// artifact exists; extraction and synthesis failures degrade per the
// three-tier policy and the call still succeeds.
func (p *Processor) Process(ctx context.Context, input string) (*entity.ProcessedExam, error) {
	start := time.Now()

	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	p.Logger.Info("pipeline.start", "req_id", rid, "input", input)

	doc, release, err := p.Source.Resolve(ctx, input)
	if err != nil {
		p.Logger.Error("pipeline.source.failed", "input", input, "error", err)
		return nil, common.NewStageError("source", err)
	}
	// Scoped acquisition: the temp resource is released on every exit path,
	// including cancellation.
	defer release()

	pages, err := p.Raster.Rasterize(ctx, doc.Path)
	if err != nil {
		p.Logger.Error("pipeline.rasterize.failed", "input", input, "error", err)
		return nil, common.NewStageError("rasterize", err)
	}
	p.Logger.Info("pipeline.rasterize.ok", "pages", len(pages))

	meta := p.Metadata.Extract(ctx, pages)
	meta.SourceReference = doc.Origin

	diagrams, questions := p.extractPages(ctx, pages)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exam := linker.Link(meta, diagrams, questions)
	p.Logger.Info("pipeline.link.ok",
		"questions", len(exam.Questions),
		"diagrams", len(diagrams),
	)

	exam.Questions = p.synthesizeAnswers(ctx, exam.Questions, exam.Metadata)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.Logger.Info("pipeline.ok",
		"req_id", rid,
		"input", input,
		"questions", len(exam.Questions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &exam, nil
}

// extractPages fans out one diagram unit and one question unit per page,
// then flattens both result sets in page order. A failed page contributes
// zero diagrams/questions without disturbing its siblings.
func (p *Processor) extractPages(ctx context.Context, pages []entity.PageImage) ([]entity.Diagram, []entity.Question) {
	diagramSlots := make([][]entity.Diagram, len(pages))
	questionSlots := make([][]entity.Question, len(pages))

	sem := make(chan struct{}, p.MaxInFlight)
	var wg sync.WaitGroup

	for i := range pages {
		page := pages[i]

		wg.Add(2)
		go func(slot int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ds, err := p.Diagrams.ExtractPage(ctx, page)
			if err != nil {
				p.Logger.Warn("pipeline.diagrams.page_failed",
					"page", page.PageNumber, "error", err)
				return
			}
			diagramSlots[slot] = ds
		}(i)

		go func(slot int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			qs, err := p.Questions.ExtractPage(ctx, page)
			if err != nil {
				p.Logger.Warn("pipeline.questions.page_failed",
					"page", page.PageNumber, "error", err)
				return
			}
			questionSlots[slot] = qs
		}(i)
	}
	wg.Wait()

	var diagrams []entity.Diagram
	for _, ds := range diagramSlots {
		diagrams = append(diagrams, ds...)
	}
	var questions []entity.Question
	for _, qs := range questionSlots {
		questions = append(questions, qs...)
	}
	return diagrams, questions
}

// synthesizeAnswers fans out one synthesis unit per question and reassembles
// by question index.
func (p *Processor) synthesizeAnswers(ctx context.Context, questions []entity.Question, meta entity.ExamMetadata) []entity.Question {
	out := make([]entity.Question, len(questions))

	sem := make(chan struct{}, p.MaxInFlight)
	var wg sync.WaitGroup
	var mu sync.Mutex
	states := map[constants.AnswerState]int{}

	for i := range questions {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			q, state := p.Answers.Synthesize(ctx, questions[slot], meta)
			out[slot] = q

			mu.Lock()
			states[state]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	p.Logger.Info("pipeline.answers.done",
		"answered", states[constants.AnswerStateAnswered],
		"fallback", states[constants.AnswerStateAnsweredFallback],
		"default", states[constants.AnswerStateAnsweredDefault],
		"unanswered", states[constants.AnswerStateUnanswered],
	)
	return out
}
