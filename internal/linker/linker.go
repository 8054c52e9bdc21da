// Package linker merges extractor outputs into a coherent exam structure.
// It is pure: no I/O, no inference calls, and re-running it on identical
// inputs yields byte-identical results.
package linker

import (
	"github.com/prepforge/exam-pipeline/internal/entity"
)

// Link attaches every diagram whose question_number exactly matches a
// question's question_number (string equality; unset never matches, not even
// another unset) and finalizes metadata. Diagrams keep their discovery order
// inside each question. metadata.TotalQuestions is overwritten with the
// extracted count regardless of what the metadata call returned.
func Link(meta entity.ExamMetadata, diagrams []entity.Diagram, questions []entity.Question) entity.ProcessedExam {
	meta.TotalQuestions = len(questions)

	linked := make([]entity.Question, len(questions))
	for i, q := range questions {
		out := q
		out.Diagrams = nil
		if q.QuestionNumber != nil {
			for _, d := range diagrams {
				if d.QuestionNumber == nil {
					continue
				}
				if *d.QuestionNumber == *q.QuestionNumber {
					out.Diagrams = append(out.Diagrams, entity.DiagramSummary{
						ID:          d.ID,
						Description: d.Description,
						PageNumber:  d.PageNumber,
						Position:    d.Position,
					})
				}
			}
		}
		linked[i] = out
	}

	return entity.ProcessedExam{Metadata: meta, Questions: linked}
}
