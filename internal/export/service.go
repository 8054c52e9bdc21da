// Package export renders a processed exam as an XLSX answer-key workbook.
package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/prepforge/exam-pipeline/internal/entity"
)

// Service produces XLSX bytes for processed exams.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// AnswerKeyXLSX returns a workbook with one row per question: number, text,
// options, synthesized answer, confidence, hint, and explanation.
func (s *Service) AnswerKeyXLSX(exam *entity.ProcessedExam) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Answer Key"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet so the workbook opens on the key
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Question #",
		"Page",
		"Question",
		"Options",
		"Correct Answer",
		"Confidence",
		"Hint",
		"Explanation",
		"Diagrams",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	answered := 0
	for _, q := range exam.Questions {
		if q.Answered() {
			answered++
		}
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		number := ""
		if q.QuestionNumber != nil {
			number = *q.QuestionNumber
		}
		write(1, number)
		write(2, q.PageNumber)
		write(3, q.QuestionText)
		write(4, strings.Join(q.Options, " | "))
		write(5, deref(q.CorrectAnswer))
		confidence := ""
		if level, ok := q.ConfidenceLevel(); ok {
			confidence = string(level)
		}
		write(6, confidence)
		write(7, deref(q.Hint))
		write(8, deref(q.Explanation))

		var refs []string
		for _, d := range q.Diagrams {
			refs = append(refs, fmt.Sprintf("%s (p.%d)", d.ID, d.PageNumber))
		}
		write(9, strings.Join(refs, ", "))
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.answer_key.ok",
		"title", exam.Metadata.Title,
		"questions", len(exam.Questions),
		"answered", answered,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
