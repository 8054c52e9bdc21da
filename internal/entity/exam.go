package entity

import (
	"github.com/prepforge/exam-pipeline/constants"
)

// PageImage is one rasterized page. The sequence is 1-indexed and immutable
// once produced by the rasterizer.
type PageImage struct {
	PageNumber int    `json:"page_number"`
	PNG        []byte `json:"-"`
}

// Position is an approximate location on a page, in percent of page size.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ExamMetadata is exam-level metadata. TotalQuestions is authoritative only
// after the linker overwrites it with the extracted count; whatever the
// metadata call returned is provisional.
type ExamMetadata struct {
	Title           string `json:"title"`
	Subject         string `json:"subject,omitempty"`
	Topic           string `json:"topic,omitempty"`
	DifficultyLevel string `json:"difficulty_level,omitempty"`
	TotalQuestions  int    `json:"total_questions"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
	SourceReference string `json:"source_reference,omitempty"`
}

// Diagram is a figure found on a page, owned by the diagram extractor and
// read-only for the linker. PageRef points back to the PageImage the diagram
// was found on so the full page can be re-rendered later.
type Diagram struct {
	ID             string   `json:"id"`
	PageNumber     int      `json:"page_number"`
	Description    string   `json:"description"`
	Position       Position `json:"position"`
	QuestionNumber *string  `json:"question_number,omitempty"`
	PageRef        int      `json:"page_ref"`
}

// DiagramSummary is the embedded form of a diagram attached to a question by
// the linker.
type DiagramSummary struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	PageNumber  int      `json:"page_number"`
	Position    Position `json:"position"`
}

// Question is created unanswered by the question extractor, enriched by the
// linker (Diagrams) and the answer synthesizer (answer fields), and never
// mutated after the pipeline completes. Option labels are implicit by
// position (index 0 is "A").
type Question struct {
	ID             string           `json:"id"`
	QuestionNumber *string          `json:"question_number,omitempty"`
	QuestionText   string           `json:"question_text"`
	Options        []string         `json:"options"`
	PageNumber     int              `json:"page_number"`
	DiagramIDs     []string         `json:"diagram_ids,omitempty"`
	Diagrams       []DiagramSummary `json:"diagrams,omitempty"`
	CorrectAnswer  *string          `json:"correct_answer,omitempty"`
	Explanation    *string          `json:"explanation,omitempty"`
	Hint           *string          `json:"hint,omitempty"`
	Confidence     *string          `json:"confidence,omitempty"`
}

// Answered reports whether the synthesizer populated the answer fields.
func (q Question) Answered() bool {
	return q.CorrectAnswer != nil
}

// ConfidenceLevel returns the canonical confidence, or UNSURE when unset is
// not meaningful to the caller.
func (q Question) ConfidenceLevel() (constants.Confidence, bool) {
	if q.Confidence == nil {
		return "", false
	}
	return constants.Confidence(*q.Confidence), true
}

// ProcessedExam is the pipeline's sole output, owned by the caller after
// return.
type ProcessedExam struct {
	Metadata  ExamMetadata `json:"metadata"`
	Questions []Question   `json:"questions"`
}
