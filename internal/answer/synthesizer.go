// Package answer synthesizes correct answers, explanations, hints, and
// confidence ratings for extracted questions.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/exam-pipeline/constants"
	"github.com/prepforge/exam-pipeline/internal/entity"
	"github.com/prepforge/exam-pipeline/internal/inference"
)

// Canned fields for the ANSWERED_DEFAULT terminal state.
const (
	defaultExplanation = "Unable to determine the correct answer due to processing issues"
	defaultHint        = "Review the question carefully and consult your study materials"
)

// Synthesizer runs the per-question answer state machine. It never raises
// past its own boundary for a single question's failure: every terminal
// state yields a usable Question.
type Synthesizer struct {
	engine inference.Engine
	logger *slog.Logger
}

func NewSynthesizer(engine inference.Engine, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{engine: engine, logger: logger}
}

type answerWire struct {
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	Hint          string `json:"hint"`
	Confidence    string `json:"confidence"`
}

// BuildAnswerSchema constrains the structured answer call. The confidence
// enum is the canonical level set, in rank order.
func BuildAnswerSchema() map[string]any {
	levels := make([]string, len(constants.ConfidenceLevels))
	for i, l := range constants.ConfidenceLevels {
		levels[i] = string(l)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"correct_answer": map[string]any{"type": "string", "minLength": 1},
			"explanation":    map[string]any{"type": "string"},
			"hint":           map[string]any{"type": "string"},
			"confidence": map[string]any{
				"type": "string",
				"enum": levels,
			},
		},
		"required": []string{"correct_answer", "explanation", "hint", "confidence"},
	}
}

// Synthesize runs the fallback chain for one question and returns the
// enriched copy plus its terminal state. Questions without options are left
// untouched so the options-nonempty invariant holds for any answered
// question.
func (s *Synthesizer) Synthesize(ctx context.Context, q entity.Question, meta entity.ExamMetadata) (entity.Question, constants.AnswerState) {
	rid := uuid.New().String()
	start := time.Now()

	if len(q.Options) == 0 {
		s.logger.Warn("answer.synthesize.no_options", "req_id", rid, "question_id", q.ID)
		return q, constants.AnswerStateUnanswered
	}

	prompt := buildAnswerPrompt(q, meta)

	// 1) Structured-schema attempt.
	raw, err := s.engine.Structured(ctx, inference.Request{
		Instruction: prompt,
		SchemaName:  "generate_answer_and_hint",
		Schema:      BuildAnswerSchema(),
	})
	if err == nil {
		var w answerWire
		uerr := json.Unmarshal(raw, &w)
		if uerr == nil {
			s.logger.Info("answer.synthesize.ok",
				"req_id", rid, "question_id", q.ID,
				"confidence", w.Confidence,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return apply(q, w), constants.AnswerStateAnswered
		}
		// A validated payload that still fails to unmarshal means the schema
		// and wire struct drifted; treat like a structured failure.
		err = fmt.Errorf("decode structured answer: %w", uerr)
	}
	s.logger.Warn("answer.synthesize.structured_failed",
		"req_id", rid, "question_id", q.ID, "error", err)

	// 2) Free-text retry: ask for an inline JSON object and scan for it.
	text, cerr := s.engine.Completion(ctx, inference.Request{
		Instruction: prompt + "\n\nRespond with a single JSON object:\n" +
			`{"correct_answer": "A", "explanation": "...", "hint": "...", "confidence": "HIGH"}`,
	})
	if cerr != nil {
		// Both paths raised: leave the question exactly as the extractor and
		// linker produced it.
		s.logger.Error("answer.synthesize.unanswered",
			"req_id", rid, "question_id", q.ID,
			"structured_error", err, "fallback_error", cerr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return q, constants.AnswerStateUnanswered
	}

	if obj, ok := inference.FindJSONObject(text); ok {
		var w answerWire
		if uerr := json.Unmarshal(obj, &w); uerr == nil && w.CorrectAnswer != "" {
			s.logger.Info("answer.synthesize.fallback_ok",
				"req_id", rid, "question_id", q.ID,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return apply(q, w), constants.AnswerStateAnsweredFallback
		}
	}

	// 3) Free text arrived but no parseable JSON object: canned defaults.
	s.logger.Warn("answer.synthesize.default",
		"req_id", rid, "question_id", q.ID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return apply(q, answerWire{
		CorrectAnswer: constants.AnswerUnsure,
		Explanation:   defaultExplanation,
		Hint:          defaultHint,
		Confidence:    string(constants.ConfidenceUnsure),
	}), constants.AnswerStateAnsweredDefault
}

// apply copies the wire fields onto the question, normalizing confidence and
// enforcing the UNSURE coupling: an UNSURE answer always carries UNSURE
// confidence.
func apply(q entity.Question, w answerWire) entity.Question {
	answer := strings.TrimSpace(w.CorrectAnswer)
	conf := string(constants.NormalizeConfidence(w.Confidence))
	if strings.EqualFold(answer, constants.AnswerUnsure) {
		answer = constants.AnswerUnsure
		conf = string(constants.ConfidenceUnsure)
	}

	q.CorrectAnswer = &answer
	q.Explanation = strptr(w.Explanation)
	q.Hint = strptr(w.Hint)
	q.Confidence = &conf
	return q
}

func strptr(s string) *string { return &s }

func buildAnswerPrompt(q entity.Question, meta entity.ExamMetadata) string {
	subject := meta.Subject
	if subject == "" {
		subject = "General"
	}
	topic := meta.Topic
	if topic == "" {
		topic = "General"
	}

	var b strings.Builder
	b.WriteString("Analyze the following question and determine the correct answer. ")
	b.WriteString("If you are confident, provide the answer with an explanation and a hint. ")
	b.WriteString("If you are unsure, or the question needs diagrams or specialized knowledge you lack, say so clearly.\n\n")
	b.WriteString("Subject: " + subject + "\n")
	b.WriteString("Topic: " + topic + "\n\n")
	b.WriteString("Question: " + q.QuestionText + "\n")
	b.WriteString("Options: " + strings.Join(q.Options, ", ") + "\n\n")
	b.WriteString("Guidelines:\n")
	b.WriteString("1. Only provide an answer when you are reasonably certain it is correct.\n")
	b.WriteString("2. For confident answers: the letter of the correct option (A, B, C, ...), a brief explanation, and a hint that guides without giving the answer away.\n")
	b.WriteString("3. For uncertain answers: \"UNSURE\" as correct_answer, why you are unsure, and a hint about which concepts to review.\n")
	b.WriteString("4. It is better to indicate uncertainty than to give a wrong answer.")
	return b.String()
}
