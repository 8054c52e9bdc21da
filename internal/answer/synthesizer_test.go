package answer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/exam-pipeline/constants"
	"github.com/prepforge/exam-pipeline/internal/entity"
	"github.com/prepforge/exam-pipeline/internal/inference"
)

type fakeEngine struct {
	structured      func(req inference.Request) (json.RawMessage, error)
	completion      func(req inference.Request) (string, error)
	structuredCalls int
	completionCalls int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Structured(_ context.Context, req inference.Request) (json.RawMessage, error) {
	f.structuredCalls++
	if f.structured == nil {
		return nil, errors.New("no structured handler")
	}
	return f.structured(req)
}

func (f *fakeEngine) Completion(_ context.Context, req inference.Request) (string, error) {
	f.completionCalls++
	if f.completion == nil {
		return "", errors.New("no completion handler")
	}
	return f.completion(req)
}

func sampleQuestion() entity.Question {
	num := "1"
	return entity.Question{
		ID:             "q1",
		QuestionNumber: &num,
		QuestionText:   "What is 2+2?",
		Options:        []string{"A) 3", "B) 4", "C) 5"},
		PageNumber:     1,
	}
}

func TestSynthesizeStructuredSuccess(t *testing.T) {
	eng := &fakeEngine{
		structured: func(req inference.Request) (json.RawMessage, error) {
			assert.Equal(t, "generate_answer_and_hint", req.SchemaName)
			return json.RawMessage(`{"correct_answer":"B","explanation":"2+2=4","hint":"count","confidence":"HIGH"}`), nil
		},
	}
	s := NewSynthesizer(eng, nil)

	q, state := s.Synthesize(context.Background(), sampleQuestion(), entity.ExamMetadata{Subject: "Math"})

	assert.Equal(t, constants.AnswerStateAnswered, state)
	require.NotNil(t, q.CorrectAnswer)
	assert.Equal(t, "B", *q.CorrectAnswer)
	assert.Equal(t, "2+2=4", *q.Explanation)
	assert.Equal(t, "count", *q.Hint)
	assert.Equal(t, "HIGH", *q.Confidence)
	assert.Equal(t, 0, eng.completionCalls)
}

func TestSynthesizeFallbackParsesInlineJSON(t *testing.T) {
	eng := &fakeEngine{
		structured: func(inference.Request) (json.RawMessage, error) {
			return nil, errors.New("schema validation failed")
		},
		completion: func(req inference.Request) (string, error) {
			assert.Contains(t, req.Instruction, "Respond with a single JSON object")
			return `Let me think about this.
{"correct_answer": "B", "explanation": "basic arithmetic", "hint": "add", "confidence": "MEDIUM"}`, nil
		},
	}
	s := NewSynthesizer(eng, nil)

	q, state := s.Synthesize(context.Background(), sampleQuestion(), entity.ExamMetadata{})

	assert.Equal(t, constants.AnswerStateAnsweredFallback, state)
	require.NotNil(t, q.CorrectAnswer)
	assert.Equal(t, "B", *q.CorrectAnswer)
	assert.Equal(t, "MEDIUM", *q.Confidence)
}

func TestSynthesizeDefaultsWhenNoJSONFound(t *testing.T) {
	eng := &fakeEngine{
		structured: func(inference.Request) (json.RawMessage, error) {
			return nil, errors.New("provider overloaded")
		},
		completion: func(inference.Request) (string, error) {
			return "I really cannot say without the diagram.", nil
		},
	}
	s := NewSynthesizer(eng, nil)

	q, state := s.Synthesize(context.Background(), sampleQuestion(), entity.ExamMetadata{})

	assert.Equal(t, constants.AnswerStateAnsweredDefault, state)
	require.NotNil(t, q.CorrectAnswer)
	assert.Equal(t, constants.AnswerUnsure, *q.CorrectAnswer)
	assert.Equal(t, defaultExplanation, *q.Explanation)
	assert.Equal(t, defaultHint, *q.Hint)
	assert.Equal(t, string(constants.ConfidenceUnsure), *q.Confidence)
}

func TestSynthesizeUnansweredWhenBothPathsFail(t *testing.T) {
	eng := &fakeEngine{
		structured: func(inference.Request) (json.RawMessage, error) {
			return nil, errors.New("timeout")
		},
		completion: func(inference.Request) (string, error) {
			return "", errors.New("timeout")
		},
	}
	s := NewSynthesizer(eng, nil)
	in := sampleQuestion()

	q, state := s.Synthesize(context.Background(), in, entity.ExamMetadata{})

	assert.Equal(t, constants.AnswerStateUnanswered, state)
	// the question comes back exactly as extracted
	assert.Nil(t, q.CorrectAnswer)
	assert.Nil(t, q.Explanation)
	assert.Nil(t, q.Hint)
	assert.Nil(t, q.Confidence)
	assert.Equal(t, in.QuestionText, q.QuestionText)
}

func TestSynthesizeUnsureAnswerForcesUnsureConfidence(t *testing.T) {
	eng := &fakeEngine{
		structured: func(inference.Request) (json.RawMessage, error) {
			return json.RawMessage(`{"correct_answer":"unsure","explanation":"needs diagram","hint":"review","confidence":"HIGH"}`), nil
		},
	}
	s := NewSynthesizer(eng, nil)

	q, state := s.Synthesize(context.Background(), sampleQuestion(), entity.ExamMetadata{})

	assert.Equal(t, constants.AnswerStateAnswered, state)
	assert.Equal(t, constants.AnswerUnsure, *q.CorrectAnswer)
	assert.Equal(t, string(constants.ConfidenceUnsure), *q.Confidence)
}

func TestSynthesizeNormalizesUnknownConfidence(t *testing.T) {
	eng := &fakeEngine{
		structured: func(inference.Request) (json.RawMessage, error) {
			return json.RawMessage(`{"correct_answer":"C","explanation":"x","hint":"y","confidence":"very high"}`), nil
		},
	}
	s := NewSynthesizer(eng, nil)

	q, _ := s.Synthesize(context.Background(), sampleQuestion(), entity.ExamMetadata{})

	assert.Equal(t, string(constants.ConfidenceUnsure), *q.Confidence)
	assert.Equal(t, "C", *q.CorrectAnswer)
}

func TestSynthesizeSkipsQuestionsWithoutOptions(t *testing.T) {
	eng := &fakeEngine{}
	s := NewSynthesizer(eng, nil)
	in := sampleQuestion()
	in.Options = nil

	q, state := s.Synthesize(context.Background(), in, entity.ExamMetadata{})

	assert.Equal(t, constants.AnswerStateUnanswered, state)
	assert.Nil(t, q.CorrectAnswer)
	assert.Equal(t, 0, eng.structuredCalls)
	assert.Equal(t, 0, eng.completionCalls)
}

func TestBuildAnswerSchemaConfidenceEnum(t *testing.T) {
	schema := BuildAnswerSchema()

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	conf, ok := props["confidence"].(map[string]any)
	require.True(t, ok)

	want := make([]string, len(constants.ConfidenceLevels))
	for i, l := range constants.ConfidenceLevels {
		want[i] = string(l)
	}
	assert.Equal(t, want, conf["enum"])
}

func TestBuildAnswerPromptIncludesContext(t *testing.T) {
	prompt := buildAnswerPrompt(sampleQuestion(), entity.ExamMetadata{Subject: "Math", Topic: "Arithmetic"})

	assert.Contains(t, prompt, "Subject: Math")
	assert.Contains(t, prompt, "Topic: Arithmetic")
	assert.Contains(t, prompt, "What is 2+2?")
	assert.Contains(t, prompt, "A) 3, B) 4, C) 5")
}

func TestBuildAnswerPromptDefaultsSubjectAndTopic(t *testing.T) {
	prompt := buildAnswerPrompt(sampleQuestion(), entity.ExamMetadata{})

	assert.Contains(t, prompt, "Subject: General")
	assert.Contains(t, prompt, "Topic: General")
}
