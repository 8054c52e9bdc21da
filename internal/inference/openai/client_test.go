package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/exam-pipeline/internal/entity"
	"github.com/prepforge/exam-pipeline/internal/inference"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		VisionModel: "vision-model",
		TextModel:   "text-model",
	}, nil)
	return c, srv
}

func metadataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}
}

func TestStructuredValidatesAndReturnsPayload(t *testing.T) {
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(chatResponse(`{"title":"Algebra Midterm"}`)))
	})

	raw, err := c.Structured(context.Background(), inference.Request{
		Instruction: "extract metadata",
		SchemaName:  "extract_exam_metadata",
		Schema:      metadataSchema(),
		Images:      []entity.PageImage{{PageNumber: 1, PNG: []byte{1, 2, 3}}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Algebra Midterm"}`, string(raw))

	// image request routes to the vision model, constrained to JSON output
	assert.Equal(t, "vision-model", gotBody["model"])
	rf, ok := gotBody["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"])
}

func TestStructuredUsesTextModelWithoutImages(t *testing.T) {
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(chatResponse(`{"title":"T"}`)))
	})

	_, err := c.Structured(context.Background(), inference.Request{
		Instruction: "answer",
		Schema:      metadataSchema(),
	})
	require.NoError(t, err)
	assert.Equal(t, "text-model", gotBody["model"])
}

func TestStructuredStripsCodeFences(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatResponse("```json\n{\"title\":\"Fenced\"}\n```")))
	})

	raw, err := c.Structured(context.Background(), inference.Request{Schema: metadataSchema()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Fenced"}`, string(raw))
}

func TestStructuredRejectsSchemaViolations(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatResponse(`{"unexpected":"shape"}`)))
	})

	_, err := c.Structured(context.Background(), inference.Request{Schema: metadataSchema()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestStructuredHTTPError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit"}}`, http.StatusTooManyRequests)
	})

	_, err := c.Structured(context.Background(), inference.Request{Schema: metadataSchema()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCompletionReturnsText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatResponse("  I think the answer is B.  ")))
	})

	text, err := c.Completion(context.Background(), inference.Request{Instruction: "answer"})
	require.NoError(t, err)
	assert.Equal(t, "I think the answer is B.", text)
}

func TestCompletionNoChoices(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Completion(context.Background(), inference.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestName(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	assert.Equal(t, "openai", c.Name())
}
