package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/exam-pipeline/internal/inference"
)

// Structured implements the schema-constrained path: the schema rides along
// as a system message and the response is validated locally before being
// returned, so callers only ever see conformant JSON.
func (c *Client) Structured(ctx context.Context, req inference.Request) (json.RawMessage, error) {
	rid := uuid.New().String()
	start := time.Now()

	model := c.cfg.TextModel
	if len(req.Images) > 0 {
		model = c.cfg.VisionModel
	}
	c.log.Info("inference.structured.start",
		"req_id", rid,
		"engine", "openai",
		"model", model,
		"schema", req.SchemaName,
		"images", len(req.Images),
	)

	body := map[string]any{
		"model":           model,
		"temperature":     c.temperature(req),
		"max_tokens":      c.maxTokens(req),
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": "Return ONLY JSON that matches the provided JSON Schema. Never output text outside the JSON object."},
			{"role": "user", "content": userContent(req)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(req.Schema)},
		},
	}

	raw, err := c.post(ctx, body)
	if err != nil {
		c.log.Error("inference.structured.http_error",
			"req_id", rid, "schema", req.SchemaName, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	content, err := chatContent(raw)
	if err != nil {
		c.log.Error("inference.structured.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	payload := []byte(inference.StripCodeFences(content))

	if err := inference.ValidateJSONAgainstSchema(req.Schema, payload); err != nil {
		c.log.Error("inference.structured.schema_validation_failed",
			"req_id", rid, "schema", req.SchemaName, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	c.log.Info("inference.structured.ok",
		"req_id", rid,
		"schema", req.SchemaName,
		"bytes", len(payload),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return payload, nil
}

// Completion implements the free-text path used by the answer fallback chain.
func (c *Client) Completion(ctx context.Context, req inference.Request) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	model := c.cfg.TextModel
	if len(req.Images) > 0 {
		model = c.cfg.VisionModel
	}
	body := map[string]any{
		"model":       model,
		"temperature": c.temperature(req),
		"max_tokens":  c.maxTokens(req),
		"messages": []map[string]any{
			{"role": "user", "content": userContent(req)},
		},
	}

	raw, err := c.post(ctx, body)
	if err != nil {
		c.log.Error("inference.completion.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	content, err := chatContent(raw)
	if err != nil {
		c.log.Error("inference.completion.decode_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	c.log.Info("inference.completion.ok",
		"req_id", rid,
		"chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func (c *Client) post(ctx context.Context, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.log.Warn("openai response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, truncate(string(raw), 2<<10))
	}
	return raw, nil
}

// userContent builds the multi-part user message: instruction text plus each
// page image inlined as a base64 data URL.
func userContent(req inference.Request) any {
	if len(req.Images) == 0 {
		return req.Instruction
	}
	parts := []map[string]any{
		{"type": "text", "text": req.Instruction},
	}
	for _, img := range req.Images {
		parts = append(parts, map[string]any{
			"type": "image_url",
			"image_url": map[string]any{
				"url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.PNG),
			},
		})
	}
	return parts
}

func chatContent(raw []byte) (string, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func (c *Client) temperature(req inference.Request) float32 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return c.cfg.Temperature
}

func (c *Client) maxTokens(req inference.Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return c.cfg.MaxTokens
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
