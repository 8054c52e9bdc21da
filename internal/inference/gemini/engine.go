package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/prepforge/exam-pipeline/internal/inference"
)

// Engine talks to Gemini through the official SDK. A fresh client is opened
// per call; the SDK keeps connections cheap and this avoids holding process-
// wide handles.
type Engine struct {
	APIKey      string
	VisionModel string
	TextModel   string
	Temperature float32
	log         *slog.Logger
}

func New(apiKey, visionModel, textModel string, logger *slog.Logger) *Engine {
	if visionModel == "" {
		visionModel = "gemini-1.5-pro"
	}
	if textModel == "" {
		textModel = visionModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		APIKey:      strings.TrimSpace(apiKey),
		VisionModel: strings.TrimSpace(visionModel),
		TextModel:   strings.TrimSpace(textModel),
		log:         logger,
	}
}

func (e *Engine) Name() string { return "gemini" }

const maxAttempts = 3

// Structured asks for strict JSON (ResponseMIMEType) with the schema inlined
// in the system instruction, then validates locally like every other engine.
func (e *Engine) Structured(ctx context.Context, req inference.Request) (json.RawMessage, error) {
	txt, err := e.generate(ctx, req, true)
	if err != nil {
		return nil, err
	}
	payload := []byte(inference.StripCodeFences(txt))
	if err := inference.ValidateJSONAgainstSchema(req.Schema, payload); err != nil {
		e.log.Error("inference.structured.schema_validation_failed",
			"engine", "gemini", "schema", req.SchemaName, "error", err)
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return payload, nil
}

func (e *Engine) Completion(ctx context.Context, req inference.Request) (string, error) {
	return e.generate(ctx, req, false)
}

func (e *Engine) generate(ctx context.Context, req inference.Request, strictJSON bool) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("gemini: api key is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := cl.Close(); cerr != nil {
			e.log.Warn("gemini client close error", "error", cerr)
		}
	}()

	name := e.TextModel
	if len(req.Images) > 0 {
		name = e.VisionModel
	}
	m := cl.GenerativeModel(name)
	if m == nil {
		return "", fmt.Errorf("gemini: model %q is nil", name)
	}

	temp := req.Temperature
	if temp <= 0 {
		temp = e.Temperature
	}
	cfg := genai.GenerationConfig{Temperature: ptrFloat32(temp)}
	if strictJSON {
		cfg.ResponseMIMEType = "application/json"
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{
				genai.Text("Return ONLY JSON conforming to the schema below. Any text outside the JSON object is an error."),
				genai.Text("\nJSON Schema:\n" + mustJSON(req.Schema)),
			},
		}
	}
	m.GenerationConfig = cfg

	parts := []genai.Part{genai.Text(req.Instruction)}
	for _, img := range req.Images {
		parts = append(parts, &genai.Blob{MIMEType: "image/png", Data: img.PNG})
	}

	// Bounded retries for transient provider failures.
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if berr := backoff(ctx, attempt); berr != nil {
				return "", berr
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return "", fmt.Errorf("gemini: empty response")
		}
		return strings.TrimSpace(txt), nil
	}
	return "", lastErr
}

// backoff waits attempt*300ms between retries, returning early when ctx is
// cancelled so an abandoned pipeline never blocks on a sleeping retry.
func backoff(ctx context.Context, attempt int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
		return nil
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func ptrFloat32(f float32) *float32 { return &f }

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
