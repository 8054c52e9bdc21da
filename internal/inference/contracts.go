package inference

import (
	"context"
	"encoding/json"

	"github.com/prepforge/exam-pipeline/internal/entity"
)

// Request is a single inference call: a natural-language instruction, an
// optional JSON-Schema the structured response must conform to, and zero or
// more page images attached inline as base64 data.
type Request struct {
	Instruction string
	SchemaName  string         // short label for logging, e.g. "extract_questions"
	Schema      map[string]any // required for Structured, ignored by Completion
	Images      []entity.PageImage
	MaxTokens   int
	Temperature float32
}

// Engine is the inference-service boundary the pipeline depends on.
//
// Structured returns schema-conformant JSON, validated locally before use.
// Completion returns free text; callers that expect an inline JSON object
// must recover it themselves (see FindJSONObject).
type Engine interface {
	Name() string
	Structured(ctx context.Context, req Request) (json.RawMessage, error)
	Completion(ctx context.Context, req Request) (string, error)
}
