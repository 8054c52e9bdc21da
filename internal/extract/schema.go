package extract

// JSON-Schemas (draft 2020-12 subset) passed to the inference service as
// structured-output constraints and used locally to validate responses.

// BuildMetadataSchema describes exam-level metadata. Only title is required;
// everything else is best effort.
func BuildMetadataSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"title":            map[string]any{"type": "string", "minLength": 1},
			"subject":          map[string]any{"type": "string"},
			"topic":            map[string]any{"type": "string"},
			"total_questions":  map[string]any{"type": "integer", "minimum": 0},
			"duration_minutes": map[string]any{"type": "integer", "minimum": 0},
			"difficulty_level": map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}
}

// BuildDiagramsSchema describes the per-page diagram enumeration.
func BuildDiagramsSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"diagrams": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"id":          map[string]any{"type": "string", "minLength": 1},
						"description": map[string]any{"type": "string"},
						"position": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"properties": map[string]any{
								"x": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
								"y": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
							},
							"required": []string{"x", "y"},
						},
						"question_number": map[string]any{"type": "string"},
					},
					"required": []string{"id", "description", "position"},
				},
			},
		},
		"required": []string{"diagrams"},
	}
}

// BuildQuestionsSchema describes the per-page question extraction.
func BuildQuestionsSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"id":              map[string]any{"type": "string", "minLength": 1},
						"question_number": map[string]any{"type": "string"},
						"question_text":   map[string]any{"type": "string", "minLength": 1},
						"options": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"diagram_ids": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []string{"id", "question_text", "options"},
				},
			},
		},
		"required": []string{"questions"},
	}
}
