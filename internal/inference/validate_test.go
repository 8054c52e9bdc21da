package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answerSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct_answer": map[string]any{"type": "string", "minLength": 1},
			"confidence": map[string]any{
				"type": "string",
				"enum": []string{"HIGH", "MEDIUM", "LOW", "UNSURE"},
			},
		},
		"required": []string{"correct_answer", "confidence"},
	}
}

func TestValidateJSONAgainstSchemaAccepts(t *testing.T) {
	err := ValidateJSONAgainstSchema(answerSchema(), []byte(`{"correct_answer":"B","confidence":"HIGH"}`))
	require.NoError(t, err)
}

func TestValidateJSONAgainstSchemaRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing required", `{"confidence":"HIGH"}`},
		{"enum violation", `{"correct_answer":"B","confidence":"MAYBE"}`},
		{"empty answer", `{"correct_answer":"","confidence":"LOW"}`},
		{"not json", `oops`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(answerSchema(), []byte(tt.payload))
			assert.Error(t, err)
		})
	}
}
