package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeConfidence(t *testing.T) {
	tests := []struct {
		in   string
		want Confidence
	}{
		{"HIGH", ConfidenceHigh},
		{"high", ConfidenceHigh},
		{" Medium ", ConfidenceMedium},
		{"LOW", ConfidenceLow},
		{"UNSURE", ConfidenceUnsure},
		{"", ConfidenceUnsure},
		{"very confident", ConfidenceUnsure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeConfidence(tt.in), "input %q", tt.in)
	}
}

func TestIsValidConfidence(t *testing.T) {
	assert.True(t, IsValidConfidence("HIGH"))
	assert.True(t, IsValidConfidence("UNSURE"))
	assert.False(t, IsValidConfidence("high"))
	assert.False(t, IsValidConfidence("MAYBE"))
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".pdf"))
	assert.True(t, AllowedExt("PDF"))
	assert.False(t, AllowedExt(".docx"))
	assert.False(t, AllowedExt(""))
}
