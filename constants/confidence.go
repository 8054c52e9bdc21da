package constants

import "strings"

// Confidence is the coarse correctness rating attached to a synthesized answer.
type Confidence string

// Stable values (store these exact strings in the artifact).
const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
	ConfidenceUnsure Confidence = "UNSURE"
)

// AnswerUnsure is the literal the synthesizer emits when it cannot pick an option.
const AnswerUnsure = "UNSURE"

// ConfidenceLevels lists the allowed confidence values in rank order.
var ConfidenceLevels = []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceUnsure}

// IsValidConfidence reports whether s is one of the canonical confidence values.
func IsValidConfidence(s string) bool {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceUnsure:
		return true
	}
	return false
}

// NormalizeConfidence maps free-form model output onto the canonical set.
// Unknown or empty values collapse to UNSURE.
func NormalizeConfidence(s string) Confidence {
	up := strings.ToUpper(strings.TrimSpace(s))
	if IsValidConfidence(up) {
		return Confidence(up)
	}
	return ConfidenceUnsure
}
