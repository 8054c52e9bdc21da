package constants

// AnswerState is the terminal state of one question's answer synthesis.
type AnswerState string

// Stable values.
const (
	AnswerStateAnswered         AnswerState = "ANSWERED"          // structured call succeeded
	AnswerStateAnsweredFallback AnswerState = "ANSWERED_FALLBACK" // free-text retry parsed
	AnswerStateAnsweredDefault  AnswerState = "ANSWERED_DEFAULT"  // canned UNSURE fields
	AnswerStateUnanswered       AnswerState = "UNANSWERED"        // both paths failed
)
