package extract

import (
	"fmt"
	"strings"
)

// BuildMetadataPrompt asks for exam-level metadata from the opening pages.
func BuildMetadataPrompt() string {
	parts := []string{
		"Analyze these exam pages and extract the exam metadata:",
		"1. Exam title or name.",
		"2. Subject (e.g., Mathematics, Physics, Chemistry).",
		"3. Topic or chapter covered.",
		"4. Total number of questions, if stated anywhere.",
		"5. Duration or time limit in minutes, if mentioned.",
		"6. Difficulty level, if indicated.",
		"If a field is not visible, omit it. Never invent values.",
	}
	return strings.Join(parts, "\n")
}

// BuildDiagramPrompt asks for the diagrams on a single page.
func BuildDiagramPrompt(pageNumber int) string {
	parts := []string{
		fmt.Sprintf("Analyze this exam page (page %d) and identify diagrams, charts, graphs, or images relevant to the questions.", pageNumber),
		"For each diagram found, provide:",
		fmt.Sprintf("1. A unique id (diagram_%d_1, diagram_%d_2, ...).", pageNumber, pageNumber),
		"2. A short description of what the diagram shows.",
		"3. The approximate position as x/y percentages of the page.",
		"4. The question number the diagram belongs to, if visible or inferable.",
		"Clues for ownership: question numbers printed near the diagram (\"Q1\", \"Question 1\", \"1.\"), text that references the figure, spatial proximity to question text.",
		"If the page has no diagrams, return an empty diagrams array.",
		"If the owning question cannot be determined, omit question_number.",
	}
	return strings.Join(parts, "\n")
}

// BuildQuestionPrompt asks for the questions on a single page.
func BuildQuestionPrompt(pageNumber int) string {
	parts := []string{
		fmt.Sprintf("Analyze this exam page (page %d) and extract every question with its multiple choice options.", pageNumber),
		"For each question, provide:",
		fmt.Sprintf("1. A unique id (q_%d_1, q_%d_2, ...).", pageNumber, pageNumber),
		"2. The question number exactly as printed.",
		"3. The full question text.",
		"4. All multiple choice options in printed order.",
		"5. Ids of any diagrams the question references, if applicable.",
		"Question numbers appear in formats like \"1.\", \"Q1\", \"Question 1\", or \"1)\".",
		"If the page has no questions, return an empty questions array.",
		"If the question number cannot be determined, omit question_number.",
	}
	return strings.Join(parts, "\n")
}
