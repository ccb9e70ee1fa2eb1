package dto

import "time"

// AttemptSummary is the public view of an attempt's progress.
type AttemptSummary struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	TotalQuestions    int        `json:"total_questions"`
	QuestionsAnswered int        `json:"questions_answered"`
	CorrectCount      int        `json:"correct_count"`
	PauseCount        int        `json:"pause_count"`
	TimeSpentSeconds  int        `json:"time_spent_seconds"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// NextQuestion is the public view of an assigned question. It never carries
// the correct index or an explanation; those are review-only.
type NextQuestion struct {
	ID                string   `json:"id"`
	QuestionOrder     int      `json:"question_order"`
	Topic             string   `json:"topic"`
	Subtopic          string   `json:"subtopic,omitempty"`
	Difficulty        string   `json:"difficulty"`
	BloomLevel        string   `json:"bloom_level"`
	Question          string   `json:"question"`
	Options           []string `json:"options"`
	CodeSnippet       string   `json:"code_snippet,omitempty"`
	GeneratedOnDemand bool     `json:"generated_on_demand"`
}

// NextQuestionResponse is the produced contract of the selection pipeline.
// NextQuestion is null when the attempt is finished.
type NextQuestionResponse struct {
	Attempt      AttemptSummary `json:"attempt"`
	NextQuestion *NextQuestion  `json:"next_question"`
}

// ErrorResponse is a minimal error payload for handler-level failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
