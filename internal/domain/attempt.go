package domain

import "time"

// AttemptStatus is the lifecycle state of an assessment attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// Attempt represents one user's run through the fixed-length assessment.
// The selection pipeline only reads attempts; the answer-submission endpoint
// (outside this service) mutates the counters.
type Attempt struct {
	ID                string
	UserID            string
	Status            AttemptStatus
	TotalQuestions    int
	QuestionsAnswered int
	CorrectCount      int
	PauseCount        int
	TimeSpentSeconds  int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

// IsFinished reports whether no further questions may be assigned.
func (a *Attempt) IsFinished() bool {
	return a.Status == AttemptCompleted || a.QuestionsAnswered >= a.TotalQuestions
}

// NextOrder is the ordinal of the slot the next question goes into (1-based).
func (a *Attempt) NextOrder() int {
	return a.QuestionsAnswered + 1
}

// AttemptQuestion pairs a bank question with an ordinal slot in one attempt.
// Unique on (attempt_id, question_order) and on (attempt_id, question_id);
// the former is the concurrency-control primitive for racing requests.
type AttemptQuestion struct {
	ID                string
	AttemptID         string
	QuestionID        string
	QuestionOrder     int
	UserAnswerIndex   *int
	IsCorrect         *bool
	AnsweredAt        *time.Time
	GeneratedOnDemand bool
	CreatedAt         time.Time
}

// Answered reports whether the slot already has a recorded answer.
func (aq *AttemptQuestion) Answered() bool {
	return aq.UserAnswerIndex != nil
}

// AssignmentWithQuestion is an assignment row joined with its bank question.
type AssignmentWithQuestion struct {
	Assignment AttemptQuestion
	Question   Question
}
