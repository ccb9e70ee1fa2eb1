package service

import (
	"time"

	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/domain"
)

// testSelectionConfig returns the production defaults used across the
// service tests.
func testSelectionConfig() config.SelectionConfig {
	return config.SelectionConfig{
		TotalQuestions:      60,
		BankPageSize:        20,
		TopKSelection:       8,
		HighSimilarity:      0.92,
		MediumSimilarity:    0.85,
		TextJaccard:         0.7,
		TopicCoverageCeil:   0.4,
		RecentAttemptWindow: 2,
		MaxGenerateAttempts: 3,
		MaxInsertRetries:    3,
		InsertBackoffBase:   time.Millisecond,
		NegativeExampleCap:  25,
	}
}

func testAttempt(answered int) *domain.Attempt {
	return &domain.Attempt{
		ID:                "attempt1",
		UserID:            "user1",
		Status:            domain.AttemptInProgress,
		TotalQuestions:    60,
		QuestionsAnswered: answered,
		CreatedAt:         time.Now(),
	}
}

func testQuestion(id, topic, subtopic string) *domain.Question {
	return &domain.Question{
		ID:           id,
		Topic:        topic,
		Subtopic:     subtopic,
		Difficulty:   domain.DifficultyMedium,
		BloomLevel:   domain.BloomUnderstand,
		Question:     "What does useEffect do in " + id + "?",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 1,
		ContentKey:   domain.ContentKey("What does useEffect do in " + id + "?"),
	}
}

func askedAssignment(order int, q *domain.Question) domain.AssignmentWithQuestion {
	answer := 0
	return domain.AssignmentWithQuestion{
		Assignment: domain.AttemptQuestion{
			ID:              "aq" + q.ID,
			AttemptID:       "attempt1",
			QuestionID:      q.ID,
			QuestionOrder:   order,
			UserAnswerIndex: &answer,
		},
		Question: *q,
	}
}
