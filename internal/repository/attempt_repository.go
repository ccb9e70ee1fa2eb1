package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vishal-grover-dev/iq-sub000/internal/domain"
	"github.com/vishal-grover-dev/iq-sub000/internal/repository/models"
	"github.com/vishal-grover-dev/iq-sub000/internal/util"

	"github.com/jmoiron/sqlx"
)

// Constraint names from the attempt_questions migration. The adapter maps
// them onto the domain sentinels the pipeline branches on.
const (
	constraintAttemptOrder    = "uq_attempt_order"
	constraintAttemptQuestion = "uq_attempt_question"
)

// AttemptDatabaseAdapter implements domain.AttemptRepository using sqlx.DB
type AttemptDatabaseAdapter struct {
	db *sqlx.DB
}

// NewAttemptDatabaseAdapter creates a new instance of AttemptDatabaseAdapter
func NewAttemptDatabaseAdapter(db *sqlx.DB) domain.AttemptRepository {
	return &AttemptDatabaseAdapter{db: db}
}

// GetAttempt implements domain.AttemptRepository
func (a *AttemptDatabaseAdapter) GetAttempt(ctx context.Context, id, userID string) (*domain.Attempt, error) {
	var m models.Attempt
	query := `SELECT
		id, user_id, status, total_questions, questions_answered,
		correct_count, pause_count, time_spent_seconds,
		created_at, updated_at, completed_at
	FROM attempts
	WHERE id = $1 AND user_id = $2`

	err := a.db.GetContext(ctx, &m, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attempt %s: %w", id, err)
	}
	return toDomainAttempt(&m), nil
}

const assignmentJoinColumns = `
	aq.id, aq.attempt_id, aq.question_id, aq.question_order,
	aq.user_answer_index, aq.is_correct, aq.answered_at,
	aq.generated_on_demand, aq.created_at,
	q.topic AS q_topic, q.subtopic AS q_subtopic,
	q.difficulty AS q_difficulty, q.bloom_level AS q_bloom_level,
	q.question AS q_question, q.options AS q_options,
	q.correct_index AS q_correct_index, q.code_snippet AS q_code_snippet,
	q.embedding AS q_embedding, q.content_key AS q_content_key`

// ListAssignments implements domain.AttemptRepository
func (a *AttemptDatabaseAdapter) ListAssignments(ctx context.Context, attemptID string) ([]domain.AssignmentWithQuestion, error) {
	var rows []models.AssignmentWithQuestion
	query := `SELECT ` + assignmentJoinColumns + `
	FROM attempt_questions aq
	JOIN questions q ON q.id = aq.question_id
	WHERE aq.attempt_id = $1
	ORDER BY aq.question_order ASC`

	if err := a.db.SelectContext(ctx, &rows, query, attemptID); err != nil {
		return nil, fmt.Errorf("failed to list assignments for attempt %s: %w", attemptID, err)
	}

	result := make([]domain.AssignmentWithQuestion, 0, len(rows))
	for i := range rows {
		joined, err := toDomainAssignmentWithQuestion(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *joined)
	}
	return result, nil
}

// GetAssignmentByOrder implements domain.AttemptRepository
func (a *AttemptDatabaseAdapter) GetAssignmentByOrder(ctx context.Context, attemptID string, order int) (*domain.AssignmentWithQuestion, error) {
	var row models.AssignmentWithQuestion
	query := `SELECT ` + assignmentJoinColumns + `
	FROM attempt_questions aq
	JOIN questions q ON q.id = aq.question_id
	WHERE aq.attempt_id = $1 AND aq.question_order = $2`

	err := a.db.GetContext(ctx, &row, query, attemptID, order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment at order %d for attempt %s: %w", order, attemptID, err)
	}
	return toDomainAssignmentWithQuestion(&row)
}

// InsertAssignment implements domain.AttemptRepository
func (a *AttemptDatabaseAdapter) InsertAssignment(ctx context.Context, assignment *domain.AttemptQuestion) error {
	if assignment.ID == "" {
		assignment.ID = util.NewULID()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now()
	}

	query := `INSERT INTO attempt_questions (
		id, attempt_id, question_id, question_order, generated_on_demand, created_at
	) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := a.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.AttemptID,
		assignment.QuestionID,
		assignment.QuestionOrder,
		assignment.GeneratedOnDemand,
		assignment.CreatedAt,
	)
	if err != nil {
		switch uniqueViolationConstraint(err) {
		case constraintAttemptOrder:
			return domain.ErrSlotTaken
		case constraintAttemptQuestion:
			return domain.ErrAlreadyAssigned
		}
		return fmt.Errorf("failed to insert assignment for attempt %s: %w", assignment.AttemptID, err)
	}
	return nil
}

// ListRecentAttemptQuestionIDs implements domain.AttemptRepository
func (a *AttemptDatabaseAdapter) ListRecentAttemptQuestionIDs(ctx context.Context, userID string, n int) (map[string]struct{}, error) {
	if n <= 0 {
		return map[string]struct{}{}, nil
	}

	var ids []string
	query := `SELECT aq.question_id
	FROM attempt_questions aq
	JOIN (
		SELECT id FROM attempts
		WHERE user_id = $1 AND status = $2
		ORDER BY completed_at DESC NULLS LAST
		LIMIT $3
	) recent ON recent.id = aq.attempt_id`

	if err := a.db.SelectContext(ctx, &ids, query, userID, string(domain.AttemptCompleted), n); err != nil {
		return nil, fmt.Errorf("failed to list recent question IDs for user %s: %w", userID, err)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}

// Helper functions for model conversion

func toDomainAttempt(m *models.Attempt) *domain.Attempt {
	attempt := &domain.Attempt{
		ID:                m.ID,
		UserID:            m.UserID,
		Status:            domain.AttemptStatus(m.Status),
		TotalQuestions:    m.TotalQuestions,
		QuestionsAnswered: m.QuestionsAnswered,
		CorrectCount:      m.CorrectCount,
		PauseCount:        m.PauseCount,
		TimeSpentSeconds:  m.TimeSpentSeconds,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.CompletedAt.Valid {
		t := m.CompletedAt.Time
		attempt.CompletedAt = &t
	}
	return attempt
}

func toDomainAssignment(m *models.AttemptQuestion) *domain.AttemptQuestion {
	assignment := &domain.AttemptQuestion{
		ID:                m.ID,
		AttemptID:         m.AttemptID,
		QuestionID:        m.QuestionID,
		QuestionOrder:     m.QuestionOrder,
		GeneratedOnDemand: m.GeneratedOnDemand,
		CreatedAt:         m.CreatedAt,
	}
	if m.UserAnswerIndex.Valid {
		idx := int(m.UserAnswerIndex.Int64)
		assignment.UserAnswerIndex = &idx
	}
	if m.IsCorrect.Valid {
		b := m.IsCorrect.Bool
		assignment.IsCorrect = &b
	}
	if m.AnsweredAt.Valid {
		t := m.AnsweredAt.Time
		assignment.AnsweredAt = &t
	}
	return assignment
}

func toDomainAssignmentWithQuestion(m *models.AssignmentWithQuestion) (*domain.AssignmentWithQuestion, error) {
	embedding, err := util.DecodeVector(util.NullStringToString(m.QEmbedding))
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedding for question %s: %w", m.QuestionID, err)
	}
	return &domain.AssignmentWithQuestion{
		Assignment: *toDomainAssignment(&m.AttemptQuestion),
		Question: domain.Question{
			ID:           m.QuestionID,
			Topic:        m.QTopic,
			Subtopic:     util.NullStringToString(m.QSubtopic),
			Difficulty:   domain.Difficulty(m.QDifficulty),
			BloomLevel:   domain.BloomLevel(m.QBloomLevel),
			Question:     m.QQuestion,
			Options:      []string(m.QOptions),
			CorrectIndex: m.QCorrectIndex,
			CodeSnippet:  util.NullStringToString(m.QCodeSnippet),
			Embedding:    embedding,
			ContentKey:   m.QContentKey,
		},
	}, nil
}
