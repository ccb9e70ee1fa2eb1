package service

import (
	"context"

	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockAttemptRepository is a mock of domain.AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) GetAttempt(ctx context.Context, id, userID string) (*domain.Attempt, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) ListAssignments(ctx context.Context, attemptID string) ([]domain.AssignmentWithQuestion, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AssignmentWithQuestion), args.Error(1)
}

func (m *MockAttemptRepository) GetAssignmentByOrder(ctx context.Context, attemptID string, order int) (*domain.AssignmentWithQuestion, error) {
	args := m.Called(ctx, attemptID, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentWithQuestion), args.Error(1)
}

func (m *MockAttemptRepository) InsertAssignment(ctx context.Context, assignment *domain.AttemptQuestion) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockAttemptRepository) ListRecentAttemptQuestionIDs(ctx context.Context, userID string, n int) (map[string]struct{}, error) {
	args := m.Called(ctx, userID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

// MockQuestionRepository is a mock of domain.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) QueryBank(ctx context.Context, filter domain.BankFilter) ([]*domain.Question, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Question), args.Error(1)
}

func (m *MockQuestionRepository) InsertQuestion(ctx context.Context, question *domain.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetQuestionByContentKey(ctx context.Context, contentKey string) (*domain.Question, error) {
	args := m.Called(ctx, contentKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}

func (m *MockQuestionRepository) ListEmbeddingsByTopic(ctx context.Context, topic, subtopic string, limit int) ([]*domain.Question, error) {
	args := m.Called(ctx, topic, subtopic, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Question), args.Error(1)
}

func (m *MockQuestionRepository) ListTopicCounts(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockQuestionRepository) ListAnyExcluding(ctx context.Context, excludeIDs []string, limit int) ([]*domain.Question, error) {
	args := m.Called(ctx, excludeIDs, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Question), args.Error(1)
}

func (m *MockQuestionRepository) HybridRetrieve(ctx context.Context, topic, subtopic, queryText string, queryEmbedding []float32, k int) ([]*domain.ContentChunk, error) {
	args := m.Called(ctx, topic, subtopic, queryText, queryEmbedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ContentChunk), args.Error(1)
}

// MockGenerationService is a mock of domain.GenerationService
type MockGenerationService struct {
	mock.Mock
}

func (m *MockGenerationService) SelectCriteria(ctx context.Context, dist *domain.Distributions) (*domain.SelectionCriteria, error) {
	args := m.Called(ctx, dist)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SelectionCriteria), args.Error(1)
}

func (m *MockGenerationService) GenerateQuestion(ctx context.Context, req domain.GenerationRequest) (*domain.QuestionDraft, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuestionDraft), args.Error(1)
}

// MockEmbeddingService is a mock of domain.EmbeddingService
type MockEmbeddingService struct {
	mock.Mock
}

func (m *MockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}
