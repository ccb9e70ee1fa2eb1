package service

import (
	"context"
	"testing"

	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newTestGate(questionRepo *MockQuestionRepository) *SimilarityGate {
	return NewSimilarityGate(questionRepo, testSelectionConfig(), zap.NewNop())
}

func TestPenaltyForBands(t *testing.T) {
	gate := newTestGate(new(MockQuestionRepository))

	assert.Equal(t, 0.0, gate.PenaltyFor(0.5))
	assert.Equal(t, penaltyMedium, gate.PenaltyFor(0.85))
	assert.Equal(t, penaltyMedium, gate.PenaltyFor(0.91))
	assert.Equal(t, penaltyHigh, gate.PenaltyFor(0.92))
	// Over both thresholds the high band wins, never the medium one.
	assert.Equal(t, penaltyHigh, gate.PenaltyFor(0.99))
}

func TestIntraAttemptSimilarityTakesMax(t *testing.T) {
	gate := newTestGate(new(MockQuestionRepository))

	orthogonal := testQuestion("q1", "React", "Hooks")
	orthogonal.Embedding = []float32{0, 1, 0}
	parallel := testQuestion("q2", "React", "Hooks")
	parallel.Embedding = []float32{1, 0, 0}

	asked := []domain.AssignmentWithQuestion{
		askedAssignment(1, orthogonal),
		askedAssignment(2, parallel),
	}

	sim := gate.IntraAttemptSimilarity([]float32{1, 0, 0}, asked)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestIntraAttemptSimilarityEmptyEmbedding(t *testing.T) {
	gate := newTestGate(new(MockQuestionRepository))
	asked := []domain.AssignmentWithQuestion{askedAssignment(1, testQuestion("q1", "React", ""))}

	assert.Equal(t, 0.0, gate.IntraAttemptSimilarity(nil, asked))
}

func TestNeighborSimilarityExcludesSelf(t *testing.T) {
	questionRepo := new(MockQuestionRepository)
	gate := newTestGate(questionRepo)

	self := testQuestion("q1", "React", "Hooks")
	self.Embedding = []float32{1, 0, 0}
	other := testQuestion("q2", "React", "Hooks")
	other.Embedding = []float32{0, 1, 0}

	questionRepo.On("ListEmbeddingsByTopic", mock.Anything, "React", "Hooks", neighborPageSize).
		Return([]*domain.Question{self, other}, nil)

	// Without the exclusion, q1 would score a perfect 1.0 against itself.
	sim, err := gate.NeighborSimilarity(context.Background(), "React", "Hooks", []float32{1, 0, 0}, "q1")
	assert.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)
}

func TestCandidatePenaltyTakesWorseBand(t *testing.T) {
	questionRepo := new(MockQuestionRepository)
	gate := newTestGate(questionRepo)

	candidate := testQuestion("q1", "React", "Hooks")
	candidate.Embedding = []float32{1, 0, 0}

	// Neighbor in the high band; nothing asked intra-attempt.
	near := testQuestion("q2", "React", "Hooks")
	near.Embedding = []float32{1, 0.01, 0}
	questionRepo.On("ListEmbeddingsByTopic", mock.Anything, "React", "Hooks", neighborPageSize).
		Return([]*domain.Question{near}, nil)

	penalty, err := gate.CandidatePenalty(context.Background(), candidate, nil)
	assert.NoError(t, err)
	assert.Equal(t, penaltyHigh, penalty)
}

func TestCheckDraftContentKeyReject(t *testing.T) {
	questionRepo := new(MockQuestionRepository)
	gate := newTestGate(questionRepo)

	asked := testQuestion("q1", "React", "Hooks")
	asked.Question = "What does useEffect clean up?"
	asked.ContentKey = domain.ContentKey(asked.Question)

	draft := &domain.QuestionDraft{
		// Same text modulo punctuation and case: identical content key.
		Question:     "what does useEffect clean up",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 0,
	}

	result, err := gate.CheckDraft(context.Background(), draft, "React", "Hooks", []float32{1, 0}, []domain.AssignmentWithQuestion{askedAssignment(1, asked)})
	assert.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, rejectContentKey, result.Reason)
	// First gate fired: no need to page neighbors.
	questionRepo.AssertNotCalled(t, "ListEmbeddingsByTopic", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckDraftJaccardOnlyWithinSameSubtopic(t *testing.T) {
	questionRepo := new(MockQuestionRepository)
	gate := newTestGate(questionRepo)
	questionRepo.On("ListEmbeddingsByTopic", mock.Anything, mock.Anything, mock.Anything, neighborPageSize).
		Return([]*domain.Question{}, nil)

	asked := testQuestion("q1", "CSS", "Flexbox")
	asked.Question = "Which property controls item alignment along the main flexbox axis direction here"
	asked.ContentKey = domain.ContentKey(asked.Question)
	askedList := []domain.AssignmentWithQuestion{askedAssignment(1, asked)}

	draft := &domain.QuestionDraft{
		Question:     "Which property controls item alignment along the main flexbox axis direction now",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 0,
	}

	// Same topic/subtopic pair: overlap counts as duplication.
	result, err := gate.CheckDraft(context.Background(), draft, "CSS", "Flexbox", []float32{1, 0}, askedList)
	assert.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, rejectTextOverlap, result.Reason)

	// Different subtopic: the Jaccard gate does not fire.
	result, err = gate.CheckDraft(context.Background(), draft, "CSS", "Grid", []float32{1, 0}, askedList)
	assert.NoError(t, err)
	assert.True(t, result.Accepted)
}

func TestCheckDraftNeighborReject(t *testing.T) {
	questionRepo := new(MockQuestionRepository)
	gate := newTestGate(questionRepo)

	near := testQuestion("q5", "React", "Hooks")
	near.Embedding = []float32{1, 0, 0}
	questionRepo.On("ListEmbeddingsByTopic", mock.Anything, "React", "Hooks", neighborPageSize).
		Return([]*domain.Question{near}, nil)

	draft := &domain.QuestionDraft{
		Question:     "A completely fresh question about state batching",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 0,
	}

	result, err := gate.CheckDraft(context.Background(), draft, "React", "Hooks", []float32{1, 0, 0}, nil)
	assert.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, rejectNeighbor, result.Reason)
}

func TestCheckDraftAccept(t *testing.T) {
	questionRepo := new(MockQuestionRepository)
	gate := newTestGate(questionRepo)
	questionRepo.On("ListEmbeddingsByTopic", mock.Anything, "React", "Hooks", neighborPageSize).
		Return([]*domain.Question{}, nil)

	draft := &domain.QuestionDraft{
		Question:     "How does the reconciler decide to reuse a fiber node?",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 2,
	}

	result, err := gate.CheckDraft(context.Background(), draft, "React", "Hooks", []float32{0, 1, 0}, nil)
	assert.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Empty(t, result.Reason)
}

func TestJaccard(t *testing.T) {
	a := wordSet("the quick brown fox")
	b := wordSet("the quick brown dog")
	assert.InDelta(t, 3.0/5.0, jaccard(a, b), 1e-9)

	assert.Equal(t, 0.0, jaccard(wordSet(""), wordSet("")))
	assert.InDelta(t, 1.0, jaccard(a, a), 1e-9)
}
