package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEmbedder fakes the langchaingo embedder.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockCache is a testify mock of domain.Cache.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var _ domain.Cache = (*MockCache)(nil)

func newTestService(embedder *MockEmbedder, cacheClient domain.Cache) *OpenAIEmbeddingService {
	return &OpenAIEmbeddingService{
		embedder: embedder,
		cache:    cacheClient,
		ttl:      time.Hour,
	}
}

func TestNewOpenAIEmbeddingServiceEmptyAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbeddingService(config.OpenAIConfig{}, new(MockCache), time.Hour)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API key cannot be empty")
}

func TestEmbedEmptyInput(t *testing.T) {
	svc := newTestService(new(MockEmbedder), new(MockCache))

	_, err := svc.Embed(context.Background(), "   ")
	assert.Error(t, err)
}

func TestEmbedCacheMissFetchesAndStores(t *testing.T) {
	embedder := new(MockEmbedder)
	cacheClient := new(MockCache)
	svc := newTestService(embedder, cacheClient)

	cacheClient.On("Get", mock.Anything, mock.Anything).Return("", domain.ErrCacheMiss)
	embedder.On("EmbedQuery", mock.Anything, "hello").Return([]float32{0.1, 0.2}, nil)
	cacheClient.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(nil)

	vec, err := svc.Embed(context.Background(), "hello")

	assert.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
	embedder.AssertNumberOfCalls(t, "EmbedQuery", 1)
	cacheClient.AssertNumberOfCalls(t, "Set", 1)
}

func TestEmbedCacheHitSkipsAPI(t *testing.T) {
	embedder := new(MockEmbedder)
	cacheClient := new(MockCache)
	svc := newTestService(embedder, cacheClient)

	encoded, err := encodeEmbedding([]float32{0.5, 0.6})
	assert.NoError(t, err)
	cacheClient.On("Get", mock.Anything, mock.Anything).Return(encoded, nil)

	vec, err := svc.Embed(context.Background(), "hello")

	assert.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.6}, vec)
	embedder.AssertNotCalled(t, "EmbedQuery", mock.Anything, mock.Anything)
}

func TestEmbedCorruptCacheEntryFallsThrough(t *testing.T) {
	embedder := new(MockEmbedder)
	cacheClient := new(MockCache)
	svc := newTestService(embedder, cacheClient)

	cacheClient.On("Get", mock.Anything, mock.Anything).Return("not gob data", nil)
	embedder.On("EmbedQuery", mock.Anything, "hello").Return([]float32{1}, nil)
	cacheClient.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(nil)

	vec, err := svc.Embed(context.Background(), "hello")

	assert.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	embedder.AssertNumberOfCalls(t, "EmbedQuery", 1)
}

func TestEmbedRetriesRateLimit(t *testing.T) {
	embedder := new(MockEmbedder)
	svc := newTestService(embedder, nil)

	embedder.On("EmbedQuery", mock.Anything, "hello").
		Return(nil, errors.New("429 Too Many Requests")).Twice()
	embedder.On("EmbedQuery", mock.Anything, "hello").
		Return([]float32{0.9}, nil).Once()

	vec, err := svc.Embed(context.Background(), "hello")

	assert.NoError(t, err)
	assert.Equal(t, []float32{0.9}, vec)
	embedder.AssertNumberOfCalls(t, "EmbedQuery", 3)
}

func TestEmbedDoesNotRetryPermanentError(t *testing.T) {
	embedder := new(MockEmbedder)
	svc := newTestService(embedder, nil)

	embedder.On("EmbedQuery", mock.Anything, "hello").
		Return(nil, errors.New("401 Unauthorized"))

	_, err := svc.Embed(context.Background(), "hello")

	assert.Error(t, err)
	embedder.AssertNumberOfCalls(t, "EmbedQuery", 1)
}

func TestEmbedTruncatesLongInput(t *testing.T) {
	embedder := new(MockEmbedder)
	svc := newTestService(embedder, nil)

	long := strings.Repeat("a", maxInputRunes+500)
	embedder.On("EmbedQuery", mock.Anything, mock.MatchedBy(func(text string) bool {
		return len([]rune(text)) == maxInputRunes
	})).Return([]float32{1}, nil)

	_, err := svc.Embed(context.Background(), long)

	assert.NoError(t, err)
	embedder.AssertExpectations(t)
}

func TestEmbedBatchKeepsOrder(t *testing.T) {
	embedder := new(MockEmbedder)
	svc := newTestService(embedder, nil)

	embedder.On("EmbedDocuments", mock.Anything, []string{"one", "two"}).
		Return([][]float32{{1}, {2}}, nil)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"one", "two"})

	assert.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	embedder := new(MockEmbedder)
	svc := newTestService(embedder, nil)

	embedder.On("EmbedDocuments", mock.Anything, mock.Anything).
		Return([][]float32{{1}}, nil)

	_, err := svc.EmbedBatch(context.Background(), []string{"one", "two"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestEmbedBatchEmpty(t *testing.T) {
	svc := newTestService(new(MockEmbedder), nil)

	vecs, err := svc.EmbedBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("429 rate limit exceeded")))
	assert.True(t, isRetryable(errors.New("upstream returned 503")))
	assert.False(t, isRetryable(errors.New("invalid request")))
}

func TestEncodeDecodeEmbeddingRoundTrip(t *testing.T) {
	encoded, err := encodeEmbedding([]float32{0.25, -1})
	assert.NoError(t, err)

	decoded, err := decodeEmbedding(encoded)
	assert.NoError(t, err)
	assert.Equal(t, []float32{0.25, -1}, decoded)

	_, err = decodeEmbedding("garbage")
	assert.Error(t, err)
}
