package embedding

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/vishal-grover-dev/iq-sub000/internal/cache"
	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"github.com/tmc/langchaingo/embeddings"
	openaiLLM "github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/sync/singleflight"
)

const (
	// maxInputRunes caps embedding inputs; overlong texts are truncated
	// rather than rejected.
	maxInputRunes = 8000

	maxAPIRetries = 3
	retryBaseWait = 500 * time.Millisecond
)

// OpenAIEmbeddingService implements domain.EmbeddingService using the
// langchaingo OpenAI embedder, with a redis-backed cache keyed by text hash
// and singleflight collapsing of concurrent identical requests.
type OpenAIEmbeddingService struct {
	embedder embeddings.Embedder
	cache    domain.Cache
	ttl      time.Duration
	sfGroup  singleflight.Group
}

// NewOpenAIEmbeddingService creates a new OpenAIEmbeddingService.
func NewOpenAIEmbeddingService(cfg config.OpenAIConfig, cacheClient domain.Cache, ttl time.Duration) (*OpenAIEmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key cannot be empty")
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = "text-embedding-3-small"
	}

	llm, err := openaiLLM.New(
		openaiLLM.WithToken(cfg.APIKey),
		openaiLLM.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client for embedder: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder from OpenAI LLM: %w", err)
	}

	return &OpenAIEmbeddingService{
		embedder: embedder,
		cache:    cacheClient,
		ttl:      ttl,
	}, nil
}

// Embed creates an embedding for the given text.
func (s *OpenAIEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("input text cannot be empty for embedding")
	}
	text = truncate(text)

	cacheKey := cache.GenerateCacheKey("embedding", "openai", hashString(text))

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			if vec, decodeErr := decodeEmbedding(cached); decodeErr == nil {
				return vec, nil
			}
			// Corrupt cache entries fall through to a fresh fetch.
		}
	}

	res, err, _ := s.sfGroup.Do(cacheKey, func() (interface{}, error) {
		raw, fetchErr := s.embedQueryWithRetry(ctx, text)
		if fetchErr != nil {
			return nil, fetchErr
		}

		if s.cache != nil {
			if encoded, encErr := encodeEmbedding(raw); encErr == nil {
				_ = s.cache.Set(ctx, cacheKey, encoded, s.ttl)
			}
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}

	vec, ok := res.([]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight for embedding: %T", res)
	}
	return vec, nil
}

// EmbedBatch creates embeddings for several texts in one API call.
// Results keep the input order.
func (s *OpenAIEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	truncated := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("batch input %d is empty", i)
		}
		truncated[i] = truncate(t)
	}

	var (
		result [][]float32
		err    error
	)
	for attempt := 0; attempt < maxAPIRetries; attempt++ {
		result, err = s.embedder.EmbedDocuments(ctx, truncated)
		if err == nil {
			break
		}
		if !isRetryable(err) || attempt == maxAPIRetries-1 {
			return nil, fmt.Errorf("failed to embed batch of %d texts: %w", len(texts), err)
		}
		select {
		case <-time.After(retryBaseWait << attempt):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(result) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(result), len(texts))
	}
	return result, nil
}

func (s *OpenAIEmbeddingService) embedQueryWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < maxAPIRetries; attempt++ {
		raw, err := s.embedder.EmbedQuery(ctx, text)
		if err == nil {
			if len(raw) == 0 {
				return nil, fmt.Errorf("received empty embedding from OpenAI")
			}
			return raw, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
		select {
		case <-time.After(retryBaseWait << attempt):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("failed to generate embedding: %w", lastErr)
}

// isRetryable treats rate limits and upstream 5xx responses as transient.
func isRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503")
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxInputRunes {
		return text
	}
	return string(runes[:maxInputRunes])
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func encodeEmbedding(vec []float32) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(vec); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func decodeEmbedding(data string) ([]float32, error) {
	var vec []float32
	if err := gob.NewDecoder(bytes.NewReader([]byte(data))).Decode(&vec); err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("decoded embedding is empty")
	}
	return vec, nil
}

var _ domain.EmbeddingService = (*OpenAIEmbeddingService)(nil)
