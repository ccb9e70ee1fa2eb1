package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"go.uber.org/zap"
)

const retrievalContextSize = 5

// GenerationFallback produces and persists a brand-new bank question when
// the bank has no viable candidate. Each iteration retrieves supporting
// context, invokes the generative service and runs the full similarity
// gate sequence; rejections feed negative examples back into the next
// iteration with a perturbed subtopic.
type GenerationFallback struct {
	questionRepo domain.QuestionRepository
	embedding    domain.EmbeddingService
	generator    domain.GenerationService
	gate         *SimilarityGate
	cfg          config.SelectionConfig
	rng          *rand.Rand
	logger       *zap.Logger
}

// NewGenerationFallback creates a new GenerationFallback.
func NewGenerationFallback(
	questionRepo domain.QuestionRepository,
	embeddingSvc domain.EmbeddingService,
	generator domain.GenerationService,
	gate *SimilarityGate,
	cfg config.SelectionConfig,
	rng *rand.Rand,
	logger *zap.Logger,
) *GenerationFallback {
	return &GenerationFallback{
		questionRepo: questionRepo,
		embedding:    embeddingSvc,
		generator:    generator,
		gate:         gate,
		cfg:          cfg,
		rng:          rng,
		logger:       logger,
	}
}

// Generate runs the fallback loop and returns a persisted bank question
// ready for assignment. When every iteration is rejected, the last draft is
// accepted as-is so the attempt keeps moving.
func (f *GenerationFallback) Generate(
	ctx context.Context,
	attempt *domain.Attempt,
	criteria *domain.SelectionCriteria,
	dist *domain.Distributions,
	asked []domain.AssignmentWithQuestion,
) (*domain.Question, error) {
	maxAttempts := f.cfg.MaxGenerateAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var (
		negativeExamples []string
		avoidSubtopics   []string
		lastDraft        *domain.QuestionDraft
		lastTopic        string
		lastSubtopic     string
		lastEmbedding    []float32
	)

	topic := criteria.Topic
	subtopic := criteria.Subtopic

	for iteration := 0; iteration < maxAttempts; iteration++ {
		if iteration > 0 {
			// Perturb the angle after a rejection: keep the topic but move
			// to a different subtopic, or to an under-represented topic
			// when the criteria gave none to vary.
			topic, subtopic = f.perturbTarget(ctx, criteria, dist, avoidSubtopics)
		}

		queryText := buildRetrievalQuery(topic, subtopic, criteria)
		queryEmbedding, err := f.embedding.Embed(ctx, queryText)
		if err != nil {
			f.logger.Warn("Failed to embed retrieval query, continuing without semantic rank",
				zap.Error(err), zap.String("attempt_id", attempt.ID))
			queryEmbedding = nil
		}

		chunks, err := f.questionRepo.HybridRetrieve(ctx, topic, subtopic, queryText, queryEmbedding, retrievalContextSize)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			// NoViableContext: abort this iteration, the loop continues.
			f.logger.Warn("No retrieval context for generation target",
				zap.String("attempt_id", attempt.ID),
				zap.String("topic", topic),
				zap.String("subtopic", subtopic))
			if subtopic != "" {
				avoidSubtopics = appendUnique(avoidSubtopics, subtopic)
			}
			continue
		}

		draft, err := f.generator.GenerateQuestion(ctx, domain.GenerationRequest{
			Topic:            topic,
			Subtopic:         subtopic,
			Difficulty:       criteria.Difficulty,
			BloomLevel:       criteria.BloomLevel,
			CodingMode:       criteria.CodingMode,
			Context:          chunks,
			NegativeExamples: negativeExamples,
			AvoidSubtopics:   avoidSubtopics,
		})
		if err != nil {
			return nil, err
		}

		if err := validateDraft(draft, criteria.CodingMode); err != nil {
			f.logger.Warn("Generated draft failed validation",
				zap.Error(err), zap.String("attempt_id", attempt.ID))
			negativeExamples = f.appendNegative(negativeExamples, draft.Question)
			continue
		}

		draftEmbedding, err := f.embedding.Embed(ctx, draft.Question)
		if err != nil {
			return nil, domain.NewGenerationError(fmt.Errorf("failed to embed generated question: %w", err))
		}

		effectiveSubtopic := subtopic
		if draft.Subtopic != "" {
			effectiveSubtopic = draft.Subtopic
		}

		result, err := f.gate.CheckDraft(ctx, draft, topic, effectiveSubtopic, draftEmbedding, asked)
		if err != nil {
			return nil, err
		}

		lastDraft, lastTopic, lastSubtopic, lastEmbedding = draft, topic, effectiveSubtopic, draftEmbedding

		if !result.Accepted {
			f.logger.Info("Generated draft rejected by similarity gate",
				zap.String("attempt_id", attempt.ID),
				zap.String("reason", result.Reason),
				zap.Int("iteration", iteration+1))
			negativeExamples = f.appendNegative(negativeExamples, draft.Question)
			if effectiveSubtopic != "" {
				avoidSubtopics = appendUnique(avoidSubtopics, effectiveSubtopic)
			}
			continue
		}

		return f.persist(ctx, attempt, criteria, draft, topic, effectiveSubtopic, draftEmbedding)
	}

	// Attempts exhausted. Accept the last draft as-is rather than stalling
	// the attempt; forward progress beats perfect novelty here.
	if lastDraft != nil {
		f.logger.Warn("Generation gate attempts exhausted, accepting last draft",
			zap.String("attempt_id", attempt.ID))
		return f.persist(ctx, attempt, criteria, lastDraft, lastTopic, lastSubtopic, lastEmbedding)
	}
	return nil, domain.NewGenerationError(errors.New("no draft could be generated"))
}

// persist stores the accepted draft as a bank item. A content-key collision
// means an identical question already exists; its row is reused.
func (f *GenerationFallback) persist(
	ctx context.Context,
	attempt *domain.Attempt,
	criteria *domain.SelectionCriteria,
	draft *domain.QuestionDraft,
	topic, subtopic string,
	embedding []float32,
) (*domain.Question, error) {
	question := &domain.Question{
		Topic:        topic,
		Subtopic:     subtopic,
		Difficulty:   criteria.Difficulty,
		BloomLevel:   criteria.BloomLevel,
		Question:     draft.Question,
		Options:      draft.Options,
		CorrectIndex: draft.CorrectIndex,
		CodeSnippet:  draft.CodeSnippet,
		Embedding:    embedding,
		ContentKey:   domain.ContentKey(draft.Question),
		CreatedBy:    attempt.UserID,
	}
	if err := question.Validate(); err != nil {
		return nil, err
	}

	err := f.questionRepo.InsertQuestion(ctx, question)
	if err == nil {
		return question, nil
	}
	if !errors.Is(err, domain.ErrContentConflict) {
		return nil, err
	}

	existing, lookupErr := f.questionRepo.GetQuestionByContentKey(ctx, question.ContentKey)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if existing == nil {
		return nil, domain.NewInternalError("content key conflict but existing question not found", err)
	}
	f.logger.Info("Generated question collided on content key, reusing existing row",
		zap.String("attempt_id", attempt.ID),
		zap.String("question_id", existing.ID))
	return existing, nil
}

// perturbTarget picks the next topic/subtopic after a rejection: the
// criteria topic with a cleared subtopic first, then a coverage-weighted
// random pick among topics still under the ceiling.
func (f *GenerationFallback) perturbTarget(ctx context.Context, criteria *domain.SelectionCriteria, dist *domain.Distributions, avoidSubtopics []string) (string, string) {
	if criteria.Subtopic != "" && !contains(avoidSubtopics, criteria.Subtopic) {
		return criteria.Topic, criteria.Subtopic
	}

	counts, err := f.questionRepo.ListTopicCounts(ctx)
	if err != nil || len(counts) == 0 {
		return criteria.Topic, ""
	}

	// Weight topics by how under-represented they are in this attempt.
	type weighted struct {
		topic  string
		weight float64
	}
	var (
		pool  []weighted
		total float64
	)
	topics := make([]string, 0, len(counts))
	for topic := range counts {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		askedShare := 0.0
		if dist.TotalQuestions > 0 {
			askedShare = float64(dist.ByTopic[topic]) / float64(dist.TotalQuestions)
		}
		if askedShare >= f.cfg.TopicCoverageCeil {
			continue
		}
		w := 1.0 / (float64(dist.ByTopic[topic]) + 1.0)
		pool = append(pool, weighted{topic: topic, weight: w})
		total += w
	}
	if len(pool) == 0 {
		return criteria.Topic, ""
	}

	target := f.rng.Float64() * total
	current := 0.0
	for _, entry := range pool {
		current += entry.weight
		if current >= target {
			return entry.topic, ""
		}
	}
	return pool[len(pool)-1].topic, ""
}

func (f *GenerationFallback) appendNegative(negatives []string, questionText string) []string {
	limit := f.cfg.NegativeExampleCap
	if limit <= 0 {
		limit = 25
	}
	negatives = append(negatives, questionText)
	if len(negatives) > limit {
		negatives = negatives[len(negatives)-limit:]
	}
	return negatives
}

// validateDraft enforces the generative service's output contract.
func validateDraft(draft *domain.QuestionDraft, codingMode bool) error {
	if strings.TrimSpace(draft.Question) == "" {
		return domain.NewGenerationError(errors.New("draft question text is empty"))
	}
	if len(draft.Options) != 4 {
		return domain.NewGenerationError(fmt.Errorf("draft has %d options, want 4", len(draft.Options)))
	}
	if draft.CorrectIndex < 0 || draft.CorrectIndex >= len(draft.Options) {
		return domain.NewGenerationError(fmt.Errorf("draft correct index %d out of range", draft.CorrectIndex))
	}

	if !codingMode {
		return nil
	}

	snippet := strings.TrimSpace(draft.CodeSnippet)
	if snippet == "" {
		return domain.NewGenerationError(errors.New("coding draft is missing its code snippet"))
	}
	lines := strings.Count(snippet, "\n") + 1
	if lines < 3 || lines > 50 {
		return domain.NewGenerationError(fmt.Errorf("code snippet has %d lines, want 3-50", lines))
	}
	if strings.Contains(draft.Question, snippet) {
		return domain.NewGenerationError(errors.New("code snippet is repeated verbatim in the question prose"))
	}
	return nil
}

func buildRetrievalQuery(topic, subtopic string, criteria *domain.SelectionCriteria) string {
	parts := []string{topic}
	if subtopic != "" {
		parts = append(parts, subtopic)
	}
	parts = append(parts, string(criteria.Difficulty), string(criteria.BloomLevel))
	return strings.Join(parts, " ")
}

func appendUnique(list []string, value string) []string {
	if contains(list, value) {
		return list
	}
	return append(list, value)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
