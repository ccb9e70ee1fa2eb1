package service

import (
	"context"

	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"go.uber.org/zap"
)

// BankQueryEngine retrieves scored-candidate material from the question
// bank, first with the strict 5-dimension filter and then, when that
// starves, with the widened soft filter.
type BankQueryEngine struct {
	questionRepo domain.QuestionRepository
	attemptRepo  domain.AttemptRepository
	cfg          config.SelectionConfig
	logger       *zap.Logger
}

// NewBankQueryEngine creates a new BankQueryEngine.
func NewBankQueryEngine(
	questionRepo domain.QuestionRepository,
	attemptRepo domain.AttemptRepository,
	cfg config.SelectionConfig,
	logger *zap.Logger,
) *BankQueryEngine {
	return &BankQueryEngine{
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

// FetchCandidates returns unscored candidates for the criteria, annotated
// with cross-attempt freshness, plus the query mode that produced them.
// An empty result means the caller should fall through to generation.
func (e *BankQueryEngine) FetchCandidates(
	ctx context.Context,
	attempt *domain.Attempt,
	criteria *domain.SelectionCriteria,
	dist *domain.Distributions,
	askedIDs []string,
) ([]*domain.ScoredCandidate, domain.BankQueryMode, error) {
	exact := domain.BankFilter{
		Mode:       domain.BankQueryExact,
		Difficulty: criteria.Difficulty,
		CodingMode: criteria.CodingMode,
		Topic:      criteria.Topic,
		Subtopic:   criteria.Subtopic,
		BloomLevel: criteria.BloomLevel,
		ExcludeIDs: askedIDs,
		Limit:      e.cfg.BankPageSize,
	}

	questions, err := e.questionRepo.QueryBank(ctx, exact)
	if err != nil {
		return nil, domain.BankQueryExact, err
	}
	mode := domain.BankQueryExact

	if len(questions) == 0 {
		soft := domain.BankFilter{
			Mode:          domain.BankQuerySoft,
			Difficulty:    criteria.Difficulty,
			CodingMode:    criteria.CodingMode,
			ExcludeIDs:    askedIDs,
			ExcludeTopics: e.overRepresentedTopics(dist),
			Limit:         e.cfg.BankPageSize,
		}
		questions, err = e.questionRepo.QueryBank(ctx, soft)
		if err != nil {
			return nil, domain.BankQuerySoft, err
		}
		mode = domain.BankQuerySoft
		e.logger.Debug("Bank query widened to soft mode",
			zap.String("attempt_id", attempt.ID),
			zap.Int("candidates", len(questions)))
	}

	if len(questions) == 0 {
		return nil, mode, nil
	}

	recentIDs, err := e.attemptRepo.ListRecentAttemptQuestionIDs(ctx, attempt.UserID, e.cfg.RecentAttemptWindow)
	if err != nil {
		return nil, mode, err
	}

	candidates := make([]*domain.ScoredCandidate, 0, len(questions))
	for _, q := range questions {
		_, seen := recentIDs[q.ID]
		candidates = append(candidates, &domain.ScoredCandidate{
			Question:     q,
			SeenRecently: seen,
		})
	}
	return candidates, mode, nil
}

// overRepresentedTopics lists topics at or above the coverage ceiling,
// measured against the attempt's total slot count.
func (e *BankQueryEngine) overRepresentedTopics(dist *domain.Distributions) []string {
	if dist.TotalQuestions == 0 {
		return nil
	}
	var topics []string
	for topic, count := range dist.ByTopic {
		if float64(count)/float64(dist.TotalQuestions) >= e.cfg.TopicCoverageCeil {
			topics = append(topics, topic)
		}
	}
	return topics
}
