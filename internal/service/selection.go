package service

import (
	"context"
	"errors"

	"github.com/vishal-grover-dev/iq-sub000/internal/domain"
	"github.com/vishal-grover-dev/iq-sub000/internal/dto"

	"go.uber.org/zap"
)

// SelectionService defines the produced contract of the selection pipeline.
type SelectionService interface {
	// NextQuestion returns the attempt summary plus exactly one next
	// question, or a null question when the attempt is finished.
	NextQuestion(ctx context.Context, attemptID, userID string) (*dto.NextQuestionResponse, error)

	// GetAttemptSummary returns the attempt's progress view.
	GetAttemptSummary(ctx context.Context, attemptID, userID string) (*dto.AttemptSummary, error)
}

// selectionService is the orchestrator: a state machine walking
// GUARD → PENDING_CHECK → CONTEXT → BANK_QUERY →
// {SCORE_AND_ASSIGN | GENERATE_AND_ASSIGN} → DONE per request.
type selectionService struct {
	attemptRepo domain.AttemptRepository
	generator   domain.GenerationService
	bankQuery   *BankQueryEngine
	gate        *SimilarityGate
	scorer      *CandidateScorer
	executor    *AssignmentExecutor
	fallback    *GenerationFallback
	logger      *zap.Logger
}

// NewSelectionService creates the selection orchestrator.
func NewSelectionService(
	attemptRepo domain.AttemptRepository,
	generator domain.GenerationService,
	bankQuery *BankQueryEngine,
	gate *SimilarityGate,
	scorer *CandidateScorer,
	executor *AssignmentExecutor,
	fallback *GenerationFallback,
	logger *zap.Logger,
) SelectionService {
	return &selectionService{
		attemptRepo: attemptRepo,
		generator:   generator,
		bankQuery:   bankQuery,
		gate:        gate,
		scorer:      scorer,
		executor:    executor,
		fallback:    fallback,
		logger:      logger,
	}
}

// NextQuestion implements SelectionService
func (s *selectionService) NextQuestion(ctx context.Context, attemptID, userID string) (*dto.NextQuestionResponse, error) {
	// GUARD
	attempt, err := s.attemptRepo.GetAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load attempt", err)
	}
	if attempt == nil {
		return nil, domain.NewAttemptNotFoundError(attemptID)
	}
	if attempt.IsFinished() {
		// COMPLETED short-circuit.
		return &dto.NextQuestionResponse{Attempt: toAttemptSummary(attempt)}, nil
	}

	order := attempt.NextOrder()

	// PENDING_CHECK: a slot already assigned but unanswered is returned
	// as-is, so repeated calls are idempotent and racing clients converge.
	pending, err := s.attemptRepo.GetAssignmentByOrder(ctx, attempt.ID, order)
	if err != nil {
		return nil, domain.NewInternalError("failed to check pending assignment", err)
	}
	if pending != nil && !pending.Assignment.Answered() {
		return s.respond(attempt, pending), nil
	}

	// CONTEXT
	asked, err := s.attemptRepo.ListAssignments(ctx, attempt.ID)
	if err != nil {
		return nil, domain.NewInternalError("failed to list asked questions", err)
	}
	dist := AccumulateDistributions(attempt, asked)

	criteria, err := s.generator.SelectCriteria(ctx, dist)
	if err != nil {
		return nil, err
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	if !criteria.CodingMode && dist.CodingShortfall() {
		// Too few coding-flagged slots remain to reach the floor share;
		// override the selector for the rest of the attempt.
		s.logger.Info("Forcing coding mode to keep the coding share reachable",
			zap.String("attempt_id", attempt.ID),
			zap.Int("coding_count", dist.CodingCount),
			zap.Int("remaining", dist.RemainingSlots()))
		criteria.CodingMode = true
	}

	askedIDs := make([]string, 0, len(asked))
	for i := range asked {
		askedIDs = append(askedIDs, asked[i].Assignment.QuestionID)
	}

	// BANK_QUERY
	candidates, mode, err := s.bankQuery.FetchCandidates(ctx, attempt, criteria, dist, askedIDs)
	if err != nil {
		return nil, domain.NewInternalError("failed to query question bank", err)
	}

	var committed *domain.AssignmentWithQuestion
	if len(candidates) > 0 {
		// SCORE_AND_ASSIGN
		committed, err = s.scoreAndAssign(ctx, attempt, order, criteria, mode, candidates, asked)
	} else {
		// GENERATE_AND_ASSIGN
		committed, err = s.generateAndAssign(ctx, attempt, order, criteria, dist, asked)
	}
	if err != nil {
		return nil, err
	}

	if committed == nil {
		// Every candidate and every generation attempt failed to commit.
		committed, err = s.executor.AssignLastResort(ctx, attempt, order, askedIDs)
		if err != nil {
			return nil, err
		}
	}

	return s.respond(attempt, committed), nil
}

func (s *selectionService) scoreAndAssign(
	ctx context.Context,
	attempt *domain.Attempt,
	order int,
	criteria *domain.SelectionCriteria,
	mode domain.BankQueryMode,
	candidates []*domain.ScoredCandidate,
	asked []domain.AssignmentWithQuestion,
) (*domain.AssignmentWithQuestion, error) {
	for _, candidate := range candidates {
		penalty, err := s.gate.CandidatePenalty(ctx, candidate.Question, asked)
		if err != nil {
			return nil, domain.NewInternalError("failed to compute similarity penalty", err)
		}
		candidate.SimilarityPenalty = penalty
	}

	ordered := s.scorer.Order(candidates, criteria, mode)
	return s.executor.AssignFirstViable(ctx, attempt, order, ordered)
}

func (s *selectionService) generateAndAssign(
	ctx context.Context,
	attempt *domain.Attempt,
	order int,
	criteria *domain.SelectionCriteria,
	dist *domain.Distributions,
	asked []domain.AssignmentWithQuestion,
) (*domain.AssignmentWithQuestion, error) {
	question, err := s.fallback.Generate(ctx, attempt, criteria, dist, asked)
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == domain.CodeGenerationError {
			// Generation could not produce a question. The attempt must not
			// stall on that: hand over to the last-resort assignment and let
			// only its failure surface.
			s.logger.Warn("Generation fallback failed, deferring to last-resort assignment",
				zap.String("attempt_id", attempt.ID),
				zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	result, err := s.executor.Assign(ctx, attempt, order, question.ID, true)
	if err != nil {
		if errors.Is(err, errCandidateUnusable) {
			// The generated (or content-key-reused) question is already in
			// this attempt; the last-resort path takes over.
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// GetAttemptSummary implements SelectionService
func (s *selectionService) GetAttemptSummary(ctx context.Context, attemptID, userID string) (*dto.AttemptSummary, error) {
	attempt, err := s.attemptRepo.GetAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load attempt", err)
	}
	if attempt == nil {
		return nil, domain.NewAttemptNotFoundError(attemptID)
	}
	summary := toAttemptSummary(attempt)
	return &summary, nil
}

func (s *selectionService) respond(attempt *domain.Attempt, committed *domain.AssignmentWithQuestion) *dto.NextQuestionResponse {
	return &dto.NextQuestionResponse{
		Attempt:      toAttemptSummary(attempt),
		NextQuestion: toNextQuestion(committed),
	}
}

func toAttemptSummary(a *domain.Attempt) dto.AttemptSummary {
	return dto.AttemptSummary{
		ID:                a.ID,
		Status:            string(a.Status),
		TotalQuestions:    a.TotalQuestions,
		QuestionsAnswered: a.QuestionsAnswered,
		CorrectCount:      a.CorrectCount,
		PauseCount:        a.PauseCount,
		TimeSpentSeconds:  a.TimeSpentSeconds,
		CreatedAt:         a.CreatedAt,
		CompletedAt:       a.CompletedAt,
	}
}

// toNextQuestion maps the joined row onto the public payload. The correct
// index and any explanation never leave the service.
func toNextQuestion(aq *domain.AssignmentWithQuestion) *dto.NextQuestion {
	if aq == nil {
		return nil
	}
	return &dto.NextQuestion{
		ID:                aq.Question.ID,
		QuestionOrder:     aq.Assignment.QuestionOrder,
		Topic:             aq.Question.Topic,
		Subtopic:          aq.Question.Subtopic,
		Difficulty:        string(aq.Question.Difficulty),
		BloomLevel:        string(aq.Question.BloomLevel),
		Question:          aq.Question.Question,
		Options:           aq.Question.Options,
		CodeSnippet:       aq.Question.CodeSnippet,
		GeneratedOnDemand: aq.Assignment.GeneratedOnDemand,
	}
}
