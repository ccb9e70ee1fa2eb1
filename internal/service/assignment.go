package service

import (
	"context"
	"errors"
	"time"

	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"go.uber.org/zap"
)

// AssignmentExecutor performs the concurrency-safe insert of
// (attempt, question, order). The store-level uniqueness constraint on
// (attempt_id, question_order) is the only safety net: the executor
// attempts optimistically and, when a concurrent request wins the slot,
// reads back the winner instead of failing.
type AssignmentExecutor struct {
	attemptRepo  domain.AttemptRepository
	questionRepo domain.QuestionRepository
	cfg          config.SelectionConfig
	logger       *zap.Logger
	sleep        func(time.Duration) // injectable for tests
}

// NewAssignmentExecutor creates a new AssignmentExecutor.
func NewAssignmentExecutor(
	attemptRepo domain.AttemptRepository,
	questionRepo domain.QuestionRepository,
	cfg config.SelectionConfig,
	logger *zap.Logger,
) *AssignmentExecutor {
	return &AssignmentExecutor{
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
		cfg:          cfg,
		logger:       logger,
		sleep:        time.Sleep,
	}
}

// errCandidateUnusable tells the caller to advance to the next candidate.
var errCandidateUnusable = errors.New("candidate cannot be assigned")

// Assign commits one question into the slot. On a slot race the winning
// row is read back and returned; both racers observe the same question.
func (e *AssignmentExecutor) Assign(ctx context.Context, attempt *domain.Attempt, order int, questionID string, generatedOnDemand bool) (*domain.AssignmentWithQuestion, error) {
	assignment := &domain.AttemptQuestion{
		AttemptID:         attempt.ID,
		QuestionID:        questionID,
		QuestionOrder:     order,
		GeneratedOnDemand: generatedOnDemand,
	}

	maxRetries := e.cfg.MaxInsertRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attemptNo := 0; attemptNo < maxRetries; attemptNo++ {
		err := e.attemptRepo.InsertAssignment(ctx, assignment)
		if err == nil {
			return e.readBack(ctx, attempt.ID, order)
		}

		if errors.Is(err, domain.ErrSlotTaken) {
			// A concurrent request filled this slot first. Not a failure:
			// return the winner so every caller sees one consistent answer.
			e.logger.Info("Assignment slot race lost, reading back winner",
				zap.String("attempt_id", attempt.ID),
				zap.Int("order", order))
			return e.readBack(ctx, attempt.ID, order)
		}
		if errors.Is(err, domain.ErrAlreadyAssigned) {
			return nil, errCandidateUnusable
		}

		lastErr = err
		backoff := e.cfg.InsertBackoffBase
		if backoff <= 0 {
			backoff = 50 * time.Millisecond
		}
		e.logger.Warn("Transient assignment insert failure, retrying",
			zap.String("attempt_id", attempt.ID),
			zap.Int("order", order),
			zap.Int("retry", attemptNo+1),
			zap.Error(err))
		e.sleep(backoff << attemptNo)
	}

	e.logger.Warn("Assignment retries exhausted for candidate",
		zap.String("attempt_id", attempt.ID),
		zap.String("question_id", questionID),
		zap.Error(lastErr))
	return nil, errCandidateUnusable
}

// AssignFirstViable walks the ordered candidate sequence until one commits
// (or a racing winner is read back). Returns nil when every candidate
// exhausts its retries.
func (e *AssignmentExecutor) AssignFirstViable(ctx context.Context, attempt *domain.Attempt, order int, ordered []*domain.ScoredCandidate) (*domain.AssignmentWithQuestion, error) {
	for _, candidate := range ordered {
		result, err := e.Assign(ctx, attempt, order, candidate.Question.ID, false)
		if err != nil {
			if errors.Is(err, errCandidateUnusable) {
				continue
			}
			return nil, err
		}
		return result, nil
	}
	return nil, nil
}

// AssignLastResort unconditionally assigns any unused bank item so the
// attempt never stalls. Only its total failure surfaces to the caller.
func (e *AssignmentExecutor) AssignLastResort(ctx context.Context, attempt *domain.Attempt, order int, askedIDs []string) (*domain.AssignmentWithQuestion, error) {
	e.logger.Warn("Falling back to last-resort assignment",
		zap.String("attempt_id", attempt.ID),
		zap.Int("order", order))

	questions, err := e.questionRepo.ListAnyExcluding(ctx, askedIDs, e.cfg.BankPageSize)
	if err != nil {
		return nil, domain.NewSelectionExhaustedError(attempt.ID, err)
	}

	for _, q := range questions {
		result, err := e.Assign(ctx, attempt, order, q.ID, false)
		if err != nil {
			if errors.Is(err, errCandidateUnusable) {
				continue
			}
			return nil, domain.NewSelectionExhaustedError(attempt.ID, err)
		}
		return result, nil
	}
	return nil, domain.NewSelectionExhaustedError(attempt.ID, nil)
}

// readBack fetches the committed slot joined with its question. The row must
// exist: either this request inserted it or the race winner did.
func (e *AssignmentExecutor) readBack(ctx context.Context, attemptID string, order int) (*domain.AssignmentWithQuestion, error) {
	result, err := e.attemptRepo.GetAssignmentByOrder(ctx, attemptID, order)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, domain.NewInternalError("committed assignment not found on read-back", nil)
	}
	return result, nil
}
