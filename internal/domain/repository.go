package domain

import "context"

// AttemptRepository is the store port for attempts and slot assignments.
type AttemptRepository interface {
	// GetAttempt fetches an attempt scoped to its owner. Returns nil when
	// the attempt is absent or owned by someone else.
	GetAttempt(ctx context.Context, id, userID string) (*Attempt, error)

	// ListAssignments returns all assignments of an attempt joined with
	// their bank questions, ordered by question_order.
	ListAssignments(ctx context.Context, attemptID string) ([]AssignmentWithQuestion, error)

	// GetAssignmentByOrder fetches one slot joined with its question.
	// Returns nil when the slot is empty.
	GetAssignmentByOrder(ctx context.Context, attemptID string, order int) (*AssignmentWithQuestion, error)

	// InsertAssignment commits a slot. Returns ErrSlotTaken when a
	// concurrent request won the (attempt_id, question_order) race and
	// ErrAlreadyAssigned when the question is already in the attempt.
	InsertAssignment(ctx context.Context, assignment *AttemptQuestion) error

	// ListRecentAttemptQuestionIDs returns the question IDs used by the
	// owner's last n completed attempts, for cross-attempt freshness.
	ListRecentAttemptQuestionIDs(ctx context.Context, userID string, n int) (map[string]struct{}, error)
}

// QuestionRepository is the store port for the question bank.
type QuestionRepository interface {
	QueryBank(ctx context.Context, filter BankFilter) ([]*Question, error)

	// InsertQuestion persists a new bank item. Returns ErrContentConflict
	// when content_key already exists.
	InsertQuestion(ctx context.Context, question *Question) error

	GetQuestionByContentKey(ctx context.Context, contentKey string) (*Question, error)

	// ListEmbeddingsByTopic returns a bounded page of questions (with
	// embeddings) in the same topic/subtopic, for neighbor scoring.
	ListEmbeddingsByTopic(ctx context.Context, topic, subtopic string, limit int) ([]*Question, error)

	// ListTopicCounts returns bank item counts per topic.
	ListTopicCounts(ctx context.Context) (map[string]int, error)

	// ListAnyExcluding returns bank items not in excludeIDs, with no other
	// filtering. Backs the last-resort assignment that keeps an attempt
	// from stalling.
	ListAnyExcluding(ctx context.Context, excludeIDs []string, limit int) ([]*Question, error)

	// HybridRetrieve returns supporting content chunks for generation,
	// matched by topic/subtopic and ranked against the query embedding.
	HybridRetrieve(ctx context.Context, topic, subtopic, queryText string, queryEmbedding []float32, k int) ([]*ContentChunk, error)
}
