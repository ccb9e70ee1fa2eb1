package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vishal-grover-dev/iq-sub000/internal/domain"
	"github.com/vishal-grover-dev/iq-sub000/internal/repository/models"
	"github.com/vishal-grover-dev/iq-sub000/internal/util"

	"github.com/jmoiron/sqlx"
)

const constraintContentKey = "uq_question_content_key"

const questionColumns = `
	id, topic, subtopic, difficulty, bloom_level, question, options,
	correct_index, code_snippet, embedding, content_key,
	created_by, created_at, updated_at`

// QuestionDatabaseAdapter implements domain.QuestionRepository using sqlx.DB
type QuestionDatabaseAdapter struct {
	db *sqlx.DB
}

// NewQuestionDatabaseAdapter creates a new instance of QuestionDatabaseAdapter
func NewQuestionDatabaseAdapter(db *sqlx.DB) domain.QuestionRepository {
	return &QuestionDatabaseAdapter{db: db}
}

// QueryBank implements domain.QuestionRepository. Exact mode pins topic,
// subtopic, bloom level and coding flag; soft mode keeps only difficulty and
// coding flag as hard constraints and excludes over-represented topics.
func (a *QuestionDatabaseAdapter) QueryBank(ctx context.Context, filter domain.BankFilter) ([]*domain.Question, error) {
	var (
		conditions []string
		args       []interface{}
	)
	next := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	conditions = append(conditions, "difficulty = "+next(string(filter.Difficulty)))
	if filter.CodingMode {
		conditions = append(conditions, "code_snippet IS NOT NULL")
	} else {
		conditions = append(conditions, "code_snippet IS NULL")
	}

	switch filter.Mode {
	case domain.BankQueryExact:
		conditions = append(conditions, "topic = "+next(filter.Topic))
		if filter.Subtopic == "" {
			conditions = append(conditions, "subtopic IS NULL")
		} else {
			conditions = append(conditions, "subtopic = "+next(filter.Subtopic))
		}
		conditions = append(conditions, "bloom_level = "+next(string(filter.BloomLevel)))
	case domain.BankQuerySoft:
		for _, topic := range filter.ExcludeTopics {
			conditions = append(conditions, "topic <> "+next(topic))
		}
	}

	for _, id := range filter.ExcludeIDs {
		conditions = append(conditions, "id <> "+next(id))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + questionColumns + `
	FROM questions
	WHERE ` + strings.Join(conditions, " AND ") + `
	ORDER BY random()
	LIMIT ` + next(limit)

	var rows []models.Question
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query bank questions: %w", err)
	}
	return toDomainQuestions(rows)
}

// InsertQuestion implements domain.QuestionRepository
func (a *QuestionDatabaseAdapter) InsertQuestion(ctx context.Context, question *domain.Question) error {
	if question.ID == "" {
		question.ID = util.NewULID()
	}
	now := time.Now()
	if question.CreatedAt.IsZero() {
		question.CreatedAt = now
	}
	question.UpdatedAt = now

	embedding, err := util.EncodeVector(question.Embedding)
	if err != nil {
		return err
	}

	query := `INSERT INTO questions (
		id, topic, subtopic, difficulty, bloom_level, question, options,
		correct_index, code_snippet, embedding, content_key,
		created_by, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = a.db.ExecContext(ctx, query,
		question.ID,
		question.Topic,
		util.StringToNullString(question.Subtopic),
		string(question.Difficulty),
		string(question.BloomLevel),
		question.Question,
		models.StringSlice(question.Options),
		question.CorrectIndex,
		util.StringToNullString(question.CodeSnippet),
		util.StringToNullString(embedding),
		question.ContentKey,
		question.CreatedBy,
		question.CreatedAt,
		question.UpdatedAt,
	)
	if err != nil {
		if uniqueViolationConstraint(err) == constraintContentKey {
			return domain.ErrContentConflict
		}
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

// GetQuestionByContentKey implements domain.QuestionRepository
func (a *QuestionDatabaseAdapter) GetQuestionByContentKey(ctx context.Context, contentKey string) (*domain.Question, error) {
	var m models.Question
	query := `SELECT ` + questionColumns + ` FROM questions WHERE content_key = $1`
	err := a.db.GetContext(ctx, &m, query, contentKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get question by content key: %w", err)
	}
	return toDomainQuestion(&m)
}

// ListEmbeddingsByTopic implements domain.QuestionRepository. It returns a
// bounded page of same-topic questions with embeddings; neighbor ranking by
// cosine happens in the service layer.
func (a *QuestionDatabaseAdapter) ListEmbeddingsByTopic(ctx context.Context, topic, subtopic string, limit int) ([]*domain.Question, error) {
	if limit <= 0 {
		limit = 200
	}

	args := []interface{}{topic}
	query := `SELECT ` + questionColumns + `
	FROM questions
	WHERE topic = $1 AND embedding IS NOT NULL`
	if subtopic != "" {
		args = append(args, subtopic)
		query += ` AND subtopic = $2`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	var rows []models.Question
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list embeddings for topic %s: %w", topic, err)
	}
	return toDomainQuestions(rows)
}

// ListAnyExcluding implements domain.QuestionRepository
func (a *QuestionDatabaseAdapter) ListAnyExcluding(ctx context.Context, excludeIDs []string, limit int) ([]*domain.Question, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		conditions []string
		args       []interface{}
	)
	for _, id := range excludeIDs {
		args = append(args, id)
		conditions = append(conditions, fmt.Sprintf("id <> $%d", len(args)))
	}

	query := `SELECT ` + questionColumns + ` FROM questions`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY random() LIMIT $%d`, len(args))

	var rows []models.Question
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list unused questions: %w", err)
	}
	return toDomainQuestions(rows)
}

// ListTopicCounts implements domain.QuestionRepository
func (a *QuestionDatabaseAdapter) ListTopicCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Topic string `db:"topic"`
		Count int    `db:"cnt"`
	}
	query := `SELECT topic, COUNT(*) AS cnt FROM questions GROUP BY topic`
	if err := a.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count questions per topic: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Topic] = r.Count
	}
	return counts, nil
}

// HybridRetrieve implements domain.QuestionRepository. The lexical half is a
// Postgres full-text match on the chunk content; the semantic half re-ranks
// the page by cosine against the query embedding in process.
func (a *QuestionDatabaseAdapter) HybridRetrieve(ctx context.Context, topic, subtopic, queryText string, queryEmbedding []float32, k int) ([]*domain.ContentChunk, error) {
	if k <= 0 {
		k = 5
	}

	args := []interface{}{topic}
	query := `SELECT id, topic, subtopic, title, url, content, embedding, created_at
	FROM content_chunks
	WHERE topic = $1`
	if subtopic != "" {
		args = append(args, subtopic)
		query += ` AND subtopic = $2`
	}
	if queryText != "" {
		args = append(args, queryText)
		query += fmt.Sprintf(` AND to_tsvector('english', content) @@ plainto_tsquery('english', $%d)`, len(args))
	}
	// Over-fetch so the cosine re-rank has something to work with.
	args = append(args, k*4)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	var rows []models.ContentChunk
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to retrieve content chunks: %w", err)
	}

	chunks := make([]*domain.ContentChunk, 0, len(rows))
	for i := range rows {
		chunk, err := toDomainChunk(&rows[i])
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	if len(queryEmbedding) > 0 {
		type ranked struct {
			chunk *domain.ContentChunk
			score float64
		}
		scored := make([]ranked, 0, len(chunks))
		for _, c := range chunks {
			score := 0.0
			if len(c.Embedding) > 0 {
				if s, err := util.CosineSimilarity(queryEmbedding, c.Embedding); err == nil {
					score = s
				}
			}
			scored = append(scored, ranked{chunk: c, score: score})
		}
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
		chunks = chunks[:0]
		for _, r := range scored {
			chunks = append(chunks, r.chunk)
		}
	}

	if len(chunks) > k {
		chunks = chunks[:k]
	}
	return chunks, nil
}

// Helper functions for model conversion

func toDomainQuestion(m *models.Question) (*domain.Question, error) {
	if m == nil {
		return nil, fmt.Errorf("cannot convert nil model.Question to domain.Question")
	}
	embedding, err := util.DecodeVector(util.NullStringToString(m.Embedding))
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedding for question %s: %w", m.ID, err)
	}
	return &domain.Question{
		ID:           m.ID,
		Topic:        m.Topic,
		Subtopic:     util.NullStringToString(m.Subtopic),
		Difficulty:   domain.Difficulty(m.Difficulty),
		BloomLevel:   domain.BloomLevel(m.BloomLevel),
		Question:     m.Question,
		Options:      []string(m.Options),
		CorrectIndex: m.CorrectIndex,
		CodeSnippet:  util.NullStringToString(m.CodeSnippet),
		Embedding:    embedding,
		ContentKey:   m.ContentKey,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func toDomainQuestions(rows []models.Question) ([]*domain.Question, error) {
	result := make([]*domain.Question, 0, len(rows))
	for i := range rows {
		q, err := toDomainQuestion(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, nil
}

func toDomainChunk(m *models.ContentChunk) (*domain.ContentChunk, error) {
	embedding, err := util.DecodeVector(util.NullStringToString(m.Embedding))
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedding for chunk %s: %w", m.ID, err)
	}
	return &domain.ContentChunk{
		ID:        m.ID,
		Topic:     m.Topic,
		Subtopic:  util.NullStringToString(m.Subtopic),
		Title:     m.Title,
		URL:       m.URL,
		Content:   m.Content,
		Embedding: embedding,
		CreatedAt: m.CreatedAt,
	}, nil
}
