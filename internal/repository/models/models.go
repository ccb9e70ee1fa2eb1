package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StringSlice stores a string array as a JSON document in a jsonb column.
type StringSlice []string

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	jsonData, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	var bytesToParse []byte
	switch v := value.(type) {
	case []byte:
		bytesToParse = v
	case string:
		bytesToParse = []byte(v)
	default:
		return errors.New("StringSlice Scan: unsupported type " + fmt.Sprintf("%T", value))
	}

	if len(bytesToParse) == 0 || string(bytesToParse) == "null" {
		*s = StringSlice{}
		return nil
	}
	return json.Unmarshal(bytesToParse, s)
}

// Attempt is the row model for the attempts table.
type Attempt struct {
	ID                string       `db:"id"`
	UserID            string       `db:"user_id"`
	Status            string       `db:"status"`
	TotalQuestions    int          `db:"total_questions"`
	QuestionsAnswered int          `db:"questions_answered"`
	CorrectCount      int          `db:"correct_count"`
	PauseCount        int          `db:"pause_count"`
	TimeSpentSeconds  int          `db:"time_spent_seconds"`
	CreatedAt         time.Time    `db:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at"`
	CompletedAt       sql.NullTime `db:"completed_at"`
}

// AttemptQuestion is the row model for the attempt_questions table.
type AttemptQuestion struct {
	ID                string        `db:"id"`
	AttemptID         string        `db:"attempt_id"`
	QuestionID        string        `db:"question_id"`
	QuestionOrder     int           `db:"question_order"`
	UserAnswerIndex   sql.NullInt64 `db:"user_answer_index"`
	IsCorrect         sql.NullBool  `db:"is_correct"`
	AnsweredAt        sql.NullTime  `db:"answered_at"`
	GeneratedOnDemand bool          `db:"generated_on_demand"`
	CreatedAt         time.Time     `db:"created_at"`
}

// Question is the row model for the questions table. The embedding is kept
// as its raw TEXT payload; decoding happens in the adapter.
type Question struct {
	ID           string         `db:"id"`
	Topic        string         `db:"topic"`
	Subtopic     sql.NullString `db:"subtopic"`
	Difficulty   string         `db:"difficulty"`
	BloomLevel   string         `db:"bloom_level"`
	Question     string         `db:"question"`
	Options      StringSlice    `db:"options"`
	CorrectIndex int            `db:"correct_index"`
	CodeSnippet  sql.NullString `db:"code_snippet"`
	Embedding    sql.NullString `db:"embedding"`
	ContentKey   string         `db:"content_key"`
	CreatedBy    string         `db:"created_by"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// AssignmentWithQuestion is the joined row of an assignment and its question.
type AssignmentWithQuestion struct {
	AttemptQuestion
	QTopic        string         `db:"q_topic"`
	QSubtopic     sql.NullString `db:"q_subtopic"`
	QDifficulty   string         `db:"q_difficulty"`
	QBloomLevel   string         `db:"q_bloom_level"`
	QQuestion     string         `db:"q_question"`
	QOptions      StringSlice    `db:"q_options"`
	QCorrectIndex int            `db:"q_correct_index"`
	QCodeSnippet  sql.NullString `db:"q_code_snippet"`
	QEmbedding    sql.NullString `db:"q_embedding"`
	QContentKey   string         `db:"q_content_key"`
}

// ContentChunk is the row model for the content_chunks retrieval table.
type ContentChunk struct {
	ID        string         `db:"id"`
	Topic     string         `db:"topic"`
	Subtopic  sql.NullString `db:"subtopic"`
	Title     string         `db:"title"`
	URL       string         `db:"url"`
	Content   string         `db:"content"`
	Embedding sql.NullString `db:"embedding"`
	CreatedAt time.Time      `db:"created_at"`
}
