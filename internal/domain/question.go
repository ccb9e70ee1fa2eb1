package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// Difficulty is the three-valued difficulty of a bank question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty normalizes a difficulty string case-insensitively.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, true
	case "medium":
		return DifficultyMedium, true
	case "hard":
		return DifficultyHard, true
	default:
		return "", false
	}
}

// BloomLevel is the cognitive level of a question per Bloom's taxonomy.
type BloomLevel string

const (
	BloomRemember   BloomLevel = "Remember"
	BloomUnderstand BloomLevel = "Understand"
	BloomApply      BloomLevel = "Apply"
	BloomAnalyze    BloomLevel = "Analyze"
	BloomEvaluate   BloomLevel = "Evaluate"
	BloomCreate     BloomLevel = "Create"
)

// BloomLevels lists all valid levels in taxonomy order.
var BloomLevels = []BloomLevel{
	BloomRemember, BloomUnderstand, BloomApply,
	BloomAnalyze, BloomEvaluate, BloomCreate,
}

func ParseBloomLevel(s string) (BloomLevel, bool) {
	for _, lvl := range BloomLevels {
		if strings.EqualFold(strings.TrimSpace(s), string(lvl)) {
			return lvl, true
		}
	}
	return "", false
}

// Question represents a reusable bank item.
type Question struct {
	ID           string
	Topic        string
	Subtopic     string // empty means no subtopic
	Difficulty   Difficulty
	BloomLevel   BloomLevel
	Question     string
	Options      []string // exactly 4
	CorrectIndex int
	CodeSnippet  string // empty when the question has no code
	Embedding    []float32
	ContentKey   string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasCode reports whether the question carries a code snippet.
func (q *Question) HasCode() bool {
	return strings.TrimSpace(q.CodeSnippet) != ""
}

// Validate checks the structural invariants of a bank item.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return NewInvalidInputError("question text is required")
	}
	if q.Topic == "" {
		return NewInvalidInputError("topic is required")
	}
	if len(q.Options) != 4 {
		return NewInvalidInputError("question must have exactly 4 options")
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return NewInvalidInputError("correct index is out of range")
	}
	if _, ok := ParseDifficulty(string(q.Difficulty)); !ok {
		return NewInvalidInputError("invalid difficulty")
	}
	if _, ok := ParseBloomLevel(string(q.BloomLevel)); !ok {
		return NewInvalidInputError("invalid bloom level")
	}
	return nil
}

// ContentKey computes the global dedup key for a question text: the SHA-256
// of the lowercased text with punctuation removed and whitespace collapsed.
func ContentKey(questionText string) string {
	normalized := NormalizeQuestionText(questionText)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeQuestionText lowercases, strips punctuation and collapses
// whitespace. Both the content key and the exact-text gate use it so the
// two agree on what "the same question" means.
func NormalizeQuestionText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// ContentChunk is a retrieval document used as generation context.
type ContentChunk struct {
	ID        string
	Topic     string
	Subtopic  string
	Title     string
	URL       string
	Content   string
	Embedding []float32
	CreatedAt time.Time
}
