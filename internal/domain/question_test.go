package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validQuestion() *Question {
	return &Question{
		ID:           "q1",
		Topic:        "React",
		Subtopic:     "Hooks",
		Difficulty:   DifficultyMedium,
		BloomLevel:   BloomUnderstand,
		Question:     "What does useEffect do?",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 1,
	}
}

func TestParseDifficulty(t *testing.T) {
	d, ok := ParseDifficulty("easy")
	assert.True(t, ok)
	assert.Equal(t, DifficultyEasy, d)

	d, ok = ParseDifficulty("  HARD ")
	assert.True(t, ok)
	assert.Equal(t, DifficultyHard, d)

	_, ok = ParseDifficulty("extreme")
	assert.False(t, ok)
}

func TestParseBloomLevel(t *testing.T) {
	b, ok := ParseBloomLevel("analyze")
	assert.True(t, ok)
	assert.Equal(t, BloomAnalyze, b)

	_, ok = ParseBloomLevel("memorize")
	assert.False(t, ok)
}

func TestQuestionValidate(t *testing.T) {
	assert.NoError(t, validQuestion().Validate())

	blank := validQuestion()
	blank.Question = "   "
	assert.Error(t, blank.Validate())

	noTopic := validQuestion()
	noTopic.Topic = ""
	assert.Error(t, noTopic.Validate())

	fiveOptions := validQuestion()
	fiveOptions.Options = append(fiveOptions.Options, "e")
	assert.Error(t, fiveOptions.Validate())

	badIndex := validQuestion()
	badIndex.CorrectIndex = -1
	assert.Error(t, badIndex.Validate())

	badDifficulty := validQuestion()
	badDifficulty.Difficulty = "Brutal"
	assert.Error(t, badDifficulty.Validate())
}

func TestHasCode(t *testing.T) {
	q := validQuestion()
	assert.False(t, q.HasCode())

	q.CodeSnippet = "   \n  "
	assert.False(t, q.HasCode())

	q.CodeSnippet = "console.log(1)"
	assert.True(t, q.HasCode())
}

func TestNormalizeQuestionText(t *testing.T) {
	assert.Equal(t, "what does useeffect do", NormalizeQuestionText("What does useEffect do?"))
	assert.Equal(t, "a b c", NormalizeQuestionText("  A,   b!  C.  "))
	assert.Equal(t, "", NormalizeQuestionText("?!..."))
}

func TestContentKeyInvariantUnderFormatting(t *testing.T) {
	base := ContentKey("What does useEffect do?")

	assert.Equal(t, base, ContentKey("what does useEffect   do"))
	assert.Equal(t, base, ContentKey("WHAT DOES USEEFFECT DO!!!"))
	assert.NotEqual(t, base, ContentKey("What does useMemo do?"))
	assert.Len(t, base, 64)
}
