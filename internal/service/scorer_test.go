package service

import (
	"math/rand"
	"testing"

	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestScoreExactModeIgnoresPreferenceBonuses(t *testing.T) {
	scorer := NewCandidateScorer(rand.New(rand.NewSource(1)), 8, zap.NewNop())
	criteria := testCriteria()

	c := &domain.ScoredCandidate{Question: testQuestion("q1", "React", "Hooks")}
	assert.Equal(t, scoreBase, scorer.Score(c, criteria, domain.BankQueryExact))

	c.SeenRecently = true
	assert.Equal(t, scoreBase-freshnessPenalty, scorer.Score(c, criteria, domain.BankQueryExact))

	c.SimilarityPenalty = penaltyHigh
	assert.Equal(t, scoreBase-freshnessPenalty-penaltyHigh, scorer.Score(c, criteria, domain.BankQueryExact))
}

func TestScoreSoftModeBonuses(t *testing.T) {
	scorer := NewCandidateScorer(rand.New(rand.NewSource(1)), 8, zap.NewNop())
	criteria := testCriteria() // React/Hooks, Understand, coding off

	match := &domain.ScoredCandidate{Question: testQuestion("q1", "React", "Hooks")}
	// Topic + subtopic + bloom + coding flag all line up.
	want := scoreBase + bonusTopicMatch + bonusSubtopicMatch + bonusBloomMatch + bonusCodingMatch
	assert.Equal(t, want, scorer.Score(match, criteria, domain.BankQuerySoft))

	offTopic := &domain.ScoredCandidate{Question: testQuestion("q2", "CSS", "Grid")}
	offTopic.Question.BloomLevel = domain.BloomCreate
	assert.Equal(t, scoreBase+bonusCodingMatch, scorer.Score(offTopic, criteria, domain.BankQuerySoft))
}

func TestScoreSubtopicBonusNeedsCriteriaSubtopic(t *testing.T) {
	scorer := NewCandidateScorer(rand.New(rand.NewSource(1)), 8, zap.NewNop())
	criteria := testCriteria()
	criteria.Subtopic = ""

	c := &domain.ScoredCandidate{Question: testQuestion("q1", "React", "")}
	want := scoreBase + bonusTopicMatch + bonusBloomMatch + bonusCodingMatch
	assert.Equal(t, want, scorer.Score(c, criteria, domain.BankQuerySoft))
}

func TestOrderHeadComesFromTopK(t *testing.T) {
	scorer := NewCandidateScorer(rand.New(rand.NewSource(42)), 3, zap.NewNop())
	criteria := testCriteria()

	candidates := make([]*domain.ScoredCandidate, 0, 6)
	for i := 0; i < 6; i++ {
		c := &domain.ScoredCandidate{Question: testQuestion("q"+string(rune('a'+i)), "React", "Hooks")}
		// Increasing similarity penalty gives strictly decreasing scores.
		c.SimilarityPenalty = float64(i) * 10
		candidates = append(candidates, c)
	}

	ordered := scorer.Order(candidates, criteria, domain.BankQueryExact)

	assert.Len(t, ordered, 6)
	top3 := map[string]bool{"qa": true, "qb": true, "qc": true}
	assert.True(t, top3[ordered[0].Question.ID], "head must come from the top K")

	// The tail beyond K keeps rank order.
	assert.Equal(t, "qd", ordered[3].Question.ID)
	assert.Equal(t, "qe", ordered[4].Question.ID)
	assert.Equal(t, "qf", ordered[5].Question.ID)

	// Every candidate appears exactly once.
	seen := map[string]int{}
	for _, c := range ordered {
		seen[c.Question.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "candidate %s duplicated", id)
	}
}

func TestOrderDeterministicForSameSeed(t *testing.T) {
	criteria := testCriteria()
	build := func() []*domain.ScoredCandidate {
		out := make([]*domain.ScoredCandidate, 0, 10)
		for i := 0; i < 10; i++ {
			c := &domain.ScoredCandidate{Question: testQuestion("q"+string(rune('a'+i)), "React", "Hooks")}
			c.SimilarityPenalty = float64(i%3) * 30
			out = append(out, c)
		}
		return out
	}

	first := NewCandidateScorer(rand.New(rand.NewSource(7)), 8, zap.NewNop()).Order(build(), criteria, domain.BankQueryExact)
	second := NewCandidateScorer(rand.New(rand.NewSource(7)), 8, zap.NewNop()).Order(build(), criteria, domain.BankQueryExact)

	assert.Equal(t, first[0].Question.ID, second[0].Question.ID)
}

func TestOrderEmpty(t *testing.T) {
	scorer := NewCandidateScorer(rand.New(rand.NewSource(1)), 8, zap.NewNop())
	assert.Nil(t, scorer.Order(nil, testCriteria(), domain.BankQueryExact))
}

func TestCandidateWeightFloor(t *testing.T) {
	assert.Equal(t, 1.0, candidateWeight(&domain.ScoredCandidate{Score: -40}))
	assert.Equal(t, 1.0, candidateWeight(&domain.ScoredCandidate{Score: 0.5}))
	assert.Equal(t, 85.0, candidateWeight(&domain.ScoredCandidate{Score: 85}))
}
