package service

import (
	"math/rand"
	"sort"

	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"go.uber.org/zap"
)

const (
	scoreBase          = 100.0
	freshnessPenalty   = 25.0
	bonusTopicMatch    = 15.0
	bonusSubtopicMatch = 10.0
	bonusBloomMatch    = 8.0
	bonusCodingMatch   = 5.0
)

// CandidateScorer turns annotated candidates into an ordered try-sequence:
// a weighted random pick among the top K, then the remaining top K in rank
// order, then the scored tail.
type CandidateScorer struct {
	rng    *rand.Rand
	topK   int
	logger *zap.Logger
}

// NewCandidateScorer creates a new CandidateScorer. The random source is
// injected so tests can assert deterministic outcomes.
func NewCandidateScorer(rng *rand.Rand, topK int, logger *zap.Logger) *CandidateScorer {
	if topK <= 0 {
		topK = 8
	}
	return &CandidateScorer{rng: rng, topK: topK, logger: logger}
}

// Score computes the scalar score for one candidate. Preference bonuses
// apply only in soft mode; in exact mode the filter already guarantees the
// match, so they would add a constant.
func (s *CandidateScorer) Score(c *domain.ScoredCandidate, criteria *domain.SelectionCriteria, mode domain.BankQueryMode) float64 {
	score := scoreBase
	if c.SeenRecently {
		score -= freshnessPenalty
	}
	score -= c.SimilarityPenalty

	if mode == domain.BankQuerySoft {
		q := c.Question
		if q.Topic == criteria.Topic {
			score += bonusTopicMatch
		}
		if criteria.Subtopic != "" && q.Subtopic == criteria.Subtopic {
			score += bonusSubtopicMatch
		}
		if q.BloomLevel == criteria.BloomLevel {
			score += bonusBloomMatch
		}
		if q.HasCode() == criteria.CodingMode {
			score += bonusCodingMatch
		}
	}
	return score
}

// Order scores, sorts and arranges the candidates into the sequence the
// assignment executor should try. A pure top-1 pick would converge every
// attempt with the same criteria onto the same best item, so the head of
// the sequence is drawn by weighted random sampling over the top K with
// weight max(1, score).
func (s *CandidateScorer) Order(candidates []*domain.ScoredCandidate, criteria *domain.SelectionCriteria, mode domain.BankQueryMode) []*domain.ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}

	for _, c := range candidates {
		c.Score = s.Score(c, criteria, mode)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	k := s.topK
	if k > len(candidates) {
		k = len(candidates)
	}
	chosen := s.weightedPick(candidates[:k])

	ordered := make([]*domain.ScoredCandidate, 0, len(candidates))
	ordered = append(ordered, candidates[chosen])
	for i := 0; i < k; i++ {
		if i != chosen {
			ordered = append(ordered, candidates[i])
		}
	}
	ordered = append(ordered, candidates[k:]...)

	s.logger.Debug("Candidates ordered",
		zap.Int("total", len(candidates)),
		zap.Int("top_k", k),
		zap.Float64("chosen_score", ordered[0].Score))
	return ordered
}

// weightedPick draws an index from the pool with weight max(1, score).
func (s *CandidateScorer) weightedPick(pool []*domain.ScoredCandidate) int {
	totalWeight := 0.0
	for _, c := range pool {
		totalWeight += candidateWeight(c)
	}
	if totalWeight <= 0 {
		return s.rng.Intn(len(pool))
	}

	target := s.rng.Float64() * totalWeight
	current := 0.0
	for i, c := range pool {
		current += candidateWeight(c)
		if current >= target {
			return i
		}
	}
	// Floating-point drift can leave target unreached; fall back to last.
	return len(pool) - 1
}

func candidateWeight(c *domain.ScoredCandidate) float64 {
	if c.Score < 1 {
		return 1
	}
	return c.Score
}
