package service

import (
	"context"
	"sort"
	"strings"

	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/domain"
	"github.com/vishal-grover-dev/iq-sub000/internal/util"

	"go.uber.org/zap"
)

// Penalty points applied to candidate scores per similarity band.
const (
	penaltyHigh   = 60.0
	penaltyMedium = 30.0

	neighborPageSize = 200
	neighborTopK     = 5
)

// Gate rejection reasons, reported back into the generation loop.
const (
	rejectContentKey   = "content_key_already_asked"
	rejectExactText    = "exact_text_match"
	rejectTextOverlap  = "text_jaccard_overlap"
	rejectIntraAttempt = "intra_attempt_embedding"
	rejectNeighbor     = "neighbor_embedding"
)

// GateResult is the tagged outcome of the generation-path similarity gates.
type GateResult struct {
	Accepted bool
	Reason   string
}

func gateAccept() GateResult { return GateResult{Accepted: true} }
func gateReject(reason string) GateResult { return GateResult{Reason: reason} }

// SimilarityGate computes similarity penalties for bank candidates and
// accept/reject decisions for generated drafts.
type SimilarityGate struct {
	questionRepo domain.QuestionRepository
	cfg          config.SelectionConfig
	logger       *zap.Logger
}

// NewSimilarityGate creates a new SimilarityGate.
func NewSimilarityGate(questionRepo domain.QuestionRepository, cfg config.SelectionConfig, logger *zap.Logger) *SimilarityGate {
	return &SimilarityGate{
		questionRepo: questionRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

// IntraAttemptSimilarity returns the maximum cosine similarity between the
// embedding and every already-asked question's embedding.
func (g *SimilarityGate) IntraAttemptSimilarity(embedding []float32, asked []domain.AssignmentWithQuestion) float64 {
	maxSim := 0.0
	if len(embedding) == 0 {
		return maxSim
	}
	for i := range asked {
		askedEmbedding := asked[i].Question.Embedding
		if len(askedEmbedding) == 0 {
			continue
		}
		sim, err := util.CosineSimilarity(embedding, askedEmbedding)
		if err != nil {
			continue
		}
		if sim > maxSim {
			maxSim = sim
		}
	}
	return maxSim
}

// NeighborSimilarity returns the top similarity score against the global
// bank, scoped to the same topic/subtopic page and excluding excludeID.
func (g *SimilarityGate) NeighborSimilarity(ctx context.Context, topic, subtopic string, embedding []float32, excludeID string) (float64, error) {
	if len(embedding) == 0 {
		return 0, nil
	}

	page, err := g.questionRepo.ListEmbeddingsByTopic(ctx, topic, subtopic, neighborPageSize)
	if err != nil {
		return 0, err
	}

	scores := make([]float64, 0, len(page))
	for _, q := range page {
		if q.ID == excludeID || len(q.Embedding) == 0 {
			continue
		}
		sim, err := util.CosineSimilarity(embedding, q.Embedding)
		if err != nil {
			continue
		}
		scores = append(scores, sim)
	}
	if len(scores) == 0 {
		return 0, nil
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	if len(scores) > neighborTopK {
		scores = scores[:neighborTopK]
	}
	return scores[0], nil
}

// PenaltyFor converts a similarity score into penalty points. The high band
// is checked first so a score over both thresholds always takes the high
// penalty, never the medium one.
func (g *SimilarityGate) PenaltyFor(similarity float64) float64 {
	switch {
	case similarity >= g.cfg.HighSimilarity:
		return penaltyHigh
	case similarity >= g.cfg.MediumSimilarity:
		return penaltyMedium
	default:
		return 0
	}
}

// CandidatePenalty computes the combined similarity penalty for a bank
// candidate: the worse of the intra-attempt and neighbor bands.
func (g *SimilarityGate) CandidatePenalty(ctx context.Context, candidate *domain.Question, asked []domain.AssignmentWithQuestion) (float64, error) {
	intraPenalty := g.PenaltyFor(g.IntraAttemptSimilarity(candidate.Embedding, asked))

	neighborSim, err := g.NeighborSimilarity(ctx, candidate.Topic, candidate.Subtopic, candidate.Embedding, candidate.ID)
	if err != nil {
		return 0, err
	}
	neighborPenalty := g.PenaltyFor(neighborSim)

	if neighborPenalty > intraPenalty {
		return neighborPenalty, nil
	}
	return intraPenalty, nil
}

// CheckDraft runs the generation-path gates in sequence: content-key,
// exact/overlapping text, neighbor embedding, intra-attempt embedding.
// The first failing gate rejects the draft.
func (g *SimilarityGate) CheckDraft(
	ctx context.Context,
	draft *domain.QuestionDraft,
	topic, subtopic string,
	embedding []float32,
	asked []domain.AssignmentWithQuestion,
) (GateResult, error) {
	contentKey := domain.ContentKey(draft.Question)
	for i := range asked {
		if asked[i].Question.ContentKey == contentKey {
			return gateReject(rejectContentKey), nil
		}
	}

	if result := g.checkDraftText(draft.Question, topic, subtopic, asked); !result.Accepted {
		return result, nil
	}

	neighborSim, err := g.NeighborSimilarity(ctx, topic, subtopic, embedding, "")
	if err != nil {
		return GateResult{}, err
	}
	if neighborSim >= g.cfg.HighSimilarity {
		return gateReject(rejectNeighbor), nil
	}

	if g.IntraAttemptSimilarity(embedding, asked) >= g.cfg.HighSimilarity {
		return gateReject(rejectIntraAttempt), nil
	}

	return gateAccept(), nil
}

// checkDraftText applies the exact-match and Jaccard text gates against the
// attempt's asked questions.
func (g *SimilarityGate) checkDraftText(draftText, topic, subtopic string, asked []domain.AssignmentWithQuestion) GateResult {
	normalizedDraft := strings.ToLower(strings.TrimSpace(draftText))
	draftWords := wordSet(draftText)

	for i := range asked {
		q := &asked[i].Question
		if strings.ToLower(strings.TrimSpace(q.Question)) == normalizedDraft {
			return gateReject(rejectExactText)
		}
		// The Jaccard gate only fires within the same topic/subtopic pair;
		// across topics a vocabulary overlap is not evidence of duplication.
		if q.Topic == topic && q.Subtopic == subtopic {
			if jaccard(draftWords, wordSet(q.Question)) > g.cfg.TextJaccard {
				return gateReject(rejectTextOverlap)
			}
		}
	}
	return gateAccept()
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(domain.NormalizeQuestionText(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
