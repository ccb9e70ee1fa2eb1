package domain

import "math"

// MinCodingShare is the floor share of coding-flagged questions per attempt.
const MinCodingShare = 0.35

// Distributions is the per-attempt aggregate of already-asked questions,
// recomputed from the assignment join on every selection request.
type Distributions struct {
	TotalQuestions int
	AskedCount     int
	ByDifficulty   map[Difficulty]int
	ByTopic        map[string]int
	BySubtopic     map[string]int // keyed "topic/subtopic"; absent subtopic skipped
	ByBloomLevel   map[BloomLevel]int
	CodingCount    int
}

// RemainingSlots is the number of questions still to be assigned.
func (d *Distributions) RemainingSlots() int {
	if d.TotalQuestions <= d.AskedCount {
		return 0
	}
	return d.TotalQuestions - d.AskedCount
}

// CodingShortfall reports whether every remaining slot must be coding-flagged
// for the attempt to still reach MinCodingShare. Spending one more slot on a
// non-coding question would put the floor out of reach.
func (d *Distributions) CodingShortfall() bool {
	if d.RemainingSlots() == 0 {
		return false
	}
	target := int(math.Ceil(MinCodingShare * float64(d.TotalQuestions)))
	return d.CodingCount+d.RemainingSlots() <= target
}

// SelectionCriteria is the ephemeral target for the next question, produced
// by the external criteria selector. All five fields are load-bearing.
type SelectionCriteria struct {
	Difficulty Difficulty
	CodingMode bool
	Topic      string
	Subtopic   string
	BloomLevel BloomLevel
}

// Validate enforces the criteria output contract: the pipeline cannot
// proceed without a full, well-formed tuple.
func (c *SelectionCriteria) Validate() error {
	if _, ok := ParseDifficulty(string(c.Difficulty)); !ok {
		return NewInvalidCriteriaError("criteria difficulty must be Easy, Medium or Hard")
	}
	if c.Topic == "" {
		return NewInvalidCriteriaError("criteria topic is required")
	}
	if _, ok := ParseBloomLevel(string(c.BloomLevel)); !ok {
		return NewInvalidCriteriaError("criteria bloom level is invalid")
	}
	return nil
}

// BankQueryMode selects between the two bank-query disciplines.
type BankQueryMode int

const (
	// BankQueryExact requires topic, subtopic, bloom level and coding flag
	// to match the criteria exactly.
	BankQueryExact BankQueryMode = iota
	// BankQuerySoft hard-filters only difficulty and coding flag; topic and
	// bloom preferences are scored instead.
	BankQuerySoft
)

// BankFilter is the store-level filter for candidate retrieval.
type BankFilter struct {
	Mode          BankQueryMode
	Difficulty    Difficulty
	CodingMode    bool
	Topic         string
	Subtopic      string
	BloomLevel    BloomLevel
	ExcludeIDs    []string
	ExcludeTopics []string // soft mode only: topics over the coverage ceiling
	Limit         int
}

// ScoredCandidate annotates a bank question with scoring inputs and the
// final scalar score. Ephemeral; discarded after assignment.
type ScoredCandidate struct {
	Question          *Question
	SeenRecently      bool
	SimilarityPenalty float64
	Score             float64
}

// Neighbor is a nearest-neighbor hit from the global bank.
type Neighbor struct {
	Question *Question
	Score    float64
}
