package service

import (
	"github.com/vishal-grover-dev/iq-sub000/internal/domain"
)

// subtopicKey namespaces a subtopic under its topic so identically named
// subtopics of different topics do not collide.
func subtopicKey(topic, subtopic string) string {
	return topic + "/" + subtopic
}

// AccumulateDistributions folds an attempt's asked questions into coverage
// counts per dimension. It is a pure function over the assignment join.
func AccumulateDistributions(attempt *domain.Attempt, asked []domain.AssignmentWithQuestion) *domain.Distributions {
	dist := &domain.Distributions{
		TotalQuestions: attempt.TotalQuestions,
		AskedCount:     len(asked),
		ByDifficulty:   make(map[domain.Difficulty]int),
		ByTopic:        make(map[string]int),
		BySubtopic:     make(map[string]int),
		ByBloomLevel:   make(map[domain.BloomLevel]int),
	}

	for i := range asked {
		q := &asked[i].Question
		dist.ByDifficulty[q.Difficulty]++
		dist.ByTopic[q.Topic]++
		if q.Subtopic != "" {
			dist.BySubtopic[subtopicKey(q.Topic, q.Subtopic)]++
		}
		dist.ByBloomLevel[q.BloomLevel]++
		if q.HasCode() {
			dist.CodingCount++
		}
	}
	return dist
}
