package domain

import "context"

// GenerationRequest carries everything the generative service needs to
// produce one question draft steered away from rejected angles.
type GenerationRequest struct {
	Topic            string
	Subtopic         string
	Difficulty       Difficulty
	BloomLevel       BloomLevel
	CodingMode       bool
	Context          []*ContentChunk
	NegativeExamples []string // question texts rejected earlier, most recent last
	AvoidTopics      []string
	AvoidSubtopics   []string
}

// QuestionDraft is the raw candidate returned by the generative service
// before validation, embedding and persistence.
type QuestionDraft struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	CodeSnippet  string   `json:"code_snippet,omitempty"`
	Subtopic     string   `json:"subtopic,omitempty"`
}

// GenerationService defines the interface to the generative/selection
// external service.
type GenerationService interface {
	// SelectCriteria turns the attempt's distributions into one concrete
	// target tuple for the next question.
	SelectCriteria(ctx context.Context, dist *Distributions) (*SelectionCriteria, error)

	// GenerateQuestion produces one multiple-choice question draft.
	GenerateQuestion(ctx context.Context, req GenerationRequest) (*QuestionDraft, error)
}
