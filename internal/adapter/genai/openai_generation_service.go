package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vishal-grover-dev/iq-sub000/internal/domain"

	"github.com/tmc/langchaingo/llms"
	openaiLLM "github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAIGenerationService implements domain.GenerationService with a
// langchaingo OpenAI chat model. Both operations ask for a single JSON
// object and parse it strictly.
type OpenAIGenerationService struct {
	llm    llms.Model
	logger *zap.Logger
}

// NewOpenAIGenerationService creates a new OpenAIGenerationService.
func NewOpenAIGenerationService(apiKey, model string, logger *zap.Logger) (*OpenAIGenerationService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key cannot be empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	llm, err := openaiLLM.New(
		openaiLLM.WithToken(apiKey),
		openaiLLM.WithModel(model),
		openaiLLM.WithResponseFormat(openaiLLM.ResponseFormatJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI LLM client: %w", err)
	}

	return &OpenAIGenerationService{llm: llm, logger: logger}, nil
}

// newWithModel is the test seam: it lets package tests inject a fake model.
func newWithModel(model llms.Model, logger *zap.Logger) *OpenAIGenerationService {
	return &OpenAIGenerationService{llm: model, logger: logger}
}

// SelectCriteria implements domain.GenerationService
func (s *OpenAIGenerationService) SelectCriteria(ctx context.Context, dist *domain.Distributions) (*domain.SelectionCriteria, error) {
	prompt := buildCriteriaPrompt(dist)

	response, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt,
		llms.WithTemperature(0.4),
	)
	if err != nil {
		return nil, domain.NewGenerationError(fmt.Errorf("criteria selection call failed: %w", err))
	}

	criteria, err := parseCriteriaResponse(response)
	if err != nil {
		s.logger.Warn("Failed to parse criteria response",
			zap.Error(err),
			zap.String("response", response))
		return nil, err
	}
	return criteria, nil
}

// GenerateQuestion implements domain.GenerationService
func (s *OpenAIGenerationService) GenerateQuestion(ctx context.Context, req domain.GenerationRequest) (*domain.QuestionDraft, error) {
	prompt := buildGenerationPrompt(req)

	response, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt,
		llms.WithTemperature(0.8),
	)
	if err != nil {
		return nil, domain.NewGenerationError(fmt.Errorf("question generation call failed: %w", err))
	}

	draft, err := parseDraftResponse(response)
	if err != nil {
		s.logger.Warn("Failed to parse generated question",
			zap.Error(err),
			zap.String("topic", req.Topic),
			zap.String("response", response))
		return nil, err
	}
	return draft, nil
}

func buildCriteriaPrompt(dist *domain.Distributions) string {
	var b strings.Builder
	b.WriteString("You select the target profile for the next question of a fixed-length adaptive assessment.\n")
	fmt.Fprintf(&b, "The assessment has %d questions total; %d have been asked, %d remain.\n",
		dist.TotalQuestions, dist.AskedCount, dist.RemainingSlots())

	b.WriteString("\nCoverage so far:\n")
	fmt.Fprintf(&b, "- By difficulty: %s\n", formatCounts(difficultyCounts(dist)))
	fmt.Fprintf(&b, "- By topic: %s\n", formatCounts(dist.ByTopic))
	fmt.Fprintf(&b, "- By subtopic: %s\n", formatCounts(dist.BySubtopic))
	fmt.Fprintf(&b, "- By cognitive level: %s\n", formatCounts(bloomCounts(dist)))
	fmt.Fprintf(&b, "- Coding questions: %d of %d asked\n", dist.CodingCount, dist.AskedCount)

	b.WriteString(`
Targets: at least 35% of all questions must include code; no topic may exceed 40% of the total; difficulty and cognitive levels should spread across the attempt, harder and higher-order toward the end.

Respond with a single JSON object:
{"difficulty": "Easy|Medium|Hard", "coding_mode": true|false, "topic": "...", "subtopic": "...", "bloom_level": "Remember|Understand|Apply|Analyze|Evaluate|Create"}

Every field is required. "subtopic" may be an empty string when no subtopic preference exists.`)
	return b.String()
}

func buildGenerationPrompt(req domain.GenerationRequest) string {
	var b strings.Builder
	b.WriteString("You are an expert author of multiple-choice assessment questions.\n")
	fmt.Fprintf(&b, "Write one %s question on topic %q", strings.ToLower(string(req.Difficulty)), req.Topic)
	if req.Subtopic != "" {
		fmt.Fprintf(&b, " (subtopic %q)", req.Subtopic)
	}
	fmt.Fprintf(&b, " at the %s cognitive level.\n", req.BloomLevel)

	if req.CodingMode {
		b.WriteString("The question MUST include a code snippet of 3 to 50 lines in the code_snippet field. Do not repeat the snippet verbatim inside the question text.\n")
	} else {
		b.WriteString("The question must not require a code snippet; leave code_snippet empty.\n")
	}

	if len(req.Context) > 0 {
		b.WriteString("\nBase the question on this reference material:\n")
		for i, chunk := range req.Context {
			fmt.Fprintf(&b, "[%d] %s\n%s\n", i+1, chunk.Title, chunk.Content)
		}
	}

	if len(req.NegativeExamples) > 0 {
		b.WriteString("\nDo NOT write anything similar to these previously rejected or already-asked questions:\n")
		for _, neg := range req.NegativeExamples {
			fmt.Fprintf(&b, "- %s\n", neg)
		}
	}
	if len(req.AvoidTopics) > 0 {
		fmt.Fprintf(&b, "\nAvoid these topics entirely: %s\n", strings.Join(req.AvoidTopics, ", "))
	}
	if len(req.AvoidSubtopics) > 0 {
		fmt.Fprintf(&b, "Avoid these subtopics: %s\n", strings.Join(req.AvoidSubtopics, ", "))
	}

	b.WriteString(`
Respond with a single JSON object:
{"question": "...", "options": ["...", "...", "...", "..."], "correct_index": 0, "code_snippet": "", "subtopic": "..."}

Exactly 4 options, exactly one correct. correct_index is 0-based.`)
	return b.String()
}

func parseCriteriaResponse(response string) (*domain.SelectionCriteria, error) {
	var payload struct {
		Difficulty string `json:"difficulty"`
		CodingMode *bool  `json:"coding_mode"`
		Topic      string `json:"topic"`
		Subtopic   string `json:"subtopic"`
		BloomLevel string `json:"bloom_level"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil {
		return nil, domain.NewGenerationError(fmt.Errorf("criteria response is not valid JSON: %w", err))
	}

	if payload.CodingMode == nil {
		return nil, domain.NewInvalidCriteriaError("criteria response is missing coding_mode")
	}
	difficulty, ok := domain.ParseDifficulty(payload.Difficulty)
	if !ok {
		return nil, domain.NewInvalidCriteriaError(fmt.Sprintf("criteria difficulty %q is invalid", payload.Difficulty))
	}
	bloom, ok := domain.ParseBloomLevel(payload.BloomLevel)
	if !ok {
		return nil, domain.NewInvalidCriteriaError(fmt.Sprintf("criteria bloom level %q is invalid", payload.BloomLevel))
	}

	criteria := &domain.SelectionCriteria{
		Difficulty: difficulty,
		CodingMode: *payload.CodingMode,
		Topic:      strings.TrimSpace(payload.Topic),
		Subtopic:   strings.TrimSpace(payload.Subtopic),
		BloomLevel: bloom,
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	return criteria, nil
}

func parseDraftResponse(response string) (*domain.QuestionDraft, error) {
	var draft domain.QuestionDraft
	if err := json.Unmarshal([]byte(extractJSON(response)), &draft); err != nil {
		return nil, domain.NewGenerationError(fmt.Errorf("generated question is not valid JSON: %w", err))
	}
	if strings.TrimSpace(draft.Question) == "" {
		return nil, domain.NewGenerationError(fmt.Errorf("generated question text is empty"))
	}
	return &draft, nil
}

// extractJSON tolerates models that wrap the object in a markdown fence.
func extractJSON(response string) string {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}

func formatCounts[K ~string](counts map[K]int) string {
	if len(counts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(counts))
	for k, v := range counts {
		parts = append(parts, fmt.Sprintf("%s=%d", string(k), v))
	}
	return strings.Join(parts, ", ")
}

func difficultyCounts(dist *domain.Distributions) map[string]int {
	out := make(map[string]int, len(dist.ByDifficulty))
	for k, v := range dist.ByDifficulty {
		out[string(k)] = v
	}
	return out
}

func bloomCounts(dist *domain.Distributions) map[string]int {
	out := make(map[string]int, len(dist.ByBloomLevel))
	for k, v := range dist.ByBloomLevel {
		out[string(k)] = v
	}
	return out
}

var _ domain.GenerationService = (*OpenAIGenerationService)(nil)
