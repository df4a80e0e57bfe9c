package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	engineerrors "github.com/hrygo/adaptiq/internal/errors"
	"github.com/hrygo/adaptiq/plugin/ai"
	"github.com/hrygo/adaptiq/store"
)

// Candidate is one parsed, not-yet-validated item from the generative source.
type Candidate struct {
	QuestionText   string            `json:"question"`
	Options        map[string]string `json:"options"`
	CorrectAnswers []string          `json:"-"`

	// RawAnswer is the claimed correct-answer token as returned upstream;
	// it may be a single label, a comma-separated list, or garbage.
	RawAnswer string `json:"correct_answer"`
}

// GenerateRequest describes one generation attempt.
type GenerateRequest struct {
	Difficulty store.Difficulty
	// Theta is the requesting user's ability estimate, included as a hint.
	Theta float64
	// Seed and Neighbors provide contrasting reference context.
	Seed      CorpusEntry
	Neighbors []CorpusEntry
}

// CandidateSource produces candidate items. Responses are untrusted:
// malformed, partial, or erroring output is expected and classified as
// transient, not exceptional.
type CandidateSource interface {
	Generate(ctx context.Context, req *GenerateRequest) ([]*Candidate, error)
}

// llmCandidateSource generates candidates through a chat-completion model.
type llmCandidateSource struct {
	llm ai.LLMService
}

// NewLLMCandidateSource creates a CandidateSource over an LLM service.
func NewLLMCandidateSource(llm ai.LLMService) CandidateSource {
	return &llmCandidateSource{llm: llm}
}

const generatorSystemPrompt = `You are a question author for an adaptive assessment engine.
Always respond with a single JSON object of the form:
{"question": "<question text>", "options": {"A": "...", "B": "...", "C": "...", "D": "...", "E": "..."}, "correct_answer": "<A/B/C/D/E>"}
Exactly five options labeled A-E, all distinct, and the correct answer must be one of the five labels.`

func (s *llmCandidateSource) Generate(ctx context.Context, req *GenerateRequest) ([]*Candidate, error) {
	raw, err := s.llm.ChatJSON(ctx, []ai.Message{
		ai.SystemPrompt(generatorSystemPrompt),
		ai.UserMessage(buildPrompt(req)),
	})
	if err != nil {
		return nil, engineerrors.TransientGeneration(err)
	}

	candidate, err := parseCandidate(raw)
	if err != nil {
		return nil, engineerrors.TransientGeneration(err)
	}
	return []*Candidate{candidate}, nil
}

func buildPrompt(req *GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a completely new and unique %s level multiple-choice question.\n", req.Difficulty)
	fmt.Fprintf(&b, "The student's current ability estimate is %.2f on a logit scale; pitch the question accordingly.\n", req.Theta)

	if req.Seed.QuestionText != "" {
		fmt.Fprintf(&b, "\nTopic seed (do not copy): %s\n", req.Seed.QuestionText)
	}
	if len(req.Neighbors) > 0 {
		b.WriteString("\nThe question must be different from all of these:\n")
		for _, n := range req.Neighbors {
			fmt.Fprintf(&b, "- %s (correct answer: %s)\n", n.QuestionText, n.CorrectAnswer)
		}
	}

	b.WriteString("\nRespond with the JSON object only.")
	return b.String()
}

// parseCandidate extracts a candidate from a raw model response. Tolerates a
// markdown code fence around the JSON, nothing else.
func parseCandidate(raw string) (*Candidate, error) {
	cleaned := stripCodeFence(raw)

	var candidate Candidate
	if err := json.Unmarshal([]byte(cleaned), &candidate); err != nil {
		return nil, fmt.Errorf("malformed candidate JSON: %w", err)
	}

	candidate.QuestionText = strings.TrimSpace(candidate.QuestionText)
	candidate.CorrectAnswers = parseAnswerLabels(candidate.RawAnswer)
	return &candidate, nil
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// parseAnswerLabels splits a claimed answer token into labels. Accepts "B",
// "B,D", and "B and D" style tokens; normalization to upper case only.
func parseAnswerLabels(raw string) []string {
	cleaned := strings.NewReplacer(" and ", ",", "/", ",", ";", ",").Replace(strings.TrimSpace(raw))
	parts := strings.Split(cleaned, ",")

	labels := []string{}
	seen := map[string]struct{}{}
	for _, part := range parts {
		label := strings.ToUpper(strings.TrimSpace(part))
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}
