package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	engineerrors "github.com/hrygo/adaptiq/internal/errors"
	"github.com/hrygo/adaptiq/plugin/ai"
)

// Verifier re-derives an answer for a candidate through an independent solve
// path. Verification is optional and never discards an otherwise-valid item.
type Verifier interface {
	Solve(ctx context.Context, questionText string, options map[string]string) (label string, err error)
}

type llmVerifier struct {
	llm ai.LLMService
}

// NewLLMVerifier creates a Verifier over an LLM service. The generation and
// verification calls stay independent even when both run on the same model
// because the verifier never sees the claimed answer.
func NewLLMVerifier(llm ai.LLMService) Verifier {
	return &llmVerifier{llm: llm}
}

const verifierSystemPrompt = `You solve multiple-choice questions.
Respond with a single JSON object: {"answer": "<label>"} where <label> is the letter of the correct option.`

func (v *llmVerifier) Solve(ctx context.Context, questionText string, options map[string]string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", questionText)
	labels := make([]string, 0, len(options))
	for label := range options {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&b, "%s) %s\n", label, options[label])
	}

	raw, err := v.llm.ChatJSON(ctx, []ai.Message{
		ai.SystemPrompt(verifierSystemPrompt),
		ai.UserMessage(b.String()),
	})
	if err != nil {
		return "", engineerrors.VerificationInconclusive(err)
	}

	var verdict struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &verdict); err != nil {
		return "", engineerrors.VerificationInconclusive(err)
	}

	label := strings.ToUpper(strings.TrimSpace(verdict.Answer))
	if _, ok := options[label]; !ok {
		return "", engineerrors.VerificationInconclusive(fmt.Errorf("verdict %q is not an option label", label))
	}
	return label, nil
}
