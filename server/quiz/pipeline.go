package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	engineerrors "github.com/hrygo/adaptiq/internal/errors"
	"github.com/hrygo/adaptiq/internal/observability"
	"github.com/hrygo/adaptiq/plugin/ai/vector"
	"github.com/hrygo/adaptiq/store"
)

const contextNeighbors = 3

// GuessingParameter is the fixed pseudo-guessing parameter c assigned to
// every five-option item.
const GuessingParameter = 0.2

// Pipeline runs the generate-validate-dedup loop for one difficulty bucket.
// One Pipeline serves all buckets of a session; the batch scope stays private
// per FillBucket call so the parallel mode needs no extra coordination beyond
// the locked rng and the index's own global lock.
type Pipeline struct {
	source   CandidateSource
	index    *vector.Index
	verifier Verifier // nil disables verification
	corpus   *Corpus  // nil or empty disables context seeding
	policy   RetryPolicy
	pool     QuestionPool
	metrics  *Metrics // nil disables collection

	mu  sync.Mutex
	rng *rand.Rand
}

// QuestionPool persists accepted questions.
type QuestionPool interface {
	CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error)
}

// NewPipeline creates a Pipeline. rng drives parameter assignment and corpus
// sampling; pass a seeded source for reproducible runs.
func NewPipeline(source CandidateSource, index *vector.Index, verifier Verifier, corpus *Corpus, policy RetryPolicy, pool QuestionPool, rng *rand.Rand) *Pipeline {
	return &Pipeline{
		source:   source,
		index:    index,
		verifier: verifier,
		corpus:   corpus,
		policy:   policy,
		pool:     pool,
		rng:      rng,
	}
}

// SetMetrics attaches a stats collector. Call before the first FillBucket.
func (p *Pipeline) SetMetrics(m *Metrics) {
	p.metrics = m
}

// BucketRequest describes one bucket fill.
type BucketRequest struct {
	UserID     string
	Difficulty store.Difficulty
	Target     int
	Theta      float64
	// UserTexts is the user's historical question text set, for exact dedup.
	UserTexts map[string]struct{}
}

// FillBucket accepts up to req.Target items. Each slot gets the policy's
// attempt budget; per-candidate failures are consumed locally and never
// surface. The returned error is non-nil only for request-fatal conditions:
// context cancellation or an unreachable store/index.
func (p *Pipeline) FillBucket(ctx context.Context, req *BucketRequest) ([]*store.Question, error) {
	log := observability.FromContext(ctx)
	batch := vector.NewBatch()
	accepted := make([]*store.Question, 0, req.Target)

	for slot := 0; slot < req.Target; slot++ {
		question, err := p.fillSlot(ctx, req, batch)
		if err != nil {
			if ctx.Err() != nil {
				return accepted, ctx.Err()
			}
			if engineerrors.IsCode(err, engineerrors.ErrCodeUpstreamUnavailable) {
				return accepted, err
			}
			// Slot budget spent; the bucket finalizes under-filled.
			continue
		}
		accepted = append(accepted, question)
	}

	if len(accepted) < req.Target {
		exhausted := engineerrors.BucketExhausted(string(req.Difficulty), len(accepted), req.Target)
		log.Warn("bucket finalized under-filled",
			slog.String(observability.LogFieldDifficulty, string(req.Difficulty)),
			slog.String(observability.LogFieldErrorCode, string(engineerrors.ErrCodeBucketExhausted)),
			slog.String("detail", exhausted.Message),
		)
	}
	return accepted, nil
}

// fillSlot retries one item slot within the attempt budget.
func (p *Pipeline) fillSlot(ctx context.Context, req *BucketRequest, batch *vector.Batch) (*store.Question, error) {
	log := observability.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if err := p.policy.Wait(ctx); err != nil {
			return nil, err
		}

		question, err := p.attempt(ctx, req, batch)
		if err == nil {
			p.metrics.recordAccept(req.Difficulty)
			return question, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if engineerrors.IsCode(err, engineerrors.ErrCodeUpstreamUnavailable) {
			return nil, err
		}

		lastErr = err
		code := engineerrors.CodeOf(err, engineerrors.ErrCodeTransientGeneration)
		p.metrics.recordRejection(req.Difficulty, code)
		log.Debug("candidate rejected",
			slog.String(observability.LogFieldDifficulty, string(req.Difficulty)),
			slog.Int(observability.LogFieldAttempt, attempt),
			slog.String(observability.LogFieldErrorCode, string(code)),
			slog.String("reason", err.Error()),
		)
	}
	return nil, fmt.Errorf("slot budget exhausted: %w", lastErr)
}

// attempt runs one full REQUEST -> PARSE -> VALIDATE -> DEDUP -> VERIFY ->
// ACCEPT cycle.
func (p *Pipeline) attempt(ctx context.Context, req *BucketRequest, batch *vector.Batch) (*store.Question, error) {
	genReq := &GenerateRequest{
		Difficulty: req.Difficulty,
		Theta:      req.Theta,
	}
	if p.corpus != nil {
		p.mu.Lock()
		if seed, ok := p.corpus.Sample(p.rng); ok {
			genReq.Seed = seed
			genReq.Neighbors = p.corpus.Neighbors(seed, contextNeighbors, p.rng)
		}
		p.mu.Unlock()
	}

	callCtx, cancel := context.WithTimeout(ctx, p.policy.Timeout)
	defer cancel()
	started := time.Now()
	candidates, err := p.source.Generate(callCtx, genReq)
	p.metrics.recordRequest(req.Difficulty, time.Since(started).Milliseconds())
	if err != nil {
		return nil, err
	}

	var lastErr error = engineerrors.TransientGeneration(fmt.Errorf("no candidates in response"))
	for _, candidate := range candidates {
		question, err := p.processCandidate(ctx, req, batch, candidate)
		if err == nil {
			return question, nil
		}
		if engineerrors.IsCode(err, engineerrors.ErrCodeUpstreamUnavailable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (p *Pipeline) processCandidate(ctx context.Context, req *BucketRequest, batch *vector.Batch, candidate *Candidate) (*store.Question, error) {
	if err := validateCandidate(candidate); err != nil {
		return nil, err
	}

	// Exact dedup is free; do it before paying for an embedding.
	if batch.ContainsExact(candidate.QuestionText) {
		return nil, engineerrors.Duplicate(string(vector.ScopeBatch), "identical question text")
	}
	if _, seen := req.UserTexts[candidate.QuestionText]; seen {
		return nil, engineerrors.Duplicate(string(vector.ScopeUser), "identical question text")
	}

	vec, err := p.index.Embed(ctx, candidate.QuestionText)
	if err != nil {
		// Embedding is upstream of the index; treat a failure like any other
		// flaky generation dependency and retry.
		return nil, engineerrors.TransientGeneration(err)
	}
	match, err := p.index.Check(ctx, req.UserID, batch, candidate.QuestionText, vec)
	if err != nil {
		return nil, engineerrors.UpstreamUnavailable("similarity index unreachable", err)
	}
	if match != nil {
		return nil, engineerrors.Duplicate(string(match.Scope),
			fmt.Sprintf("similarity %.2f to %q", match.Score, match.Text))
	}

	question := p.buildQuestion(req, candidate)
	p.verify(ctx, question)

	created, err := p.pool.CreateQuestion(ctx, question)
	if err != nil {
		return nil, engineerrors.UpstreamUnavailable("question pool write failed", err)
	}
	if err := p.index.Insert(ctx, created, vec); err != nil {
		return nil, engineerrors.UpstreamUnavailable("similarity index insert failed", err)
	}
	batch.Add(created.QuestionText, vec)
	return created, nil
}

// buildQuestion assigns the synthetic item-response parameters: a uniform in
// (0.5, 2.0), b relative to theta per bucket, c fixed.
func (p *Pipeline) buildQuestion(req *BucketRequest, candidate *Candidate) *store.Question {
	return &store.Question{
		UID:            uuid.New().String(),
		CreatorID:      req.UserID,
		QuestionText:   candidate.QuestionText,
		Options:        candidate.Options,
		CorrectAnswers: candidate.CorrectAnswers,
		Difficulty:     req.Difficulty,
		Discrimination: p.uniform(0.5, 2.0),
		DifficultyB:    p.difficultyParameter(req.Theta, req.Difficulty),
		Guessing:       GuessingParameter,
		CreatedTs:      time.Now().Unix(),
	}
}

func (p *Pipeline) difficultyParameter(theta float64, difficulty store.Difficulty) float64 {
	switch difficulty {
	case store.Easy:
		return p.uniform(theta-1.0, theta-0.2)
	case store.Hard:
		return p.uniform(theta+0.2, theta+1.0)
	default:
		return p.uniform(theta-0.3, theta+0.3)
	}
}

func (p *Pipeline) uniform(lo, hi float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + p.rng.Float64()*(hi-lo)
}

// verify runs the optional independent solve path. Disagreement prefers the
// independent answer; an inconclusive verdict keeps the claimed answer
// unverified. Never rejects the item.
func (p *Pipeline) verify(ctx context.Context, question *store.Question) {
	if p.verifier == nil {
		return
	}

	label, err := p.verifier.Solve(ctx, question.QuestionText, question.Options)
	if err != nil {
		observability.FromContext(ctx).Debug("verification inconclusive",
			slog.String(observability.LogFieldErrorCode, string(engineerrors.ErrCodeVerificationInconclusive)),
			slog.String("reason", err.Error()),
		)
		question.IsVerified = false
		return
	}

	question.VerifiedAnswer = label
	question.IsVerified = true
	if len(question.CorrectAnswers) != 1 || question.CorrectAnswers[0] != label {
		question.CorrectAnswers = []string{label}
	}
}

// validateCandidate enforces the structural contract: non-placeholder text,
// exactly the five A-E options with pairwise distinct non-empty texts, and a
// claimed answer resolving to option labels.
func validateCandidate(candidate *Candidate) error {
	text := strings.TrimSpace(candidate.QuestionText)
	if text == "" {
		return engineerrors.ValidationFailed("empty question text")
	}
	if strings.Contains(text, "<Generated") || strings.Contains(text, "<question") {
		return engineerrors.ValidationFailed("question text echoes the template placeholder")
	}

	if len(candidate.Options) != len(store.OptionLabels) {
		return engineerrors.ValidationFailed(fmt.Sprintf("expected %d options, got %d", len(store.OptionLabels), len(candidate.Options)))
	}
	texts := map[string]struct{}{}
	for _, label := range store.OptionLabels {
		option, ok := candidate.Options[label]
		if !ok {
			return engineerrors.ValidationFailed(fmt.Sprintf("missing option label %s", label))
		}
		option = strings.TrimSpace(option)
		if option == "" {
			return engineerrors.ValidationFailed(fmt.Sprintf("empty option %s", label))
		}
		if strings.Contains(option, "<Option") {
			return engineerrors.ValidationFailed(fmt.Sprintf("option %s echoes the template placeholder", label))
		}
		if _, dup := texts[option]; dup {
			return engineerrors.ValidationFailed("duplicate option texts")
		}
		texts[option] = struct{}{}
	}

	if len(candidate.CorrectAnswers) == 0 {
		return engineerrors.ValidationFailed("no correct answer claimed")
	}
	for _, label := range candidate.CorrectAnswers {
		if _, ok := candidate.Options[label]; !ok {
			return engineerrors.ValidationFailed(fmt.Sprintf("claimed answer %q is not an option label", label))
		}
	}
	return nil
}
