package quiz

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	engineerrors "github.com/hrygo/adaptiq/internal/errors"
	"github.com/hrygo/adaptiq/internal/observability"
	"github.com/hrygo/adaptiq/plugin/ai/vector"
	"github.com/hrygo/adaptiq/store"
)

// abilityHistoryLimit bounds how many recent responses feed the estimator.
const abilityHistoryLimit = 50

// Store is the persistence surface the engine needs. *store.Store satisfies
// it; tests substitute an in-memory fake.
type Store interface {
	QuestionPool
	ListResponseRecords(ctx context.Context, find *store.FindResponseRecord) ([]*store.ResponseRecord, error)
	ListQuestionTexts(ctx context.Context, userID string) ([]string, error)
	SampleQuestions(ctx context.Context, n int, excludeTexts []string) ([]*store.Question, error)
	CreateQuizSession(ctx context.Context, create *store.QuizSession) (*store.QuizSession, error)
	GetQuizSession(ctx context.Context, id string) (*store.QuizSession, error)
	HasSubmission(ctx context.Context, userID, sessionID string) (bool, error)
	CreateResponseRecord(ctx context.Context, create *store.ResponseRecord) (*store.ResponseRecord, error)
	GetPerformanceRecord(ctx context.Context, userID string) (*store.PerformanceRecord, error)
	UpsertPerformanceRecord(ctx context.Context, record *store.PerformanceRecord) (*store.PerformanceRecord, error)
}

// Options tune the engine.
type Options struct {
	// WeightedTime enables difficulty-weighted average response time in the
	// ability estimator.
	WeightedTime bool
	// ParallelBuckets fills the three difficulty buckets concurrently.
	ParallelBuckets bool
}

// Engine assembles adaptive quizzes.
type Engine struct {
	store    Store
	index    *vector.Index
	pipeline *Pipeline
	opts     Options
}

// NewEngine creates an Engine around a pipeline.
func NewEngine(s Store, index *vector.Index, pipeline *Pipeline, opts Options) *Engine {
	return &Engine{
		store:    s,
		index:    index,
		pipeline: pipeline,
		opts:     opts,
	}
}

// NewSeededRand returns a rand source for parameter assignment. Pass a fixed
// seed in tests for reproducible pipelines.
func NewSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// AssembleAdaptiveQuiz is the primary operation: estimate ability, schedule
// the difficulty distribution, fill the buckets, top up from the fallback
// pool, and persist the session atomically. The caller always receives a
// best-effort, explicitly labeled session unless a backing store is
// unreachable.
func (e *Engine) AssembleAdaptiveQuiz(ctx context.Context, userID string, requestedCount int) (*store.QuizSession, error) {
	if userID == "" {
		return nil, engineerrors.InvalidArgument("user id is required")
	}
	if requestedCount < 0 {
		return nil, engineerrors.InvalidArgument("requested count must be >= 0")
	}

	log := observability.FromContext(ctx)

	limit := abilityHistoryLimit
	responses, err := e.store.ListResponseRecords(ctx, &store.FindResponseRecord{UserID: &userID, Limit: &limit})
	if err != nil {
		return nil, engineerrors.UpstreamUnavailable("response history unreachable", err)
	}
	theta := EstimateAbility(responses, e.opts.WeightedTime)
	distribution := ScheduleDistribution(theta, requestedCount)
	log.Info("scheduled quiz",
		slog.Float64("theta", theta),
		slog.Int("requested", requestedCount),
		slog.Int("easy", distribution[store.Easy]),
		slog.Int("medium", distribution[store.Medium]),
		slog.Int("hard", distribution[store.Hard]),
	)

	texts, err := e.store.ListQuestionTexts(ctx, userID)
	if err != nil {
		return nil, engineerrors.UpstreamUnavailable("question history unreachable", err)
	}
	userTexts := make(map[string]struct{}, len(texts))
	for _, text := range texts {
		userTexts[text] = struct{}{}
	}

	buckets, err := e.fillBuckets(ctx, userID, theta, distribution, userTexts)
	if err != nil {
		return nil, err
	}

	questions := make([]*store.Question, 0, requestedCount)
	for _, d := range store.Difficulties {
		questions = append(questions, buckets[d]...)
	}

	questions, partial, err := e.topUp(ctx, questions, requestedCount, userTexts)
	if err != nil {
		return nil, err
	}

	session := &store.QuizSession{
		ID:             shortuuid.New(),
		UserID:         userID,
		RequestedCount: requestedCount,
		Distribution:   distribution,
		Questions:      questions,
		Partial:        partial,
		CreatedTs:      time.Now().Unix(),
	}
	if _, err := e.store.CreateQuizSession(ctx, session); err != nil {
		return nil, engineerrors.UpstreamUnavailable("session persistence failed", err)
	}

	log.Info("assembled quiz",
		slog.String(observability.LogFieldSessionID, session.ID),
		slog.Int("questions", len(session.Questions)),
		slog.Bool("partial", session.Partial),
		slog.Int64(observability.LogFieldDuration, log.DurationMs()),
	)
	return session, nil
}

func (e *Engine) fillBuckets(ctx context.Context, userID string, theta float64, distribution map[store.Difficulty]int, userTexts map[string]struct{}) (map[store.Difficulty][]*store.Question, error) {
	buckets := make(map[store.Difficulty][]*store.Question, len(store.Difficulties))

	if !e.opts.ParallelBuckets {
		for _, d := range store.Difficulties {
			accepted, err := e.pipeline.FillBucket(ctx, &BucketRequest{
				UserID:     userID,
				Difficulty: d,
				Target:     distribution[d],
				Theta:      theta,
				UserTexts:  userTexts,
			})
			if err != nil {
				return nil, err
			}
			buckets[d] = accepted
		}
		return buckets, nil
	}

	// Each bucket gets a private batch scope inside FillBucket; the global
	// index scope is serialized by the index itself.
	group, groupCtx := errgroup.WithContext(ctx)
	results := make([][]*store.Question, len(store.Difficulties))
	for i, d := range store.Difficulties {
		i, d := i, d
		group.Go(func() error {
			accepted, err := e.pipeline.FillBucket(groupCtx, &BucketRequest{
				UserID:     userID,
				Difficulty: d,
				Target:     distribution[d],
				Theta:      theta,
				UserTexts:  userTexts,
			})
			if err != nil {
				return err
			}
			results[i] = accepted
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	for i, d := range store.Difficulties {
		buckets[d] = results[i]
	}
	return buckets, nil
}

// topUp draws fallback items from the persisted pool, any user and any past
// session, excluding everything the session already contains or the user has
// already seen. Marks the session partial when the pool runs dry too.
func (e *Engine) topUp(ctx context.Context, questions []*store.Question, requestedCount int, userTexts map[string]struct{}) ([]*store.Question, bool, error) {
	shortfall := requestedCount - len(questions)
	if shortfall <= 0 {
		return questions, false, nil
	}

	seen := make(map[string]struct{}, len(questions)+len(userTexts))
	exclude := make([]string, 0, len(questions)+len(userTexts))
	for _, q := range questions {
		seen[q.QuestionText] = struct{}{}
		exclude = append(exclude, q.QuestionText)
	}
	for text := range userTexts {
		seen[text] = struct{}{}
		exclude = append(exclude, text)
	}

	fallback, err := e.store.SampleQuestions(ctx, shortfall, exclude)
	if err != nil {
		return nil, false, engineerrors.UpstreamUnavailable("fallback pool unreachable", err)
	}
	// The pool has no unique constraint on question text, so the sample itself
	// can contain repeats; the session must not.
	drawn := 0
	for _, q := range fallback {
		if _, dup := seen[q.QuestionText]; dup {
			continue
		}
		seen[q.QuestionText] = struct{}{}
		questions = append(questions, q)
		drawn++
	}

	partial := len(questions) < requestedCount
	if drawn > 0 || partial {
		observability.FromContext(ctx).Info("fallback top-up",
			slog.Int("shortfall", shortfall),
			slog.Int("drawn", drawn),
			slog.Bool("partial", partial),
		)
	}
	return questions, partial, nil
}
