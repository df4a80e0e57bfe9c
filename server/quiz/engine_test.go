package quiz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	engineerrors "github.com/hrygo/adaptiq/internal/errors"
	"github.com/hrygo/adaptiq/plugin/ai/vector"
	"github.com/hrygo/adaptiq/store"
)

func newTestEngine(s *fakeStore, source CandidateSource, embedder *vector.MockEmbeddingService, opts Options) *Engine {
	idx := vector.NewIndex(vector.NewMockStore(), embedder, "test-model", vector.DefaultThresholds())
	pipeline := NewPipeline(source, idx, nil, nil, NewRetryPolicy(3, 0), s, NewSeededRand(7))
	return NewEngine(s, idx, pipeline, opts)
}

func uniqueCandidates(n int) ([]*Candidate, []string) {
	candidates := make([]*Candidate, 0, n)
	texts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("generated question %d", i)
		candidates = append(candidates, validCandidate(text))
		texts = append(texts, text)
	}
	return candidates, texts
}

func TestAssembleAdaptiveQuizFull(t *testing.T) {
	s := newFakeStore()
	candidates, texts := uniqueCandidates(12)
	source := &stubSource{queue: candidates}
	engine := newTestEngine(s, source, orthogonalEmbedder(texts...), Options{})

	session, err := engine.AssembleAdaptiveQuiz(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Equal(t, "user-1", session.UserID)
	require.Equal(t, 10, session.RequestedCount)
	require.Len(t, session.Questions, 10)
	require.False(t, session.Partial)

	// Empty history: theta 0.0 selects the default band, 3/4/3 for N=10.
	require.Equal(t, 3, session.Distribution[store.Easy])
	require.Equal(t, 4, session.Distribution[store.Medium])
	require.Equal(t, 3, session.Distribution[store.Hard])

	// No two items share question text.
	seen := map[string]struct{}{}
	for _, q := range session.Questions {
		_, dup := seen[q.QuestionText]
		require.False(t, dup, "duplicate question text %q", q.QuestionText)
		seen[q.QuestionText] = struct{}{}
	}

	// Persisted atomically.
	stored, err := s.GetQuizSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestAssembleAdaptiveQuizFallbackTopUp(t *testing.T) {
	s := newFakeStore()
	for i := 0; i < 5; i++ {
		s.pool = append(s.pool, &store.Question{
			ID:           int64(100 + i),
			QuestionText: fmt.Sprintf("pool question %d", i),
			Difficulty:   store.Medium,
		})
	}

	// The source never produces anything valid.
	source := &stubSource{err: engineerrors.TransientGeneration(fmt.Errorf("upstream down"))}
	engine := newTestEngine(s, source, vector.NewMockEmbeddingService(8), Options{})

	session, err := engine.AssembleAdaptiveQuiz(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Len(t, session.Questions, 5)
	require.False(t, session.Partial)
	for _, q := range session.Questions {
		require.Contains(t, q.QuestionText, "pool question")
	}
}

func TestAssembleAdaptiveQuizFallbackSkipsRepeatedPoolTexts(t *testing.T) {
	s := newFakeStore()
	// Two pool rows carry the same text; the pool only constrains uid.
	s.pool = append(s.pool,
		&store.Question{ID: 100, UID: "uid-a", QuestionText: "same text", Difficulty: store.Medium},
		&store.Question{ID: 101, UID: "uid-b", QuestionText: "same text", Difficulty: store.Medium},
	)

	source := &stubSource{err: engineerrors.TransientGeneration(fmt.Errorf("upstream down"))}
	engine := newTestEngine(s, source, vector.NewMockEmbeddingService(8), Options{})

	session, err := engine.AssembleAdaptiveQuiz(context.Background(), "user-1", 3)
	require.NoError(t, err)
	require.True(t, session.Partial)

	counts := map[string]int{}
	for _, q := range session.Questions {
		counts[q.QuestionText]++
	}
	require.Equal(t, 1, counts["same text"])
}

func TestAssembleAdaptiveQuizPartialWhenPoolDry(t *testing.T) {
	s := newFakeStore()
	source := &stubSource{err: engineerrors.TransientGeneration(fmt.Errorf("upstream down"))}
	engine := newTestEngine(s, source, vector.NewMockEmbeddingService(8), Options{})

	session, err := engine.AssembleAdaptiveQuiz(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Empty(t, session.Questions)
	require.True(t, session.Partial)
}

func TestAssembleAdaptiveQuizParallelBuckets(t *testing.T) {
	s := newFakeStore()
	candidates, texts := uniqueCandidates(12)
	source := &stubSource{queue: candidates}
	engine := newTestEngine(s, source, orthogonalEmbedder(texts...), Options{ParallelBuckets: true})

	session, err := engine.AssembleAdaptiveQuiz(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, session.Questions, 10)
	require.False(t, session.Partial)
}

func TestAssembleAdaptiveQuizUsesAbilityHistory(t *testing.T) {
	s := newFakeStore()
	// 8 of 10 correct at 5s: theta 0.78 selects the 15/40 band.
	for i := 0; i < 10; i++ {
		s.responses = append(s.responses, &store.ResponseRecord{
			UserID:     "user-1",
			SessionID:  "old-session",
			IsCorrect:  i < 8,
			TimeTaken:  5,
			Difficulty: store.Medium,
		})
	}
	candidates, texts := uniqueCandidates(18)
	source := &stubSource{queue: candidates}
	engine := newTestEngine(s, source, orthogonalEmbedder(texts...), Options{})

	session, err := engine.AssembleAdaptiveQuiz(context.Background(), "user-1", 15)
	require.NoError(t, err)
	require.Equal(t, 2, session.Distribution[store.Easy])
	require.Equal(t, 7, session.Distribution[store.Medium])
	require.Equal(t, 6, session.Distribution[store.Hard])
}

func TestAssembleAdaptiveQuizInvalidInput(t *testing.T) {
	engine := newTestEngine(newFakeStore(), &stubSource{}, vector.NewMockEmbeddingService(8), Options{})

	_, err := engine.AssembleAdaptiveQuiz(context.Background(), "", 5)
	require.True(t, engineerrors.IsCode(err, engineerrors.ErrCodeInvalidArgument))

	_, err = engine.AssembleAdaptiveQuiz(context.Background(), "user-1", -1)
	require.True(t, engineerrors.IsCode(err, engineerrors.ErrCodeInvalidArgument))
}

func TestAssembleAdaptiveQuizSessionWriteFailure(t *testing.T) {
	s := newFakeStore()
	s.failSessions = true
	candidates, texts := uniqueCandidates(6)
	source := &stubSource{queue: candidates}
	engine := newTestEngine(s, source, orthogonalEmbedder(texts...), Options{})

	_, err := engine.AssembleAdaptiveQuiz(context.Background(), "user-1", 5)
	require.Error(t, err)
	require.True(t, engineerrors.IsCode(err, engineerrors.ErrCodeUpstreamUnavailable))
}

func TestAssembleAdaptiveQuizZeroCount(t *testing.T) {
	engine := newTestEngine(newFakeStore(), &stubSource{}, vector.NewMockEmbeddingService(8), Options{})

	session, err := engine.AssembleAdaptiveQuiz(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Empty(t, session.Questions)
	require.False(t, session.Partial)
}
