package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/adaptiq/store"
)

const testModel = "test-model"

func newTestIndex(s Store) (*Index, *MockEmbeddingService) {
	embedder := NewMockEmbeddingService(4)
	return NewIndex(s, embedder, testModel, DefaultThresholds()), embedder
}

func TestCheckEmptyIndex(t *testing.T) {
	idx, _ := newTestIndex(NewMockStore())

	vec := []float32{1, 0, 0, 0}
	match, err := idx.Check(context.Background(), "user-1", NewBatch(), "novel question", vec)
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestCheckBatchScope(t *testing.T) {
	idx, _ := newTestIndex(NewMockStore())

	batch := NewBatch()
	batch.Add("existing question", []float32{1, 0, 0, 0})

	// Nearly parallel vector, similarity above the 0.85 batch threshold.
	match, err := idx.Check(context.Background(), "user-1", batch, "near copy", []float32{0.99, 0.05, 0, 0})
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, ScopeBatch, match.Scope)
	require.Equal(t, "existing question", match.Text)
	require.GreaterOrEqual(t, match.Score, 0.85)

	// Orthogonal vector is not a duplicate.
	match, err = idx.Check(context.Background(), "user-1", batch, "different", []float32{0, 1, 0, 0})
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestCheckUserScopeBeforeGlobal(t *testing.T) {
	mockStore := NewMockStore()
	idx, _ := newTestIndex(mockStore)
	ctx := context.Background()

	// Same vector stored for this user and for another user. The user scope
	// is checked first and wins.
	_, err := mockStore.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
		QuestionID: 1, UserID: "user-1", QuestionText: "mine",
		Embedding: []float32{1, 0, 0, 0}, Model: testModel,
	})
	require.NoError(t, err)
	_, err = mockStore.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
		QuestionID: 2, UserID: "user-2", QuestionText: "theirs",
		Embedding: []float32{1, 0, 0, 0}, Model: testModel,
	})
	require.NoError(t, err)

	match, err := idx.Check(ctx, "user-1", NewBatch(), "candidate", []float32{1, 0, 0, 0})
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, ScopeUser, match.Scope)
	require.Equal(t, "mine", match.Text)
}

func TestCheckGlobalScope(t *testing.T) {
	mockStore := NewMockStore()
	idx, _ := newTestIndex(mockStore)
	ctx := context.Background()

	// Entry belongs to a different user: invisible to the user scope, caught
	// by the global scope.
	_, err := mockStore.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
		QuestionID: 1, UserID: "user-2", QuestionText: "someone else asked this",
		Embedding: []float32{1, 0, 0, 0}, Model: testModel,
	})
	require.NoError(t, err)

	match, err := idx.Check(ctx, "user-1", NewBatch(), "candidate", []float32{0.98, 0.1, 0, 0})
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, ScopeGlobal, match.Scope)
}

func TestGlobalThresholdBoundary(t *testing.T) {
	mockStore := NewMockStore()
	idx, _ := newTestIndex(mockStore)
	ctx := context.Background()

	_, err := mockStore.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
		QuestionID: 1, UserID: "user-2", QuestionText: "stored",
		Embedding: []float32{1, 0, 0, 0}, Model: testModel,
	})
	require.NoError(t, err)

	// cos = 0.6 < 0.75 global threshold: not a duplicate.
	match, err := idx.Check(ctx, "user-1", NewBatch(), "far", []float32{0.6, 0.8, 0, 0})
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestInsertThenCheck(t *testing.T) {
	mockStore := NewMockStore()
	idx, _ := newTestIndex(mockStore)
	ctx := context.Background()

	question := &store.Question{
		ID:           7,
		CreatorID:    "user-1",
		QuestionText: "what is a goroutine",
		CreatedTs:    100,
	}
	vec := []float32{0, 0, 1, 0}
	require.NoError(t, idx.Insert(ctx, question, vec))
	require.Equal(t, 1, mockStore.Len())

	match, err := idx.Check(ctx, "user-1", NewBatch(), "what is a goroutine", vec)
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, "what is a goroutine", match.Text)
}

func TestQueryReturnsNearestK(t *testing.T) {
	mockStore := NewMockStore()
	idx, embedder := newTestIndex(mockStore)
	ctx := context.Background()

	embedder.SetVector("probe", []float32{1, 0, 0, 0})
	vectors := map[string][]float32{
		"close":   {0.9, 0.1, 0, 0},
		"closer":  {1, 0, 0, 0},
		"distant": {0, 0, 1, 0},
	}
	id := int64(0)
	for text, vec := range vectors {
		id++
		_, err := mockStore.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
			QuestionID: id, UserID: "user-1", QuestionText: text,
			Embedding: vec, Model: testModel,
		})
		require.NoError(t, err)
	}

	results, err := idx.Query(ctx, "probe", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "closer", results[0].Embedding.QuestionText)
	require.Equal(t, "close", results[1].Embedding.QuestionText)
}

func TestBatchExactAndNearest(t *testing.T) {
	batch := NewBatch()
	require.False(t, batch.ContainsExact("q"))
	require.Equal(t, 0, batch.Len())

	_, _, ok := batch.Nearest([]float32{1, 0})
	require.False(t, ok)

	batch.Add("q", []float32{1, 0})
	require.True(t, batch.ContainsExact("q"))
	require.Equal(t, 1, batch.Len())

	score, text, ok := batch.Nearest([]float32{1, 0})
	require.True(t, ok)
	require.Equal(t, "q", text)
	require.InDelta(t, 1.0, score, 1e-9)
}

func TestMockEmbedderDeterministic(t *testing.T) {
	embedder := NewMockEmbeddingService(8)
	a, err := embedder.Embed(context.Background(), "same text")
	require.NoError(t, err)
	b, err := embedder.Embed(context.Background(), "same text")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 8)
}
