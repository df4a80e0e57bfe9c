package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/adaptiq/internal/profile"
	"github.com/hrygo/adaptiq/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "adaptiq_test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	require.NoError(t, driver.Migrate(context.Background()))
	return driver
}

func testQuestion(uid, creator, text string, difficulty store.Difficulty) *store.Question {
	return &store.Question{
		UID:          uid,
		CreatorID:    creator,
		QuestionText: text,
		Options: map[string]string{
			"A": "first", "B": "second", "C": "third", "D": "fourth", "E": "fifth",
		},
		CorrectAnswers: []string{"B"},
		Difficulty:     difficulty,
		Discrimination: 1.2,
		DifficultyB:    0.4,
		Guessing:       0.2,
		CreatedTs:      time.Now().Unix(),
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	created, err := driver.CreateQuestion(ctx, testQuestion("q-1", "user-1", "What is 2+2?", store.Easy))
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	list, err := driver.ListQuestions(ctx, &store.FindQuestion{CreatorID: &created.CreatorID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "What is 2+2?", list[0].QuestionText)
	require.Equal(t, map[string]string{
		"A": "first", "B": "second", "C": "third", "D": "fourth", "E": "fifth",
	}, list[0].Options)
	require.Equal(t, []string{"B"}, list[0].CorrectAnswers)
	require.Equal(t, store.Easy, list[0].Difficulty)
	require.InDelta(t, 1.2, list[0].Discrimination, 1e-9)

	texts, err := driver.ListQuestionTexts(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"What is 2+2?"}, texts)
}

func TestSampleQuestionsExcludes(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	_, err := driver.CreateQuestion(ctx, testQuestion("q-1", "user-1", "alpha", store.Easy))
	require.NoError(t, err)
	_, err = driver.CreateQuestion(ctx, testQuestion("q-2", "user-1", "beta", store.Medium))
	require.NoError(t, err)

	sampled, err := driver.SampleQuestions(ctx, 5, []string{"alpha"})
	require.NoError(t, err)
	require.Len(t, sampled, 1)
	require.Equal(t, "beta", sampled[0].QuestionText)

	none, err := driver.SampleQuestions(ctx, 0, nil)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestQuizSessionRoundTrip(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	question, err := driver.CreateQuestion(ctx, testQuestion("q-1", "user-1", "alpha", store.Hard))
	require.NoError(t, err)

	session := &store.QuizSession{
		ID:             "sess-1",
		UserID:         "user-1",
		RequestedCount: 1,
		Distribution:   map[store.Difficulty]int{store.Easy: 0, store.Medium: 0, store.Hard: 1},
		Questions:      []*store.Question{question},
		Partial:        false,
		CreatedTs:      time.Now().Unix(),
	}
	_, err = driver.CreateQuizSession(ctx, session)
	require.NoError(t, err)

	got, err := driver.GetQuizSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, session.Distribution, got.Distribution)
	require.Len(t, got.Questions, 1)
	require.Equal(t, "alpha", got.Questions[0].QuestionText)

	missing, err := driver.GetQuizSession(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestResponseRecordsAndSubmission(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	has, err := driver.HasSubmission(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	require.False(t, has)

	_, err = driver.CreateResponseRecord(ctx, &store.ResponseRecord{
		UserID:         "user-1",
		SessionID:      "sess-1",
		QuestionText:   "alpha",
		SelectedAnswer: "B",
		IsCorrect:      true,
		TimeTaken:      5,
		Difficulty:     store.Medium,
		SubmittedTs:    time.Now().Unix(),
	})
	require.NoError(t, err)

	has, err = driver.HasSubmission(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	require.True(t, has)

	userID := "user-1"
	records, err := driver.ListResponseRecords(ctx, &store.FindResponseRecord{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].IsCorrect)
	require.Equal(t, 5, records[0].TimeTaken)
}

func TestPerformanceRecordUpsert(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	missing, err := driver.GetPerformanceRecord(ctx, "user-1")
	require.NoError(t, err)
	require.Nil(t, missing)

	record := store.NewPerformanceRecord("user-1")
	record.Stats[store.Easy].Correct = 3
	record.Stats[store.Easy].Total = 4
	record.Stats[store.Easy].Accuracy = 75.0
	record.History = append(record.History, &store.SessionSummary{
		SessionID: "sess-1",
		Accuracy:  0.75,
		TotalTime: 40,
		Responses: 4,
	})
	record.UpdatedTs = time.Now().Unix()

	_, err = driver.UpsertPerformanceRecord(ctx, record)
	require.NoError(t, err)

	got, err := driver.GetPerformanceRecord(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 3, got.Stats[store.Easy].Correct)
	require.Len(t, got.History, 1)
	require.Equal(t, "sess-1", got.History[0].SessionID)

	// Second upsert overwrites.
	record.Stats[store.Easy].Correct = 5
	_, err = driver.UpsertPerformanceRecord(ctx, record)
	require.NoError(t, err)
	got, err = driver.GetPerformanceRecord(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 5, got.Stats[store.Easy].Correct)
}

func TestVectorSearchRanksByCosine(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	entries := []struct {
		id     int64
		user   string
		text   string
		vector []float32
	}{
		{1, "user-1", "alpha", []float32{1, 0, 0}},
		{2, "user-1", "beta", []float32{0.9, 0.1, 0}},
		{3, "user-2", "gamma", []float32{0, 1, 0}},
	}
	for _, e := range entries {
		_, err := driver.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
			QuestionID:   e.id,
			UserID:       e.user,
			QuestionText: e.text,
			Embedding:    e.vector,
			Model:        "test-model",
			CreatedTs:    time.Now().Unix(),
		})
		require.NoError(t, err)
	}

	results, err := driver.VectorSearch(ctx, &store.VectorSearchOptions{
		Vector: []float32{1, 0, 0},
		Model:  "test-model",
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "alpha", results[0].Embedding.QuestionText)
	require.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	require.Equal(t, "beta", results[1].Embedding.QuestionText)
	require.Greater(t, results[0].Score, results[1].Score)

	// Scoped to one user's entries only.
	scoped, err := driver.VectorSearch(ctx, &store.VectorSearchOptions{
		UserID: "user-2",
		Vector: []float32{1, 0, 0},
		Model:  "test-model",
	})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "gamma", scoped[0].Embedding.QuestionText)
}

func TestFindQuestionsWithoutEmbedding(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	q1, err := driver.CreateQuestion(ctx, testQuestion("q-1", "user-1", "alpha", store.Easy))
	require.NoError(t, err)
	q2, err := driver.CreateQuestion(ctx, testQuestion("q-2", "user-1", "beta", store.Easy))
	require.NoError(t, err)

	_, err = driver.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
		QuestionID:   q1.ID,
		UserID:       "user-1",
		QuestionText: q1.QuestionText,
		Embedding:    []float32{1, 0},
		Model:        "test-model",
		CreatedTs:    time.Now().Unix(),
	})
	require.NoError(t, err)

	pending, err := driver.FindQuestionsWithoutEmbedding(ctx, "test-model", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, q2.ID, pending[0].ID)
}
