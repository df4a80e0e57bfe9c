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

func seedSession(s *fakeStore, userID, sessionID string) *store.QuizSession {
	questions := []*store.Question{
		{
			QuestionText:   "q1",
			CorrectAnswers: []string{"A"},
			Difficulty:     store.Easy,
			Options:        map[string]string{"A": "1", "B": "2", "C": "3", "D": "4", "E": "5"},
		},
		{
			QuestionText:   "q2",
			CorrectAnswers: []string{"B"},
			Difficulty:     store.Medium,
			Options:        map[string]string{"A": "1", "B": "2", "C": "3", "D": "4", "E": "5"},
		},
		{
			QuestionText:   "q3",
			CorrectAnswers: []string{"C"},
			Difficulty:     store.Hard,
			Options:        map[string]string{"A": "1", "B": "2", "C": "3", "D": "4", "E": "5"},
		},
	}
	session := &store.QuizSession{
		ID:             sessionID,
		UserID:         userID,
		RequestedCount: len(questions),
		Questions:      questions,
	}
	s.sessions[sessionID] = session
	return session
}

func newSubmitEngine(s *fakeStore) *Engine {
	return newTestEngine(s, &stubSource{}, vector.NewMockEmbeddingService(8), Options{})
}

func TestSubmitFirstAttempt(t *testing.T) {
	s := newFakeStore()
	seedSession(s, "user-1", "sess-1")
	engine := newSubmitEngine(s)

	result, err := engine.SubmitQuizResponses(context.Background(), &SubmitRequest{
		UserID:    "user-1",
		SessionID: "sess-1",
		Responses: []ResponseInput{
			{QuestionText: "q1", SelectedAnswer: "A", TimeTaken: 10},
			{QuestionText: "q2", SelectedAnswer: "D", TimeTaken: 20},
			{QuestionText: "q3", SelectedAnswer: "c", TimeTaken: 30},
		},
	})
	require.NoError(t, err)
	require.True(t, result.FirstAttempt)
	require.Equal(t, 2, result.Correct)
	require.Equal(t, 3, result.Total)
	require.InDelta(t, 2.0/3.0, result.Accuracy, 1e-9)

	// Records persisted for all three questions.
	require.Len(t, s.responses, 3)

	record := s.performance["user-1"]
	require.NotNil(t, record)
	require.Equal(t, 1, record.Stats[store.Easy].Correct)
	require.Equal(t, 1, record.Stats[store.Medium].Incorrect)
	require.Equal(t, 1, record.Stats[store.Hard].Correct)
	require.Equal(t, 100.0, record.Stats[store.Easy].Accuracy)
	require.Equal(t, 0.0, record.Stats[store.Medium].Accuracy)
	require.Equal(t, 30, record.Stats[store.Hard].TimeSpent)
	require.Len(t, record.History, 1)
	require.Equal(t, "sess-1", record.History[0].SessionID)
	require.Equal(t, 60, record.History[0].TotalTime)
}

func TestSubmitMissingAnswersCountIncorrect(t *testing.T) {
	s := newFakeStore()
	seedSession(s, "user-1", "sess-1")
	engine := newSubmitEngine(s)

	result, err := engine.SubmitQuizResponses(context.Background(), &SubmitRequest{
		UserID:    "user-1",
		SessionID: "sess-1",
		Responses: []ResponseInput{
			{QuestionText: "q1", SelectedAnswer: "A", TimeTaken: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Correct)
	require.Equal(t, 3, result.Total)

	var skipped int
	for _, r := range s.responses {
		if r.SelectedAnswer == notAnswered {
			skipped++
			require.False(t, r.IsCorrect)
			require.Zero(t, r.TimeTaken)
		}
	}
	require.Equal(t, 2, skipped)
}

func TestSubmitResubmissionDoesNotDoubleCount(t *testing.T) {
	s := newFakeStore()
	seedSession(s, "user-1", "sess-1")
	engine := newSubmitEngine(s)

	submit := func() *SubmitResult {
		result, err := engine.SubmitQuizResponses(context.Background(), &SubmitRequest{
			UserID:    "user-1",
			SessionID: "sess-1",
			Responses: []ResponseInput{
				{QuestionText: "q1", SelectedAnswer: "A", TimeTaken: 5},
				{QuestionText: "q2", SelectedAnswer: "B", TimeTaken: 5},
				{QuestionText: "q3", SelectedAnswer: "C", TimeTaken: 5},
			},
		})
		require.NoError(t, err)
		return result
	}

	first := submit()
	require.True(t, first.FirstAttempt)
	second := submit()
	require.False(t, second.FirstAttempt)
	require.Equal(t, 3, second.Correct)

	// Still one attempt's worth of records and history.
	require.Len(t, s.responses, 3)
	require.Len(t, s.performance["user-1"].History, 1)
	require.Equal(t, 1, s.performance["user-1"].Stats[store.Easy].Total)
}

func TestSubmitHistoryCapped(t *testing.T) {
	s := newFakeStore()
	engine := newSubmitEngine(s)

	for i := 0; i < store.MaxPerformanceHistory+2; i++ {
		sessionID := fmt.Sprintf("sess-%d", i)
		seedSession(s, "user-1", sessionID)
		_, err := engine.SubmitQuizResponses(context.Background(), &SubmitRequest{
			UserID:    "user-1",
			SessionID: sessionID,
			Responses: []ResponseInput{
				{QuestionText: "q1", SelectedAnswer: "A", TimeTaken: 5},
				{QuestionText: "q2", SelectedAnswer: "B", TimeTaken: 5},
				{QuestionText: "q3", SelectedAnswer: "C", TimeTaken: 5},
			},
		})
		require.NoError(t, err)
	}

	record := s.performance["user-1"]
	require.Len(t, record.History, store.MaxPerformanceHistory)
	// Oldest summaries dropped, newest kept.
	require.Equal(t, "sess-2", record.History[0].SessionID)
	require.Equal(t, fmt.Sprintf("sess-%d", store.MaxPerformanceHistory+1), record.History[len(record.History)-1].SessionID)
}

func TestSubmitUnknownSession(t *testing.T) {
	engine := newSubmitEngine(newFakeStore())

	_, err := engine.SubmitQuizResponses(context.Background(), &SubmitRequest{
		UserID:    "user-1",
		SessionID: "missing",
	})
	require.True(t, engineerrors.IsCode(err, engineerrors.ErrCodeNotFound))
}

func TestSubmitWrongUser(t *testing.T) {
	s := newFakeStore()
	seedSession(s, "user-1", "sess-1")
	engine := newSubmitEngine(s)

	_, err := engine.SubmitQuizResponses(context.Background(), &SubmitRequest{
		UserID:    "intruder",
		SessionID: "sess-1",
	})
	require.True(t, engineerrors.IsCode(err, engineerrors.ErrCodeInvalidArgument))
}
