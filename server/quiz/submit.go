package quiz

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	engineerrors "github.com/hrygo/adaptiq/internal/errors"
	"github.com/hrygo/adaptiq/internal/observability"
	"github.com/hrygo/adaptiq/store"
)

// ResponseInput is one answered question in a submission. Questions the user
// skipped are absent and get logged as incorrect with zero time.
type ResponseInput struct {
	QuestionText   string
	SelectedAnswer string
	// TimeTaken is the response time in seconds.
	TimeTaken int
}

// SubmitRequest is a full quiz submission.
type SubmitRequest struct {
	UserID    string
	SessionID string
	Responses []ResponseInput
}

// GradedResponse is one graded answer.
type GradedResponse struct {
	QuestionText   string
	SelectedAnswer string
	CorrectAnswers []string
	IsCorrect      bool
	TimeTaken      int
	Difficulty     store.Difficulty
}

// SubmitResult summarizes a graded submission.
type SubmitResult struct {
	SessionID    string
	FirstAttempt bool
	Correct      int
	Total        int
	// Accuracy is the fraction of correct responses, 0-1.
	Accuracy  float64
	Responses []GradedResponse
}

// notAnswered marks a skipped question's recorded answer.
const notAnswered = "Not Answered"

// SubmitQuizResponses grades a submission against its session. Response
// records and performance counters are written only on the session's first
// attempt, so resubmissions cannot double-count ability history.
func (e *Engine) SubmitQuizResponses(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	log := observability.FromContext(ctx)

	session, err := e.store.GetQuizSession(ctx, req.SessionID)
	if err != nil {
		return nil, engineerrors.UpstreamUnavailable("session store unreachable", err)
	}
	if session == nil {
		return nil, engineerrors.NotFound("quiz session not found")
	}
	if session.UserID != req.UserID {
		return nil, engineerrors.InvalidArgument("quiz session belongs to another user")
	}

	submitted, err := e.store.HasSubmission(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, engineerrors.UpstreamUnavailable("submission history unreachable", err)
	}
	firstAttempt := !submitted

	answered := make(map[string]ResponseInput, len(req.Responses))
	for _, r := range req.Responses {
		answered[r.QuestionText] = r
	}

	result := &SubmitResult{
		SessionID:    req.SessionID,
		FirstAttempt: firstAttempt,
		Total:        len(session.Questions),
	}
	skipped := 0
	for _, question := range session.Questions {
		input, ok := answered[question.QuestionText]
		if !ok {
			input = ResponseInput{QuestionText: question.QuestionText, SelectedAnswer: notAnswered}
			skipped++
		}

		graded := GradedResponse{
			QuestionText:   question.QuestionText,
			SelectedAnswer: input.SelectedAnswer,
			CorrectAnswers: question.CorrectAnswers,
			IsCorrect:      isCorrectAnswer(input.SelectedAnswer, question.CorrectAnswers),
			TimeTaken:      input.TimeTaken,
			Difficulty:     question.Difficulty,
		}
		if graded.IsCorrect {
			result.Correct++
		}
		result.Responses = append(result.Responses, graded)
	}
	if result.Total > 0 {
		result.Accuracy = float64(result.Correct) / float64(result.Total)
	}
	if skipped > 0 {
		log.Warn("submission skipped questions",
			slog.String(observability.LogFieldSessionID, req.SessionID),
			slog.Int("skipped", skipped),
		)
	}

	if firstAttempt {
		if err := e.recordSubmission(ctx, req, result); err != nil {
			return nil, err
		}
	}

	log.Info("quiz submitted",
		slog.String(observability.LogFieldSessionID, req.SessionID),
		slog.Bool("first_attempt", firstAttempt),
		slog.Int("correct", result.Correct),
		slog.Int("total", result.Total),
	)
	return result, nil
}

// recordSubmission persists response records and folds the submission into
// the user's performance record.
func (e *Engine) recordSubmission(ctx context.Context, req *SubmitRequest, result *SubmitResult) error {
	now := time.Now().Unix()
	totalTime := 0
	for _, graded := range result.Responses {
		totalTime += graded.TimeTaken
		_, err := e.store.CreateResponseRecord(ctx, &store.ResponseRecord{
			UserID:         req.UserID,
			SessionID:      req.SessionID,
			QuestionText:   graded.QuestionText,
			SelectedAnswer: graded.SelectedAnswer,
			IsCorrect:      graded.IsCorrect,
			TimeTaken:      graded.TimeTaken,
			Difficulty:     graded.Difficulty,
			SubmittedTs:    now,
		})
		if err != nil {
			return engineerrors.UpstreamUnavailable("response record write failed", err)
		}
	}

	record, err := e.store.GetPerformanceRecord(ctx, req.UserID)
	if err != nil {
		return engineerrors.UpstreamUnavailable("performance record unreachable", err)
	}
	if record == nil {
		record = store.NewPerformanceRecord(req.UserID)
	}

	for _, graded := range result.Responses {
		stats, ok := record.Stats[graded.Difficulty]
		if !ok {
			stats = &store.DifficultyStats{}
			record.Stats[graded.Difficulty] = stats
		}
		stats.Total++
		if graded.IsCorrect {
			stats.Correct++
		} else {
			stats.Incorrect++
		}
		stats.TimeSpent += graded.TimeTaken
	}
	for _, stats := range record.Stats {
		if stats.Total > 0 {
			stats.Accuracy = math.Round(float64(stats.Correct)/float64(stats.Total)*100*100) / 100
		}
	}

	record.History = append(record.History, &store.SessionSummary{
		SessionID:   req.SessionID,
		Accuracy:    result.Accuracy,
		TotalTime:   totalTime,
		Responses:   result.Total,
		SubmittedTs: now,
	})
	if len(record.History) > store.MaxPerformanceHistory {
		record.History = record.History[len(record.History)-store.MaxPerformanceHistory:]
	}
	record.UpdatedTs = now

	if _, err := e.store.UpsertPerformanceRecord(ctx, record); err != nil {
		return engineerrors.UpstreamUnavailable("performance record write failed", err)
	}
	return nil
}

// isCorrectAnswer grades a selected label against the accepted labels.
func isCorrectAnswer(selected string, correct []string) bool {
	label := strings.ToUpper(strings.TrimSpace(selected))
	for _, c := range correct {
		if label == strings.ToUpper(c) {
			return true
		}
	}
	return false
}
