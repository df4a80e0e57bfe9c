package store

import "context"

// Difficulty is the difficulty tier of a question.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the tiers in scheduling order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// IsValid reports whether d is a known difficulty tier.
func (d Difficulty) IsValid() bool {
	return d == Easy || d == Medium || d == Hard
}

// OptionLabels are the five answer labels of a question, in display order.
var OptionLabels = []string{"A", "B", "C", "D", "E"}

// Question is one accepted multiple-choice item. Immutable once created.
type Question struct {
	ID           int64
	UID          string
	CreatorID    string
	QuestionText string
	// Options maps label (A-E) to option text. Exactly five entries.
	Options map[string]string
	// CorrectAnswers holds one or more labels, each a member of Options.
	CorrectAnswers []string
	Difficulty     Difficulty

	// Synthetic item-response-theory parameters.
	Discrimination float64 // a
	DifficultyB    float64 // b
	Guessing       float64 // c

	// Verification fields. VerifiedAnswer is set when the independent solve
	// path produced a verdict; IsVerified reports whether it did.
	VerifiedAnswer string
	IsVerified     bool

	CreatedTs int64
}

// FindQuestion is the find condition for questions.
type FindQuestion struct {
	CreatorID    *string
	Difficulty   *Difficulty
	QuestionText *string
	Limit        *int
}

// CreateQuestion persists an accepted question into the item pool.
func (s *Store) CreateQuestion(ctx context.Context, create *Question) (*Question, error) {
	return s.driver.CreateQuestion(ctx, create)
}

// ListQuestions lists questions from the item pool.
func (s *Store) ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error) {
	return s.driver.ListQuestions(ctx, find)
}

// ListQuestionTexts returns the question texts previously generated for a user.
func (s *Store) ListQuestionTexts(ctx context.Context, userID string) ([]string, error) {
	return s.driver.ListQuestionTexts(ctx, userID)
}

// SampleQuestions draws up to n random pool questions whose text is not in
// excludeTexts. Used for fallback top-up of under-filled sessions.
func (s *Store) SampleQuestions(ctx context.Context, n int, excludeTexts []string) ([]*Question, error) {
	return s.driver.SampleQuestions(ctx, n, excludeTexts)
}

// FindQuestionsWithoutEmbedding returns pool questions that have no embedding
// row for the given model yet.
func (s *Store) FindQuestionsWithoutEmbedding(ctx context.Context, model string, limit int) ([]*Question, error) {
	return s.driver.FindQuestionsWithoutEmbedding(ctx, model, limit)
}
