package store

import "context"

// QuizSession is one assembled quiz. Immutable once persisted; persistence is
// a single write, so no partial-session state is ever visible.
type QuizSession struct {
	ID             string
	UserID         string
	RequestedCount int
	// Distribution is the per-difficulty item count the scheduler decided on.
	Distribution map[Difficulty]int
	// Questions is the ordered list of assembled items.
	Questions []*Question
	// Partial reports that the session is shorter than RequestedCount because
	// both generation and the fallback pool ran dry.
	Partial   bool
	CreatedTs int64
}

// FindQuizSession is the find condition for quiz sessions.
type FindQuizSession struct {
	UserID *string
	Limit  *int
}

// CreateQuizSession persists a session atomically.
func (s *Store) CreateQuizSession(ctx context.Context, create *QuizSession) (*QuizSession, error) {
	return s.driver.CreateQuizSession(ctx, create)
}

// GetQuizSession gets a session by ID. Returns nil when not found.
func (s *Store) GetQuizSession(ctx context.Context, id string) (*QuizSession, error) {
	return s.driver.GetQuizSession(ctx, id)
}

// ListQuizSessions lists sessions, newest first.
func (s *Store) ListQuizSessions(ctx context.Context, find *FindQuizSession) ([]*QuizSession, error) {
	return s.driver.ListQuizSessions(ctx, find)
}
