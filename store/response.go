package store

import "context"

// ResponseRecord links a user, a session and a question to the answer the
// user selected. Append-only; drives future ability estimation.
type ResponseRecord struct {
	ID             int64
	UserID         string
	SessionID      string
	QuestionText   string
	SelectedAnswer string
	IsCorrect      bool
	// TimeTaken is the response time in seconds.
	TimeTaken   int
	Difficulty  Difficulty
	SubmittedTs int64
}

// FindResponseRecord is the find condition for response records.
type FindResponseRecord struct {
	UserID    *string
	SessionID *string
	Limit     *int
}

// CreateResponseRecord appends one response record.
func (s *Store) CreateResponseRecord(ctx context.Context, create *ResponseRecord) (*ResponseRecord, error) {
	return s.driver.CreateResponseRecord(ctx, create)
}

// ListResponseRecords lists response records, newest first.
func (s *Store) ListResponseRecords(ctx context.Context, find *FindResponseRecord) ([]*ResponseRecord, error) {
	return s.driver.ListResponseRecords(ctx, find)
}

// HasSubmission reports whether the user already submitted this session.
// Resubmissions must not double-count performance.
func (s *Store) HasSubmission(ctx context.Context, userID, sessionID string) (bool, error) {
	return s.driver.HasSubmission(ctx, userID, sessionID)
}
