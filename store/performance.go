package store

import "context"

// MaxPerformanceHistory bounds the rolling per-session history.
const MaxPerformanceHistory = 5

// DifficultyStats holds per-difficulty performance counters.
type DifficultyStats struct {
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	Total     int     `json:"total"`
	// TimeSpent is the cumulative response time in seconds.
	TimeSpent int     `json:"time_spent"`
	// Accuracy is Correct/Total as a percentage, rounded to 2 decimals.
	Accuracy  float64 `json:"accuracy"`
}

// SessionSummary is one entry of the rolling history.
type SessionSummary struct {
	SessionID string  `json:"session_id"`
	// Accuracy is the fraction of correct responses in the session, 0-1.
	Accuracy  float64 `json:"accuracy"`
	// TotalTime is the summed response time in seconds.
	TotalTime   int   `json:"total_time"`
	Responses   int   `json:"responses"`
	SubmittedTs int64 `json:"submitted_ts"`
}

// PerformanceRecord aggregates a user's quiz performance. Created lazily on
// the first submission; mutated only by a session's first submission.
type PerformanceRecord struct {
	UserID string
	// Stats is keyed by difficulty tier.
	Stats map[Difficulty]*DifficultyStats
	// History holds the last MaxPerformanceHistory session summaries,
	// oldest first.
	History   []*SessionSummary
	UpdatedTs int64
}

// NewPerformanceRecord creates an empty record for a user.
func NewPerformanceRecord(userID string) *PerformanceRecord {
	stats := make(map[Difficulty]*DifficultyStats, len(Difficulties))
	for _, d := range Difficulties {
		stats[d] = &DifficultyStats{}
	}
	return &PerformanceRecord{
		UserID: userID,
		Stats:  stats,
	}
}

// GetPerformanceRecord gets a user's record. Returns nil when the user has
// never submitted.
func (s *Store) GetPerformanceRecord(ctx context.Context, userID string) (*PerformanceRecord, error) {
	if record, ok := s.performanceCache.Get(userID); ok {
		return record.(*PerformanceRecord), nil
	}
	record, err := s.driver.GetPerformanceRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		s.performanceCache.Set(userID, record)
	}
	return record, nil
}

// UpsertPerformanceRecord writes a user's record.
func (s *Store) UpsertPerformanceRecord(ctx context.Context, record *PerformanceRecord) (*PerformanceRecord, error) {
	updated, err := s.driver.UpsertPerformanceRecord(ctx, record)
	if err != nil {
		return nil, err
	}
	s.performanceCache.Set(updated.UserID, updated)
	return updated, nil
}
