package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema when missing.
	Migrate(ctx context.Context) error

	// Question model related methods.
	CreateQuestion(ctx context.Context, create *Question) (*Question, error)
	ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error)
	ListQuestionTexts(ctx context.Context, userID string) ([]string, error)
	SampleQuestions(ctx context.Context, n int, excludeTexts []string) ([]*Question, error)
	FindQuestionsWithoutEmbedding(ctx context.Context, model string, limit int) ([]*Question, error)

	// QuizSession model related methods.
	CreateQuizSession(ctx context.Context, create *QuizSession) (*QuizSession, error)
	GetQuizSession(ctx context.Context, id string) (*QuizSession, error)
	ListQuizSessions(ctx context.Context, find *FindQuizSession) ([]*QuizSession, error)

	// ResponseRecord model related methods.
	CreateResponseRecord(ctx context.Context, create *ResponseRecord) (*ResponseRecord, error)
	ListResponseRecords(ctx context.Context, find *FindResponseRecord) ([]*ResponseRecord, error)
	HasSubmission(ctx context.Context, userID, sessionID string) (bool, error)

	// PerformanceRecord model related methods.
	GetPerformanceRecord(ctx context.Context, userID string) (*PerformanceRecord, error)
	UpsertPerformanceRecord(ctx context.Context, record *PerformanceRecord) (*PerformanceRecord, error)

	// QuestionEmbedding model related methods.
	UpsertQuestionEmbedding(ctx context.Context, embedding *QuestionEmbedding) (*QuestionEmbedding, error)
	ListQuestionEmbeddings(ctx context.Context, find *FindQuestionEmbedding) ([]*QuestionEmbedding, error)
	VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*EmbeddingWithScore, error)
}
