package store

import "context"

// QuestionEmbedding is one entry of the global similarity index: the vector
// of an accepted question's text. Append-only; entries are never deleted,
// even for abandoned sessions.
type QuestionEmbedding struct {
	ID           int64
	QuestionID   int64
	UserID       string
	QuestionText string
	Embedding    []float32
	// Model identifies the embedding model, e.g. "text-embedding-3-small".
	Model     string
	CreatedTs int64
}

// FindQuestionEmbedding is the find condition for question embeddings.
type FindQuestionEmbedding struct {
	QuestionID *int64
	UserID     *string
	Model      *string
}

// EmbeddingWithScore is a vector search hit.
type EmbeddingWithScore struct {
	Embedding *QuestionEmbedding
	// Score is cosine similarity in [0,1]; higher is more similar.
	Score float32
}

// VectorSearchOptions are the options for vector search over the index.
type VectorSearchOptions struct {
	// UserID restricts the search to one user's entries when non-empty.
	UserID string
	Vector []float32
	Model  string
	// Limit is the number of results to return, default 10.
	Limit int
}

// UpsertQuestionEmbedding inserts or updates a question embedding.
func (s *Store) UpsertQuestionEmbedding(ctx context.Context, embedding *QuestionEmbedding) (*QuestionEmbedding, error) {
	return s.driver.UpsertQuestionEmbedding(ctx, embedding)
}

// ListQuestionEmbeddings lists question embeddings.
func (s *Store) ListQuestionEmbeddings(ctx context.Context, find *FindQuestionEmbedding) ([]*QuestionEmbedding, error) {
	return s.driver.ListQuestionEmbeddings(ctx, find)
}

// VectorSearch performs cosine similarity search over the index.
func (s *Store) VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*EmbeddingWithScore, error) {
	return s.driver.VectorSearch(ctx, opts)
}
