// Package vector provides the similarity index used for question
// deduplication. A candidate is checked against three scopes: the batch being
// assembled, the user's question history, and the global pool of all accepted
// questions.
package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/hrygo/adaptiq/plugin/ai"
	"github.com/hrygo/adaptiq/store"
)

// Scope identifies one deduplication scope.
type Scope string

const (
	ScopeBatch  Scope = "batch"
	ScopeUser   Scope = "user"
	ScopeGlobal Scope = "global"
)

// Thresholds are the per-scope cosine similarity cutoffs. A candidate whose
// similarity to any existing entry meets or exceeds the scope's threshold is
// a duplicate in that scope.
type Thresholds struct {
	Batch  float64
	User   float64
	Global float64
}

// DefaultThresholds returns the default cutoffs. The batch scope is the most
// permissive cutoff because items in one quiz naturally share a topic; the
// global scope is the strictest because cross-user repeats are cheap to avoid.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Batch:  0.85,
		User:   0.80,
		Global: 0.75,
	}
}

// Match reports the nearest duplicate found during a check.
type Match struct {
	Scope Scope
	Text  string
	Score float64
}

// Store is the persistence surface the index needs.
type Store interface {
	VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.EmbeddingWithScore, error)
	UpsertQuestionEmbedding(ctx context.Context, embedding *store.QuestionEmbedding) (*store.QuestionEmbedding, error)
}

// Index is the similarity index handle. It is injected into the pipeline,
// never a package singleton, and tolerates a completely empty state. Global
// inserts are serialized so parallel bucket loops cannot interleave
// read-check-insert sequences.
type Index struct {
	store      Store
	embedding  ai.EmbeddingService
	model      string
	thresholds Thresholds

	mu sync.Mutex
}

// NewIndex creates an Index over the given store and embedding service.
func NewIndex(s Store, embedding ai.EmbeddingService, model string, thresholds Thresholds) *Index {
	return &Index{
		store:      s,
		embedding:  embedding,
		model:      model,
		thresholds: thresholds,
	}
}

// Embed returns the vector for a candidate text.
func (idx *Index) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := idx.embedding.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed candidate: %w", err)
	}
	return vector, nil
}

// Check tests a candidate against all three scopes, batch first since it is
// free, then user history, then the global pool. Returns the first match at
// or above the scope threshold, or nil when the candidate is novel.
func (idx *Index) Check(ctx context.Context, userID string, batch *Batch, text string, vec []float32) (*Match, error) {
	if batch != nil {
		if score, nearest, ok := batch.Nearest(vec); ok && score >= idx.thresholds.Batch {
			return &Match{Scope: ScopeBatch, Text: nearest, Score: score}, nil
		}
	}

	if match, err := idx.searchScope(ctx, ScopeUser, userID, vec, idx.thresholds.User); err != nil || match != nil {
		return match, err
	}
	return idx.searchScope(ctx, ScopeGlobal, "", vec, idx.thresholds.Global)
}

func (idx *Index) searchScope(ctx context.Context, scope Scope, userID string, vec []float32, threshold float64) (*Match, error) {
	results, err := idx.store.VectorSearch(ctx, &store.VectorSearchOptions{
		UserID: userID,
		Vector: vec,
		Model:  idx.model,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s scope search: %w", scope, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	if score := float64(results[0].Score); score >= threshold {
		return &Match{
			Scope: scope,
			Text:  results[0].Embedding.QuestionText,
			Score: score,
		}, nil
	}
	return nil, nil
}

// Query returns the k nearest global entries for a text.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]*store.EmbeddingWithScore, error) {
	vec, err := idx.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return idx.store.VectorSearch(ctx, &store.VectorSearchOptions{
		Vector: vec,
		Model:  idx.model,
		Limit:  k,
	})
}

// Insert appends an accepted question to the global scope. The index is
// append-only; entries survive even when their session is abandoned.
func (idx *Index) Insert(ctx context.Context, question *store.Question, vec []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, err := idx.store.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
		QuestionID:   question.ID,
		UserID:       question.CreatorID,
		QuestionText: question.QuestionText,
		Embedding:    vec,
		Model:        idx.model,
		CreatedTs:    question.CreatedTs,
	})
	if err != nil {
		return fmt.Errorf("insert into global index: %w", err)
	}
	return nil
}

// Model returns the embedding model the index was built with.
func (idx *Index) Model() string {
	return idx.model
}
