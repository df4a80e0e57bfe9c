package vector

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"sync"

	"github.com/hrygo/adaptiq/store"
)

// MockEmbeddingService is a deterministic embedding service for testing.
// Fixed vectors can be registered per text; unregistered texts hash to a
// stable pseudo-random unit vector, so equal texts always embed equally.
type MockEmbeddingService struct {
	mu         sync.RWMutex
	fixed      map[string][]float32
	dimensions int
}

// NewMockEmbeddingService creates a mock with the given dimension.
func NewMockEmbeddingService(dimensions int) *MockEmbeddingService {
	return &MockEmbeddingService{
		fixed:      make(map[string][]float32),
		dimensions: dimensions,
	}
}

// SetVector registers a fixed vector for a text.
func (m *MockEmbeddingService) SetVector(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[text] = vec
}

func (m *MockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.RLock()
	if vec, ok := m.fixed[text]; ok {
		m.mu.RUnlock()
		return vec, nil
	}
	m.mu.RUnlock()
	return m.hashVector(text), nil
}

func (m *MockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) hashVector(text string) []float32 {
	vec := make([]float32, m.dimensions)
	var norm float64
	for i := range vec {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		v := float64(h.Sum32()%1000)/500.0 - 1.0
		vec[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// MockStore is an in-memory Store implementation for testing the index
// without a database.
type MockStore struct {
	mu      sync.RWMutex
	nextID  int64
	entries []*store.QuestionEmbedding
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) UpsertQuestionEmbedding(_ context.Context, embedding *store.QuestionEmbedding) (*store.QuestionEmbedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	embedding.ID = m.nextID
	m.entries = append(m.entries, embedding)
	return embedding, nil
}

func (m *MockStore) VectorSearch(_ context.Context, opts *store.VectorSearchOptions) ([]*store.EmbeddingWithScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []*store.EmbeddingWithScore{}
	for _, entry := range m.entries {
		if opts.UserID != "" && entry.UserID != opts.UserID {
			continue
		}
		if opts.Model != "" && entry.Model != opts.Model {
			continue
		}
		results = append(results, &store.EmbeddingWithScore{
			Embedding: entry,
			Score:     float32(cosineSimilarity(opts.Vector, entry.Embedding)),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len returns the number of stored entries.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ Store = (*MockStore)(nil)
