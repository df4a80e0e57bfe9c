package quiz

import (
	"context"
	"fmt"
	"sync"

	engineerrors "github.com/hrygo/adaptiq/internal/errors"
	"github.com/hrygo/adaptiq/plugin/ai/vector"
	"github.com/hrygo/adaptiq/store"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	mu          sync.Mutex
	nextID      int64
	questions   []*store.Question
	pool        []*store.Question
	sessions    map[string]*store.QuizSession
	responses   []*store.ResponseRecord
	performance map[string]*store.PerformanceRecord

	failSessions bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:    make(map[string]*store.QuizSession),
		performance: make(map[string]*store.PerformanceRecord),
	}
}

func (f *fakeStore) CreateQuestion(_ context.Context, create *store.Question) (*store.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	create.ID = f.nextID
	f.questions = append(f.questions, create)
	return create, nil
}

func (f *fakeStore) ListResponseRecords(_ context.Context, find *store.FindResponseRecord) ([]*store.ResponseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []*store.ResponseRecord{}
	for _, r := range f.responses {
		if find.UserID != nil && r.UserID != *find.UserID {
			continue
		}
		if find.SessionID != nil && r.SessionID != *find.SessionID {
			continue
		}
		list = append(list, r)
	}
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (f *fakeStore) ListQuestionTexts(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := []string{}
	for _, q := range f.questions {
		if q.CreatorID == userID {
			texts = append(texts, q.QuestionText)
		}
	}
	return texts, nil
}

func (f *fakeStore) SampleQuestions(_ context.Context, n int, excludeTexts []string) ([]*store.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exclude := map[string]struct{}{}
	for _, text := range excludeTexts {
		exclude[text] = struct{}{}
	}
	sampled := []*store.Question{}
	for _, q := range f.pool {
		if _, skip := exclude[q.QuestionText]; skip {
			continue
		}
		sampled = append(sampled, q)
		if len(sampled) >= n {
			break
		}
	}
	return sampled, nil
}

func (f *fakeStore) CreateQuizSession(_ context.Context, create *store.QuizSession) (*store.QuizSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSessions {
		return nil, fmt.Errorf("session store down")
	}
	f.sessions[create.ID] = create
	return create, nil
}

func (f *fakeStore) GetQuizSession(_ context.Context, id string) (*store.QuizSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id], nil
}

func (f *fakeStore) HasSubmission(_ context.Context, userID, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.responses {
		if r.UserID == userID && r.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateResponseRecord(_ context.Context, create *store.ResponseRecord) (*store.ResponseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	create.ID = f.nextID
	f.responses = append(f.responses, create)
	return create, nil
}

func (f *fakeStore) GetPerformanceRecord(_ context.Context, userID string) (*store.PerformanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.performance[userID], nil
}

func (f *fakeStore) UpsertPerformanceRecord(_ context.Context, record *store.PerformanceRecord) (*store.PerformanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.performance[record.UserID] = record
	return record, nil
}

var _ Store = (*fakeStore)(nil)

// stubSource returns queued candidates in order, then transient failures.
type stubSource struct {
	mu    sync.Mutex
	queue []*Candidate
	err   error
	calls int
}

func (s *stubSource) Generate(_ context.Context, _ *GenerateRequest) ([]*Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.queue) == 0 {
		return nil, engineerrors.TransientGeneration(fmt.Errorf("stub queue empty"))
	}
	candidate := s.queue[0]
	s.queue = s.queue[1:]
	return []*Candidate{candidate}, nil
}

// stubVerifier returns a fixed label or error.
type stubVerifier struct {
	label string
	err   error
	calls int
}

func (v *stubVerifier) Solve(_ context.Context, _ string, _ map[string]string) (string, error) {
	v.calls++
	if v.err != nil {
		return "", v.err
	}
	return v.label, nil
}

// validCandidate builds a structurally valid candidate with distinct options.
func validCandidate(text string) *Candidate {
	return &Candidate{
		QuestionText: text,
		Options: map[string]string{
			"A": text + " option a",
			"B": text + " option b",
			"C": text + " option c",
			"D": text + " option d",
			"E": text + " option e",
		},
		CorrectAnswers: []string{"B"},
		RawAnswer:      "B",
	}
}

// orthogonalEmbedder registers a distinct one-hot vector per text so
// unrelated questions never collide in the similarity index.
func orthogonalEmbedder(texts ...string) *vector.MockEmbeddingService {
	embedder := vector.NewMockEmbeddingService(32)
	for i, text := range texts {
		vec := make([]float32, 32)
		vec[i%32] = 1
		embedder.SetVector(text, vec)
	}
	return embedder
}

func newTestPipeline(source CandidateSource, verifier Verifier, pool QuestionPool, embedder *vector.MockEmbeddingService) (*Pipeline, *vector.Index) {
	idx := vector.NewIndex(vector.NewMockStore(), embedder, "test-model", vector.DefaultThresholds())
	policy := NewRetryPolicy(3, 0)
	pipeline := NewPipeline(source, idx, verifier, nil, policy, pool, NewSeededRand(42))
	return pipeline, idx
}
