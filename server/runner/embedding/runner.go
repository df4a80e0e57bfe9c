// Package embedding backfills similarity-index entries for pool questions
// that lack one, e.g. questions created before the embedding model changed
// or while the embedding service was down.
package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/adaptiq/store"
)

// EmbeddingService is the vector service surface the runner needs.
type EmbeddingService interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the persistence surface the runner needs.
type Store interface {
	FindQuestionsWithoutEmbedding(ctx context.Context, model string, limit int) ([]*store.Question, error)
	UpsertQuestionEmbedding(ctx context.Context, embedding *store.QuestionEmbedding) (*store.QuestionEmbedding, error)
}

type Runner struct {
	store     Store
	embedding EmbeddingService
	interval  time.Duration
	batchSize int
	model     string
}

// NewRunner creates an embedding backfill runner. The small batch size keeps
// memory peaks down on small deployments.
func NewRunner(s Store, embedding EmbeddingService, model string) *Runner {
	return &Runner{
		store:     s,
		embedding: embedding,
		interval:  2 * time.Minute,
		batchSize: 8,
		model:     model,
	}
}

// Run starts the background loop. Processes once on startup, then on every
// tick until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.processPending(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.processPending(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes pending questions once, for manual triggering.
func (r *Runner) RunOnce(ctx context.Context) {
	r.processPending(ctx)
}

func (r *Runner) processPending(ctx context.Context) {
	questions, err := r.store.FindQuestionsWithoutEmbedding(ctx, r.model, r.batchSize*20)
	if err != nil {
		slog.Error("failed to find questions without embedding", "error", err)
		return
	}
	if len(questions) == 0 {
		return
	}

	slog.Info("backfilling question embeddings", "count", len(questions))

	for i := 0; i < len(questions); i += r.batchSize {
		select {
		case <-ctx.Done():
			slog.Info("embedding backfill cancelled", "processed", i, "total", len(questions))
			return
		default:
		}

		end := i + r.batchSize
		if end > len(questions) {
			end = len(questions)
		}
		if err := r.processBatch(ctx, questions[i:end]); err != nil {
			slog.Error("failed to process embedding batch", "error", err)
			continue
		}
	}
}

func (r *Runner) processBatch(ctx context.Context, questions []*store.Question) error {
	texts := make([]string, len(questions))
	for i, q := range questions {
		texts[i] = q.QuestionText
	}

	vectors, err := r.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for i, q := range questions {
		_, err := r.store.UpsertQuestionEmbedding(ctx, &store.QuestionEmbedding{
			QuestionID:   q.ID,
			UserID:       q.CreatorID,
			QuestionText: q.QuestionText,
			Embedding:    vectors[i],
			Model:        r.model,
			CreatedTs:    now,
		})
		if err != nil {
			slog.Error("failed to upsert question embedding", "question_id", q.ID, "error", err)
		}
	}
	return nil
}
