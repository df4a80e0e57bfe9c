package sqlite

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/adaptiq/store"
)

func (d *DB) UpsertQuestionEmbedding(ctx context.Context, embedding *store.QuestionEmbedding) (*store.QuestionEmbedding, error) {
	vector, err := json.Marshal(embedding.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal embedding")
	}

	stmt := `
		INSERT INTO question_embedding (question_id, user_id, question_text, embedding, model, created_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (question_id, model) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			created_ts = EXCLUDED.created_ts
		RETURNING id
	`
	err = d.db.QueryRowContext(ctx, stmt,
		embedding.QuestionID,
		embedding.UserID,
		embedding.QuestionText,
		string(vector),
		embedding.Model,
		embedding.CreatedTs,
	).Scan(&embedding.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert question embedding")
	}

	return embedding, nil
}

func (d *DB) ListQuestionEmbeddings(ctx context.Context, find *store.FindQuestionEmbedding) ([]*store.QuestionEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.QuestionID != nil {
		where, args = append(where, "question_id = ?"), append(args, *find.QuestionID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Model != nil {
		where, args = append(where, "model = ?"), append(args, *find.Model)
	}

	query := `
		SELECT id, question_id, user_id, question_text, embedding, model, created_ts
		FROM question_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list question embeddings")
	}
	defer rows.Close()

	list := []*store.QuestionEmbedding{}
	for rows.Next() {
		var embedding store.QuestionEmbedding
		var vector string
		if err := rows.Scan(
			&embedding.ID,
			&embedding.QuestionID,
			&embedding.UserID,
			&embedding.QuestionText,
			&vector,
			&embedding.Model,
			&embedding.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan question embedding")
		}
		if err := json.Unmarshal([]byte(vector), &embedding.Embedding); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal embedding")
		}
		list = append(list, &embedding)
	}
	return list, rows.Err()
}

// VectorSearch loads the candidate embeddings and ranks them in process.
// SQLite has no native vector type, so similarity is a full scan; acceptable
// for the index sizes a single-node deployment accumulates.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.EmbeddingWithScore, error) {
	find := &store.FindQuestionEmbedding{Model: &opts.Model}
	if opts.UserID != "" {
		find.UserID = &opts.UserID
	}
	embeddings, err := d.ListQuestionEmbeddings(ctx, find)
	if err != nil {
		return nil, err
	}

	results := make([]*store.EmbeddingWithScore, 0, len(embeddings))
	for _, embedding := range embeddings {
		score := cosineSimilarity(opts.Vector, embedding.Embedding)
		results = append(results, &store.EmbeddingWithScore{
			Embedding: embedding,
			Score:     score,
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

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
