package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/adaptiq/store"
)

func (d *DB) UpsertQuestionEmbedding(ctx context.Context, embedding *store.QuestionEmbedding) (*store.QuestionEmbedding, error) {
	stmt := `
		INSERT INTO question_embedding (question_id, user_id, question_text, embedding, model, created_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (question_id, model) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			created_ts = EXCLUDED.created_ts
		RETURNING id
	`
	vector := pgvector.NewVector(embedding.Embedding)
	err := d.db.QueryRowContext(ctx, stmt,
		embedding.QuestionID,
		embedding.UserID,
		embedding.QuestionText,
		vector,
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
		where, args = append(where, "question_id = "+placeholder(len(args)+1)), append(args, *find.QuestionID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.Model != nil {
		where, args = append(where, "model = "+placeholder(len(args)+1)), append(args, *find.Model)
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
		var vector pgvector.Vector
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
		embedding.Embedding = vector.Slice()
		list = append(list, &embedding)
	}
	return list, rows.Err()
}

// VectorSearch performs cosine similarity search through pgvector. The <=>
// operator computes cosine distance, so score = 1 - distance and ordering by
// distance ascending yields the most similar entries first.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.EmbeddingWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := []string{"model = $2"}, []any{}
	vector := pgvector.NewVector(opts.Vector)
	args = append(args, vector, opts.Model)
	if opts.UserID != "" {
		where = append(where, "user_id = "+placeholder(len(args)+1))
		args = append(args, opts.UserID)
	}

	query := `
		SELECT id, question_id, user_id, question_text, embedding, model, created_ts,
			1 - (embedding <=> $1) AS score
		FROM question_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> $1
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.EmbeddingWithScore{}
	for rows.Next() {
		var result store.EmbeddingWithScore
		var embedding store.QuestionEmbedding
		var scanned pgvector.Vector
		if err := rows.Scan(
			&embedding.ID,
			&embedding.QuestionID,
			&embedding.UserID,
			&embedding.QuestionText,
			&scanned,
			&embedding.Model,
			&embedding.CreatedTs,
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		embedding.Embedding = scanned.Slice()
		result.Embedding = &embedding
		results = append(results, &result)
	}
	return results, rows.Err()
}
