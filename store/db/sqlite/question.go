package sqlite

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/adaptiq/store"
)

func (d *DB) CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error) {
	options, err := json.Marshal(create.Options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal options")
	}
	answers, err := json.Marshal(create.CorrectAnswers)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal correct answers")
	}

	stmt := `
		INSERT INTO question (
			uid, creator_id, question_text, options, correct_answers, difficulty,
			discrimination, difficulty_b, guessing, verified_answer, is_verified, created_ts
		)
		VALUES (` + placeholders(12) + `)
		RETURNING id
	`
	err = d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.CreatorID,
		create.QuestionText,
		string(options),
		string(answers),
		string(create.Difficulty),
		create.Discrimination,
		create.DifficultyB,
		create.Guessing,
		create.VerifiedAnswer,
		create.IsVerified,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create question")
	}

	return create, nil
}

func (d *DB) ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.CreatorID != nil {
		where, args = append(where, "creator_id = ?"), append(args, *find.CreatorID)
	}
	if find.Difficulty != nil {
		where, args = append(where, "difficulty = ?"), append(args, string(*find.Difficulty))
	}
	if find.QuestionText != nil {
		where, args = append(where, "question_text = ?"), append(args, *find.QuestionText)
	}

	query := `
		SELECT id, uid, creator_id, question_text, options, correct_answers, difficulty,
			discrimination, difficulty_b, guessing, verified_answer, is_verified, created_ts
		FROM question
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list questions")
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (d *DB) ListQuestionTexts(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT question_text FROM question WHERE creator_id = ? ORDER BY created_ts DESC", userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list question texts")
	}
	defer rows.Close()

	texts := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, errors.Wrap(err, "failed to scan question text")
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

func (d *DB) SampleQuestions(ctx context.Context, n int, excludeTexts []string) ([]*store.Question, error) {
	if n <= 0 {
		return []*store.Question{}, nil
	}

	where, args := []string{"1 = 1"}, []any{}
	if len(excludeTexts) > 0 {
		where = append(where, "question_text NOT IN ("+placeholders(len(excludeTexts))+")")
		for _, text := range excludeTexts {
			args = append(args, text)
		}
	}
	args = append(args, n)

	query := `
		SELECT id, uid, creator_id, question_text, options, correct_answers, difficulty,
			discrimination, difficulty_b, guessing, verified_answer, is_verified, created_ts
		FROM question
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY RANDOM()
		LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sample questions")
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (d *DB) FindQuestionsWithoutEmbedding(ctx context.Context, model string, limit int) ([]*store.Question, error) {
	query := `
		SELECT q.id, q.uid, q.creator_id, q.question_text, q.options, q.correct_answers, q.difficulty,
			q.discrimination, q.difficulty_b, q.guessing, q.verified_answer, q.is_verified, q.created_ts
		FROM question q
		LEFT JOIN question_embedding e ON e.question_id = q.id AND e.model = ?
		WHERE e.id IS NULL
		ORDER BY q.created_ts ASC
		LIMIT ?
	`
	rows, err := d.db.QueryContext(ctx, query, model, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find questions without embedding")
	}
	defer rows.Close()

	return scanQuestions(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanQuestions(rows rowScanner) ([]*store.Question, error) {
	list := []*store.Question{}
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, question)
	}
	return list, rows.Err()
}

func scanQuestion(rows rowScanner) (*store.Question, error) {
	var question store.Question
	var options, answers string
	err := rows.Scan(
		&question.ID,
		&question.UID,
		&question.CreatorID,
		&question.QuestionText,
		&options,
		&answers,
		&question.Difficulty,
		&question.Discrimination,
		&question.DifficultyB,
		&question.Guessing,
		&question.VerifiedAnswer,
		&question.IsVerified,
		&question.CreatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan question")
	}
	if err := json.Unmarshal([]byte(options), &question.Options); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal options")
	}
	if err := json.Unmarshal([]byte(answers), &question.CorrectAnswers); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal correct answers")
	}
	return &question, nil
}
